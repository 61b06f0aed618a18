// Package calltypes defines the per-call conversation state the dialog
// engine reads and mutates on every turn.
package calltypes

// Phase is the call's position in the verification/negotiation flow.
type Phase string

const (
	PhasePreVerification  Phase = "pre_verification"
	PhaseVerification     Phase = "verification"
	PhasePostVerification Phase = "post_verification"
	PhaseEnded            Phase = "ended"
)

// PromiseToPay captures a negotiated payment commitment.
type PromiseToPay struct {
	Date      *string `json:"date,omitempty"`
	Amount    *string `json:"amount,omitempty"`
	Confirmed bool    `json:"confirmed"`
}

// Callback captures a requested callback time.
type Callback struct {
	Requested     bool    `json:"requested"`
	DatetimeLocal *string `json:"datetime_local,omitempty"`
}

// CallState is the full mutable state threaded through a call's turns.
type CallState struct {
	Phase                   Phase        `json:"phase"`
	TurnCount               int          `json:"turn_count"`
	SilenceCount             int         `json:"silence_count"`
	ClarificationAttempts    int         `json:"clarification_attempts"`
	VerificationAttempts     int         `json:"verification_attempts"`
	ReconductionAttempts     int         `json:"reconduction_attempts"`
	NegotiationProposalsCount int        `json:"negotiation_proposals_count"`
	Verified                bool         `json:"verified"`
	RightPartyConfidence     float64     `json:"right_party_confidence"`
	TargetReached            bool        `json:"target_reached"`
	ConsentToContinue        bool        `json:"consent_to_continue"`
	MiniMirandaAcknowledged  bool        `json:"mini_miranda_acknowledged"`
	UserSentiment            string      `json:"user_sentiment,omitempty"`
	VoicemailDetected        bool        `json:"voicemail_detected"`
	HardshipFlag             bool        `json:"hardship_flag"`
	LastAssistantIntent      string      `json:"last_assistant_intent,omitempty"`
	LastAssistantQuestion    string      `json:"last_assistant_question,omitempty"`
	LastProposedPaymentDate  string      `json:"last_proposed_payment_date,omitempty"`
	PromiseToPay             PromiseToPay `json:"promise_to_pay"`
	Callback                 Callback    `json:"callback"`
	EndReason                string      `json:"end_reason,omitempty"`
}

// New returns a CallState in its initial pre_verification phase.
func New() CallState {
	return CallState{Phase: PhasePreVerification}
}
