// Package dialog implements the per-call conversation state machine: it
// turns one TurnEvent plus the current CallState into assistant text, a
// list of host actions, and the next CallState. It never performs I/O, ASR,
// or TTS; it is a pure function of its inputs.
package dialog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/calltypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/datenorm"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/intent"
)

// EventType enumerates the kinds of turn a caller can submit.
type EventType string

const (
	EventUserUtterance EventType = "user_utterance"
	EventSilence       EventType = "silence"
	EventSystemEvent   EventType = "system_event"
)

// TurnEvent is one unit of conversational input.
type TurnEvent struct {
	EventType        EventType `json:"event_type" validate:"required,oneof=user_utterance silence system_event"`
	Transcript       string    `json:"transcript,omitempty"`
	TimestampUTC     time.Time `json:"timestamp_utc" validate:"required"`
	CurrentLocalDate string    `json:"current_local_date" validate:"required"`
	CurrentLocalTime string    `json:"current_local_time" validate:"required"`
	Timezone         string    `json:"timezone" validate:"required"`
	Language         string    `json:"language" validate:"required"`
}

// Action is one instruction to the host system (telephony, CRM, logging).
type Action struct {
	Action string         `json:"action"`
	Fields map[string]any `json:"fields,omitempty"`
}

func act(name string, fields map[string]any) Action { return Action{Action: name, Fields: fields} }

// Result is the outcome of starting or advancing a call.
type Result struct {
	AssistantText   string                `json:"assistant_text"`
	AssistantIntent string                `json:"assistant_intent"`
	Actions         []Action              `json:"actions"`
	CallState       calltypes.CallState   `json:"call_state"`
	NLU             *intent.Classification `json:"nlu,omitempty"`
}

const (
	defaultMaxTotalTurns    = 25
	maxSilenceTurns         = 3
	maxReconductionAttempts = 2
	maxVerificationAttempts = 3
	maxClarificationAttempts = 1
	maxNegotiationProposals  = 2
)

const defaultDisclosureText = "This is Northstar Recovery; this is an attempt to collect a debt, and any information obtained will be used for that purpose."

// configLookup walks a nested map[string]any by path, returning nil if any
// segment is missing or not itself a map. Mirrors the _get helper policy
// configs are read through upstream.
func configLookup(m map[string]any, path ...string) any {
	var cur any = m
	for _, p := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = mm[p]
		if !ok {
			return nil
		}
	}
	return cur
}

func configInt(policyConfig map[string]any, def int, path ...string) int {
	switch n := configLookup(policyConfig, path...).(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}

func configString(policyConfig map[string]any, def string, path ...string) string {
	if s, ok := configLookup(policyConfig, path...).(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}

// StartCall opens a call: it asks the non-disclosing screening question.
func StartCall(state calltypes.CallState, partyProfile map[string]string) Result {
	state.TurnCount++
	targetName := partyProfile["target_name"]
	if targetName == "" {
		targetName = "the account holder"
	}
	text := fmt.Sprintf("Hello, I'm looking for %s. Is this them?", targetName)
	return wrapResponse(text, "request_target", nil, state)
}

// HandleTurn advances the call by one turn.
func HandleTurn(
	event TurnEvent,
	state calltypes.CallState,
	partyProfile map[string]string,
	accountContext map[string]any,
	policyConfig map[string]any,
) Result {
	if state.Phase == calltypes.PhaseEnded {
		return wrapResponse("", "already_closed", nil, state)
	}

	state.TurnCount++
	maxTotalTurns := configInt(policyConfig, defaultMaxTotalTurns, "limits", "max_total_turns")
	if state.TurnCount >= maxTotalTurns {
		return endWithLimit(state)
	}

	transcript := strings.TrimSpace(event.Transcript)
	if event.EventType == EventSilence || transcript == "" {
		return handleSilence(state)
	}

	classification := intent.Classify(transcript)
	if !intent.IsLowConfidenceUnknown(classification, 0.45) {
		state.ClarificationAttempts = 0
	}

	// Universal guards, in priority order.
	if classification.Matches(intent.IntentStopRequest, 0.5) {
		return closeCall(state, "cease_contact", "Understood, I'll remove this number from our call list. Goodbye.", &classification)
	}
	if classification.Matches(intent.IntentGoodbye, 0.5) {
		return closeCall(state, "user_ended", "Thanks for your time. Goodbye.", &classification)
	}
	if classification.Matches(intent.IntentHumanHandoff, 0.5) {
		return escalateAndEnd(state, "user_requested_human", "Caller requested a human representative.", &classification)
	}

	switch state.Phase {
	case calltypes.PhasePreVerification:
		return handlePreVerification(event, state, partyProfile, classification)
	case calltypes.PhaseVerification:
		return handleVerification(event, state, accountContext, policyConfig, classification)
	case calltypes.PhasePostVerification:
		return handleNegotiation(event, state, accountContext, policyConfig, classification)
	default:
		return endWithLimit(state)
	}
}

func handlePreVerification(event TurnEvent, state calltypes.CallState, partyProfile map[string]string, c intent.Classification) Result {
	targetName := partyProfile["target_name"]
	if targetName == "" {
		targetName = "the account holder"
	}

	switch {
	case c.Matches(intent.IntentWrongParty, 0.5):
		return closeCall(state, "wrong_party", "My apologies for the inconvenience, I'll update our records. Goodbye.", &c)
	case c.Matches(intent.IntentIdentityQuestion, 0.5):
		text := "I'm calling on behalf of an account services team, I just need to confirm I'm speaking with the right person first."
		return wrapResponse(text, "identity_question_response", nil, state, &c)
	case c.Matches(intent.IntentAffirmation, 0.5):
		state.Phase = calltypes.PhaseVerification
		state.TargetReached = true
		return askVerificationQuestion(state, event.Transcript, &c)
	}

	if intent.IsLowConfidenceUnknown(c, 0.45) {
		return handleLowConfidence(state, &c)
	}

	text := fmt.Sprintf("I'm sorry, I didn't catch that. Am I speaking with %s?", targetName)
	return wrapResponse(text, "request_target", nil, state, &c)
}

var zipRe = regexp.MustCompile(`\b(\d{5})\b`)
var digitRe = regexp.MustCompile(`\d`)

var spokenDigits = map[string]string{
	"zero": "0", "oh": "0", "o": "0",
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9",
}

func extractZIP(text string) (string, bool) {
	norm := strings.ToLower(text)

	if m := zipRe.FindStringSubmatch(norm); m != nil {
		return m[1], true
	}

	if digits := digitRe.FindAllString(norm, -1); len(digits) >= 5 {
		return strings.Join(digits[:5], ""), true
	}

	tokens := strings.Fields(strings.Trim(norm, " .,!?"))
	var spoken []string
	for _, tok := range tokens {
		if d, ok := spokenDigits[strings.Trim(tok, ".,!?")]; ok {
			spoken = append(spoken, d)
			if len(spoken) == 5 {
				return strings.Join(spoken, ""), true
			}
		}
	}

	if n, ok := extractNumberFromWords(norm); ok && n >= 10000 && n <= 99999 {
		return strconv.Itoa(n), true
	}

	return "", false
}

var units = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
	"thirteen": 13, "fourteen": 14, "fifteen": 15, "sixteen": 16,
	"seventeen": 17, "eighteen": 18, "nineteen": 19,
}

var tens = map[string]int{
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50, "sixty": 60,
	"seventy": 70, "eighty": 80, "ninety": 90,
}

func extractNumberFromWords(text string) (int, bool) {
	tokens := strings.Fields(strings.Trim(text, " .,!?"))
	current := 0
	total := 0
	seen := false

	for _, tok := range tokens {
		tok = strings.Trim(tok, ".,!?")
		switch {
		case tok == "and":
			continue
		case tok == "hundred":
			if current == 0 {
				current = 1
			}
			current *= 100
			seen = true
		case tok == "thousand":
			if current == 0 {
				current = 1
			}
			total += current * 1000
			current = 0
			seen = true
		default:
			if v, ok := units[tok]; ok {
				current += v
				seen = true
				continue
			}
			if v, ok := tens[tok]; ok {
				current += v
				seen = true
				continue
			}
			if seen {
				return total + current, true
			}
		}
	}

	if !seen {
		return 0, false
	}
	return total + current, true
}

func handleVerification(event TurnEvent, state calltypes.CallState, accountContext map[string]any, policyConfig map[string]any, c intent.Classification) Result {
	expectedZIP, _ := accountContext["zip_code"].(string)

	switch {
	case c.Matches(intent.IntentUncomfortable, 0.5), c.Matches(intent.IntentNegation, 0.5):
		state.ReconductionAttempts++
		if state.ReconductionAttempts > maxReconductionAttempts {
			return closeCall(state, "verification_refused", "No problem, I understand. I'll note that and we'll follow up another way. Goodbye.", &c)
		}
		text := "I understand the hesitation. Would it help if I called back at a better time?"
		return wrapResponse(text, "offer_callback", nil, state, &c)
	case c.Matches(intent.IntentIdentityQuestion, 0.5):
		text := "This is just to protect your privacy, so we only share account details with the right person. Can you confirm the ZIP code on the account?"
		return wrapResponse(text, "verification_privacy_explanation", nil, state, &c)
	}

	zip, extracted := extractZIP(event.Transcript)
	if extracted {
		if expectedZIP != "" && zip == expectedZIP {
			state.Verified = true
			state.Phase = calltypes.PhasePostVerification
			return deliverDisclosureAndStartNegotiation(state, policyConfig)
		}
		state.VerificationAttempts++
		if state.VerificationAttempts >= maxVerificationAttempts {
			return closeCall(state, "verification_failed", "I'm not able to verify your identity at this time. I'll try again another time. Goodbye.", &c)
		}
		text := "That doesn't match what I have on file. Could you repeat the ZIP code on the account?"
		return wrapResponse(text, "verification_retry", nil, state, &c)
	}

	if intent.IsLowConfidenceUnknown(c, 0.45) {
		return handleLowConfidence(state, &c)
	}

	state.VerificationAttempts++
	if state.VerificationAttempts >= maxVerificationAttempts {
		return closeCall(state, "verification_failed", "I'm not able to verify your identity at this time. I'll try again another time. Goodbye.", &c)
	}
	text := "Sorry, could you tell me the ZIP code on the account?"
	return wrapResponse(text, "verification_retry", nil, state, &c)
}

func handleNegotiation(event TurnEvent, state calltypes.CallState, accountContext map[string]any, policyConfig map[string]any, c intent.Classification) Result {
	switch {
	case c.Matches(intent.IntentDispute, 0.5):
		return escalateAndEnd(state, "dispute", "Caller disputes the debt.", &c)
	case c.Matches(intent.IntentRefusal, 0.5):
		state.NegotiationProposalsCount++
		if state.NegotiationProposalsCount >= maxNegotiationProposals {
			return escalateAndEnd(state, "hard_refusal", "Caller refused to make a payment after repeated proposals.", &c)
		}
		text := "I understand. Would a partial payment of $120 by the 25th work better for you?"
		return wrapResponse(text, "propose_partial_payment", nil, state, &c)
	case c.Matches(intent.IntentUncertain, 0.5):
		text := "That's alright, many people in this situation start with a smaller payment. Would the 25th of this month work?"
		return wrapResponse(text, "offer_suggestion", nil, state, &c)
	case c.Matches(intent.IntentBusy, 0.5):
		return closeCall(state, "busy", "No problem, I'll reach out another time. Goodbye.", &c)
	}

	transcript := strings.TrimSpace(event.Transcript)
	lower := strings.ToLower(transcript)

	if isTodayPaymentPrompt(lower) && state.LastAssistantIntent == "deliver_disclosure" {
		if looksLikeAffirmativeTodayResponse(lower) {
			amount := getAmountDue(accountContext)
			return confirmPTP(state, event.CurrentLocalDate, amount)
		}
	}

	if state.LastAssistantIntent == "confirm_payment_date" && state.LastProposedPaymentDate != "" {
		if looksLikeAffirmativeTodayResponse(lower) {
			amount := getAmountDue(accountContext)
			return confirmPTP(state, state.LastProposedPaymentDate, amount)
		}
	}

	norm := datenorm.Normalize(transcript, event.CurrentLocalDate, event.CurrentLocalTime, event.Timezone, event.Language)
	if norm.OK {
		if !isWithinCurrentMonth(norm.DateLocal, event.CurrentLocalDate) {
			lastDay, err := datenorm.LastDayOfMonthString(event.CurrentLocalDate)
			if err == nil {
				text := fmt.Sprintf("That date is further out than I can offer. Could we find a day by %s instead?", lastDay)
				return wrapResponse(text, "negotiation_out_of_range", nil, state, &c)
			}
		}
		if norm.NeedsConfirmation {
			state.LastProposedPaymentDate = norm.DateLocal
			formatted := formatISODateForVoice(norm.DateLocal)
			text := fmt.Sprintf("Just to confirm, that's %s?", formatted)
			return wrapResponse(text, "confirm_payment_date", nil, state, &c)
		}
		amount := getAmountDue(accountContext)
		return confirmPTP(state, norm.DateLocal, amount)
	}

	if isExactDateRequestPrompt(lower) {
		lastDay, err := datenorm.LastDayOfMonthString(event.CurrentLocalDate)
		if err == nil {
			text := fmt.Sprintf("Any day works, as long as it's by %s. What date would you like?", lastDay)
			return wrapResponse(text, "request_exact_date", nil, state, &c)
		}
	}

	if c.Matches(intent.IntentNegation, 0.5) {
		state.NegotiationProposalsCount++
		if state.NegotiationProposalsCount >= maxNegotiationProposals {
			return escalateAndEnd(state, "multiple_refusals", "Caller refused to make a payment after repeated proposals.", &c)
		}
		text := "I hear you. If a full payment isn't possible, can you do a partial payment of $120.00 by the 25th of this month?"
		return wrapResponse(text, "negotiation_followup", nil, state, &c)
	}

	text := "When would you be able to make a payment?"
	return wrapResponse(text, "negotiation_followup", nil, state, &c)
}

func isWithinCurrentMonth(dateLocal, currentLocalDate string) bool {
	d, err1 := time.Parse("2006-01-02", dateLocal)
	today, err2 := time.Parse("2006-01-02", currentLocalDate)
	if err1 != nil || err2 != nil {
		return true
	}
	return d.Year() == today.Year() && d.Month() == today.Month()
}

func isTodayPaymentPrompt(lower string) bool {
	if !strings.Contains(lower, "today") {
		return false
	}
	for _, kw := range []string{"take care", "pay", "balance"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func isExactDateRequestPrompt(lower string) bool {
	return strings.Contains(lower, "find a day before the end of the month") ||
		strings.Contains(lower, "what date before the end of the month")
}

var negativeMarkers = []string{"no", "not", "can't", "cannot", "don't", "do not", "won't"}
var affirmativeMarkers = []string{"yes", "yeah", "yep", "sure", "i can", "can do", "take care", "pay today"}

func looksLikeAffirmativeTodayResponse(lower string) bool {
	for _, neg := range negativeMarkers {
		if strings.Contains(lower, neg) {
			return false
		}
	}
	for _, aff := range affirmativeMarkers {
		if strings.Contains(lower, aff) {
			return true
		}
	}
	return false
}

func getAmountDue(accountContext map[string]any) string {
	v, ok := accountContext["amount_due"]
	if !ok {
		return "0.00"
	}
	switch n := v.(type) {
	case float64:
		return fmt.Sprintf("%.2f", n)
	case int:
		return fmt.Sprintf("%.2f", float64(n))
	case string:
		if f, err := strconv.ParseFloat(n, 64); err == nil {
			return fmt.Sprintf("%.2f", f)
		}
		return n
	default:
		return "0.00"
	}
}

func confirmPTP(state calltypes.CallState, dateStr, amount string) Result {
	d := dateStr
	a := amount
	state.PromiseToPay = calltypes.PromiseToPay{Date: &d, Amount: &a, Confirmed: true}
	state.Phase = calltypes.PhaseEnded
	state.EndReason = "ptp_set"

	actions := []Action{
		act("set_outcome", map[string]any{"outcome_code": "ptp_set"}),
		act("create_promise_to_pay", map[string]any{"date": dateStr, "amount": amount, "currency": "USD", "confirmed": true}),
		act("end_call", map[string]any{"reason": "ptp_set"}),
	}
	text := fmt.Sprintf("Thank you, I've confirmed a payment of $%s on %s. Have a good day.", amount, formatISODateForVoice(dateStr))
	return wrapResponse(text, "confirm_ptp", actions, state)
}

func deliverDisclosureAndStartNegotiation(state calltypes.CallState, policyConfig map[string]any) Result {
	disclosure := configString(policyConfig, defaultDisclosureText, "disclosures", "post_verification_disclosure_text")
	text := enforceVoiceFirst(disclosure)
	return wrapResponse(text, "deliver_disclosure", nil, state)
}

func closeCall(state calltypes.CallState, reason, text string, c *intent.Classification) Result {
	state.Phase = calltypes.PhaseEnded
	state.EndReason = reason
	actions := []Action{
		act("set_outcome", map[string]any{"outcome_code": reason}),
		act("end_call", map[string]any{"reason": reason}),
	}
	return wrapResponse(enforceVoiceFirst(text), "close_call", actions, state, c)
}

func escalateAndEnd(state calltypes.CallState, reasonCode, summary string, c *intent.Classification) Result {
	state.Phase = calltypes.PhaseEnded
	outcome := "escalated_" + reasonCode
	state.EndReason = outcome
	actions := []Action{
		act("set_outcome", map[string]any{"outcome_code": outcome}),
		act("escalate_to_human", map[string]any{"reason_code": reasonCode, "summary": summary}),
		act("end_call", map[string]any{"reason": reasonCode}),
	}
	text := "I'll connect you with someone who can help further. Please hold."
	return wrapResponse(enforceVoiceFirst(text), "escalate", actions, state, c)
}

func handleLowConfidence(state calltypes.CallState, c *intent.Classification) Result {
	state.ClarificationAttempts++
	if state.ClarificationAttempts > maxClarificationAttempts {
		return escalateAndEnd(state, "low_confidence", "Repeated low-confidence responses from caller.", c)
	}
	text := "Sorry, I didn't quite understand that. Could you say that again?"
	return wrapResponse(text, "clarify", nil, state, c)
}

func handleSilence(state calltypes.CallState) Result {
	state.SilenceCount++
	if state.SilenceCount >= maxSilenceTurns {
		return closeCall(state, "silence_timeout", "I'm not hearing a response, so I'll end the call here. Goodbye.", nil)
	}
	text := "Are you still there?"
	return wrapResponse(text, "silence_check", nil, state)
}

func endWithLimit(state calltypes.CallState) Result {
	state.Phase = calltypes.PhaseEnded
	state.EndReason = "max_turns"
	actions := []Action{
		act("set_outcome", map[string]any{"outcome_code": "max_turns"}),
		act("end_call", map[string]any{"reason": "max_turns"}),
	}
	text := "I've taken up enough of your time today. I'll follow up another time. Goodbye."
	return wrapResponse(enforceVoiceFirst(text), "close_call", actions, state)
}

func askVerificationQuestion(state calltypes.CallState, lastUtterance string, c *intent.Classification) Result {
	lower := strings.ToLower(lastUtterance)
	var text string
	if strings.Contains(lower, "what") || strings.Contains(lower, "why") || strings.Contains(lower, "who") {
		text = "Before we continue, can you confirm the ZIP code associated with the account?"
	} else {
		text = "Great, for security purposes, can you confirm the ZIP code on the account?"
	}
	return wrapResponse(text, "ask_verification", nil, state, c)
}

func formatISODateForVoice(dateLocal string) string {
	d, err := time.Parse("2006-01-02", dateLocal)
	if err != nil {
		return dateLocal
	}
	return d.Format("Monday, January 2")
}

// enforceVoiceFirst collapses whitespace, caps output at two sentences, and
// allows only the first question mark to survive (later ones become periods)
// so synthesized speech never asks more than one question in a turn.
func enforceVoiceFirst(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	sentences := splitSentencesPreservingDecimals(collapsed)
	if len(sentences) > 2 {
		sentences = sentences[:2]
	}

	seenQuestion := false
	for i, s := range sentences {
		if strings.HasSuffix(s, "?") {
			if seenQuestion {
				sentences[i] = strings.TrimSuffix(s, "?") + "."
			}
			seenQuestion = true
		}
	}
	return strings.Join(sentences, " ")
}

// splitSentencesPreservingDecimals splits on sentence-ending punctuation
// without breaking apart a decimal number like "120.00".
func splitSentencesPreservingDecimals(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			prevDigit := i > 0 && runes[i-1] >= '0' && runes[i-1] <= '9'
			nextDigit := i+1 < len(runes) && runes[i+1] >= '0' && runes[i+1] <= '9'
			if r == '.' && prevDigit && nextDigit {
				continue
			}
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if strings.TrimSpace(current.String()) != "" {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}
	return sentences
}

func wrapResponse(text, assistantIntent string, actions []Action, state calltypes.CallState, c ...*intent.Classification) Result {
	if strings.Contains(text, "?") {
		state.LastAssistantQuestion = text
	}
	state.LastAssistantIntent = assistantIntent
	voiced := enforceVoiceFirst(text)

	var nlu *intent.Classification
	if len(c) > 0 {
		nlu = c[0]
	}

	return Result{
		AssistantText:   voiced,
		AssistantIntent: assistantIntent,
		Actions:         actions,
		CallState:       state,
		NLU:             nlu,
	}
}
