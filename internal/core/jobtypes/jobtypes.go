// Package jobtypes defines the outbound call job record, its enums, and the
// pure helpers (idempotency key, retry delay) that do not depend on storage.
package jobtypes

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TriggerSource identifies what caused a job to be enqueued.
type TriggerSource string

const (
	TriggerCron    TriggerSource = "cron"
	TriggerWebhook TriggerSource = "webhook"
	TriggerManual  TriggerSource = "manual"
)

// State is a job's position in its lifecycle.
type State string

const (
	StateQueued      State = "queued"
	StateLeased      State = "leased"
	StateRunning     State = "running"
	StateWaitingRetry State = "waiting_retry"
	StateSucceeded   State = "succeeded"
	StateFailed      State = "failed"
	StateDeadLetter  State = "dead_letter"
	StateCanceled    State = "canceled"
)

// Event drives state transitions via the state machine.
type Event string

const (
	EventLease           Event = "lease"
	EventStart           Event = "start"
	EventCallSucceeded   Event = "call_succeeded"
	EventCallFailed      Event = "call_failed"
	EventScheduleRetry   Event = "schedule_retry"
	EventRetryReady      Event = "retry_ready"
	EventExhaustRetries  Event = "exhaust_retries"
	EventCancel          Event = "cancel"
)

// RetryPolicy controls backoff between failed attempts.
type RetryPolicy struct {
	MaxAttempts      int `json:"max_attempts"`
	BaseDelaySeconds int `json:"base_delay_seconds"`
	MaxDelaySeconds  int `json:"max_delay_seconds"`
}

// DefaultRetryPolicy mirrors the original dataclass defaults.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelaySeconds: 120, MaxDelaySeconds: 3600}
}

// CallPolicySnapshot is the compliance policy frozen into a job at enqueue time.
type CallPolicySnapshot struct {
	Timezone               string   `json:"timezone"`
	AllowedLocalTimeRanges []string `json:"allowed_local_time_ranges"`
	DailyAttemptCap        int      `json:"daily_attempt_cap"`
	MinGapMinutes          int      `json:"min_gap_minutes"`
}

// SuppressionFlags carries the dnc/cease_contact/legal_hold trio.
type SuppressionFlags struct {
	DNC          bool `json:"dnc"`
	CeaseContact bool `json:"cease_contact"`
	LegalHold    bool `json:"legal_hold"`
}

// OutboundCallPayload is the immutable contact payload attached to a job.
type OutboundCallPayload struct {
	AccountRef       string            `json:"account_ref"`
	PartyProfile     map[string]string `json:"party_profile"`
	AccountContextRef string           `json:"account_context_ref"`
	Language         string            `json:"language"`
	SuppressionFlags SuppressionFlags  `json:"suppression_flags"`
}

// Attempt records one dial attempt against a job.
type Attempt struct {
	AttemptNumber int        `json:"attempt_number"`
	StartedAtUTC  time.Time  `json:"started_at_utc"`
	EndedAtUTC    *time.Time `json:"ended_at_utc,omitempty"`
	OutcomeCode   *string    `json:"outcome_code,omitempty"`
	ErrorCode     *string    `json:"error_code,omitempty"`
	CallID        *string    `json:"call_id,omitempty"`
}

// Job is the full persisted job record.
type Job struct {
	JobID             string               `json:"job_id"`
	IdempotencyKey    string               `json:"idempotency_key"`
	TriggerSource     TriggerSource        `json:"trigger_source"`
	CampaignID        string               `json:"campaign_id"`
	Payload           OutboundCallPayload  `json:"payload"`
	Policy            CallPolicySnapshot   `json:"policy"`
	RetryPolicy       RetryPolicy          `json:"retry_policy"`
	Priority          int                  `json:"priority"`
	State             State                `json:"state"`
	CreatedAtUTC      time.Time            `json:"created_at_utc"`
	ScheduledForUTC   time.Time            `json:"scheduled_for_utc"`
	NextAttemptAtUTC  *time.Time           `json:"next_attempt_at_utc,omitempty"`
	LeaseOwner        *string              `json:"lease_owner,omitempty"`
	LeaseExpiresAtUTC *time.Time           `json:"lease_expires_at_utc,omitempty"`
	Attempts          []Attempt            `json:"attempts"`
	FailureReason     *string              `json:"failure_reason,omitempty"`
}

// IsTerminal reports whether the job's state is one it cannot leave.
func (j *Job) IsTerminal() bool {
	switch j.State {
	case StateSucceeded, StateDeadLetter, StateCanceled:
		return true
	default:
		return false
	}
}

// CanAttemptAgain reports whether another attempt is allowed under the retry policy.
func (j *Job) CanAttemptAgain() bool {
	return len(j.Attempts) < j.RetryPolicy.MaxAttempts
}

// BuildIdempotencyKey derives a stable idempotency key from the tuple that defines a
// unique scheduled contact: campaign, account, and scheduled time.
func BuildIdempotencyKey(campaignID, accountRef, scheduledForUTC string) string {
	sum := sha256.Sum256([]byte(campaignID + "|" + accountRef + "|" + scheduledForUTC))
	return "job_" + hex.EncodeToString(sum[:])[:24]
}

// ComputeRetryDelaySeconds computes exponential backoff with a hard ceiling;
// deterministic, no jitter.
func ComputeRetryDelaySeconds(attemptNumber, baseDelaySeconds, maxDelaySeconds int) int {
	exp := attemptNumber - 1
	if exp < 0 {
		exp = 0
	}
	delay := baseDelaySeconds
	for i := 0; i < exp; i++ {
		delay *= 2
		if delay >= maxDelaySeconds {
			delay = maxDelaySeconds
			break
		}
	}
	if delay > maxDelaySeconds {
		delay = maxDelaySeconds
	}
	return delay
}

// NewJobID formats a job identifier from the given hex string; it generates
// no randomness itself.
func NewJobID(hex32 string) string {
	return fmt.Sprintf("job_%s", hex32)
}
