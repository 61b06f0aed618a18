package module

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
)

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "invalid request body")
	}
	return nil
}

func chiURLParam(r *http.Request, key string) string {
	return chi.URLParam(r, key)
}

type enqueueRequest struct {
	TriggerSource          string            `json:"trigger_source"`
	CampaignID             string            `json:"campaign_id"`
	AccountRef             string            `json:"account_ref"`
	PartyProfile           map[string]string `json:"party_profile"`
	AccountContextRef      string            `json:"account_context_ref"`
	Language               string            `json:"language"`
	DNC                    bool              `json:"dnc"`
	CeaseContact           bool              `json:"cease_contact"`
	LegalHold              bool              `json:"legal_hold"`
	Timezone               string            `json:"timezone"`
	AllowedLocalTimeRanges []string          `json:"allowed_local_time_ranges"`
	DailyAttemptCap        int               `json:"daily_attempt_cap"`
	MinGapMinutes          int               `json:"min_gap_minutes"`
	ScheduledForUTC        *time.Time        `json:"scheduled_for_utc"`
	Priority               int               `json:"priority"`
	MaxAttempts            int               `json:"max_attempts"`
	BaseDelaySeconds       int               `json:"base_delay_seconds"`
	MaxDelaySeconds        int               `json:"max_delay_seconds"`
}

func (req enqueueRequest) toArgs() domain.EnqueueArgs {
	trigger := jobtypes.TriggerManual
	if req.TriggerSource != "" {
		trigger = jobtypes.TriggerSource(req.TriggerSource)
	}
	language := req.Language
	if language == "" {
		language = "en-US"
	}
	timezone := req.Timezone
	if timezone == "" {
		timezone = "America/Chicago"
	}
	ranges := req.AllowedLocalTimeRanges
	if len(ranges) == 0 {
		ranges = []string{"08:00-20:00"}
	}
	dailyCap := req.DailyAttemptCap
	if dailyCap == 0 {
		dailyCap = 2
	}
	minGap := req.MinGapMinutes
	if minGap == 0 {
		minGap = 60
	}
	priority := req.Priority
	if priority == 0 {
		priority = 100
	}
	maxAttempts := req.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	baseDelay := req.BaseDelaySeconds
	if baseDelay == 0 {
		baseDelay = 120
	}
	maxDelay := req.MaxDelaySeconds
	if maxDelay == 0 {
		maxDelay = 3600
	}

	return domain.EnqueueArgs{
		TriggerSource: trigger,
		CampaignID:    req.CampaignID,
		Payload: jobtypes.OutboundCallPayload{
			AccountRef:        req.AccountRef,
			PartyProfile:      req.PartyProfile,
			AccountContextRef: req.AccountContextRef,
			Language:          language,
			SuppressionFlags: jobtypes.SuppressionFlags{
				DNC:          req.DNC,
				CeaseContact: req.CeaseContact,
				LegalHold:    req.LegalHold,
			},
		},
		Policy: jobtypes.CallPolicySnapshot{
			Timezone:               timezone,
			AllowedLocalTimeRanges: ranges,
			DailyAttemptCap:        dailyCap,
			MinGapMinutes:          minGap,
		},
		RetryPolicy: jobtypes.RetryPolicy{
			MaxAttempts:      maxAttempts,
			BaseDelaySeconds: baseDelay,
			MaxDelaySeconds:  maxDelay,
		},
		ScheduledForUTC: req.ScheduledForUTC,
		Priority:        priority,
	}
}

type leaseRequest struct {
	WorkerID     string `json:"worker_id"`
	LeaseSeconds int    `json:"lease_seconds"`
}

type completeRequest struct {
	OutcomeCode string  `json:"outcome_code"`
	CallID      *string `json:"call_id"`
}

type failRequest struct {
	ErrorCode string  `json:"error_code"`
	CallID    *string `json:"call_id"`
}

type cancelRequest struct {
	ReasonCode string `json:"reason_code"`
}
