// Package domain defines the Attempt Ledger's ports and record types.
package domain

import (
	"context"
	"time"
)

// Event is one recorded contact attempt decision for an account.
type Event struct {
	AccountRef         string    `json:"account_ref"`
	DecisionCode        string   `json:"decision_code"`
	CountsTowardAttempt bool     `json:"counts_toward_attempt"`
	JobID               *string  `json:"job_id,omitempty"`
	CallID               *string `json:"call_id,omitempty"`
	RecordedAtUTC        time.Time `json:"recorded_at_utc"`
}

// AppendArgs holds the parameters needed to append an event.
type AppendArgs struct {
	AccountRef          string
	DecisionCode        string
	CountsTowardAttempt bool
	JobID               *string
	CallID              *string
	RecordedAtUTC       *time.Time
}

// Repo is the Attempt Ledger's persistence contract.
type Repo interface {
	AppendEvent(ctx context.Context, args AppendArgs) (Event, error)
	ListEvents(ctx context.Context, accountRef string) ([]Event, error)
	ListRecentEvents(ctx context.Context, limit int) ([]Event, error)
	CountAttemptsForLocalDay(ctx context.Context, accountRef, timezone, localDayISO string) (int, error)
	GetLastCountedAttemptAtUTC(ctx context.Context, accountRef string) (time.Time, bool, error)
}
