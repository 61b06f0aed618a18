// Package domain defines the Job Store's ports and argument types.
package domain

import (
	"context"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
)

// EnqueueArgs holds the parameters needed to enqueue (or idempotently reuse)
// an outbound call job.
type EnqueueArgs struct {
	TriggerSource    jobtypes.TriggerSource
	CampaignID       string
	Payload          jobtypes.OutboundCallPayload
	Policy           jobtypes.CallPolicySnapshot
	RetryPolicy      jobtypes.RetryPolicy
	ScheduledForUTC  *time.Time
	Priority         int
}

// ListFilter narrows ListJobs results.
type ListFilter struct {
	State      *jobtypes.State
	CampaignID string
	Limit      int
}

// Repo is the Job Store's persistence contract.
type Repo interface {
	EnqueueJob(ctx context.Context, args EnqueueArgs) (job jobtypes.Job, created bool, err error)
	GetJob(ctx context.Context, jobID string) (jobtypes.Job, error)
	ListJobs(ctx context.Context, filter ListFilter) ([]jobtypes.Job, error)
	RequeueDueRetries(ctx context.Context, now time.Time) (int, error)
	LeaseNextDueJob(ctx context.Context, workerID string, leaseSeconds int, now time.Time) (*jobtypes.Job, error)
	MarkJobStarted(ctx context.Context, jobID string, now time.Time) (jobtypes.Job, error)
	DeferLeasedJob(ctx context.Context, jobID, reasonCode string, delaySeconds int, now time.Time) (jobtypes.Job, error)
	CancelJob(ctx context.Context, jobID, reasonCode string) (jobtypes.Job, error)
	MarkJobSucceeded(ctx context.Context, jobID, outcomeCode string, callID *string) (jobtypes.Job, error)
	MarkJobFailed(ctx context.Context, jobID, errorCode string, callID *string) (jobtypes.Job, error)
}
