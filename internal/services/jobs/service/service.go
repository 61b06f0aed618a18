// Package service implements the Job Store's operation surface over a
// domain.Repo, adding input validation at the boundary.
package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
)

var validate = validator.New()

// Config holds the default lease and poll durations, in seconds; the lease
// default applies when a lease request does not specify one.
type Config struct {
	DefaultLeaseSeconds int
	DefaultPollSeconds  int
}

// DefaultConfig mirrors the original system's defaults.
func DefaultConfig() Config {
	return Config{DefaultLeaseSeconds: 90, DefaultPollSeconds: 5}
}

// Service is the Job Store's operation surface.
type Service struct {
	repo domain.Repo
	cfg  Config
}

// New builds a Service over repo.
func New(repo domain.Repo, cfg Config) *Service {
	return &Service{repo: repo, cfg: cfg}
}

type enqueueInput struct {
	CampaignID       string `validate:"required"`
	AccountRef       string `validate:"required"`
	AccountContextRef string `validate:"required"`
}

// EnqueueJob validates required fields then delegates to the repo's
// idempotent enqueue.
func (s *Service) EnqueueJob(ctx context.Context, args domain.EnqueueArgs) (jobtypes.Job, bool, error) {
	in := enqueueInput{
		CampaignID:        args.CampaignID,
		AccountRef:        args.Payload.AccountRef,
		AccountContextRef: args.Payload.AccountContextRef,
	}
	if err := validate.Struct(in); err != nil {
		return jobtypes.Job{}, false, perr.Wrap(err, perr.ErrorCodeValidation, "invalid enqueue request")
	}
	if args.RetryPolicy == (jobtypes.RetryPolicy{}) {
		args.RetryPolicy = jobtypes.DefaultRetryPolicy()
	}
	return s.repo.EnqueueJob(ctx, args)
}

// GetJob returns one job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (jobtypes.Job, error) {
	return s.repo.GetJob(ctx, jobID)
}

// ListJobs lists jobs matching a filter.
func (s *Service) ListJobs(ctx context.Context, filter domain.ListFilter) ([]jobtypes.Job, error) {
	return s.repo.ListJobs(ctx, filter)
}

// LeaseNextDueJob promotes due retries then leases the next due job.
func (s *Service) LeaseNextDueJob(ctx context.Context, workerID string, leaseSeconds int) (*jobtypes.Job, error) {
	if leaseSeconds <= 0 {
		leaseSeconds = s.cfg.DefaultLeaseSeconds
	}
	return s.repo.LeaseNextDueJob(ctx, workerID, leaseSeconds, time.Now().UTC())
}

// StartJobAttempt transitions a leased job to running.
func (s *Service) StartJobAttempt(ctx context.Context, jobID string) (jobtypes.Job, error) {
	return s.repo.MarkJobStarted(ctx, jobID, time.Now().UTC())
}

// DeferJob moves a leased job back to waiting_retry after delaySeconds,
// recording reasonCode (typically a compliance-gate block reason).
func (s *Service) DeferJob(ctx context.Context, jobID, reasonCode string, delaySeconds int) (jobtypes.Job, error) {
	return s.repo.DeferLeasedJob(ctx, jobID, reasonCode, delaySeconds, time.Now().UTC())
}

// CancelJob cancels a cancelable job, recording reasonCode.
func (s *Service) CancelJob(ctx context.Context, jobID, reasonCode string) (jobtypes.Job, error) {
	return s.repo.CancelJob(ctx, jobID, reasonCode)
}

// CompleteJob marks a job succeeded with the given outcome code.
func (s *Service) CompleteJob(ctx context.Context, jobID, outcomeCode string, callID *string) (jobtypes.Job, error) {
	if outcomeCode == "" {
		return jobtypes.Job{}, perr.Validationf("outcome_code is required")
	}
	return s.repo.MarkJobSucceeded(ctx, jobID, outcomeCode, callID)
}

// FailJob marks a job failed with the given error code, scheduling a retry
// or moving it to dead_letter per the retry policy.
func (s *Service) FailJob(ctx context.Context, jobID, errorCode string, callID *string) (jobtypes.Job, error) {
	if errorCode == "" {
		return jobtypes.Job{}, perr.Validationf("error_code is required")
	}
	return s.repo.MarkJobFailed(ctx, jobID, errorCode, callID)
}

// RequeueDueRetries promotes waiting_retry jobs that are now due.
func (s *Service) RequeueDueRetries(ctx context.Context) (int, error) {
	return s.repo.RequeueDueRetries(ctx, time.Now().UTC())
}
