package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/repo"
)

func newRepo(t *testing.T) *repo.FileRepo {
	t.Helper()
	r, err := repo.New(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error opening repo: %v", err)
	}
	return r
}

func baseArgs() domain.EnqueueArgs {
	return domain.EnqueueArgs{
		TriggerSource: jobtypes.TriggerCron,
		CampaignID:    "camp1",
		Payload:       jobtypes.OutboundCallPayload{AccountRef: "acct1"},
		Policy:        jobtypes.CallPolicySnapshot{Timezone: "America/Chicago"},
		RetryPolicy:   jobtypes.RetryPolicy{MaxAttempts: 2, BaseDelaySeconds: 60, MaxDelaySeconds: 600},
	}
}

func TestEnqueueJobIsIdempotentByScheduledTime(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	scheduled := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	args := baseArgs()
	args.ScheduledForUTC = &scheduled

	first, created1, err := r.EnqueueJob(ctx, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created1 {
		t.Fatal("expected first enqueue to create a new job")
	}

	second, created2, err := r.EnqueueJob(ctx, args)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created2 {
		t.Fatal("expected second enqueue with same key to reuse the existing job")
	}
	if second.JobID != first.JobID {
		t.Fatalf("expected same job id, got %q and %q", first.JobID, second.JobID)
	}
}

func TestEnqueueJobDiffersByScheduledTime(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	t1 := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	t2 := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	args1 := baseArgs()
	args1.ScheduledForUTC = &t1
	args2 := baseArgs()
	args2.ScheduledForUTC = &t2

	first, _, _ := r.EnqueueJob(ctx, args1)
	second, created2, _ := r.EnqueueJob(ctx, args2)
	if !created2 {
		t.Fatal("expected different scheduled time to create a distinct job")
	}
	if first.JobID == second.JobID {
		t.Fatal("expected distinct job ids")
	}
}

func TestLeaseNextDueJobLeasesHighestPriorityFirst(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	low := baseArgs()
	low.Priority = 5
	low.Payload.AccountRef = "low"
	low.ScheduledForUTC = &now
	high := baseArgs()
	high.Priority = 1
	high.Payload.AccountRef = "high"
	high.ScheduledForUTC = &now

	r.EnqueueJob(ctx, low)
	r.EnqueueJob(ctx, high)

	leased, err := r.LeaseNextDueJob(ctx, "worker-1", 60, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leased == nil {
		t.Fatal("expected a job to be leased")
	}
	if leased.Payload.AccountRef != "high" {
		t.Fatalf("expected higher-priority job to be leased first, got %q", leased.Payload.AccountRef)
	}
	if leased.State != jobtypes.StateLeased {
		t.Fatalf("expected state leased, got %q", leased.State)
	}
	if leased.LeaseOwner == nil || *leased.LeaseOwner != "worker-1" {
		t.Fatalf("expected lease owner worker-1, got %v", leased.LeaseOwner)
	}
}

func TestLeaseNextDueJobReturnsNilWhenNothingDue(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	future := now.Add(time.Hour)

	args := baseArgs()
	args.ScheduledForUTC = &future
	r.EnqueueJob(ctx, args)

	leased, err := r.LeaseNextDueJob(ctx, "worker-1", 60, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leased != nil {
		t.Fatal("expected no job to be due yet")
	}
}

func TestDeferLeasedJobRequiresLeasedState(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	job, _, _ := r.EnqueueJob(ctx, baseArgs())
	_, err := r.DeferLeasedJob(ctx, job.JobID, "blocked_policy_outside_window", 900, now)
	if err == nil {
		t.Fatal("expected error deferring a job that was never leased")
	}
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("expected conflict error code, got %v", perr.CodeOf(err))
	}
}

func TestDeferLeasedJobSchedulesRetryWithGivenReasonAndDelay(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	args := baseArgs()
	args.ScheduledForUTC = &now
	r.EnqueueJob(ctx, args)
	leased, _ := r.LeaseNextDueJob(ctx, "worker-1", 60, now)

	deferred, err := r.DeferLeasedJob(ctx, leased.JobID, "blocked_policy_outside_window", 900, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deferred.State != jobtypes.StateWaitingRetry {
		t.Fatalf("expected waiting_retry state, got %q", deferred.State)
	}
	if deferred.FailureReason == nil || *deferred.FailureReason != "blocked_policy_outside_window" {
		t.Fatalf("expected failure reason recorded, got %v", deferred.FailureReason)
	}
	if deferred.NextAttemptAtUTC == nil || !deferred.NextAttemptAtUTC.Equal(now.Add(900*time.Second)) {
		t.Fatalf("expected next attempt at now+900s, got %v", deferred.NextAttemptAtUTC)
	}
	if deferred.LeaseOwner != nil {
		t.Fatal("expected lease owner cleared on defer")
	}
}

func TestCancelJobRecordsReasonAndClearsLease(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	args := baseArgs()
	args.ScheduledForUTC = &now
	r.EnqueueJob(ctx, args)
	leased, _ := r.LeaseNextDueJob(ctx, "worker-1", 60, now)

	canceled, err := r.CancelJob(ctx, leased.JobID, "blocked_suppression_dnc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if canceled.State != jobtypes.StateCanceled {
		t.Fatalf("expected canceled state, got %q", canceled.State)
	}
	if canceled.FailureReason == nil || *canceled.FailureReason != "blocked_suppression_dnc" {
		t.Fatalf("expected failure reason recorded, got %v", canceled.FailureReason)
	}
}

func TestMarkJobFailedExhaustsRetriesToDeadLetter(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	args := baseArgs()
	args.RetryPolicy = jobtypes.RetryPolicy{MaxAttempts: 1, BaseDelaySeconds: 60, MaxDelaySeconds: 600}
	args.ScheduledForUTC = &now
	r.EnqueueJob(ctx, args)
	leased, _ := r.LeaseNextDueJob(ctx, "worker-1", 60, now)
	if _, err := r.MarkJobStarted(ctx, leased.JobID, now); err != nil {
		t.Fatalf("unexpected error starting job: %v", err)
	}

	failed, err := r.MarkJobFailed(ctx, leased.JobID, "no_answer", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.State != jobtypes.StateDeadLetter {
		t.Fatalf("expected dead_letter after exhausting single-attempt retry budget, got %q", failed.State)
	}
}

func TestMarkJobFailedSchedulesRetryWhenBudgetRemains(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	args := baseArgs()
	args.RetryPolicy = jobtypes.RetryPolicy{MaxAttempts: 3, BaseDelaySeconds: 60, MaxDelaySeconds: 600}
	args.ScheduledForUTC = &now
	r.EnqueueJob(ctx, args)
	leased, _ := r.LeaseNextDueJob(ctx, "worker-1", 60, now)
	r.MarkJobStarted(ctx, leased.JobID, now)

	failed, err := r.MarkJobFailed(ctx, leased.JobID, "no_answer", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if failed.State != jobtypes.StateWaitingRetry {
		t.Fatalf("expected waiting_retry with budget remaining, got %q", failed.State)
	}
	if failed.NextAttemptAtUTC == nil {
		t.Fatal("expected next attempt time to be set")
	}
}

func TestRequeueDueRetriesPromotesOnlyDueJobs(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)

	args := baseArgs()
	args.RetryPolicy = jobtypes.RetryPolicy{MaxAttempts: 3, BaseDelaySeconds: 60, MaxDelaySeconds: 600}
	args.ScheduledForUTC = &now
	r.EnqueueJob(ctx, args)
	leased, _ := r.LeaseNextDueJob(ctx, "worker-1", 60, now)
	r.MarkJobStarted(ctx, leased.JobID, now)
	r.MarkJobFailed(ctx, leased.JobID, "no_answer", nil)

	count, err := r.RequeueDueRetries(ctx, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 due jobs before the retry delay elapses, got %d", count)
	}

	later := now.Add(time.Hour)
	count, err = r.RequeueDueRetries(ctx, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 job requeued once due, got %d", count)
	}
}
