// Package repo implements the Job Store's persistence contract on top of
// filestore, grounded on original_source/src/api/job_store.py's JsonJobStore.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/statemachine"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/filestore"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
)

// FileRepo is a filestore-backed implementation of domain.Repo.
type FileRepo struct {
	store *filestore.Store[jobtypes.Job]
}

// New opens (or creates) a job store directory.
func New(dir string) (*FileRepo, error) {
	s, err := filestore.Open[jobtypes.Job](dir)
	if err != nil {
		return nil, err
	}
	return &FileRepo{store: s}, nil
}

func generateJobID() string {
	return "job_" + uuid.New().String()
}

func (r *FileRepo) findByIdempotencyLocked(key string) (jobtypes.Job, bool) {
	for _, j := range r.store.ListLocked() {
		if j.IdempotencyKey == key {
			return j, true
		}
	}
	return jobtypes.Job{}, false
}

// EnqueueJob creates a new job unless one with the same idempotency key
// (campaign, account, scheduled time) already exists, in which case the
// existing job is returned with created=false.
func (r *FileRepo) EnqueueJob(ctx context.Context, args domain.EnqueueArgs) (jobtypes.Job, bool, error) {
	var out jobtypes.Job
	var created bool

	err := r.store.WithLock(func() error {
		now := time.Now().UTC()
		scheduled := now
		if args.ScheduledForUTC != nil {
			scheduled = *args.ScheduledForUTC
		}

		key := jobtypes.BuildIdempotencyKey(args.CampaignID, args.Payload.AccountRef, scheduled.Format(time.RFC3339))
		if existing, ok := r.findByIdempotencyLocked(key); ok {
			out = existing
			created = false
			return nil
		}

		job := jobtypes.Job{
			JobID:            generateJobID(),
			IdempotencyKey:   key,
			TriggerSource:    args.TriggerSource,
			CampaignID:       args.CampaignID,
			Payload:          args.Payload,
			Policy:           args.Policy,
			RetryPolicy:      args.RetryPolicy,
			Priority:         args.Priority,
			State:            jobtypes.StateQueued,
			CreatedAtUTC:     now,
			ScheduledForUTC:  scheduled,
			NextAttemptAtUTC: &scheduled,
			Attempts:         []jobtypes.Attempt{},
		}

		if err := r.store.PutLocked(job.JobID, job); err != nil {
			return err
		}
		out = job
		created = true
		return nil
	})

	return out, created, err
}

// GetJob reads one job by id.
func (r *FileRepo) GetJob(ctx context.Context, jobID string) (jobtypes.Job, error) {
	return r.store.Get(jobID)
}

// ListJobs returns jobs matching filter, sorted by (priority, created_at).
func (r *FileRepo) ListJobs(ctx context.Context, filter domain.ListFilter) ([]jobtypes.Job, error) {
	all := r.store.List()
	out := make([]jobtypes.Job, 0, len(all))
	for _, j := range all {
		if filter.State != nil && j.State != *filter.State {
			continue
		}
		if filter.CampaignID != "" && j.CampaignID != filter.CampaignID {
			continue
		}
		out = append(out, j)
	}
	sortByPriorityThenCreated(out)
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func sortByPriorityThenCreated(jobs []jobtypes.Job) {
	for i := 1; i < len(jobs); i++ {
		j := i
		for j > 0 && less(jobs[j], jobs[j-1]) {
			jobs[j], jobs[j-1] = jobs[j-1], jobs[j]
			j--
		}
	}
}

func less(a, b jobtypes.Job) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	return a.CreatedAtUTC.Before(b.CreatedAtUTC)
}

// RequeueDueRetries promotes every waiting_retry job whose next_attempt_at_utc
// is due back to queued.
func (r *FileRepo) RequeueDueRetries(ctx context.Context, now time.Time) (int, error) {
	count := 0
	err := r.store.WithLock(func() error {
		for _, j := range r.store.ListLocked() {
			if j.State != jobtypes.StateWaitingRetry {
				continue
			}
			if j.NextAttemptAtUTC == nil || now.Before(*j.NextAttemptAtUTC) {
				continue
			}
			next, err := statemachine.Transition(j.State, jobtypes.EventRetryReady)
			if err != nil {
				continue
			}
			j.State = next
			j.NextAttemptAtUTC = &now
			if err := r.store.PutLocked(j.JobID, j); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	return count, err
}

// LeaseNextDueJob promotes due retries, then leases the highest-priority
// due queued job to workerID, or returns nil if nothing is due.
func (r *FileRepo) LeaseNextDueJob(ctx context.Context, workerID string, leaseSeconds int, now time.Time) (*jobtypes.Job, error) {
	var leased *jobtypes.Job

	err := r.store.WithLock(func() error {
		all := r.store.ListLocked()
		for _, j := range all {
			if j.State != jobtypes.StateWaitingRetry {
				continue
			}
			if j.NextAttemptAtUTC == nil || now.Before(*j.NextAttemptAtUTC) {
				continue
			}
			next, err := statemachine.Transition(j.State, jobtypes.EventRetryReady)
			if err != nil {
				continue
			}
			j.State = next
			j.NextAttemptAtUTC = &now
			if err := r.store.PutLocked(j.JobID, j); err != nil {
				return err
			}
		}

		candidates := make([]jobtypes.Job, 0)
		for _, j := range r.store.ListLocked() {
			if j.State != jobtypes.StateQueued {
				continue
			}
			if j.NextAttemptAtUTC != nil && now.Before(*j.NextAttemptAtUTC) {
				continue
			}
			candidates = append(candidates, j)
		}
		if len(candidates) == 0 {
			return nil
		}
		sortByPriorityThenCreated(candidates)
		chosen := candidates[0]

		next, err := statemachine.Transition(chosen.State, jobtypes.EventLease)
		if err != nil {
			return err
		}
		chosen.State = next
		owner := workerID
		chosen.LeaseOwner = &owner
		expiry := now.Add(time.Duration(leaseSeconds) * time.Second)
		chosen.LeaseExpiresAtUTC = &expiry

		if err := r.store.PutLocked(chosen.JobID, chosen); err != nil {
			return err
		}
		leased = &chosen
		return nil
	})

	return leased, err
}

// MarkJobStarted transitions a leased job to running and opens a new attempt.
func (r *FileRepo) MarkJobStarted(ctx context.Context, jobID string, now time.Time) (jobtypes.Job, error) {
	var out jobtypes.Job
	err := r.store.WithLock(func() error {
		job, err := r.store.GetLocked(jobID)
		if err != nil {
			return err
		}
		next, err := statemachine.Transition(job.State, jobtypes.EventStart)
		if err != nil {
			return err
		}
		job.State = next
		job.Attempts = append(job.Attempts, jobtypes.Attempt{
			AttemptNumber: len(job.Attempts) + 1,
			StartedAtUTC:  now,
		})
		if err := r.store.PutLocked(job.JobID, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	return out, err
}

// DeferLeasedJob requires a leased job and moves it to waiting_retry. The
// caller supplies the reason and delay explicitly (e.g. the compliance
// gate's retry-after), rather than the call-failure backoff schedule.
func (r *FileRepo) DeferLeasedJob(ctx context.Context, jobID, reasonCode string, delaySeconds int, now time.Time) (jobtypes.Job, error) {
	var out jobtypes.Job
	err := r.store.WithLock(func() error {
		job, err := r.store.GetLocked(jobID)
		if err != nil {
			return err
		}
		if job.State != jobtypes.StateLeased {
			return perr.Conflictf("job %s is not leased (state=%s)", jobID, job.State)
		}
		next, err := statemachine.Transition(job.State, jobtypes.EventScheduleRetry)
		if err != nil {
			return err
		}
		job.State = next
		if delaySeconds < 1 {
			delaySeconds = 1
		}
		nextAt := now.Add(time.Duration(delaySeconds) * time.Second)
		job.NextAttemptAtUTC = &nextAt
		job.FailureReason = &reasonCode
		job.LeaseOwner = nil
		job.LeaseExpiresAtUTC = nil
		if err := r.store.PutLocked(job.JobID, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	return out, err
}

// CancelJob transitions a cancelable job to canceled, recording reasonCode.
func (r *FileRepo) CancelJob(ctx context.Context, jobID, reasonCode string) (jobtypes.Job, error) {
	var out jobtypes.Job
	err := r.store.WithLock(func() error {
		job, err := r.store.GetLocked(jobID)
		if err != nil {
			return err
		}
		next, err := statemachine.Transition(job.State, jobtypes.EventCancel)
		if err != nil {
			return err
		}
		job.State = next
		job.FailureReason = &reasonCode
		job.LeaseOwner = nil
		job.LeaseExpiresAtUTC = nil
		if err := r.store.PutLocked(job.JobID, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	return out, err
}

func closeLastAttempt(job *jobtypes.Job, now time.Time, outcomeCode, errorCode, callID *string) {
	if len(job.Attempts) == 0 {
		return
	}
	last := &job.Attempts[len(job.Attempts)-1]
	last.EndedAtUTC = &now
	last.OutcomeCode = outcomeCode
	last.ErrorCode = errorCode
	last.CallID = callID
}

// MarkJobSucceeded closes the current attempt with outcomeCode and
// transitions the job to succeeded.
func (r *FileRepo) MarkJobSucceeded(ctx context.Context, jobID, outcomeCode string, callID *string) (jobtypes.Job, error) {
	var out jobtypes.Job
	err := r.store.WithLock(func() error {
		job, err := r.store.GetLocked(jobID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		closeLastAttempt(&job, now, &outcomeCode, nil, callID)

		next, err := statemachine.Transition(job.State, jobtypes.EventCallSucceeded)
		if err != nil {
			return err
		}
		job.State = next
		job.LeaseOwner = nil
		job.LeaseExpiresAtUTC = nil
		job.NextAttemptAtUTC = nil
		if err := r.store.PutLocked(job.JobID, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	return out, err
}

// MarkJobFailed closes the current attempt with errorCode, transitions to
// failed, then either schedules a retry or moves to dead_letter if the
// retry budget is exhausted.
func (r *FileRepo) MarkJobFailed(ctx context.Context, jobID, errorCode string, callID *string) (jobtypes.Job, error) {
	var out jobtypes.Job
	err := r.store.WithLock(func() error {
		job, err := r.store.GetLocked(jobID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		closeLastAttempt(&job, now, nil, &errorCode, callID)

		next, err := statemachine.Transition(job.State, jobtypes.EventCallFailed)
		if err != nil {
			return err
		}
		job.State = next

		if !job.CanAttemptAgain() {
			next, err = statemachine.Transition(job.State, jobtypes.EventExhaustRetries)
			if err != nil {
				return err
			}
			job.State = next
			job.FailureReason = &errorCode
			job.LeaseOwner = nil
			job.LeaseExpiresAtUTC = nil
		} else {
			next, err = statemachine.Transition(job.State, jobtypes.EventScheduleRetry)
			if err != nil {
				return err
			}
			job.State = next
			delay := jobtypes.ComputeRetryDelaySeconds(len(job.Attempts), job.RetryPolicy.BaseDelaySeconds, job.RetryPolicy.MaxDelaySeconds)
			nextAt := now.Add(time.Duration(delay) * time.Second)
			job.NextAttemptAtUTC = &nextAt
			job.LeaseOwner = nil
			job.LeaseExpiresAtUTC = nil
		}

		if err := r.store.PutLocked(job.JobID, job); err != nil {
			return err
		}
		out = job
		return nil
	})
	return out, err
}
