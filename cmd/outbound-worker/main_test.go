package main

import (
	"context"
	"testing"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/config"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/logger"
	attemptsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/module"
	callsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/module"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
	jobsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/module"
)

func newTestModules(t *testing.T) (jobsmodule.Ports, attemptsmodule.Ports, callsmodule.Ports) {
	t.Helper()
	deps := modkit.Deps{Cfg: config.New(), RootDir: "."}

	jobsMod, err := jobsmodule.New(deps, jobsmodule.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open jobs store: %v", err)
	}
	attemptsMod, err := attemptsmodule.New(deps, attemptsmodule.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open attempts store: %v", err)
	}
	callsMod, err := callsmodule.New(deps, callsmodule.Options{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("open calls store: %v", err)
	}

	return jobsMod.Ports().(jobsmodule.Ports), attemptsMod.Ports().(attemptsmodule.Ports), callsMod.Ports().(callsmodule.Ports)
}

func TestProcessJobAllowedDecisionInitializesCall(t *testing.T) {
	ctx := context.Background()
	jobsPorts, attemptsPorts, callsPorts := newTestModules(t)

	job, _, err := jobsPorts.Service.EnqueueJob(ctx, domain.EnqueueArgs{
		TriggerSource: jobtypes.TriggerManual,
		CampaignID:    "camp-1",
		Payload: jobtypes.OutboundCallPayload{
			AccountRef:   "acct-1",
			PartyProfile: map[string]string{"target_name": "Jamie Rivera"},
			Language:     "en",
		},
		Policy: jobtypes.CallPolicySnapshot{
			Timezone:        "UTC",
			DailyAttemptCap: 5,
			MinGapMinutes:   60,
		},
		RetryPolicy: jobtypes.DefaultRetryPolicy(),
	})
	if err != nil {
		t.Fatalf("enqueue job: %v", err)
	}

	leased, err := jobsPorts.Service.LeaseNextDueJob(ctx, "worker-1", 300)
	if err != nil {
		t.Fatalf("lease job: %v", err)
	}
	if leased == nil {
		t.Fatal("expected a due job to lease")
	}

	log := logger.Named("test")
	if err := processJob(ctx, log, jobsPorts.Service, attemptsPorts.Service, callsPorts.Service, leased); err != nil {
		t.Fatalf("processJob: %v", err)
	}

	got, err := jobsPorts.Service.GetJob(ctx, job.JobID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.State != jobtypes.StateSucceeded {
		t.Fatalf("expected job state succeeded, got %q", got.State)
	}
	if len(got.Attempts) != 1 || got.Attempts[0].CallID == nil {
		t.Fatalf("expected one attempt with a call id, got %+v", got.Attempts)
	}
	if got.Attempts[0].OutcomeCode == nil || *got.Attempts[0].OutcomeCode != "call_initialized" {
		t.Fatalf("expected outcome call_initialized, got %+v", got.Attempts[0].OutcomeCode)
	}

	rec, err := callsPorts.Service.GetCall(ctx, *got.Attempts[0].CallID)
	if err != nil {
		t.Fatalf("get call: %v", err)
	}
	if rec.LastCallState.TurnCount != 1 {
		t.Fatalf("expected call to have started its first turn, got %+v", rec.LastCallState)
	}
}
