// Command outbound-worker polls the job queue, runs the pre-dial compliance
// gate, and drives outbound call jobs through the state machine.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/compliance"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/config"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/logger"
	attemptsdomain "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/domain"
	attemptsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/module"
	attemptsservice "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/service"
	callsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/module"
	callsservice "github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/service"
	jobsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/module"
	jobsservice "github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/service"
)

type opts struct {
	workerID     string
	leaseSeconds int
	pollSeconds  int
	maxJobs      int
	once         bool
	jobsDir      string
	attemptsDir  string
	callsDir     string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "outbound-worker",
		Short: "Leases and drives outbound call jobs through the pre-dial gate",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	flags := root.Flags()
	flags.StringVar(&o.workerID, "worker-id", defaultWorkerID(), "identifies this worker when leasing jobs")
	flags.IntVar(&o.leaseSeconds, "lease-seconds", 0, "lease duration override (0 uses the service default)")
	flags.IntVar(&o.pollSeconds, "poll-seconds", 0, "poll interval override (0 uses the service default)")
	flags.IntVar(&o.maxJobs, "max-jobs", 0, "stop after processing this many jobs (0 means unbounded)")
	flags.BoolVar(&o.once, "once", false, "lease and process at most one due job, then exit")
	flags.StringVar(&o.jobsDir, "jobs-dir", "", "overrides JOBS_DIR")
	flags.StringVar(&o.attemptsDir, "attempts-dir", "", "overrides ATTEMPTS_DIR")
	flags.StringVar(&o.callsDir, "calls-dir", "", "overrides CALLS_DIR")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Get().Fatal().Err(err).Msg("outbound-worker exited with error")
	}
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "worker-local"
	}
	return "worker-" + host
}

func run(ctx context.Context, o opts) error {
	log := logger.Named("outbound-worker")
	root := config.New()
	deps := modkit.Deps{Cfg: root, RootDir: "."}

	jobsMod, err := jobsmodule.New(deps, jobsmodule.Options{Dir: o.jobsDir})
	if err != nil {
		return fmt.Errorf("open jobs store: %w", err)
	}
	attemptsMod, err := attemptsmodule.New(deps, attemptsmodule.Options{Dir: o.attemptsDir})
	if err != nil {
		return fmt.Errorf("open attempts store: %w", err)
	}
	callsMod, err := callsmodule.New(deps, callsmodule.Options{Dir: o.callsDir})
	if err != nil {
		return fmt.Errorf("open calls store: %w", err)
	}

	jobSvc := jobsMod.Ports().(jobsmodule.Ports).Service
	attemptSvc := attemptsMod.Ports().(attemptsmodule.Ports).Service
	callSvc := callsMod.Ports().(callsmodule.Ports).Service

	pollSeconds := o.pollSeconds
	if pollSeconds <= 0 {
		pollSeconds = 5
	}
	ticker := time.NewTicker(time.Duration(pollSeconds) * time.Second)
	defer ticker.Stop()

	processed := 0
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("shutting down")
			return nil
		case <-ticker.C:
			if n, err := jobSvc.RequeueDueRetries(ctx); err != nil {
				log.Error().Err(err).Msg("requeue due retries failed")
			} else if n > 0 {
				log.Info().Int("count", n).Msg("requeued due retries")
			}

			job, err := jobSvc.LeaseNextDueJob(ctx, o.workerID, o.leaseSeconds)
			if err != nil {
				log.Error().Err(err).Msg("lease failed")
				continue
			}
			if job == nil {
				if o.once {
					log.Info().Msg("no due job found")
					return nil
				}
				continue
			}

			jlog := logger.WithJob(ctx, job.JobID)
			if err := processJob(jlog, log, jobSvc, attemptSvc, callSvc, job); err != nil {
				log.Error().Err(err).Str("job_id", job.JobID).Msg("job processing failed")
			}

			processed++
			if o.once {
				return nil
			}
			if o.maxJobs > 0 && processed >= o.maxJobs {
				log.Info().Int("processed", processed).Msg("reached max-jobs, stopping")
				return nil
			}
		}
	}
}

// processJob evaluates the pre-dial compliance gate for a leased job. A
// blocked decision records the reason in the attempt ledger and defers or
// cancels the job per its retryability; an allowed decision starts the
// attempt, opens a call record through the dialog engine, and marks the
// job succeeded once the call is initialized.
func processJob(ctx context.Context, log *logger.Logger, jobSvc *jobsservice.Service, attemptSvc *attemptsservice.Service, callSvc *callsservice.Service, job *jobtypes.Job) error {
	now := time.Now().UTC()
	decision := compliance.EvaluatePreDialGate(
		job.Payload.SuppressionFlags,
		job.Policy,
		job.Payload.AccountRef,
		now,
		attemptSvc.History(ctx),
	)

	jobIDRef := job.JobID
	if !decision.Allowed {
		if _, err := attemptSvc.AppendEvent(ctx, attemptsdomain.AppendArgs{
			AccountRef:          job.Payload.AccountRef,
			DecisionCode:        decision.ReasonCode,
			CountsTowardAttempt: false,
			JobID:               &jobIDRef,
			RecordedAtUTC:       &now,
		}); err != nil {
			return err
		}

		if decision.Retryable {
			delay := 900
			if decision.RetryAfterSeconds != nil {
				delay = *decision.RetryAfterSeconds
			}
			log.Info().Str("job_id", job.JobID).Str("reason", decision.ReasonCode).Int("delay_seconds", delay).Msg("deferring blocked job")
			_, err := jobSvc.DeferJob(ctx, job.JobID, decision.ReasonCode, delay)
			return err
		}
		log.Info().Str("job_id", job.JobID).Str("reason", decision.ReasonCode).Msg("canceling permanently blocked job")
		_, err := jobSvc.CancelJob(ctx, job.JobID, decision.ReasonCode)
		return err
	}

	if _, err := attemptSvc.AppendEvent(ctx, attemptsdomain.AppendArgs{
		AccountRef:          job.Payload.AccountRef,
		DecisionCode:        decision.ReasonCode,
		CountsTowardAttempt: true,
		JobID:               &jobIDRef,
		RecordedAtUTC:       &now,
	}); err != nil {
		return err
	}

	if _, err := jobSvc.StartJobAttempt(ctx, job.JobID); err != nil {
		return err
	}

	callID, _, err := callSvc.StartCall(ctx, job.Payload.PartyProfile)
	if err != nil {
		return err
	}

	if _, err := jobSvc.CompleteJob(ctx, job.JobID, "call_initialized", &callID); err != nil {
		return err
	}
	log.Info().Str("job_id", job.JobID).Str("account_ref", job.Payload.AccountRef).Str("call_id", callID).Msg("call initialized")
	return nil
}
