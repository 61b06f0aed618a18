// Command outbound-api serves the HTTP surface for the Call Store, Job
// Store, Attempt Ledger, and metrics summary.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/config"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/logger"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
	attemptsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/module"
	callsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/module"
	jobsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/module"
	metricsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/metrics/module"
)

type opts struct {
	rootDir     string
	jobsDir     string
	attemptsDir string
	callsDir    string
}

func main() {
	var o opts

	root := &cobra.Command{
		Use:   "outbound-api",
		Short: "Serves the outbound contact orchestration HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), o)
		},
	}

	flags := root.Flags()
	flags.StringVar(&o.rootDir, "root-dir", ".", "base directory for default store locations")
	flags.StringVar(&o.jobsDir, "jobs-dir", "", "overrides JOBS_DIR")
	flags.StringVar(&o.attemptsDir, "attempts-dir", "", "overrides ATTEMPTS_DIR")
	flags.StringVar(&o.callsDir, "calls-dir", "", "overrides CALLS_DIR")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Get().Fatal().Err(err).Msg("outbound-api exited with error")
	}
}

func run(ctx context.Context, o opts) error {
	log := logger.Get()
	cfg := config.New()
	deps := modkit.Deps{Cfg: cfg, RootDir: o.rootDir}

	jobsMod, err := jobsmodule.New(deps, jobsmodule.Options{Dir: o.jobsDir})
	if err != nil {
		log.Fatal().Err(err).Msg("open jobs store failed")
	}
	attemptsMod, err := attemptsmodule.New(deps, attemptsmodule.Options{Dir: o.attemptsDir})
	if err != nil {
		log.Fatal().Err(err).Msg("open attempts store failed")
	}
	callsMod, err := callsmodule.New(deps, callsmodule.Options{Dir: o.callsDir})
	if err != nil {
		log.Fatal().Err(err).Msg("open calls store failed")
	}
	metricsMod := metricsmodule.New(deps, metricsmodule.Options{}, callsMod, jobsMod, attemptsMod)

	apiCfg := cfg.Prefix("API_")
	server := netkit.NewServer(apiCfg)
	r := server.Router()
	for _, mw := range netkit.CommonStack() {
		r.Use(mw)
	}

	for _, mod := range []modkit.Module{jobsMod, attemptsMod, callsMod, metricsMod} {
		mod.MountRoutes(r)
	}

	if err := server.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("http server stopped")
	}
	return nil
}
