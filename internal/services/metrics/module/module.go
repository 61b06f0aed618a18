// Package module wires the metrics service into the HTTP surface. Unlike the
// other services it owns no store of its own: it reads through the calls,
// jobs, and attempts services' ports.
package module

import (
	"net/http"
	"strconv"

	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
	attemptsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/module"
	callsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/module"
	jobsmodule "github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/module"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/metrics/service"
)

// Options controls the metrics module.
type Options struct {
	DefaultTrendDays int
}

// FromConfig reads METRICS_TREND_DAYS from the namespaced config.
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("METRICS_")
	return Options{DefaultTrendDays: c.MayInt("TREND_DAYS", 14)}
}

// Ports exposes the metrics service to other modules.
type Ports struct {
	Service *service.Service
}

// Module implements modkit.Module for the metrics summary.
type Module struct {
	ports     Ports
	trendDays int
}

// New constructs the metrics module over the already-built calls, jobs, and
// attempts modules.
func New(deps modkit.Deps, overrides Options, calls *callsmodule.Module, jobs *jobsmodule.Module, attempts *attemptsmodule.Module) *Module {
	opts := FromConfig(deps)
	if overrides.DefaultTrendDays != 0 {
		opts.DefaultTrendDays = overrides.DefaultTrendDays
	}

	callPorts := calls.Ports().(callsmodule.Ports)
	jobPorts := jobs.Ports().(jobsmodule.Ports)
	attemptPorts := attempts.Ports().(attemptsmodule.Ports)

	svc := service.New(callPorts.Service, jobPorts.Service, attemptPorts.Service)
	return &Module{ports: Ports{Service: svc}, trendDays: opts.DefaultTrendDays}
}

// Name returns the module name.
func (m *Module) Name() string { return "metrics" }

// Ports returns the module's ports.
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the metrics/summary HTTP surface.
func (m *Module) MountRoutes(r netkit.Router) {
	svc := m.ports.Service
	trendDays := m.trendDays

	r.Get("/metrics/summary", netkit.Handle(func(req *http.Request) netkit.Response {
		days := trendDays
		if d := req.URL.Query().Get("trend_days"); d != "" {
			if n, err := strconv.Atoi(d); err == nil && n > 0 {
				days = n
			}
		}
		summary, err := svc.Summary(req.Context(), days)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(summary)
	}))
}
