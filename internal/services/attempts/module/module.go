// Package module wires the Attempt Ledger service into the CLI and HTTP surface.
package module

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/repo"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/service"
)

// Options controls the attempts module.
type Options struct {
	Dir string
}

// FromConfig reads ATTEMPTS_DIR from the namespaced config.
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("ATTEMPTS_")
	return Options{Dir: c.MayString("DIR", deps.RootDir+"/attempts")}
}

// Ports exposes the attempts service to other modules (the compliance gate).
type Ports struct {
	Service *service.Service
}

// Module implements modkit.Module for the Attempt Ledger.
type Module struct {
	ports Ports
}

// New constructs the attempts module, opening its backing store directory.
func New(deps modkit.Deps, overrides Options) (*Module, error) {
	opts := FromConfig(deps)
	if overrides.Dir != "" {
		opts.Dir = overrides.Dir
	}

	fileRepo, err := repo.New(opts.Dir)
	if err != nil {
		return nil, err
	}

	svc := service.New(fileRepo)
	return &Module{ports: Ports{Service: svc}}, nil
}

// Name returns the module name.
func (m *Module) Name() string { return "attempts" }

// Ports returns the module's ports.
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the attempts HTTP surface.
func (m *Module) MountRoutes(r netkit.Router) {
	svc := m.ports.Service

	r.Get("/attempts/{account_ref}", netkit.Handle(func(req *http.Request) netkit.Response {
		accountRef := chi.URLParam(req, "account_ref")
		events, err := svc.ListEvents(req.Context(), accountRef)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(map[string]any{"account_ref": accountRef, "events": events})
	}))

	r.Get("/attempts", netkit.Handle(func(req *http.Request) netkit.Response {
		limit := 200
		if l := req.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil {
				limit = n
			}
		}
		events, err := svc.ListRecentEvents(req.Context(), limit)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(map[string]any{"events": events})
	}))
}
