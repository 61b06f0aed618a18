// Package module wires the Call Store service into the CLI and HTTP surface.
package module

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/dialog"
	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/repo"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/service"
)

// Options controls the calls module.
type Options struct {
	Dir string
}

// FromConfig reads CALLS_DIR from the namespaced config.
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("CALLS_")
	return Options{Dir: c.MayString("DIR", deps.RootDir+"/calls")}
}

// Ports exposes the calls service to other modules (metrics).
type Ports struct {
	Service *service.Service
}

// Module implements modkit.Module for the Call Store.
type Module struct {
	ports Ports
}

// New constructs the calls module, opening its backing store directory.
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
func (m *Module) Name() string { return "calls" }

// Ports returns the module's ports.
func (m *Module) Ports() any { return m.ports }

type startCallRequest struct {
	PartyProfile map[string]string `json:"party_profile"`
}

type turnRequest struct {
	CallID         string                 `json:"call_id"`
	TurnEvent      dialog.TurnEvent       `json:"turn_event"`
	PartyProfile   map[string]string      `json:"party_profile"`
	AccountContext map[string]any         `json:"account_context"`
	PolicyConfig   map[string]any         `json:"policy_config"`
}

// MountRoutes mounts the call/start and call/turn HTTP surface.
func (m *Module) MountRoutes(r netkit.Router) {
	svc := m.ports.Service

	r.Post("/call/start", netkit.Handle(func(req *http.Request) netkit.Response {
		var body startCallRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		callID, result, err := svc.StartCall(req.Context(), body.PartyProfile)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.Created(map[string]any{
			"call_id":          callID,
			"assistant_text":   result.AssistantText,
			"assistant_intent": result.AssistantIntent,
			"actions":          result.Actions,
			"call_state":       result.CallState,
		})
	}))

	r.Post("/call/turn", netkit.Handle(func(req *http.Request) netkit.Response {
		var body turnRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		result, err := svc.HandleTurn(req.Context(), body.CallID, body.TurnEvent, body.PartyProfile, body.AccountContext, body.PolicyConfig)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(map[string]any{
			"call_id":          body.CallID,
			"assistant_text":   result.AssistantText,
			"assistant_intent": result.AssistantIntent,
			"actions":          result.Actions,
			"nlu":              result.NLU,
			"call_state":       result.CallState,
		})
	}))

	r.Get("/call/{call_id}", netkit.Handle(func(req *http.Request) netkit.Response {
		callID := chi.URLParam(req, "call_id")
		rec, err := svc.GetCall(req.Context(), callID)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(rec)
	}))
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return perr.Wrap(err, perr.ErrorCodeValidation, "invalid request body")
	}
	return nil
}
