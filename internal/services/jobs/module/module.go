// Package module wires the Job Store service into the CLI and HTTP surface.
package module

import (
	"net/http"
	"strconv"

	"github.com/AlvLeoAI/collections-voice-agent/internal/modkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/repo"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/service"
)

// Options controls the jobs module.
type Options struct {
	Dir string
}

// FromConfig reads JOBS_DIR from the namespaced config.
func FromConfig(deps modkit.Deps) Options {
	c := deps.Cfg.Prefix("JOBS_")
	return Options{Dir: c.MayString("DIR", deps.RootDir+"/jobs")}
}

// Ports exposes the jobs service to other modules (the worker loop).
type Ports struct {
	Service *service.Service
}

// Module implements modkit.Module for the Job Store.
type Module struct {
	ports Ports
}

// New constructs the jobs module, opening its backing store directory.
func New(deps modkit.Deps, overrides Options) (*Module, error) {
	opts := FromConfig(deps)
	if overrides.Dir != "" {
		opts.Dir = overrides.Dir
	}

	fileRepo, err := repo.New(opts.Dir)
	if err != nil {
		return nil, err
	}

	svc := service.New(fileRepo, service.DefaultConfig())
	return &Module{ports: Ports{Service: svc}}, nil
}

// Name returns the module name.
func (m *Module) Name() string { return "jobs" }

// Ports returns the module's ports.
func (m *Module) Ports() any { return m.ports }

// MountRoutes mounts the jobs HTTP surface.
func (m *Module) MountRoutes(r netkit.Router) {
	svc := m.ports.Service

	r.Post("/jobs/enqueue", netkit.Handle(func(req *http.Request) netkit.Response {
		var body enqueueRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		job, created, err := svc.EnqueueJob(req.Context(), body.toArgs())
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.Created(map[string]any{"created": created, "job": job})
	}))

	r.Get("/jobs", netkit.Handle(func(req *http.Request) netkit.Response {
		var filter domain.ListFilter
		if s := req.URL.Query().Get("state"); s != "" {
			st := jobtypes.State(s)
			filter.State = &st
		}
		filter.CampaignID = req.URL.Query().Get("campaign_id")
		if l := req.URL.Query().Get("limit"); l != "" {
			if n, err := strconv.Atoi(l); err == nil {
				filter.Limit = n
			}
		}
		jobs, err := svc.ListJobs(req.Context(), filter)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(map[string]any{"count": len(jobs), "jobs": jobs})
	}))

	r.Get("/jobs/{job_id}", netkit.Handle(func(req *http.Request) netkit.Response {
		jobID := chiURLParam(req, "job_id")
		job, err := svc.GetJob(req.Context(), jobID)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(job)
	}))

	r.Post("/jobs/lease", netkit.Handle(func(req *http.Request) netkit.Response {
		var body leaseRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		job, err := svc.LeaseNextDueJob(req.Context(), body.WorkerID, body.LeaseSeconds)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(map[string]any{"job": job})
	}))

	r.Post("/jobs/{job_id}/start", netkit.Handle(func(req *http.Request) netkit.Response {
		jobID := chiURLParam(req, "job_id")
		job, err := svc.StartJobAttempt(req.Context(), jobID)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(job)
	}))

	r.Post("/jobs/{job_id}/success", netkit.Handle(func(req *http.Request) netkit.Response {
		jobID := chiURLParam(req, "job_id")
		var body completeRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		job, err := svc.CompleteJob(req.Context(), jobID, body.OutcomeCode, body.CallID)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(job)
	}))

	r.Post("/jobs/{job_id}/failure", netkit.Handle(func(req *http.Request) netkit.Response {
		jobID := chiURLParam(req, "job_id")
		var body failRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		job, err := svc.FailJob(req.Context(), jobID, body.ErrorCode, body.CallID)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(job)
	}))

	r.Post("/jobs/{job_id}/cancel", netkit.Handle(func(req *http.Request) netkit.Response {
		jobID := chiURLParam(req, "job_id")
		var body cancelRequest
		if err := decodeJSON(req, &body); err != nil {
			return netkit.Error(err)
		}
		reason := body.ReasonCode
		if reason == "" {
			reason = "canceled"
		}
		job, err := svc.CancelJob(req.Context(), jobID, reason)
		if err != nil {
			return netkit.Error(err)
		}
		return netkit.OK(job)
	}))
}
