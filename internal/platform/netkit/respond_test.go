package netkit_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
)

func TestJSONWritesStatusAndContentType(t *testing.T) {
	rec := httptest.NewRecorder()
	netkit.JSON(rec, http.StatusTeapot, map[string]any{"k": "v"})
	if rec.Code != http.StatusTeapot {
		t.Fatalf("expected 418, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct == "" {
		t.Fatal("expected content-type to be set")
	}
}

func TestHandleOK(t *testing.T) {
	h := netkit.Handle(func(r *http.Request) netkit.Response {
		return netkit.OK(map[string]any{"x": 1})
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ok", nil)
	h(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var env netkit.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.StatusCode != http.StatusOK || env.Data == nil {
		t.Fatalf("bad envelope: %+v", env)
	}
}

func TestHandleCreated(t *testing.T) {
	h := netkit.Handle(func(r *http.Request) netkit.Response {
		return netkit.Created(map[string]any{"id": 99})
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/created", nil)
	h(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
}

func TestHandleErrorMapsPerrCodeToStatus(t *testing.T) {
	h := netkit.Handle(func(r *http.Request) netkit.Response {
		return netkit.Error(perr.New(perr.ErrorCodeNotFound, "job not found"))
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/err", nil)
	h(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var env netkit.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.Code != perr.ErrorCodeNotFound || env.Error == "" {
		t.Fatalf("bad error envelope: %+v", env)
	}
}

func TestHandleErrorIncludesRequestIDFromContext(t *testing.T) {
	h := netkit.Handle(func(r *http.Request) netkit.Response {
		return netkit.Error(perr.New(perr.ErrorCodeConflict, "bad state"))
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/err", nil)
	req = req.WithContext(context.WithValue(req.Context(), chimw.RequestIDKey, "rid-123"))
	h(rec, req)

	var env netkit.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	if env.RequestID != "rid-123" {
		t.Fatalf("expected request id rid-123, got %q", env.RequestID)
	}
}

func TestHandleGenericErrorMapsToInternalServerError(t *testing.T) {
	h := netkit.Handle(func(r *http.Request) netkit.Response {
		return netkit.Error(errors.New("boom"))
	})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/gen", nil)
	h(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 for generic error, got %d", rec.Code)
	}
}
