package netkit

import (
	"encoding/json"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
)

// Envelope is the standard response body for every endpoint.
type Envelope struct {
	StatusCode int             `json:"status_code"`
	Status     string          `json:"status"`
	Code       perr.ErrorCode  `json:"code,omitempty"`
	Error      string          `json:"error,omitempty"`
	RequestID  string          `json:"request_id,omitempty"`
	Data       any             `json:"data,omitempty"`
}

// JSON writes v as application/json with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Response is a functional response object for return-style handlers.
type Response struct {
	Status int
	Body   any
}

// Handle adapts a Response-returning handler to net/http.
func Handle(h func(r *http.Request) Response) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(r).write(w, r)
	}
}

func (resp Response) write(w http.ResponseWriter, r *http.Request) {
	reqID := chimw.GetReqID(r.Context())

	if err, ok := resp.Body.(error); ok && err != nil {
		status := perr.HTTPStatus(err)
		wr := perr.WireFrom(err)
		JSON(w, status, Envelope{
			StatusCode: status,
			Status:     http.StatusText(status),
			Code:       wr.Code,
			Error:      wr.Message,
			RequestID:  reqID,
		})
		return
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	JSON(w, status, Envelope{
		StatusCode: status,
		Status:     http.StatusText(status),
		RequestID:  reqID,
		Data:       resp.Body,
	})
}

// OK returns a 200 response.
func OK(data any) Response { return Response{Status: http.StatusOK, Body: data} }

// Created returns a 201 response.
func Created(data any) Response { return Response{Status: http.StatusCreated, Body: data} }

// Error returns a response that maps err to status and envelope.
func Error(err error) Response { return Response{Body: err} }
