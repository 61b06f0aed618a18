package netkit_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/config"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/netkit"
)

func TestNewServerAddrFromEnv(t *testing.T) {
	t.Setenv("API_ADDR", ":12345")
	srv := netkit.NewServer(config.New())
	if srv.Addr() != ":12345" {
		t.Fatalf("expected addr :12345, got %q", srv.Addr())
	}
}

func TestNewServerAppliesOptionsToMux(t *testing.T) {
	optCalled := false
	srv := netkit.NewServer(config.New(), func(m *chi.Mux) {
		optCalled = true
	})
	if !optCalled {
		t.Fatal("expected NewServer option to be invoked")
	}
}

func TestServerRouterMountsRoutes(t *testing.T) {
	srv := netkit.NewServer(config.New())
	r := srv.Router()
	r.Get("/ping", func(w http.ResponseWriter, req *http.Request) { w.WriteHeader(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestServerRunAndShutdown(t *testing.T) {
	t.Setenv("API_ADDR", "127.0.0.1:0")
	srv := netkit.NewServer(config.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestServerRunReturnsListenError(t *testing.T) {
	t.Setenv("API_ADDR", "127.0.0.1:abc")
	srv := netkit.NewServer(config.New())

	err := srv.Run(context.Background())
	if err == nil {
		t.Fatal("expected Run to return an error for an invalid address")
	}
}
