package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestParseLevelAllBranches(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"trace", "trace"},
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"warning", "warn"},
		{"error", "error"},
		{"fatal", "fatal"},
		{"panic", "panic"},
		{"", "info"},
		{"  nonsense  ", "info"},
	}
	for _, c := range cases {
		lvl := parseLevel(c.in)
		if strings.ToLower(lvl.String()) != c.want {
			t.Errorf("parseLevel(%q) = %q, want %q", c.in, lvl, c.want)
		}
	}
}

func TestFromEnvReadsLogVars(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_SERVICE", "svc-b")
	t.Setenv("LOG_COMPONENT", "comp-b")
	t.Setenv("LOG_CALLER", "true")

	opt := FromEnv()
	if opt.Level != "warn" || opt.Format != "json" {
		t.Fatalf("FromEnv level/format mismatch: %+v", opt)
	}
	if opt.Service != "svc-b" || opt.Component != "comp-b" {
		t.Fatalf("FromEnv service/component mismatch: %+v", opt)
	}
	if !opt.WithCaller {
		t.Fatal("expected WithCaller true")
	}
}

func TestInitGetNamedCWithRequest(t *testing.T) {
	var buf bytes.Buffer

	Init(Options{
		Level:      "info",
		Format:     "json",
		Service:    "outbound-core",
		Component:  "root",
		Writer:     &buf,
		WithCaller: false,
		StaticFields: map[string]string{
			"build": "test",
		},
	})

	Get().Info().Str("k", "v").Msg("root-msg")
	Named("api").Info().Msg("named-msg")

	ctx := WithRequest(context.Background(), "req-123")
	ctx = WithJob(ctx, "job-456")
	ctx = WithCall(ctx, "call-789")
	C(ctx).Info().Msg("ctx-msg")

	C(context.Background()).Info().Msg("ctx-empty")

	out := buf.String()
	for _, want := range []string{
		"root-msg", "named-msg", "ctx-msg",
		`"component":"api"`,
		`"request_id":"req-123"`,
		`"job_id":"job-456"`,
		`"call_id":"call-789"`,
		`"build":"test"`,
		`"service":"outbound-core"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got: %s", want, out)
		}
	}
}

func TestWithRequestJobCallIgnoreEmptyValues(t *testing.T) {
	ctx := WithRequest(context.Background(), "")
	ctx = WithJob(ctx, "")
	ctx = WithCall(ctx, "")
	if ctx.Value(keyRequestID) != nil || ctx.Value(keyJobID) != nil || ctx.Value(keyCallID) != nil {
		t.Fatal("expected empty ids to leave the context unannotated")
	}
}

func TestNamedReturnsRootWhenComponentEmpty(t *testing.T) {
	if Named("") != Get() {
		t.Fatal("expected Named(\"\") to return the root logger")
	}
}
