package compliance_test

import (
	"testing"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/compliance"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
)

func basePolicy() jobtypes.CallPolicySnapshot {
	return jobtypes.CallPolicySnapshot{
		Timezone:               "America/Chicago",
		AllowedLocalTimeRanges: []string{"08:00-20:00"},
		DailyAttemptCap:        2,
		MinGapMinutes:          60,
	}
}

func noHistory() compliance.AttemptHistory {
	return compliance.AttemptHistory{
		CountForLocalDay: func(string, string, string) int { return 0 },
		LastCountedAtUTC: func(string) (time.Time, bool) { return time.Time{}, false },
	}
}

func TestGateBlocksOnSuppressionFlagsInOrder(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC) // 10:00 Chicago, inside window
	flags := jobtypes.SuppressionFlags{DNC: true, CeaseContact: true, LegalHold: true}
	d := compliance.EvaluatePreDialGate(flags, basePolicy(), "acct1", now, noHistory())
	if d.Allowed {
		t.Fatal("expected blocked decision")
	}
	if d.ReasonCode != "blocked_suppression_dnc" {
		t.Fatalf("expected dnc to win short-circuit, got %q", d.ReasonCode)
	}
}

func TestGateBlocksOutsideLocalWindow(t *testing.T) {
	now := time.Date(2026, 7, 31, 6, 0, 0, 0, time.UTC) // 01:00 Chicago, outside 08-20
	d := compliance.EvaluatePreDialGate(jobtypes.SuppressionFlags{}, basePolicy(), "acct1", now, noHistory())
	if d.Allowed {
		t.Fatal("expected blocked decision outside window")
	}
	if d.ReasonCode != "blocked_policy_outside_call_window" {
		t.Fatalf("unexpected reason %q", d.ReasonCode)
	}
	if !d.Retryable {
		t.Fatal("outside-window block should be retryable")
	}
}

func TestGateBlocksOnDailyCap(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC)
	hist := compliance.AttemptHistory{
		CountForLocalDay: func(string, string, string) int { return 2 },
		LastCountedAtUTC: func(string) (time.Time, bool) { return time.Time{}, false },
	}
	d := compliance.EvaluatePreDialGate(jobtypes.SuppressionFlags{}, basePolicy(), "acct1", now, hist)
	if d.Allowed {
		t.Fatal("expected blocked decision at daily cap")
	}
	if d.ReasonCode != "blocked_policy_daily_attempt_cap" {
		t.Fatalf("unexpected reason %q", d.ReasonCode)
	}
	if d.AttemptsToday != 2 {
		t.Fatalf("expected attempts_today=2, got %d", d.AttemptsToday)
	}
}

func TestGateBlocksOnMinGap(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC)
	last := now.Add(-30 * time.Minute)
	hist := compliance.AttemptHistory{
		CountForLocalDay: func(string, string, string) int { return 0 },
		LastCountedAtUTC: func(string) (time.Time, bool) { return last, true },
	}
	d := compliance.EvaluatePreDialGate(jobtypes.SuppressionFlags{}, basePolicy(), "acct1", now, hist)
	if d.Allowed {
		t.Fatal("expected blocked decision within min gap")
	}
	if d.ReasonCode != "blocked_policy_min_gap" {
		t.Fatalf("unexpected reason %q", d.ReasonCode)
	}
	if d.MinGapBlockedMinutesLeft == nil || *d.MinGapBlockedMinutesLeft != 30 {
		t.Fatalf("expected 30 minutes remaining, got %v", d.MinGapBlockedMinutesLeft)
	}
}

func TestGateAllowsWhenNothingBlocks(t *testing.T) {
	now := time.Date(2026, 7, 31, 15, 0, 0, 0, time.UTC)
	d := compliance.EvaluatePreDialGate(jobtypes.SuppressionFlags{}, basePolicy(), "acct1", now, noHistory())
	if !d.Allowed {
		t.Fatalf("expected allowed decision, got reason %q", d.ReasonCode)
	}
}

func TestGateHandlesMidnightWrappingWindow(t *testing.T) {
	policy := basePolicy()
	policy.AllowedLocalTimeRanges = []string{"20:00-02:00"}
	// 23:00 Chicago (CDT, UTC-5) -> 04:00 UTC next day
	now := time.Date(2026, 7, 31, 4, 0, 0, 0, time.UTC)
	d := compliance.EvaluatePreDialGate(jobtypes.SuppressionFlags{}, policy, "acct1", now, noHistory())
	if !d.Allowed {
		t.Fatalf("expected allowed inside wrapping window, got reason %q", d.ReasonCode)
	}
}
