// Package compliance implements the pre-dial gate: a pure function over
// suppression flags, local call-time windows, and attempt-frequency limits.
// It never touches storage directly; callers supply counts and timestamps.
package compliance

import (
	"strconv"
	"strings"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
)

// Decision is the outcome of evaluating the gate for one candidate dial.
type Decision struct {
	Allowed                   bool
	ReasonCode                string
	Retryable                 bool
	AttemptsToday             int
	RetryAfterSeconds         *int
	MinGapBlockedMinutesLeft  *int
}

// AttemptHistory is the minimal view the gate needs from the attempt ledger.
type AttemptHistory struct {
	CountForLocalDay func(accountRef, timezone, localDayISO string) int
	LastCountedAtUTC func(accountRef string) (time.Time, bool)
}

func allowed() Decision { return Decision{Allowed: true, ReasonCode: "allowed"} }

func blocked(reason string) Decision {
	return Decision{Allowed: false, ReasonCode: reason, Retryable: false}
}

func retryLater(reason string, retryAfterSeconds int) Decision {
	d := Decision{Allowed: false, ReasonCode: reason, Retryable: true}
	d.RetryAfterSeconds = &retryAfterSeconds
	return d
}

type window struct{ startMin, endMin int }

func parseWindow(spec string) (window, bool) {
	parts := strings.SplitN(spec, "-", 2)
	if len(parts) != 2 {
		return window{}, false
	}
	s, ok1 := parseHHMM(parts[0])
	e, ok2 := parseHHMM(parts[1])
	if !ok1 || !ok2 {
		return window{}, false
	}
	return window{startMin: s, endMin: e}, true
}

func parseHHMM(s string) (int, bool) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, false
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, false
	}
	return h*60 + m, true
}

func isLocalTimeAllowed(policy jobtypes.CallPolicySnapshot, nowUTC time.Time) bool {
	if len(policy.AllowedLocalTimeRanges) == 0 {
		return true
	}
	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := nowUTC.In(loc)
	current := local.Hour()*60 + local.Minute()

	for _, spec := range policy.AllowedLocalTimeRanges {
		w, ok := parseWindow(spec)
		if !ok {
			continue
		}
		if w.startMin <= w.endMin {
			if current >= w.startMin && current <= w.endMin {
				return true
			}
		} else {
			// Window wraps midnight.
			if current >= w.startMin || current <= w.endMin {
				return true
			}
		}
	}
	return false
}

func secondsToNextLocalMidnight(policy jobtypes.CallPolicySnapshot, nowUTC time.Time) int {
	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		loc = time.UTC
	}
	local := nowUTC.In(loc)
	nextMidnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return int(nextMidnight.Sub(local).Seconds())
}

// EvaluatePreDialGate decides whether a contact attempt may be dialed now.
// Evaluation order is strict and short-circuits: dnc -> cease_contact ->
// legal_hold -> local time window -> daily attempt cap -> minimum gap.
func EvaluatePreDialGate(
	flags jobtypes.SuppressionFlags,
	policy jobtypes.CallPolicySnapshot,
	accountRef string,
	nowUTC time.Time,
	history AttemptHistory,
) Decision {
	if flags.DNC {
		return blocked("blocked_suppression_dnc")
	}
	if flags.CeaseContact {
		return blocked("blocked_suppression_cease_contact")
	}
	if flags.LegalHold {
		return blocked("blocked_suppression_legal_hold")
	}

	if !isLocalTimeAllowed(policy, nowUTC) {
		return retryLater("blocked_policy_outside_call_window", 900)
	}

	loc, err := time.LoadLocation(policy.Timezone)
	if err != nil {
		loc = time.UTC
	}
	localDay := nowUTC.In(loc).Format("2006-01-02")

	attemptsToday := 0
	if history.CountForLocalDay != nil {
		attemptsToday = history.CountForLocalDay(accountRef, policy.Timezone, localDay)
	}
	if attemptsToday >= policy.DailyAttemptCap {
		d := retryLater("blocked_policy_daily_attempt_cap", max(60, secondsToNextLocalMidnight(policy, nowUTC)))
		d.AttemptsToday = attemptsToday
		return d
	}

	if history.LastCountedAtUTC != nil {
		if last, ok := history.LastCountedAtUTC(accountRef); ok {
			elapsedMinutes := nowUTC.Sub(last).Minutes()
			if elapsedMinutes < float64(policy.MinGapMinutes) {
				remaining := int(roundHalfAwayFromZero(float64(policy.MinGapMinutes) - elapsedMinutes))
				if remaining < 1 {
					remaining = 1
				}
				d := retryLater("blocked_policy_min_gap", remaining*60)
				d.AttemptsToday = attemptsToday
				d.MinGapBlockedMinutesLeft = &remaining
				return d
			}
		}
	}

	d := allowed()
	d.AttemptsToday = attemptsToday
	return d
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func roundHalfAwayFromZero(v float64) float64 {
	if v >= 0 {
		return float64(int(v + 0.5))
	}
	return -float64(int(-v + 0.5))
}
