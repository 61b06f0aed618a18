package statemachine_test

import (
	"testing"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/statemachine"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
)

func TestTransitionValidPaths(t *testing.T) {
	cases := []struct {
		from  jobtypes.State
		event jobtypes.Event
		want  jobtypes.State
	}{
		{jobtypes.StateQueued, jobtypes.EventLease, jobtypes.StateLeased},
		{jobtypes.StateLeased, jobtypes.EventStart, jobtypes.StateRunning},
		{jobtypes.StateRunning, jobtypes.EventCallSucceeded, jobtypes.StateSucceeded},
		{jobtypes.StateRunning, jobtypes.EventCallFailed, jobtypes.StateFailed},
		{jobtypes.StateLeased, jobtypes.EventScheduleRetry, jobtypes.StateWaitingRetry},
		{jobtypes.StateFailed, jobtypes.EventScheduleRetry, jobtypes.StateWaitingRetry},
		{jobtypes.StateWaitingRetry, jobtypes.EventRetryReady, jobtypes.StateQueued},
		{jobtypes.StateFailed, jobtypes.EventExhaustRetries, jobtypes.StateDeadLetter},
		{jobtypes.StateQueued, jobtypes.EventCancel, jobtypes.StateCanceled},
		{jobtypes.StateLeased, jobtypes.EventCancel, jobtypes.StateCanceled},
		{jobtypes.StateRunning, jobtypes.EventCancel, jobtypes.StateCanceled},
		{jobtypes.StateWaitingRetry, jobtypes.EventCancel, jobtypes.StateCanceled},
	}
	for _, c := range cases {
		got, err := statemachine.Transition(c.from, c.event)
		if err != nil {
			t.Errorf("%s -%s-> unexpected error: %v", c.from, c.event, err)
			continue
		}
		if got != c.want {
			t.Errorf("%s -%s-> want %s, got %s", c.from, c.event, c.want, got)
		}
	}
}

func TestTransitionRejectsUnknownEdges(t *testing.T) {
	_, err := statemachine.Transition(jobtypes.StateSucceeded, jobtypes.EventCancel)
	if err == nil {
		t.Fatal("expected error for transition out of a terminal state")
	}
	if !perr.IsCode(err, perr.ErrorCodeConflict) {
		t.Fatalf("expected conflict error code, got %v", perr.CodeOf(err))
	}
}

func TestIsTerminal(t *testing.T) {
	for _, s := range []jobtypes.State{jobtypes.StateSucceeded, jobtypes.StateDeadLetter, jobtypes.StateCanceled} {
		if !statemachine.IsTerminal(s) {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	if statemachine.IsTerminal(jobtypes.StateQueued) {
		t.Fatal("queued should not be terminal")
	}
}
