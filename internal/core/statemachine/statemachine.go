// Package statemachine implements the job lifecycle's transition table as a
// pure function, independent of persistence.
package statemachine

import (
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
)

type transitionKey struct {
	from  jobtypes.State
	event jobtypes.Event
}

var transitions = map[transitionKey]jobtypes.State{
	{jobtypes.StateQueued, jobtypes.EventLease}:               jobtypes.StateLeased,
	{jobtypes.StateLeased, jobtypes.EventStart}:                jobtypes.StateRunning,
	{jobtypes.StateRunning, jobtypes.EventCallSucceeded}:        jobtypes.StateSucceeded,
	{jobtypes.StateRunning, jobtypes.EventCallFailed}:           jobtypes.StateFailed,
	{jobtypes.StateLeased, jobtypes.EventScheduleRetry}:         jobtypes.StateWaitingRetry,
	{jobtypes.StateFailed, jobtypes.EventScheduleRetry}:         jobtypes.StateWaitingRetry,
	{jobtypes.StateWaitingRetry, jobtypes.EventRetryReady}:      jobtypes.StateQueued,
	{jobtypes.StateFailed, jobtypes.EventExhaustRetries}:        jobtypes.StateDeadLetter,
	{jobtypes.StateQueued, jobtypes.EventCancel}:                jobtypes.StateCanceled,
	{jobtypes.StateLeased, jobtypes.EventCancel}:                jobtypes.StateCanceled,
	{jobtypes.StateRunning, jobtypes.EventCancel}:               jobtypes.StateCanceled,
	{jobtypes.StateWaitingRetry, jobtypes.EventCancel}:          jobtypes.StateCanceled,
}

// Transition returns the next state for (current, event), or a Conflict
// error if no such transition is defined.
func Transition(current jobtypes.State, event jobtypes.Event) (jobtypes.State, error) {
	next, ok := transitions[transitionKey{current, event}]
	if !ok {
		return "", perr.Conflictf("no transition from state %q on event %q", current, event)
	}
	return next, nil
}

// IsTerminal reports whether a state has no outgoing transitions.
func IsTerminal(s jobtypes.State) bool {
	switch s {
	case jobtypes.StateSucceeded, jobtypes.StateDeadLetter, jobtypes.StateCanceled:
		return true
	default:
		return false
	}
}
