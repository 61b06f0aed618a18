// Package domain defines the Call Store's ports and record types.
package domain

import (
	"context"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/calltypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/dialog"
)

// Turn is one recorded turn of a call: the input event, the resulting
// assistant output, and the call state after applying it.
type Turn struct {
	TurnEvent       dialog.TurnEvent         `json:"turn_event"`
	AssistantText   string                   `json:"assistant_text"`
	AssistantIntent string                   `json:"assistant_intent"`
	Actions         []dialog.Action          `json:"actions"`
	CallState       calltypes.CallState      `json:"call_state"`
	NLU             map[string]any           `json:"nlu,omitempty"`
	RecordedAtUTC   time.Time                `json:"recorded_at_utc"`
}

// Record is the full persisted call: its turns and derived status fields.
type Record struct {
	CallID            string              `json:"call_id"`
	Status            string              `json:"status"`
	CreatedAtUTC      time.Time           `json:"created_at_utc"`
	UpdatedAtUTC      time.Time           `json:"updated_at_utc"`
	AssistantIntent   string              `json:"assistant_intent"`
	LastCallState     calltypes.CallState `json:"last_call_state"`
	Turns             []Turn              `json:"turns"`
	FinalOutcomeCode  string              `json:"final_outcome_code,omitempty"`
	EndReason         string              `json:"end_reason,omitempty"`
}

// Repo is the Call Store's persistence contract.
type Repo interface {
	CreateCall(ctx context.Context, callID, assistantIntent string, state calltypes.CallState) (Record, error)
	AppendTurn(ctx context.Context, callID string, turnEvent dialog.TurnEvent, assistantText, assistantIntent string, actions []dialog.Action, state calltypes.CallState, nlu map[string]any) (Record, error)
	GetCall(ctx context.Context, callID string) (Record, error)
	GetCallState(ctx context.Context, callID string) (calltypes.CallState, error)
	ListCalls(ctx context.Context) ([]Record, error)
}
