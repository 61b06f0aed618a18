// Package repo implements the Call Store on top of filestore, grounded on
// original_source/src/api/call_store.py's JsonCallStore.
package repo

import (
	"context"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/calltypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/dialog"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/filestore"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/domain"
)

// FileRepo is a filestore-backed implementation of domain.Repo.
type FileRepo struct {
	store *filestore.Store[domain.Record]
}

// New opens (or creates) a call store directory.
func New(dir string) (*FileRepo, error) {
	s, err := filestore.Open[domain.Record](dir)
	if err != nil {
		return nil, err
	}
	return &FileRepo{store: s}, nil
}

// CreateCall writes the initial record for a freshly started call.
func (r *FileRepo) CreateCall(ctx context.Context, callID, assistantIntent string, state calltypes.CallState) (domain.Record, error) {
	now := time.Now().UTC()
	rec := domain.Record{
		CallID:          callID,
		Status:          "active",
		CreatedAtUTC:    now,
		UpdatedAtUTC:    now,
		AssistantIntent: assistantIntent,
		LastCallState:   state,
		Turns:           []domain.Turn{},
	}
	if err := r.store.Put(callID, rec); err != nil {
		return domain.Record{}, err
	}
	return rec, nil
}

func extractOutcomeCode(actions []dialog.Action) (string, bool) {
	for _, a := range actions {
		if a.Action == "set_outcome" {
			if oc, ok := a.Fields["outcome_code"].(string); ok && oc != "" {
				return oc, true
			}
		}
	}
	return "", false
}

func extractEndReason(actions []dialog.Action) (string, bool) {
	for _, a := range actions {
		if a.Action == "end_call" {
			if reason, ok := a.Fields["reason"].(string); ok && reason != "" {
				return reason, true
			}
		}
	}
	return "", false
}

// AppendTurn records one turn and finalizes the call's status/outcome when
// the resulting state reaches the ended phase.
func (r *FileRepo) AppendTurn(
	ctx context.Context,
	callID string,
	turnEvent dialog.TurnEvent,
	assistantText, assistantIntent string,
	actions []dialog.Action,
	state calltypes.CallState,
	nlu map[string]any,
) (domain.Record, error) {
	var out domain.Record

	err := r.store.WithLock(func() error {
		rec, err := r.store.GetLocked(callID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		turn := domain.Turn{
			TurnEvent:       turnEvent,
			AssistantText:   assistantText,
			AssistantIntent: assistantIntent,
			Actions:         actions,
			CallState:       state,
			NLU:             nlu,
			RecordedAtUTC:   now,
		}
		rec.Turns = append(rec.Turns, turn)
		rec.UpdatedAtUTC = now
		rec.AssistantIntent = assistantIntent
		rec.LastCallState = state

		if state.Phase == calltypes.PhaseEnded {
			rec.Status = "ended"
			if oc, ok := extractOutcomeCode(actions); ok {
				rec.FinalOutcomeCode = oc
			}
			if reason, ok := extractEndReason(actions); ok {
				rec.EndReason = reason
			} else if state.EndReason != "" {
				rec.EndReason = state.EndReason
			}
		}

		if err := r.store.PutLocked(callID, rec); err != nil {
			return err
		}
		out = rec
		return nil
	})

	return out, err
}

// GetCall reads the full call record.
func (r *FileRepo) GetCall(ctx context.Context, callID string) (domain.Record, error) {
	return r.store.Get(callID)
}

// GetCallState reads just the call's current state.
func (r *FileRepo) GetCallState(ctx context.Context, callID string) (calltypes.CallState, error) {
	rec, err := r.store.Get(callID)
	if err != nil {
		return calltypes.CallState{}, err
	}
	return rec.LastCallState, nil
}

// ListCalls returns every call record.
func (r *FileRepo) ListCalls(ctx context.Context) ([]domain.Record, error) {
	return r.store.List(), nil
}
