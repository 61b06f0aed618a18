// Package service implements the Call Store's operation surface, wrapping
// the pure dialog engine with persistence.
package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/calltypes"
	"github.com/AlvLeoAI/collections-voice-agent/internal/core/dialog"
	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/perr"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/domain"
)

var validate = validator.New()

// Service is the Call Store's operation surface.
type Service struct {
	repo domain.Repo
}

// New builds a Service over repo.
func New(repo domain.Repo) *Service { return &Service{repo: repo} }

func generateCallID() string { return "call_" + uuid.New().String() }

// StartCall opens a new call and persists its initial state; the opening
// prompt is not recorded as a turn.
func (s *Service) StartCall(ctx context.Context, partyProfile map[string]string) (string, dialog.Result, error) {
	callID := generateCallID()
	result := dialog.StartCall(calltypes.New(), partyProfile)

	if _, err := s.repo.CreateCall(ctx, callID, result.AssistantIntent, result.CallState); err != nil {
		return "", dialog.Result{}, err
	}
	return callID, result, nil
}

// HandleTurn advances an existing call by one turn and persists the result.
func (s *Service) HandleTurn(
	ctx context.Context,
	callID string,
	event dialog.TurnEvent,
	partyProfile map[string]string,
	accountContext map[string]any,
	policyConfig map[string]any,
) (dialog.Result, error) {
	if err := validate.Struct(event); err != nil {
		return dialog.Result{}, perr.Wrap(err, perr.ErrorCodeValidation, "invalid turn_event")
	}

	state, err := s.repo.GetCallState(ctx, callID)
	if err != nil {
		return dialog.Result{}, perr.WithOp(err, "calls.HandleTurn")
	}

	result := dialog.HandleTurn(event, state, partyProfile, accountContext, policyConfig)

	var nlu map[string]any
	if result.NLU != nil {
		nlu = map[string]any{
			"primary_intent": result.NLU.PrimaryIntent,
			"confidence":     result.NLU.Confidence,
		}
	}

	if _, err := s.repo.AppendTurn(ctx, callID, event, result.AssistantText, result.AssistantIntent, result.Actions, result.CallState, nlu); err != nil {
		return dialog.Result{}, err
	}
	return result, nil
}

// GetCall returns the full call record.
func (s *Service) GetCall(ctx context.Context, callID string) (domain.Record, error) {
	return s.repo.GetCall(ctx, callID)
}

// ListCalls returns every call record (used by the metrics summary).
func (s *Service) ListCalls(ctx context.Context) ([]domain.Record, error) {
	return s.repo.ListCalls(ctx)
}
