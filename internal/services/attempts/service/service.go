// Package service implements the Attempt Ledger's operation surface and
// bridges it to the compliance gate's AttemptHistory port.
package service

import (
	"context"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/core/compliance"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/domain"
)

// Service is the Attempt Ledger's operation surface.
type Service struct {
	repo domain.Repo
}

// New builds a Service over repo.
func New(repo domain.Repo) *Service { return &Service{repo: repo} }

// AppendEvent records one contact attempt decision for an account.
func (s *Service) AppendEvent(ctx context.Context, args domain.AppendArgs) (domain.Event, error) {
	return s.repo.AppendEvent(ctx, args)
}

// ListEvents returns every event recorded for one account.
func (s *Service) ListEvents(ctx context.Context, accountRef string) ([]domain.Event, error) {
	return s.repo.ListEvents(ctx, accountRef)
}

// ListRecentEvents merges events across all accounts, newest first.
func (s *Service) ListRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return s.repo.ListRecentEvents(ctx, limit)
}

// History builds the compliance.AttemptHistory port backed by this ledger.
func (s *Service) History(ctx context.Context) compliance.AttemptHistory {
	return compliance.AttemptHistory{
		CountForLocalDay: func(accountRef, timezone, localDayISO string) int {
			n, _ := s.repo.CountAttemptsForLocalDay(ctx, accountRef, timezone, localDayISO)
			return n
		},
		LastCountedAtUTC: func(accountRef string) (time.Time, bool) {
			t, ok, _ := s.repo.GetLastCountedAttemptAtUTC(ctx, accountRef)
			return t, ok
		},
	}
}
