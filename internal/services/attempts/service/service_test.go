package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/domain"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/service"
)

type fakeRepo struct {
	countForDay      int
	lastCountedAt    time.Time
	lastCountedFound bool
}

func (f *fakeRepo) AppendEvent(ctx context.Context, args domain.AppendArgs) (domain.Event, error) {
	return domain.Event{AccountRef: args.AccountRef, DecisionCode: args.DecisionCode}, nil
}
func (f *fakeRepo) ListEvents(ctx context.Context, accountRef string) ([]domain.Event, error) {
	return nil, nil
}
func (f *fakeRepo) ListRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	return nil, nil
}
func (f *fakeRepo) CountAttemptsForLocalDay(ctx context.Context, accountRef, timezone, localDayISO string) (int, error) {
	return f.countForDay, nil
}
func (f *fakeRepo) GetLastCountedAttemptAtUTC(ctx context.Context, accountRef string) (time.Time, bool, error) {
	return f.lastCountedAt, f.lastCountedFound, nil
}

func TestHistoryBridgesCountForLocalDay(t *testing.T) {
	repo := &fakeRepo{countForDay: 3}
	svc := service.New(repo)
	hist := svc.History(context.Background())
	if got := hist.CountForLocalDay("acct1", "America/Chicago", "2026-07-31"); got != 3 {
		t.Fatalf("expected count 3, got %d", got)
	}
}

func TestHistoryBridgesLastCountedAtUTC(t *testing.T) {
	ts := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepo{lastCountedAt: ts, lastCountedFound: true}
	svc := service.New(repo)
	hist := svc.History(context.Background())
	got, ok := hist.LastCountedAtUTC("acct1")
	if !ok {
		t.Fatal("expected found=true")
	}
	if !got.Equal(ts) {
		t.Fatalf("expected timestamp %v, got %v", ts, got)
	}
}

func TestHistoryLastCountedAtUTCNotFound(t *testing.T) {
	repo := &fakeRepo{lastCountedFound: false}
	svc := service.New(repo)
	hist := svc.History(context.Background())
	_, ok := hist.LastCountedAtUTC("acct1")
	if ok {
		t.Fatal("expected found=false")
	}
}

func TestAppendEventDelegatesToRepo(t *testing.T) {
	repo := &fakeRepo{}
	svc := service.New(repo)
	event, err := svc.AppendEvent(context.Background(), domain.AppendArgs{AccountRef: "acct1", DecisionCode: "allowed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.AccountRef != "acct1" || event.DecisionCode != "allowed" {
		t.Fatalf("unexpected event: %+v", event)
	}
}
