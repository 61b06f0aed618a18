// Package repo implements the Attempt Ledger on top of filestore, one JSON
// file per account (keyed by a stable hash of account_ref), grounded on
// original_source/src/api/contact_attempt_store.py's JsonContactAttemptStore.
package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/AlvLeoAI/collections-voice-agent/internal/platform/filestore"
	"github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/domain"
)

// accountLedger is the on-disk shape: all events for one account.
type accountLedger struct {
	AccountRef string          `json:"account_ref"`
	Events     []domain.Event `json:"events"`
}

// FileRepo is a filestore-backed implementation of domain.Repo.
type FileRepo struct {
	store *filestore.Store[accountLedger]
}

// New opens (or creates) an attempt ledger directory.
func New(dir string) (*FileRepo, error) {
	s, err := filestore.Open[accountLedger](dir)
	if err != nil {
		return nil, err
	}
	return &FileRepo{store: s}, nil
}

func accountFileSlug(accountRef string) string {
	sum := sha256.Sum256([]byte(accountRef))
	return hex.EncodeToString(sum[:])[:32]
}

// AppendEvent appends a new event row to the account's ledger file.
func (r *FileRepo) AppendEvent(ctx context.Context, args domain.AppendArgs) (domain.Event, error) {
	var out domain.Event
	slug := accountFileSlug(args.AccountRef)

	err := r.store.WithLock(func() error {
		recordedAt := time.Now().UTC()
		if args.RecordedAtUTC != nil {
			recordedAt = *args.RecordedAtUTC
		}

		ledger, err := r.store.GetLocked(slug)
		if err != nil {
			ledger = accountLedger{AccountRef: args.AccountRef}
		}

		event := domain.Event{
			AccountRef:          args.AccountRef,
			DecisionCode:        args.DecisionCode,
			CountsTowardAttempt: args.CountsTowardAttempt,
			JobID:               args.JobID,
			CallID:              args.CallID,
			RecordedAtUTC:       recordedAt,
		}
		ledger.Events = append(ledger.Events, event)

		if err := r.store.PutLocked(slug, ledger); err != nil {
			return err
		}
		out = event
		return nil
	})

	return out, err
}

// ListEvents returns every event recorded for one account.
func (r *FileRepo) ListEvents(ctx context.Context, accountRef string) ([]domain.Event, error) {
	ledger, err := r.store.Get(accountFileSlug(accountRef))
	if err != nil {
		return nil, nil
	}
	return ledger.Events, nil
}

// ListRecentEvents merges events across all accounts, newest first.
func (r *FileRepo) ListRecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	ledgers := r.store.List()
	all := make([]domain.Event, 0)
	for _, l := range ledgers {
		all = append(all, l.Events...)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].RecordedAtUTC.After(all[j].RecordedAtUTC)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// CountAttemptsForLocalDay counts counted-toward-attempt events whose
// recorded time, converted to timezone, falls on localDayISO.
func (r *FileRepo) CountAttemptsForLocalDay(ctx context.Context, accountRef, timezone, localDayISO string) (int, error) {
	ledger, err := r.store.Get(accountFileSlug(accountRef))
	if err != nil {
		return 0, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	count := 0
	for _, e := range ledger.Events {
		if !e.CountsTowardAttempt {
			continue
		}
		if e.RecordedAtUTC.In(loc).Format("2006-01-02") == localDayISO {
			count++
		}
	}
	return count, nil
}

// GetLastCountedAttemptAtUTC returns the most recent counted event's
// timestamp for an account, if any.
func (r *FileRepo) GetLastCountedAttemptAtUTC(ctx context.Context, accountRef string) (time.Time, bool, error) {
	ledger, err := r.store.Get(accountFileSlug(accountRef))
	if err != nil {
		return time.Time{}, false, nil
	}
	var last time.Time
	found := false
	for _, e := range ledger.Events {
		if !e.CountsTowardAttempt {
			continue
		}
		if !found || e.RecordedAtUTC.After(last) {
			last = e.RecordedAtUTC
			found = true
		}
	}
	return last, found, nil
}
