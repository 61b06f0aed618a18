// Package service builds the metrics summary over the Call Store and Job
// Store, grounded on original_source/src/api/metrics.py.
package service

import (
	"context"
	"sort"
	"time"

	calldomain "github.com/AlvLeoAI/collections-voice-agent/internal/services/calls/domain"
	jobtypes "github.com/AlvLeoAI/collections-voice-agent/internal/core/jobtypes"
	jobsdomain "github.com/AlvLeoAI/collections-voice-agent/internal/services/jobs/domain"
	attemptsdomain "github.com/AlvLeoAI/collections-voice-agent/internal/services/attempts/domain"
)

// CallMetrics mirrors build_metrics_summary's output shape.
type CallMetrics struct {
	GeneratedAtUTC            time.Time      `json:"generated_at_utc"`
	CallsTotal                int            `json:"calls_total"`
	ActiveCalls               int            `json:"active_calls"`
	EndedCalls                int            `json:"ended_calls"`
	StatusCounts              map[string]int `json:"status_counts"`
	PTPCallsTotal             int            `json:"ptp_calls_total"`
	PTPCallsEnded             int            `json:"ptp_calls_ended"`
	PTPSuccessRateEnded       *float64       `json:"ptp_success_rate_ended"`
	PTPSuccessRateAllCalls    *float64       `json:"ptp_success_rate_all_calls"`
	TimeToPTPSamples          int            `json:"time_to_ptp_samples"`
	AvgTimeToPTPSeconds       *float64       `json:"avg_time_to_ptp_seconds"`
	MedianTimeToPTPSeconds    *float64       `json:"median_time_to_ptp_seconds"`
	AvgTimeToPTPMinutes       *float64       `json:"avg_time_to_ptp_minutes"`
	MedianTimeToPTPMinutes    *float64       `json:"median_time_to_ptp_minutes"`
	Daily                     []DailyRow     `json:"daily"`
	Jobs                      JobMetrics     `json:"jobs"`
}

// DailyRow is one bucketed day in the trend.
type DailyRow struct {
	Date                string   `json:"date"`
	CallsTotal           int      `json:"calls_total"`
	EndedCalls           int      `json:"ended_calls"`
	PTPCallsEnded        int      `json:"ptp_calls_ended"`
	PTPSuccessRateEnded  *float64 `json:"ptp_success_rate_ended"`
}

// JobMetrics mirrors build_job_metrics_summary's output shape.
type JobMetrics struct {
	JobsTotal               int            `json:"jobs_total"`
	StateCounts             map[string]int `json:"state_counts"`
	OutcomeCounts           map[string]int `json:"outcome_counts"`
	ErrorCounts             map[string]int `json:"error_counts"`
	BlockedPolicyTotal      int            `json:"blocked_policy_total"`
	BlockedSuppressionTotal int            `json:"blocked_suppression_total"`
	AttemptEventsTotal      int            `json:"attempt_events_total"`
	ContactAttemptsTotal    int            `json:"contact_attempts_total"`
	DecisionCodeCounts      map[string]int `json:"decision_code_counts"`
}

// Service computes metrics summaries from the call, job, and attempt stores.
type Service struct {
	calls    CallLister
	jobs     JobLister
	attempts AttemptLister
}

// CallLister is the subset of the calls service metrics needs.
type CallLister interface {
	ListCalls(ctx context.Context) ([]calldomain.Record, error)
}

// JobLister is the subset of the jobs service metrics needs.
type JobLister interface {
	ListJobs(ctx context.Context, filter jobsdomain.ListFilter) ([]jobtypes.Job, error)
}

// AttemptLister is the subset of the attempts service metrics needs.
type AttemptLister interface {
	ListRecentEvents(ctx context.Context, limit int) ([]attemptsdomain.Event, error)
}

// New builds a metrics Service over the three upstream stores.
func New(calls CallLister, jobs JobLister, attempts AttemptLister) *Service {
	return &Service{calls: calls, jobs: jobs, attempts: attempts}
}

func ptr(v float64) *float64 { return &v }

func round(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int(v*mult+0.5)) / mult
}

// Summary builds the full metrics payload (call metrics plus nested job metrics).
func (s *Service) Summary(ctx context.Context, trendDays int) (CallMetrics, error) {
	records, err := s.calls.ListCalls(ctx)
	if err != nil {
		return CallMetrics{}, err
	}

	statusCounts := map[string]int{}
	daily := map[string]*DailyRow{}

	ptpCallsTotal := 0
	ptpCallsEnded := 0
	var timeToPTP []float64

	for _, rec := range records {
		status := rec.Status
		if status == "" {
			status = "unknown"
		}
		statusCounts[status]++

		day := "unknown"
		if !rec.CreatedAtUTC.IsZero() {
			day = rec.CreatedAtUTC.UTC().Format("2006-01-02")
		}
		row := daily[day]
		if row == nil {
			row = &DailyRow{Date: day}
			daily[day] = row
		}
		row.CallsTotal++
		if status == "ended" {
			row.EndedCalls++
		}

		hasPTP, ptpAt := extractPTPInfo(rec)
		if !hasPTP {
			continue
		}
		ptpCallsTotal++
		if status == "ended" {
			ptpCallsEnded++
			row.PTPCallsEnded++
			if !ptpAt.IsZero() && !rec.CreatedAtUTC.IsZero() {
				dur := ptpAt.Sub(rec.CreatedAtUTC).Seconds()
				if dur >= 0 {
					timeToPTP = append(timeToPTP, dur)
				}
			}
		}
	}

	for _, row := range daily {
		if row.EndedCalls > 0 {
			v := round(float64(row.PTPCallsEnded)/float64(row.EndedCalls), 4)
			row.PTPSuccessRateEnded = &v
		}
	}

	callsTotal := len(records)
	endedCalls := statusCounts["ended"]
	activeCalls := statusCounts["active"]

	var avgSeconds, medianSeconds *float64
	if len(timeToPTP) > 0 {
		sum := 0.0
		for _, v := range timeToPTP {
			sum += v
		}
		avgSeconds = ptr(round(sum/float64(len(timeToPTP)), 2))
		medianSeconds = ptr(round(median(timeToPTP), 2))
	}

	var avgMinutes, medianMinutes *float64
	if avgSeconds != nil {
		avgMinutes = ptr(round(*avgSeconds/60.0, 2))
	}
	if medianSeconds != nil {
		medianMinutes = ptr(round(*medianSeconds/60.0, 2))
	}

	var ptpRateEnded, ptpRateAll *float64
	if endedCalls > 0 {
		ptpRateEnded = ptr(round(float64(ptpCallsEnded)/float64(endedCalls), 4))
	}
	if callsTotal > 0 {
		ptpRateAll = ptr(round(float64(ptpCallsTotal)/float64(callsTotal), 4))
	}

	jobMetrics, err := s.jobMetrics(ctx)
	if err != nil {
		return CallMetrics{}, err
	}

	return CallMetrics{
		GeneratedAtUTC:         time.Now().UTC(),
		CallsTotal:             callsTotal,
		ActiveCalls:            activeCalls,
		EndedCalls:             endedCalls,
		StatusCounts:           statusCounts,
		PTPCallsTotal:          ptpCallsTotal,
		PTPCallsEnded:          ptpCallsEnded,
		PTPSuccessRateEnded:    ptpRateEnded,
		PTPSuccessRateAllCalls: ptpRateAll,
		TimeToPTPSamples:       len(timeToPTP),
		AvgTimeToPTPSeconds:    avgSeconds,
		MedianTimeToPTPSeconds: medianSeconds,
		AvgTimeToPTPMinutes:    avgMinutes,
		MedianTimeToPTPMinutes: medianMinutes,
		Daily:                  buildDailyRows(daily, trendDays),
		Jobs:                   jobMetrics,
	}, nil
}

func extractPTPInfo(rec calldomain.Record) (bool, time.Time) {
	for _, turn := range rec.Turns {
		for _, a := range turn.Actions {
			if a.Action == "set_outcome" {
				if oc, _ := a.Fields["outcome_code"].(string); oc == "ptp_set" {
					return true, turn.RecordedAtUTC
				}
			}
			if a.Action == "create_promise_to_pay" {
				return true, turn.RecordedAtUTC
			}
		}
	}
	if rec.FinalOutcomeCode == "ptp_set" {
		return true, rec.UpdatedAtUTC
	}
	if rec.LastCallState.PromiseToPay.Confirmed {
		return true, rec.UpdatedAtUTC
	}
	return false, time.Time{}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func buildDailyRows(daily map[string]*DailyRow, trendDays int) []DailyRow {
	var rows []DailyRow
	var unknown *DailyRow
	for date, row := range daily {
		r := *row
		if date == "unknown" {
			unknown = &r
			continue
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	if trendDays > 0 && len(rows) > trendDays {
		rows = rows[len(rows)-trendDays:]
	}
	if unknown != nil {
		rows = append(rows, *unknown)
	}
	return rows
}

func (s *Service) jobMetrics(ctx context.Context) (JobMetrics, error) {
	jobs, err := s.jobs.ListJobs(ctx, jobsdomain.ListFilter{})
	if err != nil {
		return JobMetrics{}, err
	}
	attempts, err := s.attempts.ListRecentEvents(ctx, 5000)
	if err != nil {
		return JobMetrics{}, err
	}

	stateCounts := map[string]int{}
	outcomeCounts := map[string]int{}
	errorCounts := map[string]int{}
	blockedPolicy := 0
	blockedSuppression := 0

	countReason := func(reason string) {
		if reason == "" {
			return
		}
		if hasPrefix(reason, "blocked_policy_") {
			blockedPolicy++
		}
		if hasPrefix(reason, "blocked_suppression_") {
			blockedSuppression++
		}
	}

	for _, j := range jobs {
		stateCounts[string(j.State)]++

		if j.FailureReason != nil && *j.FailureReason != "" {
			errorCounts[*j.FailureReason]++
			countReason(*j.FailureReason)
		}

		if len(j.Attempts) == 0 {
			continue
		}
		last := j.Attempts[len(j.Attempts)-1]
		if last.OutcomeCode != nil && *last.OutcomeCode != "" {
			outcomeCounts[*last.OutcomeCode]++
			countReason(*last.OutcomeCode)
		}
		if last.ErrorCode != nil && *last.ErrorCode != "" {
			errorCounts[*last.ErrorCode]++
			countReason(*last.ErrorCode)
		}
	}

	decisionCounts := map[string]int{}
	attemptEventsTotal := 0
	contactAttemptsTotal := 0
	for _, e := range attempts {
		if e.DecisionCode != "" {
			decisionCounts[e.DecisionCode]++
		}
		attemptEventsTotal++
		if e.CountsTowardAttempt {
			contactAttemptsTotal++
		}
	}

	return JobMetrics{
		JobsTotal:               len(jobs),
		StateCounts:             stateCounts,
		OutcomeCounts:           outcomeCounts,
		ErrorCounts:             errorCounts,
		BlockedPolicyTotal:      blockedPolicy,
		BlockedSuppressionTotal: blockedSuppression,
		AttemptEventsTotal:      attemptEventsTotal,
		ContactAttemptsTotal:    contactAttemptsTotal,
		DecisionCodeCounts:      decisionCounts,
	}, nil
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
