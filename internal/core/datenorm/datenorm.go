// Package datenorm normalizes a spoken or typed date/time expression into an
// ISO-8601 local date, resolving relative phrases ("tomorrow", "end of
// month"), month-day phrases, and bare weekday names, in English and
// Spanish.
package datenorm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of normalizing one date expression.
type Result struct {
	OK               bool    `json:"ok"`
	DateLocal        string  `json:"date_local,omitempty"`
	TimeLocal        *string `json:"time_local,omitempty"`
	DatetimeLocal    *string `json:"datetime_local,omitempty"`
	Confidence       float64 `json:"confidence"`
	NeedsConfirmation bool   `json:"needs_confirmation"`
}

var isoDateRe = regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`)

var monthNames = map[string]time.Month{
	"january": time.January, "enero": time.January,
	"february": time.February, "febrero": time.February,
	"march": time.March, "marzo": time.March,
	"april": time.April, "abril": time.April,
	"may": time.May, "mayo": time.May,
	"june": time.June, "junio": time.June,
	"july": time.July, "julio": time.July,
	"august": time.August, "agosto": time.August,
	"september": time.September, "septiembre": time.September, "setiembre": time.September,
	"october": time.October, "octubre": time.October,
	"november": time.November, "noviembre": time.November,
	"december": time.December, "diciembre": time.December,
}

// monthDayRe matches both "<Month> <Day>" (e.g. "august 15th") and the
// Spanish day-first order "<Day> [de] <Month>" (e.g. "5 de agosto").
var monthDayRe = regexp.MustCompile(`(?i)\b(` + monthNameAlternation() + `)\.?\s+(\d{1,2})(st|nd|rd|th)?\b|\b(\d{1,2})\s*(?:de\s+)?(` + monthNameAlternation() + `)\b`)

func monthNameAlternation() string {
	names := make([]string, 0, len(monthNames))
	for n := range monthNames {
		names = append(names, n)
	}
	return strings.Join(names, "|")
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "domingo": time.Sunday,
	"monday": time.Monday, "lunes": time.Monday,
	"tuesday": time.Tuesday, "martes": time.Tuesday,
	"wednesday": time.Wednesday, "miercoles": time.Wednesday, "miércoles": time.Wednesday,
	"thursday": time.Thursday, "jueves": time.Thursday,
	"friday": time.Friday, "viernes": time.Friday,
	"saturday": time.Saturday, "sabado": time.Saturday, "sábado": time.Saturday,
}

func lastDayOfMonth(d time.Time) time.Time {
	firstOfNext := time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, d.Location())
	return firstOfNext.AddDate(0, 0, -1)
}

func nextWeekdayOnOrAfter(d time.Time, weekday time.Weekday) time.Time {
	delta := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, delta)
}

func buildResult(date time.Time, confidence float64, needsConfirmation bool, localTime string) Result {
	r := Result{OK: true, DateLocal: date.Format("2006-01-02"), Confidence: confidence, NeedsConfirmation: needsConfirmation}
	if localTime != "" {
		t := localTime
		r.TimeLocal = &t
		dt := r.DateLocal + "T" + localTime
		r.DatetimeLocal = &dt
	}
	return r
}

// Normalize resolves text into a local date relative to currentLocalDate
// (format "2006-01-02"). timezone and language are accepted for parity with
// the grounding source but are ignored: keyword matching is the same for
// every language.
func Normalize(text, currentLocalDate, currentLocalTime, timezone, language string) Result {
	_ = timezone
	_ = language

	today, err := time.Parse("2006-01-02", currentLocalDate)
	if err != nil {
		today = time.Now().UTC()
	}

	norm := strings.ToLower(strings.TrimSpace(text))

	if m := isoDateRe.FindStringSubmatch(norm); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		d := time.Date(y, time.Month(mo), day, 0, 0, 0, 0, time.UTC)
		return buildResult(d, 0.95, false, currentLocalTime)
	}

	if strings.Contains(norm, "tomorrow") || strings.Contains(norm, "mañana") || strings.Contains(norm, "manana") {
		return buildResult(today.AddDate(0, 0, 1), 0.9, false, currentLocalTime)
	}

	if strings.Contains(norm, "end of month") || strings.Contains(norm, "fin de mes") || strings.Contains(norm, "a fin de mes") {
		return buildResult(lastDayOfMonth(today), 0.9, false, currentLocalTime)
	}

	if m := monthDayRe.FindStringSubmatch(norm); m != nil {
		monthKey, dayStr := m[1], m[2]
		if monthKey == "" {
			dayStr, monthKey = m[4], m[5]
		}
		month, ok := monthNames[strings.ToLower(monthKey)]
		if ok {
			day, _ := strconv.Atoi(dayStr)
			year := today.Year()
			candidate := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
			if candidate.Before(stripTime(today)) {
				candidate = time.Date(year+1, month, day, 0, 0, 0, 0, time.UTC)
			}
			return buildResult(candidate, 0.9, false, currentLocalTime)
		}
	}

	for name, weekday := range weekdayNames {
		if strings.Contains(norm, name) {
			candidate := nextWeekdayOnOrAfter(stripTime(today), weekday)
			if candidate.Equal(stripTime(today)) {
				candidate = candidate.AddDate(0, 0, 7)
			}
			return buildResult(candidate, 0.8, true, currentLocalTime)
		}
	}

	return Result{OK: false}
}

func stripTime(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// LastDayOfMonthString renders the last day of the month containing date
// (format "2006-01-02") in the "Month DD" voice-friendly form.
func LastDayOfMonthString(dateLocal string) (string, error) {
	d, err := time.Parse("2006-01-02", dateLocal)
	if err != nil {
		return "", fmt.Errorf("datenorm: invalid date %q: %w", dateLocal, err)
	}
	last := lastDayOfMonth(d)
	return last.Format("January 2"), nil
}
