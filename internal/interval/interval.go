// Package interval holds the temporal primitives shared by conflict
// detection and alternative-resource search. Intervals are half-open:
// touching endpoints do not overlap.
package interval

import (
	"math"
	"time"

	"github.com/portops/portsim/internal/domain"
)

// Severity thresholds in overlap hours.
const (
	criticalHours = 8
	highHours     = 4
	mediumHours   = 1
)

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// OverlapHours returns the length of the intersection in hours, or 0 when
// the intervals do not overlap.
func OverlapHours(aStart, aEnd, bStart, bEnd time.Time) float64 {
	w, ok := Intersect(aStart, aEnd, bStart, bEnd)
	if !ok {
		return 0
	}
	return w.Hours()
}

// Intersect returns the overlapping window.
func Intersect(aStart, aEnd, bStart, bEnd time.Time) (Window, bool) {
	if !Overlaps(aStart, aEnd, bStart, bEnd) {
		return Window{}, false
	}
	return Window{Start: later(aStart, bStart), End: earlier(aEnd, bEnd)}, true
}

// SeverityFromHours maps an overlap duration onto the severity staircase.
func SeverityFromHours(h float64) domain.Severity {
	switch {
	case h >= criticalHours:
		return domain.SeverityCritical
	case h >= highHours:
		return domain.SeverityHigh
	case h >= mediumHours:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

// CeilHours rounds d up to the next whole hour. Non-positive durations yield 0.
func CeilHours(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return math.Ceil(d.Hours())
}

// Window is a half-open time window.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Overlaps(o Window) bool {
	return Overlaps(w.Start, w.End, o.Start, o.End)
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

func (w Window) Hours() float64 {
	return w.Duration().Hours()
}

func (w Window) TimeRange() *domain.TimeRange {
	return &domain.TimeRange{Start: w.Start, End: w.End}
}

// TaskWindow returns the window a task occupies.
func TaskWindow(t *domain.Task) Window {
	return Window{Start: t.StartTime, End: t.EndTime}
}

func later(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
