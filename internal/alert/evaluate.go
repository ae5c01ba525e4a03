package alert

import (
	"time"

	"darksky-monitor/internal/forecast"
)

// Interval is a qualifying run, from the first to the last passing point.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PassesHour reports whether every configured threshold holds at p.
func (p *Profile) PassesHour(pt *forecast.PointInTime) bool {
	for _, t := range p.thresholds {
		if !t.Passes(pt) {
			return false
		}
	}
	return true
}

// Evaluate scans the series once and returns every maximal run of passing
// points that is at least MinDuration points long, in series order. It does
// not look at s.Location.
func Evaluate(p *Profile, s *forecast.Series) []Interval {
	intervals := []Interval{}
	if s == nil {
		return intervals
	}

	var (
		count int
		start time.Time
		prev  time.Time
	)
	flush := func() {
		if count > 0 && count >= p.MinDuration {
			intervals = append(intervals, Interval{Start: start, End: prev})
		}
		count = 0
	}

	for _, pt := range s.Points() {
		if p.PassesHour(pt) {
			count++
			if count == 1 {
				start = pt.Time
			}
		} else {
			flush()
		}
		prev = pt.Time
	}
	flush()

	return intervals
}
