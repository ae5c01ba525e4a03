package alert

import (
	"strings"
	"time"
)

const (
	dayLayout  = "January 02, 15:04"
	hourLayout = "15:04"
)

// FormatReport renders the message sent for one check.
func FormatReport(location string, intervals []Interval) string {
	var b strings.Builder
	b.WriteString("For ")
	b.WriteString(location)
	b.WriteString("...\n")

	if len(intervals) == 0 {
		b.WriteString("No alerts!")
		return b.String()
	}

	b.WriteString("Conditions met from ")
	for i, iv := range intervals {
		switch {
		case i == 0:
		case len(intervals) == 2:
			b.WriteString(" and ")
		default:
			b.WriteString(", ")
		}
		b.WriteString(FormatInterval(iv))
	}
	return b.String()
}

// FormatInterval drops the date from the end when the run stays within one day.
func FormatInterval(iv Interval) string {
	start := iv.Start.Format(dayLayout)
	if sameDay(iv.Start, iv.End) {
		return start + " to " + iv.End.Format(hourLayout)
	}
	return start + " to " + iv.End.Format(dayLayout)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
