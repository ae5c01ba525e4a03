package forecast

import (
	"fmt"
	"strings"
	"time"
)

// TimestampLayout is how point timestamps are rendered.
const TimestampLayout = "2006-01-02 15:04:05"

// PointInTime is one hourly snapshot of the forecast. It holds at most one
// value per attribute, except Darkness which accumulates every 15 minute
// sample that falls in the hour.
type PointInTime struct {
	Time     time.Time
	values   map[Attribute]Value
	darkness []float64
}

func NewPointInTime(ts time.Time) *PointInTime {
	return &PointInTime{Time: ts, values: make(map[Attribute]Value)}
}

// Add stores a value. Darkness values are appended in arrival order; any
// other attribute replaces the previous value.
func (p *PointInTime) Add(v Value) {
	if v.Attribute == Darkness {
		p.darkness = append(p.darkness, v.Number)
		return
	}
	p.values[v.Attribute] = v
}

// Value returns the reading for a single-valued attribute.
func (p *PointInTime) Value(attr Attribute) (Value, bool) {
	v, ok := p.values[attr]
	return v, ok
}

// Darkness returns the darkness samples in insertion order.
func (p *PointInTime) Darkness() []float64 {
	out := make([]float64, len(p.darkness))
	copy(out, p.darkness)
	return out
}

// Has reports whether the point carries data for attr.
func (p *PointInTime) Has(attr Attribute) bool {
	if attr == Darkness {
		return len(p.darkness) > 0
	}
	_, ok := p.values[attr]
	return ok
}

// Len is the number of attributes with data.
func (p *PointInTime) Len() int {
	n := len(p.values)
	if len(p.darkness) > 0 {
		n++
	}
	return n
}

func (p *PointInTime) String() string {
	return fmt.Sprintf("%s with %d attributes", p.Time.Format(TimestampLayout), p.Len())
}

// Describe lists every reading, one per line, in attribute order.
func (p *PointInTime) Describe() string {
	var b strings.Builder
	b.WriteString(p.Time.Format(TimestampLayout))
	b.WriteString("\n")
	for _, attr := range Attributes {
		if !p.Has(attr) {
			continue
		}
		text := ""
		if attr == Darkness {
			text = FormatDarkness(p.darkness)
		} else {
			text = FormatValue(p.values[attr])
		}
		fmt.Fprintf(&b, "%s: %s\n", attr, text)
	}
	return b.String()
}

// Reading is one raw cell of the forecast table as delivered by a source.
type Reading struct {
	Time      time.Time
	Attribute Attribute
	Text      string
}

// Series is the ordered forecast for one location. Points are kept in the
// order they were first referenced, which the source guarantees to be
// chronological.
type Series struct {
	Location string
	// Malformed counts cells that fell back to a worst-case value.
	Malformed int

	points []*PointInTime
	index  map[time.Time]int
}

func NewSeries(location string) *Series {
	return &Series{Location: location, index: make(map[time.Time]int)}
}

// BuildSeries parses readings in source order into a series.
func BuildSeries(location string, readings []Reading) *Series {
	s := NewSeries(location)
	for _, r := range readings {
		s.AddReading(r)
	}
	return s
}

// AddReading parses one cell and stores it on the point for its timestamp,
// creating the point on first reference.
func (s *Series) AddReading(r Reading) {
	v, ok := ParseStrict(r.Attribute, r.Text)
	if !ok {
		s.Malformed++
	}
	s.Point(r.Time).Add(v)
}

// Point returns the point for ts, creating and appending it when absent.
func (s *Series) Point(ts time.Time) *PointInTime {
	if i, ok := s.index[ts]; ok {
		return s.points[i]
	}
	p := NewPointInTime(ts)
	s.index[ts] = len(s.points)
	s.points = append(s.points, p)
	return p
}

// Lookup returns the point for ts without creating it.
func (s *Series) Lookup(ts time.Time) (*PointInTime, bool) {
	i, ok := s.index[ts]
	if !ok {
		return nil, false
	}
	return s.points[i], true
}

// Points returns the points in series order. Callers must not modify them.
func (s *Series) Points() []*PointInTime {
	return s.points
}

func (s *Series) Len() int {
	return len(s.points)
}

// Span returns the first and last timestamps. ok is false for an empty series.
func (s *Series) Span() (first, last time.Time, ok bool) {
	if len(s.points) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return s.points[0].Time, s.points[len(s.points)-1].Time, true
}
