package alert

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"darksky-monitor/internal/forecast"
)

// Threshold is the worst acceptable value for one attribute. Like
// forecast.Value it is a tagged struct; which payload field is read
// depends on Attribute:
//
//	Transparency   Level
//	Temperature    Range, the acceptable band
//	others         Bound
type Threshold struct {
	Attribute forecast.Attribute
	Bound     float64
	Level     forecast.TransparencyLevel
	Range     forecast.Range
}

func MaxCloudCover(percent float64) Threshold {
	return Threshold{Attribute: forecast.CloudCover, Bound: percent}
}

func WorstTransparency(level forecast.TransparencyLevel) Threshold {
	return Threshold{Attribute: forecast.Transparency, Level: level}
}

func MinSeeing(fraction float64) Threshold {
	return Threshold{Attribute: forecast.Seeing, Bound: fraction}
}

func MinDarkness(magnitude float64) Threshold {
	return Threshold{Attribute: forecast.Darkness, Bound: magnitude}
}

func MaxSmoke(micrograms float64) Threshold {
	return Threshold{Attribute: forecast.Smoke, Bound: micrograms}
}

func MaxWind(mph float64) Threshold {
	return Threshold{Attribute: forecast.Wind, Bound: mph}
}

func MaxHumidity(percent float64) Threshold {
	return Threshold{Attribute: forecast.Humidity, Bound: percent}
}

func TemperatureRange(min, max float64) Threshold {
	return Threshold{Attribute: forecast.Temperature, Range: forecast.Range{Min: min, Max: max}}
}

// Passes applies the attribute's comparison rule to one point. A point with
// no data for the attribute passes.
func (t Threshold) Passes(p *forecast.PointInTime) bool {
	if t.Attribute == forecast.Darkness {
		samples := p.Darkness()
		if len(samples) == 0 {
			return true
		}
		// one dark enough quarter hour is enough for the whole hour
		for _, mag := range samples {
			if mag >= t.Bound {
				return true
			}
		}
		return false
	}

	v, ok := p.Value(t.Attribute)
	if !ok {
		return true
	}

	switch t.Attribute {
	case forecast.CloudCover, forecast.Smoke:
		return v.Number <= t.Bound
	case forecast.Transparency:
		return v.Level <= t.Level
	case forecast.Seeing:
		return v.Number >= t.Bound
	case forecast.Wind, forecast.Humidity:
		return v.Range.Min <= t.Bound
	case forecast.Temperature:
		return v.Range.Min >= t.Range.Min && v.Range.Max <= t.Range.Max
	}
	return true
}

// Text renders the threshold for profile descriptions.
func (t Threshold) Text() string {
	switch t.Attribute {
	case forecast.CloudCover:
		return forecast.FormatValue(forecast.CloudCoverValue(int(t.Bound)))
	case forecast.Transparency:
		return forecast.FormatValue(forecast.TransparencyValue(t.Level))
	case forecast.Seeing:
		return forecast.FormatValue(forecast.SeeingValue(t.Bound))
	case forecast.Darkness:
		return forecast.FormatValue(forecast.DarknessValue(t.Bound))
	case forecast.Smoke:
		return forecast.FormatValue(forecast.SmokeValue(int(t.Bound)))
	case forecast.Wind:
		return forecast.WindBucketLabel(t.Bound)
	case forecast.Humidity:
		return forecast.HumidityBucketLabel(t.Bound)
	case forecast.Temperature:
		return fmt.Sprintf("From (%s) to (%s)",
			forecast.TemperatureBucketLabel(t.Range.Min),
			forecast.TemperatureBucketLabel(t.Range.Max))
	}
	return forecast.FormatError
}

func (t Threshold) String() string {
	return fmt.Sprintf("%s: %s", t.Attribute, t.Text())
}

// MarshalJSON writes only the payload: a number, a transparency ordinal or
// a [min, max] pair. The attribute travels as the map key around it.
func (t Threshold) MarshalJSON() ([]byte, error) {
	switch t.Attribute {
	case forecast.Transparency:
		return json.Marshal(int(t.Level))
	case forecast.Temperature:
		return json.Marshal(t.Range)
	}
	if math.IsNaN(t.Bound) || math.IsInf(t.Bound, 0) {
		return nil, fmt.Errorf("%s threshold is not a finite number", t.Attribute)
	}
	return json.Marshal(t.Bound)
}

// DecodeThreshold is the inverse of MarshalJSON for a known attribute.
func DecodeThreshold(attr forecast.Attribute, raw json.RawMessage) (Threshold, error) {
	t := Threshold{Attribute: attr}
	switch attr {
	case forecast.Transparency:
		var ordinal int
		if err := json.Unmarshal(raw, &ordinal); err != nil {
			return t, fmt.Errorf("decode %s threshold: %w", attr.Key(), err)
		}
		t.Level = forecast.TransparencyLevel(ordinal)
		if !t.Level.Valid() {
			return t, fmt.Errorf("decode %s threshold: unknown level %d", attr.Key(), ordinal)
		}
	case forecast.Temperature:
		if err := json.Unmarshal(raw, &t.Range); err != nil {
			return t, fmt.Errorf("decode %s threshold: %w", attr.Key(), err)
		}
	default:
		if !attr.Valid() {
			return t, fmt.Errorf("decode threshold: unknown attribute %d", int(attr))
		}
		if err := json.Unmarshal(raw, &t.Bound); err != nil {
			return t, fmt.Errorf("decode %s threshold: %w", attr.Key(), err)
		}
	}
	return t, nil
}

// ParseThreshold reads a threshold from user input. Numeric attributes take
// a number, transparency a level name or ordinal, temperature "min,max"
// (either side may be empty for an open bound).
func ParseThreshold(attr forecast.Attribute, arg string) (Threshold, error) {
	arg = strings.TrimSpace(arg)
	switch attr {
	case forecast.Transparency:
		level, err := forecast.ParseTransparencyLevel(arg)
		if err != nil {
			return Threshold{}, err
		}
		return WorstTransparency(level), nil
	case forecast.Temperature:
		lo, hi, found := strings.Cut(arg, ",")
		if !found {
			return Threshold{}, fmt.Errorf("temperature threshold must be \"min,max\", got %q", arg)
		}
		min, err := parseBound(lo, math.Inf(-1))
		if err != nil {
			return Threshold{}, err
		}
		max, err := parseBound(hi, math.Inf(1))
		if err != nil {
			return Threshold{}, err
		}
		if min > max {
			return Threshold{}, fmt.Errorf("temperature threshold min %v above max %v", min, max)
		}
		return TemperatureRange(min, max), nil
	}

	if !attr.Valid() {
		return Threshold{}, fmt.Errorf("unknown attribute %d", int(attr))
	}
	f, err := strconv.ParseFloat(arg, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return Threshold{}, fmt.Errorf("%s threshold must be a number, got %q", attr.Key(), arg)
	}
	return Threshold{Attribute: attr, Bound: f}, nil
}

func parseBound(s string, open float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return open, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid temperature bound %q", s)
	}
	return f, nil
}
