package forecast

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatError is returned by the formatters when a value does not have the
// shape its attribute requires. Display is best effort.
const FormatError = "ERROR"

// SeeingLabels maps a seeing fraction to its adjective.
var SeeingLabels = []struct {
	Value float64
	Label string
}{
	{1.0, "Excellent"},
	{0.8, "Good"},
	{0.6, "Average"},
	{0.4, "Poor"},
	{0.2, "Terrible"},
	{0.0, "Too cloudy to forecast"},
}

// WindBuckets are the forecast's wind bands, keyed by their upper bound in mph.
var WindBuckets = []struct {
	Max   float64
	Label string
}{
	{5, "0 to 5 mph"},
	{11, "6 to 11 mph"},
	{16, "12 to 16 mph"},
	{28, "17 to 28 mph"},
	{45, "29 to 45 mph"},
}

const windOverLabel = ">45 mph"

// TemperatureBuckets are the forecast's temperature bands in Fahrenheit.
// A reading t falls in bucket i when Min <= t < bucket[i+1].Min.
var TemperatureBuckets = []struct {
	Min, Max float64
}{
	{-40, -31}, {-30, -21}, {-21, -12}, {-12, -3}, {-3, 5}, {5, 14},
	{14, 23}, {23, 32}, {32, 41}, {41, 50}, {50, 59}, {59, 68},
	{68, 77}, {77, 86}, {86, 95}, {95, 104}, {104, 113},
}

// FormatValue renders a forecast reading the way the forecast table labels it.
// It is the inverse of Parse for well formed cells.
func FormatValue(v Value) string {
	switch v.Attribute {
	case CloudCover:
		return formatCloudCover(v.Number)
	case Transparency:
		return formatTransparency(v.Level)
	case Seeing:
		return formatSeeing(v.Number)
	case Darkness:
		return formatDarkness(v.Number)
	case Smoke:
		return formatSmoke(v.Number)
	case Wind:
		if invalidRange(v.Range) {
			return FormatError
		}
		if math.IsInf(v.Range.Max, 1) {
			return windOverLabel
		}
		return fmt.Sprintf("%s to %s mph", num(v.Range.Min), num(v.Range.Max))
	case Humidity:
		if invalidRange(v.Range) {
			return FormatError
		}
		if v.Range.Min == 0 {
			return fmt.Sprintf("<%s%%", num(v.Range.Max))
		}
		return fmt.Sprintf("%s%% to %s%%", num(v.Range.Min), num(v.Range.Max))
	case Temperature:
		if invalidRange(v.Range) {
			return FormatError
		}
		switch {
		case math.IsInf(v.Range.Min, -1):
			return fmt.Sprintf("< %sF", num(v.Range.Max))
		case math.IsInf(v.Range.Max, 1):
			return fmt.Sprintf(">%sF", num(v.Range.Min))
		}
		return fmt.Sprintf("%sF to %sF", num(v.Range.Min), num(v.Range.Max))
	default:
		return FormatError
	}
}

// FormatDarkness renders a list of darkness samples.
func FormatDarkness(samples []float64) string {
	if len(samples) == 0 {
		return FormatError
	}
	parts := make([]string, len(samples))
	for i, s := range samples {
		parts[i] = formatDarkness(s)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func formatCloudCover(pct float64) string {
	switch {
	case math.IsNaN(pct) || pct < 0 || pct > 100:
		return FormatError
	case pct == 0:
		return "Clear"
	case pct >= 100:
		return "Overcast"
	}
	return fmt.Sprintf("%s%% covered", num(pct))
}

func formatTransparency(level TransparencyLevel) string {
	if !level.Valid() {
		return FormatError
	}
	return level.String()
}

func formatSeeing(fraction float64) string {
	for _, s := range SeeingLabels {
		if math.Abs(s.Value-fraction) < 1e-9 {
			return s.Label
		}
	}
	return FormatError
}

func formatDarkness(mag float64) string {
	if math.IsNaN(mag) || math.IsInf(mag, 0) {
		return FormatError
	}
	return strconv.FormatFloat(mag, 'f', 1, 64)
}

func formatSmoke(ug float64) string {
	switch {
	case math.IsNaN(ug) || ug < 0:
		return FormatError
	case ug == 0:
		return "No Smoke"
	}
	return fmt.Sprintf("%s ug/m^3", num(ug))
}

// WindBucketLabel names the wind band that a speed bound falls in.
func WindBucketLabel(mph float64) string {
	if math.IsNaN(mph) {
		return FormatError
	}
	for _, b := range WindBuckets {
		if mph <= b.Max {
			return b.Label
		}
	}
	return windOverLabel
}

// HumidityBucketLabel names the 5% humidity band that a bound falls in.
func HumidityBucketLabel(pct float64) string {
	if math.IsNaN(pct) {
		return FormatError
	}
	if pct <= 25 {
		return "<25%"
	}
	for upper := 30; upper < 100; upper += 5 {
		if pct <= float64(upper) {
			return fmt.Sprintf("%d%% to %d%%", upper-5, upper)
		}
	}
	return "95% to 100%"
}

// TemperatureBucketLabel names the temperature band that a threshold bound
// falls in. Bands run from one bucket's Min to the next bucket's Min, so
// they read "-40F to -30F" rather than the table's "-40F to -31F".
func TemperatureBucketLabel(f float64) string {
	if math.IsNaN(f) {
		return FormatError
	}
	if f < TemperatureBuckets[0].Min {
		return "< -40F"
	}
	for i, b := range TemperatureBuckets {
		next := float64(temperatureCeiling)
		if i+1 < len(TemperatureBuckets) {
			next = TemperatureBuckets[i+1].Min
		}
		if f < next {
			return fmt.Sprintf("%sF to %sF", num(b.Min), num(next))
		}
	}
	return "> 113F"
}

func invalidRange(r Range) bool {
	return math.IsNaN(r.Min) || math.IsNaN(r.Max) || r.Min > r.Max
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
