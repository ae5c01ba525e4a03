package forecast

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	intRe        = regexp.MustCompile(`\d+`)
	signedIntRe  = regexp.MustCompile(`-?\d+`)
	signedDecRe  = regexp.MustCompile(`-?\d+\.\d+`)
	percentIntRe = regexp.MustCompile(`^\s*(\d+)\s*%`)
)

// Worst-case values substituted for cells that cannot be parsed.
var (
	fallbackCloudCover   = CloudCoverValue(100)
	fallbackTransparency = TransparencyValue(TooCloudyToForecast)
	fallbackSeeing       = SeeingValue(0)
	fallbackDarkness     = DarknessValue(-4)
	fallbackSmoke        = SmokeValue(500)
	fallbackWind         = WindValue(45, math.Inf(1))
	fallbackHumidity     = HumidityValue(95, 100)
	fallbackTemperature  = TemperatureValue(113, math.Inf(1))
)

const (
	windCeiling        = 45
	temperatureCeiling = 113
)

// Parse converts the text of one forecast cell into a typed value. It never
// fails: text that does not have the expected shape yields the worst value
// for the attribute.
func Parse(attr Attribute, text string) Value {
	v, _ := ParseStrict(attr, text)
	return v
}

// ParseStrict is Parse that also reports whether the text was well formed.
// When ok is false the returned value is the attribute's fallback.
func ParseStrict(attr Attribute, text string) (Value, bool) {
	switch attr {
	case CloudCover:
		return parseCloudCover(text)
	case Transparency:
		return parseTransparency(text)
	case Seeing:
		return parseSeeing(text)
	case Darkness:
		return parseDarkness(text)
	case Smoke:
		return parseSmoke(text)
	case Wind:
		return parseWind(text)
	case Humidity:
		return parseHumidity(text)
	case Temperature:
		return parseTemperature(text)
	default:
		return Value{Attribute: attr}, false
	}
}

func parseCloudCover(text string) (Value, bool) {
	switch {
	case strings.Contains(text, "Clear"):
		return CloudCoverValue(0), true
	case strings.Contains(text, "Overcast"):
		return CloudCoverValue(100), true
	}
	m := percentIntRe.FindStringSubmatch(text)
	if m == nil {
		return fallbackCloudCover, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return fallbackCloudCover, false
	}
	return CloudCoverValue(n), true
}

// transparencyCues is checked in order; "Below Average" must be tried before
// "Average" because it contains it.
var transparencyCues = []struct {
	cue   string
	level TransparencyLevel
}{
	{"Transparent", Transparent},
	{"Above Average", AboveAverage},
	{"Below Average", BelowAverage},
	{"Average", Average},
	{"Poor", Poor},
}

func parseTransparency(text string) (Value, bool) {
	for _, c := range transparencyCues {
		if strings.Contains(text, c.cue) {
			return TransparencyValue(c.level), true
		}
	}
	if strings.Contains(strings.ToLower(text), "too cloudy") {
		return TransparencyValue(TooCloudyToForecast), true
	}
	return fallbackTransparency, false
}

func parseSeeing(text string) (Value, bool) {
	if strings.Contains(text, "Too cloudy to forecast") {
		return SeeingValue(0), true
	}
	n, ok := firstInt(intRe, text)
	if !ok {
		return fallbackSeeing, false
	}
	return SeeingValue(float64(n) / 5.0), true
}

func parseDarkness(text string) (Value, bool) {
	m := signedDecRe.FindString(text)
	if m == "" {
		return fallbackDarkness, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return fallbackDarkness, false
	}
	return DarknessValue(f), true
}

func parseSmoke(text string) (Value, bool) {
	if strings.Contains(text, "No Smoke") {
		return SmokeValue(0), true
	}
	n, ok := firstInt(intRe, text)
	if !ok {
		return fallbackSmoke, false
	}
	return SmokeValue(n), true
}

func parseWind(text string) (Value, bool) {
	ints := allInts(intRe, text)
	if len(ints) == 0 {
		return fallbackWind, false
	}
	if ints[0] == windCeiling {
		return WindValue(windCeiling, math.Inf(1)), true
	}
	if len(ints) < 2 {
		return fallbackWind, false
	}
	return WindValue(float64(ints[0]), float64(ints[1])), true
}

func parseHumidity(text string) (Value, bool) {
	ints := allInts(intRe, text)
	if len(ints) == 0 {
		return fallbackHumidity, false
	}
	if strings.HasPrefix(text, "<") {
		return HumidityValue(0, float64(ints[0])), true
	}
	if len(ints) < 2 {
		return fallbackHumidity, false
	}
	return HumidityValue(float64(ints[0]), float64(ints[1])), true
}

func parseTemperature(text string) (Value, bool) {
	ints := allInts(signedIntRe, text)
	if len(ints) == 0 {
		return fallbackTemperature, false
	}
	if strings.HasPrefix(text, "<") {
		return TemperatureValue(math.Inf(-1), float64(ints[0])), true
	}
	if ints[0] == temperatureCeiling {
		return TemperatureValue(temperatureCeiling, math.Inf(1)), true
	}
	if len(ints) < 2 {
		return fallbackTemperature, false
	}
	return TemperatureValue(float64(ints[0]), float64(ints[1])), true
}

func firstInt(re *regexp.Regexp, text string) (int, bool) {
	m := re.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func allInts(re *regexp.Regexp, text string) []int {
	matches := re.FindAllString(text, -1)
	out := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			break
		}
		out = append(out, n)
	}
	return out
}
