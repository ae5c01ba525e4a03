package forecast

import (
	"fmt"
	"strings"
)

// Attribute identifies one row of the forecast table. It selects both the
// parsing rule and the comparison rule for a value.
type Attribute int

const (
	CloudCover Attribute = iota + 1
	Transparency
	Seeing
	Darkness
	Smoke
	Wind
	Humidity
	Temperature
)

// Attributes lists every attribute in table order.
var Attributes = []Attribute{
	CloudCover,
	Transparency,
	Seeing,
	Darkness,
	Smoke,
	Wind,
	Humidity,
	Temperature,
}

var attributeKeys = map[Attribute]string{
	CloudCover:   "cloud_cover",
	Transparency: "transparency",
	Seeing:       "seeing",
	Darkness:     "darkness",
	Smoke:        "smoke",
	Wind:         "wind",
	Humidity:     "humidity",
	Temperature:  "temperature",
}

var attributeLabels = map[Attribute]string{
	CloudCover:   "Cloud Cover",
	Transparency: "Transparency",
	Seeing:       "Seeing",
	Darkness:     "Darkness",
	Smoke:        "Smoke",
	Wind:         "Wind",
	Humidity:     "Humidity",
	Temperature:  "Temperature",
}

func (a Attribute) Valid() bool {
	_, ok := attributeKeys[a]
	return ok
}

// Key is the stable snake_case name used in storage, URLs and CLI arguments.
func (a Attribute) Key() string {
	if k, ok := attributeKeys[a]; ok {
		return k
	}
	return fmt.Sprintf("attribute(%d)", int(a))
}

// Label is the human readable name.
func (a Attribute) Label() string {
	if l, ok := attributeLabels[a]; ok {
		return l
	}
	return a.Key()
}

// String renders the upper-case form used in profile descriptions, e.g. CLOUD_COVER.
func (a Attribute) String() string {
	return strings.ToUpper(a.Key())
}

func (a Attribute) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("unknown attribute %d", int(a))
	}
	return []byte(a.Key()), nil
}

func (a *Attribute) UnmarshalText(text []byte) error {
	parsed, err := ParseAttribute(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAttribute accepts the key ("cloud_cover"), the upper-case name
// ("CLOUD_COVER"), the label ("Cloud Cover") or the ordinal ("1").
func ParseAttribute(s string) (Attribute, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for a, key := range attributeKeys {
		if key == normalized || fmt.Sprint(int(a)) == normalized {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute %q", s)
}

// TransparencyLevel is ordered best to worst; a lower ordinal is more transparent.
type TransparencyLevel int

const (
	Transparent TransparencyLevel = iota
	AboveAverage
	Average
	BelowAverage
	Poor
	// TooCloudyToForecast only appears as an alert threshold or as the
	// fallback for unrecognised cells. It ranks worst.
	TooCloudyToForecast
)

// TransparencyLevels lists every level best to worst.
var TransparencyLevels = []TransparencyLevel{
	Transparent,
	AboveAverage,
	Average,
	BelowAverage,
	Poor,
	TooCloudyToForecast,
}

var transparencyNames = map[TransparencyLevel]string{
	Transparent:         "Transparent",
	AboveAverage:        "Above Average",
	Average:             "Average",
	BelowAverage:        "Below Average",
	Poor:                "Poor",
	TooCloudyToForecast: "Too cloudy to forecast",
}

func (t TransparencyLevel) Valid() bool {
	_, ok := transparencyNames[t]
	return ok
}

func (t TransparencyLevel) String() string {
	if n, ok := transparencyNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TransparencyLevel(%d)", int(t))
}

// ParseTransparencyLevel accepts a level name in any case, with spaces or
// underscores, or its ordinal.
func ParseTransparencyLevel(s string) (TransparencyLevel, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, "_", " ")
	for level, name := range transparencyNames {
		if strings.ToLower(name) == normalized || fmt.Sprint(int(level)) == normalized {
			return level, nil
		}
	}
	return 0, fmt.Errorf("unknown transparency level %q", s)
}
