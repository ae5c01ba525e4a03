package forecast

import (
	"encoding/json"
	"fmt"
	"math"
)

// Range is an inclusive numeric span. Either bound may be infinite.
type Range struct {
	Min float64
	Max float64
}

// MarshalJSON encodes the range as a two-element array. JSON has no
// infinities, so an infinite bound is written as null; its position tells
// which sign it had.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]*float64{finiteOrNil(r.Min), finiteOrNil(r.Max)})
}

func (r *Range) UnmarshalJSON(data []byte) error {
	var pair [2]*float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	r.Min = math.Inf(-1)
	if pair[0] != nil {
		r.Min = *pair[0]
	}
	r.Max = math.Inf(1)
	if pair[1] != nil {
		r.Max = *pair[1]
	}
	return nil
}

func finiteOrNil(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// Value is a typed forecast reading. Attribute is the tag; exactly one of
// the payload fields is meaningful for a given tag:
//
//	CloudCover, Smoke      Number (integer percent, ug/m^3)
//	Seeing                 Number (fraction of 5, 0.0..1.0)
//	Darkness               Number (limiting magnitude, -4.0..6.5)
//	Transparency           Level
//	Wind, Humidity,
//	Temperature            Range
//
// Values are built with the constructors below so that the payload always
// matches the tag.
type Value struct {
	Attribute Attribute
	Number    float64
	Level     TransparencyLevel
	Range     Range
}

func CloudCoverValue(percent int) Value {
	return Value{Attribute: CloudCover, Number: float64(percent)}
}

func TransparencyValue(level TransparencyLevel) Value {
	return Value{Attribute: Transparency, Level: level}
}

func SeeingValue(fraction float64) Value {
	return Value{Attribute: Seeing, Number: fraction}
}

func DarknessValue(magnitude float64) Value {
	return Value{Attribute: Darkness, Number: magnitude}
}

func SmokeValue(micrograms int) Value {
	return Value{Attribute: Smoke, Number: float64(micrograms)}
}

func WindValue(min, max float64) Value {
	return Value{Attribute: Wind, Range: Range{Min: min, Max: max}}
}

func HumidityValue(min, max float64) Value {
	return Value{Attribute: Humidity, Range: Range{Min: min, Max: max}}
}

func TemperatureValue(min, max float64) Value {
	return Value{Attribute: Temperature, Range: Range{Min: min, Max: max}}
}

func (v Value) String() string {
	return fmt.Sprintf("%s: %s", v.Attribute, FormatValue(v))
}
