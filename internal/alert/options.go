package alert

import (
	"fmt"
	"strconv"

	"darksky-monitor/internal/forecast"
)

// Option is one selectable threshold with its display label.
type Option struct {
	Label     string    `json:"label"`
	Value     string    `json:"value"`
	Threshold Threshold `json:"-"`
}

// ThresholdOptions lists the thresholds a user can pick for attr, best to
// worst for the forecast's own scale.
func ThresholdOptions(attr forecast.Attribute) ([]Option, error) {
	switch attr {
	case forecast.CloudCover:
		var opts []Option
		for pct := 0; pct <= 100; pct += 10 {
			t := MaxCloudCover(float64(pct))
			opts = append(opts, Option{Label: t.Text(), Value: strconv.Itoa(pct), Threshold: t})
		}
		return opts, nil
	case forecast.Transparency:
		opts := make([]Option, 0, len(forecast.TransparencyLevels))
		for _, level := range forecast.TransparencyLevels {
			opts = append(opts, Option{Label: level.String(), Value: strconv.Itoa(int(level)), Threshold: WorstTransparency(level)})
		}
		return opts, nil
	case forecast.Seeing:
		opts := make([]Option, 0, len(forecast.SeeingLabels))
		for _, s := range forecast.SeeingLabels {
			opts = append(opts, numeric(s.Label, MinSeeing(s.Value)))
		}
		return opts, nil
	case forecast.Darkness:
		var opts []Option
		for _, mag := range darknessSteps {
			label := strconv.FormatFloat(mag, 'f', 1, 64)
			if mag == darknessSteps[0] {
				label += " (Darkest)"
			}
			opts = append(opts, numeric(label, MinDarkness(mag)))
		}
		return opts, nil
	case forecast.Smoke:
		var opts []Option
		for _, ug := range smokeSteps {
			t := MaxSmoke(ug)
			opts = append(opts, numeric(t.Text(), t))
		}
		return opts, nil
	case forecast.Wind:
		opts := make([]Option, 0, len(forecast.WindBuckets)+1)
		for _, b := range forecast.WindBuckets {
			opts = append(opts, numeric(b.Label, MaxWind(b.Max)))
		}
		opts = append(opts, numeric(forecast.WindBucketLabel(100), MaxWind(100)))
		return opts, nil
	case forecast.Humidity:
		var opts []Option
		for pct := 25; pct <= 100; pct += 5 {
			t := MaxHumidity(float64(pct))
			opts = append(opts, numeric(t.Text(), t))
		}
		return opts, nil
	case forecast.Temperature:
		return temperatureOptions(), nil
	}
	return nil, fmt.Errorf("unknown attribute %d", int(attr))
}

var darknessSteps = []float64{6.5, 6.0, 5.5, 5.0, 4.5, 4.0, 3.5, 3.0, 2.0, 1.0, 0.0, -1.0, -2.0, -3.0, -4.0}

var smokeSteps = []float64{0, 2, 5, 10, 20, 40, 60, 80, 100, 200, 500}

// Temperature options are single band mid-points; a profile's range is
// built from two of them.
func temperatureOptions() []Option {
	opts := []Option{{Label: "< -40F", Value: "-40", Threshold: TemperatureRange(-40, -40)}}
	for _, b := range forecast.TemperatureBuckets {
		mid := (b.Min + b.Max) / 2
		opts = append(opts, Option{
			Label:     fmt.Sprintf("%sF to %sF", trim(b.Min), trim(b.Max)),
			Value:     trim(mid),
			Threshold: TemperatureRange(mid, mid),
		})
	}
	return append(opts, Option{Label: ">113F", Value: "113", Threshold: TemperatureRange(113, 113)})
}

func numeric(label string, t Threshold) Option {
	return Option{Label: label, Value: trim(t.Bound), Threshold: t}
}

func trim(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
