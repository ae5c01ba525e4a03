package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCloudCover(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"Clear", 0},
		{"Overcast", 100},
		{"30% covered", 30},
		{"  90% covered (12:00)", 90},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, ok := ParseStrict(CloudCover, tt.text)
			require.True(t, ok)
			assert.Equal(t, CloudCover, v.Attribute)
			assert.Equal(t, tt.want, v.Number)
		})
	}
}

func TestParseTransparency(t *testing.T) {
	tests := []struct {
		text string
		want TransparencyLevel
	}{
		{"Transparent", Transparent},
		{"Above Average", AboveAverage},
		{"Average", Average},
		{"Below Average", BelowAverage},
		{"Poor", Poor},
		{"Too cloudy to forecast", TooCloudyToForecast},
		// more than one cue: the better level wins
		{"Transparent or Poor", Transparent},
		{"Below Average (13:00)", BelowAverage},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v := Parse(Transparency, tt.text)
			assert.Equal(t, tt.want, v.Level)
		})
	}
}

func TestParseSeeing(t *testing.T) {
	v := Parse(Seeing, "Too cloudy to forecast")
	assert.Equal(t, 0.0, v.Number)

	v = Parse(Seeing, "Excellent 5/5")
	assert.InDelta(t, 1.0, v.Number, 1e-9)

	v = Parse(Seeing, "Poor 2/5")
	assert.InDelta(t, 0.4, v.Number, 1e-9)
}

func TestParseDarkness(t *testing.T) {
	assert.Equal(t, 4.8, Parse(Darkness, "Limiting Mag: 4.8").Number)
	assert.Equal(t, -4.8, Parse(Darkness, "Limiting Mag: -4.8 (20:15)").Number)
}

func TestParseSmoke(t *testing.T) {
	assert.Equal(t, 0.0, Parse(Smoke, "No Smoke").Number)
	assert.Equal(t, 20.0, Parse(Smoke, "20 ug/m^3").Number)
}

func TestParseRanges(t *testing.T) {
	tests := []struct {
		attr Attribute
		text string
		want Range
	}{
		{Wind, "0 to 5 mph", Range{0, 5}},
		{Wind, "17 to 28 mph", Range{17, 28}},
		{Wind, ">45 mph", Range{45, math.Inf(1)}},
		{Humidity, "<25%", Range{0, 25}},
		{Humidity, "60% to 65%", Range{60, 65}},
		{Temperature, "< -40F", Range{math.Inf(-1), -40}},
		{Temperature, "-12F to -3F", Range{-12, -3}},
		{Temperature, "50F to 59F", Range{50, 59}},
		{Temperature, ">113F", Range{113, math.Inf(1)}},
	}
	for _, tt := range tests {
		t.Run(tt.attr.Key()+" "+tt.text, func(t *testing.T) {
			v, ok := ParseStrict(tt.attr, tt.text)
			require.True(t, ok)
			assert.Equal(t, tt.want, v.Range)
		})
	}
}

func TestParseMalformedFallsBack(t *testing.T) {
	tests := []struct {
		attr Attribute
		want Value
	}{
		{CloudCover, CloudCoverValue(100)},
		{Transparency, TransparencyValue(TooCloudyToForecast)},
		{Seeing, SeeingValue(0)},
		{Darkness, DarknessValue(-4)},
		{Smoke, SmokeValue(500)},
		{Wind, WindValue(45, math.Inf(1))},
		{Humidity, HumidityValue(95, 100)},
		{Temperature, TemperatureValue(113, math.Inf(1))},
	}
	for _, tt := range tests {
		for _, text := range []string{"", "garbage", "n/a"} {
			t.Run(tt.attr.Key()+"/"+text, func(t *testing.T) {
				v, ok := ParseStrict(tt.attr, text)
				assert.False(t, ok)
				assert.Equal(t, tt.want, v)
				assert.NotPanics(t, func() { Parse(tt.attr, text) })
			})
		}
	}
}

func TestParseRangeWithOneNumberFallsBack(t *testing.T) {
	_, ok := ParseStrict(Wind, "12 mph")
	assert.False(t, ok)
	_, ok = ParseStrict(Humidity, "60%")
	assert.False(t, ok)
	_, ok = ParseStrict(Temperature, "50F")
	assert.False(t, ok)
}

func TestParseAttribute(t *testing.T) {
	for _, in := range []string{"cloud_cover", "CLOUD_COVER", "Cloud Cover", "cloud-cover", "1"} {
		a, err := ParseAttribute(in)
		require.NoError(t, err, in)
		assert.Equal(t, CloudCover, a)
	}
	_, err := ParseAttribute("pressure")
	assert.Error(t, err)
}

func TestParseTransparencyLevel(t *testing.T) {
	l, err := ParseTransparencyLevel("below_average")
	require.NoError(t, err)
	assert.Equal(t, BelowAverage, l)

	l, err = ParseTransparencyLevel("5")
	require.NoError(t, err)
	assert.Equal(t, TooCloudyToForecast, l)

	_, err = ParseTransparencyLevel("murky")
	assert.Error(t, err)
}
