package alert

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksky-monitor/internal/forecast"
)

var start = time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)

func hour(i int) time.Time {
	return start.Add(time.Duration(i) * time.Hour)
}

// randomSeries builds n hourly points with values drawn from the given
// generator, mirroring the spread of a real forecast page.
func randomSeries(n int, fill func(i int, p *forecast.PointInTime)) *forecast.Series {
	s := forecast.NewSeries("AlbanyNY")
	for i := 0; i < n; i++ {
		fill(i, s.Point(hour(i)))
	}
	return s
}

func fillTypical(rng *rand.Rand) func(int, *forecast.PointInTime) {
	return func(_ int, p *forecast.PointInTime) {
		p.Add(forecast.CloudCoverValue(rng.Intn(96)))
		p.Add(forecast.TransparencyValue(forecast.TransparencyLevel(rng.Intn(5))))
		p.Add(forecast.SeeingValue(float64(rng.Intn(5)+1) / 5))
		for j := 0; j < 4; j++ {
			p.Add(forecast.DarknessValue(float64(rng.Intn(10) - 3)))
		}
		p.Add(forecast.SmokeValue(rng.Intn(399) + 2))
		wind := float64(rng.Intn(16) + 5)
		p.Add(forecast.WindValue(wind, wind+10))
		humidity := float64(rng.Intn(61) + 10)
		p.Add(forecast.HumidityValue(humidity, humidity+10))
		temp := float64(rng.Intn(91) - 20)
		p.Add(forecast.TemperatureValue(temp, temp+10))
	}
}

func permissiveProfile() *Profile {
	p := NewProfile("user", "name of profile", "AlbanyNY")
	p.SetDuration(1)
	p.Add(MaxCloudCover(99))
	p.Add(WorstTransparency(forecast.TooCloudyToForecast))
	p.Add(MinSeeing(0))
	p.Add(MinDarkness(-4))
	p.Add(MaxSmoke(500))
	p.Add(MaxWind(45))
	p.Add(MaxHumidity(95))
	p.Add(TemperatureRange(-30, 100))
	return p
}

func TestEvaluateImpossibleThresholds(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	s := randomSeries(80, func(_ int, p *forecast.PointInTime) {
		p.Add(forecast.CloudCoverValue(rng.Intn(96) + 5))
		p.Add(forecast.TransparencyValue(forecast.TransparencyLevel(rng.Intn(5) + 1)))
		p.Add(forecast.SeeingValue(float64(rng.Intn(5)) / 5))
		for j := 0; j < rng.Intn(5); j++ {
			p.Add(forecast.DarknessValue(float64(rng.Intn(9) - 4)))
		}
		p.Add(forecast.SmokeValue(rng.Intn(499) + 2))
		wind := float64(rng.Intn(46) + 5)
		p.Add(forecast.WindValue(wind, wind+10))
		humidity := float64(rng.Intn(91) + 10)
		p.Add(forecast.HumidityValue(humidity, humidity+10))
		temp := float64(rng.Intn(91) - 40)
		p.Add(forecast.TemperatureValue(temp, temp+10))
	})

	p := NewProfile("user", "name of profile", "AlbanyNY")
	p.SetDuration(1)
	p.Add(MaxCloudCover(2))
	p.Add(WorstTransparency(forecast.Transparent))
	p.Add(MinSeeing(1.0))
	p.Add(MinDarkness(4.5))
	p.Add(MaxSmoke(1))
	p.Add(MaxWind(3))
	p.Add(MaxHumidity(5))
	p.Add(TemperatureRange(66, 80))

	assert.Empty(t, Evaluate(p, s))
}

func TestEvaluateWholeSeriesMatches(t *testing.T) {
	s := randomSeries(80, fillTypical(rand.New(rand.NewSource(2))))
	p := permissiveProfile()
	p.Add(MaxCloudCover(100))

	got := Evaluate(p, s)
	require.Len(t, got, 1)
	assert.Equal(t, Interval{Start: hour(0), End: hour(79)}, got[0])
}

func TestEvaluateSplitsOnFailingPoint(t *testing.T) {
	typical := fillTypical(rand.New(rand.NewSource(3)))
	s := randomSeries(80, func(i int, p *forecast.PointInTime) {
		typical(i, p)
		if i == 40 {
			p.Add(forecast.CloudCoverValue(100))
		}
	})

	got := Evaluate(permissiveProfile(), s)
	assert.Equal(t, []Interval{
		{Start: hour(0), End: hour(39)},
		{Start: hour(41), End: hour(79)},
	}, got)
}

func TestEvaluateEmptyProfile(t *testing.T) {
	s := randomSeries(80, fillTypical(rand.New(rand.NewSource(4))))
	p := NewProfile("user", "empty", "AlbanyNY")

	got := Evaluate(p, s)
	assert.Equal(t, []Interval{{Start: hour(0), End: hour(79)}}, got)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	typical := fillTypical(rand.New(rand.NewSource(5)))
	s := randomSeries(48, func(i int, p *forecast.PointInTime) {
		typical(i, p)
		if i%7 == 0 {
			p.Add(forecast.CloudCoverValue(100))
		}
	})
	p := permissiveProfile()

	assert.Equal(t, Evaluate(p, s), Evaluate(p, s))
}

func TestEvaluateMinDuration(t *testing.T) {
	// pass pattern: 2 passing, 1 failing, 4 passing, 1 failing, 3 passing
	pattern := []bool{true, true, false, true, true, true, true, false, true, true, true}
	s := randomSeries(len(pattern), func(i int, p *forecast.PointInTime) {
		if pattern[i] {
			p.Add(forecast.CloudCoverValue(0))
		} else {
			p.Add(forecast.CloudCoverValue(100))
		}
	})
	p := NewProfile("user", "clear", "AlbanyNY")
	p.Add(MaxCloudCover(50))

	p.SetDuration(3)
	assert.Equal(t, []Interval{
		{Start: hour(3), End: hour(6)},
		{Start: hour(8), End: hour(10)},
	}, Evaluate(p, s))

	p.SetDuration(4)
	assert.Equal(t, []Interval{{Start: hour(3), End: hour(6)}}, Evaluate(p, s))

	p.SetDuration(0)
	got := Evaluate(p, s)
	require.Len(t, got, 3)
	assert.Equal(t, Interval{Start: hour(0), End: hour(1)}, got[0])
}

func TestEvaluateSinglePointRun(t *testing.T) {
	s := randomSeries(3, func(i int, p *forecast.PointInTime) {
		p.Add(forecast.CloudCoverValue(map[int]int{0: 100, 1: 0, 2: 100}[i]))
	})
	p := NewProfile("user", "clear", "AlbanyNY")
	p.Add(MaxCloudCover(0))

	assert.Equal(t, []Interval{{Start: hour(1), End: hour(1)}}, Evaluate(p, s))
}

func TestEvaluateEmptyAndNilSeries(t *testing.T) {
	p := NewProfile("user", "any", "AlbanyNY")
	assert.Empty(t, Evaluate(p, forecast.NewSeries("AlbanyNY")))
	assert.Empty(t, Evaluate(p, nil))
}

func TestMissingDataPasses(t *testing.T) {
	pt := forecast.NewPointInTime(start)
	pt.Add(forecast.CloudCoverValue(0))

	p := permissiveProfile()
	p.Add(MinSeeing(1.0))
	p.Add(MinDarkness(6.5))
	p.Add(TemperatureRange(70, 71))
	assert.True(t, p.PassesHour(pt))

	pt.Add(forecast.SeeingValue(0.2))
	assert.False(t, p.PassesHour(pt))
}

func TestThresholdComparators(t *testing.T) {
	tests := []struct {
		name  string
		thr   Threshold
		value forecast.Value
		pass  bool
	}{
		{"cloud at bound", MaxCloudCover(30), forecast.CloudCoverValue(30), true},
		{"cloud over", MaxCloudCover(30), forecast.CloudCoverValue(40), false},
		{"transparency better", WorstTransparency(forecast.Average), forecast.TransparencyValue(forecast.AboveAverage), true},
		{"transparency worse", WorstTransparency(forecast.Average), forecast.TransparencyValue(forecast.Poor), false},
		{"seeing at bound", MinSeeing(0.6), forecast.SeeingValue(0.6), true},
		{"seeing under", MinSeeing(0.6), forecast.SeeingValue(0.4), false},
		{"smoke under", MaxSmoke(10), forecast.SmokeValue(5), true},
		{"smoke over", MaxSmoke(10), forecast.SmokeValue(20), false},
		{"wind uses lower bound", MaxWind(11), forecast.WindValue(6, 11), true},
		{"wind too strong", MaxWind(5), forecast.WindValue(6, 11), false},
		{"humidity uses lower bound", MaxHumidity(60), forecast.HumidityValue(60, 65), true},
		{"humidity too high", MaxHumidity(55), forecast.HumidityValue(60, 65), false},
		{"temperature inside", TemperatureRange(40, 70), forecast.TemperatureValue(50, 59), true},
		{"temperature below", TemperatureRange(40, 70), forecast.TemperatureValue(32, 41), false},
		{"temperature above", TemperatureRange(40, 70), forecast.TemperatureValue(68, 77), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pt := forecast.NewPointInTime(start)
			pt.Add(tt.value)
			assert.Equal(t, tt.pass, tt.thr.Passes(pt))
		})
	}
}

func TestDarknessNeedsOneSample(t *testing.T) {
	pt := forecast.NewPointInTime(start)
	pt.Add(forecast.DarknessValue(-4.8))
	pt.Add(forecast.DarknessValue(4.8))

	assert.True(t, MinDarkness(4.5).Passes(pt))
	assert.False(t, MinDarkness(5.0).Passes(pt))
}
