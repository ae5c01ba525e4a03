package alert

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksky-monitor/internal/forecast"
)

func TestFormatReport(t *testing.T) {
	tests := []struct {
		name      string
		intervals []Interval
		want      string
	}{
		{
			name: "none",
			want: "For AlbanyNY...\nNo alerts!",
		},
		{
			name:      "one same day",
			intervals: []Interval{{Start: hour(0), End: hour(6)}},
			want:      "For AlbanyNY...\nConditions met from January 01, 12:00 to 18:00",
		},
		{
			name:      "one across midnight",
			intervals: []Interval{{Start: hour(8), End: hour(14)}},
			want:      "For AlbanyNY...\nConditions met from January 01, 20:00 to January 02, 02:00",
		},
		{
			name:      "two",
			intervals: []Interval{{Start: hour(0), End: hour(1)}, {Start: hour(3), End: hour(4)}},
			want:      "For AlbanyNY...\nConditions met from January 01, 12:00 to 13:00 and January 01, 15:00 to 16:00",
		},
		{
			name: "three",
			intervals: []Interval{
				{Start: hour(0), End: hour(0)},
				{Start: hour(2), End: hour(2)},
				{Start: hour(4), End: hour(4)},
			},
			want: "For AlbanyNY...\nConditions met from January 01, 12:00 to 12:00, January 01, 14:00 to 14:00, January 01, 16:00 to 16:00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatReport("AlbanyNY", tt.intervals))
		})
	}
}

func TestThresholdOptions(t *testing.T) {
	for _, attr := range forecast.Attributes {
		opts, err := ThresholdOptions(attr)
		require.NoError(t, err, attr.Key())
		require.NotEmpty(t, opts, attr.Key())
		for _, o := range opts {
			assert.Equal(t, attr, o.Threshold.Attribute)
			assert.NotEqual(t, forecast.FormatError, o.Label, attr.Key())
		}
	}

	cloud, _ := ThresholdOptions(forecast.CloudCover)
	require.Len(t, cloud, 11)
	assert.Equal(t, "Clear", cloud[0].Label)
	assert.Equal(t, "Overcast", cloud[10].Label)

	wind, _ := ThresholdOptions(forecast.Wind)
	assert.Equal(t, "100", wind[len(wind)-1].Value)
	assert.Equal(t, ">45 mph", wind[len(wind)-1].Label)

	humidity, _ := ThresholdOptions(forecast.Humidity)
	require.Len(t, humidity, 16)
	assert.Equal(t, "<25%", humidity[0].Label)

	temp, _ := ThresholdOptions(forecast.Temperature)
	require.Len(t, temp, 19)
	assert.Equal(t, "54.5", temp[11].Value)
	assert.Equal(t, "50F to 59F", temp[11].Label)

	_, err := ThresholdOptions(forecast.Attribute(99))
	assert.Error(t, err)
}
