package checker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"darksky-monitor/internal/alert"
	"darksky-monitor/internal/observability"
	"darksky-monitor/internal/service"
)

type fakeChecks struct {
	mu      sync.Mutex
	calls   int
	results map[string][]service.CheckResult
	err     error
}

func (f *fakeChecks) CheckAllProfiles(context.Context) (map[string][]service.CheckResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.results, f.err
}

func (f *fakeChecks) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []service.CheckResult
	fail map[string]bool
}

func (f *fakeNotifier) Notify(_ context.Context, r service.CheckResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[r.Profile] {
		return errors.New("broker down")
	}
	f.sent = append(f.sent, r)
	return nil
}

var evening = time.Date(2024, 3, 9, 20, 0, 0, 0, time.UTC)

func matched(owner, profile string) service.CheckResult {
	return service.CheckResult{
		Owner:     owner,
		Profile:   profile,
		Location:  "AlbanyNY",
		Status:    service.StatusMatched,
		Intervals: []alert.Interval{{Start: evening, End: evening.Add(3 * time.Hour)}},
		Report:    "For AlbanyNY...",
	}
}

func TestNextRun(t *testing.T) {
	c, err := NewChecker(Config{DailyAt: "07:30", Location: time.UTC})
	require.NoError(t, err)

	morning := time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 9, 7, 30, 0, 0, time.UTC), c.NextRun(morning))

	atRun := time.Date(2024, 3, 9, 7, 30, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC), c.NextRun(atRun))

	assert.Equal(t, time.Date(2024, 3, 10, 7, 30, 0, 0, time.UTC), c.NextRun(evening))
}

func TestParseDailyAt(t *testing.T) {
	h, m, err := ParseDailyAt("23:05")
	require.NoError(t, err)
	assert.Equal(t, 23, h)
	assert.Equal(t, 5, m)

	for _, bad := range []string{"", "7", "25:00", "07:60", "seven"} {
		_, _, err := ParseDailyAt(bad)
		assert.Error(t, err, bad)
	}
}

func TestRunOnceNotifiesMatches(t *testing.T) {
	checks := &fakeChecks{results: map[string][]service.CheckResult{
		"42": {
			matched("42", "clear"),
			{Owner: "42", Profile: "strict", Status: service.StatusNoMatch, Intervals: []alert.Interval{}},
		},
		"7": {
			{Owner: "7", Profile: "troy", Status: service.StatusUnavailable, Intervals: []alert.Interval{}},
			matched("7", "flaky"),
		},
	}}
	notifier := &fakeNotifier{fail: map[string]bool{"flaky": true}}
	metrics := observability.NewMetricsForTesting()

	c, err := NewChecker(Config{
		Checks: checks, Notifier: notifier, DailyAt: "07:00",
		Clock: clockwork.NewFakeClockAt(evening), Metrics: metrics, Enabled: true,
	})
	require.NoError(t, err)

	summary, err := c.RunOnce(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, summary.ID)
	assert.Equal(t, 4, summary.Profiles)
	assert.Equal(t, 2, summary.Matched)
	assert.Equal(t, 1, summary.Unavailable)
	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, 1, summary.Failed)

	require.Len(t, notifier.sent, 1)
	assert.Equal(t, "clear", notifier.sent[0].Profile)
	assert.Same(t, summary, c.LastRun())

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ScheduledRuns))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Notifications.WithLabelValues("error")))
}

func TestRunOnceSurfacesCheckError(t *testing.T) {
	c, err := NewChecker(Config{Checks: &fakeChecks{err: errors.New("db locked")}, DailyAt: "07:00"})
	require.NoError(t, err)

	_, err = c.RunOnce(context.Background())
	assert.Error(t, err)
	assert.Nil(t, c.LastRun())
}

func TestStartRunsDaily(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 9, 6, 0, 0, 0, time.UTC))
	checks := &fakeChecks{results: map[string][]service.CheckResult{}}
	c, err := NewChecker(Config{
		Checks: checks, DailyAt: "07:00", Location: time.UTC,
		Clock: clock, Enabled: true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Start(ctx) }()

	clock.BlockUntil(1)
	assert.True(t, c.IsRunning())
	assert.Equal(t, 0, checks.Calls())

	clock.Advance(time.Hour)
	// the loop re-arms its timer once the run completes
	clock.BlockUntil(1)
	assert.Equal(t, 1, checks.Calls())

	clock.Advance(24 * time.Hour)
	clock.BlockUntil(1)
	assert.Equal(t, 2, checks.Calls())

	cancel()
	require.NoError(t, <-done)
	assert.False(t, c.IsRunning())
}

func TestStartDisabled(t *testing.T) {
	checks := &fakeChecks{}
	c, err := NewChecker(Config{Checks: checks, DailyAt: "07:00", Enabled: false})
	require.NoError(t, err)

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 0, checks.Calls())
}

func TestNewCheckerRejectsBadTime(t *testing.T) {
	_, err := NewChecker(Config{DailyAt: "noon"})
	assert.Error(t, err)
}
