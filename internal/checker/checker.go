package checker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"darksky-monitor/internal/observability"
	"darksky-monitor/internal/service"
)

// Checks is the part of the service the checker drives.
type Checks interface {
	CheckAllProfiles(ctx context.Context) (map[string][]service.CheckResult, error)
}

// Notifier delivers one matched result to its owner.
type Notifier interface {
	Notify(ctx context.Context, result service.CheckResult) error
}

// RunSummary describes one completed run.
type RunSummary struct {
	ID          string    `json:"id"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Profiles    int       `json:"profiles"`
	Matched     int       `json:"matched"`
	Unavailable int       `json:"unavailable"`
	Notified    int       `json:"notified"`
	Failed      int       `json:"failed"`
}

type Checker struct {
	checks   Checks
	notifier Notifier
	clock    clockwork.Clock
	hour     int
	minute   int
	location *time.Location
	enabled  bool
	metrics  *observability.Metrics
	logger   *slog.Logger

	mu        sync.RWMutex
	lastRun   *RunSummary
	isRunning bool
}

type Config struct {
	Checks   Checks
	Notifier Notifier
	Clock    clockwork.Clock
	DailyAt  string // "HH:MM"
	Location *time.Location
	Enabled  bool
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

func NewChecker(cfg Config) (*Checker, error) {
	hour, minute, err := ParseDailyAt(cfg.DailyAt)
	if err != nil {
		return nil, err
	}
	c := &Checker{
		checks:   cfg.Checks,
		notifier: cfg.Notifier,
		clock:    cfg.Clock,
		hour:     hour,
		minute:   minute,
		location: cfg.Location,
		enabled:  cfg.Enabled,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
	}
	if c.clock == nil {
		c.clock = clockwork.NewRealClock()
	}
	if c.location == nil {
		c.location = time.Local
	}
	if c.logger == nil {
		c.logger = observability.DiscardLogger()
	}
	return c, nil
}

// ParseDailyAt reads a 24 hour "HH:MM" time of day.
func ParseDailyAt(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid daily time %q, want HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NextRun returns the first daily run time strictly after now.
func (c *Checker) NextRun(now time.Time) time.Time {
	local := now.In(c.location)
	next := time.Date(local.Year(), local.Month(), local.Day(), c.hour, c.minute, 0, 0, c.location)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, c.hour, c.minute, 0, 0, c.location)
	}
	return next
}

// Start runs a check every day at the configured time until ctx is done.
func (c *Checker) Start(ctx context.Context) error {
	if !c.enabled {
		c.logger.Info("scheduled checks are disabled")
		return nil
	}

	c.mu.Lock()
	c.isRunning = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.isRunning = false
		c.mu.Unlock()
	}()

	for {
		now := c.clock.Now()
		next := c.NextRun(now)
		c.logger.Info("next scheduled check", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			c.logger.Info("checker stopped")
			return nil
		case <-c.clock.After(next.Sub(now)):
			if _, err := c.RunOnce(ctx); err != nil {
				c.logger.Error("scheduled check failed", "error", err)
			}
		}
	}
}

// RunOnce checks every profile now and notifies owners of matches.
func (c *Checker) RunOnce(ctx context.Context) (*RunSummary, error) {
	summary := &RunSummary{ID: uuid.NewString(), StartedAt: c.clock.Now()}
	logger := c.logger.With("run_id", summary.ID)
	logger.Info("checking alert profiles")

	results, err := c.checks.CheckAllProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("check all profiles: %w", err)
	}

	owners := make([]string, 0, len(results))
	for owner := range results {
		owners = append(owners, owner)
	}
	sort.Strings(owners)

	for _, owner := range owners {
		for _, res := range results[owner] {
			summary.Profiles++
			switch {
			case res.Status == service.StatusUnavailable:
				summary.Unavailable++
				continue
			case !res.Matched():
				continue
			}
			summary.Matched++

			if c.notifier == nil {
				logger.Info("alert matched", "owner", owner, "profile", res.Profile, "report", res.Report)
				continue
			}
			if err := c.notifier.Notify(ctx, res); err != nil {
				summary.Failed++
				c.countNotification("error")
				logger.Error("failed to send alert", "owner", owner, "profile", res.Profile, "error", err)
				continue
			}
			summary.Notified++
			c.countNotification("sent")
			logger.Info("alert sent", "owner", owner, "profile", res.Profile, "intervals", len(res.Intervals))
		}
	}

	summary.FinishedAt = c.clock.Now()
	if c.metrics != nil {
		c.metrics.ScheduledRuns.Inc()
	}

	c.mu.Lock()
	c.lastRun = summary
	c.mu.Unlock()

	logger.Info("check finished", "profiles", summary.Profiles, "matched", summary.Matched,
		"unavailable", summary.Unavailable, "notified", summary.Notified, "failed", summary.Failed)
	return summary, nil
}

func (c *Checker) LastRun() *RunSummary {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastRun
}

func (c *Checker) IsRunning() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isRunning
}

func (c *Checker) countNotification(outcome string) {
	if c.metrics != nil {
		c.metrics.Notifications.WithLabelValues(outcome).Inc()
	}
}
