// Package service is the query surface shared by the HTTP API, the CLI and
// the scheduled checker.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"darksky-monitor/internal/alert"
	"darksky-monitor/internal/cleardarksky"
	"darksky-monitor/internal/forecast"
	"darksky-monitor/internal/observability"
	"darksky-monitor/internal/storage"
)

var (
	ErrProfileNotFound = storage.ErrProfileNotFound
	ErrUnavailable     = cleardarksky.ErrUnavailable
	ErrInvalidLocation = errors.New("invalid location key")
	ErrProfileExists   = errors.New("profile already exists")
	ErrInvalidArgument = errors.New("invalid argument")
)

// Source supplies forecasts and checks location keys.
type Source interface {
	Fetch(ctx context.Context, location string) (*forecast.Series, error)
	ValidateLocation(ctx context.Context, key string) (bool, error)
}

// Store persists profiles by (owner, name).
type Store interface {
	SaveProfile(p *alert.Profile) error
	LoadProfile(owner, name string) (*alert.Profile, error)
	DeleteProfile(owner, name string) (bool, error)
	ListProfiles(owner string) ([]*alert.Profile, error)
	ListAllProfiles() ([]*alert.Profile, error)
}

// Check outcomes, also used as metric labels.
const (
	StatusMatched     = "matched"
	StatusNoMatch     = "no_match"
	StatusUnavailable = "unavailable"
	StatusNotFound    = "not_found"
)

// CheckResult is the outcome of evaluating one profile.
type CheckResult struct {
	Owner     string           `json:"owner"`
	Profile   string           `json:"profile"`
	Location  string           `json:"location"`
	Status    string           `json:"status"`
	Intervals []alert.Interval `json:"intervals"`
	Report    string           `json:"report"`
}

// Matched reports whether at least one interval qualified.
func (r CheckResult) Matched() bool {
	return len(r.Intervals) > 0
}

type Service struct {
	source  Source
	store   Store
	metrics *observability.Metrics
	logger  *slog.Logger
}

func New(source Source, store Store, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = observability.DiscardLogger()
	}
	return &Service{source: source, store: store, metrics: metrics, logger: logger}
}

// CreateProfile validates the location and stores an empty profile.
func (s *Service) CreateProfile(ctx context.Context, owner, name, location string, hours int) (*alert.Profile, error) {
	owner, name, location = strings.TrimSpace(owner), strings.TrimSpace(name), strings.TrimSpace(location)
	if owner == "" || name == "" {
		return nil, fmt.Errorf("%w: owner and name are required", ErrInvalidArgument)
	}
	if hours < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidArgument)
	}

	if _, err := s.store.LoadProfile(owner, name); err == nil {
		return nil, fmt.Errorf("%s by %s: %w", name, owner, ErrProfileExists)
	} else if !errors.Is(err, ErrProfileNotFound) {
		return nil, err
	}

	ok, err := s.source.ValidateLocation(ctx, location)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, fmt.Errorf("validate location %q: %w", location, err)
		}
		return nil, fmt.Errorf("%w: validate location %q: %w", ErrUnavailable, location, err)
	}
	if !ok {
		return nil, fmt.Errorf("%q: %w", location, ErrInvalidLocation)
	}

	p := alert.NewProfile(owner, name, location)
	p.SetDuration(hours)
	if err := s.store.SaveProfile(p); err != nil {
		return nil, err
	}
	s.logger.Info("profile created", "owner", owner, "profile", name, "location", location)
	return p, nil
}

func (s *Service) GetProfile(owner, name string) (*alert.Profile, error) {
	return s.store.LoadProfile(owner, name)
}

// UpdateProfileAttribute sets one threshold on a stored profile.
func (s *Service) UpdateProfileAttribute(owner, name string, t alert.Threshold) (*alert.Profile, error) {
	if !t.Attribute.Valid() {
		return nil, fmt.Errorf("%w: unknown attribute", ErrInvalidArgument)
	}
	return s.mutate(owner, name, func(p *alert.Profile) { p.Add(t) })
}

func (s *Service) RemoveProfileAttribute(owner, name string, attr forecast.Attribute) (*alert.Profile, error) {
	return s.mutate(owner, name, func(p *alert.Profile) { p.Remove(attr) })
}

func (s *Service) SetProfileDuration(owner, name string, hours int) (*alert.Profile, error) {
	if hours < 0 {
		return nil, fmt.Errorf("%w: duration must not be negative", ErrInvalidArgument)
	}
	return s.mutate(owner, name, func(p *alert.Profile) { p.SetDuration(hours) })
}

func (s *Service) mutate(owner, name string, change func(*alert.Profile)) (*alert.Profile, error) {
	p, err := s.store.LoadProfile(owner, name)
	if err != nil {
		return nil, err
	}
	change(p)
	if err := s.store.SaveProfile(p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeleteProfile reports whether a profile was removed.
func (s *Service) DeleteProfile(owner, name string) (bool, error) {
	deleted, err := s.store.DeleteProfile(owner, name)
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("profile deleted", "owner", owner, "profile", name)
	}
	return deleted, nil
}

func (s *Service) ListProfiles(owner string) ([]*alert.Profile, error) {
	return s.store.ListProfiles(owner)
}

// Forecast fetches the current series for a location key.
func (s *Service) Forecast(ctx context.Context, location string) (*forecast.Series, error) {
	return s.source.Fetch(ctx, location)
}

// CheckProfile evaluates one stored profile against a fresh forecast for
// its own location.
func (s *Service) CheckProfile(ctx context.Context, owner, name string) (*CheckResult, error) {
	p, err := s.store.LoadProfile(owner, name)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			s.countCheck(StatusNotFound)
		}
		return nil, err
	}

	series, err := s.source.Fetch(ctx, p.Location)
	if err != nil {
		s.countCheck(StatusUnavailable)
		return nil, err
	}

	result := s.evaluate(p, series)
	return &result, nil
}

// CheckAllProfiles evaluates every stored profile, grouped by owner. Each
// location is fetched once. Profiles whose forecast is unavailable are
// reported with StatusUnavailable rather than failing the whole run.
func (s *Service) CheckAllProfiles(ctx context.Context) (map[string][]CheckResult, error) {
	profiles, err := s.store.ListAllProfiles()
	if err != nil {
		return nil, err
	}

	type fetched struct {
		series *forecast.Series
		err    error
	}
	byLocation := make(map[string]fetched)
	results := make(map[string][]CheckResult)

	for _, p := range profiles {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		f, ok := byLocation[p.Location]
		if !ok {
			f.series, f.err = s.source.Fetch(ctx, p.Location)
			byLocation[p.Location] = f
			if f.err != nil {
				s.logger.Warn("forecast unavailable", "location", p.Location, "error", f.err)
			}
		}

		if f.err != nil {
			s.countCheck(StatusUnavailable)
			results[p.Owner] = append(results[p.Owner], CheckResult{
				Owner:     p.Owner,
				Profile:   p.Name,
				Location:  p.Location,
				Status:    StatusUnavailable,
				Intervals: []alert.Interval{},
			})
			continue
		}

		results[p.Owner] = append(results[p.Owner], s.evaluate(p, f.series))
	}
	return results, nil
}

func (s *Service) evaluate(p *alert.Profile, series *forecast.Series) CheckResult {
	intervals := alert.Evaluate(p, series)
	status := StatusNoMatch
	if len(intervals) > 0 {
		status = StatusMatched
	}
	s.countCheck(status)
	s.logger.Debug("profile checked", "owner", p.Owner, "profile", p.Name, "location", p.Location, "intervals", len(intervals))

	return CheckResult{
		Owner:     p.Owner,
		Profile:   p.Name,
		Location:  p.Location,
		Status:    status,
		Intervals: intervals,
		Report:    alert.FormatReport(p.Location, intervals),
	}
}

func (s *Service) countCheck(status string) {
	if s.metrics != nil {
		s.metrics.ProfileChecks.WithLabelValues(status).Inc()
	}
}
