// Package analyzer answers per-user presence queries over a cached parse of
// the presence export.
package analyzer

import (
	"context"
	"errors"
	"time"

	"presenceanalyzer/internal/cache"
	appLog "presenceanalyzer/internal/log"
	"presenceanalyzer/internal/presence"
	"presenceanalyzer/internal/stats"
)

// ErrUserNotFound is returned by per-user queries for an identifier that is
// absent from the presence export.
var ErrUserNotFound = errors.New("analyzer: user not found")

// Options configures a Service.
type Options struct {
	// Source is the path of the presence export.
	Source string
	// Delimiter separates columns in Source. Zero means ','.
	Delimiter rune
	// TTL is how long a parse is reused. Zero keeps it until Refresh.
	TTL time.Duration
	// Now overrides the clock used to age the cache.
	Now func() time.Time
}

// Service exposes aggregated presence figures. It is safe for concurrent use.
type Service struct {
	source    string
	delimiter rune
	cache     *cache.Cache[presence.Index]
}

// New creates a Service. Nothing is read until the first query.
func New(opts Options) *Service {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Service{
		source:    opts.Source,
		delimiter: opts.Delimiter,
		cache:     cache.NewWithClock[presence.Index](opts.TTL, opts.Now),
	}
}

// Index returns the parsed export, reusing a fresh cached parse if any.
func (s *Service) Index(ctx context.Context) (presence.Index, error) {
	idx, err := s.cache.Get(ctx, s.source, func() (presence.Index, error) {
		return presence.ParseFile(s.source, s.delimiter)
	})
	if err != nil {
		appLog.Error("presence source unavailable", err, "path", s.source)
		return nil, err
	}
	return idx, nil
}

// Refresh drops the cached parse so the next query reads the source again.
func (s *Service) Refresh() {
	s.cache.Invalidate(s.source)
}

// ListUsers returns all user identifiers in ascending order.
func (s *Service) ListUsers(ctx context.Context) ([]int, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	return idx.UserIDs(), nil
}

// MeanByWeekday returns the mean presence duration per weekday in seconds.
func (s *Service) MeanByWeekday(ctx context.Context, userID int) ([7]float64, error) {
	var out [7]float64
	p, err := s.user(ctx, userID)
	if err != nil {
		return out, err
	}
	for wd, intervals := range stats.GroupByWeekday(p) {
		out[wd] = stats.Mean(intervals)
	}
	return out, nil
}

// TotalByWeekday returns the summed presence duration per weekday in seconds.
func (s *Service) TotalByWeekday(ctx context.Context, userID int) ([7]int, error) {
	var out [7]int
	p, err := s.user(ctx, userID)
	if err != nil {
		return out, err
	}
	for wd, intervals := range stats.GroupByWeekday(p) {
		out[wd] = stats.Sum(intervals)
	}
	return out, nil
}

// UsualWindow returns the mean arrival and departure per weekday.
func (s *Service) UsualWindow(ctx context.Context, userID int) ([7]stats.Window, error) {
	p, err := s.user(ctx, userID)
	if err != nil {
		return [7]stats.Window{}, err
	}
	return stats.UsualPresenceTime(p), nil
}

// MonthlyHours returns presence hours per month for every year on record.
func (s *Service) MonthlyHours(ctx context.Context, userID int) ([]stats.YearHours, error) {
	p, err := s.user(ctx, userID)
	if err != nil {
		return nil, err
	}
	return stats.GroupByMonth(p), nil
}

func (s *Service) user(ctx context.Context, userID int) (presence.UserPresence, error) {
	idx, err := s.Index(ctx)
	if err != nil {
		return nil, err
	}
	p, ok := idx[userID]
	if !ok {
		appLog.Debug("user not found", "user_id", userID)
		return nil, ErrUserNotFound
	}
	return p, nil
}
