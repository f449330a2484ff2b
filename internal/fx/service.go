package fx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/naguara/naguara-pos/internal/shared"
)

const cacheKey = "naguara:fx:current"

// Fetcher reads the current rate from an external source.
type Fetcher interface {
	Fetch(ctx context.Context) (decimal.Decimal, error)
}

// RepositoryPort abstracts rate persistence.
type RepositoryPort interface {
	Latest(ctx context.Context) (Rate, error)
	Insert(ctx context.Context, rate Rate) (Rate, error)
	SetActive(ctx context.Context, id int64, active bool) (Rate, error)
	History(ctx context.Context, limit int) ([]Rate, error)
}

// Recorder counts how rates were resolved.
type Recorder interface {
	FXResolved(source string)
}

// Options tune the resolution chain.
type Options struct {
	CacheTTL        time.Duration
	FloorRate       decimal.Decimal
	ChangeThreshold decimal.Decimal
	FetchTimeout    time.Duration
}

// Service resolves the current exchange rate.
type Service struct {
	repo    RepositoryPort
	fetcher Fetcher
	cache   *redis.Client
	locker  *shared.Locker
	opts    Options
	metrics Recorder
	logger  *slog.Logger
	group   singleflight.Group
	now     func() time.Time
}

// NewService builds Service. cache and locker may be nil.
func NewService(repo RepositoryPort, fetcher Fetcher, cache *redis.Client, locker *shared.Locker, opts Options, metrics Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 5 * time.Second
	}
	return &Service{
		repo:    repo,
		fetcher: fetcher,
		cache:   cache,
		locker:  locker,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
	}
}

// Current returns the rate to price sales with. It never fails: when the
// provider is unavailable it falls back to the latest stored rate and then to
// the configured floor. Only provider quotes are cached, so a fallback is
// re-resolved on the next call.
func (s *Service) Current(ctx context.Context) Quote {
	if q, ok := s.cached(ctx); ok {
		return q
	}
	v, _, _ := s.group.Do("current", func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx)), nil
	})
	return v.(Quote)
}

func (s *Service) resolve(ctx context.Context) Quote {
	q := s.fromProvider(ctx)
	if q != nil {
		s.store(ctx, *q)
	} else {
		q = s.fromStore(ctx)
	}
	if s.metrics != nil {
		s.metrics.FXResolved(q.Source)
	}
	return *q
}

func (s *Service) fromProvider(ctx context.Context) *Quote {
	if s.fetcher == nil {
		return nil
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.opts.FetchTimeout)
	defer cancel()
	value, err := s.fetcher.Fetch(fetchCtx)
	if err != nil {
		s.logger.Warn("fx provider unavailable", slog.Any("error", err))
		return nil
	}
	if !value.IsPositive() {
		s.logger.Warn("fx provider returned non-positive rate", slog.String("value", value.String()))
		return nil
	}
	value = value.Round(4)
	s.persistIfChanged(ctx, value)
	return &Quote{Value: value, Source: SourceAPI, UpdatedAt: s.now()}
}

func (s *Service) fromStore(ctx context.Context) *Quote {
	latest, err := s.repo.Latest(ctx)
	if err == nil {
		return &Quote{Value: latest.Value, Source: latest.Source, UpdatedAt: latest.CreatedAt}
	}
	if !errors.Is(err, ErrNotFound) {
		s.logger.Error("fx latest stored rate", slog.Any("error", err))
	}
	return &Quote{Value: s.opts.FloorRate, Source: SourceFallback, UpdatedAt: s.now()}
}

// persistIfChanged stores a fetched rate when it moved more than the threshold.
func (s *Service) persistIfChanged(ctx context.Context, value decimal.Decimal) {
	latest, err := s.repo.Latest(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		s.logger.Error("fx latest stored rate", slog.Any("error", err))
		return
	case value.Sub(latest.Value).Abs().LessThanOrEqual(s.opts.ChangeThreshold):
		return
	}
	if _, err := s.repo.Insert(ctx, Rate{Value: value, Source: SourceAPI}); err != nil {
		s.logger.Error("fx persist rate", slog.Any("error", err))
	}
}

func (s *Service) cached(ctx context.Context) (Quote, bool) {
	if s.cache == nil {
		return Quote{}, false
	}
	raw, err := s.cache.Get(ctx, cacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn("fx cache read", slog.Any("error", err))
		}
		return Quote{}, false
	}
	var q Quote
	if err := json.Unmarshal(raw, &q); err != nil || !q.Value.IsPositive() {
		return Quote{}, false
	}
	return q, true
}

func (s *Service) store(ctx context.Context, q Quote) {
	if s.cache == nil || s.opts.CacheTTL <= 0 {
		return
	}
	raw, err := json.Marshal(q)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.opts.CacheTTL).Err(); err != nil {
		s.logger.Warn("fx cache write", slog.Any("error", err))
	}
}

// Invalidate drops the cached quote.
func (s *Service) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Del(ctx, cacheKey).Err()
}

// SetManual appends an operator supplied rate.
func (s *Service) SetManual(ctx context.Context, userID int64, value decimal.Decimal) (Rate, error) {
	if !value.IsPositive() {
		return Rate{}, ErrInvalidRate
	}
	rate := Rate{Value: value.Round(4), Source: SourceManual}
	if userID > 0 {
		rate.CreatedBy = &userID
	}
	created, err := s.repo.Insert(ctx, rate)
	if err != nil {
		return Rate{}, err
	}
	s.dropCache(ctx)
	return created, nil
}

// SetActive toggles whether a stored rate may be used as fallback.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (Rate, error) {
	rate, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return Rate{}, err
	}
	s.dropCache(ctx)
	return rate, nil
}

// History lists stored rates, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Rate, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	return s.repo.History(ctx, limit)
}

// Refresh drops the cache and resolves a fresh quote. Concurrent refreshes
// across instances are serialized by a redis lock.
func (s *Service) Refresh(ctx context.Context) (Quote, error) {
	release, err := s.locker.Acquire(ctx, shared.FXRefreshLockKey, time.Minute)
	if err != nil {
		return Quote{}, err
	}
	defer release()
	if err := s.Invalidate(ctx); err != nil {
		return Quote{}, err
	}
	return s.Current(ctx), nil
}

func (s *Service) dropCache(ctx context.Context) {
	if err := s.Invalidate(ctx); err != nil {
		s.logger.Warn("fx cache invalidate", slog.Any("error", err))
	}
}
