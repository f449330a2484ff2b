package reports

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/shared"
)

// RepositoryPort is the query surface used by Service.
type RepositoryPort interface {
	DailySummary(ctx context.Context, rng Range) (DailySummary, error)
	SalesSeries(ctx context.Context, rng Range, loc *time.Location) ([]DayPoint, error)
	LowStockCount(ctx context.Context) (int, error)
	ProductCount(ctx context.Context) (int, error)
}

// RateSource resolves the current exchange rate.
type RateSource interface {
	Current(ctx context.Context) fx.Quote
}

// Service coordinates report queries with the cache layer.
type Service struct {
	repo   RepositoryPort
	cache  *Cache
	rates  RateSource
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewService wires a repository with a cache helper.
func NewService(repo RepositoryPort, cache *Cache, rates RateSource, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, rates: rates, loc: loc, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// DailySummary returns the summary of date (YYYY-MM-DD, empty for today).
func (s *Service) DailySummary(ctx context.Context, date string) (DailySummary, error) {
	day, err := shared.ParseDate(strings.TrimSpace(date), s.loc, s.now())
	if err != nil {
		return DailySummary{}, err
	}
	label := day.Format(shared.DateLayout)
	key, err := s.cache.BuildKey(ctx, "daily", label)
	if err != nil {
		return DailySummary{}, err
	}
	var summary DailySummary
	err = s.cache.FetchJSON(ctx, key, &summary, func(ctx context.Context) (any, error) {
		from, to := shared.DayRange(day, s.loc)
		out, err := s.repo.DailySummary(ctx, Range{From: from, To: to})
		if err != nil {
			return nil, err
		}
		out.Date = label
		return out, nil
	})
	return summary, err
}

// SalesSeries returns one point per day with sales between from and to.
func (s *Service) SalesSeries(ctx context.Context, from, to time.Time) ([]DayPoint, error) {
	today, tomorrow := shared.DayRange(s.now(), s.loc)
	if to.IsZero() {
		to = tomorrow
	}
	if from.IsZero() {
		from = today.AddDate(0, 0, -29)
	}
	if !from.Before(to) {
		return nil, shared.Validation("la fecha desde no puede ser posterior a hasta")
	}
	if to.Sub(from) > maxSeriesDays*24*time.Hour+time.Hour {
		return nil, ErrRangeTooLong
	}
	key, err := s.cache.BuildKey(ctx, "series", from.Format(shared.DateLayout), to.Format(shared.DateLayout))
	if err != nil {
		return nil, err
	}
	var points []DayPoint
	err = s.cache.FetchJSON(ctx, key, &points, func(ctx context.Context) (any, error) {
		return s.repo.SalesSeries(ctx, Range{From: from, To: to}, s.loc)
	})
	return points, err
}

// Dashboard loads every section concurrently. A failing section is logged,
// left at its zero value and named in Degraded.
func (s *Service) Dashboard(ctx context.Context) Dashboard {
	var (
		out Dashboard
		mu  sync.Mutex
	)
	degrade := func(section string, err error) {
		s.logger.Warn("dashboard section failed", slog.String("section", section), slog.Any("error", err))
		mu.Lock()
		out.Degraded = append(out.Degraded, section)
		mu.Unlock()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		today, err := s.DailySummary(gctx, "")
		if err != nil {
			degrade("today", err)
			return nil
		}
		out.Today = today
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.LowStockCount(gctx)
		if err != nil {
			degrade("low_stock", err)
			return nil
		}
		out.LowStockCount = n
		return nil
	})
	g.Go(func() error {
		n, err := s.repo.ProductCount(gctx)
		if err != nil {
			degrade("products", err)
			return nil
		}
		out.ProductCount = n
		return nil
	})
	if s.rates != nil {
		g.Go(func() error {
			out.Rate = s.rates.Current(gctx)
			return nil
		})
	}
	_ = g.Wait()

	if out.Today.Date == "" {
		out.Today = emptySummary(s.now().In(s.loc).Format(shared.DateLayout))
	}
	return out
}

func emptySummary(date string) DailySummary {
	return DailySummary{
		Date:        date,
		Subtotal:    decimal.Zero,
		Tax:         decimal.Zero,
		Total:       decimal.Zero,
		TotalLocal:  decimal.Zero,
		ByMethod:    map[string]decimal.Decimal{},
		TopProducts: []ProductTotal{},
	}
}
