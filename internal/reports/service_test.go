package reports

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/shared"
)

type mockRepo struct {
	dailyCalls  atomic.Int32
	seriesCalls atomic.Int32
	lastRange   Range
	lowErr      error
	total       string
}

func (m *mockRepo) DailySummary(ctx context.Context, rng Range) (DailySummary, error) {
	m.dailyCalls.Add(1)
	m.lastRange = rng
	return DailySummary{
		SalesCount:  3,
		Total:       decimal.RequireFromString(m.total),
		ByMethod:    map[string]decimal.Decimal{"efectivo": decimal.RequireFromString(m.total)},
		TopProducts: []ProductTotal{{ProductID: 1, Name: "Pechuga", Quantity: decimal.NewFromInt(2), Total: decimal.RequireFromString(m.total)}},
	}, nil
}

func (m *mockRepo) SalesSeries(ctx context.Context, rng Range, loc *time.Location) ([]DayPoint, error) {
	m.seriesCalls.Add(1)
	return []DayPoint{{Date: rng.From.In(loc).Format(shared.DateLayout), SalesCount: 1, Total: decimal.NewFromInt(5)}}, nil
}

func (m *mockRepo) LowStockCount(ctx context.Context) (int, error) {
	return 4, m.lowErr
}

func (m *mockRepo) ProductCount(ctx context.Context) (int, error) {
	return 27, nil
}

type fixedRate struct{}

func (fixedRate) Current(ctx context.Context) fx.Quote {
	return fx.Quote{Value: decimal.RequireFromString("36.50"), Source: fx.SourceManual}
}

var caracas = time.FixedZone("VET", -4*3600)

func newTestService(t *testing.T, repo RepositoryPort) (*Service, *Cache) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, time.Minute)
	svc := NewService(repo, cache, fixedRate{}, caracas, nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 10, 19, 1, 30, 0, 0, time.UTC) })
	return svc, cache
}

func TestDailySummaryUsesLocalDayAndCache(t *testing.T) {
	repo := &mockRepo{total: "120.50"}
	svc, cache := newTestService(t, repo)
	ctx := context.Background()

	first, err := svc.DailySummary(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", first.Date)
	assert.Equal(t, time.Date(2026, 10, 18, 4, 0, 0, 0, time.UTC), repo.lastRange.From.UTC())
	assert.True(t, first.Total.Equal(decimal.RequireFromString("120.50")))

	repo.total = "200"
	second, err := svc.DailySummary(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.True(t, second.Total.Equal(first.Total))
	assert.Equal(t, int32(1), repo.dailyCalls.Load())

	require.NoError(t, cache.Bump(ctx))
	third, err := svc.DailySummary(ctx, "2026-10-18")
	require.NoError(t, err)
	assert.True(t, third.Total.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, int32(2), repo.dailyCalls.Load())

	_, err = svc.DailySummary(ctx, "ayer")
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestSalesSeriesBounds(t *testing.T) {
	repo := &mockRepo{total: "0"}
	svc, _ := newTestService(t, repo)
	ctx := context.Background()

	points, err := svc.SalesSeries(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "2026-09-19", points[0].Date)

	_, err = svc.SalesSeries(ctx, time.Date(2024, 1, 1, 0, 0, 0, 0, caracas), time.Date(2026, 1, 1, 0, 0, 0, 0, caracas))
	assert.ErrorIs(t, err, ErrRangeTooLong)
}

func TestDashboardDegradesFailedSections(t *testing.T) {
	repo := &mockRepo{total: "10", lowErr: errors.New("connection reset")}
	svc, _ := newTestService(t, repo)

	dash := svc.Dashboard(context.Background())
	assert.Equal(t, []string{"low_stock"}, dash.Degraded)
	assert.Zero(t, dash.LowStockCount)
	assert.Equal(t, 27, dash.ProductCount)
	assert.Equal(t, 3, dash.Today.SalesCount)
	assert.True(t, dash.Rate.Value.Equal(decimal.RequireFromString("36.50")))
}

func TestCacheWithoutRedisCallsLoader(t *testing.T) {
	var cache *Cache
	var out int
	calls := 0
	for range 2 {
		require.NoError(t, cache.FetchJSON(context.Background(), "k", &out, func(context.Context) (any, error) {
			calls++
			return 7, nil
		}))
	}
	assert.Equal(t, 7, out)
	assert.Equal(t, 2, calls)
}
