package cashclose

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/shared"
)

type memSale struct {
	userID   int64
	at       time.Time
	status   string
	payments map[string]string
}

type memoryRepo struct {
	mu          sync.Mutex
	sales       []memSale
	closures    map[string]Closure
	nextID      int64
	skipExists  bool
	insertDelay time.Duration
}

func newMemoryRepo(sales ...memSale) *memoryRepo {
	return &memoryRepo{sales: sales, closures: map[string]Closure{}}
}

func key(day time.Time, userID int64) string {
	return shared.CashCloseLockKey(day, userID)
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryRepo) Exists(ctx context.Context, day time.Time, userID int64) (bool, error) {
	if m.skipExists {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.closures[key(day, userID)]
	return ok, nil
}

func (m *memoryRepo) Totals(ctx context.Context, userID int64, from, to time.Time) (Totals, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := Totals{Total: decimal.Zero, ByMethod: map[string]decimal.Decimal{}}
	for _, s := range m.sales {
		if s.userID != userID || s.status != "completed" || s.at.Before(from) || !s.at.Before(to) {
			continue
		}
		t.SalesCount++
		for method, amount := range s.payments {
			v := decimal.RequireFromString(amount)
			t.ByMethod[method] = t.ByMethod[method].Add(v)
			t.Total = t.Total.Add(v)
		}
	}
	return t, nil
}

func (m *memoryRepo) Insert(ctx context.Context, c *Closure) error {
	time.Sleep(m.insertDelay)
	day, _ := time.Parse(shared.DateLayout, c.Date)
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(day, c.UserID)
	if _, ok := m.closures[k]; ok {
		return ErrDuplicateClosure
	}
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = time.Now()
	m.closures[k] = *c
	return nil
}

func (m *memoryRepo) Find(ctx context.Context, day time.Time, userID int64) (Closure, error) {
	day, _ = time.Parse(shared.DateLayout, day.Format(shared.DateLayout))
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.closures[key(day, userID)]
	if !ok {
		return Closure{}, ErrNotFound
	}
	return c, nil
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Closure, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Closure
	for _, c := range m.closures {
		if filter.UserID == 0 || c.UserID == filter.UserID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

var caracas = time.FixedZone("VET", -4*3600)

func at(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04", s, caracas)
	if err != nil {
		panic(err)
	}
	return t
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(t *testing.T, repo *memoryRepo) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := NewService(repo, shared.NewLocker(rdb), nil, caracas, nil)
	svc.WithNow(func() time.Time { return at("2026-10-19 12:00") })
	return svc
}

func daySales() []memSale {
	return []memSale{
		{userID: 2, at: at("2026-10-18 08:15"), status: "completed", payments: map[string]string{"efectivo": "12.50"}},
		{userID: 2, at: at("2026-10-18 23:30"), status: "completed", payments: map[string]string{"efectivo": "17.50", "pago_movil": "5"}},
		{userID: 2, at: at("2026-10-18 10:00"), status: "completed", payments: map[string]string{"pago_movil": "15"}},
		{userID: 2, at: at("2026-10-18 11:00"), status: "voided", payments: map[string]string{"efectivo": "100"}},
		{userID: 2, at: at("2026-10-19 00:10"), status: "completed", payments: map[string]string{"efectivo": "9"}},
		{userID: 3, at: at("2026-10-18 09:00"), status: "completed", payments: map[string]string{"efectivo": "40"}},
	}
}

func TestCreateComputesExpectedAndVariance(t *testing.T) {
	svc := newTestService(t, newMemoryRepo(daySales()...))

	c, err := svc.Create(context.Background(), CreateInput{
		Date:        "2026-10-18",
		UserID:      2,
		OpeningCash: d("10"),
		CountedCash: d("38"),
		Notes:       " faltó sencillo ",
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", c.Date)
	assert.Equal(t, 3, c.SalesCount)
	assert.True(t, c.ExpectedByMethod["efectivo"].Equal(d("30")))
	assert.True(t, c.ExpectedByMethod["pago_movil"].Equal(d("20")))
	assert.True(t, c.ExpectedCash.Equal(d("40")))
	assert.True(t, c.Variance.Equal(d("-2")))
	assert.Equal(t, "faltó sencillo", c.Notes)
}

func TestDuplicateClosureConflict(t *testing.T) {
	repo := newMemoryRepo(daySales()...)
	svc := newTestService(t, repo)
	in := CreateInput{Date: "2026-10-18", UserID: 2, OpeningCash: d("0"), CountedCash: d("30")}

	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateClosure)
	assert.ErrorIs(t, err, shared.ErrConflict)

	other := in
	other.UserID = 3
	_, err = svc.Create(context.Background(), other)
	assert.NoError(t, err)
}

func TestLostRaceMapsToDuplicate(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(t, repo)
	in := CreateInput{Date: "2026-10-18", UserID: 2}
	_, err := svc.Create(context.Background(), in)
	require.NoError(t, err)

	repo.skipExists = true
	_, err = svc.Create(context.Background(), in)
	assert.ErrorIs(t, err, ErrDuplicateClosure)
}

func TestConcurrentClosuresProduceOne(t *testing.T) {
	repo := newMemoryRepo(daySales()...)
	repo.insertDelay = 20 * time.Millisecond
	svc := newTestService(t, repo)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), CreateInput{Date: "2026-10-18", UserID: 2, CountedCash: d("30")})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case errors.Is(err, shared.ErrConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, 3, conflicts)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t, newMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Date: "2026-10-20", UserID: 2})
	assert.ErrorIs(t, err, ErrFutureDate)
	_, err = svc.Create(context.Background(), CreateInput{Date: "18/10/2026", UserID: 2})
	assert.ErrorIs(t, err, shared.ErrValidation)
	_, err = svc.Create(context.Background(), CreateInput{Date: "2026-10-18", UserID: 2, CountedCash: d("-1")})
	assert.ErrorIs(t, err, ErrNegativeAmount)
	_, err = svc.Create(context.Background(), CreateInput{Date: "2026-10-18"})
	assert.ErrorIs(t, err, ErrUserRequired)

	c, err := svc.Create(context.Background(), CreateInput{UserID: 2})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-19", c.Date)
}

func TestVerifyAndPreview(t *testing.T) {
	repo := newMemoryRepo(daySales()...)
	svc := newTestService(t, repo)
	ctx := context.Background()

	v, err := svc.Verify(ctx, "2026-10-18", 2)
	require.NoError(t, err)
	assert.False(t, v.Exists)
	assert.Nil(t, v.Closure)

	summary, err := svc.Preview(ctx, "2026-10-18", 2)
	require.NoError(t, err)
	assert.False(t, summary.Closed)
	assert.Equal(t, 3, summary.SalesCount)
	assert.True(t, summary.Total.Equal(d("50")))
	assert.True(t, summary.Cash().Equal(d("30")))
	assert.Empty(t, repo.closures)

	_, err = svc.Create(ctx, CreateInput{Date: "2026-10-18", UserID: 2, CountedCash: d("30")})
	require.NoError(t, err)

	v, err = svc.Verify(ctx, "2026-10-18", 2)
	require.NoError(t, err)
	assert.True(t, v.Exists)
	require.NotNil(t, v.Closure)
	assert.True(t, v.Closure.Variance.IsZero())

	summary, err = svc.Preview(ctx, "2026-10-18", 2)
	require.NoError(t, err)
	assert.True(t, summary.Closed)
}
