package fx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/shared"
)

type stubFetcher struct {
	mu    sync.Mutex
	value decimal.Decimal
	err   error
	calls atomic.Int32
	gate  chan struct{}
}

func (f *stubFetcher) Fetch(ctx context.Context) (decimal.Decimal, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

func (f *stubFetcher) set(v string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v != "" {
		f.value = decimal.RequireFromString(v)
	}
	f.err = err
}

type memoryRepo struct {
	mu    sync.Mutex
	rates []Rate
}

func (m *memoryRepo) Latest(ctx context.Context) (Rate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.rates) - 1; i >= 0; i-- {
		if m.rates[i].IsActive {
			return m.rates[i], nil
		}
	}
	return Rate{}, ErrNotFound
}

func (m *memoryRepo) Insert(ctx context.Context, r Rate) (Rate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = int64(len(m.rates) + 1)
	r.IsActive = true
	r.CreatedAt = time.Now()
	m.rates = append(m.rates, r)
	return r, nil
}

func (m *memoryRepo) SetActive(ctx context.Context, id int64, active bool) (Rate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rates {
		if m.rates[i].ID == id {
			m.rates[i].IsActive = active
			return m.rates[i], nil
		}
	}
	return Rate{}, ErrNotFound
}

func (m *memoryRepo) History(ctx context.Context, limit int) ([]Rate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Rate(nil), m.rates...), nil
}

func newTestService(t *testing.T, fetcher Fetcher, repo *memoryRepo) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	svc := NewService(repo, fetcher, rdb, shared.NewLocker(rdb), Options{
		CacheTTL:        time.Minute,
		FloorRate:       decimal.RequireFromString("36"),
		ChangeThreshold: decimal.RequireFromString("0.01"),
	}, nil, nil)
	return svc, mr
}

func TestCurrentFromProviderPersistsAndCaches(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("40.1234", nil)
	repo := &memoryRepo{}
	svc, _ := newTestService(t, fetcher, repo)

	q := svc.Current(context.Background())
	assert.Equal(t, SourceAPI, q.Source)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("40.1234")))
	require.Len(t, repo.rates, 1)

	q = svc.Current(context.Background())
	assert.Equal(t, SourceAPI, q.Source)
	assert.Equal(t, int32(1), fetcher.calls.Load())
}

func TestSmallChangesAreNotPersisted(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("40.00", nil)
	repo := &memoryRepo{}
	svc, _ := newTestService(t, fetcher, repo)

	svc.Current(context.Background())
	require.NoError(t, svc.Invalidate(context.Background()))
	fetcher.set("40.005", nil)
	svc.Current(context.Background())
	assert.Len(t, repo.rates, 1)

	require.NoError(t, svc.Invalidate(context.Background()))
	fetcher.set("40.50", nil)
	svc.Current(context.Background())
	assert.Len(t, repo.rates, 2)
}

func TestFallbackChain(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("", errors.New("timeout"))
	repo := &memoryRepo{}
	svc, _ := newTestService(t, fetcher, repo)

	q := svc.Current(context.Background())
	assert.Equal(t, SourceFallback, q.Source)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("36")))

	_, err := svc.SetManual(context.Background(), 1, decimal.RequireFromString("41.5"))
	require.NoError(t, err)
	q = svc.Current(context.Background())
	assert.Equal(t, SourceManual, q.Source)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("41.5")))

	_, err = svc.SetActive(context.Background(), 1, false)
	require.NoError(t, err)
	q = svc.Current(context.Background())
	assert.Equal(t, SourceFallback, q.Source)
}

func TestFallbackIsNotCached(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("", errors.New("connection refused"))
	repo := &memoryRepo{}
	svc, mr := newTestService(t, fetcher, repo)
	ctx := context.Background()

	q := svc.Current(ctx)
	assert.Equal(t, SourceFallback, q.Source)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("36")))
	assert.Empty(t, mr.Keys(), "floor rate must not be cached")

	fetcher.set("40", nil)
	q = svc.Current(ctx)
	assert.Equal(t, SourceAPI, q.Source)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("40")))
	assert.Equal(t, int32(2), fetcher.calls.Load())

	// a stored rate served during an outage is not cached either
	fetcher.set("", errors.New("connection refused"))
	require.NoError(t, svc.Invalidate(ctx))
	q = svc.Current(ctx)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("40")))
	fetcher.set("41", nil)
	q = svc.Current(ctx)
	assert.Equal(t, SourceAPI, q.Source)
	assert.True(t, q.Value.Equal(decimal.RequireFromString("41")))
	assert.Equal(t, int32(4), fetcher.calls.Load())
}

func TestNonPositiveProviderValueFallsBack(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("0", nil)
	repo := &memoryRepo{}
	svc, _ := newTestService(t, fetcher, repo)

	q := svc.Current(context.Background())
	assert.Equal(t, SourceFallback, q.Source)
	assert.Empty(t, repo.rates)
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	fetcher := &stubFetcher{gate: make(chan struct{})}
	fetcher.set("39", nil)
	svc, _ := newTestService(t, fetcher, &memoryRepo{})

	var wg sync.WaitGroup
	results := make([]Quote, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.Current(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(fetcher.gate)
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.calls.Load())
	for _, q := range results {
		assert.True(t, q.Value.Equal(decimal.RequireFromString("39")))
	}
}

func TestSetManualRejectsNonPositive(t *testing.T) {
	svc, _ := newTestService(t, &stubFetcher{}, &memoryRepo{})
	_, err := svc.SetManual(context.Background(), 1, decimal.Zero)
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestRefreshBusyWhenLocked(t *testing.T) {
	fetcher := &stubFetcher{}
	fetcher.set("40", nil)
	svc, mr := newTestService(t, fetcher, &memoryRepo{})
	require.NoError(t, mr.Set(shared.FXRefreshLockKey, "other"))

	_, err := svc.Refresh(context.Background())
	assert.ErrorIs(t, err, shared.ErrLockBusy)

	mr.Del(shared.FXRefreshLockKey)
	q, err := svc.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceAPI, q.Source)
}

func TestHTTPProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fuente":"oficial","data":{"promedio":"36,52"},"promedio":36.5}`))
	}))
	defer srv.Close()

	v, err := NewHTTPProvider(srv.URL, "promedio", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("36.5")))

	v, err = NewHTTPProvider(srv.URL, "data.promedio", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Equal(decimal.RequireFromString("36.52")))

	_, err = NewHTTPProvider(srv.URL, "fuente", time.Second).Fetch(context.Background())
	assert.Error(t, err)

	_, err = NewHTTPProvider(srv.URL, "missing", time.Second).Fetch(context.Background())
	assert.Error(t, err)
}
