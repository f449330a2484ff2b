package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/inventory"
	jobmetrics "github.com/naguara/naguara-pos/internal/jobs"
	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/shared"
)

type stubRates struct {
	err   error
	calls int
}

func (s *stubRates) Refresh(ctx context.Context) (fx.Quote, error) {
	s.calls++
	return fx.Quote{Value: decimal.RequireFromString("36.80"), Source: fx.SourceAPI}, s.err
}

type stubScanner struct{ n int }

func (s stubScanner) ScanLowStock(ctx context.Context) (int, error) { return s.n, nil }

type stubPurger struct{ olderThan time.Duration }

func (s *stubPurger) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	s.olderThan = olderThan
	return 12, nil
}

func TestFXRefreshTreatsBusyLockAsSuccess(t *testing.T) {
	rates := &stubRates{err: shared.ErrLockBusy}
	job := NewFXRefreshJob(rates, nil, nil)
	require.NoError(t, job.Handle(context.Background(), NewFXRefreshTask()))

	rates.err = errors.New("redis down")
	assert.Error(t, job.Handle(context.Background(), NewFXRefreshTask()))
	assert.Equal(t, 2, rates.calls)
}

func TestLowStockJobCountsProducts(t *testing.T) {
	metrics := jobmetrics.NewMetrics(prometheus.NewRegistry())
	job := NewLowStockJob(stubScanner{n: 3}, nil, metrics)
	require.NoError(t, job.Handle(context.Background(), NewLowStockScanTask()))
}

func TestLogAlertsWritesOneLinePerProduct(t *testing.T) {
	var buf bytes.Buffer
	alerts := LogAlerts{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	err := alerts.HandleLowStock(context.Background(), []inventory.LowStockAlert{
		{ProductID: 1, Name: "Pollo entero", Stock: decimal.NewFromInt(2), MinStock: decimal.NewFromInt(5)},
		{ProductID: 2, Name: "Alas", Stock: decimal.Zero, MinStock: decimal.NewFromInt(1)},
	})
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	var first map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &first))
	assert.Equal(t, "3", first["shortfall"])
}

func TestIdempotencyCleanupDefaultsRetention(t *testing.T) {
	purger := &stubPurger{}
	job := NewIdempotencyCleanupJob(purger, nil, nil)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, DefaultIdempotencyRetention, purger.olderThan)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, purger.olderThan)

	err = job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestJobMetricsTrackOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	job := NewFXRefreshJob(&stubRates{err: errors.New("boom")}, nil, metrics)
	_ = job.Handle(context.Background(), NewFXRefreshTask())

	purger := &stubPurger{}
	cleanup := NewIdempotencyCleanupJob(purger, nil, metrics)
	require.NoError(t, cleanup.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))

	expected := `
# HELP naguara_jobs_failures_total Failed job executions.
# TYPE naguara_jobs_failures_total counter
naguara_jobs_failures_total{job="fx:refresh"} 1
# HELP naguara_job_items_total Rows touched by jobs, such as products flagged or keys purged.
# TYPE naguara_job_items_total counter
naguara_job_items_total{job="maintenance:idempotency-cleanup"} 12
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"naguara_jobs_failures_total", "naguara_job_items_total"))
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) { return s.info, s.err }

func healthRouter(inspector QueueInspector, role string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithUser(req.Context(), shared.CurrentUser{ID: 1, Username: "u", Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	mw := rbac.Middleware{Service: rbac.NewService(rbac.DefaultRoles())}
	r.Route("/api/jobs", NewHandler(inspector, mw, nil).MountRoutes)
	return r
}

func TestHealthEndpoint(t *testing.T) {
	h := healthRouter(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 4, Retry: 1}}, shared.RoleAdmin)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 4, body.Pending)
	assert.Equal(t, 1, body.Retry)

	h = healthRouter(stubInspector{err: errors.New("no redis")}, shared.RoleAdmin)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	h = healthRouter(nil, shared.RoleCashier)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/jobs/health", nil))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}
