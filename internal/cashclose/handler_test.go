package cashclose

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/shared"
)

func newRouter(t *testing.T, repo *memoryRepo, userID int64, role string) http.Handler {
	h := NewHandler(nil, newTestService(t, repo), rbac.Middleware{Service: rbac.NewService(rbac.DefaultRoles())}, caracas)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithUser(req.Context(), shared.CurrentUser{ID: userID, Role: role})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/cierre-caja", h.MountRoutes)
	return r
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCashierClosesOwnDay(t *testing.T) {
	repo := newMemoryRepo(daySales()...)
	h := newRouter(t, repo, 2, shared.RoleCashier)

	rec := do(h, http.MethodPost, "/cierre-caja", `{"fecha":"2026-10-18","monto_inicial":"10","monto_contado":"40"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"variance":"0"`)

	rec = do(h, http.MethodPost, "/cierre-caja", `{"fecha":"2026-10-18","monto_inicial":"10","monto_contado":"40"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(h, http.MethodGet, "/cierre-caja/verificar?fecha=2026-10-18", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"exists":true`)

	rec = do(h, http.MethodPost, "/cierre-caja", `{"fecha":"2026-12-01","monto_inicial":"0","monto_contado":"0"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOtherUsersNeedViewAll(t *testing.T) {
	repo := newMemoryRepo(daySales()...)
	cashier := newRouter(t, repo, 2, shared.RoleCashier)
	assert.Equal(t, http.StatusForbidden, do(cashier, http.MethodGet, "/cierre-caja/resumen?fecha=2026-10-18&usuario_id=3", "").Code)

	admin := newRouter(t, repo, 1, shared.RoleAdmin)
	rec := do(admin, http.MethodGet, "/cierre-caja/resumen?fecha=2026-10-18&usuario_id=3", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"sales_count":1`)

	warehouse := newRouter(t, repo, 4, shared.RoleWarehouse)
	assert.Equal(t, http.StatusForbidden, do(warehouse, http.MethodGet, "/cierre-caja", "").Code)
}
