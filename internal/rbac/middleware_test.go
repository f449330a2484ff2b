package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/shared"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, user *shared.CurrentUser) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user != nil {
		req = req.WithContext(shared.ContextWithUser(req.Context(), *user))
	}
	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})).ServeHTTP(rec, req)
	return rec.Code
}

func TestRequireAnyByRole(t *testing.T) {
	m := Middleware{Service: NewService(DefaultRoles())}
	cashier := &shared.CurrentUser{ID: 2, Role: shared.RoleCashier}
	admin := &shared.CurrentUser{ID: 1, Role: shared.RoleAdmin}
	stock := &shared.CurrentUser{ID: 3, Role: shared.RoleWarehouse}

	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.PermSaleCreate), cashier))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny(shared.PermSaleVoid), cashier))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.PermSaleVoid), admin))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAny(shared.PermSaleCreate), stock))
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAny(shared.PermSaleCreate, shared.PermTransformCreate), stock))
	assert.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAny(shared.PermSaleCreate), nil))
}

func TestRequireAll(t *testing.T) {
	m := Middleware{Service: NewService(DefaultRoles())}
	stock := &shared.CurrentUser{ID: 3, Role: shared.RoleWarehouse}
	assert.Equal(t, http.StatusNoContent, serve(t, m.RequireAll(shared.PermCatalogEdit, shared.PermStockAdjust), stock))
	assert.Equal(t, http.StatusForbidden, serve(t, m.RequireAll(shared.PermCatalogEdit, shared.PermSaleVoid), stock))
}

func TestUnknownRoleHasNoPermissions(t *testing.T) {
	svc := NewService(DefaultRoles())
	require.False(t, svc.Can("ghost", shared.PermCatalogView))
	require.True(t, svc.Can(shared.RoleAdmin, shared.PermJobsManage))
	require.Len(t, svc.ListRoles(), 3)
}
