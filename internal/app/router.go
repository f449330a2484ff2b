package app

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/naguara/naguara-pos/internal/auth"
	"github.com/naguara/naguara-pos/internal/cashclose"
	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/masterdata"
	"github.com/naguara/naguara-pos/internal/observability"
	"github.com/naguara/naguara-pos/internal/platform/httpx"
	"github.com/naguara/naguara-pos/internal/procurement"
	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/reports"
	"github.com/naguara/naguara-pos/internal/sales"
	"github.com/naguara/naguara-pos/internal/sales/customers"
	"github.com/naguara/naguara-pos/internal/shared"
	"github.com/naguara/naguara-pos/internal/users"
	"github.com/naguara/naguara-pos/jobs"
)

// LoginPath is the only mutating route reachable without a CSRF token.
const LoginPath = "/api/auth/login"

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics

	AuthService *auth.Service
	AuthHandler *auth.Handler

	MasterDataHandler  *masterdata.Handler
	CustomersHandler   *customers.Handler
	UsersHandler       *users.Handler
	SalesHandler       *sales.Handler
	InventoryHandler   *inventory.Handler
	ProcurementHandler *procurement.Handler
	CashCloseHandler   *cashclose.Handler
	FXHandler          *fx.Handler
	ReportsHandler     *reports.Handler
	JobHandler         *jobs.Handler
	PermissionsHandler *rbac.PermissionsHandler
}

// NewRouter constructs the chi.Router serving the JSON API.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
		CSRFExempt:     []string{LoginPath},
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.NotFound(func(w http.ResponseWriter, r *http.Request) {
			httpx.Error(w, http.StatusNotFound, "ruta no encontrada")
		})
		api.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
			httpx.Error(w, http.StatusMethodNotAllowed, "método no permitido")
		})

		requireUser := auth.RequireUser(params.AuthService, params.Logger)
		api.Route("/auth", func(r chi.Router) {
			params.AuthHandler.MountRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				params.AuthHandler.MountSessionRoutes(r)
			})
		})

		api.Group(func(api chi.Router) {
			api.Use(requireUser)
			if params.MasterDataHandler != nil {
				params.MasterDataHandler.MountRoutes(api)
			}
			route(api, "/clientes", params.CustomersHandler)
			route(api, "/usuarios", params.UsersHandler)
			route(api, "/ventas", params.SalesHandler)
			if params.SalesHandler != nil {
				api.Route("/facturas-venta", params.SalesHandler.MountInvoiceRoutes)
			}
			route(api, "/transformaciones", params.InventoryHandler)
			route(api, "/compras", params.ProcurementHandler)
			route(api, "/cierre-caja", params.CashCloseHandler)
			route(api, "/tasa-cambio", params.FXHandler)
			route(api, "/reportes", params.ReportsHandler)
			if params.ReportsHandler != nil {
				api.Route("/dashboard", params.ReportsHandler.MountDashboard)
			}
			route(api, "/jobs", params.JobHandler)
			route(api, "/permissions", params.PermissionsHandler)
		})
	})

	if params.Config != nil && params.Config.StaticDir != "" {
		r.Handle("/*", staticCacheHandler(spaHandler(params.Config.StaticDir)))
	}

	return r
}

type routeMounter interface {
	MountRoutes(r chi.Router)
}

// route mounts h under pattern unless h is a typed nil.
func route[H interface {
	comparable
	routeMounter
}](r chi.Router, pattern string, h H) {
	var zero H
	if h == zero {
		return
	}
	r.Route(pattern, h.MountRoutes)
}

// spaHandler serves files under dir and falls back to index.html so the
// client router can resolve deep links.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := filepath.Clean("/" + strings.TrimPrefix(r.URL.Path, "/"))
		if info, err := os.Stat(filepath.Join(dir, clean)); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}

// staticCacheHandler lets browsers cache static assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
