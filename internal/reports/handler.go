package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/naguara/naguara-pos/internal/platform/httpx"
	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/shared"
)

// Handler exposes report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers /reportes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermReportsView))
	r.Get("/resumen-diario", h.handleDaily)
	r.Get("/ventas", h.handleSeries)
}

// MountDashboard registers /dashboard.
func (h *Handler) MountDashboard(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermReportsView))
	r.Get("/estadisticas", h.handleDashboard)
}

func (h *Handler) handleDaily(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DailySummary(r.Context(), r.URL.Query().Get("fecha"))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleSeries(w http.ResponseWriter, r *http.Request) {
	from, to, err := httpx.DateRange(r, h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	points, err := h.service.SalesSeries(r.Context(), from, to)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": points})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Dashboard(r.Context()))
}
