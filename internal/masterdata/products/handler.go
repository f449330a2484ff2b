package products

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	"github.com/naguara/naguara-pos/internal/platform/httpx"
	"github.com/naguara/naguara-pos/internal/rbac"
	core "github.com/naguara/naguara-pos/internal/shared"
)

// StockRoutes serves the ledger views nested under a product.
type StockRoutes interface {
	StockCard(w http.ResponseWriter, r *http.Request)
	LowStock(w http.ResponseWriter, r *http.Request)
}

type Handler struct {
	logger  *slog.Logger
	service *Service
	stock   StockRoutes
	rbac    rbac.Middleware
}

func NewHandler(logger *slog.Logger, service *Service, stock StockRoutes, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, stock: stock, rbac: rbac}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.PermCatalogView))
		r.Get("/", h.List)
		r.Get("/stock-bajo", h.stock.LowStock)
		r.Get("/{id}", h.Show)
		r.Get("/{id}/movimientos", h.stock.StockCard)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(core.PermCatalogEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.List(r.Context(), shared.FiltersFromRequest(r))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	product, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := core.UserFromContext(r.Context())
	var form ProductForm
	if err := httpx.DecodeJSON(w, r, &form); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	created, err := h.service.Create(r.Context(), user.ID, form)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, _ := core.UserFromContext(r.Context())
	var form ProductForm
	if err := httpx.DecodeJSON(w, r, &form); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	// Stock edits are ledger adjustments and need their own permission.
	if form.Stock.Valid && h.rbac.Service != nil && !h.rbac.Service.Can(user.Role, core.PermStockAdjust) {
		current, err := h.service.Get(r.Context(), id)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		if !current.Stock.Equal(form.Stock.Decimal) {
			httpx.RespondError(w, r, h.logger, core.NewError(core.ErrForbidden, "no tiene permisos para ajustar stock"))
			return
		}
	}
	updated, err := h.service.Update(r.Context(), user.ID, id, form)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, _ := core.UserFromContext(r.Context())
	result, err := h.service.Delete(r.Context(), user.ID, id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
