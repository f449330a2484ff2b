package inventory

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/platform/httpx"
	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers transformation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermTransformView, shared.PermTransformCreate))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.With(h.rbac.RequireAny(shared.PermTransformCreate)).Post("/", h.handleCreate)
}

type transformationRequest struct {
	SourceProductID int64           `json:"producto_origen_id" validate:"required,gt=0"`
	SourceQty       decimal.Decimal `json:"cantidad_origen"`
	Outputs         []struct {
		ProductID int64           `json:"producto_id" validate:"required,gt=0"`
		Quantity  decimal.Decimal `json:"cantidad"`
	} `json:"salidas" validate:"dive"`
	Notes string `json:"notas" validate:"max=500"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req transformationRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, _ := shared.UserFromContext(r.Context())
	input := TransformationInput{
		UserID:          user.ID,
		SourceProductID: req.SourceProductID,
		SourceQty:       req.SourceQty,
		Notes:           req.Notes,
	}
	for _, out := range req.Outputs {
		input.Outputs = append(input.Outputs, TransformationOutput{ProductID: out.ProductID, Quantity: out.Quantity})
	}
	result, err := h.service.ProcessTransformation(r.Context(), input)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	from, to, err := httpx.DateRange(r, h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page, err := h.service.ListTransformations(r.Context(), TransformationFilter{
		From: from,
		To:   to,
		Page: shared.PageFromQuery(r.URL.Query()),
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	result, err := h.service.GetTransformation(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// StockCard serves the movements of the product named by the "id" URL param.
func (h *Handler) StockCard(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	from, to, err := httpx.DateRange(r, h.loc)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page, err := h.service.Movements(r.Context(), MovementFilter{
		ProductID: id,
		Kind:      MovementKind(r.URL.Query().Get("tipo")),
		From:      from,
		To:        to,
		Page:      shared.PageFromQuery(r.URL.Query()),
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

// LowStock serves the products at or below their minimum stock.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.service.LowStock(r.Context())
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, alerts)
}
