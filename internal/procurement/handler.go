package procurement

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

// Handler manages purchase endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers /compras.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPurchaseView))
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(shared.PermPurchaseEdit))
		r.Post("/", h.handleCreate)
		r.Put("/{id}/cancelar", h.handleCancel)
	})
	r.With(h.rbac.RequireAll(shared.PermPurchaseReceive)).Put("/{id}/recibir", h.handleReceive)
}

type lineRequest struct {
	ProductID int64           `json:"producto_id" validate:"required,gt=0"`
	Qty       decimal.Decimal `json:"cantidad"`
	UnitCost  decimal.Decimal `json:"costo_unitario"`
}

type createRequest struct {
	SupplierID    int64         `json:"proveedor_id" validate:"required,gt=0"`
	InvoiceNumber string        `json:"numero_factura" validate:"max=60"`
	Notes         string        `json:"notas" validate:"max=500"`
	Items         []lineRequest `json:"items" validate:"dive"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := shared.UserFromContext(r.Context())
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	in := CreateInput{SupplierID: req.SupplierID, InvoiceNumber: req.InvoiceNumber, Notes: req.Notes, UserID: user.ID}
	for _, it := range req.Items {
		in.Lines = append(in.Lines, LineInput(it))
	}
	p, err := h.service.CreatePurchase(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

type receiveRequest struct {
	Items []struct {
		LineID int64           `json:"linea_id" validate:"required,gt=0"`
		Qty    decimal.Decimal `json:"cantidad"`
	} `json:"items" validate:"dive"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, _ := shared.UserFromContext(r.Context())
	var req receiveRequest
	if r.ContentLength != 0 {
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
	}
	in := ReceiveInput{PurchaseID: id, UserID: user.ID}
	for _, it := range req.Items {
		in.Lines = append(in.Lines, ReceivedQty{LineID: it.LineID, Qty: it.Qty})
	}
	p, err := h.service.ReceivePurchase(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, _ := shared.UserFromContext(r.Context())
	p, err := h.service.CancelPurchase(r.Context(), id, user.ID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	p, err := h.service.GetPurchase(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Page: shared.PageFromQuery(q)}
	switch status := q.Get("estado"); status {
	case "", StatusPending, StatusReceived, StatusCancelled:
		filter.Status = status
	default:
		httpx.RespondError(w, r, h.logger, shared.Validation("estado inválido"))
		return
	}
	if q.Get("desde") != "" || q.Get("hasta") != "" {
		from, to, err := httpx.DateRange(r, h.loc)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		filter.From, filter.To = from, to
	}
	var err error
	if filter.SupplierID, err = httpx.OptionalID(r, "proveedor_id"); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page, err := h.service.ListPurchases(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}
