package sales

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/platform/httpx"
	"github.com/naguara/naguara-pos/internal/rbac"
	"github.com/naguara/naguara-pos/internal/shared"
)

// IdempotencyHeader carries the client supplied request key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes sale endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	loc     *time.Location
}

// NewHandler constructs a sales handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{logger: logger, service: service, rbac: rbac, loc: loc}
}

// MountRoutes registers /ventas.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermSaleCreate)).Post("/", h.createSale)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSaleView))
		r.Get("/", h.listSales)
		r.Get("/{id}", h.showSale)
	})
}

// MountInvoiceRoutes registers /facturas-venta.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermSaleView))
		r.Get("/", h.listSales)
		r.Get("/{id}", h.showSale)
	})
	r.With(h.rbac.RequireAll(shared.PermSaleVoid)).Put("/{id}/anular", h.voidSale)
}

type lineRequest struct {
	ProductID int64           `json:"producto_id" validate:"required,gt=0"`
	Quantity  decimal.Decimal `json:"cantidad"`
}

type splitRequest struct {
	Method    string          `json:"metodo" validate:"required"`
	Amount    decimal.Decimal `json:"monto"`
	Reference string          `json:"referencia"`
	Bank      string          `json:"banco"`
}

type createSaleRequest struct {
	CustomerID *int64           `json:"cliente_id"`
	Method     string           `json:"metodo_pago" validate:"required"`
	Reference  string           `json:"referencia"`
	Bank       string           `json:"banco"`
	Received   *decimal.Decimal `json:"monto_recibido"`
	Splits     []splitRequest   `json:"pagos" validate:"dive"`
	Items      []lineRequest    `json:"items" validate:"dive"`
}

func (req createSaleRequest) input(userID int64, key string) CreateInput {
	in := CreateInput{
		CustomerID:     req.CustomerID,
		UserID:         userID,
		IdempotencyKey: key,
		Payment: PaymentInput{
			Method:    req.Method,
			Reference: req.Reference,
			Bank:      req.Bank,
			Received:  req.Received,
		},
	}
	for _, s := range req.Splits {
		in.Payment.Splits = append(in.Payment.Splits, SplitInput(s))
	}
	for _, it := range req.Items {
		in.Lines = append(in.Lines, LineInput(it))
	}
	return in
}

func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	user, _ := shared.UserFromContext(r.Context())
	var req createSaleRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sale, err := h.service.CreateSale(r.Context(), req.input(user.ID, strings.TrimSpace(r.Header.Get(IdempotencyHeader))))
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{Page: shared.PageFromQuery(r.URL.Query())}
	q := r.URL.Query()
	if q.Get("desde") != "" || q.Get("hasta") != "" {
		from, to, err := httpx.DateRange(r, h.loc)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		filter.From, filter.To = from, to
	}
	switch status := q.Get("estado"); status {
	case "", StatusCompleted, StatusVoided:
		filter.Status = status
	default:
		httpx.RespondError(w, r, h.logger, shared.Validation("estado inválido"))
		return
	}
	var err error
	if filter.UserID, err = httpx.OptionalID(r, "usuario_id"); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	if filter.CustomerID, err = httpx.OptionalID(r, "cliente_id"); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	page, err := h.service.ListSales(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}

func (h *Handler) showSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

type voidRequest struct {
	Reason string `json:"motivo"`
}

func (h *Handler) voidSale(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	user, _ := shared.UserFromContext(r.Context())
	var req voidRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	sale, err := h.service.VoidSale(r.Context(), VoidInput{SaleID: id, UserID: user.ID, Reason: req.Reason})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}
