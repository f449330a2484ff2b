package cashclose

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

// Handler exposes /cierre-caja.
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

// MountRoutes registers closure routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(shared.PermCashCloseCreate, shared.PermCashCloseViewAll))
	r.Get("/", h.handleList)
	r.Get("/verificar", h.handleVerify)
	r.Get("/resumen", h.handlePreview)
	r.With(h.rbac.RequireAll(shared.PermCashCloseCreate)).Post("/", h.handleCreate)
}

// targetUser resolves usuario_id: operators without view_all only see themselves.
func (h *Handler) targetUser(r *http.Request) (int64, error) {
	user, _ := shared.UserFromContext(r.Context())
	requested, err := httpx.OptionalID(r, "usuario_id")
	if err != nil {
		return 0, err
	}
	if requested == 0 || requested == user.ID {
		return user.ID, nil
	}
	if h.rbac.Service == nil || !h.rbac.Service.Can(user.Role, shared.PermCashCloseViewAll) {
		return 0, shared.NewError(shared.ErrForbidden, "no tiene permisos para ver cierres de otros usuarios")
	}
	return requested, nil
}

type createRequest struct {
	Date        string          `json:"fecha"`
	OpeningCash decimal.Decimal `json:"monto_inicial"`
	CountedCash decimal.Decimal `json:"monto_contado"`
	Notes       string          `json:"notas" validate:"max=500"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	user, _ := shared.UserFromContext(r.Context())
	var req createRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	c, err := h.service.Create(r.Context(), CreateInput{
		Date:        req.Date,
		UserID:      user.ID,
		OpeningCash: req.OpeningCash,
		CountedCash: req.CountedCash,
		Notes:       req.Notes,
	})
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	userID, err := h.targetUser(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	v, err := h.service.Verify(r.Context(), r.URL.Query().Get("fecha"), userID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, v)
}

func (h *Handler) handlePreview(w http.ResponseWriter, r *http.Request) {
	userID, err := h.targetUser(r)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	summary, err := h.service.Preview(r.Context(), r.URL.Query().Get("fecha"), userID)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	user, _ := shared.UserFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{Page: shared.PageFromQuery(q), UserID: user.ID}
	if h.rbac.Service != nil && h.rbac.Service.Can(user.Role, shared.PermCashCloseViewAll) {
		id, err := httpx.OptionalID(r, "usuario_id")
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		filter.UserID = id
	}
	if q.Get("desde") != "" || q.Get("hasta") != "" {
		from, to, err := httpx.DateRange(r, h.loc)
		if err != nil {
			httpx.RespondError(w, r, h.logger, err)
			return
		}
		filter.From, filter.To = from, to
	}
	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, r, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, page)
}
