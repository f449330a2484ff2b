package masterdata

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/naguara/naguara-pos/internal/masterdata/categories"
	"github.com/naguara/naguara-pos/internal/masterdata/products"
	"github.com/naguara/naguara-pos/internal/masterdata/suppliers"
	"github.com/naguara/naguara-pos/internal/masterdata/taxes"
	"github.com/naguara/naguara-pos/internal/rbac"
)

// Handler groups the catalog endpoints.
type Handler struct {
	Categories *categories.Handler
	Taxes      *taxes.Handler
	Suppliers  *suppliers.Handler
	Products   *products.Handler
}

// NewHandler wires repositories, services and handlers for the catalog.
func NewHandler(logger *slog.Logger, pool *pgxpool.Pool, audit products.AuditPort, stock products.StockRoutes, rbac rbac.Middleware) *Handler {
	return &Handler{
		Categories: categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool)), rbac),
		Taxes:      taxes.NewHandler(logger, taxes.NewService(taxes.NewRepository(pool)), rbac),
		Suppliers:  suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool)), rbac),
		Products:   products.NewHandler(logger, products.NewService(products.NewRepository(pool), audit, logger), stock, rbac),
	}
}

// MountRoutes registers catalog routes under the API router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/categorias", h.Categories.MountRoutes)
	r.Route("/impuestos", h.Taxes.MountRoutes)
	r.Route("/proveedores", h.Suppliers.MountRoutes)
	r.Route("/productos", h.Products.MountRoutes)
}
