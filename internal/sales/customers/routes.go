package customers

import (
	"github.com/go-chi/chi/v5"

	core "github.com/naguara/naguara-pos/internal/shared"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(core.PermCustomerView, core.PermSaleCreate))
		r.Get("/", h.List)
		r.Get("/cedula/{cedula}", h.ByCedula)
		r.Get("/{id}", h.Show)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll(core.PermCustomerEdit))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
	})
}
