package rbac

import "github.com/naguara/naguara-pos/internal/shared"

// Role groups the permissions granted to users holding it.
type Role struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// DefaultRoles is the fixed role table of the shop.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        shared.RoleAdmin,
			Description: "Administrador",
			Permissions: shared.AllPermissions(),
		},
		{
			Name:        shared.RoleCashier,
			Description: "Cajero",
			Permissions: []string{
				shared.PermCatalogView,
				shared.PermCustomerView, shared.PermCustomerEdit,
				shared.PermSaleCreate, shared.PermSaleView,
				shared.PermCashCloseCreate,
				shared.PermReportsView,
			},
		},
		{
			Name:        shared.RoleWarehouse,
			Description: "Almacén",
			Permissions: []string{
				shared.PermCatalogView, shared.PermCatalogEdit, shared.PermStockAdjust,
				shared.PermTransformCreate, shared.PermTransformView,
				shared.PermPurchaseView, shared.PermPurchaseEdit, shared.PermPurchaseReceive,
				shared.PermReportsView,
			},
		},
	}
}
