package shared

// Permission names checked by rbac middleware.
const (
	PermUsersView = "users.view"
	PermUsersEdit = "users.edit"

	PermCatalogView = "catalog.view"
	PermCatalogEdit = "catalog.edit"
	PermStockAdjust = "inventory.adjust"

	PermCustomerView = "customers.view"
	PermCustomerEdit = "customers.edit"

	PermSaleCreate = "sales.create"
	PermSaleView   = "sales.view"
	PermSaleVoid   = "sales.void"

	PermTransformCreate = "inventory.transform"
	PermTransformView   = "inventory.transform.view"

	PermPurchaseView    = "purchases.view"
	PermPurchaseEdit    = "purchases.edit"
	PermPurchaseReceive = "purchases.receive"

	PermCashCloseCreate  = "cashclose.create"
	PermCashCloseViewAll = "cashclose.view_all"

	PermFXManage = "fx.manage"

	PermReportsView = "reports.view"
	PermJobsManage  = "jobs.manage"
)

// Role names stored on users.
const (
	RoleAdmin     = "admin"
	RoleCashier   = "cajero"
	RoleWarehouse = "almacen"
)

// Roles lists the accepted role names.
func Roles() []string {
	return []string{RoleAdmin, RoleCashier, RoleWarehouse}
}

// AllPermissions lists every permission; admin holds all of them.
func AllPermissions() []string {
	return []string{
		PermUsersView, PermUsersEdit,
		PermCatalogView, PermCatalogEdit, PermStockAdjust,
		PermCustomerView, PermCustomerEdit,
		PermSaleCreate, PermSaleView, PermSaleVoid,
		PermTransformCreate, PermTransformView,
		PermPurchaseView, PermPurchaseEdit, PermPurchaseReceive,
		PermCashCloseCreate, PermCashCloseViewAll,
		PermFXManage, PermReportsView, PermJobsManage,
	}
}
