package inventory

import "context"

// AlertHandler receives the result of a low-stock scan.
type AlertHandler interface {
	HandleLowStock(ctx context.Context, alerts []LowStockAlert) error
}
