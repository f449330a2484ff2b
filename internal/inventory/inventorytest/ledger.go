// Package inventorytest provides an in-memory stock ledger for tests of the
// modules that move stock.
package inventorytest

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/inventory"
)

// MemoryLedger implements inventory.Ledger over a map. WithTx serializes
// callers and restores the previous state when the callback fails.
type MemoryLedger struct {
	txMu      sync.Mutex
	mu        sync.Mutex
	products  map[int64]inventory.StockLevel
	movements []inventory.MovementRecord
	nextID    int64
}

// NewMemoryLedger seeds the ledger with products.
func NewMemoryLedger(levels ...inventory.StockLevel) *MemoryLedger {
	l := &MemoryLedger{products: make(map[int64]inventory.StockLevel, len(levels))}
	for _, lvl := range levels {
		l.products[lvl.ID] = lvl
	}
	return l
}

// Product builds an active stock level with a zero tax rate.
func Product(id int64, name string, stock, price string) inventory.StockLevel {
	return inventory.StockLevel{
		ID:      id,
		Code:    name,
		Name:    name,
		Unit:    "kg",
		Stock:   decimal.RequireFromString(stock),
		Price:   decimal.RequireFromString(price),
		TaxRate: decimal.Zero,
		Active:  true,
	}
}

// WithTx runs fn as one transaction.
func (l *MemoryLedger) WithTx(fn func() error) error {
	l.txMu.Lock()
	defer l.txMu.Unlock()
	restore := l.snapshot()
	if err := fn(); err != nil {
		restore()
		return err
	}
	return nil
}

func (l *MemoryLedger) snapshot() func() {
	l.mu.Lock()
	products := maps.Clone(l.products)
	movements := slices.Clone(l.movements)
	nextID := l.nextID
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.products = products
		l.movements = movements
		l.nextID = nextID
		l.mu.Unlock()
	}
}

// LockProducts returns copies of the requested rows.
func (l *MemoryLedger) LockProducts(ctx context.Context, ids []int64) (map[int64]inventory.StockLevel, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[int64]inventory.StockLevel, len(ids))
	for _, id := range inventory.SortedIDs(ids) {
		lvl, ok := l.products[id]
		if !ok {
			return nil, inventory.ErrProductNotFound
		}
		out[id] = lvl
	}
	return out, nil
}

// Apply mirrors the PostgreSQL ledger: it refuses negative results.
func (l *MemoryLedger) Apply(ctx context.Context, m inventory.Movement) (decimal.Decimal, error) {
	if m.Qty.IsZero() {
		return decimal.Zero, inventory.ErrInvalidQuantity
	}
	if !inventory.QuantityFits(m.Qty) {
		return decimal.Zero, inventory.ErrQuantityPrecision
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lvl, ok := l.products[m.ProductID]
	if !ok {
		return decimal.Zero, inventory.ErrProductNotFound
	}
	next := lvl.Stock.Add(m.Qty)
	if next.IsNegative() {
		return decimal.Zero, &inventory.StockError{ProductID: lvl.ID, Name: lvl.Name, Available: lvl.Stock, Requested: m.Qty.Neg(), Kind: inventory.ErrNegativeStock}
	}
	lvl.Stock = next
	l.products[m.ProductID] = lvl
	l.nextID++
	rec := inventory.MovementRecord{
		ID:           l.nextID,
		ProductID:    m.ProductID,
		Kind:         m.Kind,
		Qty:          m.Qty,
		BalanceAfter: next,
		RefModule:    m.RefModule,
		Note:         m.Note,
		CreatedAt:    time.Now(),
	}
	if m.RefID != 0 {
		ref := m.RefID
		rec.RefID = &ref
	}
	if m.UserID != 0 {
		uid := m.UserID
		rec.UserID = &uid
	}
	l.movements = append(l.movements, rec)
	return next, nil
}

// Stock returns the current stock of a product.
func (l *MemoryLedger) Stock(id int64) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products[id].Stock
}

// Level returns the stored row of a product.
func (l *MemoryLedger) Level(id int64) (inventory.StockLevel, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lvl, ok := l.products[id]
	return lvl, ok
}

// Put inserts or replaces a product row.
func (l *MemoryLedger) Put(lvl inventory.StockLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[lvl.ID] = lvl
}

// Movements returns the applied movements, optionally for one product.
func (l *MemoryLedger) Movements(productID int64) []inventory.MovementRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	if productID == 0 {
		return slices.Clone(l.movements)
	}
	var out []inventory.MovementRecord
	for _, m := range l.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// Levels returns every product row ordered by id.
func (l *MemoryLedger) Levels() []inventory.StockLevel {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := slices.Collect(maps.Values(l.products))
	slices.SortFunc(out, func(a, b inventory.StockLevel) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

var _ inventory.Ledger = (*MemoryLedger)(nil)
