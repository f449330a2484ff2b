package products

import (
	"context"
	"maps"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/inventory/inventorytest"
	"github.com/naguara/naguara-pos/internal/masterdata/shared"
	core "github.com/naguara/naguara-pos/internal/shared"
)

type memoryRepo struct {
	*inventorytest.MemoryLedger
	products map[int64]Product
	history  map[int64]bool
	nextID   int64
	deleted  []int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		MemoryLedger: inventorytest.NewMemoryLedger(),
		products:     map[int64]Product{},
		history:      map[int64]bool{},
	}
}

func (m *memoryRepo) List(ctx context.Context, f shared.ListFilters) ([]Product, int, error) {
	var out []Product
	for id := range m.products {
		p, _ := m.Get(ctx, id)
		out = append(out, p)
	}
	return out, len(out), nil
}

func (m *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	p.Stock = m.Stock(id)
	return p, nil
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	products := maps.Clone(m.products)
	err := m.MemoryLedger.WithTx(func() error { return fn(ctx, m) })
	if err != nil {
		m.products = products
	}
	return err
}

func (m *memoryRepo) DefaultTaxRateID(ctx context.Context) (int64, error) { return 1, nil }

func (m *memoryRepo) Insert(ctx context.Context, p Product) (int64, error) {
	for _, existing := range m.products {
		if existing.Code == p.Code {
			return 0, ErrDuplicateCode
		}
	}
	m.nextID++
	p.ID = m.nextID
	m.products[p.ID] = p
	m.Put(inventory.StockLevel{ID: p.ID, Code: p.Code, Name: p.Name, Unit: p.Unit, Active: p.IsActive})
	return p.ID, nil
}

func (m *memoryRepo) Update(ctx context.Context, id int64, p Product) error {
	p.ID = id
	m.products[id] = p
	return nil
}

func (m *memoryRepo) HasHistory(ctx context.Context, id int64) (bool, error) {
	if m.history[id] {
		return true, nil
	}
	for _, mv := range m.Movements(id) {
		if mv.Kind != inventory.KindInitial {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int64) error {
	delete(m.products, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memoryRepo) Deactivate(ctx context.Context, id int64) error {
	p := m.products[id]
	p.IsActive = false
	m.products[id] = p
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func form(code, stock string) ProductForm {
	f := ProductForm{Code: code, Name: "  pechuga   entera ", Unit: "kg", Price: dec("5.50"), Cost: dec("4"), MinStock: dec("2")}
	if stock != "" {
		f.Stock = decimal.NewNullDecimal(dec(stock))
	}
	return f
}

func TestCreateRecordsInitialMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	p, err := svc.Create(context.Background(), 7, form("pe-01", "12.5"))
	require.NoError(t, err)
	assert.Equal(t, "PE-01", p.Code)
	assert.Equal(t, "pechuga entera", p.Name)
	assert.Equal(t, int64(1), p.TaxRateID)
	assert.True(t, p.Stock.Equal(dec("12.5")))

	moves := repo.Movements(p.ID)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.KindInitial, moves[0].Kind)
	require.NotNil(t, moves[0].UserID)
	assert.Equal(t, int64(7), *moves[0].UserID)
}

func TestCreateWithoutStockSkipsMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	p, err := svc.Create(context.Background(), 1, form("PE-02", ""))
	require.NoError(t, err)
	assert.True(t, p.Stock.IsZero())
	assert.Empty(t, repo.Movements(p.ID))
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)

	bad := form("X", "1")
	bad.Unit = "litro"
	_, err := svc.Create(context.Background(), 1, bad)
	assert.ErrorIs(t, err, ErrInvalidUnit)

	bad = form("X", "-1")
	_, err = svc.Create(context.Background(), 1, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	bad = form("", "1")
	_, err = svc.Create(context.Background(), 1, bad)
	assert.ErrorIs(t, err, core.ErrValidation)

	bad = form("X", "3.1415")
	_, err = svc.Create(context.Background(), 1, bad)
	assert.ErrorIs(t, err, inventory.ErrQuantityPrecision)
}

func TestCreateDuplicateCode(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Create(context.Background(), 1, form("PE-01", "1"))
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), 1, form("pe-01", "1"))
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestUpdateStockBooksAdjustment(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.Create(context.Background(), 1, form("PE-01", "10"))
	require.NoError(t, err)

	f := form("PE-01", "8")
	f.Reason = "merma"
	updated, err := svc.Update(context.Background(), 2, p.ID, f)
	require.NoError(t, err)
	assert.True(t, updated.Stock.Equal(dec("8")))

	moves := repo.Movements(p.ID)
	require.Len(t, moves, 2)
	assert.Equal(t, inventory.KindAdjustment, moves[1].Kind)
	assert.True(t, moves[1].Qty.Equal(dec("-2")))
	assert.Equal(t, "merma", moves[1].Note)
}

func TestUpdateStockRequiresReasonAndRollsBack(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.Create(context.Background(), 1, form("PE-01", "10"))
	require.NoError(t, err)

	f := form("PE-01", "8")
	f.Name = "otro nombre"
	_, err = svc.Update(context.Background(), 1, p.ID, f)
	assert.ErrorIs(t, err, inventory.ErrReasonRequired)

	current, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "pechuga entera", current.Name)
	assert.True(t, current.Stock.Equal(dec("10")))
}

func TestUpdateSameStockNoMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.Create(context.Background(), 1, form("PE-01", "10"))
	require.NoError(t, err)

	f := form("PE-01", "10.000")
	f.Price = dec("6")
	updated, err := svc.Update(context.Background(), 1, p.ID, f)
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(dec("6")))
	assert.Len(t, repo.Movements(p.ID), 1)
}

func TestUpdateMissingProduct(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	_, err := svc.Update(context.Background(), 1, 99, form("PE-01", ""))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestDeleteHardWithoutHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.Create(context.Background(), 1, form("PE-01", "3"))
	require.NoError(t, err)

	res, err := svc.Delete(context.Background(), 1, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Deleted)
	assert.False(t, res.Deactivated)
	assert.Equal(t, []int64{p.ID}, repo.deleted)
}

func TestDeleteDeactivatesWithHistory(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.Create(context.Background(), 1, form("PE-01", "3"))
	require.NoError(t, err)
	repo.history[p.ID] = true

	res, err := svc.Delete(context.Background(), 1, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)
	assert.Empty(t, repo.deleted)

	current, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.False(t, current.IsActive)
}

func TestDeleteAfterAdjustmentDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	p, err := svc.Create(context.Background(), 1, form("PE-01", "3"))
	require.NoError(t, err)
	f := form("PE-01", "1")
	f.Reason = "conteo"
	_, err = svc.Update(context.Background(), 1, p.ID, f)
	require.NoError(t, err)

	res, err := svc.Delete(context.Background(), 1, p.ID)
	require.NoError(t, err)
	assert.True(t, res.Deactivated)
}
