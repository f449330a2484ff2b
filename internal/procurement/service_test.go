package procurement

import (
	"context"
	"maps"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/inventory/inventorytest"
	"github.com/naguara/naguara-pos/internal/shared"
)

type memoryProcRepo struct {
	*inventorytest.MemoryLedger
	suppliers map[int64]bool
	purchases map[int64]Purchase
	nextID    int64
	nextLine  int64
	failCost  bool
}

func newMemoryProcRepo(levels ...inventory.StockLevel) *memoryProcRepo {
	return &memoryProcRepo{
		MemoryLedger: inventorytest.NewMemoryLedger(levels...),
		suppliers:    map[int64]bool{1: true},
		purchases:    map[int64]Purchase{},
	}
}

func clonePurchase(p Purchase) Purchase {
	p.Lines = append([]Line(nil), p.Lines...)
	return p
}

func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.MemoryLedger.WithTx(func() error {
		saved := maps.Clone(r.purchases)
		for id, p := range saved {
			saved[id] = clonePurchase(p)
		}
		nextID, nextLine := r.nextID, r.nextLine
		if err := fn(ctx, r); err != nil {
			r.purchases, r.nextID, r.nextLine = saved, nextID, nextLine
			return err
		}
		return nil
	})
}

func (r *memoryProcRepo) InsertPurchase(ctx context.Context, p *Purchase) error {
	if !r.suppliers[p.SupplierID] {
		return ErrSupplierNotFound
	}
	r.nextID++
	p.ID = r.nextID
	p.CreatedAt = time.Now()
	r.purchases[p.ID] = clonePurchase(*p)
	return nil
}

func (r *memoryProcRepo) InsertLines(ctx context.Context, purchaseID int64, lines []Line) error {
	p := r.purchases[purchaseID]
	for _, l := range lines {
		lvl, ok := r.Level(l.ProductID)
		if !ok {
			return ErrProductNotFound
		}
		r.nextLine++
		l.ID = r.nextLine
		l.ProductName = lvl.Name
		p.Lines = append(p.Lines, l)
	}
	r.purchases[purchaseID] = p
	return nil
}

func (r *memoryProcRepo) LockPurchase(ctx context.Context, id int64) (Purchase, error) {
	return r.Get(ctx, id)
}

func (r *memoryProcRepo) SetLineReceived(ctx context.Context, lineID int64, qty decimal.Decimal) error {
	for id, p := range r.purchases {
		for i, l := range p.Lines {
			if l.ID == lineID {
				p.Lines[i].QtyReceived = qty
				r.purchases[id] = p
			}
		}
	}
	return nil
}

func (r *memoryProcRepo) SetProductCost(ctx context.Context, productID int64, cost decimal.Decimal) error {
	if r.failCost {
		return assert.AnError
	}
	lvl, _ := r.Level(productID)
	lvl.Cost = cost
	r.Put(lvl)
	return nil
}

func (r *memoryProcRepo) MarkReceived(ctx context.Context, id, userID int64) error {
	p := r.purchases[id]
	now := time.Now()
	p.Status, p.ReceivedBy, p.ReceivedAt = StatusReceived, &userID, &now
	r.purchases[id] = p
	return nil
}

func (r *memoryProcRepo) MarkCancelled(ctx context.Context, id int64) error {
	p := r.purchases[id]
	p.Status = StatusCancelled
	r.purchases[id] = p
	return nil
}

func (r *memoryProcRepo) Get(ctx context.Context, id int64) (Purchase, error) {
	p, ok := r.purchases[id]
	if !ok {
		return Purchase{}, ErrNotFound
	}
	p = clonePurchase(p)
	p.Total = decimal.Zero
	for _, l := range p.Lines {
		p.Total = p.Total.Add(l.Amount())
	}
	return p, nil
}

func (r *memoryProcRepo) List(ctx context.Context, filter ListFilter) ([]Purchase, int, error) {
	out := []Purchase{}
	for id := range r.purchases {
		p, _ := r.Get(ctx, id)
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func seededRepo() *memoryProcRepo {
	return newMemoryProcRepo(
		inventorytest.Product(1, "Pollo entero", "2", "4.50"),
		inventorytest.Product(2, "Huevos", "0", "0.25"),
	)
}

func createPending(t *testing.T, svc *Service) Purchase {
	t.Helper()
	p, err := svc.CreatePurchase(context.Background(), CreateInput{
		SupplierID:    1,
		InvoiceNumber: " F-0091 ",
		UserID:        7,
		Lines: []LineInput{
			{ProductID: 1, Qty: d("20"), UnitCost: d("3.10")},
			{ProductID: 2, Qty: d("360"), UnitCost: d("0.12")},
		},
	})
	require.NoError(t, err)
	return p
}

func TestCreatePurchaseLeavesStockUntouched(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil)

	p := createPending(t, svc)
	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, "F-0091", p.InvoiceNumber)
	require.Len(t, p.Lines, 2)
	assert.True(t, p.Total.Equal(d("105.20")))
	assert.True(t, repo.Stock(1).Equal(d("2")))
	assert.Empty(t, repo.Movements(0))
}

func TestCreatePurchaseValidation(t *testing.T) {
	svc := NewService(seededRepo(), nil, nil, nil)
	ctx := context.Background()
	line := LineInput{ProductID: 1, Qty: d("1"), UnitCost: d("1")}

	_, err := svc.CreatePurchase(ctx, CreateInput{Lines: []LineInput{line}})
	assert.ErrorIs(t, err, ErrSupplierRequired)
	_, err = svc.CreatePurchase(ctx, CreateInput{SupplierID: 1})
	assert.ErrorIs(t, err, ErrEmptyLines)
	_, err = svc.CreatePurchase(ctx, CreateInput{SupplierID: 1, Lines: []LineInput{{ProductID: 1, Qty: d("0"), UnitCost: d("1")}}})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.CreatePurchase(ctx, CreateInput{SupplierID: 1, Lines: []LineInput{{ProductID: 1, Qty: d("1.2345"), UnitCost: d("1")}}})
	assert.ErrorIs(t, err, inventory.ErrQuantityPrecision)
	_, err = svc.CreatePurchase(ctx, CreateInput{SupplierID: 1, Lines: []LineInput{{ProductID: 1, Qty: d("1"), UnitCost: d("-1")}}})
	assert.ErrorIs(t, err, ErrInvalidCost)
	_, err = svc.CreatePurchase(ctx, CreateInput{SupplierID: 9, Lines: []LineInput{line}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.CreatePurchase(ctx, CreateInput{SupplierID: 1, Lines: []LineInput{line, {ProductID: 99, Qty: d("1"), UnitCost: d("1")}}})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestReceivePurchaseAddsStockAndCost(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil)
	p := createPending(t, svc)

	received, err := svc.ReceivePurchase(context.Background(), ReceiveInput{
		PurchaseID: p.ID,
		UserID:     8,
		Lines:      []ReceivedQty{{LineID: p.Lines[1].ID, Qty: d("330")}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, received.Status)
	require.NotNil(t, received.ReceivedBy)
	assert.Equal(t, int64(8), *received.ReceivedBy)
	assert.True(t, received.Lines[0].QtyReceived.Equal(d("20")))
	assert.True(t, received.Lines[1].QtyReceived.Equal(d("330")))

	assert.True(t, repo.Stock(1).Equal(d("22")))
	assert.True(t, repo.Stock(2).Equal(d("330")))
	lvl, _ := repo.Level(1)
	assert.True(t, lvl.Cost.Equal(d("3.10")))

	moves := repo.Movements(1)
	require.Len(t, moves, 1)
	assert.Equal(t, inventory.KindPurchase, moves[0].Kind)
	assert.Equal(t, "purchase", moves[0].RefModule)

	_, err = svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: p.ID})
	assert.ErrorIs(t, err, ErrAlreadyReceived)
	assert.ErrorIs(t, err, shared.ErrConflict)
	assert.True(t, repo.Stock(1).Equal(d("22")))
}

func TestReceiveZeroQuantitySkipsMovement(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil)
	p := createPending(t, svc)

	_, err := svc.ReceivePurchase(context.Background(), ReceiveInput{
		PurchaseID: p.ID,
		Lines:      []ReceivedQty{{LineID: p.Lines[0].ID, Qty: d("0")}},
	})
	require.NoError(t, err)
	assert.True(t, repo.Stock(1).Equal(d("2")))
	assert.Empty(t, repo.Movements(1))
	lvl, _ := repo.Level(1)
	assert.True(t, lvl.Cost.IsZero())
}

func TestReceiveRejectsForeignLinesAndRollsBack(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil)
	p := createPending(t, svc)

	_, err := svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: p.ID, Lines: []ReceivedQty{{LineID: 999, Qty: d("1")}}})
	assert.ErrorIs(t, err, ErrUnknownLine)

	_, err = svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: p.ID, Lines: []ReceivedQty{{LineID: p.Lines[0].ID, Qty: d("-1")}}})
	assert.ErrorIs(t, err, ErrNegativeReceived)

	_, err = svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: p.ID, Lines: []ReceivedQty{{LineID: p.Lines[0].ID, Qty: d("19.9995")}}})
	assert.ErrorIs(t, err, inventory.ErrQuantityPrecision)

	repo.failCost = true
	_, err = svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: p.ID})
	require.Error(t, err)
	assert.True(t, repo.Stock(1).Equal(d("2")))
	assert.Empty(t, repo.Movements(0))
	got, _ := svc.GetPurchase(context.Background(), p.ID)
	assert.Equal(t, StatusPending, got.Status)
	assert.True(t, got.Lines[0].QtyReceived.IsZero())
}

func TestCancelPurchase(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil)
	p := createPending(t, svc)

	cancelled, err := svc.CancelPurchase(context.Background(), p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: p.ID})
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.CancelPurchase(context.Background(), p.ID, 1)
	assert.ErrorIs(t, err, ErrInvalidState)

	other := createPending(t, svc)
	_, err = svc.ReceivePurchase(context.Background(), ReceiveInput{PurchaseID: other.ID})
	require.NoError(t, err)
	_, err = svc.CancelPurchase(context.Background(), other.ID, 1)
	assert.ErrorIs(t, err, ErrAlreadyReceived)

	_, err = svc.CancelPurchase(context.Background(), 404, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListPurchasesByStatus(t *testing.T) {
	svc := NewService(seededRepo(), nil, nil, nil)
	createPending(t, svc)
	second := createPending(t, svc)
	_, err := svc.CancelPurchase(context.Background(), second.ID, 1)
	require.NoError(t, err)

	page, err := svc.ListPurchases(context.Background(), ListFilter{Status: StatusPending, Page: shared.PageRequest{Page: 1, PerPage: 20}})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Pagination.Total)
}
