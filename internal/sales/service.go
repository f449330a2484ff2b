package sales

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/fx"
	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/shared"
)

const idempotencyModule = "sales"

// RepositoryPort abstracts sale persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Sale, error)
	List(ctx context.Context, filter ListFilter) ([]Sale, int, error)
}

// RateSource supplies the exchange rate; it never fails.
type RateSource interface {
	Current(ctx context.Context) fx.Quote
}

// IdempotencyPort records processed request keys.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// CacheBumper invalidates cached reports.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Recorder counts sales.
type Recorder interface {
	SaleCreated(method string, total decimal.Decimal)
	SaleVoided()
}

// AuditPort records sale events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Deps are the optional collaborators of Service.
type Deps struct {
	Idempotency IdempotencyPort
	Cache       CacheBumper
	Metrics     Recorder
	Audit       AuditPort
	Logger      *slog.Logger
}

// Service registers and voids sales.
type Service struct {
	repo  RepositoryPort
	rates RateSource
	deps  Deps
}

// NewService constructs a sales service.
func NewService(repo RepositoryPort, rates RateSource, deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{repo: repo, rates: rates, deps: deps}
}

// mergeLines validates quantities and folds repeated products into one line.
func mergeLines(in []LineInput) ([]LineInput, error) {
	if len(in) == 0 {
		return nil, ErrEmptyCart
	}
	out := make([]LineInput, 0, len(in))
	index := make(map[int64]int, len(in))
	for _, l := range in {
		if l.ProductID <= 0 {
			return nil, inventory.ErrProductNotFound
		}
		if err := inventory.ValidateQuantity(l.Quantity); err != nil {
			return nil, err
		}
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity = out[i].Quantity.Add(l.Quantity)
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out, nil
}

// CreateSale registers a sale, its payments and its stock movements in one
// transaction. Stock is checked only after the product rows are locked.
func (s *Service) CreateSale(ctx context.Context, in CreateInput) (Sale, error) {
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return Sale{}, err
	}
	payment, err := in.Payment.normalize()
	if err != nil {
		return Sale{}, err
	}
	if in.CustomerID != nil && *in.CustomerID <= 0 {
		in.CustomerID = nil
	}

	if key := strings.TrimSpace(in.IdempotencyKey); key != "" && s.deps.Idempotency != nil {
		if err := s.deps.Idempotency.CheckAndInsert(ctx, key, idempotencyModule); err != nil {
			return Sale{}, err
		}
		defer func() {
			if err != nil {
				if derr := s.deps.Idempotency.Delete(context.WithoutCancel(ctx), key); derr != nil {
					s.deps.Logger.Warn("release idempotency key", slog.Any("error", derr))
				}
			}
		}()
	}

	quote := s.rates.Current(ctx)

	var sale Sale
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}
		levels, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}

		sale = Sale{
			CustomerID:   in.CustomerID,
			UserID:       in.UserID,
			ExchangeRate: quote.Value,
			Status:       StatusCompleted,
			Lines:        make([]Line, 0, len(lines)),
		}
		for _, l := range lines {
			lvl := levels[l.ProductID]
			if !lvl.Active {
				return ErrProductInactive
			}
			if err := inventory.CheckAvailable(lvl, l.Quantity); err != nil {
				return err
			}
			subtotal, tax, total := LineAmounts(l.Quantity, lvl.Price, lvl.TaxRate)
			sale.Lines = append(sale.Lines, Line{
				ProductID:   lvl.ID,
				ProductName: lvl.Name,
				Quantity:    l.Quantity,
				UnitPrice:   lvl.Price,
				TaxRate:     lvl.TaxRate,
				Subtotal:    subtotal,
				Tax:         tax,
				Total:       total,
			})
		}
		sale.Subtotal, sale.Tax, sale.Total = sumLines(sale.Lines)
		if !sale.Total.IsPositive() {
			return ErrZeroTotal
		}
		sale.TotalLocal = sale.Total.Mul(quote.Value).Round(2)

		st, err := payment.settle(sale.Total, sale.TotalLocal)
		if err != nil {
			return err
		}
		sale.PaymentMethod = st.Method
		sale.PaymentReference = st.Reference
		sale.PaymentBank = st.Bank
		sale.ReceivedAmount = st.Received
		sale.Change = st.Change
		sale.Payments = st.Payments

		if sale.Number, err = tx.NextNumber(ctx); err != nil {
			return err
		}
		if err := tx.InsertSale(ctx, &sale); err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, sale.ID, sale.Lines); err != nil {
			return err
		}
		if err := tx.InsertPayments(ctx, sale.ID, sale.Payments); err != nil {
			return err
		}
		for _, l := range sale.Lines {
			if _, err := tx.Apply(ctx, inventory.Movement{
				ProductID: l.ProductID,
				Kind:      inventory.KindSale,
				Qty:       l.Quantity.Neg(),
				RefModule: "sale",
				RefID:     sale.ID,
				Note:      sale.Number,
				UserID:    in.UserID,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	s.afterChange(ctx)
	if s.deps.Metrics != nil {
		s.deps.Metrics.SaleCreated(sale.PaymentMethod, sale.Total)
	}
	s.recordAudit(ctx, in.UserID, "sale.create", sale.ID, map[string]any{"number": sale.Number, "total": sale.Total.String()})
	return sale, nil
}

// VoidSale cancels a completed sale and returns its quantities to stock, once.
func (s *Service) VoidSale(ctx context.Context, in VoidInput) (Sale, error) {
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return Sale{}, ErrReasonRequired
	}
	if in.SaleID <= 0 {
		return Sale{}, ErrNotFound
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.LockSale(ctx, in.SaleID)
		if err != nil {
			return err
		}
		switch sale.Status {
		case StatusCompleted:
		case StatusVoided:
			return ErrAlreadyVoided
		default:
			return ErrInvalidState
		}
		ids := make([]int64, len(sale.Lines))
		for i, l := range sale.Lines {
			ids[i] = l.ProductID
		}
		if _, err := tx.LockProducts(ctx, ids); err != nil {
			return err
		}
		for _, l := range sale.Lines {
			if _, err := tx.Apply(ctx, inventory.Movement{
				ProductID: l.ProductID,
				Kind:      inventory.KindVoid,
				Qty:       l.Quantity,
				RefModule: "sale",
				RefID:     sale.ID,
				Note:      reason,
				UserID:    in.UserID,
			}); err != nil {
				return err
			}
		}
		_, err = tx.MarkVoided(ctx, sale.ID, in.UserID, reason)
		return err
	})
	if err != nil {
		return Sale{}, err
	}

	s.afterChange(ctx)
	if s.deps.Metrics != nil {
		s.deps.Metrics.SaleVoided()
	}
	s.recordAudit(ctx, in.UserID, "sale.void", in.SaleID, map[string]any{"reason": reason})
	return s.repo.Get(ctx, in.SaleID)
}

// GetSale returns an invoice with the values frozen at sale time.
func (s *Service) GetSale(ctx context.Context, id int64) (Sale, error) {
	if id <= 0 {
		return Sale{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// ListSales returns a page of invoices.
func (s *Service) ListSales(ctx context.Context, filter ListFilter) (shared.Paged[Sale], error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.Paged[Sale]{}, err
	}
	return shared.NewPaged(items, filter.Page, total), nil
}

func (s *Service) afterChange(ctx context.Context) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Bump(context.WithoutCancel(ctx)); err != nil {
		s.deps.Logger.Warn("bump report cache", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.deps.Audit == nil {
		return
	}
	err := s.deps.Audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "sale",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.deps.Logger.Warn("sale audit", slog.String("action", action), slog.Any("error", err))
	}
}
