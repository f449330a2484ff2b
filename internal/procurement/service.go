package procurement

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/inventory"
	"github.com/naguara/naguara-pos/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Purchase, error)
	List(ctx context.Context, filter ListFilter) ([]Purchase, int, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CacheBumper invalidates cached reports after stock changes.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// Service orchestrates purchase flows.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	cache  CacheBumper
	logger *slog.Logger
}

// NewService constructs procurement service.
func NewService(repo RepositoryPort, audit AuditPort, cache CacheBumper, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, cache: cache, logger: logger}
}

// CreatePurchase stores a pending purchase. Stock is untouched until it is received.
func (s *Service) CreatePurchase(ctx context.Context, in CreateInput) (Purchase, error) {
	if in.SupplierID <= 0 {
		return Purchase{}, ErrSupplierRequired
	}
	if len(in.Lines) == 0 {
		return Purchase{}, ErrEmptyLines
	}
	lines := make([]Line, len(in.Lines))
	for i, l := range in.Lines {
		if l.ProductID <= 0 {
			return Purchase{}, ErrProductNotFound
		}
		if !l.Qty.IsPositive() {
			return Purchase{}, ErrInvalidQuantity
		}
		if !inventory.QuantityFits(l.Qty) {
			return Purchase{}, inventory.ErrQuantityPrecision
		}
		if l.UnitCost.IsNegative() {
			return Purchase{}, ErrInvalidCost
		}
		lines[i] = Line{ProductID: l.ProductID, QtyOrdered: l.Qty, QtyReceived: decimal.Zero, UnitCost: l.UnitCost.Round(2)}
	}
	p := Purchase{
		SupplierID:    in.SupplierID,
		InvoiceNumber: strings.TrimSpace(in.InvoiceNumber),
		Status:        StatusPending,
		Notes:         strings.TrimSpace(in.Notes),
		CreatedBy:     in.UserID,
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertPurchase(ctx, &p); err != nil {
			return err
		}
		return tx.InsertLines(ctx, p.ID, lines)
	})
	if err != nil {
		return Purchase{}, err
	}
	s.recordAudit(ctx, in.UserID, "purchase.create", p.ID, map[string]any{"supplier_id": p.SupplierID, "lines": len(lines)})
	return s.repo.Get(ctx, p.ID)
}

// ReceivePurchase moves a pending purchase into stock and updates product costs.
func (s *Service) ReceivePurchase(ctx context.Context, in ReceiveInput) (Purchase, error) {
	if in.PurchaseID <= 0 {
		return Purchase{}, ErrNotFound
	}
	overrides := make(map[int64]decimal.Decimal, len(in.Lines))
	for _, l := range in.Lines {
		if l.Qty.IsNegative() {
			return Purchase{}, ErrNegativeReceived
		}
		if !inventory.QuantityFits(l.Qty) {
			return Purchase{}, inventory.ErrQuantityPrecision
		}
		overrides[l.LineID] = l.Qty
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPurchase(ctx, in.PurchaseID)
		if err != nil {
			return err
		}
		switch p.Status {
		case StatusPending:
		case StatusReceived:
			return ErrAlreadyReceived
		default:
			return ErrInvalidState
		}

		known := make(map[int64]bool, len(p.Lines))
		ids := make([]int64, 0, len(p.Lines))
		for _, l := range p.Lines {
			known[l.ID] = true
			ids = append(ids, l.ProductID)
		}
		for id := range overrides {
			if !known[id] {
				return ErrUnknownLine
			}
		}
		if _, err := tx.LockProducts(ctx, ids); err != nil {
			return err
		}

		for _, l := range p.Lines {
			qty, ok := overrides[l.ID]
			if !ok {
				qty = l.QtyOrdered
			}
			if err := tx.SetLineReceived(ctx, l.ID, qty); err != nil {
				return err
			}
			if !qty.IsPositive() {
				continue
			}
			if _, err := tx.Apply(ctx, inventory.Movement{
				ProductID: l.ProductID,
				Kind:      inventory.KindPurchase,
				Qty:       qty,
				RefModule: "purchase",
				RefID:     p.ID,
				Note:      p.InvoiceNumber,
				UserID:    in.UserID,
			}); err != nil {
				return err
			}
			if err := tx.SetProductCost(ctx, l.ProductID, l.UnitCost); err != nil {
				return err
			}
		}
		return tx.MarkReceived(ctx, p.ID, in.UserID)
	})
	if err != nil {
		return Purchase{}, err
	}

	s.bump(ctx)
	s.recordAudit(ctx, in.UserID, "purchase.receive", in.PurchaseID, nil)
	return s.repo.Get(ctx, in.PurchaseID)
}

// CancelPurchase cancels a pending purchase.
func (s *Service) CancelPurchase(ctx context.Context, id, userID int64) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, ErrNotFound
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		p, err := tx.LockPurchase(ctx, id)
		if err != nil {
			return err
		}
		switch p.Status {
		case StatusPending:
			return tx.MarkCancelled(ctx, id)
		case StatusReceived:
			return ErrAlreadyReceived
		default:
			return ErrInvalidState
		}
	})
	if err != nil {
		return Purchase{}, err
	}
	s.recordAudit(ctx, userID, "purchase.cancel", id, nil)
	return s.repo.Get(ctx, id)
}

// GetPurchase returns a purchase with its lines.
func (s *Service) GetPurchase(ctx context.Context, id int64) (Purchase, error) {
	if id <= 0 {
		return Purchase{}, ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// ListPurchases returns a page of purchases.
func (s *Service) ListPurchases(ctx context.Context, filter ListFilter) (shared.Paged[Purchase], error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.Paged[Purchase]{}, err
	}
	return shared.NewPaged(items, filter.Page, total), nil
}

func (s *Service) bump(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Bump(context.WithoutCancel(ctx)); err != nil {
		s.logger.Warn("bump report cache", slog.Any("error", err))
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "purchase",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("purchase audit", slog.String("action", action), slog.Any("error", err))
	}
}
