package inventory

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]MovementRecord, int, error)
	ListTransformations(ctx context.Context, filter TransformationFilter) ([]Transformation, int, error)
	GetTransformation(ctx context.Context, id int64) (Transformation, error)
	LowStock(ctx context.Context) ([]LowStockAlert, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates inventory operations.
type Service struct {
	repo   RepositoryPort
	audit  AuditPort
	alerts AlertHandler
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort, alerts AlertHandler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, alerts: alerts, logger: logger}
}

// normalizeOutputs validates outputs and merges repeated destinations.
func normalizeOutputs(input TransformationInput) ([]TransformationOutput, decimal.Decimal, error) {
	if len(input.Outputs) == 0 {
		return nil, decimal.Zero, ErrEmptyOutputs
	}
	merged := make([]TransformationOutput, 0, len(input.Outputs))
	index := make(map[int64]int, len(input.Outputs))
	sum := decimal.Zero
	for _, out := range input.Outputs {
		if out.ProductID <= 0 {
			return nil, decimal.Zero, ErrProductNotFound
		}
		if err := ValidateQuantity(out.Quantity); err != nil {
			return nil, decimal.Zero, err
		}
		if out.ProductID == input.SourceProductID {
			return nil, decimal.Zero, ErrSourceAsOutput
		}
		sum = sum.Add(out.Quantity)
		if i, ok := index[out.ProductID]; ok {
			merged[i].Quantity = merged[i].Quantity.Add(out.Quantity)
			continue
		}
		index[out.ProductID] = len(merged)
		merged = append(merged, out)
	}
	return merged, sum, nil
}

// ProcessTransformation turns a quantity of the source product into the
// requested outputs. The yield check runs before any transaction is opened.
func (s *Service) ProcessTransformation(ctx context.Context, input TransformationInput) (Transformation, error) {
	if input.SourceProductID <= 0 {
		return Transformation{}, ErrProductNotFound
	}
	if err := ValidateQuantity(input.SourceQty); err != nil {
		return Transformation{}, err
	}
	outputs, sum, err := normalizeOutputs(input)
	if err != nil {
		return Transformation{}, err
	}
	if sum.GreaterThan(input.SourceQty.Add(YieldTolerance)) {
		return Transformation{}, ErrYieldExceedsInput
	}

	ids := []int64{input.SourceProductID}
	for _, out := range outputs {
		ids = append(ids, out.ProductID)
	}

	var result Transformation
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		levels, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if !levels[id].Active {
				return ErrProductNotFound
			}
		}
		source := levels[input.SourceProductID]
		if err := CheckAvailable(source, input.SourceQty); err != nil {
			return err
		}

		header := Transformation{
			UserID:          input.UserID,
			SourceProductID: input.SourceProductID,
			SourceName:      source.Name,
			SourceQty:       input.SourceQty,
			Notes:           strings.TrimSpace(input.Notes),
		}
		id, createdAt, err := tx.InsertTransformation(ctx, header)
		if err != nil {
			return err
		}
		header.ID = id
		header.CreatedAt = createdAt

		if _, err := tx.Apply(ctx, Movement{
			ProductID: input.SourceProductID,
			Kind:      KindTransformOut,
			Qty:       input.SourceQty.Neg(),
			RefModule: "transformation",
			RefID:     id,
			UserID:    input.UserID,
		}); err != nil {
			return err
		}

		details := make([]TransformationDetail, 0, len(outputs))
		for _, out := range outputs {
			details = append(details, TransformationDetail{ProductID: out.ProductID, ProductName: levels[out.ProductID].Name, Quantity: out.Quantity})
		}
		if err := tx.InsertTransformationDetails(ctx, id, details); err != nil {
			return err
		}
		for _, d := range details {
			if _, err := tx.Apply(ctx, Movement{
				ProductID: d.ProductID,
				Kind:      KindTransformIn,
				Qty:       d.Quantity,
				RefModule: "transformation",
				RefID:     id,
				UserID:    input.UserID,
			}); err != nil {
				return err
			}
		}
		header.Details = details
		result = header
		return nil
	})
	if err != nil {
		return Transformation{}, err
	}
	s.recordAudit(ctx, input.UserID, "transformation.create", result.ID, map[string]any{
		"source_product_id": result.SourceProductID,
		"source_qty":        result.SourceQty.String(),
		"outputs":           len(result.Details),
	})
	return result, nil
}

// AdjustTo sets the stock of a locked product to newStock, recording an
// adjustment movement for the difference. It is a no-op when nothing changes.
func AdjustTo(ctx context.Context, ledger Ledger, level StockLevel, in AdjustmentInput) (decimal.Decimal, error) {
	if in.NewStock.IsNegative() {
		return decimal.Zero, ErrNegativeStock
	}
	if !QuantityFits(in.NewStock) {
		return decimal.Zero, ErrQuantityPrecision
	}
	delta := in.NewStock.Sub(level.Stock)
	if delta.IsZero() {
		return level.Stock, nil
	}
	if strings.TrimSpace(in.Reason) == "" {
		return decimal.Zero, ErrReasonRequired
	}
	return ledger.Apply(ctx, Movement{
		ProductID: level.ID,
		Kind:      KindAdjustment,
		Qty:       delta,
		RefModule: "product",
		RefID:     level.ID,
		Note:      strings.TrimSpace(in.Reason),
		UserID:    in.UserID,
	})
}

// AdjustStock sets a product's stock in its own transaction.
func (s *Service) AdjustStock(ctx context.Context, in AdjustmentInput) (decimal.Decimal, error) {
	if in.ProductID <= 0 {
		return decimal.Zero, ErrProductNotFound
	}
	var balance decimal.Decimal
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		levels, err := tx.LockProducts(ctx, []int64{in.ProductID})
		if err != nil {
			return err
		}
		balance, err = AdjustTo(ctx, tx, levels[in.ProductID], in)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	s.recordAudit(ctx, in.UserID, "stock.adjust", in.ProductID, map[string]any{"new_stock": balance.String(), "reason": in.Reason})
	return balance, nil
}

// Movements returns the stock card of a product.
func (s *Service) Movements(ctx context.Context, filter MovementFilter) (shared.Paged[MovementRecord], error) {
	if filter.ProductID <= 0 {
		return shared.Paged[MovementRecord]{}, ErrProductNotFound
	}
	if filter.Kind != "" && !filter.Kind.Valid() {
		return shared.Paged[MovementRecord]{}, shared.Validation("tipo de movimiento inválido")
	}
	items, total, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return shared.Paged[MovementRecord]{}, err
	}
	return shared.NewPaged(items, filter.Page, total), nil
}

// ListTransformations returns a page of transformations.
func (s *Service) ListTransformations(ctx context.Context, filter TransformationFilter) (shared.Paged[Transformation], error) {
	items, total, err := s.repo.ListTransformations(ctx, filter)
	if err != nil {
		return shared.Paged[Transformation]{}, err
	}
	return shared.NewPaged(items, filter.Page, total), nil
}

// GetTransformation returns one transformation with its details.
func (s *Service) GetTransformation(ctx context.Context, id int64) (Transformation, error) {
	if id <= 0 {
		return Transformation{}, ErrTransformationNotFound
	}
	return s.repo.GetTransformation(ctx, id)
}

// LowStock lists products at or below their minimum stock.
func (s *Service) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	alerts, err := s.repo.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	if alerts == nil {
		alerts = []LowStockAlert{}
	}
	return alerts, nil
}

// ScanLowStock runs a low-stock scan and hands the result to the alert handler.
func (s *Service) ScanLowStock(ctx context.Context) (int, error) {
	alerts, err := s.LowStock(ctx)
	if err != nil {
		return 0, err
	}
	if s.alerts != nil && len(alerts) > 0 {
		if err := s.alerts.HandleLowStock(ctx, alerts); err != nil {
			return len(alerts), err
		}
	}
	return len(alerts), nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "inventory",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("inventory audit", slog.String("action", action), slog.Any("error", err))
	}
}
