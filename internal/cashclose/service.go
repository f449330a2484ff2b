package cashclose

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/naguara/naguara-pos/internal/shared"
)

const (
	lockTTL  = 15 * time.Second
	lockWait = 5 * time.Second
)

// RepositoryPort describes the persistence used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Totals(ctx context.Context, userID int64, from, to time.Time) (Totals, error)
	Find(ctx context.Context, day time.Time, userID int64) (Closure, error)
	List(ctx context.Context, filter ListFilter) ([]Closure, int, error)
}

// LockPort serializes closures of the same day and operator across instances.
type LockPort interface {
	Wait(ctx context.Context, key string, ttl, wait time.Duration) (func(), error)
}

// AuditPort records closure events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service creates and queries cash closures.
type Service struct {
	repo   RepositoryPort
	locker LockPort
	audit  AuditPort
	loc    *time.Location
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. Day boundaries are computed in loc.
func NewService(repo RepositoryPort, locker LockPort, audit AuditPort, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, locker: locker, audit: audit, loc: loc, logger: logger, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// day parses a closure date and rejects days after today.
func (s *Service) day(raw string) (time.Time, error) {
	day, err := shared.ParseDate(strings.TrimSpace(raw), s.loc, s.now())
	if err != nil {
		return time.Time{}, err
	}
	today, _ := shared.DayRange(s.now(), s.loc)
	if day.After(today) {
		return time.Time{}, ErrFutureDate
	}
	return day, nil
}

// Create reconciles the drawer of in.UserID for in.Date. A second closure of the
// same day and operator fails with ErrDuplicateClosure.
func (s *Service) Create(ctx context.Context, in CreateInput) (Closure, error) {
	if in.UserID <= 0 {
		return Closure{}, ErrUserRequired
	}
	if in.OpeningCash.IsNegative() || in.CountedCash.IsNegative() {
		return Closure{}, ErrNegativeAmount
	}
	day, err := s.day(in.Date)
	if err != nil {
		return Closure{}, err
	}

	if s.locker != nil {
		release, err := s.locker.Wait(ctx, shared.CashCloseLockKey(day, in.UserID), lockTTL, lockWait)
		if err != nil {
			return Closure{}, err
		}
		defer release()
	}

	from, to := shared.DayRange(day, s.loc)
	closure := Closure{
		Date:        day.Format(shared.DateLayout),
		UserID:      in.UserID,
		OpeningCash: in.OpeningCash.Round(2),
		CountedCash: in.CountedCash.Round(2),
		Notes:       strings.TrimSpace(in.Notes),
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		exists, err := tx.Exists(ctx, day, in.UserID)
		if err != nil {
			return err
		}
		if exists {
			return ErrDuplicateClosure
		}
		totals, err := tx.Totals(ctx, in.UserID, from, to)
		if err != nil {
			return err
		}
		closure.ExpectedByMethod = totals.ByMethod
		closure.SalesCount = totals.SalesCount
		closure.ExpectedCash = closure.OpeningCash.Add(totals.Cash())
		closure.Variance = closure.CountedCash.Sub(closure.ExpectedCash)
		return tx.Insert(ctx, &closure)
	})
	if err != nil {
		return Closure{}, err
	}

	s.recordAudit(ctx, in.UserID, closure.ID, map[string]any{
		"date":     closure.Date,
		"variance": closure.Variance.String(),
	})
	return closure, nil
}

// Verify reports whether userID already closed the given day.
func (s *Service) Verify(ctx context.Context, date string, userID int64) (Verification, error) {
	day, err := shared.ParseDate(strings.TrimSpace(date), s.loc, s.now())
	if err != nil {
		return Verification{}, err
	}
	c, err := s.repo.Find(ctx, day, userID)
	if errors.Is(err, ErrNotFound) {
		return Verification{}, nil
	}
	if err != nil {
		return Verification{}, err
	}
	return Verification{Exists: true, Closure: &c}, nil
}

// Preview computes the expected totals of a day without persisting anything.
func (s *Service) Preview(ctx context.Context, date string, userID int64) (Summary, error) {
	if userID <= 0 {
		return Summary{}, ErrUserRequired
	}
	day, err := s.day(date)
	if err != nil {
		return Summary{}, err
	}
	from, to := shared.DayRange(day, s.loc)
	totals, err := s.repo.Totals(ctx, userID, from, to)
	if err != nil {
		return Summary{}, err
	}
	if totals.ByMethod == nil {
		totals.ByMethod = map[string]decimal.Decimal{}
	}
	summary := Summary{Date: day.Format(shared.DateLayout), UserID: userID, Totals: totals}
	if _, err := s.repo.Find(ctx, day, userID); err == nil {
		summary.Closed = true
	} else if !errors.Is(err, ErrNotFound) {
		return Summary{}, err
	}
	return summary, nil
}

// List returns a page of closures.
func (s *Service) List(ctx context.Context, filter ListFilter) (shared.Paged[Closure], error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return shared.Paged[Closure]{}, err
	}
	return shared.NewPaged(items, filter.Page, total), nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, id int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "cashclose.create",
		Entity:   "cash_closure",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("cash closure audit", slog.Any("error", err))
	}
}
