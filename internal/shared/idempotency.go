package shared

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrIdempotencyConflict is returned when a key was already used.
	ErrIdempotencyConflict = NewError(ErrConflict, "la solicitud ya fue procesada")
	// ErrIdempotencyKeyInvalid is returned for keys that are not UUIDs.
	ErrIdempotencyKeyInvalid = Validation("la clave de idempotencia debe ser un UUID")

	errIdempotencyUnset = errors.New("idempotency: store not configured")
)

// IdempotencyStore records request keys in idempotency_keys so a retried
// POST is rejected instead of applied twice.
type IdempotencyStore struct {
	db  execer
	now func() time.Time
}

// NewIdempotencyStore wraps a pool or transaction.
func NewIdempotencyStore(db execer) *IdempotencyStore {
	return &IdempotencyStore{db: db, now: time.Now}
}

// CheckAndInsert claims key for module. A second claim of the same key
// yields ErrIdempotencyConflict.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.db == nil {
		return errIdempotencyUnset
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if _, err := uuid.Parse(key); err != nil {
		return ErrIdempotencyKeyInvalid
	}
	if module == "" {
		return errors.New("idempotency: module required")
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`,
		key, module, s.now())
	switch {
	case err == nil:
		return nil
	case IsUniqueViolation(err):
		return ErrIdempotencyConflict
	default:
		return fmt.Errorf("idempotency: insert: %w", err)
	}
}

// Delete releases key after a failed request so the client may retry.
func (s *IdempotencyStore) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return nil
	}
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return errors.New("idempotency: key required")
	}
	_, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, key)
	return err
}

// Cleanup purges keys older than olderThan and returns how many went.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, s.now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("idempotency: cleanup: %w", err)
	}
	return tag.RowsAffected(), nil
}
