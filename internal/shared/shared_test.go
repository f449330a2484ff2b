package shared

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchKeyFoldsAccentsAndCase(t *testing.T) {
	assert.Equal(t, "pechuga deshuesada", SearchKey("  Pechúga   DESHUESADA "))
	assert.Equal(t, "nandu", SearchKey("Ñandú"))
	assert.Equal(t, "", SearchKey("   "))
}

func TestPersonName(t *testing.T) {
	assert.Equal(t, "María José Pérez", PersonName("  maría   josé PÉREZ "))
}

func TestNormalizePhone(t *testing.T) {
	got, err := NormalizePhone("0414-1234567")
	require.NoError(t, err)
	assert.Equal(t, "+584141234567", got)

	got, err = NormalizePhone("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = NormalizePhone("123")
	require.ErrorIs(t, err, ErrValidation)
}

func TestKindErrors(t *testing.T) {
	errBoom := NewError(ErrConflict, "pkg: boom")
	wrapped := fmt.Errorf("outer: %w", errBoom)
	assert.True(t, errors.Is(wrapped, ErrConflict))
	assert.True(t, errors.Is(wrapped, errBoom))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "pkg: boom", errBoom.Error())
}

func TestParseDateAndDayRange(t *testing.T) {
	loc, err := time.LoadLocation("America/Caracas")
	require.NoError(t, err)
	now := time.Date(2024, 3, 2, 3, 0, 0, 0, time.UTC) // 23:00 of March 1st in Caracas

	today, err := ParseDate("", loc, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", today.Format(DateLayout))

	_, err = ParseDate("01/03/2024", loc, now)
	require.ErrorIs(t, err, ErrValidation)

	start, end := DayRange(today, loc)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.True(t, now.After(start) && now.Before(end))
}

func TestPageFromQuery(t *testing.T) {
	p := PageFromQuery(url.Values{"page": {"3"}, "per_page": {"500"}})
	assert.Equal(t, 200, p.Limit())
	assert.Equal(t, 400, p.Offset())

	p = PageFromQuery(url.Values{})
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 20, p.Limit())
	assert.Equal(t, 0, p.Offset())

	paged := NewPaged[int](nil, p, 41)
	assert.NotNil(t, paged.Items)
	assert.Equal(t, 3, paged.Pagination.TotalPages)
}

func TestLockerIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	locker := NewLocker(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()
	key := CashCloseLockKey(time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), 9)
	assert.Equal(t, "naguara:lock:cashclose:2024-01-02:9", key)

	release, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	_, err = locker.Acquire(ctx, key, time.Minute)
	require.ErrorIs(t, err, ErrLockBusy)
	require.ErrorIs(t, err, ErrConflict)
	release()
	release2, err := locker.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	release2()

	var noop *Locker
	rel, err := noop.Acquire(ctx, key, time.Minute)
	require.NoError(t, err)
	rel()
}
