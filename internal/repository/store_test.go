package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"fieldbooking/internal/database"
	"fieldbooking/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:repo_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewStore(db)
}

func seedLeg(t *testing.T, s *Store, status domain.BookingStatus, start, end domain.Clock) *domain.Booking {
	t.Helper()
	ctx := context.Background()
	g := &domain.BookingGroup{CustomerID: 1, PaymentStatus: domain.PaymentPending}
	require.NoError(t, s.Bookings().CreateGroup(ctx, g))
	b := &domain.Booking{
		GroupID:       g.ID,
		CustomerID:    1,
		SubFieldID:    7,
		FacilityID:    1,
		BookingDate:   "2030-06-03",
		Status:        status,
		PaymentStatus: domain.PaymentPending,
		Slots: []domain.BookingTimeSlot{
			{SubFieldID: 7, BookingDate: "2030-06-03", StartTime: start, EndTime: end, Price: 100_000},
		},
	}
	b.Recalculate()
	require.NoError(t, s.Bookings().CreateLeg(ctx, b))
	return b
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("commit: %w", &pgconn.PgError{Code: "40001"})))
	assert.True(t, IsRetryable(domain.InternalError{Msg: "x", Err: &pgconn.PgError{Code: "40P01"}}))
	assert.False(t, IsRetryable(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsRetryable(errors.New("boom")))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, IsUniqueViolation(errors.New("UNIQUE constraint failed: promotions.code")))
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection reset")))
}

func TestTransactionWithRetry_RetriesSerializationFailure(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	err := s.TransactionWithRetry(context.Background(), func(tx *Store) error {
		calls++
		if calls == 1 {
			return &pgconn.PgError{Code: "40001"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestTransactionWithRetry_BusinessErrorNotRetried(t *testing.T) {
	s := newTestStore(t)
	calls := 0
	err := s.TransactionWithRetry(context.Background(), func(tx *Store) error {
		calls++
		return domain.ConflictError{Resource: "slot", Err: domain.ErrSlotUnavailable}
	})
	assert.True(t, domain.IsConflict(err))
	assert.Equal(t, 1, calls)
}

func TestListActiveSlots_SkipsCancelledAndExcluded(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	active := seedLeg(t, s, domain.BookingPending, domain.NewClock(17, 0), domain.NewClock(18, 0))
	seedLeg(t, s, domain.BookingCancelled, domain.NewClock(18, 0), domain.NewClock(19, 0))
	other := seedLeg(t, s, domain.BookingConfirmed, domain.NewClock(19, 0), domain.NewClock(20, 0))

	slots, err := s.Bookings().ListActiveSlots(ctx, 7, "2030-06-03", 0)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, active.ID, slots[0].BookingID)
	assert.Equal(t, domain.NewClock(17, 0), slots[0].StartTime)

	slots, err = s.Bookings().ListActiveSlots(ctx, 7, "2030-06-03", other.ID)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, active.ID, slots[0].BookingID)
}

func TestTransitionStatus_Conditional(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := seedLeg(t, s, domain.BookingPending, domain.NewClock(8, 0), domain.NewClock(9, 0))

	ok, err := s.Bookings().TransitionStatus(ctx, b.ID, []domain.BookingStatus{domain.BookingPending}, domain.BookingConfirmed, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Bookings().TransitionStatus(ctx, b.ID, []domain.BookingStatus{domain.BookingPending}, domain.BookingConfirmed, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromotionIncrementUsage_StopsAtLimit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	limit := 1
	p := &domain.Promotion{Code: "once", DiscountType: domain.DiscountFixed, DiscountValue: 10, UsageLimit: &limit, IsActive: true}
	require.NoError(t, s.Promotions().Create(ctx, p))
	assert.Equal(t, "ONCE", p.Code)

	require.NoError(t, s.Promotions().IncrementUsage(ctx, p.ID))
	err := s.Promotions().IncrementUsage(ctx, p.ID)
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, domain.ErrPromotionExhausted)

	got, err := s.Promotions().GetByCode(ctx, " once ")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
}

func TestRecalculateGroup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	b := seedLeg(t, s, domain.BookingPending, domain.NewClock(8, 0), domain.NewClock(9, 0))

	require.NoError(t, s.Bookings().RecalculateGroup(ctx, b.GroupID))
	g, err := s.Bookings().GetGroup(ctx, b.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(100_000), g.TotalPrice)
	require.Len(t, g.Legs, 1)
	assert.Len(t, g.Legs[0].Slots, 1)
}
