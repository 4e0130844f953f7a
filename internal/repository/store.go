package repository

import (
	"context"

	"gorm.io/gorm"
)

// MaxTxAttempts bounds retries of transactions aborted by serialization failures or deadlocks.
const MaxTxAttempts = 3

// Store hands out repositories bound to either the root connection or a transaction.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) Bookings() *BookingRepository         { return NewBookingRepository(s.db) }
func (s *Store) Facilities() *FacilityRepository     { return NewFacilityRepository(s.db) }
func (s *Store) PricingRules() *PricingRuleRepository { return NewPricingRuleRepository(s.db) }
func (s *Store) Promotions() *PromotionRepository    { return NewPromotionRepository(s.db) }
func (s *Store) Payments() *PaymentRepository        { return NewPaymentRepository(s.db) }
func (s *Store) Refunds() *RefundRepository          { return NewRefundRepository(s.db) }

// Transaction runs fn in a single database transaction. Any error rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// TransactionWithRetry re-runs the whole transaction when postgres reports 40001 or 40P01.
// Business errors are returned immediately.
func (s *Store) TransactionWithRetry(ctx context.Context, fn func(tx *Store) error) error {
	var err error
	for attempt := 1; attempt <= MaxTxAttempts; attempt++ {
		err = s.Transaction(ctx, fn)
		if err == nil || !IsRetryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}
