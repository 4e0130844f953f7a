package repository

import (
	"context"
	"errors"
	"time"

	"fieldbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	return dbErr("create payment", r.db.WithContext(ctx).Create(p).Error)
}

func (r *PaymentRepository) GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	var p domain.Payment
	if err := r.db.WithContext(ctx).Where("txn_ref = ?", txnRef).First(&p).Error; err != nil {
		return nil, lookupErr("payment", txnRef, err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByTxnRefForUpdate(ctx context.Context, txnRef string) (*domain.Payment, error) {
	var p domain.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("txn_ref = ?", txnRef).
		First(&p).Error
	if err != nil {
		return nil, lookupErr("payment", txnRef, err)
	}
	return &p, nil
}

func (r *PaymentRepository) ListByGroup(ctx context.Context, groupID int64) ([]domain.Payment, error) {
	var out []domain.Payment
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id ASC").Find(&out).Error
	return out, dbErr("list payments", err)
}

// MarkResult applies a gateway outcome to a payment row.
func (r *PaymentRepository) MarkResult(ctx context.Context, id int64, status domain.PaymentStatus, gatewayTxnID string, paidAt *time.Time) error {
	updates := map[string]interface{}{
		"status":         status,
		"gateway_txn_id": gatewayTxnID,
	}
	if paidAt != nil {
		updates["paid_at"] = *paidAt
	}
	res := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return dbErr("update payment", res.Error)
	}
	if res.RowsAffected == 0 {
		return dbErr("update payment", errors.New("payment row not updated"))
	}
	return nil
}

func (r *PaymentRepository) SetStatusForGroup(ctx context.Context, groupID int64, status domain.PaymentStatus) error {
	err := r.db.WithContext(ctx).Model(&domain.Payment{}).Where("group_id = ?", groupID).Update("status", status).Error
	return dbErr("update group payments", err)
}

// FindEvent returns the processed callback with this dedup key, or nil.
func (r *PaymentRepository) FindEvent(ctx context.Context, paymentID int64, gatewayTxnID string) (*domain.PaymentEvent, error) {
	var ev domain.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("payment_id = ? AND gateway_txn_id = ?", paymentID, gatewayTxnID).
		First(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dbErr("load payment event", err)
	}
	return &ev, nil
}

func (r *PaymentRepository) CreateEvent(ctx context.Context, ev *domain.PaymentEvent) error {
	err := r.db.WithContext(ctx).Create(ev).Error
	if IsUniqueViolation(err) {
		return domain.ConflictError{Resource: "payment event", Msg: "callback already processed", Err: err}
	}
	return dbErr("create payment event", err)
}

func (r *PaymentRepository) CountEvents(ctx context.Context, paymentID int64) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.PaymentEvent{}).Where("payment_id = ?", paymentID).Count(&n).Error
	return n, dbErr("count payment events", err)
}
