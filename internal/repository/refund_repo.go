package repository

import (
	"context"
	"time"

	"fieldbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RefundRepository struct {
	db *gorm.DB
}

func NewRefundRepository(db *gorm.DB) *RefundRepository {
	return &RefundRepository{db: db}
}

func (r *RefundRepository) Create(ctx context.Context, req *domain.RefundRequest) error {
	return dbErr("create refund request", r.db.WithContext(ctx).Create(req).Error)
}

func (r *RefundRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.RefundRequest, error) {
	var req domain.RefundRequest
	err := r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).First(&req, id).Error
	if err != nil {
		return nil, lookupErr("refund request", id, err)
	}
	return &req, nil
}

func (r *RefundRepository) HasOpen(ctx context.Context, bookingID int64) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&domain.RefundRequest{}).
		Where("booking_id = ? AND status = ?", bookingID, domain.RefundPending).
		Count(&n).Error
	return n > 0, dbErr("count refund requests", err)
}

// Review closes a pending request. It reports false if the request was no longer pending.
func (r *RefundRepository) Review(ctx context.Context, id int64, status domain.RefundStatus, reviewerID int64, note string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.RefundRequest{}).
		Where("id = ? AND status = ?", id, domain.RefundPending).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
			"review_note": note,
		})
	if res.Error != nil {
		return false, dbErr("review refund request", res.Error)
	}
	return res.RowsAffected > 0, nil
}
