package repository

import (
	"context"
	"strings"

	"fieldbooking/internal/domain"

	"gorm.io/gorm"
)

type PromotionRepository struct {
	db *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{db: db}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (r *PromotionRepository) GetByCode(ctx context.Context, code string) (*domain.Promotion, error) {
	code = NormalizeCode(code)
	var p domain.Promotion
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&p).Error; err != nil {
		return nil, lookupErr("promotion", code, err)
	}
	return &p, nil
}

func (r *PromotionRepository) GetByID(ctx context.Context, id int64) (*domain.Promotion, error) {
	var p domain.Promotion
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, lookupErr("promotion", id, err)
	}
	return &p, nil
}

// IncrementUsage consumes one use. Zero affected rows means the limit was already reached.
func (r *PromotionRepository) IncrementUsage(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&domain.Promotion{}).
		Where("id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)", id).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1"))
	if res.Error != nil {
		return dbErr("increment promotion usage", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ConflictError{Resource: "promotion", Err: domain.ErrPromotionExhausted}
	}
	return nil
}

func (r *PromotionRepository) Create(ctx context.Context, p *domain.Promotion) error {
	p.Code = NormalizeCode(p.Code)
	err := r.db.WithContext(ctx).Create(p).Error
	if IsUniqueViolation(err) {
		return domain.ConflictError{Resource: "promotion", Msg: "promotion code already exists", Err: err}
	}
	return dbErr("create promotion", err)
}
