package repository

import (
	"context"

	"fieldbooking/internal/domain"

	"gorm.io/gorm"
)

type PricingRuleRepository struct {
	db *gorm.DB
}

func NewPricingRuleRepository(db *gorm.DB) *PricingRuleRepository {
	return &PricingRuleRepository{db: db}
}

// ListForSubField returns the rules in precedence order (ascending id) with their ranges.
func (r *PricingRuleRepository) ListForSubField(ctx context.Context, subFieldID int64) ([]domain.PricingRule, error) {
	var rules []domain.PricingRule
	err := r.db.WithContext(ctx).
		Preload("Ranges", func(db *gorm.DB) *gorm.DB { return db.Order("start_time ASC") }).
		Where("sub_field_id = ?", subFieldID).
		Order("id ASC").
		Find(&rules).Error
	return rules, dbErr("list pricing rules", err)
}

func (r *PricingRuleRepository) Create(ctx context.Context, rule *domain.PricingRule) error {
	return dbErr("create pricing rule", r.db.WithContext(ctx).Create(rule).Error)
}
