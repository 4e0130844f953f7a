package repository

import (
	"context"

	"fieldbooking/internal/domain"

	"gorm.io/gorm"
)

// FacilityRepository reads facilities, sub-fields and their paid services.
// These are managed by the catalog service; this core only reads them.
type FacilityRepository struct {
	db *gorm.DB
}

func NewFacilityRepository(db *gorm.DB) *FacilityRepository {
	return &FacilityRepository{db: db}
}

func (r *FacilityRepository) GetFacility(ctx context.Context, id int64) (*domain.Facility, error) {
	var f domain.Facility
	if err := r.db.WithContext(ctx).First(&f, id).Error; err != nil {
		return nil, lookupErr("facility", id, err)
	}
	return &f, nil
}

// GetActiveSubField returns the sub-field only if it and its facility are active and not deleted.
func (r *FacilityRepository) GetActiveSubField(ctx context.Context, id int64) (*domain.SubField, error) {
	var sf domain.SubField
	err := r.db.WithContext(ctx).
		Joins("JOIN facilities f ON f.id = sub_fields.facility_id AND f.deleted_at IS NULL AND f.is_active = ?", true).
		Where("sub_fields.id = ? AND sub_fields.is_active = ?", id, true).
		First(&sf).Error
	if err != nil {
		return nil, lookupErr("sub-field", id, err)
	}
	return &sf, nil
}

func (r *FacilityRepository) GetSubField(ctx context.Context, id int64) (*domain.SubField, error) {
	var sf domain.SubField
	if err := r.db.WithContext(ctx).First(&sf, id).Error; err != nil {
		return nil, lookupErr("sub-field", id, err)
	}
	return &sf, nil
}

func (r *FacilityRepository) GetActiveService(ctx context.Context, id int64) (*domain.FacilityService, error) {
	var svc domain.FacilityService
	if err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&svc).Error; err != nil {
		return nil, lookupErr("service", id, err)
	}
	return &svc, nil
}

func (r *FacilityRepository) ListFacilityIDsByOwner(ctx context.Context, ownerID int64) ([]int64, error) {
	ids := []int64{}
	err := r.db.WithContext(ctx).Model(&domain.Facility{}).Where("owner_id = ?", ownerID).Pluck("id", &ids).Error
	return ids, dbErr("list owner facilities", err)
}

func (r *FacilityRepository) OwnerOf(ctx context.Context, facilityID int64) (int64, error) {
	f, err := r.GetFacility(ctx, facilityID)
	if err != nil {
		return 0, err
	}
	return f.OwnerID, nil
}
