package repository

import (
	"context"
	"time"

	"fieldbooking/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// BookingFilter scopes ListBookings. A nil CustomerID and nil FacilityIDs means "all".
type BookingFilter struct {
	CustomerID  *int64
	FacilityIDs []int64
	Status      domain.BookingStatus
	From        string
	To          string
	Limit       int
	Offset      int
}

func (r *BookingRepository) CreateGroup(ctx context.Context, g *domain.BookingGroup) error {
	return dbErr("create booking group", r.db.WithContext(ctx).Omit("Legs").Create(g).Error)
}

// CreateLeg inserts the leg together with its slots and service lines.
func (r *BookingRepository) CreateLeg(ctx context.Context, b *domain.Booking) error {
	return dbErr("create booking", r.db.WithContext(ctx).Create(b).Error)
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("start_time ASC") }).
		Preload("Services").
		First(&b, id).Error
	if err != nil {
		return nil, lookupErr("booking", id, err)
	}
	return &b, nil
}

// GetByIDForUpdate locks the leg row for the rest of the transaction and loads its children.
func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error
	if err != nil {
		return nil, lookupErr("booking", id, err)
	}
	if err := r.db.WithContext(ctx).Where("booking_id = ?", id).Order("start_time ASC").Find(&b.Slots).Error; err != nil {
		return nil, dbErr("load booking slots", err)
	}
	if err := r.db.WithContext(ctx).Where("booking_id = ?", id).Order("id ASC").Find(&b.Services).Error; err != nil {
		return nil, dbErr("load booking services", err)
	}
	return &b, nil
}

func (r *BookingRepository) GetGroup(ctx context.Context, id int64) (*domain.BookingGroup, error) {
	var g domain.BookingGroup
	err := r.db.WithContext(ctx).
		Preload("Legs", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Legs.Slots", func(db *gorm.DB) *gorm.DB { return db.Order("start_time ASC") }).
		Preload("Legs.Services").
		First(&g, id).Error
	if err != nil {
		return nil, lookupErr("booking group", id, err)
	}
	return &g, nil
}

func (r *BookingRepository) ListGroupLegs(ctx context.Context, groupID int64) ([]domain.Booking, error) {
	var legs []domain.Booking
	err := r.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id ASC").Find(&legs).Error
	return legs, dbErr("list group legs", err)
}

// ListActiveSlots returns slots of non-cancelled, non-deleted bookings on (subFieldID, date).
// Slots owned by excludeBookingID are skipped.
func (r *BookingRepository) ListActiveSlots(ctx context.Context, subFieldID int64, date string, excludeBookingID int64) ([]domain.BookingTimeSlot, error) {
	q := r.db.WithContext(ctx).
		Table("booking_time_slots AS s").
		Select("s.*").
		Joins("JOIN bookings b ON b.id = s.booking_id").
		Where("s.sub_field_id = ? AND s.booking_date = ?", subFieldID, date).
		Where("b.status <> ? AND b.deleted_at IS NULL", domain.BookingCancelled)
	if excludeBookingID > 0 {
		q = q.Where("s.booking_id <> ?", excludeBookingID)
	}

	var slots []domain.BookingTimeSlot
	if err := q.Order("s.start_time ASC").Scan(&slots).Error; err != nil {
		return nil, dbErr("list active slots", err)
	}
	return slots, nil
}

func (r *BookingRepository) UpdateLegTotals(ctx context.Context, b *domain.Booking) error {
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", b.ID).Updates(map[string]interface{}{
		"subtotal":    b.Subtotal,
		"discount":    b.Discount,
		"total_price": b.TotalPrice,
	}).Error
	return dbErr("update booking totals", err)
}

func (r *BookingRepository) UpdateGroupTotals(ctx context.Context, g *domain.BookingGroup) error {
	err := r.db.WithContext(ctx).Model(&domain.BookingGroup{}).Where("id = ?", g.ID).Updates(map[string]interface{}{
		"subtotal":     g.Subtotal,
		"discount":     g.Discount,
		"total_price":  g.TotalPrice,
		"promotion_id": g.PromotionID,
	}).Error
	return dbErr("update group totals", err)
}

// RecalculateGroup sets the group's totals to the sums over its legs.
func (r *BookingRepository) RecalculateGroup(ctx context.Context, groupID int64) error {
	var sums struct {
		Subtotal int64
		Discount int64
		Total    int64
	}
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Select("COALESCE(SUM(subtotal), 0) AS subtotal, COALESCE(SUM(discount), 0) AS discount, COALESCE(SUM(total_price), 0) AS total").
		Where("group_id = ?", groupID).
		Scan(&sums).Error
	if err != nil {
		return dbErr("sum group legs", err)
	}
	err = r.db.WithContext(ctx).Model(&domain.BookingGroup{}).Where("id = ?", groupID).Updates(map[string]interface{}{
		"subtotal":    sums.Subtotal,
		"discount":    sums.Discount,
		"total_price": sums.Total,
	}).Error
	return dbErr("update group totals", err)
}

// TransitionStatus moves the leg to `to` only if its current status is one of `from`.
// It reports false when no row matched.
func (r *BookingRepository) TransitionStatus(ctx context.Context, id int64, from []domain.BookingStatus, to domain.BookingStatus, extra map[string]interface{}) (bool, error) {
	updates := map[string]interface{}{"status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, dbErr("update booking status", res.Error)
	}
	return res.RowsAffected > 0, nil
}

// unpaidStatuses are the payment states that do not hold a slot past the payment hold TTL.
var unpaidStatuses = []domain.PaymentStatus{domain.PaymentPending, domain.PaymentFailed}

// ExpireIfUnpaid cancels the leg only while it is still pending and its payment is pending or failed.
func (r *BookingRepository) ExpireIfUnpaid(ctx context.Context, id int64, at time.Time, reason string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ? AND status = ? AND payment_status IN ?", id, domain.BookingPending, unpaidStatuses).
		Updates(map[string]interface{}{
			"status":              domain.BookingCancelled,
			"cancelled_at":        at,
			"cancellation_reason": reason,
		})
	if res.Error != nil {
		return false, dbErr("expire booking", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (r *BookingRepository) ListExpiredPending(ctx context.Context, createdBefore time.Time, limit int) ([]domain.Booking, error) {
	var legs []domain.Booking
	err := r.db.WithContext(ctx).
		Where("status = ? AND payment_status IN ? AND created_at < ?", domain.BookingPending, unpaidStatuses, createdBefore).
		Order("id ASC").
		Limit(limit).
		Find(&legs).Error
	return legs, dbErr("list expired bookings", err)
}

// ReplaceSlots moves the leg to a new date and interval: the first slot row is rewritten, the rest deleted.
func (r *BookingRepository) ReplaceSlots(ctx context.Context, b *domain.Booking, date string, slot domain.BookingTimeSlot) (*domain.BookingTimeSlot, error) {
	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.Booking{}).Where("id = ?", b.ID).Update("booking_date", date).Error; err != nil {
		return nil, dbErr("update booking date", err)
	}

	slot.BookingID = b.ID
	slot.SubFieldID = b.SubFieldID
	slot.BookingDate = date

	if len(b.Slots) == 0 {
		if err := db.Create(&slot).Error; err != nil {
			return nil, dbErr("create booking slot", err)
		}
		return &slot, nil
	}

	first := b.Slots[0]
	err := db.Model(&domain.BookingTimeSlot{}).Where("id = ?", first.ID).Updates(map[string]interface{}{
		"booking_date": date,
		"start_time":   slot.StartTime,
		"end_time":     slot.EndTime,
		"price":        slot.Price,
	}).Error
	if err != nil {
		return nil, dbErr("update booking slot", err)
	}
	if len(b.Slots) > 1 {
		if err := db.Where("booking_id = ? AND id <> ?", b.ID, first.ID).Delete(&domain.BookingTimeSlot{}).Error; err != nil {
			return nil, dbErr("delete booking slots", err)
		}
	}
	slot.ID = first.ID
	slot.CreatedAt = first.CreatedAt
	return &slot, nil
}

func (r *BookingRepository) AddServiceLine(ctx context.Context, line *domain.BookingServiceLine) error {
	return dbErr("create service line", r.db.WithContext(ctx).Create(line).Error)
}

func (r *BookingRepository) SetLegPaymentStatus(ctx context.Context, id int64, status domain.PaymentStatus) error {
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).Where("id = ?", id).Update("payment_status", status).Error
	return dbErr("update booking payment status", err)
}

// SetGroupPaymentStatus updates the group and every leg that has not been refunded.
func (r *BookingRepository) SetGroupPaymentStatus(ctx context.Context, groupID int64, status domain.PaymentStatus) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&domain.BookingGroup{}).Where("id = ?", groupID).Update("payment_status", status).Error; err != nil {
		return dbErr("update group payment status", err)
	}
	err := db.Model(&domain.Booking{}).
		Where("group_id = ? AND payment_status <> ?", groupID, domain.PaymentRefunded).
		Update("payment_status", status).Error
	return dbErr("update leg payment status", err)
}

func (r *BookingRepository) List(ctx context.Context, f BookingFilter) ([]domain.Booking, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Booking{})
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if f.FacilityIDs != nil {
		if len(f.FacilityIDs) == 0 {
			return []domain.Booking{}, 0, nil
		}
		q = q.Where("facility_id IN ?", f.FacilityIDs)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.From != "" {
		q = q.Where("booking_date >= ?", f.From)
	}
	if f.To != "" {
		q = q.Where("booking_date <= ?", f.To)
	}
	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, dbErr("count bookings", err)
	}

	var legs []domain.Booking
	err := q.
		Preload("Slots", func(db *gorm.DB) *gorm.DB { return db.Order("start_time ASC") }).
		Preload("Services").
		Order("booking_date DESC, id DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&legs).Error
	if err != nil {
		return nil, 0, dbErr("list bookings", err)
	}
	return legs, total, nil
}
