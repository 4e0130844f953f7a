package booking

import (
	"fieldbooking/internal/domain"

	"github.com/jinzhu/copier"
)

const (
	MaxLegsPerRequest = 5
	MaxSlotsPerLeg    = 10
	MaxServicesPerLeg = 20

	defaultPerPage = 20
	maxPerPage     = 100
)

type SlotRequest struct {
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type ServiceRequest struct {
	ServiceID int64 `json:"service_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=100"`
}

type LegRequest struct {
	SubFieldID int64            `json:"sub_field_id" validate:"required,gt=0"`
	Date       string           `json:"date" validate:"required,datetime=2006-01-02"`
	Slots      []SlotRequest    `json:"slots" validate:"dive"`
	Services   []ServiceRequest `json:"services" validate:"dive"`
	Notes      string           `json:"notes" validate:"max=500"`
}

type CreateBookingRequest struct {
	Legs          []LegRequest `json:"bookings" validate:"dive"`
	PromotionCode string       `json:"promotion_code" validate:"max=50"`
	PaymentMethod string       `json:"payment_method" validate:"omitempty,oneof=vnpay"`
	ClientIP      string       `json:"-"`
}

type CreateSimpleBookingRequest struct {
	SubFieldID    int64            `json:"sub_field_id"`
	Date          string           `json:"date"`
	StartTime     string           `json:"start_time"`
	EndTime       string           `json:"end_time"`
	Services      []ServiceRequest `json:"services"`
	Notes         string           `json:"notes"`
	PaymentMethod string           `json:"payment_method"`
	ClientIP      string           `json:"-"`
}

type AddServiceRequest struct {
	ServiceID int64 `json:"service_id" validate:"required,gt=0"`
	Quantity  int   `json:"quantity" validate:"required,min=1,max=100"`
}

type RescheduleRequest struct {
	Date      string `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type ListFilter struct {
	Status  string `form:"status"`
	From    string `form:"from"`
	To      string `form:"to"`
	Page    int    `form:"page"`
	PerPage int    `form:"per_page"`
}

// SlotQuote is a priced slot and whether it was free when checked.
type SlotQuote struct {
	StartTime domain.Clock `json:"start_time"`
	EndTime   domain.Clock `json:"end_time"`
	Price     int64        `json:"price"`
	Available bool         `json:"available"`
	Units     []UnitPrice  `json:"units,omitempty"`
}

type LegResult struct {
	ID            int64                       `json:"booking_id,omitempty"`
	SubFieldID    int64                       `json:"sub_field_id"`
	FacilityID    int64                       `json:"facility_id"`
	BookingDate   string                      `json:"date"`
	Slots         []SlotQuote                 `json:"slots"`
	Services      []domain.BookingServiceLine `json:"services"`
	Subtotal      int64                       `json:"subtotal"`
	Discount      int64                       `json:"discount"`
	TotalPrice    int64                       `json:"total_price"`
	Status        domain.BookingStatus        `json:"status,omitempty"`
	PaymentStatus domain.PaymentStatus        `json:"payment_status,omitempty"`
}

type CreateBookingResult struct {
	GroupID          int64                `json:"group_id"`
	Legs             []LegResult          `json:"bookings"`
	Subtotal         int64                `json:"subtotal"`
	Discount         int64                `json:"discount"`
	TotalPrice       int64                `json:"total_price"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status"`
	PaymentURL       string               `json:"payment_url"`
	PromotionMessage string               `json:"promotion_message,omitempty"`
}

type PreviewResult struct {
	Legs             []LegResult `json:"bookings"`
	Subtotal         int64       `json:"subtotal"`
	Discount         int64       `json:"discount"`
	TotalPrice       int64       `json:"total_price"`
	Available        bool        `json:"available"`
	PromotionApplied bool        `json:"promotion_applied"`
	PromotionMessage string      `json:"promotion_message,omitempty"`
}

type AvailabilityView struct {
	SubFieldID int64        `json:"sub_field_id"`
	Date       string       `json:"date"`
	OpenTime   domain.Clock `json:"open_time"`
	CloseTime  domain.Clock `json:"close_time"`
	Busy       []BusySlot   `json:"busy"`
}

type BookingList struct {
	Items   []domain.Booking `json:"items"`
	Total   int64            `json:"total"`
	Page    int              `json:"page"`
	PerPage int              `json:"per_page"`
}

func toLegResult(b *domain.Booking, quotes []SlotQuote) (LegResult, error) {
	var out LegResult
	if err := copier.Copy(&out, b); err != nil {
		return LegResult{}, domain.InternalError{Msg: "map booking leg", Err: err}
	}
	out.Slots = quotes
	if out.Services == nil {
		out.Services = []domain.BookingServiceLine{}
	}
	return out, nil
}
