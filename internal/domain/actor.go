package domain

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleCustomer      Role = "customer"
	RoleFacilityOwner Role = "facility_owner"
	RoleAdmin         Role = "admin"
)

// ParseRole accepts the canonical role names and the legacy "user"/"owner" spellings.
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "customer", "user", "client":
		return RoleCustomer, true
	case "facility_owner", "owner":
		return RoleFacilityOwner, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

type Operation string

const (
	OpPreviewBooking    Operation = "booking.preview"
	OpCreateBooking     Operation = "booking.create"
	OpAddService        Operation = "booking.add_service"
	OpViewBooking       Operation = "booking.view"
	OpListBookings      Operation = "booking.list"
	OpReschedule        Operation = "booking.reschedule"
	OpConfirmBooking    Operation = "booking.confirm"
	OpCancelBooking     Operation = "booking.cancel"
	OpUpdateStatus      Operation = "booking.update_status"
	OpRequestRefund     Operation = "refund.request"
	OpReviewRefund      Operation = "refund.review"
	OpWatchAvailability Operation = "availability.watch"
)

var permissions = map[Operation][]Role{
	OpPreviewBooking:    {RoleCustomer},
	OpCreateBooking:     {RoleCustomer},
	OpAddService:        {RoleCustomer},
	OpViewBooking:       {RoleCustomer, RoleFacilityOwner, RoleAdmin},
	OpListBookings:      {RoleCustomer, RoleFacilityOwner, RoleAdmin},
	OpReschedule:        {RoleCustomer},
	OpConfirmBooking:    {RoleFacilityOwner, RoleAdmin},
	OpCancelBooking:     {RoleCustomer, RoleFacilityOwner, RoleAdmin},
	OpUpdateStatus:      {RoleFacilityOwner, RoleAdmin},
	OpRequestRefund:     {RoleCustomer},
	OpReviewRefund:      {RoleFacilityOwner, RoleAdmin},
	OpWatchAvailability: {RoleCustomer, RoleFacilityOwner, RoleAdmin},
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   int64
	Role Role
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Can reports whether the actor's role holds the permission for op.
func (a Actor) Can(op Operation) bool {
	for _, r := range permissions[op] {
		if r == a.Role {
			return true
		}
	}
	return false
}

// Require returns a ForbiddenError when the actor lacks the permission for op.
func (a Actor) Require(op Operation) error {
	if a.ID == 0 {
		return ForbiddenError{Msg: "authentication required"}
	}
	if !a.Can(op) {
		return ForbiddenError{Msg: fmt.Sprintf("role %q may not perform %s", a.Role, op)}
	}
	return nil
}
