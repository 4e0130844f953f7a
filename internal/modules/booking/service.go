package booking

import (
	"context"
	"time"

	"fieldbooking/internal/domain"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/pkg/logger"
	"fieldbooking/internal/pkg/validator"
	"fieldbooking/internal/repository"

	"go.uber.org/zap"
)

type Config struct {
	// Location is the facility timezone used for "today" and "now" checks.
	Location       *time.Location
	PaymentTimeout time.Duration
	PaymentHoldTTL time.Duration
	PaymentMethod  string
}

type Service struct {
	store   *repository.Store
	locker  lock.Locker
	gateway PaymentGateway
	feed    AvailabilityPublisher
	logger  *zap.Logger
	cfg     Config
	now     func() time.Time

	checker AvailabilityChecker
	pricing PricingEngine
	promos  PromotionEvaluator
}

func NewService(
	store *repository.Store,
	locker lock.Locker,
	gateway PaymentGateway,
	feed AvailabilityPublisher,
	log *zap.Logger,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.PaymentTimeout <= 0 {
		cfg.PaymentTimeout = 10 * time.Second
	}
	if cfg.PaymentHoldTTL <= 0 {
		cfg.PaymentHoldTTL = 15 * time.Minute
	}
	if cfg.PaymentMethod == "" {
		cfg.PaymentMethod = "vnpay"
	}
	if feed == nil {
		feed = noopPublisher{}
	}
	return &Service{
		store:   store,
		locker:  locker,
		gateway: gateway,
		feed:    feed,
		logger:  logger.OrNop(log),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (s *Service) localNow() time.Time { return s.now().In(s.cfg.Location) }

func (s *Service) today() string { return s.localNow().Format(domain.DateLayout) }

// inLockedTx runs fn in a retried transaction holding the slot locks for keys.
// Locks are released only after the transaction has committed or rolled back.
func (s *Service) inLockedTx(ctx context.Context, keys []lock.Key, fn func(tx *repository.Store) error) error {
	var unlock lock.Unlock
	defer func() {
		if unlock != nil {
			unlock()
		}
	}()

	return s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		if unlock != nil {
			unlock()
			unlock = nil
		}
		u, err := s.locker.Lock(ctx, tx.DB(), keys...)
		if err != nil {
			return domain.InternalError{Msg: "acquire slot lock", Err: err}
		}
		unlock = u
		return fn(tx)
	})
}

func (s *Service) publish(keys ...lock.Key) {
	for _, k := range lock.Sorted(keys) {
		s.feed.Publish(k.SubFieldID, k.Date)
	}
}

// authorizeLeg lets admins through, the facility owner, and the leg's customer when allowCustomer is set.
func (s *Service) authorizeLeg(ctx context.Context, st *repository.Store, actor domain.Actor, b *domain.Booking, allowCustomer bool) error {
	if actor.IsAdmin() {
		return nil
	}
	if allowCustomer && actor.Role == domain.RoleCustomer && b.CustomerID == actor.ID {
		return nil
	}
	if actor.Role == domain.RoleFacilityOwner {
		ownerID, err := st.Facilities().OwnerOf(ctx, b.FacilityID)
		if err != nil {
			return err
		}
		if ownerID == actor.ID {
			return nil
		}
	}
	return domain.ForbiddenError{Msg: "you do not have access to this booking"}
}

func (s *Service) GetBookingByID(ctx context.Context, actor domain.Actor, id int64) (*domain.Booking, error) {
	if err := actor.Require(domain.OpViewBooking); err != nil {
		return nil, err
	}
	b, err := s.store.Bookings().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeLeg(ctx, s.store, actor, b, true); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) GetGroup(ctx context.Context, actor domain.Actor, id int64) (*domain.BookingGroup, error) {
	if err := actor.Require(domain.OpViewBooking); err != nil {
		return nil, err
	}
	g, err := s.store.Bookings().GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || (actor.Role == domain.RoleCustomer && g.CustomerID == actor.ID) {
		return g, nil
	}
	// Owners see the group when they own the facility of at least one leg.
	if actor.Role == domain.RoleFacilityOwner {
		for i := range g.Legs {
			err := s.authorizeLeg(ctx, s.store, actor, &g.Legs[i], false)
			if err == nil {
				return g, nil
			}
			if !domain.IsForbidden(err) {
				return nil, err
			}
		}
	}
	return nil, domain.ForbiddenError{Msg: "you do not have access to this booking"}
}

func (s *Service) ListBookings(ctx context.Context, actor domain.Actor, f ListFilter) (*BookingList, error) {
	if err := actor.Require(domain.OpListBookings); err != nil {
		return nil, err
	}

	filter := repository.BookingFilter{From: f.From, To: f.To}
	switch domain.BookingStatus(f.Status) {
	case "", domain.BookingPending, domain.BookingConfirmed, domain.BookingCancelled:
		filter.Status = domain.BookingStatus(f.Status)
	default:
		return nil, invalid("status", "must be one of pending, confirmed, cancelled")
	}
	for field, v := range map[string]string{"from": f.From, "to": f.To} {
		if v == "" {
			continue
		}
		if _, err := domain.ParseDate(v, s.cfg.Location); err != nil {
			return nil, invalid(field, "must be a YYYY-MM-DD date")
		}
	}

	page, perPage := f.Page, f.PerPage
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	filter.Limit = perPage
	filter.Offset = (page - 1) * perPage

	switch actor.Role {
	case domain.RoleCustomer:
		id := actor.ID
		filter.CustomerID = &id
	case domain.RoleFacilityOwner:
		ids, err := s.store.Facilities().ListFacilityIDsByOwner(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
		filter.FacilityIDs = ids
	}

	items, total, err := s.store.Bookings().List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &BookingList{Items: items, Total: total, Page: page, PerPage: perPage}, nil
}

// GetAvailability returns the opening hours and busy intervals of a sub-field on date.
func (s *Service) GetAvailability(ctx context.Context, subFieldID int64, date string) (*AvailabilityView, error) {
	if _, err := domain.ParseDate(date, s.cfg.Location); err != nil {
		return nil, invalid("date", "must be a YYYY-MM-DD date")
	}
	sf, err := s.store.Facilities().GetActiveSubField(ctx, subFieldID)
	if err != nil {
		return nil, err
	}
	busy, err := s.checker.BusySlots(ctx, s.store.Bookings(), sf.ID, date)
	if err != nil {
		return nil, err
	}
	return &AvailabilityView{
		SubFieldID: sf.ID,
		Date:       date,
		OpenTime:   sf.OpenTime,
		CloseTime:  sf.CloseTime,
		Busy:       busy,
	}, nil
}

// AddBookingService attaches a paid service to a non-cancelled leg and recomputes leg and group totals.
func (s *Service) AddBookingService(ctx context.Context, actor domain.Actor, bookingID int64, req AddServiceRequest) (*domain.Booking, error) {
	if err := actor.Require(domain.OpAddService); err != nil {
		return nil, err
	}
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	var out *domain.Booking
	err := s.store.TransactionWithRetry(ctx, func(tx *repository.Store) error {
		b, err := tx.Bookings().GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if b.CustomerID != actor.ID {
			return domain.ForbiddenError{Msg: "you do not have access to this booking"}
		}
		if b.Status == domain.BookingCancelled {
			return alreadyCancelled()
		}
		if len(b.Services) >= MaxServicesPerLeg {
			return invalid("services", "max 20 services per booking")
		}

		svc, err := tx.Facilities().GetActiveService(ctx, req.ServiceID)
		if err != nil {
			return err
		}
		if svc.FacilityID != b.FacilityID {
			return invalid("service_id", "service does not belong to this facility")
		}

		line := domain.BookingServiceLine{
			BookingID: b.ID,
			ServiceID: svc.ID,
			Name:      svc.Name,
			Quantity:  req.Quantity,
			UnitPrice: svc.Price,
			LinePrice: svc.Price * int64(req.Quantity),
		}
		if err := tx.Bookings().AddServiceLine(ctx, &line); err != nil {
			return err
		}
		b.Services = append(b.Services, line)
		b.Recalculate()
		if err := tx.Bookings().UpdateLegTotals(ctx, b); err != nil {
			return err
		}
		if err := tx.Bookings().RecalculateGroup(ctx, b.GroupID); err != nil {
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("service added to booking",
		zap.Int64("booking_id", out.ID),
		zap.Int64("group_id", out.GroupID),
		zap.Int64("service_id", req.ServiceID),
		zap.Int64("total_price", out.TotalPrice),
	)
	return out, nil
}
