package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"fieldbooking/internal/database"
	"fieldbooking/internal/domain"
	"fieldbooking/internal/lock"
	"fieldbooking/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const (
	testDate  = "2030-06-03" // Monday
	ownerID   = int64(100)
	otherUser = int64(999)
)

var (
	customer  = domain.Actor{ID: 1, Role: domain.RoleCustomer}
	customer2 = domain.Actor{ID: 2, Role: domain.RoleCustomer}
	owner     = domain.Actor{ID: ownerID, Role: domain.RoleFacilityOwner}
	admin     = domain.Actor{ID: 500, Role: domain.RoleAdmin}
)

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreatePayment(ctx context.Context, req domain.PaymentRequest) (*domain.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaymentLink), args.Error(1)
}

type recordingPublisher struct {
	mu   sync.Mutex
	keys []lock.Key
}

func (p *recordingPublisher) Publish(subFieldID int64, date string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, lock.Key{SubFieldID: subFieldID, Date: date})
}

func (p *recordingPublisher) published() []lock.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]lock.Key(nil), p.keys...)
}

type fixture struct {
	svc      *Service
	store    *repository.Store
	gateway  *MockGateway
	feed     *recordingPublisher
	facility *domain.Facility
	field    *domain.SubField
	field2   *domain.SubField
	service  *domain.FacilityService
}

func okGateway() *MockGateway {
	gw := &MockGateway{}
	gw.On("CreatePayment", mock.Anything, mock.Anything).Return(&domain.PaymentLink{PaymentURL: "https://pay.test/checkout"}, nil)
	return gw
}

func newFixture(t *testing.T, gw *MockGateway) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:booking_%s?mode=memory&cache=shared", name), nil)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	store := repository.NewStore(db)
	f := &fixture{store: store, gateway: gw, feed: &recordingPublisher{}}

	f.facility = &domain.Facility{OwnerID: ownerID, Name: "Riverside Sports", IsActive: true}
	require.NoError(t, db.Create(f.facility).Error)
	f.field = &domain.SubField{
		FacilityID:   f.facility.ID,
		Name:         "Court 1",
		SportType:    "badminton",
		OpenTime:     domain.NewClock(6, 0),
		CloseTime:    domain.NewClock(22, 0),
		DefaultPrice: 200_000,
		IsActive:     true,
	}
	require.NoError(t, db.Create(f.field).Error)
	f.field2 = &domain.SubField{
		FacilityID:   f.facility.ID,
		Name:         "Court 2",
		OpenTime:     domain.NewClock(6, 0),
		CloseTime:    domain.NewClock(22, 0),
		DefaultPrice: 100_000,
		IsActive:     true,
	}
	require.NoError(t, db.Create(f.field2).Error)
	f.service = &domain.FacilityService{FacilityID: f.facility.ID, Name: "Racket rental", Price: 50_000, IsActive: true}
	require.NoError(t, db.Create(f.service).Error)

	f.svc = NewService(store, lock.NewMemoryLocker(), gw, f.feed, nil, Config{Location: time.UTC})
	f.svc.now = func() time.Time { return time.Date(2030, 6, 1, 8, 0, 0, 0, time.UTC) }
	return f
}

func legReq(subFieldID int64, date string, slots ...[2]string) LegRequest {
	leg := LegRequest{SubFieldID: subFieldID, Date: date}
	for _, s := range slots {
		leg.Slots = append(leg.Slots, SlotRequest{StartTime: s[0], EndTime: s[1]})
	}
	return leg
}

func (f *fixture) book(t *testing.T, actor domain.Actor, start, end string) *CreateBookingResult {
	t.Helper()
	res, err := f.svc.CreateBooking(context.Background(), actor, CreateBookingRequest{
		Legs: []LegRequest{legReq(f.field.ID, testDate, [2]string{start, end})},
	})
	require.NoError(t, err)
	return res
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.store.DB().Model(model).Count(&n).Error)
	return n
}

func (f *fixture) addPromotion(t *testing.T, p *domain.Promotion) *domain.Promotion {
	t.Helper()
	if p.StartDate.IsZero() {
		p.StartDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
		p.EndDate = time.Date(2030, 12, 31, 0, 0, 0, 0, time.UTC)
	}
	p.IsActive = true
	require.NoError(t, f.store.Promotions().Create(context.Background(), p))
	return p
}

func TestCreateBooking_DefaultPriceOnMonday(t *testing.T) {
	f := newFixture(t, okGateway())

	res := f.book(t, customer, "18:00", "19:00")

	require.Len(t, res.Legs, 1)
	assert.Equal(t, int64(400_000), res.Subtotal)
	assert.Equal(t, int64(400_000), res.TotalPrice)
	assert.Equal(t, domain.PaymentPending, res.PaymentStatus)
	assert.Equal(t, "https://pay.test/checkout", res.PaymentURL)
	assert.Equal(t, domain.BookingPending, res.Legs[0].Status)
	assert.NotZero(t, res.Legs[0].ID)

	g, err := f.svc.GetGroup(context.Background(), customer, res.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(400_000), g.TotalPrice)
	require.Len(t, g.Legs, 1)
	require.Len(t, g.Legs[0].Slots, 1)

	payments, err := f.store.Payments().ListByGroup(context.Background(), res.GroupID)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(400_000), payments[0].Amount)

	f.gateway.AssertNumberOfCalls(t, "CreatePayment", 1)
	assert.Contains(t, f.feed.published(), lock.Key{SubFieldID: f.field.ID, Date: testDate})
}

func TestCreateBooking_ConcurrentRequestsForSameSlot(t *testing.T) {
	f := newFixture(t, okGateway())

	var (
		mu        sync.Mutex
		successes int
		conflicts int
	)
	var g errgroup.Group
	for _, actor := range []domain.Actor{customer, customer2} {
		actor := actor
		g.Go(func() error {
			_, err := f.svc.CreateBooking(context.Background(), actor, CreateBookingRequest{
				Legs: []LegRequest{legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"})},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case domain.IsConflict(err) && errors.Is(err, domain.ErrSlotUnavailable):
				conflicts++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, int64(1), f.countRows(t, &domain.Booking{}))
	assert.Equal(t, int64(1), f.countRows(t, &domain.BookingGroup{}))
}

func TestCreateBooking_OverlappingExistingSlotConflicts(t *testing.T) {
	f := newFixture(t, okGateway())
	f.book(t, customer, "18:00", "19:00")

	_, err := f.svc.CreateBooking(context.Background(), customer2, CreateBookingRequest{
		Legs: []LegRequest{legReq(f.field.ID, testDate, [2]string{"18:30", "19:30"})},
	})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	// Touching intervals do not overlap.
	f.book(t, customer2, "19:00", "20:00")
}

func TestCreateBooking_TooManyLegsRejectedBeforeWrite(t *testing.T) {
	f := newFixture(t, okGateway())

	req := CreateBookingRequest{}
	for i := 0; i < 6; i++ {
		start := domain.NewClock(8+i, 0)
		req.Legs = append(req.Legs, legReq(f.field.ID, testDate, [2]string{start.String(), (start + 60).String()}))
	}

	_, err := f.svc.CreateBooking(context.Background(), customer, req)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "max 5 bookings per request")
	assert.Zero(t, f.countRows(t, &domain.BookingGroup{}))
	f.gateway.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
}

func TestCreateBooking_ValidationFailures(t *testing.T) {
	f := newFixture(t, okGateway())

	cases := []struct {
		name string
		leg  LegRequest
		want string
	}{
		{"misaligned", legReq(f.field.ID, testDate, [2]string{"18:15", "19:00"}), "30-minute"},
		{"start after end", legReq(f.field.ID, testDate, [2]string{"19:00", "18:00"}), "before end"},
		{"outside hours", legReq(f.field.ID, testDate, [2]string{"21:30", "22:30"}), "operating hours"},
		{"past date", legReq(f.field.ID, "2030-05-31", [2]string{"18:00", "19:00"}), "past"},
		{"start already passed today", legReq(f.field.ID, "2030-06-01", [2]string{"07:00", "08:00"}), "already passed"},
		{"self overlap", legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"}, [2]string{"18:30", "19:30"}), "overlaps"},
		{"no slots", LegRequest{SubFieldID: f.field.ID, Date: testDate}, "at least one slot"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{Legs: []LegRequest{tc.leg}})
			require.Error(t, err)
			assert.True(t, domain.IsValidation(err), "got %v", err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	assert.Zero(t, f.countRows(t, &domain.Booking{}))
}

func TestCreateBooking_OnlyCustomers(t *testing.T) {
	f := newFixture(t, okGateway())

	_, err := f.svc.CreateBooking(context.Background(), owner, CreateBookingRequest{
		Legs: []LegRequest{legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"})},
	})
	assert.True(t, domain.IsForbidden(err))
}

func TestCreateBooking_UnknownSubField(t *testing.T) {
	f := newFixture(t, okGateway())

	_, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{
		Legs: []LegRequest{legReq(4242, testDate, [2]string{"18:00", "19:00"})},
	})
	assert.True(t, domain.IsNotFound(err))
	assert.Zero(t, f.countRows(t, &domain.BookingGroup{}))
}

func TestCreateBooking_GatewayFailureRollsBack(t *testing.T) {
	gw := &MockGateway{}
	gw.On("CreatePayment", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))
	f := newFixture(t, gw)

	_, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{
		Legs: []LegRequest{legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"})},
	})
	require.Error(t, err)
	assert.True(t, domain.IsInternal(err))

	assert.Zero(t, f.countRows(t, &domain.BookingGroup{}))
	assert.Zero(t, f.countRows(t, &domain.Booking{}))
	assert.Zero(t, f.countRows(t, &domain.BookingTimeSlot{}))
	assert.Zero(t, f.countRows(t, &domain.Payment{}))
	assert.Empty(t, f.feed.published())
}

func TestCreateBooking_MultiLegWithServicesAndPromotion(t *testing.T) {
	f := newFixture(t, okGateway())
	maxDiscount := int64(50_000)
	f.addPromotion(t, &domain.Promotion{
		Code:              "SUMMER10",
		DiscountType:      domain.DiscountPercentage,
		DiscountValue:     10,
		MinBookingValue:   100_000,
		MaxDiscountAmount: &maxDiscount,
	})

	leg1 := legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"}, [2]string{"20:00", "21:00"})
	leg1.Services = []ServiceRequest{{ServiceID: f.service.ID, Quantity: 4}}
	leg2 := legReq(f.field2.ID, testDate, [2]string{"18:00", "19:00"})

	res, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{
		Legs:          []LegRequest{leg1, leg2},
		PromotionCode: "summer10",
	})
	require.NoError(t, err)
	require.Len(t, res.Legs, 2)

	// leg1: 800k slots + 200k services = 1 000 000, 10% capped to 50 000.
	assert.Equal(t, int64(1_000_000), res.Legs[0].Subtotal)
	assert.Equal(t, int64(50_000), res.Legs[0].Discount)
	// leg2: 200k, 10% = 20 000.
	assert.Equal(t, int64(200_000), res.Legs[1].Subtotal)
	assert.Equal(t, int64(20_000), res.Legs[1].Discount)

	assert.Equal(t, int64(1_200_000), res.Subtotal)
	assert.Equal(t, int64(70_000), res.Discount)
	assert.Equal(t, int64(1_130_000), res.TotalPrice)
	assert.Equal(t, reasonApplied, res.PromotionMessage)

	promo, err := f.store.Promotions().GetByCode(context.Background(), "SUMMER10")
	require.NoError(t, err)
	assert.Equal(t, 2, promo.UsageCount)
}

func TestCreateBooking_PromotionUsageLimit(t *testing.T) {
	f := newFixture(t, okGateway())
	limit := 1
	f.addPromotion(t, &domain.Promotion{
		Code:          "ONCE",
		DiscountType:  domain.DiscountFixed,
		DiscountValue: 30_000,
		UsageLimit:    &limit,
	})

	first, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{
		Legs:          []LegRequest{legReq(f.field.ID, testDate, [2]string{"08:00", "09:00"})},
		PromotionCode: "ONCE",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(30_000), first.Discount)

	second, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{
		Legs:          []LegRequest{legReq(f.field.ID, testDate, [2]string{"10:00", "11:00"})},
		PromotionCode: "ONCE",
	})
	require.NoError(t, err)
	assert.Zero(t, second.Discount)
	assert.Equal(t, reasonExhausted, second.PromotionMessage)
}

func TestCreateBooking_UnknownPromotionCode(t *testing.T) {
	f := newFixture(t, okGateway())

	_, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{
		Legs:          []LegRequest{legReq(f.field.ID, testDate, [2]string{"08:00", "09:00"})},
		PromotionCode: "NOPE",
	})
	assert.True(t, domain.IsNotFound(err))
	assert.Zero(t, f.countRows(t, &domain.Booking{}))
}

func TestCreateSimpleBooking(t *testing.T) {
	f := newFixture(t, okGateway())

	res, err := f.svc.CreateSimpleBooking(context.Background(), customer, CreateSimpleBookingRequest{
		SubFieldID: f.field2.ID,
		Date:       testDate,
		StartTime:  "06:00",
		EndTime:    "07:30",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(300_000), res.TotalPrice)
}

func TestPreviewBooking_WritesNothing(t *testing.T) {
	f := newFixture(t, okGateway())
	f.book(t, customer, "18:00", "19:00")
	before := f.countRows(t, &domain.Booking{})

	res, err := f.svc.PreviewBooking(context.Background(), customer2, CreateBookingRequest{
		Legs: []LegRequest{
			legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"}),
			legReq(f.field2.ID, testDate, [2]string{"18:00", "19:00"}),
		},
		PromotionCode: "MISSING",
	})
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.False(t, res.Legs[0].Slots[0].Available)
	assert.True(t, res.Legs[1].Slots[0].Available)
	assert.Equal(t, int64(600_000), res.TotalPrice)
	assert.Equal(t, reasonNotFound, res.PromotionMessage)

	assert.Equal(t, before, f.countRows(t, &domain.Booking{}))
	f.gateway.AssertNumberOfCalls(t, "CreatePayment", 1)
}

func TestPreviewBooking_DoesNotConsumePromotion(t *testing.T) {
	f := newFixture(t, okGateway())
	f.addPromotion(t, &domain.Promotion{Code: "FIVE", DiscountType: domain.DiscountFixed, DiscountValue: 5_000})

	res, err := f.svc.PreviewBooking(context.Background(), customer, CreateBookingRequest{
		Legs:          []LegRequest{legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"})},
		PromotionCode: "FIVE",
	})
	require.NoError(t, err)
	assert.True(t, res.PromotionApplied)
	assert.Equal(t, int64(395_000), res.TotalPrice)

	promo, err := f.store.Promotions().GetByCode(context.Background(), "FIVE")
	require.NoError(t, err)
	assert.Zero(t, promo.UsageCount)
}

func TestCancel_TwiceIsConflict(t *testing.T) {
	f := newFixture(t, okGateway())
	res := f.book(t, customer, "18:00", "19:00")
	id := res.Legs[0].ID

	b, err := f.svc.Cancel(context.Background(), customer, id, CancelRequest{Reason: "rain"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	require.NotNil(t, b.CancelledBy)
	assert.Equal(t, customer.ID, *b.CancelledBy)

	_, err = f.svc.Cancel(context.Background(), customer, id, CancelRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	// The slot is free again.
	f.book(t, customer2, "18:00", "19:00")
}

func TestCancel_Authorization(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID

	_, err := f.svc.Cancel(context.Background(), customer2, id, CancelRequest{})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.Cancel(context.Background(), domain.Actor{ID: otherUser, Role: domain.RoleFacilityOwner}, id, CancelRequest{})
	assert.True(t, domain.IsForbidden(err))

	b, err := f.svc.Cancel(context.Background(), owner, id, CancelRequest{Reason: "maintenance"})
	require.NoError(t, err)
	assert.Equal(t, "maintenance", b.CancellationReason)
}

func TestCancel_PastDateRejected(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID

	f.svc.now = func() time.Time { return time.Date(2030, 6, 4, 9, 0, 0, 0, time.UTC) }
	_, err := f.svc.Cancel(context.Background(), customer, id, CancelRequest{})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.ErrorIs(t, err, domain.ErrBookingDatePassed)
}

func TestConfirm(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID

	_, err := f.svc.Confirm(context.Background(), customer, id)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.Confirm(context.Background(), domain.Actor{ID: otherUser, Role: domain.RoleFacilityOwner}, id)
	assert.True(t, domain.IsForbidden(err))

	b, err := f.svc.Confirm(context.Background(), owner, id)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)

	_, err = f.svc.Confirm(context.Background(), admin, id)
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateStatus(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID

	_, err := f.svc.UpdateStatus(context.Background(), owner, id, UpdateStatusRequest{Status: "pending"})
	assert.True(t, domain.IsValidation(err))

	b, err := f.svc.UpdateStatus(context.Background(), owner, id, UpdateStatusRequest{Status: "Confirmed"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, b.Status)

	b, err = f.svc.UpdateStatus(context.Background(), admin, id, UpdateStatusRequest{Status: "cancelled", Reason: "closed"})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)

	_, err = f.svc.UpdateStatus(context.Background(), customer, id, UpdateStatusRequest{Status: "cancelled"})
	assert.True(t, domain.IsForbidden(err))
}

func TestReschedule_KeepsIdentityAndServices(t *testing.T) {
	f := newFixture(t, okGateway())
	leg := legReq(f.field.ID, testDate, [2]string{"18:00", "19:00"}, [2]string{"19:00", "20:00"})
	leg.Services = []ServiceRequest{{ServiceID: f.service.ID, Quantity: 1}}
	res, err := f.svc.CreateBooking(context.Background(), customer, CreateBookingRequest{Legs: []LegRequest{leg}})
	require.NoError(t, err)
	id := res.Legs[0].ID

	b, err := f.svc.Reschedule(context.Background(), customer, id, RescheduleRequest{
		Date: "2030-06-04", StartTime: "18:30", EndTime: "19:30",
	})
	require.NoError(t, err)
	assert.Equal(t, id, b.ID)
	assert.Equal(t, "2030-06-04", b.BookingDate)
	require.Len(t, b.Slots, 1)
	assert.Equal(t, domain.NewClock(18, 30), b.Slots[0].StartTime)
	require.Len(t, b.Services, 1)
	assert.Equal(t, int64(450_000), b.TotalPrice)

	g, err := f.svc.GetGroup(context.Background(), customer, res.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(450_000), g.TotalPrice)

	// The old slots are free.
	f.book(t, customer2, "18:00", "20:00")

	keys := f.feed.published()
	assert.Contains(t, keys, lock.Key{SubFieldID: f.field.ID, Date: testDate})
	assert.Contains(t, keys, lock.Key{SubFieldID: f.field.ID, Date: "2030-06-04"})
}

func TestReschedule_OverlapWithItselfIsAllowed(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID

	b, err := f.svc.Reschedule(context.Background(), customer, id, RescheduleRequest{
		Date: testDate, StartTime: "18:30", EndTime: "19:30",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NewClock(19, 30), b.Slots[0].EndTime)
}

func TestReschedule_Rejections(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID
	f.book(t, customer2, "20:00", "21:00")

	_, err := f.svc.Reschedule(context.Background(), customer, id, RescheduleRequest{Date: testDate, StartTime: "20:30", EndTime: "21:30"})
	assert.True(t, domain.IsConflict(err))
	assert.ErrorIs(t, err, domain.ErrSlotUnavailable)

	_, err = f.svc.Reschedule(context.Background(), customer2, id, RescheduleRequest{Date: testDate, StartTime: "08:00", EndTime: "09:00"})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.Reschedule(context.Background(), owner, id, RescheduleRequest{Date: testDate, StartTime: "08:00", EndTime: "09:00"})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.Reschedule(context.Background(), customer, id, RescheduleRequest{Date: testDate, StartTime: "05:00", EndTime: "06:00"})
	assert.True(t, domain.IsValidation(err))

	_, err = f.svc.Cancel(context.Background(), customer, id, CancelRequest{})
	require.NoError(t, err)
	_, err = f.svc.Reschedule(context.Background(), customer, id, RescheduleRequest{Date: testDate, StartTime: "08:00", EndTime: "09:00"})
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)
}

func TestAddBookingService(t *testing.T) {
	f := newFixture(t, okGateway())
	res := f.book(t, customer, "18:00", "19:00")
	id := res.Legs[0].ID

	b, err := f.svc.AddBookingService(context.Background(), customer, id, AddServiceRequest{ServiceID: f.service.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, b.Services, 1)
	assert.Equal(t, int64(100_000), b.Services[0].LinePrice)
	assert.Equal(t, int64(500_000), b.TotalPrice)

	g, err := f.svc.GetGroup(context.Background(), customer, res.GroupID)
	require.NoError(t, err)
	assert.Equal(t, int64(500_000), g.Subtotal)

	_, err = f.svc.AddBookingService(context.Background(), customer2, id, AddServiceRequest{ServiceID: f.service.ID, Quantity: 1})
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.AddBookingService(context.Background(), customer, id, AddServiceRequest{ServiceID: f.service.ID, Quantity: 0})
	assert.True(t, domain.IsValidation(err))
}

func TestAddBookingService_ForeignFacilityService(t *testing.T) {
	f := newFixture(t, okGateway())
	other := &domain.Facility{OwnerID: otherUser, Name: "Elsewhere", IsActive: true}
	require.NoError(t, f.store.DB().Create(other).Error)
	foreign := &domain.FacilityService{FacilityID: other.ID, Name: "Towel", Price: 10_000, IsActive: true}
	require.NoError(t, f.store.DB().Create(foreign).Error)

	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID
	_, err := f.svc.AddBookingService(context.Background(), customer, id, AddServiceRequest{ServiceID: foreign.ID, Quantity: 1})
	assert.True(t, domain.IsValidation(err))
}

func TestGetBookingByID_Access(t *testing.T) {
	f := newFixture(t, okGateway())
	id := f.book(t, customer, "18:00", "19:00").Legs[0].ID

	_, err := f.svc.GetBookingByID(context.Background(), customer, id)
	require.NoError(t, err)
	_, err = f.svc.GetBookingByID(context.Background(), owner, id)
	require.NoError(t, err)
	_, err = f.svc.GetBookingByID(context.Background(), admin, id)
	require.NoError(t, err)

	_, err = f.svc.GetBookingByID(context.Background(), customer2, id)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.GetBookingByID(context.Background(), customer, id+100)
	assert.True(t, domain.IsNotFound(err))
}

func TestGetGroup_Access(t *testing.T) {
	f := newFixture(t, okGateway())
	groupID := f.book(t, customer, "18:00", "19:00").GroupID

	for _, actor := range []domain.Actor{customer, owner, admin} {
		g, err := f.svc.GetGroup(context.Background(), actor, groupID)
		require.NoError(t, err, "role %s", actor.Role)
		assert.Len(t, g.Legs, 1)
	}

	_, err := f.svc.GetGroup(context.Background(), customer2, groupID)
	assert.True(t, domain.IsForbidden(err))
	_, err = f.svc.GetGroup(context.Background(), domain.Actor{ID: otherUser, Role: domain.RoleFacilityOwner}, groupID)
	assert.True(t, domain.IsForbidden(err))
	_, err = f.svc.GetGroup(context.Background(), domain.Actor{ID: customer.ID, Role: domain.RoleFacilityOwner}, groupID)
	assert.True(t, domain.IsForbidden(err))

	_, err = f.svc.GetGroup(context.Background(), customer, groupID+100)
	assert.True(t, domain.IsNotFound(err))
}

func TestListBookings_ScopedByRole(t *testing.T) {
	f := newFixture(t, okGateway())
	f.book(t, customer, "08:00", "09:00")
	f.book(t, customer, "10:00", "11:00")
	f.book(t, customer2, "12:00", "13:00")

	list, err := f.svc.ListBookings(context.Background(), customer, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), list.Total)

	list, err = f.svc.ListBookings(context.Background(), owner, ListFilter{PerPage: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(3), list.Total)
	assert.Len(t, list.Items, 1)

	list, err = f.svc.ListBookings(context.Background(), domain.Actor{ID: otherUser, Role: domain.RoleFacilityOwner}, ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, list.Total)

	_, err = f.svc.ListBookings(context.Background(), admin, ListFilter{Status: "archived"})
	assert.True(t, domain.IsValidation(err))
}

func TestGetAvailability(t *testing.T) {
	f := newFixture(t, okGateway())
	f.book(t, customer, "18:00", "19:00")
	f.book(t, customer2, "19:00", "20:00")
	f.book(t, customer2, "21:00", "21:30")

	view, err := f.svc.GetAvailability(context.Background(), f.field.ID, testDate)
	require.NoError(t, err)
	assert.Equal(t, []BusySlot{
		{Start: domain.NewClock(18, 0), End: domain.NewClock(20, 0)},
		{Start: domain.NewClock(21, 0), End: domain.NewClock(21, 30)},
	}, view.Busy)

	_, err = f.svc.GetAvailability(context.Background(), f.field.ID, "06/03/2030")
	assert.True(t, domain.IsValidation(err))
}

func TestExpirePendingBookings(t *testing.T) {
	f := newFixture(t, okGateway())
	pending := f.book(t, customer, "08:00", "09:00").Legs[0].ID
	paid := f.book(t, customer, "10:00", "11:00").Legs[0].ID
	require.NoError(t, f.store.Bookings().SetLegPaymentStatus(context.Background(), paid, domain.PaymentPaid))

	n, err := f.svc.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := f.store.Bookings().GetByID(context.Background(), pending)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.PaymentPending, b.PaymentStatus)

	b, err = f.store.Bookings().GetByID(context.Background(), paid)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)

	n, err = f.svc.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestExpirePendingBookings_ReleasesFailedPayment(t *testing.T) {
	f := newFixture(t, okGateway())
	res := f.book(t, customer, "18:00", "19:00")
	require.NoError(t, f.store.Bookings().SetGroupPaymentStatus(context.Background(), res.GroupID, domain.PaymentFailed))

	n, err := f.svc.ExpirePendingBookings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	b, err := f.store.Bookings().GetByID(context.Background(), res.Legs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, domain.PaymentFailed, b.PaymentStatus)

	again := f.book(t, customer2, "18:00", "19:00")
	assert.NotEqual(t, res.GroupID, again.GroupID)
}
