package usecase

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"showtime-booking/internal/apperr"
	"showtime-booking/internal/catalog"
	"showtime-booking/internal/data/entity"
	"showtime-booking/internal/data/repository"
	"showtime-booking/internal/dto/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockBookingRepo is an in-memory implementation of BookingRepository.
type mockBookingRepo struct {
	bookings map[int64]*entity.Booking
	nextID   int64

	createErr error
	findErr   error
	guardErr  error
}

func newMockBookingRepo() *mockBookingRepo {
	return &mockBookingRepo{bookings: make(map[int64]*entity.Booking)}
}

func (m *mockBookingRepo) Create(ctx context.Context, booking *entity.Booking) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	booking.ID = m.nextID
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	copied := *booking
	m.bookings[booking.ID] = &copied
	return nil
}

func (m *mockBookingRepo) FindByID(ctx context.Context, id int64) (*entity.Booking, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	booking, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *booking
	return &copied, nil
}

func (m *mockBookingRepo) FindByReference(ctx context.Context, reference string) (*entity.Booking, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, b := range m.bookings {
		if b.Reference == reference {
			copied := *b
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *mockBookingRepo) FindByUserID(ctx context.Context, userID int64, status *entity.BookingStatus, limit, offset int) ([]*entity.Booking, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	matched := m.matchUser(userID, status)
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *mockBookingRepo) CountByUserID(ctx context.Context, userID int64, status *entity.BookingStatus) (int64, error) {
	if m.findErr != nil {
		return 0, m.findErr
	}
	return int64(len(m.matchUser(userID, status))), nil
}

func (m *mockBookingRepo) matchUser(userID int64, status *entity.BookingStatus) []*entity.Booking {
	var matched []*entity.Booking
	for _, b := range m.bookings {
		if b.UserID != userID {
			continue
		}
		if status != nil && b.Status != *status {
			continue
		}
		copied := *b
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func (m *mockBookingRepo) FindActiveByShowtimeID(ctx context.Context, showtimeID int64) ([]*entity.Booking, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	var matched []*entity.Booking
	for _, b := range m.bookings {
		if b.ShowtimeID == showtimeID && b.Status != entity.BookingStatusCancelled {
			copied := *b
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

func (m *mockBookingRepo) CountSeatOccupancy(ctx context.Context, showtimeID, seatID int64) (int64, int64, error) {
	if m.findErr != nil {
		return 0, 0, m.findErr
	}
	var processing, confirmed int64
	for _, b := range m.bookings {
		if b.ShowtimeID != showtimeID || b.SeatID != seatID {
			continue
		}
		switch {
		case b.Status.IsProcessing():
			processing++
		case b.Status == entity.BookingStatusConfirmed:
			confirmed++
		}
	}
	return processing, confirmed, nil
}

func (m *mockBookingRepo) UpdateStatusGuarded(ctx context.Context, id int64, decide func(current entity.BookingStatus) (entity.BookingStatus, error)) (entity.BookingStatus, error) {
	if m.guardErr != nil {
		return "", m.guardErr
	}
	booking, ok := m.bookings[id]
	if !ok {
		return "", apperr.NotFound("booking %d", id)
	}
	next, err := decide(booking.Status)
	if err != nil {
		return booking.Status, err
	}
	if next != booking.Status {
		booking.Status = next
		booking.UpdatedAt = time.Now()
	}
	return next, nil
}

type mockFeedbackRepo struct {
	feedbacks map[int64]*entity.Feedback
	nextID    int64
}

func newMockFeedbackRepo() *mockFeedbackRepo {
	return &mockFeedbackRepo{feedbacks: make(map[int64]*entity.Feedback)}
}

func (m *mockFeedbackRepo) Create(ctx context.Context, feedback *entity.Feedback) error {
	m.nextID++
	feedback.ID = m.nextID
	feedback.CreatedAt = time.Now()
	copied := *feedback
	m.feedbacks[feedback.ID] = &copied
	return nil
}

func (m *mockFeedbackRepo) FindByBookingID(ctx context.Context, bookingID int64) ([]*entity.Feedback, error) {
	var matched []*entity.Feedback
	for _, f := range m.feedbacks {
		if f.BookingID == bookingID {
			copied := *f
			matched = append(matched, &copied)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched, nil
}

// mockGateway answers catalog lookups from fixed fixtures.
type mockGateway struct {
	showtimes map[int64]*catalog.Showtime
	seats     map[int64]*catalog.Seat
	price     *catalog.Price
	priceErr  error
}

func (m *mockGateway) GetShowtime(ctx context.Context, showtimeID int64) (*catalog.Showtime, error) {
	st, ok := m.showtimes[showtimeID]
	if !ok {
		return nil, apperr.NotFound("showtime %d", showtimeID)
	}
	return st, nil
}

func (m *mockGateway) GetSeat(ctx context.Context, seatID int64) (*catalog.Seat, error) {
	seat, ok := m.seats[seatID]
	if !ok {
		return nil, apperr.NotFound("seat %d", seatID)
	}
	return seat, nil
}

func (m *mockGateway) GetPrice(ctx context.Context, seatID, showtimeID int64) (*catalog.Price, error) {
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return m.price, nil
}

type mockScheduler struct {
	scheduled []int64
	err       error
}

func (m *mockScheduler) ScheduleExpiryCheck(ctx context.Context, bookingID int64) error {
	if m.err != nil {
		return m.err
	}
	m.scheduled = append(m.scheduled, bookingID)
	return nil
}

type bookingFixture struct {
	repo      *mockBookingRepo
	gateway   *mockGateway
	scheduler *mockScheduler
	svc       *bookingService
	now       time.Time
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	repo := newMockBookingRepo()
	gateway := &mockGateway{
		showtimes: map[int64]*catalog.Showtime{
			10: {ID: 10, MovieID: 1, HallID: 1, TimeStart: now.Add(2 * time.Hour), TimeEnd: now.Add(4 * time.Hour)},
		},
		seats: map[int64]*catalog.Seat{
			20: {ID: 20, HallID: 1, SeatNo: "A1"},
		},
		price: &catalog.Price{Amount: 150.00, Currency: "USD"},
	}
	scheduler := &mockScheduler{}

	svc := &bookingService{
		repo:      &repository.Repository{Booking: repo, Feedback: newMockFeedbackRepo()},
		gateway:   gateway,
		scheduler: scheduler,
		leadTime:  30 * time.Minute,
		log:       zap.NewNop(),
		now:       func() time.Time { return now },
	}

	return &bookingFixture{repo: repo, gateway: gateway, scheduler: scheduler, svc: svc, now: now}
}

func validCreateRequest() *request.CreateBookingRequest {
	return &request.CreateBookingRequest{
		UserID:     7,
		ShowtimeID: 10,
		SeatID:     20,
		Amount:     150.00,
		Currency:   "USD",
	}
}

func TestBookingService_CreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("creates booking in initializing status", func(t *testing.T) {
		f := newBookingFixture(t)

		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, entity.BookingStatusInitializing, booking.Status)
		assert.NotEmpty(t, booking.Reference)
		assert.Equal(t, int64(7), booking.UserID)
		assert.Equal(t, 150.00, booking.Amount)
		assert.Equal(t, f.now, booking.BookingTime)
		assert.Equal(t, []int64{booking.ID}, f.scheduler.scheduled)
	})

	t.Run("rejects occupied seat", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		_, err = f.svc.CreateBooking(ctx, validCreateRequest())
		assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
		assert.Len(t, f.repo.bookings, 1)
	})

	t.Run("rejects booking inside lead time window", func(t *testing.T) {
		f := newBookingFixture(t)
		f.gateway.showtimes[10].TimeStart = f.now.Add(20 * time.Minute)

		_, err := f.svc.CreateBooking(ctx, validCreateRequest())
		assert.ErrorIs(t, err, apperr.ErrDeadlineExceeded)
		assert.Empty(t, f.repo.bookings, "rejected booking must not be persisted")
		assert.Empty(t, f.scheduler.scheduled)
	})

	t.Run("rejects unknown showtime", func(t *testing.T) {
		f := newBookingFixture(t)

		req := validCreateRequest()
		req.ShowtimeID = 99

		_, err := f.svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("rejects unknown seat", func(t *testing.T) {
		f := newBookingFixture(t)

		req := validCreateRequest()
		req.SeatID = 99

		_, err := f.svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("rejects amount mismatch", func(t *testing.T) {
		f := newBookingFixture(t)

		req := validCreateRequest()
		req.Amount = 120.00

		_, err := f.svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		assert.Empty(t, f.repo.bookings)
	})

	t.Run("rejects currency mismatch", func(t *testing.T) {
		f := newBookingFixture(t)

		req := validCreateRequest()
		req.Currency = "EUR"

		_, err := f.svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})

	t.Run("rejects invalid request fields", func(t *testing.T) {
		f := newBookingFixture(t)

		req := validCreateRequest()
		req.UserID = 0

		_, err := f.svc.CreateBooking(ctx, req)
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})

	t.Run("succeeds even when expiry enqueue fails", func(t *testing.T) {
		f := newBookingFixture(t)
		f.scheduler.err = errors.New("broker unavailable")

		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)
		assert.Equal(t, entity.BookingStatusInitializing, booking.Status)
		assert.Len(t, f.repo.bookings, 1)
	})

	t.Run("surfaces storage failure on availability check", func(t *testing.T) {
		f := newBookingFixture(t)
		f.repo.findErr = errors.New("connection reset")

		_, err := f.svc.CreateBooking(ctx, validCreateRequest())
		assert.ErrorIs(t, err, apperr.ErrInternal)
	})
}

func TestBookingService_MarkPending(t *testing.T) {
	ctx := context.Background()

	t.Run("moves initializing to pending", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.MarkPending(ctx, booking.ID))
		assert.Equal(t, entity.BookingStatusPending, f.repo.bookings[booking.ID].Status)
	})

	t.Run("rejects repeated transition", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.MarkPending(ctx, booking.ID))
		err = f.svc.MarkPending(ctx, booking.ID)
		assert.ErrorIs(t, err, apperr.ErrFailedPrecondition)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newBookingFixture(t)

		err := f.svc.MarkPending(ctx, 42)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBookingService_ExpireBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("cancels initializing booking", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))
		assert.Equal(t, entity.BookingStatusCancelled, f.repo.bookings[booking.ID].Status)
	})

	t.Run("is idempotent", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))
		require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))
		assert.Equal(t, entity.BookingStatusCancelled, f.repo.bookings[booking.ID].Status)
	})

	t.Run("leaves confirmed booking untouched", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.MarkPending(ctx, booking.ID))
		require.NoError(t, f.svc.ReconcilePayment(ctx, booking.ID, entity.PaymentOutcomeSuccess))

		require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))
		assert.Equal(t, entity.BookingStatusConfirmed, f.repo.bookings[booking.ID].Status)
	})

	t.Run("leaves pending booking untouched", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		require.NoError(t, f.svc.MarkPending(ctx, booking.ID))
		require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))
		assert.Equal(t, entity.BookingStatusPending, f.repo.bookings[booking.ID].Status)
	})
}

func TestBookingService_ReconcilePayment(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, f *bookingFixture) int64 {
		t.Helper()
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)
		return booking.ID
	}

	t.Run("success confirms booking", func(t *testing.T) {
		f := newBookingFixture(t)
		id := create(t, f)

		require.NoError(t, f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcomeSuccess))
		assert.Equal(t, entity.BookingStatusConfirmed, f.repo.bookings[id].Status)
	})

	t.Run("cancel cancels booking", func(t *testing.T) {
		f := newBookingFixture(t)
		id := create(t, f)

		require.NoError(t, f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcomeCancel))
		assert.Equal(t, entity.BookingStatusCancelled, f.repo.bookings[id].Status)
	})

	t.Run("pending outcome is a no-op", func(t *testing.T) {
		f := newBookingFixture(t)
		id := create(t, f)

		require.NoError(t, f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcomePending))
		assert.Equal(t, entity.BookingStatusInitializing, f.repo.bookings[id].Status)
	})

	t.Run("late success after expiry keeps cancellation", func(t *testing.T) {
		f := newBookingFixture(t)
		id := create(t, f)

		require.NoError(t, f.svc.ExpireBooking(ctx, id))
		require.NoError(t, f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcomeSuccess))
		assert.Equal(t, entity.BookingStatusCancelled, f.repo.bookings[id].Status)
	})

	t.Run("confirmed booking is never revisited", func(t *testing.T) {
		f := newBookingFixture(t)
		id := create(t, f)

		require.NoError(t, f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcomeSuccess))
		require.NoError(t, f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcomeCancel))
		assert.Equal(t, entity.BookingStatusConfirmed, f.repo.bookings[id].Status)
	})

	t.Run("unknown outcome is rejected", func(t *testing.T) {
		f := newBookingFixture(t)
		id := create(t, f)

		err := f.svc.ReconcilePayment(ctx, id, entity.PaymentOutcome("REFUNDED"))
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
		assert.Equal(t, entity.BookingStatusInitializing, f.repo.bookings[id].Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		f := newBookingFixture(t)

		err := f.svc.ReconcilePayment(ctx, 42, entity.PaymentOutcomeSuccess)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestBookingService_FullLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(t)

	booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
	require.NoError(t, err)
	require.Equal(t, entity.BookingStatusInitializing, booking.Status)

	require.NoError(t, f.svc.MarkPending(ctx, booking.ID))
	require.NoError(t, f.svc.ReconcilePayment(ctx, booking.ID, entity.PaymentOutcomeSuccess))

	// The delayed expiry check fires after confirmation and changes nothing.
	require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))

	got, err := f.svc.GetBookingByID(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, got.Status)

	// The seat stays occupied for the showtime.
	_, err = f.svc.CreateBooking(ctx, validCreateRequest())
	assert.ErrorIs(t, err, apperr.ErrAlreadyExists)
}

func TestBookingService_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("get by ID not found", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.svc.GetBookingByID(ctx, 42)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("get for user checks ownership and status", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		got, err := f.svc.GetBookingForUser(ctx, booking.ID, 7, entity.BookingStatusInitializing)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, got.ID)

		_, err = f.svc.GetBookingForUser(ctx, booking.ID, 8, entity.BookingStatusInitializing)
		assert.ErrorIs(t, err, apperr.ErrNotFound)

		_, err = f.svc.GetBookingForUser(ctx, booking.ID, 7, entity.BookingStatusConfirmed)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("get by reference", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)

		got, err := f.svc.GetBookingByReference(ctx, booking.Reference)
		require.NoError(t, err)
		assert.Equal(t, booking.ID, got.ID)

		_, err = f.svc.GetBookingByReference(ctx, "BOOK-UNKNOWN")
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("user bookings are paginated and filterable", func(t *testing.T) {
		f := newBookingFixture(t)

		for i := int64(0); i < 3; i++ {
			f.gateway.seats[20+i] = &catalog.Seat{ID: 20 + i, HallID: 1, SeatNo: "A1"}

			req := validCreateRequest()
			req.SeatID = 20 + i
			booking, err := f.svc.CreateBooking(ctx, req)
			require.NoError(t, err)
			if i == 0 {
				require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))
			}
		}

		page, err := f.svc.GetUserBookings(ctx, 7, &request.ListUserBookingsRequest{
			PaginatedRequest: request.PaginatedRequest{Page: 1, PerPage: 2},
		})
		require.NoError(t, err)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, int64(3), page.Pagination.Total)

		cancelled := &request.ListUserBookingsRequest{
			PaginatedRequest: request.PaginatedRequest{Page: 1, PerPage: 10},
			Status:           string(entity.BookingStatusCancelled),
		}
		page, err = f.svc.GetUserBookings(ctx, 7, cancelled)
		require.NoError(t, err)
		assert.Len(t, page.Data, 1)
	})

	t.Run("showtime bookings exclude cancelled", func(t *testing.T) {
		f := newBookingFixture(t)
		booking, err := f.svc.CreateBooking(ctx, validCreateRequest())
		require.NoError(t, err)
		require.NoError(t, f.svc.ExpireBooking(ctx, booking.ID))

		f.gateway.seats[21] = &catalog.Seat{ID: 21, HallID: 1, SeatNo: "A2"}
		req := validCreateRequest()
		req.SeatID = 21
		active, err := f.svc.CreateBooking(ctx, req)
		require.NoError(t, err)

		bookings, err := f.svc.GetShowtimeBookings(ctx, 10)
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, active.ID, bookings[0].ID)
	})
}
