package booking

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
	"github.com/santafilomena/staycore/internal/repository/memory"
)

var rome, _ = time.LoadLocation("Europe/Rome")

type recordingNotifier struct {
	mu    sync.Mutex
	got   []domain.Booking
	fails bool
}

func (n *recordingNotifier) NotifyBookingCreated(_ context.Context, b domain.Booking, _ domain.Room) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.got = append(n.got, b)
	if n.fails {
		return errors.New("smtp down")
	}
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.got)
}

type fixture struct {
	svc      *Service
	store    *memory.Store
	notifier *recordingNotifier
	roomID   int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	room := &domain.Room{
		Name:          "Camera Vista Mare",
		Type:          domain.RoomDouble,
		Capacity:      2,
		PricePerNight: mustMoney(t, "120.50"),
		IsAvailable:   true,
	}
	require.NoError(t, store.Rooms().CreateRoom(context.Background(), room))

	n := &recordingNotifier{}
	svc := New(store, nil, nil, nil, n, nil, Config{
		Location:    rome,
		LockTimeout: time.Second,
		Clock:       FixedClock(time.Date(2024, 1, 1, 9, 0, 0, 0, rome)),
	})

	return &fixture{svc: svc, store: store, notifier: n, roomID: room.ID}
}

func mustMoney(t *testing.T, s string) domain.Money {
	t.Helper()
	m, err := domain.ParseMoney(s)
	require.NoError(t, err)
	return m
}

func (f *fixture) request(in, out string) Request {
	ci, _ := domain.ParseDate(in)
	co, _ := domain.ParseDate(out)
	return Request{
		RoomID:     f.roomID,
		GuestName:  "Mario Rossi",
		GuestEmail: "mario@example.com",
		GuestPhone: "+39 06 1234 5678",
		CheckIn:    ci,
		CheckOut:   co,
		Guests:     2,
	}
}

func TestCreateSnapshotsPriceExactly(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.Create(context.Background(), f.request("2024-01-10", "2024-01-13"))
	require.NoError(t, err)

	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, 3, b.Nights())
	assert.Equal(t, domain.Money(12050), b.PricePerNight)
	assert.Equal(t, domain.Money(36150), b.TotalPrice)
	assert.Equal(t, "361.50", b.TotalPrice.String())
	assert.Regexp(t, `^SF[A-Z0-9]{8}$`, b.Reference)

	stored, err := f.svc.Get(context.Background(), b.Reference)
	require.NoError(t, err)
	assert.Equal(t, b.TotalPrice, stored.TotalPrice)
}

func TestCreateRejectsOverlap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request("2024-01-10", "2024-01-15"))
	require.NoError(t, err)

	for _, tc := range []struct{ in, out string }{
		{"2024-01-10", "2024-01-15"},
		{"2024-01-08", "2024-01-11"},
		{"2024-01-14", "2024-01-20"},
		{"2024-01-11", "2024-01-12"},
		{"2024-01-05", "2024-01-25"},
	} {
		_, err := f.svc.Create(ctx, f.request(tc.in, tc.out))
		assert.ErrorIs(t, err, ErrDateConflict, "%s..%s", tc.in, tc.out)
		assert.Equal(t, KindDateConflict, KindOf(err))
	}
}

func TestCreateAllowsAdjacentStays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.request("2024-01-01", "2024-01-05"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.request("2024-01-05", "2024-01-10"))
	require.NoError(t, err)

	active, err := f.store.Bookings().FindActiveBookings(ctx, f.roomID, uuid.Nil)
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*Request)
		want   *Error
	}{
		{"same day", func(r *Request) { r.CheckOut = r.CheckIn }, ErrInvalidDateRange},
		{"reversed", func(r *Request) { r.CheckIn, r.CheckOut = r.CheckOut, r.CheckIn }, ErrInvalidDateRange},
		{"missing date", func(r *Request) { r.CheckIn = domain.Date{} }, ErrInvalidDateRange},
		{"past", func(r *Request) { r.CheckIn = domain.NewDate(2023, 12, 31) }, ErrPastCheckIn},
		{"no guests", func(r *Request) { r.Guests = 0 }, ErrCapacityExceeded},
		{"too many guests", func(r *Request) { r.Guests = 3 }, ErrCapacityExceeded},
		{"unknown room", func(r *Request) { r.RoomID = 999 }, ErrRoomNotFound},
		{"bad email", func(r *Request) { r.GuestEmail = "not-an-email" }, ErrInvalidGuest},
		{"no name", func(r *Request) { r.GuestName = "  " }, ErrInvalidGuest},
		{"no phone", func(r *Request) { r.GuestPhone = "" }, ErrInvalidGuest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.request("2024-01-10", "2024-01-12")
			tt.mutate(&req)

			_, err := f.svc.Create(ctx, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	all, err := f.store.Bookings().ListBookings(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all, "failed requests must not store anything")
}

func TestCreateCheckInTodayIsAllowed(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.request("2024-01-01", "2024-01-02"))
	require.NoError(t, err)
}

func TestCapacityReportedWhateverTheDates(t *testing.T) {
	f := newFixture(t)

	for _, dates := range [][2]string{
		{"2024-01-10", "2024-01-12"},
		{"2024-01-10", "2024-01-10"},
		{"2024-01-12", "2024-01-10"},
		{"2023-06-01", "2023-06-03"},
	} {
		req := f.request(dates[0], dates[1])
		req.Guests = 5

		_, err := f.svc.Create(context.Background(), req)
		assert.ErrorIs(t, err, ErrCapacityExceeded, "%v", dates)
	}
}

func TestValidationReportsEveryFailureInOrder(t *testing.T) {
	f := newFixture(t)

	req := f.request("2023-06-05", "2023-06-05")
	req.Guests = 9
	req.GuestEmail = "nope"

	_, err := f.svc.Create(context.Background(), req)
	require.Error(t, err)

	var kinds []Kind
	for _, e := range Errors(err) {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []Kind{KindInvalidDateRange, KindPastCheckIn, KindCapacityExceeded, KindInvalidGuest}, kinds)
	assert.Equal(t, KindInvalidDateRange, KindOf(err))
}

func TestCreateRejectsUnavailableRoom(t *testing.T) {
	f := newFixture(t)
	closed := &domain.Room{Name: "In ristrutturazione", Type: domain.RoomSingle, Capacity: 1, IsAvailable: false}
	require.NoError(t, f.store.Rooms().CreateRoom(context.Background(), closed))

	req := f.request("2024-01-10", "2024-01-12")
	req.RoomID = closed.ID
	req.Guests = 1

	_, err := f.svc.Create(context.Background(), req)
	assert.ErrorIs(t, err, ErrRoomUnavailable)
}

func TestConcurrentCreatesExactlyOneWins(t *testing.T) {
	for range 20 {
		f := newFixture(t)

		var (
			wg    sync.WaitGroup
			start = make(chan struct{})
			errs  = make([]error, 2)
		)
		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, errs[i] = f.svc.Create(context.Background(), f.request("2024-02-01", "2024-02-05"))
			}()
		}
		close(start)
		wg.Wait()

		var ok, conflict int
		for _, err := range errs {
			switch {
			case err == nil:
				ok++
			case errors.Is(err, ErrDateConflict):
				conflict++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		require.Equal(t, 1, ok)
		require.Equal(t, 1, conflict)
	}
}

func TestConcurrentCreatesOnDifferentRoomsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	other := &domain.Room{Name: "Singola", Type: domain.RoomSingle, Capacity: 2, PricePerNight: 9000, IsAvailable: true}
	require.NoError(t, f.store.Rooms().CreateRoom(context.Background(), other))

	// Hold the first room's lock for the whole test.
	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.store.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
			_ = tx.Bookings().LockRoom(ctx, f.roomID)
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	req := f.request("2024-02-01", "2024-02-05")
	req.RoomID = other.ID
	_, err := f.svc.Create(context.Background(), req)
	require.NoError(t, err)
}

func TestCreateTimesOutWithBusy(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.LockTimeout = 30 * time.Millisecond

	locked := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = f.store.RunTx(context.Background(), func(ctx context.Context, tx repository.Repos) error {
			_ = tx.Bookings().LockRoom(ctx, f.roomID)
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	_, err := f.svc.Create(context.Background(), f.request("2024-02-01", "2024-02-05"))
	close(release)

	assert.ErrorIs(t, err, ErrBusy)

	all, err := f.store.Bookings().ListBookings(context.Background(), domain.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCancelFreesInterval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	b, err := f.svc.Create(ctx, f.request("2024-03-01", "2024-03-04"))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.request("2024-03-01", "2024-03-04"))
	require.ErrorIs(t, err, ErrDateConflict)

	cancelled, err := f.svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)
	assert.Equal(t, b.TotalPrice, cancelled.TotalPrice)
	assert.Equal(t, b.Reference, cancelled.Reference)

	_, err = f.svc.Create(ctx, f.request("2024-03-01", "2024-03-04"))
	require.NoError(t, err)
}

func TestChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, f.request("2024-03-01", "2024-03-04"))
	require.NoError(t, err)

	confirmed, err := f.svc.ChangeStatus(ctx, first.ID, domain.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, confirmed.Status)

	same, err := f.svc.ChangeStatus(ctx, first.ID, domain.BookingConfirmed)
	require.NoError(t, err)
	assert.Equal(t, confirmed.UpdatedAt, same.UpdatedAt)

	_, err = f.svc.Cancel(ctx, first.ID)
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.request("2024-03-02", "2024-03-05"))
	require.NoError(t, err)

	_, err = f.svc.ChangeStatus(ctx, first.ID, domain.BookingPending)
	assert.ErrorIs(t, err, ErrDateConflict, "re-activation must not overlap the newer booking")

	_, err = f.svc.ChangeStatus(ctx, first.ID, domain.BookingStatus("archived"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = f.svc.ChangeStatus(ctx, uuid.New(), domain.BookingConfirmed)
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestNotifierFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(t)
	f.notifier.fails = true

	b, err := f.svc.Create(context.Background(), f.request("2024-04-01", "2024-04-02"))
	require.NoError(t, err)

	f.svc.Wait()
	assert.Equal(t, 1, f.notifier.count())

	stored, err := f.svc.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, stored.Status)
}

func TestGetUnknownReference(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), "SF00000000")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestGetNormalisesReference(t *testing.T) {
	f := newFixture(t)
	b, err := f.svc.Create(context.Background(), f.request("2024-04-01", "2024-04-02"))
	require.NoError(t, err)

	got, err := f.svc.Get(context.Background(), "  "+strings.ToLower(b.Reference)+" ")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
}

func TestQuoteAndAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in, out := domain.NewDate(2024, 5, 1), domain.NewDate(2024, 5, 8)

	q, err := f.svc.Quote(ctx, QuoteRequest{RoomID: f.roomID, CheckIn: in, CheckOut: out, Guests: 2})
	require.NoError(t, err)
	assert.Equal(t, 7, q.Nights)
	assert.Equal(t, "843.50", q.TotalPrice.String())
	assert.True(t, q.Available)

	_, err = f.svc.Create(ctx, f.request("2024-05-03", "2024-05-05"))
	require.NoError(t, err)

	q, err = f.svc.Quote(ctx, QuoteRequest{RoomID: f.roomID, CheckIn: in, CheckOut: out, Guests: 2})
	require.NoError(t, err)
	assert.False(t, q.Available)

	report, err := f.svc.Availability(ctx, f.roomID, in, out)
	require.NoError(t, err)
	assert.False(t, report.Available)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, domain.NewDate(2024, 5, 3), report.Conflicts[0].CheckIn)

	report, err = f.svc.Availability(ctx, f.roomID, domain.NewDate(2024, 5, 5), domain.NewDate(2024, 5, 6))
	require.NoError(t, err)
	assert.True(t, report.Available)
	assert.Empty(t, report.Conflicts)

	_, err = f.svc.Quote(ctx, QuoteRequest{RoomID: f.roomID, CheckIn: in, CheckOut: out, Guests: 4})
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	_, err = f.svc.Availability(ctx, 404, in, out)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.svc.Create(ctx, f.request("2024-06-01", "2024-06-02"))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.request("2024-06-05", "2024-06-06"))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.List(ctx, domain.BookingFilter{Status: domain.BookingCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, a.ID, cancelled[0].ID)

	_, err = f.svc.List(ctx, domain.BookingFilter{Status: "gone"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestBuildCandidateIsPure(t *testing.T) {
	room := domain.Room{ID: 7, Capacity: 2, PricePerNight: 9999}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	b := BuildCandidate(Request{
		RoomID:    7,
		GuestName: "  Anna  ",
		CheckIn:   domain.NewDate(2024, 2, 27),
		CheckOut:  domain.NewDate(2024, 3, 2),
		Guests:    1,
	}, room, "SFABCDEFGH", now)

	assert.Equal(t, 4, b.Nights(), "leap day counts")
	assert.Equal(t, domain.Money(39996), b.TotalPrice)
	assert.Equal(t, "Anna", b.GuestName)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, now, b.CreatedAt)
	assert.Equal(t, "SFABCDEFGH", b.Reference)
}

func TestCreateVeryLongStayTotalsEveryNight(t *testing.T) {
	f := newFixture(t)

	b, err := f.svc.Create(context.Background(), f.request("2024-01-10", "2400-01-10"))
	require.NoError(t, err)

	assert.Equal(t, 137331, b.Nights())
	assert.Equal(t, domain.Money(12050*137331), b.TotalPrice)
	assert.Equal(t, "16548385.50", b.TotalPrice.String())
}

// repricedStore serves every room at price, as if the catalog had been edited.
type repricedStore struct {
	*memory.Store
	price domain.Money
}

func (s repricedStore) Rooms() repository.RoomRepository {
	return repricedRooms{RoomRepository: s.Store.Rooms(), price: s.price}
}

type repricedRooms struct {
	repository.RoomRepository
	price domain.Money
}

func (r repricedRooms) GetRoom(ctx context.Context, id int64) (*domain.Room, error) {
	room, err := r.RoomRepository.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	room.PricePerNight = r.price
	return room, nil
}

func TestPriceSnapshotSurvivesRoomPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old, err := f.svc.Create(ctx, f.request("2024-07-01", "2024-07-04"))
	require.NoError(t, err)

	repriced := New(repricedStore{Store: f.store, price: mustMoney(t, "200.00")}, nil, nil, nil, nil, nil, f.svc.cfg)

	fresh, err := repriced.Create(ctx, f.request("2024-07-10", "2024-07-12"))
	require.NoError(t, err)
	assert.Equal(t, domain.Money(20000), fresh.PricePerNight)
	assert.Equal(t, domain.Money(40000), fresh.TotalPrice)

	got, err := repriced.Get(ctx, old.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(12050), got.PricePerNight)
	assert.Equal(t, domain.Money(36150), got.TotalPrice)

	all, err := repriced.List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, b := range all {
		if b.ID == old.ID {
			assert.Equal(t, domain.Money(12050), b.PricePerNight)
			assert.Equal(t, domain.Money(36150), b.TotalPrice)
		}
	}
}

// collidingStore makes the first conflicts inserts fail with a duplicate
// reference, as if another writer had taken it after the existence check.
type collidingStore struct {
	*memory.Store

	mu        sync.Mutex
	conflicts int
	rejected  []string
}

func (s *collidingStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	return s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		return fn(ctx, collidingRepos{Repos: tx, s: s})
	})
}

type collidingRepos struct {
	repository.Repos
	s *collidingStore
}

func (r collidingRepos) Bookings() repository.BookingRepository {
	return collidingBookings{BookingRepository: r.Repos.Bookings(), s: r.s}
}

type collidingBookings struct {
	repository.BookingRepository
	s *collidingStore
}

func (b collidingBookings) InsertBooking(ctx context.Context, booking *domain.Booking) error {
	b.s.mu.Lock()
	if b.s.conflicts > 0 {
		b.s.conflicts--
		b.s.rejected = append(b.s.rejected, booking.Reference)
		b.s.mu.Unlock()
		return repository.ErrConflict
	}
	b.s.mu.Unlock()

	return b.BookingRepository.InsertBooking(ctx, booking)
}

func TestCreateRedrawsReferenceOnInsertConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("second reference is stored", func(t *testing.T) {
		store := &collidingStore{Store: f.store, conflicts: 1}
		svc := New(store, nil, nil, nil, nil, nil, f.svc.cfg)

		b, err := svc.Create(ctx, f.request("2024-08-01", "2024-08-03"))
		require.NoError(t, err)

		require.Len(t, store.rejected, 1)
		assert.NotEqual(t, store.rejected[0], b.Reference)
		assert.Regexp(t, `^SF[A-Z0-9]{8}$`, b.Reference)

		stored, err := svc.Get(ctx, b.Reference)
		require.NoError(t, err)
		assert.Equal(t, b.ID, stored.ID)

		_, err = svc.Get(ctx, store.rejected[0])
		assert.ErrorIs(t, err, ErrBookingNotFound)
	})

	t.Run("second conflict fails the booking", func(t *testing.T) {
		store := &collidingStore{Store: f.store, conflicts: 2}
		svc := New(store, nil, nil, nil, nil, nil, f.svc.cfg)

		_, err := svc.Create(ctx, f.request("2024-09-01", "2024-09-03"))
		assert.ErrorIs(t, err, ErrPersistenceFailure)
		assert.Len(t, store.rejected, 2)

		active, err := f.store.Bookings().FindActiveBookings(ctx, f.roomID, uuid.Nil)
		require.NoError(t, err)
		for _, b := range active {
			assert.NotEqual(t, domain.NewDate(2024, 9, 1), b.CheckIn)
		}
	})
}
