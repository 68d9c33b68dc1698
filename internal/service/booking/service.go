package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/santafilomena/staycore/internal/domain"
	"github.com/santafilomena/staycore/internal/repository"
	redisrepo "github.com/santafilomena/staycore/internal/repository/redis"
	"github.com/santafilomena/staycore/internal/uow"
)

// Notifier is told about every booking after it has been committed.
type Notifier interface {
	NotifyBookingCreated(ctx context.Context, b domain.Booking, room domain.Room) error
}

type Config struct {
	// Location decides which calendar day "today" is.
	Location *time.Location
	// LockTimeout bounds the wait for another booking on the same room.
	LockTimeout time.Duration
	// NotifyTimeout bounds one notification attempt.
	NotifyTimeout time.Duration
	ReferenceTag  string
	// MaxReferenceAttempts caps reference generation retries.
	MaxReferenceAttempts int
	Clock                Clock
}

type Service struct {
	store    repository.Store
	cache    *redisrepo.Cache
	pubsub   *redisrepo.RoomsPubSub
	limiter  *redisrepo.SlidingWindowLimiter
	notifier Notifier
	logger   *slog.Logger
	uow      *uow.UoW
	refs     *ReferenceGenerator
	checker  Checker
	validate *validator.Validate
	cfg      Config

	inflight sync.WaitGroup
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisrepo.RoomsPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	notifier Notifier,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}

	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = 5 * time.Second
	}

	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = 10 * time.Second
	}

	if cfg.Clock == nil {
		cfg.Clock = SystemClock
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Service{
		store:    store,
		cache:    cache,
		pubsub:   pubsub,
		limiter:  limiter,
		notifier: notifier,
		logger:   logger,
		uow:      uow.NewUoW(store),
		refs:     NewReferenceGenerator(cfg.ReferenceTag, cfg.MaxReferenceAttempts),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		cfg:      cfg,
	}
}

// Request is a guest's booking request.
type Request struct {
	RoomID          int64
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	CheckIn         domain.Date
	CheckOut        domain.Date
	Guests          int
	SpecialRequests string
	// ClientKey identifies the caller for rate limiting; empty disables the limit.
	ClientKey string
}

type guestFields struct {
	Name            string `validate:"required,max=200"`
	Email           string `validate:"required,email,max=254"`
	Phone           string `validate:"required,max=30"`
	SpecialRequests string `validate:"max=2000"`
}

// RateLimitedError is returned when a caller created too many bookings recently.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %s", e.RetryAfter)
}

// Today is the current calendar date at the hotel.
func (s *Service) Today() domain.Date {
	return domain.DateOf(s.cfg.Clock.Now(), s.cfg.Location)
}

// Create validates a booking request and stores it as pending.
//
// Every validation failure is reported, in check order: dates, capacity,
// room availability, guest details. The conflict check and the insert run
// under the room lock, so two overlapping requests on the same room can never
// both succeed. The notifier runs after commit and never fails the booking.
//
// Parameters:
//   - ctx: request-scoped context.
//   - req: the guest's request.
//
// Returns:
//   - *domain.Booking: the stored booking, status pending.
//   - error: ValidationErrors or *Error carrying one of the booking kinds.
//   - error: RateLimitedError when the caller is over the limit.
func (s *Service) Create(ctx context.Context, req Request) (*domain.Booking, error) {
	const op = "service.booking.Create"

	if err := s.allow(ctx, req.ClientKey); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var verrs ValidationErrors
	verrs = append(verrs, validateStay(req.CheckIn, req.CheckOut, s.Today())...)

	room, err := s.lookupRoom(ctx, req.RoomID)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		verrs = append(verrs, Errors(err)...)
	} else {
		verrs = append(verrs, validateRoom(room, req.Guests)...)
	}

	verrs = append(verrs, s.validateGuest(req)...)

	if err := verrs.err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var created domain.Booking

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		repo := tx.Bookings()

		if err := s.lockRoom(ctx, repo, room.ID); err != nil {
			return err
		}

		conflict, err := s.checker.HasConflict(ctx, repo, room.ID, req.CheckIn, req.CheckOut, uuid.Nil)
		if err != nil {
			return err
		}
		if conflict {
			return errDateConflict()
		}

		ref, err := s.refs.Generate(ctx, repo.ReferenceExists)
		if err != nil {
			return err
		}

		b := BuildCandidate(req, *room, ref, s.cfg.Clock.Now())

		err = repo.InsertBooking(ctx, &b)
		if errors.Is(err, repository.ErrConflict) {
			// Another writer took the reference after our check; draw once more.
			if b.Reference, err = s.refs.Generate(ctx, repo.ReferenceExists); err != nil {
				return err
			}
			err = repo.InsertBooking(ctx, &b)
		}
		if err != nil {
			return err
		}

		created = b

		after(func(ctx context.Context) {
			s.roomChanged(ctx, b.RoomID)
			s.notifyCreated(ctx, b, *room)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translate(err))
	}

	s.logger.Info("booking created",
		slog.String("reference", created.Reference),
		slog.Int64("room_id", created.RoomID),
		slog.String("check_in", created.CheckIn.String()),
		slog.String("check_out", created.CheckOut.String()),
	)

	return &created, nil
}

// BuildCandidate assembles a pending booking from a validated request. The
// nightly price is copied from room and the total is computed once here; both
// stay fixed for the life of the booking.
func BuildCandidate(req Request, room domain.Room, reference string, now time.Time) domain.Booking {
	nights := req.CheckIn.DaysUntil(req.CheckOut)

	return domain.Booking{
		ID:              uuid.New(),
		Reference:       reference,
		RoomID:          room.ID,
		GuestName:       strings.TrimSpace(req.GuestName),
		GuestEmail:      strings.TrimSpace(req.GuestEmail),
		GuestPhone:      strings.TrimSpace(req.GuestPhone),
		CheckIn:         req.CheckIn,
		CheckOut:        req.CheckOut,
		Guests:          req.Guests,
		PricePerNight:   room.PricePerNight,
		TotalPrice:      room.PricePerNight.Times(nights),
		Status:          domain.BookingPending,
		SpecialRequests: strings.TrimSpace(req.SpecialRequests),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Get returns a booking by its reference.
func (s *Service) Get(ctx context.Context, reference string) (*domain.Booking, error) {
	const op = "service.booking.Get"

	reference = strings.ToUpper(strings.TrimSpace(reference))

	b, err := s.store.Bookings().GetBookingByReference(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateLookup(err))
	}

	return b, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "service.booking.GetByID"

	b, err := s.store.Bookings().GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translateLookup(err))
	}

	return b, nil
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// List returns bookings for the administrative view, newest first.
func (s *Service) List(ctx context.Context, filter domain.BookingFilter) ([]domain.Booking, error) {
	const op = "service.booking.List"

	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, newError(KindInvalidStatus, fmt.Sprintf("unknown status %q", filter.Status), nil))
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	out, err := s.store.Bookings().ListBookings(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translate(err))
	}

	return out, nil
}

// ChangeStatus moves a booking to status. It is the administrative path for
// confirming, cancelling and completing bookings. Re-activating a cancelled or
// completed booking re-checks its dates against the room's other bookings.
// Reference and prices never change.
//
// Parameters:
//   - ctx: request-scoped context.
//   - id: booking to update.
//   - status: target status.
//
// Returns:
//   - *domain.Booking: the booking after the change.
//   - error: ErrInvalidStatus, ErrBookingNotFound, ErrDateConflict or ErrBusy.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) (*domain.Booking, error) {
	const op = "service.booking.ChangeStatus"

	if !status.Valid() {
		return nil, fmt.Errorf("%s:%w", op, newError(KindInvalidStatus, fmt.Sprintf("unknown status %q", status), nil))
	}

	var updated domain.Booking

	err := s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		repo := tx.Bookings()

		b, err := repo.GetBooking(ctx, id)
		if err != nil {
			return translateLookup(err)
		}

		if err := s.lockRoom(ctx, repo, b.RoomID); err != nil {
			return err
		}

		// Re-read under the lock; the status may have moved while we waited.
		if b, err = repo.GetBooking(ctx, id); err != nil {
			return translateLookup(err)
		}

		if b.Status == status {
			updated = *b
			return nil
		}

		if !b.Status.IsBlocking() && status.IsBlocking() {
			conflict, err := s.checker.HasConflict(ctx, repo, b.RoomID, b.CheckIn, b.CheckOut, b.ID)
			if err != nil {
				return err
			}
			if conflict {
				return errDateConflict()
			}
		}

		now := s.cfg.Clock.Now()
		if err := repo.UpdateBookingStatus(ctx, id, status, now); err != nil {
			return err
		}

		from := b.Status
		b.Status = status
		b.UpdatedAt = now
		updated = *b

		after(func(ctx context.Context) {
			s.roomChanged(ctx, b.RoomID)
			s.logger.Info("booking status changed",
				slog.String("reference", b.Reference),
				slog.String("from", string(from)),
				slog.String("to", string(status)),
			)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translate(err))
	}

	return &updated, nil
}

// Cancel sets a booking to cancelled, freeing its dates.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return s.ChangeStatus(ctx, id, domain.BookingCancelled)
}

// QuoteRequest asks for the price of a stay without booking it.
type QuoteRequest struct {
	RoomID   int64
	CheckIn  domain.Date
	CheckOut domain.Date
	Guests   int
}

type Quote struct {
	RoomID        int64        `json:"room_id"`
	CheckIn       domain.Date  `json:"check_in"`
	CheckOut      domain.Date  `json:"check_out"`
	Nights        int          `json:"nights"`
	Guests        int          `json:"guests"`
	PricePerNight domain.Money `json:"price_per_night"`
	TotalPrice    domain.Money `json:"total_price"`
	// Available is false when another booking already holds some of the nights.
	Available bool `json:"available"`
}

// Quote prices a stay with the same checks and arithmetic as Create, without storing anything.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	const op = "service.booking.Quote"

	var verrs ValidationErrors
	verrs = append(verrs, validateStay(req.CheckIn, req.CheckOut, s.Today())...)

	room, err := s.lookupRoom(ctx, req.RoomID)
	if err != nil {
		if !errors.Is(err, ErrRoomNotFound) {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		verrs = append(verrs, Errors(err)...)
	} else {
		verrs = append(verrs, validateRoom(room, req.Guests)...)
	}

	if err := verrs.err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	conflict, err := s.checker.HasConflict(ctx, s.store.Bookings(), room.ID, req.CheckIn, req.CheckOut, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translate(err))
	}

	candidate := BuildCandidate(Request{
		RoomID:   room.ID,
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Guests:   req.Guests,
	}, *room, "", s.cfg.Clock.Now())

	return &Quote{
		RoomID:        room.ID,
		CheckIn:       candidate.CheckIn,
		CheckOut:      candidate.CheckOut,
		Nights:        candidate.Nights(),
		Guests:        candidate.Guests,
		PricePerNight: candidate.PricePerNight,
		TotalPrice:    candidate.TotalPrice,
		Available:     !conflict,
	}, nil
}

type AvailabilityReport struct {
	RoomID    int64             `json:"room_id"`
	CheckIn   domain.Date       `json:"check_in"`
	CheckOut  domain.Date       `json:"check_out"`
	Available bool              `json:"available"`
	Conflicts []domain.Interval `json:"conflicts"`
}

// Availability reports whether a room can be booked for a stay and, if not,
// which existing stays are in the way.
func (s *Service) Availability(ctx context.Context, roomID int64, checkIn, checkOut domain.Date) (*AvailabilityReport, error) {
	const op = "service.booking.Availability"

	if err := ValidationErrors(validateStay(checkIn, checkOut, s.Today())).err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	room, err := s.lookupRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	conflicts, err := s.checker.Conflicts(ctx, s.store.Bookings(), room.ID, checkIn, checkOut, uuid.Nil)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, translate(err))
	}

	report := &AvailabilityReport{
		RoomID:    room.ID,
		CheckIn:   checkIn,
		CheckOut:  checkOut,
		Available: room.IsAvailable && len(conflicts) == 0,
		Conflicts: make([]domain.Interval, 0, len(conflicts)),
	}
	for _, b := range conflicts {
		report.Conflicts = append(report.Conflicts, b.Interval())
	}

	return report, nil
}

// Wait blocks until notifications started by Create have finished.
func (s *Service) Wait() {
	s.inflight.Wait()
}

func validateStay(checkIn, checkOut domain.Date, today domain.Date) []*Error {
	if checkIn.IsZero() || checkOut.IsZero() {
		return []*Error{newError(KindInvalidDateRange, "check-in and check-out dates are required", nil)}
	}

	var out []*Error

	if !checkOut.After(checkIn) {
		out = append(out, newError(KindInvalidDateRange, "check-out date must be after check-in date", nil))
	}

	if checkIn.Before(today) {
		out = append(out, newError(KindPastCheckIn, "check-in date cannot be in the past", nil))
	}

	return out
}

func validateRoom(room *domain.Room, guests int) []*Error {
	var out []*Error

	switch {
	case guests < 1:
		out = append(out, newError(KindCapacityExceeded, "at least one guest is required", nil))
	case guests > room.Capacity:
		out = append(out, newError(KindCapacityExceeded,
			fmt.Sprintf("number of guests exceeds room capacity of %d", room.Capacity), nil))
	}

	if !room.IsAvailable {
		out = append(out, newError(KindRoomUnavailable, "this room is not accepting bookings", nil))
	}

	return out
}

func (s *Service) validateGuest(req Request) []*Error {
	err := s.validate.Struct(guestFields{
		Name:            strings.TrimSpace(req.GuestName),
		Email:           strings.TrimSpace(req.GuestEmail),
		Phone:           strings.TrimSpace(req.GuestPhone),
		SpecialRequests: req.SpecialRequests,
	})
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []*Error{newError(KindInvalidGuest, "invalid guest details", err)}
	}

	out := make([]*Error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, newError(KindInvalidGuest, guestMessage(fe), nil))
	}

	return out
}

func guestMessage(fe validator.FieldError) string {
	field := map[string]string{
		"Name":            "guest name",
		"Email":           "guest email",
		"Phone":           "guest phone",
		"SpecialRequests": "special requests",
	}[fe.Field()]

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " is not a valid email address"
	case "max":
		return field + " is too long"
	}

	return field + " is invalid"
}

func (s *Service) lookupRoom(ctx context.Context, roomID int64) (*domain.Room, error) {
	room, err := s.store.Rooms().GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindRoomNotFound, fmt.Sprintf("room %d does not exist", roomID), nil)
		}
		return nil, newError(KindPersistenceFailure, "could not load room", err)
	}

	return room, nil
}

func (s *Service) lockRoom(ctx context.Context, repo repository.BookingRepository, roomID int64) error {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	defer cancel()

	err := repo.LockRoom(lockCtx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindRoomNotFound, fmt.Sprintf("room %d does not exist", roomID), nil)
	}

	return err
}

func (s *Service) allow(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}

	d, err := s.limiter.Allow(ctx, key)
	if err != nil {
		s.logger.Warn("rate limiter unavailable", slog.Any("err", err))
		return nil
	}
	if !d.Allowed {
		return RateLimitedError{RetryAfter: d.RetryAfter}
	}

	return nil
}

func (s *Service) roomChanged(ctx context.Context, roomID int64) {
	if err := s.cache.InvalidateRoom(ctx, roomID); err != nil {
		s.logger.Warn("cache invalidation failed", slog.Int64("room_id", roomID), slog.Any("err", err))
	}

	if err := s.pubsub.PublishRoomChanged(ctx, roomID); err != nil {
		s.logger.Warn("room change publish failed", slog.Int64("room_id", roomID), slog.Any("err", err))
	}
}

// notifyCreated hands the booking to the notifier in the background. The
// request context is detached so the notification outlives the response.
func (s *Service) notifyCreated(ctx context.Context, b domain.Booking, room domain.Room) {
	if s.notifier == nil {
		return
	}

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.NotifyTimeout)
		defer cancel()

		if err := s.notifier.NotifyBookingCreated(ctx, b, room); err != nil {
			s.logger.Warn("booking notification failed",
				slog.String("reference", b.Reference),
				slog.Any("err", newError(KindNotifyError, "notifier failed", err)),
			)
		}
	}()
}

func errDateConflict() *Error {
	return newError(KindDateConflict, "this room is not available for the selected dates", nil)
}

// translateLookup maps a missing booking to BookingNotFound.
func translateLookup(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindBookingNotFound, "booking not found", nil)
	}
	return translate(err)
}

// translate turns repository failures into booking kinds. Errors that already
// carry a kind pass through.
func translate(err error) error {
	if err == nil || len(Errors(err)) > 0 {
		return err
	}

	switch {
	case errors.Is(err, repository.ErrOverlap):
		return errDateConflict()
	case errors.Is(err, repository.ErrLockTimeout):
		return newError(KindBusy, "the room is busy, please retry", err)
	case errors.Is(err, repository.ErrConflict):
		return newError(KindPersistenceFailure, "could not store booking", err)
	}

	return newError(KindPersistenceFailure, "storage failure", err)
}
