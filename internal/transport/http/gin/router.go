package httpgin

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/santafilomena/staycore/internal/domain"
	redisx "github.com/santafilomena/staycore/internal/redis"
	redisrepo "github.com/santafilomena/staycore/internal/repository/redis"
	"github.com/santafilomena/staycore/internal/service"
	"github.com/santafilomena/staycore/internal/service/booking"
	"github.com/santafilomena/staycore/internal/service/catalog"
)

type Options struct {
	// AdminToken is the bearer token required on /admin; empty disables the check.
	AdminToken string
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	logger *slog.Logger,
	opts Options,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS())
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public API
	r.GET("/rooms", handleListRooms(svcs))
	r.GET("/rooms/:id", handleGetRoom(svcs))
	r.GET("/rooms/:id/occupancy", handleRoomOccupancy(svcs))
	r.GET("/rooms/:id/availability", handleRoomAvailability(svcs))
	r.GET("/rooms/:id/quote", handleQuote(svcs))

	r.POST("/bookings", handleCreateBooking(svcs, idem))
	r.GET("/bookings/:reference", handleGetBooking(svcs))

	// Admin API
	admin := r.Group("/admin", AdminAuth(opts.AdminToken))
	{
		admin.GET("/bookings", handleListBookings(svcs))
		admin.PATCH("/bookings/:id/status", handleChangeStatus(svcs))
		admin.POST("/bookings/:id/cancel", handleCancelBooking(svcs))
	}

	return r
}

// --- Handlers with Swagger annotations ---

// @Summary  List rooms
// @Param    room_type  query  string  false  "singola, doppia, matrimoniale, junior_suite, panoramica, casale"
// @Param    capacity   query  int     false  "minimum capacity"
// @Param    min_price  query  string  false  "minimum nightly price"
// @Param    max_price  query  string  false  "maximum nightly price"
// @Param    featured   query  bool    false  "featured rooms only"
// @Param    sort       query  string  false  "price_asc, price_desc, capacity, name"
// @Param    limit      query  int     false  "page size"
// @Success  200  {array}   domain.Room
// @Failure  400  {object}  ErrorResponse
// @Router   /rooms [get]
func handleListRooms(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter, ok := parseRoomFilter(c)
		if !ok {
			return
		}
		rooms, err := svcs.Catalog.List(c.Request.Context(), filter)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, rooms, "public, max-age=60", true)
	}
}

// @Summary  Get room
// @Param    id  path  int  true  "Room ID"
// @Success  200  {object}  domain.Room
// @Failure  404  {object}  ErrorResponse
// @Router   /rooms/{id} [get]
func handleGetRoom(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		room, err := svcs.Catalog.Get(c.Request.Context(), roomID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, room, "public, max-age=60", true)
	}
}

// @Summary  Upcoming occupied stays of a room
// @Param    id  path  int  true  "Room ID"
// @Success  200  {array}   domain.Interval
// @Failure  404  {object}  ErrorResponse
// @Router   /rooms/{id}/occupancy [get]
func handleRoomOccupancy(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		stays, err := svcs.Catalog.Occupancy(c.Request.Context(), roomID)
		if err != nil {
			respondErr(c, err)
			return
		}
		writeJSONWithCache(c, http.StatusOK, stays, "public, max-age=15", true)
	}
}

// @Summary  Check a room for a stay
// @Param    id         path   int     true  "Room ID"
// @Param    check_in   query  string  true  "YYYY-MM-DD"
// @Param    check_out  query  string  true  "YYYY-MM-DD"
// @Success  200  {object}  booking.AvailabilityReport
// @Failure  404  {object}  ErrorResponse
// @Failure  422  {object}  ErrorResponse
// @Router   /rooms/{id}/availability [get]
func handleRoomAvailability(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		checkIn, checkOut, ok := parseStayQuery(c)
		if !ok {
			return
		}
		report, err := svcs.Booking.Availability(c.Request.Context(), roomID, checkIn, checkOut)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, report)
	}
}

// @Summary  Price a stay
// @Param    id         path   int     true   "Room ID"
// @Param    check_in   query  string  true   "YYYY-MM-DD"
// @Param    check_out  query  string  true   "YYYY-MM-DD"
// @Param    guests     query  int     false  "number of guests (default 1)"
// @Success  200  {object}  booking.Quote
// @Failure  404  {object}  ErrorResponse
// @Failure  422  {object}  ErrorResponse
// @Router   /rooms/{id}/quote [get]
func handleQuote(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID, ok := parseInt64Param(c, "id")
		if !ok {
			return
		}
		checkIn, checkOut, ok := parseStayQuery(c)
		if !ok {
			return
		}
		guests, ok := parseIntQuery(c, "guests", 1)
		if !ok {
			return
		}
		q, err := svcs.Booking.Quote(c.Request.Context(), booking.QuoteRequest{
			RoomID:   roomID,
			CheckIn:  checkIn,
			CheckOut: checkOut,
			Guests:   guests,
		})
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, q)
	}
}

// @Summary  Create booking (idempotent)
// @Param    req body  CreateBookingRequest true "payload"
// @Header   201 {string} Idempotency-Key "echo"
// @Success  201 {object} CreateBookingResponse
// @Failure  400 {object} ErrorResponse
// @Failure  404 {object} ErrorResponse "room not found"
// @Failure  409 {object} ErrorResponse "dates taken / idem in progress"
// @Failure  422 {object} ErrorResponse "validation failed"
// @Failure  429 {object} ErrorResponse "rate limited"
// @Failure  503 {object} ErrorResponse "room busy, retry"
// @Router   /bookings [post]
func handleCreateBooking(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateBookingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}

		idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
		var idemStorageKey string
		if idem != nil && idemKey != "" {
			idemStorageKey = redisx.KeyIdemBooking(idemKey)

			if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
				replay(c, idemKey, payload)
				return
			}

			locked, err := idem.AcquireLock(c.Request.Context(), idemStorageKey, 60*time.Second)
			if err != nil {
				respondErr(c, err)
				return
			}
			if !locked {
				if payload, ok, _ := idem.GetResult(c.Request.Context(), idemStorageKey); ok {
					replay(c, idemKey, payload)
					return
				}
				c.Header("Retry-After", "1")
				c.JSON(http.StatusConflict, errorResponse("IdempotencyInProgress", "a request with this Idempotency-Key is in progress"))
				return
			}
		}

		b, err := svcs.Booking.Create(c.Request.Context(), booking.Request{
			RoomID:          req.RoomID,
			GuestName:       req.GuestName,
			GuestEmail:      req.GuestEmail,
			GuestPhone:      req.GuestPhone,
			CheckIn:         req.CheckIn,
			CheckOut:        req.CheckOut,
			Guests:          req.Guests,
			SpecialRequests: req.SpecialRequests,
			ClientKey:       "ip:" + c.ClientIP(),
		})
		if err != nil {
			if idemStorageKey != "" {
				_ = idem.Release(c.Request.Context(), idemStorageKey)
			}
			respondErr(c, err)
			return
		}

		resp := CreateBookingResponse{
			Reference:  b.Reference,
			Status:     string(b.Status),
			Nights:     b.Nights(),
			TotalPrice: b.TotalPrice,
		}

		if idemStorageKey != "" {
			payload, _ := json.Marshal(resp)
			_ = idem.SaveResult(c.Request.Context(), idemStorageKey, string(payload))
			c.Header("Idempotency-Key", idemKey)
		}

		c.Header("Location", "/bookings/"+b.Reference)
		c.JSON(http.StatusCreated, resp)
	}
}

// @Summary  Get booking by reference
// @Param    reference  path  string  true  "Booking reference"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /bookings/{reference} [get]
func handleGetBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		b, err := svcs.Booking.Get(c.Request.Context(), c.Param("reference"))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  List bookings
// @Param    status         query  string  false  "pending, confirmed, cancelled, completed"
// @Param    room_id        query  int     false  "Room ID"
// @Param    check_in_from  query  string  false  "YYYY-MM-DD, inclusive"
// @Param    check_in_to    query  string  false  "YYYY-MM-DD, exclusive"
// @Param    q              query  string  false  "reference, guest name, email or phone"
// @Param    limit          query  int     false  "page size"
// @Param    offset         query  int     false  "offset"
// @Success  200 {array}  domain.Booking
// @Failure  400 {object} ErrorResponse
// @Router   /admin/bookings [get]
func handleListBookings(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := domain.BookingFilter{
			Status: domain.BookingStatus(c.Query("status")),
			Search: c.Query("q"),
		}

		var ok bool
		if filter.RoomID, ok = parseInt64Query(c, "room_id"); !ok {
			return
		}
		if filter.CheckInGTE, ok = parseDateQuery(c, "check_in_from"); !ok {
			return
		}
		if filter.CheckInLT, ok = parseDateQuery(c, "check_in_to"); !ok {
			return
		}
		if filter.Limit, ok = parseIntQuery(c, "limit", 0); !ok {
			return
		}
		if filter.Offset, ok = parseIntQuery(c, "offset", 0); !ok {
			return
		}

		out, err := svcs.Booking.List(c.Request.Context(), filter)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// @Summary  Change booking status
// @Param    id   path  string               true  "Booking ID (uuid)"
// @Param    req  body  ChangeStatusRequest  true  "payload"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Failure  409 {object} ErrorResponse
// @Router   /admin/bookings/{id}/status [patch]
func handleChangeStatus(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		var req ChangeStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		b, err := svcs.Booking.ChangeStatus(c.Request.Context(), id, domain.BookingStatus(req.Status))
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// @Summary  Cancel booking
// @Param    id  path  string  true  "Booking ID (uuid)"
// @Success  200 {object} domain.Booking
// @Failure  404 {object} ErrorResponse
// @Router   /admin/bookings/{id}/cancel [post]
func handleCancelBooking(svcs *service.Services) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseUUIDParam(c, "id")
		if !ok {
			return
		}
		b, err := svcs.Booking.Cancel(c.Request.Context(), id)
		if err != nil {
			respondErr(c, err)
			return
		}
		c.JSON(http.StatusOK, b)
	}
}

// --- Helpers ---

func replay(c *gin.Context, idemKey, payload string) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", []byte(payload))
}

func parseRoomFilter(c *gin.Context) (domain.RoomFilter, bool) {
	filter := domain.RoomFilter{
		Type:         domain.RoomType(c.Query("room_type")),
		Sort:         domain.RoomSort(c.Query("sort")),
		FeaturedOnly: c.Query("featured") == "true",
	}
	if filter.Type != "" && !filter.Type.Valid() {
		badRequest(c, "invalid room_type")
		return filter, false
	}

	var ok bool
	if filter.MinCapacity, ok = parseIntQuery(c, "capacity", 0); !ok {
		return filter, false
	}
	if filter.Limit, ok = parseIntQuery(c, "limit", 0); !ok {
		return filter, false
	}
	if filter.MinPrice, ok = parseMoneyQuery(c, "min_price"); !ok {
		return filter, false
	}
	if filter.MaxPrice, ok = parseMoneyQuery(c, "max_price"); !ok {
		return filter, false
	}

	return filter, true
}

// parseStayQuery reads check_in and check_out. Missing dates come back zero
// so the booking service reports them with its own error kind.
func parseStayQuery(c *gin.Context) (domain.Date, domain.Date, bool) {
	checkIn, ok := parseDateQuery(c, "check_in")
	if !ok {
		return domain.Date{}, domain.Date{}, false
	}
	checkOut, ok := parseDateQuery(c, "check_out")
	if !ok {
		return domain.Date{}, domain.Date{}, false
	}
	return checkIn, checkOut, true
}

func parseDateQuery(c *gin.Context, name string) (domain.Date, bool) {
	s := c.Query(name)
	if s == "" {
		return domain.Date{}, true
	}
	d, err := domain.ParseDate(s)
	if err != nil {
		badRequest(c, "invalid "+name+" (YYYY-MM-DD)")
		return domain.Date{}, false
	}
	return d, true
}

func parseMoneyQuery(c *gin.Context, name string) (*domain.Money, bool) {
	s := c.Query(name)
	if s == "" {
		return nil, true
	}
	m, err := domain.ParseMoney(s)
	if err != nil || m < 0 {
		badRequest(c, "invalid "+name)
		return nil, false
	}
	return &m, true
}

func parseIntQuery(c *gin.Context, name string, def int) (int, bool) {
	s := c.Query(name)
	if s == "" {
		return def, true
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseInt64Query(c *gin.Context, name string) (int64, bool) {
	s := c.Query(name)
	if s == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	s := c.Param(name)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	v, err := uuid.Parse(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return uuid.Nil, false
	}
	return v, true
}

func errorResponse(kind, msg string) ErrorResponse {
	return ErrorResponse{Error: ErrorBody{Kind: kind, Message: msg}}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse("BadRequest", msg))
}

func statusFor(kind booking.Kind) int {
	switch kind {
	case booking.KindInvalidDateRange,
		booking.KindPastCheckIn,
		booking.KindCapacityExceeded,
		booking.KindRoomUnavailable,
		booking.KindInvalidGuest:
		return http.StatusUnprocessableEntity
	case booking.KindInvalidStatus:
		return http.StatusBadRequest
	case booking.KindDateConflict:
		return http.StatusConflict
	case booking.KindRoomNotFound, booking.KindBookingNotFound:
		return http.StatusNotFound
	case booking.KindBusy:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var limited booking.RateLimitedError
	if errors.As(err, &limited) {
		secs := int((limited.RetryAfter + time.Second - 1) / time.Second)
		c.Header("Retry-After", strconv.Itoa(max(secs, 1)))
		c.JSON(http.StatusTooManyRequests, errorResponse("RateLimited", "too many booking requests, retry later"))
		return
	}

	if errors.Is(err, catalog.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, errorResponse(string(booking.KindRoomNotFound), "room not found"))
		return
	}

	errs := booking.Errors(err)
	if len(errs) == 0 {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, errorResponse(string(booking.KindPersistenceFailure), "internal error"))
		return
	}

	first := errs[0]
	status := statusFor(first.Kind)
	body := ErrorBody{Kind: string(first.Kind), Message: first.Message}

	switch {
	case status == http.StatusServiceUnavailable:
		_ = c.Error(err)
		c.Header("Retry-After", "1")
	case status >= http.StatusInternalServerError:
		_ = c.Error(err)
		body.Message = "internal error"
	}

	if len(errs) > 1 {
		for _, e := range errs {
			body.Details = append(body.Details, ErrorDetail{Kind: string(e.Kind), Message: e.Message})
		}
	}

	c.JSON(status, ErrorResponse{Error: body})
}
