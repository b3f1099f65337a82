package handler

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/queue"
	"github.com/iliyamo/parking-space-reservation/internal/repository"
	"github.com/iliyamo/parking-space-reservation/internal/schedule"
	publisher "github.com/iliyamo/parking-space-reservation/internal/service"
)

// ReservationHandler implements the reservation lifecycle: create with
// conflict detection, cancel with ownership and time checks, and the
// active-reservations listing.  Every write runs inside a single
// transaction: the space row is locked with FOR UPDATE before the
// overlap scan, so two concurrent requests for the same space cannot
// both pass the check and double-book the window.
type ReservationHandler struct {
	Users        *repository.UserRepo
	Branches     *repository.BranchRepo
	Spaces       *repository.SpaceRepo
	Reservations *repository.ReservationRepo

	// Now returns the current instant; tests may override it.  Defaults
	// to time.Now in UTC.
	Now func() time.Time
	// Publish sends the confirmation event after a successful create.
	// Nil disables publishing; failures are logged, never surfaced.
	Publish func(ctx context.Context, ev queue.ReservationConfirmedEvent) error
}

func NewReservationHandler(u *repository.UserRepo, b *repository.BranchRepo, s *repository.SpaceRepo, r *repository.ReservationRepo) *ReservationHandler {
	if u == nil || b == nil || s == nil || r == nil {
		panic("nil repository passed to NewReservationHandler")
	}
	return &ReservationHandler{
		Users:        u,
		Branches:     b,
		Spaces:       s,
		Reservations: r,
		Now:          func() time.Time { return time.Now().UTC() },
		Publish:      publisher.PublishReservationConfirmed,
	}
}

type createReservationReq struct {
	UserID    uint64 `json:"user_id"`
	SpaceID   uint64 `json:"space_id"`
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	Hours     int    `json:"hours"`
}

// Create handles POST /v1/reservations.
//
// Check order: unknown user or space -> 404; space status not
// AVAILABLE -> 409; any existing booking on (space, date) overlapping
// [start, start+hours) -> 409.  On success the reservation row is
// inserted and the space flipped to RESERVED in the same transaction.
func (h *ReservationHandler) Create(c echo.Context) error {
	var req createReservationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.UserID == 0 || req.SpaceID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and space_id are required"})
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	start, err := schedule.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Hours < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hours must be a positive integer"})
	}

	ctx := c.Request().Context()
	if _, err := h.Users.GetByID(ctx, req.UserID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	tx, err := h.Spaces.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Row lock on the space serializes concurrent creates for the same
	// space; the overlap scan below runs under that lock.
	space, err := h.Spaces.GetForUpdateTx(ctx, tx, req.SpaceID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if space.Status != model.SpaceAvailable {
		return c.JSON(http.StatusConflict, echo.Map{"error": "space is not available"})
	}
	existing, err := h.Reservations.ListForSpaceDateTx(ctx, tx, req.SpaceID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	candidate := schedule.Interval{Start: start, Hours: req.Hours}
	for _, res := range existing {
		if schedule.Overlaps(schedule.Interval{Start: schedule.TimeOfDay(res.StartMinutes), Hours: res.Hours}, candidate) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "space already reserved for that window"})
		}
	}
	reservation := model.Reservation{
		UserID:       req.UserID,
		SpaceID:      req.SpaceID,
		Date:         date,
		StartMinutes: int(start),
		Hours:        req.Hours,
	}
	if err := h.Reservations.CreateTx(ctx, tx, &reservation); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create reservation"})
	}
	if err := h.Spaces.UpdateStatusTx(ctx, tx, space.ID, model.SpaceReserved); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update space status"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true

	h.publishConfirmed(reservation, space)

	c.Response().Header().Set(echo.HeaderLocation, "/v1/reservations/"+strconv.FormatUint(reservation.ID, 10))
	return c.JSON(http.StatusCreated, echo.Map{
		"message":     "reservation created",
		"reservation": reservation,
	})
}

// publishConfirmed emits the confirmation event best-effort.  The
// branch name lookup and the publish itself must never fail the
// request, so both run detached from the request lifecycle.
func (h *ReservationHandler) publishConfirmed(res model.Reservation, space model.Space) {
	if h.Publish == nil {
		return
	}
	iv := schedule.Interval{Start: schedule.TimeOfDay(res.StartMinutes), Hours: res.Hours}
	ev := queue.ReservationConfirmedEvent{
		ReservationID: res.ID,
		UserID:        res.UserID,
		SpaceID:       space.ID,
		SpaceNumber:   space.Number,
		BranchID:      space.BranchID,
		Date:          res.Date.Format(dateFormat),
		StartTime:     schedule.TimeOfDay(res.StartMinutes).String(),
		EndTime:       schedule.EndTimestamp(res.Date, iv).Format("15:04"),
		Hours:         res.Hours,
		TotalCents:    space.HourlyRateCents * uint32(res.Hours),
		ConfirmedAt:   h.Now().Format(time.RFC3339),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if branch, err := h.Branches.GetByID(ctx, space.BranchID); err == nil {
			ev.BranchName = branch.Name
		}
		if err := h.Publish(ctx, ev); err != nil {
			log.Printf("reservation: publish confirmed event failed: %v", err)
		}
	}()
}

// Cancel handles DELETE /v1/reservations/:id?user_id=N.
//
// Check order: unknown reservation -> 404; requester is not the owner
// -> 401; reservation dated before today -> 409; same-day reservation
// whose start already passed -> 409.  On success the space is flipped
// back to AVAILABLE (when it still exists) and the row is deleted, in
// one transaction.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	requester, err := strconv.ParseUint(c.QueryParam("user_id"), 10, 64)
	if err != nil || requester == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id is required"})
	}

	ctx := c.Request().Context()
	tx, err := h.Reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := h.Reservations.GetTx(ctx, tx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "reservation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if res.UserID != requester {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "not allowed to cancel this reservation"})
	}
	switch schedule.CanCancel(res.Date, schedule.TimeOfDay(res.StartMinutes), h.Now()) {
	case schedule.ErrPastDate:
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel a past reservation"})
	case schedule.ErrStarted:
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot cancel, reservation already started"})
	}
	// Flip the space back; a missing space just affects zero rows.
	if err := h.Spaces.UpdateStatusTx(ctx, tx, res.SpaceID, model.SpaceAvailable); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update space status"})
	}
	if err := h.Reservations.DeleteTx(ctx, tx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete reservation"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}
	committed = true
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation cancelled"})
}

// activeReservationItem is the projection returned by ListActiveForUser.
type activeReservationItem struct {
	ID              uint64 `json:"id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	Hours           int    `json:"hours"`
	SpaceNumber     uint32 `json:"space_number"`
	Location        string `json:"location"`
	Branch          string `json:"branch"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
	TotalCents      uint32 `json:"total_cents"`
}

// ListActiveForUser handles GET /v1/users/:id/reservations/active.  A
// reservation is active while its computed end timestamp is strictly
// in the future.  404 is returned for an unknown user and when the
// user has no active reservations.
func (h *ReservationHandler) ListActiveForUser(c echo.Context) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.Users.GetByID(ctx, userID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	rows, err := h.Reservations.ListByUser(ctx, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	now := h.Now()
	items := make([]activeReservationItem, 0, len(rows))
	for _, row := range rows {
		iv := schedule.Interval{Start: schedule.TimeOfDay(row.Reservation.StartMinutes), Hours: row.Reservation.Hours}
		if !schedule.IsActive(row.Reservation.Date, iv, now) {
			continue
		}
		items = append(items, activeReservationItem{
			ID:              row.Reservation.ID,
			Date:            row.Reservation.Date.UTC().Format(dateFormat),
			StartTime:       iv.Start.String(),
			EndTime:         schedule.EndTimestamp(row.Reservation.Date, iv).Format("15:04"),
			Hours:           row.Reservation.Hours,
			SpaceNumber:     row.SpaceNumber,
			Location:        row.Location,
			Branch:          row.BranchName,
			HourlyRateCents: row.RateCents,
			TotalCents:      row.RateCents * uint32(row.Reservation.Hours),
		})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user has no active reservations"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
