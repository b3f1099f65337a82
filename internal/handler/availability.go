package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-space-reservation/internal/repository"
	"github.com/iliyamo/parking-space-reservation/internal/schedule"
)

// AvailabilityHandler answers the free/occupied queries across time,
// space and branch.  Per-day queries trust the cached space status as
// a short-circuit; the per-window query loads the day's reservations
// for the branch and applies the canonical overlap test in memory, so
// the authoritative conflict decision never lives in a SQL predicate.
type AvailabilityHandler struct {
	Branches     *repository.BranchRepo
	Spaces       *repository.SpaceRepo
	Reservations *repository.ReservationRepo
}

func NewAvailabilityHandler(b *repository.BranchRepo, s *repository.SpaceRepo, r *repository.ReservationRepo) *AvailabilityHandler {
	if b == nil || s == nil || r == nil {
		panic("nil repository passed to NewAvailabilityHandler")
	}
	return &AvailabilityHandler{Branches: b, Spaces: s, Reservations: r}
}

// FreeOnDate handles GET /v1/spaces/free?date=YYYY-MM-DD.  A space is
// listed when its status is AVAILABLE and it has no reservation row on
// that date; a space booked on a different date still appears.
func (h *AvailabilityHandler) FreeOnDate(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	items, err := h.Spaces.ListFreeOnDate(c.Request().Context(), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// OccupiedOnDate handles GET /v1/spaces/occupied?date=YYYY-MM-DD.  It
// joins each reservation on the date with its space and branch, and
// responds 404 when nothing is booked that day.
func (h *AvailabilityHandler) OccupiedOnDate(c echo.Context) error {
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	items, err := h.Reservations.ListOnDate(c.Request().Context(), date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no reserved spaces on " + date.Format(dateFormat)})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// OccupiedInRange handles GET /v1/branches/:id/spaces/occupied?from=&to=.
// The date range is inclusive on both ends.  404 is returned when the
// branch is unknown, has no spaces, or no reservations fall in range.
func (h *AvailabilityHandler) OccupiedInRange(c echo.Context) error {
	branchID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	from, err := parseDate(c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	to, err := parseDate(c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to must not be before from"})
	}
	ctx := c.Request().Context()
	branch, err := h.Branches.GetByID(ctx, branchID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if branch.SpaceCount == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "branch has no spaces registered"})
	}
	items, err := h.Reservations.ListInRangeForBranch(ctx, branchID, from, to)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no reservations for branch in range"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"branch":       branch.Name,
		"period":       from.Format(dateFormat) + " - " + to.Format(dateFormat),
		"reservations": items,
	})
}

// freeWindowItem is one bookable space for a requested window together
// with the total cost of occupying it for the whole window.
type freeWindowItem struct {
	ID              uint64 `json:"id"`
	Number          uint32 `json:"number"`
	Location        string `json:"location"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
	TotalCents      uint32 `json:"total_cents"`
}

// FreeForWindow handles
// GET /v1/branches/:id/spaces/available?date=&start=&hours=.
// It loads every reservation of the branch on the date, excludes the
// spaces whose bookings overlap the requested [start, start+hours)
// window, keeps only spaces with status AVAILABLE, and prices each
// remaining space for the full window.
func (h *AvailabilityHandler) FreeForWindow(c echo.Context) error {
	branchID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	date, err := parseDate(c.QueryParam("date"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	start, err := schedule.ParseTimeOfDay(c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	hours, err := strconv.Atoi(c.QueryParam("hours"))
	if err != nil || hours < 1 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "hours must be a positive integer"})
	}
	ctx := c.Request().Context()
	if _, err := h.Branches.GetByID(ctx, branchID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	// A read-only transaction keeps the reservation scan and the space
	// listing on one consistent snapshot.
	tx, err := h.Spaces.DB().BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to start transaction"})
	}
	defer func() { _ = tx.Rollback() }()

	booked, err := h.Reservations.ListForBranchDateTx(ctx, tx, branchID, date)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load reservations"})
	}
	candidate := schedule.Interval{Start: start, Hours: hours}
	occupied := make(map[uint64]bool)
	for _, res := range booked {
		if occupied[res.SpaceID] {
			continue
		}
		existing := schedule.Interval{Start: schedule.TimeOfDay(res.StartMinutes), Hours: res.Hours}
		if schedule.Overlaps(existing, candidate) {
			occupied[res.SpaceID] = true
		}
	}
	spaces, err := h.Spaces.ListAvailableByBranchTx(ctx, tx, branchID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load spaces"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to commit transaction"})
	}

	items := make([]freeWindowItem, 0, len(spaces))
	for _, s := range spaces {
		if occupied[s.ID] {
			continue
		}
		items = append(items, freeWindowItem{
			ID:              s.ID,
			Number:          s.Number,
			Location:        s.Location,
			HourlyRateCents: s.HourlyRateCents,
			TotalCents:      s.HourlyRateCents * uint32(hours),
		})
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no free spaces for the requested window"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
