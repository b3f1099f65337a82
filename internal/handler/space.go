package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/repository"
)

// SpaceHandler exposes CRUD for parking spaces.  Counter maintenance
// and the per-branch unique-number rule live in the repository, which
// runs each multi-step write in a single transaction.
type SpaceHandler struct {
	Spaces   *repository.SpaceRepo
	Branches *repository.BranchRepo
}

func NewSpaceHandler(s *repository.SpaceRepo, b *repository.BranchRepo) *SpaceHandler {
	if s == nil || b == nil {
		panic("nil repository passed to NewSpaceHandler")
	}
	return &SpaceHandler{Spaces: s, Branches: b}
}

type spaceBody struct {
	ID              uint64 `json:"id"`
	BranchID        uint64 `json:"branch_id"`
	Number          uint32 `json:"number"`
	Location        string `json:"location"`
	HourlyRateCents uint32 `json:"hourly_rate_cents"`
}

// List handles GET /v1/spaces and returns every space with its branch.
func (h *SpaceHandler) List(c echo.Context) error {
	items, err := h.Spaces.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetByID handles GET /v1/spaces/:id.
func (h *SpaceHandler) GetByID(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	s, err := h.Spaces.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, s)
}

// ListByBranch handles GET /v1/branches/:id/spaces.
func (h *SpaceHandler) ListByBranch(c echo.Context) error {
	branchID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if _, err := h.Branches.GetByID(c.Request().Context(), branchID); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items, err := h.Spaces.ListByBranch(c.Request().Context(), branchID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Create handles POST /v1/spaces.  The branch must exist and the
// number must be free within it; the branch counter is incremented in
// the same transaction as the insert.
func (h *SpaceHandler) Create(c echo.Context) error {
	var body spaceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.BranchID == 0 || body.Number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id and number are required"})
	}
	s := model.Space{
		BranchID:        body.BranchID,
		Number:          body.Number,
		Location:        body.Location,
		HourlyRateCents: body.HourlyRateCents,
	}
	if err := h.Spaces.Create(c.Request().Context(), &s); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		case repository.ErrDuplicateNumber:
			return c.JSON(http.StatusConflict, echo.Map{"error": "space number already exists in branch"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create space"})
		}
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/spaces/"+strconv.FormatUint(s.ID, 10))
	return c.JSON(http.StatusCreated, s)
}

// Update handles PUT /v1/spaces/:id.  Changing branch_id moves the
// space and both branch counters inside one transaction.  Status is
// not editable here; it is owned by the reservation lifecycle.
func (h *SpaceHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body spaceBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ID != 0 && body.ID != id {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id mismatch"})
	}
	if body.BranchID == 0 || body.Number == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "branch_id and number are required"})
	}
	s := model.Space{
		ID:              id,
		BranchID:        body.BranchID,
		Number:          body.Number,
		Location:        body.Location,
		HourlyRateCents: body.HourlyRateCents,
	}
	if err := h.Spaces.Update(c.Request().Context(), &s); err != nil {
		switch err {
		case sql.ErrNoRows:
			// Either the space or the target branch does not exist.
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space or branch not found"})
		case repository.ErrDuplicateNumber:
			return c.JSON(http.StatusConflict, echo.Map{"error": "space number already exists in branch"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, s)
}

// Delete handles DELETE /v1/spaces/:id.  Deletion is refused while any
// reservation references the space; the branch counter is decremented
// in the same transaction as the delete.
func (h *SpaceHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Spaces.Delete(c.Request().Context(), id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "space not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "space still has reservations"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
