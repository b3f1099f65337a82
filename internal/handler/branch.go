package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/repository"
)

// BranchHandler exposes CRUD for branches.  The derived space counter
// on each branch is read-only through this surface: it moves only when
// the space registry creates, deletes or transfers spaces.
type BranchHandler struct {
	Branches *repository.BranchRepo
}

func NewBranchHandler(b *repository.BranchRepo) *BranchHandler {
	if b == nil {
		panic("nil repository passed to NewBranchHandler")
	}
	return &BranchHandler{Branches: b}
}

type branchBody struct {
	ID            uint64 `json:"id"`
	Name          string `json:"name"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	Administrator string `json:"administrator"`
}

// List handles GET /v1/branches.
func (h *BranchHandler) List(c echo.Context) error {
	items, err := h.Branches.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// GetByID handles GET /v1/branches/:id.
func (h *BranchHandler) GetByID(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	b, err := h.Branches.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, b)
}

// Create handles POST /v1/branches.
func (h *BranchHandler) Create(c echo.Context) error {
	var body branchBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	b := model.Branch{
		Name:          name,
		Address:       strings.TrimSpace(body.Address),
		Phone:         strings.TrimSpace(body.Phone),
		Administrator: strings.TrimSpace(body.Administrator),
	}
	if err := h.Branches.Create(c.Request().Context(), &b); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create branch"})
	}
	c.Response().Header().Set(echo.HeaderLocation, "/v1/branches/"+strconv.FormatUint(b.ID, 10))
	return c.JSON(http.StatusCreated, b)
}

// Update handles PUT /v1/branches/:id.  A body id differing from the
// path id is a validation error.
func (h *BranchHandler) Update(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var body branchBody
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.ID != 0 && body.ID != id {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "id mismatch"})
	}
	name := strings.TrimSpace(body.Name)
	if name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	b := model.Branch{
		ID:            id,
		Name:          name,
		Address:       strings.TrimSpace(body.Address),
		Phone:         strings.TrimSpace(body.Phone),
		Administrator: strings.TrimSpace(body.Administrator),
	}
	if err := h.Branches.Update(c.Request().Context(), &b); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Branches.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/branches/:id.  Deletion is refused while
// any space still references the branch.
func (h *BranchHandler) Delete(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Branches.Delete(c.Request().Context(), id); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "branch not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "branch still has parking spaces"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
		}
	}
	return c.NoContent(http.StatusNoContent)
}
