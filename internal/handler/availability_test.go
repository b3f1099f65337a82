package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/repository"
)

func newAvailabilityHandler(t *testing.T) (*AvailabilityHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	branches := repository.NewBranchRepo(db)
	spaces := repository.NewSpaceRepo(db, branches)
	reservations := repository.NewReservationRepo(db)
	return NewAvailabilityHandler(branches, spaces, reservations), mock
}

func expectBranchLookup(mock sqlmock.Sqlmock, id uint64, name string, spaceCount uint32) {
	mock.ExpectQuery("SELECT (.+) FROM branches WHERE id").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "address", "phone", "administrator", "space_count", "created_at", "updated_at",
		}).AddRow(id, name, "1 Main St", "", "", spaceCount, testNow, testNow))
}

func TestFreeForWindowExcludesOverlapping(t *testing.T) {
	h, mock := newAvailabilityHandler(t)
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	expectBranchLookup(mock, 2, "Central", 2)
	mock.ExpectBegin()
	// Space 8 is booked 10:00-12:00, which collides with the requested
	// 11:00 window; space 7 has no bookings.
	mock.ExpectQuery("FROM reservations r").
		WithArgs(uint64(2), "2026-09-10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
		}).AddRow(1, 4, 8, date, "10:00:00", 2, testNow))
	mock.ExpectQuery("FROM parking_spaces WHERE branch_id = \\? AND status").
		WithArgs(uint64(2), model.SpaceAvailable).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "branch_id", "number", "location", "hourly_rate_cents", "status", "created_at", "updated_at",
		}).
			AddRow(7, 2, 14, "Level 1", 250, model.SpaceAvailable, testNow, testNow).
			AddRow(8, 2, 15, "Level 1", 250, model.SpaceAvailable, testNow, testNow))
	mock.ExpectCommit()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/branches/2/spaces/available?date=2026-09-10&start=11:00&hours=1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, h.FreeForWindow(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `"number":14`)
	require.NotContains(t, body, `"number":15`)
	require.Contains(t, body, `"total_cents":250`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFreeForWindowNoneLeft(t *testing.T) {
	h, mock := newAvailabilityHandler(t)
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	expectBranchLookup(mock, 2, "Central", 1)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations r").
		WithArgs(uint64(2), "2026-09-10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
		}).AddRow(1, 4, 7, date, "09:00:00", 4, testNow))
	mock.ExpectQuery("FROM parking_spaces WHERE branch_id = \\? AND status").
		WithArgs(uint64(2), model.SpaceAvailable).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "branch_id", "number", "location", "hourly_rate_cents", "status", "created_at", "updated_at",
		}).AddRow(7, 2, 14, "Level 1", 250, model.SpaceAvailable, testNow, testNow))
	mock.ExpectCommit()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/branches/2/spaces/available?date=2026-09-10&start=10:00&hours=2", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("2")

	require.NoError(t, h.FreeForWindow(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedInRangeValidatesBranch(t *testing.T) {
	h, mock := newAvailabilityHandler(t)

	// Branch exists but has no spaces registered.
	expectBranchLookup(mock, 3, "Airport", 0)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/branches/3/spaces/occupied?from=2026-09-01&to=2026-09-07", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.OccupiedInRange(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedInRangeRejectsInvertedRange(t *testing.T) {
	h, _ := newAvailabilityHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/branches/3/spaces/occupied?from=2026-09-07&to=2026-09-01", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("3")

	require.NoError(t, h.OccupiedInRange(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFreeOnDateEmptyListIsOK(t *testing.T) {
	h, mock := newAvailabilityHandler(t)

	mock.ExpectQuery("FROM parking_spaces s").
		WithArgs(model.SpaceAvailable, "2026-09-10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "branch_id", "number", "location", "hourly_rate_cents", "status", "created_at", "updated_at",
			"b_id", "b_name", "b_address", "b_phone", "b_administrator", "b_space_count", "b_created_at", "b_updated_at",
		}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/spaces/free?date=2026-09-10", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.FreeOnDate(e.NewContext(req, rec)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupiedOnDateEmptyIs404(t *testing.T) {
	h, mock := newAvailabilityHandler(t)

	mock.ExpectQuery("FROM reservations r").
		WithArgs("2026-09-10").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "res_date", "start_time", "hours",
			"s_id", "number", "location", "hourly_rate_cents",
			"b_id", "name", "address",
		}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/spaces/occupied?date=2026-09-10", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, h.OccupiedOnDate(e.NewContext(req, rec)))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
