package handler

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/queue"
	"github.com/iliyamo/parking-space-reservation/internal/repository"
)

// testNow is the fixed instant handlers run at in these tests.
var testNow = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func newReservationHandler(t *testing.T) (*ReservationHandler, sqlmock.Sqlmock, chan queue.ReservationConfirmedEvent) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	branches := repository.NewBranchRepo(db)
	spaces := repository.NewSpaceRepo(db, branches)
	users := repository.NewUserRepo(db)
	reservations := repository.NewReservationRepo(db)

	published := make(chan queue.ReservationConfirmedEvent, 1)
	h := NewReservationHandler(users, branches, spaces, reservations)
	h.Now = func() time.Time { return testNow }
	h.Publish = func(_ context.Context, ev queue.ReservationConfirmedEvent) error {
		published <- ev
		return nil
	}
	return h, mock, published
}

func jsonRequest(method, target, body string) (*http.Request, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req, httptest.NewRecorder()
}

func expectUserLookup(mock sqlmock.Sqlmock, id uint64) {
	rows := sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "password_hash", "role", "created_at", "updated_at",
	}).AddRow(id, "Maya", "maya@example.com", "", "$2a$04$hash", "CUSTOMER", testNow, testNow)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").WithArgs(id).WillReturnRows(rows)
}

func expectSpaceLock(mock sqlmock.Sqlmock, s model.Space) {
	rows := sqlmock.NewRows([]string{
		"id", "branch_id", "number", "location", "hourly_rate_cents", "status", "created_at", "updated_at",
	}).AddRow(s.ID, s.BranchID, s.Number, s.Location, s.HourlyRateCents, s.Status, testNow, testNow)
	mock.ExpectQuery("SELECT (.+) FROM parking_spaces WHERE id = \\? FOR UPDATE").
		WithArgs(s.ID).WillReturnRows(rows)
}

func reservationsOn(date time.Time, startTimes []string, hours []int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
	})
	for i, st := range startTimes {
		rows.AddRow(uint64(100+i), uint64(9), uint64(7), date, st, hours[i], testNow)
	}
	return rows
}

func TestCreateReservationSuccess(t *testing.T) {
	h, mock, published := newReservationHandler(t)
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	expectUserLookup(mock, 4)
	mock.ExpectBegin()
	expectSpaceLock(mock, model.Space{ID: 7, BranchID: 2, Number: 14, Location: "Level 1", HourlyRateCents: 250, Status: model.SpaceAvailable})
	mock.ExpectQuery("FROM reservations WHERE space_id = \\? AND res_date").
		WithArgs(uint64(7), "2026-09-10").
		WillReturnRows(reservationsOn(date, nil, nil))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(4), uint64(7), "2026-09-10", "10:00:00", 2).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectQuery("FROM reservations WHERE id").
		WithArgs(uint64(12)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
		}).AddRow(12, 4, 7, date, "10:00:00", 2, testNow))
	mock.ExpectExec("UPDATE parking_spaces SET status").
		WithArgs(model.SpaceReserved, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	// Branch name lookup happens after commit, on the publish path.
	mock.ExpectQuery("SELECT (.+) FROM branches WHERE id").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "name", "address", "phone", "administrator", "space_count", "created_at", "updated_at",
		}).AddRow(2, "Central", "1 Main St", "", "", 3, testNow, testNow))

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/reservations",
		`{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"10:00","hours":2}`)
	require.NoError(t, h.Create(e.NewContext(req, rec)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "/v1/reservations/12", rec.Header().Get(echo.HeaderLocation))

	select {
	case ev := <-published:
		require.Equal(t, "Central", ev.BranchName)
		require.Equal(t, "10:00", ev.StartTime)
		require.Equal(t, "12:00", ev.EndTime)
		require.Equal(t, uint32(500), ev.TotalCents)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation event was not published")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationOverlapConflict(t *testing.T) {
	h, mock, _ := newReservationHandler(t)
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	expectUserLookup(mock, 4)
	mock.ExpectBegin()
	expectSpaceLock(mock, model.Space{ID: 7, BranchID: 2, Status: model.SpaceAvailable})
	// Existing booking 11:00 for 2h; the requested 12:00 window collides.
	mock.ExpectQuery("FROM reservations WHERE space_id = \\? AND res_date").
		WithArgs(uint64(7), "2026-09-10").
		WillReturnRows(reservationsOn(date, []string{"11:00:00"}, []int{2}))
	mock.ExpectRollback()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/reservations",
		`{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"12:00","hours":1}`)
	require.NoError(t, h.Create(e.NewContext(req, rec)))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationAdjacentAllowed(t *testing.T) {
	h, mock, published := newReservationHandler(t)
	date := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)

	expectUserLookup(mock, 4)
	mock.ExpectBegin()
	expectSpaceLock(mock, model.Space{ID: 7, BranchID: 2, HourlyRateCents: 100, Status: model.SpaceAvailable})
	// Existing booking 10:00-12:00; a new one starting exactly at 12:00
	// touches but does not overlap.
	mock.ExpectQuery("FROM reservations WHERE space_id = \\? AND res_date").
		WithArgs(uint64(7), "2026-09-10").
		WillReturnRows(reservationsOn(date, []string{"10:00:00"}, []int{2}))
	mock.ExpectExec("INSERT INTO reservations").
		WithArgs(uint64(4), uint64(7), "2026-09-10", "12:00:00", 1).
		WillReturnResult(sqlmock.NewResult(13, 1))
	mock.ExpectQuery("FROM reservations WHERE id").
		WithArgs(uint64(13)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
		}).AddRow(13, 4, 7, date, "12:00:00", 1, testNow))
	mock.ExpectExec("UPDATE parking_spaces SET status").
		WithArgs(model.SpaceReserved, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery("SELECT (.+) FROM branches WHERE id").
		WithArgs(uint64(2)).
		WillReturnError(sql.ErrNoRows) // event still goes out without the name

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/reservations",
		`{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"12:00","hours":1}`)
	require.NoError(t, h.Create(e.NewContext(req, rec)))

	require.Equal(t, http.StatusCreated, rec.Code)
	select {
	case ev := <-published:
		require.Empty(t, ev.BranchName)
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation event was not published")
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationSpaceNotAvailable(t *testing.T) {
	h, mock, _ := newReservationHandler(t)

	expectUserLookup(mock, 4)
	mock.ExpectBegin()
	expectSpaceLock(mock, model.Space{ID: 7, BranchID: 2, Status: model.SpaceReserved})
	mock.ExpectRollback()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/reservations",
		`{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"10:00","hours":1}`)
	require.NoError(t, h.Create(e.NewContext(req, rec)))

	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationUnknownUser(t *testing.T) {
	h, mock, _ := newReservationHandler(t)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(uint64(4)).
		WillReturnError(sql.ErrNoRows)

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/reservations",
		`{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"10:00","hours":1}`)
	require.NoError(t, h.Create(e.NewContext(req, rec)))

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateReservationValidation(t *testing.T) {
	h, _, _ := newReservationHandler(t)
	e := echo.New()

	for name, body := range map[string]string{
		"missing ids": `{"date":"2026-09-10","start_time":"10:00","hours":1}`,
		"bad date":    `{"user_id":4,"space_id":7,"date":"10.09.2026","start_time":"10:00","hours":1}`,
		"bad start":   `{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"25:00","hours":1}`,
		"zero hours":  `{"user_id":4,"space_id":7,"date":"2026-09-10","start_time":"10:00","hours":0}`,
	} {
		req, rec := jsonRequest(http.MethodPost, "/v1/reservations", body)
		require.NoError(t, h.Create(e.NewContext(req, rec)), name)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func cancelContext(e *echo.Echo, id, userID string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodDelete, "/v1/reservations/"+id+"?user_id="+userID, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func expectReservationLock(mock sqlmock.Sqlmock, res model.Reservation, startTime string) {
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
	}).AddRow(res.ID, res.UserID, res.SpaceID, res.Date, startTime, res.Hours, testNow)
	mock.ExpectQuery("FROM reservations WHERE id = \\? FOR UPDATE").
		WithArgs(res.ID).WillReturnRows(rows)
}

func TestCancelReservationSuccess(t *testing.T) {
	h, mock, _ := newReservationHandler(t)
	tomorrow := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectReservationLock(mock, model.Reservation{ID: 12, UserID: 4, SpaceID: 7, Date: tomorrow, Hours: 2}, "10:00:00")
	mock.ExpectExec("UPDATE parking_spaces SET status").
		WithArgs(model.SpaceAvailable, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM reservations WHERE id").
		WithArgs(uint64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	c, rec := cancelContext(echo.New(), "12", "4")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationNotOwner(t *testing.T) {
	h, mock, _ := newReservationHandler(t)
	tomorrow := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectReservationLock(mock, model.Reservation{ID: 12, UserID: 4, SpaceID: 7, Date: tomorrow, Hours: 2}, "10:00:00")
	mock.ExpectRollback()

	c, rec := cancelContext(echo.New(), "12", "5")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationPastDate(t *testing.T) {
	h, mock, _ := newReservationHandler(t)
	yesterday := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectReservationLock(mock, model.Reservation{ID: 12, UserID: 4, SpaceID: 7, Date: yesterday, Hours: 2}, "10:00:00")
	mock.ExpectRollback()

	c, rec := cancelContext(echo.New(), "12", "4")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationAlreadyStarted(t *testing.T) {
	h, mock, _ := newReservationHandler(t)
	// Same day as testNow (12:00); the reservation started at 09:00.
	today := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	expectReservationLock(mock, model.Reservation{ID: 12, UserID: 4, SpaceID: 7, Date: today, Hours: 2}, "09:00:00")
	mock.ExpectRollback()

	c, rec := cancelContext(echo.New(), "12", "4")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelReservationUnknown(t *testing.T) {
	h, mock, _ := newReservationHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM reservations WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := cancelContext(echo.New(), "99", "4")
	require.NoError(t, h.Cancel(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveForUserFiltersEnded(t *testing.T) {
	h, mock, _ := newReservationHandler(t)

	expectUserLookup(mock, 4)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
		"number", "location", "hourly_rate_cents", "name",
	}).
		// Ends tomorrow: active.
		AddRow(1, 4, 7, time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC), "10:00:00", 2, testNow, 14, "Level 1", 250, "Central").
		// Ended this morning (08:00-10:00, now is 12:00): filtered out.
		AddRow(2, 4, 8, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), "08:00:00", 2, testNow, 15, "Level 1", 250, "Central")
	mock.ExpectQuery("WHERE r.user_id").WithArgs(uint64(4)).WillReturnRows(rows)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/4/reservations/active", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("4")

	require.NoError(t, h.ListActiveForUser(c))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `"id":1`)
	require.NotContains(t, body, `"id":2`)
	require.Contains(t, body, `"total_cents":500`)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActiveForUserNoneActive(t *testing.T) {
	h, mock, _ := newReservationHandler(t)

	expectUserLookup(mock, 4)
	mock.ExpectQuery("WHERE r.user_id").WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "space_id", "res_date", "start_time", "hours", "created_at",
			"number", "location", "hourly_rate_cents", "name",
		}))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/users/4/reservations/active", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("4")

	require.NoError(t, h.ListActiveForUser(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}
