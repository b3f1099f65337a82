package handler

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-space-reservation/internal/repository"
)

func newRegistryHandlers(t *testing.T) (*BranchHandler, *SpaceHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	branches := repository.NewBranchRepo(db)
	spaces := repository.NewSpaceRepo(db, branches)
	return NewBranchHandler(branches), NewSpaceHandler(spaces, branches), mock
}

func deleteContext(e *echo.Echo, path, id string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(http.MethodDelete, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(id)
	return c, rec
}

func TestBranchDeleteConflict(t *testing.T) {
	bh, _, mock := newRegistryHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM branches WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM parking_spaces WHERE branch_id").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	c, rec := deleteContext(echo.New(), "/v1/branches/2", "2")
	require.NoError(t, bh.Delete(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "parking spaces")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBranchDeleteUnknown(t *testing.T) {
	bh, _, mock := newRegistryHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM branches WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(9)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	c, rec := deleteContext(echo.New(), "/v1/branches/9", "9")
	require.NoError(t, bh.Delete(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceCreateDuplicateNumber(t *testing.T) {
	_, sh, mock := newRegistryHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM branches WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 1 FROM parking_spaces WHERE branch_id = \\? AND number").
		WithArgs(uint64(2), uint32(14)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/spaces",
		`{"branch_id":2,"number":14,"location":"Level 1","hourly_rate_cents":250}`)
	require.NoError(t, sh.Create(e.NewContext(req, rec)))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceCreateUnknownBranch(t *testing.T) {
	_, sh, mock := newRegistryHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1 FROM branches WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/spaces",
		`{"branch_id":99,"number":1}`)
	require.NoError(t, sh.Create(e.NewContext(req, rec)))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSpaceCreateValidation(t *testing.T) {
	_, sh, _ := newRegistryHandlers(t)

	e := echo.New()
	req, rec := jsonRequest(http.MethodPost, "/v1/spaces", `{"number":14}`)
	require.NoError(t, sh.Create(e.NewContext(req, rec)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSpaceDeleteConflict(t *testing.T) {
	_, sh, mock := newRegistryHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM parking_spaces WHERE id = \\? FOR UPDATE").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "branch_id", "number", "location", "hourly_rate_cents", "status", "created_at", "updated_at",
		}).AddRow(7, 2, 14, "", 0, "RESERVED", testNow, testNow))
	mock.ExpectQuery("SELECT 1 FROM reservations WHERE space_id").
		WithArgs(uint64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectRollback()

	c, rec := deleteContext(echo.New(), "/v1/spaces/7", "7")
	require.NoError(t, sh.Delete(c))
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "reservations")
	require.NoError(t, mock.ExpectationsWereMet())
}
