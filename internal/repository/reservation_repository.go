package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/schedule"
)

// ReservationRepo provides persistence for reservations.  Rows are
// inserted and deleted, never updated: the lifecycle handlers open a
// transaction, run the availability checks, and call the Tx-suffixed
// methods here together with SpaceRepo.UpdateStatusTx so the insert
// and the status flip commit atomically.  Dates are stored in a DATE
// column and start times in a TIME column; both are read back through
// the schedule package so every overlap decision reduces to the same
// canonical interval test.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const dateFormat = "2006-01-02"

func scanReservation(row interface{ Scan(...any) error }, res *model.Reservation) error {
	var start string
	if err := row.Scan(&res.ID, &res.UserID, &res.SpaceID, &res.Date, &start,
		&res.Hours, &res.CreatedAt); err != nil {
		return err
	}
	t, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return err
	}
	res.StartMinutes = int(t)
	return nil
}

// CreateTx inserts a reservation within an existing transaction and
// populates the generated ID.  The caller must already hold the space
// row lock and have run the overlap check.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO reservations (user_id, space_id, res_date, start_time, hours) VALUES (?, ?, ?, ?, ?)`,
		res.UserID, res.SpaceID, res.Date.Format(dateFormat),
		schedule.TimeOfDay(res.StartMinutes).String()+":00", res.Hours)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	return scanReservation(tx.QueryRowContext(ctx,
		`SELECT id, user_id, space_id, res_date, start_time, hours, created_at
		 FROM reservations WHERE id = ?`, res.ID), res)
}

// GetTx loads one reservation within a transaction.  Returns
// sql.ErrNoRows when absent.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Reservation, error) {
	var res model.Reservation
	err := scanReservation(tx.QueryRowContext(ctx,
		`SELECT id, user_id, space_id, res_date, start_time, hours, created_at
		 FROM reservations WHERE id = ? FOR UPDATE`, id), &res)
	return res, err
}

// DeleteTx removes a reservation row within a transaction.
func (r *ReservationRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	return err
}

// ListForSpaceDateTx returns all reservations for one space on one
// date, inside a transaction.  The lifecycle handler feeds the result
// through the canonical overlap test before inserting.
func (r *ReservationRepo) ListForSpaceDateTx(ctx context.Context, tx *sql.Tx, spaceID uint64, date time.Time) ([]model.Reservation, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT id, user_id, space_id, res_date, start_time, hours, created_at
		 FROM reservations WHERE space_id = ? AND res_date = ?`,
		spaceID, date.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}

// ListForBranchDateTx returns all reservations on one date for every
// space of one branch, inside a transaction.  Used by the
// free-for-window query, which groups the rows by space and filters
// with the overlap test in memory.
func (r *ReservationRepo) ListForBranchDateTx(ctx context.Context, tx *sql.Tx, branchID uint64, date time.Time) ([]model.Reservation, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.space_id, r.res_date, r.start_time, r.hours, r.created_at
		 FROM reservations r
		 JOIN parking_spaces s ON s.id = r.space_id
		 WHERE s.branch_id = ? AND r.res_date = ?`,
		branchID, date.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Reservation, 0)
	for rows.Next() {
		var res model.Reservation
		if err := scanReservation(rows, &res); err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}

// OccupiedDetail is a reservation joined with its space and that
// space's branch, as returned by the occupied-spaces queries.
type OccupiedDetail struct {
	ReservationID uint64 `json:"reservation_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	Hours         int    `json:"hours"`
	SpaceID       uint64 `json:"space_id"`
	SpaceNumber   uint32 `json:"space_number"`
	Location      string `json:"location"`
	RateCents     uint32 `json:"hourly_rate_cents"`
	BranchID      uint64 `json:"branch_id"`
	BranchName    string `json:"branch_name"`
	BranchAddress string `json:"branch_address"`
}

func scanOccupied(rows *sql.Rows) (OccupiedDetail, error) {
	var d OccupiedDetail
	var date time.Time
	var start string
	if err := rows.Scan(&d.ReservationID, &date, &start, &d.Hours,
		&d.SpaceID, &d.SpaceNumber, &d.Location, &d.RateCents,
		&d.BranchID, &d.BranchName, &d.BranchAddress); err != nil {
		return d, err
	}
	t, err := schedule.ParseTimeOfDay(start)
	if err != nil {
		return d, err
	}
	d.Date = date.UTC().Format(dateFormat)
	d.StartTime = t.String()
	return d, nil
}

const occupiedSelect = `SELECT r.id, r.res_date, r.start_time, r.hours,
		        s.id, s.number, s.location, s.hourly_rate_cents,
		        b.id, b.name, b.address
		 FROM reservations r
		 JOIN parking_spaces s ON s.id = r.space_id
		 JOIN branches b ON b.id = s.branch_id`

// ListOnDate returns every reservation on the given date joined with
// space and branch details, across all branches.
func (r *ReservationRepo) ListOnDate(ctx context.Context, date time.Time) ([]OccupiedDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		occupiedSelect+` WHERE r.res_date = ? ORDER BY b.id, s.number, r.start_time`,
		date.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]OccupiedDetail, 0)
	for rows.Next() {
		d, err := scanOccupied(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// ListInRangeForBranch returns the reservations of one branch whose
// date falls in the inclusive [from, to] range.
func (r *ReservationRepo) ListInRangeForBranch(ctx context.Context, branchID uint64, from, to time.Time) ([]OccupiedDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		occupiedSelect+` WHERE s.branch_id = ? AND r.res_date >= ? AND r.res_date <= ?
		 ORDER BY r.res_date, s.number, r.start_time`,
		branchID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]OccupiedDetail, 0)
	for rows.Next() {
		d, err := scanOccupied(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// UserReservationRow is one of a user's reservations joined with space
// and branch info.  The handler classifies rows as active and derives
// end time and total cost through the schedule package.
type UserReservationRow struct {
	Reservation model.Reservation
	SpaceNumber uint32
	Location    string
	BranchName  string
	RateCents   uint32
}

// ListByUser returns all reservations of one user with joined space
// and branch details, newest date first.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]UserReservationRow, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT r.id, r.user_id, r.space_id, r.res_date, r.start_time, r.hours, r.created_at,
		        s.number, s.location, s.hourly_rate_cents, b.name
		 FROM reservations r
		 JOIN parking_spaces s ON s.id = r.space_id
		 JOIN branches b ON b.id = s.branch_id
		 WHERE r.user_id = ?
		 ORDER BY r.res_date DESC, r.start_time DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]UserReservationRow, 0)
	for rows.Next() {
		var row UserReservationRow
		var start string
		if err := rows.Scan(&row.Reservation.ID, &row.Reservation.UserID,
			&row.Reservation.SpaceID, &row.Reservation.Date, &start,
			&row.Reservation.Hours, &row.Reservation.CreatedAt,
			&row.SpaceNumber, &row.Location, &row.RateCents, &row.BranchName); err != nil {
			return nil, err
		}
		t, err := schedule.ParseTimeOfDay(start)
		if err != nil {
			return nil, err
		}
		row.Reservation.StartMinutes = int(t)
		items = append(items, row)
	}
	return items, rows.Err()
}
