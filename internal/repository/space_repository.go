package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/parking-space-reservation/internal/model"
)

// SpaceRepo provides CRUD operations for parking spaces plus the
// registry rules that tie spaces to their branch: per-branch unique
// numbers and the derived space counter on the branch row.  All
// multi-step writes (insert + counter, delete + counter, transfer)
// run in a single transaction.
type SpaceRepo struct {
	db       *sql.DB
	branches *BranchRepo
}

// NewSpaceRepo returns a new SpaceRepo.  The branch repository is used
// to adjust the derived space counters inside the same transaction.
func NewSpaceRepo(db *sql.DB, branches *BranchRepo) *SpaceRepo {
	return &SpaceRepo{db: db, branches: branches}
}

// DB exposes the underlying handle so handlers can open transactions.
func (r *SpaceRepo) DB() *sql.DB { return r.db }

const spaceColumns = `id, branch_id, number, location, hourly_rate_cents, status, created_at, updated_at`

func scanSpace(row interface{ Scan(...any) error }, s *model.Space) error {
	return row.Scan(&s.ID, &s.BranchID, &s.Number, &s.Location,
		&s.HourlyRateCents, &s.Status, &s.CreatedAt, &s.UpdatedAt)
}

// SpaceWithBranch pairs a space with the branch it belongs to for
// listing endpoints.
type SpaceWithBranch struct {
	Space  model.Space  `json:"space"`
	Branch model.Branch `json:"branch"`
}

// Create inserts a new space under its branch.  It fails with
// sql.ErrNoRows when the branch is unknown and ErrDuplicateNumber when
// the number is already taken within the branch.  On success the
// branch's space counter is incremented in the same transaction and
// the generated ID is populated.
func (r *SpaceRepo) Create(ctx context.Context, s *model.Space) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Lock the branch row: serializes against concurrent creates on the
	// same branch so the duplicate-number check and the counter update
	// cannot interleave.
	var one int
	if err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM branches WHERE id = ? FOR UPDATE`, s.BranchID).Scan(&one); err != nil {
		return err
	}
	var taken int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM parking_spaces WHERE branch_id = ? AND number = ? LIMIT 1`,
		s.BranchID, s.Number).Scan(&taken)
	if err == nil {
		return ErrDuplicateNumber
	}
	if err != sql.ErrNoRows {
		return err
	}
	if s.Status == "" {
		s.Status = model.SpaceAvailable
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO parking_spaces (branch_id, number, location, hourly_rate_cents, status) VALUES (?, ?, ?, ?, ?)`,
		s.BranchID, s.Number, s.Location, s.HourlyRateCents, s.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	if err := r.branches.AdjustSpaceCountTx(ctx, tx, s.BranchID, +1); err != nil {
		return err
	}
	if err := scanSpace(tx.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE id = ?`, s.ID), s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// GetByID fetches one space.  Returns sql.ErrNoRows when absent.
func (r *SpaceRepo) GetByID(ctx context.Context, id uint64) (model.Space, error) {
	var s model.Space
	err := scanSpace(r.db.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE id = ?`, id), &s)
	return s, err
}

// GetForUpdateTx loads a space inside a transaction with a row lock.
// The reservation lifecycle uses the lock to serialize concurrent
// bookings of the same space: the overlap check and the insert that
// follows cannot interleave with another request holding the lock.
func (r *SpaceRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Space, error) {
	var s model.Space
	err := scanSpace(tx.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE id = ? FOR UPDATE`, id), &s)
	return s, err
}

// List returns every space joined with its branch, ordered by branch
// then number.
func (r *SpaceRepo) List(ctx context.Context) ([]SpaceWithBranch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.branch_id, s.number, s.location, s.hourly_rate_cents, s.status, s.created_at, s.updated_at,
		        b.id, b.name, b.address, b.phone, b.administrator, b.space_count, b.created_at, b.updated_at
		 FROM parking_spaces s
		 JOIN branches b ON b.id = s.branch_id
		 ORDER BY s.branch_id, s.number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]SpaceWithBranch, 0)
	for rows.Next() {
		var it SpaceWithBranch
		if err := rows.Scan(
			&it.Space.ID, &it.Space.BranchID, &it.Space.Number, &it.Space.Location,
			&it.Space.HourlyRateCents, &it.Space.Status, &it.Space.CreatedAt, &it.Space.UpdatedAt,
			&it.Branch.ID, &it.Branch.Name, &it.Branch.Address, &it.Branch.Phone,
			&it.Branch.Administrator, &it.Branch.SpaceCount, &it.Branch.CreatedAt, &it.Branch.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListByBranch returns the spaces of one branch ordered by number.
func (r *SpaceRepo) ListByBranch(ctx context.Context, branchID uint64) ([]model.Space, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE branch_id = ? ORDER BY number`, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Space, 0)
	for rows.Next() {
		var s model.Space
		if err := scanSpace(rows, &s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// ListFreeOnDate returns spaces whose status is AVAILABLE and which
// have no reservation row on the given date, joined with branch info.
// The status column is trusted as the short-circuit signal here; the
// per-window queries do a full interval scan instead.
func (r *SpaceRepo) ListFreeOnDate(ctx context.Context, date time.Time) ([]SpaceWithBranch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.branch_id, s.number, s.location, s.hourly_rate_cents, s.status, s.created_at, s.updated_at,
		        b.id, b.name, b.address, b.phone, b.administrator, b.space_count, b.created_at, b.updated_at
		 FROM parking_spaces s
		 JOIN branches b ON b.id = s.branch_id
		 WHERE s.status = ?
		   AND NOT EXISTS (SELECT 1 FROM reservations r WHERE r.space_id = s.id AND r.res_date = ?)
		 ORDER BY s.branch_id, s.number`,
		model.SpaceAvailable, date.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]SpaceWithBranch, 0)
	for rows.Next() {
		var it SpaceWithBranch
		if err := rows.Scan(
			&it.Space.ID, &it.Space.BranchID, &it.Space.Number, &it.Space.Location,
			&it.Space.HourlyRateCents, &it.Space.Status, &it.Space.CreatedAt, &it.Space.UpdatedAt,
			&it.Branch.ID, &it.Branch.Name, &it.Branch.Address, &it.Branch.Phone,
			&it.Branch.Administrator, &it.Branch.SpaceCount, &it.Branch.CreatedAt, &it.Branch.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListAvailableByBranchTx returns the AVAILABLE spaces of a branch
// within a transaction, ordered by number.  Used by the free-for-window
// query after the interval scan has excluded conflicting spaces.
func (r *SpaceRepo) ListAvailableByBranchTx(ctx context.Context, tx *sql.Tx, branchID uint64) ([]model.Space, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE branch_id = ? AND status = ? ORDER BY number`,
		branchID, model.SpaceAvailable)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Space, 0)
	for rows.Next() {
		var s model.Space
		if err := scanSpace(rows, &s); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// Update rewrites a space.  When the branch reference changes, the new
// branch must exist (sql.ErrNoRows otherwise) and both branch counters
// are moved inside the same transaction.  The status column is not
// editable here; it belongs to the reservation lifecycle.
func (r *SpaceRepo) Update(ctx context.Context, s *model.Space) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var cur model.Space
	if err := scanSpace(tx.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE id = ? FOR UPDATE`, s.ID), &cur); err != nil {
		return err
	}
	if cur.BranchID != s.BranchID {
		var one int
		if err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM branches WHERE id = ? FOR UPDATE`, s.BranchID).Scan(&one); err != nil {
			return err // new branch unknown -> sql.ErrNoRows
		}
		var taken int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM parking_spaces WHERE branch_id = ? AND number = ? AND id <> ? LIMIT 1`,
			s.BranchID, s.Number, s.ID).Scan(&taken)
		if err == nil {
			return ErrDuplicateNumber
		}
		if err != sql.ErrNoRows {
			return err
		}
		if err := r.branches.AdjustSpaceCountTx(ctx, tx, cur.BranchID, -1); err != nil {
			return err
		}
		if err := r.branches.AdjustSpaceCountTx(ctx, tx, s.BranchID, +1); err != nil {
			return err
		}
	} else if cur.Number != s.Number {
		var taken int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM parking_spaces WHERE branch_id = ? AND number = ? AND id <> ? LIMIT 1`,
			s.BranchID, s.Number, s.ID).Scan(&taken)
		if err == nil {
			return ErrDuplicateNumber
		}
		if err != sql.ErrNoRows {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE parking_spaces SET branch_id = ?, number = ?, location = ?, hourly_rate_cents = ? WHERE id = ?`,
		s.BranchID, s.Number, s.Location, s.HourlyRateCents, s.ID); err != nil {
		return err
	}
	if err := scanSpace(tx.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE id = ?`, s.ID), s); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// Delete removes a space.  It refuses with ErrConflict while any
// reservation still references the space and decrements the branch's
// space counter in the same transaction.  Returns sql.ErrNoRows when
// the space does not exist.
func (r *SpaceRepo) Delete(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var cur model.Space
	if err := scanSpace(tx.QueryRowContext(ctx,
		`SELECT `+spaceColumns+` FROM parking_spaces WHERE id = ? FOR UPDATE`, id), &cur); err != nil {
		return err
	}
	var hasRes int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM reservations WHERE space_id = ? LIMIT 1`, id).Scan(&hasRes)
	if err == nil {
		return ErrConflict
	}
	if err != sql.ErrNoRows {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM parking_spaces WHERE id = ?`, id); err != nil {
		return err
	}
	if err := r.branches.AdjustSpaceCountTx(ctx, tx, cur.BranchID, -1); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// UpdateStatusTx flips a space's cached status inside an existing
// transaction.  Only the reservation lifecycle calls this.
func (r *SpaceRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE parking_spaces SET status = ? WHERE id = ?`, status, id)
	return err
}
