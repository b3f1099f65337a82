package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/parking-space-reservation/internal/model"
)

// BranchRepo provides CRUD operations for branches.  The space_count
// column is a derived counter maintained by the space registry; this
// repository only adjusts it through AdjustSpaceCountTx so that every
// change happens inside the same transaction as the space write that
// caused it.
type BranchRepo struct {
	db *sql.DB
}

// NewBranchRepo returns a new BranchRepo bound to the given database.
func NewBranchRepo(db *sql.DB) *BranchRepo { return &BranchRepo{db: db} }

// DB exposes the underlying handle so handlers can open transactions.
func (r *BranchRepo) DB() *sql.DB { return r.db }

const branchColumns = `id, name, address, phone, administrator, space_count, created_at, updated_at`

func scanBranch(row interface{ Scan(...any) error }, b *model.Branch) error {
	return row.Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.Administrator,
		&b.SpaceCount, &b.CreatedAt, &b.UpdatedAt)
}

// Create inserts a new branch and populates the generated ID.  The
// space counter always starts at zero regardless of input.
func (r *BranchRepo) Create(ctx context.Context, b *model.Branch) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO branches (name, address, phone, administrator, space_count) VALUES (?, ?, ?, ?, 0)`,
		b.Name, b.Address, b.Phone, b.Administrator)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = ?`, b.ID).
		Scan(&b.ID, &b.Name, &b.Address, &b.Phone, &b.Administrator,
			&b.SpaceCount, &b.CreatedAt, &b.UpdatedAt)
}

// GetByID fetches one branch.  Returns sql.ErrNoRows when absent.
func (r *BranchRepo) GetByID(ctx context.Context, id uint64) (model.Branch, error) {
	var b model.Branch
	err := scanBranch(r.db.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = ?`, id), &b)
	return b, err
}

// GetTx is GetByID within an existing transaction.
func (r *BranchRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Branch, error) {
	var b model.Branch
	err := scanBranch(tx.QueryRowContext(ctx,
		`SELECT `+branchColumns+` FROM branches WHERE id = ?`, id), &b)
	return b, err
}

// List returns all branches ordered by id.
func (r *BranchRepo) List(ctx context.Context) ([]model.Branch, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+branchColumns+` FROM branches ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Branch, 0)
	for rows.Next() {
		var b model.Branch
		if err := scanBranch(rows, &b); err != nil {
			return nil, err
		}
		items = append(items, b)
	}
	return items, rows.Err()
}

// Update rewrites the editable fields of a branch.  The space counter
// is deliberately excluded: it is owned by the space registry.  Returns
// sql.ErrNoRows when the branch does not exist.
func (r *BranchRepo) Update(ctx context.Context, b *model.Branch) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE branches SET name = ?, address = ?, phone = ?, administrator = ? WHERE id = ?`,
		b.Name, b.Address, b.Phone, b.Administrator, b.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL also reports 0 when the row exists but nothing changed;
		// re-check existence before deciding.
		var one int
		if err := r.db.QueryRowContext(ctx,
			`SELECT 1 FROM branches WHERE id = ?`, b.ID).Scan(&one); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a branch.  It refuses with ErrConflict while any
// space still references the branch, and returns sql.ErrNoRows when
// the branch does not exist.  The dependency check and the delete run
// inside one transaction so a concurrent space insert cannot slip in
// between them.
func (r *BranchRepo) Delete(ctx context.Context, id uint64) error {
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

	var one int
	if err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM branches WHERE id = ? FOR UPDATE`, id).Scan(&one); err != nil {
		return err // sql.ErrNoRows when the branch is unknown
	}
	var hasSpaces int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM parking_spaces WHERE branch_id = ? LIMIT 1`, id).Scan(&hasSpaces)
	if err == nil {
		return ErrConflict
	}
	if err != sql.ErrNoRows {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM branches WHERE id = ?`, id); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// AdjustSpaceCountTx shifts a branch's derived space counter by delta
// within an existing transaction.  Callers pass +1 on space create, -1
// on space delete, and a pair of calls when moving a space between
// branches.
func (r *BranchRepo) AdjustSpaceCountTx(ctx context.Context, tx *sql.Tx, id uint64, delta int) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE branches SET space_count = space_count + ? WHERE id = ?`, delta, id)
	return err
}
