package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/parking-space-reservation/internal/model"
	"github.com/iliyamo/parking-space-reservation/internal/utils"
)

// UserRepo provides CRUD operations for users.  Emails are normalized
// to lower case on every write and lookup; passwords are stored as
// bcrypt hashes via the utils helpers.
type UserRepo struct{ db *sql.DB }

// NewUserRepo returns a new UserRepo bound to the given database.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, name, email, phone, password_hash, role, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, u *model.User) error {
	return row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash,
		&u.Role, &u.CreatedAt, &u.UpdatedAt)
}

// Create inserts a user and returns its ID.  The plain password is
// hashed here; ErrEmailExists is returned on a duplicate email.
func (r *UserRepo) Create(ctx context.Context, name, email, phone, password, role string, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (name, email, phone, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		name, email, phone, hash, role)
	if err != nil {
		// MySQL duplicate key errors carry code 1062.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, email), &u)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	var u model.User
	err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id), &u)
	return u, err
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.User, 0)
	for rows.Next() {
		var u model.User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// Update rewrites name, email, phone and role.  The password is only
// replaced when newPassword is non-empty.  Returns sql.ErrNoRows when
// the user does not exist and ErrEmailExists when the new email is
// already registered to someone else.
func (r *UserRepo) Update(ctx context.Context, u *model.User, newPassword string, cost int) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	var cur model.User
	if err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, u.ID), &cur); err != nil {
		return err
	}
	hash := cur.PasswordHash
	if newPassword != "" {
		h, err := utils.HashPassword(newPassword, cost)
		if err != nil {
			return err
		}
		hash = h
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, phone = ?, password_hash = ?, role = ? WHERE id = ?`,
		u.Name, u.Email, u.Phone, hash, u.Role, u.ID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// Delete removes a user.  Returns sql.ErrNoRows when absent.
func (r *UserRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
