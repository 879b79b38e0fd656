package users

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/platform/db"
)

const userColumns = `id, full_name, email, staff_id, phone, role, is_active, password_hash, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns users matching the filter ordered by name.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]User, error) {
	var w db.Where
	if filter.Role != nil {
		w.Add("role = ?", string(*filter.Role))
	}
	if filter.IsActive != nil {
		w.Add("is_active = ?", *filter.IsActive)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := db.Like(term)
		w.Add("(full_name ILIKE ? OR email ILIKE ? OR staff_id ILIKE ?)", like, like, like)
	}
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+w.SQL()+` ORDER BY full_name, id`, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list users")
	}
	defer rows.Close()
	users := make([]User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Get loads a single user.
func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return User{}, db.Translate(err, "user")
	}
	return user, nil
}

// Create inserts the user and returns the stored row.
func (r *Repository) Create(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `INSERT INTO users (full_name, email, staff_id, phone, role, is_active, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING `+userColumns,
		user.FullName, user.Email, user.StaffID, user.Phone, string(user.Role), user.IsActive, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		return User{}, db.Translate(err, "create user")
	}
	return created, nil
}

// Update writes the mutable columns of user.
func (r *Repository) Update(ctx context.Context, user User) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET full_name = $2, email = $3, staff_id = $4, phone = $5, role = $6,
password_hash = $7, updated_at = $8 WHERE id = $1 RETURNING `+userColumns,
		user.ID, user.FullName, user.Email, user.StaffID, user.Phone, string(user.Role), user.PasswordHash, time.Now())
	updated, err := scanUser(row)
	if err != nil {
		return User{}, db.Translate(err, "update user")
	}
	return updated, nil
}

// SetActive flips the active flag.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	row := r.pool.QueryRow(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1 RETURNING `+userColumns, id, active)
	user, err := scanUser(row)
	if err != nil {
		return User{}, db.Translate(err, "user")
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u    User
		role string
	)
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &u.StaffID, &u.Phone, &role, &u.IsActive, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return User{}, err
	}
	u.Role = Role(role)
	return u, nil
}
