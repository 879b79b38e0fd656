package customers

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/platform/db"
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, id int64) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db   db.DBTX
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, name, email, phone, address, created_at, updated_at`

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "customer")
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, error) {
	var w db.Where
	if term := strings.TrimSpace(req.Search); term != "" {
		like := db.Like(term)
		w.Add("(name ILIKE ? OR email ILIKE ? OR phone ILIKE ?)", like, like, like)
	}
	query := `SELECT ` + customerColumns + ` FROM customers` + w.SQL() + ` ORDER BY name, id` + w.Paginate(req.Limit, req.Offset)
	rows, err := r.db.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list customers")
	}
	defer rows.Close()
	out := make([]Customer, 0)
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `INSERT INTO customers (name, email, phone, address) VALUES ($1, $2, $3, $4) RETURNING id`,
		c.Name, c.Email, c.Phone, c.Address).Scan(&id)
	if err != nil {
		return 0, db.Translate(err, "create customer")
	}
	return id, nil
}

// updatableColumns guards the dynamic SET list.
var updatableColumns = map[string]bool{"name": true, "email": true, "phone": true, "address": true}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	cols := make([]string, 0, len(updates))
	for col := range updates {
		if updatableColumns[col] {
			cols = append(cols, col)
		}
	}
	if len(cols) == 0 {
		return nil
	}
	sort.Strings(cols)
	var w db.Where
	sets := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		sets = append(sets, col+" = "+w.Arg(updates[col]))
	}
	sets = append(sets, "updated_at = "+w.Arg(time.Now()))
	w.Add("id = ?", id)
	tag, err := r.db.Exec(ctx, `UPDATE customers SET `+strings.Join(sets, ", ")+w.SQL(), w.Args()...)
	if err != nil {
		return db.Translate(err, "update customer")
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "customer")
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete customer")
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "customer")
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
