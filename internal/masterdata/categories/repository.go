package categories

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
	"github.com/shopdesk/shopdesk/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Category, error)
	Get(ctx context.Context, id int64) (Category, error)
	Create(ctx context.Context, category Category) (Category, error)
	Update(ctx context.Context, id int64, category Category) (Category, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
	kind Kind
}

func NewRepository(pool *pgxpool.Pool, kind Kind) Repository {
	return &repository{pool: pool, kind: kind}
}

func (r *repository) columns() string {
	if r.kind.HasBasePrice {
		return "id, name, description, base_price, created_at"
	}
	return "id, name, description, NULL::numeric, created_at"
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Category, error) {
	var w db.Where
	if term := strings.TrimSpace(filters.Search); term != "" {
		like := db.Like(term)
		w.Add("(name ILIKE ? OR description ILIKE ?)", like, like)
	}
	query := `SELECT ` + r.columns() + ` FROM ` + r.kind.Table + w.SQL() + ` ORDER BY name` + w.Paginate(filters.Limit, filters.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list "+r.kind.Name)
	}
	defer rows.Close()
	out := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Category, error) {
	c, err := scanCategory(r.pool.QueryRow(ctx, `SELECT `+r.columns()+` FROM `+r.kind.Table+` WHERE id = $1`, id))
	if err != nil {
		return Category{}, db.Translate(err, r.kind.Name)
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Category) (Category, error) {
	var row pgx.Row
	if r.kind.HasBasePrice {
		row = r.pool.QueryRow(ctx, `INSERT INTO `+r.kind.Table+` (name, description, base_price) VALUES ($1, $2, $3) RETURNING `+r.columns(), c.Name, c.Description, c.BasePrice)
	} else {
		row = r.pool.QueryRow(ctx, `INSERT INTO `+r.kind.Table+` (name, description) VALUES ($1, $2) RETURNING `+r.columns(), c.Name, c.Description)
	}
	created, err := scanCategory(row)
	if err != nil {
		return Category{}, db.Translate(err, "create "+r.kind.Name)
	}
	return created, nil
}

func (r *repository) Update(ctx context.Context, id int64, c Category) (Category, error) {
	var row pgx.Row
	if r.kind.HasBasePrice {
		row = r.pool.QueryRow(ctx, `UPDATE `+r.kind.Table+` SET name = $2, description = $3, base_price = $4 WHERE id = $1 RETURNING `+r.columns(), id, c.Name, c.Description, c.BasePrice)
	} else {
		row = r.pool.QueryRow(ctx, `UPDATE `+r.kind.Table+` SET name = $2, description = $3 WHERE id = $1 RETURNING `+r.columns(), id, c.Name, c.Description)
	}
	updated, err := scanCategory(row)
	if err != nil {
		return Category{}, db.Translate(err, "update "+r.kind.Name)
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+r.kind.Table+` WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete "+r.kind.Name)
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, r.kind.Name)
	}
	return nil
}

func scanCategory(row pgx.Row) (Category, error) {
	var c Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.BasePrice, &c.CreatedAt)
	return c, err
}
