package products

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/masterdata/shared"
	"github.com/shopdesk/shopdesk/internal/platform/db"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) (Product, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const selectProducts = `SELECT p.id, p.name, p.sku, p.category_id, c.name, p.description, p.cost_price, p.selling_price,
p.commission_rate, p.image_url, p.is_active, p.created_at, p.updated_at
FROM products p LEFT JOIN product_categories c ON c.id = p.category_id`

var sortColumns = map[string]string{
	"name":          "p.name",
	"sku":           "p.sku",
	"selling_price": "p.selling_price",
	"cost_price":    "p.cost_price",
	"created_at":    "p.created_at",
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Product, error) {
	var w db.Where
	if filters.CategoryID != nil {
		w.Add("p.category_id = ?", *filters.CategoryID)
	}
	if term := strings.TrimSpace(filters.Search); term != "" {
		like := db.Like(term)
		w.Add("(p.name ILIKE ? OR p.sku ILIKE ? OR c.name ILIKE ?)", like, like, like)
	}
	if filters.IsActive != nil {
		w.Add("p.is_active = ?", *filters.IsActive)
	}
	query := selectProducts + w.SQL() + " ORDER BY " + db.OrderBy(filters.SortBy, filters.SortDir, sortColumns, "p.name ASC") + ", p.id"
	query += w.Paginate(filters.Limit, filters.Offset)

	rows, err := r.db.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list products")
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	p, err := scanProduct(r.db.QueryRow(ctx, selectProducts+` WHERE p.id = $1`, id))
	if err != nil {
		return Product{}, db.Translate(err, "product")
	}
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	query := `INSERT INTO products (name, sku, category_id, description, cost_price, selling_price, commission_rate, image_url, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10) RETURNING id`
	now := time.Now()
	err := r.db.QueryRow(ctx, query, product.Name, product.SKU, product.CategoryID, product.Description, product.CostPrice,
		product.SellingPrice, product.CommissionRate, product.ImageURL, product.IsActive, now).Scan(&product.ID)
	if err != nil {
		return Product{}, db.Translate(err, "create product")
	}
	return r.Get(ctx, product.ID)
}

func (r *repository) Update(ctx context.Context, id int64, product Product) (Product, error) {
	query := `UPDATE products SET name = $1, sku = $2, category_id = $3, description = $4, cost_price = $5, selling_price = $6,
commission_rate = $7, image_url = $8, is_active = $9, updated_at = $10 WHERE id = $11`
	tag, err := r.db.Exec(ctx, query, product.Name, product.SKU, product.CategoryID, product.Description, product.CostPrice,
		product.SellingPrice, product.CommissionRate, product.ImageURL, product.IsActive, time.Now(), id)
	if err != nil {
		return Product{}, db.Translate(err, "update product")
	}
	if tag.RowsAffected() == 0 {
		return Product{}, db.Translate(pgx.ErrNoRows, "product")
	}
	return r.Get(ctx, id)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete product")
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "product")
	}
	return nil
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.SKU, &p.CategoryID, &p.CategoryName, &p.Description, &p.CostPrice, &p.SellingPrice,
		&p.CommissionRate, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
