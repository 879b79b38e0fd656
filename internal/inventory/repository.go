package inventory

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/platform/db"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const selectItems = `SELECT i.id, i.product_id, p.name, p.sku, p.category_id, c.name, p.cost_price, p.selling_price,
i.quantity, i.reorder_level, i.last_restock_date, i.updated_at
FROM inventory i
JOIN products p ON p.id = i.product_id
LEFT JOIN product_categories c ON c.id = p.category_id`

// WithTx executes the callback inside a read-committed transaction; movement
// rows are locked with SELECT ... FOR UPDATE.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxRepository(tx))
	})
}

// List returns inventory rows joined with product data.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Item, error) {
	var w db.Where
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := db.Like(term)
		w.Add("(p.name ILIKE ? OR p.sku ILIKE ? OR c.name ILIKE ?)", like, like, like)
	}
	if filter.CategoryID != nil {
		w.Add("p.category_id = ?", *filter.CategoryID)
	}
	if filter.LowStockOnly {
		w.Add("i.quantity <= i.reorder_level")
	}
	if filter.Status != nil {
		switch *filter.Status {
		case StatusOutOfStock:
			w.Add("i.quantity <= 0")
		case StatusLowStock:
			w.Add("i.quantity > 0 AND i.quantity <= i.reorder_level")
		case StatusInStock:
			w.Add("i.quantity > i.reorder_level AND i.quantity > 0")
		}
	}
	rows, err := r.pool.Query(ctx, selectItems+w.SQL()+` ORDER BY p.name, i.id`, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list inventory")
	}
	defer rows.Close()
	items := make([]Item, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get loads an inventory row by id.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, selectItems+` WHERE i.id = $1`, id))
	if err != nil {
		return Item{}, db.Translate(err, "inventory")
	}
	return item, nil
}

// GetByProduct loads the inventory row of a product.
func (r *Repository) GetByProduct(ctx context.Context, productID int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, selectItems+` WHERE i.product_id = $1`, productID))
	if err != nil {
		if db.IsNoRows(err) {
			return Item{}, ErrNotTracked
		}
		return Item{}, db.Translate(err, "inventory")
	}
	return item, nil
}

// Create inserts the inventory row of a product together with its opening
// stock card entry.
func (r *Repository) Create(ctx context.Context, in CreateInput, actorID int64) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `INSERT INTO inventory (product_id, quantity, reorder_level, last_restock_date)
VALUES ($1, $2, $3, CASE WHEN $2 > 0 THEN NOW() END) RETURNING id`, in.ProductID, in.Quantity, in.ReorderLevel).Scan(&id); err != nil {
			if db.IsUniqueViolation(err) {
				return ErrAlreadyTracked
			}
			return db.Translate(err, "create inventory")
		}
		if in.Quantity == 0 {
			return nil
		}
		var actor *int64
		if actorID > 0 {
			actor = &actorID
		}
		_, err := NewTxRepository(tx).InsertMovement(ctx, Movement{
			ProductID: in.ProductID, Change: in.Quantity, QuantityAfter: in.Quantity, Reason: ReasonInitial, CreatedBy: actor,
		})
		return err
	})
	return id, err
}

// UpdateReorderLevel changes the reorder threshold.
func (r *Repository) UpdateReorderLevel(ctx context.Context, id int64, level int) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inventory SET reorder_level = $2, updated_at = NOW() WHERE id = $1`, id, level)
	if err != nil {
		return db.Translate(err, "update inventory")
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "inventory")
	}
	return nil
}

// Delete removes the inventory row; the stock card is kept.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inventory WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete inventory")
	}
	if tag.RowsAffected() == 0 {
		return db.Translate(pgx.ErrNoRows, "inventory")
	}
	return nil
}

// Movements returns the stock card of a product, newest first.
func (r *Repository) Movements(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, change, quantity_after, reason, ref_type, ref_id, note, created_by, created_at
FROM inventory_movements WHERE product_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, productID, limit)
	if err != nil {
		return nil, db.Translate(err, "list inventory movements")
	}
	defer rows.Close()
	out := make([]Movement, 0)
	for rows.Next() {
		var (
			m      Movement
			reason string
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Change, &m.QuantityAfter, &reason, &m.RefType, &m.RefID, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Reason = MovementReason(reason)
		out = append(out, m)
	}
	return out, rows.Err()
}

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.ProductID, &it.ProductName, &it.SKU, &it.CategoryID, &it.CategoryName, &it.CostPrice, &it.SellingPrice,
		&it.Quantity, &it.ReorderLevel, &it.LastRestockDate, &it.UpdatedAt)
	if err != nil {
		return Item{}, err
	}
	it.Status = StatusFor(it.Quantity, it.ReorderLevel)
	return it, nil
}
