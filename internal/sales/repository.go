package sales

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence for sales.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations.
type TxRepository interface {
	LookupProducts(ctx context.Context, ids []int64) (map[int64]ProductRef, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertItem(ctx context.Context, item SaleItem) (int64, error)
	InsertCommission(ctx context.Context, row CommissionRow) error
	ListItems(ctx context.Context, saleID int64) ([]SaleItem, error)
	DeleteSale(ctx context.Context, id int64) error
	// SaveIdempotencyResult links a claimed request key to the created sale.
	SaveIdempotencyResult(ctx context.Context, key string, saleID int64) error
	// Stock is bound to the same transaction.
	Stock() inventory.TxRepository
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a read-committed transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// ============================================================================
// READS
// ============================================================================

const selectSales = `SELECT s.id, s.invoice_number, s.sale_date, s.customer_id, c.name, s.sales_person_id, u.full_name,
s.subtotal, s.tax_amount, s.discount_amount, s.total_amount, s.payment_method, s.payment_status, s.notes,
s.created_at, s.updated_at
FROM sales s
JOIN users u ON u.id = s.sales_person_id
LEFT JOIN customers c ON c.id = s.customer_id`

// Get returns a sale with its items.
func (r *Repository) Get(ctx context.Context, id int64) (*Sale, error) {
	sale, err := scanSale(r.pool.QueryRow(ctx, selectSales+` WHERE s.id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "sale")
	}
	items, err := listItems(ctx, r.pool, id)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return &sale, nil
}

// List returns sales matching the request, newest first.
func (r *Repository) List(ctx context.Context, req ListSalesRequest) ([]Sale, error) {
	var w db.Where
	if req.From != nil {
		w.Add("s.sale_date >= ?", *req.From)
	}
	if req.To != nil {
		w.Add("s.sale_date < ?", *req.To)
	}
	if req.SalesPersonID != nil {
		w.Add("s.sales_person_id = ?", *req.SalesPersonID)
	}
	if req.CustomerID != nil {
		w.Add("s.customer_id = ?", *req.CustomerID)
	}
	if req.PaymentStatus != nil {
		w.Add("s.payment_status = ?", string(*req.PaymentStatus))
	}
	if term := strings.TrimSpace(req.Search); term != "" {
		like := db.Like(term)
		w.Add("(s.invoice_number ILIKE ? OR c.name ILIKE ?)", like, like)
	}
	query := selectSales + w.SQL() + ` ORDER BY s.sale_date DESC, s.id DESC` + w.Paginate(req.Limit, req.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list sales")
	}
	defer rows.Close()
	out := make([]Sale, 0)
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
	}
	return out, rows.Err()
}

// ItemsBetween returns sale lines of sales dated in [from, to).
func (r *Repository) ItemsBetween(ctx context.Context, from, to time.Time) ([]SaleItem, error) {
	rows, err := r.pool.Query(ctx, selectItems+` JOIN sales s ON s.id = i.sale_id
WHERE s.sale_date >= $1 AND s.sale_date < $2 ORDER BY i.sale_id, i.id`, from, to)
	if err != nil {
		return nil, db.Translate(err, "list sale items")
	}
	defer rows.Close()
	return collectItems(rows)
}

var updatableColumns = map[string]bool{
	"payment_method": true,
	"payment_status": true,
	"notes":          true,
}

// Update applies whitelisted column updates.
func (r *Repository) Update(ctx context.Context, id int64, updates map[string]interface{}) error {
	sets := make([]string, 0, len(updates)+1)
	args := make([]any, 0, len(updates)+1)
	args = append(args, id)
	for col, val := range updates {
		if !updatableColumns[col] {
			return fmt.Errorf("%w: column %s cannot be updated", ErrValidation, col)
		}
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return db.Translate(err, "update sale")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return nil
}

// ============================================================================
// TRANSACTIONAL OPERATIONS
// ============================================================================

func (t *txRepo) LookupProducts(ctx context.Context, ids []int64) (map[int64]ProductRef, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, name, selling_price, commission_rate, is_active FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, db.Translate(err, "lookup products")
	}
	defer rows.Close()
	out := make(map[int64]ProductRef, len(ids))
	for rows.Next() {
		var p ProductRef
		if err := rows.Scan(&p.ID, &p.Name, &p.SellingPrice, &p.CommissionRate, &p.IsActive); err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (t *txRepo) InsertSale(ctx context.Context, s Sale) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sales (invoice_number, sale_date, customer_id, sales_person_id, subtotal, tax_amount,
discount_amount, total_amount, payment_method, payment_status, notes)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`,
		s.InvoiceNumber, s.SaleDate, s.CustomerID, s.SalesPersonID, s.Subtotal, s.TaxAmount,
		s.DiscountAmount, s.TotalAmount, string(s.PaymentMethod), string(s.PaymentStatus), s.Notes).Scan(&id)
	if err != nil {
		return 0, db.Translate(err, "insert sale")
	}
	return id, nil
}

func (t *txRepo) InsertItem(ctx context.Context, it SaleItem) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, discount_percent, commission_rate, total_price)
VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		it.SaleID, it.ProductID, it.Quantity, it.UnitPrice, it.DiscountPercent, it.CommissionRate, it.TotalPrice).Scan(&id)
	if err != nil {
		return 0, db.Translate(err, "insert sale item")
	}
	return id, nil
}

func (t *txRepo) InsertCommission(ctx context.Context, row CommissionRow) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO commissions (sale_id, sales_person_id, commission_amount) VALUES ($1, $2, $3)`,
		row.SaleID, row.SalesPersonID, row.Amount)
	return db.Translate(err, "insert commission")
}

func (t *txRepo) ListItems(ctx context.Context, saleID int64) ([]SaleItem, error) {
	return listItems(ctx, t.tx, saleID)
}

// DeleteSale removes the sale; items and commission follow by cascade.
func (t *txRepo) DeleteSale(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete sale")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	return nil
}

func (t *txRepo) SaveIdempotencyResult(ctx context.Context, key string, saleID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE idempotency_keys SET result_ref = $2 WHERE key = $1`, key, strconv.FormatInt(saleID, 10))
	return db.Translate(err, "save idempotency result")
}

func (t *txRepo) Stock() inventory.TxRepository {
	return inventory.NewTxRepository(t.tx)
}

// ============================================================================
// HELPERS
// ============================================================================

const selectItems = `SELECT i.id, i.sale_id, i.product_id, p.name, p.sku, p.category_id, pc.name, i.quantity, i.unit_price,
i.discount_percent, i.commission_rate, i.total_price
FROM sale_items i
JOIN products p ON p.id = i.product_id
LEFT JOIN product_categories pc ON pc.id = p.category_id`

func listItems(ctx context.Context, q db.DBTX, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx, selectItems+` WHERE i.sale_id = $1 ORDER BY i.id`, saleID)
	if err != nil {
		return nil, db.Translate(err, "list sale items")
	}
	defer rows.Close()
	return collectItems(rows)
}

func collectItems(rows pgx.Rows) ([]SaleItem, error) {
	out := make([]SaleItem, 0)
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.ProductName, &it.ProductSKU, &it.CategoryID, &it.CategoryName,
			&it.Quantity, &it.UnitPrice, &it.DiscountPercent, &it.CommissionRate, &it.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	var method, status string
	err := row.Scan(&s.ID, &s.InvoiceNumber, &s.SaleDate, &s.CustomerID, &s.CustomerName, &s.SalesPersonID, &s.SalesPersonName,
		&s.Subtotal, &s.TaxAmount, &s.DiscountAmount, &s.TotalAmount, &method, &status, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt)
	s.PaymentMethod = PaymentMethod(method)
	s.PaymentStatus = PaymentStatus(status)
	return s, err
}
