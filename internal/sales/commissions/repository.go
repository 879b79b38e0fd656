package commissions

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/platform/db"
	salesshared "github.com/shopdesk/shopdesk/internal/sales/shared"
)

// Repository is the persistence contract of the service.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	List(ctx context.Context, filter ListFilter) ([]Commission, error)
	Get(ctx context.Context, id int64) (*Commission, error)
	SetPaid(ctx context.Context, id int64, paid bool, paidAt *time.Time) error
	ZeroAmount(ctx context.Context) ([]Commission, error)
	SalesWithoutCommission(ctx context.Context) ([]SaleRef, error)
	SaleLines(ctx context.Context, saleID int64) ([]salesshared.CommissionLine, error)
	SetAmount(ctx context.Context, id int64, amount float64) error
	Insert(ctx context.Context, saleID, salesPersonID int64, amount float64) error
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

const selectCommissions = `SELECT c.id, c.sale_id, s.invoice_number, s.sale_date, s.total_amount, c.sales_person_id, u.full_name,
c.commission_amount, c.is_paid, c.payment_date, c.created_at
FROM commissions c
JOIN sales s ON s.id = c.sale_id
JOIN users u ON u.id = c.sales_person_id`

func (r *repository) List(ctx context.Context, filter ListFilter) ([]Commission, error) {
	var w db.Where
	if filter.SalesPersonID != nil {
		w.Add("c.sales_person_id = ?", *filter.SalesPersonID)
	}
	if filter.IsPaid != nil {
		w.Add("c.is_paid = ?", *filter.IsPaid)
	}
	if filter.From != nil {
		w.Add("s.sale_date >= ?", *filter.From)
	}
	if filter.To != nil {
		w.Add("s.sale_date < ?", *filter.To)
	}
	return r.query(ctx, selectCommissions+w.SQL()+` ORDER BY s.sale_date DESC, c.id DESC`, w.Args()...)
}

func (r *repository) Get(ctx context.Context, id int64) (*Commission, error) {
	c, err := scanCommission(r.db.QueryRow(ctx, selectCommissions+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "commission")
	}
	return &c, nil
}

func (r *repository) SetPaid(ctx context.Context, id int64, paid bool, paidAt *time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE commissions SET is_paid = $2, payment_date = $3 WHERE id = $1`, id, paid, paidAt)
	if err != nil {
		return db.Translate(err, "update commission")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("commission %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *repository) ZeroAmount(ctx context.Context) ([]Commission, error) {
	return r.query(ctx, selectCommissions+` WHERE c.commission_amount = 0 ORDER BY c.id`)
}

func (r *repository) SalesWithoutCommission(ctx context.Context) ([]SaleRef, error) {
	rows, err := r.db.Query(ctx, `SELECT s.id, s.sales_person_id FROM sales s
LEFT JOIN commissions c ON c.sale_id = s.id WHERE c.id IS NULL ORDER BY s.id`)
	if err != nil {
		return nil, db.Translate(err, "sales without commission")
	}
	defer rows.Close()
	out := make([]SaleRef, 0)
	for rows.Next() {
		var ref SaleRef
		if err := rows.Scan(&ref.SaleID, &ref.SalesPersonID); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

func (r *repository) SaleLines(ctx context.Context, saleID int64) ([]salesshared.CommissionLine, error) {
	rows, err := r.db.Query(ctx, `SELECT total_price, commission_rate FROM sale_items WHERE sale_id = $1`, saleID)
	if err != nil {
		return nil, db.Translate(err, "sale lines")
	}
	defer rows.Close()
	out := make([]salesshared.CommissionLine, 0)
	for rows.Next() {
		var l salesshared.CommissionLine
		if err := rows.Scan(&l.TotalPrice, &l.CommissionRate); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *repository) SetAmount(ctx context.Context, id int64, amount float64) error {
	_, err := r.db.Exec(ctx, `UPDATE commissions SET commission_amount = $2 WHERE id = $1`, id, amount)
	return db.Translate(err, "update commission amount")
}

func (r *repository) Insert(ctx context.Context, saleID, salesPersonID int64, amount float64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO commissions (sale_id, sales_person_id, commission_amount) VALUES ($1, $2, $3)
ON CONFLICT (sale_id) DO NOTHING`, saleID, salesPersonID, amount)
	return db.Translate(err, "insert commission")
}

func (r *repository) query(ctx context.Context, sql string, args ...any) ([]Commission, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, db.Translate(err, "list commissions")
	}
	defer rows.Close()
	out := make([]Commission, 0)
	for rows.Next() {
		c, err := scanCommission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCommission(row pgx.Row) (Commission, error) {
	var c Commission
	err := row.Scan(&c.ID, &c.SaleID, &c.InvoiceNumber, &c.SaleDate, &c.SaleTotal, &c.SalesPersonID, &c.SalesPersonName,
		&c.Amount, &c.IsPaid, &c.PaymentDate, &c.CreatedAt)
	return c, err
}
