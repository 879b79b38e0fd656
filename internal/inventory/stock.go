package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopdesk/shopdesk/internal/platform/db"
)

// TxRepository exposes the row-locked operations a movement needs. Sales and
// service requests obtain one bound to their own transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, productID int64) (Item, error)
	SaveQuantity(ctx context.Context, id int64, quantity int, restockedAt *time.Time) error
	InsertMovement(ctx context.Context, m Movement) (Movement, error)
}

// ApplyMovement changes the stock of one product and appends the stock card
// entry. ErrNotTracked is returned when the product has no inventory row.
func ApplyMovement(ctx context.Context, tx TxRepository, in MoveInput, allowNegative bool) (Movement, error) {
	if in.Change == 0 {
		return Movement{}, ErrInvalidQuantity
	}
	item, err := tx.GetForUpdate(ctx, in.ProductID)
	if err != nil {
		return Movement{}, err
	}
	next := item.Quantity + in.Change
	if next < 0 && !allowNegative {
		return Movement{}, fmt.Errorf("%w: product %d has %d on hand, %d requested", ErrNegativeStock, in.ProductID, item.Quantity, -in.Change)
	}
	var restockedAt *time.Time
	if in.Restock {
		now := time.Now()
		restockedAt = &now
	}
	if err := tx.SaveQuantity(ctx, item.ID, next, restockedAt); err != nil {
		return Movement{}, err
	}
	m := Movement{
		ProductID:     in.ProductID,
		Change:        in.Change,
		QuantityAfter: next,
		Reason:        in.Reason,
		RefType:       optional(in.RefType),
		RefID:         optional(in.RefID),
		Note:          optional(in.Note),
	}
	if in.ActorID > 0 {
		actor := in.ActorID
		m.CreatedBy = &actor
	}
	return tx.InsertMovement(ctx, m)
}

func optional(s string) *string {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return &s
}

type txRepo struct {
	q db.DBTX
}

// NewTxRepository binds the stock operations to q, usually a pgx.Tx.
func NewTxRepository(q db.DBTX) TxRepository {
	return &txRepo{q: q}
}

func (r *txRepo) GetForUpdate(ctx context.Context, productID int64) (Item, error) {
	var item Item
	err := r.q.QueryRow(ctx, `SELECT id, product_id, quantity, reorder_level FROM inventory WHERE product_id = $1 FOR UPDATE`, productID).
		Scan(&item.ID, &item.ProductID, &item.Quantity, &item.ReorderLevel)
	if err != nil {
		if db.IsNoRows(err) {
			return Item{}, ErrNotTracked
		}
		return Item{}, db.Translate(err, "lock inventory")
	}
	return item, nil
}

func (r *txRepo) SaveQuantity(ctx context.Context, id int64, quantity int, restockedAt *time.Time) error {
	_, err := r.q.Exec(ctx, `UPDATE inventory SET quantity = $2, last_restock_date = COALESCE($3, last_restock_date), updated_at = NOW() WHERE id = $1`,
		id, quantity, restockedAt)
	return db.Translate(err, "save inventory quantity")
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	err := r.q.QueryRow(ctx, `INSERT INTO inventory_movements (product_id, change, quantity_after, reason, ref_type, ref_id, note, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id, created_at`,
		m.ProductID, m.Change, m.QuantityAfter, string(m.Reason), m.RefType, m.RefID, m.Note, m.CreatedBy).Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return Movement{}, db.Translate(err, "insert inventory movement")
	}
	return m, nil
}
