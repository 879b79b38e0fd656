package audit

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/platform/db"
)

// PgRepository queries audit_logs.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the repository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const timelineSelect = `SELECT a.id, a.occurred_at, a.actor_id, u.full_name, a.action, a.entity, a.entity_id, a.meta
FROM audit_logs a
LEFT JOIN users u ON u.id = a.actor_id`

// Window returns up to limit rows starting at offset, newest first. A limit
// of zero returns every matching row.
func (r *PgRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	var where db.Where
	if !filters.From.IsZero() {
		where.Add("a.occurred_at >= ?", filters.From)
	}
	if !filters.To.IsZero() {
		where.Add("a.occurred_at < ?", filters.To)
	}
	if filters.ActorID != nil {
		where.Add("a.actor_id = ?", *filters.ActorID)
	}
	if filters.Entity != "" {
		where.Add("a.entity = ?", filters.Entity)
	}
	if filters.EntityID != "" {
		where.Add("a.entity_id = ?", filters.EntityID)
	}
	if filters.Action != "" {
		where.Add("a.action ILIKE ?", db.Like(filters.Action))
	}
	query := timelineSelect + where.SQL() + " ORDER BY a.occurred_at DESC, a.id DESC" + where.Paginate(limit, offset)
	rows, err := r.pool.Query(ctx, query, where.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRows(rows)
}

func scanRows(rows pgx.Rows) ([]TimelineRow, error) {
	out := make([]TimelineRow, 0)
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.ID, &row.At, &row.ActorID, &row.ActorName, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 && string(meta) != "null" {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
