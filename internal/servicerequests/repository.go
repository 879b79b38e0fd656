package servicerequests

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/platform/db"
)

// Repository handles database operations for service requests.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository instance.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes that run inside one transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, id int64) (ServiceRequest, error)
	Insert(ctx context.Context, sr ServiceRequest) (int64, error)
	UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error
	Delete(ctx context.Context, id int64) error
	InsertUpdate(ctx context.Context, u Update) (Update, error)
	Technician(ctx context.Context, userID int64) (role string, active bool, err error)
	ProductCost(ctx context.Context, productID int64) (name string, cost float64, err error)
	InsertPart(ctx context.Context, p PartUsed) (PartUsed, error)
	GetPart(ctx context.Context, requestID, partID int64) (PartUsed, error)
	DeletePart(ctx context.Context, partID int64) error
	Stock() inventory.TxRepository
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const selectRequests = `SELECT sr.id, sr.request_number, sr.title, sr.description, sr.service_category_id, sc.name,
sr.customer_id, c.name, sr.assigned_technician_id, u.full_name, sr.status, sr.priority,
sr.device_type, sr.device_brand, sr.device_model, sr.serial_number, sr.estimated_cost, sr.final_cost,
sr.payment_status, sr.payment_method, sr.notes, sr.assigned_date, sr.started_date, sr.completed_date,
sr.created_by, sr.created_at, sr.updated_at
FROM service_requests sr
LEFT JOIN service_categories sc ON sc.id = sr.service_category_id
LEFT JOIN customers c ON c.id = sr.customer_id
LEFT JOIN users u ON u.id = sr.assigned_technician_id`

// ============================================================================
// READS
// ============================================================================

// List returns service requests matching filter, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]ServiceRequest, error) {
	var w db.Where
	if filter.Status != nil {
		w.Add("sr.status = ?", string(*filter.Status))
	}
	if filter.Priority != nil {
		w.Add("sr.priority = ?", string(*filter.Priority))
	}
	if filter.TechnicianID != nil {
		w.Add("sr.assigned_technician_id = ?", *filter.TechnicianID)
	}
	if filter.CategoryID != nil {
		w.Add("sr.service_category_id = ?", *filter.CategoryID)
	}
	if filter.CustomerID != nil {
		w.Add("sr.customer_id = ?", *filter.CustomerID)
	}
	if filter.From != nil {
		w.Add("sr.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		w.Add("sr.created_at < ?", *filter.To)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		like := db.Like(term)
		w.Add(`(sr.request_number ILIKE ? OR sr.title ILIKE ? OR c.name ILIKE ? OR sr.device_type ILIKE ?
OR sr.device_brand ILIKE ? OR sr.device_model ILIKE ?)`, like, like, like, like, like, like)
	}
	query := selectRequests + w.SQL() + ` ORDER BY sr.created_at DESC, sr.id DESC` + w.Paginate(filter.Limit, filter.Offset)
	rows, err := r.pool.Query(ctx, query, w.Args()...)
	if err != nil {
		return nil, db.Translate(err, "list service requests")
	}
	defer rows.Close()
	out := make([]ServiceRequest, 0)
	for rows.Next() {
		sr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

// Get returns the request without its relations.
func (r *Repository) Get(ctx context.Context, id int64) (*ServiceRequest, error) {
	sr, err := scanRequest(r.pool.QueryRow(ctx, selectRequests+` WHERE sr.id = $1`, id))
	if err != nil {
		return nil, db.Translate(err, "service request")
	}
	return &sr, nil
}

// Updates returns the history of a request, oldest first.
func (r *Repository) Updates(ctx context.Context, requestID int64) ([]Update, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, service_request_id, status_from, status_to, title, description, is_customer_visible,
created_by, created_at FROM service_request_updates WHERE service_request_id = $1 ORDER BY created_at, id`, requestID)
	if err != nil {
		return nil, db.Translate(err, "list service updates")
	}
	defer rows.Close()
	out := make([]Update, 0)
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Parts returns the parts used on a request.
func (r *Repository) Parts(ctx context.Context, requestID int64) ([]PartUsed, error) {
	rows, err := r.pool.Query(ctx, `SELECT sp.id, sp.service_request_id, sp.product_id, p.name, sp.quantity, sp.unit_cost, sp.total_cost, sp.created_at
FROM service_parts_used sp JOIN products p ON p.id = sp.product_id
WHERE sp.service_request_id = $1 ORDER BY sp.id`, requestID)
	if err != nil {
		return nil, db.Translate(err, "list service parts")
	}
	defer rows.Close()
	out := make([]PartUsed, 0)
	for rows.Next() {
		var p PartUsed
		if err := rows.Scan(&p.ID, &p.ServiceRequestID, &p.ProductID, &p.ProductName, &p.Quantity, &p.UnitCost, &p.TotalCost, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const selectAttachments = `SELECT id, service_request_id, file_name, content_type, size_bytes, storage_key, description,
is_customer_visible, uploaded_by, created_at FROM service_attachments`

// Attachments returns the files of a request.
func (r *Repository) Attachments(ctx context.Context, requestID int64) ([]Attachment, error) {
	rows, err := r.pool.Query(ctx, selectAttachments+` WHERE service_request_id = $1 ORDER BY id`, requestID)
	if err != nil {
		return nil, db.Translate(err, "list attachments")
	}
	defer rows.Close()
	out := make([]Attachment, 0)
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetAttachment returns one attachment of a request.
func (r *Repository) GetAttachment(ctx context.Context, requestID, attachmentID int64) (*Attachment, error) {
	a, err := scanAttachment(r.pool.QueryRow(ctx, selectAttachments+` WHERE id = $1 AND service_request_id = $2`, attachmentID, requestID))
	if err != nil {
		return nil, db.Translate(err, "attachment")
	}
	return &a, nil
}

// InsertAttachment stores attachment metadata.
func (r *Repository) InsertAttachment(ctx context.Context, a Attachment) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO service_attachments (service_request_id, file_name, content_type, size_bytes, storage_key,
description, is_customer_visible, uploaded_by) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		a.ServiceRequestID, a.FileName, a.ContentType, a.SizeBytes, a.StorageKey, a.Description, a.IsCustomerVisible, a.UploadedBy).Scan(&id)
	if err != nil {
		return 0, db.Translate(err, "insert attachment")
	}
	return id, nil
}

// UpdateAttachment changes the description or visibility of an attachment.
func (r *Repository) UpdateAttachment(ctx context.Context, id int64, description *string, visible *bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE service_attachments SET description = COALESCE($2, description),
is_customer_visible = COALESCE($3, is_customer_visible) WHERE id = $1`, id, description, visible)
	if err != nil {
		return db.Translate(err, "update attachment")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteAttachment removes attachment metadata.
func (r *Repository) DeleteAttachment(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM service_attachments WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete attachment")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attachment %d: %w", id, ErrNotFound)
	}
	return nil
}

// ============================================================================
// TRANSACTIONAL OPERATIONS
// ============================================================================

func (t *txRepo) GetForUpdate(ctx context.Context, id int64) (ServiceRequest, error) {
	sr, err := scanRequest(t.tx.QueryRow(ctx, selectRequests+` WHERE sr.id = $1 FOR UPDATE OF sr`, id))
	if err != nil {
		return ServiceRequest{}, db.Translate(err, "service request")
	}
	return sr, nil
}

func (t *txRepo) Insert(ctx context.Context, sr ServiceRequest) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO service_requests (request_number, title, description, service_category_id, customer_id,
assigned_technician_id, status, priority, device_type, device_brand, device_model, serial_number, estimated_cost,
payment_status, notes, assigned_date, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17) RETURNING id`,
		sr.RequestNumber, sr.Title, sr.Description, sr.ServiceCategoryID, sr.CustomerID,
		sr.AssignedTechnicianID, string(sr.Status), string(sr.Priority), sr.DeviceType, sr.DeviceBrand, sr.DeviceModel,
		sr.SerialNumber, sr.EstimatedCost, string(sr.PaymentStatus), sr.Notes, sr.AssignedDate, sr.CreatedBy).Scan(&id)
	if err != nil {
		return 0, db.Translate(err, "insert service request")
	}
	return id, nil
}

var updatableColumns = map[string]bool{
	"title":                  true,
	"description":            true,
	"service_category_id":    true,
	"customer_id":            true,
	"assigned_technician_id": true,
	"status":                 true,
	"priority":               true,
	"device_type":            true,
	"device_brand":           true,
	"device_model":           true,
	"serial_number":          true,
	"estimated_cost":         true,
	"final_cost":             true,
	"payment_status":         true,
	"payment_method":         true,
	"notes":                  true,
	"assigned_date":          true,
	"started_date":           true,
	"completed_date":         true,
}

func (t *txRepo) UpdateFields(ctx context.Context, id int64, updates map[string]interface{}) error {
	cols := make([]string, 0, len(updates))
	for col := range updates {
		if !updatableColumns[col] {
			return fmt.Errorf("%w: column %s cannot be updated", ErrValidation, col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	sets := make([]string, 0, len(cols)+1)
	args := []any{id}
	for _, col := range cols {
		args = append(args, updates[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	sets = append(sets, "updated_at = NOW()")
	tag, err := t.tx.Exec(ctx, `UPDATE service_requests SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return db.Translate(err, "update service request")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service request %d: %w", id, ErrNotFound)
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return db.Translate(err, "delete service request")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("service request %d: %w", id, ErrNotFound)
	}
	return nil
}

func (t *txRepo) InsertUpdate(ctx context.Context, u Update) (Update, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO service_request_updates (service_request_id, status_from, status_to, title, description,
is_customer_visible, created_by) VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at`,
		u.ServiceRequestID, statusPtr(u.StatusFrom), statusPtr(u.StatusTo), u.Title, u.Description, u.IsCustomerVisible, u.CreatedBy).
		Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		return Update{}, db.Translate(err, "insert service update")
	}
	return u, nil
}

func (t *txRepo) Technician(ctx context.Context, userID int64) (string, bool, error) {
	var role string
	var active bool
	err := t.tx.QueryRow(ctx, `SELECT role, is_active FROM users WHERE id = $1`, userID).Scan(&role, &active)
	if err != nil {
		return "", false, db.Translate(err, "technician")
	}
	return role, active, nil
}

func (t *txRepo) ProductCost(ctx context.Context, productID int64) (string, float64, error) {
	var name string
	var cost float64
	err := t.tx.QueryRow(ctx, `SELECT name, cost_price FROM products WHERE id = $1`, productID).Scan(&name, &cost)
	if err != nil {
		return "", 0, db.Translate(err, "product")
	}
	return name, cost, nil
}

func (t *txRepo) InsertPart(ctx context.Context, p PartUsed) (PartUsed, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO service_parts_used (service_request_id, product_id, quantity, unit_cost, total_cost)
VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		p.ServiceRequestID, p.ProductID, p.Quantity, p.UnitCost, p.TotalCost).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return PartUsed{}, db.Translate(err, "insert service part")
	}
	return p, nil
}

func (t *txRepo) GetPart(ctx context.Context, requestID, partID int64) (PartUsed, error) {
	var p PartUsed
	err := t.tx.QueryRow(ctx, `SELECT id, service_request_id, product_id, quantity, unit_cost, total_cost, created_at
FROM service_parts_used WHERE id = $1 AND service_request_id = $2`, partID, requestID).
		Scan(&p.ID, &p.ServiceRequestID, &p.ProductID, &p.Quantity, &p.UnitCost, &p.TotalCost, &p.CreatedAt)
	if err != nil {
		return PartUsed{}, db.Translate(err, "service part")
	}
	return p, nil
}

func (t *txRepo) DeletePart(ctx context.Context, partID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM service_parts_used WHERE id = $1`, partID)
	return db.Translate(err, "delete service part")
}

func (t *txRepo) Stock() inventory.TxRepository {
	return inventory.NewTxRepository(t.tx)
}

// ============================================================================
// HELPERS
// ============================================================================

func statusPtr(s *Status) *string {
	if s == nil {
		return nil
	}
	v := string(*s)
	return &v
}

func scanRequest(row pgx.Row) (ServiceRequest, error) {
	var sr ServiceRequest
	var status, priority, payment string
	err := row.Scan(&sr.ID, &sr.RequestNumber, &sr.Title, &sr.Description, &sr.ServiceCategoryID, &sr.ServiceCategoryName,
		&sr.CustomerID, &sr.CustomerName, &sr.AssignedTechnicianID, &sr.TechnicianName, &status, &priority,
		&sr.DeviceType, &sr.DeviceBrand, &sr.DeviceModel, &sr.SerialNumber, &sr.EstimatedCost, &sr.FinalCost,
		&payment, &sr.PaymentMethod, &sr.Notes, &sr.AssignedDate, &sr.StartedDate, &sr.CompletedDate,
		&sr.CreatedBy, &sr.CreatedAt, &sr.UpdatedAt)
	sr.Status = Status(status)
	sr.Priority = Priority(priority)
	sr.PaymentStatus = PaymentStatus(payment)
	return sr, err
}

func scanUpdate(row pgx.Row) (Update, error) {
	var u Update
	var from, to *string
	err := row.Scan(&u.ID, &u.ServiceRequestID, &from, &to, &u.Title, &u.Description, &u.IsCustomerVisible, &u.CreatedBy, &u.CreatedAt)
	if from != nil {
		s := Status(*from)
		u.StatusFrom = &s
	}
	if to != nil {
		s := Status(*to)
		u.StatusTo = &s
	}
	return u, err
}

func scanAttachment(row pgx.Row) (Attachment, error) {
	var a Attachment
	err := row.Scan(&a.ID, &a.ServiceRequestID, &a.FileName, &a.ContentType, &a.SizeBytes, &a.StorageKey, &a.Description,
		&a.IsCustomerVisible, &a.UploadedBy, &a.CreatedAt)
	return a, err
}
