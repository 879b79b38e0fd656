package servicerequests

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopdesk/shopdesk/internal/shared"
)

// Common errors
var (
	ErrNotFound   = shared.ErrNotFound
	ErrValidation = shared.ErrValidation
	// ErrInvalidTransition is returned for a status change the workflow does not allow.
	ErrInvalidTransition = fmt.Errorf("%w: invalid status transition", shared.ErrConflict)
	// ErrClosed is returned when parts are changed on a completed or cancelled request.
	ErrClosed = fmt.Errorf("%w: service request is closed", shared.ErrConflict)
	// ErrNotTechnician is returned when assigning a user who is not an active technician.
	ErrNotTechnician = errors.New("user is not an active technician")
)

// Status represents the lifecycle of a service request
type Status string

const (
	StatusPending      Status = "pending"       // Logged at the counter
	StatusAssigned     Status = "assigned"      // Technician assigned
	StatusInProgress   Status = "in_progress"   // Work started
	StatusWaitingParts Status = "waiting_parts" // Blocked on a part order
	StatusOnHold       Status = "on_hold"       // Paused, usually waiting on the customer
	StatusCompleted    Status = "completed"     // Work done
	StatusCancelled    Status = "cancelled"     // Abandoned
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusInProgress, StatusWaitingParts, StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// IsClosed reports whether the request reached a terminal status.
func (s Status) IsClosed() bool {
	return s == StatusCompleted || s == StatusCancelled
}

var transitions = map[Status][]Status{
	StatusPending:      {StatusAssigned, StatusInProgress, StatusOnHold, StatusCancelled},
	StatusAssigned:     {StatusPending, StatusInProgress, StatusOnHold, StatusCancelled},
	StatusInProgress:   {StatusWaitingParts, StatusOnHold, StatusCompleted, StatusCancelled},
	StatusWaitingParts: {StatusInProgress, StatusOnHold, StatusCancelled},
	StatusOnHold:       {StatusPending, StatusAssigned, StatusInProgress, StatusCancelled},
}

// reopen lists the transitions out of a terminal status; they need force.
var reopen = map[Status]Status{
	StatusCompleted: StatusInProgress,
	StatusCancelled: StatusPending,
}

// CanTransition reports whether from may move to to. Reopening a completed or
// cancelled request requires force.
func CanTransition(from, to Status, force bool) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, to)
	}
	if target, ok := reopen[from]; ok {
		if force && to == target {
			return nil
		}
		if to == target {
			return fmt.Errorf("%w: reopening a %s request requires force", ErrInvalidTransition, from)
		}
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Priority of a service request
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// PaymentStatus of a service request
type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// ============================================================================
// RECORDS
// ============================================================================

// ServiceRequest is a repair or service job for a customer device.
type ServiceRequest struct {
	ID                   int64         `json:"id"`
	RequestNumber        string        `json:"request_number"`
	Title                string        `json:"title"`
	Description          *string       `json:"description,omitempty"`
	ServiceCategoryID    *int64        `json:"service_category_id,omitempty"`
	ServiceCategoryName  *string       `json:"service_category_name,omitempty"`
	CustomerID           *int64        `json:"customer_id,omitempty"`
	CustomerName         *string       `json:"customer_name,omitempty"`
	AssignedTechnicianID *int64        `json:"assigned_technician_id,omitempty"`
	TechnicianName       *string       `json:"technician_name,omitempty"`
	Status               Status        `json:"status"`
	Priority             Priority      `json:"priority"`
	DeviceType           *string       `json:"device_type,omitempty"`
	DeviceBrand          *string       `json:"device_brand,omitempty"`
	DeviceModel          *string       `json:"device_model,omitempty"`
	SerialNumber         *string       `json:"serial_number,omitempty"`
	EstimatedCost        *float64      `json:"estimated_cost,omitempty"`
	FinalCost            *float64      `json:"final_cost,omitempty"`
	PaymentStatus        PaymentStatus `json:"payment_status"`
	PaymentMethod        *string       `json:"payment_method,omitempty"`
	Notes                *string       `json:"notes,omitempty"`
	AssignedDate         *time.Time    `json:"assigned_date,omitempty"`
	StartedDate          *time.Time    `json:"started_date,omitempty"`
	CompletedDate        *time.Time    `json:"completed_date,omitempty"`
	CreatedBy            *int64        `json:"created_by,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`

	Updates     []Update     `json:"updates,omitempty"`
	Parts       []PartUsed   `json:"parts,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Update is one entry of the request history.
type Update struct {
	ID                int64     `json:"id"`
	ServiceRequestID  int64     `json:"service_request_id"`
	StatusFrom        *Status   `json:"status_from,omitempty"`
	StatusTo          *Status   `json:"status_to,omitempty"`
	Title             string    `json:"title"`
	Description       *string   `json:"description,omitempty"`
	IsCustomerVisible bool      `json:"is_customer_visible"`
	CreatedBy         *int64    `json:"created_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// PartUsed is a product consumed by the repair.
type PartUsed struct {
	ID               int64     `json:"id"`
	ServiceRequestID int64     `json:"service_request_id"`
	ProductID        int64     `json:"product_id"`
	ProductName      string    `json:"product_name,omitempty"`
	Quantity         int       `json:"quantity"`
	UnitCost         float64   `json:"unit_cost"`
	TotalCost        float64   `json:"total_cost"`
	CreatedAt        time.Time `json:"created_at"`
}

// Attachment is a file stored for a request, such as a photo of the device.
type Attachment struct {
	ID                int64     `json:"id"`
	ServiceRequestID  int64     `json:"service_request_id"`
	FileName          string    `json:"file_name"`
	ContentType       string    `json:"content_type"`
	SizeBytes         int64     `json:"size_bytes"`
	StorageKey        string    `json:"-"`
	Description       *string   `json:"description,omitempty"`
	IsCustomerVisible bool      `json:"is_customer_visible"`
	UploadedBy        *int64    `json:"uploaded_by,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// ============================================================================
// REQUESTS
// ============================================================================

type CreateRequest struct {
	Title                string   `json:"title" validate:"required,max=200"`
	Description          *string  `json:"description,omitempty"`
	ServiceCategoryID    *int64   `json:"service_category_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID           *int64   `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	AssignedTechnicianID *int64   `json:"assigned_technician_id,omitempty" validate:"omitempty,gt=0"`
	Priority             Priority `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	DeviceType           *string  `json:"device_type,omitempty" validate:"omitempty,max=100"`
	DeviceBrand          *string  `json:"device_brand,omitempty" validate:"omitempty,max=100"`
	DeviceModel          *string  `json:"device_model,omitempty" validate:"omitempty,max=100"`
	SerialNumber         *string  `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	EstimatedCost        *float64 `json:"estimated_cost,omitempty" validate:"omitempty,gte=0"`
	Notes                *string  `json:"notes,omitempty"`
}

type UpdateRequest struct {
	Title             *string   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description       *string   `json:"description,omitempty"`
	ServiceCategoryID *int64    `json:"service_category_id,omitempty" validate:"omitempty,gt=0"`
	CustomerID        *int64    `json:"customer_id,omitempty" validate:"omitempty,gt=0"`
	Priority          *Priority `json:"priority,omitempty" validate:"omitempty,oneof=low medium high urgent"`
	DeviceType        *string   `json:"device_type,omitempty" validate:"omitempty,max=100"`
	DeviceBrand       *string   `json:"device_brand,omitempty" validate:"omitempty,max=100"`
	DeviceModel       *string   `json:"device_model,omitempty" validate:"omitempty,max=100"`
	SerialNumber      *string   `json:"serial_number,omitempty" validate:"omitempty,max=100"`
	EstimatedCost     *float64  `json:"estimated_cost,omitempty" validate:"omitempty,gte=0"`
	Notes             *string   `json:"notes,omitempty"`
}

type ChangeStatusRequest struct {
	Status            Status  `json:"status" validate:"required,oneof=pending assigned in_progress waiting_parts on_hold completed cancelled"`
	Note              *string `json:"note,omitempty"`
	IsCustomerVisible bool    `json:"is_customer_visible"`
	Force             bool    `json:"force"`
}

type AssignRequest struct {
	TechnicianID int64 `json:"technician_id" validate:"required,gt=0"`
}

type PaymentRequest struct {
	FinalCost     float64       `json:"final_cost" validate:"gte=0"`
	PaymentStatus PaymentStatus `json:"payment_status" validate:"required,oneof=unpaid partial paid"`
	PaymentMethod *string       `json:"payment_method,omitempty" validate:"omitempty,oneof=cash card transfer mobile_money"`
}

type AddUpdateRequest struct {
	Title             string  `json:"title" validate:"required,max=200"`
	Description       *string `json:"description,omitempty"`
	IsCustomerVisible bool    `json:"is_customer_visible"`
}

type AddPartRequest struct {
	ProductID int64    `json:"product_id" validate:"required,gt=0"`
	Quantity  int      `json:"quantity" validate:"required,gt=0"`
	UnitCost  *float64 `json:"unit_cost,omitempty" validate:"omitempty,gte=0"`
}

type UpdateAttachmentRequest struct {
	Description       *string `json:"description,omitempty"`
	IsCustomerVisible *bool   `json:"is_customer_visible,omitempty"`
}

// UploadInput describes a file received for a request.
type UploadInput struct {
	ServiceRequestID  int64
	FileName          string
	Description       *string
	IsCustomerVisible bool
}

type ListFilter struct {
	Status       *Status    `json:"status,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	TechnicianID *int64     `json:"technician_id,omitempty"`
	CategoryID   *int64     `json:"category_id,omitempty"`
	CustomerID   *int64     `json:"customer_id,omitempty"`
	From         *time.Time `json:"from,omitempty"`
	To           *time.Time `json:"to,omitempty"`
	Search       string     `json:"search,omitempty"`
	Limit        int        `json:"limit,omitempty"`
	Offset       int        `json:"offset,omitempty"`
}
