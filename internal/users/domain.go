package users

import "time"

// Role groups employees by what they do in the shop.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSales      Role = "sales"
	RoleTechnician Role = "technician"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSales, RoleTechnician:
		return true
	}
	return false
}

// User is an employee account. Accounts are never hard deleted; IsActive
// toggles them off.
type User struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	StaffID      string    `json:"staff_id"`
	Phone        *string   `json:"phone,omitempty"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListFilter narrows the employee list.
type ListFilter struct {
	Role     *Role  `json:"role,omitempty"`
	IsActive *bool  `json:"is_active,omitempty"`
	Search   string `json:"search,omitempty"`
}

// CreateInput captures a new employee.
type CreateInput struct {
	FullName string  `json:"full_name" validate:"required,max=120"`
	Email    string  `json:"email" validate:"required,email"`
	StaffID  string  `json:"staff_id" validate:"required,max=32"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     Role    `json:"role" validate:"required,oneof=admin sales technician"`
	Password string  `json:"password" validate:"required,min=8"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// UpdateInput carries the fields to change; nil leaves a column untouched.
type UpdateInput struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=120"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	StaffID  *string `json:"staff_id,omitempty" validate:"omitempty,max=32"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     *Role   `json:"role,omitempty" validate:"omitempty,oneof=admin sales technician"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// ToggleStatusInput sets the active flag.
type ToggleStatusInput struct {
	IsActive bool `json:"is_active"`
}
