package users

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/shopdesk/shopdesk/internal/querycache"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]User, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, user User) (User, error)
	Update(ctx context.Context, user User) (User, error)
	SetActive(ctx context.Context, id int64, active bool) (User, error)
}

// Service handles employee business logic.
type Service struct {
	repo   RepositoryPort
	cache  *querycache.Cache
	notify shared.Notifier
	audit  shared.AuditRecorder
	cost   int
}

// NewService builds Service instance. cache and audit may be nil.
func NewService(repo RepositoryPort, cache *querycache.Cache, notify shared.Notifier, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, cache: cache, notify: notify, audit: audit, cost: bcrypt.DefaultCost}
}

// List returns employees matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]User, error) {
	return querycache.Load(ctx, s.cache, []string{querycache.Users}, []string{"users", querycache.FilterToken(filter)},
		func(ctx context.Context) ([]User, error) {
			return s.repo.List(ctx, filter)
		})
}

// Technicians lists the active technicians available for assignment.
func (s *Service) Technicians(ctx context.Context) ([]User, error) {
	role := RoleTechnician
	active := true
	return s.List(ctx, ListFilter{Role: &role, IsActive: &active})
}

// Get returns a single employee.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create registers a new employee with a hashed password.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	if !in.Role.Valid() {
		return User{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, in.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	user := User{
		FullName:     strings.TrimSpace(in.FullName),
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		StaffID:      strings.TrimSpace(in.StaffID),
		Phone:        in.Phone,
		Role:         in.Role,
		IsActive:     true,
		PasswordHash: string(hash),
	}
	if in.IsActive != nil {
		user.IsActive = *in.IsActive
	}
	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, "user.create", created.ID, map[string]any{"role": created.Role})
	s.notify.Changed(ctx, querycache.Users)
	s.notify.Emit(ctx, "user.created", strconv.FormatInt(created.ID, 10), created)
	return created, nil
}

// Update applies the non-nil fields of in.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, err
	}
	if in.FullName != nil {
		user.FullName = strings.TrimSpace(*in.FullName)
	}
	if in.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.StaffID != nil {
		user.StaffID = strings.TrimSpace(*in.StaffID)
	}
	if in.Phone != nil {
		user.Phone = in.Phone
	}
	if in.Role != nil {
		if !in.Role.Valid() {
			return User{}, fmt.Errorf("%w: unknown role %q", shared.ErrValidation, *in.Role)
		}
		user.Role = *in.Role
	}
	if in.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), s.cost)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	updated, err := s.repo.Update(ctx, user)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, "user.update", id, nil)
	s.notify.Changed(ctx, querycache.Users)
	return updated, nil
}

// SetActive enables or disables an employee account.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (User, error) {
	user, err := s.repo.SetActive(ctx, id, active)
	if err != nil {
		return User{}, err
	}
	s.record(ctx, "user.toggle_status", id, map[string]any{"is_active": active})
	// Sales and service listings embed employee names.
	s.notify.Changed(ctx, querycache.Users, querycache.Sales, querycache.ServiceRequests)
	return user, nil
}

// CheckPassword reports whether password matches the stored hash.
func CheckPassword(user User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) == nil
}

func (s *Service) record(ctx context.Context, action string, id int64, meta map[string]any) {
	s.notify.RecordTo(ctx, s.audit, shared.AuditLog{
		ActorID:  shared.ActorFromContext(ctx),
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
