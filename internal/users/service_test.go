package users

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopdesk/shopdesk/internal/shared"
)

type fakeRepo struct {
	mu     sync.Mutex
	users  map[int64]User
	nextID int64
}

func newFakeRepo(seed ...User) *fakeRepo {
	repo := &fakeRepo{users: map[int64]User{}, nextID: 1}
	for _, u := range seed {
		_, _ = repo.Create(context.Background(), u)
	}
	return repo
}

func (f *fakeRepo) List(_ context.Context, filter ListFilter) ([]User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]User, 0)
	for _, u := range f.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if filter.Search != "" && !shared.AnyContainsFold(filter.Search, u.FullName, u.Email, u.StaffID) {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeRepo) Get(_ context.Context, id int64) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return User{}, fmt.Errorf("user: %w", shared.ErrNotFound)
	}
	return u, nil
}

func (f *fakeRepo) Create(_ context.Context, user User) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if strings.EqualFold(u.Email, user.Email) || u.StaffID == user.StaffID {
			return User{}, fmt.Errorf("create user: %w (users_email_key)", shared.ErrDuplicate)
		}
	}
	user.ID = f.nextID
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeRepo) Update(_ context.Context, user User) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return User{}, fmt.Errorf("update user: %w", shared.ErrNotFound)
	}
	user.UpdatedAt = time.Now()
	f.users[user.ID] = user
	return user, nil
}

func (f *fakeRepo) SetActive(_ context.Context, id int64, active bool) (User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return User{}, fmt.Errorf("user: %w", shared.ErrNotFound)
	}
	u.IsActive = active
	f.users[id] = u
	return u, nil
}

type spyInvalidator struct {
	resources []string
}

func (s *spyInvalidator) Invalidate(_ context.Context, resources ...string) error {
	s.resources = append(s.resources, resources...)
	return nil
}

type spyAudit struct {
	logs []shared.AuditLog
	err  error
}

func (s *spyAudit) Record(_ context.Context, log shared.AuditLog) error {
	s.logs = append(s.logs, log)
	return s.err
}

func newTestService(repo RepositoryPort) (*Service, *spyInvalidator, *spyAudit) {
	inv := &spyInvalidator{}
	audit := &spyAudit{}
	svc := NewService(repo, nil, shared.Notifier{Cache: inv}, audit)
	svc.cost = bcrypt.MinCost
	return svc, inv, audit
}

func TestCreateHashesPasswordAndNormalisesEmail(t *testing.T) {
	svc, inv, audit := newTestService(newFakeRepo())

	user, err := svc.Create(context.Background(), CreateInput{
		FullName: " Ama Mensah ",
		Email:    "AMA@Shop.test",
		StaffID:  "EMP-001",
		Role:     RoleSales,
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ama Mensah", user.FullName)
	assert.Equal(t, "ama@shop.test", user.Email)
	assert.True(t, user.IsActive)
	assert.NotEqual(t, "s3cret-pass", user.PasswordHash)
	assert.True(t, CheckPassword(user, "s3cret-pass"))
	assert.False(t, CheckPassword(user, "wrong"))
	assert.Contains(t, inv.resources, "users")
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "user.create", audit.logs[0].Action)
}

func TestAuditFailureIsLoggedNotReturned(t *testing.T) {
	var buf bytes.Buffer
	audit := &spyAudit{err: errors.New("audit_logs: connection refused")}
	svc := NewService(newFakeRepo(), nil, shared.Notifier{Logger: slog.New(slog.NewTextHandler(&buf, nil))}, audit)
	svc.cost = bcrypt.MinCost

	user, err := svc.Create(context.Background(), CreateInput{
		FullName: "Yaw Darko",
		Email:    "yaw@shop.test",
		StaffID:  "TEC-001",
		Role:     RoleTechnician,
		Password: "s3cret-pass",
	})
	require.NoError(t, err)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, fmt.Sprint(user.ID), audit.logs[0].EntityID)
	assert.Contains(t, buf.String(), "audit record failed")
	assert.Contains(t, buf.String(), "connection refused")
}

func TestCreateDuplicateEmail(t *testing.T) {
	repo := newFakeRepo(User{FullName: "Kojo", Email: "kojo@shop.test", StaffID: "EMP-1", Role: RoleAdmin})
	svc, _, _ := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		FullName: "Other", Email: "KOJO@shop.test", StaffID: "EMP-2", Role: RoleSales, Password: "longenough",
	})
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestCreateRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(newFakeRepo())
	_, err := svc.Create(context.Background(), CreateInput{
		FullName: "X", Email: "x@shop.test", StaffID: "E", Role: Role("manager"), Password: "longenough",
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTechniciansOnlyActive(t *testing.T) {
	repo := newFakeRepo(
		User{FullName: "Tech A", Email: "a@shop.test", StaffID: "T1", Role: RoleTechnician, IsActive: true},
		User{FullName: "Tech B", Email: "b@shop.test", StaffID: "T2", Role: RoleTechnician, IsActive: false},
		User{FullName: "Seller", Email: "c@shop.test", StaffID: "S1", Role: RoleSales, IsActive: true},
	)
	svc, _, _ := newTestService(repo)

	techs, err := svc.Technicians(context.Background())
	require.NoError(t, err)
	require.Len(t, techs, 1)
	assert.Equal(t, "Tech A", techs[0].FullName)
}

func TestSetActiveInvalidatesDependentListings(t *testing.T) {
	repo := newFakeRepo(User{FullName: "Esi", Email: "esi@shop.test", StaffID: "E1", Role: RoleSales, IsActive: true})
	svc, inv, audit := newTestService(repo)

	user, err := svc.SetActive(context.Background(), 1, false)
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	assert.ElementsMatch(t, []string{"users", "sales", "service_requests"}, inv.resources)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, false, audit.logs[0].Meta["is_active"])

	_, err = svc.SetActive(context.Background(), 99, true)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestUpdateKeepsUntouchedFields(t *testing.T) {
	repo := newFakeRepo(User{FullName: "Yaw", Email: "yaw@shop.test", StaffID: "E9", Role: RoleSales, PasswordHash: "h"})
	svc, _, _ := newTestService(repo)

	role := RoleAdmin
	updated, err := svc.Update(context.Background(), 1, UpdateInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, updated.Role)
	assert.Equal(t, "Yaw", updated.FullName)
	assert.Equal(t, "h", updated.PasswordHash)
}
