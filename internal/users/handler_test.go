package users

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopdesk/shopdesk/internal/platform/httpx"
)

func newTestRouter(repo RepositoryPort) http.Handler {
	svc, _, _ := newTestService(repo)
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Route("/api/users", h.MountRoutes)
	return r
}

func TestToggleStatusEndpoint(t *testing.T) {
	repo := newFakeRepo(User{FullName: "Abena", Email: "abena@shop.test", StaffID: "E1", Role: RoleTechnician, IsActive: true})
	router := newTestRouter(repo)

	req := httptest.NewRequest(http.MethodPost, "/api/users/1/toggle-status", strings.NewReader(`{"is_active":false}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, false, got["is_active"])
	assert.NotContains(t, got, "password_hash")
	assert.NotContains(t, got, "PasswordHash")
}

func TestCreateUserValidationProblem(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	req := httptest.NewRequest(http.MethodPost, "/api/users/", strings.NewReader(`{"full_name":"","email":"nope","staff_id":"E1","role":"boss","password":"short"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Contains(t, problem.Fields, "full_name")
	assert.Contains(t, problem.Fields, "email")
	assert.Contains(t, problem.Fields, "role")
	assert.Contains(t, problem.Fields, "password")
}

func TestGetUserNotFound(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/42", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "application/problem+json", rr.Header().Get("Content-Type"))
}

func TestListUsersRejectsUnknownRole(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/?role=owner", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListUsersEmptyIsArray(t *testing.T) {
	router := newTestRouter(newFakeRepo())

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/users/?search=zzz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}
