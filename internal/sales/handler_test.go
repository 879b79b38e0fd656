package sales

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
	"github.com/shopdesk/shopdesk/internal/shared"
)

func newTestRouter(f fixture) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), f.svc)
	r := chi.NewRouter()
	r.Use(shared.ActorMiddleware)
	r.Route("/api/sales", h.MountRoutes)
	return r
}

func TestCreateSaleHandler(t *testing.T) {
	f := newFixture(Config{TaxRate: 0})
	router := newTestRouter(f)

	body := `{"payment_method":"cash","items":[{"product_id":1,"quantity":2}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sales/", strings.NewReader(body))
	req.Header.Set(shared.ActorHeader, "7")
	req.Header.Set(shared.IdempotencyHeader, "till-3-42")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var got Sale
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.InDelta(t, 160, got.TotalAmount, 0.001)
	assert.Equal(t, int64(7), got.SalesPersonID)
	assert.True(t, f.idem.keys["till-3-42"])

	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/sales/", strings.NewReader(body))
	req.Header.Set(shared.ActorHeader, "7")
	req.Header.Set(shared.IdempotencyHeader, "till-3-42")
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "true", rr.Header().Get(shared.IdempotentReplayedHeader))
	var replayed Sale
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &replayed))
	assert.Equal(t, got.ID, replayed.ID)
	assert.Equal(t, got.InvoiceNumber, replayed.InvoiceNumber)
	assert.Len(t, f.repo.sales, 1)
}

func TestCreateSaleHandlerValidation(t *testing.T) {
	router := newTestRouter(newFixture(Config{}))

	req := httptest.NewRequest(http.MethodPost, "/api/sales/", strings.NewReader(`{"payment_method":"barter","items":[]}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))
	assert.Contains(t, problem.Fields, "payment_method")
	assert.Contains(t, problem.Fields, "items")
}

func TestListSalesHandlerFilters(t *testing.T) {
	f := newFixture(Config{})
	_, err := f.svc.Create(actorCtx(), CreateSaleRequest{
		PaymentMethod: PaymentCash,
		PaymentStatus: PaymentPending,
		Items:         []CreateItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	_, err = f.svc.Create(actorCtx(), CreateSaleRequest{
		PaymentMethod: PaymentCard,
		Items:         []CreateItemRequest{{ProductID: 2, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	router := newTestRouter(f)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sales/?payment_status=pending&sales_person_id=7", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got []Sale
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, PaymentPending, got[0].PaymentStatus)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sales/?from=not-a-date", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestShowAndDeleteSaleHandler(t *testing.T) {
	f := newFixture(Config{})
	sale, err := f.svc.Create(actorCtx(), CreateSaleRequest{
		PaymentMethod: PaymentCash,
		Items:         []CreateItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	router := newTestRouter(f)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sales/1", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), sale.InvoiceNumber)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/api/sales/1", nil))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/sales/1", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUpdateSaleHandler(t *testing.T) {
	f := newFixture(Config{})
	_, err := f.svc.Create(actorCtx(), CreateSaleRequest{
		PaymentMethod: PaymentCash,
		PaymentStatus: PaymentPending,
		Items:         []CreateItemRequest{{ProductID: 1, Quantity: 1}},
	}, "")
	require.NoError(t, err)
	router := newTestRouter(f)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/sales/1", strings.NewReader(`{"payment_status":"paid"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"payment_status":"paid"`)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/api/sales/abc", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
