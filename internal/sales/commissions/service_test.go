package commissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	salesshared "github.com/shopdesk/shopdesk/internal/sales/shared"
	"github.com/shopdesk/shopdesk/internal/shared"
)

type memRepo struct {
	rows  map[int64]*Commission
	lines map[int64][]salesshared.CommissionLine
	bare  []SaleRef
}

func newMemRepo() *memRepo {
	return &memRepo{
		rows: map[int64]*Commission{
			1: {ID: 1, SaleID: 10, SalesPersonID: 7, SalesPersonName: "Kofi", Amount: 12.5},
			2: {ID: 2, SaleID: 11, SalesPersonID: 7, SalesPersonName: "Kofi", Amount: 0},
			3: {ID: 3, SaleID: 12, SalesPersonID: 8, SalesPersonName: "Ama", Amount: 30, IsPaid: true},
		},
		lines: map[int64][]salesshared.CommissionLine{
			11: {{TotalPrice: 200, CommissionRate: 5}, {TotalPrice: 50, CommissionRate: 10}},
			13: {{TotalPrice: 100, CommissionRate: 3}},
		},
		bare: []SaleRef{{SaleID: 13, SalesPersonID: 8}},
	}
}

func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *memRepo) List(_ context.Context, f ListFilter) ([]Commission, error) {
	out := make([]Commission, 0)
	for id := int64(1); id <= int64(len(m.rows)); id++ {
		c, ok := m.rows[id]
		if !ok {
			continue
		}
		if f.SalesPersonID != nil && c.SalesPersonID != *f.SalesPersonID {
			continue
		}
		if f.IsPaid != nil && c.IsPaid != *f.IsPaid {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (m *memRepo) Get(_ context.Context, id int64) (*Commission, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("commission: %w", shared.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) SetPaid(_ context.Context, id int64, paid bool, paidAt *time.Time) error {
	c, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("commission %d: %w", id, ErrNotFound)
	}
	c.IsPaid = paid
	c.PaymentDate = paidAt
	return nil
}

func (m *memRepo) ZeroAmount(context.Context) ([]Commission, error) {
	out := make([]Commission, 0)
	for _, c := range m.rows {
		if c.Amount == 0 {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memRepo) SalesWithoutCommission(context.Context) ([]SaleRef, error) {
	return m.bare, nil
}

func (m *memRepo) SaleLines(_ context.Context, saleID int64) ([]salesshared.CommissionLine, error) {
	return m.lines[saleID], nil
}

func (m *memRepo) SetAmount(_ context.Context, id int64, amount float64) error {
	m.rows[id].Amount = amount
	return nil
}

func (m *memRepo) Insert(_ context.Context, saleID, salesPersonID int64, amount float64) error {
	id := int64(len(m.rows) + 1)
	m.rows[id] = &Commission{ID: id, SaleID: saleID, SalesPersonID: salesPersonID, Amount: amount}
	return nil
}

type recordingPublisher struct {
	events []shared.Event
}

func (r *recordingPublisher) Publish(_ context.Context, e shared.Event) error {
	r.events = append(r.events, e)
	return nil
}

var fixedNow = time.Date(2024, 5, 31, 17, 0, 0, 0, time.UTC)

func newTestService(repo Repository) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewService(repo, nil, shared.Notifier{Publisher: pub})
	svc.now = func() time.Time { return fixedNow }
	return svc, pub
}

func TestMarkPaidSetsPaymentDate(t *testing.T) {
	repo := newMemRepo()
	svc, pub := newTestService(repo)

	got, err := svc.MarkPaid(context.Background(), 1)
	require.NoError(t, err)
	assert.True(t, got.IsPaid)
	require.NotNil(t, got.PaymentDate)
	assert.Equal(t, fixedNow, *got.PaymentDate)
	require.Len(t, pub.events, 1)
	assert.Equal(t, "commission.paid", pub.events[0].Type)
}

func TestMarkPaidKeepsOriginalDate(t *testing.T) {
	repo := newMemRepo()
	earlier := fixedNow.AddDate(0, -1, 0)
	repo.rows[3].PaymentDate = &earlier
	svc, pub := newTestService(repo)

	got, err := svc.MarkPaid(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, earlier, *got.PaymentDate)
	assert.Empty(t, pub.events)
}

func TestMarkUnpaidClearsPaymentDate(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)
	_, err := svc.MarkPaid(context.Background(), 1)
	require.NoError(t, err)

	got, err := svc.MarkUnpaid(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, got.IsPaid)
	assert.Nil(t, got.PaymentDate)
}

func TestMarkPaidNotFound(t *testing.T) {
	svc, _ := newTestService(newMemRepo())
	_, err := svc.MarkPaid(context.Background(), 99)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSyncRecomputesZeroAmountsAndCreatesMissing(t *testing.T) {
	repo := newMemRepo()
	svc, _ := newTestService(repo)

	result, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncResult{Recomputed: 1, Created: 1}, result)
	assert.InDelta(t, 15, repo.rows[2].Amount, 0.001)
	assert.InDelta(t, 3, repo.rows[4].Amount, 0.001)
	assert.InDelta(t, 12.5, repo.rows[1].Amount, 0.001, "non-zero commissions are left alone")
}

func TestSummaryGroupsPerSalesPerson(t *testing.T) {
	svc, _ := newTestService(newMemRepo())

	got, err := svc.Summary(context.Background(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ama", got[0].SalesPersonName)
	assert.InDelta(t, 30, got[0].Paid, 0.001)
	assert.Equal(t, 2, got[1].Count)
	assert.InDelta(t, 12.5, got[1].Unpaid, 0.001)
}

type stubEnqueuer struct{ calls int }

func (s *stubEnqueuer) EnqueueCommissionSync(context.Context) (string, error) {
	s.calls++
	return "task-1", nil
}

func TestSyncEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc, _ := newTestService(newMemRepo())
	r := chi.NewRouter()
	r.Route("/api/commissions", NewHandler(logger, svc, nil).MountRoutes)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/commissions/sync", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var result SyncResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Created)

	enq := &stubEnqueuer{}
	r = chi.NewRouter()
	r.Route("/api/commissions", NewHandler(logger, svc, enq).MountRoutes)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/commissions/sync", nil))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Equal(t, 1, enq.calls)
}

func TestListEndpointFilters(t *testing.T) {
	svc, _ := newTestService(newMemRepo())
	r := chi.NewRouter()
	r.Route("/api/commissions", NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, nil).MountRoutes)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/commissions/?is_paid=false&sales_person_id=7", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var got []Commission
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Len(t, got, 2)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/commissions/?is_paid=maybe", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
