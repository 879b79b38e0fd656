package commissions

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopdesk/shopdesk/internal/analytics"
	"github.com/shopdesk/shopdesk/internal/querycache"
	salesshared "github.com/shopdesk/shopdesk/internal/sales/shared"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// Service reads commissions and records their payment.
type Service struct {
	repo   Repository
	cache  *querycache.Cache
	notify shared.Notifier
	now    func() time.Time
}

// NewService builds the service. cache may be nil.
func NewService(repo Repository, cache *querycache.Cache, notify shared.Notifier) *Service {
	return &Service{repo: repo, cache: cache, notify: notify, now: time.Now}
}

// List returns commissions matching filter, served from the report cache
// when one is configured.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Commission, error) {
	return querycache.Load(ctx, s.cache, []string{querycache.Commissions, querycache.Sales, querycache.Users},
		[]string{"commissions", querycache.FilterToken(filter)},
		func(ctx context.Context) ([]Commission, error) {
			return s.repo.List(ctx, filter)
		})
}

// Get returns one commission with its sale and sales person.
func (s *Service) Get(ctx context.Context, id int64) (*Commission, error) {
	return s.repo.Get(ctx, id)
}

// MarkPaid flags the commission as paid today. Paying an already paid
// commission keeps the original payment date.
func (s *Service) MarkPaid(ctx context.Context, id int64) (*Commission, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.IsPaid && c.PaymentDate != nil {
		return c, nil
	}
	paidAt := s.now()
	if err := s.repo.SetPaid(ctx, id, true, &paidAt); err != nil {
		return nil, err
	}
	s.notify.Record(ctx, "commission.pay", "commission", strconv.FormatInt(id, 10), map[string]any{"amount": c.Amount})
	s.notify.Changed(ctx, querycache.Commissions)
	s.notify.Emit(ctx, "commission.paid", strconv.FormatInt(id, 10), map[string]any{
		"sales_person_id": c.SalesPersonID,
		"amount":          c.Amount,
	})
	return s.repo.Get(ctx, id)
}

// MarkUnpaid reverts a payment and clears the payment date.
func (s *Service) MarkUnpaid(ctx context.Context, id int64) (*Commission, error) {
	if err := s.repo.SetPaid(ctx, id, false, nil); err != nil {
		return nil, err
	}
	s.notify.Record(ctx, "commission.unpay", "commission", strconv.FormatInt(id, 10), nil)
	s.notify.Changed(ctx, querycache.Commissions)
	return s.repo.Get(ctx, id)
}

// Sync recomputes zero-amount commissions from their sale items and creates
// the missing row of sales that never got one.
func (s *Service) Sync(ctx context.Context) (SyncResult, error) {
	var result SyncResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		zero, err := tx.ZeroAmount(ctx)
		if err != nil {
			return err
		}
		for _, c := range zero {
			lines, err := tx.SaleLines(ctx, c.SaleID)
			if err != nil {
				return err
			}
			amount := salesshared.CommissionAmount(lines)
			if amount == 0 {
				continue
			}
			if err := tx.SetAmount(ctx, c.ID, amount); err != nil {
				return fmt.Errorf("recompute commission %d: %w", c.ID, err)
			}
			result.Recomputed++
		}

		missing, err := tx.SalesWithoutCommission(ctx)
		if err != nil {
			return err
		}
		for _, ref := range missing {
			lines, err := tx.SaleLines(ctx, ref.SaleID)
			if err != nil {
				return err
			}
			if err := tx.Insert(ctx, ref.SaleID, ref.SalesPersonID, salesshared.CommissionAmount(lines)); err != nil {
				return fmt.Errorf("create commission for sale %d: %w", ref.SaleID, err)
			}
			result.Created++
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}
	if result.Recomputed+result.Created > 0 {
		s.notify.Record(ctx, "commission.sync", "commission", "*", map[string]any{
			"recomputed": result.Recomputed,
			"created":    result.Created,
		})
		s.notify.Changed(ctx, querycache.Commissions)
	}
	return result, nil
}

// Summary groups the filtered commissions per sales person.
func (s *Service) Summary(ctx context.Context, filter ListFilter) ([]analytics.CommissionSummary, error) {
	list, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return analytics.SummarizeCommissions(Rows(list)), nil
}

// Rows converts commissions to report rows.
func Rows(list []Commission) []analytics.CommissionRow {
	rows := make([]analytics.CommissionRow, 0, len(list))
	for _, c := range list {
		amount := c.Amount
		rows = append(rows, analytics.CommissionRow{
			SalesPersonID:   c.SalesPersonID,
			SalesPersonName: c.SalesPersonName,
			Amount:          &amount,
			IsPaid:          c.IsPaid,
		})
	}
	return rows
}
