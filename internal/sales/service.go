package sales

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopdesk/shopdesk/internal/inventory"
	"github.com/shopdesk/shopdesk/internal/querycache"
	salesshared "github.com/shopdesk/shopdesk/internal/sales/shared"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// RepositoryPort abstracts persistence for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (*Sale, error)
	List(ctx context.Context, req ListSalesRequest) ([]Sale, error)
	ItemsBetween(ctx context.Context, from, to time.Time) ([]SaleItem, error)
	Update(ctx context.Context, id int64, updates map[string]interface{}) error
}

// IdempotencyGuard records client supplied request keys and the result
// they produced.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Result(ctx context.Context, key, module string) (string, error)
	Delete(ctx context.Context, key string) error
}

// Config carries the pricing settings.
type Config struct {
	TaxRate            float64
	AllowNegativeStock bool
}

// Service provides business logic for POS sales.
type Service struct {
	repo   RepositoryPort
	idem   IdempotencyGuard
	cache  *querycache.Cache
	notify shared.Notifier
	cfg    Config
	now    func() time.Time
}

// NewService constructs a sales service. idem may be nil.
func NewService(repo RepositoryPort, idem IdempotencyGuard, cache *querycache.Cache, notify shared.Notifier, cfg Config) *Service {
	return &Service{repo: repo, idem: idem, cache: cache, notify: notify, cfg: cfg, now: time.Now}
}

const idempotencyModule = "sales.create"

// NewInvoiceNumber formats INV-YYYYMMDD-XXXXXX.
func NewInvoiceNumber(at time.Time) string {
	return "INV-" + at.Format("20060102") + "-" + documentSuffix()
}

func documentSuffix() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}

// ============================================================================
// READS
// ============================================================================

// List returns sales matching the request.
func (s *Service) List(ctx context.Context, req ListSalesRequest) ([]Sale, error) {
	return querycache.Load(ctx, s.cache, []string{querycache.Sales, querycache.Customers, querycache.Users},
		[]string{"sales", querycache.FilterToken(req)},
		func(ctx context.Context) ([]Sale, error) {
			return s.repo.List(ctx, req)
		})
}

// Get returns a sale with its items.
func (s *Service) Get(ctx context.Context, id int64) (*Sale, error) {
	return s.repo.Get(ctx, id)
}

// ItemsBetween returns the sale lines of the period, used by reports.
func (s *Service) ItemsBetween(ctx context.Context, from, to time.Time) ([]SaleItem, error) {
	return querycache.Load(ctx, s.cache, []string{querycache.Sales, querycache.Products},
		[]string{"sale-items", from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339)},
		func(ctx context.Context) ([]SaleItem, error) {
			return s.repo.ItemsBetween(ctx, from, to)
		})
}

// ============================================================================
// WRITES
// ============================================================================

// Create records a sale with its lines, the commission row and the stock
// decrement in one transaction. See CreateOrReplay for idempotencyKey.
func (s *Service) Create(ctx context.Context, req CreateSaleRequest, idempotencyKey string) (*Sale, error) {
	sale, _, err := s.CreateOrReplay(ctx, req, idempotencyKey)
	return sale, err
}

// CreateOrReplay is Create that also reports whether the sale was replayed.
// A retry carrying an already committed idempotencyKey returns the sale of
// the first request instead of creating a second one. A retry that races the
// first request before it commits fails with a conflict.
func (s *Service) CreateOrReplay(ctx context.Context, req CreateSaleRequest, idempotencyKey string) (*Sale, bool, error) {
	sale, err := s.create(ctx, req, idempotencyKey)
	if errors.Is(err, shared.ErrIdempotencyConflict) {
		sale, err = s.replay(ctx, idempotencyKey)
		return sale, err == nil, err
	}
	return sale, false, err
}

func (s *Service) replay(ctx context.Context, key string) (*Sale, error) {
	ref, err := s.idem.Result(ctx, key, idempotencyModule)
	if err != nil {
		if errors.Is(err, shared.ErrIdempotencyConflict) {
			return nil, fmt.Errorf("%w: idempotency key %q belongs to another request", shared.ErrConflict, key)
		}
		return nil, fmt.Errorf("idempotency lookup: %w", err)
	}
	if ref == "" {
		return nil, fmt.Errorf("%w: request with idempotency key %q is still processing", shared.ErrConflict, key)
	}
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("idempotency result %q: %w", ref, err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) create(ctx context.Context, req CreateSaleRequest, idempotencyKey string) (*Sale, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: a sale needs at least one item", ErrValidation)
	}
	if !req.PaymentMethod.Valid() {
		return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, req.PaymentMethod)
	}
	if req.PaymentStatus == "" {
		req.PaymentStatus = PaymentPaid
	}
	if !req.PaymentStatus.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, req.PaymentStatus)
	}
	actorID := shared.ActorFromContext(ctx)
	if req.SalesPersonID == 0 {
		req.SalesPersonID = actorID
	}
	if req.SalesPersonID <= 0 {
		return nil, fmt.Errorf("%w: sales person is required", ErrValidation)
	}

	if idempotencyKey != "" && s.idem != nil {
		if err := s.idem.CheckAndInsert(ctx, idempotencyKey, idempotencyModule); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				return nil, err
			}
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
	}

	saleDate := s.now()
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}

	var saleID int64
	var invoice string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		ids := make([]int64, 0, len(req.Items))
		for _, it := range req.Items {
			ids = append(ids, it.ProductID)
		}
		products, err := tx.LookupProducts(ctx, ids)
		if err != nil {
			return err
		}

		items, subtotal, err := priceItems(req.Items, products)
		if err != nil {
			return err
		}
		if req.DiscountAmount > subtotal {
			return fmt.Errorf("%w: discount %.2f exceeds subtotal %.2f", ErrValidation, req.DiscountAmount, subtotal)
		}
		discount := salesshared.RoundTo2(req.DiscountAmount)
		tax := salesshared.CalculateTax(subtotal-discount, s.cfg.TaxRate)

		sale := Sale{
			InvoiceNumber:  NewInvoiceNumber(saleDate),
			SaleDate:       saleDate,
			CustomerID:     req.CustomerID,
			SalesPersonID:  req.SalesPersonID,
			Subtotal:       subtotal,
			TaxAmount:      tax,
			DiscountAmount: discount,
			TotalAmount:    salesshared.RoundTo2(subtotal - discount + tax),
			PaymentMethod:  req.PaymentMethod,
			PaymentStatus:  req.PaymentStatus,
			Notes:          req.Notes,
		}
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return fmt.Errorf("create sale: %w", err)
		}
		saleID, invoice = id, sale.InvoiceNumber

		lines := make([]salesshared.CommissionLine, 0, len(items))
		for _, item := range items {
			item.SaleID = saleID
			if _, err := tx.InsertItem(ctx, item); err != nil {
				return fmt.Errorf("insert sale item: %w", err)
			}
			lines = append(lines, salesshared.CommissionLine{TotalPrice: item.TotalPrice, CommissionRate: item.CommissionRate})

			_, err := inventory.ApplyMovement(ctx, tx.Stock(), inventory.MoveInput{
				ProductID: item.ProductID,
				Change:    -item.Quantity,
				Reason:    inventory.ReasonSale,
				RefType:   "sale",
				RefID:     strconv.FormatInt(saleID, 10),
				Note:      sale.InvoiceNumber,
				ActorID:   actorID,
			}, s.cfg.AllowNegativeStock)
			if err != nil && !errors.Is(err, inventory.ErrNotTracked) {
				return fmt.Errorf("decrement stock for product %d: %w", item.ProductID, err)
			}
		}

		if err := tx.InsertCommission(ctx, CommissionRow{
			SaleID:        saleID,
			SalesPersonID: req.SalesPersonID,
			Amount:        salesshared.CommissionAmount(lines),
		}); err != nil {
			return err
		}
		if idempotencyKey != "" && s.idem != nil {
			return tx.SaveIdempotencyResult(ctx, idempotencyKey, saleID)
		}
		return nil
	})
	if err != nil {
		if idempotencyKey != "" && s.idem != nil {
			_ = s.idem.Delete(ctx, idempotencyKey)
		}
		return nil, err
	}

	s.notify.Record(ctx, "sale.create", "sale", strconv.FormatInt(saleID, 10), map[string]any{"invoice_number": invoice})
	s.notify.Changed(ctx, querycache.Sales, querycache.Commissions, querycache.Inventory)
	s.notify.Emit(ctx, "sale.created", invoice, map[string]any{"sale_id": saleID})
	return s.repo.Get(ctx, saleID)
}

// priceItems resolves prices and commission rates from the catalogue.
func priceItems(reqs []CreateItemRequest, products map[int64]ProductRef) ([]SaleItem, float64, error) {
	items := make([]SaleItem, 0, len(reqs))
	var subtotal float64
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, 0, fmt.Errorf("%w: quantity must be positive", ErrValidation)
		}
		if r.DiscountPercent < 0 || r.DiscountPercent > 100 {
			return nil, 0, fmt.Errorf("%w: discount percent must be between 0 and 100", ErrValidation)
		}
		p, ok := products[r.ProductID]
		if !ok {
			return nil, 0, fmt.Errorf("%w: product %d does not exist", ErrValidation, r.ProductID)
		}
		if !p.IsActive {
			return nil, 0, fmt.Errorf("%w: %s: %w", ErrValidation, p.Name, ErrProductInactive)
		}
		price := p.SellingPrice
		if r.UnitPrice != nil {
			price = *r.UnitPrice
		}
		_, total := salesshared.CalculateLineTotals(r.Quantity, price, r.DiscountPercent)
		items = append(items, SaleItem{
			ProductID:       p.ID,
			ProductName:     p.Name,
			Quantity:        r.Quantity,
			UnitPrice:       price,
			DiscountPercent: r.DiscountPercent,
			CommissionRate:  p.CommissionRate,
			TotalPrice:      total,
		})
		subtotal += total
	}
	return items, salesshared.RoundTo2(subtotal), nil
}

// Update changes the payment fields and notes of a sale.
func (s *Service) Update(ctx context.Context, id int64, req UpdateSaleRequest) (*Sale, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	updates := make(map[string]interface{})
	if req.PaymentMethod != nil {
		if !req.PaymentMethod.Valid() {
			return nil, fmt.Errorf("%w: unknown payment method %q", ErrValidation, *req.PaymentMethod)
		}
		updates["payment_method"] = string(*req.PaymentMethod)
	}
	if req.PaymentStatus != nil {
		if !req.PaymentStatus.Valid() {
			return nil, fmt.Errorf("%w: unknown payment status %q", ErrValidation, *req.PaymentStatus)
		}
		updates["payment_status"] = string(*req.PaymentStatus)
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if len(updates) == 0 {
		return existing, nil
	}
	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}
	s.notify.Record(ctx, "sale.update", "sale", strconv.FormatInt(id, 10), updates)
	s.notify.Changed(ctx, querycache.Sales)
	return s.repo.Get(ctx, id)
}

// Delete removes a sale with its items and commission and returns the sold
// quantities to stock.
func (s *Service) Delete(ctx context.Context, id int64) error {
	actorID := shared.ActorFromContext(ctx)
	ref := strconv.FormatInt(id, 10)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		items, err := tx.ListItems(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.DeleteSale(ctx, id); err != nil {
			return err
		}
		for _, item := range items {
			_, err := inventory.ApplyMovement(ctx, tx.Stock(), inventory.MoveInput{
				ProductID: item.ProductID,
				Change:    item.Quantity,
				Reason:    inventory.ReasonSaleVoid,
				RefType:   "sale",
				RefID:     ref,
				ActorID:   actorID,
			}, true)
			if err != nil && !errors.Is(err, inventory.ErrNotTracked) {
				return fmt.Errorf("restore stock for product %d: %w", item.ProductID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify.Record(ctx, "sale.delete", "sale", ref, nil)
	s.notify.Changed(ctx, querycache.Sales, querycache.Commissions, querycache.Inventory)
	s.notify.Emit(ctx, "sale.deleted", ref, nil)
	return nil
}
