package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/shopdesk/shopdesk/internal/inventory"
	jobmetrics "github.com/shopdesk/shopdesk/internal/jobs"
	"github.com/shopdesk/shopdesk/internal/shared"
)

// LowStockSource lists items at or below their reorder level.
type LowStockSource interface {
	LowStock(ctx context.Context) ([]inventory.Item, error)
}

// LowStockScanJob publishes the low-stock list so the dashboard can alert.
type LowStockScanJob struct {
	Stock     LowStockSource
	Publisher shared.Publisher
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// NewLowStockScanJob wires the scan handler. publisher may be nil.
func NewLowStockScanJob(stock LowStockSource, publisher shared.Publisher, logger *slog.Logger, metrics *jobmetrics.Metrics) *LowStockScanJob {
	return &LowStockScanJob{Stock: stock, Publisher: publisher, Logger: logger, Metrics: metrics}
}

type lowStockEntry struct {
	ProductID    int64  `json:"product_id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, _ *asynq.Task) (resultErr error) {
	if j == nil || j.Stock == nil {
		return errors.New("low stock scan: handler not configured")
	}
	metrics := metricsOrDefault(j.Metrics)
	tracker := metrics.Track(TaskLowStockScan)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := jobLogger(j.Logger, TaskLowStockScan)
	items, err := j.Stock.LowStock(ctx)
	if err != nil {
		logger.Error("load low stock", slog.Any("error", err))
		return err
	}
	metrics.SetLowStock(len(items))
	if len(items) == 0 {
		logger.Info("no products below reorder level")
		return nil
	}

	entries := make([]lowStockEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, lowStockEntry{
			ProductID:    item.ProductID,
			SKU:          item.SKU,
			Name:         item.ProductName,
			Quantity:     item.Quantity,
			ReorderLevel: item.ReorderLevel,
		})
	}
	logger.Warn("products below reorder level", slog.Int("count", len(entries)))
	if j.Publisher == nil {
		return nil
	}
	event := shared.Event{
		Type:    "inventory.low_stock",
		Key:     "low_stock",
		At:      now(),
		Payload: map[string]any{"count": len(entries), "items": entries},
	}
	if err := j.Publisher.Publish(ctx, event); err != nil {
		logger.Warn("publish low stock event", slog.Any("error", err))
	}
	return nil
}
