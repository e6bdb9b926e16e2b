package repositories

import (
	"context"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

type OrderRepositoryInterface interface {
	Append(ctx context.Context, order *models.Order) error
}

// OrderRepository appends orders to the reserved orders sheet. There is no
// idempotency key: calling Append twice writes two rows.
type OrderRepository struct {
	sheets      SpreadsheetInterface
	ordersSheet string
	currency    string
	logger      *logger.Logger
}

func NewOrderRepository(sheets SpreadsheetInterface, ordersSheet, currency string, log *logger.Logger) *OrderRepository {
	return &OrderRepository{
		sheets:      sheets,
		ordersSheet: ordersSheet,
		currency:    currency,
		logger:      log.WithComponent("order_repository"),
	}
}

// Append writes [name, phone, branch, items, total, timestamp] as a new row.
func (r *OrderRepository) Append(ctx context.Context, order *models.Order) error {
	if err := r.sheets.AppendRow(ctx, r.ordersSheet, order.Row(r.currency)); err != nil {
		r.logger.Error("Failed to append order", "order_id", order.ID, "error", err)
		return err
	}
	r.logger.Info("Appended order",
		"order_id", order.ID,
		"customer", order.CustomerName,
		"items", len(order.Items),
		"total", order.Total.String())
	return nil
}
