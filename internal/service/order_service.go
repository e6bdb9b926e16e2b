package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tiv91/intimshopbot/internal/repositories"
	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
)

type OrderServiceInterface interface {
	SubmitOrder(ctx context.Context, userID int64, text string) (*models.Order, error)
}

type OrderService struct {
	orderRepo repositories.OrderRepositoryInterface
	sessions  repositories.SessionRepositoryInterface
	metrics   *metrics.Metrics
	now       func() time.Time
	newID     func() string
	logger    *logger.Logger
}

// NewOrderService wires order submission. m may be nil.
func NewOrderService(orderRepo repositories.OrderRepositoryInterface, sessions repositories.SessionRepositoryInterface, m *metrics.Metrics, logger *logger.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		sessions:  sessions,
		metrics:   m,
		now:       time.Now,
		newID:     uuid.NewString,
		logger:    logger.WithComponent("order_service"),
	}
}

// SubmitOrder turns the "name; phone; branch" line and the user's cart into
// an order row.
//
// Malformed input returns ErrMalformedOrderInput and changes nothing. An
// empty cart returns ErrEmptyCart and puts the user back to browsing. If the
// append fails, cart and state are kept so the user can send the line again.
func (s *OrderService) SubmitOrder(ctx context.Context, userID int64, text string) (*models.Order, error) {
	details, err := models.ParseOrderDetails(text)
	if err != nil {
		s.logger.Info("Rejected order details", "user_id", userID, "error", err)
		return nil, err
	}

	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load session for order", "user_id", userID, "error", err)
		return nil, err
	}

	if session.Cart.IsEmpty() {
		if _, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
			session.State = models.StateBrowsing
			return nil
		}); err != nil {
			s.logger.Warn("Failed to reset state after empty cart", "user_id", userID, "error", err)
		}
		return nil, models.ErrEmptyCart
	}

	order := &models.Order{
		ID:           s.newID(),
		UserID:       userID,
		CustomerName: details.Name,
		Phone:        details.Phone,
		Branch:       details.Branch,
		Items:        session.Cart.Items,
		Total:        session.Cart.Total(),
		CreatedAt:    s.now(),
	}

	if err := s.orderRepo.Append(ctx, order); err != nil {
		s.logger.Error("Failed to store order", "user_id", userID, "order_id", order.ID, "error", err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.OrdersTotal.Inc()
	}

	if _, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
		session.Cart = models.Cart{Items: []models.CartItem{}}
		session.State = models.StateBrowsing
		return nil
	}); err != nil {
		// The row is already written; report success and let the next /start reset the cart.
		s.logger.Error("Order stored but cart not cleared", "user_id", userID, "order_id", order.ID, "error", err)
	}

	s.logger.Info("Order submitted",
		"user_id", userID,
		"order_id", order.ID,
		"items", order.ItemCount(),
		"total", order.Total.String())
	return order, nil
}
