package service

import (
	"context"

	"github.com/tiv91/intimshopbot/internal/repositories"
	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

// CartServiceInterface owns the per-user cart and conversation state.
type CartServiceInterface interface {
	InitCart(ctx context.Context, userID int64) error
	AddItem(ctx context.Context, userID int64, item models.CartItem) (*models.Cart, error)
	GetCart(ctx context.Context, userID int64) (*models.Cart, error)
	ClearCart(ctx context.Context, userID int64) error
	BeginCheckout(ctx context.Context, userID int64) (*models.Cart, error)
	CancelCheckout(ctx context.Context, userID int64) (bool, error)
	State(ctx context.Context, userID int64) (models.ConversationState, error)
}

type CartService struct {
	sessions repositories.SessionRepositoryInterface
	logger   *logger.Logger
}

func NewCartService(sessions repositories.SessionRepositoryInterface, logger *logger.Logger) *CartService {
	return &CartService{
		sessions: sessions,
		logger:   logger.WithComponent("cart_service"),
	}
}

// InitCart discards whatever the user had and starts browsing afresh.
func (s *CartService) InitCart(ctx context.Context, userID int64) error {
	_, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
		session.Cart = models.Cart{Items: []models.CartItem{}}
		session.State = models.StateBrowsing
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to init cart", "user_id", userID, "error", err)
		return err
	}
	s.logger.Debug("Cart initialised", "user_id", userID)
	return nil
}

// AddItem appends one line. Adding the same product twice gives two lines.
func (s *CartService) AddItem(ctx context.Context, userID int64, item models.CartItem) (*models.Cart, error) {
	if item.Quantity <= 0 {
		item.Quantity = 1
	}

	session, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
		session.Cart.Items = append(session.Cart.Items, item)
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to add item", "user_id", userID, "product_id", item.ProductID, "error", err)
		return nil, err
	}

	s.logger.Info("Item added to cart",
		"user_id", userID,
		"product_id", item.ProductID,
		"items", len(session.Cart.Items))
	return &session.Cart, nil
}

func (s *CartService) GetCart(ctx context.Context, userID int64) (*models.Cart, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load cart", "user_id", userID, "error", err)
		return nil, err
	}
	return &session.Cart, nil
}

func (s *CartService) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
		session.Cart = models.Cart{Items: []models.CartItem{}}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to clear cart", "user_id", userID, "error", err)
	}
	return err
}

// BeginCheckout moves a non-empty cart into awaiting_order_details and
// returns it. An empty cart yields ErrEmptyCart and leaves the state alone.
func (s *CartService) BeginCheckout(ctx context.Context, userID int64) (*models.Cart, error) {
	session, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
		if session.Cart.IsEmpty() {
			return models.ErrEmptyCart
		}
		session.State = models.StateAwaitingOrderDetails
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Checkout started", "user_id", userID, "items", len(session.Cart.Items))
	return &session.Cart, nil
}

// CancelCheckout returns to browsing and reports whether checkout was in progress.
func (s *CartService) CancelCheckout(ctx context.Context, userID int64) (bool, error) {
	var wasAwaiting bool
	_, err := s.sessions.Update(ctx, userID, func(session *models.Session) error {
		wasAwaiting = session.State == models.StateAwaitingOrderDetails
		session.State = models.StateBrowsing
		return nil
	})
	if err != nil {
		return false, err
	}
	return wasAwaiting, nil
}

func (s *CartService) State(ctx context.Context, userID int64) (models.ConversationState, error) {
	session, err := s.sessions.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	return session.State, nil
}
