package handler

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tiv91/intimshopbot/internal/chat"
	"github.com/tiv91/intimshopbot/internal/service"
	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
)

// PriceFilter is one preset button on the main menu.
type PriceFilter struct {
	Label string
	Min   int64
	Max   int64
}

type Options struct {
	Currency string
	// AdminChatID receives new-order notifications; zero disables them.
	AdminChatID  int64
	PriceFilters []PriceFilter
}

// BotHandler implements the conversation: browse, add, view cart, submit.
//
// Handlers reply to the user themselves. The returned error is for logging
// and metrics only and never needs to be shown again.
type BotHandler struct {
	catalog   service.CatalogServiceInterface
	carts     service.CartServiceInterface
	orders    service.OrderServiceInterface
	messenger chat.Messenger
	opts      Options
	metrics   *metrics.Metrics
	logger    *logger.Logger
}

func NewBotHandler(
	catalog service.CatalogServiceInterface,
	carts service.CartServiceInterface,
	orders service.OrderServiceInterface,
	messenger chat.Messenger,
	opts Options,
	m *metrics.Metrics,
	logger *logger.Logger,
) *BotHandler {
	return &BotHandler{
		catalog:   catalog,
		carts:     carts,
		orders:    orders,
		messenger: messenger,
		opts:      opts,
		metrics:   m,
		logger:    logger.WithComponent("bot_handler"),
	}
}

// Start resets the user's cart and shows categories, price filters and the cart button.
func (h *BotHandler) Start(ctx context.Context, ev chat.Event) error {
	if err := h.carts.InitCart(ctx, ev.UserID); err != nil {
		h.reply(ctx, ev.ChatID, msgTryLater)
		return err
	}

	categories, err := h.catalog.ListCategories(ctx)
	if err != nil {
		h.logger.Warn("Catalog unavailable on start", "user_id", ev.UserID, "error", err)
		if sendErr := h.messenger.SendText(ctx, chat.Message{
			ChatID:   ev.ChatID,
			Text:     msgCatalogUnavailable,
			Keyboard: mainKeyboard(nil, h.opts.PriceFilters),
		}); sendErr != nil {
			return errors.Join(err, sendErr)
		}
		return err
	}

	return h.messenger.SendText(ctx, chat.Message{
		ChatID:   ev.ChatID,
		Text:     msgChooseCategory,
		Keyboard: mainKeyboard(categories, h.opts.PriceFilters),
	})
}

// Cancel leaves checkout without touching the cart.
func (h *BotHandler) Cancel(ctx context.Context, ev chat.Event) error {
	cancelled, err := h.carts.CancelCheckout(ctx, ev.UserID)
	if err != nil {
		h.reply(ctx, ev.ChatID, msgTryLater)
		return err
	}
	if !cancelled {
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgNothingToCancel})
	}
	return h.messenger.SendText(ctx, chat.Message{
		ChatID:   ev.ChatID,
		Text:     msgCheckoutCancelled,
		Keyboard: chat.Keyboard{chat.Row(chat.Button{Text: btnCart, Data: ViewCartData()})},
	})
}

// BrowseCategory sends one card per product of the category.
func (h *BotHandler) BrowseCategory(ctx context.Context, ev chat.Event, category string) error {
	h.ack(ctx, ev, "")

	products, err := h.catalog.ListProducts(ctx, category)
	if errors.Is(err, models.ErrCategoryNotFound) {
		h.logger.Info("Unknown category requested", "user_id", ev.UserID, "category", category)
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgNoProducts})
	}
	if err != nil {
		h.reply(ctx, ev.ChatID, msgTryLater)
		return err
	}
	if len(products) == 0 {
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgNoProducts})
	}

	return h.sendProducts(ctx, ev.ChatID, products)
}

// AddToCart looks the product up by its durable key and appends it.
func (h *BotHandler) AddToCart(ctx context.Context, ev chat.Event, category, productID string) error {
	product, err := h.catalog.FindProduct(ctx, category, productID)
	switch {
	case errors.Is(err, models.ErrProductNotFound), errors.Is(err, models.ErrCategoryNotFound):
		h.logger.Info("Stale add-to-cart button", "user_id", ev.UserID, "category", category, "product_id", productID)
		h.ack(ctx, ev, msgProductUnavailable)
		return nil
	case err != nil:
		h.ack(ctx, ev, msgTryLater)
		return err
	}

	if !product.HasPrice {
		h.logger.Warn("Product without price cannot be added", "category", category, "product_id", productID, "price", product.PriceText)
		h.ack(ctx, ev, msgProductUnavailable)
		return nil
	}

	if _, err := h.carts.AddItem(ctx, ev.UserID, models.NewCartItem(product)); err != nil {
		h.ack(ctx, ev, msgTryLater)
		return err
	}

	h.ack(ctx, ev, msgAdded)
	return nil
}

// ViewCart lists the cart and asks for order details, or says the cart is empty.
func (h *BotHandler) ViewCart(ctx context.Context, ev chat.Event) error {
	h.ack(ctx, ev, "")

	cart, err := h.carts.BeginCheckout(ctx, ev.UserID)
	if errors.Is(err, models.ErrEmptyCart) {
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgCartEmpty})
	}
	if err != nil {
		h.reply(ctx, ev.ChatID, msgTryLater)
		return err
	}

	return h.messenger.SendText(ctx, chat.Message{
		ChatID:   ev.ChatID,
		Text:     cartText(cart, h.opts.Currency),
		Markdown: true,
	})
}

// HandleText routes free text: order details while checking out, ignored otherwise.
func (h *BotHandler) HandleText(ctx context.Context, ev chat.Event) error {
	state, err := h.carts.State(ctx, ev.UserID)
	if err != nil {
		h.reply(ctx, ev.ChatID, msgTryLater)
		return err
	}
	if state != models.StateAwaitingOrderDetails {
		h.logger.Debug("Ignoring free text while browsing", "user_id", ev.UserID)
		return nil
	}
	return h.SubmitOrderText(ctx, ev)
}

// SubmitOrderText parses "name; phone; branch", stores the order and
// notifies the administrator.
func (h *BotHandler) SubmitOrderText(ctx context.Context, ev chat.Event) error {
	order, err := h.orders.SubmitOrder(ctx, ev.UserID, ev.Text)
	switch {
	case errors.Is(err, models.ErrMalformedOrderInput):
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgMalformedOrder, Markdown: true})
	case errors.Is(err, models.ErrEmptyCart):
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgCartEmpty})
	case err != nil:
		h.reply(ctx, ev.ChatID, msgOrderFailed)
		return err
	}

	if err := h.messenger.SendText(ctx, chat.Message{
		ChatID:   ev.ChatID,
		Text:     fmt.Sprintf(msgOrderAccepted, order.ID),
		Markdown: true,
	}); err != nil {
		h.logger.Warn("Failed to confirm order to customer", "order_id", order.ID, "error", err)
	}

	h.notifyAdmin(ctx, order)
	return nil
}

// FilterByPrice shows every priced product within [min, max] across all categories.
func (h *BotHandler) FilterByPrice(ctx context.Context, ev chat.Event, min, max int64) error {
	h.ack(ctx, ev, "")

	products, err := h.catalog.FilterByPrice(ctx, decimal.NewFromInt(min), decimal.NewFromInt(max))
	if err != nil {
		h.reply(ctx, ev.ChatID, msgTryLater)
		return err
	}
	if len(products) == 0 {
		return h.messenger.SendText(ctx, chat.Message{ChatID: ev.ChatID, Text: msgNoProductsInRange})
	}

	return h.sendProducts(ctx, ev.ChatID, products)
}

// Unknown answers buttons this version no longer understands.
func (h *BotHandler) Unknown(ctx context.Context, ev chat.Event) error {
	h.logger.Info("Unknown callback", "user_id", ev.UserID, "data", ev.Data)
	h.ack(ctx, ev, msgUnknownAction)
	return nil
}

func (h *BotHandler) sendProducts(ctx context.Context, chatID int64, products []*models.Product) error {
	for _, p := range products {
		if err := h.sendProduct(ctx, chatID, p); err != nil {
			return err
		}
	}
	return nil
}

// sendProduct sends a photo card and falls back to text when there is no
// photo or Telegram refuses it.
func (h *BotHandler) sendProduct(ctx context.Context, chatID int64, p *models.Product) error {
	caption := productCaption(p)
	keyboard := productKeyboard(p)

	if p.Photo != "" {
		err := h.messenger.SendPhoto(ctx, chat.Photo{
			ChatID:   chatID,
			URL:      p.Photo,
			Caption:  caption,
			Markdown: true,
			Keyboard: keyboard,
		})
		if err == nil {
			return nil
		}
		h.logger.Warn("Photo failed, sending text card", "product", p.Name, "photo", p.Photo, "error", err)
		if h.metrics != nil {
			h.metrics.PhotoFallbacksTotal.Inc()
		}
	}

	return h.messenger.SendText(ctx, chat.Message{
		ChatID:   chatID,
		Text:     caption,
		Markdown: true,
		Keyboard: keyboard,
	})
}

func (h *BotHandler) notifyAdmin(ctx context.Context, order *models.Order) {
	if h.opts.AdminChatID == 0 {
		return
	}
	text := fmt.Sprintf(msgAdminOrder,
		order.CustomerName,
		order.Phone,
		order.Branch,
		order.ItemCount(),
		models.FormatPrice(order.Total, h.opts.Currency),
		order.ID)
	if err := h.messenger.SendText(ctx, chat.Message{ChatID: h.opts.AdminChatID, Text: text}); err != nil {
		h.logger.Error("Failed to notify administrator", "order_id", order.ID, "error", err)
	}
}

func (h *BotHandler) ack(ctx context.Context, ev chat.Event, text string) {
	if ev.CallbackID == "" {
		return
	}
	if err := h.messenger.AnswerCallback(ctx, ev.CallbackID, text); err != nil {
		h.logger.Debug("Failed to answer callback", "callback_id", ev.CallbackID, "error", err)
	}
}

func (h *BotHandler) reply(ctx context.Context, chatID int64, text string) {
	if err := h.messenger.SendText(ctx, chat.Message{ChatID: chatID, Text: text}); err != nil {
		h.logger.Warn("Failed to send reply", "chat_id", chatID, "error", err)
	}
}
