package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tiv91/intimshopbot/internal/repositories"
	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
	"github.com/tiv91/intimshopbot/pkg/metrics"
)

type orderFixture struct {
	orders   *mockOrderRepository
	sessions *repositories.MemorySessionRepository
	carts    *CartService
	svc      *OrderService
	metrics  *metrics.Metrics
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		orders:   &mockOrderRepository{},
		sessions: repositories.NewMemorySessionRepository(logger.Discard()),
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
	f.carts = NewCartService(f.sessions, logger.Discard())
	f.svc = NewOrderService(f.orders, f.sessions, f.metrics, logger.Discard())
	f.svc.now = func() time.Time { return time.Date(2024, 3, 8, 14, 5, 9, 0, time.UTC) }
	f.svc.newID = func() string { return "order-1" }
	return f
}

func (f *orderFixture) fillCart(t *testing.T, userID int64, items ...models.CartItem) {
	t.Helper()
	for _, it := range items {
		_, err := f.carts.AddItem(context.Background(), userID, it)
		require.NoError(t, err)
	}
	_, err := f.carts.BeginCheckout(context.Background(), userID)
	require.NoError(t, err)
}

func TestOrderService_SubmitOrder(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1, item("Widget", 150), item("Gadget", 450))

	f.orders.On("Append", mock.Anything, mock.MatchedBy(func(o *models.Order) bool {
		row := o.Row("грн")
		return row[0] == "Jane Doe" &&
			row[1] == "0501234567" &&
			row[2] == "Branch 12" &&
			row[3] == "Widget (150 грн); Gadget (450 грн)" &&
			row[4] == "600 грн" &&
			row[5] == "2024-03-08 14:05:09"
	})).Return(nil).Once()

	order, err := f.svc.SubmitOrder(ctx, 1, "Jane Doe; 0501234567; Branch 12")
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, 2, order.ItemCount())
	f.orders.AssertExpectations(t)

	cart, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())

	state, err := f.carts.State(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateBrowsing, state)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.OrdersTotal))
}

func TestOrderService_MalformedInputChangesNothing(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1, item("Widget", 150))

	for _, text := range []string{"Jane Doe; 0501234567", "just a name", " ; ; ", "Jane; ; 12"} {
		_, err := f.svc.SubmitOrder(ctx, 1, text)
		assert.ErrorIs(t, err, models.ErrMalformedOrderInput, text)
	}

	f.orders.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)

	cart, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	state, err := f.carts.State(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingOrderDetails, state)
}

func TestOrderService_ExtraFieldsAreIgnored(t *testing.T) {
	f := newOrderFixture(t)
	f.fillCart(t, 1, item("Widget", 150))
	f.orders.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	order, err := f.svc.SubmitOrder(context.Background(), 1, "Jane; 050; 12; please hurry")
	require.NoError(t, err)
	assert.Equal(t, "12", order.Branch)
}

func TestOrderService_EmptyCart(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()

	_, err := f.sessions.Update(ctx, 1, func(s *models.Session) error {
		s.State = models.StateAwaitingOrderDetails
		return nil
	})
	require.NoError(t, err)

	_, err = f.svc.SubmitOrder(ctx, 1, "Jane; 050; 12")
	assert.ErrorIs(t, err, models.ErrEmptyCart)
	f.orders.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)

	state, err := f.carts.State(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateBrowsing, state)
}

func TestOrderService_AppendFailureKeepsCart(t *testing.T) {
	f := newOrderFixture(t)
	ctx := context.Background()
	f.fillCart(t, 1, item("Widget", 150))
	f.orders.On("Append", mock.Anything, mock.Anything).Return(models.ErrStoreUnavailable).Once()

	_, err := f.svc.SubmitOrder(ctx, 1, "Jane; 050; 12")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)

	cart, err := f.carts.GetCart(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)

	state, err := f.carts.State(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, models.StateAwaitingOrderDetails, state)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.OrdersTotal))
}
