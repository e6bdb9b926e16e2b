package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

func TestOrderRepository_Append(t *testing.T) {
	fake := newFakeSheets()
	repo := NewOrderRepository(fake, "ЗАМОВЛЕННЯ", "грн", logger.Discard())

	order := &models.Order{
		ID:           "o-1",
		CustomerName: "Олена",
		Phone:        "+380501112233",
		Branch:       "12",
		Items: []models.CartItem{
			{ProductID: "a", Name: "Комплект", UnitPrice: decimal.NewFromInt(450), Quantity: 1},
			{ProductID: "b", Name: "Маска", UnitPrice: decimal.NewFromInt(150), Quantity: 1},
		},
		Total:     decimal.NewFromInt(600),
		CreatedAt: time.Date(2024, 3, 8, 14, 5, 9, 0, time.UTC),
	}

	require.NoError(t, repo.Append(context.Background(), order))

	rows := fake.appended["ЗАМОВЛЕННЯ"]
	require.Len(t, rows, 1)
	assert.Equal(t, []interface{}{
		"Олена",
		"+380501112233",
		"12",
		"Комплект (450 грн); Маска (150 грн)",
		"600 грн",
		"2024-03-08 14:05:09",
	}, rows[0])
}

func TestOrderRepository_AppendFailure(t *testing.T) {
	fake := newFakeSheets()
	fake.err = models.ErrStoreUnavailable
	repo := NewOrderRepository(fake, "ЗАМОВЛЕННЯ", "грн", logger.Discard())

	err := repo.Append(context.Background(), &models.Order{ID: "o-2"})
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
