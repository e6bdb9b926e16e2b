package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/tiv91/intimshopbot/models"
)

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Append(ctx context.Context, order *models.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// stubCatalog serves a fixed catalog keyed by category, in insertion order.
type stubCatalog struct {
	categories []string
	products   map[string][]*models.Product
	err        error
}

func newStubCatalog() *stubCatalog {
	return &stubCatalog{products: make(map[string][]*models.Product)}
}

func (c *stubCatalog) add(category, name string, price int64) *models.Product {
	if _, ok := c.products[category]; !ok {
		c.categories = append(c.categories, category)
	}
	p := &models.Product{
		ID:        models.ProductKey(name),
		Category:  category,
		Name:      name,
		PriceText: fmt.Sprintf("%d грн", price),
		Price:     decimal.NewFromInt(price),
		HasPrice:  true,
	}
	c.products[category] = append(c.products[category], p)
	return p
}

func (c *stubCatalog) ListCategories(context.Context) ([]string, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.categories, nil
}

func (c *stubCatalog) ListProducts(_ context.Context, category string) ([]*models.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	products, ok := c.products[category]
	if !ok {
		return nil, models.ErrCategoryNotFound
	}
	return products, nil
}

func (c *stubCatalog) FindProduct(ctx context.Context, category, productID string) (*models.Product, error) {
	products, err := c.ListProducts(ctx, category)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == productID {
			return p, nil
		}
	}
	return nil, models.ErrProductNotFound
}
