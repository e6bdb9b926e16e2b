package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tiv91/intimshopbot/internal/repositories"
	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

type CatalogServiceInterface interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, category string) ([]*models.Product, error)
	FindProduct(ctx context.Context, category, productID string) (*models.Product, error)
	FilterByPrice(ctx context.Context, min, max decimal.Decimal) ([]*models.Product, error)
}

type CatalogService struct {
	catalogRepo repositories.CatalogRepositoryInterface
	logger      *logger.Logger
}

func NewCatalogService(catalogRepo repositories.CatalogRepositoryInterface, logger *logger.Logger) *CatalogService {
	return &CatalogService{
		catalogRepo: catalogRepo,
		logger:      logger.WithComponent("catalog_service"),
	}
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]string, error) {
	return s.catalogRepo.ListCategories(ctx)
}

func (s *CatalogService) ListProducts(ctx context.Context, category string) ([]*models.Product, error) {
	return s.catalogRepo.ListProducts(ctx, category)
}

func (s *CatalogService) FindProduct(ctx context.Context, category, productID string) (*models.Product, error) {
	return s.catalogRepo.FindProduct(ctx, category, productID)
}

// FilterByPrice scans every category and keeps priced products within
// [min, max], in category order then sheet order.
func (s *CatalogService) FilterByPrice(ctx context.Context, min, max decimal.Decimal) ([]*models.Product, error) {
	categories, err := s.catalogRepo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	var matched []*models.Product
	for _, category := range categories {
		products, err := s.catalogRepo.ListProducts(ctx, category)
		if errors.Is(err, models.ErrCategoryNotFound) {
			// Sheet removed between listing and reading.
			s.logger.Warn("Category disappeared during filter", "category", category)
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, p := range products {
			if p.InRange(min, max) {
				matched = append(matched, p)
			}
		}
	}

	s.logger.Debug("Filtered products by price",
		"min", min.String(),
		"max", max.String(),
		"categories", len(categories),
		"matched", len(matched))
	return matched, nil
}
