package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

type CatalogRepositoryInterface interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, category string) ([]*models.Product, error)
	FindProduct(ctx context.Context, category, productID string) (*models.Product, error)
}

// Columns names the header cells of a product sheet. ID may be empty.
type Columns struct {
	ID          string
	Name        string
	Description string
	Price       string
	Photo       string
}

// CatalogRepository reads categories and products straight from the
// spreadsheet on every call.
type CatalogRepository struct {
	sheets      SpreadsheetInterface
	ordersSheet string
	columns     Columns
	currency    string
	logger      *logger.Logger
}

func NewCatalogRepository(sheets SpreadsheetInterface, ordersSheet string, columns Columns, currency string, log *logger.Logger) *CatalogRepository {
	return &CatalogRepository{
		sheets:      sheets,
		ordersSheet: ordersSheet,
		columns:     columns,
		currency:    currency,
		logger:      log.WithComponent("catalog_repository"),
	}
}

// ListCategories returns sheet titles in spreadsheet order, without the orders sheet.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]string, error) {
	titles, err := r.sheets.SheetTitles(ctx)
	if err != nil {
		r.logger.Error("Failed to list categories", "error", err)
		return nil, err
	}

	categories := make([]string, 0, len(titles))
	for _, title := range titles {
		if title == r.ordersSheet {
			continue
		}
		categories = append(categories, title)
	}

	r.logger.Debug("Listed categories", "count", len(categories))
	return categories, nil
}

// ListProducts returns the rows of one category sheet in sheet order.
// Rows with an empty name are skipped.
func (r *CatalogRepository) ListProducts(ctx context.Context, category string) ([]*models.Product, error) {
	if category == r.ordersSheet {
		return nil, fmt.Errorf("%w: %q is reserved for orders", models.ErrCategoryNotFound, category)
	}

	rows, err := r.sheets.Rows(ctx, category)
	if err != nil {
		r.logger.Warn("Failed to read category", "category", category, "error", err)
		return nil, err
	}
	if len(rows) == 0 {
		return []*models.Product{}, nil
	}

	header := indexHeader(rows[0])
	nameCol, ok := header[r.columns.Name]
	if !ok {
		r.logger.Error("Category sheet has no name column", "category", category, "column", r.columns.Name)
		return nil, fmt.Errorf("sheet %q has no %q column", category, r.columns.Name)
	}

	products := make([]*models.Product, 0, len(rows)-1)
	for i, row := range rows[1:] {
		name := cell(row, nameCol)
		if name == "" {
			continue
		}

		p := &models.Product{
			Category:    category,
			Name:        name,
			Description: cell(row, columnIndex(header, r.columns.Description)),
			PriceText:   cell(row, columnIndex(header, r.columns.Price)),
			Photo:       cell(row, columnIndex(header, r.columns.Photo)),
		}

		p.ID = cell(row, columnIndex(header, r.columns.ID))
		if p.ID == "" {
			p.ID = models.ProductKey(name)
		}

		if price, err := models.ParsePrice(p.PriceText, r.currency); err == nil {
			p.Price = price
			p.HasPrice = true
		} else {
			r.logger.Debug("Product has no usable price", "category", category, "row", i+2, "price", p.PriceText)
		}

		products = append(products, p)
	}

	r.logger.Debug("Listed products", "category", category, "count", len(products))
	return products, nil
}

// FindProduct re-reads the category and returns the product with the given key.
func (r *CatalogRepository) FindProduct(ctx context.Context, category, productID string) (*models.Product, error) {
	products, err := r.ListProducts(ctx, category)
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		if p.ID == productID {
			return p, nil
		}
	}
	r.logger.Warn("Product not found", "category", category, "product_id", productID)
	return nil, fmt.Errorf("%w: %s in %q", models.ErrProductNotFound, productID, category)
}

func indexHeader(row []interface{}) map[string]int {
	header := make(map[string]int, len(row))
	for i, v := range row {
		name := strings.TrimSpace(fmt.Sprint(v))
		if _, dup := header[name]; !dup && name != "" {
			header[name] = i
		}
	}
	return header
}

func columnIndex(header map[string]int, name string) int {
	if name == "" {
		return -1
	}
	if i, ok := header[name]; ok {
		return i
	}
	return -1
}

func cell(row []interface{}, i int) string {
	if i < 0 || i >= len(row) || row[i] == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(row[i]))
}
