package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tiv91/intimshopbot/models"
	"github.com/tiv91/intimshopbot/pkg/logger"
)

var testColumns = Columns{
	ID:          "ID",
	Name:        "НАЗВА",
	Description: "ОПИС",
	Price:       "ЦІНА",
	Photo:       "ФОТО",
}

func newTestCatalog(t *testing.T) (*CatalogRepository, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	fake.addSheet("Білизна",
		[]interface{}{"НАЗВА", "ОПИС", "ЦІНА", "ФОТО"},
		[]interface{}{"Комплект", "Мереживо", "450 грн", "https://img/1.jpg"},
		[]interface{}{"", "порожній рядок", "100 грн"},
		[]interface{}{"Халат", "Шовк", "договірна"},
	)
	fake.addSheet("ЗАМОВЛЕННЯ",
		[]interface{}{"ІМ'Я", "ТЕЛЕФОН"},
	)
	fake.addSheet("Аксесуари",
		[]interface{}{"ID", "ФОТО", "НАЗВА", "ЦІНА"},
		[]interface{}{"A-1", "", "Маска", "150 грн"},
	)
	return NewCatalogRepository(fake, "ЗАМОВЛЕННЯ", testColumns, "грн", logger.Discard()), fake
}

func TestCatalogRepository_ListCategoriesSkipsOrdersSheet(t *testing.T) {
	repo, _ := newTestCatalog(t)

	categories, err := repo.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Білизна", "Аксесуари"}, categories)
}

func TestCatalogRepository_ListProducts(t *testing.T) {
	repo, _ := newTestCatalog(t)

	products, err := repo.ListProducts(context.Background(), "Білизна")
	require.NoError(t, err)
	require.Len(t, products, 2)

	first := products[0]
	assert.Equal(t, "Комплект", first.Name)
	assert.Equal(t, "Мереживо", first.Description)
	assert.Equal(t, "https://img/1.jpg", first.Photo)
	assert.True(t, first.HasPrice)
	assert.Equal(t, "450", first.Price.String())
	assert.Equal(t, models.ProductKey("Комплект"), first.ID)

	second := products[1]
	assert.Equal(t, "Халат", second.Name)
	assert.False(t, second.HasPrice)
	assert.Equal(t, "договірна", second.PriceText)
	assert.Empty(t, second.Photo)
}

func TestCatalogRepository_ListProductsUsesIDColumnInAnyOrder(t *testing.T) {
	repo, _ := newTestCatalog(t)

	products, err := repo.ListProducts(context.Background(), "Аксесуари")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "A-1", products[0].ID)
	assert.Equal(t, "Маска", products[0].Name)
	assert.Empty(t, products[0].Description)
}

func TestCatalogRepository_OrdersSheetIsNotACategory(t *testing.T) {
	repo, _ := newTestCatalog(t)

	_, err := repo.ListProducts(context.Background(), "ЗАМОВЛЕННЯ")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestCatalogRepository_UnknownCategory(t *testing.T) {
	repo, _ := newTestCatalog(t)

	_, err := repo.ListProducts(context.Background(), "Немає")
	assert.ErrorIs(t, err, models.ErrCategoryNotFound)
}

func TestCatalogRepository_EmptySheet(t *testing.T) {
	repo, fake := newTestCatalog(t)
	fake.addSheet("Порожня")

	products, err := repo.ListProducts(context.Background(), "Порожня")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestCatalogRepository_MissingNameColumn(t *testing.T) {
	repo, fake := newTestCatalog(t)
	fake.addSheet("Зламана", []interface{}{"ЦІНА"}, []interface{}{"100 грн"})

	_, err := repo.ListProducts(context.Background(), "Зламана")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "НАЗВА")
}

func TestCatalogRepository_FindProduct(t *testing.T) {
	repo, _ := newTestCatalog(t)
	ctx := context.Background()

	p, err := repo.FindProduct(ctx, "Аксесуари", "A-1")
	require.NoError(t, err)
	assert.Equal(t, "Маска", p.Name)

	_, err = repo.FindProduct(ctx, "Аксесуари", "A-2")
	assert.ErrorIs(t, err, models.ErrProductNotFound)
}

func TestCatalogRepository_StoreUnavailable(t *testing.T) {
	repo, fake := newTestCatalog(t)
	fake.err = models.ErrStoreUnavailable

	_, err := repo.ListCategories(context.Background())
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
}
