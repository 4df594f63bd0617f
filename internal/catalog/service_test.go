package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shoplinehq/shopline-backend/pkg/db/models"
	pkgerrors "github.com/shoplinehq/shopline-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func mustCreateCategory(t *testing.T, db *gorm.DB, name, slug string) *models.Category {
	t.Helper()
	category := &models.Category{Name: name, Slug: slug}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}
	return category
}

func mustCreateProduct(t *testing.T, db *gorm.DB, categoryID int64, name, price string, available bool) *models.Product {
	t.Helper()
	product := &models.Product{
		CategoryID: categoryID,
		Name:       name,
		Slug:       name,
		Price:      decimal.RequireFromString(price),
		Available:  available,
	}
	if err := db.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func TestListProductsFiltersUnavailable(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category := mustCreateCategory(t, db, "tea", "tea")
	mustCreateProduct(t, db, category.ID, "green-tea", "10.00", true)
	mustCreateProduct(t, db, category.ID, "discontinued", "5.00", false)

	products, err := svc.ListProducts(context.Background(), "")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(products))
	}
	if products[0].Name != "green-tea" {
		t.Fatalf("unexpected product: %s", products[0].Name)
	}
}

func TestListProductsByCategorySlug(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	tea := mustCreateCategory(t, db, "tea", "tea")
	coffee := mustCreateCategory(t, db, "coffee", "coffee")
	mustCreateProduct(t, db, tea.ID, "green-tea", "10.00", true)
	mustCreateProduct(t, db, coffee.ID, "espresso", "12.00", true)

	products, err := svc.ListProducts(context.Background(), "coffee")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(products) != 1 || products[0].Name != "espresso" {
		t.Fatalf("unexpected result: %+v", products)
	}
}

func TestGetProductNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)

	_, err := svc.GetProduct(context.Background(), 404)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetProductHidesUnavailable(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category := mustCreateCategory(t, db, "tea", "tea")
	product := mustCreateProduct(t, db, category.ID, "discontinued", "5.00", false)

	_, err := svc.GetProduct(context.Background(), product.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for unavailable product, got %v", err)
	}
}

func TestFindByIDsSkipsMissing(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category := mustCreateCategory(t, db, "tea", "tea")
	product := mustCreateProduct(t, db, category.ID, "green-tea", "10.00", true)

	products, err := svc.FindByIDs(context.Background(), []int64{product.ID, 999})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(products) != 1 || products[0].ID != product.ID {
		t.Fatalf("unexpected result: %+v", products)
	}
}

func TestCreateProductValidation(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category := mustCreateCategory(t, db, "tea", "tea")

	_, err := svc.CreateProduct(context.Background(), ProductInput{CategoryID: category.ID, Slug: "x"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.CreateProduct(context.Background(), ProductInput{
		CategoryID: category.ID,
		Name:       "matcha",
		Slug:       "matcha",
		Price:      decimal.RequireFromString("-1"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestUpdateProductPersistsChanges(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category := mustCreateCategory(t, db, "tea", "tea")
	product := mustCreateProduct(t, db, category.ID, "green-tea", "10.00", true)

	updated, err := svc.UpdateProduct(context.Background(), product.ID, ProductInput{
		CategoryID:  category.ID,
		Name:        "sencha",
		Slug:        "sencha",
		Price:       decimal.RequireFromString("11.50"),
		Available:   true,
		Description: "steamed green tea",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "sencha" || !updated.Price.Equal(decimal.RequireFromString("11.50")) {
		t.Fatalf("unexpected product: %+v", updated)
	}
}

func TestAllProductIDsIncludesUnavailable(t *testing.T) {
	t.Parallel()

	svc, db := newTestService(t)
	category := mustCreateCategory(t, db, "tea", "tea")
	mustCreateProduct(t, db, category.ID, "green-tea", "10.00", true)
	mustCreateProduct(t, db, category.ID, "discontinued", "5.00", false)

	ids, err := svc.AllProductIDs(context.Background())
	if err != nil {
		t.Fatalf("ids: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %d", len(ids))
	}
}
