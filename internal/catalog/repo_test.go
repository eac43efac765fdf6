package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/emersonbarrios/fooddash-backend/pkg/db/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	restaurants := `
CREATE TABLE IF NOT EXISTS restaurants (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  commission_rate REAL NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  restaurant_id TEXT NOT NULL,
  name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  available INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(restaurants).Error)
	require.NoError(t, db.Exec(products).Error)
	return db
}

func TestRepositoryFindProduct(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	restaurantID := uuid.New()
	productID := uuid.New()
	require.NoError(t, db.Create(&models.Product{
		ID:           productID,
		RestaurantID: restaurantID,
		Name:         "Margherita",
		PriceCents:   1000,
		Available:    true,
	}).Error)

	product, err := repo.FindProduct(ctx, productID)
	require.NoError(t, err)
	require.NotNil(t, product)
	assert.Equal(t, "Margherita", product.Name)
	assert.Equal(t, int64(1000), product.PriceCents)

	missing, err := repo.FindProduct(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryFindProducts(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	restaurantID := uuid.New()
	first := uuid.New()
	second := uuid.New()
	require.NoError(t, db.Create(&models.Product{ID: first, RestaurantID: restaurantID, Name: "A", PriceCents: 100, Available: true}).Error)
	require.NoError(t, db.Create(&models.Product{ID: second, RestaurantID: restaurantID, Name: "B", PriceCents: 200, Available: false}).Error)

	products, err := repo.FindProducts(ctx, []uuid.UUID{first, second, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	none, err := repo.FindProducts(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestRepositoryFindRestaurant(t *testing.T) {
	db := setupCatalogTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	restaurantID := uuid.New()
	require.NoError(t, db.Create(&models.Restaurant{
		ID:             restaurantID,
		Name:           "Casa Vieja",
		Active:         true,
		CommissionRate: 0.12,
	}).Error)

	restaurant, err := repo.FindRestaurant(ctx, restaurantID)
	require.NoError(t, err)
	require.NotNil(t, restaurant)
	assert.True(t, restaurant.Active)
	assert.InDelta(t, 0.12, restaurant.CommissionRate, 1e-9)

	missing, err := repo.FindRestaurant(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
