package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/emersonbarrios/fooddash-backend/pkg/errors"
)

// PriceQuote is the point-in-time snapshot taken for one product.
type PriceQuote struct {
	ProductID      uuid.UUID
	Name           string
	UnitPriceCents int64
	Available      bool
}

// RestaurantInfo is the subset of restaurant state order creation depends on.
type RestaurantInfo struct {
	ID             uuid.UUID
	Name           string
	Active         bool
	CommissionRate float64
}

// Service exposes the read-only catalog lookups consumed by order creation.
type Service interface {
	WithTx(tx *gorm.DB) Service
	GetPrice(ctx context.Context, productID uuid.UUID) (*PriceQuote, error)
	GetPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]PriceQuote, error)
	GetRestaurant(ctx context.Context, id uuid.UUID) (*RestaurantInfo, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) GetPrice(ctx context.Context, productID uuid.UUID) (*PriceQuote, error) {
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "product %s not found", productID)
	}
	return &PriceQuote{
		ProductID:      product.ID,
		Name:           product.Name,
		UnitPriceCents: product.PriceCents,
		Available:      product.Available,
	}, nil
}

func (s *service) GetPrices(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]PriceQuote, error) {
	if len(productIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product id is required")
	}
	products, err := s.repo.FindProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	quotes := make(map[uuid.UUID]PriceQuote, len(products))
	for _, product := range products {
		quotes[product.ID] = PriceQuote{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPriceCents: product.PriceCents,
			Available:      product.Available,
		}
	}
	return quotes, nil
}

func (s *service) GetRestaurant(ctx context.Context, id uuid.UUID) (*RestaurantInfo, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id is required")
	}
	restaurant, err := s.repo.FindRestaurant(ctx, id)
	if err != nil {
		return nil, err
	}
	if restaurant == nil {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "restaurant %s not found", id)
	}
	return &RestaurantInfo{
		ID:             restaurant.ID,
		Name:           restaurant.Name,
		Active:         restaurant.Active,
		CommissionRate: restaurant.CommissionRate,
	}, nil
}
