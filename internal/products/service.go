package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

// CreateProductInput holds the validated payload to list a product.
// PriceCents zero is legal: zero-amount products take the demo checkout
// path that skips the payment processor.
type CreateProductInput struct {
	ShowID      *uuid.UUID
	Name        string
	Description *string
	Tags        []string
	PriceCents  int
	Quantity    int
}

type showLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error)
}

// Service exposes seller product management. Stock arithmetic driven by
// the order lifecycle lives in the reservation package; this service
// covers the shelf operations a seller performs by hand.
type Service interface {
	Create(ctx context.Context, shopID uuid.UUID, input CreateProductInput) (*models.Product, error)
	Restock(ctx context.Context, shopID, productID uuid.UUID, qty int) (*models.Product, error)
	Activate(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error)
	Deactivate(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error)
	ListByShow(ctx context.Context, showID uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo  Repository
	shows showLoader
}

// NewService builds the product service.
func NewService(repo Repository, shows showLoader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if shows == nil {
		return nil, fmt.Errorf("show loader required")
	}
	return &service{repo: repo, shows: shows}, nil
}

func (s *service) Create(ctx context.Context, shopID uuid.UUID, input CreateProductInput) (*models.Product, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name required")
	}
	if input.PriceCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price_cents cannot be negative")
	}
	if input.Quantity < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity cannot be negative")
	}
	if input.ShowID != nil {
		if err := s.ensureShowAccepts(ctx, shopID, *input.ShowID); err != nil {
			return nil, err
		}
	}

	status := enums.ProductStatusActive
	if input.Quantity == 0 {
		status = enums.ProductStatusSoldOut
	}
	product := &models.Product{
		ShopID:      shopID,
		ShowID:      input.ShowID,
		Name:        name,
		Description: input.Description,
		Tags:        pq.StringArray(input.Tags),
		PriceCents:  input.PriceCents,
		Quantity:    input.Quantity,
		Status:      status,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Restock(ctx context.Context, shopID, productID uuid.UUID, qty int) (*models.Product, error) {
	if err := ensureShelfArgs(shopID, productID); err != nil {
		return nil, err
	}
	if qty < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restock quantity must be at least 1")
	}
	ok, err := s.repo.Restock(ctx, productID, shopID, qty)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock product")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.reload(ctx, productID)
}

func (s *service) Activate(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error) {
	if err := ensureShelfArgs(shopID, productID); err != nil {
		return nil, err
	}
	ok, err := s.repo.Activate(ctx, productID, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "activate product")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.reload(ctx, productID)
}

func (s *service) Deactivate(ctx context.Context, shopID, productID uuid.UUID) (*models.Product, error) {
	if err := ensureShelfArgs(shopID, productID); err != nil {
		return nil, err
	}
	ok, err := s.repo.Deactivate(ctx, productID, shopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate product")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return s.reload(ctx, productID)
}

func (s *service) ListByShow(ctx context.Context, showID uuid.UUID) ([]models.Product, error) {
	if showID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show id required")
	}
	products, err := s.repo.ListByShow(ctx, showID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}

// ensureShowAccepts verifies the show can receive listings: it must be
// the seller's own and not already over.
func (s *service) ensureShowAccepts(ctx context.Context, shopID, showID uuid.UUID) error {
	show, err := s.shows.FindByID(ctx, showID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load show")
	}
	if show.ShopID != shopID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
	}
	if show.Status == enums.ShowStatusEnded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "show already ended")
	}
	return nil
}

func (s *service) reload(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func ensureShelfArgs(shopID, productID uuid.UUID) error {
	if shopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	if productID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	return nil
}
