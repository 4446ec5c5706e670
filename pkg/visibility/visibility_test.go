package visibility

import (
	"testing"

	"github.com/google/uuid"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	"github.com/angelmondragon/showcart-backend/pkg/errors"
)

func baseInput() PurchasabilityInput {
	shopID := uuid.New()
	showID := uuid.New()
	return PurchasabilityInput{
		Shop: &models.Shop{ID: shopID, IsActive: true},
		Show: &models.Show{ID: showID, ShopID: shopID, Status: enums.ShowStatusLive},
		Product: &models.Product{
			ID:       uuid.New(),
			ShopID:   shopID,
			ShowID:   &showID,
			Status:   enums.ProductStatusActive,
			Quantity: 5,
		},
		Quantity: 1,
	}
}

func TestEnsurePurchasable(t *testing.T) {
	t.Run("quantity required", func(t *testing.T) {
		input := baseInput()
		input.Quantity = 0
		err := EnsurePurchasable(input)
		if err == nil {
			t.Fatal("expected validation error")
		}
		if errors.As(err).Code() != errors.CodeValidation {
			t.Fatalf("expected validation code, got %s", errors.As(err).Code())
		}
	})
	t.Run("product missing", func(t *testing.T) {
		input := baseInput()
		input.Product = nil
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("shop inactive", func(t *testing.T) {
		input := baseInput()
		input.Shop.IsActive = false
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("product from another shop", func(t *testing.T) {
		input := baseInput()
		input.Product.ShopID = uuid.New()
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("inactive product reads as missing", func(t *testing.T) {
		input := baseInput()
		input.Product.Status = enums.ProductStatusInactive
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeNotFound {
			t.Fatalf("expected not found, got %v", err)
		}
	})
	t.Run("show not live", func(t *testing.T) {
		input := baseInput()
		input.Show.Status = enums.ShowStatusEnded
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeStateConflict {
			t.Fatalf("expected state conflict, got %v", err)
		}
	})
	t.Run("product listed in another show", func(t *testing.T) {
		input := baseInput()
		other := uuid.New()
		input.Product.ShowID = &other
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
	t.Run("sold out", func(t *testing.T) {
		input := baseInput()
		input.Product.Status = enums.ProductStatusSoldOut
		input.Product.Quantity = 0
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
		details, ok := errors.As(err).Details().(map[string]any)
		if !ok {
			t.Fatalf("expected details map, got %v", errors.As(err).Details())
		}
		if details["available"] != 0 {
			t.Fatalf("expected available 0, got %v", details["available"])
		}
	})
	t.Run("insufficient stock", func(t *testing.T) {
		input := baseInput()
		input.Quantity = 6
		err := EnsurePurchasable(input)
		if err == nil || errors.As(err).Code() != errors.CodeConflict {
			t.Fatalf("expected conflict, got %v", err)
		}
	})
	t.Run("show-agnostic product", func(t *testing.T) {
		input := baseInput()
		input.Product.ShowID = nil
		if err := EnsurePurchasable(input); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})
	t.Run("success", func(t *testing.T) {
		if err := EnsurePurchasable(baseInput()); err != nil {
			t.Fatalf("expected success, got %v", err)
		}
	})
}
