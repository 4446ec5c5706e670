package visibility

import (
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

// PurchasabilityInput drives the shared checks run before any buyer claim.
type PurchasabilityInput struct {
	Shop     *models.Shop
	Show     *models.Show
	Product  *models.Product
	Quantity int
}

// EnsurePurchasable enforces canonical rules so closed shops and ended shows
// never accept claims. Inactive products read as not found; stock and status
// are re-checked atomically by the reservation, this is the readable precheck.
func EnsurePurchasable(input PurchasabilityInput) error {
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.Product == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if input.Shop == nil || !input.Shop.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if input.Product.ShopID != input.Shop.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if input.Product.Status == enums.ProductStatusInactive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if input.Show == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
	}
	if input.Show.ShopID != input.Shop.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
	}
	if input.Show.Status != enums.ShowStatusLive {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "show is not live")
	}
	if input.Product.ShowID != nil && *input.Product.ShowID != input.Show.ID {
		return pkgerrors.New(pkgerrors.CodeValidation, "product is not listed in this show")
	}
	if input.Product.Status == enums.ProductStatusSoldOut || input.Product.Quantity < input.Quantity {
		return pkgerrors.New(pkgerrors.CodeConflict, "item sold out").WithDetails(map[string]any{
			"product_id": input.Product.ID,
			"available":  input.Product.Quantity,
		})
	}

	return nil
}
