package checkout

import (
	"fmt"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

// QuantityCapInput describes the data required to verify an order's quantity cap.
type QuantityCapInput struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	MaxPerOrder int
}

// CapViolationDetail exposes the data returned to callers when the cap check fails.
type CapViolationDetail struct {
	ProductID    uuid.UUID `json:"product_id"`
	ProductName  string    `json:"product_name,omitempty"`
	MaxPerOrder  int       `json:"max_per_order"`
	RequestedQty int       `json:"requested_qty"`
}

// ValidateQuantityCap rejects orders asking for more units than a single order
// may claim. A cap of zero or less disables the check.
func ValidateQuantityCap(input QuantityCapInput) error {
	if input.Quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if input.MaxPerOrder <= 0 || input.Quantity <= input.MaxPerOrder {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("quantity exceeds the per-order limit of %d", input.MaxPerOrder)).WithDetails(map[string]any{
		"violation": CapViolationDetail{
			ProductID:    input.ProductID,
			ProductName:  input.ProductName,
			MaxPerOrder:  input.MaxPerOrder,
			RequestedQty: input.Quantity,
		},
	})
}
