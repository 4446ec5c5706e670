// Package reservation owns the inventory arithmetic for the order
// lifecycle. Every mutation is a single conditional UPDATE running
// inside the caller's transaction; the row lock on the product is the
// only mutual exclusion, there is no application-level locking.
package reservation

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

// ReserveInventory claims qty units of a product. The compare and the
// decrement happen in one statement, so under concurrent buyers only
// the first claims for the remaining stock succeed and quantity never
// goes negative. Hitting zero flips the product to sold_out in the same
// statement. quantity_sold is untouched here; RecordSale moves it when
// the order is confirmed paid.
func ReserveInventory(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reservation quantity must be at least 1")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for reservation")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity = quantity - ?,
			status = CASE WHEN quantity - ? = 0 THEN 'sold_out' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = 'active' AND quantity >= ?
	`, qty, qty, productID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve inventory")
	}
	if res.RowsAffected == 1 {
		return nil
	}
	return diagnoseReservationFailure(ctx, tx, productID, qty)
}

// diagnoseReservationFailure reads the row that refused the claim so
// the conflict carries a usable reason. Buyers see "item sold out" for
// every cause; the details separate missing, inactive, and short stock
// for operators.
func diagnoseReservationFailure(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	var product models.Product
	err := tx.WithContext(ctx).Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeConflict, "item sold out").WithDetails(map[string]any{
				"product_id": productID,
				"reason":     "product_missing",
			})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product after failed reservation")
	}
	if product.Status == enums.ProductStatusInactive {
		return pkgerrors.New(pkgerrors.CodeConflict, "item sold out").WithDetails(map[string]any{
			"product_id": productID,
			"reason":     "product_inactive",
		})
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "item sold out").WithDetails(map[string]any{
		"product_id": productID,
		"reason":     "insufficient_stock",
		"available":  product.Quantity,
		"requested":  qty,
	})
}

// RecordSale moves qty units into quantity_sold once an order is
// confirmed paid. Runs in the same transaction as the pending→paid
// status write.
func RecordSale(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sale quantity must be at least 1")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required to record sale")
	}

	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity_sold = quantity_sold + ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "record sale")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product missing while recording sale").WithDetails(map[string]any{
			"product_id": productID,
		})
	}
	return nil
}

// RestoreInventory returns qty units when an order leaves the reserved
// path (pending→canceled, paid→refunded). fromPaid also backs the units
// out of quantity_sold. sold_out flips back to active when stock
// returns; a manually deactivated product stays inactive. Idempotence
// is the caller's contract: restore exactly once per true status
// transition, checked under the same transaction.
func RestoreInventory(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, fromPaid bool) error {
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be at least 1")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required for restoration")
	}

	soldDelta := 0
	if fromPaid {
		soldDelta = qty
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE products
		SET quantity = quantity + ?,
			quantity_sold = quantity_sold - ?,
			status = CASE WHEN status = 'sold_out' THEN 'active' ELSE status END,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, qty, soldDelta, productID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "restore inventory")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product missing during restoration").WithDetails(map[string]any{
			"product_id": productID,
		})
	}
	return nil
}
