// Package checkout turns a buyer's claim during a live show into a
// pending order with inventory held. The whole flow is one transaction:
// visibility checks, the order insert, the stock decrement and the
// outbox events commit or roll back together.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/internal/checkout/reservation"
	"github.com/angelmondragon/showcart-backend/internal/orders"
	"github.com/angelmondragon/showcart-backend/internal/products"
	"github.com/angelmondragon/showcart-backend/internal/shops"
	"github.com/angelmondragon/showcart-backend/internal/shows"
	pkgcheckout "github.com/angelmondragon/showcart-backend/pkg/checkout"
	"github.com/angelmondragon/showcart-backend/pkg/db"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/outbox"
	"github.com/angelmondragon/showcart-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/showcart-backend/pkg/visibility"
)

const uxOrdersPendingClaim = "ux_orders_pending_claim"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type reservationRunner interface {
	Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// paidFinalizer runs the paid-side effects for the zero-amount demo flow.
type paidFinalizer interface {
	FinalizePaid(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type reservationEngine struct{}

func (reservationEngine) Reserve(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	return reservation.ReserveInventory(ctx, tx, productID, qty)
}

// PlaceOrderInput is the buyer's claim request.
type PlaceOrderInput struct {
	ProductID uuid.UUID
	ShowID    uuid.UUID
	Quantity  int
	Platform  enums.CheckoutPlatform
}

// Service executes checkout orchestration.
type Service interface {
	PlaceOrder(ctx context.Context, buyerID uuid.UUID, input PlaceOrderInput) (*models.Order, error)
}

type service struct {
	tx           txRunner
	ordersRepo   orders.Repository
	productsRepo products.Repository
	showsRepo    shows.Repository
	shopsRepo    shops.Repository
	reservation  reservationRunner
	outbox       outboxPublisher
	paidFlow     paidFinalizer
	maxQuantity  int
	now          func() time.Time
}

// NewService builds the checkout service. A nil reservation runner falls
// back to the SQL engine.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	productsRepo products.Repository,
	showsRepo shows.Repository,
	shopsRepo shops.Repository,
	reservation reservationRunner,
	publisher outboxPublisher,
	paidFlow paidFinalizer,
	maxQuantity int,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if showsRepo == nil {
		return nil, fmt.Errorf("shows repository required")
	}
	if shopsRepo == nil {
		return nil, fmt.Errorf("shops repository required")
	}
	if reservation == nil {
		reservation = reservationEngine{}
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if paidFlow == nil {
		return nil, fmt.Errorf("paid finalizer required")
	}
	if maxQuantity < 1 {
		return nil, fmt.Errorf("max quantity per order must be at least 1")
	}
	return &service{
		tx:           tx,
		ordersRepo:   ordersRepo,
		productsRepo: productsRepo,
		showsRepo:    showsRepo,
		shopsRepo:    shopsRepo,
		reservation:  reservation,
		outbox:       publisher,
		paidFlow:     paidFlow,
		maxQuantity:  maxQuantity,
		now:          time.Now,
	}, nil
}

// PlaceOrder claims inventory for a buyer watching a live show. An
// omitted quantity means one unit. Retried calls while the buyer
// already holds a pending claim for the same product and show return
// that claim instead of reserving twice.
// Zero-amount products skip payment: the order lands directly paid and
// the paid-side effects run in the same transaction.
func (s *service) PlaceOrder(ctx context.Context, buyerID uuid.UUID, input PlaceOrderInput) (*models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.ShowID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show id required")
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}
	if err := pkgcheckout.ValidateQuantityCap(pkgcheckout.QuantityCapInput{
		ProductID:   input.ProductID,
		Quantity:    input.Quantity,
		MaxPerOrder: s.maxQuantity,
	}); err != nil {
		return nil, err
	}
	platform := input.Platform
	if platform == "" {
		platform = enums.CheckoutPlatformWeb
	}
	if !platform.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown checkout platform")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.ordersRepo.WithTx(tx)
		productsRepo := s.productsRepo.WithTx(tx)

		product, err := productsRepo.FindByID(ctx, input.ProductID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		show, err := s.showsRepo.WithTx(tx).FindByID(ctx, input.ShowID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load show")
		}
		shop, err := s.shopsRepo.WithTx(tx).FindByID(ctx, product.ShopID)
		if err != nil {
			// A product whose shop row is gone reads as missing too.
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shop")
		}

		if err := visibility.EnsurePurchasable(visibility.PurchasabilityInput{
			Shop:     shop,
			Show:     show,
			Product:  product,
			Quantity: input.Quantity,
		}); err != nil {
			return err
		}

		existing, err := ordersRepo.FindPendingClaim(ctx, buyerID, product.ID, show.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up pending claim")
		}
		if existing != nil {
			result = existing
			return nil
		}

		order := &models.Order{
			ID:             uuid.New(),
			BuyerID:        buyerID,
			ShopID:         shop.ID,
			ProductID:      &product.ID,
			ShowID:         show.ID,
			Quantity:       input.Quantity,
			UnitPriceCents: product.PriceCents,
			TotalCents:     product.PriceCents * input.Quantity,
			Status:         enums.OrderStatusPending,
			Platform:       platform,
		}
		demo := product.PriceCents == 0
		if demo {
			paidAt := s.now()
			order.Status = enums.OrderStatusPaid
			order.PaidAt = &paidAt
		}

		created, err := ordersRepo.Create(ctx, order)
		if err != nil {
			// Two requests raced past the lookup; the index picked the
			// winner, hand its claim back.
			if db.IsUniqueViolation(err, uxOrdersPendingClaim) {
				winner, findErr := ordersRepo.FindPendingClaim(ctx, buyerID, product.ID, show.ID)
				if findErr != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, findErr, "load winning claim")
				}
				if winner != nil {
					result = winner
					return nil
				}
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		if err := s.reservation.Reserve(ctx, tx, product.ID, input.Quantity); err != nil {
			return err
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   created.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:    created.ID,
				BuyerID:    created.BuyerID,
				ShopID:     created.ShopID,
				ProductID:  product.ID,
				ShowID:     created.ShowID,
				Quantity:   created.Quantity,
				TotalCents: created.TotalCents,
			},
		}); err != nil {
			return err
		}

		if err := s.announceSoldOut(ctx, tx, productsRepo, product.ID); err != nil {
			return err
		}

		if demo {
			if err := s.paidFlow.FinalizePaid(ctx, tx, created); err != nil {
				return err
			}
		}

		result = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// announceSoldOut re-reads the product after the decrement. Only the
// reservation that empties the shelf sees the flip, so the event fires
// once per sell-out.
func (s *service) announceSoldOut(ctx context.Context, tx *gorm.DB, repo products.Repository, productID uuid.UUID) error {
	after, err := repo.FindByID(ctx, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload product after reservation")
	}
	if after.Status != enums.ProductStatusSoldOut {
		return nil
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventProductSoldOut,
		AggregateType: enums.AggregateProduct,
		AggregateID:   after.ID,
		Version:       1,
		Data: payloads.ProductSoldOutEvent{
			ProductID: after.ID,
			ShopID:    after.ShopID,
			ShowID:    after.ShowID,
		},
	})
}
