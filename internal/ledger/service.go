package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const bpsDenominator = 10_000

// Service appends money movements to the seller ledger. Entries are
// immutable; a refund is a negating entry, never an update.
type Service interface {
	RecordSale(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordRefund(ctx context.Context, tx *gorm.DB, order *models.Order) error
	RecordPayout(ctx context.Context, tx *gorm.DB, batch *models.Batch, orders []models.Order) error
}

type service struct {
	repo   Repository
	feeBps int
}

// NewService wires a ledger service with the provided repository and the
// platform fee expressed in basis points.
func NewService(repo Repository, feeBps int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if feeBps < 0 || feeBps > bpsDenominator {
		return nil, fmt.Errorf("platform fee bps out of range: %d", feeBps)
	}
	return &service{repo: repo, feeBps: feeBps}, nil
}

type saleMetadata struct {
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	Quantity       int        `json:"quantity"`
	UnitPriceCents int        `json:"unit_price_cents"`
	FeeBps         int        `json:"fee_bps"`
}

type payoutMetadata struct {
	OrderCount int `json:"order_count"`
	FeeBps     int `json:"fee_bps"`
}

// RecordSale books the gross/fee/net split for a freshly paid order. A
// second call for the same order is a no-op.
func (s *service) RecordSale(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil || order.ID == uuid.Nil {
		return fmt.Errorf("order required")
	}
	repo := s.repo.WithTx(tx)

	exists, err := hasEntry(ctx, repo, order.ID, enums.LedgerEntrySale)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check sale entry")
	}
	if exists {
		return nil
	}

	fee := feeCents(order.TotalCents, s.feeBps)
	metadata, err := json.Marshal(saleMetadata{
		ProductID:      order.ProductID,
		Quantity:       order.Quantity,
		UnitPriceCents: order.UnitPriceCents,
		FeeBps:         s.feeBps,
	})
	if err != nil {
		return fmt.Errorf("marshal sale metadata: %w", err)
	}

	orderID := order.ID
	entry := &models.SellerLedgerEntry{
		ShopID:     order.ShopID,
		OrderID:    &orderID,
		BatchID:    order.BatchID,
		EntryType:  enums.LedgerEntrySale,
		GrossCents: order.TotalCents,
		FeeCents:   fee,
		NetCents:   order.TotalCents - fee,
		Metadata:   metadata,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record sale entry")
	}
	return nil
}

// RecordRefund negates the order's sale entry so per-shop sums stay
// additive. Refunding an order without a sale entry, or twice, is a no-op.
func (s *service) RecordRefund(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if order == nil || order.ID == uuid.Nil {
		return fmt.Errorf("order required")
	}
	repo := s.repo.WithTx(tx)

	entries, err := repo.ListByOrderID(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order entries")
	}
	var sale *models.SellerLedgerEntry
	for i := range entries {
		switch entries[i].EntryType {
		case enums.LedgerEntryRefund:
			return nil
		case enums.LedgerEntrySale:
			sale = &entries[i]
		}
	}
	if sale == nil {
		return nil
	}

	orderID := order.ID
	entry := &models.SellerLedgerEntry{
		ShopID:     order.ShopID,
		OrderID:    &orderID,
		BatchID:    order.BatchID,
		EntryType:  enums.LedgerEntryRefund,
		GrossCents: -sale.GrossCents,
		FeeCents:   -sale.FeeCents,
		NetCents:   -sale.NetCents,
		Metadata:   sale.Metadata,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record refund entry")
	}
	return nil
}

// RecordPayout books the settlement for a completed batch. The fee is the
// sum of the per-order fees rather than a fee over the batch total, so the
// payout never drifts a cent from the sale entries it settles.
func (s *service) RecordPayout(ctx context.Context, tx *gorm.DB, batch *models.Batch, orders []models.Order) error {
	if batch == nil || batch.ID == uuid.Nil {
		return fmt.Errorf("batch required")
	}
	repo := s.repo.WithTx(tx)

	existing, err := repo.ListByBatchID(ctx, batch.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load batch entries")
	}
	for _, entry := range existing {
		if entry.EntryType == enums.LedgerEntryPayout {
			return nil
		}
	}

	gross, fee := 0, 0
	count := 0
	for _, order := range orders {
		if order.Status != enums.OrderStatusPaid && order.Status != enums.OrderStatusCompleted {
			continue
		}
		gross += order.TotalCents
		fee += feeCents(order.TotalCents, s.feeBps)
		count++
	}

	metadata, err := json.Marshal(payoutMetadata{OrderCount: count, FeeBps: s.feeBps})
	if err != nil {
		return fmt.Errorf("marshal payout metadata: %w", err)
	}

	batchID := batch.ID
	entry := &models.SellerLedgerEntry{
		ShopID:     batch.ShopID,
		BatchID:    &batchID,
		EntryType:  enums.LedgerEntryPayout,
		GrossCents: gross,
		FeeCents:   fee,
		NetCents:   gross - fee,
		Metadata:   metadata,
	}
	if err := repo.Create(ctx, entry); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout entry")
	}
	return nil
}

func hasEntry(ctx context.Context, repo Repository, orderID uuid.UUID, entryType enums.LedgerEntryType) (bool, error) {
	entries, err := repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, entry := range entries {
		if entry.EntryType == entryType {
			return true, nil
		}
	}
	return false, nil
}

// feeCents computes the platform cut of a gross amount, rounding half away
// from zero on the cent.
func feeCents(grossCents, feeBps int) int {
	if grossCents == 0 || feeBps == 0 {
		return 0
	}
	fee := decimal.NewFromInt(int64(grossCents)).
		Mul(decimal.NewFromInt(int64(feeBps))).
		Div(decimal.NewFromInt(bpsDenominator))
	return int(fee.Round(0).IntPart())
}
