package shows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

// CreateShowInput holds the validated payload to schedule a show.
type CreateShowInput struct {
	Title       string
	ScheduledAt *time.Time
}

// Service exposes seller show management. A show is the time window
// every checkout claim is scoped to; products only sell while their
// show is live.
type Service interface {
	Create(ctx context.Context, shopID uuid.UUID, input CreateShowInput) (*models.Show, error)
	Start(ctx context.Context, shopID, showID uuid.UUID) (*models.Show, error)
	End(ctx context.Context, shopID, showID uuid.UUID) (*models.Show, error)
	Get(ctx context.Context, showID uuid.UUID) (*models.Show, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the show service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shows repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, shopID uuid.UUID, input CreateShowInput) (*models.Show, error) {
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title required")
	}

	show := &models.Show{
		ShopID:      shopID,
		Title:       title,
		Status:      enums.ShowStatusScheduled,
		ScheduledAt: input.ScheduledAt,
	}
	created, err := s.repo.Create(ctx, show)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create show")
	}
	return created, nil
}

// Start flips a scheduled show live. Starting an already live show is a
// no-op so a double-tap in the seller app cannot error.
func (s *service) Start(ctx context.Context, shopID, showID uuid.UUID) (*models.Show, error) {
	now := s.now()
	return s.transition(ctx, shopID, showID, enums.ShowStatusLive, map[string]any{"started_at": now})
}

// End closes a live show. Pending orders keep their reservations until
// they pay, cancel, or the sweeper expires them.
func (s *service) End(ctx context.Context, shopID, showID uuid.UUID) (*models.Show, error) {
	now := s.now()
	return s.transition(ctx, shopID, showID, enums.ShowStatusEnded, map[string]any{"ended_at": now})
}

func (s *service) Get(ctx context.Context, showID uuid.UUID) (*models.Show, error) {
	if showID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show id required")
	}
	show, err := s.repo.FindByID(ctx, showID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load show")
	}
	return show, nil
}

func (s *service) transition(ctx context.Context, shopID, showID uuid.UUID, target enums.ShowStatus, set map[string]any) (*models.Show, error) {
	if showID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "show id required")
	}
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}

	show, err := s.repo.FindByID(ctx, showID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "show not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load show")
	}
	if show.ShopID != shopID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "show does not belong to shop")
	}
	if show.Status == target {
		return show, nil
	}
	if !show.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("show cannot move from %s to %s", show.Status, target))
	}

	moved, err := s.repo.Transition(ctx, showID, show.Status, target, set)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition show")
	}
	if !moved {
		// Someone else moved the row between the read and the update.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "show state changed, retry")
	}
	updated, err := s.repo.FindByID(ctx, showID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load show")
	}
	return updated, nil
}
