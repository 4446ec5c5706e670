package shows

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
)

type stubShowRepo struct {
	shows map[uuid.UUID]*models.Show
}

func newStubShowRepo(shows ...*models.Show) *stubShowRepo {
	byID := make(map[uuid.UUID]*models.Show, len(shows))
	for _, show := range shows {
		byID[show.ID] = show
	}
	return &stubShowRepo{shows: byID}
}

func (s *stubShowRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubShowRepo) Create(ctx context.Context, show *models.Show) (*models.Show, error) {
	if show.ID == uuid.Nil {
		show.ID = uuid.New()
	}
	s.shows[show.ID] = show
	return show, nil
}

func (s *stubShowRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Show, error) {
	show, ok := s.shows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *show
	return &clone, nil
}

func (s *stubShowRepo) Transition(ctx context.Context, showID uuid.UUID, from, to enums.ShowStatus, set map[string]any) (bool, error) {
	show, ok := s.shows[showID]
	if !ok || show.Status != from {
		return false, nil
	}
	show.Status = to
	if v, ok := set["started_at"].(time.Time); ok {
		show.StartedAt = &v
	}
	if v, ok := set["ended_at"].(time.Time); ok {
		show.EndedAt = &v
	}
	return true, nil
}

func newShowService(t *testing.T, shows ...*models.Show) (Service, *stubShowRepo, time.Time) {
	t.Helper()

	repo := newStubShowRepo(shows...)
	svc, err := NewService(repo)
	require.NoError(t, err)
	nowTime := time.Date(2025, 6, 15, 19, 0, 0, 0, time.UTC)
	svc.(*service).now = func() time.Time { return nowTime }
	return svc, repo, nowTime
}

func TestCreateShow(t *testing.T) {
	svc, repo, _ := newShowService(t)

	shopID := uuid.New()
	show, err := svc.Create(context.Background(), shopID, CreateShowInput{Title: "  Saturday Slabs  "})
	require.NoError(t, err)
	assert.Equal(t, "Saturday Slabs", show.Title)
	assert.Equal(t, enums.ShowStatusScheduled, show.Status)
	assert.Equal(t, shopID, show.ShopID)
	assert.Len(t, repo.shows, 1)
}

func TestCreateShowValidation(t *testing.T) {
	svc, _, _ := newShowService(t)

	_, err := svc.Create(context.Background(), uuid.Nil, CreateShowInput{Title: "x"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = svc.Create(context.Background(), uuid.New(), CreateShowInput{Title: "   "})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestStartShow(t *testing.T) {
	shopID := uuid.New()
	show := &models.Show{ID: uuid.New(), ShopID: shopID, Title: "t", Status: enums.ShowStatusScheduled}
	svc, _, nowTime := newShowService(t, show)

	got, err := svc.Start(context.Background(), shopID, show.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShowStatusLive, got.Status)
	require.NotNil(t, got.StartedAt)
	assert.Equal(t, nowTime, *got.StartedAt)

	// Double-tap on the start button.
	again, err := svc.Start(context.Background(), shopID, show.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShowStatusLive, again.Status)
}

func TestStartShowWrongShop(t *testing.T) {
	show := &models.Show{ID: uuid.New(), ShopID: uuid.New(), Title: "t", Status: enums.ShowStatusScheduled}
	svc, _, _ := newShowService(t, show)

	_, err := svc.Start(context.Background(), uuid.New(), show.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
}

func TestEndShow(t *testing.T) {
	shopID := uuid.New()
	show := &models.Show{ID: uuid.New(), ShopID: shopID, Title: "t", Status: enums.ShowStatusLive}
	svc, _, nowTime := newShowService(t, show)

	got, err := svc.End(context.Background(), shopID, show.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ShowStatusEnded, got.Status)
	require.NotNil(t, got.EndedAt)
	assert.Equal(t, nowTime, *got.EndedAt)
}

func TestEndShowNotLive(t *testing.T) {
	shopID := uuid.New()
	show := &models.Show{ID: uuid.New(), ShopID: shopID, Title: "t", Status: enums.ShowStatusScheduled}
	svc, _, _ := newShowService(t, show)

	_, err := svc.End(context.Background(), shopID, show.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}

func TestGetShow(t *testing.T) {
	show := &models.Show{ID: uuid.New(), ShopID: uuid.New(), Title: "t", Status: enums.ShowStatusLive}
	svc, _, _ := newShowService(t, show)

	got, err := svc.Get(context.Background(), show.ID)
	require.NoError(t, err)
	assert.Equal(t, show.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
