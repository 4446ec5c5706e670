package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/showcart-backend/pkg/auth"
	"github.com/angelmondragon/showcart-backend/pkg/auth/session"
	"github.com/angelmondragon/showcart-backend/pkg/config"
	"github.com/angelmondragon/showcart-backend/pkg/db/models"
	"github.com/angelmondragon/showcart-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/showcart-backend/pkg/errors"
	"github.com/angelmondragon/showcart-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	user      *models.User
	lastLogin *time.Time
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(_ context.Context, _ uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubShopsRepo struct {
	shop *models.Shop
	err  error
}

func (s *stubShopsRepo) FindByOwnerUser(_ context.Context, ownerUserID uuid.UUID) (*models.Shop, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.shop == nil || s.shop.OwnerUserID != ownerUserID {
		return nil, nil
	}
	return s.shop, nil
}

type stubSessionManager struct {
	refreshToken string
	generated    []string
	rotateCalls  int
	revoked      []string
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string) (string, error) {
	s.generated = append(s.generated, accessID)
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(_ context.Context, _, provided string) (string, string, error) {
	s.rotateCalls++
	if provided != s.refreshToken {
		return "", "", session.ErrInvalidRefreshToken
	}
	return "rotated-access-id", "rotated-refresh-token", nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	s.revoked = append(s.revoked, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "showcart",
		ExpirationMinutes: 30,
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func buildTestService(t *testing.T, user *models.User, shop *models.Shop) (Service, *stubUserRepo, *stubSessionManager) {
	t.Helper()
	userRepo := &stubUserRepo{user: user}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		ShopsRepo:      &stubShopsRepo{shop: shop},
		SessionManager: sessionMgr,
		JWTConfig:      testJWTConfig(),
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, userRepo, sessionMgr
}

func TestServiceLoginBuyer(t *testing.T) {
	password := "buyer-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, password),
		DisplayName:  "Buyer",
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	svc, userRepo, _ := buildTestService(t, user, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id claim %s, got %s", user.ID, claims.UserID)
	}
	if claims.Role != enums.UserRoleBuyer {
		t.Fatalf("expected buyer role claim, got %s", claims.Role)
	}
	if claims.ShopID != nil {
		t.Fatalf("expected no shop claim for buyer, got %v", claims.ShopID)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token, got %q", resp.RefreshToken)
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected user payload in response")
	}
	if userRepo.lastLogin == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestServiceLoginSellerCarriesShopClaim(t *testing.T) {
	password := "seller-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "seller@example.com",
		PasswordHash: mustHashPassword(t, password),
		DisplayName:  "Seller",
		Role:         enums.UserRoleSeller,
		IsActive:     true,
	}
	shop := &models.Shop{
		ID:          uuid.New(),
		OwnerUserID: user.ID,
		Name:        "Cardboard Castle",
		Slug:        "cardboard-castle",
		IsActive:    true,
	}
	svc, _, sessionMgr := buildTestService(t, user, shop)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.ShopID == nil || *claims.ShopID != shop.ID {
		t.Fatalf("expected shop claim %s, got %v", shop.ID, claims.ShopID)
	}
	if claims.Role != enums.UserRoleSeller {
		t.Fatalf("expected seller role claim, got %s", claims.Role)
	}
	if len(sessionMgr.generated) != 1 || sessionMgr.generated[0] != claims.ID {
		t.Fatalf("expected session generated for jti %q, got %v", claims.ID, sessionMgr.generated)
	}
}

func TestServiceLoginNormalizesEmail(t *testing.T) {
	password := "casefold"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "mixed@example.com",
		PasswordHash: mustHashPassword(t, password),
		DisplayName:  "Mixed",
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	svc, _, _ := buildTestService(t, user, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "  Mixed@Example.COM ", Password: password})
	if err != nil {
		t.Fatalf("login with unnormalized email: %v", err)
	}
}

func TestServiceLoginWrongPassword(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Email:        "buyer@example.com",
		PasswordHash: mustHashPassword(t, "right-password"),
		DisplayName:  "Buyer",
		Role:         enums.UserRoleBuyer,
		IsActive:     true,
	}
	svc, _, _ := buildTestService(t, user, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "wrong-password"})
	if err == nil {
		t.Fatalf("expected unauthorized for wrong password")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func TestServiceLoginInactiveUser(t *testing.T) {
	password := "inactive"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "gone@example.com",
		PasswordHash: mustHashPassword(t, password),
		DisplayName:  "Gone",
		Role:         enums.UserRoleBuyer,
		IsActive:     false,
	}
	svc, _, _ := buildTestService(t, user, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
}

func TestServiceLoginUnknownEmail(t *testing.T) {
	svc, _, _ := buildTestService(t, nil, nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for unknown email, got %v", err)
	}
}

func TestServiceRefreshRotatesPair(t *testing.T) {
	user := &models.User{
		ID:          uuid.New(),
		Email:       "seller@example.com",
		DisplayName: "Seller",
		Role:        enums.UserRoleSeller,
		IsActive:    true,
	}
	shop := &models.Shop{
		ID:          uuid.New(),
		OwnerUserID: user.ID,
		Name:        "Slab City",
		Slug:        "slab-city",
		IsActive:    true,
	}
	svc, _, sessionMgr := buildTestService(t, user, shop)

	// An expired access token still names a rotatable session.
	accessID := session.NewAccessID()
	expired, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now().Add(-2*time.Hour), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint expired token: %v", err)
	}

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  expired,
		RefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.ID != "rotated-access-id" {
		t.Fatalf("expected rotated jti, got %q", claims.ID)
	}
	if claims.ShopID == nil || *claims.ShopID != shop.ID {
		t.Fatalf("expected shop claim to survive rotation, got %v", claims.ShopID)
	}
	if resp.RefreshToken != "rotated-refresh-token" {
		t.Fatalf("expected rotated refresh token, got %q", resp.RefreshToken)
	}
	if sessionMgr.rotateCalls != 1 {
		t.Fatalf("expected one rotation, got %d", sessionMgr.rotateCalls)
	}
}

func TestServiceRefreshRejectsWrongRefreshToken(t *testing.T) {
	user := &models.User{
		ID:          uuid.New(),
		Email:       "buyer@example.com",
		DisplayName: "Buyer",
		Role:        enums.UserRoleBuyer,
		IsActive:    true,
	}
	svc, _, _ := buildTestService(t, user, nil)

	token, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  token,
		RefreshToken: "stolen-token",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for wrong refresh token, got %v", err)
	}
}

func TestServiceRefreshRejectsDeactivatedUser(t *testing.T) {
	user := &models.User{
		ID:          uuid.New(),
		Email:       "gone@example.com",
		DisplayName: "Gone",
		Role:        enums.UserRoleBuyer,
		IsActive:    false,
	}
	svc, _, sessionMgr := buildTestService(t, user, nil)

	token, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  token,
		RefreshToken: "refresh-token",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for deactivated user, got %v", err)
	}
	if sessionMgr.rotateCalls != 0 {
		t.Fatalf("expected no rotation for deactivated user, got %d", sessionMgr.rotateCalls)
	}
}

func TestServiceRefreshRejectsGarbageToken(t *testing.T) {
	svc, _, _ := buildTestService(t, &models.User{ID: uuid.New(), IsActive: true, Role: enums.UserRoleBuyer}, nil)

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "refresh-token",
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for garbage token, got %v", err)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	svc, _, sessionMgr := buildTestService(t, &models.User{ID: uuid.New()}, nil)

	if err := svc.Logout(context.Background(), "access-id-1"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if len(sessionMgr.revoked) != 1 || sessionMgr.revoked[0] != "access-id-1" {
		t.Fatalf("expected session revoked, got %v", sessionMgr.revoked)
	}

	if err := svc.Logout(context.Background(), " "); err == nil {
		t.Fatalf("expected error for blank access id")
	}
}
