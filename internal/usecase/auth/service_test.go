package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"emi-device-manager/internal/config"
	domainActivity "emi-device-manager/internal/domain/activity"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/usecase/activity"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

func TestMain(m *testing.M) {
	_ = logger.Init("development")
	m.Run()
}

type fakeUserRepo struct {
	domainUser.Repository
	users map[uuid.UUID]*domainUser.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domainUser.User)}
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domainUser.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domainUser.User, error) {
	for _, u := range f.users {
		if u.Phone == identifier || (u.Email != nil && *u.Email == identifier) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *domainUser.User) error {
	if _, ok := f.users[user.ID]; !ok {
		return domainUser.ErrUserNotFound
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

type fakeTokenRepo struct {
	tokens map[uuid.UUID]*domainUser.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[uuid.UUID]*domainUser.RefreshToken)}
}

func (f *fakeTokenRepo) Create(ctx context.Context, token *domainUser.RefreshToken) error {
	token.ID = uuid.New()
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*domainUser.RefreshToken, error) {
	for _, t := range f.tokens {
		if t.Token == token {
			clone := *t
			return &clone, nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (f *fakeTokenRepo) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	t, ok := f.tokens[tokenID]
	if !ok {
		return domainUser.ErrUserNotFound
	}
	t.Revoked = true
	return nil
}

func (f *fakeTokenRepo) RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error {
	for _, t := range f.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeTokenRepo) DeleteExpired(ctx context.Context, olderThan time.Duration) error {
	return nil
}

func (f *fakeTokenRepo) activeCount(userID uuid.UUID) int {
	n := 0
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Revoked {
			n++
		}
	}
	return n
}

type nopActivityRepo struct{}

func (nopActivityRepo) Create(ctx context.Context, log *domainActivity.Log) error { return nil }
func (nopActivityRepo) List(ctx context.Context, filter *domainActivity.Filter) ([]*domainActivity.Log, int64, error) {
	return nil, 0, nil
}
func (nopActivityRepo) ListRecent(ctx context.Context, shopID *uuid.UUID, limit int) ([]*domainActivity.Log, error) {
	return nil, nil
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:             "test-secret-for-signing",
			ExpiryHours:        1,
			RefreshExpiryHours: 168,
		},
	}
}

func fixture(t *testing.T) (*Service, *fakeUserRepo, *fakeTokenRepo) {
	t.Helper()
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeTokenRepo()
	svc := NewService(userRepo, nil, tokenRepo, activity.NewService(nopActivityRepo{}), testConfig())
	return svc, userRepo, tokenRepo
}

func seedUser(t *testing.T, repo *fakeUserRepo, password string, active bool) *domainUser.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	shopID := uuid.New()
	u := &domainUser.User{
		ID:             uuid.New(),
		ShopID:         &shopID,
		Role:           domainUser.RoleShopOwner,
		FullName:       "Test Owner",
		Phone:          "9876543210",
		PasswordHashed: hash,
		IsActive:       active,
	}
	repo.users[u.ID] = u
	return u
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	return appErr.Code
}

func TestLogin_Success(t *testing.T) {
	svc, userRepo, tokenRepo := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	resp, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "Sup3rSecret!",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("Login() returned empty token pair")
	}
	if resp.User.ID != u.ID {
		t.Errorf("User.ID = %s, want %s", resp.User.ID, u.ID)
	}
	if tokenRepo.activeCount(u.ID) != 1 {
		t.Errorf("active refresh tokens = %d, want 1", tokenRepo.activeCount(u.ID))
	}

	claims, err := utils.ValidateToken(resp.AccessToken, testConfig().JWT.Secret)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.UserID != u.ID {
		t.Errorf("claims.UserID = %s, want %s", claims.UserID, u.ID)
	}
}

func TestLogin_UnknownIdentifier(t *testing.T) {
	svc, _, _ := fixture(t)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: "0000000000",
		Password:   "whatever1",
	})
	if !errors.Is(err, appErrors.ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, userRepo, _ := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "not-the-password",
	})
	if !errors.Is(err, appErrors.ErrInvalidCredentials) {
		t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, userRepo, _ := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", false)

	_, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "Sup3rSecret!",
	})
	if err == nil {
		t.Fatal("Login() expected error for inactive account")
	}
	if code := errCode(t, err); code != appErrors.CodeAuthInactive {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeAuthInactive)
	}
}

func TestRefresh_RotatesToken(t *testing.T) {
	svc, userRepo, tokenRepo := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	login, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "Sup3rSecret!",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	refreshed, err := svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: login.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.RefreshToken == login.RefreshToken {
		t.Error("Refresh() returned the same refresh token, want rotation")
	}
	if tokenRepo.activeCount(u.ID) != 1 {
		t.Errorf("active refresh tokens after rotation = %d, want 1", tokenRepo.activeCount(u.ID))
	}

	// The rotated-out token must be dead.
	if _, err := svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: login.RefreshToken}); err == nil {
		t.Error("Refresh() with rotated-out token succeeded, want rejection")
	}
}

func TestRefresh_GarbageTokenRejected(t *testing.T) {
	svc, _, _ := fixture(t)

	_, err := svc.Refresh(context.Background(), &RefreshRequest{RefreshToken: "not.a.jwt"})
	if err == nil {
		t.Fatal("Refresh() expected error for garbage token")
	}
	if code := errCode(t, err); code != appErrors.CodeAuthInvalid {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeAuthInvalid)
	}
}

func TestLogout_RevokesPresentedToken(t *testing.T) {
	svc, userRepo, tokenRepo := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	login, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "Sup3rSecret!",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(context.Background(), u.ID, &LogoutRequest{RefreshToken: login.RefreshToken}); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if tokenRepo.activeCount(u.ID) != 0 {
		t.Errorf("active refresh tokens after logout = %d, want 0", tokenRepo.activeCount(u.ID))
	}
}

func TestLogout_OtherUsersTokenRejected(t *testing.T) {
	svc, userRepo, _ := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	login, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "Sup3rSecret!",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	err = svc.Logout(context.Background(), uuid.New(), &LogoutRequest{RefreshToken: login.RefreshToken})
	if err == nil {
		t.Fatal("Logout() with another user's token succeeded, want rejection")
	}
}

func TestChangePassword_RevokesAllSessions(t *testing.T) {
	svc, userRepo, tokenRepo := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(context.Background(), &LoginRequest{
			Identifier: u.Phone,
			Password:   "Sup3rSecret!",
		}); err != nil {
			t.Fatalf("Login() error = %v", err)
		}
	}

	err := svc.ChangePassword(context.Background(), u.ID, &ChangePasswordRequest{
		OldPassword: "Sup3rSecret!",
		NewPassword: "N3wSecret!!",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	if tokenRepo.activeCount(u.ID) != 0 {
		t.Errorf("active refresh tokens after password change = %d, want 0", tokenRepo.activeCount(u.ID))
	}

	// Old password no longer works, new one does.
	if _, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "Sup3rSecret!",
	}); !errors.Is(err, appErrors.ErrInvalidCredentials) {
		t.Errorf("Login() with old password error = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{
		Identifier: u.Phone,
		Password:   "N3wSecret!!",
	}); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
}

func TestChangePassword_WrongOldPassword(t *testing.T) {
	svc, userRepo, _ := fixture(t)
	u := seedUser(t, userRepo, "Sup3rSecret!", true)

	err := svc.ChangePassword(context.Background(), u.ID, &ChangePasswordRequest{
		OldPassword: "wrong-old-pass",
		NewPassword: "N3wSecret!!",
	})
	if !errors.Is(err, appErrors.ErrInvalidCredentials) {
		t.Errorf("ChangePassword() error = %v, want ErrInvalidCredentials", err)
	}
}
