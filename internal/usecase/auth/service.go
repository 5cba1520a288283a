package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"emi-device-manager/internal/config"
	domainActivity "emi-device-manager/internal/domain/activity"
	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/usecase/activity"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

// Service implements authentication use cases: login, shop signup, token
// rotation and password changes.
type Service struct {
	userRepo         domainUser.Repository
	shopRepo         domainShop.Repository
	refreshTokenRepo domainUser.RefreshTokenRepository
	audit            *activity.Service
	config           *config.Config
}

func NewService(
	userRepo domainUser.Repository,
	shopRepo domainShop.Repository,
	refreshTokenRepo domainUser.RefreshTokenRepository,
	audit *activity.Service,
	cfg *config.Config,
) *Service {
	return &Service{
		userRepo:         userRepo,
		shopRepo:         shopRepo,
		refreshTokenRepo: refreshTokenRepo,
		audit:            audit,
		config:           cfg,
	}
}

// Login authenticates by phone number or email. Credential failures are
// indistinguishable to the caller whether the identifier exists or not.
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	identifier := utils.SanitizeString(req.Identifier)
	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			logger.Warn("Login attempt with unknown identifier",
				zap.String("event", "login_failed_unknown_identifier"),
			)
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		logger.Warn("Login attempt for deactivated account",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "login_failed_inactive"),
		)
		return nil, appErrors.NewAppError(appErrors.CodeAuthInactive, "Account is deactivated", nil)
	}

	if !utils.CheckPassword(user.PasswordHashed, req.Password) {
		logger.Warn("Login attempt with invalid password",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "login_failed_invalid_password"),
		)
		return nil, appErrors.ErrInvalidCredentials
	}

	tokenPair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &user.ID,
		ShopID:      user.ShopID,
		Action:      domainActivity.ActionLogin,
		Description: fmt.Sprintf("%s logged in", user.FullName),
		Category:    "auth",
		PerformedBy: user.ID,
		Severity:    domainActivity.SeverityLow,
	})

	logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
		zap.String("event", "login_success"),
	)

	return &AuthResponse{
		User:         toAuthUser(user),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
	}, nil
}

// RegisterShop creates a shop and its owner account. The shop record is
// compensated away if the owner cannot be created.
func (s *Service) RegisterShop(ctx context.Context, req *RegisterShopRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeWeakPassword, err.Error(), nil)
	}

	phone := utils.SanitizePhone(req.Phone)
	var email *string
	if req.Email != nil {
		cleaned, err := utils.ValidateAndSanitizeEmail(*req.Email)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid email address", err)
		}
		email = &cleaned
	}

	if _, err := s.shopRepo.GetBySlug(ctx, req.Slug); err == nil {
		return nil, appErrors.NewAppError(appErrors.CodeDuplicateField, "Shop slug is already taken", nil)
	} else if !errors.Is(err, domainShop.ErrShopNotFound) {
		return nil, err
	}

	if _, err := s.userRepo.GetByIdentifier(ctx, phone); err == nil {
		return nil, appErrors.NewAppError(appErrors.CodeDuplicateField, "Phone number is already registered", nil)
	} else if !errors.Is(err, domainUser.ErrUserNotFound) {
		return nil, err
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	shop := &domainShop.Shop{
		Slug:         req.Slug,
		Name:         utils.SanitizeString(req.ShopName),
		Phone:        phone,
		Email:        email,
		Address:      req.Address,
		BusinessType: req.BusinessType,
		Settings:     domainShop.DefaultSettings(),
		IsActive:     true,
	}
	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, err
	}

	owner := &domainUser.User{
		ShopID:         &shop.ID,
		Role:           domainUser.RoleShopOwner,
		FullName:       utils.SanitizeString(req.OwnerName),
		Phone:          phone,
		Email:          email,
		PasswordHashed: hashedPassword,
		Address:        req.Address,
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, owner); err != nil {
		if delErr := s.shopRepo.Delete(ctx, shop.ID); delErr != nil {
			logger.Error("Failed to roll back shop after owner creation failure",
				zap.String("shop_id", shop.ID.String()),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	shop.OwnerID = &owner.ID
	if err := s.shopRepo.Update(ctx, shop); err != nil {
		logger.Error("Failed to attach owner to shop",
			zap.String("shop_id", shop.ID.String()),
			zap.String("owner_id", owner.ID.String()),
			zap.Error(err),
		)
	}

	tokenPair, err := s.issueTokens(ctx, owner)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &owner.ID,
		ShopID:      &shop.ID,
		Action:      domainActivity.ActionShopCreated,
		Description: fmt.Sprintf("Shop %s registered", shop.Name),
		Category:    "shop",
		PerformedBy: owner.ID,
		Severity:    domainActivity.SeverityMedium,
	})

	logger.Info("Shop registered",
		zap.String("shop_id", shop.ID.String()),
		zap.String("slug", shop.Slug),
		zap.String("owner_id", owner.ID.String()),
		zap.String("event", "shop_registered"),
	)

	return &AuthResponse{
		User:         toAuthUser(owner),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
	}, nil
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *Service) Refresh(ctx context.Context, req *RefreshRequest) (*RefreshResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	claims, err := utils.ValidateToken(req.RefreshToken, s.config.JWT.Secret)
	if err != nil {
		logger.Warn("Token refresh with invalid token",
			zap.String("event", "token_refresh_failed_invalid"),
			zap.Error(err),
		)
		return nil, appErrors.NewAppError(appErrors.CodeAuthInvalid, "Invalid refresh token", nil)
	}

	dbToken, err := s.refreshTokenRepo.GetByToken(ctx, req.RefreshToken)
	if err != nil {
		logger.Warn("Token refresh with unknown token",
			zap.String("user_id", claims.UserID.String()),
			zap.String("event", "token_refresh_failed_not_found"),
		)
		return nil, appErrors.NewAppError(appErrors.CodeAuthInvalid, "Invalid refresh token", nil)
	}
	if dbToken.Revoked || dbToken.UserID != claims.UserID || time.Now().After(dbToken.ExpiresAt) {
		return nil, appErrors.NewAppError(appErrors.CodeAuthInvalid, "Invalid refresh token", nil)
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeAuthInvalid, "Invalid refresh token", nil)
	}
	if !user.IsActive {
		return nil, appErrors.NewAppError(appErrors.CodeAuthInactive, "Account is deactivated", nil)
	}

	if err := s.refreshTokenRepo.Revoke(ctx, dbToken.ID); err != nil {
		logger.Error("Failed to revoke rotated refresh token",
			zap.String("token_id", dbToken.ID.String()),
			zap.Error(err),
		)
	}

	tokenPair, err := s.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	return &RefreshResponse{
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    tokenPair.ExpiresAt,
	}, nil
}

// Logout revokes the presented refresh token. The access token expires on
// its own.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID, req *LogoutRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	dbToken, err := s.refreshTokenRepo.GetByToken(ctx, req.RefreshToken)
	if err != nil || dbToken.UserID != userID {
		return appErrors.NewAppError(appErrors.CodeAuthInvalid, "Invalid refresh token", nil)
	}

	if err := s.refreshTokenRepo.Revoke(ctx, dbToken.ID); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	logger.Info("Refresh token revoked",
		zap.String("user_id", userID.String()),
		zap.String("event", "logout"),
	)

	return nil
}

// ChangePassword verifies the old password and revokes every outstanding
// refresh token for the account.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.NewPassword); err != nil {
		return appErrors.NewAppError(appErrors.CodeWeakPassword, err.Error(), nil)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if !utils.CheckPassword(user.PasswordHashed, req.OldPassword) {
		logger.Warn("Password change with invalid old password",
			zap.String("user_id", user.ID.String()),
			zap.String("event", "password_change_failed"),
		)
		return appErrors.ErrInvalidCredentials
	}

	hashedPassword, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHashed = hashedPassword
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	if err := s.refreshTokenRepo.RevokeAllUserTokens(ctx, userID); err != nil {
		logger.Error("Failed to revoke tokens after password change",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}

	logger.Info("Password changed",
		zap.String("user_id", user.ID.String()),
		zap.String("event", "password_change_success"),
	)

	return nil
}

func (s *Service) issueTokens(ctx context.Context, user *domainUser.User) (*utils.TokenPair, error) {
	tokenPair, err := utils.GenerateTokenPair(
		user.ID,
		string(user.Role),
		user.ShopID,
		s.config.JWT.Secret,
		s.config.JWT.ExpiryHours,
		s.config.JWT.RefreshExpiryHours,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	record := &domainUser.RefreshToken{
		UserID:    user.ID,
		Token:     tokenPair.RefreshToken,
		ExpiresAt: time.Now().Add(time.Duration(s.config.JWT.RefreshExpiryHours) * time.Hour),
	}
	if err := s.refreshTokenRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return tokenPair, nil
}
