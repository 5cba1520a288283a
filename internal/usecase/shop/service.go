package shop

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	"emi-device-manager/internal/usecase/activity"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

// Service implements shop management. Owner-facing reads go through the
// same policy matrix as everything else; most writes are superadmin-only.
type Service struct {
	shopRepo domainShop.Repository
	audit    *activity.Service
}

func NewService(shopRepo domainShop.Repository, audit *activity.Service) *Service {
	return &Service{shopRepo: shopRepo, audit: audit}
}

func notFound() error {
	return appErrors.NewAppError(appErrors.CodeNotFound, "Shop not found", nil)
}

// Create registers a shop without an owner account. The owner is attached
// later, either by self-service signup or user creation.
func (s *Service) Create(ctx context.Context, caller policy.Caller, req *CreateRequest) (*ShopResponse, error) {
	if err := policy.Decide(caller, policy.ShopCreate, nil); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	if _, err := s.shopRepo.GetBySlug(ctx, req.Slug); err == nil {
		return nil, appErrors.NewAppError(appErrors.CodeDuplicateField, "Shop slug is already taken", nil)
	} else if !errors.Is(err, domainShop.ErrShopNotFound) {
		return nil, err
	}

	var email *string
	if req.Email != nil {
		cleaned, err := utils.ValidateAndSanitizeEmail(*req.Email)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid email address", err)
		}
		email = &cleaned
	}

	shop := &domainShop.Shop{
		Slug:         req.Slug,
		Name:         utils.SanitizeString(req.Name),
		Phone:        utils.SanitizePhone(req.Phone),
		Email:        email,
		Address:      req.Address,
		BusinessType: req.BusinessType,
		Settings:     domainShop.DefaultSettings(),
		IsActive:     true,
	}
	if err := s.shopRepo.Create(ctx, shop); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &domainActivity.Log{
		ShopID:      &shop.ID,
		Action:      domainActivity.ActionShopCreated,
		Description: fmt.Sprintf("Shop %s created", shop.Name),
		Category:    "shop",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityMedium,
	})

	logger.Info("Shop created",
		zap.String("shop_id", shop.ID.String()),
		zap.String("slug", shop.Slug),
		zap.String("event", "shop_created"),
	)

	return ToShopResponse(shop), nil
}

func (s *Service) Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*ShopResponse, error) {
	// Cross-tenant shop ids read as not-found for shop owners.
	if caller.Role == domainUser.RoleShopOwner && (caller.ShopID == nil || *caller.ShopID != id) {
		return nil, notFound()
	}
	if err := policy.Decide(caller, policy.ShopView, &policy.Target{ShopID: &id}); err != nil {
		return nil, err
	}

	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainShop.ErrShopNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	return ToShopResponse(shop), nil
}

// Update edits the shop profile and lock-engine settings.
func (s *Service) Update(ctx context.Context, caller policy.Caller, id uuid.UUID, req *UpdateRequest) (*ShopResponse, error) {
	if caller.Role == domainUser.RoleShopOwner && (caller.ShopID == nil || *caller.ShopID != id) {
		return nil, notFound()
	}
	if err := policy.Decide(caller, policy.ShopUpdate, &policy.Target{ShopID: &id}); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainShop.ErrShopNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	// Deactivation is reserved for the super administrator.
	if req.IsActive != nil && caller.Role != domainUser.RoleSuperAdmin {
		return nil, appErrors.NewAppError(appErrors.CodeForbidden, "Only the super administrator may change shop status", nil)
	}

	if req.Name != nil {
		shop.Name = utils.SanitizeString(*req.Name)
	}
	if req.Phone != nil {
		shop.Phone = utils.SanitizePhone(*req.Phone)
	}
	if req.Email != nil {
		cleaned, err := utils.ValidateAndSanitizeEmail(*req.Email)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid email address", err)
		}
		shop.Email = &cleaned
	}
	if req.Address != nil {
		shop.Address = req.Address
	}
	if req.BusinessType != nil {
		shop.BusinessType = req.BusinessType
	}
	if req.IsActive != nil {
		shop.IsActive = *req.IsActive
	}
	if req.Settings != nil {
		applySettings(&shop.Settings, req.Settings)
	}

	if err := s.shopRepo.Update(ctx, shop); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &domainActivity.Log{
		ShopID:      &shop.ID,
		Action:      domainActivity.ActionShopUpdated,
		Description: fmt.Sprintf("Shop %s updated", shop.Name),
		Category:    "shop",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityLow,
	})

	return ToShopResponse(shop), nil
}

func (s *Service) List(ctx context.Context, caller policy.Caller, req *FilterRequest) (*ListResponse, error) {
	if err := policy.Decide(caller, policy.ShopList, nil); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	page, limit := utils.ClampPage(req.Page, req.Limit)
	shops, total, err := s.shopRepo.List(ctx, &domainShop.Filter{
		IsActive:  req.IsActive,
		Search:    utils.SanitizeString(req.Search),
		Page:      page,
		PageSize:  limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	})
	if err != nil {
		return nil, err
	}

	responses := make([]ShopResponse, 0, len(shops))
	for _, shop := range shops {
		responses = append(responses, *ToShopResponse(shop))
	}

	return &ListResponse{
		Shops:      responses,
		Pagination: utils.NewPagination(page, limit, total),
	}, nil
}

// Delete removes the shop and everything under it: users, devices and
// activity logs go with the tenant.
func (s *Service) Delete(ctx context.Context, caller policy.Caller, id uuid.UUID) error {
	if err := policy.Decide(caller, policy.ShopDelete, nil); err != nil {
		return err
	}

	shop, err := s.shopRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainShop.ErrShopNotFound) {
			return notFound()
		}
		return err
	}

	if err := s.shopRepo.Delete(ctx, shop.ID); err != nil {
		return err
	}

	logger.Info("Shop deleted with all tenant data",
		zap.String("shop_id", shop.ID.String()),
		zap.String("slug", shop.Slug),
		zap.String("event", "shop_deleted"),
	)

	return nil
}

func applySettings(dst *domainShop.Settings, src *SettingsRequest) {
	if src.AutoLockOnDefault != nil {
		dst.AutoLockOnDefault = *src.AutoLockOnDefault
	}
	if src.GracePeriodDays != nil {
		dst.GracePeriodDays = *src.GracePeriodDays
	}
	if src.NotificationEnabled != nil {
		dst.NotificationEnabled = *src.NotificationEnabled
	}
	if src.AllowBulkOperations != nil {
		dst.AllowBulkOperations = *src.AllowBulkOperations
	}
}
