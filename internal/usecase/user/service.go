package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainDevice "emi-device-manager/internal/domain/device"
	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	"emi-device-manager/internal/usecase/activity"
	"emi-device-manager/internal/usecase/stats"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

// DeviceLocker is the narrow slice of the lock engine the payment path
// needs for auto-lock on EMI default.
type DeviceLocker interface {
	LockForUser(ctx context.Context, caller policy.Caller, userID uuid.UUID, reason domainDevice.LockReason) error
}

// Service implements customer and account management.
type Service struct {
	userRepo   domainUser.Repository
	shopRepo   domainShop.Repository
	deviceRepo domainDevice.Repository
	stats      *stats.Service
	audit      *activity.Service
	locker     DeviceLocker
}

func NewService(
	userRepo domainUser.Repository,
	shopRepo domainShop.Repository,
	deviceRepo domainDevice.Repository,
	statsService *stats.Service,
	audit *activity.Service,
	locker DeviceLocker,
) *Service {
	return &Service{
		userRepo:   userRepo,
		shopRepo:   shopRepo,
		deviceRepo: deviceRepo,
		stats:      statsService,
		audit:      audit,
		locker:     locker,
	}
}

func notFound() error {
	return appErrors.NewAppError(appErrors.CodeNotFound, "User not found", nil)
}

// resolve fetches a user and normalizes cross-tenant access to not-found.
// Role rules still run through the policy afterwards.
func (s *Service) resolve(ctx context.Context, caller policy.Caller, id uuid.UUID) (*domainUser.User, error) {
	target, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	if caller.Role != domainUser.RoleSuperAdmin && caller.ID != target.ID {
		if caller.ShopID == nil || target.ShopID == nil || *caller.ShopID != *target.ShopID {
			return nil, notFound()
		}
	}

	return target, nil
}

// Create registers an account. Shop owners create customers in their own
// shop; role and shop assignment beyond that requires the super
// administrator.
func (s *Service) Create(ctx context.Context, caller policy.Caller, req *CreateRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeWeakPassword, err.Error(), nil)
	}

	role := domainUser.RoleUser
	if req.Role != nil {
		role = domainUser.Role(*req.Role)
	}

	shopID := req.ShopID
	if caller.Role == domainUser.RoleShopOwner && shopID == nil {
		shopID = caller.ShopID
	}

	if err := policy.Decide(caller, policy.UserCreate, &policy.Target{
		ShopID:  shopID,
		NewRole: &role,
	}); err != nil {
		return nil, err
	}

	if role != domainUser.RoleSuperAdmin && shopID == nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Shop is required for this role", nil)
	}
	if shopID != nil {
		if _, err := s.shopRepo.GetByID(ctx, *shopID); err != nil {
			if errors.Is(err, domainShop.ErrShopNotFound) {
				return nil, appErrors.NewAppError(appErrors.CodeNotFound, "Shop not found", nil)
			}
			return nil, err
		}
	}

	phone := utils.SanitizePhone(req.Phone)
	if _, err := s.userRepo.GetByIdentifier(ctx, phone); err == nil {
		return nil, appErrors.NewAppError(appErrors.CodeDuplicateField, "Phone number is already registered", nil)
	} else if !errors.Is(err, domainUser.ErrUserNotFound) {
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

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	account := &domainUser.User{
		ShopID:         shopID,
		Role:           role,
		FullName:       utils.SanitizeString(req.FullName),
		Phone:          phone,
		Email:          email,
		PasswordHashed: hashedPassword,
		Address:        req.Address,
		IsActive:       true,
	}
	if req.EMI != nil {
		applyEMI(&account.EMI, req.EMI)
	}
	account.Normalize()

	if err := s.userRepo.Create(ctx, account); err != nil {
		if errors.Is(err, domainUser.ErrUserAlreadyExists) {
			return nil, appErrors.NewAppError(appErrors.CodeDuplicateField, "Phone number is already registered", nil)
		}
		return nil, err
	}

	if account.ShopID != nil {
		s.stats.RecomputeBestEffort(ctx, *account.ShopID)
	}

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &account.ID,
		ShopID:      account.ShopID,
		Action:      domainActivity.ActionUserCreated,
		Description: fmt.Sprintf("Account created for %s", account.FullName),
		Category:    "user",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityLow,
	})

	logger.Info("User created",
		zap.String("user_id", account.ID.String()),
		zap.String("role", string(account.Role)),
		zap.String("event", "user_created"),
	)

	return ToUserResponse(account), nil
}

func (s *Service) Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*UserResponse, error) {
	target, err := s.resolve(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Decide(caller, policy.UserView, &policy.Target{
		ShopID: target.ShopID,
		UserID: &target.ID,
	}); err != nil {
		return nil, err
	}

	return ToUserResponse(target), nil
}

// Update edits profile fields, activation and EMI details. Role changes
// are a superadmin-only path.
func (s *Service) Update(ctx context.Context, caller policy.Caller, id uuid.UUID, req *UpdateRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	target, err := s.resolve(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if err := policy.Decide(caller, policy.UserUpdate, &policy.Target{
		ShopID: target.ShopID,
		UserID: &target.ID,
	}); err != nil {
		return nil, err
	}

	if req.Role != nil && caller.Role != domainUser.RoleSuperAdmin {
		return nil, appErrors.NewAppError(appErrors.CodeForbidden, "Only the super administrator may change roles", nil)
	}
	if caller.Role == domainUser.RoleUser && (req.IsActive != nil || req.EMI != nil) {
		return nil, appErrors.NewAppError(appErrors.CodeForbidden, "Users may only edit their own profile fields", nil)
	}

	wasDefaulted := target.EMI.Status == domainUser.EMIDefaulted

	if req.FullName != nil {
		target.FullName = utils.SanitizeString(*req.FullName)
	}
	if req.Email != nil {
		cleaned, err := utils.ValidateAndSanitizeEmail(*req.Email)
		if err != nil {
			return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid email address", err)
		}
		target.Email = &cleaned
	}
	if req.Address != nil {
		target.Address = req.Address
	}
	if req.IsActive != nil {
		target.IsActive = *req.IsActive
	}
	if req.Role != nil {
		target.Role = domainUser.Role(*req.Role)
	}
	if req.EMI != nil {
		applyEMI(&target.EMI, req.EMI)
	}
	target.Normalize()

	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	if target.ShopID != nil {
		s.stats.RecomputeBestEffort(ctx, *target.ShopID)
	}

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &target.ID,
		ShopID:      target.ShopID,
		Action:      domainActivity.ActionUserUpdated,
		Description: fmt.Sprintf("Account updated for %s", target.FullName),
		Category:    "user",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityLow,
	})

	// Falling into default triggers the shop's auto-lock, if enabled.
	if !wasDefaulted && target.EMI.Status == domainUser.EMIDefaulted {
		s.autoLock(ctx, caller, target)
	}

	return ToUserResponse(target), nil
}

// RecordPayment adds an installment payment and recomputes the plan. A
// plan that reaches zero remaining flips to completed.
func (s *Service) RecordPayment(ctx context.Context, caller policy.Caller, id uuid.UUID, req *RecordPaymentRequest) (*UserResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	if err := policy.Decide(caller, policy.UserUpdate, nil); err != nil {
		return nil, err
	}
	if caller.Role == domainUser.RoleUser {
		return nil, appErrors.NewAppError(appErrors.CodeForbidden, "Users may not record payments", nil)
	}

	target, err := s.resolve(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if target.Role != domainUser.RoleUser {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Payments can only be recorded for customers", nil)
	}

	target.EMI.PaidAmount += req.Amount
	if req.NextDueDate != nil {
		target.EMI.NextDueDate = req.NextDueDate
	}
	if target.EMI.Status == domainUser.EMIDefaulted || target.EMI.Status == domainUser.EMISuspended {
		target.EMI.Status = domainUser.EMIActive
	}
	target.Normalize()

	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	if target.ShopID != nil {
		s.stats.RecomputeBestEffort(ctx, *target.ShopID)
	}

	metadata := map[string]interface{}{
		"amount":    req.Amount,
		"remaining": target.EMI.RemainingAmount,
		"status":    string(target.EMI.Status),
	}
	if req.Note != nil {
		metadata["note"] = *req.Note
	}
	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &target.ID,
		ShopID:      target.ShopID,
		Action:      domainActivity.ActionPaymentRecorded,
		Description: fmt.Sprintf("Payment of %.2f recorded for %s", req.Amount, target.FullName),
		Category:    "payment",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityMedium,
		Metadata:    metadata,
	})

	logger.Info("Payment recorded",
		zap.String("user_id", target.ID.String()),
		zap.Float64("amount", req.Amount),
		zap.Float64("remaining", target.EMI.RemainingAmount),
		zap.String("event", "payment_recorded"),
	)

	return ToUserResponse(target), nil
}

// MarkDefaulted flags a customer's plan as defaulted and auto-locks the
// device when the shop settings ask for it.
func (s *Service) MarkDefaulted(ctx context.Context, caller policy.Caller, id uuid.UUID) (*UserResponse, error) {
	if err := policy.Decide(caller, policy.UserUpdate, nil); err != nil {
		return nil, err
	}
	if caller.Role == domainUser.RoleUser {
		return nil, appErrors.NewAppError(appErrors.CodeForbidden, "Users may not change plan status", nil)
	}

	target, err := s.resolve(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if target.Role != domainUser.RoleUser {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Only customer plans can default", nil)
	}
	if target.EMI.Status == domainUser.EMIDefaulted {
		return nil, appErrors.NewAppError(appErrors.CodeConflict, "Plan is already defaulted", nil)
	}

	target.EMI.Status = domainUser.EMIDefaulted
	target.Normalize()
	// Normalize flips completed plans back; a completed plan cannot default.
	if target.EMI.Status != domainUser.EMIDefaulted {
		return nil, appErrors.NewAppError(appErrors.CodeConflict, "Plan is already settled", nil)
	}

	if err := s.userRepo.Update(ctx, target); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &target.ID,
		ShopID:      target.ShopID,
		Action:      domainActivity.ActionUserUpdated,
		Description: fmt.Sprintf("EMI plan defaulted for %s", target.FullName),
		Category:    "payment",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityHigh,
	})

	s.autoLock(ctx, caller, target)

	return ToUserResponse(target), nil
}

func (s *Service) List(ctx context.Context, caller policy.Caller, req *FilterRequest) (*ListResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	if err := policy.Decide(caller, policy.UserList, nil); err != nil {
		return nil, err
	}
	if caller.Role == domainUser.RoleUser {
		// A customer's list is just their own record.
		self, err := s.userRepo.GetByID(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		return &ListResponse{
			Users:      []UserResponse{*ToUserResponse(self)},
			Pagination: utils.NewPagination(1, 1, 1),
		}, nil
	}

	page, limit := utils.ClampPage(req.Page, req.Limit)
	filter := &domainUser.Filter{
		Search:    utils.SanitizeString(req.Search),
		Page:      page,
		PageSize:  limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	if req.Role != nil {
		role := domainUser.Role(*req.Role)
		filter.Role = &role
	}
	if req.EMIStatus != nil {
		status := domainUser.EMIStatus(*req.EMIStatus)
		filter.EMIStatus = &status
	}
	filter.IsActive = req.IsActive

	if caller.Role == domainUser.RoleShopOwner {
		filter.ShopID = caller.ShopID
		filter.ExcludeSuperAdmin = true
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]UserResponse, 0, len(users))
	for _, u := range users {
		responses = append(responses, *ToUserResponse(u))
	}

	return &ListResponse{
		Users:      responses,
		Pagination: utils.NewPagination(page, limit, total),
	}, nil
}

// Delete removes an account and its registered device.
func (s *Service) Delete(ctx context.Context, caller policy.Caller, id uuid.UUID) error {
	target, err := s.resolve(ctx, caller, id)
	if err != nil {
		return err
	}

	if err := policy.Decide(caller, policy.UserDelete, &policy.Target{
		ShopID: target.ShopID,
		UserID: &target.ID,
		Role:   &target.Role,
	}); err != nil {
		return err
	}

	if device, err := s.deviceRepo.GetByUserID(ctx, target.ID); err == nil {
		if err := s.deviceRepo.Delete(ctx, device.ID); err != nil {
			logger.Error("Failed to delete device with its owner",
				zap.String("device_id", device.ID.String()),
				zap.Error(err),
			)
		}
	} else if !errors.Is(err, domainDevice.ErrDeviceNotFound) {
		return err
	}

	if err := s.userRepo.Delete(ctx, target.ID); err != nil {
		return err
	}

	if target.ShopID != nil {
		s.stats.RecomputeBestEffort(ctx, *target.ShopID)
	}

	s.audit.Record(ctx, &domainActivity.Log{
		ShopID:      target.ShopID,
		Action:      domainActivity.ActionUserDeleted,
		Description: fmt.Sprintf("Account deleted for %s", target.FullName),
		Category:    "user",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityMedium,
	})

	logger.Info("User deleted",
		zap.String("user_id", target.ID.String()),
		zap.String("event", "user_deleted"),
	)

	return nil
}

// autoLock locks the customer's device after a plan default when the shop
// has AutoLockOnDefault enabled. Best effort: a failure is logged, the
// status change already persisted.
func (s *Service) autoLock(ctx context.Context, caller policy.Caller, target *domainUser.User) {
	if s.locker == nil || target.ShopID == nil {
		return
	}

	shop, err := s.shopRepo.GetByID(ctx, *target.ShopID)
	if err != nil {
		logger.Error("Auto-lock shop lookup failed",
			zap.String("shop_id", target.ShopID.String()),
			zap.Error(err),
		)
		return
	}
	if !shop.Settings.AutoLockOnDefault {
		return
	}

	if err := s.locker.LockForUser(ctx, caller, target.ID, domainDevice.ReasonEMIDefault); err != nil {
		var appErr *appErrors.AppError
		if errors.As(err, &appErr) && (appErr.Code == appErrors.CodeNotFound || appErr.Code == appErrors.CodeAlreadyLocked) {
			return
		}
		logger.Error("Auto-lock after EMI default failed",
			zap.String("user_id", target.ID.String()),
			zap.Error(err),
		)
		return
	}

	logger.Info("Device auto-locked after EMI default",
		zap.String("user_id", target.ID.String()),
		zap.String("event", "auto_lock_on_default"),
	)
}

func applyEMI(dst *domainUser.EMIDetails, src *EMIRequest) {
	dst.TotalAmount = src.TotalAmount
	dst.PaidAmount = src.PaidAmount
	dst.MonthlyEMI = src.MonthlyEMI
	if src.DueDate != nil {
		dst.DueDate = src.DueDate
	}
	if src.NextDueDate != nil {
		dst.NextDueDate = src.NextDueDate
	}
	if src.Status != nil {
		dst.Status = domainUser.EMIStatus(*src.Status)
	}
}
