package device

import (
	"context"
	"errors"
	"fmt"
	"time"

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

// CommandPublisher pushes lock/unlock commands to the device agent. The
// transport is opaque to the engine; failures are logged, never fatal.
type CommandPublisher interface {
	PublishCommand(deviceID string, command string, payload map[string]interface{}) error
}

// Broadcaster fans events out to dashboard clients of one shop.
type Broadcaster interface {
	BroadcastToShop(shopID uuid.UUID, event string, payload interface{})
}

// Service is the device lock engine: registration, the lock/unlock state
// machine, bulk operations and mirror reconciliation.
type Service struct {
	deviceRepo  domainDevice.Repository
	userRepo    domainUser.Repository
	shopRepo    domainShop.Repository
	stats       *stats.Service
	audit       *activity.Service
	publisher   CommandPublisher
	broadcaster Broadcaster
}

func NewService(
	deviceRepo domainDevice.Repository,
	userRepo domainUser.Repository,
	shopRepo domainShop.Repository,
	statsService *stats.Service,
	audit *activity.Service,
	publisher CommandPublisher,
	broadcaster Broadcaster,
) *Service {
	return &Service{
		deviceRepo:  deviceRepo,
		userRepo:    userRepo,
		shopRepo:    shopRepo,
		stats:       statsService,
		audit:       audit,
		publisher:   publisher,
		broadcaster: broadcaster,
	}
}

// scopeFor returns the shop scope applied to repository queries for this
// caller. Cross-tenant ids fall out of scoped queries as not-found, so
// existence is never leaked.
func scopeFor(caller policy.Caller) *uuid.UUID {
	if caller.Role == domainUser.RoleSuperAdmin {
		return nil
	}
	return caller.ShopID
}

func notFound() error {
	return appErrors.NewAppError(appErrors.CodeNotFound, "Device not found", nil)
}

// Register creates a device for a user. DeviceID and IMEI uniqueness is
// checked as a single combined existence query.
func (s *Service) Register(ctx context.Context, caller policy.Caller, req *RegisterRequest) (*DeviceResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	// The request already names its target user, so the self rule runs
	// before any lookup: a user-role caller is denied for foreign ids
	// without learning whether they exist. The tenancy check repeats below
	// against the owner's actual shop.
	if err := policy.Decide(caller, policy.DeviceRegister, &policy.Target{
		ShopID: caller.ShopID,
		UserID: &req.UserID,
	}); err != nil {
		return nil, err
	}

	owner, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domainUser.ErrUserNotFound) {
			return nil, appErrors.NewAppError(appErrors.CodeNotFound, "User not found", nil)
		}
		return nil, err
	}
	if owner.ShopID == nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "User is not attached to a shop", nil)
	}
	if err := ValidateOwner(owner); err != nil {
		return nil, err
	}

	if err := policy.Decide(caller, policy.DeviceRegister, &policy.Target{
		ShopID: owner.ShopID,
		UserID: &owner.ID,
	}); err != nil {
		return nil, err
	}

	exists, err := s.deviceRepo.ExistsByDeviceIDOrIMEI(ctx, req.DeviceID, req.IMEINumber)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, appErrors.NewAppError(appErrors.CodeDuplicateDevice,
			"Device with this ID or IMEI already exists", nil)
	}

	now := time.Now()
	device := &domainDevice.Device{
		UserID:     owner.ID,
		ShopID:     *owner.ShopID,
		DeviceID:   req.DeviceID,
		IMEINumber: req.IMEINumber,
		Brand:      req.Brand,
		Model:      req.Model,
		OSVersion:  req.OSVersion,
		Connection: domainDevice.ConnectionStatus{
			IsOnline:       true,
			LastSeen:       &now,
			LastHeartbeat:  &now,
			ConnectionType: req.ConnectionType,
		},
		Security: domainDevice.Security{
			AppInstalled: true,
		},
	}

	if err := s.deviceRepo.Create(ctx, device); err != nil {
		if errors.Is(err, domainDevice.ErrDeviceAlreadyExists) {
			return nil, appErrors.NewAppError(appErrors.CodeDuplicateDevice,
				"Device with this ID or IMEI already exists", nil)
		}
		return nil, err
	}

	// Second denormalized mirror: the owning user carries the device
	// reference for cheap reads.
	if err := s.userRepo.UpdateDeviceRef(ctx, owner.ID, device.DeviceID, device.IMEINumber); err != nil {
		logger.Error("Failed to mirror device reference onto user",
			zap.String("user_id", owner.ID.String()),
			zap.String("device_id", device.DeviceID),
			zap.Error(err),
		)
	}

	s.stats.RecomputeBestEffort(ctx, device.ShopID)

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &owner.ID,
		ShopID:      owner.ShopID,
		DeviceID:    &device.ID,
		Action:      domainActivity.ActionDeviceRegistered,
		Description: fmt.Sprintf("Device %s registered for %s", device.DeviceID, owner.FullName),
		Category:    "device",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityLow,
	})

	s.broadcast(device.ShopID, "device_registered", ToDeviceResponse(device))

	logger.Info("Device registered",
		zap.String("device_id", device.DeviceID),
		zap.String("user_id", owner.ID.String()),
		zap.String("event", "device_registered"),
	)

	return ToDeviceResponse(device), nil
}

// Lock transitions a device from UNLOCKED to LOCKED. Authorization is
// checked before existence: a user-role caller is denied regardless of
// whether the device exists.
func (s *Service) Lock(ctx context.Context, caller policy.Caller, id uuid.UUID, req *LockRequest) (*DeviceResponse, error) {
	if err := policy.Decide(caller, policy.DeviceLock, nil); err != nil {
		return nil, err
	}

	reason := domainDevice.ReasonEMIDefault
	if req != nil && req.Reason != nil {
		reason = *req.Reason
	}
	if !reason.IsValid() {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid lock reason", nil)
	}

	device, err := s.deviceRepo.GetByID(ctx, id, scopeFor(caller))
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	if err := s.lock(ctx, caller, device, reason); err != nil {
		return nil, err
	}

	return ToDeviceResponse(device), nil
}

// LockForUser locks the device owned by the given user. Used by the EMI
// bookkeeping path when a plan defaults and the shop auto-locks.
func (s *Service) LockForUser(ctx context.Context, caller policy.Caller, userID uuid.UUID, reason domainDevice.LockReason) error {
	if err := policy.Decide(caller, policy.DeviceLock, nil); err != nil {
		return err
	}

	device, err := s.deviceRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return notFound()
		}
		return err
	}

	return s.lock(ctx, caller, device, reason)
}

// lock performs the LOCKED transition and its cross-entity side effects.
// The device record is the source of truth; the user mirror and shop
// statistics follow as sequential writes.
func (s *Service) lock(ctx context.Context, caller policy.Caller, device *domainDevice.Device, reason domainDevice.LockReason) error {
	if err := s.lockOne(ctx, caller, device, reason); err != nil {
		return err
	}

	s.stats.RecomputeBestEffort(ctx, device.ShopID)

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &device.UserID,
		ShopID:      &device.ShopID,
		DeviceID:    &device.ID,
		Action:      domainActivity.ActionDeviceLocked,
		Description: fmt.Sprintf("Device %s locked (%s)", device.DeviceID, reason),
		Category:    "device",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityMedium,
		Metadata:    map[string]interface{}{"reason": string(reason)},
	})

	s.broadcast(device.ShopID, "device_locked", ToDeviceResponse(device))

	logger.Info("Device locked",
		zap.String("device_id", device.DeviceID),
		zap.String("reason", string(reason)),
		zap.String("locked_by", caller.ID.String()),
		zap.String("event", "device_locked"),
	)

	return nil
}

// Unlock transitions a device from LOCKED to UNLOCKED.
func (s *Service) Unlock(ctx context.Context, caller policy.Caller, id uuid.UUID) (*DeviceResponse, error) {
	if err := policy.Decide(caller, policy.DeviceUnlock, nil); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, id, scopeFor(caller))
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	if err := s.unlock(ctx, caller, device); err != nil {
		return nil, err
	}

	return ToDeviceResponse(device), nil
}

func (s *Service) unlock(ctx context.Context, caller policy.Caller, device *domainDevice.Device) error {
	if err := s.unlockOne(ctx, caller, device); err != nil {
		return err
	}

	s.stats.RecomputeBestEffort(ctx, device.ShopID)

	s.audit.Record(ctx, &domainActivity.Log{
		UserID:      &device.UserID,
		ShopID:      &device.ShopID,
		DeviceID:    &device.ID,
		Action:      domainActivity.ActionDeviceUnlocked,
		Description: fmt.Sprintf("Device %s unlocked", device.DeviceID),
		Category:    "device",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityLow,
	})

	s.broadcast(device.ShopID, "device_unlocked", ToDeviceResponse(device))

	logger.Info("Device unlocked",
		zap.String("device_id", device.DeviceID),
		zap.String("event", "device_unlocked"),
	)

	return nil
}

// BulkLock locks the caller-scoped subset of the requested id set. Each
// device is processed independently; per-device failures are collected and
// never abort the batch. Statistics are recomputed once per distinct
// affected shop.
func (s *Service) BulkLock(ctx context.Context, caller policy.Caller, req *BulkLockRequest) (*BulkResponse, error) {
	if err := policy.Decide(caller, policy.DeviceLock, nil); err != nil {
		return nil, err
	}
	if err := s.checkBulkAllowed(ctx, caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	reason := domainDevice.ReasonEMIDefault
	if req.Reason != nil {
		reason = *req.Reason
	}

	return s.bulk(ctx, caller, req.DeviceIDs, domainActivity.ActionBulkLock,
		func(d *domainDevice.Device) error {
			return s.lockOne(ctx, caller, d, reason)
		})
}

// BulkUnlock is the unlock counterpart of BulkLock.
func (s *Service) BulkUnlock(ctx context.Context, caller policy.Caller, req *BulkUnlockRequest) (*BulkResponse, error) {
	if err := policy.Decide(caller, policy.DeviceUnlock, nil); err != nil {
		return nil, err
	}
	if err := s.checkBulkAllowed(ctx, caller); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	return s.bulk(ctx, caller, req.DeviceIDs, domainActivity.ActionBulkUnlock,
		func(d *domainDevice.Device) error {
			return s.unlockOne(ctx, caller, d)
		})
}

// checkBulkAllowed enforces the per-shop bulk toggle for shop owners. The
// super administrator is not bound by shop settings.
func (s *Service) checkBulkAllowed(ctx context.Context, caller policy.Caller) error {
	if caller.Role != domainUser.RoleShopOwner || caller.ShopID == nil {
		return nil
	}
	shop, err := s.shopRepo.GetByID(ctx, *caller.ShopID)
	if err != nil {
		return err
	}
	if !shop.Settings.AllowBulkOperations {
		return appErrors.NewAppError(appErrors.CodeConflict,
			"Bulk operations are disabled for this shop", nil)
	}
	return nil
}

// lockOne and unlockOne apply a single transition without triggering the
// per-device statistics recompute; the bulk driver aggregates that per
// shop.
func (s *Service) lockOne(ctx context.Context, caller policy.Caller, device *domainDevice.Device, reason domainDevice.LockReason) error {
	if device.Lock.IsLocked {
		return appErrors.NewAppError(appErrors.CodeAlreadyLocked, "Already locked", nil)
	}

	now := time.Now()
	device.Lock = domainDevice.LockStatus{
		IsLocked:   true,
		LockedAt:   &now,
		UnlockedAt: device.Lock.UnlockedAt,
		LockReason: &reason,
		LockedBy:   &caller.ID,
	}

	if err := s.deviceRepo.UpdateLockStatus(ctx, device.ID, device.Lock); err != nil {
		return err
	}

	s.mirror(ctx, device.UserID, domainUser.DeviceMirror{
		IsLocked:     true,
		LastLockedAt: &now,
		LockReason:   utils.StringPtr(string(reason)),
	})

	s.publish(device.DeviceID, "lock", map[string]interface{}{"reason": string(reason)})
	return nil
}

func (s *Service) unlockOne(ctx context.Context, caller policy.Caller, device *domainDevice.Device) error {
	if !device.Lock.IsLocked {
		return appErrors.NewAppError(appErrors.CodeNotLocked, "Not locked", nil)
	}

	now := time.Now()
	device.Lock = domainDevice.LockStatus{
		IsLocked:   false,
		LockedAt:   device.Lock.LockedAt,
		UnlockedAt: &now,
		LockReason: nil,
		LockedBy:   device.Lock.LockedBy,
	}

	if err := s.deviceRepo.UpdateLockStatus(ctx, device.ID, device.Lock); err != nil {
		return err
	}

	s.mirror(ctx, device.UserID, domainUser.DeviceMirror{
		IsLocked:       false,
		LastUnlockedAt: &now,
		LockReason:     nil,
	})

	s.publish(device.DeviceID, "unlock", nil)
	return nil
}

func (s *Service) bulk(ctx context.Context, caller policy.Caller, ids []uuid.UUID, action domainActivity.Action, apply func(*domainDevice.Device) error) (*BulkResponse, error) {
	scope := scopeFor(caller)

	devices, err := s.deviceRepo.ListByIDs(ctx, ids, scope)
	if err != nil {
		return nil, err
	}

	found := make(map[uuid.UUID]*domainDevice.Device, len(devices))
	for _, d := range devices {
		found[d.ID] = d
	}

	response := &BulkResponse{
		Successful: []BulkSuccess{},
		Failed:     []BulkFailure{},
	}
	affectedShops := make(map[uuid.UUID]struct{})

	for _, id := range ids {
		device, ok := found[id]
		if !ok {
			// For shop owners, ids outside their shop are silently excluded
			// from the input set rather than individually rejected.
			if scope != nil {
				continue
			}
			response.Failed = append(response.Failed, BulkFailure{
				DeviceID: id.String(),
				Reason:   "Device not found",
			})
			continue
		}

		if err := apply(device); err != nil {
			reason := err.Error()
			var appErr *appErrors.AppError
			if errors.As(err, &appErr) {
				reason = appErr.Message
			}
			response.Failed = append(response.Failed, BulkFailure{
				DeviceID:   device.DeviceID,
				DeviceName: device.DisplayName(),
				Reason:     reason,
			})
			continue
		}

		userName := ""
		if owner, uerr := s.userRepo.GetByID(ctx, device.UserID); uerr == nil {
			userName = owner.FullName
		}
		response.Successful = append(response.Successful, BulkSuccess{
			DeviceID:   device.DeviceID,
			DeviceName: device.DisplayName(),
			UserName:   userName,
		})
		affectedShops[device.ShopID] = struct{}{}
	}

	// One recompute per distinct affected shop, not one per device.
	for shopID := range affectedShops {
		s.stats.RecomputeBestEffort(ctx, shopID)
		s.broadcast(shopID, "devices_bulk_updated", response)
	}

	s.audit.Record(ctx, &domainActivity.Log{
		ShopID:      caller.ShopID,
		Action:      action,
		Description: fmt.Sprintf("Bulk operation: %d succeeded, %d failed", len(response.Successful), len(response.Failed)),
		Category:    "device",
		PerformedBy: caller.ID,
		Severity:    domainActivity.SeverityMedium,
		Metadata: map[string]interface{}{
			"requested": len(ids),
			"succeeded": len(response.Successful),
			"failed":    len(response.Failed),
		},
	})

	logger.Info("Bulk device operation completed",
		zap.String("action", string(action)),
		zap.Int("requested", len(ids)),
		zap.Int("succeeded", len(response.Successful)),
		zap.Int("failed", len(response.Failed)),
	)

	return response, nil
}

// Get fetches one device within the caller's scope.
func (s *Service) Get(ctx context.Context, caller policy.Caller, id uuid.UUID) (*DeviceResponse, error) {
	if err := policy.Decide(caller, policy.DeviceView, nil); err != nil {
		return nil, err
	}

	device, err := s.deviceRepo.GetByID(ctx, id, scopeFor(caller))
	if err != nil {
		if errors.Is(err, domainDevice.ErrDeviceNotFound) {
			return nil, notFound()
		}
		return nil, err
	}

	// A customer only ever sees their own device; anything else reads as
	// not found rather than forbidden.
	if caller.Role == domainUser.RoleUser && device.UserID != caller.ID {
		return nil, notFound()
	}

	return ToDeviceResponse(device), nil
}

// List returns the devices visible to the caller.
func (s *Service) List(ctx context.Context, caller policy.Caller, req *FilterRequest) (*ListResponse, error) {
	if err := policy.Decide(caller, policy.DeviceList, nil); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, appErrors.NewAppError(appErrors.CodeValidation, "Invalid input", err)
	}

	page, limit := utils.ClampPage(req.Page, req.Limit)

	filter := &domainDevice.Filter{
		IsLocked:  req.IsLocked,
		IsOnline:  req.IsOnline,
		Search:    req.Search,
		Page:      page,
		PageSize:  limit,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}
	switch caller.Role {
	case domainUser.RoleSuperAdmin:
	case domainUser.RoleShopOwner:
		filter.ShopID = caller.ShopID
	case domainUser.RoleUser:
		filter.UserID = &caller.ID
	}

	devices, total, err := s.deviceRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	responses := make([]DeviceResponse, len(devices))
	for i, d := range devices {
		responses[i] = *ToDeviceResponse(d)
	}

	return &ListResponse{
		Devices:    responses,
		Pagination: utils.NewPagination(page, limit, total),
	}, nil
}

// Heartbeat records a device agent check-in. Called from the MQTT
// ingestion path, so it is keyed by the business device id.
func (s *Service) Heartbeat(ctx context.Context, deviceID string, req *HeartbeatRequest) error {
	device, err := s.deviceRepo.GetByDeviceID(ctx, deviceID)
	if err != nil {
		return err
	}

	now := time.Now()
	conn := domainDevice.ConnectionStatus{
		IsOnline:       true,
		LastSeen:       &now,
		LastHeartbeat:  &now,
		ConnectionType: device.Connection.ConnectionType,
	}
	if req != nil && req.ConnectionType != nil {
		conn.ConnectionType = req.ConnectionType
	}

	if err := s.deviceRepo.UpdateConnectionStatus(ctx, deviceID, conn); err != nil {
		return err
	}

	if req != nil && (req.AppInstalled != nil || req.AppTampered != nil || req.RootDetected != nil) {
		sec := device.Security
		if req.AppInstalled != nil {
			sec.AppInstalled = *req.AppInstalled
		}
		if req.AppTampered != nil {
			sec.AppTampered = *req.AppTampered
		}
		if req.RootDetected != nil {
			sec.RootDetected = *req.RootDetected
		}
		sec.LastSecurityCheck = &now
		return s.deviceRepo.UpdateSecurity(ctx, deviceID, sec)
	}

	return nil
}

// ReconcileMirrors repairs user device-state mirrors from the device
// records, the source of truth. Safe to run repeatedly.
func (s *Service) ReconcileMirrors(ctx context.Context, caller policy.Caller, shopID *uuid.UUID) (*ReconcileResponse, error) {
	if err := policy.Decide(caller, policy.MirrorReconcile, nil); err != nil {
		return nil, err
	}

	result := &ReconcileResponse{}
	page := 1
	for {
		devices, _, err := s.deviceRepo.List(ctx, &domainDevice.Filter{
			ShopID:   shopID,
			Page:     page,
			PageSize: utils.MaxPageSize,
		})
		if err != nil {
			return nil, err
		}
		if len(devices) == 0 {
			break
		}

		for _, device := range devices {
			result.Checked++
			owner, err := s.userRepo.GetByID(ctx, device.UserID)
			if err != nil {
				continue
			}
			if owner.DeviceMirror.IsLocked == device.Lock.IsLocked {
				continue
			}

			mirror := domainUser.DeviceMirror{
				IsLocked:       device.Lock.IsLocked,
				LastLockedAt:   device.Lock.LockedAt,
				LastUnlockedAt: device.Lock.UnlockedAt,
			}
			if device.Lock.LockReason != nil {
				mirror.LockReason = utils.StringPtr(string(*device.Lock.LockReason))
			}
			if err := s.userRepo.UpdateDeviceMirror(ctx, owner.ID, mirror); err != nil {
				logger.Error("Mirror repair failed",
					zap.String("user_id", owner.ID.String()),
					zap.Error(err),
				)
				continue
			}
			result.Repaired++
		}

		if len(devices) < utils.MaxPageSize {
			break
		}
		page++
	}

	logger.Info("Mirror reconciliation finished",
		zap.Int("checked", result.Checked),
		zap.Int("repaired", result.Repaired),
	)

	return result, nil
}

// mirror updates the owning user's device-status copy. The device write
// already committed, so a mirror failure is logged and left to the
// reconciliation pass instead of failing the operation.
func (s *Service) mirror(ctx context.Context, userID uuid.UUID, m domainUser.DeviceMirror) {
	if err := s.userRepo.UpdateDeviceMirror(ctx, userID, m); err != nil {
		logger.Error("Failed to update user device mirror",
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
	}
}

func (s *Service) publish(deviceID, command string, payload map[string]interface{}) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishCommand(deviceID, command, payload); err != nil {
		logger.Warn("Failed to publish device command",
			zap.String("device_id", deviceID),
			zap.String("command", command),
			zap.Error(err),
		)
	}
}

func (s *Service) broadcast(shopID uuid.UUID, event string, payload interface{}) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastToShop(shopID, event, payload)
}
