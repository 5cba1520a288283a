package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainDevice "emi-device-manager/internal/domain/device"
	"emi-device-manager/internal/infrastructure/database/postgres/models"
)

// DeviceRepository implements domain device.Repository. Scoped queries
// take an optional shop id; a non-nil scope narrows every lookup to that
// tenant.
type DeviceRepository struct {
	db *DB
}

func NewDeviceRepository(db *DB) domainDevice.Repository {
	return &DeviceRepository{db: db}
}

func (r *DeviceRepository) Create(ctx context.Context, d *domainDevice.Device) error {
	d.ID = uuid.New()
	d.CreatedAt = time.Now()
	d.UpdatedAt = time.Now()

	dbModel := toDeviceModel(d)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return domainDevice.ErrDeviceAlreadyExists
		}
		return fmt.Errorf("failed to create device: %w", err)
	}

	d.ID = dbModel.ID
	d.CreatedAt = dbModel.CreatedAt
	d.UpdatedAt = dbModel.UpdatedAt

	return nil
}

func (r *DeviceRepository) GetByID(ctx context.Context, id uuid.UUID, shopID *uuid.UUID) (*domainDevice.Device, error) {
	query := r.db.DB.WithContext(ctx).Where("id = ?", id)
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}

	var dbModel models.DeviceModel
	err := query.First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) GetByDeviceID(ctx context.Context, deviceID string) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("device_id = ?", deviceID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*domainDevice.Device, error) {
	var dbModel models.DeviceModel
	err := r.db.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainDevice.ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	return toDeviceEntity(&dbModel), nil
}

func (r *DeviceRepository) ExistsByDeviceIDOrIMEI(ctx context.Context, deviceID, imei string) (bool, error) {
	var count int64
	err := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("device_id = ? OR imei_number = ?", deviceID, imei).
		Count(&count).Error

	if err != nil {
		return false, fmt.Errorf("failed to check device existence: %w", err)
	}
	return count > 0, nil
}

func (r *DeviceRepository) ListByIDs(ctx context.Context, ids []uuid.UUID, shopID *uuid.UUID) ([]*domainDevice.Device, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := r.db.DB.WithContext(ctx).Where("id IN ?", ids)
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}

	var dbModels []models.DeviceModel
	if err := query.Find(&dbModels).Error; err != nil {
		return nil, fmt.Errorf("failed to list devices by ids: %w", err)
	}

	devices := make([]*domainDevice.Device, 0, len(dbModels))
	for i := range dbModels {
		devices = append(devices, toDeviceEntity(&dbModels[i]))
	}

	return devices, nil
}

func (r *DeviceRepository) UpdateLockStatus(ctx context.Context, id uuid.UUID, lock domainDevice.LockStatus) error {
	var reason *string
	if lock.LockReason != nil {
		s := string(*lock.LockReason)
		reason = &s
	}

	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_locked":   lock.IsLocked,
			"locked_at":   lock.LockedAt,
			"unlocked_at": lock.UnlockedAt,
			"lock_reason": reason,
			"locked_by":   lock.LockedBy,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update lock status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) UpdateConnectionStatus(ctx context.Context, deviceID string, conn domainDevice.ConnectionStatus) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{
			"is_online":       conn.IsOnline,
			"last_seen":       conn.LastSeen,
			"last_heartbeat":  conn.LastHeartbeat,
			"connection_type": conn.ConnectionType,
			"updated_at":      time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update connection status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) UpdateSecurity(ctx context.Context, deviceID string, sec domainDevice.Security) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("device_id = ?", deviceID).
		Updates(map[string]interface{}{
			"app_installed":       sec.AppInstalled,
			"app_tampered":        sec.AppTampered,
			"root_detected":       sec.RootDetected,
			"last_security_check": sec.LastSecurityCheck,
			"updated_at":          time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update security status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}

	return nil
}

func (r *DeviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.DeviceModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete device: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainDevice.ErrDeviceNotFound
	}
	return nil
}

func (r *DeviceRepository) List(ctx context.Context, filter *domainDevice.Filter) ([]*domainDevice.Device, int64, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.DeviceModel{})

	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.IsLocked != nil {
		query = query.Where("is_locked = ?", *filter.IsLocked)
	}
	if filter.IsOnline != nil {
		// Online means a recent heartbeat, not the stored flag: the flag only
		// flips on agent traffic and goes stale when a device drops off.
		cutoff := time.Now().Add(-domainDevice.OnlineWindow)
		if *filter.IsOnline {
			query = query.Where("last_heartbeat > ?", cutoff)
		} else {
			query = query.Where("last_heartbeat IS NULL OR last_heartbeat <= ?", cutoff)
		}
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("device_id ILIKE ? OR imei_number ILIKE ? OR brand ILIKE ? OR model ILIKE ?",
			search, search, search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count devices: %w", err)
	}

	query = query.Order(orderClause(filter.SortBy, filter.SortOrder, map[string]bool{
		"created_at": true, "device_id": true, "last_heartbeat": true,
	}))
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var dbModels []models.DeviceModel
	if err := query.Find(&dbModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list devices: %w", err)
	}

	devices := make([]*domainDevice.Device, 0, len(dbModels))
	for i := range dbModels {
		devices = append(devices, toDeviceEntity(&dbModels[i]))
	}

	return devices, total, nil
}

func (r *DeviceRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.DB.WithContext(ctx).Model(&models.DeviceModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count devices: %w", err)
	}
	return total, nil
}

func (r *DeviceRepository) CountLocked(ctx context.Context, shopID *uuid.UUID) (int64, error) {
	query := r.db.DB.WithContext(ctx).
		Model(&models.DeviceModel{}).
		Where("is_locked = ?", true)
	if shopID != nil {
		query = query.Where("shop_id = ?", *shopID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count locked devices: %w", err)
	}
	return total, nil
}

func toDeviceModel(d *domainDevice.Device) *models.DeviceModel {
	var reason *string
	if d.Lock.LockReason != nil {
		s := string(*d.Lock.LockReason)
		reason = &s
	}

	return &models.DeviceModel{
		ID:                d.ID,
		UserID:            d.UserID,
		ShopID:            d.ShopID,
		DeviceID:          d.DeviceID,
		IMEINumber:        d.IMEINumber,
		Brand:             d.Brand,
		Model:             d.Model,
		OSVersion:         d.OSVersion,
		IsLocked:          d.Lock.IsLocked,
		LockedAt:          d.Lock.LockedAt,
		UnlockedAt:        d.Lock.UnlockedAt,
		LockReason:        reason,
		LockedBy:          d.Lock.LockedBy,
		IsOnline:          d.Connection.IsOnline,
		LastSeen:          d.Connection.LastSeen,
		LastHeartbeat:     d.Connection.LastHeartbeat,
		ConnectionType:    d.Connection.ConnectionType,
		AppInstalled:      d.Security.AppInstalled,
		AppTampered:       d.Security.AppTampered,
		RootDetected:      d.Security.RootDetected,
		LastSecurityCheck: d.Security.LastSecurityCheck,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func toDeviceEntity(m *models.DeviceModel) *domainDevice.Device {
	var reason *domainDevice.LockReason
	if m.LockReason != nil {
		r := domainDevice.LockReason(*m.LockReason)
		reason = &r
	}

	return &domainDevice.Device{
		ID:         m.ID,
		UserID:     m.UserID,
		ShopID:     m.ShopID,
		DeviceID:   m.DeviceID,
		IMEINumber: m.IMEINumber,
		Brand:      m.Brand,
		Model:      m.Model,
		OSVersion:  m.OSVersion,
		Lock: domainDevice.LockStatus{
			IsLocked:   m.IsLocked,
			LockedAt:   m.LockedAt,
			UnlockedAt: m.UnlockedAt,
			LockReason: reason,
			LockedBy:   m.LockedBy,
		},
		Connection: domainDevice.ConnectionStatus{
			IsOnline:       m.IsOnline,
			LastSeen:       m.LastSeen,
			LastHeartbeat:  m.LastHeartbeat,
			ConnectionType: m.ConnectionType,
		},
		Security: domainDevice.Security{
			AppInstalled:      m.AppInstalled,
			AppTampered:       m.AppTampered,
			RootDetected:      m.RootDetected,
			LastSecurityCheck: m.LastSecurityCheck,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
