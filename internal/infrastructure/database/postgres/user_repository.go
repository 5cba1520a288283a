package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/infrastructure/database/postgres/models"
)

// UserRepository implements domain user.Repository.
type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) domainUser.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, u *domainUser.User) error {
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = time.Now()

	dbModel := toUserModel(u)
	if err := r.db.DB.WithContext(ctx).Create(dbModel).Error; err != nil {
		if strings.Contains(err.Error(), "duplicate key value") {
			return domainUser.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.ID = dbModel.ID
	u.CreatedAt = dbModel.CreatedAt
	u.UpdatedAt = dbModel.UpdatedAt

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	var dbModel models.UserModel
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", userID).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainUser.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (*domainUser.User, error) {
	var dbModel models.UserModel
	err := r.db.DB.WithContext(ctx).
		Where("phone = ? OR email = ?", identifier, identifier).
		First(&dbModel).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domainUser.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return toUserEntity(&dbModel), nil
}

func (r *UserRepository) Update(ctx context.Context, u *domainUser.User) error {
	u.UpdatedAt = time.Now()

	result := r.db.DB.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", u.ID).
		Updates(map[string]interface{}{
			"role":                 string(u.Role),
			"full_name":            u.FullName,
			"email":                u.Email,
			"password_hashed":      u.PasswordHashed,
			"address":              u.Address,
			"emi_total_amount":     u.EMI.TotalAmount,
			"emi_paid_amount":      u.EMI.PaidAmount,
			"emi_remaining_amount": u.EMI.RemainingAmount,
			"emi_monthly":          u.EMI.MonthlyEMI,
			"emi_due_date":         u.EMI.DueDate,
			"emi_next_due_date":    u.EMI.NextDueDate,
			"emi_status":           string(u.EMI.Status),
			"is_active":            u.IsActive,
			"updated_at":           u.UpdatedAt,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainUser.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) UpdateDeviceMirror(ctx context.Context, userID uuid.UUID, mirror domainUser.DeviceMirror) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"device_locked":      mirror.IsLocked,
			"last_locked_at":     mirror.LastLockedAt,
			"last_unlocked_at":   mirror.LastUnlockedAt,
			"device_lock_reason": mirror.LockReason,
			"updated_at":         time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update device mirror: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainUser.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) UpdateDeviceRef(ctx context.Context, userID uuid.UUID, deviceID, imei string) error {
	result := r.db.DB.WithContext(ctx).
		Model(&models.UserModel{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"device_id":   deviceID,
			"imei_number": imei,
			"updated_at":  time.Now(),
		})

	if result.Error != nil {
		return fmt.Errorf("failed to update device reference: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainUser.ErrUserNotFound
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, userID uuid.UUID) error {
	return r.db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.RefreshTokenModel{}).Error; err != nil {
			return fmt.Errorf("failed to delete user tokens: %w", err)
		}

		result := tx.Where("id = ?", userID).Delete(&models.UserModel{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domainUser.ErrUserNotFound
		}
		return nil
	})
}

func (r *UserRepository) List(ctx context.Context, filter *domainUser.Filter) ([]*domainUser.User, int64, error) {
	query := r.db.DB.WithContext(ctx).Model(&models.UserModel{})

	if filter.ShopID != nil {
		query = query.Where("shop_id = ?", *filter.ShopID)
	}
	if filter.Role != nil {
		query = query.Where("role = ?", string(*filter.Role))
	}
	if filter.EMIStatus != nil {
		query = query.Where("emi_status = ?", string(*filter.EMIStatus))
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.ExcludeSuperAdmin {
		query = query.Where("role != ?", string(domainUser.RoleSuperAdmin))
	}
	if filter.Search != "" {
		search := "%" + filter.Search + "%"
		query = query.Where("full_name ILIKE ? OR phone ILIKE ? OR email ILIKE ? OR device_id ILIKE ?",
			search, search, search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	query = query.Order(orderClause(filter.SortBy, filter.SortOrder, map[string]bool{
		"created_at": true, "full_name": true, "phone": true,
	}))
	if filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	var dbModels []models.UserModel
	if err := query.Find(&dbModels).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]*domainUser.User, 0, len(dbModels))
	for i := range dbModels {
		users = append(users, toUserEntity(&dbModels[i]))
	}

	return users, total, nil
}

// AggregateShopStatistics derives the statistics snapshot from the shop's
// customer rows in a single query.
func (r *UserRepository) AggregateShopStatistics(ctx context.Context, shopID uuid.UUID) (*domainShop.Statistics, error) {
	var stats domainShop.Statistics
	err := r.db.DB.WithContext(ctx).
		Model(&models.UserModel{}).
		Select(`COUNT(*) AS total_users,
			COUNT(*) FILTER (WHERE is_active) AS active_users,
			COUNT(*) FILTER (WHERE device_locked) AS locked_devices,
			COALESCE(SUM(emi_paid_amount), 0) AS total_revenue`).
		Where("shop_id = ? AND role = ?", shopID, string(domainUser.RoleUser)).
		Scan(&stats).Error

	if err != nil {
		return nil, fmt.Errorf("failed to aggregate shop statistics: %w", err)
	}

	return &stats, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.DB.WithContext(ctx).Model(&models.UserModel{}).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, nil
}

func toUserModel(u *domainUser.User) *models.UserModel {
	return &models.UserModel{
		ID:                 u.ID,
		ShopID:             u.ShopID,
		Role:               string(u.Role),
		FullName:           u.FullName,
		Phone:              u.Phone,
		Email:              u.Email,
		PasswordHashed:     u.PasswordHashed,
		Address:            u.Address,
		EMITotalAmount:     u.EMI.TotalAmount,
		EMIPaidAmount:      u.EMI.PaidAmount,
		EMIRemainingAmount: u.EMI.RemainingAmount,
		EMIMonthly:         u.EMI.MonthlyEMI,
		EMIDueDate:         u.EMI.DueDate,
		EMINextDueDate:     u.EMI.NextDueDate,
		EMIStatus:          string(u.EMI.Status),
		DeviceLocked:       u.DeviceMirror.IsLocked,
		LastLockedAt:       u.DeviceMirror.LastLockedAt,
		LastUnlockedAt:     u.DeviceMirror.LastUnlockedAt,
		DeviceLockReason:   u.DeviceMirror.LockReason,
		DeviceID:           u.DeviceID,
		IMEINumber:         u.IMEINumber,
		IsActive:           u.IsActive,
		CreatedAt:          u.CreatedAt,
		UpdatedAt:          u.UpdatedAt,
	}
}

func toUserEntity(m *models.UserModel) *domainUser.User {
	return &domainUser.User{
		ID:             m.ID,
		ShopID:         m.ShopID,
		Role:           domainUser.Role(m.Role),
		FullName:       m.FullName,
		Phone:          m.Phone,
		Email:          m.Email,
		PasswordHashed: m.PasswordHashed,
		Address:        m.Address,
		EMI: domainUser.EMIDetails{
			TotalAmount:     m.EMITotalAmount,
			PaidAmount:      m.EMIPaidAmount,
			RemainingAmount: m.EMIRemainingAmount,
			MonthlyEMI:      m.EMIMonthly,
			DueDate:         m.EMIDueDate,
			NextDueDate:     m.EMINextDueDate,
			Status:          domainUser.EMIStatus(m.EMIStatus),
		},
		DeviceMirror: domainUser.DeviceMirror{
			IsLocked:       m.DeviceLocked,
			LastLockedAt:   m.LastLockedAt,
			LastUnlockedAt: m.LastUnlockedAt,
			LockReason:     m.DeviceLockReason,
		},
		DeviceID:   m.DeviceID,
		IMEINumber: m.IMEINumber,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
