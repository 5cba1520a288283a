package stats

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
)

// Service recomputes the denormalized per-shop statistics snapshot from the
// shop's user set. Recomputation is idempotent: the same user set always
// produces the same snapshot, so there are no incremental counters to
// drift.
type Service struct {
	userRepo domainUser.Repository
	shopRepo domainShop.Repository
}

func NewService(userRepo domainUser.Repository, shopRepo domainShop.Repository) *Service {
	return &Service{
		userRepo: userRepo,
		shopRepo: shopRepo,
	}
}

// Recompute derives and persists the statistics snapshot for one shop.
// Called after any user or device state change within that shop.
func (s *Service) Recompute(ctx context.Context, shopID uuid.UUID) error {
	snapshot, err := s.userRepo.AggregateShopStatistics(ctx, shopID)
	if err != nil {
		return fmt.Errorf("failed to aggregate shop statistics: %w", err)
	}

	if err := s.shopRepo.UpdateStatistics(ctx, shopID, *snapshot); err != nil {
		return fmt.Errorf("failed to persist shop statistics: %w", err)
	}

	logger.Debug("Shop statistics recomputed",
		zap.String("shop_id", shopID.String()),
		zap.Int64("total_users", snapshot.TotalUsers),
		zap.Int64("locked_devices", snapshot.LockedDevices),
	)

	return nil
}

// RecomputeBestEffort recomputes and only logs failures. Used on paths
// where a stale snapshot must not fail the primary operation.
func (s *Service) RecomputeBestEffort(ctx context.Context, shopID uuid.UUID) {
	if err := s.Recompute(ctx, shopID); err != nil {
		logger.Error("Failed to recompute shop statistics",
			zap.String("shop_id", shopID.String()),
			zap.Error(err),
		)
	}
}
