package admin

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainDevice "emi-device-manager/internal/domain/device"
	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/policy"
)

const recentActivityLimit = 10

// HealthChecker reports connectivity of the backing store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Service aggregates the admin dashboard and system health views.
type Service struct {
	shopRepo     domainShop.Repository
	userRepo     domainUser.Repository
	deviceRepo   domainDevice.Repository
	activityRepo domainActivity.Repository
	health       HealthChecker
	startedAt    time.Time
}

func NewService(
	shopRepo domainShop.Repository,
	userRepo domainUser.Repository,
	deviceRepo domainDevice.Repository,
	activityRepo domainActivity.Repository,
	health HealthChecker,
) *Service {
	return &Service{
		shopRepo:     shopRepo,
		userRepo:     userRepo,
		deviceRepo:   deviceRepo,
		activityRepo: activityRepo,
		health:       health,
		startedAt:    time.Now(),
	}
}

// Dashboard fans the independent aggregate reads out concurrently and
// fails as a whole if any of them fails. Shop owners get their own tenant;
// the super administrator gets fleet totals.
func (s *Service) Dashboard(ctx context.Context, caller policy.Caller) (*DashboardResponse, error) {
	if err := policy.Decide(caller, policy.DashboardView, nil); err != nil {
		return nil, err
	}

	var shopID *uuid.UUID
	if caller.Role == domainUser.RoleShopOwner {
		shopID = caller.ShopID
	}

	resp := &DashboardResponse{GeneratedAt: time.Now()}
	g, gctx := errgroup.WithContext(ctx)

	if shopID == nil {
		g.Go(func() error {
			total, err := s.shopRepo.Count(gctx)
			resp.TotalShops = total
			return err
		})
		g.Go(func() error {
			total, err := s.userRepo.Count(gctx)
			resp.TotalUsers = total
			return err
		})
		g.Go(func() error {
			total, err := s.deviceRepo.Count(gctx)
			resp.TotalDevices = total
			return err
		})
	} else {
		g.Go(func() error {
			snapshot, err := s.userRepo.AggregateShopStatistics(gctx, *shopID)
			if err != nil {
				return err
			}
			resp.ShopStatistics = snapshot
			resp.TotalUsers = snapshot.TotalUsers
			return nil
		})
		g.Go(func() error {
			_, total, err := s.deviceRepo.List(gctx, &domainDevice.Filter{
				ShopID:   shopID,
				Page:     1,
				PageSize: 1,
			})
			resp.TotalDevices = total
			return err
		})
	}

	g.Go(func() error {
		locked, err := s.deviceRepo.CountLocked(gctx, shopID)
		resp.LockedDevices = locked
		return err
	})
	g.Go(func() error {
		online := true
		_, total, err := s.deviceRepo.List(gctx, &domainDevice.Filter{
			ShopID:   shopID,
			IsOnline: &online,
			Page:     1,
			PageSize: 1,
		})
		resp.OnlineDevices = total
		return err
	})
	g.Go(func() error {
		logs, err := s.activityRepo.ListRecent(gctx, shopID, recentActivityLimit)
		if err != nil {
			return err
		}
		entries := make([]ActivityEntry, 0, len(logs))
		for _, l := range logs {
			entries = append(entries, ActivityEntry{
				ID:          l.ID,
				Action:      string(l.Action),
				Description: l.Description,
				Severity:    string(l.Severity),
				CreatedAt:   l.CreatedAt,
			})
		}
		resp.RecentActivity = entries
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return resp, nil
}

// SystemHealth reports database connectivity, uptime and memory usage.
func (s *Service) SystemHealth(ctx context.Context, caller policy.Caller) (*SystemHealthResponse, error) {
	if err := policy.Decide(caller, policy.SystemHealthView, nil); err != nil {
		return nil, err
	}

	resp := &SystemHealthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Timestamp: time.Now(),
	}

	if err := s.health.Health(ctx); err != nil {
		resp.Status = "degraded"
		resp.Database = DatabaseHealth{Connected: false, Error: err.Error()}
	} else {
		resp.Database = DatabaseHealth{Connected: true}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	resp.Memory = MemoryStats{
		AllocMB:      m.Alloc / 1024 / 1024,
		TotalAllocMB: m.TotalAlloc / 1024 / 1024,
		SysMB:        m.Sys / 1024 / 1024,
		NumGC:        m.NumGC,
	}

	return resp, nil
}
