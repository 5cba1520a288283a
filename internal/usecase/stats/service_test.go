package stats

import (
	"context"
	"testing"

	"github.com/google/uuid"

	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init("development")
	m.Run()
}

// fakeUserRepo derives the snapshot from an in-memory user set the same
// way the SQL aggregate does: customer rows only.
type fakeUserRepo struct {
	domainUser.Repository
	users []*domainUser.User
}

func (f *fakeUserRepo) AggregateShopStatistics(ctx context.Context, shopID uuid.UUID) (*domainShop.Statistics, error) {
	snapshot := &domainShop.Statistics{}
	for _, u := range f.users {
		if u.ShopID == nil || *u.ShopID != shopID || u.Role != domainUser.RoleUser {
			continue
		}
		snapshot.TotalUsers++
		if u.IsActive {
			snapshot.ActiveUsers++
		}
		if u.DeviceMirror.IsLocked {
			snapshot.LockedDevices++
		}
		snapshot.TotalRevenue += u.EMI.PaidAmount
	}
	return snapshot, nil
}

type fakeShopRepo struct {
	domainShop.Repository
	updates []domainShop.Statistics
}

func (f *fakeShopRepo) UpdateStatistics(ctx context.Context, shopID uuid.UUID, stats domainShop.Statistics) error {
	f.updates = append(f.updates, stats)
	return nil
}

func customer(shopID uuid.UUID, active, locked bool, paid float64) *domainUser.User {
	return &domainUser.User{
		ID:           uuid.New(),
		ShopID:       &shopID,
		Role:         domainUser.RoleUser,
		IsActive:     active,
		EMI:          domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: paid},
		DeviceMirror: domainUser.DeviceMirror{IsLocked: locked},
	}
}

func TestRecompute_SnapshotFromUserSet(t *testing.T) {
	shopID := uuid.New()
	otherShop := uuid.New()

	userRepo := &fakeUserRepo{users: []*domainUser.User{
		customer(shopID, true, false, 200),
		customer(shopID, true, true, 150),
		customer(shopID, false, false, 0),
		customer(shopID, false, false, 50),
		customer(shopID, true, false, 100),
		// Noise that must not leak into the snapshot.
		customer(otherShop, true, true, 999),
		{ID: uuid.New(), ShopID: &shopID, Role: domainUser.RoleShopOwner, IsActive: true},
	}}
	shopRepo := &fakeShopRepo{}
	svc := NewService(userRepo, shopRepo)

	if err := svc.Recompute(context.Background(), shopID); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if len(shopRepo.updates) != 1 {
		t.Fatalf("persisted %d snapshots, want 1", len(shopRepo.updates))
	}
	got := shopRepo.updates[0]
	if got.TotalUsers != 5 {
		t.Errorf("TotalUsers = %d, want 5", got.TotalUsers)
	}
	if got.ActiveUsers != 3 {
		t.Errorf("ActiveUsers = %d, want 3", got.ActiveUsers)
	}
	if got.LockedDevices != 1 {
		t.Errorf("LockedDevices = %d, want 1", got.LockedDevices)
	}
	if got.TotalRevenue != 500 {
		t.Errorf("TotalRevenue = %v, want 500", got.TotalRevenue)
	}
}

func TestRecompute_Deterministic(t *testing.T) {
	shopID := uuid.New()
	userRepo := &fakeUserRepo{users: []*domainUser.User{
		customer(shopID, true, true, 300),
		customer(shopID, false, false, 120),
	}}
	shopRepo := &fakeShopRepo{}
	svc := NewService(userRepo, shopRepo)

	for i := 0; i < 3; i++ {
		if err := svc.Recompute(context.Background(), shopID); err != nil {
			t.Fatalf("Recompute() run %d error = %v", i, err)
		}
	}

	if len(shopRepo.updates) != 3 {
		t.Fatalf("persisted %d snapshots, want 3", len(shopRepo.updates))
	}
	first := shopRepo.updates[0]
	for i, got := range shopRepo.updates[1:] {
		if got != first {
			t.Errorf("run %d snapshot = %+v, want %+v", i+2, got, first)
		}
	}
}

func TestRecompute_EmptyShopZeroesSnapshot(t *testing.T) {
	shopID := uuid.New()
	userRepo := &fakeUserRepo{}
	shopRepo := &fakeShopRepo{}
	svc := NewService(userRepo, shopRepo)

	if err := svc.Recompute(context.Background(), shopID); err != nil {
		t.Fatalf("Recompute() error = %v", err)
	}

	if got := shopRepo.updates[0]; got != (domainShop.Statistics{}) {
		t.Errorf("snapshot = %+v, want zero value", got)
	}
}
