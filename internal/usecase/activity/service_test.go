package activity

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	appErrors "emi-device-manager/pkg/errors"
)

func TestMain(m *testing.M) {
	_ = logger.Init("development")
	m.Run()
}

type fakeActivityRepo struct {
	entries    []*domainActivity.Log
	lastFilter *domainActivity.Filter
	createErr  error
}

func (f *fakeActivityRepo) Create(ctx context.Context, log *domainActivity.Log) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.entries = append(f.entries, log)
	return nil
}

func (f *fakeActivityRepo) List(ctx context.Context, filter *domainActivity.Filter) ([]*domainActivity.Log, int64, error) {
	f.lastFilter = filter
	return f.entries, int64(len(f.entries)), nil
}

func (f *fakeActivityRepo) ListRecent(ctx context.Context, shopID *uuid.UUID, limit int) ([]*domainActivity.Log, error) {
	return f.entries, nil
}

func entry(action domainActivity.Action) *domainActivity.Log {
	return &domainActivity.Log{
		Action:      action,
		Description: "test entry",
		Category:    "device",
		PerformedBy: uuid.New(),
		Severity:    domainActivity.SeverityLow,
	}
}

func TestRecord_FillsRequestMetaFromContext(t *testing.T) {
	repo := &fakeActivityRepo{}
	svc := NewService(repo)

	ctx := WithRequestMeta(context.Background(), RequestMeta{
		IPAddress: "203.0.113.7",
		UserAgent: "test-agent/1.0",
	})
	svc.Record(ctx, entry(domainActivity.ActionDeviceLocked))

	if len(repo.entries) != 1 {
		t.Fatalf("recorded %d entries, want 1", len(repo.entries))
	}
	got := repo.entries[0]
	if got.IPAddress == nil || *got.IPAddress != "203.0.113.7" {
		t.Errorf("IPAddress = %v, want 203.0.113.7", got.IPAddress)
	}
	if got.UserAgent == nil || *got.UserAgent != "test-agent/1.0" {
		t.Errorf("UserAgent = %v, want test-agent/1.0", got.UserAgent)
	}
}

func TestRecord_DoesNotOverrideExplicitMeta(t *testing.T) {
	repo := &fakeActivityRepo{}
	svc := NewService(repo)

	ip := "198.51.100.1"
	e := entry(domainActivity.ActionLogin)
	e.IPAddress = &ip

	ctx := WithRequestMeta(context.Background(), RequestMeta{IPAddress: "203.0.113.7"})
	svc.Record(ctx, e)

	if got := repo.entries[0].IPAddress; got == nil || *got != ip {
		t.Errorf("IPAddress = %v, want %s", got, ip)
	}
}

func TestRecord_SwallowsWriteFailure(t *testing.T) {
	repo := &fakeActivityRepo{createErr: errors.New("connection refused")}
	svc := NewService(repo)

	// Must not panic or surface the error.
	svc.Record(context.Background(), entry(domainActivity.ActionUserCreated))

	if len(repo.entries) != 0 {
		t.Fatalf("recorded %d entries, want 0", len(repo.entries))
	}
}

func TestList_ShopOwnerAlwaysScopedToOwnShop(t *testing.T) {
	repo := &fakeActivityRepo{}
	svc := NewService(repo)

	ownShop := uuid.New()
	otherShop := uuid.New()
	caller := policy.Caller{
		ID:       uuid.New(),
		Role:     domainUser.RoleShopOwner,
		ShopID:   &ownShop,
		IsActive: true,
	}

	// The requested foreign scope must be ignored.
	_, err := svc.List(context.Background(), caller, &ListRequest{ShopID: &otherShop})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if repo.lastFilter.ShopID == nil || *repo.lastFilter.ShopID != ownShop {
		t.Errorf("filter.ShopID = %v, want %s", repo.lastFilter.ShopID, ownShop)
	}
}

func TestList_SuperAdminKeepsRequestedScope(t *testing.T) {
	repo := &fakeActivityRepo{}
	svc := NewService(repo)

	target := uuid.New()
	caller := policy.Caller{ID: uuid.New(), Role: domainUser.RoleSuperAdmin, IsActive: true}

	if _, err := svc.List(context.Background(), caller, &ListRequest{ShopID: &target}); err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if repo.lastFilter.ShopID == nil || *repo.lastFilter.ShopID != target {
		t.Errorf("filter.ShopID = %v, want %s", repo.lastFilter.ShopID, target)
	}
}

func TestList_UserRoleDenied(t *testing.T) {
	svc := NewService(&fakeActivityRepo{})

	shopID := uuid.New()
	caller := policy.Caller{ID: uuid.New(), Role: domainUser.RoleUser, ShopID: &shopID, IsActive: true}

	_, err := svc.List(context.Background(), caller, &ListRequest{})
	if err == nil {
		t.Fatal("List() expected error for user role")
	}
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) || appErr.Code != appErrors.CodeForbidden {
		t.Errorf("error = %v, want code %s", err, appErrors.CodeForbidden)
	}
}

func TestList_PaginationEnvelope(t *testing.T) {
	repo := &fakeActivityRepo{}
	for i := 0; i < 5; i++ {
		repo.entries = append(repo.entries, entry(domainActivity.ActionDeviceLocked))
	}
	svc := NewService(repo)

	caller := policy.Caller{ID: uuid.New(), Role: domainUser.RoleSuperAdmin, IsActive: true}
	resp, err := svc.List(context.Background(), caller, &ListRequest{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if resp.Pagination.TotalItems != 5 {
		t.Errorf("TotalItems = %d, want 5", resp.Pagination.TotalItems)
	}
	if resp.Pagination.TotalPages != 3 {
		t.Errorf("TotalPages = %d, want 3", resp.Pagination.TotalPages)
	}
	if !resp.Pagination.HasNextPage {
		t.Error("HasNextPage = false, want true")
	}
	if resp.Pagination.HasPrevPage {
		t.Error("HasPrevPage = true, want false")
	}
	if repo.lastFilter.PageSize != 2 {
		t.Errorf("filter.PageSize = %d, want 2", repo.lastFilter.PageSize)
	}
}
