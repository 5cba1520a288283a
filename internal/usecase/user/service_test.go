package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainDevice "emi-device-manager/internal/domain/device"
	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	"emi-device-manager/internal/usecase/activity"
	"emi-device-manager/internal/usecase/stats"
	appErrors "emi-device-manager/pkg/errors"
)

func TestMain(m *testing.M) {
	_ = logger.Init("development")
	m.Run()
}

type fakeUserRepo struct {
	domainUser.Repository
	users      map[uuid.UUID]*domainUser.User
	lastFilter *domainUser.Filter
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domainUser.User)}
}

func (f *fakeUserRepo) Create(ctx context.Context, u *domainUser.User) error {
	for _, existing := range f.users {
		if existing.Phone == u.Phone {
			return domainUser.ErrUserAlreadyExists
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, userID uuid.UUID) (*domainUser.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, domainUser.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) GetByIdentifier(ctx context.Context, identifier string) (*domainUser.User, error) {
	for _, u := range f.users {
		if u.Phone == identifier || (u.Email != nil && *u.Email == identifier) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, domainUser.ErrUserNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, u *domainUser.User) error {
	if _, ok := f.users[u.ID]; !ok {
		return domainUser.ErrUserNotFound
	}
	clone := *u
	f.users[u.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	if _, ok := f.users[userID]; !ok {
		return domainUser.ErrUserNotFound
	}
	delete(f.users, userID)
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, filter *domainUser.Filter) ([]*domainUser.User, int64, error) {
	f.lastFilter = filter
	var out []*domainUser.User
	for _, u := range f.users {
		if filter.ShopID != nil && (u.ShopID == nil || *u.ShopID != *filter.ShopID) {
			continue
		}
		if filter.ExcludeSuperAdmin && u.Role == domainUser.RoleSuperAdmin {
			continue
		}
		clone := *u
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) AggregateShopStatistics(ctx context.Context, shopID uuid.UUID) (*domainShop.Statistics, error) {
	return &domainShop.Statistics{}, nil
}

type fakeShopRepo struct {
	domainShop.Repository
	shops map[uuid.UUID]*domainShop.Shop
}

func newFakeShopRepo() *fakeShopRepo {
	return &fakeShopRepo{shops: make(map[uuid.UUID]*domainShop.Shop)}
}

func (f *fakeShopRepo) GetByID(ctx context.Context, shopID uuid.UUID) (*domainShop.Shop, error) {
	s, ok := f.shops[shopID]
	if !ok {
		return nil, domainShop.ErrShopNotFound
	}
	clone := *s
	return &clone, nil
}

func (f *fakeShopRepo) UpdateStatistics(ctx context.Context, shopID uuid.UUID, stats domainShop.Statistics) error {
	return nil
}

type fakeDeviceRepo struct {
	domainDevice.Repository
	devicesByUser map[uuid.UUID]*domainDevice.Device
	deleted       []uuid.UUID
}

func newFakeDeviceRepo() *fakeDeviceRepo {
	return &fakeDeviceRepo{devicesByUser: make(map[uuid.UUID]*domainDevice.Device)}
}

func (f *fakeDeviceRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domainDevice.Device, error) {
	d, ok := f.devicesByUser[userID]
	if !ok {
		return nil, domainDevice.ErrDeviceNotFound
	}
	clone := *d
	return &clone, nil
}

func (f *fakeDeviceRepo) Delete(ctx context.Context, deviceID uuid.UUID) error {
	for userID, d := range f.devicesByUser {
		if d.ID == deviceID {
			delete(f.devicesByUser, userID)
			f.deleted = append(f.deleted, deviceID)
			return nil
		}
	}
	return domainDevice.ErrDeviceNotFound
}

type nopActivityRepo struct{}

func (nopActivityRepo) Create(ctx context.Context, log *domainActivity.Log) error { return nil }
func (nopActivityRepo) List(ctx context.Context, filter *domainActivity.Filter) ([]*domainActivity.Log, int64, error) {
	return nil, 0, nil
}
func (nopActivityRepo) ListRecent(ctx context.Context, shopID *uuid.UUID, limit int) ([]*domainActivity.Log, error) {
	return nil, nil
}

type fakeLocker struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeLocker) LockForUser(ctx context.Context, caller policy.Caller, userID uuid.UUID, reason domainDevice.LockReason) error {
	if f.err != nil {
		return f.err
	}
	if reason != domainDevice.ReasonEMIDefault {
		return errors.New("unexpected lock reason")
	}
	f.calls = append(f.calls, userID)
	return nil
}

type fixtureRepos struct {
	users   *fakeUserRepo
	shops   *fakeShopRepo
	devices *fakeDeviceRepo
	locker  *fakeLocker
}

func fixture(t *testing.T) (*Service, *fixtureRepos) {
	t.Helper()
	repos := &fixtureRepos{
		users:   newFakeUserRepo(),
		shops:   newFakeShopRepo(),
		devices: newFakeDeviceRepo(),
		locker:  &fakeLocker{},
	}
	svc := NewService(
		repos.users,
		repos.shops,
		repos.devices,
		stats.NewService(repos.users, repos.shops),
		activity.NewService(nopActivityRepo{}),
		repos.locker,
	)
	return svc, repos
}

func seedShop(repos *fixtureRepos, autoLock bool) uuid.UUID {
	shopID := uuid.New()
	settings := domainShop.DefaultSettings()
	settings.AutoLockOnDefault = autoLock
	repos.shops.shops[shopID] = &domainShop.Shop{
		ID:       shopID,
		Slug:     "test-shop",
		Name:     "Test Shop",
		Settings: settings,
		IsActive: true,
	}
	return shopID
}

var phoneCounter = 7000000000

func seedCustomer(repos *fixtureRepos, shopID uuid.UUID, emi domainUser.EMIDetails) *domainUser.User {
	phoneCounter++
	u := &domainUser.User{
		ID:       uuid.New(),
		ShopID:   &shopID,
		Role:     domainUser.RoleUser,
		FullName: "Test Customer",
		Phone:    "9" + itoa(phoneCounter),
		EMI:      emi,
		IsActive: true,
	}
	u.Normalize()
	repos.users.users[u.ID] = u
	return u
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func ownerCaller(shopID uuid.UUID) policy.Caller {
	return policy.Caller{ID: uuid.New(), Role: domainUser.RoleShopOwner, ShopID: &shopID, IsActive: true}
}

func errCode(t *testing.T, err error) string {
	t.Helper()
	var appErr *appErrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("error %v is not an AppError", err)
	}
	return appErr.Code
}

func TestRecordPayment_ReducesRemaining(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 200})

	resp, err := svc.RecordPayment(context.Background(), ownerCaller(shopID), customer.ID, &RecordPaymentRequest{Amount: 300})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}

	if resp.EMI.PaidAmount != 500 {
		t.Errorf("PaidAmount = %v, want 500", resp.EMI.PaidAmount)
	}
	if resp.EMI.RemainingAmount != 500 {
		t.Errorf("RemainingAmount = %v, want 500", resp.EMI.RemainingAmount)
	}
	if resp.EMI.Status != string(domainUser.EMIActive) {
		t.Errorf("Status = %s, want active", resp.EMI.Status)
	}
}

func TestRecordPayment_SettlesPlan(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 900})

	resp, err := svc.RecordPayment(context.Background(), ownerCaller(shopID), customer.ID, &RecordPaymentRequest{Amount: 100})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}

	if resp.EMI.Status != string(domainUser.EMICompleted) {
		t.Errorf("Status = %s, want completed", resp.EMI.Status)
	}
	if resp.EMI.RemainingAmount != 0 {
		t.Errorf("RemainingAmount = %v, want 0", resp.EMI.RemainingAmount)
	}
}

func TestRecordPayment_ReactivatesDefaultedPlan(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 100, Status: domainUser.EMIDefaulted})

	resp, err := svc.RecordPayment(context.Background(), ownerCaller(shopID), customer.ID, &RecordPaymentRequest{Amount: 50})
	if err != nil {
		t.Fatalf("RecordPayment() error = %v", err)
	}

	if resp.EMI.Status != string(domainUser.EMIActive) {
		t.Errorf("Status = %s, want active", resp.EMI.Status)
	}
}

func TestRecordPayment_UserRoleDenied(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000})

	caller := policy.Caller{ID: customer.ID, Role: domainUser.RoleUser, ShopID: &shopID, IsActive: true}
	_, err := svc.RecordPayment(context.Background(), caller, customer.ID, &RecordPaymentRequest{Amount: 50})
	if err == nil {
		t.Fatal("RecordPayment() expected error for user role")
	}
	if code := errCode(t, err); code != appErrors.CodeForbidden {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeForbidden)
	}
}

func TestRecordPayment_OtherShopReadsAsNotFound(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	otherShop := seedShop(repos, true)
	customer := seedCustomer(repos, otherShop, domainUser.EMIDetails{TotalAmount: 1000})

	_, err := svc.RecordPayment(context.Background(), ownerCaller(shopID), customer.ID, &RecordPaymentRequest{Amount: 50})
	if err == nil {
		t.Fatal("RecordPayment() expected error for cross-shop target")
	}
	if code := errCode(t, err); code != appErrors.CodeNotFound {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeNotFound)
	}
}

func TestMarkDefaulted_AutoLocksWhenEnabled(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 100})

	resp, err := svc.MarkDefaulted(context.Background(), ownerCaller(shopID), customer.ID)
	if err != nil {
		t.Fatalf("MarkDefaulted() error = %v", err)
	}

	if resp.EMI.Status != string(domainUser.EMIDefaulted) {
		t.Errorf("Status = %s, want defaulted", resp.EMI.Status)
	}
	if len(repos.locker.calls) != 1 || repos.locker.calls[0] != customer.ID {
		t.Errorf("locker calls = %v, want [%s]", repos.locker.calls, customer.ID)
	}
}

func TestMarkDefaulted_NoAutoLockWhenDisabled(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, false)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 100})

	if _, err := svc.MarkDefaulted(context.Background(), ownerCaller(shopID), customer.ID); err != nil {
		t.Fatalf("MarkDefaulted() error = %v", err)
	}

	if len(repos.locker.calls) != 0 {
		t.Errorf("locker calls = %v, want none", repos.locker.calls)
	}
}

func TestMarkDefaulted_AlreadyDefaulted(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 100, Status: domainUser.EMIDefaulted})

	_, err := svc.MarkDefaulted(context.Background(), ownerCaller(shopID), customer.ID)
	if err == nil {
		t.Fatal("MarkDefaulted() expected conflict for already defaulted plan")
	}
	if code := errCode(t, err); code != appErrors.CodeConflict {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeConflict)
	}
}

func TestMarkDefaulted_SettledPlanCannotDefault(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 1000})

	_, err := svc.MarkDefaulted(context.Background(), ownerCaller(shopID), customer.ID)
	if err == nil {
		t.Fatal("MarkDefaulted() expected conflict for settled plan")
	}
	if code := errCode(t, err); code != appErrors.CodeConflict {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeConflict)
	}
	if len(repos.locker.calls) != 0 {
		t.Errorf("locker calls = %v, want none", repos.locker.calls)
	}
}

func TestUpdate_RoleChangeRequiresSuperAdmin(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000})

	role := string(domainUser.RoleShopOwner)
	_, err := svc.Update(context.Background(), ownerCaller(shopID), customer.ID, &UpdateRequest{Role: &role})
	if err == nil {
		t.Fatal("Update() expected error for role change by shop owner")
	}
	if code := errCode(t, err); code != appErrors.CodeForbidden {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeForbidden)
	}
}

func TestUpdate_FallingIntoDefaultTriggersAutoLock(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000, PaidAmount: 100})

	_, err := svc.Update(context.Background(), ownerCaller(shopID), customer.ID, &UpdateRequest{
		EMI: &EMIRequest{TotalAmount: 1000, PaidAmount: 100, Status: strPtr(string(domainUser.EMIDefaulted))},
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if len(repos.locker.calls) != 1 {
		t.Errorf("locker calls = %d, want 1", len(repos.locker.calls))
	}
}

func TestCreate_DuplicatePhoneRejected(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	existing := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000})

	_, err := svc.Create(context.Background(), ownerCaller(shopID), &CreateRequest{
		FullName: "Another Customer",
		Phone:    existing.Phone,
		Password: "Abcdef12",
	})
	if err == nil {
		t.Fatal("Create() expected error for duplicate phone")
	}
	if code := errCode(t, err); code != appErrors.CodeDuplicateField {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeDuplicateField)
	}
}

func TestCreate_ShopOwnerDefaultsToOwnShop(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)

	resp, err := svc.Create(context.Background(), ownerCaller(shopID), &CreateRequest{
		FullName: "New Customer",
		Phone:    "9876501234",
		Password: "Abcdef12",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if resp.ShopID == nil || *resp.ShopID != shopID {
		t.Errorf("ShopID = %v, want %s", resp.ShopID, shopID)
	}
	if resp.Role != string(domainUser.RoleUser) {
		t.Errorf("Role = %s, want user", resp.Role)
	}
}

func TestCreate_ShopOwnerCannotCreateOwner(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)

	role := string(domainUser.RoleShopOwner)
	_, err := svc.Create(context.Background(), ownerCaller(shopID), &CreateRequest{
		Role:     &role,
		FullName: "Second Owner",
		Phone:    "9876505678",
		Password: "Abcdef12",
	})
	if err == nil {
		t.Fatal("Create() expected error for shop owner creating an owner")
	}
	if code := errCode(t, err); code != appErrors.CodeForbidden {
		t.Errorf("error code = %s, want %s", code, appErrors.CodeForbidden)
	}
}

func TestList_ShopOwnerScopedAndSuperAdminHidden(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000})

	otherShop := seedShop(repos, true)
	seedCustomer(repos, otherShop, domainUser.EMIDetails{TotalAmount: 1000})

	resp, err := svc.List(context.Background(), ownerCaller(shopID), &FilterRequest{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	if len(resp.Users) != 1 {
		t.Fatalf("listed %d users, want 1", len(resp.Users))
	}
	if !repos.users.lastFilter.ExcludeSuperAdmin {
		t.Error("filter.ExcludeSuperAdmin = false, want true")
	}
	if repos.users.lastFilter.ShopID == nil || *repos.users.lastFilter.ShopID != shopID {
		t.Errorf("filter.ShopID = %v, want %s", repos.users.lastFilter.ShopID, shopID)
	}
}

func TestDelete_RemovesRegisteredDevice(t *testing.T) {
	svc, repos := fixture(t)
	shopID := seedShop(repos, true)
	customer := seedCustomer(repos, shopID, domainUser.EMIDetails{TotalAmount: 1000})

	deviceID := uuid.New()
	repos.devices.devicesByUser[customer.ID] = &domainDevice.Device{
		ID:     deviceID,
		UserID: customer.ID,
		ShopID: shopID,
	}

	if err := svc.Delete(context.Background(), ownerCaller(shopID), customer.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if len(repos.devices.deleted) != 1 || repos.devices.deleted[0] != deviceID {
		t.Errorf("deleted devices = %v, want [%s]", repos.devices.deleted, deviceID)
	}
	if _, err := repos.users.GetByID(context.Background(), customer.ID); !errors.Is(err, domainUser.ErrUserNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrUserNotFound", err)
	}
}

func strPtr(s string) *string { return &s }
