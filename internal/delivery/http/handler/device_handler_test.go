package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainActivity "emi-device-manager/internal/domain/activity"
	domainDevice "emi-device-manager/internal/domain/device"
	domainShop "emi-device-manager/internal/domain/shop"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	"emi-device-manager/internal/usecase/activity"
	"emi-device-manager/internal/usecase/device"
	"emi-device-manager/internal/usecase/stats"
)

func TestMain(m *testing.M) {
	if err := logger.Init("development"); err != nil {
		panic(err)
	}
	gin.SetMode(gin.TestMode)
	m.Run()
}

type stubDeviceRepo struct {
	domainDevice.Repository
	created *domainDevice.Device
}

func (r *stubDeviceRepo) ExistsByDeviceIDOrIMEI(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (r *stubDeviceRepo) Create(_ context.Context, d *domainDevice.Device) error {
	d.ID = uuid.New()
	r.created = d
	return nil
}

type stubUserRepo struct {
	domainUser.Repository
	owner *domainUser.User
}

func (r *stubUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domainUser.User, error) {
	if r.owner != nil && r.owner.ID == id {
		copied := *r.owner
		return &copied, nil
	}
	return nil, domainUser.ErrUserNotFound
}

func (r *stubUserRepo) UpdateDeviceRef(_ context.Context, _ uuid.UUID, _, _ string) error {
	return nil
}

func (r *stubUserRepo) AggregateShopStatistics(_ context.Context, _ uuid.UUID) (*domainShop.Statistics, error) {
	return &domainShop.Statistics{}, nil
}

type stubShopRepo struct {
	domainShop.Repository
}

func (r *stubShopRepo) UpdateStatistics(_ context.Context, _ uuid.UUID, _ domainShop.Statistics) error {
	return nil
}

type stubActivityRepo struct{}

func (stubActivityRepo) Create(_ context.Context, _ *domainActivity.Log) error { return nil }

func (stubActivityRepo) List(_ context.Context, _ *domainActivity.Filter) ([]*domainActivity.Log, int64, error) {
	return nil, 0, nil
}

func (stubActivityRepo) ListRecent(_ context.Context, _ *uuid.UUID, _ int) ([]*domainActivity.Log, error) {
	return nil, nil
}

// deviceRouter wires the device routes behind a middleware that injects the
// given caller, mirroring what the auth middleware does in production.
func deviceRouter(svc *device.Service, caller policy.Caller) *gin.Engine {
	router := gin.New()
	api := router.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Set("caller", caller)
		c.Next()
	})
	NewDeviceHandler(svc).RegisterRoutes(api)
	return router
}

func TestDeviceRoutes_UserRoleCanSelfRegister(t *testing.T) {
	shopID := uuid.New()
	owner := &domainUser.User{
		ID:       uuid.New(),
		ShopID:   &shopID,
		Role:     domainUser.RoleUser,
		FullName: "Customer",
		IsActive: true,
	}

	userRepo := &stubUserRepo{owner: owner}
	shopRepo := &stubShopRepo{}
	svc := device.NewService(
		&stubDeviceRepo{},
		userRepo,
		shopRepo,
		stats.NewService(userRepo, shopRepo),
		activity.NewService(stubActivityRepo{}),
		nil,
		nil,
	)

	caller := policy.Caller{ID: owner.ID, Role: domainUser.RoleUser, ShopID: &shopID, IsActive: true}
	router := deviceRouter(svc, caller)

	body, _ := json.Marshal(map[string]interface{}{
		"user_id":     owner.ID,
		"device_id":   "DEV-ROUTE-01",
		"imei_number": "358240051111110",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusForbidden {
		t.Fatalf("POST /devices by device owner blocked by route gate: body = %s", rec.Body.String())
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /devices status = %d, want %d, body = %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
}

func TestDeviceRoutes_LockStaysStaffGated(t *testing.T) {
	shopID := uuid.New()
	userRepo := &stubUserRepo{}
	shopRepo := &stubShopRepo{}
	svc := device.NewService(
		&stubDeviceRepo{},
		userRepo,
		shopRepo,
		stats.NewService(userRepo, shopRepo),
		activity.NewService(stubActivityRepo{}),
		nil,
		nil,
	)

	caller := policy.Caller{ID: uuid.New(), Role: domainUser.RoleUser, ShopID: &shopID, IsActive: true}
	router := deviceRouter(svc, caller)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/devices/"+uuid.NewString()+"/lock", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("POST /devices/:id/lock by user role status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
