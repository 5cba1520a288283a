package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"emi-device-manager/internal/middleware"
	"emi-device-manager/internal/usecase/device"
	"emi-device-manager/pkg/utils"
)

type DeviceHandler struct {
	service *device.Service
}

func NewDeviceHandler(service *device.Service) *DeviceHandler {
	return &DeviceHandler{service: service}
}

func (h *DeviceHandler) RegisterRoutes(router *gin.RouterGroup) {
	devices := router.Group("/devices")
	{
		devices.GET("", h.ListDevices)
		devices.GET("/:id", h.GetDevice)
		// Registration stays outside the staff gate: customers may register
		// their own device, and the policy enforces the self-only rule.
		devices.POST("", h.RegisterDevice)

		staff := devices.Group("")
		staff.Use(middleware.StaffOnly())
		{
			staff.POST("/:id/lock", h.LockDevice)
			staff.POST("/:id/unlock", h.UnlockDevice)
			staff.POST("/bulk/lock", h.BulkLock)
			staff.POST("/bulk/unlock", h.BulkUnlock)
			staff.POST("/reconcile", h.ReconcileMirrors)
		}
	}
}

func (h *DeviceHandler) RegisterDevice(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req device.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Register(c.Request.Context(), caller, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Device registered successfully", resp)
}

func (h *DeviceHandler) GetDevice(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), caller, deviceID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device retrieved successfully", resp)
}

func (h *DeviceHandler) ListDevices(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var filter device.FilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	resp, err := h.service.List(c.Request.Context(), caller, &filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Devices retrieved successfully", resp)
}

func (h *DeviceHandler) LockDevice(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	// Body is optional, lock reason defaults when omitted.
	var req device.LockRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	resp, err := h.service.Lock(c.Request.Context(), caller, deviceID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device locked successfully", resp)
}

func (h *DeviceHandler) UnlockDevice(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	deviceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid device ID")
		return
	}

	resp, err := h.service.Unlock(c.Request.Context(), caller, deviceID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Device unlocked successfully", resp)
}

func (h *DeviceHandler) BulkLock(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req device.BulkLockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.BulkLock(c.Request.Context(), caller, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Bulk lock completed", resp)
}

func (h *DeviceHandler) BulkUnlock(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req device.BulkUnlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.BulkUnlock(c.Request.Context(), caller, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Bulk unlock completed", resp)
}

func (h *DeviceHandler) ReconcileMirrors(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var shopID *uuid.UUID
	if raw := c.Query("shop_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
			return
		}
		shopID = &parsed
	}

	resp, err := h.service.ReconcileMirrors(c.Request.Context(), caller, shopID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Mirror reconciliation completed", resp)
}
