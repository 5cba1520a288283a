package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emi-device-manager/internal/middleware"
	"emi-device-manager/internal/usecase/admin"
	"emi-device-manager/pkg/utils"
)

type AdminHandler struct {
	service *admin.Service
}

func NewAdminHandler(service *admin.Service) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) RegisterRoutes(router *gin.RouterGroup) {
	adminGroup := router.Group("/admin")
	adminGroup.Use(middleware.StaffOnly())
	{
		adminGroup.GET("/dashboard", h.Dashboard)
		adminGroup.GET("/system/health", middleware.SuperAdminOnly(), h.SystemHealth)
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	resp, err := h.service.Dashboard(c.Request.Context(), caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Dashboard retrieved successfully", resp)
}

func (h *AdminHandler) SystemHealth(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	resp, err := h.service.SystemHealth(c.Request.Context(), caller)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "System health retrieved successfully", resp)
}
