package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"emi-device-manager/internal/usecase/activity"
	"emi-device-manager/pkg/utils"
)

type ActivityHandler struct {
	service *activity.Service
}

func NewActivityHandler(service *activity.Service) *ActivityHandler {
	return &ActivityHandler{service: service}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/activity", h.ListActivity)
}

func (h *ActivityHandler) ListActivity(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var filter activity.ListRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	resp, err := h.service.List(c.Request.Context(), caller, &filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Activity retrieved successfully", resp)
}
