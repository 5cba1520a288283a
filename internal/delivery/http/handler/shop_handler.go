package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"emi-device-manager/internal/middleware"
	"emi-device-manager/internal/usecase/shop"
	"emi-device-manager/pkg/utils"
)

type ShopHandler struct {
	service *shop.Service
}

func NewShopHandler(service *shop.Service) *ShopHandler {
	return &ShopHandler{service: service}
}

func (h *ShopHandler) RegisterRoutes(router *gin.RouterGroup) {
	shops := router.Group("/shops")
	shops.Use(middleware.StaffOnly())
	{
		shops.GET("", middleware.SuperAdminOnly(), h.ListShops)
		shops.POST("", middleware.SuperAdminOnly(), h.CreateShop)
		shops.GET("/:id", h.GetShop)
		shops.PUT("/:id", h.UpdateShop)
		shops.DELETE("/:id", middleware.SuperAdminOnly(), h.DeleteShop)
	}
}

func (h *ShopHandler) CreateShop(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req shop.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Create(c.Request.Context(), caller, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "Shop created successfully", resp)
}

func (h *ShopHandler) GetShop(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	shopID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	resp, err := h.service.Get(c.Request.Context(), caller, shopID)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Shop retrieved successfully", resp)
}

func (h *ShopHandler) UpdateShop(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	shopID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	var req shop.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.service.Update(c.Request.Context(), caller, shopID, &req)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Shop updated successfully", resp)
}

func (h *ShopHandler) ListShops(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var filter shop.FilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	resp, err := h.service.List(c.Request.Context(), caller, &filter)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Shops retrieved successfully", resp)
}

func (h *ShopHandler) DeleteShop(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	shopID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	if err := h.service.Delete(c.Request.Context(), caller, shopID); err != nil {
		utils.RespondError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Shop deleted successfully", nil)
}
