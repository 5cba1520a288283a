package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/logger"
	"emi-device-manager/internal/policy"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

// ConnectionHandler upgrades authorized callers to a websocket stream of
// shop events.
type ConnectionHandler interface {
	HandleConnection(w http.ResponseWriter, r *http.Request, shopID uuid.UUID) error
}

type WSHandler struct {
	hub ConnectionHandler
}

func NewWSHandler(hub ConnectionHandler) *WSHandler {
	return &WSHandler{hub: hub}
}

func (h *WSHandler) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/ws/shops/:id", h.StreamShopEvents)
}

func (h *WSHandler) StreamShopEvents(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	shopID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid shop ID")
		return
	}

	if err := policy.Decide(caller, policy.DashboardView, nil); err != nil {
		utils.RespondError(c, err)
		return
	}
	// Shop owners only see their own shop's stream. The mismatch reads as
	// not-found, same as every other cross-tenant access by id.
	if caller.Role == domainUser.RoleShopOwner && (caller.ShopID == nil || *caller.ShopID != shopID) {
		utils.RespondError(c, appErrors.NewAppError(appErrors.CodeNotFound, "Shop not found", nil))
		return
	}

	if err := h.hub.HandleConnection(c.Writer, c.Request, shopID); err != nil {
		logger.Warn("Websocket upgrade failed",
			zap.String("shop_id", shopID.String()),
			zap.Error(err))
	}
}
