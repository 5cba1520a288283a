package handler

import (
	"github.com/gin-gonic/gin"

	"emi-device-manager/internal/middleware"
	"emi-device-manager/internal/policy"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

// requireCaller pulls the authenticated caller set by the auth middleware.
// Returns false after writing the response when the caller is absent.
func requireCaller(c *gin.Context) (policy.Caller, bool) {
	caller, ok := middleware.CallerFromContext(c)
	if !ok {
		utils.RespondError(c, appErrors.NewAppError(appErrors.CodeAuthMissing, "Authentication required", nil))
		return policy.Caller{}, false
	}
	return caller, true
}
