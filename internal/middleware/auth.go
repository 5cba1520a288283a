package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"emi-device-manager/internal/config"
	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/internal/policy"
	"emi-device-manager/internal/usecase/activity"
	appErrors "emi-device-manager/pkg/errors"
	"emi-device-manager/pkg/utils"
)

const callerKey = "caller"

// AuthMiddleware validates the bearer token, resolves the account and puts
// the policy caller on the request. The account is re-read on every
// request so deactivation takes effect immediately, not at token expiry.
func AuthMiddleware(cfg *config.Config, userRepo domainUser.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			utils.RespondError(c, appErrors.NewAppError(appErrors.CodeAuthMissing, "Authorization header required", nil))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			utils.RespondError(c, appErrors.NewAppError(appErrors.CodeAuthInvalid, "Invalid authorization header format", nil))
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(parts[1], cfg.JWT.Secret)
		if err != nil {
			utils.RespondError(c, err)
			c.Abort()
			return
		}

		account, err := userRepo.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			utils.RespondError(c, appErrors.NewAppError(appErrors.CodeAuthInvalid, "Account no longer exists", nil))
			c.Abort()
			return
		}
		if !account.IsActive {
			utils.RespondError(c, appErrors.NewAppError(appErrors.CodeAuthInactive, "Account is deactivated", nil))
			c.Abort()
			return
		}

		caller := policy.Caller{
			ID:       account.ID,
			Role:     account.Role,
			ShopID:   account.ShopID,
			IsActive: account.IsActive,
		}
		c.Set(callerKey, caller)

		// Carry request attribution into the audit trail.
		meta := activity.RequestMeta{
			IPAddress: c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Request = c.Request.WithContext(activity.WithRequestMeta(c.Request.Context(), meta))

		c.Next()
	}
}

// CallerFromContext returns the authenticated caller set by AuthMiddleware.
func CallerFromContext(c *gin.Context) (policy.Caller, bool) {
	value, ok := c.Get(callerKey)
	if !ok {
		return policy.Caller{}, false
	}
	caller, ok := value.(policy.Caller)
	return caller, ok
}
