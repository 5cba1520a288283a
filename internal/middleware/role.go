package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	domainUser "emi-device-manager/internal/domain/user"
	"emi-device-manager/pkg/utils"
)

// RoleMiddleware is a coarse route gate. Fine-grained decisions still run
// through the policy inside the services.
func RoleMiddleware(allowedRoles ...domainUser.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusForbidden, "Caller not found in context")
			c.Abort()
			return
		}

		for _, allowed := range allowedRoles {
			if caller.Role == allowed {
				c.Next()
				return
			}
		}

		utils.ErrorResponse(c, http.StatusForbidden, "Insufficient permissions")
		c.Abort()
	}
}

func SuperAdminOnly() gin.HandlerFunc {
	return RoleMiddleware(domainUser.RoleSuperAdmin)
}

func StaffOnly() gin.HandlerFunc {
	return RoleMiddleware(domainUser.RoleSuperAdmin, domainUser.RoleShopOwner)
}
