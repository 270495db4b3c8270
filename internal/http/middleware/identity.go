package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/24013319-DestineeKee/SupermarketAppVMC/internal/shared/apperr"
)

// Authentication happens upstream; the gateway forwards the verified
// identity on these headers. This service only reads them.
const (
	HeaderUserID = "X-User-ID"
	HeaderRole   = "X-User-Role"

	CtxKeyUserID = "user_id"
	CtxKeyRole   = "user_role"

	RoleAdmin = "admin"
)

// Identity copies the forwarded identity into the request context. It
// never rejects: public routes run with an empty user id.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxKeyUserID, c.GetHeader(HeaderUserID))
		c.Set(CtxKeyRole, c.GetHeader(HeaderRole))
		c.Next()
	}
}

func UserID(c *gin.Context) string {
	return c.GetString(CtxKeyUserID)
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(CtxKeyRole) == RoleAdmin
}

func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			Fail(c, apperr.UnauthorizedErr("Sign in to continue."))
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			Fail(c, apperr.UnauthorizedErr("Sign in to continue."))
			return
		}
		if !IsAdmin(c) {
			Fail(c, apperr.ForbiddenErr("Admin access required."))
			return
		}
		c.Next()
	}
}
