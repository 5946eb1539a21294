package middleware

import (
	"context"  // Context for store lookups
	"net/http" // HTTP status codes
	"strings"  // Header parsing

	"paper_trading/internal/apperr"  // Error kinds
	"paper_trading/internal/domain"  // Importing domain models
	"paper_trading/internal/storage" // Repository
	"paper_trading/internal/utils"   // Password checks

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// AdminUserKey is the context key holding the authenticated admin
const AdminUserKey = "adminUser"

// AuthenticateAdmin succeeds only when the user exists, the password matches
// and the role is admin
func AuthenticateAdmin(ctx context.Context, repo storage.Repository, username, password string) (*domain.User, error) {
	user, err := repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPassword(user.Password, password) || !user.IsAdmin() {
		return nil, apperr.Unauthorized("Invalid credentials or not an admin")
	}
	return user, nil
}

// AdminAuth re-validates admin credentials on every request. Basic credentials
// are checked against the store; a Bearer token issued by the login endpoint is
// accepted too, with the role re-read from the store.
func AdminAuth(repo storage.Repository, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			user *domain.User
			err  error
		)
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		switch {
		case strings.HasPrefix(authHeader, "Basic "):
			username, password, ok := c.Request.BasicAuth()
			if !ok {
				abortUnauthorized(c)
				return
			}
			user, err = AuthenticateAdmin(c.Request.Context(), repo, username, password)
		case strings.HasPrefix(authHeader, "Bearer ") && secret != "":
			user, err = adminFromToken(c.Request.Context(), repo, strings.TrimPrefix(authHeader, "Bearer "), secret)
		default:
			abortUnauthorized(c)
			return
		}

		if apperr.IsKind(err, apperr.KindUnauthorized) {
			abortUnauthorized(c)
			return
		}
		if err != nil {
			logrus.WithError(err).Error("Admin auth lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}
		c.Set(AdminUserKey, user) // Store the admin for handlers
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
}
