package api

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation
	"time"     // Token lifetime

	"paper_trading/internal/domain"     // Importing domain models
	"paper_trading/internal/middleware" // Admin credential checks
	"paper_trading/internal/storage"    // Repository
	"paper_trading/internal/utils"      // JWT helpers

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// LoginRequest struct for admin login
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on a successful admin login
type LoginResponse struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user"`
	Token         string       `json:"token,omitempty"` // Present when a JWT secret is configured
}

// GetUserHandler returns the demo user the dashboard acts on
func GetUserHandler(repo storage.Repository, demoUser string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c, repo, demoUser)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, user) // Password is never serialized
	}
}

// AdminLoginHandler checks admin credentials and, when a secret is set,
// issues a bearer token usable instead of Basic credentials
func AdminLoginHandler(repo storage.Repository, jwtSecret string, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid login request")
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Username == "" || req.Password == "" {
			badRequest(c, "Username and password required")
			return
		}

		user, err := middleware.AuthenticateAdmin(c.Request.Context(), repo, req.Username, req.Password)
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"username":  req.Username,
				"client_ip": c.ClientIP(),
			}).Warn("Admin login rejected")
			respondError(c, err)
			return
		}

		resp := LoginResponse{Authenticated: true, User: user}
		if jwtSecret != "" {
			token, err := utils.GenerateJWT(user.ID, user.Role, jwtSecret, ttl)
			if err != nil {
				respondError(c, err)
				return
			}
			resp.Token = token
		}
		logrus.WithField("username", user.Username).Info("Admin logged in")
		c.JSON(http.StatusOK, resp)
	}
}
