package middleware

import (
	"context" // Context for store lookups

	"paper_trading/internal/apperr"  // Error kinds
	"paper_trading/internal/domain"  // Importing domain models
	"paper_trading/internal/storage" // Repository
	"paper_trading/internal/utils"   // JWT utility functions
)

// adminFromToken validates a session token and checks the user's current role
// in the store, so a demoted admin loses access before the token expires
func adminFromToken(ctx context.Context, repo storage.Repository, tokenStr, secret string) (*domain.User, error) {
	claims, err := utils.ParseJWT(tokenStr, secret) // Parse the JWT token
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}
	user, err := repo.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsAdmin() {
		return nil, apperr.Unauthorized("Admin access required")
	}
	return user, nil
}
