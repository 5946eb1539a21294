package api

import (
	"context"  // Context for store lookups
	"errors"   // Error comparison
	"net/http" // HTTP status codes
	"strconv"  // Query parsing

	"paper_trading/internal/apperr"  // Error kinds
	"paper_trading/internal/domain"  // Importing domain models
	"paper_trading/internal/storage" // Repository

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Generic messages for failures that carry no user-facing detail
const (
	msgServerError    = "Server error"
	msgUserNotFound   = "User not found"
	msgWorkerNotFound = "Mining worker not found"
)

// respondError writes {"message": ...} with the status of the error kind.
// Internal details are logged, never sent.
func respondError(c *gin.Context, err error) {
	appErr := classify(err)
	switch apperr.KindOf(appErr) {
	case apperr.KindUpstream:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Upstream request failed")
	case apperr.KindInternal:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
	}
	c.JSON(appErr.Status(), gin.H{"message": appErr.Message})
}

// classify turns any error into an *apperr.Error; unknown errors become internal
func classify(err error) *apperr.Error {
	var appErr *apperr.Error
	switch {
	case errors.As(err, &appErr) && appErr.Kind != apperr.KindInternal:
		return appErr
	case errors.Is(err, storage.ErrAlreadyExists):
		return apperr.Conflict("Record already exists", err) // Lost a uniqueness race
	default:
		return apperr.Internal(msgServerError, err) // Details stay in the log
	}
}

// badRequest writes a 400 with message
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"message": message})
}

// parseLimit reads ?limit=N. Absent or zero means no limit.
func parseLimit(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, apperr.Validation("Invalid limit")
	}
	return limit, nil
}

// parseID reads a positive integer path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// currentUser resolves the demo account the non-admin endpoints act on,
// writing the error response itself when it cannot
func currentUser(c *gin.Context, repo storage.Repository, username string) (*domain.User, bool) {
	user, err := repo.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if user == nil {
		respondError(c, apperr.NotFound(msgUserNotFound))
		return nil, false
	}
	return user, true
}

// usernames resolves owner names once per distinct user id
type usernames struct {
	ctx   context.Context
	repo  storage.Repository
	names map[uint]string
}

func newUsernames(ctx context.Context, repo storage.Repository) *usernames {
	return &usernames{ctx: ctx, repo: repo, names: make(map[uint]string)}
}

// of returns the username of id, "Unknown User" when the owner is absent
func (u *usernames) of(id uint) (string, error) {
	if name, ok := u.names[id]; ok {
		return name, nil
	}
	user, err := u.repo.GetUser(u.ctx, id)
	if err != nil {
		return "", err
	}
	name := "Unknown User"
	if user != nil {
		name = user.Username
	}
	u.names[id] = name
	return name, nil
}
