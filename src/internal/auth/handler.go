package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	authCookieName   = "auth_token"
	authCookieMaxAge = 86400
)

// Publisher pushes user activity events; nil disables publishing.
type Publisher interface {
	PublishAction(userID int64, serviceName, action string) error
}

type Handler struct {
	config    *config.Configuration
	service   Service
	publisher Publisher
}

func NewHandler(cfg *config.Configuration, service Service, publisher Publisher) *Handler {
	return &Handler{
		config:    cfg,
		service:   service,
		publisher: publisher,
	}
}

// GetAuth handles GET /api/auth?token=.
func (h *Handler) GetAuth(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	state, err := h.service.Validate(ctx, token)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	if !state.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	h.publish(state.User.ID, models.ActionSessionCheck)

	c.JSON(http.StatusOK, gin.H{
		"user":    state.User,
		"session": state.Session,
	})
}

// DeleteAuth handles DELETE /api/auth?token=. Revocation is idempotent, so
// the response is 200 whether or not the session existed.
func (h *Handler) DeleteAuth(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	// Resolve the session first so the revocation event can name the user;
	// a dead token revokes silently.
	var userID int64
	if state, err := h.service.Validate(ctx, token); err == nil && state.Authenticated {
		userID = state.User.ID
	}

	if err := h.service.Revoke(ctx, token); err != nil {
		logrus.WithError(err).Error("Failed to revoke session")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Session revocation error"})
		return
	}

	if userID != 0 {
		h.publish(userID, models.ActionSessionRevoked)
	}

	c.JSON(http.StatusOK, gin.H{"message": "Session revoked successfully"})
}

// AuthRedirect handles GET /auth?token=: validates the token, sets the auth
// cookie and redirects to the app root.
func (h *Handler) AuthRedirect(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	token := c.Query("token")
	if token == "" {
		c.String(http.StatusBadRequest, "Token is required")
		return
	}

	state, err := h.service.Validate(ctx, token)
	if err != nil {
		h.handleValidationError(c, err)
		return
	}

	if !state.Authenticated {
		c.String(http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	h.publish(state.User.ID, models.ActionAuthenticated)

	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(authCookieName, token, authCookieMaxAge, "/", "", true, true)
	c.Redirect(http.StatusFound, "/")
}

func (h *Handler) handleValidationError(c *gin.Context, err error) {
	if errors.Is(err, models.ErrTokenRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Token is required"})
		return
	}

	// Transient store failure: a server error, not an auth outcome.
	logrus.WithError(err).Error("Session validation failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Session validation error"})
}

func (h *Handler) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
}

func (h *Handler) publish(userID int64, action string) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishAction(userID, models.ServiceWebAuth, action); err != nil {
		logrus.WithError(err).WithField("action", action).Warn("Failed to publish activity event")
	}
}
