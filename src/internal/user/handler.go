package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"konung-miniapp-svc/src/internal/config"
	"konung-miniapp-svc/src/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Handler interface {
	ListUsers(c *gin.Context)
	GetUserStats(c *gin.Context)
}

type handler struct {
	config  *config.Configuration
	service Service
	store   storage.Store
}

// statsEnvelope wraps cached stats with the time they were computed. The
// keyed store has no per-key TTL, so staleness is checked on read.
type statsEnvelope struct {
	Stats    *Stats    `json:"stats"`
	CachedAt time.Time `json:"cachedAt"`
}

func NewHandler(cfg *config.Configuration, service Service, store storage.Store) Handler {
	return &handler{
		config:  cfg,
		service: service,
		store:   store,
	}
}

func (h *handler) ListUsers(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	req := &ListUsersRequest{
		Page:   parseIntParam(c, "page", 1),
		Limit:  parseIntParam(c, "limit", 20),
		Search: c.Query("search"),
	}

	logrus.WithFields(logrus.Fields{
		"page":   req.Page,
		"limit":  req.Limit,
		"search": req.Search,
	}).Info("ListUsers request received")

	response, err := h.service.ListUsers(ctx, req)
	if err != nil {
		logrus.WithError(err).Error("Failed to list users")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve users",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    response,
		"message": "Users retrieved successfully",
	})
}

func (h *handler) GetUserStats(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(h.config.App.Timeout)*time.Second)
	defer cancel()

	logrus.Info("GetUserStats request received")

	if stats := h.cachedStats(ctx); stats != nil {
		logrus.Debug("User statistics retrieved from cache")
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    stats,
			"message": "User statistics retrieved successfully (from cache)",
		})
		return
	}

	stats, err := h.service.GetUserStats(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to get user statistics")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to retrieve user statistics",
			"message": err.Error(),
		})
		return
	}

	h.cacheStats(ctx, stats)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    stats,
		"message": "User statistics retrieved successfully",
	})
}

func (h *handler) cachedStats(ctx context.Context) *Stats {
	data, err := h.store.Get(ctx, h.config.Cache.UserStatKey)
	if err != nil {
		return nil
	}

	var envelope statsEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal cached user stats")
		return nil
	}

	maxAge := time.Duration(h.config.Cache.UserStatExpirationMinutes) * time.Minute
	if time.Since(envelope.CachedAt) > maxAge {
		return nil
	}

	return envelope.Stats
}

func (h *handler) cacheStats(ctx context.Context, stats *Stats) {
	data, err := json.Marshal(statsEnvelope{Stats: stats, CachedAt: time.Now()})
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal user stats for cache")
		return
	}

	if err := h.store.Set(ctx, h.config.Cache.UserStatKey, data); err != nil {
		logrus.WithError(err).Error("Failed to cache user stats")
	}
}

func parseIntParam(c *gin.Context, param string, defaultValue int) int {
	value := c.Query(param)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"param": param,
			"value": value,
			"error": err,
		}).Warn("Invalid integer parameter, using default")

		return defaultValue
	}
	return parsed
}
