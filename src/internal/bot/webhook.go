package bot

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// telegramUpdate mirrors the few fields of the Bot API update payload the
// service cares about.
type telegramUpdate struct {
	UpdateID int64 `json:"update_id"`
	Message  *struct {
		From *struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
			LastName  string `json:"last_name"`
		} `json:"from"`
		Text string `json:"text"`
	} `json:"message"`
}

// WebhookHandler accepts Bot API webhook calls, verifies the secret token
// header and dispatches the update.
func (b *Bot) WebhookHandler(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(secretTokenHeader) != secret {
			logrus.Warn("Webhook call with invalid secret token")
			c.String(http.StatusUnauthorized, "Unauthorized")
			return
		}

		var upd telegramUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			logrus.WithError(err).Error("Failed to decode webhook update")
			c.String(http.StatusBadRequest, "Bad Request")
			return
		}

		// Non-message updates (edits, callbacks) are acknowledged and dropped.
		if upd.Message == nil || upd.Message.From == nil {
			c.String(http.StatusOK, "OK")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(b.cfg.App.Timeout)*time.Second)
		defer cancel()

		err := b.HandleUpdate(ctx, Update{
			UserID:    upd.Message.From.ID,
			Username:  upd.Message.From.Username,
			FirstName: upd.Message.From.FirstName,
			LastName:  upd.Message.From.LastName,
			Text:      upd.Message.Text,
		})
		if err != nil {
			logrus.WithError(err).WithField("update_id", upd.UpdateID).Error("Webhook update handling failed")
			c.String(http.StatusInternalServerError, "Error")
			return
		}

		c.String(http.StatusOK, "OK")
	}
}
