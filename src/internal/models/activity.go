package models

import "time"

type ActivityMessage struct {
	UserID      int64             `json:"user_id"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionRegistered     = "registered"
	ActionAuthenticated  = "authenticated"
	ActionSessionCheck   = "session_check"
	ActionSessionRevoked = "session_revoked"
	ActionLogout         = "logout"
)

// Service name constants
const (
	ServiceBotOnboarding = "bot.scene.onboarding"
	ServiceBotAuth       = "bot.command.auth"
	ServiceBotLogout     = "bot.command.logout"
	ServiceWebAuth       = "web.handler.auth"
)
