package auth

import (
	"context"
	"errors"

	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/session"
	"konung-miniapp-svc/src/internal/user"

	"github.com/sirupsen/logrus"
)

// AuthState is the outcome of a token validation. Authenticated is false for
// absent, expired and orphaned sessions; store failures are returned as
// errors instead, never folded into an unauthenticated state.
type AuthState struct {
	User          *user.User       `json:"user"`
	Session       *session.Session `json:"session"`
	Authenticated bool             `json:"isAuthenticated"`
}

type Service interface {
	Validate(ctx context.Context, token string) (*AuthState, error)
	Revoke(ctx context.Context, token string) error
	RevokeAll(ctx context.Context, userID int64) (int, error)
}

type service struct {
	sessions session.Repository
	users    user.Repository
}

func NewAuthService(sessions session.Repository, users user.Repository) Service {
	return &service{
		sessions: sessions,
		users:    users,
	}
}

func (s *service) Validate(ctx context.Context, token string) (*AuthState, error) {
	if token == "" {
		return nil, models.ErrTokenRequired
	}

	sess, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrSessionNotFound) {
			return &AuthState{}, nil
		}
		return nil, err
	}

	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Orphaned session: the user record disappeared from the store.
			logrus.WithField("user_id", sess.UserID).Warn("Session references a missing user record")
			return &AuthState{}, nil
		}
		return nil, err
	}

	return &AuthState{
		User:          u,
		Session:       sess,
		Authenticated: true,
	}, nil
}

// Revoke deletes the session unconditionally. Revoking an unknown or already
// revoked token succeeds.
func (s *service) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return models.ErrTokenRequired
	}
	return s.sessions.Delete(ctx, token)
}

// RevokeAll drops every live session of the user and returns how many were
// revoked. No chat command calls this yet; it exists so a unified logout is a
// single call away.
func (s *service) RevokeAll(ctx context.Context, userID int64) (int, error) {
	sessions, err := s.sessions.ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	revoked := 0
	for _, sess := range sessions {
		if err := s.sessions.Delete(ctx, sess.Token); err != nil {
			return revoked, err
		}
		revoked++
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID,
		"revoked": revoked,
	}).Info("All user sessions revoked")
	return revoked, nil
}
