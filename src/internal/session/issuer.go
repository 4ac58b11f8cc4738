package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"konung-miniapp-svc/src/internal/models"

	"github.com/sirupsen/logrus"
)

// tokenBytes gives 128 bits of entropy per token; collisions are
// astronomically rare but re-checked on issuance anyway.
const (
	tokenBytes        = 16
	maxIssueAttempts  = 3
	DefaultSessionTTL = 24 * time.Hour
)

// Issuer mints sessions with fresh random tokens. It never deduplicates
// against existing sessions for the same user: every call produces an
// additional concurrent session.
type Issuer struct {
	repo Repository
	ttl  time.Duration
	now  func() time.Time
}

func NewIssuer(repo Repository, ttl time.Duration) *Issuer {
	return NewIssuerWithNow(repo, ttl, time.Now)
}

func NewIssuerWithNow(repo Repository, ttl time.Duration, now func() time.Time) *Issuer {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Issuer{repo: repo, ttl: ttl, now: now}
}

func (i *Issuer) Issue(ctx context.Context, userID int64) (*Session, error) {
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		token, err := generateToken()
		if err != nil {
			return nil, err
		}

		_, err = i.repo.Get(ctx, token)
		if err == nil {
			logrus.WithField("attempt", attempt).Warn("Token collision on issuance, regenerating")
			continue
		}
		if !errors.Is(err, models.ErrSessionNotFound) {
			return nil, err
		}

		createdAt := i.now()
		s := &Session{
			Token:     token,
			UserID:    userID,
			CreatedAt: createdAt,
			ExpiresAt: createdAt.Add(i.ttl),
		}

		if err := i.repo.Put(ctx, s); err != nil {
			return nil, err
		}

		logrus.WithFields(logrus.Fields{
			"user_id":    userID,
			"expires_at": s.ExpiresAt,
		}).Info("Session issued")
		return s, nil
	}

	return nil, models.ErrTokenConflict
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
