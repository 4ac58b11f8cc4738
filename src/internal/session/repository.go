package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/storage"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "sessions:"

// Repository persists sessions in the keyed store. Expiry is logical: Get
// treats an expired session as absent and deletes it as a side effect, and
// CleanupExpired sweeps the whole prefix.
type Repository interface {
	Put(ctx context.Context, s *Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
	ListByUser(ctx context.Context, userID int64) ([]*Session, error)
	CleanupExpired(ctx context.Context) (int, error)
}

type repository struct {
	store storage.Store
	now   func() time.Time
}

func NewRepository(store storage.Store) Repository {
	return NewRepositoryWithNow(store, time.Now)
}

// NewRepositoryWithNow injects the clock; tests use it to advance time past
// session expiry.
func NewRepositoryWithNow(store storage.Store, now func() time.Time) Repository {
	return &repository{store: store, now: now}
}

func Key(token string) string {
	return keyPrefix + token
}

func (r *repository) Put(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		logrus.WithError(err).WithField("user_id", s.UserID).Error("Failed to marshal session")
		return models.ErrRedisSet
	}

	if err := r.store.Set(ctx, Key(s.Token), data); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"user_id":    s.UserID,
		"expires_at": s.ExpiresAt,
	}).Debug("Session stored")
	return nil
}

func (r *repository) Get(ctx context.Context, token string) (*Session, error) {
	data, err := r.store.Get(ctx, Key(token))
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal session")
		return nil, models.ErrRedisGet
	}

	if s.Expired(r.now()) {
		// Lazy expiry: an expired session reads as absent and is removed.
		if err := r.store.Delete(ctx, Key(token)); err != nil {
			logrus.WithError(err).Warn("Failed to delete expired session")
		}
		logrus.WithField("user_id", s.UserID).Debug("Session expired")
		return nil, models.ErrSessionNotFound
	}

	return &s, nil
}

func (r *repository) Delete(ctx context.Context, token string) error {
	// Idempotent: deleting an absent token is not an error.
	return r.store.Delete(ctx, Key(token))
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]*Session, error) {
	entries, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, err
	}

	now := r.now()
	var sessions []*Session
	for _, entry := range entries {
		var s Session
		if err := json.Unmarshal(entry.Value, &s); err != nil {
			logrus.WithError(err).WithField("key", entry.Key).Error("Failed to unmarshal session, skipping")
			continue
		}
		if s.UserID == userID && !s.Expired(now) {
			sessions = append(sessions, &s)
		}
	}

	return sessions, nil
}

func (r *repository) CleanupExpired(ctx context.Context) (int, error) {
	entries, err := r.store.List(ctx, keyPrefix)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		// Re-read each key: the snapshot may be stale and the session may
		// have been re-created with the same token since the scan began.
		data, err := r.store.Get(ctx, entry.Key)
		if err != nil {
			if errors.Is(err, models.ErrKeyNotFound) {
				continue
			}
			return deleted, err
		}

		var s Session
		if err := json.Unmarshal(data, &s); err != nil {
			logrus.WithError(err).WithField("key", entry.Key).Error("Failed to unmarshal session during sweep, skipping")
			continue
		}

		if !s.Expired(r.now()) {
			continue
		}

		if err := r.store.Delete(ctx, entry.Key); err != nil {
			return deleted, err
		}
		deleted++
	}

	if deleted > 0 {
		logrus.WithField("deleted", deleted).Info("Expired sessions swept")
	}
	return deleted, nil
}

// StartSweeper runs CleanupExpired on the given interval until ctx is done.
func StartSweeper(ctx context.Context, repo Repository, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				logrus.Info("Session sweeper stopped")
				return
			case <-ticker.C:
				if _, err := repo.CleanupExpired(ctx); err != nil {
					logrus.WithError(err).Error("Session sweep failed")
				}
			}
		}
	}()
}
