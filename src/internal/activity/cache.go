package activity

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/storage"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "activity:"

// Record is the chat-side view of a user: whether they are authenticated,
// their last known profile fields, and when they were last active. It never
// expires and is independent of web sessions.
type Record struct {
	UserID         int64      `json:"userId"`
	Authenticated  bool       `json:"authenticated"`
	UserName       string     `json:"userName,omitempty"`
	UserAge        int        `json:"userAge,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	LastActivityAt time.Time  `json:"lastActivityAt"`
}

// Patch is a shallow merge applied over the current record. Nil fields are
// left untouched; LastActivityAt is always refreshed.
type Patch struct {
	Authenticated *bool
	UserName      *string
	UserAge       *int
	CreatedAt     *time.Time
}

type Cache interface {
	Get(ctx context.Context, userID int64) (*Record, error)
	Update(ctx context.Context, userID int64, patch Patch) error
	Clear(ctx context.Context, userID int64) error
}

type cache struct {
	store storage.Store
	now   func() time.Time
}

func NewCache(store storage.Store) Cache {
	return &cache{store: store, now: time.Now}
}

func Key(userID int64) string {
	return keyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns a zero-value unauthenticated record when none is stored;
// absence is never an error.
func (c *cache) Get(ctx context.Context, userID int64) (*Record, error) {
	data, err := c.store.Get(ctx, Key(userID))
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return &Record{UserID: userID}, nil
		}
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to unmarshal activity record")
		return nil, models.ErrRedisGet
	}

	return &record, nil
}

// Update applies the patch atomically so that a chat interaction and a
// concurrent clear/update cannot lose writes.
func (c *cache) Update(ctx context.Context, userID int64, patch Patch) error {
	err := c.store.Update(ctx, Key(userID), func(current []byte) ([]byte, error) {
		record := Record{UserID: userID}
		if current != nil {
			if err := json.Unmarshal(current, &record); err != nil {
				logrus.WithError(err).WithField("user_id", userID).Warn("Discarding unreadable activity record")
				record = Record{UserID: userID}
			}
		}

		if patch.Authenticated != nil {
			record.Authenticated = *patch.Authenticated
		}
		if patch.UserName != nil {
			record.UserName = *patch.UserName
		}
		if patch.UserAge != nil {
			record.UserAge = *patch.UserAge
		}
		if patch.CreatedAt != nil {
			record.CreatedAt = patch.CreatedAt
		}
		record.LastActivityAt = c.now()

		return json.Marshal(record)
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Failed to update activity record")
		return err
	}

	logrus.WithField("user_id", userID).Debug("Activity record updated")
	return nil
}

// Clear removes the chat-side record only; web sessions stay valid.
func (c *cache) Clear(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, Key(userID))
}
