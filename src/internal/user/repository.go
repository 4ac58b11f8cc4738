package user

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"konung-miniapp-svc/src/internal/models"
	"konung-miniapp-svc/src/internal/storage"

	"github.com/sirupsen/logrus"
)

const keyPrefix = "users:"

// Repository persists user profiles in the keyed store.
type Repository interface {
	Put(ctx context.Context, u *User) error
	Get(ctx context.Context, id int64) (*User, error)
}

type repository struct {
	store storage.Store
}

func NewUserRepository(store storage.Store) Repository {
	return &repository{store: store}
}

func Key(id int64) string {
	return keyPrefix + strconv.FormatInt(id, 10)
}

func (r *repository) Put(ctx context.Context, u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		logrus.WithError(err).WithField("user_id", u.ID).Error("Failed to marshal user")
		return models.ErrRedisSet
	}

	if err := r.store.Set(ctx, Key(u.ID), data); err != nil {
		return err
	}

	logrus.WithField("user_id", u.ID).Debug("User record stored")
	return nil
}

func (r *repository) Get(ctx context.Context, id int64) (*User, error) {
	data, err := r.store.Get(ctx, Key(id))
	if err != nil {
		if errors.Is(err, models.ErrKeyNotFound) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("Failed to unmarshal user")
		return nil, models.ErrRedisGet
	}

	return &u, nil
}
