package storage

import (
	"context"
	"errors"

	"konung-miniapp-svc/src/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// maxUpdateRetries bounds optimistic retries when a watched key changes
// between the read and the transactional write.
const maxUpdateRetries = 100

type redisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) Store {
	return &redisStore{client: client}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrKeyNotFound
		}
		logrus.WithError(err).WithField("key", key).Error("Failed to get key from store")
		return nil, models.ErrRedisGet
	}
	return data, nil
}

func (s *redisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to set key in store")
		return models.ErrRedisSet
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Error("Failed to delete key from store")
		return models.ErrRedisDelete
	}
	return nil
}

func (s *redisStore) List(ctx context.Context, prefix string) ([]Entry, error) {
	var entries []Entry

	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := s.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Deleted between scan and read.
				continue
			}
			logrus.WithError(err).WithField("key", key).Error("Failed to read key during listing")
			return nil, models.ErrRedisGet
		}
		entries = append(entries, Entry{Key: key, Value: data})
	}
	if err := iter.Err(); err != nil {
		logrus.WithError(err).WithField("prefix", prefix).Error("Failed to scan keys")
		return nil, models.ErrRedisGet
	}

	return entries, nil
}

func (s *redisStore) Update(ctx context.Context, key string, fn func(current []byte) ([]byte, error)) error {
	for attempt := 0; attempt < maxUpdateRetries; attempt++ {
		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if !errors.Is(err, redis.Nil) {
					return models.ErrRedisGet
				}
				current = nil
			}

			next, err := fn(current)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, next, 0)
				return nil
			})
			return err
		}, key)

		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			logrus.WithField("key", key).Debug("Concurrent write detected, retrying update")
			continue
		}
		return err
	}

	logrus.WithField("key", key).Error("Update aborted after too many conflicting writes")
	return models.ErrRedisSet
}
