package models

import "errors"

var (
	ErrRedisConnection = errors.New("redis connection error")
	ErrRedisGet        = errors.New("redis get error")
	ErrRedisSet        = errors.New("redis set error")
	ErrRedisDelete     = errors.New("redis delete error")
	ErrKeyNotFound     = errors.New("key not found")
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenRequired   = errors.New("token is required")
	ErrTokenConflict   = errors.New("token already exists")
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDatabaseConnection = errors.New("database connection error")
	ErrDatabaseQuery      = errors.New("database query error")
	ErrDatabaseInsert     = errors.New("database insert error")
)

var (
	ErrSceneNotFound = errors.New("scene not found")
	ErrInvalidInput  = errors.New("invalid input")
)
