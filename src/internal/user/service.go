package user

import (
	"context"
	"math"

	"konung-miniapp-svc/src/internal/config"

	"github.com/sirupsen/logrus"
)

type Service interface {
	ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error)
	GetUserStats(ctx context.Context) (*Stats, error)
}

type userService struct {
	directory Directory
	cfg       *config.Configuration
}

func NewUserService(directory Directory, cfg *config.Configuration) Service {
	return &userService{
		directory: directory,
		cfg:       cfg,
	}
}

func (s *userService) ListUsers(ctx context.Context, req *ListUsersRequest) (*ListUsersResponse, error) {
	// Validate and set defaults
	if req.Limit <= 0 {
		req.Limit = s.cfg.Search.MinQueryLimit
	}
	if req.Limit > s.cfg.Search.MaxQueryLimit {
		req.Limit = s.cfg.Search.MaxQueryLimit
	}
	if req.Page <= 0 {
		req.Page = 1
	}

	logrus.WithFields(logrus.Fields{
		"page":   req.Page,
		"limit":  req.Limit,
		"search": req.Search,
	}).Debug("Listing registered users")

	users, totalCount, err := s.directory.ListUsers(ctx, req)
	if err != nil {
		logrus.WithError(err).Error("Failed to get users from directory")
		return nil, err
	}

	totalPages := int(math.Ceil(float64(totalCount) / float64(req.Limit)))

	response := &ListUsersResponse{
		Users:      users,
		TotalCount: totalCount,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: totalPages,
	}

	logrus.WithFields(logrus.Fields{
		"users_count": len(users),
		"total_count": totalCount,
		"total_pages": totalPages,
	}).Info("Successfully retrieved users")

	return response, nil
}

func (s *userService) GetUserStats(ctx context.Context) (*Stats, error) {
	logrus.Debug("Getting user statistics")

	stats, err := s.directory.GetUserStats(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to get user stats from directory")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"total":          stats.Total,
		"new_this_month": stats.NewThisMonth,
		"with_username":  stats.WithUsername,
	}).Info("Successfully retrieved user statistics")

	return stats, nil
}
