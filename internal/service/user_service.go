package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nanum/internal/cache"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserService reads the user directory through a short-lived cache.
type UserService interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
	Invalidate(ctx context.Context, id string)
}

type userService struct {
	repo  repository.UserRepository
	cache cache.Store
	log   logging.Logger
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache cache.Store, log logging.Logger) UserService {
	return &userService{repo: repo, cache: cache, log: log}
}

func (s *userService) cacheKey(id string) string {
	return fmt.Sprintf("user:%s", id)
}

func (s *userService) GetUser(ctx context.Context, id string) (*model.User, error) {
	if data, err := s.cache.Get(ctx, s.cacheKey(id)); err != nil {
		s.log.Warn(ctx, "user cache read failed", "user_id", id, "error", err)
	} else if data != nil {
		var cached model.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(user); err == nil {
		if err := s.cache.Set(ctx, s.cacheKey(id), payload, userCacheTTL); err != nil {
			s.log.Warn(ctx, "user cache write failed", "user_id", id, "error", err)
		}
	}
	return user, nil
}

// Invalidate drops the cached copy so role and approval changes show up on
// the next request.
func (s *userService) Invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, s.cacheKey(id)); err != nil {
		s.log.Error(ctx, "user cache invalidation failed", "user_id", id, "error", err)
	}
}
