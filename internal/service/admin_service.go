package service

import (
	"context"
	"fmt"

	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/repository"
)

// AdminService implements the approval workflow. Callers are admin-gated by
// the middleware.
type AdminService interface {
	ListPending(ctx context.Context) ([]model.User, error)
	Approve(ctx context.Context, userID, role string) (*model.User, error)
	Reject(ctx context.Context, userID string) (*model.User, error)
}

type adminService struct {
	users repository.UserRepository
	dir   UserService
	log   logging.Logger
}

// NewAdminService creates a new admin service.
func NewAdminService(users repository.UserRepository, dir UserService, log logging.Logger) AdminService {
	return &adminService{users: users, dir: dir, log: log.With("component", "admin")}
}

func (s *adminService) ListPending(ctx context.Context) ([]model.User, error) {
	users, err := s.users.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending users: %w", err)
	}
	return users, nil
}

// Approve sets the role and marks the user approved. Re-approving rewrites
// the same fields.
func (s *adminService) Approve(ctx context.Context, userID, role string) (*model.User, error) {
	r, err := model.ParseRole(role)
	if err != nil {
		return nil, apperrors.Validation("role", "올바르지 않은 역할입니다.")
	}
	return s.update(ctx, userID, r, true)
}

// Reject resets the user to an unapproved visitor. Nothing is deleted.
func (s *adminService) Reject(ctx context.Context, userID string) (*model.User, error) {
	return s.update(ctx, userID, model.RoleVisitor, false)
}

func (s *adminService) update(ctx context.Context, userID string, role model.Role, approved bool) (*model.User, error) {
	if userID == "" {
		return nil, apperrors.Validation("userId", "사용자 ID가 필요합니다.")
	}
	user, err := s.users.UpdateRoleApproval(ctx, userID, role, approved)
	if err != nil {
		return nil, err
	}
	s.dir.Invalidate(ctx, userID)
	s.log.Info(ctx, "user approval changed", "user_id", userID, "role", role, "approved", approved)
	return user, nil
}
