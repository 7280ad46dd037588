package repository

import (
	"context"

	"gorm.io/gorm"

	"nanum/internal/model"
)

// UserRepository defines persistence operations for the user directory.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ListPending(ctx context.Context) ([]model.User, error)
	UpdateRoleApproval(ctx context.Context, id string, role model.Role, approved bool) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListPending returns unapproved non-admin users, newest first.
func (r *userRepository) ListPending(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	err := r.db.WithContext(ctx).
		Where("is_approved = ? AND role <> ?", false, model.RoleAdmin).
		Order("created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateRoleApproval overwrites role and approval. Writing identical values
// again is allowed and leaves the row unchanged apart from updated_at.
func (r *userRepository) UpdateRoleApproval(ctx context.Context, id string, role model.Role, approved bool) (*model.User, error) {
	user, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	err = r.db.WithContext(ctx).Model(user).Updates(map[string]interface{}{
		"role":        role,
		"is_approved": approved,
	}).Error
	if err != nil {
		return nil, err
	}
	user.Role = role
	user.IsApproved = approved
	return user, nil
}
