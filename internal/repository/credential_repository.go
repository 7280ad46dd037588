package repository

import (
	"context"

	"gorm.io/gorm"

	"nanum/internal/model"
)

// CredentialRepository backs the self-hosted credential store.
type CredentialRepository interface {
	Create(ctx context.Context, c *model.Credential) error
	Update(ctx context.Context, c *model.Credential) error
	FindByID(ctx context.Context, id string) (*model.Credential, error)
	FindByEmail(ctx context.Context, email string) (*model.Credential, error)
}

type credentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a new credential repository.
func NewCredentialRepository(db *gorm.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Create(ctx context.Context, c *model.Credential) error {
	return translate(r.db.WithContext(ctx).Create(c).Error)
}

func (r *credentialRepository) Update(ctx context.Context, c *model.Credential) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *credentialRepository) FindByID(ctx context.Context, id string) (*model.Credential, error) {
	var c model.Credential
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *credentialRepository) FindByEmail(ctx context.Context, email string) (*model.Credential, error) {
	var c model.Credential
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}
