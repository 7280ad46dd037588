package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"nanum/internal/model"
)

// VerificationRepository persists outstanding email verification challenges.
type VerificationRepository interface {
	Upsert(ctx context.Context, v *model.EmailVerification) error
	FindByEmail(ctx context.Context, email string) (*model.EmailVerification, error)
	MarkVerified(ctx context.Context, email string, at, expiresAt time.Time) error
	Delete(ctx context.Context, email string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type verificationRepository struct {
	db *gorm.DB
}

// NewVerificationRepository creates a new verification repository.
func NewVerificationRepository(db *gorm.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

// Upsert inserts the challenge or replaces the existing one for the same email.
func (r *verificationRepository) Upsert(ctx context.Context, v *model.EmailVerification) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		UpdateAll: true,
	}).Create(v).Error
}

func (r *verificationRepository) FindByEmail(ctx context.Context, email string) (*model.EmailVerification, error) {
	var v model.EmailVerification
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&v).Error; err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

// MarkVerified flips the record to verified and moves its expiry to expiresAt.
func (r *verificationRepository) MarkVerified(ctx context.Context, email string, at, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.EmailVerification{}).
		Where("email = ?", email).
		Updates(map[string]interface{}{"verified": true, "verified_at": at, "expires_at": expiresAt})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound)
	}
	return nil
}

func (r *verificationRepository) Delete(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).Where("email = ?", email).Delete(&model.EmailVerification{}).Error
}

// DeleteExpired removes every challenge whose expiry is at or before now.
func (r *verificationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&model.EmailVerification{})
	return res.RowsAffected, res.Error
}
