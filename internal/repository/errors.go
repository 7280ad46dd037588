package repository

import (
	"errors"

	"gorm.io/gorm"

	apperrors "nanum/internal/errors"
)

// translate maps GORM sentinel errors onto the domain errors so callers
// above this package never import gorm.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperrors.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperrors.ErrDuplicateEmail
	default:
		return err
	}
}
