package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Credential is the self-hosted credential store record. It is only used
// when the local provider is selected.
type Credential struct {
	ID                 string     `json:"id" gorm:"type:char(36);primaryKey"`
	Email              string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash       string     `json:"-" gorm:"size:255"`
	EmailConfirmedAt   *time.Time `json:"emailConfirmedAt,omitempty"`
	ConfirmationJTI    string     `json:"-" gorm:"size:64;index"`
	ConfirmationSentAt *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}
