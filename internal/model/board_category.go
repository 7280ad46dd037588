package model

import (
	"time"

	"gorm.io/gorm"
)

// BoardCategory is a named board with its own access requirements.
// AllowedRoles lists the roles permitted to post; empty means any role.
type BoardCategory struct {
	Slug             string    `json:"slug" gorm:"primaryKey;size:64"`
	Name             string    `json:"name" gorm:"size:100;not null"`
	RequiresAuth     bool      `json:"requiresAuth" gorm:"not null;default:false"`
	RequiresApproval bool      `json:"requiresApproval" gorm:"not null;default:false"`
	AllowedRoles     RoleSet   `json:"allowedRoles" gorm:"type:varchar(64)"`
	SortOrder        int       `json:"sortOrder" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// BeforeSave keeps AllowedRoles stored in its upward-closed form.
func (b *BoardCategory) BeforeSave(tx *gorm.DB) error {
	b.AllowedRoles = b.AllowedRoles.Normalize()
	return nil
}
