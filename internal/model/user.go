package model

import "time"

// User is the local directory record of an account. The ID is issued by the
// credential store and reused as primary key; passwords never live here.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:64"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Organization string    `json:"organization,omitempty" gorm:"size:255"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null;default:'visitor';index"`
	IsApproved   bool      `json:"isApproved" gorm:"not null;default:false;index"`
	CreatedAt    time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
