package model

import "time"

// EmailVerification tracks an outstanding verification challenge for an email
// that has not been finalized into a User yet.
type EmailVerification struct {
	Email      string     `json:"email" gorm:"primaryKey;size:255"`
	IdentityID string     `json:"identityId" gorm:"size:64;not null"`
	Verified   bool       `json:"verified" gorm:"not null;default:false"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	IssuedAt   time.Time  `json:"issuedAt" gorm:"not null"`
	ExpiresAt  time.Time  `json:"expiresAt" gorm:"not null;index"`
}

// Expired reports whether the challenge is past its expiry at now.
func (v *EmailVerification) Expired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}
