// Package provider implements the Credential Store: the single system of
// record for passwords and email-verification tokens. The API never compares
// passwords itself; it always asks a CredentialStore.
package provider

import (
	"context"
	"errors"
)

// Domain outcomes a CredentialStore reports. Any other error is an upstream
// failure.
var (
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownIdentity    = errors.New("unknown identity")
)

// Identity is an account as known to the credential store.
type Identity struct {
	ID        string
	Email     string
	Confirmed bool
}

// Challenge describes an issued verification.
type Challenge struct {
	IdentityID string
	Email      string
}

// CredentialStore owns password hashing and verification tokens.
type CredentialStore interface {
	// SendVerification registers email if needed and mails a confirmation
	// link. Any earlier confirmation of the identity is cleared.
	SendVerification(ctx context.Context, email string) (*Challenge, error)
	// ResendVerification mails a fresh link for a pending identity.
	ResendVerification(ctx context.Context, email string) error
	IsVerified(ctx context.Context, identityID string) (bool, error)
	// ConfirmToken consumes a confirmation token.
	ConfirmToken(ctx context.Context, token string) (*Identity, error)
	SetPassword(ctx context.Context, identityID, password string) error
	Authenticate(ctx context.Context, email, password string) (*Identity, error)
}
