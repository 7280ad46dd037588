package provider

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"nanum/internal/auth"
	apperrors "nanum/internal/errors"
	"nanum/internal/mail"
	"nanum/internal/model"
	"nanum/internal/repository"
)

// LocalOptions configures the self-hosted store.
type LocalOptions struct {
	RedirectURL string
	BcryptCost  int
	// AllowPlaintext accepts a stored non-bcrypt password compared verbatim.
	// Only ever enabled for development seeds.
	AllowPlaintext bool
}

// Local is a CredentialStore backed by the credentials table.
type Local struct {
	repo   repository.CredentialRepository
	tokens *auth.JWTService
	mailer mail.Sender
	opts   LocalOptions
	now    func() time.Time
}

var _ CredentialStore = (*Local)(nil)

// NewLocal creates the self-hosted credential store.
func NewLocal(repo repository.CredentialRepository, tokens *auth.JWTService, mailer mail.Sender, opts LocalOptions) *Local {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Local{repo: repo, tokens: tokens, mailer: mailer, opts: opts, now: time.Now}
}

func (l *Local) SendVerification(ctx context.Context, email string) (*Challenge, error) {
	cred, err := l.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		cred = &model.Credential{Email: email}
		if err := l.repo.Create(ctx, cred); err != nil {
			return nil, fmt.Errorf("create credential: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("find credential: %w", err)
	default:
		cred.EmailConfirmedAt = nil
	}

	if err := l.issue(ctx, cred); err != nil {
		return nil, err
	}
	return &Challenge{IdentityID: cred.ID, Email: cred.Email}, nil
}

func (l *Local) ResendVerification(ctx context.Context, email string) error {
	cred, err := l.repo.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return ErrUnknownIdentity
	}
	if err != nil {
		return fmt.Errorf("find credential: %w", err)
	}
	return l.issue(ctx, cred)
}

// issue rotates the confirmation JTI, so only the newest link works.
func (l *Local) issue(ctx context.Context, cred *model.Credential) error {
	jti, token, err := l.tokens.GenerateConfirmationToken(cred.ID, cred.Email)
	if err != nil {
		return fmt.Errorf("sign confirmation token: %w", err)
	}
	now := l.now().UTC()
	cred.ConfirmationJTI = jti
	cred.ConfirmationSentAt = &now
	if err := l.repo.Update(ctx, cred); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}

	msg, err := mail.VerificationMessage(cred.Email, l.opts.RedirectURL, token)
	if err != nil {
		return err
	}
	if err := l.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("enqueue verification mail: %w", err)
	}
	return nil
}

func (l *Local) IsVerified(ctx context.Context, identityID string) (bool, error) {
	cred, err := l.repo.FindByID(ctx, identityID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("find credential: %w", err)
	}
	return cred.EmailConfirmedAt != nil, nil
}

func (l *Local) ConfirmToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := l.tokens.ValidateConfirmationToken(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	cred, err := l.repo.FindByID(ctx, claims.Subject)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	if cred.ConfirmationJTI == "" || subtle.ConstantTimeCompare([]byte(cred.ConfirmationJTI), []byte(claims.ID)) != 1 {
		return nil, ErrInvalidToken
	}
	if !strings.EqualFold(cred.Email, claims.Email) {
		return nil, ErrInvalidToken
	}

	now := l.now().UTC()
	cred.EmailConfirmedAt = &now
	cred.ConfirmationJTI = ""
	if err := l.repo.Update(ctx, cred); err != nil {
		return nil, fmt.Errorf("update credential: %w", err)
	}
	return &Identity{ID: cred.ID, Email: cred.Email, Confirmed: true}, nil
}

func (l *Local) SetPassword(ctx context.Context, identityID, password string) error {
	cred, err := l.repo.FindByID(ctx, identityID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return ErrUnknownIdentity
	}
	if err != nil {
		return fmt.Errorf("find credential: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), l.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	cred.PasswordHash = string(hash)
	if err := l.repo.Update(ctx, cred); err != nil {
		return fmt.Errorf("update credential: %w", err)
	}
	return nil
}

func (l *Local) Authenticate(ctx context.Context, email, password string) (*Identity, error) {
	cred, err := l.repo.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find credential: %w", err)
	}
	if cred.EmailConfirmedAt == nil || !l.passwordMatches(cred.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &Identity{ID: cred.ID, Email: cred.Email, Confirmed: true}, nil
}

func (l *Local) passwordMatches(stored, password string) bool {
	if stored == "" {
		return false
	}
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	if !l.opts.AllowPlaintext {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcryptHash(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}
