package service

import (
	"context"
	"errors"
	"fmt"

	"nanum/internal/auth"
	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/provider"
	"nanum/internal/repository"
)

// AuthService handles login sessions.
type AuthService interface {
	Login(ctx context.Context, email, password string) (*model.User, *auth.Session, error)
	Logout(ctx context.Context, sessionID string) error
	// CurrentUser returns nil, nil for anonymous requests.
	CurrentUser(ctx context.Context, sessionID string) (*model.User, error)
}

type authService struct {
	users    repository.UserRepository
	dir      UserService
	store    provider.CredentialStore
	sessions auth.SessionStoreInterface
	log      logging.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	users repository.UserRepository,
	dir UserService,
	store provider.CredentialStore,
	sessions auth.SessionStoreInterface,
	log logging.Logger,
) AuthService {
	return &authService{
		users:    users,
		dir:      dir,
		store:    store,
		sessions: sessions,
		log:      log.With("component", "auth"),
	}
}

// Login checks the password with the credential store and opens a session.
// Unknown emails and wrong passwords fail identically.
func (s *authService) Login(ctx context.Context, email, password string) (*model.User, *auth.Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find user: %w", err)
	}

	identity, err := s.store.Authenticate(ctx, email, password)
	if errors.Is(err, provider.ErrInvalidCredentials) {
		return nil, nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error(ctx, "authenticate failed", "email", email, "error", err)
		return nil, nil, apperrors.Provider("authenticate", err)
	}
	if identity.ID != user.ID {
		s.log.Warn(ctx, "credential identity does not match user", "user_id", user.ID, "identity_id", identity.ID)
		return nil, nil, apperrors.ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info(ctx, "login", "user_id", user.ID)
	return user, sess, nil
}

// Logout destroys the session. Empty or unknown IDs are no-ops.
func (s *authService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return fmt.Errorf("destroy session: %w", err)
	}
	return nil
}

func (s *authService) CurrentUser(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if errors.Is(err, auth.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	user, err := s.dir.GetUser(ctx, sess.UserID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
