package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/provider"
	"nanum/internal/repository"
)

const (
	// DefaultVerificationTTL bounds how long a verification challenge stays usable.
	DefaultVerificationTTL = 24 * time.Hour

	minPasswordLength = 6

	// SignupPendingMessage is shown after a successful signup.
	SignupPendingMessage = "회원가입이 완료되었습니다. 관리자 승인 대기 중입니다."
)

var validate = validator.New()

// VerificationNotifier publishes and observes "email verified" transitions.
type VerificationNotifier interface {
	NotifyVerified(ctx context.Context, email string) error
	Subscribe(ctx context.Context, email string) (<-chan struct{}, func(), error)
}

// SignupInput is the finalize-signup request.
type SignupInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	Name            string
	Organization    string
}

// SignupService drives the input → pending → verified → finalized flow.
type SignupService interface {
	RequestVerification(ctx context.Context, email string) (string, error)
	CheckVerificationStatus(ctx context.Context, email string) (bool, error)
	AwaitVerification(ctx context.Context, email string, timeout time.Duration) (bool, error)
	FinalizeSignup(ctx context.Context, in SignupInput) (*model.User, error)
	ConfirmEmail(ctx context.Context, token string) (*provider.Identity, error)
	ResendConfirmation(ctx context.Context, email string) error
	MarkVerifiedByWebhook(ctx context.Context, email string) error
	SweepExpired(ctx context.Context) (int64, error)
}

type signupService struct {
	users    repository.UserRepository
	records  repository.VerificationRepository
	store    provider.CredentialStore
	notifier VerificationNotifier
	log      logging.Logger
	ttl      time.Duration
	now      func() time.Time
}

// NewSignupService creates a new signup service. notifier may be nil, in
// which case AwaitVerification degrades to a single status check.
func NewSignupService(
	users repository.UserRepository,
	records repository.VerificationRepository,
	store provider.CredentialStore,
	notifier VerificationNotifier,
	log logging.Logger,
	ttl time.Duration,
) SignupService {
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	return &signupService{
		users:    users,
		records:  records,
		store:    store,
		notifier: notifier,
		log:      log.With("component", "signup"),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(email string) error {
	if email == "" {
		return apperrors.Validation("email", "이메일을 입력해 주세요.")
	}
	if err := validate.Var(email, "email"); err != nil {
		return apperrors.ErrInvalidEmailFormat
	}
	return nil
}

func (s *signupService) RequestVerification(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return "", err
	}

	if err := s.ensureNoUser(ctx, email); err != nil {
		return "", err
	}

	challenge, err := s.store.SendVerification(ctx, email)
	if err != nil {
		s.log.Error(ctx, "send verification failed", "email", email, "error", err)
		return "", apperrors.Provider("send verification", err)
	}

	now := s.now().UTC()
	rec := &model.EmailVerification{
		Email:      email,
		IdentityID: challenge.IdentityID,
		IssuedAt:   now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.records.Upsert(ctx, rec); err != nil {
		return "", fmt.Errorf("save verification record: %w", err)
	}
	s.log.Info(ctx, "verification requested", "email", email, "expires_at", rec.ExpiresAt)
	return email, nil
}

func (s *signupService) ensureNoUser(ctx context.Context, email string) error {
	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return apperrors.ErrDuplicateEmail
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("check user existence: %w", err)
	}
}

// liveRecord returns the record for email or nil when absent or expired.
func (s *signupService) liveRecord(ctx context.Context, email string) (*model.EmailVerification, error) {
	rec, err := s.records.FindByEmail(ctx, email)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load verification record: %w", err)
	}
	if rec.Expired(s.now()) {
		return nil, nil
	}
	return rec, nil
}

func (s *signupService) verified(ctx context.Context, rec *model.EmailVerification) (bool, error) {
	if rec == nil {
		return false, nil
	}
	if rec.Verified {
		return true, nil
	}
	ok, err := s.store.IsVerified(ctx, rec.IdentityID)
	if err != nil {
		return false, apperrors.Provider("check verification", err)
	}
	return ok, nil
}

func (s *signupService) CheckVerificationStatus(ctx context.Context, email string) (bool, error) {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return false, err
	}
	rec, err := s.liveRecord(ctx, email)
	if err != nil {
		return false, err
	}
	return s.verified(ctx, rec)
}

func (s *signupService) AwaitVerification(ctx context.Context, email string, timeout time.Duration) (bool, error) {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return false, err
	}

	var events <-chan struct{}
	if s.notifier != nil {
		ch, stop, err := s.notifier.Subscribe(ctx, email)
		if err != nil {
			s.log.Warn(ctx, "verification subscribe failed", "email", email, "error", err)
		} else {
			defer stop()
			events = ch
		}
	}

	// Subscribed before the first check so a transition in between is not lost.
	ok, err := s.CheckVerificationStatus(ctx, email)
	if err != nil || ok || events == nil {
		return ok, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false, nil
	case <-timer.C:
		return s.CheckVerificationStatus(ctx, email)
	case <-events:
		return s.CheckVerificationStatus(ctx, email)
	}
}

func (s *signupService) FinalizeSignup(ctx context.Context, in SignupInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)

	rec, err := s.liveRecord(ctx, email)
	if err != nil {
		return nil, err
	}
	ok, err := s.verified(ctx, rec)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.ErrVerificationRequired
	}

	name := strings.TrimSpace(in.Name)
	switch {
	case in.Password == "":
		return nil, apperrors.Validation("password", "비밀번호를 입력해 주세요.")
	case len([]rune(in.Password)) < minPasswordLength:
		return nil, apperrors.Validation("password", "비밀번호는 6자 이상이어야 합니다.")
	case in.PasswordConfirm != "" && in.PasswordConfirm != in.Password:
		return nil, apperrors.Validation("passwordConfirm", "비밀번호가 일치하지 않습니다.")
	case name == "":
		return nil, apperrors.Validation("name", "이름을 입력해 주세요.")
	}

	if err := s.ensureNoUser(ctx, email); err != nil {
		return nil, err
	}

	if err := s.store.SetPassword(ctx, rec.IdentityID, in.Password); err != nil {
		s.log.Error(ctx, "set password failed", "email", email, "error", err)
		return nil, apperrors.Provider("set password", err)
	}

	user := &model.User{
		ID:           rec.IdentityID,
		Email:        email,
		Name:         name,
		Organization: strings.TrimSpace(in.Organization),
		Role:         model.RoleVisitor,
		IsApproved:   false,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrDuplicateEmail) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.records.Delete(ctx, email); err != nil {
		s.log.Warn(ctx, "delete verification record failed", "email", email, "error", err)
	}
	s.log.Info(ctx, "signup finalized", "user_id", user.ID)
	return user, nil
}

func (s *signupService) ConfirmEmail(ctx context.Context, token string) (*provider.Identity, error) {
	if strings.TrimSpace(token) == "" {
		return nil, apperrors.Validation("token", "인증 토큰이 필요합니다.")
	}

	identity, err := s.store.ConfirmToken(ctx, token)
	if errors.Is(err, provider.ErrInvalidToken) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		s.log.Error(ctx, "confirm token failed", "error", err)
		return nil, apperrors.Provider("confirm token", err)
	}

	email := NormalizeEmail(identity.Email)
	if err := s.markVerified(ctx, email, identity.ID); err != nil {
		return nil, err
	}
	return identity, nil
}

// markVerified flips the live record to verified and restarts its TTL,
// recreating it when the confirmation arrives after the record was swept.
func (s *signupService) markVerified(ctx context.Context, email, identityID string) error {
	now := s.now().UTC()
	rec, err := s.liveRecord(ctx, email)
	if err != nil {
		return err
	}

	if rec != nil {
		if err := s.records.MarkVerified(ctx, email, now, now.Add(s.ttl)); err != nil {
			return fmt.Errorf("mark verified: %w", err)
		}
	} else {
		rec = &model.EmailVerification{
			Email:      email,
			IdentityID: identityID,
			Verified:   true,
			VerifiedAt: &now,
			IssuedAt:   now,
			ExpiresAt:  now.Add(s.ttl),
		}
		if err := s.records.Upsert(ctx, rec); err != nil {
			return fmt.Errorf("save verification record: %w", err)
		}
	}

	s.log.Info(ctx, "email verified", "email", email)
	s.notify(ctx, email)
	return nil
}

func (s *signupService) notify(ctx context.Context, email string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyVerified(ctx, email); err != nil {
		s.log.Warn(ctx, "publish verification event failed", "email", email, "error", err)
	}
}

func (s *signupService) ResendConfirmation(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return err
	}

	rec, err := s.liveRecord(ctx, email)
	if err != nil {
		return err
	}
	if rec == nil || rec.Verified {
		return apperrors.Validation("email", "인증 대기 중인 요청이 없습니다.")
	}

	err = s.store.ResendVerification(ctx, email)
	if errors.Is(err, provider.ErrUnknownIdentity) {
		return apperrors.Validation("email", "인증 대기 중인 요청이 없습니다.")
	}
	if err != nil {
		s.log.Error(ctx, "resend verification failed", "email", email, "error", err)
		return apperrors.Provider("resend verification", err)
	}

	now := s.now().UTC()
	rec.IssuedAt = now
	rec.ExpiresAt = now.Add(s.ttl)
	if err := s.records.Upsert(ctx, rec); err != nil {
		return fmt.Errorf("save verification record: %w", err)
	}
	return nil
}

func (s *signupService) MarkVerifiedByWebhook(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return err
	}

	rec, err := s.liveRecord(ctx, email)
	if err != nil {
		return err
	}
	if rec == nil {
		return apperrors.ErrNotFound
	}
	if rec.Verified {
		return nil
	}
	return s.markVerified(ctx, email, rec.IdentityID)
}

func (s *signupService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.records.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("sweep verification records: %w", err)
	}
	if n > 0 {
		s.log.Info(ctx, "expired verification records removed", "count", n)
	}
	return n, nil
}
