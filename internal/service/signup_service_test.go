package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "nanum/internal/errors"
	"nanum/internal/logging"
	"nanum/internal/model"
	"nanum/internal/provider"
)

type signupFixture struct {
	svc      *signupService
	users    *memUsers
	records  *memVerifications
	store    *fakeStore
	notifier *chanNotifier
}

func newSignupFixture() *signupFixture {
	f := &signupFixture{
		users:    newMemUsers(),
		records:  newMemVerifications(),
		store:    newFakeStore(),
		notifier: newChanNotifier(),
	}
	f.svc = NewSignupService(f.users, f.records, f.store, f.notifier, logging.Nop(), time.Hour).(*signupService)
	return f
}

func TestSignup_PollThenFinalize(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()

	email, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", email)

	for i := 0; i < 3; i++ {
		ok, err := f.svc.CheckVerificationStatus(ctx, "a@x.com")
		require.NoError(t, err)
		assert.False(t, ok)
	}

	f.store.confirmOutOfBand("a@x.com")

	ok, err := f.svc.CheckVerificationStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	user, err := f.svc.FinalizeSignup(ctx, SignupInput{
		Email:        "a@x.com",
		Password:     "secret1",
		Name:         "Kim",
		Organization: "Shelter A",
	})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, model.RoleVisitor, user.Role)
	assert.False(t, user.IsApproved)
	assert.Equal(t, "Shelter A", user.Organization)

	stored, err := f.users.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleVisitor, stored.Role)
	assert.False(t, stored.IsApproved)

	_, err = f.records.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestSignup_RequestThenCheckIsUnverified(t *testing.T) {
	ctx := context.Background()
	for _, email := range []string{"a@x.com", " B@X.com ", "c.d+tag@example.org"} {
		f := newSignupFixture()
		_, err := f.svc.RequestVerification(ctx, email)
		require.NoError(t, err)
		ok, err := f.svc.CheckVerificationStatus(ctx, email)
		require.NoError(t, err)
		assert.False(t, ok, email)
	}
}

func TestSignup_RequestResetsEarlierConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()

	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	f.store.confirmOutOfBand("a@x.com")

	_, err = f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	ok, err := f.svc.CheckVerificationStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignup_RequestVerificationErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		f := newSignupFixture()
		_, err := f.svc.RequestVerification(ctx, "  ")
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("bad format", func(t *testing.T) {
		f := newSignupFixture()
		_, err := f.svc.RequestVerification(ctx, "not-an-email")
		assert.ErrorIs(t, err, apperrors.ErrInvalidEmailFormat)
	})

	t.Run("duplicate", func(t *testing.T) {
		f := newSignupFixture()
		require.NoError(t, f.users.Create(ctx, &model.User{ID: "u1", Email: "a@x.com", Name: "Kim"}))
		_, err := f.svc.RequestVerification(ctx, "A@x.com")
		assert.ErrorIs(t, err, apperrors.ErrDuplicateEmail)
	})

	t.Run("provider failure leaves no record", func(t *testing.T) {
		f := newSignupFixture()
		f.store.failSend = errors.New("upstream 500")
		_, err := f.svc.RequestVerification(ctx, "a@x.com")
		assert.ErrorIs(t, err, apperrors.ErrProvider)
		_, err = f.records.FindByEmail(ctx, "a@x.com")
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestSignup_FinalizeRequiresVerification(t *testing.T) {
	ctx := context.Background()
	inputs := []SignupInput{
		{Email: "a@x.com", Password: "secret1", Name: "Kim"},
		{Email: "a@x.com", Password: "", Name: ""},
		{Email: "a@x.com", Password: "x", PasswordConfirm: "y"},
		{Email: "not-an-email", Password: "secret1", Name: "Kim"},
		{},
	}

	for _, in := range inputs {
		t.Run("never requested "+in.Email, func(t *testing.T) {
			f := newSignupFixture()
			_, err := f.svc.FinalizeSignup(ctx, in)
			assert.ErrorIs(t, err, apperrors.ErrVerificationRequired)
		})
		t.Run("pending "+in.Email, func(t *testing.T) {
			f := newSignupFixture()
			_, err := f.svc.RequestVerification(ctx, "a@x.com")
			require.NoError(t, err)
			_, err = f.svc.FinalizeSignup(ctx, in)
			assert.ErrorIs(t, err, apperrors.ErrVerificationRequired)
		})
	}
}

func TestSignup_FinalizeExpiredRecord(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()
	base := time.Now()
	f.svc.now = func() time.Time { return base }

	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	f.store.confirmOutOfBand("a@x.com")

	f.svc.now = func() time.Time { return base.Add(2 * time.Hour) }
	ok, err := f.svc.CheckVerificationStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.FinalizeSignup(ctx, SignupInput{Email: "a@x.com", Password: "secret1", Name: "Kim"})
	assert.ErrorIs(t, err, apperrors.ErrVerificationRequired)

	n, err := f.svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestSignup_FinalizeValidation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"missing password", SignupInput{Name: "Kim"}, "password"},
		{"short password", SignupInput{Password: "12345", Name: "Kim"}, "password"},
		{"confirm mismatch", SignupInput{Password: "secret1", PasswordConfirm: "secret2", Name: "Kim"}, "passwordConfirm"},
		{"missing name", SignupInput{Password: "secret1", Name: "  "}, "name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newSignupFixture()
			_, err := f.svc.RequestVerification(ctx, "a@x.com")
			require.NoError(t, err)
			f.store.confirmOutOfBand("a@x.com")

			tt.in.Email = "a@x.com"
			_, err = f.svc.FinalizeSignup(ctx, tt.in)
			var ve *apperrors.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestSignup_FinalizeAlwaysVisitorUnapproved(t *testing.T) {
	ctx := context.Background()
	inputs := []SignupInput{
		{Password: "secret1", Name: "Kim"},
		{Password: "secret1", PasswordConfirm: "secret1", Name: "Lee", Organization: "admin"},
		{Password: "member-password", Name: "admin", Organization: "member"},
	}
	for _, in := range inputs {
		f := newSignupFixture()
		_, err := f.svc.RequestVerification(ctx, "a@x.com")
		require.NoError(t, err)
		f.store.confirmOutOfBand("a@x.com")

		in.Email = "a@x.com"
		user, err := f.svc.FinalizeSignup(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, model.RoleVisitor, user.Role)
		assert.False(t, user.IsApproved)
	}
}

func TestSignup_ConfirmEmail(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()

	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = f.svc.ConfirmEmail(ctx, "bogus")
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	_, err = f.svc.ConfirmEmail(ctx, "")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	id, err := f.svc.ConfirmEmail(ctx, "tok:a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "id-a@x.com", id.ID)

	rec, err := f.records.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, rec.Verified)
	assert.NotNil(t, rec.VerifiedAt)
}

func TestSignup_ConfirmNearExpiryRestartsTTL(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()
	base := time.Now()
	f.svc.now = func() time.Time { return base }

	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	confirmedAt := base.Add(55 * time.Minute)
	f.svc.now = func() time.Time { return confirmedAt }
	_, err = f.svc.ConfirmEmail(ctx, "tok:a@x.com")
	require.NoError(t, err)

	rec, err := f.records.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, confirmedAt.UTC().Add(time.Hour).Equal(rec.ExpiresAt), "expires at %s", rec.ExpiresAt)

	// past the original expiry, still inside the restarted window
	f.svc.now = func() time.Time { return base.Add(90 * time.Minute) }
	ok, err := f.svc.CheckVerificationStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.svc.FinalizeSignup(ctx, SignupInput{Email: "a@x.com", Password: "secret1", Name: "Kim"})
	require.NoError(t, err)
}

func TestSignup_WebhookNearExpiryRestartsTTL(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()
	base := time.Now()
	f.svc.now = func() time.Time { return base }

	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(59 * time.Minute) }
	require.NoError(t, f.svc.MarkVerifiedByWebhook(ctx, "a@x.com"))

	f.svc.now = func() time.Time { return base.Add(100 * time.Minute) }
	_, err = f.svc.FinalizeSignup(ctx, SignupInput{Email: "a@x.com", Password: "secret1", Name: "Kim"})
	require.NoError(t, err)
}

func TestSignup_ConfirmEmailAfterSweepRecreatesRecord(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()
	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	require.NoError(t, f.records.Delete(ctx, "a@x.com"))

	_, err = f.svc.ConfirmEmail(ctx, "tok:a@x.com")
	require.NoError(t, err)

	ok, err := f.svc.CheckVerificationStatus(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignup_ResendConfirmation(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()

	assert.ErrorIs(t, f.svc.ResendConfirmation(ctx, "a@x.com"), apperrors.ErrValidation)

	base := time.Now()
	f.svc.now = func() time.Time { return base }
	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return base.Add(30 * time.Minute) }
	require.NoError(t, f.svc.ResendConfirmation(ctx, "a@x.com"))
	rec, err := f.records.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.True(t, base.Add(90*time.Minute).Equal(rec.ExpiresAt), "expires at %s", rec.ExpiresAt)

	_, err = f.svc.ConfirmEmail(ctx, "tok:a@x.com")
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResendConfirmation(ctx, "a@x.com"), apperrors.ErrValidation)
}

func TestSignup_WebhookAndAwait(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()

	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	done := make(chan bool, 1)
	go func() {
		ok, err := f.svc.AwaitVerification(ctx, "a@x.com", 5*time.Second)
		assert.NoError(t, err)
		done <- ok
	}()

	require.Eventually(t, func() bool { return f.notifier.subscribers("a@x.com") == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, f.svc.MarkVerifiedByWebhook(ctx, "A@X.com"))

	select {
	case ok := <-done:
		assert.True(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("AwaitVerification did not wake up")
	}

	// idempotent
	require.NoError(t, f.svc.MarkVerifiedByWebhook(ctx, "a@x.com"))
	assert.ErrorIs(t, f.svc.MarkVerifiedByWebhook(ctx, "b@x.com"), apperrors.ErrNotFound)
}

func TestSignup_AwaitTimesOut(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()
	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	start := time.Now()
	ok, err := f.svc.AwaitVerification(ctx, "a@x.com", 50*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

func TestSignup_AwaitReturnsImmediatelyWhenVerified(t *testing.T) {
	ctx := context.Background()
	f := newSignupFixture()
	_, err := f.svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	f.store.confirmOutOfBand("a@x.com")

	ok, err := f.svc.AwaitVerification(ctx, "a@x.com", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSignup_ProviderErrorsAreWrapped(t *testing.T) {
	ctx := context.Background()
	store := new(MockCredentialStore)
	records := newMemVerifications()
	svc := NewSignupService(newMemUsers(), records, store, nil, logging.Nop(), time.Hour)

	store.On("SendVerification", mock.Anything, "a@x.com").Return(&provider.Challenge{IdentityID: "gt-1"}, nil)
	store.On("IsVerified", mock.Anything, "gt-1").Return(false, errors.New("timeout"))

	_, err := svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)

	_, err = svc.CheckVerificationStatus(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperrors.ErrProvider)
	store.AssertExpectations(t)
}

func TestSignup_SetPasswordFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockCredentialStore)
	users := newMemUsers()
	svc := NewSignupService(users, newMemVerifications(), store, nil, logging.Nop(), time.Hour)

	store.On("SendVerification", mock.Anything, "a@x.com").Return(&provider.Challenge{IdentityID: "gt-1"}, nil)
	store.On("IsVerified", mock.Anything, "gt-1").Return(true, nil)
	store.On("SetPassword", mock.Anything, "gt-1", "secret1").Return(errors.New("503"))

	_, err := svc.RequestVerification(ctx, "a@x.com")
	require.NoError(t, err)
	_, err = svc.FinalizeSignup(ctx, SignupInput{Email: "a@x.com", Password: "secret1", Name: "Kim"})
	assert.ErrorIs(t, err, apperrors.ErrProvider)

	_, err = users.FindByEmail(ctx, "a@x.com")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRunSweeper(t *testing.T) {
	f := newSignupFixture()
	base := time.Now()
	f.svc.now = func() time.Time { return base }
	_, err := f.svc.RequestVerification(context.Background(), "a@x.com")
	require.NoError(t, err)
	f.svc.now = func() time.Time { return base.Add(2 * time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunSweeper(ctx, f.svc, time.Hour, logging.Nop())
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, err := f.records.FindByEmail(context.Background(), "a@x.com")
		return errors.Is(err, apperrors.ErrNotFound)
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestRunSweeper_NonPositiveInterval(t *testing.T) {
	for _, interval := range []time.Duration{0, -time.Second} {
		f := newSignupFixture()
		base := time.Now()
		f.svc.now = func() time.Time { return base }
		_, err := f.svc.RequestVerification(context.Background(), "a@x.com")
		require.NoError(t, err)
		f.svc.now = func() time.Time { return base.Add(2 * time.Hour) }

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			assert.NotPanics(t, func() { RunSweeper(ctx, f.svc, interval, logging.Nop()) })
		}()

		require.Eventually(t, func() bool {
			_, err := f.records.FindByEmail(context.Background(), "a@x.com")
			return errors.Is(err, apperrors.ErrNotFound)
		}, time.Second, 5*time.Millisecond)

		cancel()
		<-done
	}
}
