package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"nanum/internal/auth"
	apperrors "nanum/internal/errors"
	"nanum/internal/model"
	"nanum/internal/provider"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ListPending(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *MockUserRepository) UpdateRoleApproval(ctx context.Context, id string, role model.Role, approved bool) (*model.User, error) {
	args := m.Called(ctx, id, role, approved)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockCredentialStore is a mock implementation of provider.CredentialStore.
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) SendVerification(ctx context.Context, email string) (*provider.Challenge, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Challenge), args.Error(1)
}

func (m *MockCredentialStore) ResendVerification(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockCredentialStore) IsVerified(ctx context.Context, identityID string) (bool, error) {
	args := m.Called(ctx, identityID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCredentialStore) ConfirmToken(ctx context.Context, token string) (*provider.Identity, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Identity), args.Error(1)
}

func (m *MockCredentialStore) SetPassword(ctx context.Context, identityID, password string) error {
	args := m.Called(ctx, identityID, password)
	return args.Error(0)
}

func (m *MockCredentialStore) Authenticate(ctx context.Context, email, password string) (*provider.Identity, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Identity), args.Error(1)
}

// MockSessionStore is a mock implementation of auth.SessionStoreInterface.
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, userID string) (*auth.Session, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *MockSessionStore) Destroy(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockUserService is a mock implementation of UserService.
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserService) Invalidate(ctx context.Context, id string) {
	m.Called(ctx, id)
}

// memVerifications is an in-memory VerificationRepository.
type memVerifications struct {
	mu   sync.Mutex
	recs map[string]model.EmailVerification
}

func newMemVerifications() *memVerifications {
	return &memVerifications{recs: map[string]model.EmailVerification{}}
}

func (m *memVerifications) Upsert(_ context.Context, v *model.EmailVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[v.Email] = *v
	return nil
}

func (m *memVerifications) FindByEmail(_ context.Context, email string) (*model.EmailVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.recs[email]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &v, nil
}

func (m *memVerifications) MarkVerified(_ context.Context, email string, at, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.recs[email]
	if !ok {
		return apperrors.ErrNotFound
	}
	v.Verified = true
	v.VerifiedAt = &at
	v.ExpiresAt = expiresAt
	m.recs[email] = v
	return nil
}

func (m *memVerifications) Delete(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs, email)
	return nil
}

func (m *memVerifications) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, v := range m.recs {
		if v.Expired(now) {
			delete(m.recs, k)
			n++
		}
	}
	return n, nil
}

// memUsers is an in-memory UserRepository.
type memUsers struct {
	mu    sync.Mutex
	users map[string]model.User
}

func newMemUsers() *memUsers {
	return &memUsers{users: map[string]model.User{}}
}

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return apperrors.ErrDuplicateEmail
		}
	}
	u.CreatedAt = time.Now()
	m.users[u.ID] = *u
	return nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memUsers) ListPending(_ context.Context) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.User{}
	for _, u := range m.users {
		if !u.IsApproved && u.Role != model.RoleAdmin {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memUsers) UpdateRoleApproval(_ context.Context, id string, role model.Role, approved bool) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	u.Role, u.IsApproved = role, approved
	m.users[id] = u
	return &u, nil
}

// fakeStore is a CredentialStore whose confirmations are driven by the test.
type fakeStore struct {
	mu        sync.Mutex
	ids       map[string]string // email -> identity
	confirmed map[string]bool   // identity -> confirmed
	passwords map[string]string // identity -> password
	failSend  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{ids: map[string]string{}, confirmed: map[string]bool{}, passwords: map[string]string{}}
}

func (f *fakeStore) SendVerification(_ context.Context, email string) (*provider.Challenge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSend != nil {
		return nil, f.failSend
	}
	id, ok := f.ids[email]
	if !ok {
		id = "id-" + email
		f.ids[email] = id
	}
	f.confirmed[id] = false
	return &provider.Challenge{IdentityID: id, Email: email}, nil
}

func (f *fakeStore) ResendVerification(_ context.Context, email string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[email]; !ok {
		return provider.ErrUnknownIdentity
	}
	return nil
}

// confirmOutOfBand simulates the user clicking the mailed link at the
// provider without the API seeing the token.
func (f *fakeStore) confirmOutOfBand(email string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed[f.ids[email]] = true
}

func (f *fakeStore) IsVerified(_ context.Context, identityID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.confirmed[identityID], nil
}

func (f *fakeStore) ConfirmToken(_ context.Context, token string) (*provider.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// tokens in tests are "tok:<email>"
	email, ok := strings.CutPrefix(token, "tok:")
	id, known := f.ids[email]
	if !ok || !known {
		return nil, provider.ErrInvalidToken
	}
	f.confirmed[id] = true
	return &provider.Identity{ID: id, Email: email, Confirmed: true}, nil
}

func (f *fakeStore) SetPassword(_ context.Context, identityID, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.passwords[identityID] = password
	return nil
}

func (f *fakeStore) Authenticate(_ context.Context, email, password string) (*provider.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[email]
	if !ok || f.passwords[id] != password {
		return nil, provider.ErrInvalidCredentials
	}
	return &provider.Identity{ID: id, Email: email, Confirmed: true}, nil
}

// chanNotifier is an in-process VerificationNotifier.
type chanNotifier struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

func newChanNotifier() *chanNotifier {
	return &chanNotifier{subs: map[string][]chan struct{}{}}
}

func (n *chanNotifier) NotifyVerified(_ context.Context, email string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.subs[email] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

func (n *chanNotifier) Subscribe(_ context.Context, email string) (<-chan struct{}, func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch := make(chan struct{}, 1)
	n.subs[email] = append(n.subs[email], ch)
	return ch, func() {}, nil
}

func (n *chanNotifier) subscribers(email string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[email])
}

// mapStore is an in-memory cache.Store.
type mapStore struct {
	mu   sync.Mutex
	data map[string][]byte
	err  error
}

func newMapStore() *mapStore {
	return &mapStore{data: map[string][]byte{}}
}

func (m *mapStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.data[key], nil
}

func (m *mapStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	return nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

// MockCategoryRepository is a mock implementation of CategoryRepository.
type MockCategoryRepository struct {
	mock.Mock
}

func (m *MockCategoryRepository) List(ctx context.Context) ([]model.BoardCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BoardCategory), args.Error(1)
}

func (m *MockCategoryRepository) FindBySlug(ctx context.Context, slug string) (*model.BoardCategory, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BoardCategory), args.Error(1)
}

func (m *MockCategoryRepository) Upsert(ctx context.Context, c *model.BoardCategory) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}
