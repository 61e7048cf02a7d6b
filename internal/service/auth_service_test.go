package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/config"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/notify"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// Mock implementations for testing

type MockUserRepository struct {
	mu      sync.Mutex
	users   map[string]*models.User
	byEmail map[string]string
	err     error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.byEmail[user.Email]; ok {
		return utils.NewDuplicateEmailError()
	}
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	user, ok := m.users[id]
	if !ok {
		return nil, utils.NewNotFoundError("User", id)
	}
	cp := *user
	return &cp, nil
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	id, ok := m.byEmail[email]
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, utils.NewNotFoundError("User", email)
	}
	return m.FindByID(ctx, id)
}

func (m *MockUserRepository) Update(ctx context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.users[user.ID]
	if !ok {
		return utils.NewNotFoundError("User", user.ID)
	}
	delete(m.byEmail, old.Email)
	cp := *user
	m.users[user.ID] = &cp
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return utils.NewNotFoundError("User", id)
	}
	user.PasswordHash = passwordHash
	return nil
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return utils.NewNotFoundError("User", id)
	}
	user.Verified = true
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return utils.NewNotFoundError("User", id)
	}
	delete(m.byEmail, user.Email)
	delete(m.users, id)
	return nil
}

// MockTokenRepository keeps records in memory. WithinTx serialises
// transactions and restores a snapshot when the callback fails.
type MockTokenRepository struct {
	mu         sync.Mutex
	txMu       sync.Mutex
	records    map[string]*models.TokenRecord
	createErr  error
	findCalls  int
	revokedFor []string
}

func NewMockTokenRepository() *MockTokenRepository {
	return &MockTokenRepository{records: make(map[string]*models.TokenRecord)}
}

func (m *MockTokenRepository) Create(ctx context.Context, record *models.TokenRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, r := range m.records {
		if r.TokenHash == record.TokenHash {
			return utils.NewDuplicateError("Token", "token_hash", "")
		}
	}
	cp := *record
	m.records[record.ID] = &cp
	return nil
}

func (m *MockTokenRepository) FindByHash(ctx context.Context, tokenHash string) (*models.TokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	for _, r := range m.records {
		if r.TokenHash == tokenHash {
			cp := *r
			return &cp, nil
		}
	}
	return nil, utils.NewNotFoundError("Token", "")
}

func (m *MockTokenRepository) BlacklistIfActive(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[id]
	if !ok || r.Blacklisted {
		return false, nil
	}
	r.Blacklisted = true
	return true, nil
}

func (m *MockTokenRepository) WithinTx(ctx context.Context, fn func(tx auth.CredentialStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[string]models.TokenRecord, len(m.records))
	for id, r := range m.records {
		snapshot[id] = *r
	}
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.records = make(map[string]*models.TokenRecord, len(snapshot))
		for id, r := range snapshot {
			r := r
			m.records[id] = &r
		}
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *MockTokenRepository) RevokeAllForUser(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revokedFor = append(m.revokedFor, userID)
	var n int64
	for _, r := range m.records {
		if r.UserID == userID && !r.Blacklisted {
			r.Blacklisted = true
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.ExpiresAt.Before(before) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *MockTokenRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// MockNotifier captures notifications. A non-nil block holds Notify until
// it is closed.
type MockNotifier struct {
	mu    sync.Mutex
	sent  []notify.Notification
	err   error
	block chan struct{}
}

func (m *MockNotifier) Notify(ctx context.Context, n notify.Notification) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return m.err
}

func (m *MockNotifier) last(t *testing.T) notify.Notification {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent)
	return m.sent[len(m.sent)-1]
}

const testSecret = "0123456789abcdef0123456789abcdef"

type authFixture struct {
	svc      *AuthService
	users    *MockUserRepository
	tokens   *MockTokenRepository
	notifier *MockNotifier
	codec    *auth.Codec
	hasher   *auth.PasswordHasher
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:    NewMockUserRepository(),
		tokens:   NewMockTokenRepository(),
		notifier: &MockNotifier{},
		codec:    auth.NewCodec(testSecret, "hyperauth-test"),
		hasher: auth.NewPasswordHasher(&auth.PasswordConfig{
			Memory:      8 * 1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		}),
		now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	ttls := &config.TokenSettings{
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		ResetPasswordTTL: time.Hour,
		VerifyEmailTTL:   24 * time.Hour,
	}
	m := metrics.NewMetrics(prometheus.NewRegistry())
	clock := auth.WithClock(func() time.Time { return f.now })
	issuer := auth.NewIssuer(f.codec, f.tokens, ttls, clock, auth.WithMetrics(m))
	verifier := auth.NewVerifier(f.codec, f.tokens, clock, auth.WithMetrics(m))

	f.svc = NewAuthService(f.users, f.tokens, f.hasher, issuer, verifier, f.notifier, m)
	return f
}

func (f *authFixture) register(t *testing.T, email, password string) *models.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), &models.UserRegistration{Email: email, Password: password, Name: "Ann"})
	require.NoError(t, err)
	return user
}

// forgot requests a reset token and waits for it to be handed off.
func (f *authFixture) forgot(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.svc.ForgotPassword(context.Background(), email))
	require.NoError(t, f.svc.Wait(context.Background()))
}

func (f *authFixture) login(t *testing.T, email, password string) *models.TokenPair {
	t.Helper()
	pair, err := f.svc.Login(context.Background(), &models.UserCredentials{Email: email, Password: password})
	require.NoError(t, err)
	return pair
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)

	user := f.register(t, "  A@B.com ", "abc12345")

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "a@b.com", user.Email)
	assert.Equal(t, "Ann", user.Name)
	assert.Equal(t, constants.RoleUser, user.Role)
	assert.False(t, user.Verified)
	assert.Empty(t, user.PasswordHash)

	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "abc12345", stored.PasswordHash)
	assert.Contains(t, stored.PasswordHash, "$argon2id$")

	// Registration alone sends nothing
	assert.Empty(t, f.notifier.sent)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")

	_, err := f.svc.Register(context.Background(), &models.UserRegistration{Email: "A@b.com", Password: "other123", Name: "Bob"})
	require.Error(t, err)
	assert.Equal(t, utils.KindDuplicateEmail, utils.KindOf(err))
}

func TestAuthService_Register_StoreUnavailable(t *testing.T) {
	f := newAuthFixture(t)
	f.users.err = utils.NewStoreUnavailableError("find user", errors.New("connection refused"))

	_, err := f.svc.Register(context.Background(), &models.UserRegistration{Email: "a@b.com", Password: "abc12345", Name: "Ann"})
	assert.Equal(t, utils.KindStoreUnavailable, utils.KindOf(err))
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "a@b.com", "abc12345")

	pair := f.login(t, "a@b.com", "abc12345")
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)
	assert.Equal(t, f.now.Add(15*time.Minute), pair.AccessExpiresAt)
	assert.Equal(t, f.now.Add(7*24*time.Hour), pair.RefreshExpiresAt)

	access, err := f.codec.Decode(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, constants.PurposeAccess, access.Purpose)
	assert.Equal(t, user.ID, access.UserID)

	refresh, err := f.codec.Decode(pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, constants.PurposeRefresh, refresh.Purpose)

	assert.Equal(t, 2, f.tokens.count())
}

func TestAuthService_Login_InvalidCredentials(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")

	tests := []struct {
		name     string
		email    string
		password string
		reason   string
	}{
		{"wrong password", "a@b.com", "wrong", constants.ReasonBadPassword},
		{"unknown email", "nobody@b.com", "abc12345", constants.ReasonUnknownEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, err := f.svc.Login(context.Background(), &models.UserCredentials{Email: tt.email, Password: tt.password})
			assert.Nil(t, pair)
			require.Error(t, err)
			assert.Equal(t, utils.KindInvalidCredentials, utils.KindOf(err))
			assert.Equal(t, tt.reason, utils.Reason(err))
			assert.Equal(t, 401, utils.StatusCode(err))
		})
	}

	assert.Equal(t, 0, f.tokens.count())
}

func TestAuthService_Login_MalformedHash(t *testing.T) {
	f := newAuthFixture(t)
	user := models.NewUser("a@b.com", "Ann")
	user.PasswordHash = "not-a-digest"
	require.NoError(t, f.users.Create(context.Background(), user))

	_, err := f.svc.Login(context.Background(), &models.UserCredentials{Email: "a@b.com", Password: "abc12345"})
	assert.Equal(t, utils.KindMalformedHash, utils.KindOf(err))
}

func TestAuthService_RefreshTokens(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	pair := f.login(t, "a@b.com", "abc12345")

	f.now = f.now.Add(time.Minute)
	next, err := f.svc.RefreshTokens(context.Background(), pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.Equal(t, f.now.Add(7*24*time.Hour), next.RefreshExpiresAt)

	// Replay of the consumed token
	_, err = f.svc.RefreshTokens(context.Background(), pair.RefreshToken)
	assert.Equal(t, utils.KindRevoked, utils.KindOf(err))

	// The rotated token keeps working
	_, err = f.svc.RefreshTokens(context.Background(), next.RefreshToken)
	assert.NoError(t, err)
}

func TestAuthService_RefreshTokens_Concurrent(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	pair := f.login(t, "a@b.com", "abc12345")

	const callers = 12
	var wg sync.WaitGroup
	results := make(chan error, callers)
	start := make(chan struct{})

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.svc.RefreshTokens(context.Background(), pair.RefreshToken)
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, utils.KindRevoked, utils.KindOf(err))
	}
	assert.Equal(t, 1, succeeded)
	// login pair plus exactly one rotated pair
	assert.Equal(t, 4, f.tokens.count())
}

func TestAuthService_RefreshTokens_FailedMintRollsBack(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	pair := f.login(t, "a@b.com", "abc12345")

	f.tokens.createErr = utils.NewStoreUnavailableError("create token", errors.New("disk full"))
	_, err := f.svc.RefreshTokens(context.Background(), pair.RefreshToken)
	assert.Equal(t, utils.KindStoreUnavailable, utils.KindOf(err))

	f.tokens.createErr = nil
	_, err = f.svc.RefreshTokens(context.Background(), pair.RefreshToken)
	assert.NoError(t, err, "the refresh token must survive a failed rotation")
}

func TestAuthService_RefreshTokens_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	pair := f.login(t, "a@b.com", "abc12345")

	_, err := f.svc.RefreshTokens(context.Background(), pair.AccessToken)
	assert.Equal(t, utils.KindUnauthenticated, utils.KindOf(err))
	assert.Equal(t, constants.ReasonWrongPurpose, utils.Reason(err))

	_, err = f.svc.RefreshTokens(context.Background(), "garbage")
	assert.Equal(t, utils.KindUnauthenticated, utils.KindOf(err))
	assert.Equal(t, constants.ReasonForged, utils.Reason(err))
}

func TestAuthService_RefreshTokens_ExpiryBoundary(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	first := f.login(t, "a@b.com", "abc12345")
	second := f.login(t, "a@b.com", "abc12345")

	f.now = first.RefreshExpiresAt.Add(-time.Second)
	_, err := f.svc.RefreshTokens(context.Background(), first.RefreshToken)
	assert.NoError(t, err)

	f.now = second.RefreshExpiresAt.Add(time.Second)
	calls := f.tokens.findCalls
	_, err = f.svc.RefreshTokens(context.Background(), second.RefreshToken)
	assert.Equal(t, utils.KindExpired, utils.KindOf(err))
	assert.Equal(t, calls, f.tokens.findCalls, "expired tokens are rejected without a lookup")
}

func TestAuthService_Logout(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	pair := f.login(t, "a@b.com", "abc12345")

	require.NoError(t, f.svc.Logout(context.Background(), pair.RefreshToken))
	// Idempotent
	require.NoError(t, f.svc.Logout(context.Background(), pair.RefreshToken))

	_, err := f.svc.RefreshTokens(context.Background(), pair.RefreshToken)
	assert.Equal(t, utils.KindRevoked, utils.KindOf(err))

	err = f.svc.Logout(context.Background(), pair.AccessToken)
	assert.Equal(t, utils.KindUnauthenticated, utils.KindOf(err))
}

func TestAuthService_ForgotAndResetPassword(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "a@b.com", "abc12345")

	f.forgot(t, "A@B.com")
	sent := f.notifier.last(t)
	assert.Equal(t, constants.NotificationResetPassword, sent.Kind)
	assert.Equal(t, user.ID, sent.UserID)
	assert.Equal(t, "a@b.com", sent.Email)
	assert.Equal(t, f.now.Add(time.Hour), sent.ExpiresAt)

	require.NoError(t, f.svc.ResetPassword(context.Background(), sent.Token, "newpass99"))

	_, err := f.svc.Login(context.Background(), &models.UserCredentials{Email: "a@b.com", Password: "abc12345"})
	assert.Equal(t, utils.KindInvalidCredentials, utils.KindOf(err))
	f.login(t, "a@b.com", "newpass99")

	err = f.svc.ResetPassword(context.Background(), sent.Token, "another99")
	assert.Equal(t, utils.KindRevoked, utils.KindOf(err))
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	f.forgot(t, "nobody@b.com")
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 0, f.tokens.count())
}

func TestAuthService_ForgotPassword_NotifierFailureHidden(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	f.notifier.err = errors.New("smtp down")

	f.forgot(t, "a@b.com")
	assert.Len(t, f.notifier.sent, 1)
}

func TestAuthService_ForgotPassword_IssueFailureHidden(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	f.tokens.createErr = utils.NewStoreUnavailableError("create token", errors.New("connection refused"))

	f.forgot(t, "a@b.com")
	assert.Empty(t, f.notifier.sent)
	assert.Equal(t, 0, f.tokens.count())
}

func TestAuthService_ForgotPassword_DeliversInBackground(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	release := make(chan struct{})
	f.notifier.block = release

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "a@b.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.svc.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, f.svc.Wait(context.Background()))
	assert.Equal(t, constants.NotificationResetPassword, f.notifier.last(t).Kind)
}

func TestAuthService_ResetPassword_Rejections(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	pair := f.login(t, "a@b.com", "abc12345")

	err := f.svc.ResetPassword(context.Background(), pair.AccessToken, "newpass99")
	assert.Equal(t, utils.KindUnauthenticated, utils.KindOf(err))

	f.forgot(t, "a@b.com")
	token := f.notifier.last(t).Token

	f.now = f.now.Add(time.Hour + time.Second)
	err = f.svc.ResetPassword(context.Background(), token, "newpass99")
	assert.Equal(t, utils.KindExpired, utils.KindOf(err))
}

func TestAuthService_ResetPassword_ConcurrentSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, "a@b.com", "abc12345")
	f.forgot(t, "a@b.com")
	token := f.notifier.last(t).Token

	const callers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f.svc.ResetPassword(context.Background(), token, "newpass99"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			} else {
				assert.Equal(t, utils.KindRevoked, utils.KindOf(err))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
}

func TestAuthService_VerifyEmail(t *testing.T) {
	f := newAuthFixture(t)
	user := f.register(t, "a@b.com", "abc12345")

	require.NoError(t, f.svc.SendVerificationEmail(context.Background(), user.ID))
	sent := f.notifier.last(t)
	assert.Equal(t, constants.NotificationVerifyEmail, sent.Kind)

	// A verification token cannot reset a password
	err := f.svc.ResetPassword(context.Background(), sent.Token, "newpass99")
	assert.Equal(t, utils.KindUnauthenticated, utils.KindOf(err))

	require.NoError(t, f.svc.VerifyEmail(context.Background(), sent.Token))
	stored, err := f.users.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.True(t, stored.Verified)

	err = f.svc.VerifyEmail(context.Background(), sent.Token)
	assert.Equal(t, utils.KindRevoked, utils.KindOf(err))

	// Already verified users get no new mail
	require.NoError(t, f.svc.SendVerificationEmail(context.Background(), user.ID))
	assert.Len(t, f.notifier.sent, 1)
}

func TestAuthService_SendVerificationEmail_Errors(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.SendVerificationEmail(context.Background(), "missing")
	assert.True(t, utils.IsNotFoundError(err))

	user := f.register(t, "a@b.com", "abc12345")
	f.notifier.err = errors.New("mail api down")
	err = f.svc.SendVerificationEmail(context.Background(), user.ID)
	assert.Equal(t, utils.KindInternal, utils.KindOf(err))
}

func TestNewAuthService_DefaultNotifier(t *testing.T) {
	svc := NewAuthService(nil, nil, nil, nil, nil, nil, nil)
	_, ok := svc.notifier.(*notify.LogNotifier)
	assert.True(t, ok)
}
