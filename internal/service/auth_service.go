// Package service implements the account and token flows on top of the
// stores, the token issuer and verifier, and the notifier.
package service

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/auth"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/metrics"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/notify"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// UserStore is the part of the user collection the authentication flows
// depend on. Absent users are reported as not_found errors.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	MarkEmailVerified(ctx context.Context, id string) error
}

// AuthService coordinates registration, login and the token lifecycles.
type AuthService struct {
	users    UserStore
	tokens   auth.CredentialStore
	hasher   *auth.PasswordHasher
	issuer   *auth.Issuer
	verifier *auth.Verifier
	notifier notify.Notifier
	metrics  *metrics.Metrics

	dummyOnce sync.Once
	dummyHash string

	pending sync.WaitGroup
}

// NewAuthService creates a new AuthService. A nil notifier logs
// notifications instead of delivering them.
func NewAuthService(
	users UserStore,
	tokens auth.CredentialStore,
	hasher *auth.PasswordHasher,
	issuer *auth.Issuer,
	verifier *auth.Verifier,
	notifier notify.Notifier,
	m *metrics.Metrics,
) *AuthService {
	if notifier == nil {
		notifier = notify.NewLogNotifier()
	}
	return &AuthService{
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		verifier: verifier,
		notifier: notifier,
		metrics:  m,
	}
}

// Register creates a new account and returns it without the password digest.
func (s *AuthService) Register(ctx context.Context, reg *models.UserRegistration) (*models.User, error) {
	email := utils.NormalizeEmail(reg.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		s.record(constants.LogEventRegister, "", false, string(utils.KindDuplicateEmail))
		return nil, utils.NewDuplicateEmailError()
	} else if !utils.IsNotFoundError(err) {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(reg.Password)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	user := models.NewUser(email, strings.TrimSpace(reg.Name))
	user.PasswordHash = passwordHash

	// A concurrent registration of the same address loses on the unique index.
	if err := s.users.Create(ctx, user); err != nil {
		if utils.IsDuplicateError(err) {
			s.record(constants.LogEventRegister, "", false, string(utils.KindDuplicateEmail))
		}
		return nil, err
	}

	s.record(constants.LogEventRegister, user.ID, true, "")
	return user.Sanitize(), nil
}

// Login checks the credentials and issues an access and refresh token pair.
// Unknown emails and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, creds *models.UserCredentials) (*models.TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(creds.Email))
	if err != nil {
		if utils.IsNotFoundError(err) {
			s.burnHash(creds.Password)
			s.record(constants.LogEventLogin, "", false, constants.ReasonUnknownEmail)
			return nil, utils.NewInvalidCredentialsError(constants.ReasonUnknownEmail)
		}
		return nil, err
	}

	match, err := s.hasher.Verify(creds.Password, user.PasswordHash)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Stored password digest is unreadable")
		return nil, err
	}
	if !match {
		s.record(constants.LogEventLogin, user.ID, false, constants.ReasonBadPassword)
		return nil, utils.NewInvalidCredentialsError(constants.ReasonBadPassword)
	}

	pair, err := s.issuePair(ctx, s.issuer, user.ID)
	if err != nil {
		return nil, err
	}

	s.record(constants.LogEventLogin, user.ID, true, "")
	return pair, nil
}

// Logout revokes a refresh token. Revoking a token that is already revoked
// succeeds.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	identity, err := s.verifier.Verify(ctx, refreshToken, constants.PurposeRefresh)
	if err != nil {
		if utils.IsKind(err, utils.KindRevoked) {
			s.record(constants.LogEventLogout, "", true, constants.ReasonRevoked)
			return nil
		}
		s.record(constants.LogEventLogout, "", false, utils.Reason(err))
		return err
	}

	flipped, err := s.tokens.BlacklistIfActive(ctx, identity.TokenID)
	if err != nil {
		return err
	}
	if flipped {
		s.metrics.TokenRevoked(constants.PurposeRefresh)
	}

	s.record(constants.LogEventLogout, identity.UserID, true, "")
	return nil
}

// RefreshTokens consumes a refresh token and returns a new pair. The old
// record is blacklisted and the new records are created in one transaction;
// of several callers presenting the same token only one succeeds, the others
// fail as revoked.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	identity, err := s.verifier.Verify(ctx, refreshToken, constants.PurposeRefresh)
	if err != nil {
		s.metrics.TokenRotated(utils.Reason(err))
		s.record(constants.LogEventRefresh, "", false, utils.Reason(err))
		return nil, err
	}

	var pair *models.TokenPair
	err = s.tokens.WithinTx(ctx, func(tx auth.CredentialStore) error {
		flipped, err := tx.BlacklistIfActive(ctx, identity.TokenID)
		if err != nil {
			return err
		}
		if !flipped {
			return utils.NewRevokedTokenError()
		}

		pair, err = s.issuePair(ctx, s.issuer.WithStore(tx), identity.UserID)
		return err
	})
	if err != nil {
		s.metrics.TokenRotated(utils.Reason(err))
		s.record(constants.LogEventRefresh, identity.UserID, false, utils.Reason(err))
		return nil, err
	}

	s.metrics.TokenRotated("rotated")
	s.metrics.TokenRevoked(constants.PurposeRefresh)
	s.record(constants.LogEventRefresh, identity.UserID, true, "")
	return pair, nil
}

// ForgotPassword issues a reset token and hands it to the notifier. It
// succeeds for unknown addresses so callers cannot probe for accounts, and
// issuing and delivery run in the background so registered addresses do not
// answer measurably slower. Wait blocks until that work is done.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		if utils.IsNotFoundError(err) {
			s.record(constants.LogEventForgotPassword, "", false, constants.ReasonUnknownEmail)
			return nil
		}
		return err
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		bgCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.NotificationTimeout)
		defer cancel()
		s.sendResetToken(bgCtx, user)
	}()
	return nil
}

func (s *AuthService) sendResetToken(ctx context.Context, user *models.User) {
	token, err := s.issuer.Issue(ctx, user.ID, constants.PurposeResetPassword)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue password reset token")
		s.record(constants.LogEventForgotPassword, user.ID, false, utils.Reason(err))
		return
	}

	if err := s.deliver(ctx, constants.NotificationResetPassword, user, token); err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to deliver password reset token")
		s.record(constants.LogEventForgotPassword, user.ID, false, constants.ReasonDeliveryFailed)
		return
	}

	s.record(constants.LogEventForgotPassword, user.ID, true, "")
}

// Wait blocks until background notifications finish or ctx is done.
func (s *AuthService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResetPassword consumes a reset token and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	identity, err := s.consume(ctx, constants.LogEventResetPassword, token, constants.PurposeResetPassword)
	if err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return utils.NewInternalServerError(err)
	}

	if err := s.users.UpdatePassword(ctx, identity.UserID, passwordHash); err != nil {
		log.Error().Err(err).Str("user_id", identity.UserID).Msg("Reset token consumed but password update failed")
		return err
	}

	s.record(constants.LogEventResetPassword, identity.UserID, true, "")
	return nil
}

// SendVerificationEmail issues a verification token for the user. Users
// whose address is already verified get nothing.
func (s *AuthService) SendVerificationEmail(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	if user.Verified {
		log.Debug().Str("user_id", userID).Msg("Email already verified")
		return nil
	}

	token, err := s.issuer.Issue(ctx, user.ID, constants.PurposeVerifyEmail)
	if err != nil {
		return err
	}

	if err := s.deliver(ctx, constants.NotificationVerifyEmail, user, token); err != nil {
		s.record(constants.LogEventSendVerification, user.ID, false, err.Error())
		return utils.NewInternalServerError(err)
	}

	s.record(constants.LogEventSendVerification, user.ID, true, "")
	return nil
}

// VerifyEmail consumes a verification token and marks the address verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	identity, err := s.consume(ctx, constants.LogEventVerifyEmail, token, constants.PurposeVerifyEmail)
	if err != nil {
		return err
	}

	if err := s.users.MarkEmailVerified(ctx, identity.UserID); err != nil {
		return err
	}

	s.record(constants.LogEventVerifyEmail, identity.UserID, true, "")
	return nil
}

// consume verifies a single-use token and blacklists it. Losing the
// blacklist race to a concurrent caller counts as revoked.
func (s *AuthService) consume(ctx context.Context, event, token, purpose string) (*auth.Identity, error) {
	identity, err := s.verifier.Verify(ctx, token, purpose)
	if err != nil {
		s.record(event, "", false, utils.Reason(err))
		return nil, err
	}

	flipped, err := s.tokens.BlacklistIfActive(ctx, identity.TokenID)
	if err != nil {
		return nil, err
	}
	if !flipped {
		s.record(event, identity.UserID, false, constants.ReasonRevoked)
		return nil, utils.NewRevokedTokenError()
	}

	s.metrics.TokenRevoked(purpose)
	return identity, nil
}

func (s *AuthService) issuePair(ctx context.Context, issuer *auth.Issuer, userID string) (*models.TokenPair, error) {
	access, err := issuer.Issue(ctx, userID, constants.PurposeAccess)
	if err != nil {
		return nil, err
	}

	refresh, err := issuer.Issue(ctx, userID, constants.PurposeRefresh)
	if err != nil {
		return nil, err
	}

	return &models.TokenPair{
		AccessToken:      access.Token,
		RefreshToken:     refresh.Token,
		AccessExpiresAt:  access.ExpiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, nil
}

func (s *AuthService) deliver(ctx context.Context, kind string, user *models.User, token *auth.IssuedToken) error {
	return s.notifier.Notify(ctx, notify.Notification{
		Kind:      kind,
		UserID:    user.ID,
		Email:     user.Email,
		Token:     token.Token,
		ExpiresAt: token.ExpiresAt,
	})
}

// burnHash spends the time of one password verification so that unknown
// addresses answer as slowly as wrong passwords.
func (s *AuthService) burnHash(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("hyperauth-timing-equalizer")
	})
	if s.dummyHash != "" {
		_, _ = s.hasher.Verify(password, s.dummyHash)
	}
}

func (s *AuthService) record(event, userID string, success bool, reason string) {
	utils.LogAuth(event, userID, success, reason)
	s.metrics.AuthEvent(event, success)
}
