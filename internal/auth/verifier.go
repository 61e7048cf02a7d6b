package auth

import (
	"context"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// Verifier checks bearer tokens. Signature, purpose and expiry are checked
// from the claims alone; the store is consulted only for tokens that pass
// those, to detect deletion and revocation.
type Verifier struct {
	codec *Codec
	store CredentialStore
	opts  options
}

// NewVerifier creates a verifier.
func NewVerifier(codec *Codec, store CredentialStore, opts ...Option) *Verifier {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Verifier{codec: codec, store: store, opts: o}
}

// Verify returns the identity behind a token of the expected purpose.
// Failures are unauthenticated, expired or revoked; store errors pass
// through as store_unavailable.
func (v *Verifier) Verify(ctx context.Context, bearer, expectedPurpose string) (*Identity, error) {
	claims, err := v.codec.Decode(bearer)
	if err != nil {
		return nil, v.fail(expectedPurpose, utils.NewUnauthenticatedError(constants.ReasonForged))
	}

	if claims.Purpose != expectedPurpose {
		return nil, v.fail(expectedPurpose, utils.NewUnauthenticatedError(constants.ReasonWrongPurpose))
	}

	if v.opts.now().After(claims.ExpiresAt) {
		return nil, v.fail(expectedPurpose, utils.NewExpiredTokenError())
	}

	record, err := v.store.FindByHash(ctx, claims.TokenHash)
	if err != nil {
		if utils.IsNotFoundError(err) {
			return nil, v.fail(expectedPurpose, utils.NewUnauthenticatedError(constants.ReasonRecordMissing))
		}
		return nil, err
	}

	if record.UserID != claims.UserID || record.Purpose != claims.Purpose {
		return nil, v.fail(expectedPurpose, utils.NewUnauthenticatedError(constants.ReasonRecordMismatch))
	}

	if record.Blacklisted {
		return nil, v.fail(expectedPurpose, utils.NewRevokedTokenError())
	}

	v.opts.metrics.TokenChecked(expectedPurpose, "ok")
	return &Identity{
		UserID:    claims.UserID,
		TokenID:   record.ID,
		Purpose:   record.Purpose,
		ExpiresAt: claims.ExpiresAt,
	}, nil
}

// Peek returns the user id of a token whose signature verifies, ignoring
// purpose, expiry and revocation. It never touches the store.
func (v *Verifier) Peek(bearer string) (string, bool) {
	claims, err := v.codec.Decode(bearer)
	if err != nil {
		return "", false
	}
	return claims.UserID, true
}

func (v *Verifier) fail(purpose string, err error) error {
	v.opts.metrics.TokenChecked(purpose, utils.Reason(err))
	return err
}
