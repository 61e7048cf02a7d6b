package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/constants"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/utils"
)

// IssuedToken is a freshly minted bearer token.
type IssuedToken struct {
	Token     string
	RecordID  string
	ExpiresAt time.Time
}

// Issuer mints bearer tokens backed by a persisted record.
type Issuer struct {
	codec *Codec
	store CredentialStore
	ttls  TTLSource
	opts  options
}

// NewIssuer creates an issuer.
func NewIssuer(codec *Codec, store CredentialStore, ttls TTLSource, opts ...Option) *Issuer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Issuer{codec: codec, store: store, ttls: ttls, opts: o}
}

// WithStore returns a copy that persists into store, typically a
// transaction-bound store handed out by CredentialStore.WithinTx.
func (i *Issuer) WithStore(store CredentialStore) *Issuer {
	cp := *i
	cp.store = store
	return &cp
}

// Issue mints a token of the given purpose. The token is returned only after
// its record has been persisted.
func (i *Issuer) Issue(ctx context.Context, userID, purpose string) (*IssuedToken, error) {
	ttl, ok := i.ttls.TTL(purpose)
	if !ok {
		return nil, utils.NewValidationError("purpose", fmt.Sprintf("unknown token purpose %q", purpose))
	}

	secret, err := GenerateRandomBytes(constants.TokenSecretBytes)
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}
	digest := sha256.Sum256([]byte(hex.EncodeToString(secret)))
	tokenHash := hex.EncodeToString(digest[:])

	now := i.opts.now().UTC()
	record := &models.TokenRecord{
		ID:        uuid.NewString(),
		TokenHash: tokenHash,
		UserID:    userID,
		Purpose:   purpose,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	if err := i.store.Create(ctx, record); err != nil {
		return nil, err
	}

	token, err := i.codec.Encode(Claims{
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: tokenHash,
		ExpiresAt: record.ExpiresAt,
	})
	if err != nil {
		return nil, utils.NewInternalServerError(err)
	}

	i.opts.metrics.TokenIssued(purpose)
	log.Debug().
		Str("user_id", userID).
		Str("purpose", purpose).
		Str("token_id", record.ID).
		Time("expires_at", record.ExpiresAt).
		Msg("Token issued")

	return &IssuedToken{Token: token, RecordID: record.ID, ExpiresAt: record.ExpiresAt}, nil
}
