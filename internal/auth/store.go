package auth

import (
	"context"
	"time"

	"github.com/mdmuhtasimfuadfahim/hyperauth/internal/models"
)

// CredentialStore persists token records. Lookups of an absent hash return a
// not_found error; I/O failures return store_unavailable.
type CredentialStore interface {
	Create(ctx context.Context, record *models.TokenRecord) error
	FindByHash(ctx context.Context, tokenHash string) (*models.TokenRecord, error)
	// BlacklistIfActive atomically flips blacklisted from false to true and
	// reports whether this call performed the flip.
	BlacklistIfActive(ctx context.Context, id string) (bool, error)
	// WithinTx runs fn against a store bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx CredentialStore) error) error
}

// Identity is the result of a successful verification.
type Identity struct {
	UserID    string
	TokenID   string
	Purpose   string
	ExpiresAt time.Time
}

// TTLSource resolves the lifetime of a token purpose.
type TTLSource interface {
	TTL(purpose string) (time.Duration, bool)
}
