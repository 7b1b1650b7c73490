// Package authn resolves bearer credentials to caller identities.
package authn

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrMissingCredential means no usable Authorization header was sent.
	ErrMissingCredential = errors.New("missing authorization header")
	// ErrInvalidCredential means the token is unknown, revoked or inactive.
	ErrInvalidCredential = errors.New("invalid authentication token")
)

// Identity is the verified caller for one request. It is never cached
// across requests.
type Identity struct {
	UserID string
	Email  string
}

type Authenticator struct {
	db *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Authenticator { return &Authenticator{db: db} }

// Authenticate validates the Authorization header and returns the caller.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (Identity, error) {
	token, ok := parseBearerToken(authorization)
	if !ok {
		return Identity{}, ErrMissingCredential
	}
	var out Identity
	err := a.db.QueryRow(ctx, `
SELECT user_id, email
FROM hb_user_credentials
WHERE token_hash=$1
  AND revoked_at IS NULL
  AND status='ACTIVE'
`, HashToken(token)).Scan(&out.UserID, &out.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrInvalidCredential
		}
		return Identity{}, err
	}
	return out, nil
}

func parseBearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
