package identity

import (
	"sync"
	"time"

	"github.com/go-faster/errors"

	"github.com/lacomanda/storefront/internal/kvstore"
)

// TokenKey is the persistence key for the staff auth token.
const TokenKey = "auth_token"

// Token is an auth token with an optional expiry instant.
type Token struct {
	Value     string     `json:"token"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// Valid reports whether the token exists and has not expired.
func (t Token) Valid(now time.Time) bool {
	if t.Value == "" {
		return false
	}
	return t.ExpiresAt == nil || now.Before(*t.ExpiresAt)
}

// Tokens persists the staff auth token.
type Tokens struct {
	store kvstore.Store
	now   func() time.Time

	mu  sync.Mutex
	tok Token
}

// NewTokens restores any persisted token.
func NewTokens(store kvstore.Store) (*Tokens, error) {
	t := &Tokens{store: store, now: time.Now}
	tok, _, err := kvstore.GetJSON[Token](store, TokenKey)
	if err != nil {
		return nil, errors.Wrap(err, "restore auth token")
	}
	t.tok = tok
	return t, nil
}

// Set stores a token. A zero ttl means the token never expires locally.
func (t *Tokens) Set(value string, ttl time.Duration) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	tok := Token{Value: value}
	if ttl > 0 {
		exp := t.now().Add(ttl)
		tok.ExpiresAt = &exp
	}
	if err := kvstore.SetJSON(t.store, TokenKey, tok); err != nil {
		return errors.Wrap(err, "persist auth token")
	}
	t.tok = tok
	return nil
}

// Current returns the token value when a valid token exists, otherwise an
// empty string. Expired tokens behave as absent; they are not proactively
// removed from the store.
func (t *Tokens) Current() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tok.Valid(t.now()) {
		return ""
	}
	return t.tok.Value
}

// Clear forgets the token.
func (t *Tokens) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tok = Token{}
	return t.store.Remove(TokenKey)
}
