package storage

import (
	"context"
	"errors"
	"time"
)

// ErrAccountNotFound is returned when no account exists for a subject
var ErrAccountNotFound = errors.New("account not found")

// Account is the stored credential record for one Google identity.
// AccessToken and RefreshToken are AES-GCM envelopes, never plaintext;
// decryption happens only at the moment a credential is about to be used.
type Account struct {
	// Subject is the stable Google subject id, unique and immutable
	Subject string `firestore:"subject" json:"subject"`
	Email   string `firestore:"email" json:"email"`
	// AccessToken is the encrypted current bearer token
	AccessToken string `firestore:"access_token" json:"accessToken"`
	// RefreshToken is the encrypted refresh token; empty if the provider
	// never granted one
	RefreshToken string `firestore:"refresh_token,omitempty" json:"refreshToken,omitempty"`
	// Expiry is the access token expiry; nil means unknown, treat as expired
	Expiry       *time.Time `firestore:"expiry,omitempty" json:"expiry,omitempty"`
	Scopes       string     `firestore:"scopes" json:"scopes"`
	LastSyncedAt time.Time  `firestore:"last_synced_at" json:"lastSyncedAt"`
}

// Store persists credential records keyed by subject. The in-memory
// implementation is the dev/test backend; Firestore backs production.
type Store interface {
	// GetAccount returns the record for subject, or ErrAccountNotFound
	GetAccount(ctx context.Context, subject string) (*Account, error)

	// UpsertAccount creates or merge-updates the record for account.Subject.
	// On update the access token, expiry, and LastSyncedAt are overwritten;
	// the refresh token is only overwritten when the incoming record carries
	// one (providers often issue refresh tokens exactly once), and email and
	// scopes are preserved when the incoming record omits them.
	UpsertAccount(ctx context.Context, account *Account) error
}

// merge applies the upsert rules to an existing record. incoming is modified
// in place and returned.
func merge(existing, incoming *Account) *Account {
	if existing == nil {
		return incoming
	}
	if incoming.RefreshToken == "" {
		incoming.RefreshToken = existing.RefreshToken
	}
	if incoming.Email == "" {
		incoming.Email = existing.Email
	}
	if incoming.Scopes == "" {
		incoming.Scopes = existing.Scopes
	}
	return incoming
}
