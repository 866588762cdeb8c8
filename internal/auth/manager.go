package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/careeros/careeros/internal/crypto"
	"github.com/careeros/careeros/internal/googleauth"
	"github.com/careeros/careeros/internal/log"
	"github.com/careeros/careeros/internal/storage"
	"golang.org/x/oauth2"
)

// Manager owns the credential lifecycle: it encrypts token grants into the
// account store and rehydrates usable token sources on demand, persisting
// any rotation before the rotated token is handed to a caller.
type Manager struct {
	store         storage.Store
	encryptor     *crypto.Encryptor
	authenticator googleauth.Authenticator
}

// NewManager creates a session manager
func NewManager(store storage.Store, encryptor *crypto.Encryptor, authenticator googleauth.Authenticator) *Manager {
	return &Manager{
		store:         store,
		encryptor:     encryptor,
		authenticator: authenticator,
	}
}

// SaveGrant encrypts a fresh token grant and upserts it for the identity.
// The store's merge semantics preserve a previously issued refresh token
// when the new grant does not carry one.
func (m *Manager) SaveGrant(ctx context.Context, info *googleauth.UserInfo, token *oauth2.Token) error {
	account := &storage.Account{
		Subject:      info.Subject,
		Email:        info.Email,
		LastSyncedAt: time.Now(),
	}

	encrypted, err := m.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypting access token: %w", err)
	}
	account.AccessToken = encrypted

	if token.RefreshToken != "" {
		encrypted, err := m.encryptor.Encrypt(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("encrypting refresh token: %w", err)
		}
		account.RefreshToken = encrypted
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.Expiry = &expiry
	}

	if scope, ok := token.Extra("scope").(string); ok {
		account.Scopes = scope
	}

	if err := m.store.UpsertAccount(ctx, account); err != nil {
		return fmt.Errorf("storing account: %w", err)
	}

	log.LogInfoWithFields("auth", "Credential grant stored", map[string]any{
		"subject":     info.Subject,
		"has_refresh": token.RefreshToken != "",
		"expiry":      token.Expiry,
	})
	return nil
}

// Resolve rehydrates a live token source for subject. The returned source
// refreshes transparently on first use when the stored token is expired and
// writes rotated tokens back to the store before returning them, so a
// concurrent request observes the refreshed token rather than a stale one.
//
// Returns storage.ErrAccountNotFound when no record exists; decryption
// failures (key rotation or corrupted data) surface as errors the caller
// must map to a forced re-login, never as usable credentials.
func (m *Manager) Resolve(ctx context.Context, subject string) (oauth2.TokenSource, error) {
	account, err := m.store.GetAccount(ctx, subject)
	if err != nil {
		return nil, err
	}

	accessToken, err := m.encryptor.Decrypt(account.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("decrypting access token for %s: %w", subject, err)
	}

	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	if account.RefreshToken != "" {
		refreshToken, err := m.encryptor.Decrypt(account.RefreshToken)
		if err != nil {
			return nil, fmt.Errorf("decrypting refresh token for %s: %w", subject, err)
		}
		token.RefreshToken = refreshToken
	}
	if account.Expiry != nil {
		token.Expiry = *account.Expiry
	} else {
		// Unknown expiry is treated as expired so the source refreshes
		// before first use instead of sending a possibly dead token
		token.Expiry = time.Now().Add(-time.Minute)
	}

	return &persistingTokenSource{
		ctx:     ctx,
		manager: m,
		subject: subject,
		last:    token.AccessToken,
		source:  m.authenticator.TokenSource(ctx, token),
	}, nil
}

// persistingTokenSource wraps the provider token source and upserts rotated
// token material into the store before the rotated token is returned.
type persistingTokenSource struct {
	ctx     context.Context
	manager *Manager
	subject string
	last    string
	source  oauth2.TokenSource
}

var _ oauth2.TokenSource = (*persistingTokenSource)(nil)

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	if token.AccessToken != s.last {
		if err := s.manager.saveRotated(s.ctx, s.subject, token); err != nil {
			return nil, err
		}
		s.last = token.AccessToken

		log.LogInfoWithFields("auth", "Rotated token persisted", map[string]any{
			"subject": s.subject,
			"expiry":  token.Expiry,
		})
	}
	return token, nil
}

func (m *Manager) saveRotated(ctx context.Context, subject string, token *oauth2.Token) error {
	account := &storage.Account{
		Subject:      subject,
		LastSyncedAt: time.Now(),
	}

	encrypted, err := m.encryptor.Encrypt(token.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypting rotated access token: %w", err)
	}
	account.AccessToken = encrypted

	// A rotation event may omit a new refresh token; the store merge keeps
	// the existing one in that case
	if token.RefreshToken != "" {
		encrypted, err := m.encryptor.Encrypt(token.RefreshToken)
		if err != nil {
			return fmt.Errorf("encrypting rotated refresh token: %w", err)
		}
		account.RefreshToken = encrypted
	}

	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		account.Expiry = &expiry
	}

	if err := m.store.UpsertAccount(ctx, account); err != nil {
		return fmt.Errorf("storing rotated token: %w", err)
	}
	return nil
}
