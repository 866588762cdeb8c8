package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	t.Setenv("GOOGLE_CLIENT_ID", "client-id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "client-secret")
	t.Setenv("GOOGLE_REDIRECT_URI", "http://localhost:8787/auth/google/callback")
	t.Setenv("COOKIE_SECRET", "cookie-secret")
	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 32)))
	t.Setenv("FRONTEND_URL", "")
	t.Setenv("STORAGE", "")
	t.Setenv("CAREER_OS_ENV", "")
}

func TestFromEnvDefaults(t *testing.T) {
	setValidEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "client-id", cfg.GoogleClientID)
	assert.Equal(t, "http://localhost:5173", cfg.FrontendURL)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Len(t, cfg.EncryptionKey, 32)
}

func TestFromEnvReportsAllMissing(t *testing.T) {
	setValidEnv(t)
	t.Setenv("GOOGLE_CLIENT_ID", "")
	t.Setenv("GOOGLE_CLIENT_SECRET", "")
	t.Setenv("COOKIE_SECRET", "")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_ID")
	assert.Contains(t, err.Error(), "GOOGLE_CLIENT_SECRET")
	assert.Contains(t, err.Error(), "COOKIE_SECRET")
}

func TestFromEnvRejectsBadEncryptionKey(t *testing.T) {
	setValidEnv(t)

	t.Setenv("ENCRYPTION_KEY", "not-base64!!!")
	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("ENCRYPTION_KEY", base64.StdEncoding.EncodeToString(make([]byte, 16)))
	_, err = FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestFromEnvFirestoreRequiresProject(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORAGE", "firestore")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FIRESTORE_PROJECT")

	t.Setenv("FIRESTORE_PROJECT", "my-project")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, StorageFirestore, cfg.Storage)
}

func TestFromEnvRejectsUnknownStorage(t *testing.T) {
	setValidEnv(t)
	t.Setenv("STORAGE", "mysql")

	_, err := FromEnv()
	assert.Error(t, err)
}

func TestFromEnvTrimsFrontendURL(t *testing.T) {
	setValidEnv(t)
	t.Setenv("FRONTEND_URL", "https://app.example.com/")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
}

func TestFromEnvDevCookieFallback(t *testing.T) {
	setValidEnv(t)
	t.Setenv("COOKIE_SECRET", "")
	t.Setenv("CAREER_OS_ENV", "development")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.NotEmpty(t, cfg.CookieSecret)
}

func TestSecretRedaction(t *testing.T) {
	secret := Secret("super-sensitive")
	assert.Equal(t, "***", secret.String())
	assert.Equal(t, "***", fmt.Sprintf("%v", secret))

	data, err := json.Marshal(secret)
	require.NoError(t, err)
	assert.Equal(t, `"***"`, string(data))

	empty := Secret("")
	assert.Equal(t, "", empty.String())
}
