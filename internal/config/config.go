package config

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/careeros/careeros/internal/envutil"
	"github.com/careeros/careeros/internal/log"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// StorageKind selects the account store backend
type StorageKind string

const (
	StorageMemory    StorageKind = "memory"
	StorageFirestore StorageKind = "firestore"
)

// Config is the environment-driven server configuration
type Config struct {
	GoogleClientID     string
	GoogleClientSecret Secret
	GoogleRedirectURI  string

	// FrontendURL is the allowed browser origin, also the redirect target
	// after a completed login
	FrontendURL string

	CookieSecret Secret
	// EncryptionKey is the decoded 32-byte AES key for token storage
	EncryptionKey []byte

	Storage             StorageKind
	FirestoreProject    string
	FirestoreDatabase   string
	FirestoreCollection string
}

const devCookieSecret = "fallback-secret-for-dev-only-change-me"

// FromEnv loads and validates configuration from the environment. All
// missing or malformed variables are reported in a single error so a broken
// deployment fails fast with the full picture.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GoogleClientID:      os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret:  Secret(os.Getenv("GOOGLE_CLIENT_SECRET")),
		GoogleRedirectURI:   os.Getenv("GOOGLE_REDIRECT_URI"),
		FrontendURL:         os.Getenv("FRONTEND_URL"),
		CookieSecret:        Secret(os.Getenv("COOKIE_SECRET")),
		Storage:             StorageKind(os.Getenv("STORAGE")),
		FirestoreProject:    os.Getenv("FIRESTORE_PROJECT"),
		FirestoreDatabase:   os.Getenv("FIRESTORE_DATABASE"),
		FirestoreCollection: os.Getenv("FIRESTORE_COLLECTION"),
	}

	var missing []string
	if cfg.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if cfg.GoogleClientSecret == "" {
		missing = append(missing, "GOOGLE_CLIENT_SECRET")
	}
	if cfg.GoogleRedirectURI == "" {
		missing = append(missing, "GOOGLE_REDIRECT_URI")
	}

	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:5173"
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")

	if cfg.CookieSecret == "" {
		if envutil.IsDev() {
			log.LogWarn("COOKIE_SECRET not set, using development fallback")
			cfg.CookieSecret = devCookieSecret
		} else {
			missing = append(missing, "COOKIE_SECRET")
		}
	}

	keyStr := os.Getenv("ENCRYPTION_KEY")
	if keyStr == "" {
		missing = append(missing, "ENCRYPTION_KEY")
	} else {
		key, err := base64.StdEncoding.DecodeString(keyStr)
		if err != nil {
			return nil, fmt.Errorf("ENCRYPTION_KEY is not valid base64: %w", err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("ENCRYPTION_KEY must decode to 32 bytes, got %d", len(key))
		}
		cfg.EncryptionKey = key
	}

	if cfg.Storage == "" {
		cfg.Storage = StorageMemory
	}
	switch cfg.Storage {
	case StorageMemory:
	case StorageFirestore:
		if cfg.FirestoreProject == "" {
			missing = append(missing, "FIRESTORE_PROJECT")
		}
	default:
		return nil, fmt.Errorf("STORAGE must be %q or %q, got %q", StorageMemory, StorageFirestore, cfg.Storage)
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}
