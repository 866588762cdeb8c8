package storage

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/careeros/careeros/internal/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore persists accounts in Google Cloud Firestore, one document
// per subject. Tokens are already ciphertext before they reach this layer,
// so documents never contain plaintext credentials.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ Store = (*FirestoreStore)(nil)

// NewFirestoreStore creates a Firestore-backed store
func NewFirestoreStore(ctx context.Context, projectID, database, collection string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}
	if database == "" {
		database = firestore.DefaultDatabaseID
	}
	if collection == "" {
		collection = "google_accounts"
	}

	client, err := firestore.NewClientWithDatabase(ctx, projectID, database)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	log.LogInfoWithFields("storage", "Firestore store initialized", map[string]any{
		"project":    projectID,
		"database":   database,
		"collection": collection,
	})

	return &FirestoreStore{client: client, collection: collection}, nil
}

// GetAccount returns the record for subject
func (s *FirestoreStore) GetAccount(ctx context.Context, subject string) (*Account, error) {
	doc, err := s.client.Collection(s.collection).Doc(subject).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", subject, err)
	}

	var account Account
	if err := doc.DataTo(&account); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", subject, err)
	}
	return &account, nil
}

// UpsertAccount creates or merge-updates the record for account.Subject.
// Read and write are not transactional; two concurrent refreshes for the
// same subject are last-writer-wins, same as the in-memory store.
func (s *FirestoreStore) UpsertAccount(ctx context.Context, account *Account) error {
	existing, err := s.GetAccount(ctx, account.Subject)
	if err != nil && !errors.Is(err, ErrAccountNotFound) {
		return err
	}

	copied := *account
	merged := merge(existing, &copied)

	if _, err := s.client.Collection(s.collection).Doc(merged.Subject).Set(ctx, merged); err != nil {
		return fmt.Errorf("upserting account %s: %w", merged.Subject, err)
	}

	log.LogDebugWithFields("storage", "Account upserted", map[string]any{
		"subject": merged.Subject,
	})
	return nil
}

// Close releases the underlying Firestore client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
