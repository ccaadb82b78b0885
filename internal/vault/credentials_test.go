package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/venator/internal/models"
)

type memCredentialStorage struct {
	rows map[string]*models.StoredCredential
}

func newMemCredentialStorage() *memCredentialStorage {
	return &memCredentialStorage{rows: make(map[string]*models.StoredCredential)}
}

func (m *memCredentialStorage) GetCredential(ctx context.Context, source string) (*models.StoredCredential, error) {
	return m.rows[source], nil
}

func (m *memCredentialStorage) StoreCredential(ctx context.Context, cred *models.StoredCredential) error {
	m.rows[cred.Source] = cred
	return nil
}

func (m *memCredentialStorage) DeleteCredential(ctx context.Context, source string) error {
	delete(m.rows, source)
	return nil
}

func testStore(t *testing.T) (*CredentialStore, *memCredentialStorage) {
	t.Helper()
	key, err := GenerateKey()
	require.NoError(t, err)
	v, err := NewFromBase64(key)
	require.NoError(t, err)
	storage := newMemCredentialStorage()
	return NewCredentialStore(v, storage), storage
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	store, backing := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Credential{
		Source:   "linkedin",
		Username: "analyst@example.com",
		Password: "hunter2",
	}))

	loaded, err := store.Load(ctx, "linkedin")
	require.NoError(t, err)
	assert.Equal(t, "analyst@example.com", loaded.Username)
	assert.Equal(t, "hunter2", loaded.Password)

	// The stored row never contains the plaintext password.
	row := backing.rows["linkedin"]
	require.NotNil(t, row)
	assert.NotContains(t, string(row.Ciphertext), "hunter2")
	assert.NotZero(t, row.UpdatedAt)
}

func TestCredentialStoreSaveRequiresSource(t *testing.T) {
	store, _ := testStore(t)

	require.Error(t, store.Save(context.Background(), &models.Credential{Username: "u"}))
	require.Error(t, store.Save(context.Background(), nil))
}

func TestCredentialStoreMissingCredential(t *testing.T) {
	store, _ := testStore(t)

	_, err := store.Load(context.Background(), "careerportal")
	require.ErrorIs(t, err, models.ErrNoCredential)
}

func TestCredentialStoreTamperedCiphertext(t *testing.T) {
	store, backing := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Credential{
		Source:   "websearch",
		Username: "key-holder",
		APIKey:   "serper-key",
	}))

	row := backing.rows["websearch"]
	row.Ciphertext[len(row.Ciphertext)-1] ^= 0xff

	_, err := store.Load(ctx, "websearch")
	require.ErrorIs(t, err, models.ErrCrypto)
}

func TestCredentialStoreDelete(t *testing.T) {
	store, _ := testStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &models.Credential{Source: "linkedin", Username: "u", Password: "p"}))
	require.NoError(t, store.Delete(ctx, "linkedin"))

	_, err := store.Load(ctx, "linkedin")
	require.ErrorIs(t, err, models.ErrNoCredential)
}
