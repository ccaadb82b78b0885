package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venator/internal/common"
	"github.com/ternarybob/venator/internal/interfaces"
	"github.com/ternarybob/venator/internal/models"
)

func testManager(t *testing.T) interfaces.StorageManager {
	t.Helper()

	manager, err := NewManager(arbor.NewLogger(), &common.StorageConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { manager.Close() })
	return manager
}

func testJobRecord(id, source string, scrapedAt time.Time) *models.Record {
	return &models.Record{
		ExternalID:   id,
		Kind:         models.RecordKindJob,
		Title:        "Consultant",
		Organization: "McKinsey & Company",
		Location:     "New York, NY",
		Source:       source,
		ScrapedAt:    scrapedAt,
	}
}

func TestCredentialStorageRoundTrip(t *testing.T) {
	manager := testManager(t)
	store := manager.Credentials()
	ctx := context.Background()

	cred := &models.StoredCredential{
		Source:     "linkedin",
		Ciphertext: []byte("opaque-bytes"),
	}
	require.NoError(t, store.StoreCredential(ctx, cred))

	loaded, err := store.GetCredential(ctx, "linkedin")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, []byte("opaque-bytes"), loaded.Ciphertext)
	assert.NotZero(t, loaded.UpdatedAt)
}

func TestCredentialStorageMissingIsNotError(t *testing.T) {
	manager := testManager(t)

	loaded, err := manager.Credentials().GetCredential(context.Background(), "careerportal")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestCredentialStorageDelete(t *testing.T) {
	manager := testManager(t)
	store := manager.Credentials()
	ctx := context.Background()

	require.NoError(t, store.StoreCredential(ctx, &models.StoredCredential{
		Source:     "websearch",
		Ciphertext: []byte("x"),
	}))
	require.NoError(t, store.DeleteCredential(ctx, "websearch"))

	loaded, err := store.GetCredential(ctx, "websearch")
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting an absent credential is not an error.
	require.NoError(t, store.DeleteCredential(ctx, "websearch"))
}

func TestTokenStorageRoundTrip(t *testing.T) {
	manager := testManager(t)
	store := manager.Tokens()
	ctx := context.Background()

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.SaveTokenPair(ctx, &models.TokenPair{
		Provider:     "graph",
		AccessToken:  []byte("enc-access"),
		RefreshToken: []byte("enc-refresh"),
		Expiry:       expiry,
	}))

	pair, err := store.GetTokenPair(ctx, "graph")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, []byte("enc-access"), pair.AccessToken)
	assert.True(t, pair.Expiry.Equal(expiry))

	missing, err := store.GetTokenPair(ctx, "strava")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTokenStorageReplacesPair(t *testing.T) {
	manager := testManager(t)
	store := manager.Tokens()
	ctx := context.Background()

	require.NoError(t, store.SaveTokenPair(ctx, &models.TokenPair{
		Provider:    "strava",
		AccessToken: []byte("old"),
		Expiry:      time.Now().Add(time.Minute),
	}))
	require.NoError(t, store.SaveTokenPair(ctx, &models.TokenPair{
		Provider:    "strava",
		AccessToken: []byte("new"),
		Expiry:      time.Now().Add(time.Hour),
	}))

	pair, err := store.GetTokenPair(ctx, "strava")
	require.NoError(t, err)
	require.NotNil(t, pair)
	assert.Equal(t, []byte("new"), pair.AccessToken)
}

func TestRecordUpsertIsIdempotent(t *testing.T) {
	manager := testManager(t)
	store := manager.Records()
	ctx := context.Background()

	record := testJobRecord("linkedin_101", "linkedin", time.Now())
	require.NoError(t, store.UpsertRecord(ctx, record))
	record.Title = "Senior Consultant"
	require.NoError(t, store.UpsertRecord(ctx, record))

	loaded, err := store.GetRecord(ctx, "linkedin_101")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Senior Consultant", loaded.Title)

	recent, err := store.ListRecentRecords(ctx, models.RecordKindJob, nil, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestRecordUpsertRequiresExternalID(t *testing.T) {
	manager := testManager(t)

	err := manager.Records().UpsertRecord(context.Background(), &models.Record{Kind: models.RecordKindJob})
	require.Error(t, err)
}

func TestListRecentRecordsOrdersAndExcludes(t *testing.T) {
	manager := testManager(t)
	store := manager.Records()
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.UpsertRecord(ctx, testJobRecord(id, "linkedin", base.Add(time.Duration(i)*time.Minute))))
	}

	person := testJobRecord("someone", "linkedin", time.Now())
	person.Kind = models.RecordKindPerson
	require.NoError(t, store.UpsertRecord(ctx, person))

	recent, err := store.ListRecentRecords(ctx, models.RecordKindJob, []string{"mid"}, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "new", recent[0].ExternalID)
	assert.Equal(t, "old", recent[1].ExternalID)
}

func TestPruneSyntheticRemovesOnlyStalePlaceholders(t *testing.T) {
	manager := testManager(t)
	store := manager.Records()
	ctx := context.Background()

	cutoff := time.Now().Add(-24 * time.Hour)

	staleSynthetic := testJobRecord("linkedin_fallback_1", models.SyntheticSource("linkedin"), cutoff.Add(-time.Hour))
	freshSynthetic := testJobRecord("linkedin_fallback_2", models.SyntheticSource("linkedin"), time.Now())
	staleReal := testJobRecord("linkedin_900", "linkedin", cutoff.Add(-time.Hour))
	for _, r := range []*models.Record{staleSynthetic, freshSynthetic, staleReal} {
		require.NoError(t, store.UpsertRecord(ctx, r))
	}

	deleted, err := store.PruneSynthetic(ctx, cutoff.Unix())
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	gone, err := store.GetRecord(ctx, "linkedin_fallback_1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := store.GetRecord(ctx, "linkedin_900")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}
