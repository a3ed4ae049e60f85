package fulfillment

import (
	"context"
	"sync"
	"testing"
	"time"

	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownloadExpiryGuestWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(48*time.Hour), DownloadExpiry(true, now))
}

func TestDownloadExpiryUserWindow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, now.Add(30*24*time.Hour), DownloadExpiry(false, now))
}

func TestDownloadExpiryEnvOverrides(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Setenv("GUEST_DOWNLOAD_TTL_HOURS", "6")
	t.Setenv("USER_DOWNLOAD_TTL_DAYS", "7")
	assert.Equal(t, now.Add(6*time.Hour), DownloadExpiry(true, now))
	assert.Equal(t, now.Add(7*24*time.Hour), DownloadExpiry(false, now))

	// Valeurs invalides : retour aux fenêtres par défaut
	t.Setenv("GUEST_DOWNLOAD_TTL_HOURS", "-1")
	t.Setenv("USER_DOWNLOAD_TTL_DAYS", "zéro")
	assert.Equal(t, now.Add(48*time.Hour), DownloadExpiry(true, now))
	assert.Equal(t, now.Add(30*24*time.Hour), DownloadExpiry(false, now))
}

// memoryDownloads simule le stockage des tokens : dédoublonnage par
// (commande, asset), URLs signées déterministes
type memoryDownloads struct {
	mu     sync.Mutex
	assets map[gocql.UUID][]string
	tokens map[string]models.DownloadToken
}

func newMemoryDownloads() *memoryDownloads {
	return &memoryDownloads{
		assets: map[gocql.UUID][]string{},
		tokens: map[string]models.DownloadToken{},
	}
}

func (m *memoryDownloads) assetKeys(productID gocql.UUID) ([]string, error) {
	return m.assets[productID], nil
}

func (m *memoryDownloads) signURL(_ context.Context, assetKey string, _ time.Duration) (string, error) {
	return "https://minio.local/signed/" + assetKey, nil
}

func (m *memoryDownloads) insertToken(_ context.Context, token models.DownloadToken) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := token.OrderID.String() + "/" + token.AssetKey
	if _, ok := m.tokens[key]; ok {
		return false, nil
	}
	m.tokens[key] = token
	return true, nil
}

func swapDownloads(t *testing.T, s downloadStore) {
	t.Helper()
	prev := downloads
	downloads = s
	t.Cleanup(func() { downloads = prev })
}

func TestIssueDownloadTokensSkipSafe(t *testing.T) {
	productID := parseUUID(testProductID)
	store := newMemoryDownloads()
	store.assets[productID] = []string{"files/mug.zip", "files/mug.pdf"}
	swapDownloads(t, store)

	order := models.Order{
		ID:              OrderIDForSession("cs_dl_1"),
		UserID:          "user-1",
		StripeSessionID: "cs_dl_1",
	}
	items := []models.OrderItem{
		{OrderID: order.ID, ItemID: gocql.UUID(uuid.New()), ProductID: productID, Kind: models.KindDigital},
		{OrderID: order.ID, ItemID: gocql.UUID(uuid.New()), ProductID: productID, Kind: models.KindPrint},
	}

	issued, err := IssueDownloadTokens(context.Background(), order, items)
	require.NoError(t, err)
	// Un token par asset, pour la ligne DIGITAL uniquement
	require.Len(t, issued, 2)
	for _, tok := range issued {
		assert.Equal(t, "user-1", tok.OwnerID)
		assert.Contains(t, tok.URL, "https://minio.local/signed/files/")
		assert.Equal(t, order.ID, tok.OrderID)
	}

	// Webhook rejoué : rien ne se ré-émet, le stock de tokens ne bouge pas
	again, err := IssueDownloadTokens(context.Background(), order, items)
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, store.tokens, 2)
}

func TestIssueDownloadTokensPrintOnlyOrder(t *testing.T) {
	store := newMemoryDownloads()
	swapDownloads(t, store)

	order := models.Order{ID: OrderIDForSession("cs_dl_2"), GuestID: "guest-1"}
	items := []models.OrderItem{
		{OrderID: order.ID, ItemID: gocql.UUID(uuid.New()), ProductID: parseUUID(testProductID), Kind: models.KindPrint},
	}

	issued, err := IssueDownloadTokens(context.Background(), order, items)
	require.NoError(t, err)
	assert.Empty(t, issued)
	assert.Empty(t, store.tokens)
}
