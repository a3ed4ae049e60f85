package fulfillment

import (
	"sync"
	"testing"

	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
)

func TestIsTopupSession(t *testing.T) {
	assert.True(t, IsTopupSession(&stripe.CheckoutSession{
		Metadata: map[string]string{"type": "topup"},
	}))
	assert.False(t, IsTopupSession(&stripe.CheckoutSession{
		Metadata: map[string]string{"type": "order"},
	}))
	assert.False(t, IsTopupSession(&stripe.CheckoutSession{}))
}

func TestTopupUnits(t *testing.T) {
	// 3 packs à 10 exports l'unité → 30
	items := []*stripe.LineItem{
		lineItem(3, 2997, map[string]string{"exports_per_unit": "10"}, nil),
	}
	assert.Equal(t, 30, TopupUnits(items, models.QuotaKindExport))

	// Le mauvais type d'unités ne compte pas
	assert.Equal(t, 0, TopupUnits(items, models.QuotaKindEdit))
}

func TestTopupUnitsProductMetadataFallback(t *testing.T) {
	items := []*stripe.LineItem{
		lineItem(2, 998, nil, map[string]string{"edits_per_unit": "5"}),
	}
	assert.Equal(t, 10, TopupUnits(items, models.QuotaKindEdit))
}

func TestTopupUnitsIgnoresMalformedMetadata(t *testing.T) {
	items := []*stripe.LineItem{
		lineItem(3, 100, map[string]string{"exports_per_unit": "beaucoup"}, nil),
		lineItem(3, 100, map[string]string{"exports_per_unit": "-2"}, nil),
		lineItem(3, 100, nil, nil),
		nil,
	}
	assert.Equal(t, 0, TopupUnits(items, models.QuotaKindExport))
}

func TestTopupUnitsSumsAcrossLines(t *testing.T) {
	items := []*stripe.LineItem{
		lineItem(1, 999, map[string]string{"exports_per_unit": "10"}, nil),
		lineItem(2, 598, map[string]string{"exports_per_unit": "3"}, nil),
	}
	assert.Equal(t, 16, TopupUnits(items, models.QuotaKindExport))
}

func TestTopupKey(t *testing.T) {
	// Clé synthétique distincte de l'ID d'événement brut : le même webhook
	// rejoué et le flux top-up ne se marchent jamais dessus
	assert.Equal(t, "topup:cs_test_42", TopupKey("cs_test_42"))
	assert.NotEqual(t, "cs_test_42", TopupKey("cs_test_42"))
}

// memoryTopups reproduit l'insert conditionnel par entitlement_id
type memoryTopups struct {
	mu   sync.Mutex
	rows map[gocql.UUID]models.DesignEntitlement
}

func newMemoryTopups() *memoryTopups {
	return &memoryTopups{rows: map[gocql.UUID]models.DesignEntitlement{}}
}

func (m *memoryTopups) insertEntitlement(ent models.DesignEntitlement) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[ent.EntitlementID]; ok {
		return false, nil
	}
	m.rows[ent.EntitlementID] = ent
	return true, nil
}

func swapTopups(t *testing.T, s topupStore) {
	t.Helper()
	prev := topups
	topups = s
	t.Cleanup(func() { topups = prev })
}

func topupSession(sessionID string) *stripe.CheckoutSession {
	return &stripe.CheckoutSession{
		ID:            sessionID,
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: map[string]string{
			"type":      "topup",
			"kind":      models.QuotaKindExport,
			"userId":    "user-1",
			"productId": testProductID,
		},
	}
}

func TestProcessTopupSessionGrantsOnce(t *testing.T) {
	store := newMemoryTopups()
	swapTopups(t, store)

	sess := topupSession("cs_topup_1")
	items := []*stripe.LineItem{
		lineItem(3, 2997, map[string]string{"exports_per_unit": "10"}, nil),
	}

	require.NoError(t, ProcessTopupSession(sess, items))
	require.Len(t, store.rows, 1)

	ent := store.rows[TopupEntitlementID("cs_topup_1")]
	assert.Equal(t, "user-1", ent.OwnerID)
	assert.Equal(t, 30, ent.ExportQuota)
	assert.Zero(t, ent.EditQuota)
	assert.Equal(t, models.EntitlementSourceTopup, ent.Source)
	assert.Nil(t, ent.OrderID)
	assert.Nil(t, ent.OrderItemID)

	// Webhook rejoué : l'insertion IF NOT EXISTS perd, le quota ne double pas
	require.NoError(t, ProcessTopupSession(sess, items))
	assert.Len(t, store.rows, 1)
	assert.Equal(t, 30, store.rows[TopupEntitlementID("cs_topup_1")].ExportQuota)
}

func TestProcessTopupSessionValidation(t *testing.T) {
	store := newMemoryTopups()
	swapTopups(t, store)

	items := []*stripe.LineItem{
		lineItem(1, 999, map[string]string{"exports_per_unit": "10"}, nil),
	}

	// Session non taguée top-up
	notTopup := topupSession("cs_topup_2")
	notTopup.Metadata["type"] = "order"
	require.NoError(t, ProcessTopupSession(notTopup, items))

	// Kind inconnu
	badKind := topupSession("cs_topup_3")
	badKind.Metadata["kind"] = "impression"
	require.NoError(t, ProcessTopupSession(badKind, items))

	// Paiement absent
	unpaid := topupSession("cs_topup_4")
	unpaid.PaymentStatus = stripe.CheckoutSessionPaymentStatusUnpaid
	require.NoError(t, ProcessTopupSession(unpaid, items))

	// Aucune unité calculable
	require.NoError(t, ProcessTopupSession(topupSession("cs_topup_5"), []*stripe.LineItem{
		lineItem(1, 999, nil, nil),
	}))

	// Aucun propriétaire identifiable → erreur, jamais de quota anonyme
	orphan := topupSession("cs_topup_6")
	delete(orphan.Metadata, "userId")
	assert.Error(t, ProcessTopupSession(orphan, items))

	assert.Empty(t, store.rows)
}
