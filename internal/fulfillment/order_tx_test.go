package fulfillment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryOrders rejoue la sémantique des deux tables : ancre LWT par session,
// lignes de commande écrites d'un bloc. failNextWrite simule un batch
// interrompu après la pose de l'ancre.
type memoryOrders struct {
	mu            sync.Mutex
	anchors       map[string]models.Order
	rows          map[gocql.UUID]*OrderPlan
	failNextWrite error
	writes        int
}

func newMemoryOrders() *memoryOrders {
	return &memoryOrders{
		anchors: map[string]models.Order{},
		rows:    map[gocql.UUID]*OrderPlan{},
	}
}

func (m *memoryOrders) anchorSession(_ context.Context, o models.Order) (bool, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if prev, ok := m.anchors[o.StripeSessionID]; ok {
		return false, prev.CreatedAt, nil
	}
	m.anchors[o.StripeSessionID] = o
	return true, time.Time{}, nil
}

func (m *memoryOrders) orderExists(orderID gocql.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[orderID]
	return ok, nil
}

func (m *memoryOrders) writeRows(_ context.Context, plan *OrderPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNextWrite != nil {
		err := m.failNextWrite
		m.failNextWrite = nil
		return err
	}
	m.writes++
	m.rows[plan.Order.ID] = plan
	return nil
}

func swapOrders(t *testing.T, s orderStore) {
	t.Helper()
	prev := orderRows
	orderRows = s
	t.Cleanup(func() { orderRows = prev })
}

// testPlan reconstruit un plan complet à partir de la session, comme le ferait
// chaque livraison du webhook
func testPlan(sessionID string) *OrderPlan {
	return BuildOrderPlan(PlanInput{
		SessionID:   sessionID,
		UserID:      "user-1",
		AmountTotal: 1999,
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       1999,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
			PrintVariantID:   "pv-1",
			CartItemID:       "ci-1",
		}},
	})
}

func TestSaveOrderPlanAtMostOnce(t *testing.T) {
	store := newMemoryOrders()
	swapOrders(t, store)

	require.NoError(t, SaveOrderPlan(context.Background(), testPlan("cs_once_1")))

	// Chaque relivraison reconstruit son propre plan et doit conclure
	// sans rien réécrire
	for i := 0; i < 3; i++ {
		err := SaveOrderPlan(context.Background(), testPlan("cs_once_1"))
		assert.ErrorIs(t, err, ErrAlreadyFulfilled)
	}

	assert.Equal(t, 1, store.writes)
	assert.Len(t, store.rows, 1)
}

func TestSaveOrderPlanRecoversInterruptedBatch(t *testing.T) {
	// Première livraison : l'ancre passe mais le batch échoue. Sans
	// réparation, la session resterait payée sans aucune ligne de commande.
	store := newMemoryOrders()
	swapOrders(t, store)
	store.failNextWrite = errors.New("write timeout")

	first := testPlan("cs_retry_1")
	require.Error(t, SaveOrderPlan(context.Background(), first))
	assert.Empty(t, store.rows)
	assert.Len(t, store.anchors, 1)

	// Le pré-check teste la commande, pas l'ancre : une ancre orpheline ne
	// doit pas court-circuiter le retry
	exists, err := OrderExistsForSession("cs_retry_1")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deuxième livraison : ancre déjà posée, commande absente → le batch
	// est ré-exécuté avec les mêmes identifiants et l'horodatage de l'ancre
	require.NoError(t, SaveOrderPlan(context.Background(), testPlan("cs_retry_1")))

	saved, ok := store.rows[OrderIDForSession("cs_retry_1")]
	require.True(t, ok)
	assert.Equal(t, first.Order.ID, saved.Order.ID)
	assert.Equal(t, store.anchors["cs_retry_1"].CreatedAt, saved.Order.CreatedAt)
	for _, item := range saved.Items {
		assert.Equal(t, saved.Order.CreatedAt, item.CreatedAt)
	}

	exists, err = OrderExistsForSession("cs_retry_1")
	require.NoError(t, err)
	assert.True(t, exists)

	// Troisième livraison : tout est en place, plus aucune écriture
	assert.ErrorIs(t, SaveOrderPlan(context.Background(), testPlan("cs_retry_1")), ErrAlreadyFulfilled)
	assert.Equal(t, 1, store.writes)
}

func TestSaveOrderPlanKeepsSessionsIndependent(t *testing.T) {
	store := newMemoryOrders()
	swapOrders(t, store)

	// Deux sessions distinctes ne se voient jamais
	require.NoError(t, SaveOrderPlan(context.Background(), testPlan("cs_a")))
	require.NoError(t, SaveOrderPlan(context.Background(), testPlan("cs_b")))
	assert.Len(t, store.rows, 2)
	assert.NotEqual(t, OrderIDForSession("cs_a"), OrderIDForSession("cs_b"))
}
