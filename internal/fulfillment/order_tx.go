package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
)

// ErrAlreadyFulfilled : la session a déjà produit une commande complète.
// Traité comme un succès silencieux par l'appelant, jamais comme une erreur.
var ErrAlreadyFulfilled = errors.New("session déjà traitée")

// Durée maximale de la construction : assez pour N lignes d'écritures,
// pas pour des appels réseau (il n'y en a aucun dans ce chemin)
const constructionTimeout = 15 * time.Second

// orderStore : les écritures durables de la construction. anchorSession doit
// être un test-and-set atomique qui rend l'horodatage de l'ancre existante
// quand elle a déjà été posée ; writeRows doit être rejouable pour un même
// plan (les ids de lignes sont dérivés de la session, voir plan.go).
type orderStore interface {
	anchorSession(ctx context.Context, o models.Order) (applied bool, anchoredAt time.Time, err error)
	orderExists(orderID gocql.UUID) (bool, error)
	writeRows(ctx context.Context, plan *OrderPlan) error
}

var orderRows orderStore = scyllaOrders{}

// OrderExistsForSession : pré-check d'existence bon marché avant d'ouvrir la
// construction. Teste la ligne orders elle-même, pas l'ancre : une ancre
// orpheline (batch interrompu) doit laisser passer le retry pour réparation.
func OrderExistsForSession(sessionID string) (bool, error) {
	return orderRows.orderExists(OrderIDForSession(sessionID))
}

// SaveOrderPlan applique un OrderPlan de façon at-most-once.
//
// L'insertion LWT de l'ancre orders_by_session est le point de
// linéarisation : sous livraisons concurrentes du même événement, un seul
// appelant la gagne. Mais retrouver l'ancre ne suffit pas à conclure : si la
// ligne orders manque, une livraison précédente a été interrompue entre
// l'ancre et le batch, et le batch est ré-exécuté — les ids et horodatages
// étant dérivés de la session et de l'ancre, il réécrit exactement les mêmes
// lignes au lieu d'en dupliquer. Un échec du batch est propagé : le webhook
// Stripe relivrera l'événement.
func SaveOrderPlan(ctx context.Context, plan *OrderPlan) error {
	ctx, cancel := context.WithTimeout(ctx, constructionTimeout)
	defer cancel()

	o := plan.Order

	applied, anchoredAt, err := orderRows.anchorSession(ctx, o)
	if err != nil {
		return fmt.Errorf("ancre session %s: %w", o.StripeSessionID, err)
	}
	if !applied {
		exists, err := orderRows.orderExists(o.ID)
		if err != nil {
			return fmt.Errorf("vérification commande %v: %w", o.ID, err)
		}
		if exists {
			log.Printf("🔁 Session %s déjà ancrée (commande %v), aucun travail dupliqué", o.StripeSessionID, o.ID)
			return ErrAlreadyFulfilled
		}

		log.Printf("⚠️ Ancre présente mais commande %v absente — batch interrompu, ré-exécution", o.ID)
		if !anchoredAt.IsZero() {
			plan.stamp(anchoredAt)
		}
	}

	if err := orderRows.writeRows(ctx, plan); err != nil {
		return fmt.Errorf("batch commande %v: %w", o.ID, err)
	}

	log.Printf("✅ Commande %v créée (session %s, %d lignes, %d snapshots, %d entitlements)",
		o.ID, o.StripeSessionID, len(plan.Items), len(plan.Snapshots), len(plan.Entitlements))

	return nil
}

type scyllaOrders struct{}

func (scyllaOrders) anchorSession(ctx context.Context, o models.Order) (bool, time.Time, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, time.Time{}, fmt.Errorf("connexion orders: %w", err)
	}

	prev := make(map[string]interface{})
	applied, err := session.Query(
		"INSERT INTO orders_by_session (stripe_session_id, order_id, owner_id, created_at) VALUES (?, ?, ?, ?) IF NOT EXISTS",
		o.StripeSessionID, o.ID, o.OwnerKey(), o.CreatedAt,
	).WithContext(ctx).MapScanCAS(prev)
	if err != nil {
		return false, time.Time{}, err
	}

	anchoredAt, _ := prev["created_at"].(time.Time)
	return applied, anchoredAt, nil
}

func (scyllaOrders) orderExists(orderID gocql.UUID) (bool, error) {
	query, err := database.QueryOrderExists()
	if err != nil {
		return false, err
	}

	var found gocql.UUID
	err = query.Bind(orderID).Scan(&found)
	if err == gocql.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// writeRows pousse toutes les lignes du plan en un seul logged batch
func (scyllaOrders) writeRows(ctx context.Context, plan *OrderPlan) error {
	session, err := database.GetOrdersSession()
	if err != nil {
		return fmt.Errorf("connexion orders: %w", err)
	}

	o := plan.Order
	batch := session.NewBatch(gocql.LoggedBatch).WithContext(ctx)

	batch.Query(
		`INSERT INTO orders (order_id, user_id, guest_id, stripe_session_id, amount_total, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.GuestID, o.StripeSessionID, o.AmountTotal, o.Status, o.CreatedAt,
	)
	batch.Query(
		`INSERT INTO orders_by_owner (owner_id, created_at, order_id, amount_total, status)
		 VALUES (?, ?, ?, ?, ?)`,
		o.OwnerKey(), o.CreatedAt, o.ID, o.AmountTotal, o.Status,
	)

	for _, item := range plan.Items {
		batch.Query(
			`INSERT INTO order_items (order_id, item_id, product_id, kind, unit_amount, quantity, variant_id, purchased_design_id, preview_snapshot, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			item.OrderID, item.ItemID, item.ProductID, item.Kind, item.UnitAmount,
			item.Quantity, item.VariantID, item.PurchasedDesignID, item.PreviewSnapshot, item.CreatedAt,
		)
	}

	for _, snap := range plan.Snapshots {
		batch.Query(
			`INSERT INTO purchased_designs (owner_id, purchased_design_id, product_id, design_id, order_id, order_item_id, style, defs, preview_url, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			snap.OwnerID, snap.PurchasedDesignID, snap.ProductID, snap.DesignID,
			snap.OrderID, snap.OrderItemID, snap.Style, snap.Defs, snap.PreviewURL, snap.CreatedAt,
		)
	}

	for _, ent := range plan.Entitlements {
		batch.Query(
			`INSERT INTO design_entitlements (owner_id, entitlement_id, product_id, design_id, purchased_design_id, source, order_id, order_item_id, export_quota, edit_quota, exports_used, edits_used, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ent.OwnerID, ent.EntitlementID, ent.ProductID, ent.DesignID, ent.PurchasedDesignID,
			ent.Source, ent.OrderID, ent.OrderItemID,
			ent.ExportQuota, ent.EditQuota, ent.ExportsUsed, ent.EditsUsed, ent.CreatedAt,
		)
	}

	return session.ExecuteBatch(batch)
}
