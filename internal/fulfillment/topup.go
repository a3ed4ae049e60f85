package fulfillment

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
)

// IsTopupSession : la session est taguée achat de quota, pas commande produit
func IsTopupSession(sess *stripe.CheckoutSession) bool {
	return sess.Metadata["type"] == "topup"
}

// TopupEntitlementID dérive l'identifiant de la ligne top-up d'une session :
// un top-up rejoué retombe toujours sur la même ligne
func TopupEntitlementID(sessionID string) gocql.UUID {
	return gocql.UUID(uuid.NewSHA1(sessionIDNamespace, []byte(TopupKey(sessionID))))
}

// TopupUnits calcule le total d'unités achetées : pour chaque ligne, la
// valeur par unité lue dans les métadonnées du prix (fallback produit),
// multipliée par la quantité. Transformation pure.
func TopupUnits(items []*stripe.LineItem, kind string) int {
	metaKey := "exports_per_unit"
	if kind == models.QuotaKindEdit {
		metaKey = "edits_per_unit"
	}

	total := 0
	for _, item := range items {
		if item == nil {
			continue
		}
		meta := mergedMetadata(item)
		perUnit, err := strconv.Atoi(meta[metaKey])
		if err != nil || perUnit <= 0 {
			continue
		}
		total += perUnit * int(item.Quantity)
	}
	return total
}

// topupStore : l'unique écriture durable du flux top-up. insertEntitlement
// doit avoir une sémantique skip-on-duplicate par entitlement_id.
type topupStore interface {
	insertEntitlement(ent models.DesignEntitlement) (bool, error)
}

var topups topupStore = scyllaTopups{}

type scyllaTopups struct{}

func (scyllaTopups) insertEntitlement(ent models.DesignEntitlement) (bool, error) {
	query, err := database.QueryInsertTopupEntitlement()
	if err != nil {
		return false, fmt.Errorf("connexion orders: %w", err)
	}

	prev := make(map[string]interface{})
	return query.Bind(
		ent.OwnerID, ent.EntitlementID, ent.ProductID, nil, nil, ent.Source, nil, nil,
		ent.ExportQuota, ent.EditQuota, 0, 0, ent.CreatedAt,
	).MapScanCAS(prev)
}

// ProcessTopupSession : flux sœur du fulfillment complet, plus simple —
// n'accorde que du quota additionnel (aucune commande, aucune ligne).
//
// Validation silencieuse : mauvais tag, kind inconnu, paiement absent ou
// unités ≤ 0 → no-op, jamais une erreur. Un produit mal configuré ne doit
// pas accorder de quota gratuit.
//
// L'insertion de l'entitlement EST le claim : id dérivé de la session,
// IF NOT EXISTS. Si l'insertion échoue, rien n'a été réclamé et le retry
// Stripe retente proprement ; si la ligne existe déjà, le top-up a déjà
// été servi. Pas de marqueur séparé qui pourrait réussir seul et avaler
// le quota payé.
func ProcessTopupSession(sess *stripe.CheckoutSession, items []*stripe.LineItem) error {
	kind := sess.Metadata["kind"]
	if !IsTopupSession(sess) || (kind != models.QuotaKindExport && kind != models.QuotaKindEdit) {
		log.Printf("ℹ️ Session %s ignorée : pas un top-up valide", sess.ID)
		return nil
	}
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Printf("ℹ️ Top-up %s non payé (%s), ignoré", sess.ID, sess.PaymentStatus)
		return nil
	}

	ownerID := sess.Metadata["userId"]
	if ownerID == "" {
		ownerID = sess.Metadata["guestId"]
	}
	if ownerID == "" {
		return fmt.Errorf("top-up %s: aucun propriétaire identifiable", sess.ID)
	}

	units := TopupUnits(items, kind)
	if units <= 0 {
		log.Printf("⚠️ Top-up %s sans unités (métadonnées de prix absentes ?), ignoré", sess.ID)
		return nil
	}

	// Une nouvelle ligne additive, jamais de mutation d'une ligne existante
	ent := models.DesignEntitlement{
		EntitlementID: TopupEntitlementID(sess.ID),
		OwnerID:       ownerID,
		ProductID:     parseUUID(sess.Metadata["productId"]),
		Source:        models.EntitlementSourceTopup,
		CreatedAt:     time.Now(),
	}
	if kind == models.QuotaKindExport {
		ent.ExportQuota = units
	} else {
		ent.EditQuota = units
	}

	applied, err := topups.insertEntitlement(ent)
	if err != nil {
		return fmt.Errorf("insertion entitlement top-up %s: %w", sess.ID, err)
	}
	if !applied {
		log.Printf("🔁 Top-up %s déjà traité, on ignore", sess.ID)
		return nil
	}

	log.Printf("✅ Top-up %s : +%d %s(s) pour %s", sess.ID, units, kind, ownerID)
	return nil
}
