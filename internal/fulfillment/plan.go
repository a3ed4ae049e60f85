package fulfillment

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// Espace de noms des identifiants dérivés de session : toutes les lignes
// d'une commande ont des ids stables, recalculables depuis le session id.
// Un batch rejoué réécrit donc exactement les mêmes lignes au lieu d'en
// créer de nouvelles.
var sessionIDNamespace = uuid.MustParse("c7a2d9e4-5b31-4f8e-9c6a-2e8f1b7d4a50")

// OrderIDForSession dérive l'identifiant de commande d'une session Stripe
func OrderIDForSession(sessionID string) gocql.UUID {
	return sessionUUID(sessionID, "order")
}

func sessionUUID(sessionID, qualifier string) gocql.UUID {
	return gocql.UUID(uuid.NewSHA1(sessionIDNamespace, []byte(sessionID+"/"+qualifier)))
}

// Allotment d'exports accordé par ligne DIGITAL payée (0 pour PRINT)
const defaultExportQuota = 5

// DefaultExportQuota lit l'allotment configuré, sinon la valeur par défaut
func DefaultExportQuota() int {
	if v := os.Getenv("ENTITLEMENT_EXPORTS_PER_PURCHASE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return defaultExportQuota
}

// RenderJob : descripteur de rendu différé, produit pendant la construction
// de commande et traité seulement après le commit. Aucun appel réseau ne
// doit avoir lieu pendant la construction elle-même.
type RenderJob struct {
	OwnerID           string
	OrderID           gocql.UUID
	OrderItemID       gocql.UUID
	PurchasedDesignID *gocql.UUID
	FallbackPreview   string
	Style             string
	Defs              string
}

// OrderPlan : l'ensemble des lignes à écrire pour une session — calculé en
// mémoire, sans effet de bord, puis appliqué d'un bloc par SaveOrderPlan.
type OrderPlan struct {
	Order        models.Order
	Items        []models.OrderItem
	Snapshots    []models.PurchasedDesign
	Entitlements []models.DesignEntitlement
	Jobs         []RenderJob
	CartItemIDs  []string
}

// PlanInput : entrées de la construction. Les lookups (design, preview
// produit) sont injectés pour garder le planificateur pur et testable.
type PlanInput struct {
	SessionID   string
	UserID      string
	GuestID     string
	AmountTotal int64
	Lines       []CanonicalLine

	// ResolveDesign retourne le design à figer pour une ligne : celui du
	// designId explicite, sinon le plus récemment modifié du (owner, produit),
	// sinon nil (achat non personnalisé)
	ResolveDesign func(ownerID, productID, designID string) *models.UserDesign

	// ProductPreview retourne la première vignette stockée du produit
	ProductPreview func(productID string) string
}

// BuildOrderPlan construit la commande complète d'une session : ordre,
// lignes, snapshots, entitlements et descripteurs de rendu. Pour chaque
// ligne canonique le montant combiné est réparti entre DIGITAL et PRINT
// (montants explicites, sinon FloorSplit, centime restant au print).
func BuildOrderPlan(in PlanInput) *OrderPlan {
	now := time.Now()
	orderID := OrderIDForSession(in.SessionID)

	plan := &OrderPlan{
		Order: models.Order{
			ID:              orderID,
			UserID:          in.UserID,
			GuestID:         in.GuestID,
			StripeSessionID: in.SessionID,
			AmountTotal:     in.AmountTotal,
			Status:          models.OrderStatusCompleted,
			CreatedAt:       now,
		},
	}
	owner := plan.Order.OwnerKey()
	exportQuota := DefaultExportQuota()
	seq := 0

	for _, line := range in.Lines {
		if line.CartItemID != "" {
			plan.CartItemIDs = append(plan.CartItemIDs, line.CartItemID)
		}

		for _, part := range apportion(line) {
			if part.amount == 0 {
				// seuls les couples (type, montant) non nuls créent une ligne
				continue
			}

			itemID := sessionUUID(in.SessionID, fmt.Sprintf("item/%d", seq))

			var design *models.UserDesign
			if in.ResolveDesign != nil {
				design = in.ResolveDesign(owner, line.ProductID, line.DesignID)
			}

			// Précédence du preview initial : design → vignette produit → rien
			preview := ""
			if design != nil && design.PreviewURL != "" {
				preview = design.PreviewURL
			} else if in.ProductPreview != nil {
				preview = in.ProductPreview(line.ProductID)
			}

			item := models.OrderItem{
				OrderID:         orderID,
				ItemID:          itemID,
				ProductID:       parseUUID(line.ProductID),
				Kind:            part.kind,
				UnitAmount:      part.amount,
				Quantity:        line.Quantity,
				VariantID:       part.variantID,
				PreviewSnapshot: preview,
				CreatedAt:       now,
			}

			job := RenderJob{
				OwnerID:         owner,
				OrderID:         orderID,
				OrderItemID:     itemID,
				FallbackPreview: preview,
			}

			ent := models.DesignEntitlement{
				EntitlementID: sessionUUID(in.SessionID, fmt.Sprintf("entitlement/%d", seq)),
				OwnerID:       owner,
				ProductID:     parseUUID(line.ProductID),
				Source:        models.EntitlementSourcePurchase,
				OrderID:       &orderID,
				OrderItemID:   &itemID,
				CreatedAt:     now,
			}
			if part.kind == models.KindDigital {
				ent.ExportQuota = exportQuota
			}

			if design != nil {
				// Snapshot d'achat : copie figée du design, preview semé
				// avec le même fallback que la ligne de commande
				pdID := sessionUUID(in.SessionID, fmt.Sprintf("design/%d", seq))
				snapshot := models.PurchasedDesign{
					PurchasedDesignID: pdID,
					OwnerID:           owner,
					ProductID:         parseUUID(line.ProductID),
					DesignID:          design.DesignID,
					OrderID:           orderID,
					OrderItemID:       itemID,
					Style:             design.Style,
					Defs:              design.Defs,
					PreviewURL:        preview,
					CreatedAt:         now,
				}
				plan.Snapshots = append(plan.Snapshots, snapshot)

				item.PurchasedDesignID = &pdID
				job.PurchasedDesignID = &pdID
				job.Style = design.Style
				job.Defs = design.Defs

				designID := design.DesignID
				ent.DesignID = &designID
				ent.PurchasedDesignID = &pdID
			}

			plan.Items = append(plan.Items, item)
			plan.Entitlements = append(plan.Entitlements, ent)
			plan.Jobs = append(plan.Jobs, job)
			seq++
		}
	}

	return plan
}

// stamp aligne les horodatages du plan sur une ancre existante : un batch de
// réparation réécrit les lignes de la première tentative, pas une variante
func (p *OrderPlan) stamp(at time.Time) {
	p.Order.CreatedAt = at
	for i := range p.Items {
		p.Items[i].CreatedAt = at
	}
	for i := range p.Snapshots {
		p.Snapshots[i].CreatedAt = at
	}
	for i := range p.Entitlements {
		p.Entitlements[i].CreatedAt = at
	}
}

type amountPart struct {
	kind      string
	amount    int64
	variantID string
}

// apportion détermine les (type, montant) d'une ligne canonique.
// Les deux variantes présentes → montants explicites s'ils existent, sinon
// FloorSplit. Une seule variante → montant entier. Aucune identifiable →
// PRINT par défaut, avec un warning loggé.
func apportion(line CanonicalLine) []amountPart {
	switch {
	case line.HasDigital() && line.HasPrint():
		digital, print := FloorSplit(line.UnitAmount)
		if line.DigitalAmount != nil && line.PrintAmount != nil {
			digital, print = *line.DigitalAmount, *line.PrintAmount
		}
		return []amountPart{
			{kind: models.KindDigital, amount: digital, variantID: line.DigitalVariantID},
			{kind: models.KindPrint, amount: print, variantID: line.PrintVariantID},
		}
	case line.HasDigital():
		return []amountPart{{kind: models.KindDigital, amount: line.UnitAmount, variantID: line.DigitalVariantID}}
	case line.HasPrint():
		return []amountPart{{kind: models.KindPrint, amount: line.UnitAmount, variantID: line.PrintVariantID}}
	default:
		log.Printf("⚠️ Ligne sans variante identifiable (cartItem=%s, produit=%s) → PRINT par défaut", line.CartItemID, line.ProductID)
		return []amountPart{{kind: models.KindPrint, amount: line.UnitAmount}}
	}
}

func parseUUID(s string) gocql.UUID {
	u, err := uuid.Parse(s)
	if err != nil {
		return gocql.UUID{}
	}
	return gocql.UUID(u)
}
