package fulfillment

import (
	"math"
	"strconv"

	"github.com/stripe/stripe-go/v83"
)

// CanonicalLine : ligne d'achat normalisée dérivée des line items Stripe.
// Transformation pure, sans effet de bord — testable indépendamment de la
// couche transactionnelle.
type CanonicalLine struct {
	Quantity   int
	UnitAmount int64 // centimes, round(subtotal / quantity)

	// Montants par type explicites si les métadonnées les portent (centimes)
	DigitalAmount *int64
	PrintAmount   *int64

	ProductID        string
	VariantType      string
	DigitalVariantID string
	PrintVariantID   string
	CartItemID       string
	DesignID         string
}

// HasDigital indique si la ligne porte une variante digitale
func (l CanonicalLine) HasDigital() bool {
	return l.DigitalVariantID != ""
}

// HasPrint indique si la ligne porte une variante print
func (l CanonicalLine) HasPrint() bool {
	return l.PrintVariantID != ""
}

// CanonicalizeLineItems normalise les line items d'une session Checkout :
// quantité, montant unitaire en centimes, identifiants passés tels quels
// depuis les métadonnées (fusion produit puis prix, le prix gagne).
func CanonicalizeLineItems(items []*stripe.LineItem) []CanonicalLine {
	lines := make([]CanonicalLine, 0, len(items))

	for _, item := range items {
		if item == nil {
			continue
		}

		meta := mergedMetadata(item)

		line := CanonicalLine{
			Quantity:         int(item.Quantity),
			UnitAmount:       unitAmount(item.AmountSubtotal, item.Quantity),
			ProductID:        meta["productId"],
			VariantType:      meta["variantType"],
			DigitalVariantID: meta["digitalVariantId"],
			PrintVariantID:   meta["printVariantId"],
			CartItemID:       meta["cartItemId"],
			DesignID:         meta["designId"],
		}

		if v, ok := parseAmount(meta["digitalAmount"]); ok {
			line.DigitalAmount = &v
		}
		if v, ok := parseAmount(meta["printAmount"]); ok {
			line.PrintAmount = &v
		}

		lines = append(lines, line)
	}

	return lines
}

// unitAmount = round(subtotal / quantity) ; si quantity vaut zéro on retombe
// sur le sous-total brut pour éviter la division par zéro
func unitAmount(subtotal, quantity int64) int64 {
	if quantity == 0 {
		return subtotal
	}
	return int64(math.Round(float64(subtotal) / float64(quantity)))
}

// FloorSplit répartit un montant combiné entre DIGITAL et PRINT :
// digital = floor(total/2), print = total - digital. Les deux parts somment
// exactement au total, le centime restant va au print.
func FloorSplit(total int64) (digital, print int64) {
	digital = total / 2
	print = total - digital
	return digital, print
}

// mergedMetadata fusionne les métadonnées produit puis prix d'un line item
func mergedMetadata(item *stripe.LineItem) map[string]string {
	meta := make(map[string]string)
	if item.Price != nil {
		if item.Price.Product != nil {
			for k, v := range item.Price.Product.Metadata {
				meta[k] = v
			}
		}
		for k, v := range item.Price.Metadata {
			meta[k] = v
		}
	}
	return meta
}

func parseAmount(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
