package models

import (
	"time"

	"github.com/gocql/gocql"
)

// UserDesign : personnalisation en cours d'un produit (style + defs + preview).
// Lu par le pipeline de fulfillment, jamais créé par lui.
type UserDesign struct {
	DesignID   gocql.UUID `json:"design_id" db:"design_id"`
	OwnerID    string     `json:"owner_id" db:"owner_id"`
	ProductID  gocql.UUID `json:"product_id" db:"product_id"`
	Style      string     `json:"style" db:"style"` // blob JSON
	Defs       string     `json:"defs" db:"defs"`   // blob JSON
	PreviewURL string     `json:"preview_url,omitempty" db:"preview_url"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

// PurchasedDesign : snapshot immuable d'un UserDesign au moment de l'achat,
// rattaché à une ligne de commande. preview_url démarre sur le fallback et
// peut être amélioré une fois par le job de rendu — seule mutation autorisée.
type PurchasedDesign struct {
	PurchasedDesignID gocql.UUID `json:"purchased_design_id" db:"purchased_design_id"`
	OwnerID           string     `json:"owner_id" db:"owner_id"`
	ProductID         gocql.UUID `json:"product_id" db:"product_id"`
	DesignID          gocql.UUID `json:"design_id" db:"design_id"`
	OrderID           gocql.UUID `json:"order_id" db:"order_id"`
	OrderItemID       gocql.UUID `json:"order_item_id" db:"order_item_id"`
	Style             string     `json:"style" db:"style"`
	Defs              string     `json:"defs" db:"defs"`
	PreviewURL        string     `json:"preview_url,omitempty" db:"preview_url"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}
