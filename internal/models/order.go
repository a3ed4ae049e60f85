package models

import (
	"time"

	"github.com/gocql/gocql"
)

const (
	OrderStatusCompleted = "COMPLETED"

	KindDigital = "DIGITAL"
	KindPrint   = "PRINT"
)

// Order : une commande par session Stripe Checkout.
// stripe_session_id est l'ancre d'idempotence (unique via orders_by_session).
type Order struct {
	ID              gocql.UUID  `json:"id" db:"order_id"`
	UserID          string      `json:"user_id,omitempty" db:"user_id"`
	GuestID         string      `json:"guest_id,omitempty" db:"guest_id"`
	StripeSessionID string      `json:"stripe_session_id" db:"stripe_session_id"`
	AmountTotal     int64       `json:"amount_total" db:"amount_total"` // centimes
	Status          string      `json:"status" db:"status"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
	Items           []OrderItem `json:"items,omitempty"`
}

// OwnerKey identifie le propriétaire (exactement un de user_id / guest_id)
func (o Order) OwnerKey() string {
	if o.UserID != "" {
		return o.UserID
	}
	return o.GuestID
}

func (o Order) IsGuest() bool {
	return o.UserID == ""
}

// OrderItem : une ligne par (type de variante × produit) acheté.
// preview_snapshot est le seul champ mutable après création (job de rendu).
type OrderItem struct {
	OrderID           gocql.UUID  `json:"order_id" db:"order_id"`
	ItemID            gocql.UUID  `json:"item_id" db:"item_id"`
	ProductID         gocql.UUID  `json:"product_id" db:"product_id"`
	Kind              string      `json:"kind" db:"kind"` // DIGITAL | PRINT
	UnitAmount        int64       `json:"unit_amount" db:"unit_amount"` // centimes, déjà réparti
	Quantity          int         `json:"quantity" db:"quantity"`
	VariantID         string      `json:"variant_id,omitempty" db:"variant_id"`
	PurchasedDesignID *gocql.UUID `json:"purchased_design_id,omitempty" db:"purchased_design_id"`
	PreviewSnapshot   string      `json:"preview_snapshot,omitempty" db:"preview_snapshot"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}
