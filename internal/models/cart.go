package models

type Cart struct {
	OwnerID string     `json:"owner_id"`
	Items   []CartItem `json:"items"`
}

// CartItem : ligne de panier stockée dans Redis. Les identifiants de
// variantes et de design sont recopiés tels quels dans les métadonnées
// Stripe à la création de la session Checkout.
type CartItem struct {
	CartItemID       string `json:"cart_item_id"`
	ProductID        string `json:"product_id"`
	Name             string `json:"name"`
	VariantType      string `json:"variant_type,omitempty"` // digital | print | both
	DigitalVariantID string `json:"digital_variant_id,omitempty"`
	PrintVariantID   string `json:"print_variant_id,omitempty"`
	DesignID         string `json:"design_id,omitempty"`
	UnitAmount       int64  `json:"unit_amount"` // centimes
	Quantity         int    `json:"quantity"`
	ImageURL         string `json:"image_url,omitempty"`
}
