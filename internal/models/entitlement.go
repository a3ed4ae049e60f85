package models

import (
	"time"

	"github.com/gocql/gocql"
)

const (
	EntitlementSourcePurchase = "PURCHASE"
	EntitlementSourceTopup    = "TOPUP"

	QuotaKindExport = "export"
	QuotaKindEdit   = "edit"
)

// DesignEntitlement : registre de droits append-only. Un achat insère une
// ligne par ligne de commande payée ; un top-up insère une nouvelle ligne au
// lieu de modifier une existante. Le quota disponible d'un (owner, produit)
// est la somme sur toutes les lignes.
type DesignEntitlement struct {
	EntitlementID     gocql.UUID  `json:"entitlement_id" db:"entitlement_id"`
	OwnerID           string      `json:"owner_id" db:"owner_id"`
	ProductID         gocql.UUID  `json:"product_id" db:"product_id"`
	DesignID          *gocql.UUID `json:"design_id,omitempty" db:"design_id"`
	PurchasedDesignID *gocql.UUID `json:"purchased_design_id,omitempty" db:"purchased_design_id"`
	Source            string      `json:"source" db:"source"` // PURCHASE | TOPUP
	OrderID           *gocql.UUID `json:"order_id,omitempty" db:"order_id"`
	OrderItemID       *gocql.UUID `json:"order_item_id,omitempty" db:"order_item_id"`
	ExportQuota       int         `json:"export_quota" db:"export_quota"`
	EditQuota         int         `json:"edit_quota" db:"edit_quota"`
	ExportsUsed       int         `json:"exports_used" db:"exports_used"`
	EditsUsed         int         `json:"edits_used" db:"edits_used"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// EntitlementSummary agrège les lignes pour la vue profil
type EntitlementSummary struct {
	ProductID   gocql.UUID `json:"product_id"`
	ExportQuota int        `json:"export_quota"`
	EditQuota   int        `json:"edit_quota"`
	ExportsUsed int        `json:"exports_used"`
	EditsUsed   int        `json:"edits_used"`
}
