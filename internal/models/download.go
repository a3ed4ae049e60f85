package models

import (
	"time"

	"github.com/gocql/gocql"
)

// DownloadToken : droit temporaire de télécharger un fichier acheté.
// Une ligne par (commande, asset), insérée avec IF NOT EXISTS — un webhook
// rejoué ne peut pas dupliquer les tokens.
type DownloadToken struct {
	TokenID       gocql.UUID `json:"token_id" db:"token_id"`
	OrderID       gocql.UUID `json:"order_id" db:"order_id"`
	OrderItemID   gocql.UUID `json:"order_item_id" db:"order_item_id"`
	OwnerID       string     `json:"owner_id" db:"owner_id"`
	AssetKey      string     `json:"asset_key" db:"asset_key"` // clé objet MinIO
	URL           string     `json:"url" db:"url"`             // URL signée
	ExpiresAt     time.Time  `json:"expires_at" db:"expires_at"`
	RemainingUses *int       `json:"remaining_uses,omitempty" db:"remaining_uses"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}
