package models

import (
	"time"

	"github.com/gocql/gocql"
)

type Product struct {
	ID            gocql.UUID        `json:"id" db:"product_id"`
	Name          string            `json:"name" db:"name"`
	Description   string            `json:"description" db:"description"`
	Price         int64             `json:"price" db:"price"` // centimes
	SKU           string            `json:"sku" db:"sku"`
	ImageURLs     []string          `json:"image_urls" db:"image_urls"`
	AssetKeys     []string          `json:"asset_keys" db:"asset_keys"` // fichiers téléchargeables (clés MinIO)
	Tags          []string          `json:"tags" db:"tags"`
	Metadata      map[string]string `json:"metadata" db:"metadata"` // ex: exports_per_unit pour les produits quota
	IsActive      bool              `json:"is_active" db:"is_active"`
	HasVariants   bool              `json:"has_variants" db:"has_variants"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at" db:"updated_at"`
}

// FirstPreview retourne la première image du produit (fallback preview panier/commande)
func (p Product) FirstPreview() string {
	if len(p.ImageURLs) > 0 {
		return p.ImageURLs[0]
	}
	return ""
}
