package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/models"
	"atelia_back_end/internal/services"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

const (
	defaultGuestDownloadHours = 48
	defaultUserDownloadDays   = 30
)

// DownloadExpiry calcule l'expiration d'un token : fenêtre courte pour les
// invités, longue pour les comptes. Surchargeable par env.
func DownloadExpiry(isGuest bool, now time.Time) time.Time {
	if isGuest {
		hours := defaultGuestDownloadHours
		if v := os.Getenv("GUEST_DOWNLOAD_TTL_HOURS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				hours = n
			}
		}
		return now.Add(time.Duration(hours) * time.Hour)
	}

	days := defaultUserDownloadDays
	if v := os.Getenv("USER_DOWNLOAD_TTL_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return now.Add(time.Duration(days) * 24 * time.Hour)
}

// PruneCartLines supprime du panier Redis les lignes converties en commande,
// identifiées par leur cartItemId. Répétable sans danger : supprimer une
// ligne déjà supprimée est un no-op.
func PruneCartLines(ctx context.Context, ownerID string, cartItemIDs []string) {
	if len(cartItemIDs) == 0 {
		return
	}

	key := "cart:" + ownerID
	data, err := database.RedisClient.Get(ctx, key).Result()
	if err != nil || data == "" {
		return // panier déjà vide
	}

	var cart []models.CartItem
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		log.Printf("⚠️ Panier illisible pour %s: %v", ownerID, err)
		return
	}

	converted := make(map[string]bool, len(cartItemIDs))
	for _, id := range cartItemIDs {
		converted[id] = true
	}

	remaining := []models.CartItem{}
	for _, item := range cart {
		if !converted[item.CartItemID] {
			remaining = append(remaining, item)
		}
	}

	if len(remaining) == 0 {
		if err := database.RedisClient.Del(ctx, key).Err(); err == nil {
			log.Printf("🧹 Panier vidé pour %s", ownerID)
		}
		return
	}

	jsonData, _ := json.Marshal(remaining)
	database.RedisClient.Set(ctx, key, jsonData, 30*24*time.Hour)
	log.Printf("🧹 %d ligne(s) de panier retirée(s) pour %s", len(cart)-len(remaining), ownerID)
}

// downloadStore : dépendances de l'émission de tokens. insertToken doit
// avoir une sémantique skip-on-duplicate par (commande, asset).
type downloadStore interface {
	assetKeys(productID gocql.UUID) ([]string, error)
	signURL(ctx context.Context, assetKey string, ttl time.Duration) (string, error)
	insertToken(ctx context.Context, token models.DownloadToken) (bool, error)
}

var downloads downloadStore = scyllaDownloads{}

// IssueDownloadTokens émet un token par (commande, asset) pour chaque ligne
// DIGITAL : URL signée MinIO, expiration selon le type de propriétaire,
// insertion IF NOT EXISTS — un webhook rejoué ne duplique rien.
func IssueDownloadTokens(ctx context.Context, order models.Order, items []models.OrderItem) ([]models.DownloadToken, error) {
	now := time.Now()
	expiry := DownloadExpiry(order.IsGuest(), now)
	var issued []models.DownloadToken

	for _, item := range items {
		if item.Kind != models.KindDigital {
			continue
		}

		assetKeys, err := downloads.assetKeys(item.ProductID)
		if err != nil {
			log.Printf("⚠️ Assets introuvables pour le produit %v: %v", item.ProductID, err)
			continue
		}

		for _, assetKey := range assetKeys {
			signedURL, err := downloads.signURL(ctx, assetKey, time.Until(expiry))
			if err != nil {
				log.Printf("⚠️ Signature URL échouée pour %s: %v", assetKey, err)
				continue
			}

			token := models.DownloadToken{
				TokenID:     gocql.UUID(uuid.New()),
				OrderID:     order.ID,
				OrderItemID: item.ItemID,
				OwnerID:     order.OwnerKey(),
				AssetKey:    assetKey,
				URL:         signedURL,
				ExpiresAt:   expiry,
				CreatedAt:   now,
			}

			applied, err := downloads.insertToken(ctx, token)
			if err != nil {
				return issued, fmt.Errorf("token (%v, %s): %w", order.ID, assetKey, err)
			}
			if applied {
				issued = append(issued, token)
			}
		}
	}

	if len(issued) > 0 {
		log.Printf("🎟️ %d token(s) de téléchargement émis pour la commande %v", len(issued), order.ID)
	}
	return issued, nil
}

type scyllaDownloads struct{}

// assetKeys liste les fichiers téléchargeables d'un produit
func (scyllaDownloads) assetKeys(productID gocql.UUID) ([]string, error) {
	session, err := database.GetProductsSession()
	if err != nil {
		return nil, err
	}

	var keys []string
	if err := session.Query("SELECT asset_keys FROM products WHERE product_id = ?", productID).Scan(&keys); err != nil {
		return nil, err
	}
	return keys, nil
}

func (scyllaDownloads) signURL(ctx context.Context, assetKey string, ttl time.Duration) (string, error) {
	return services.GenerateSignedURL(ctx, assetKey, ttl)
}

func (scyllaDownloads) insertToken(ctx context.Context, token models.DownloadToken) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, fmt.Errorf("connexion orders: %w", err)
	}

	prev := make(map[string]interface{})
	return session.Query(
		`INSERT INTO download_tokens (order_id, asset_key, token_id, order_item_id, owner_id, url, expires_at, remaining_uses, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		token.OrderID, token.AssetKey, token.TokenID, token.OrderItemID, token.OwnerID,
		token.URL, token.ExpiresAt, token.RemainingUses, token.CreatedAt,
	).WithContext(ctx).MapScanCAS(prev)
}
