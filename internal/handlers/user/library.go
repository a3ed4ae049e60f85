package user

import (
	"log"
	"net/http"
	"time"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/middleware"
	"atelia_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// ✅ Récupère toutes les commandes du propriétaire connecté (user ou invité)
func GetMyOrders(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(
		`SELECT order_id, created_at, amount_total, status FROM orders_by_owner WHERE owner_id = ?`,
		ownerID,
	).Iter()

	orders := []gin.H{}
	var orderID gocql.UUID
	var createdAt time.Time
	var amountTotal int64
	var status string
	for iter.Scan(&orderID, &createdAt, &amountTotal, &status) {
		orders = append(orders, gin.H{
			"id":           orderID,
			"created_at":   createdAt,
			"amount_total": amountTotal,
			"status":       status,
		})
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture commandes:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération commandes"})
		return
	}

	log.Printf("✅ %d commande(s) trouvée(s) pour %s", len(orders), ownerID)
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ✅ Récupère une commande avec ses lignes, en vérifiant le propriétaire
func GetOrderByID(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	orderUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}
	orderID := gocql.UUID(orderUUID)

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	var order models.Order
	err = session.Query(
		`SELECT order_id, user_id, guest_id, stripe_session_id, amount_total, status, created_at
		 FROM orders WHERE order_id = ?`, orderID,
	).Scan(&order.ID, &order.UserID, &order.GuestID, &order.StripeSessionID,
		&order.AmountTotal, &order.Status, &order.CreatedAt)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	// ✅ Sécurité : la commande doit appartenir au demandeur
	if order.OwnerKey() != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": "Commande introuvable"})
		return
	}

	iter := session.Query(
		`SELECT order_id, item_id, product_id, kind, unit_amount, quantity, variant_id, purchased_design_id, preview_snapshot, created_at
		 FROM order_items WHERE order_id = ?`, orderID,
	).Iter()

	var item models.OrderItem
	for iter.Scan(&item.OrderID, &item.ItemID, &item.ProductID, &item.Kind, &item.UnitAmount,
		&item.Quantity, &item.VariantID, &item.PurchasedDesignID, &item.PreviewSnapshot, &item.CreatedAt) {
		order.Items = append(order.Items, item)
		item = models.OrderItem{}
	}
	if err := iter.Close(); err != nil {
		log.Println("❌ Erreur lecture lignes:", err)
	}

	c.JSON(http.StatusOK, order)
}

// ✅ Les designs achetés (snapshots figés) du propriétaire
func GetMyPurchasedDesigns(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(
		`SELECT purchased_design_id, product_id, design_id, order_id, order_item_id, preview_url, created_at
		 FROM purchased_designs WHERE owner_id = ?`, ownerID,
	).Iter()

	designs := []gin.H{}
	var pdID, productID, designID, orderID, itemID gocql.UUID
	var previewURL string
	var createdAt time.Time
	for iter.Scan(&pdID, &productID, &designID, &orderID, &itemID, &previewURL, &createdAt) {
		designs = append(designs, gin.H{
			"purchased_design_id": pdID,
			"product_id":          productID,
			"design_id":           designID,
			"order_id":            orderID,
			"order_item_id":       itemID,
			"preview_url":         previewURL,
			"created_at":          createdAt,
		})
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération designs"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"designs": designs})
}

// ✅ Vue agrégée des quotas : somme des lignes d'entitlement par produit
func GetMyEntitlements(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(
		`SELECT product_id, export_quota, edit_quota, exports_used, edits_used
		 FROM design_entitlements WHERE owner_id = ?`, ownerID,
	).Iter()

	// Le registre est append-only : le quota disponible est la somme des lignes
	summaries := map[gocql.UUID]*models.EntitlementSummary{}
	var productID gocql.UUID
	var exportQuota, editQuota, exportsUsed, editsUsed int
	for iter.Scan(&productID, &exportQuota, &editQuota, &exportsUsed, &editsUsed) {
		s, ok := summaries[productID]
		if !ok {
			s = &models.EntitlementSummary{ProductID: productID}
			summaries[productID] = s
		}
		s.ExportQuota += exportQuota
		s.EditQuota += editQuota
		s.ExportsUsed += exportsUsed
		s.EditsUsed += editsUsed
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération quotas"})
		return
	}

	result := make([]models.EntitlementSummary, 0, len(summaries))
	for _, s := range summaries {
		result = append(result, *s)
	}

	c.JSON(http.StatusOK, gin.H{"entitlements": result})
}

// ✅ Tokens de téléchargement encore valides d'une commande
func GetOrderDownloads(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	orderUUID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID commande invalide"})
		return
	}

	session, err := database.GetOrdersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	iter := session.Query(
		`SELECT token_id, asset_key, owner_id, url, expires_at, created_at
		 FROM download_tokens WHERE order_id = ?`, gocql.UUID(orderUUID),
	).Iter()

	now := time.Now()
	tokens := []gin.H{}
	var tokenID gocql.UUID
	var assetKey, tokenOwner, url string
	var expiresAt, createdAt time.Time
	for iter.Scan(&tokenID, &assetKey, &tokenOwner, &url, &expiresAt, &createdAt) {
		if tokenOwner != ownerID || expiresAt.Before(now) {
			continue
		}
		tokens = append(tokens, gin.H{
			"token_id":   tokenID,
			"asset_key":  assetKey,
			"url":        url,
			"expires_at": expiresAt,
		})
	}
	if err := iter.Close(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur récupération téléchargements"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"downloads": tokens})
}
