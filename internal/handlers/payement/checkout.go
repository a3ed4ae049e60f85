package payement

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/middleware"
	"atelia_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v83"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
)

// Checkout crée la session Stripe Checkout depuis le panier Redis.
// Les identifiants de variantes/design/ligne de panier partent dans les
// métadonnées des prix — c'est le contrat que le pipeline de fulfillment
// relira au retour du webhook.
func Checkout(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur ou invité non identifié"})
		return
	}

	// ✅ 1. Récupérer le panier depuis Redis
	ctx := context.Background()
	cartKey := "cart:" + ownerID

	cartData, err := database.Redis.Get(ctx, cartKey).Result()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide ou introuvable"})
		return
	}

	var cartItems []models.CartItem
	if err := json.Unmarshal([]byte(cartData), &cartItems); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lecture panier"})
		return
	}
	if len(cartItems) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Panier vide"})
		return
	}

	// ✅ 2. Construire les line items avec le contrat de métadonnées
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(cartItems))
	for _, item := range cartItems {
		meta := map[string]string{
			"productId":  item.ProductID,
			"cartItemId": item.CartItemID,
		}
		if item.VariantType != "" {
			meta["variantType"] = item.VariantType
		}
		if item.DigitalVariantID != "" {
			meta["digitalVariantId"] = item.DigitalVariantID
		}
		if item.PrintVariantID != "" {
			meta["printVariantId"] = item.PrintVariantID
		}
		if item.DesignID != "" {
			meta["designId"] = item.DesignID
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(int64(item.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(item.UnitAmount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(item.Name),
					Metadata: meta,
				},
			},
		})
	}

	// ✅ 3. Identité du propriétaire dans les métadonnées de session
	metadata := map[string]string{}
	if uid := c.GetString("user_id"); uid != "" {
		metadata["userId"] = uid
	} else {
		metadata["guestId"] = c.GetString("guest_id")
	}
	if email := c.GetString("email"); email != "" {
		metadata["email"] = email
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(os.Getenv("CHECKOUT_SUCCESS_URL")),
		CancelURL:  stripe.String(os.Getenv("CHECKOUT_CANCEL_URL")),
		Metadata:   metadata,
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création session", "details": err.Error()})
		return
	}

	log.Printf("💳 Session Checkout créée: %s (%d ligne(s)) pour %s", sess.ID, len(cartItems), ownerID)

	c.JSON(http.StatusOK, gin.H{
		"session_id":  sess.ID,
		"url":         sess.URL,
		"items_count": len(cartItems),
	})
}

// TopupCheckout crée une session Checkout pour un achat de quota
// (exports ou éditions supplémentaires), sans commande produit
func TopupCheckout(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Utilisateur ou invité non identifié"})
		return
	}

	var req struct {
		Kind      string `json:"kind" binding:"required"` // export | edit
		ProductID string `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides", "details": err.Error()})
		return
	}
	if req.Kind != models.QuotaKindExport && req.Kind != models.QuotaKindEdit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Type de quota inconnu"})
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	// Le produit quota porte son prix et sa valeur par unité en métadonnées
	productsSession, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	productUUID, err := uuid.Parse(req.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	var name string
	var price int64
	var productMeta map[string]string
	err = productsSession.Query("SELECT name, price, metadata FROM products WHERE product_id = ?",
		gocql.UUID(productUUID)).Scan(&name, &price, &productMeta)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	priceMeta := map[string]string{"productId": req.ProductID}
	perUnitKey := "exports_per_unit"
	if req.Kind == models.QuotaKindEdit {
		perUnitKey = "edits_per_unit"
	}
	if v := productMeta[perUnitKey]; v != "" {
		priceMeta[perUnitKey] = v
	}

	metadata := map[string]string{
		"type":      "topup",
		"kind":      req.Kind,
		"productId": req.ProductID,
	}
	if uid := c.GetString("user_id"); uid != "" {
		metadata["userId"] = uid
	} else {
		metadata["guestId"] = c.GetString("guest_id")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(int64(req.Quantity)),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String("eur"),
				UnitAmount: stripe.Int64(price),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name:     stripe.String(name),
					Metadata: priceMeta,
				},
			},
		}},
		SuccessURL: stripe.String(os.Getenv("CHECKOUT_SUCCESS_URL")),
		CancelURL:  stripe.String(os.Getenv("CHECKOUT_CANCEL_URL")),
		Metadata:   metadata,
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		log.Printf("❌ Erreur Stripe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur création session", "details": err.Error()})
		return
	}

	log.Printf("💳 Session top-up créée: %s (%s × %s) pour %s", sess.ID, strconv.Itoa(req.Quantity), req.Kind, ownerID)

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"url":        sess.URL,
	})
}
