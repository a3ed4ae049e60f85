package payement

import (
	"encoding/json"
	"log"
	"net/http"
	"os"

	"atelia_back_end/internal/fulfillment"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"
)

// ✅ Webhook Stripe — point d'entrée du pipeline de fulfillment.
// Un statut non-2xx fait relivrer l'événement par Stripe ; on ne le renvoie
// que pour les échecs qui doivent être rejoués (échec transactionnel,
// identité manquante). Tout le reste répond 200.
func StripeWebhook(c *gin.Context) {
	const MaxBodyBytes = int64(65536)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)

	payload, err := c.GetRawData()
	if err != nil {
		log.Println("❌ Lecture payload échouée:", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Échec lecture body"})
		return
	}

	secret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	var event stripe.Event

	if secret == "" {
		log.Println("⚠️ Pas de STRIPE_WEBHOOK_SECRET — mode test")
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Println("❌ JSON invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "JSON invalide"})
			return
		}
	} else {
		event, err = webhook.ConstructEvent(payload, c.GetHeader("Stripe-Signature"), secret)
		if err != nil {
			log.Println("❌ Signature Stripe invalide:", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Signature invalide"})
			return
		}
	}

	log.Printf("📥 Événement Stripe reçu : %s (%s)", event.Type, event.ID)

	if event.Type != "checkout.session.completed" {
		log.Printf("ℹ️ Événement ignoré : %s", event.Type)
		c.Status(http.StatusOK)
		return
	}

	if err := fulfillment.HandleCheckoutCompleted(event); err != nil {
		log.Printf("❌ Fulfillment échoué pour %s: %v — Stripe rejouera", event.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Fulfillment échoué"})
		return
	}

	c.Status(http.StatusOK)
}
