package routes

import (
	"atelia_back_end/internal/handlers/admin"
	"atelia_back_end/internal/handlers/payement"
	"atelia_back_end/internal/handlers/user"
	"atelia_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Webhook Stripe — pas d'authentification, la signature fait foi
	r.POST("/api/webhooks/stripe", payement.StripeWebhook)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.Use(middleware.OptionalAuth())
	{
		// Panier
		api.GET("/cart", user.GetCart)
		api.POST("/cart/add", user.AddToCart)
		api.DELETE("/cart/clear", user.ClearCart)
		api.DELETE("/cart/:cartItemId", user.RemoveFromCart)

		// Checkout
		api.POST("/checkout", payement.Checkout)
		api.POST("/checkout/topup", payement.TopupCheckout)

		// Bibliothèque
		api.GET("/orders", user.GetMyOrders)
		api.GET("/orders/:id", user.GetOrderByID)
		api.GET("/orders/:id/downloads", user.GetOrderDownloads)
		api.GET("/designs/purchased", user.GetMyPurchasedDesigns)
		api.GET("/entitlements", user.GetMyEntitlements)
	}

	adminGroup := r.Group("/api/admin")
	adminGroup.Use(middleware.AuthRequired())
	{
		adminGroup.GET("/orders/search", admin.SearchOrders)
	}
}
