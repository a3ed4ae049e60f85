package user

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/middleware"
	"atelia_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

func GetCart(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	key := "cart:" + ownerID
	data, err := database.RedisClient.Get(context.Background(), key).Result()
	if err != nil || data == "" {
		c.JSON(http.StatusOK, models.Cart{OwnerID: ownerID, Items: []models.CartItem{}}) // panier vide
		return
	}

	var cart []models.CartItem
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur décodage panier"})
		return
	}

	c.JSON(http.StatusOK, models.Cart{OwnerID: ownerID, Items: cart})
}

//
// 🟢 POST /api/cart/add
//
func AddToCart(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	key := "cart:" + ownerID

	var input struct {
		ProductID        string `json:"productId"`
		Quantity         int    `json:"quantity"`
		VariantType      string `json:"variantType"`
		DigitalVariantID string `json:"digitalVariantId"`
		PrintVariantID   string `json:"printVariantId"`
		DesignID         string `json:"designId"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Données invalides"})
		return
	}

	if input.Quantity <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Quantité invalide"})
		return
	}

	// 🧩 Récupération du produit depuis ScyllaDB
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur connexion base de données"})
		return
	}

	productID, err := uuid.Parse(input.ProductID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ID produit invalide"})
		return
	}

	product := models.Product{ID: gocql.UUID(productID)}
	err = session.Query("SELECT name, price, image_urls FROM products WHERE product_id = ?",
		product.ID).Scan(&product.Name, &product.Price, &product.ImageURLs)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Produit introuvable"})
		return
	}

	// 🔹 Création de la ligne — chaque ajout a son cart_item_id propre,
	// c'est lui que le fulfillment utilisera pour purger le panier
	item := models.CartItem{
		CartItemID:       uuid.New().String(),
		ProductID:        input.ProductID,
		Name:             product.Name,
		VariantType:      input.VariantType,
		DigitalVariantID: input.DigitalVariantID,
		PrintVariantID:   input.PrintVariantID,
		DesignID:         input.DesignID,
		UnitAmount:       product.Price,
		Quantity:         input.Quantity,
		ImageURL:         product.FirstPreview(),
	}

	// 🧠 Récupère panier actuel depuis Redis
	data, _ := database.RedisClient.Get(context.Background(), key).Result()
	var cart []models.CartItem
	if data != "" {
		_ = json.Unmarshal([]byte(data), &cart)
	}

	// 🔁 Même produit + même design + mêmes variantes → on cumule la quantité
	found := false
	for i := range cart {
		if cart[i].ProductID == item.ProductID &&
			cart[i].DesignID == item.DesignID &&
			cart[i].DigitalVariantID == item.DigitalVariantID &&
			cart[i].PrintVariantID == item.PrintVariantID {
			cart[i].Quantity += item.Quantity
			found = true
			break
		}
	}
	if !found {
		cart = append(cart, item)
	}

	// 💾 Sauvegarde dans Redis (30 jours)
	jsonData, _ := json.Marshal(cart)
	database.RedisClient.Set(context.Background(), key, jsonData, 30*24*time.Hour)

	c.JSON(http.StatusOK, gin.H{
		"message": "Produit ajouté au panier",
		"items":   cart,
	})
}

//
// ❌ DELETE /api/cart/:cartItemId
//
func RemoveFromCart(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	cartItemID := c.Param("cartItemId")
	key := "cart:" + ownerID

	data, _ := database.RedisClient.Get(context.Background(), key).Result()
	if data == "" {
		c.JSON(http.StatusOK, gin.H{"message": "Panier vide"})
		return
	}

	var cart []models.CartItem
	_ = json.Unmarshal([]byte(data), &cart)

	newCart := []models.CartItem{}
	for _, item := range cart {
		if item.CartItemID != cartItemID {
			newCart = append(newCart, item)
		}
	}

	jsonData, _ := json.Marshal(newCart)
	database.RedisClient.Set(context.Background(), key, jsonData, 30*24*time.Hour)

	c.JSON(http.StatusOK, gin.H{
		"message": "Ligne supprimée du panier",
		"items":   newCart,
	})
}

//
// 🧹 DELETE /api/cart/clear
//
func ClearCart(c *gin.Context) {
	ownerID := middleware.OwnerID(c)
	if ownerID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "non identifié"})
		return
	}

	key := "cart:" + ownerID

	// 🧹 Supprime complètement la clé Redis
	if err := database.RedisClient.Del(context.Background(), key).Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur lors du vidage du panier"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Panier vidé avec succès",
	})
}
