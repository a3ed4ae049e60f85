package admin

import (
	"net/http"

	"atelia_back_end/internal/services"

	"github.com/gin-gonic/gin"
)

// SearchOrders : recherche plein-texte des commandes indexées (Elastic)
func SearchOrders(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Paramètre q requis"})
		return
	}

	orders, err := services.SearchOrders(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur recherche", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(orders),
		"orders": orders,
	})
}
