package middleware

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret = []byte(os.Getenv("JWT_SECRET"))

// AuthRequired exige un Bearer token valide et pose user_id/email dans le contexte
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := parseBearer(c)
		if err != nil {
			log.Printf("❌ Authentification refusée: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token invalide ou manquant"})
			c.Abort()
			return
		}

		if uid, ok := claims["user_id"].(string); ok {
			c.Set("user_id", uid)
		}
		if email, ok := claims["email"].(string); ok {
			c.Set("email", email)
		}
		c.Next()
	}
}

// OptionalAuth accepte un Bearer token OU un identifiant invité via
// X-Guest-Id — le panier et le checkout fonctionnent sans compte
func OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, err := parseBearer(c); err == nil {
			if uid, ok := claims["user_id"].(string); ok {
				c.Set("user_id", uid)
			}
			if email, ok := claims["email"].(string); ok {
				c.Set("email", email)
			}
		} else if guestID := c.GetHeader("X-Guest-Id"); guestID != "" {
			c.Set("guest_id", guestID)
		}
		c.Next()
	}
}

// OwnerID retourne l'identité effective : user connecté sinon invité
func OwnerID(c *gin.Context) string {
	if uid := c.GetString("user_id"); uid != "" {
		return uid
	}
	return c.GetString("guest_id")
}

func parseBearer(c *gin.Context) (jwt.MapClaims, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("pas de header Authorization")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, fmt.Errorf("format Authorization invalide")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("méthode de signature inattendue: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing JWT: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("claims invalides")
	}

	if exp, ok := claims["exp"].(float64); ok {
		if time.Now().Unix() > int64(exp) {
			return nil, fmt.Errorf("token expiré")
		}
	}

	return claims, nil
}
