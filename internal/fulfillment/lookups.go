package fulfillment

import (
	"log"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
)

// designStore : lectures de designs pour la résolution à l'achat
type designStore interface {
	byID(designID gocql.UUID) (*models.UserDesign, error)
	latestFor(ownerID string, productID gocql.UUID) (*models.UserDesign, error)
}

var designs designStore = scyllaDesigns{}

// resolveDesign cherche le design à figer pour une ligne : le designId
// explicite d'abord, sinon le design le plus récemment modifié du
// (propriétaire, produit). Peut retourner nil — achat non personnalisé.
//
// Un designId explicite vient du client via le panier : il ne peut figer
// que les designs du demandeur, jamais ceux d'un autre propriétaire.
func resolveDesign(ownerID, productID, designID string) *models.UserDesign {
	if designID != "" {
		d, err := designs.byID(parseUUID(designID))
		if err == nil && d != nil {
			if d.OwnerID == ownerID {
				return d
			}
			log.Printf("⚠️ Design %s ignoré : propriétaire %s ≠ acheteur %s", designID, d.OwnerID, ownerID)
		} else if err != nil {
			log.Printf("⚠️ Design explicite %s introuvable (%v), tentative par produit", designID, err)
		}
	}

	d, err := designs.latestFor(ownerID, parseUUID(productID))
	if err != nil {
		return nil
	}
	return d
}

type scyllaDesigns struct{}

func (scyllaDesigns) byID(designID gocql.UUID) (*models.UserDesign, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var d models.UserDesign
	err = session.Query(
		`SELECT design_id, owner_id, product_id, style, defs, preview_url, updated_at
		 FROM user_designs_by_id WHERE design_id = ?`, designID,
	).Scan(&d.DesignID, &d.OwnerID, &d.ProductID, &d.Style, &d.Defs, &d.PreviewURL, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (scyllaDesigns) latestFor(ownerID string, productID gocql.UUID) (*models.UserDesign, error) {
	session, err := database.GetUsersSession()
	if err != nil {
		return nil, err
	}

	var d models.UserDesign
	err = session.Query(
		`SELECT design_id, owner_id, product_id, style, defs, preview_url, updated_at
		 FROM user_designs WHERE owner_id = ? AND product_id = ? LIMIT 1`, ownerID, productID,
	).Scan(&d.DesignID, &d.OwnerID, &d.ProductID, &d.Style, &d.Defs, &d.PreviewURL, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// productPreview retourne la première vignette stockée d'un produit
func productPreview(productID string) string {
	session, err := database.GetProductsSession()
	if err != nil {
		return ""
	}

	var product models.Product
	err = session.Query("SELECT name, price, image_urls FROM products WHERE product_id = ?",
		parseUUID(productID)).Scan(&product.Name, &product.Price, &product.ImageURLs)
	if err != nil {
		return ""
	}
	return product.FirstPreview()
}

// userEmail retrouve l'adresse du compte quand la session Stripe n'en porte pas
func userEmail(userID string) string {
	session, err := database.GetUsersSession()
	if err != nil {
		return ""
	}

	u := models.User{ID: userID}
	if err := session.Query("SELECT email, name, created_at FROM users WHERE user_id = ?",
		parseUUID(userID)).Scan(&u.Email, &u.Name, &u.CreatedAt); err != nil {
		return ""
	}
	return u.Email
}

// orderItems relit les lignes d'une commande commitée (phase de cleanup)
func orderItems(orderID gocql.UUID) ([]models.OrderItem, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return nil, err
	}

	iter := session.Query(
		`SELECT order_id, item_id, product_id, kind, unit_amount, quantity, variant_id, purchased_design_id, preview_snapshot, created_at
		 FROM order_items WHERE order_id = ?`,
		orderID,
	).Iter()

	var items []models.OrderItem
	var item models.OrderItem
	for iter.Scan(&item.OrderID, &item.ItemID, &item.ProductID, &item.Kind, &item.UnitAmount,
		&item.Quantity, &item.VariantID, &item.PurchasedDesignID, &item.PreviewSnapshot, &item.CreatedAt) {
		items = append(items, item)
		item = models.OrderItem{}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	return items, nil
}
