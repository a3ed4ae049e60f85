package database

import "github.com/gocql/gocql"

// Requêtes des chemins chauds du fulfillment, construites fraîches à chaque
// appel : une *gocql.Query bindée n'est pas partageable entre goroutines,
// et gocql prépare puis met en cache les statements par texte de requête —
// reconstruire la Query ne re-prépare rien.

const (
	cqlOrderExists = "SELECT order_id FROM orders WHERE order_id = ?"

	cqlInsertTopupEntitlement = `INSERT INTO design_entitlements (owner_id, entitlement_id, product_id, design_id, purchased_design_id, source, order_id, order_item_id, export_quota, edit_quota, exports_used, edits_used, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`

	cqlPatchItemPreview   = "UPDATE order_items SET preview_snapshot = ? WHERE order_id = ? AND item_id = ?"
	cqlPatchDesignPreview = "UPDATE purchased_designs SET preview_url = ? WHERE owner_id = ? AND purchased_design_id = ?"
)

func ordersQuery(cql string) (*gocql.Query, error) {
	session, err := GetOrdersSession()
	if err != nil {
		return nil, err
	}
	return session.Query(cql), nil
}

// QueryOrderExists : existence d'une commande par id (chemin retry)
func QueryOrderExists() (*gocql.Query, error) {
	return ordersQuery(cqlOrderExists)
}

// QueryInsertTopupEntitlement : ligne d'entitlement top-up (LWT, append-only)
func QueryInsertTopupEntitlement() (*gocql.Query, error) {
	return ordersQuery(cqlInsertTopupEntitlement)
}

// QueryPatchItemPreview : patch post-commit du preview d'une ligne de commande
func QueryPatchItemPreview() (*gocql.Query, error) {
	return ordersQuery(cqlPatchItemPreview)
}

// QueryPatchDesignPreview : patch post-commit du preview d'un snapshot d'achat
func QueryPatchDesignPreview() (*gocql.Query, error) {
	return ordersQuery(cqlPatchDesignPreview)
}
