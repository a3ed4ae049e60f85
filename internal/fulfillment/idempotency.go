package fulfillment

import (
	"fmt"
	"time"

	"atelia_back_end/internal/database"
)

// markerStore est la primitive d'insertion conditionnelle derrière le
// registre d'idempotence. Une implémentation doit garantir que sous appels
// concurrents sur la même clé, un seul insert retourne true.
type markerStore interface {
	insert(key string, at time.Time) (bool, error)
	exists(key string) (bool, error)
}

var markers markerStore = scyllaMarkers{}

// scyllaMarkers porte le registre sur la table processed_events :
// l'insertion LWT EST le test-and-set, pas de lecture préalable.
type scyllaMarkers struct{}

func (scyllaMarkers) insert(key string, at time.Time) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, fmt.Errorf("connexion orders: %w", err)
	}

	prev := make(map[string]interface{})
	applied, err := session.Query(
		"INSERT INTO processed_events (event_key, claimed_at) VALUES (?, ?) IF NOT EXISTS",
		key, at,
	).MapScanCAS(prev)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return applied, nil
}

func (scyllaMarkers) exists(key string) (bool, error) {
	session, err := database.GetOrdersSession()
	if err != nil {
		return false, fmt.Errorf("connexion orders: %w", err)
	}

	var found string
	if err := session.Query("SELECT event_key FROM processed_events WHERE event_key = ?", key).Scan(&found); err != nil {
		return false, nil // absent → pas encore traité
	}
	return true, nil
}

// Claim tente de réclamer une clé d'idempotence par insertion atomique.
// Retourne true uniquement pour l'appelant qui a réellement inséré la
// ligne ; false pour tous les appels dupliqués/concurrents. Les lignes ne
// sont jamais supprimées ni modifiées.
func Claim(key string) (bool, error) {
	return markers.insert(key, time.Now())
}

// IsProcessed : lecture rapide du registre, pour court-circuiter les
// replays avant tout travail lourd. Ne remplace jamais Claim comme
// garde atomique.
func IsProcessed(key string) (bool, error) {
	return markers.exists(key)
}

// TopupKey construit la clé synthétique d'idempotence d'un top-up
func TopupKey(sessionID string) string {
	return "topup:" + sessionID
}
