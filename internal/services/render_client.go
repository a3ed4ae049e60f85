package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// Client HTTP du service de rendu — lent et faillible par nature, il n'est
// appelé que depuis la phase post-commit, jamais pendant la construction
var renderHTTPClient = &http.Client{Timeout: 30 * time.Second}

type renderRequest struct {
	Style      string `json:"style,omitempty"`
	Defs       string `json:"defs,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
}

type renderResponse struct {
	URL string `json:"url"`
}

// RequestRender demande une image rendue au service de rendu externe à
// partir du style/defs d'un design (ou d'une URL de preview connue).
// Réponse : une URL stable, ou une erreur.
func RequestRender(ctx context.Context, style, defs, previewURL string) (string, error) {
	endpoint := os.Getenv("RENDER_API_URL")
	if endpoint == "" {
		return "", fmt.Errorf("RENDER_API_URL non configuré")
	}

	payload, err := json.Marshal(renderRequest{Style: style, Defs: defs, PreviewURL: previewURL})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/render", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if key := os.Getenv("RENDER_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	resp, err := renderHTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("service de rendu: statut %d", resp.StatusCode)
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.URL == "" {
		return "", fmt.Errorf("service de rendu: réponse sans URL")
	}

	return out.URL, nil
}
