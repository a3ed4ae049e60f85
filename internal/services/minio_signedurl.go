package services

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"atelia_back_end/internal/database"
)

// GenerateSignedURL génère une URL signée à expiration pour un objet du
// bucket. Accepte indifféremment une clé objet ou une URL complète (on ne
// garde que le chemin relatif au bucket).
func GenerateSignedURL(ctx context.Context, objectPath string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	bucket := os.Getenv("MINIO_BUCKET")
	reqParams := make(url.Values)

	// Nettoie l'URL complète pour ne garder que la clé objet
	key := objectPath
	if idx := strings.Index(key, "/"+bucket+"/"); idx >= 0 {
		key = key[idx+len(bucket)+2:]
	}

	presignedURL, err := database.MinIO.PresignedGetObject(ctx, bucket, key, duration, reqParams)
	if err != nil {
		return "", err
	}

	return presignedURL.String(), nil
}
