package services

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"atelia_back_end/internal/database"

	"github.com/minio/minio-go/v7"
)

// UploadPreview pousse une image de preview rendue dans le bucket et
// retourne son URL publique
func UploadPreview(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	bucket := os.Getenv("MINIO_BUCKET")
	_, err := database.MinIO.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}

	scheme := "http"
	if os.Getenv("MINIO_USE_SSL") == "true" {
		scheme = "https"
	}

	url := fmt.Sprintf("%s://%s/%s/%s", scheme, os.Getenv("MINIO_ENDPOINT"), bucket, key)
	return url, nil
}
