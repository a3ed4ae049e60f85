package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProductFirstPreview(t *testing.T) {
	p := Product{ImageURLs: []string{"https://minio.local/products/mug-front.png", "https://minio.local/products/mug-back.png"}}
	assert.Equal(t, "https://minio.local/products/mug-front.png", p.FirstPreview())

	assert.Empty(t, Product{}.FirstPreview())
}
