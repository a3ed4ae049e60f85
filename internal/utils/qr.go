package utils

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

// GenerateDownloadQR génère le QR d'un lien de téléchargement en base64,
// prêt à mettre dans <img src="...">
func GenerateDownloadQR(downloadURL string) (string, error) {
	png, err := qrcode.Encode(downloadURL, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
