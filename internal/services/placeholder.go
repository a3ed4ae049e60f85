package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"time"

	"github.com/chromedp/chromedp"
)

// SynthesizePlaceholder rend localement un placeholder de preview à partir
// du style/defs d'un design : on construit une petite page HTML et on la
// capture en PNG via Chrome headless
func SynthesizePlaceholder(parent context.Context, style, defs string) ([]byte, error) {
	page := placeholderHTML(style, defs)
	dataURL := "data:text/html;base64," + base64.StdEncoding.EncodeToString([]byte(page))

	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	// timeout pour éviter de bloquer
	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(800, 800),
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.FullScreenshot(&buf, 90),
	)
	if err != nil {
		return nil, fmt.Errorf("capture placeholder: %w", err)
	}

	return buf, nil
}

// placeholderHTML construit la page de rendu à partir des paramètres de
// style du design. Les valeurs de style reconnues pilotent le fond et la
// couleur, le reste est affiché tel quel.
func placeholderHTML(style, defs string) string {
	background := "#f4f4f4"
	color := "#333333"
	label := ""

	var params map[string]string
	if json.Unmarshal([]byte(style), &params) == nil {
		if v := params["background"]; v != "" {
			background = v
		}
		if v := params["color"]; v != "" {
			color = v
		}
		label = params["label"]
	}

	body := html.EscapeString(label)
	if body == "" {
		body = "Aperçu en préparation"
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="margin:0;width:800px;height:800px;display:flex;align-items:center;justify-content:center;background:%s;">
	<div style="font-family:Arial,sans-serif;font-size:42px;color:%s;text-align:center;padding:40px;">%s</div>
	<!-- defs embarqués pour les rendus vectoriels -->
	<svg width="0" height="0"><defs>%s</defs></svg>
</body>
</html>`, background, color, body, defs)
}
