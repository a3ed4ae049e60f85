package utils

import (
	"fmt"
	"log"
	"os"

	"atelia_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

func SendConfirmationEmail(to, subject, htmlBody string) error {
	msg := mail.NewMsg()

	from := os.Getenv("SMTP_FROM")
	if from == "" {
		from = "noreply@atelia.shop"
	}
	if err := msg.From(from); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// GenerateOrderConfirmationHTML génère le HTML de confirmation de commande,
// avec un QR vers le premier téléchargement si la commande en contient un
func GenerateOrderConfirmationHTML(order models.Order, items []models.OrderItem, downloadURL string) string {
	itemsHTML := ""
	for _, item := range items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%s</td>
				<td>%d</td>
				<td>%.2f€</td>
			</tr>`, item.ProductID, item.Kind, item.Quantity, float64(item.UnitAmount)/100)
	}

	qrHTML := ""
	if downloadURL != "" {
		if qr, err := GenerateDownloadQR(downloadURL); err == nil {
			qrHTML = fmt.Sprintf(`
		<p>Vos fichiers sont prêts — scannez pour télécharger :</p>
		<img src="%s" alt="QR téléchargement" width="180" height="180" />
		<p><a href="%s">Ou cliquez ici</a> (lien à durée limitée)</p>`, qr, downloadURL)
		}
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #333;">Confirmation de votre commande</h2>
		<p>Bonjour,</p>
		<p>Merci pour votre commande ! Voici le récapitulatif :</p>
		<table width="100%%" cellpadding="8" style="border-collapse: collapse;">
			<tr style="background-color: #f0f0f0;">
				<th align="left">Produit</th>
				<th align="left">Type</th>
				<th align="left">Qté</th>
				<th align="left">Prix</th>
			</tr>
			%s
		</table>
		<p style="font-size: 18px;"><strong>Total : %.2f€</strong></p>
		%s
		<p style="color: #888; font-size: 12px;">Commande %s</p>
	</div>
</body>
</html>`, itemsHTML, float64(order.AmountTotal)/100, qrHTML, order.ID)
}
