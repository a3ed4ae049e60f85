package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"atelia_back_end/internal/services"
	"atelia_back_end/internal/utils"

	"github.com/stripe/stripe-go/v83"
	checkoutsession "github.com/stripe/stripe-go/v83/checkout/session"
)

// HandleCheckoutCompleted : point d'entrée du pipeline pour un événement
// checkout.session.completed. Une erreur retournée signifie « rejoue-moi » :
// la couche webhook répond non-2xx et Stripe relivre l'événement. Tout le
// reste (duplicata, top-up invalide, job de rendu raté) est absorbé en no-op.
func HandleCheckoutCompleted(event stripe.Event) error {
	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return fmt.Errorf("décodage CheckoutSession: %w", err)
	}

	items, err := fetchSessionLineItems(sess.ID)
	if err != nil {
		return fmt.Errorf("line items session %s: %w", sess.ID, err)
	}

	// Flux sœur : achat de quota, pas de commande
	if IsTopupSession(&sess) {
		return ProcessTopupSession(&sess, items)
	}

	return processOrderSession(event.ID, &sess, items)
}

// processOrderSession déroule le protocole de cohérence d'une commande :
// registre d'idempotence → canonicalisation → construction bornée →
// phase post-commit best-effort (rendus, panier, tokens, e-mail, index).
func processOrderSession(eventID string, sess *stripe.CheckoutSession, items []*stripe.LineItem) error {
	if sess.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
		log.Printf("ℹ️ Session %s non payée (%s), ignorée", sess.ID, sess.PaymentStatus)
		return nil
	}

	// Erreur d'identité : aucun propriétaire → abandon avant toute écriture,
	// sûr à rejouer une fois les métadonnées corrigées en amont
	userID := sess.Metadata["userId"]
	guestID := sess.Metadata["guestId"]
	if userID == "" && guestID == "" {
		return fmt.Errorf("session %s: aucun propriétaire identifiable dans les métadonnées", sess.ID)
	}

	// Court-circuits du chemin de retry, avant tout travail lourd
	if done, _ := IsProcessed(eventID); done {
		log.Printf("🔁 Événement %s déjà traité, on ignore", eventID)
		return nil
	}
	if exists, err := OrderExistsForSession(sess.ID); err != nil {
		return fmt.Errorf("pré-check session %s: %w", sess.ID, err)
	} else if exists {
		log.Printf("🔁 Commande déjà enregistrée pour la session %s, on ignore", sess.ID)
		return nil
	}

	lines := CanonicalizeLineItems(items)
	if len(lines) == 0 {
		log.Printf("⚠️ Session %s sans line items, rien à construire", sess.ID)
		return nil
	}

	plan := BuildOrderPlan(PlanInput{
		SessionID:      sess.ID,
		UserID:         userID,
		GuestID:        guestID,
		AmountTotal:    sess.AmountTotal,
		Lines:          lines,
		ResolveDesign:  resolveDesign,
		ProductPreview: productPreview,
	})

	if err := SaveOrderPlan(context.Background(), plan); err != nil {
		if errors.Is(err, ErrAlreadyFulfilled) {
			return nil // livraison dupliquée, jamais remontée comme erreur
		}
		return err // échec transactionnel → le webhook signalera un retry
	}

	// Marque l'événement traité — simple court-circuit pour les replays,
	// l'ancre de session reste la garde atomique
	if _, err := Claim(eventID); err != nil {
		log.Printf("⚠️ Marqueur d'événement %s non écrit: %v", eventID, err)
	}

	email := sessionEmail(sess)
	if email == "" && userID != "" {
		email = userEmail(userID)
	}

	// Phase post-commit : la réponse webhook est déjà acquise, rien ici ne
	// doit bloquer ni faire échouer l'événement
	go postFulfillment(plan, email)

	return nil
}

// postFulfillment : jobs de rendu d'abord, puis nettoyage (succès ou échec
// des jobs confondus), puis notifications. Chaque étape est indépendante.
func postFulfillment(plan *OrderPlan, email string) {
	ctx := context.Background()

	RunRenderJobs(ctx, plan.Jobs)

	PruneCartLines(ctx, plan.Order.OwnerKey(), plan.CartItemIDs)

	items, err := orderItems(plan.Order.ID)
	if err != nil {
		log.Printf("⚠️ Relecture des lignes de la commande %v: %v", plan.Order.ID, err)
		items = plan.Items // fallback : lignes pré-rendu
	}

	tokens, err := IssueDownloadTokens(ctx, plan.Order, items)
	if err != nil {
		log.Printf("⚠️ Émission des tokens pour la commande %v: %v", plan.Order.ID, err)
	}

	// Indexation best-effort pour la recherche admin
	order := plan.Order
	order.Items = items
	services.IndexOrder(order)

	if email != "" {
		downloadURL := ""
		if len(tokens) > 0 {
			downloadURL = tokens[0].URL
		}
		html := utils.GenerateOrderConfirmationHTML(order, items, downloadURL)
		if err := utils.SendConfirmationEmail(email, "Confirmation de votre commande Atelia", html); err != nil {
			log.Println("❌ Erreur envoi e-mail confirmation :", err)
		} else {
			log.Println("📧 E-mail de confirmation envoyé à", email)
		}
	}
}

// fetchSessionLineItems récupère la liste paginée des line items d'une
// session, avec les métadonnées prix + produit développées
func fetchSessionLineItems(sessionID string) ([]*stripe.LineItem, error) {
	params := &stripe.CheckoutSessionListLineItemsParams{
		Session: stripe.String(sessionID),
	}
	params.AddExpand("data.price.product")

	var items []*stripe.LineItem
	iter := checkoutsession.ListLineItems(params)
	for iter.Next() {
		items = append(items, iter.LineItem())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func sessionEmail(sess *stripe.CheckoutSession) string {
	if sess.CustomerDetails != nil && sess.CustomerDetails.Email != "" {
		return sess.CustomerDetails.Email
	}
	return sess.Metadata["email"]
}
