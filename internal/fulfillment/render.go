package fulfillment

import (
	"context"
	"fmt"
	"log"

	"atelia_back_end/internal/database"
	"atelia_back_end/internal/services"
)

// RunRenderJobs traite les descripteurs de rendu après le commit de la
// commande. Chaque job est indépendant : un échec est loggé et absorbé,
// jamais propagé — la commande reste entièrement valide avec son preview
// de fallback. C'est la frontière de cohérence éventuelle du pipeline :
// l'argent et les quotas sont garantis en synchrone, le polish d'image
// seulement en best-effort.
func RunRenderJobs(ctx context.Context, jobs []RenderJob) {
	for _, job := range jobs {
		if err := runRenderJob(ctx, job); err != nil {
			log.Printf("⚠️ Job de rendu échoué (commande %v, ligne %v): %v — fallback conservé", job.OrderID, job.OrderItemID, err)
		}
	}
}

func runRenderJob(ctx context.Context, job RenderJob) (err error) {
	// Un job ne doit jamais laisser échapper une panique hors de sa frontière
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panique dans le job de rendu: %v", r)
		}
	}()

	rendered, err := renderPreview(ctx, job)
	if err != nil {
		return err
	}
	if !ShouldUpgradePreview(job.FallbackPreview, rendered) {
		return nil
	}

	return patchPreviews(job, rendered)
}

// renderPreview produit le préview final : service de rendu externe d'abord,
// sinon synthèse locale d'un placeholder depuis le style/defs du design,
// uploadé sur MinIO
func renderPreview(ctx context.Context, job RenderJob) (string, error) {
	url, err := services.RequestRender(ctx, job.Style, job.Defs, job.FallbackPreview)
	if err == nil && url != "" {
		return url, nil
	}
	if err != nil {
		log.Printf("ℹ️ Service de rendu indisponible (%v), synthèse locale", err)
	}

	if job.Style == "" && job.Defs == "" {
		// achat non personnalisé sans style : rien à synthétiser
		return "", fmt.Errorf("aucune source de rendu disponible")
	}

	png, err := services.SynthesizePlaceholder(ctx, job.Style, job.Defs)
	if err != nil {
		return "", fmt.Errorf("synthèse placeholder: %w", err)
	}

	key := fmt.Sprintf("previews/%s/%s.png", job.OrderID, job.OrderItemID)
	return services.UploadPreview(ctx, key, png, "image/png")
}

// ShouldUpgradePreview : un preview ne transitionne qu'une fois,
// fallback → rendu, et ne revient jamais en arrière
func ShouldUpgradePreview(current, candidate string) bool {
	return candidate != "" && candidate != current
}

// patchPreviews écrit le preview rendu sur la ligne de commande et le
// snapshot d'achat, en petites écritures séparées de la construction —
// un échec ici ne peut pas toucher l'état financier déjà commité
func patchPreviews(job RenderJob, rendered string) error {
	query, err := database.QueryPatchItemPreview()
	if err != nil {
		return err
	}
	if err := query.Bind(rendered, job.OrderID, job.OrderItemID).Exec(); err != nil {
		return fmt.Errorf("patch preview ligne %v: %w", job.OrderItemID, err)
	}

	if job.PurchasedDesignID != nil {
		query, err := database.QueryPatchDesignPreview()
		if err != nil {
			return err
		}
		if err := query.Bind(rendered, job.OwnerID, *job.PurchasedDesignID).Exec(); err != nil {
			return fmt.Errorf("patch preview snapshot %v: %w", *job.PurchasedDesignID, err)
		}
	}

	log.Printf("🖼️ Preview rendu appliqué (commande %v, ligne %v)", job.OrderID, job.OrderItemID)
	return nil
}
