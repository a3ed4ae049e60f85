package fulfillment

import (
	"testing"

	"atelia_back_end/internal/models"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProductID = "a58cb0b4-33cf-4602-a638-6b2ff21ce922"

func TestBuildOrderPlanSplitsBothVariants(t *testing.T) {
	// Une ligne à 19,99 € portant les deux variantes : deux lignes de
	// commande (999 / 1000) et deux entitlements, l'export seulement côté digital
	in := PlanInput{
		SessionID:   "cs_test_1",
		UserID:      "user-1",
		AmountTotal: 1999,
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       1999,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
			PrintVariantID:   "pv-1",
			CartItemID:       "ci-1",
		}},
	}

	plan := BuildOrderPlan(in)
	require.Len(t, plan.Items, 2)
	require.Len(t, plan.Entitlements, 2)
	require.Len(t, plan.Jobs, 2)

	byKind := map[string]models.OrderItem{}
	for _, item := range plan.Items {
		byKind[item.Kind] = item
	}
	assert.Equal(t, int64(999), byKind[models.KindDigital].UnitAmount)
	assert.Equal(t, int64(1000), byKind[models.KindPrint].UnitAmount)
	assert.Equal(t, in.AmountTotal, byKind[models.KindDigital].UnitAmount+byKind[models.KindPrint].UnitAmount)
	assert.Equal(t, "dv-1", byKind[models.KindDigital].VariantID)
	assert.Equal(t, "pv-1", byKind[models.KindPrint].VariantID)

	for _, ent := range plan.Entitlements {
		require.NotNil(t, ent.OrderItemID)
		if *ent.OrderItemID == byKind[models.KindDigital].ItemID {
			assert.Equal(t, DefaultExportQuota(), ent.ExportQuota)
		} else {
			assert.Zero(t, ent.ExportQuota)
		}
		assert.Equal(t, models.EntitlementSourcePurchase, ent.Source)
	}

	assert.Equal(t, []string{"ci-1"}, plan.CartItemIDs)
	assert.Equal(t, "user-1", plan.Order.OwnerKey())
	assert.Equal(t, models.OrderStatusCompleted, plan.Order.Status)
}

func TestBuildOrderPlanExplicitAmountsOverrideSplit(t *testing.T) {
	digital, print := int64(700), int64(1299)
	in := PlanInput{
		SessionID: "cs_test_2",
		GuestID:   "guest-1",
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       1999,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
			PrintVariantID:   "pv-1",
			DigitalAmount:    &digital,
			PrintAmount:      &print,
		}},
	}

	plan := BuildOrderPlan(in)
	require.Len(t, plan.Items, 2)

	amounts := map[string]int64{}
	for _, item := range plan.Items {
		amounts[item.Kind] = item.UnitAmount
	}
	assert.Equal(t, int64(700), amounts[models.KindDigital])
	assert.Equal(t, int64(1299), amounts[models.KindPrint])
}

func TestBuildOrderPlanDefaultsToPrint(t *testing.T) {
	// Métadonnées sans variante identifiable : la ligne part en PRINT,
	// jamais perdue silencieusement
	in := PlanInput{
		SessionID: "cs_test_3",
		UserID:    "user-1",
		Lines: []CanonicalLine{{
			Quantity:   1,
			UnitAmount: 500,
			ProductID:  testProductID,
		}},
	}

	plan := BuildOrderPlan(in)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, models.KindPrint, plan.Items[0].Kind)
	assert.Equal(t, int64(500), plan.Items[0].UnitAmount)
}

func TestBuildOrderPlanSkipsZeroAmountParts(t *testing.T) {
	// Total de 1 centime : la part digitale vaut 0 et ne crée pas de ligne
	in := PlanInput{
		SessionID: "cs_test_4",
		UserID:    "user-1",
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       1,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
			PrintVariantID:   "pv-1",
		}},
	}

	plan := BuildOrderPlan(in)
	require.Len(t, plan.Items, 1)
	assert.Equal(t, models.KindPrint, plan.Items[0].Kind)
	assert.Equal(t, int64(1), plan.Items[0].UnitAmount)
}

func TestBuildOrderPlanSnapshotsResolvedDesign(t *testing.T) {
	designID := gocql.UUID(uuid.New())
	design := &models.UserDesign{
		DesignID:   designID,
		OwnerID:    "user-1",
		Style:      `{"background":"#102030"}`,
		Defs:       `{"label":"Mon mug"}`,
		PreviewURL: "https://minio.local/previews/draft.png",
	}

	in := PlanInput{
		SessionID: "cs_test_5",
		UserID:    "user-1",
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       1500,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
			DesignID:         designID.String(),
		}},
		ResolveDesign: func(ownerID, productID, designIDParam string) *models.UserDesign {
			assert.Equal(t, "user-1", ownerID)
			assert.Equal(t, testProductID, productID)
			assert.Equal(t, designID.String(), designIDParam)
			return design
		},
	}

	plan := BuildOrderPlan(in)
	require.Len(t, plan.Items, 1)
	require.Len(t, plan.Snapshots, 1)
	require.Len(t, plan.Jobs, 1)

	snap := plan.Snapshots[0]
	assert.Equal(t, designID, snap.DesignID)
	assert.Equal(t, design.Style, snap.Style)
	assert.Equal(t, design.Defs, snap.Defs)
	assert.Equal(t, design.PreviewURL, snap.PreviewURL)
	assert.Equal(t, plan.Order.ID, snap.OrderID)

	item := plan.Items[0]
	require.NotNil(t, item.PurchasedDesignID)
	assert.Equal(t, snap.PurchasedDesignID, *item.PurchasedDesignID)
	assert.Equal(t, design.PreviewURL, item.PreviewSnapshot)

	job := plan.Jobs[0]
	require.NotNil(t, job.PurchasedDesignID)
	assert.Equal(t, design.Style, job.Style)
	assert.Equal(t, design.PreviewURL, job.FallbackPreview)

	ent := plan.Entitlements[0]
	require.NotNil(t, ent.DesignID)
	assert.Equal(t, designID, *ent.DesignID)
	require.NotNil(t, ent.PurchasedDesignID)
}

func TestBuildOrderPlanWithoutDesign(t *testing.T) {
	// Achat non personnalisé : pas de snapshot mais l'entitlement existe,
	// le preview retombe sur la vignette produit
	in := PlanInput{
		SessionID: "cs_test_6",
		GuestID:   "guest-1",
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       900,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
		}},
		ResolveDesign: func(ownerID, productID, designID string) *models.UserDesign { return nil },
		ProductPreview: func(productID string) string {
			return "https://minio.local/products/mug.png"
		},
	}

	plan := BuildOrderPlan(in)
	require.Len(t, plan.Items, 1)
	assert.Empty(t, plan.Snapshots)
	require.Len(t, plan.Entitlements, 1)

	assert.Nil(t, plan.Items[0].PurchasedDesignID)
	assert.Equal(t, "https://minio.local/products/mug.png", plan.Items[0].PreviewSnapshot)
	assert.Nil(t, plan.Entitlements[0].DesignID)
	assert.Equal(t, DefaultExportQuota(), plan.Entitlements[0].ExportQuota)
}

func TestBuildOrderPlanDerivesStableIdentifiers(t *testing.T) {
	// Tous les ids sont recalculables depuis la session : deux constructions
	// du même checkout produisent des lignes aux clés identiques
	in := PlanInput{
		SessionID:   "cs_stable_1",
		UserID:      "user-1",
		AmountTotal: 1999,
		Lines: []CanonicalLine{{
			Quantity:         1,
			UnitAmount:       1999,
			ProductID:        testProductID,
			DigitalVariantID: "dv-1",
			PrintVariantID:   "pv-1",
		}},
	}

	a := BuildOrderPlan(in)
	b := BuildOrderPlan(in)

	assert.Equal(t, OrderIDForSession("cs_stable_1"), a.Order.ID)
	assert.Equal(t, a.Order.ID, b.Order.ID)
	require.Len(t, b.Items, len(a.Items))
	for i := range a.Items {
		assert.Equal(t, a.Items[i].ItemID, b.Items[i].ItemID)
	}
	for i := range a.Entitlements {
		assert.Equal(t, a.Entitlements[i].EntitlementID, b.Entitlements[i].EntitlementID)
	}

	other := in
	other.SessionID = "cs_stable_2"
	c := BuildOrderPlan(other)
	assert.NotEqual(t, a.Order.ID, c.Order.ID)
	assert.NotEqual(t, a.Items[0].ItemID, c.Items[0].ItemID)
}

func TestDefaultExportQuotaEnvOverride(t *testing.T) {
	t.Setenv("ENTITLEMENT_EXPORTS_PER_PURCHASE", "12")
	assert.Equal(t, 12, DefaultExportQuota())

	t.Setenv("ENTITLEMENT_EXPORTS_PER_PURCHASE", "pas-un-nombre")
	assert.Equal(t, defaultExportQuota, DefaultExportQuota())
}
