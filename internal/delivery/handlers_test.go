package delivery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

func TestRegistryFromCatalogCoversGatedActions(t *testing.T) {
	registry, err := RegistryFromCatalog(newDocBook(), nil)
	require.NoError(t, err)

	gated := 0
	for _, spec := range permissions.Catalog() {
		_, ok := registry.Lookup(spec.Key)
		assert.Equal(t, spec.Gated(), ok, spec.Key)
		if spec.Gated() {
			gated++
		}
	}
	assert.Len(t, registry.Keys(), gated)
	_, ok := registry.Lookup(permissions.ActionCreateMaterial)
	assert.False(t, ok)
}

func delivery(tenantID, label string) Delivery {
	return Delivery{
		Request: models.AuthorizationRequest{ID: "r1", ProtocolID: "REQ-00001", TenantID: strPtr(tenantID), ActionLabel: label},
		Fields:  descriptor.Decode(label),
	}
}

func TestMergePatchHandlerLogsReversePatch(t *testing.T) {
	docs := newDocBook()
	docs.put(strPtr("company-1"), permissions.CollectionMaterials, "mat-1", `{"name":"Cobre","current_stock":10}`)
	spec, _ := permissions.Lookup(permissions.ActionStockEdit)
	core, logs := observer.New(zap.InfoLevel)
	h := NewMergePatchHandler(spec, docs, zap.New(core))

	label := descriptor.Encode(descriptor.Descriptor{Operation: spec.Operation, RealID: "mat-1", Delta: []byte(`{"current_stock":15}`)})
	require.NoError(t, h.Handle(context.Background(), delivery("company-1", label)))

	body, _ := docs.body(strPtr("company-1"), permissions.CollectionMaterials, "mat-1")
	assert.JSONEq(t, `{"name":"Cobre","current_stock":15}`, body)

	entries := logs.FilterMessage("approved mutation applied").All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "REQ-00001", ctx["protocol_id"])
	assert.Contains(t, ctx["reverse_patch"], `"value":10`)
}

func TestDeleteHandlerAcceptsLegacyReference(t *testing.T) {
	docs := newDocBook()
	docs.put(strPtr("company-1"), permissions.CollectionBanks, "abc12", `{"name":"Banco Azul"}`)
	spec, _ := permissions.Lookup(permissions.ActionDeleteBank)
	h := NewDeleteHandler(spec, docs, nil)

	d := delivery("company-1", "ID: #abc12")
	require.True(t, d.Fields.Legacy)
	require.NoError(t, h.Handle(context.Background(), d))
	require.NoError(t, h.Handle(context.Background(), d))

	_, exists := docs.body(strPtr("company-1"), permissions.CollectionBanks, "abc12")
	assert.False(t, exists)
	assert.Equal(t, 1, docs.deletes)
}

func TestFixedPatchHandlerUsesCatalogPatch(t *testing.T) {
	docs := newDocBook()
	docs.put(strPtr("company-1"), permissions.CollectionCashierSessions, "sess-1", `{"closing_authorized":false}`)
	spec, _ := permissions.Lookup(permissions.ActionCloseCashier)
	h := NewFixedPatchHandler(spec, docs, nil)

	label := descriptor.Encode(descriptor.Descriptor{Operation: spec.Operation, RealID: "sess-1", Delta: []byte(`{"closing_authorized":false}`)})
	require.NoError(t, h.Handle(context.Background(), delivery("company-1", label)))

	body, _ := docs.body(strPtr("company-1"), permissions.CollectionCashierSessions, "sess-1")
	assert.JSONEq(t, `{"closing_authorized":true}`, body)
}

func TestHandlerWithoutRecordIsPermanentFailure(t *testing.T) {
	spec, _ := permissions.Lookup(permissions.ActionStockEdit)
	h := NewMergePatchHandler(spec, newDocBook(), nil)

	err := h.Handle(context.Background(), delivery("company-1", "OP: Edição de Material | CTX: Estoque | DET: - | VAL: -"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
	assert.True(t, permanent(err))
}
