package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	"github.com/noah-isme/backoffice-authz/internal/service"
	"github.com/noah-isme/backoffice-authz/pkg/delta"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
)

// Delivery is one approved request handed to a handler.
type Delivery struct {
	Request models.AuthorizationRequest
	Fields  descriptor.Fields
}

// Handler applies the mutation carried by an approved request. Handlers
// may run more than once for the same request and must converge.
type Handler interface {
	Handle(ctx context.Context, d Delivery) error
}

// HandlerFunc allows using plain functions.
type HandlerFunc func(ctx context.Context, d Delivery) error

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, d Delivery) error {
	return f(ctx, d)
}

// Registry maps action keys to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register binds h to actionKey, replacing any previous handler.
func (r *Registry) Register(actionKey string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[actionKey] = h
}

// Lookup returns the handler for actionKey.
func (r *Registry) Lookup(actionKey string) (Handler, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[actionKey]
	return h, ok
}

// Keys lists registered action keys.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.handlers))
	for k := range r.handlers {
		keys = append(keys, k)
	}
	return keys
}

// ApplyHandler turns a delivery into a planned mutation for one catalogued
// action and hands it to an applier.
type ApplyHandler struct {
	spec    permissions.ActionSpec
	applier service.MutationApplier
	logger  *zap.Logger
}

// NewApplyHandler binds applier to spec.
func NewApplyHandler(spec permissions.ActionSpec, applier service.MutationApplier, logger *zap.Logger) *ApplyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplyHandler{spec: spec, applier: applier, logger: logger}
}

// NewDeleteHandler deletes the referenced record if it still exists.
func NewDeleteHandler(spec permissions.ActionSpec, docs service.DocumentStore, logger *zap.Logger) *ApplyHandler {
	return NewApplyHandler(spec, service.NewDeleteApplier(docs), logger)
}

// NewMergePatchHandler merges the carried delta into the referenced record.
func NewMergePatchHandler(spec permissions.ActionSpec, docs service.DocumentStore, logger *zap.Logger) *ApplyHandler {
	return NewApplyHandler(spec, service.NewMergePatchApplier(docs), logger)
}

// NewFixedPatchHandler merges spec.FixedPatch into the referenced record.
func NewFixedPatchHandler(spec permissions.ActionSpec, docs service.DocumentStore, logger *zap.Logger) *ApplyHandler {
	return NewApplyHandler(spec, service.NewFixedPatchApplier(docs, spec.FixedPatch), logger)
}

// NewInsertHandler inserts the carried body under the pre-assigned id.
func NewInsertHandler(spec permissions.ActionSpec, docs service.DocumentStore, logger *zap.Logger) *ApplyHandler {
	return NewApplyHandler(spec, service.NewInsertApplier(docs), logger)
}

// Handle implements Handler.
func (h *ApplyHandler) Handle(ctx context.Context, d Delivery) error {
	planned := models.PlannedMutation{
		TenantID:   d.Request.TenantID,
		ActionKey:  h.spec.Key,
		Collection: h.spec.Collection,
		RecordID:   recordID(d.Fields),
		Patch:      d.Fields.Delta,
	}
	change, err := h.applier.Apply(ctx, planned)
	if err != nil {
		return err
	}
	h.logChange(d, planned, change)
	return nil
}

func (h *ApplyHandler) logChange(d Delivery, planned models.PlannedMutation, change *models.DocumentChange) {
	fields := []zap.Field{
		zap.String("request_id", d.Request.ID),
		zap.String("protocol_id", d.Request.ProtocolID),
		zap.String("action_key", planned.ActionKey),
		zap.String("record_id", planned.RecordID),
	}
	if change == nil || (len(change.Before) == 0 && len(change.After) == 0) {
		h.logger.Info("approved mutation already in effect", fields...)
		return
	}
	if reverse, err := delta.Reverse(change.Before, change.After); err == nil {
		if raw, err := json.Marshal(reverse); err == nil {
			fields = append(fields, zap.Int("changed_paths", len(reverse)), zap.ByteString("reverse_patch", raw))
		}
	}
	h.logger.Info("approved mutation applied", fields...)
}

// recordID prefers REAL_ID and falls back to the historical "ID: #xxxxx" token.
func recordID(f descriptor.Fields) string {
	if f.RealID != "" {
		return f.RealID
	}
	return strings.TrimPrefix(strings.TrimSpace(f.LegacyID), "#")
}

// RegistryFromCatalog registers a handler for every dual-controlled action
// in the catalogue.
func RegistryFromCatalog(docs service.DocumentStore, logger *zap.Logger) (*Registry, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := NewRegistry()
	for _, spec := range permissions.Catalog() {
		if !spec.Gated() {
			continue
		}
		var h Handler
		switch spec.Kind {
		case permissions.KindDelete:
			h = NewDeleteHandler(spec, docs, logger)
		case permissions.KindMergePatch:
			h = NewMergePatchHandler(spec, docs, logger)
		case permissions.KindFixedPatch:
			h = NewFixedPatchHandler(spec, docs, logger)
		case permissions.KindInsert:
			h = NewInsertHandler(spec, docs, logger)
		default:
			return nil, fmt.Errorf("action %s: unsupported kind %q", spec.Key, spec.Kind)
		}
		registry.Register(spec.Key, h)
	}
	logger.Debug("delivery handlers registered", zap.Strings("actions", registry.Keys()))
	return registry, nil
}
