// Package handlers implements the HTTP operations of one collection on top of
// the document store and the referential integrity engine.
package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/integrity"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/middleware"
	"github.com/mcrud/mcrud/internal/web/router"
)

// Integrity is the subset of the integrity engine the handlers drive
type Integrity interface {
	OnCreate(ctx context.Context, owner string, saved, submitted store.Document) integrity.Result
	OnPatch(ctx context.Context, owner string, changes store.Document, ownerID interface{}) (integrity.PatchPlan, []error)
	ApplyPatch(ctx context.Context, ownerID interface{}, plan integrity.PatchPlan) []error
	OnDelete(ctx context.Context, owner string, ownerID interface{}, deleted store.Document) integrity.Result
	Associate(ctx context.Context, owner string, ownerID interface{}, localKey string, ids []interface{}) integrity.Result
	Dissociate(ctx context.Context, owner string, ownerID interface{}, localKey string, ids []interface{}) integrity.Result
}

// Relations looks up relationships by owner collection and local key
type Relations interface {
	Lookup(owner, localKey string) (relationships.Relationship, bool)
}

// Handler serves the operations of one collection
type Handler struct {
	collection *schema.Collection
	relations  Relations
	store      store.Store
	integrity  Integrity
	logger     *zap.Logger
}

// New creates the handler of collection
func New(collection *schema.Collection, relations Relations, st store.Store, engine Integrity, logger *zap.Logger) *Handler {
	return &Handler{
		collection: collection,
		relations:  relations,
		store:      st,
		integrity:  engine,
		logger:     logger.With(zap.String("collection", collection.Plural)),
	}
}

// Handlers returns the handlers to register with the router
func (h *Handler) Handlers() router.ResourceHandlers {
	return router.ResourceHandlers{
		List:              h.List,
		GetByID:           h.GetByID,
		Post:              h.Post,
		Patch:             h.Patch,
		DeleteByID:        h.DeleteByID,
		GetRelation:       h.GetRelation,
		Associate:         h.Associate,
		DeleteAssociation: h.DeleteAssociation,
	}
}

func (h *Handler) key() string {
	return h.collection.Plural
}

// idParam returns the {id} path parameter coerced to the store id type
func idParam(r *http.Request) interface{} {
	return docid.Coerce(chi.URLParam(r, "id"))
}

func (h *Handler) requestLogger(r *http.Request) *zap.Logger {
	return h.logger.With(zap.String("request_id", middleware.GetRequestID(r.Context())))
}
