package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/query"
	"github.com/mcrud/mcrud/internal/web/response"
)

const msgNotFound = "Data not found"

// List handles GET on the collection
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(r, h.key())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	docs, err := h.store.Find(r.Context(), h.key(), params.FilterFor(h.key()), store.FindOptions{
		Projection: projection(params.FieldsFor(h.key())),
		Sort:       params.Sort,
		Skip:       params.Skip,
		Limit:      params.Limit,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.populate(r.Context(), h.key(), h.key(), docs, params, 0); err != nil {
		h.fail(w, r, err)
		return
	}

	response.RenderSuccess(w, docs, "")
}

// GetByID handles GET on a single document. A missing document is not an
// error: data is null and the message says so.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	params, err := query.Parse(r, h.key())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	docs, err := h.store.Find(r.Context(), h.key(), bson.M{store.IDField: idParam(r)}, store.FindOptions{
		Projection: projection(params.FieldsFor(h.key())),
		Limit:      1,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(docs) == 0 {
		response.RenderSuccess(w, nil, msgNotFound)
		return
	}

	if err := h.populate(r.Context(), h.key(), h.key(), docs, params, 0); err != nil {
		h.fail(w, r, err)
		return
	}

	response.RenderSuccess(w, docs[0], "")
}

// GetRelation handles GET on the documents referenced by one relation of a
// document. Query parameters address the related documents.
func (h *Handler) GetRelation(w http.ResponseWriter, r *http.Request) {
	localKey := chi.URLParam(r, "related")
	rel, ok := h.relations.Lookup(h.key(), localKey)
	if !ok {
		h.fail(w, r, fmt.Errorf("%w: %s.%s", relationships.ErrUnknownRelationship, h.collection.Name, localKey))
		return
	}

	params, err := query.Parse(r, localKey)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	owner, err := h.store.FindByID(r.Context(), h.key(), idParam(r))
	if errors.Is(err, store.ErrNotFound) {
		response.RenderNotFound(w, h.ownerMissing(r))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	related := make([]store.Document, 0)
	if ids := docid.List(owner[localKey]); len(ids) > 0 {
		related, err = h.store.Find(r.Context(), rel.Target, withIDs(ids, params.FilterFor(localKey)), store.FindOptions{
			Projection: projection(params.FieldsFor(localKey)),
			Sort:       params.Sort,
			Skip:       params.Skip,
			Limit:      params.Limit,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
	}

	if err := h.populate(r.Context(), rel.Target, localKey, related, params, 0); err != nil {
		h.fail(w, r, err)
		return
	}

	if rel.OwnerCardinality == schema.One {
		if len(related) == 0 {
			response.RenderSuccess(w, nil, "")
			return
		}
		response.RenderSuccess(w, related[0], "")
		return
	}
	response.RenderSuccess(w, related, "")
}

func (h *Handler) ownerMissing(r *http.Request) string {
	return fmt.Sprintf("%s with id %s does not exist.", h.collection.Name, chi.URLParam(r, "id"))
}

// fail renders err and logs it when it is a server error
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if response.StatusFor(err) >= http.StatusInternalServerError {
		h.requestLogger(r).Error("request failed", zap.Error(err))
	}
	response.RenderFailure(w, err)
}
