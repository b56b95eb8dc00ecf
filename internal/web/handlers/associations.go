package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/integrity"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/web/response"
)

type associationFunc func(ctx context.Context, owner string, ownerID interface{}, localKey string, ids []interface{}) integrity.Result

// Associate handles POST on a relation: the ids under the relation key of the
// body are linked to the document on both sides.
func (h *Handler) Associate(w http.ResponseWriter, r *http.Request) {
	h.association(w, r, h.integrity.Associate, "no record found", "successfully associated %d %s(%s) to %s with id %s")
}

// DeleteAssociation handles DELETE on a relation: the ids under the relation
// key of the body are unlinked from the document on both sides.
func (h *Handler) DeleteAssociation(w http.ResponseWriter, r *http.Request) {
	h.association(w, r, h.integrity.Dissociate, "no association found", "successfully removed %d %s(%s) from %s with id %s")
}

func (h *Handler) association(w http.ResponseWriter, r *http.Request, apply associationFunc, noneFound, success string) {
	localKey := chi.URLParam(r, "related")
	rel, ok := h.relations.Lookup(h.key(), localKey)
	if !ok {
		h.fail(w, r, fmt.Errorf("%w: %s.%s", relationships.ErrUnknownRelationship, h.collection.Name, localKey))
		return
	}

	body, err := decodeBody(w, r)
	if err != nil {
		response.RenderError(w, http.StatusBadRequest, msgBadBody, err)
		return
	}
	raw, ok := body[localKey]
	if !ok || raw == nil {
		response.RenderError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	result := apply(r.Context(), h.key(), idParam(r), localKey, docid.List(plain(raw)))
	if result.Document == nil {
		err := result.Err()
		switch {
		case errors.Is(err, integrity.ErrOwnerNotFound):
			response.RenderNotFound(w, h.ownerMissing(r))
		case errors.Is(err, integrity.ErrNoRelatedDocuments):
			response.RenderError(w, http.StatusBadRequest, noneFound)
		default:
			h.fail(w, r, err)
		}
		return
	}
	if !result.OK() {
		h.degraded(w, r, result.Document, result.Errors)
		return
	}

	response.RenderSuccess(w, result.Document, fmt.Sprintf(success,
		result.Count, localKey, rel.Target, h.collection.Name, chi.URLParam(r, "id")))
}
