package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/integrity"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/response"
)

const (
	msgBadBody      = "Bad Request. Wrong or missing fields."
	msgAssociations = "Error related to associations"
	msgUpdated      = "document updated"
	msgDeleted      = "record deleted"
)

// Post handles POST on the collection. Undeclared body fields are dropped.
func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		response.RenderError(w, http.StatusBadRequest, msgBadBody, err)
		return
	}

	doc, err := documentFrom(h.collection.Descriptor, body)
	if err != nil {
		response.RenderError(w, http.StatusBadRequest, msgBadBody, err)
		return
	}
	if missing := missingRequired(h.collection.Descriptor, doc); len(missing) > 0 {
		response.RenderError(w, http.StatusBadRequest, msgBadBody, missing...)
		return
	}

	saved, err := h.store.Insert(r.Context(), h.key(), doc)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := h.integrity.OnCreate(r.Context(), h.key(), saved, doc)
	if !result.OK() {
		h.degraded(w, r, result.Document, result.Errors)
		return
	}

	response.RenderSuccess(w, result.Document, fmt.Sprintf("new %s created", h.collection.Name))
}

// Patch handles PATCH on a single document. Reference changes are validated
// before anything is written; the back-references follow the update.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody(w, r)
	if err != nil {
		response.RenderError(w, http.StatusBadRequest, msgBadBody, err)
		return
	}

	changes, err := documentFrom(h.collection.Descriptor, body)
	if err != nil {
		response.RenderError(w, http.StatusBadRequest, msgBadBody, err)
		return
	}
	if len(changes) == 0 {
		response.RenderError(w, http.StatusBadRequest, msgBadBody)
		return
	}

	id := idParam(r)
	plan, errs := h.integrity.OnPatch(r.Context(), h.key(), changes, id)
	if len(errs) > 0 {
		if containsErr(errs, integrity.ErrOwnerNotFound) {
			response.RenderNotFound(w, h.ownerMissing(r))
			return
		}
		h.requestLogger(r).Error("patch rejected", zap.Errors("errors", errs))
		response.RenderError(w, http.StatusInternalServerError, msgAssociations, errs...)
		return
	}

	n, err := h.store.UpdateMany(r.Context(), h.key(), bson.M{store.IDField: id}, bson.M{"$set": changes})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if n == 0 {
		response.RenderNotFound(w, h.ownerMissing(r))
		return
	}

	updated, err := h.store.FindByID(r.Context(), h.key(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if errs := h.integrity.ApplyPatch(r.Context(), id, plan); len(errs) > 0 {
		h.degraded(w, r, updated, errs)
		return
	}

	response.RenderSuccess(w, updated, msgUpdated)
}

// DeleteByID handles DELETE on a single document and clears every reference
// to it. Deleting a missing document is not an error.
func (h *Handler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	id := idParam(r)
	deleted, err := h.store.DeleteByID(r.Context(), h.key(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.RenderSuccess(w, nil, msgNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result := h.integrity.OnDelete(r.Context(), h.key(), id, deleted)
	if !result.OK() {
		h.degraded(w, r, result.Document, result.Errors)
		return
	}

	response.RenderSuccess(w, result.Document, msgDeleted)
}

// degraded reports a write that was persisted while part of the reference
// maintenance failed
func (h *Handler) degraded(w http.ResponseWriter, r *http.Request, doc store.Document, errs []error) {
	h.requestLogger(r).Warn("write persisted with integrity errors", zap.Errors("errors", errs))
	response.RenderDegraded(w, doc, msgAssociations, errs)
}

func containsErr(errs []error, target error) bool {
	for _, err := range errs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
