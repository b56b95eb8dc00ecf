package integrity

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/store"
)

// association is everything Associate and Dissociate validate before writing
type association struct {
	rel      relationships.Relationship
	typ      relationships.Type
	ownerID  interface{}
	ownerDoc store.Document
	related  []interface{}
}

// prepare validates the relationship, the owner and the proposed ids in that
// order. Nothing has been written when it returns an error.
func (e *Engine) prepare(ctx context.Context, owner string, ownerID interface{}, localKey string, ids []interface{}) (*association, error) {
	rel, ok := e.registry.Lookup(owner, localKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", relationships.ErrUnknownRelationship, owner, localKey)
	}

	t, err := e.registry.ResolveType(rel)
	if err != nil {
		return nil, relationshipErr(rel, err)
	}

	ownerDoc, err := e.loadOwner(ctx, owner, ownerID)
	if err != nil {
		return nil, err
	}

	related, err := e.existing(ctx, rel.Target, Normalize(ids))
	if err != nil {
		return nil, relationshipErr(rel, err)
	}
	if len(related) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRelatedDocuments, rel.Target)
	}

	return &association{
		rel:      rel,
		typ:      t,
		ownerID:  documentID(ownerDoc),
		ownerDoc: ownerDoc,
		related:  keepFirst(rel, related),
	}, nil
}

// Associate links the owner to the related documents named by ids on both sides
func (e *Engine) Associate(ctx context.Context, owner string, ownerID interface{}, localKey string, ids []interface{}) Result {
	ctx, cancel := e.actionContext(ctx)
	defer cancel()

	a, err := e.prepare(ctx, owner, ownerID, localKey, ids)
	if err != nil {
		return failed(err)
	}

	n, err := e.store.UpdateMany(ctx, a.rel.Target, store.ByIDs(a.related),
		addReference(a.typ, a.rel.ForeignKey, a.ownerID))
	if err != nil {
		return failed(storeErr(a.rel.Target, "updateMany", err))
	}

	var errs []error
	current := Normalize(a.ownerDoc[a.rel.LocalKey])

	switch a.typ {
	case relationships.OneToMany:
		if err := e.releasePrevious(ctx, owner, a.rel.LocalKey, a.ownerID, a.related); err != nil {
			errs = append(errs, err)
		}
		a.ownerDoc[a.rel.LocalKey] = Union(current, a.related)
	case relationships.ManyToOne:
		// the owner holds one id: the previous target no longer lists it
		if stale := Difference(current, a.related); len(stale) > 0 {
			if _, err := e.store.UpdateMany(ctx, a.rel.Target, store.ByIDs(stale),
				removeReference(a.typ, a.rel.ForeignKey, a.ownerID)); err != nil {
				errs = append(errs, storeErr(a.rel.Target, "updateMany", err))
			}
		}
		a.ownerDoc[a.rel.LocalKey] = a.related[0]
	default:
		a.ownerDoc[a.rel.LocalKey] = Union(current, a.related)
	}

	if err := e.store.Save(ctx, owner, a.ownerDoc); err != nil {
		errs = append(errs, storeErr(owner, "save", err))
	}

	e.logger.Debug("associated documents",
		zap.String("collection", owner),
		zap.String("id", docid.Key(a.ownerID)),
		zap.String("field", localKey),
		zap.Int64("count", n))

	return Result{Document: a.ownerDoc, Count: n, Errors: errs}
}

// Dissociate unlinks the owner from the related documents named by ids on both sides
func (e *Engine) Dissociate(ctx context.Context, owner string, ownerID interface{}, localKey string, ids []interface{}) Result {
	ctx, cancel := e.actionContext(ctx)
	defer cancel()

	a, err := e.prepare(ctx, owner, ownerID, localKey, ids)
	if err != nil {
		return failed(err)
	}

	// only related documents that reference the owner are unlinked
	n, err := e.store.UpdateMany(ctx, a.rel.Target, linkedTo(a.related, a.rel.ForeignKey, a.ownerID),
		removeReference(a.typ, a.rel.ForeignKey, a.ownerID))
	if err != nil {
		return failed(storeErr(a.rel.Target, "updateMany", err))
	}

	current := Normalize(a.ownerDoc[a.rel.LocalKey])
	switch a.typ {
	case relationships.ManyToOne:
		if len(current) > 0 && Contains(a.related, current[0]) {
			a.ownerDoc[a.rel.LocalKey] = nil
		}
	default:
		a.ownerDoc[a.rel.LocalKey] = Difference(current, a.related)
	}

	var errs []error
	if err := e.store.Save(ctx, owner, a.ownerDoc); err != nil {
		errs = append(errs, storeErr(owner, "save", err))
	}

	e.logger.Debug("dissociated documents",
		zap.String("collection", owner),
		zap.String("id", docid.Key(a.ownerID)),
		zap.String("field", localKey),
		zap.Int64("count", n))

	return Result{Document: a.ownerDoc, Count: n, Errors: errs}
}
