package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/store"
	"github.com/mcrud/mcrud/internal/web/query"
)

// maxIncludeDepth is how many levels below the requested documents include reaches
const maxIncludeDepth = 2

// populate replaces the reference ids of docs with the documents they point
// at, for every relation key included at path. owner is the collection docs
// belong to. Referenced documents that do not match the per-key filter are
// dropped from the result.
func (h *Handler) populate(ctx context.Context, owner, path string, docs []store.Document, params *query.Params, depth int) error {
	if len(docs) == 0 || depth >= maxIncludeDepth {
		return nil
	}

	for _, localKey := range params.IncludeFor(path) {
		rel, ok := h.relations.Lookup(owner, localKey)
		if !ok {
			continue
		}

		var ids []interface{}
		for _, doc := range docs {
			ids = append(ids, docid.List(doc[localKey])...)
		}
		if len(ids) == 0 {
			continue
		}

		key := relatedPath(path, localKey, params.Root)
		related, err := h.store.Find(ctx, rel.Target,
			withIDs(ids, params.FilterFor(key)),
			store.FindOptions{Projection: projection(params.FieldsFor(key))})
		if err != nil {
			return err
		}

		if err := h.populate(ctx, rel.Target, key, related, params, depth+1); err != nil {
			return err
		}

		byID := make(map[string]store.Document, len(related))
		for _, doc := range related {
			byID[docid.Key(doc[store.IDField])] = doc
		}

		for _, doc := range docs {
			if _, ok := doc[localKey]; !ok {
				continue
			}
			if rel.OwnerCardinality == schema.One {
				if found, ok := byID[docid.Key(doc[localKey])]; ok {
					doc[localKey] = found
				} else {
					doc[localKey] = nil
				}
				continue
			}
			populated := make([]interface{}, 0)
			for _, id := range docid.List(doc[localKey]) {
				if found, ok := byID[docid.Key(id)]; ok {
					populated = append(populated, found)
				}
			}
			doc[localKey] = populated
		}
	}

	return nil
}

// relatedPath is the parameter key of localKey reached from path, e.g.
// "author" from the root and "author.posts" one level below
func relatedPath(path, localKey, root string) string {
	if path == root {
		return localKey
	}
	return path + "." + localKey
}

// withIDs restricts predicate to the documents whose id is in ids
func withIDs(ids []interface{}, predicate bson.M) bson.M {
	if len(predicate) == 0 {
		return store.ByIDs(ids)
	}
	return bson.M{"$and": bson.A{store.ByIDs(ids), predicate}}
}

func projection(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	return fields
}
