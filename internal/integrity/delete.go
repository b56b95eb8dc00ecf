package integrity

import (
	"context"
	"sync/atomic"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/store"
)

// OnDelete clears every reference to a deleted document from the collections
// it was related to. A relationship whose type cannot be resolved is recorded
// as an error rather than skipped. The deleted document is always returned.
func (e *Engine) OnDelete(ctx context.Context, owner string, ownerID interface{}, deleted store.Document) Result {
	id := docid.Coerce(ownerID)

	var (
		touched int64
		tasks   []task
	)

	for _, rel := range e.registry.ForOwner(owner) {
		rel := rel
		tasks = append(tasks, func(ctx context.Context) error {
			t, err := e.registry.ResolveType(rel)
			if err != nil {
				return relationshipErr(rel, err)
			}

			n, err := e.store.UpdateMany(ctx, rel.Target,
				bson.M{rel.ForeignKey: id},
				removeReference(t, rel.ForeignKey, id))
			if err != nil {
				return relationshipErr(rel, storeErr(rel.Target, "updateMany", err))
			}
			atomic.AddInt64(&touched, n)
			return nil
		})
	}

	errs := e.run(ctx, tasks)
	if len(errs) > 0 {
		e.logger.Warn("integrity errors after delete",
			zap.String("collection", owner),
			zap.String("id", docid.Key(id)),
			zap.Errors("errors", errs))
	}

	return Result{Document: deleted, Count: atomic.LoadInt64(&touched), Errors: errs}
}
