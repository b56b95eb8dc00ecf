package integrity

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/store"
)

// OnCreate links a freshly saved document to the documents it references.
// Referenced documents get the back-reference; ids that do not exist are
// trimmed from the saved document, which is then saved again.
func (e *Engine) OnCreate(ctx context.Context, owner string, saved, submitted store.Document) Result {
	ownerID := documentID(saved)

	var (
		mu          sync.Mutex
		corrections = make(map[string]interface{})
		tasks       []task
	)

	for _, rel := range e.registry.ForOwner(owner) {
		rel := rel
		raw, ok := submitted[rel.LocalKey]
		if !ok || raw == nil {
			continue
		}

		tasks = append(tasks, func(ctx context.Context) error {
			t, err := e.registry.ResolveType(rel)
			if err != nil {
				return relationshipErr(rel, err)
			}

			requested := Normalize(raw)
			found, err := e.existing(ctx, rel.Target, requested)
			if err != nil {
				return relationshipErr(rel, err)
			}
			found = keepFirst(rel, found)

			if len(found) > 0 {
				if _, err := e.store.UpdateMany(ctx, rel.Target, store.ByIDs(found),
					addReference(t, rel.ForeignKey, ownerID)); err != nil {
					return relationshipErr(rel, storeErr(rel.Target, "updateMany", err))
				}
				if t == relationships.OneToMany {
					if err := e.releasePrevious(ctx, owner, rel.LocalKey, ownerID, found); err != nil {
						return relationshipErr(rel, err)
					}
				}
			}

			// duplicates and unknown ids are both dropped from the stored value
			if len(found) < len(docid.List(raw)) {
				mu.Lock()
				corrections[rel.LocalKey] = ownerValue(rel, found)
				mu.Unlock()
			}
			return nil
		})
	}

	errs := e.run(ctx, tasks)

	if len(corrections) > 0 {
		for key, value := range corrections {
			saved[key] = value
		}
		if err := e.store.Save(ctx, owner, saved); err != nil {
			errs = append(errs, storeErr(owner, "save", err))
		}
		e.logger.Debug("trimmed unknown references",
			zap.String("collection", owner),
			zap.String("id", docid.Key(ownerID)),
			zap.Int("fields", len(corrections)))
	}

	if len(errs) > 0 {
		e.logger.Warn("integrity errors after create",
			zap.String("collection", owner),
			zap.Errors("errors", errs))
	}

	return Result{Document: saved, Errors: errs}
}

func relationshipErr(rel relationships.Relationship, err error) error {
	return fmt.Errorf("%s.%s: %w", rel.Owner, rel.LocalKey, err)
}
