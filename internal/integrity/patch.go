package integrity

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/store"
)

// OnPatch plans the back-reference changes a patch implies. For every
// reference field present in changes it compares the stored ids with the
// submitted ids that exist, and rewrites changes[localKey] to the confirmed
// value. Nothing is written; apply the plan with ApplyPatch once the owner has
// been updated. Any returned error means the patch must not be persisted.
func (e *Engine) OnPatch(ctx context.Context, owner string, changes store.Document, ownerID interface{}) (PatchPlan, []error) {
	ownerDoc, err := e.loadOwner(ctx, owner, ownerID)
	if err != nil {
		return PatchPlan{}, []error{err}
	}

	var (
		mu        sync.Mutex
		actions   []Action
		confirmed = make(map[string]interface{})
		tasks     []task
	)

	for _, rel := range e.registry.ForOwner(owner) {
		rel := rel
		raw, ok := changes[rel.LocalKey]
		if !ok {
			continue
		}

		tasks = append(tasks, func(ctx context.Context) error {
			t, err := e.registry.ResolveType(rel)
			if err != nil {
				return relationshipErr(rel, err)
			}

			oldIDs := Normalize(ownerDoc[rel.LocalKey])
			newIDs, err := e.existing(ctx, rel.Target, Normalize(raw))
			if err != nil {
				return relationshipErr(rel, err)
			}
			newIDs = keepFirst(rel, newIDs)

			action := planAction(rel, t, oldIDs, newIDs)

			mu.Lock()
			actions = append(actions, action)
			confirmed[rel.LocalKey] = ownerValue(rel, newIDs)
			mu.Unlock()
			return nil
		})
	}

	errs := e.run(ctx, tasks)
	if len(errs) > 0 {
		return PatchPlan{}, errs
	}

	for key, value := range confirmed {
		changes[key] = value
	}

	return PatchPlan{Actions: actions}, nil
}

func planAction(rel relationships.Relationship, t relationships.Type, oldIDs, newIDs []interface{}) Action {
	return Action{
		Owner:      rel.Owner,
		Related:    rel.Target,
		Type:       t,
		LocalKey:   rel.LocalKey,
		ForeignKey: rel.ForeignKey,
		Added:      Difference(newIDs, oldIDs),
		Deleted:    Difference(oldIDs, newIDs),
	}
}

// ApplyPatch writes the back-reference changes of a plan: related documents
// in Added gain the owner id, those in Deleted lose it.
func (e *Engine) ApplyPatch(ctx context.Context, ownerID interface{}, plan PatchPlan) []error {
	id := docid.Coerce(ownerID)

	tasks := make([]task, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		action := action
		if len(action.Added) == 0 && len(action.Deleted) == 0 {
			continue
		}

		tasks = append(tasks, func(ctx context.Context) error {
			if len(action.Added) > 0 {
				if _, err := e.store.UpdateMany(ctx, action.Related, store.ByIDs(action.Added),
					addReference(action.Type, action.ForeignKey, id)); err != nil {
					return storeErr(action.Related, "updateMany", err)
				}
				if action.Type == relationships.OneToMany {
					if err := e.releasePrevious(ctx, action.Owner, action.LocalKey, id, action.Added); err != nil {
						return err
					}
				}
			}
			if len(action.Deleted) > 0 {
				if _, err := e.store.UpdateMany(ctx, action.Related, store.ByIDs(action.Deleted),
					removeReference(action.Type, action.ForeignKey, id)); err != nil {
					return storeErr(action.Related, "updateMany", err)
				}
			}
			return nil
		})
	}

	errs := e.run(ctx, tasks)
	if len(errs) > 0 {
		e.logger.Warn("integrity errors after patch", zap.Errors("errors", errs))
	}
	return errs
}
