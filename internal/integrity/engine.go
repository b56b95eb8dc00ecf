// Package integrity keeps both sides of every relationship consistent when
// documents are created, patched, deleted, associated or dissociated.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/relationships"
	"github.com/mcrud/mcrud/internal/schema"
	"github.com/mcrud/mcrud/internal/store"
)

// Resolver is the part of the relationship registry the engine depends on
type Resolver interface {
	ForOwner(owner string) []relationships.Relationship
	Lookup(owner, localKey string) (relationships.Relationship, bool)
	ResolveType(rel relationships.Relationship) (relationships.Type, error)
}

// Config holds engine tuning
type Config struct {
	MaxConcurrency int           // per-operation relationship actions in flight; <= 0 means unbounded
	ActionTimeout  time.Duration // deadline for one relationship action; 0 disables it
}

// DefaultConfig returns the defaults used when nothing is configured
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 8,
		ActionTimeout:  10 * time.Second,
	}
}

// Engine runs the integrity operations
type Engine struct {
	registry      Resolver
	store         store.Store
	logger        *zap.Logger
	limit         int
	actionTimeout time.Duration
}

// New creates an integrity engine
func New(registry Resolver, st store.Store, logger *zap.Logger, cfg Config) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		registry:      registry,
		store:         st,
		logger:        logger,
		limit:         cfg.MaxConcurrency,
		actionTimeout: cfg.ActionTimeout,
	}
}

// task is one relationship action; it runs under its own deadline
type task func(ctx context.Context) error

// run executes tasks concurrently and joins them. A failing task never
// cancels its siblings; every error is collected.
func (e *Engine) run(ctx context.Context, tasks []task) []error {
	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs error
	)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}

	for _, t := range tasks {
		t := t
		g.Go(func() error {
			actx, cancel := e.actionContext(ctx)
			defer cancel()

			if err := t(actx); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return multierr.Errors(errs)
}

func (e *Engine) actionContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.actionTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.actionTimeout)
}

// existing returns the ids from requested that exist in collection, in request order
func (e *Engine) existing(ctx context.Context, collection string, requested []interface{}) ([]interface{}, error) {
	if len(requested) == 0 {
		return []interface{}{}, nil
	}

	docs, err := e.store.Find(ctx, collection, store.ByIDs(requested),
		store.FindOptions{Projection: []string{store.IDField}})
	if err != nil {
		return nil, storeErr(collection, "find", err)
	}

	found := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		found = append(found, doc[store.IDField])
	}

	out := make([]interface{}, 0, len(found))
	for _, id := range requested {
		if Contains(found, id) && !Contains(out, id) {
			out = append(out, id)
		}
	}
	return out, nil
}

// loadOwner fetches the owner document
func (e *Engine) loadOwner(ctx context.Context, owner string, ownerID interface{}) (store.Document, error) {
	doc, err := e.store.FindByID(ctx, owner, ownerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s %s", ErrOwnerNotFound, owner, docid.Key(ownerID))
	}
	if err != nil {
		return nil, storeErr(owner, "findById", err)
	}
	return doc, nil
}

// addReference is the update that makes related documents point at ownerID
func addReference(t relationships.Type, foreignKey string, ownerID interface{}) bson.M {
	if t == relationships.OneToMany {
		return bson.M{"$set": bson.M{foreignKey: ownerID}}
	}
	return bson.M{"$addToSet": bson.M{foreignKey: ownerID}}
}

// removeReference is the update that drops ownerID from related documents
func removeReference(t relationships.Type, foreignKey string, ownerID interface{}) bson.M {
	if t == relationships.OneToMany {
		return bson.M{"$set": bson.M{foreignKey: nil}}
	}
	return bson.M{"$pull": bson.M{foreignKey: ownerID}}
}

// linkedTo narrows a by-id filter to the related documents whose foreignKey
// references ownerID
func linkedTo(ids []interface{}, foreignKey string, ownerID interface{}) bson.M {
	filter := store.ByIDs(ids)
	filter[foreignKey] = ownerID
	return filter
}

// releasePrevious removes related ids from every other owner that still lists
// them. A one-to-many target has a single owner, so linking it to ownerID
// detaches it from the owner it had before.
func (e *Engine) releasePrevious(ctx context.Context, owner, localKey string, ownerID interface{}, related []interface{}) error {
	if len(related) == 0 {
		return nil
	}

	n, err := e.store.UpdateMany(ctx, owner,
		bson.M{localKey: bson.M{"$in": related}, store.IDField: bson.M{"$ne": ownerID}},
		bson.M{"$pull": bson.M{localKey: bson.M{"$in": related}}})
	if err != nil {
		return storeErr(owner, "updateMany", err)
	}
	if n > 0 {
		e.logger.Debug("released previous owners",
			zap.String("collection", owner),
			zap.String("field", localKey),
			zap.Int64("count", n))
	}
	return nil
}

// keepFirst trims ids to a single element for single-reference fields
func keepFirst(rel relationships.Relationship, ids []interface{}) []interface{} {
	if rel.OwnerCardinality == schema.One && len(ids) > 1 {
		return ids[:1]
	}
	return ids
}

// ownerValue is the value stored in the owner field for a set of ids
func ownerValue(rel relationships.Relationship, ids []interface{}) interface{} {
	if rel.OwnerCardinality == schema.One {
		if len(ids) == 0 {
			return nil
		}
		return ids[0]
	}
	out := make([]interface{}, len(ids))
	copy(out, ids)
	return out
}

func documentID(doc store.Document) interface{} {
	return docid.Coerce(doc[store.IDField])
}
