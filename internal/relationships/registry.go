package relationships

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mcrud/mcrud/internal/schema"
)

type relKey struct {
	owner    string
	target   string
	localKey string
}

// PendingReference is a reference whose target collection has not been registered
type PendingReference struct {
	Owner     string
	Reference schema.ReferenceField
}

// Registry holds every discovered relationship. It is safe for concurrent use;
// all slices it returns are copies.
type Registry struct {
	known   map[string]bool
	order   []string
	byOwner map[string][]Relationship
	index   map[relKey]struct{}
	pending map[string][]PendingReference // target -> references waiting on it
	mu      sync.RWMutex
}

// NewRegistry creates an empty relationship registry
func NewRegistry() *Registry {
	return &Registry{
		known:   make(map[string]bool),
		order:   make([]string, 0),
		byOwner: make(map[string][]Relationship),
		index:   make(map[relKey]struct{}),
		pending: make(map[string][]PendingReference),
	}
}

// RegisterCollection declares a collection as known and retries any pending
// references that were waiting on it. It returns the relationships that were
// created from those retried references.
func (r *Registry) RegisterCollection(name string) []Relationship {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.registerCollectionLocked(name)
}

func (r *Registry) registerCollectionLocked(name string) []Relationship {
	if !r.known[name] {
		r.known[name] = true
		r.order = append(r.order, name)
	}

	waiting := r.pending[name]
	if len(waiting) == 0 {
		return nil
	}
	delete(r.pending, name)

	created := make([]Relationship, 0, len(waiting))
	for _, p := range waiting {
		rel := newRelationship(p.Owner, p.Reference)
		if r.insertLocked(rel) {
			created = append(created, rel)
		}
	}
	return created
}

// Register records the references discovered on an owner collection. The owner
// becomes known as a side effect. References to unregistered targets are kept
// pending and reported as ErrUnknownTarget; they are not fatal.
func (r *Registry) Register(owner string, refs []schema.ReferenceField) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.registerCollectionLocked(owner)

	var errs []error
	for _, ref := range refs {
		if !r.known[ref.Target] {
			r.addPendingLocked(owner, ref)
			errs = append(errs, fmt.Errorf("%w: %s.%s references %s",
				ErrUnknownTarget, owner, ref.LocalKey, ref.Target))
			continue
		}
		r.insertLocked(newRelationship(owner, ref))
	}

	return errs
}

func (r *Registry) addPendingLocked(owner string, ref schema.ReferenceField) {
	for _, p := range r.pending[ref.Target] {
		if p.Owner == owner && p.Reference.LocalKey == ref.LocalKey {
			return
		}
	}
	r.pending[ref.Target] = append(r.pending[ref.Target], PendingReference{Owner: owner, Reference: ref})
}

// insertLocked adds rel unless its (owner, target, localKey) triple exists
func (r *Registry) insertLocked(rel Relationship) bool {
	key := relKey{owner: rel.Owner, target: rel.Target, localKey: rel.LocalKey}
	if _, exists := r.index[key]; exists {
		return false
	}
	r.index[key] = struct{}{}
	r.byOwner[rel.Owner] = append(r.byOwner[rel.Owner], rel)
	return true
}

func newRelationship(owner string, ref schema.ReferenceField) Relationship {
	return Relationship{
		Owner:            owner,
		Target:           ref.Target,
		LocalKey:         ref.LocalKey,
		ForeignKey:       ref.ForeignKey,
		OwnerCardinality: ref.Cardinality,
	}
}

// Lookup finds the relationship an owner declares on localKey
func (r *Registry) Lookup(owner, localKey string) (Relationship, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookupLocked(owner, localKey)
}

func (r *Registry) lookupLocked(owner, localKey string) (Relationship, bool) {
	for _, rel := range r.byOwner[owner] {
		if rel.LocalKey == localKey {
			return rel, true
		}
	}
	return Relationship{}, false
}

// ForOwner returns the relationships declared by owner in declaration order
func (r *Registry) ForOwner(owner string) []Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rels := r.byOwner[owner]
	out := make([]Relationship, len(rels))
	copy(out, rels)
	return out
}

// All returns every relationship, grouped by owner in registration order
func (r *Registry) All() []Relationship {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Relationship, 0, len(r.index))
	for _, owner := range r.order {
		out = append(out, r.byOwner[owner]...)
	}
	return out
}

// Collections returns the known collection names in registration order
func (r *Registry) Collections() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Pending returns references still waiting on an unregistered target
func (r *Registry) Pending() []PendingReference {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.pendingLocked()
}

func (r *Registry) pendingLocked() []PendingReference {
	targets := make([]string, 0, len(r.pending))
	for target := range r.pending {
		targets = append(targets, target)
	}
	sort.Strings(targets)

	out := make([]PendingReference, 0)
	for _, target := range targets {
		out = append(out, r.pending[target]...)
	}
	return out
}

// Reverse returns the relationship the target declares back towards the owner
func (r *Registry) Reverse(rel Relationship) (Relationship, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.reverseLocked(rel)
}

func (r *Registry) reverseLocked(rel Relationship) (Relationship, bool) {
	reverse, ok := r.lookupLocked(rel.Target, rel.ForeignKey)
	if !ok || reverse.Target != rel.Owner {
		return Relationship{}, false
	}
	return reverse, true
}

// ResolveType classifies a relationship from the owner and reverse cardinalities
func (r *Registry) ResolveType(rel Relationship) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.resolveLocked(rel)
}

func (r *Registry) resolveLocked(rel Relationship) (Type, error) {
	reverse, ok := r.reverseLocked(rel)
	if !ok {
		return TypeUnknown, fmt.Errorf("%w: %s.%s has no %s.%s pointing back",
			ErrMissingReverseRelationship, rel.Owner, rel.LocalKey, rel.Target, rel.ForeignKey)
	}

	t, ok := shapeOf(rel.OwnerCardinality, reverse.OwnerCardinality)
	if !ok {
		return TypeUnknown, fmt.Errorf("%w: %s.%s and %s.%s both hold a single id",
			ErrUnsupportedRelationshipShape, rel.Owner, rel.LocalKey, reverse.Owner, reverse.LocalKey)
	}
	return t, nil
}

// ResolveRelationshipType looks up the relationship on owner.localKey and resolves its type
func (r *Registry) ResolveRelationshipType(owner, localKey string) (Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rel, ok := r.lookupLocked(owner, localKey)
	if !ok {
		return TypeUnknown, fmt.Errorf("%w: %s.%s", ErrUnknownRelationship, owner, localKey)
	}
	return r.resolveLocked(rel)
}

// Related returns every collection connected to collection in either direction,
// sorted by name and without collection itself
func (r *Registry) Related(collection string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, rel := range r.byOwner[collection] {
		seen[rel.Target] = true
	}
	for owner, rels := range r.byOwner {
		for _, rel := range rels {
			if rel.Target == collection {
				seen[owner] = true
			}
		}
	}
	delete(seen, collection)

	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
