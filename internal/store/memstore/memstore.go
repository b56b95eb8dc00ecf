// Package memstore is an in-memory store.Store for tests and local runs.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/store"
)

type collection struct {
	docs  map[string]store.Document
	order []string
}

// Store keeps documents in memory, preserving insertion order
type Store struct {
	collections map[string]*collection
	mu          sync.RWMutex
}

// New creates an empty in-memory store
func New() *Store {
	return &Store{collections: make(map[string]*collection)}
}

func (s *Store) coll(name string) *collection {
	c, ok := s.collections[name]
	if !ok {
		c = &collection{docs: make(map[string]store.Document)}
		s.collections[name] = c
	}
	return c
}

// FindByID returns a copy of the document with the given id
func (s *Store) FindByID(ctx context.Context, name string, id interface{}) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	doc, ok := c.docs[docid.Key(id)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return cloneDoc(doc), nil
}

// Find returns copies of the documents matching filter
func (s *Store) Find(ctx context.Context, name string, filter bson.M, opts store.FindOptions) ([]store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]store.Document, 0)
	if c, ok := s.collections[name]; ok {
		for _, key := range c.order {
			doc := c.docs[key]
			if Match(doc, filter) {
				matched = append(matched, cloneDoc(doc))
			}
		}
	}
	s.mu.RUnlock()

	sortDocs(matched, opts.Sort)

	if opts.Skip > 0 {
		if opts.Skip >= int64(len(matched)) {
			matched = matched[:0]
		} else {
			matched = matched[opts.Skip:]
		}
	}
	if opts.Limit > 0 && opts.Limit < int64(len(matched)) {
		matched = matched[:opts.Limit]
	}

	if len(opts.Projection) > 0 {
		for i, doc := range matched {
			matched[i] = project(doc, opts.Projection)
		}
	}

	return matched, nil
}

func sortDocs(docs []store.Document, entries []string) {
	if len(entries) == 0 {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for _, entry := range entries {
			field, desc := store.SortKey(entry)
			if field == "" {
				continue
			}
			a, _ := lookup(docs[i], field)
			b, _ := lookup(docs[j], field)
			c, ok := compare(a, b)
			if !ok || c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func project(doc store.Document, fields []string) store.Document {
	out := store.Document{store.IDField: doc[store.IDField]}
	for _, field := range fields {
		if v, ok := doc[field]; ok {
			out[field] = v
		}
	}
	return out
}

// Insert stores a copy of doc, assigning an id when it has none
func (s *Store) Insert(ctx context.Context, name string, doc store.Document) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := cloneDoc(doc)
	if stored == nil {
		stored = store.Document{}
	}
	if _, ok := stored[store.IDField]; !ok {
		stored[store.IDField] = docid.New()
	} else {
		stored[store.IDField] = docid.Coerce(stored[store.IDField])
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	key := docid.Key(stored[store.IDField])
	if _, exists := c.docs[key]; exists {
		return nil, fmt.Errorf("duplicate key %s in %s", key, name)
	}
	c.docs[key] = stored
	c.order = append(c.order, key)

	return cloneDoc(stored), nil
}

// UpdateMany applies update to every matching document and returns how many matched
func (s *Store) UpdateMany(ctx context.Context, name string, filter, update bson.M) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return 0, nil
	}

	var matched int64
	for _, key := range c.order {
		doc := c.docs[key]
		if !Match(doc, filter) {
			continue
		}
		next := cloneDoc(doc)
		if err := applyUpdate(next, update); err != nil {
			return matched, err
		}
		c.docs[key] = next
		matched++
	}
	return matched, nil
}

// Save replaces the document with the same id, inserting it if missing
func (s *Store) Save(ctx context.Context, name string, doc store.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	id, ok := doc[store.IDField]
	if !ok {
		return fmt.Errorf("cannot save document without %s", store.IDField)
	}

	stored := cloneDoc(doc)
	stored[store.IDField] = docid.Coerce(id)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(name)
	key := docid.Key(id)
	if _, exists := c.docs[key]; !exists {
		c.order = append(c.order, key)
	}
	c.docs[key] = stored
	return nil
}

// DeleteByID removes a document and returns it
func (s *Store) DeleteByID(ctx context.Context, name string, id interface{}) (store.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		return nil, store.ErrNotFound
	}
	key := docid.Key(id)
	doc, ok := c.docs[key]
	if !ok {
		return nil, store.ErrNotFound
	}

	delete(c.docs, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return doc, nil
}

var _ store.Store = (*Store)(nil)
