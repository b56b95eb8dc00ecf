// Package store defines the document store the CRUD layer and the integrity
// engine persist through.
package store

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// IDField is the primary key field of every document
const IDField = "_id"

// ErrNotFound is returned when no document matches the requested id
var ErrNotFound = errors.New("document not found")

// Document is a single stored document
type Document = bson.M

// FindOptions shapes a Find call
type FindOptions struct {
	Projection []string // fields to return; _id is always included
	Sort       []string // field names, "-" prefix for descending
	Skip       int64
	Limit      int64 // 0 means no limit
}

// Store is the persistence contract. Implementations must be safe for
// concurrent use.
type Store interface {
	FindByID(ctx context.Context, collection string, id interface{}) (Document, error)
	Find(ctx context.Context, collection string, filter bson.M, opts FindOptions) ([]Document, error)
	Insert(ctx context.Context, collection string, doc Document) (Document, error)
	UpdateMany(ctx context.Context, collection string, filter, update bson.M) (int64, error)
	Save(ctx context.Context, collection string, doc Document) error
	DeleteByID(ctx context.Context, collection string, id interface{}) (Document, error)
}

// SortKey splits a sort entry into its field and direction
func SortKey(entry string) (field string, desc bool) {
	entry = strings.TrimSpace(entry)
	if strings.HasPrefix(entry, "-") {
		return entry[1:], true
	}
	return strings.TrimPrefix(entry, "+"), false
}

// ByIDs builds the filter selecting documents whose _id is one of ids
func ByIDs(ids []interface{}) bson.M {
	return bson.M{IDField: bson.M{"$in": ids}}
}
