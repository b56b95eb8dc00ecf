// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mcrud/mcrud/internal/docid"
	"github.com/mcrud/mcrud/internal/store"
)

// Store is a MongoDB backed document store
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Connect dials uri, verifies the connection and selects database
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("connected to mongodb", zap.String("database", database))

	return New(client, database, logger), nil
}

// New wraps an existing client
func New(client *mongo.Client, database string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger,
	}
}

// Close disconnects the underlying client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// FindByID returns the document with the given id or store.ErrNotFound
func (s *Store) FindByID(ctx context.Context, collection string, id interface{}) (store.Document, error) {
	var doc store.Document
	err := s.db.Collection(collection).
		FindOne(ctx, bson.M{store.IDField: docid.Coerce(id)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Find returns the documents matching filter
func (s *Store) Find(ctx context.Context, collection string, filter bson.M, opts store.FindOptions) ([]store.Document, error) {
	if filter == nil {
		filter = bson.M{}
	}

	cursor, err := s.db.Collection(collection).Find(ctx, filter, findOptions(opts))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := make([]store.Document, 0)
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func findOptions(opts store.FindOptions) *options.FindOptions {
	fo := options.Find()

	if len(opts.Projection) > 0 {
		projection := bson.M{}
		for _, field := range opts.Projection {
			projection[field] = 1
		}
		fo.SetProjection(projection)
	}

	if len(opts.Sort) > 0 {
		sort := bson.D{}
		for _, entry := range opts.Sort {
			field, desc := store.SortKey(entry)
			if field == "" {
				continue
			}
			dir := 1
			if desc {
				dir = -1
			}
			sort = append(sort, bson.E{Key: field, Value: dir})
		}
		fo.SetSort(sort)
	}

	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}

	return fo
}

// Insert stores a new document, assigning an id when it has none
func (s *Store) Insert(ctx context.Context, collection string, doc store.Document) (store.Document, error) {
	if doc == nil {
		doc = store.Document{}
	}
	if _, ok := doc[store.IDField]; !ok {
		doc[store.IDField] = docid.New()
	}

	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateMany applies update to every matching document and returns how many matched
func (s *Store) UpdateMany(ctx context.Context, collection string, filter, update bson.M) (int64, error) {
	res, err := s.db.Collection(collection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// Save replaces the stored document with doc, inserting it if missing
func (s *Store) Save(ctx context.Context, collection string, doc store.Document) error {
	id, ok := doc[store.IDField]
	if !ok {
		return fmt.Errorf("cannot save document without %s", store.IDField)
	}

	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.M{store.IDField: docid.Coerce(id)}, doc, options.Replace().SetUpsert(true))
	return err
}

// DeleteByID removes a document and returns it
func (s *Store) DeleteByID(ctx context.Context, collection string, id interface{}) (store.Document, error) {
	var doc store.Document
	err := s.db.Collection(collection).
		FindOneAndDelete(ctx, bson.M{store.IDField: docid.Coerce(id)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

var _ store.Store = (*Store)(nil)
