package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/pdmimport/internal/domain/model"
	"github.com/okian/pdmimport/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultConnectTimeout = 30 * time.Second

// MongoStore is a Store backed by a MongoDB database.
type MongoStore struct {
	client         *mongo.Client
	db             *mongo.Database
	names          Names
	connectTimeout time.Duration
	logger         logger.Logger
}

// NewMongoStore connects to uri, pings the primary and returns a store on
// database.
func NewMongoStore(ctx context.Context, uri, database string, opts ...MongoOption) (*MongoStore, error) {
	s := &MongoStore{
		names:          DefaultNames(),
		connectTimeout: defaultConnectTimeout,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	cctx, cancel := context.WithTimeout(ctx, s.connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri).SetAppName("pdmimport"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %w", ErrConnect, err)
	}

	s.client = client
	s.db = client.Database(database)
	s.logger.Info(ctx, "connected to document store", logger.String("database", database))
	return s, nil
}

func (s *MongoStore) collection(coll model.Collection) (*mongo.Collection, string, error) {
	name, err := s.names.lookup(coll)
	if err != nil {
		return nil, "", err
	}
	return s.db.Collection(name), name, nil
}

// InsertMany implements Store.
func (s *MongoStore) InsertMany(ctx context.Context, coll model.Collection, docs []any) (err error) {
	c, name, err := s.collection(coll)
	if err != nil {
		return err
	}
	start := time.Now()
	var inserted int64
	defer func() { observe("insert_many", name, start, inserted, err) }()

	res, err := c.InsertMany(ctx, docs)
	if res != nil {
		inserted = int64(len(res.InsertedIDs))
	}
	return err
}

// DeleteMany implements Store.
func (s *MongoStore) DeleteMany(ctx context.Context, coll model.Collection, filter model.Document) (n int64, err error) {
	c, name, err := s.collection(coll)
	if err != nil {
		return 0, err
	}
	start := time.Now()
	defer func() { observe("delete_many", name, start, n, err) }()

	res, err := c.DeleteMany(ctx, bsonFilter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindLatest implements Store.
func (s *MongoStore) FindLatest(ctx context.Context, coll model.Collection, filter model.Document, sortField string) (doc model.Document, found bool, err error) {
	c, name, err := s.collection(coll)
	if err != nil {
		return nil, false, err
	}
	start := time.Now()
	defer func() { observe("find_latest", name, start, 0, err) }()

	opts := options.FindOne().
		SetSort(bson.D{{Key: sortField, Value: -1}}).
		SetProjection(bson.D{{Key: "_id", Value: 0}})

	var m bson.M
	if err := c.FindOne(ctx, bsonFilter(filter), opts).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return fromBSON(m), true, nil
}

// Close implements Store.
func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func bsonFilter(filter model.Document) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}
