// Package mongodb stores users and thoughts as documents in two MongoDB
// collections. Set semantics are expressed with update operators so every
// repository call is a single-document write.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	pkgerrors "thoughtgraph/pkg/errors"
)

const (
	thoughtsCollection = "thoughts"
	usersCollection    = "users"
)

// Store owns the client and hands out repositories over its database
type Store struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
}

// Connect opens a client, checks it with a ping and ensures the indexes exist
func Connect(ctx context.Context, uri, database string, connectTimeout time.Duration, logger *zap.Logger) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	store := &Store{client: client, database: client.Database(database), logger: logger}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to MongoDB", zap.String("database", database))
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	listOrder := mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}}
	for _, name := range []string{thoughtsCollection, usersCollection} {
		if _, err := s.database.Collection(name).Indexes().CreateOne(ctx, listOrder); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", name, err)
		}
	}
	return nil
}

// Thoughts returns the thought repository
func (s *Store) Thoughts() *ThoughtRepository {
	return &ThoughtRepository{collection: s.database.Collection(thoughtsCollection), logger: s.logger}
}

// Users returns the user repository
func (s *Store) Users() *UserRepository {
	return &UserRepository{collection: s.database.Collection(usersCollection), logger: s.logger}
}

// Ping checks the primary is reachable
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return pkgerrors.NewStoreError("ping", err)
	}
	return nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func storeError(operation string, err error) error {
	appErr := pkgerrors.NewStoreError(operation, err)
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		appErr.WithCode(cmdErr.Name)
	}
	if mongo.IsDuplicateKeyError(err) {
		appErr.WithDetail("reason", "duplicate id")
	}
	return appErr
}

// sortByCreation is the find option shared by the list queries
func sortByCreation() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
}

func returnAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
