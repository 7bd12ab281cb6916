// Package mongostore implements store.Store on MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/pliu/siso/internal/apperr"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DefaultDatabase is used when the connection URI does not select one.
const DefaultDatabase = "siso"

// MongoStore keeps users, chats and messages in three collections.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	chats    *mongo.Collection
	messages *mongo.Collection
}

// New connects, pings and ensures indexes.
func New(ctx context.Context, uri, database string) (*MongoStore, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if database == "" {
		database = DefaultDatabase
	}
	db := client.Database(database)
	s := &MongoStore{
		client:   client,
		users:    db.Collection("users"),
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
	}
	if err := s.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) createIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "updated_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	// The unique pair index is what makes concurrent EnsureChat safe.
	_, err = s.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_lo", Value: 1}, {Key: "pair_hi", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "user_a_id", Value: 1}}},
		{Keys: bson.D{{Key: "user_b_id", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat indexes: %w", err)
	}

	_, err = s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "receiver_id", Value: 1}, {Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "chat_id", Value: 1}, {Key: "sender_id", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create message indexes: %w", err)
	}
	return nil
}

// Drop removes all collections. Used by tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	for _, c := range []*mongo.Collection{s.users, s.chats, s.messages} {
		if err := c.Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func storeErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperr.ErrStore, op, err)
}
