package mongostore

import (
	"context"
	"regexp"
	"strings"

	"github.com/pliu/siso/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func (s *MongoStore) UpsertUser(ctx context.Context, user models.User) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": user.ID},
		bson.M{"$set": bson.M{"display_name": user.DisplayName, "updated_at": user.UpdatedAt}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return storeErr("upsert user", err)
	}
	return nil
}

func (s *MongoStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.findUsers(ctx, "get users", bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (s *MongoStore) SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error) {
	filter := bson.M{"display_name": bson.M{"$regex": regexp.QuoteMeta(strings.TrimSpace(query)), "$options": "i"}}
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(int64(limit))
	return s.findUsers(ctx, "search users", filter, opts)
}

func (s *MongoStore) findUsers(ctx context.Context, op string, filter any, opts *options.FindOptionsBuilder) ([]models.User, error) {
	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer cursor.Close(ctx)

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr(op, err)
	}
	users := make([]models.User, 0, len(docs))
	for _, d := range docs {
		users = append(users, d.model())
	}
	return users, nil
}
