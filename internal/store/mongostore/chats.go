package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureChat upserts on the normalized pair. Two racing upserts can both
// miss and collide on the unique index; the loser reads the winner's row.
func (s *MongoStore) EnsureChat(ctx context.Context, chat models.Chat) (models.Chat, bool, error) {
	lo, hi := models.PairKey(chat.UserAID, chat.UserBID)
	filter := bson.M{"pair_lo": lo, "pair_hi": hi}
	// pair_lo and pair_hi come from the equality filter on insert.
	update := bson.M{"$setOnInsert": bson.M{
		"_id":        chat.ID,
		"user_a_id":  chat.UserAID,
		"user_b_id":  chat.UserBID,
		"created_at": chat.CreatedAt,
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc chatDoc
	err := s.chats.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		err = s.chats.FindOne(ctx, filter).Decode(&doc)
	}
	if err != nil {
		return models.Chat{}, false, storeErr("ensure chat", err)
	}
	return doc.model(), doc.ID == chat.ID, nil
}

func (s *MongoStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	var doc chatDoc
	err := s.chats.FindOne(ctx, bson.M{"_id": chatID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chat{}, fmt.Errorf("chat %s: %w", chatID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Chat{}, storeErr("get chat", err)
	}
	return doc.model(), nil
}

func (s *MongoStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"user_a_id": userID},
		bson.M{"user_b_id": userID},
	}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := s.chats.Find(ctx, filter, opts)
	if err != nil {
		return nil, storeErr("list chats", err)
	}
	defer cursor.Close(ctx)

	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("list chats", err)
	}
	chats := make([]models.Chat, 0, len(docs))
	for _, d := range docs {
		chats = append(chats, d.model())
	}
	return chats, nil
}

// DeleteChat removes the messages before the chat document. Standalone
// servers have no multi-document transactions, so a crash in between leaves
// an empty chat rather than orphaned messages.
func (s *MongoStore) DeleteChat(ctx context.Context, chatID string) error {
	if err := s.DeleteMessagesForChat(ctx, chatID); err != nil {
		return err
	}
	if _, err := s.chats.DeleteOne(ctx, bson.M{"_id": chatID}); err != nil {
		return storeErr("delete chat", err)
	}
	return nil
}
