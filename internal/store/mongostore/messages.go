package mongostore

import (
	"context"
	"time"

	"github.com/pliu/siso/internal/models"
	"github.com/pliu/siso/internal/store"
	"github.com/sourcegraph/conc/pool"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ store.Store = (*MongoStore)(nil)

func (s *MongoStore) InsertMessage(ctx context.Context, m models.SealedMessage) error {
	doc := messageDoc{
		ID: m.ID, ChatID: m.ChatID, SenderID: m.SenderID, ReceiverID: m.ReceiverID,
		Ciphertext: m.Ciphertext, IV: m.IV, AuthTag: m.AuthTag,
		CreatedAt: m.CreatedAt, Seq: time.Now().UnixNano(),
	}
	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return storeErr("insert message", err)
	}
	return nil
}

func (s *MongoStore) ListInbox(ctx context.Context, chatID, receiverID string) ([]models.SealedMessage, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}})
	cursor, err := s.messages.Find(ctx, bson.M{"chat_id": chatID, "receiver_id": receiverID}, opts)
	if err != nil {
		return nil, storeErr("list inbox", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("list inbox", err)
	}
	out := make([]models.SealedMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *MongoStore) ListOutbox(ctx context.Context, chatID, senderID string) ([]models.PendingMessage, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "seq", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "created_at": 1})
	cursor, err := s.messages.Find(ctx, bson.M{"chat_id": chatID, "sender_id": senderID}, opts)
	if err != nil {
		return nil, storeErr("list outbox", err)
	}
	defer cursor.Close(ctx)

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storeErr("list outbox", err)
	}
	out := make([]models.PendingMessage, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.PendingMessage{ID: d.ID, CreatedAt: d.CreatedAt.UTC()})
	}
	return out, nil
}

func (s *MongoStore) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := s.messages.DeleteOne(ctx, bson.M{"_id": messageID}); err != nil {
		return storeErr("delete message", err)
	}
	return nil
}

func (s *MongoStore) DeleteMessagesForChat(ctx context.Context, chatID string) error {
	if _, err := s.messages.DeleteMany(ctx, bson.M{"chat_id": chatID}); err != nil {
		return storeErr("delete chat messages", err)
	}
	return nil
}

func (s *MongoStore) Stats(ctx context.Context, q store.StatsQuery) (models.Stats, error) {
	var (
		st     models.Stats
		mySent int64
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	count := func(dst *int64, coll *mongo.Collection, filter bson.M) {
		p.Go(func(ctx context.Context) error {
			n, err := coll.CountDocuments(ctx, filter)
			*dst = n
			return err
		})
	}
	count(&st.UserCount, s.users, bson.M{})
	count(&st.ChatCount, s.chats, bson.M{})
	count(&st.MessageCount, s.messages, bson.M{})
	count(&st.MessagesLast24h, s.messages, bson.M{"created_at": bson.M{"$gte": q.Since24h}})
	count(&st.MessagesLast7d, s.messages, bson.M{"created_at": bson.M{"$gte": q.Since7d}})
	if q.SenderID != "" {
		count(&mySent, s.messages, bson.M{"sender_id": q.SenderID})
	}
	if err := p.Wait(); err != nil {
		return models.Stats{}, storeErr("stats", err)
	}
	if q.SenderID != "" {
		st.MySentMessages = &mySent
	}
	return st, nil
}
