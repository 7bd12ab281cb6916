package mongostore

import (
	"time"

	"github.com/pliu/siso/internal/models"
)

type userDoc struct {
	ID          string    `bson:"_id"`
	DisplayName string    `bson:"display_name"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d userDoc) model() models.User {
	return models.User{ID: d.ID, DisplayName: d.DisplayName, UpdatedAt: d.UpdatedAt.UTC()}
}

type chatDoc struct {
	ID        string    `bson:"_id"`
	UserAID   string    `bson:"user_a_id"`
	UserBID   string    `bson:"user_b_id"`
	PairLo    string    `bson:"pair_lo"`
	PairHi    string    `bson:"pair_hi"`
	CreatedAt time.Time `bson:"created_at"`
}

func (d chatDoc) model() models.Chat {
	return models.Chat{ID: d.ID, UserAID: d.UserAID, UserBID: d.UserBID, CreatedAt: d.CreatedAt.UTC()}
}

type messageDoc struct {
	ID         string    `bson:"_id"`
	ChatID     string    `bson:"chat_id"`
	SenderID   string    `bson:"sender_id"`
	ReceiverID string    `bson:"receiver_id"`
	Ciphertext string    `bson:"ciphertext"`
	IV         string    `bson:"iv"`
	AuthTag    string    `bson:"auth_tag"`
	CreatedAt  time.Time `bson:"created_at"`
	// Seq breaks created_at ties in insertion order.
	Seq int64 `bson:"seq"`
}

func (d messageDoc) model() models.SealedMessage {
	return models.SealedMessage{
		ID: d.ID, ChatID: d.ChatID, SenderID: d.SenderID, ReceiverID: d.ReceiverID,
		Ciphertext: d.Ciphertext, IV: d.IV, AuthTag: d.AuthTag, CreatedAt: d.CreatedAt.UTC(),
	}
}
