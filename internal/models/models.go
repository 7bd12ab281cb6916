package models

import "time"

// User is the optional display-name profile attached to an identity.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Chat pairs exactly two identities. UserAID is whoever made first contact.
type Chat struct {
	ID        string    `json:"id"`
	UserAID   string    `json:"userAId"`
	UserBID   string    `json:"userBId"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasParticipant reports whether userID is one of the two chat members.
func (c Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.UserAID == userID || c.UserBID == userID)
}

// Peer returns the participant that is not userID.
func (c Chat) Peer(userID string) string {
	if c.UserAID == userID {
		return c.UserBID
	}
	return c.UserAID
}

// PairKey returns the two participant ids in a fixed order so that (a, b)
// and (b, a) normalize to the same key.
func PairKey(a, b string) (lo, hi string) {
	if a <= b {
		return a, b
	}
	return b, a
}

// SealedMessage is a message row as persisted: the payload only exists as
// AEAD ciphertext with its nonce and tag.
type SealedMessage struct {
	ID         string
	ChatID     string
	SenderID   string
	ReceiverID string
	Ciphertext string
	IV         string
	AuthTag    string
	CreatedAt  time.Time
}

// Message is a decrypted message as delivered to its receiver.
type Message struct {
	ID         string      `json:"id"`
	ChatID     string      `json:"chatId"`
	SenderID   string      `json:"senderId"`
	ReceiverID string      `json:"receiverId"`
	Kind       ContentKind `json:"kind"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// PendingMessage identifies a sent message that has not been viewed yet.
type PendingMessage struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// Stats is the admin dashboard aggregate. MySentMessages is nil when the
// request did not name a user.
type Stats struct {
	UserCount       int64  `json:"userCount"`
	ChatCount       int64  `json:"chatCount"`
	MessageCount    int64  `json:"messageCount"`
	MessagesLast24h int64  `json:"messagesLast24h"`
	MessagesLast7d  int64  `json:"messagesLast7d"`
	MySentMessages  *int64 `json:"mySentMessages"`
}
