package store

import (
	"context"
	"time"

	"github.com/pliu/siso/internal/models"
)

// SearchLimit caps the number of profiles returned by a name search.
const SearchLimit = 10

// StatsQuery selects the windows and the optional user for admin stats.
type StatsQuery struct {
	Since24h time.Time
	Since7d  time.Time
	// SenderID, when set, also counts messages sent by this user.
	SenderID string
}

type Store interface {
	// User operations
	UpsertUser(ctx context.Context, user models.User) error
	GetUsers(ctx context.Context, ids []string) ([]models.User, error)
	SearchUsers(ctx context.Context, query string, limit int) ([]models.User, error)

	// Chat operations

	// EnsureChat returns the chat for the unordered pair in chat, inserting
	// chat as given when none exists. created reports whether the insert won.
	EnsureChat(ctx context.Context, chat models.Chat) (found models.Chat, created bool, err error)
	GetChat(ctx context.Context, chatID string) (models.Chat, error)
	ListChats(ctx context.Context, userID string) ([]models.Chat, error)
	// DeleteChat removes every message of the chat and then the chat itself.
	DeleteChat(ctx context.Context, chatID string) error

	// Message operations
	InsertMessage(ctx context.Context, msg models.SealedMessage) error
	// ListInbox returns messages addressed to receiverID in chatID, oldest
	// first, ties in insertion order.
	ListInbox(ctx context.Context, chatID, receiverID string) ([]models.SealedMessage, error)
	// ListOutbox returns messages sent by senderID in chatID that still exist.
	ListOutbox(ctx context.Context, chatID, senderID string) ([]models.PendingMessage, error)
	// DeleteMessage removes a message. Deleting a missing id is not an error.
	DeleteMessage(ctx context.Context, messageID string) error
	DeleteMessagesForChat(ctx context.Context, chatID string) error

	Stats(ctx context.Context, q StatsQuery) (models.Stats, error)
	Close() error
}
