// Package chat implements the message lifecycle: chat resolution between two
// identities, encrypted append, inbox delivery and view-once consumption.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/auth"
	"github.com/pliu/siso/internal/codec"
	"github.com/pliu/siso/internal/metrics"
	"github.com/pliu/siso/internal/models"
	"github.com/pliu/siso/internal/store"
	"github.com/sirupsen/logrus"
)

// DecryptFailedPlaceholder replaces the content of an inbox row that does
// not decrypt.
const DecryptFailedPlaceholder = "[decryption failed]"

// Notifier receives change hints for connected clients.
type Notifier interface {
	Notify(userID, eventType, chatID string)
}

// Event types handed to the Notifier.
const (
	EventMessage     = "message"
	EventChatCreated = "chat_created"
	EventChatDeleted = "chat_deleted"
)

type nopNotifier struct{}

func (nopNotifier) Notify(string, string, string) {}

// Config wires a Service. Store, Codec and Admin are required.
type Config struct {
	Store    store.Store
	Codec    *codec.Codec
	Admin    *auth.AdminGate
	Notifier Notifier
	Metrics  *metrics.Metrics
	Logger   logrus.FieldLogger

	// Now and NewID default to time.Now and random UUIDs.
	Now   func() time.Time
	NewID func() string
}

type Service struct {
	store    store.Store
	codec    *codec.Codec
	admin    *auth.AdminGate
	notifier Notifier
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
	now      func() time.Time
	newID    func() string
}

func New(cfg Config) *Service {
	s := &Service{
		store:    cfg.Store,
		codec:    cfg.Codec,
		admin:    cfg.Admin,
		notifier: cfg.Notifier,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		now:      cfg.Now,
		newID:    cfg.NewID,
	}
	if s.notifier == nil {
		s.notifier = nopNotifier{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{apperr.ErrInvalidArgument}, args...)...)
}

// EnsureChat returns the single chat shared by the two identities,
// creating it on first contact. Argument order does not matter.
func (s *Service) EnsureChat(ctx context.Context, myUserID, otherUserID string) (models.Chat, error) {
	if myUserID == "" || otherUserID == "" {
		return models.Chat{}, invalid("myUserId and otherUserId are required")
	}
	if myUserID == otherUserID {
		return models.Chat{}, invalid("cannot start a chat with yourself")
	}

	c, created, err := s.store.EnsureChat(ctx, models.Chat{
		ID:        s.newID(),
		UserAID:   myUserID,
		UserBID:   otherUserID,
		CreatedAt: s.now(),
	})
	if err != nil {
		return models.Chat{}, err
	}
	if created {
		s.metrics.ChatCreated()
		s.notifier.Notify(otherUserID, EventChatCreated, c.ID)
		s.log.WithField("chat", c.ID).Debug("chat created")
	}
	return c, nil
}

// ListChats returns every chat userID takes part in, newest first.
func (s *Service) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	if userID == "" {
		return nil, invalid("userId is required")
	}
	return s.store.ListChats(ctx, userID)
}

// DeleteChat removes a chat and all of its messages. Only a participant may
// delete; an unknown chat is reported as forbidden as well.
func (s *Service) DeleteChat(ctx context.Context, chatID, requestingUserID string) error {
	if chatID == "" || requestingUserID == "" {
		return invalid("chat id and userId are required")
	}
	c, err := s.store.GetChat(ctx, chatID)
	if errors.Is(err, apperr.ErrNotFound) {
		return fmt.Errorf("%w: no access to this chat", apperr.ErrForbidden)
	}
	if err != nil {
		return err
	}
	if !c.HasParticipant(requestingUserID) {
		return fmt.Errorf("%w: no access to this chat", apperr.ErrForbidden)
	}
	if err := s.store.DeleteChat(ctx, chatID); err != nil {
		return err
	}
	s.metrics.ChatDeleted()
	s.notifier.Notify(requestingUserID, EventChatDeleted, chatID)
	s.notifier.Notify(c.Peer(requestingUserID), EventChatDeleted, chatID)
	return nil
}
