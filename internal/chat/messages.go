package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/codec"
	"github.com/pliu/siso/internal/models"
)

// SendRequest is one outgoing message.
type SendRequest struct {
	ChatID     string
	SenderID   string
	ReceiverID string
	Content    models.Content
}

// Send encrypts the content and stores it for the receiver. The sender and
// receiver must be the two participants of the chat.
func (s *Service) Send(ctx context.Context, req SendRequest) (string, error) {
	if req.ChatID == "" || req.SenderID == "" || req.ReceiverID == "" || req.Content.IsEmpty() {
		return "", invalid("chatId, senderId, receiverId and content are required")
	}
	c, err := s.store.GetChat(ctx, req.ChatID)
	if err != nil {
		return "", err
	}
	if !c.HasParticipant(req.SenderID) || c.Peer(req.SenderID) != req.ReceiverID {
		return "", fmt.Errorf("%w: sender and receiver must be the chat participants", apperr.ErrForbidden)
	}

	sealed, err := s.codec.Encrypt(req.Content.String())
	if err != nil {
		return "", err
	}
	msg := models.SealedMessage{
		ID:         s.newID(),
		ChatID:     req.ChatID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Ciphertext: sealed.Ciphertext,
		IV:         sealed.IV,
		AuthTag:    sealed.AuthTag,
		CreatedAt:  s.now(),
	}
	if err := s.store.InsertMessage(ctx, msg); err != nil {
		return "", err
	}
	s.metrics.MessageSent(string(req.Content.Kind))
	s.notifier.Notify(req.ReceiverID, EventMessage, req.ChatID)
	return msg.ID, nil
}

// Inbox returns the decrypted messages addressed to userID in chatID. A row
// that fails to decrypt is delivered with placeholder content so the rest of
// the inbox is not held back.
func (s *Service) Inbox(ctx context.Context, chatID, userID string) ([]models.Message, error) {
	if chatID == "" || userID == "" {
		return nil, invalid("chatId and userId are required")
	}
	rows, err := s.store.ListInbox(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	out := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		m := models.Message{
			ID:         row.ID,
			ChatID:     row.ChatID,
			SenderID:   row.SenderID,
			ReceiverID: row.ReceiverID,
			Kind:       models.KindText,
			CreatedAt:  row.CreatedAt,
		}
		plain, err := s.codec.Decrypt(codec.Sealed{Ciphertext: row.Ciphertext, IV: row.IV, AuthTag: row.AuthTag})
		if err != nil {
			s.metrics.DecryptFailed()
			s.log.WithError(err).WithField("message", row.ID).Error("decryption failed")
			m.Content = DecryptFailedPlaceholder
			out = append(out, m)
			continue
		}
		content, err := models.ParseContent(plain)
		if err != nil {
			content = models.Text(plain)
		}
		m.Kind = content.Kind
		m.Content = content.String()
		out = append(out, m)
	}
	return out, nil
}

// Outbox lists messages userID sent in chatID that have not been viewed yet.
func (s *Service) Outbox(ctx context.Context, chatID, userID string) ([]models.PendingMessage, error) {
	if chatID == "" || userID == "" {
		return nil, invalid("chatId and userId are required")
	}
	return s.store.ListOutbox(ctx, chatID, userID)
}

// View consumes a message: the row is deleted unconditionally. Viewing an id
// that is already gone succeeds.
func (s *Service) View(ctx context.Context, messageID string) error {
	if messageID == "" {
		return invalid("message id is required")
	}
	if err := s.store.DeleteMessage(ctx, messageID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}
	s.metrics.MessageViewed()
	return nil
}
