package sqlstore

import (
	"context"

	"github.com/pliu/siso/internal/models"
)

func (s *SQLStore) InsertMessage(ctx context.Context, m models.SealedMessage) error {
	query := s.rebind(`
		INSERT INTO messages (id, chat_id, sender_id, receiver_id, ciphertext, iv, auth_tag, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	_, err := s.db.ExecContext(ctx, query, m.ID, m.ChatID, m.SenderID, m.ReceiverID, m.Ciphertext, m.IV, m.AuthTag, toMillis(m.CreatedAt))
	if err != nil {
		return storeErr("insert message", err)
	}
	return nil
}

func (s *SQLStore) ListInbox(ctx context.Context, chatID, receiverID string) ([]models.SealedMessage, error) {
	query := s.rebind(`
		SELECT id, chat_id, sender_id, receiver_id, ciphertext, iv, auth_tag, created_at
		FROM messages
		WHERE chat_id = ? AND receiver_id = ?
		ORDER BY created_at ASC, seq ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, chatID, receiverID)
	if err != nil {
		return nil, storeErr("list inbox", err)
	}
	defer rows.Close()

	messages := []models.SealedMessage{}
	for rows.Next() {
		var (
			m         models.SealedMessage
			createdAt int64
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.ReceiverID, &m.Ciphertext, &m.IV, &m.AuthTag, &createdAt); err != nil {
			return nil, storeErr("list inbox", err)
		}
		m.CreatedAt = fromMillis(createdAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list inbox", err)
	}
	return messages, nil
}

func (s *SQLStore) ListOutbox(ctx context.Context, chatID, senderID string) ([]models.PendingMessage, error) {
	query := s.rebind(`
		SELECT id, created_at
		FROM messages
		WHERE chat_id = ? AND sender_id = ?
		ORDER BY created_at ASC, seq ASC
	`)
	rows, err := s.db.QueryContext(ctx, query, chatID, senderID)
	if err != nil {
		return nil, storeErr("list outbox", err)
	}
	defer rows.Close()

	pending := []models.PendingMessage{}
	for rows.Next() {
		var (
			p         models.PendingMessage
			createdAt int64
		)
		if err := rows.Scan(&p.ID, &createdAt); err != nil {
			return nil, storeErr("list outbox", err)
		}
		p.CreatedAt = fromMillis(createdAt)
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list outbox", err)
	}
	return pending, nil
}

func (s *SQLStore) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE id = ?"), messageID); err != nil {
		return storeErr("delete message", err)
	}
	return nil
}

func (s *SQLStore) DeleteMessagesForChat(ctx context.Context, chatID string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE chat_id = ?"), chatID); err != nil {
		return storeErr("delete chat messages", err)
	}
	return nil
}
