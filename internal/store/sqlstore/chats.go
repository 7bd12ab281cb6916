package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/models"
)

const chatColumns = "id, user_a_id, user_b_id, created_at"

func scanChat(row interface{ Scan(...any) error }) (models.Chat, error) {
	var (
		c         models.Chat
		createdAt int64
	)
	if err := row.Scan(&c.ID, &c.UserAID, &c.UserBID, &createdAt); err != nil {
		return models.Chat{}, err
	}
	c.CreatedAt = fromMillis(createdAt)
	return c, nil
}

// EnsureChat relies on the unique (pair_lo, pair_hi) index: concurrent first
// contact from both sides inserts at most one row and every caller reads
// that row back.
func (s *SQLStore) EnsureChat(ctx context.Context, chat models.Chat) (models.Chat, bool, error) {
	lo, hi := models.PairKey(chat.UserAID, chat.UserBID)

	existing, err := s.chatByPair(ctx, lo, hi)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, false, storeErr("find chat", err)
	}

	insert := s.rebind(`
		INSERT INTO chats (id, user_a_id, user_b_id, pair_lo, pair_hi, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (pair_lo, pair_hi) DO NOTHING
	`)
	res, err := s.db.ExecContext(ctx, insert, chat.ID, chat.UserAID, chat.UserBID, lo, hi, toMillis(chat.CreatedAt))
	if err != nil {
		return models.Chat{}, false, storeErr("insert chat", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Chat{}, false, storeErr("insert chat", err)
	}

	found, err := s.chatByPair(ctx, lo, hi)
	if err != nil {
		return models.Chat{}, false, storeErr("read back chat", err)
	}
	return found, n == 1 && found.ID == chat.ID, nil
}

func (s *SQLStore) chatByPair(ctx context.Context, lo, hi string) (models.Chat, error) {
	query := s.rebind("SELECT " + chatColumns + " FROM chats WHERE pair_lo = ? AND pair_hi = ?")
	return scanChat(s.db.QueryRowContext(ctx, query, lo, hi))
}

func (s *SQLStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	query := s.rebind("SELECT " + chatColumns + " FROM chats WHERE id = ?")
	c, err := scanChat(s.db.QueryRowContext(ctx, query, chatID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, fmt.Errorf("chat %s: %w", chatID, apperr.ErrNotFound)
	}
	if err != nil {
		return models.Chat{}, storeErr("get chat", err)
	}
	return c, nil
}

func (s *SQLStore) ListChats(ctx context.Context, userID string) ([]models.Chat, error) {
	query := s.rebind(`
		SELECT ` + chatColumns + `
		FROM chats
		WHERE user_a_id = ? OR user_b_id = ?
		ORDER BY created_at DESC, id
	`)
	rows, err := s.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, storeErr("list chats", err)
	}
	defer rows.Close()

	chats := []models.Chat{}
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, storeErr("list chats", err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list chats", err)
	}
	return chats, nil
}

func (s *SQLStore) DeleteChat(ctx context.Context, chatID string) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		// Delete messages first so no message outlives its chat
		if _, err := tx.ExecContext(ctx, s.rebind("DELETE FROM messages WHERE chat_id = ?"), chatID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.rebind("DELETE FROM chats WHERE id = ?"), chatID)
		return err
	})
	if err != nil {
		return storeErr("delete chat", err)
	}
	return nil
}
