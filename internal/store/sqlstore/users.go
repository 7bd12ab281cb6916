package sqlstore

import (
	"context"
	"strings"

	"github.com/pliu/siso/internal/models"
)

func (s *SQLStore) UpsertUser(ctx context.Context, user models.User) error {
	query := s.rebind(`
		INSERT INTO users (id, display_name, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			display_name = excluded.display_name,
			updated_at = excluded.updated_at
	`)
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.DisplayName, toMillis(user.UpdatedAt)); err != nil {
		return storeErr("upsert user", err)
	}
	return nil
}

func (s *SQLStore) GetUsers(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := s.rebind("SELECT id, display_name, updated_at FROM users WHERE id IN (" + placeholders + ")")
	return s.queryUsers(ctx, "get users", query, args...)
}

// SearchUsers matches query as a case-insensitive substring of the display
// name, most recently updated first.
func (s *SQLStore) SearchUsers(ctx context.Context, queryStr string, limit int) ([]models.User, error) {
	query := s.rebind(`
		SELECT id, display_name, updated_at
		FROM users
		WHERE LOWER(display_name) LIKE ? ESCAPE '\'
		ORDER BY updated_at DESC
		LIMIT ?
	`)
	return s.queryUsers(ctx, "search users", query, "%"+escapeLike(strings.ToLower(queryStr))+"%", limit)
}

func (s *SQLStore) queryUsers(ctx context.Context, op, query string, args ...any) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(op, err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var (
			u         models.User
			updatedAt int64
		)
		if err := rows.Scan(&u.ID, &u.DisplayName, &updatedAt); err != nil {
			return nil, storeErr(op, err)
		}
		u.UpdatedAt = fromMillis(updatedAt)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(op, err)
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
