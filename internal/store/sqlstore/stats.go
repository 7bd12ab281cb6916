package sqlstore

import (
	"context"

	"github.com/pliu/siso/internal/models"
	"github.com/pliu/siso/internal/store"
	"github.com/sourcegraph/conc/pool"
)

var _ store.Store = (*SQLStore)(nil)

func (s *SQLStore) Stats(ctx context.Context, q store.StatsQuery) (models.Stats, error) {
	var (
		st     models.Stats
		mySent int64
	)
	p := pool.New().WithContext(ctx).WithCancelOnError()
	count := func(dst *int64, query string, args ...any) {
		p.Go(func(ctx context.Context) error {
			return s.db.QueryRowContext(ctx, s.rebind(query), args...).Scan(dst)
		})
	}
	count(&st.UserCount, "SELECT COUNT(*) FROM users")
	count(&st.ChatCount, "SELECT COUNT(*) FROM chats")
	count(&st.MessageCount, "SELECT COUNT(*) FROM messages")
	count(&st.MessagesLast24h, "SELECT COUNT(*) FROM messages WHERE created_at >= ?", toMillis(q.Since24h))
	count(&st.MessagesLast7d, "SELECT COUNT(*) FROM messages WHERE created_at >= ?", toMillis(q.Since7d))
	if q.SenderID != "" {
		count(&mySent, "SELECT COUNT(*) FROM messages WHERE sender_id = ?", q.SenderID)
	}
	if err := p.Wait(); err != nil {
		return models.Stats{}, storeErr("stats", err)
	}
	if q.SenderID != "" {
		st.MySentMessages = &mySent
	}
	return st, nil
}
