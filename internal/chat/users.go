package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pliu/siso/internal/apperr"
	"github.com/pliu/siso/internal/models"
	"github.com/pliu/siso/internal/store"
)

// SetDisplayName stores the trimmed name for userID, replacing any earlier one.
func (s *Service) SetDisplayName(ctx context.Context, userID, displayName string) error {
	name := strings.TrimSpace(displayName)
	if userID == "" {
		return invalid("userId is required")
	}
	if name == "" {
		return invalid("displayName must not be empty")
	}
	return s.store.UpsertUser(ctx, models.User{ID: userID, DisplayName: name, UpdatedAt: s.now()})
}

// Profiles returns the known profiles among ids. Unknown ids are skipped.
func (s *Service) Profiles(ctx context.Context, ids []string) ([]models.User, error) {
	clean := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		clean = append(clean, id)
	}
	if len(clean) == 0 {
		return []models.User{}, nil
	}
	return s.store.GetUsers(ctx, clean)
}

// FindUsers searches display names case-insensitively by substring.
func (s *Service) FindUsers(ctx context.Context, query string) ([]models.User, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, invalid("q is required")
	}
	return s.store.SearchUsers(ctx, q, store.SearchLimit)
}

// Stats returns the admin aggregates when adminCode is accepted.
func (s *Service) Stats(ctx context.Context, adminCode, userID string) (models.Stats, error) {
	if !s.admin.Verify(adminCode) {
		return models.Stats{}, fmt.Errorf("%w: wrong admin code", apperr.ErrForbidden)
	}
	now := s.now()
	return s.store.Stats(ctx, store.StatsQuery{
		Since24h: now.Add(-24 * time.Hour),
		Since7d:  now.Add(-7 * 24 * time.Hour),
		SenderID: userID,
	})
}
