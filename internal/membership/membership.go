// Package membership provides group rosters to the reconciliation engine.
package membership

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

// DefaultTTL is how long a roster stays cached when no TTL is configured.
const DefaultTTL = 30 * time.Second

// Source reads rosters from a group store and caches them.
//
// The cache is only an optimization: AddMember invalidates the group's entry,
// and a stale roster at worst delays a late joiner until the next sync.
type Source struct {
	groups storage.GroupStore
	cache  *cache.Cache
}

// NewSource creates a roster source. A ttl of zero disables caching.
func NewSource(groups storage.GroupStore, ttl time.Duration) *Source {
	s := &Source{groups: groups}
	if ttl > 0 {
		s.cache = cache.New(ttl, 2*ttl)
	}
	return s
}

func cacheKey(groupID string) string {
	return "roster-" + groupID
}

// Roster returns the members of a group ordered by join time. The returned
// slice is a copy and may be modified by the caller.
func (s *Source) Roster(ctx context.Context, groupID string) ([]models.Member, error) {
	if s.cache != nil {
		if cached, found := s.cache.Get(cacheKey(groupID)); found {
			return append([]models.Member(nil), cached.([]models.Member)...), nil
		}
	}

	members, err := s.groups.ListMembers(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}

	if s.cache != nil {
		s.cache.SetDefault(cacheKey(groupID), append([]models.Member(nil), members...))
	}
	return members, nil
}

// Invalidate drops the cached roster of a group.
func (s *Source) Invalidate(groupID string) {
	if s.cache != nil {
		s.cache.Delete(cacheKey(groupID))
	}
}

// AddMember appends a member to the group and invalidates its cached roster.
func (s *Source) AddMember(ctx context.Context, groupID string, member *models.Member) error {
	if err := s.groups.AddMember(ctx, groupID, member); err != nil {
		return err
	}
	s.Invalidate(groupID)
	return nil
}
