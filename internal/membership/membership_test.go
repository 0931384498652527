package membership

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitsettle/internal/models"
	"github.com/mmynk/splitsettle/internal/storage"
)

type countingGroups struct {
	storage.GroupStore
	members map[string][]models.Member
	lists   int
}

func (g *countingGroups) ListMembers(_ context.Context, groupID string) ([]models.Member, error) {
	g.lists++
	return append([]models.Member(nil), g.members[groupID]...), nil
}

func (g *countingGroups) AddMember(_ context.Context, groupID string, m *models.Member) error {
	g.members[groupID] = append(g.members[groupID], *m)
	return nil
}

func TestSource_CachesRoster(t *testing.T) {
	groups := &countingGroups{members: map[string][]models.Member{
		"g1": {{ID: "m1", Name: "Alice"}},
	}}
	src := NewSource(groups, time.Minute)
	ctx := context.Background()

	first, err := src.Roster(ctx, "g1")
	require.NoError(t, err)
	second, err := src.Roster(ctx, "g1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, groups.lists)

	// Callers may modify the returned slice without corrupting the cache.
	second[0].Name = "Mallory"
	third, err := src.Roster(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", third[0].Name)
}

func TestSource_AddMemberInvalidates(t *testing.T) {
	groups := &countingGroups{members: map[string][]models.Member{
		"g1": {{ID: "m1", Name: "Alice"}},
	}}
	src := NewSource(groups, time.Minute)
	ctx := context.Background()

	_, err := src.Roster(ctx, "g1")
	require.NoError(t, err)

	require.NoError(t, src.AddMember(ctx, "g1", &models.Member{ID: "m2", Name: "Bob"}))

	roster, err := src.Roster(ctx, "g1")
	require.NoError(t, err)
	assert.Len(t, roster, 2)
	assert.Equal(t, 2, groups.lists)
}

func TestSource_ZeroTTLDisablesCache(t *testing.T) {
	groups := &countingGroups{members: map[string][]models.Member{}}
	src := NewSource(groups, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := src.Roster(ctx, "g1")
		require.NoError(t, err)
	}
	assert.Equal(t, 3, groups.lists)
	src.Invalidate("g1")
}
