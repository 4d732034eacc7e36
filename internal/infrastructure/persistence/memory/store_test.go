package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/leaderboard"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/internal/domain/uow"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *Store, id, name string, created time.Time) {
	t.Helper()
	u, err := user.NewUser(id, name, created)
	require.NoError(t, err)
	require.NoError(t, s.Users().Create(context.Background(), u))
}

func TestStore_DoRollsBackOnError(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "Alice", base)
	boom := errors.New("boom")

	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		require.NoError(t, tx.Users().UpdatePoints(ctx, "u1", 99, base))
		require.NoError(t, tx.Entries().Append(ctx, ledger.Entry{ID: "e1", UserID: "u1", Delta: 99}))
		created, err := tx.Unlocks().Unlock(ctx, "u1", "a1", base)
		require.NoError(t, err)
		require.True(t, created)

		// reads inside the transaction see staged writes
		u, err := tx.Users().Get(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 99, u.Points)
		return boom
	})
	require.ErrorIs(t, err, boom)

	u, err := s.Users().Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, u.Points)
	assert.Empty(t, s.entries)
	list, err := s.Unlocks().ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_DoCommits(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "Alice", base)

	err := s.Do(context.Background(), func(ctx context.Context, tx uow.Tx) error {
		if err := tx.Users().UpdatePoints(ctx, "u1", 7, base); err != nil {
			return err
		}
		return tx.Entries().Append(ctx, ledger.Entry{ID: "e1", UserID: "u1", Delta: 7, ResultingBalance: 7})
	})
	require.NoError(t, err)

	u, err := s.Users().Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 7, u.Points)
	assert.Len(t, s.entries, 1)
}

func TestStore_DoHonoursCancelledContext(t *testing.T) {
	s := NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Do(ctx, func(context.Context, uow.Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestStore_FailAppends(t *testing.T) {
	s := NewStore()
	s.FailAppends(errors.New("disk full"))
	assert.Error(t, s.Entries().Append(context.Background(), ledger.Entry{ID: "e1", UserID: "u1"}))

	s.FailAppends(nil)
	assert.NoError(t, s.Entries().Append(context.Background(), ledger.Entry{ID: "e1", UserID: "u1"}))
}

func TestUsers_CreateDuplicate(t *testing.T) {
	s := NewStore()
	seedUser(t, s, "u1", "Alice", base)

	u, _ := user.NewUser("u1", "Again", base)
	err := s.Users().Create(context.Background(), u)
	assert.True(t, shared.IsAlreadyExists(err))

	_, err = s.Users().Get(context.Background(), "nobody")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestUnlocks_Idempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	created, err := s.Unlocks().Unlock(ctx, "u1", "a1", base)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.Unlocks().Unlock(ctx, "u1", "a1", base.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, created)

	err = s.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		created, err := tx.Unlocks().Unlock(ctx, "u1", "a1", base.Add(2*time.Hour))
		assert.False(t, created)
		return err
	})
	require.NoError(t, err)

	list, err := s.Unlocks().ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, base, list[0].EarnedAt)
}

func TestEntries_ListByUserNewestFirst(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for i, id := range []string{"e1", "e2", "e3"} {
		require.NoError(t, s.Entries().Append(ctx, ledger.Entry{ID: id, UserID: "u1", Delta: i}))
	}
	require.NoError(t, s.Entries().Append(ctx, ledger.Entry{ID: "x", UserID: "u2"}))

	list, err := s.Entries().ListByUser(ctx, "u1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "e3", list[0].ID)
	assert.Equal(t, "e2", list[1].ID)
}

func TestCatalogue_UpsertKeepsIdentity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.Tiers().Upsert(ctx, tier.Tier{ID: "t1", Name: "Bronze", MinPoints: 0, Order: 1}))
	require.NoError(t, s.Tiers().Upsert(ctx, tier.Tier{ID: "t-new", Name: "Bronze", MinPoints: 0, Order: 1}))
	tiers, err := s.Tiers().List(ctx)
	require.NoError(t, err)
	require.Len(t, tiers, 1)
	assert.Equal(t, "t1", tiers[0].ID)

	require.NoError(t, s.Achievements().Upsert(ctx, achievement.Definition{ID: "a1", Name: "First", Criteria: "points 10"}))
	require.NoError(t, s.Achievements().Upsert(ctx, achievement.Definition{ID: "a2", Name: "Second", Criteria: "points 20"}))
	require.NoError(t, s.Achievements().Upsert(ctx, achievement.Definition{ID: "a9", Name: "First", Criteria: "points 15"}))

	defs, err := s.Achievements().List(ctx)
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "a1", defs[0].ID)
	assert.Equal(t, 1, defs[0].Position)
	assert.Equal(t, "points 15", defs[0].Criteria)
	assert.Equal(t, "Second", defs[1].Name)
	assert.Equal(t, 2, defs[1].Position)
}

func TestLeaderboard_AllTimeTieBreak(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", base)
	seedUser(t, s, "u2", "Bob", base)
	seedUser(t, s, "u3", "Carol", base.Add(-time.Hour))

	for _, e := range []ledger.Entry{
		{ID: "e1", UserID: "u2", Delta: 50, CreatedAt: base.Add(time.Minute)},
		{ID: "e2", UserID: "u1", Delta: 50, CreatedAt: base.Add(2 * time.Minute)},
	} {
		require.NoError(t, s.Entries().Append(ctx, e))
		require.NoError(t, s.Users().UpdatePoints(ctx, e.UserID, e.Delta, e.CreatedAt))
	}

	scores, err := s.Leaderboard().AllTime(ctx, 0)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, "u2", scores[0].UserID)
	assert.Equal(t, "u1", scores[1].UserID)
	assert.Equal(t, "u3", scores[2].UserID)
	assert.Equal(t, 0, scores[2].Score)
}

func TestLeaderboard_WindowedSumsOnlyWindow(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	seedUser(t, s, "u1", "Alice", base)
	seedUser(t, s, "u2", "Bob", base)

	for _, e := range []ledger.Entry{
		{ID: "old", UserID: "u1", Delta: 500, CreatedAt: base.Add(-48 * time.Hour)},
		{ID: "e1", UserID: "u1", Delta: 10, CreatedAt: base.Add(-2 * time.Hour)},
		{ID: "e2", UserID: "u1", Delta: -4, CreatedAt: base.Add(-time.Hour)},
		{ID: "e3", UserID: "u2", Delta: 8, CreatedAt: base.Add(-24 * time.Hour)},
	} {
		require.NoError(t, s.Entries().Append(ctx, e))
	}

	scores, err := s.Leaderboard().Windowed(ctx, leaderboard.PeriodDaily.WindowAt(base), 0)
	require.NoError(t, err)
	require.Len(t, scores, 2)

	// u2's entry sits exactly on the window's lower bound and counts
	assert.Equal(t, "u2", scores[0].UserID)
	assert.Equal(t, 8, scores[0].Score)
	assert.Equal(t, "u1", scores[1].UserID)
	assert.Equal(t, 6, scores[1].Score)
	assert.Equal(t, base.Add(-2*time.Hour), scores[1].FirstActivity)
}
