package leaderboard

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

func TestParsePeriod(t *testing.T) {
	tests := map[string]Period{
		"daily":    PeriodDaily,
		"WEEKLY":   PeriodWeekly,
		" monthly": PeriodMonthly,
		"all":      PeriodAll,
		"all-time": PeriodAll,
	}
	for in, want := range tests {
		got, err := ParsePeriod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParsePeriod("yearly")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrUnknownPeriod))
	assert.True(t, shared.IsValidation(err))
}

func TestPeriod_Window(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	w := PeriodWeekly.WindowAt(now)
	assert.Equal(t, now.Add(-7*24*time.Hour), w.From)
	assert.True(t, w.Contains(now))
	assert.True(t, w.Contains(w.From))
	assert.False(t, w.Contains(w.From.Add(-time.Second)))
	assert.False(t, w.Contains(now.Add(time.Second)))

	assert.False(t, PeriodAll.IsWindowed())
	assert.Equal(t, 30*24*time.Hour, PeriodMonthly.Length())
}

func TestRank_TieBreakAndContiguousRanks(t *testing.T) {
	base := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	scores := []Score{
		{UserID: "u3", Name: "Cy", Score: 30, FirstActivity: base.Add(2 * time.Hour)},
		{UserID: "u1", Name: "Ann", Score: 50, FirstActivity: base.Add(time.Hour)},
		{UserID: "u2", Name: "Bob", Score: 50, FirstActivity: base},
		{UserID: "u4", Name: "Dee", Score: 30, FirstActivity: base.Add(2 * time.Hour)},
	}

	got := Rank(scores, 0)
	require.Len(t, got, 4)

	assert.Equal(t, "u2", got[0].UserID, "earlier accumulation wins the tie")
	assert.Equal(t, "u1", got[1].UserID)
	assert.Equal(t, "u3", got[2].UserID, "identical timestamps fall back to user id")
	assert.Equal(t, "u4", got[3].UserID)

	for i, r := range got {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestRank_Limit(t *testing.T) {
	scores := []Score{
		{UserID: "a", Score: 1},
		{UserID: "b", Score: 3},
		{UserID: "c", Score: 2},
	}

	got := Rank(scores, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].UserID)
	assert.Equal(t, "c", got[1].UserID)

	assert.Empty(t, Rank(nil, 10))
}

func TestRank_Deterministic(t *testing.T) {
	scores := []Score{
		{UserID: "x", Score: 5},
		{UserID: "y", Score: 5},
		{UserID: "z", Score: 5},
	}
	reversed := []Score{scores[2], scores[1], scores[0]}

	assert.Equal(t, Rank(scores, 0), Rank(reversed, 0))
}

func TestNormalizeLimit(t *testing.T) {
	l, err := NormalizeLimit(0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, l)

	l, err = NormalizeLimit(500)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, l)

	l, err = NormalizeLimit(7)
	require.NoError(t, err)
	assert.Equal(t, 7, l)

	_, err = NormalizeLimit(-1)
	assert.True(t, shared.IsValidation(err))
}
