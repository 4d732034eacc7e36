package achievement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

func testCatalogue(t *testing.T) []Achievement {
	t.Helper()
	list, errs := Compile([]Definition{
		{ID: "a-100", Name: "Century", Criteria: "points >= 100", Points: 50, Position: 1},
		{ID: "a-first", Name: "First Project", Criteria: "first_project", Points: 10, Position: 2},
		{ID: "a-50", Name: "Warm Up", Criteria: "points 50", Points: 5, Position: 3},
	})
	require.Empty(t, errs)
	return list
}

func TestEvaluator_CatalogueOrder(t *testing.T) {
	ev := NewEvaluator(testCatalogue(t))

	got := ev.Evaluate(150, Context{Predicates: map[string]bool{"first_project": true}}, nil)
	require.Len(t, got, 3)
	assert.Equal(t, "Century", got[0].Name)
	assert.Equal(t, "First Project", got[1].Name)
	assert.Equal(t, "Warm Up", got[2].Name)
}

func TestEvaluator_SkipsUnlocked(t *testing.T) {
	ev := NewEvaluator(testCatalogue(t))
	unlocked := UnlockedSet([]UserAchievement{{AchievementID: "a-100"}, {AchievementID: "a-50"}})

	assert.Empty(t, ev.Evaluate(500, Context{}, unlocked))
}

func TestEvaluator_IsIdempotentOverUnlockedSet(t *testing.T) {
	ev := NewEvaluator(testCatalogue(t))

	first := ev.Evaluate(120, Context{}, map[string]struct{}{})
	require.Len(t, first, 2)

	unlocked := map[string]struct{}{}
	for _, a := range first {
		unlocked[a.ID] = struct{}{}
	}
	assert.Empty(t, ev.Evaluate(120, Context{}, unlocked))
}

func TestCompile_Errors(t *testing.T) {
	list, errs := Compile([]Definition{
		{ID: "1", Name: "Dup", Criteria: "points 10", Position: 1},
		{ID: "2", Name: "Dup", Criteria: "points 20", Position: 2},
		{ID: "3", Name: "Broken", Criteria: "points <= 10", Position: 3},
		{ID: "4", Name: "Negative", Criteria: "points 10", Points: -1, Position: 4},
		{ID: "5", Name: "", Criteria: "points 10", Position: 5},
	})

	require.Len(t, list, 1)
	assert.Equal(t, "Dup", list[0].Name)
	require.Len(t, errs, 4)
	assert.True(t, errors.Is(errs[0], shared.ErrDuplicateAchievement))
	assert.True(t, errors.Is(errs[1], shared.ErrUnknownCriteria))
	assert.True(t, shared.IsValidation(errs[2]))
}

func TestCompile_OrdersByPosition(t *testing.T) {
	list, errs := Compile([]Definition{
		{ID: "b", Name: "B", Criteria: "points 1", Position: 2},
		{ID: "a", Name: "A", Criteria: "points 1", Position: 1},
	})
	require.Empty(t, errs)
	assert.Equal(t, "A", list[0].Name)
	assert.Equal(t, "B", list[1].Name)
}
