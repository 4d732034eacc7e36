package achievement

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

func TestParseCriteria(t *testing.T) {
	tests := []struct {
		raw  string
		want Criteria
	}{
		{"points 500", Threshold{Field: "points", Op: OpGTE, Value: 500}},
		{"points >= 100", Threshold{Field: "points", Op: OpGTE, Value: 100}},
		{"comments_count >= 50", Threshold{Field: "comments_count", Op: OpGTE, Value: 50}},
		{"tasks_done > 3", Threshold{Field: "tasks_done", Op: OpGT, Value: 3}},
		{"level = 2", Threshold{Field: "level", Op: OpEQ, Value: 2}},
		{"  Points   42 ", Threshold{Field: "points", Op: OpGTE, Value: 42}},
		{"first_project", NamedPredicate{Key: "first_project"}},
		{"legendary_status", NamedPredicate{Key: "legendary_status"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseCriteria(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCriteria_Unknown(t *testing.T) {
	for _, raw := range []string{"", "points", "500", "points >= lots", "points <= 5", "a b c d", "first-project", "points >= 5 extra"} {
		_, err := ParseCriteria(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, shared.ErrUnknownCriteria), raw)
	}
}

func TestThreshold_Satisfied(t *testing.T) {
	ctx := Context{Counters: map[string]int{"comments_count": 50}}

	assert.True(t, Threshold{Field: "points", Op: OpGTE, Value: 100}.Satisfied(100, ctx))
	assert.False(t, Threshold{Field: "points", Op: OpGT, Value: 100}.Satisfied(100, ctx))
	assert.True(t, Threshold{Field: "comments_count", Op: OpEQ, Value: 50}.Satisfied(0, ctx))
	assert.False(t, Threshold{Field: "missing", Op: OpGTE, Value: 1}.Satisfied(1000, ctx))
	assert.True(t, Threshold{Field: "missing", Op: OpGTE, Value: 0}.Satisfied(0, ctx))
}

func TestNamedPredicate_Satisfied(t *testing.T) {
	p := NamedPredicate{Key: "first_project"}

	assert.True(t, p.Satisfied(0, Context{Predicates: map[string]bool{"first_project": true}}))
	assert.False(t, p.Satisfied(0, Context{Predicates: map[string]bool{"first_project": false}}))
	assert.False(t, p.Satisfied(0, Context{}))
}
