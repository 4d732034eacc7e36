package saga_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connecta-hub/connecta-points/internal/application/audit"
	"github.com/connecta-hub/connecta-points/internal/application/catalogue"
	"github.com/connecta-hub/connecta-points/internal/application/saga"
	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
	"github.com/connecta-hub/connecta-points/internal/infrastructure/persistence/memory"
	"github.com/connecta-hub/connecta-points/pkg/logger"
	"github.com/connecta-hub/connecta-points/pkg/timeutil"
)

// newTwoTierFixture builds a Bronze (0) / Silver (1000) catalogue with the
// given achievements and a user that already holds start points.
func newTwoTierFixture(t *testing.T, start int, defs ...achievement.Definition) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()
	clock := timeutil.NewManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore()

	require.NoError(t, store.Tiers().Upsert(ctx, tier.Tier{ID: "t-bronze", Name: "Bronze", MinPoints: 0, Order: 1}))
	require.NoError(t, store.Tiers().Upsert(ctx, tier.Tier{ID: "t-silver", Name: "Silver", MinPoints: 1000, Order: 2}))
	for _, d := range defs {
		require.NoError(t, store.Achievements().Upsert(ctx, d))
	}

	cat := catalogue.New(store.Tiers(), store.Achievements(), nil, clock, log, catalogue.Config{Strict: true})
	require.NoError(t, cat.Load(ctx))

	u, err := user.NewUser("u1", "Ana", clock.Now())
	require.NoError(t, err)
	u.Points = start
	u.TierID = "t-bronze"
	if start >= 1000 {
		u.TierID = "t-silver"
	}
	require.NoError(t, store.Users().Create(ctx, u))

	events := &recorder{}
	l := ledger.New(audit.New(log), clock.Now, uuid.NewString)
	return &fixture{
		store:  store,
		saga:   saga.NewPointEventSaga(store, l, cat, events, clock, log),
		events: events,
		clock:  clock,
	}
}

func TestScenario_TierStaysBelowThreshold(t *testing.T) {
	f := newTwoTierFixture(t, 0)

	res, err := f.apply(t, 150, "task completed")
	require.NoError(t, err)
	assert.Equal(t, 150, res.Balance)
	assert.Equal(t, "Bronze", res.Tier.Name)
	assert.False(t, res.TierChanged)
}

func TestScenario_CrossingIntoSilver(t *testing.T) {
	f := newTwoTierFixture(t, 950)

	res, err := f.apply(t, 100, "task completed")
	require.NoError(t, err)
	assert.Equal(t, 1050, res.Balance)
	assert.Equal(t, "Bronze", res.PreviousTier.Name)
	assert.Equal(t, "Silver", res.Tier.Name)
	assert.True(t, res.TierChanged)
	assert.Equal(t, "t-silver", f.user(t).TierID)
}

func TestScenario_UnlockWithBonusOnce(t *testing.T) {
	dedicated := achievement.Definition{ID: "a-dedicado", Name: "Iniciante Dedicado", Criteria: "points 100", Points: 50}
	f := newTwoTierFixture(t, 90, dedicated)

	res, err := f.apply(t, 20, "task completed")
	require.NoError(t, err)
	assert.Equal(t, []string{"Iniciante Dedicado"}, names(res.NewAchievements))
	assert.Equal(t, 160, res.Balance)
	assert.Equal(t, "Bronze", res.Tier.Name, "tier is checked again against the bonus balance")
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 110, res.Entries[0].ResultingBalance)
	assert.Equal(t, 50, res.Entries[1].Delta)
	assert.Equal(t, 160, res.Entries[1].ResultingBalance)

	// replaying a qualifying event does not unlock again
	res, err = f.apply(t, 20, "task completed")
	require.NoError(t, err)
	assert.Empty(t, res.NewAchievements)
	assert.Equal(t, 180, res.Balance)
	assert.Equal(t, []string{"Iniciante Dedicado"}, f.unlocked(t))
}

func TestScenario_AdminOverrideComputesDelta(t *testing.T) {
	f := newTwoTierFixture(t, 500)

	res, err := f.saga.SetAbsolutePoints(context.Background(), "u1", 9999, ledger.AdminActor("admin-7"))
	require.NoError(t, err)
	require.Len(t, res.Entries, 1)
	entry := res.Entries[0]
	assert.Equal(t, 9499, entry.Delta)
	assert.Equal(t, 9999, entry.ResultingBalance)
	assert.Equal(t, ledger.ReasonAdminOverride, entry.Reason)
	assert.Equal(t, "admin-7", entry.ActorID)
	assert.Equal(t, "Silver", res.Tier.Name)
	assert.Len(t, f.entries(t), 1)
}

func TestScenario_OverdraftRejected(t *testing.T) {
	f := newTwoTierFixture(t, 30)

	_, err := f.apply(t, -50, "penalty")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidDelta))
	assert.Equal(t, 30, f.user(t).Points)
	assert.Empty(t, f.entries(t))
	assert.Empty(t, f.events.types())
}
