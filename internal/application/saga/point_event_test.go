package saga_test

import (
	"context"
	"errors"
	"sync"
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

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

func (r *recorder) types() []shared.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType()
	}
	return out
}

type fixture struct {
	store  *memory.Store
	saga   *saga.PointEventSaga
	events *recorder
	clock  *timeutil.ManualClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.Discard()
	clock := timeutil.NewManualClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := memory.NewStore()

	for _, tr := range []tier.Tier{
		{ID: "t-bronze", Name: "Bronze", MinPoints: 0, Order: 1},
		{ID: "t-silver", Name: "Silver", MinPoints: 100, Order: 2},
		{ID: "t-gold", Name: "Gold", MinPoints: 500, Order: 3},
	} {
		require.NoError(t, store.Tiers().Upsert(ctx, tr))
	}
	for _, d := range []achievement.Definition{
		{ID: "a-almost", Name: "Almost There", Criteria: "points >= 90", Points: 15},
		{ID: "a-century", Name: "Centurion", Criteria: "points >= 100", Points: 20},
		{ID: "a-helper", Name: "Helper", Criteria: "helped_someone", Points: 0},
	} {
		require.NoError(t, store.Achievements().Upsert(ctx, d))
	}

	cat := catalogue.New(store.Tiers(), store.Achievements(), nil, clock, log, catalogue.Config{Strict: true})
	require.NoError(t, cat.Load(ctx))

	u, err := user.NewUser("u1", "Alice", clock.Now())
	require.NoError(t, err)
	u.TierID = "t-bronze"
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

func (f *fixture) apply(t *testing.T, delta int, reason string) (*saga.PointEventResult, error) {
	t.Helper()
	return f.saga.ApplyPointEvent(context.Background(), saga.PointEventInput{
		UserID: "u1",
		Delta:  delta,
		Reason: reason,
		Actor:  ledger.UserActor("caller"),
	})
}

func (f *fixture) user(t *testing.T) *user.User {
	t.Helper()
	u, err := f.store.Users().Get(context.Background(), "u1")
	require.NoError(t, err)
	return u
}

func (f *fixture) entries(t *testing.T) []ledger.Entry {
	t.Helper()
	list, err := f.store.Entries().ListByUser(context.Background(), "u1", 0)
	require.NoError(t, err)
	return list
}

func (f *fixture) unlocked(t *testing.T) []string {
	t.Helper()
	list, err := f.store.Unlocks().ListByUser(context.Background(), "u1")
	require.NoError(t, err)
	names := make([]string, len(list))
	for i, ua := range list {
		names[i] = ua.Name
	}
	return names
}

func names(list []achievement.Achievement) []string {
	out := make([]string, len(list))
	for i, a := range list {
		out[i] = a.Name
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// APPLY POINT EVENT
// ══════════════════════════════════════════════════════════════════════════════

func TestApplyPointEvent_UnlocksInCatalogueOrder(t *testing.T) {
	f := newFixture(t)

	res, err := f.apply(t, 100, "task completed")
	require.NoError(t, err)

	assert.Equal(t, []string{"Almost There", "Centurion"}, names(res.NewAchievements))
	assert.Equal(t, 135, res.Balance)
	assert.Equal(t, "Bronze", res.PreviousTier.Name)
	assert.Equal(t, "Silver", res.Tier.Name)
	assert.True(t, res.TierChanged)

	require.Len(t, res.Entries, 3)
	assert.Equal(t, "task completed", res.Entries[0].Reason)
	assert.Equal(t, ledger.ReasonAchievementUnlock, res.Entries[1].Reason)
	assert.Equal(t, 15, res.Entries[1].Delta)
	assert.Equal(t, ledger.ActorSystem, res.Entries[1].ActorKind)
	assert.Equal(t, ledger.ReasonAchievementUnlock, res.Entries[2].Reason)
	assert.Equal(t, 135, res.Entries[2].ResultingBalance)

	u := f.user(t)
	assert.Equal(t, 135, u.Points)
	assert.Equal(t, "t-silver", u.TierID)
	assert.Len(t, f.entries(t), 3)

	assert.Equal(t, []shared.EventType{
		shared.EventPointsChanged,
		shared.EventTierChanged,
		shared.EventAchievementUnlocked,
		shared.EventAchievementUnlocked,
	}, f.events.types())

	changed := f.events.events[0].(shared.PointsChangedEvent)
	assert.Equal(t, 135, changed.Delta)
	assert.Equal(t, 135, changed.NewBalance)
}

func TestApplyPointEvent_BonusDoesNotReevaluate(t *testing.T) {
	f := newFixture(t)

	res, err := f.apply(t, 90, "task completed")
	require.NoError(t, err)
	assert.Equal(t, []string{"Almost There"}, names(res.NewAchievements))
	assert.Equal(t, 105, res.Balance)
	assert.Equal(t, "Silver", res.Tier.Name, "bonus still moves the tier")

	// Centurion became reachable only through the bonus and waits for the next event
	res, err = f.apply(t, 0, "heartbeat")
	require.NoError(t, err)
	assert.Equal(t, []string{"Centurion"}, names(res.NewAchievements))
	assert.Equal(t, 125, res.Balance)
	assert.False(t, res.TierChanged)
}

func TestApplyPointEvent_UnlocksAreIdempotent(t *testing.T) {
	f := newFixture(t)

	_, err := f.apply(t, 100, "task")
	require.NoError(t, err)
	res, err := f.apply(t, 100, "task")
	require.NoError(t, err)

	assert.Empty(t, res.NewAchievements)
	assert.Equal(t, 235, res.Balance)
	assert.ElementsMatch(t, []string{"Almost There", "Centurion"}, f.unlocked(t))
}

func TestApplyPointEvent_PredicateWithoutBonus(t *testing.T) {
	f := newFixture(t)

	res, err := f.saga.ApplyPointEvent(context.Background(), saga.PointEventInput{
		UserID:  "u1",
		Delta:   5,
		Reason:  "answered question",
		Actor:   ledger.UserActor("caller"),
		Context: achievement.Context{Predicates: map[string]bool{"helped_someone": true}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Helper"}, names(res.NewAchievements))
	assert.Len(t, res.Entries, 1, "zero-point achievements add no ledger entry")
	assert.Equal(t, 5, res.Balance)
}

func TestApplyPointEvent_NegativeBalanceRollsBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.apply(t, 30, "task")
	require.NoError(t, err)
	published := len(f.events.types())

	_, err = f.apply(t, -31, "penalty")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrInvalidDelta))

	var sagaErr *saga.PointEventError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, saga.StepBalanceUpdated, sagaErr.Step)
	assert.Equal(t, "u1", sagaErr.UserID)

	assert.Equal(t, 30, f.user(t).Points)
	assert.Len(t, f.entries(t), 1)
	assert.Len(t, f.events.types(), published, "nothing is published for a rolled back event")
}

func TestApplyPointEvent_PersistenceFailureRollsBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.apply(t, 50, "task")
	require.NoError(t, err)

	f.store.FailAppends(errors.New("disk full"))
	_, err = f.apply(t, 100, "task")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrPersistence))

	u := f.user(t)
	assert.Equal(t, 50, u.Points)
	assert.Equal(t, "t-bronze", u.TierID)
	assert.Empty(t, f.unlocked(t))

	f.store.FailAppends(nil)
	assert.Len(t, f.entries(t), 1)
}

func TestApplyPointEvent_LockFailureIsRetryable(t *testing.T) {
	f := newFixture(t)
	f.store.FailLocks(errors.New("failed to get user: conn reset by peer"))

	_, err := f.apply(t, 10, "task")
	require.Error(t, err)
	assert.True(t, errors.Is(err, shared.ErrPersistence))
	assert.True(t, shared.IsRetryable(err))
	assert.False(t, shared.IsNotFound(err))

	var sagaErr *saga.PointEventError
	require.True(t, errors.As(err, &sagaErr))
	assert.Equal(t, saga.StepBalanceUpdated, sagaErr.Step)

	f.store.FailLocks(nil)
	assert.Equal(t, 0, f.user(t).Points)
	assert.Empty(t, f.entries(t))
	assert.Empty(t, f.events.types())
}

func TestApplyPointEvent_UnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.saga.ApplyPointEvent(context.Background(), saga.PointEventInput{
		UserID: "ghost",
		Delta:  1,
		Reason: "task",
	})
	assert.True(t, shared.IsNotFound(err))
}

func TestApplyPointEvent_ValidatesInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.apply(t, 1, "")
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))

	var sagaErr *saga.PointEventError
	require.ErrorAs(t, err, &sagaErr)
	assert.Equal(t, saga.StepReceived, sagaErr.Step)
}

func TestApplyPointEvent_RequiresLoadedCatalogue(t *testing.T) {
	store := memory.NewStore()
	log := logger.Discard()
	clock := timeutil.SystemClock{}
	cat := catalogue.New(store.Tiers(), store.Achievements(), nil, clock, log, catalogue.Config{})
	s := saga.NewPointEventSaga(store, ledger.New(audit.New(log), clock.Now, uuid.NewString), cat, nil, clock, log)

	_, err := s.ApplyPointEvent(context.Background(), saga.PointEventInput{UserID: "u1", Delta: 1, Reason: "task"})
	assert.ErrorIs(t, err, catalogue.ErrNotLoaded)
	assert.True(t, shared.IsRetryable(err))
}

func TestApplyPointEvent_ConcurrentEventsSerialize(t *testing.T) {
	f := newFixture(t)
	const n = 100

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.saga.ApplyPointEvent(context.Background(), saga.PointEventInput{
				UserID: "u1",
				Delta:  1,
				Reason: "task",
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// 100 single points plus both threshold bonuses, each exactly once
	assert.Equal(t, 135, f.user(t).Points)
	assert.ElementsMatch(t, []string{"Almost There", "Centurion"}, f.unlocked(t))

	entries := f.entries(t)
	require.Len(t, entries, n+2)
	prev := 0
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		assert.Equal(t, prev+e.Delta, e.ResultingBalance, "entry %s breaks the balance chain", e.ID)
		prev = e.ResultingBalance
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// SET ABSOLUTE POINTS
// ══════════════════════════════════════════════════════════════════════════════

func TestSetAbsolutePoints_RunsFullPipeline(t *testing.T) {
	f := newFixture(t)

	res, err := f.saga.SetAbsolutePoints(context.Background(), "u1", 600, ledger.AdminActor("root"))
	require.NoError(t, err)

	require.NotEmpty(t, res.Entries)
	first := res.Entries[0]
	assert.Equal(t, ledger.ReasonAdminOverride, first.Reason)
	assert.Equal(t, 600, first.Delta)
	assert.Equal(t, "root", first.ActorID)
	assert.Equal(t, ledger.ActorAdmin, first.ActorKind)

	assert.Equal(t, []string{"Almost There", "Centurion"}, names(res.NewAchievements))
	assert.Equal(t, 635, res.Balance)
	assert.Equal(t, "Gold", res.Tier.Name)

	changed := f.events.events[0].(shared.PointsChangedEvent)
	assert.Equal(t, ledger.ReasonAdminOverride, changed.Reason)
}

func TestSetAbsolutePoints_CanDowngradeTier(t *testing.T) {
	f := newFixture(t)
	_, err := f.saga.SetAbsolutePoints(context.Background(), "u1", 600, ledger.AdminActor("root"))
	require.NoError(t, err)

	res, err := f.saga.SetAbsolutePoints(context.Background(), "u1", 0, ledger.AdminActor("root"))
	require.NoError(t, err)

	assert.Equal(t, 0, res.Balance)
	assert.Equal(t, -635, res.Entries[0].Delta)
	assert.Equal(t, "Gold", res.PreviousTier.Name)
	assert.Equal(t, "Bronze", res.Tier.Name)
	assert.True(t, res.TierChanged)
	assert.Empty(t, res.NewAchievements)
	assert.Equal(t, "t-bronze", f.user(t).TierID)
}

func TestSetAbsolutePoints_RejectsNegative(t *testing.T) {
	f := newFixture(t)

	_, err := f.saga.SetAbsolutePoints(context.Background(), "u1", -5, ledger.AdminActor("root"))
	assert.True(t, errors.Is(err, shared.ErrInvalidDelta))
	assert.Empty(t, f.entries(t))
}
