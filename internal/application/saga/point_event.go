// Package saga contains business processes that orchestrate several domain
// operations in a coordinated manner.
package saga

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/application/catalogue"
	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/internal/domain/uow"
	"github.com/connecta-hub/connecta-points/pkg/logger"
	"github.com/connecta-hub/connecta-points/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// POINT EVENT SAGA
// Flow: Received → BalanceUpdated → TierResolved → AchievementsEvaluated →
//
//	Logged → Completed
//
// Everything up to Logged happens inside one unit of work. Logged means the
// transaction committed; after that only best-effort event publishing runs.
// ══════════════════════════════════════════════════════════════════════════════

// PointEventStep is a state of the point event state machine.
type PointEventStep string

const (
	StepReceived              PointEventStep = "received"
	StepBalanceUpdated        PointEventStep = "balance_updated"
	StepTierResolved          PointEventStep = "tier_resolved"
	StepAchievementsEvaluated PointEventStep = "achievements_evaluated"
	StepLogged                PointEventStep = "logged"
	StepCompleted             PointEventStep = "completed"
)

// PointEventInput describes one point event.
type PointEventInput struct {
	UserID string
	Delta  int
	Reason string
	Actor  ledger.Actor
	// Context feeds named predicates and counters of achievement criteria.
	Context achievement.Context
}

// Validate checks if the input is valid.
func (i PointEventInput) Validate() error {
	if strings.TrimSpace(i.UserID) == "" {
		return shared.NewDomainError("points", "Validate", shared.ErrInvalidID, "user id is required")
	}
	if strings.TrimSpace(i.Reason) == "" {
		return shared.NewDomainError("points", "Validate", shared.ErrEmptyValue, "reason is required")
	}
	return nil
}

// PointEventResult is returned by both ApplyPointEvent and SetAbsolutePoints.
type PointEventResult struct {
	UserID          string
	Balance         int
	PreviousTier    tier.Tier
	Tier            tier.Tier
	TierChanged     bool
	NewAchievements []achievement.Achievement
	Entries         []ledger.Entry
	ProcessedAt     time.Time
}

// PointEventState tracks the saga while it runs.
type PointEventState struct {
	CurrentStep  PointEventStep
	FailedStep   PointEventStep
	Input        PointEventInput
	Catalogue    *catalogue.Snapshot
	PrevTierID   string
	TierID       string
	Balance      int
	Unlocked     []achievement.Achievement
	Entries      []ledger.Entry
	StartedAt    time.Time
	CompletedAt  *time.Time
	Error        error
	absolute     bool
	absoluteGoal int
}

// PointEventError carries the step the saga failed at.
type PointEventError struct {
	Step   PointEventStep
	UserID string
	Cause  error
}

func (e *PointEventError) Error() string {
	return fmt.Sprintf("point event for user %s failed at step '%s': %v", e.UserID, e.Step, e.Cause)
}

// Unwrap exposes the domain error.
func (e *PointEventError) Unwrap() error {
	return e.Cause
}

// CatalogueSource provides the active catalogue snapshot.
type CatalogueSource interface {
	Current() (*catalogue.Snapshot, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// PointEventSaga coordinates ledger, tiers and achievements for one event.
type PointEventSaga struct {
	uow       uow.UnitOfWork
	ledger    *ledger.Ledger
	catalogue CatalogueSource
	eventBus  shared.EventPublisher
	clock     timeutil.Clock
	log       *logger.Logger
}

// NewPointEventSaga creates the saga.
func NewPointEventSaga(
	unit uow.UnitOfWork,
	l *ledger.Ledger,
	cat CatalogueSource,
	eventBus shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
) *PointEventSaga {
	return &PointEventSaga{
		uow:       unit,
		ledger:    l,
		catalogue: cat,
		eventBus:  eventBus,
		clock:     clock,
		log:       log.With(logger.Component("point_event_saga")),
	}
}

// ApplyPointEvent applies a delta and runs tier and achievement processing.
func (s *PointEventSaga) ApplyPointEvent(ctx context.Context, input PointEventInput) (*PointEventResult, error) {
	state := &PointEventState{Input: input}
	return s.execute(ctx, state)
}

// SetAbsolutePoints overrides the balance as an admin. The override goes
// through the same pipeline, so it can move tiers and unlock achievements.
func (s *PointEventSaga) SetAbsolutePoints(ctx context.Context, userID string, newBalance int, actor ledger.Actor) (*PointEventResult, error) {
	state := &PointEventState{
		Input: PointEventInput{
			UserID: userID,
			Reason: ledger.ReasonAdminOverride,
			Actor:  actor,
		},
		absolute:     true,
		absoluteGoal: newBalance,
	}
	return s.execute(ctx, state)
}

func (s *PointEventSaga) execute(ctx context.Context, state *PointEventState) (*PointEventResult, error) {
	state.CurrentStep = StepReceived
	state.StartedAt = s.clock.Now()

	if err := state.Input.Validate(); err != nil {
		return nil, s.fail(state, StepReceived, err)
	}
	snap, err := s.catalogue.Current()
	if err != nil {
		return nil, s.fail(state, StepReceived, err)
	}
	state.Catalogue = snap

	err = s.uow.Do(ctx, func(ctx context.Context, tx uow.Tx) error {
		if err := s.stepUpdateBalance(ctx, tx, state); err != nil {
			return err
		}
		if err := s.stepResolveTier(ctx, tx, state); err != nil {
			return err
		}
		return s.stepEvaluateAchievements(ctx, tx, state)
	})
	if err != nil {
		if state.FailedStep == "" {
			// commit itself failed
			state.FailedStep = StepLogged
			if ctx.Err() == nil {
				err = shared.Persistence("points", "Commit", err)
			}
		}
		state.Error = err
		s.log.Warn("point event rolled back",
			logger.UserID(state.Input.UserID),
			logger.Delta(state.Input.Delta),
			logger.String("failed_step", string(state.FailedStep)),
			logger.Err(err),
		)
		return nil, s.wrapError(state, err)
	}
	state.CurrentStep = StepLogged

	s.stepPublishEvents(state)

	state.CurrentStep = StepCompleted
	now := s.clock.Now()
	state.CompletedAt = &now

	prevTier, _ := snap.Tiers.ByID(state.PrevTierID)
	newTier, _ := snap.Tiers.ByID(state.TierID)

	s.log.Info("point event completed",
		logger.UserID(state.Input.UserID),
		logger.Delta(state.Input.Delta),
		logger.Balance(state.Balance),
		logger.Reason(state.Input.Reason),
		logger.ActorID(state.Input.Actor.ID),
		logger.TierName(newTier.Name),
		logger.Int("unlocked", len(state.Unlocked)),
		logger.Latency(now.Sub(state.StartedAt)),
	)

	return &PointEventResult{
		UserID:          state.Input.UserID,
		Balance:         state.Balance,
		PreviousTier:    prevTier,
		Tier:            newTier,
		TierChanged:     state.PrevTierID != state.TierID,
		NewAchievements: state.Unlocked,
		Entries:         state.Entries,
		ProcessedAt:     now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// SAGA STEPS
// ══════════════════════════════════════════════════════════════════════════════

// stepUpdateBalance locks the user and applies the primary delta.
func (s *PointEventSaga) stepUpdateBalance(ctx context.Context, tx uow.Tx, state *PointEventState) error {
	u, err := tx.Users().GetForUpdate(ctx, state.Input.UserID)
	if err != nil {
		if !shared.IsNotFound(err) {
			err = shared.Persistence("points", "LockUser", err)
		}
		return s.markFailed(state, StepBalanceUpdated, err)
	}
	state.PrevTierID = u.TierID
	state.TierID = u.TierID

	var entry ledger.Entry
	if state.absolute {
		entry, err = s.ledger.SetAbsolute(ctx, tx, state.Input.UserID, state.absoluteGoal, state.Input.Actor)
		state.Input.Delta = entry.Delta
	} else {
		entry, err = s.ledger.ApplyDelta(ctx, tx, state.Input.UserID, state.Input.Delta, state.Input.Reason, state.Input.Actor)
	}
	if err != nil {
		return s.markFailed(state, StepBalanceUpdated, err)
	}

	state.Balance = entry.ResultingBalance
	state.Entries = append(state.Entries, entry)
	state.CurrentStep = StepBalanceUpdated
	return nil
}

// stepResolveTier persists the tier for the current balance if it moved.
func (s *PointEventSaga) stepResolveTier(ctx context.Context, tx uow.Tx, state *PointEventState) error {
	if err := s.syncTier(ctx, tx, state); err != nil {
		return s.markFailed(state, StepTierResolved, err)
	}
	state.CurrentStep = StepTierResolved
	return nil
}

// stepEvaluateAchievements runs the evaluator exactly once. Bonus deltas go
// through the ledger and may move the tier again, but never trigger another
// evaluation within the same event.
func (s *PointEventSaga) stepEvaluateAchievements(ctx context.Context, tx uow.Tx, state *PointEventState) error {
	existing, err := tx.Unlocks().ListByUser(ctx, state.Input.UserID)
	if err != nil {
		return s.markFailed(state, StepAchievementsEvaluated, shared.Persistence("points", "ListUnlocks", err))
	}

	candidates := state.Catalogue.Evaluator.Evaluate(state.Balance, state.Input.Context, achievement.UnlockedSet(existing))

	bonusApplied := false
	for _, a := range candidates {
		created, err := tx.Unlocks().Unlock(ctx, state.Input.UserID, a.ID, s.clock.Now())
		if err != nil {
			return s.markFailed(state, StepAchievementsEvaluated, shared.Persistence("points", "Unlock", err))
		}
		if !created {
			s.log.Debug("achievement already unlocked",
				logger.UserID(state.Input.UserID),
				logger.Achievement(a.Name),
			)
			continue
		}
		state.Unlocked = append(state.Unlocked, a)

		if a.Points <= 0 {
			continue
		}
		entry, err := s.ledger.ApplyDelta(ctx, tx, state.Input.UserID, a.Points, ledger.ReasonAchievementUnlock, ledger.SystemActor)
		if err != nil {
			return s.markFailed(state, StepAchievementsEvaluated, err)
		}
		state.Balance = entry.ResultingBalance
		state.Entries = append(state.Entries, entry)
		bonusApplied = true
	}

	if bonusApplied {
		if err := s.syncTier(ctx, tx, state); err != nil {
			return s.markFailed(state, StepAchievementsEvaluated, err)
		}
	}

	state.CurrentStep = StepAchievementsEvaluated
	return nil
}

// stepPublishEvents emits post-commit events. Failures are logged only:
// the state is already durable.
func (s *PointEventSaga) stepPublishEvents(state *PointEventState) {
	if s.eventBus == nil {
		return
	}
	now := s.clock.Now()
	in := state.Input

	events := []shared.Event{
		shared.NewPointsChangedEvent(in.UserID, state.Balance-balanceBefore(state), state.Balance, in.Reason, in.Actor.ID, now),
	}
	if state.PrevTierID != state.TierID {
		prev, _ := state.Catalogue.Tiers.ByID(state.PrevTierID)
		next, _ := state.Catalogue.Tiers.ByID(state.TierID)
		events = append(events, shared.NewTierChangedEvent(in.UserID, prev.Name, next.Name, now))
	}
	for _, a := range state.Unlocked {
		events = append(events, shared.NewAchievementUnlockedEvent(in.UserID, a.ID, a.Name, a.Points, now))
	}

	for _, ev := range events {
		if err := s.eventBus.Publish(ev); err != nil {
			s.log.Warn("failed to publish event",
				logger.String("event_type", string(ev.EventType())),
				logger.UserID(in.UserID),
				logger.Err(err),
			)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *PointEventSaga) syncTier(ctx context.Context, tx uow.Tx, state *PointEventState) error {
	resolved := state.Catalogue.Tiers.Resolve(state.Balance)
	if resolved.ID == state.TierID {
		return nil
	}
	if err := tx.Users().UpdateTier(ctx, state.Input.UserID, resolved.ID, s.clock.Now()); err != nil {
		return shared.Persistence("points", "UpdateTier", err)
	}
	state.TierID = resolved.ID
	return nil
}

// balanceBefore is the balance before the first entry of this event.
func balanceBefore(state *PointEventState) int {
	if len(state.Entries) == 0 {
		return state.Balance
	}
	first := state.Entries[0]
	return first.ResultingBalance - first.Delta
}

func (s *PointEventSaga) markFailed(state *PointEventState, step PointEventStep, err error) error {
	state.FailedStep = step
	state.Error = err
	return err
}

func (s *PointEventSaga) fail(state *PointEventState, step PointEventStep, err error) error {
	s.markFailed(state, step, err)
	return s.wrapError(state, err)
}

// wrapError wraps an error with saga context.
func (s *PointEventSaga) wrapError(state *PointEventState, err error) error {
	return &PointEventError{
		Step:   state.FailedStep,
		UserID: state.Input.UserID,
		Cause:  err,
	}
}
