// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"strings"
	"time"

	"github.com/connecta-hub/connecta-points/internal/application/saga"
	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// APPLY POINT EVENT COMMAND
// A caller reports that a user earned or lost points for some reason
// (task completed, comment posted, penalty). Tier and achievements follow.
// ══════════════════════════════════════════════════════════════════════════════

// ApplyPointEventCommand contains the data of one point event.
type ApplyPointEventCommand struct {
	UserID string
	Delta  int
	Reason string

	// ActorID is who initiated the event; empty means the system.
	ActorID string

	// Predicates and Counters feed achievement criteria.
	Predicates map[string]bool
	Counters   map[string]int
}

// Validate validates the command.
func (c ApplyPointEventCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.NewDomainError("points", "Validate", shared.ErrInvalidID, "apply_point_event: user_id is required")
	}
	if strings.TrimSpace(c.Reason) == "" {
		return shared.NewDomainError("points", "Validate", shared.ErrEmptyValue, "apply_point_event: reason is required")
	}
	return nil
}

// PointEventResult is the outcome shared by point-changing commands.
type PointEventResult struct {
	UserID          string           `json:"user_id"`
	Balance         int              `json:"balance"`
	Tier            string           `json:"tier"`
	PreviousTier    string           `json:"previous_tier"`
	TierChanged     bool             `json:"tier_changed"`
	NewAchievements []AchievementDTO `json:"new_achievements"`
	ProcessedAt     time.Time        `json:"processed_at"`
}

// AchievementDTO describes an achievement unlocked by the event.
type AchievementDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// PointEventProcessor is satisfied by saga.PointEventSaga.
type PointEventProcessor interface {
	ApplyPointEvent(ctx context.Context, input saga.PointEventInput) (*saga.PointEventResult, error)
	SetAbsolutePoints(ctx context.Context, userID string, newBalance int, actor ledger.Actor) (*saga.PointEventResult, error)
}

// ApplyPointEventHandler handles ApplyPointEventCommand.
type ApplyPointEventHandler struct {
	processor PointEventProcessor
}

// NewApplyPointEventHandler creates a new handler.
func NewApplyPointEventHandler(processor PointEventProcessor) *ApplyPointEventHandler {
	return &ApplyPointEventHandler{processor: processor}
}

// Handle executes the command.
func (h *ApplyPointEventHandler) Handle(ctx context.Context, cmd ApplyPointEventCommand) (*PointEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res, err := h.processor.ApplyPointEvent(ctx, saga.PointEventInput{
		UserID: cmd.UserID,
		Delta:  cmd.Delta,
		Reason: cmd.Reason,
		Actor:  ledger.UserActor(cmd.ActorID),
		Context: achievement.Context{
			Predicates: cmd.Predicates,
			Counters:   cmd.Counters,
		},
	})
	if err != nil {
		return nil, err
	}
	return toResult(res), nil
}

func toResult(res *saga.PointEventResult) *PointEventResult {
	out := &PointEventResult{
		UserID:          res.UserID,
		Balance:         res.Balance,
		Tier:            res.Tier.Name,
		PreviousTier:    res.PreviousTier.Name,
		TierChanged:     res.TierChanged,
		NewAchievements: make([]AchievementDTO, 0, len(res.NewAchievements)),
		ProcessedAt:     res.ProcessedAt,
	}
	for _, a := range res.NewAchievements {
		out.NewAchievements = append(out.NewAchievements, AchievementDTO{ID: a.ID, Name: a.Name, Points: a.Points})
	}
	return out
}
