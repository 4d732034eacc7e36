package command

import (
	"context"
	"strings"

	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SET ABSOLUTE POINTS COMMAND
// Admin override of a balance. Recorded with reason "admin override".
// ══════════════════════════════════════════════════════════════════════════════

// SetAbsolutePointsCommand sets a user's balance to NewBalance.
type SetAbsolutePointsCommand struct {
	UserID     string
	NewBalance int
	ActorID    string // admin performing the override
}

// Validate validates the command.
func (c SetAbsolutePointsCommand) Validate() error {
	if strings.TrimSpace(c.UserID) == "" {
		return shared.NewDomainError("points", "Validate", shared.ErrInvalidID, "set_absolute_points: user_id is required")
	}
	if strings.TrimSpace(c.ActorID) == "" {
		return shared.NewDomainError("points", "Validate", shared.ErrInvalidID, "set_absolute_points: actor_id is required")
	}
	if c.NewBalance < 0 {
		return shared.WrapError("points", "Validate", shared.ErrInvalidDelta, "set_absolute_points: balance cannot be negative", nil)
	}
	return nil
}

// SetAbsolutePointsHandler handles SetAbsolutePointsCommand.
type SetAbsolutePointsHandler struct {
	processor PointEventProcessor
}

// NewSetAbsolutePointsHandler creates a new handler.
func NewSetAbsolutePointsHandler(processor PointEventProcessor) *SetAbsolutePointsHandler {
	return &SetAbsolutePointsHandler{processor: processor}
}

// Handle executes the command.
func (h *SetAbsolutePointsHandler) Handle(ctx context.Context, cmd SetAbsolutePointsCommand) (*PointEventResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	res, err := h.processor.SetAbsolutePoints(ctx, cmd.UserID, cmd.NewBalance, ledger.AdminActor(cmd.ActorID))
	if err != nil {
		return nil, err
	}
	return toResult(res), nil
}
