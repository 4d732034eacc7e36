package command

import (
	"context"
	"time"

	"github.com/connecta-hub/connecta-points/internal/application/saga"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
	"github.com/connecta-hub/connecta-points/pkg/timeutil"
)

// RegisterUserCommand enrolls a user in the points programme with a zero
// balance and the floor tier.
type RegisterUserCommand struct {
	UserID string
	Name   string
}

// RegisterUserResult describes the enrolled user.
type RegisterUserResult struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Points    int       `json:"points"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

// RegisterUserHandler handles RegisterUserCommand.
type RegisterUserHandler struct {
	users     user.Repository
	catalogue saga.CatalogueSource
	clock     timeutil.Clock
}

// NewRegisterUserHandler creates a new handler.
func NewRegisterUserHandler(users user.Repository, catalogue saga.CatalogueSource, clock timeutil.Clock) *RegisterUserHandler {
	return &RegisterUserHandler{users: users, catalogue: catalogue, clock: clock}
}

// Handle executes the command.
func (h *RegisterUserHandler) Handle(ctx context.Context, cmd RegisterUserCommand) (*RegisterUserResult, error) {
	u, err := user.NewUser(cmd.UserID, cmd.Name, h.clock.Now())
	if err != nil {
		return nil, err
	}

	snap, err := h.catalogue.Current()
	if err != nil {
		return nil, err
	}
	floor := snap.Tiers.Resolve(0)
	u.TierID = floor.ID

	if err := h.users.Create(ctx, u); err != nil {
		if shared.IsAlreadyExists(err) {
			return nil, err
		}
		return nil, shared.Persistence("user", "Create", err)
	}

	return &RegisterUserResult{
		UserID:    u.ID,
		Name:      u.Name,
		Points:    u.Points,
		Tier:      floor.Name,
		CreatedAt: u.CreatedAt,
	}, nil
}
