// Package catalogue keeps the admin-curated tier table and achievement
// catalogue in memory. The catalogue is read-mostly: it is loaded at startup
// and swapped atomically on reload, so point events always evaluate against
// one consistent snapshot.
package catalogue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/pkg/logger"
	"github.com/connecta-hub/connecta-points/pkg/timeutil"
)

// Snapshot is an immutable view of the catalogue.
type Snapshot struct {
	Tiers        *tier.Table
	Evaluator    *achievement.Evaluator
	Achievements []achievement.Achievement
}

// AchievementName returns the display name for an achievement id.
func (s *Snapshot) AchievementName(id string) string {
	for _, a := range s.Achievements {
		if a.ID == id {
			return a.Name
		}
	}
	return ""
}

// Config controls how malformed achievement rows are handled.
type Config struct {
	// Strict fails Load on any unparseable achievement; otherwise such
	// rows are skipped with a warning.
	Strict bool
}

// Catalogue loads and serves catalogue snapshots.
type Catalogue struct {
	tiers        tier.Repository
	achievements achievement.Repository
	publisher    shared.EventPublisher
	clock        timeutil.Clock
	log          *logger.Logger
	cfg          Config

	mu   sync.RWMutex
	snap *Snapshot
}

// New creates an empty catalogue. Call Load before serving traffic.
func New(
	tiers tier.Repository,
	achievements achievement.Repository,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
	cfg Config,
) *Catalogue {
	return &Catalogue{
		tiers:        tiers,
		achievements: achievements,
		publisher:    publisher,
		clock:        clock,
		log:          log.With(logger.Component("catalogue")),
		cfg:          cfg,
	}
}

// ErrNotLoaded is returned by Current before the first successful Load.
var ErrNotLoaded = shared.NewDomainError("catalogue", "Current", shared.ErrServiceUnavailable, "catalogue not loaded")

// Load reads tiers and achievements from storage, validates them and swaps
// the current snapshot. A tier table that fails validation is returned as
// shared.ErrTierConfiguration and the previous snapshot stays in place.
func (c *Catalogue) Load(ctx context.Context) error {
	tiers, err := c.tiers.List(ctx)
	if err != nil {
		return shared.Persistence("catalogue", "Load", err)
	}
	table, err := tier.NewTable(tiers)
	if err != nil {
		return err
	}

	defs, err := c.achievements.List(ctx)
	if err != nil {
		return shared.Persistence("catalogue", "Load", err)
	}
	list, problems := achievement.Compile(defs)
	if len(problems) > 0 {
		if c.cfg.Strict {
			return fmt.Errorf("catalogue: %d invalid achievements: %w", len(problems), errors.Join(problems...))
		}
		for _, p := range problems {
			c.log.Warn("skipping invalid achievement", logger.Err(p))
		}
	}

	snap := &Snapshot{
		Tiers:        table,
		Evaluator:    achievement.NewEvaluator(list),
		Achievements: list,
	}

	c.mu.Lock()
	c.snap = snap
	c.mu.Unlock()

	c.log.Info("catalogue loaded",
		logger.Int("tiers", len(tiers)),
		logger.Int("achievements", len(list)),
	)

	if c.publisher != nil {
		if err := c.publisher.Publish(shared.NewCatalogueReloadedEvent(len(tiers), len(list), c.clock.Now())); err != nil {
			c.log.Warn("failed to publish catalogue reload", logger.Err(err))
		}
	}
	return nil
}

// Current returns the active snapshot.
func (c *Catalogue) Current() (*Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snap == nil {
		return nil, ErrNotLoaded
	}
	return c.snap, nil
}
