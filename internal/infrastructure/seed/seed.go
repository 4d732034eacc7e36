// Package seed loads the tier and achievement catalogue from a YAML file
// into storage. Definitions are upserted by name, so seeding is repeatable.
package seed

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/pkg/logger"
)

// File is the on-disk catalogue format.
//
//	tiers:
//	  - name: Bronze
//	    min_points: 0
//	achievements:
//	  - name: First Steps
//	    criteria: "points >= 10"
//	    points: 5
type File struct {
	Tiers        []TierSpec        `yaml:"tiers"`
	Achievements []AchievementSpec `yaml:"achievements"`
}

// TierSpec is one tier in the file.
type TierSpec struct {
	Name      string `yaml:"name"`
	MinPoints int    `yaml:"min_points"`
	// Order defaults to the position by threshold.
	Order int `yaml:"order"`
}

// AchievementSpec is one achievement in the file. File order is catalogue order.
type AchievementSpec struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Criteria    string `yaml:"criteria"`
	Points      int    `yaml:"points"`
}

// Parse decodes a catalogue document. Unknown keys are rejected so that a
// typo does not silently drop a field.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: parse catalogue: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses a catalogue file.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	return Parse(data)
}

// Seeder writes a catalogue file into the repositories.
type Seeder struct {
	tiers        tier.Repository
	achievements achievement.Repository
	log          *logger.Logger
}

// NewSeeder creates a Seeder.
func NewSeeder(tiers tier.Repository, achievements achievement.Repository, log *logger.Logger) *Seeder {
	return &Seeder{
		tiers:        tiers,
		achievements: achievements,
		log:          log.With(logger.Component("seed")),
	}
}

// Seed upserts every tier and achievement of f. Validation of the resulting
// catalogue happens when it is loaded, not here.
func (s *Seeder) Seed(ctx context.Context, f *File) error {
	if err := f.checkDuplicates(); err != nil {
		return err
	}

	specs := make([]TierSpec, len(f.Tiers))
	copy(specs, f.Tiers)
	sort.SliceStable(specs, func(i, j int) bool { return specs[i].MinPoints < specs[j].MinPoints })

	for i, ts := range specs {
		order := ts.Order
		if order == 0 {
			order = i + 1
		}
		t := tier.Tier{
			ID:        uuid.NewString(),
			Name:      strings.TrimSpace(ts.Name),
			MinPoints: ts.MinPoints,
			Order:     order,
		}
		if err := s.tiers.Upsert(ctx, t); err != nil {
			return fmt.Errorf("seed: tier %q: %w", t.Name, err)
		}
	}

	for _, as := range f.Achievements {
		// Position 0 lets the repository append new definitions after
		// existing ones while keeping positions of known names.
		d := achievement.Definition{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(as.Name),
			Description: as.Description,
			Criteria:    as.Criteria,
			Points:      as.Points,
		}
		if err := s.achievements.Upsert(ctx, d); err != nil {
			return fmt.Errorf("seed: achievement %q: %w", d.Name, err)
		}
	}

	s.log.Info("catalogue seeded",
		logger.Int("tiers", len(f.Tiers)),
		logger.Int("achievements", len(f.Achievements)),
	)
	return nil
}

func (f *File) checkDuplicates() error {
	tiers := make(map[string]struct{}, len(f.Tiers))
	for _, t := range f.Tiers {
		name := strings.TrimSpace(t.Name)
		if _, dup := tiers[name]; dup {
			return shared.WrapError("seed", "Seed", shared.ErrTierConfiguration, fmt.Sprintf("duplicate tier %q", name), nil)
		}
		tiers[name] = struct{}{}
	}
	achs := make(map[string]struct{}, len(f.Achievements))
	for _, a := range f.Achievements {
		name := strings.TrimSpace(a.Name)
		if _, dup := achs[name]; dup {
			return shared.WrapError("seed", "Seed", shared.ErrDuplicateAchievement, fmt.Sprintf("achievement %q", name), nil)
		}
		achs[name] = struct{}{}
	}
	return nil
}

// SeedFile is LoadFile followed by Seed.
func (s *Seeder) SeedFile(ctx context.Context, path string) error {
	f, err := LoadFile(path)
	if err != nil {
		return err
	}
	return s.Seed(ctx, f)
}
