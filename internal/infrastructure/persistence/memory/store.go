// Package memory provides an in-process implementation of every storage port.
// It backs the test suite and STORAGE_DRIVER=memory development runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/connecta-hub/connecta-points/internal/domain/achievement"
	"github.com/connecta-hub/connecta-points/internal/domain/ledger"
	"github.com/connecta-hub/connecta-points/internal/domain/shared"
	"github.com/connecta-hub/connecta-points/internal/domain/tier"
	"github.com/connecta-hub/connecta-points/internal/domain/uow"
	"github.com/connecta-hub/connecta-points/internal/domain/user"
)

// Store keeps all state in maps. Units of work are serialized by txMu,
// which trivially satisfies per-user serialization; writes are staged and
// applied on commit so a failed unit of work leaves no trace.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	users   map[string]user.User
	tiers   map[string]tier.Tier              // by name
	defs    map[string]achievement.Definition // by name
	unlocks map[string]map[string]time.Time   // user -> achievement -> earned at
	entries []ledger.Entry

	appendErr error
	lockErr   error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		users:   make(map[string]user.User),
		tiers:   make(map[string]tier.Tier),
		defs:    make(map[string]achievement.Definition),
		unlocks: make(map[string]map[string]time.Time),
	}
}

// FailAppends makes every subsequent ledger append fail with err.
// Pass nil to restore normal behaviour.
func (s *Store) FailAppends(err error) {
	s.mu.Lock()
	s.appendErr = err
	s.mu.Unlock()
}

// FailLocks makes every subsequent GetForUpdate fail with err, the way a
// dropped connection or lock timeout does. Pass nil to restore normal behaviour.
func (s *Store) FailLocks(err error) {
	s.mu.Lock()
	s.lockErr = err
	s.mu.Unlock()
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT OF WORK
// ══════════════════════════════════════════════════════════════════════════════

type tx struct {
	users   map[string]user.User
	entries []ledger.Entry
	unlocks map[string]map[string]time.Time
}

// Do implements uow.UnitOfWork.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context, tx uow.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	t := &tx{
		users:   make(map[string]user.User),
		unlocks: make(map[string]map[string]time.Time),
	}
	if err := fn(ctx, &txView{s: s, t: t}); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range t.users {
		s.users[id] = u
	}
	s.entries = append(s.entries, t.entries...)
	for userID, m := range t.unlocks {
		if s.unlocks[userID] == nil {
			s.unlocks[userID] = make(map[string]time.Time)
		}
		for achID, at := range m {
			s.unlocks[userID][achID] = at
		}
	}
	return nil
}

type txView struct {
	s *Store
	t *tx
}

func (v *txView) Users() user.Repository                 { return &userRepo{s: v.s, t: v.t} }
func (v *txView) Entries() ledger.Repository             { return &entryRepo{s: v.s, t: v.t} }
func (v *txView) Unlocks() achievement.UnlockRepository { return &unlockRepo{s: v.s, t: v.t} }

// Users returns a non-transactional user repository.
func (s *Store) Users() user.Repository { return &userRepo{s: s} }

// Entries returns a non-transactional ledger repository.
func (s *Store) Entries() ledger.Repository { return &entryRepo{s: s} }

// Unlocks returns a non-transactional unlock repository.
func (s *Store) Unlocks() achievement.UnlockRepository { return &unlockRepo{s: s} }

// Tiers returns the tier repository.
func (s *Store) Tiers() tier.Repository { return &tierRepo{s: s} }

// Achievements returns the achievement catalogue repository.
func (s *Store) Achievements() achievement.Repository { return &achievementRepo{s: s} }

// Leaderboard returns the ranking source.
func (s *Store) Leaderboard() *LeaderboardRepository { return &LeaderboardRepository{s: s} }

// ══════════════════════════════════════════════════════════════════════════════
// USERS
// ══════════════════════════════════════════════════════════════════════════════

type userRepo struct {
	s *Store
	t *tx
}

func (r *userRepo) Get(_ context.Context, id string) (*user.User, error) {
	if r.t != nil {
		if u, ok := r.t.users[id]; ok {
			return &u, nil
		}
	}
	r.s.mu.RLock()
	u, ok := r.s.users[id]
	r.s.mu.RUnlock()
	if !ok {
		return nil, shared.ErrUserNotFound
	}
	return &u, nil
}

// GetForUpdate relies on txMu, which the caller already holds inside Do.
func (r *userRepo) GetForUpdate(ctx context.Context, id string) (*user.User, error) {
	r.s.mu.RLock()
	lockErr := r.s.lockErr
	r.s.mu.RUnlock()
	if lockErr != nil {
		return nil, lockErr
	}
	return r.Get(ctx, id)
}

func (r *userRepo) Create(ctx context.Context, u *user.User) error {
	if _, err := r.Get(ctx, u.ID); err == nil {
		return shared.NewDomainError("user", "Create", shared.ErrAlreadyExists, "user already exists")
	}
	r.put(*u)
	return nil
}

func (r *userRepo) UpdatePoints(ctx context.Context, id string, points int, at time.Time) error {
	u, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	u.Points = points
	u.UpdatedAt = at
	r.put(*u)
	return nil
}

func (r *userRepo) UpdateTier(ctx context.Context, id, tierID string, at time.Time) error {
	u, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	u.TierID = tierID
	u.UpdatedAt = at
	r.put(*u)
	return nil
}

func (r *userRepo) put(u user.User) {
	if r.t != nil {
		r.t.users[u.ID] = u
		return
	}
	r.s.mu.Lock()
	r.s.users[u.ID] = u
	r.s.mu.Unlock()
}

// ══════════════════════════════════════════════════════════════════════════════
// LEDGER
// ══════════════════════════════════════════════════════════════════════════════

type entryRepo struct {
	s *Store
	t *tx
}

func (r *entryRepo) Append(_ context.Context, e ledger.Entry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.appendErr != nil {
		return r.s.appendErr
	}
	if r.t != nil {
		r.t.entries = append(r.t.entries, e)
		return nil
	}
	r.s.entries = append(r.s.entries, e)
	return nil
}

func (r *entryRepo) ListByUser(_ context.Context, userID string, limit int) ([]ledger.Entry, error) {
	r.s.mu.RLock()
	all := make([]ledger.Entry, 0, len(r.s.entries))
	all = append(all, r.s.entries...)
	r.s.mu.RUnlock()
	if r.t != nil {
		all = append(all, r.t.entries...)
	}

	var out []ledger.Entry
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].UserID != userID {
			continue
		}
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UNLOCKS
// ══════════════════════════════════════════════════════════════════════════════

type unlockRepo struct {
	s *Store
	t *tx
}

func (r *unlockRepo) Unlock(_ context.Context, userID, achievementID string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.unlocks[userID][achievementID]; ok {
		return false, nil
	}
	target := r.s.unlocks
	if r.t != nil {
		if _, ok := r.t.unlocks[userID][achievementID]; ok {
			return false, nil
		}
		target = r.t.unlocks
	}
	if target[userID] == nil {
		target[userID] = make(map[string]time.Time)
	}
	target[userID][achievementID] = at
	return true, nil
}

func (r *unlockRepo) ListByUser(_ context.Context, userID string) ([]achievement.UserAchievement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	names := make(map[string]string, len(r.s.defs))
	for _, d := range r.s.defs {
		names[d.ID] = d.Name
	}

	var out []achievement.UserAchievement
	collect := func(m map[string]time.Time) {
		for achID, at := range m {
			out = append(out, achievement.UserAchievement{
				UserID:        userID,
				AchievementID: achID,
				Name:          names[achID],
				EarnedAt:      at,
			})
		}
	}
	collect(r.s.unlocks[userID])
	if r.t != nil {
		collect(r.t.unlocks[userID])
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].EarnedAt.Equal(out[j].EarnedAt) {
			return out[i].EarnedAt.Before(out[j].EarnedAt)
		}
		return out[i].AchievementID < out[j].AchievementID
	})
	return out, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOGUE
// ══════════════════════════════════════════════════════════════════════════════

type tierRepo struct{ s *Store }

func (r *tierRepo) List(_ context.Context) ([]tier.Tier, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]tier.Tier, 0, len(r.s.tiers))
	for _, t := range r.s.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinPoints < out[j].MinPoints })
	return out, nil
}

func (r *tierRepo) Upsert(_ context.Context, t tier.Tier) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.tiers[t.Name]; ok {
		t.ID = existing.ID
	}
	r.s.tiers[t.Name] = t
	return nil
}

type achievementRepo struct{ s *Store }

func (r *achievementRepo) List(_ context.Context) ([]achievement.Definition, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]achievement.Definition, 0, len(r.s.defs))
	for _, d := range r.s.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r *achievementRepo) Upsert(_ context.Context, d achievement.Definition) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if existing, ok := r.s.defs[d.Name]; ok {
		d.ID = existing.ID
		d.Position = existing.Position
	} else if d.Position == 0 {
		d.Position = len(r.s.defs) + 1
	}
	r.s.defs[d.Name] = d
	return nil
}
