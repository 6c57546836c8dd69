// Package memory holds a single-instance poll store for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/a-sanchezgu-2019/openvidul-call-polls/internal/domain"
)

type entry struct {
	poll      *domain.Poll
	expiresAt time.Time
}

// PollRepo keeps polls in a map guarded by a mutex. Every write refreshes
// the poll's TTL; expired polls are invisible until PurgeExpired drops them.
type PollRepo struct {
	clock clockwork.Clock
	ttl   time.Duration

	mu    sync.Mutex
	polls map[string]entry
}

var _ domain.PollRepository = (*PollRepo)(nil)

func NewPollRepo(clock clockwork.Clock, ttl time.Duration) *PollRepo {
	return &PollRepo{
		clock: clock,
		ttl:   ttl,
		polls: make(map[string]entry),
	}
}

func (r *PollRepo) Create(_ context.Context, p *domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live(p.SessionID); ok {
		return fmt.Errorf("session %s: %w", p.SessionID, domain.ErrPollExists)
	}
	r.polls[p.SessionID] = entry{poll: p.Clone(), expiresAt: r.clock.Now().Add(r.ttl)}
	return nil
}

func (r *PollRepo) Get(_ context.Context, sessionID string) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrPollNotFound)
	}
	return e.poll.Clone(), nil
}

func (r *PollRepo) Update(_ context.Context, sessionID string, fn domain.UpdateFunc) (*domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.live(sessionID)
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrPollNotFound)
	}

	working := e.poll.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}
	r.polls[sessionID] = entry{poll: working, expiresAt: r.clock.Now().Add(r.ttl)}
	return working.Clone(), nil
}

func (r *PollRepo) Delete(_ context.Context, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.live(sessionID); !ok {
		return fmt.Errorf("session %s: %w", sessionID, domain.ErrPollNotFound)
	}
	delete(r.polls, sessionID)
	return nil
}

func (r *PollRepo) PurgeExpired(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	purged := 0
	for id, e := range r.polls {
		if !now.Before(e.expiresAt) {
			delete(r.polls, id)
			purged++
		}
	}
	return purged, nil
}

// live must be called with mu held.
func (r *PollRepo) live(sessionID string) (entry, bool) {
	e, ok := r.polls[sessionID]
	if !ok || !r.clock.Now().Before(e.expiresAt) {
		return entry{}, false
	}
	return e, true
}
