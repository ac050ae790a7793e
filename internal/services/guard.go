package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Guard gives fail-fast mutual exclusion over a named resource. ok is false
// when the resource is already held.
type Guard interface {
	Acquire(ctx context.Context, resource string) (release func(), ok bool, err error)
}

// LocalGuard is a Guard for a single process.
type LocalGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewLocalGuard() *LocalGuard {
	return &LocalGuard{held: make(map[string]struct{})}
}

func (g *LocalGuard) Acquire(_ context.Context, resource string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, taken := g.held[resource]; taken {
		return nil, false, nil
	}
	g.held[resource] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, resource)
			g.mu.Unlock()
		})
	}, true, nil
}

func bookResource(id int64) string { return fmt.Sprintf("book:%d", id) }
func loanResource(id int64) string { return fmt.Sprintf("loan:%d", id) }

// lock acquires every resource in a fixed order, or none of them. It returns
// ErrBusy if any is held elsewhere.
func (s *libraryService) lock(ctx context.Context, resources ...string) (func(), error) {
	sorted := append([]string(nil), resources...)
	sort.Strings(sorted)

	releases := make([]func(), 0, len(sorted))
	releaseAll := func() {
		for i := len(releases) - 1; i >= 0; i-- {
			releases[i]()
		}
	}
	for _, r := range sorted {
		release, ok, err := s.guard.Acquire(ctx, r)
		if err != nil {
			releaseAll()
			return nil, fmt.Errorf("lock %s: %w", r, err)
		}
		if !ok {
			releaseAll()
			return nil, fmt.Errorf("%w (%s)", ErrBusy, r)
		}
		releases = append(releases, release)
	}
	return releaseAll, nil
}
