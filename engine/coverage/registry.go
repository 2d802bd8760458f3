package coverage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/WessleyAI/wessley-coverage/engine/domain"
	"github.com/google/uuid"
)

// ErrGridNotFound is returned for unknown or evicted grid ids.
var ErrGridNotFound = errors.New("grid not found")

// DefaultTTL is how long an untouched grid stays mounted.
const DefaultTTL = 30 * time.Minute

type mounted struct {
	grid     *Grid
	lastSeen time.Time
}

// Registry tracks the grids mounted by clients. Each mount gets its own
// working copy of the dataset; unmounting discards it.
type Registry struct {
	mu       sync.Mutex
	grids    map[string]*mounted
	ttl      time.Duration
	notifier Notifier
	now      func() time.Time
}

// RegistryOpts configures a Registry.
type RegistryOpts struct {
	// TTL evicts grids idle for longer than this. Zero means DefaultTTL.
	TTL time.Duration
	// Notifier receives applied toggles. Nil means NopNotifier.
	Notifier Notifier
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOpts) *Registry {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Notifier == nil {
		opts.Notifier = NopNotifier{}
	}
	return &Registry{
		grids:    make(map[string]*mounted),
		ttl:      opts.TTL,
		notifier: opts.Notifier,
		now:      time.Now,
	}
}

// Mount builds a new grid from d and returns its id.
func (r *Registry) Mount(d domain.Dataset) (string, *Grid) {
	g := FromDataset(d)
	id := uuid.NewString()

	r.mu.Lock()
	r.grids[id] = &mounted{grid: g, lastSeen: r.now()}
	r.mu.Unlock()
	return id, g
}

// Get returns a mounted grid and refreshes its idle timer.
func (r *Registry) Get(id string) (*Grid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.grids[id]
	if !ok {
		return nil, ErrGridNotFound
	}
	m.lastSeen = r.now()
	return m.grid, nil
}

// Unmount discards a grid.
func (r *Registry) Unmount(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.grids[id]; !ok {
		return ErrGridNotFound
	}
	delete(r.grids, id)
	return nil
}

// Len returns the number of mounted grids.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.grids)
}

// SetCoverage applies a toggle to a mounted grid and notifies when the map
// changed.
func (r *Registry) SetCoverage(ctx context.Context, id string, model domain.VehicleModel, year domain.ModelYear, covered bool) (bool, error) {
	g, err := r.Get(id)
	if err != nil {
		return false, err
	}
	if !g.SetCoverage(model, year, covered) {
		return false, nil
	}
	r.notifier.Notify(ctx, ToggleEvent{
		GridID:  id,
		Model:   model,
		Year:    year,
		Covered: covered,
		At:      r.now().UTC(),
	})
	return true, nil
}

// Sweep unmounts grids idle for longer than the TTL and returns how many were
// removed.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, m := range r.grids {
		if m.lastSeen.Before(cutoff) {
			delete(r.grids, id)
			n++
		}
	}
	return n
}

// Run sweeps every interval until ctx is cancelled. onSweep, if set, is
// called with the number of grids removed by each sweep.
func (r *Registry) Run(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n := r.Sweep()
			if onSweep != nil {
				onSweep(n)
			}
		}
	}
}
