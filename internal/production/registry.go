package production

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrNotFound  = errors.New("graph or version not found")
	ErrExists    = errors.New("version already exists")
	ErrNoVersion = errors.New("snapshot has no version")
)

// Registry keeps versioned snapshots of graphs.
type Registry interface {
	// Register stores snap under its ID and Version.
	Register(ctx context.Context, snap GraphSnapshot) error
	// Latest returns the most recently registered snapshot of id.
	Latest(ctx context.Context, id string) (GraphSnapshot, error)
	// Version returns a specific version of id.
	Version(ctx context.Context, id, version string) (GraphSnapshot, error)
	// ListVersions returns the versions of id, newest first.
	ListVersions(ctx context.Context, id string) ([]string, error)
	// ListGraphs returns every registered graph id, sorted.
	ListGraphs(ctx context.Context) ([]string, error)
}

// MemoryRegistry is an in-process Registry.
type MemoryRegistry struct {
	mu     sync.RWMutex
	graphs map[string][]GraphSnapshot // oldest first
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{graphs: make(map[string][]GraphSnapshot)}
}

func (r *MemoryRegistry) Register(ctx context.Context, snap GraphSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap.Version == "" {
		return fmt.Errorf("graph %q: %w", snap.ID, ErrNoVersion)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.graphs[snap.ID] {
		if s.Version == snap.Version {
			return fmt.Errorf("graph %q version %s: %w", snap.ID, snap.Version, ErrExists)
		}
	}
	r.graphs[snap.ID] = append(r.graphs[snap.ID], snap)
	return nil
}

func (r *MemoryRegistry) Latest(ctx context.Context, id string) (GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return GraphSnapshot{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	snaps := r.graphs[id]
	if len(snaps) == 0 {
		return GraphSnapshot{}, fmt.Errorf("graph %q: %w", id, ErrNotFound)
	}
	return snaps[len(snaps)-1], nil
}

func (r *MemoryRegistry) Version(ctx context.Context, id, version string) (GraphSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return GraphSnapshot{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.graphs[id] {
		if s.Version == version {
			return s, nil
		}
	}
	return GraphSnapshot{}, fmt.Errorf("graph %q version %s: %w", id, version, ErrNotFound)
}

func (r *MemoryRegistry) ListVersions(ctx context.Context, id string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	snaps := r.graphs[id]
	if len(snaps) == 0 {
		return nil, fmt.Errorf("graph %q: %w", id, ErrNotFound)
	}
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[len(snaps)-1-i] = s.Version
	}
	return out, nil
}

func (r *MemoryRegistry) ListGraphs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.graphs))
	for id := range r.graphs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

var _ Registry = (*MemoryRegistry)(nil)
