package task

import "context"

// Store persists the whole task collection. Load returns an empty slice
// when no usable state exists; it never fails the caller into an unusable
// registry.
type Store interface {
	Load(ctx context.Context) ([]*Task, error)
	Save(ctx context.Context, tasks []*Task) error
}
