// Package importer pulls tasks out of external trackers and feeds them into
// the registry, skipping anything already present.
package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
)

type Importer interface {
	Name() string
	Import(ctx context.Context) ([]*task.Task, error)
}

// Deduplicate drops incoming tasks that already exist: same id, same
// non-empty tag (case-insensitive) or same normalized title.
func Deduplicate(existing, incoming []*task.Task) (fresh []*task.Task, duplicates int) {
	ids := make(map[string]struct{}, len(existing))
	tags := make(map[string]struct{}, len(existing))
	titles := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		ids[t.ID] = struct{}{}
		if t.Tag != "" {
			tags[strings.ToLower(t.Tag)] = struct{}{}
		}
		titles[normalizeTitle(t.Title)] = struct{}{}
	}
	for _, t := range incoming {
		if _, ok := ids[t.ID]; ok {
			duplicates++
			continue
		}
		if t.Tag != "" {
			if _, ok := tags[strings.ToLower(t.Tag)]; ok {
				duplicates++
				continue
			}
		}
		if _, ok := titles[normalizeTitle(t.Title)]; ok {
			duplicates++
			continue
		}
		fresh = append(fresh, t)
	}
	return fresh, duplicates
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

type Result struct {
	Added   int
	Skipped int
}

// Run imports from the given source into the registry.
func Run(ctx context.Context, registry *task.Registry, imp Importer) (Result, error) {
	incoming, err := imp.Import(ctx)
	if err != nil {
		return Result{}, err
	}
	fresh, duplicates := Deduplicate(registry.List(), incoming)
	added, err := registry.Import(ctx, fresh)
	return Result{Added: added, Skipped: duplicates + len(fresh) - added}, err
}

func wrapHTTPStatus(service string, status int) error {
	switch status {
	case 401:
		return cerr.NewError(cerr.Unauthenticated, service+" rejected the credentials", nil)
	case 403:
		return cerr.NewError(cerr.PermissionDenied, service+" denied access", nil)
	case 404:
		return cerr.NewError(cerr.NotFound, service+" resource not found", nil)
	case 429:
		return cerr.NewError(cerr.ResourceExhausted, service+" rate limit exceeded", nil)
	}
	return cerr.NewError(cerr.Unavailable, fmt.Sprintf("%s returned status %d", service, status), nil)
}
