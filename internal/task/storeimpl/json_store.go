package storeimpl

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dkotenko/taskflow/internal/task"
	"github.com/dkotenko/taskflow/pkg/cerr"
	"github.com/dkotenko/taskflow/pkg/storage"
)

const stateVersion = 1

type document struct {
	Version      int          `json:"version"`
	LastModified time.Time    `json:"lastModified"`
	Tasks        []*task.Task `json:"tasks"`
}

// JSONStore keeps the whole collection in one versioned JSON document.
type JSONStore struct {
	storage storage.Storage
	path    string
}

func NewJSONStore(s storage.Storage, path string) *JSONStore {
	return &JSONStore{storage: s, path: path}
}

// Load reads the state document. A missing, unreadable or malformed file
// yields an empty collection: the caller starts fresh rather than failing.
func (s *JSONStore) Load(ctx context.Context) ([]*task.Task, error) {
	data, err := s.storage.Read(ctx, s.path)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			slog.WarnContext(ctx, "failed to read task state, starting empty", "path", s.path, "error", err)
		}
		return nil, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.WarnContext(ctx, "failed to parse task state, starting empty", "path", s.path, "error", err)
		return nil, nil
	}
	if doc.Version != stateVersion {
		slog.WarnContext(ctx, "task state version mismatch", "path", s.path,
			"version", doc.Version, "expected", stateVersion)
	}
	return doc.Tasks, nil
}

func (s *JSONStore) Save(ctx context.Context, tasks []*task.Task) error {
	doc := document{
		Version:      stateVersion,
		LastModified: time.Now().UTC(),
		Tasks:        tasks,
	}
	if doc.Tasks == nil {
		doc.Tasks = []*task.Task{}
	}
	data, err := json.MarshalIndent(&doc, "", "  ")
	if err != nil {
		return cerr.NewError(cerr.Internal, "storage error", err)
	}
	if err := s.storage.Write(ctx, s.path, append(data, '\n')); err != nil {
		return cerr.WrapStorageWriteError("task state", err)
	}
	return nil
}

// LastModified reads only the document timestamp. The zero time is returned
// when no state exists.
func (s *JSONStore) LastModified(ctx context.Context) (time.Time, error) {
	data, err := s.storage.Read(ctx, s.path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, cerr.WrapStorageReadError("task state", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return time.Time{}, nil
	}
	return doc.LastModified, nil
}
