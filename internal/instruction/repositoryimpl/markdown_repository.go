package repositoryimpl

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dkotenko/taskflow/internal/instruction"
	"github.com/dkotenko/taskflow/pkg/cerr"
	"github.com/dkotenko/taskflow/pkg/storage"
)

// MarkdownRepository keeps one markdown file per instruction:
//
//	# Name
//	> optional description
//
//	content
type MarkdownRepository struct {
	storage storage.Storage
	prefix  string
}

func NewMarkdownRepository(s storage.Storage, prefix string) *MarkdownRepository {
	return &MarkdownRepository{storage: s, prefix: prefix}
}

func (r *MarkdownRepository) path(id string) string {
	return fmt.Sprintf("%s/%s.md", r.prefix, id)
}

func (r *MarkdownRepository) Create(ctx context.Context, name, description, content string) (*instruction.Instruction, error) {
	id := instruction.Slugify(name)
	if id == instruction.DefaultID {
		return nil, cerr.NewError(cerr.FailedPrecondition, "the default instruction is reserved", nil)
	}
	exists, err := r.storage.Exists(ctx, r.path(id))
	if err != nil {
		return nil, cerr.WrapStorageWriteError("instruction", err)
	}
	if exists {
		return nil, cerr.NewError(cerr.AlreadyExists, "instruction already exists", nil)
	}
	inst := &instruction.Instruction{
		ID:          id,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Content:     content,
	}
	if err := r.storage.Write(ctx, r.path(id), []byte(format(inst))); err != nil {
		return nil, cerr.WrapStorageWriteError("instruction", err)
	}
	return inst, nil
}

func (r *MarkdownRepository) Get(ctx context.Context, id string) (*instruction.Instruction, error) {
	if id == instruction.DefaultID {
		return instruction.Default(), nil
	}
	data, err := r.storage.Read(ctx, r.path(id))
	if err != nil {
		return nil, cerr.WrapStorageReadError("instruction", err)
	}
	return parse(id, string(data)), nil
}

// List returns every instruction, the built-in default first.
func (r *MarkdownRepository) List(ctx context.Context) ([]*instruction.Instruction, error) {
	paths, err := r.storage.List(ctx, r.prefix)
	if err != nil {
		return nil, cerr.WrapStorageReadError("instructions", err)
	}
	sort.Strings(paths)

	instructions := []*instruction.Instruction{instruction.Default()}
	for _, p := range paths {
		if !strings.HasSuffix(p, ".md") {
			continue
		}
		id := strings.TrimSuffix(path.Base(p), ".md")
		if id == instruction.DefaultID {
			continue
		}
		data, err := r.storage.Read(ctx, p)
		if err != nil {
			continue
		}
		instructions = append(instructions, parse(id, string(data)))
	}
	return instructions, nil
}

func (r *MarkdownRepository) Update(ctx context.Context, inst *instruction.Instruction) error {
	if inst.ID == instruction.DefaultID {
		return cerr.NewError(cerr.FailedPrecondition, "the default instruction cannot be edited", nil)
	}
	exists, err := r.storage.Exists(ctx, r.path(inst.ID))
	if err != nil {
		return cerr.WrapStorageWriteError("instruction", err)
	}
	if !exists {
		return cerr.NewError(cerr.NotFound, "instruction not found", nil)
	}
	if err := r.storage.Write(ctx, r.path(inst.ID), []byte(format(inst))); err != nil {
		return cerr.WrapStorageWriteError("instruction", err)
	}
	return nil
}

func (r *MarkdownRepository) Delete(ctx context.Context, id string) error {
	if id == instruction.DefaultID {
		return cerr.NewError(cerr.FailedPrecondition, "the default instruction cannot be deleted", nil)
	}
	if err := r.storage.Delete(ctx, r.path(id)); err != nil {
		return cerr.WrapStorageDeleteError("instruction", err)
	}
	return nil
}

func (r *MarkdownRepository) Resolve(ctx context.Context, id string) *instruction.Instruction {
	if id == "" {
		return instruction.Default()
	}
	inst, err := r.Get(ctx, id)
	if err != nil {
		return instruction.Default()
	}
	return inst
}

func format(inst *instruction.Instruction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", inst.Name)
	if inst.Description != "" {
		fmt.Fprintf(&b, "> %s\n", inst.Description)
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimRight(inst.Content, "\n"))
	b.WriteString("\n")
	return b.String()
}

func parse(id, content string) *instruction.Instruction {
	inst := &instruction.Instruction{ID: id, Name: id}
	lines := strings.Split(content, "\n")
	body := 0
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if i == 0 && strings.HasPrefix(trimmed, "# ") {
			inst.Name = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
			body = i + 1
			continue
		}
		if i == body && strings.HasPrefix(trimmed, "> ") {
			inst.Description = strings.TrimSpace(strings.TrimPrefix(trimmed, "> "))
			body = i + 1
			continue
		}
		break
	}
	inst.Content = strings.TrimSpace(strings.Join(lines[body:], "\n"))
	return inst
}
