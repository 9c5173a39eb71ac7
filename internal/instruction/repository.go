package instruction

import "context"

type Repository interface {
	Create(ctx context.Context, name, description, content string) (*Instruction, error)
	Get(ctx context.Context, id string) (*Instruction, error)
	List(ctx context.Context) ([]*Instruction, error)
	Update(ctx context.Context, inst *Instruction) error
	Delete(ctx context.Context, id string) error
	// Resolve returns the instruction for id, falling back to the built-in
	// default when id is empty or unknown.
	Resolve(ctx context.Context, id string) *Instruction
}
