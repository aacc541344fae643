package importer

import (
	"context"
	"fmt"
	"strings"

	"github.com/raphaelgruber/tablemap-go/internal/client"
)

// InstructionBackend is the instruction CRUD slice of the REST client.
type InstructionBackend interface {
	ListInstructions(ctx context.Context) ([]client.Instruction, error)
	SaveInstruction(ctx context.Context, name, content string) (*client.Instruction, error)
	DeleteInstruction(ctx context.Context, id string) error
}

// InstructionStore loads and saves reusable natural-language mapping
// instructions.
type InstructionStore struct {
	backend InstructionBackend
}

// NewInstructionStore creates an instruction store.
func NewInstructionStore(backend InstructionBackend) *InstructionStore {
	return &InstructionStore{backend: backend}
}

// List returns all saved instructions.
func (s *InstructionStore) List(ctx context.Context) ([]client.Instruction, error) {
	return s.backend.ListInstructions(ctx)
}

// Find returns the saved instruction with the given name, or nil.
func (s *InstructionStore) Find(ctx context.Context, name string) (*client.Instruction, error) {
	instructions, err := s.backend.ListInstructions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range instructions {
		if strings.EqualFold(instructions[i].Name, name) {
			return &instructions[i], nil
		}
	}
	return nil, nil
}

// Save validates and persists a named instruction.
func (s *InstructionStore) Save(ctx context.Context, name, content string) (*client.Instruction, error) {
	name = strings.TrimSpace(name)
	content = strings.TrimSpace(content)
	if name == "" {
		return nil, fmt.Errorf("instruction name is required")
	}
	if content == "" {
		return nil, fmt.Errorf("instruction content is required")
	}
	return s.backend.SaveInstruction(ctx, name, content)
}

// Delete removes a saved instruction.
func (s *InstructionStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("instruction id is required")
	}
	return s.backend.DeleteInstruction(ctx, id)
}
