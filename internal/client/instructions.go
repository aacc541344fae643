package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// Instruction is a reusable natural-language mapping instruction.
type Instruction struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListInstructions fetches all saved mapping instructions.
func (c *Client) ListInstructions(ctx context.Context) ([]Instruction, error) {
	var instructions []Instruction
	if err := c.getJSON(ctx, "/instructions", &instructions); err != nil {
		return nil, fmt.Errorf("list instructions: %w", err)
	}
	return instructions, nil
}

// SaveInstruction creates or updates a named instruction.
func (c *Client) SaveInstruction(ctx context.Context, name, content string) (*Instruction, error) {
	req := map[string]string{"name": name, "content": content}
	var saved Instruction
	if err := c.postJSON(ctx, "/instructions", req, &saved); err != nil {
		return nil, fmt.Errorf("save instruction %s: %w", name, err)
	}
	return &saved, nil
}

// DeleteInstruction removes a saved instruction.
func (c *Client) DeleteInstruction(ctx context.Context, id string) error {
	if err := c.deleteJSON(ctx, "/instructions/"+url.PathEscape(id)); err != nil {
		return fmt.Errorf("delete instruction %s: %w", id, err)
	}
	return nil
}
