package cli

import (
	"context"
	"fmt"

	"github.com/raphaelgruber/tablemap-go/internal/importer"
	"github.com/spf13/cobra"
)

var instructionsCmd = &cobra.Command{
	Use:   "instructions",
	Short: "Manage saved mapping instructions",
	Long: `Manage reusable natural-language mapping instructions. A saved
instruction is applied to a run with --instruction <name> on the
import, chat and archive commands.

Examples:
  tablemap instructions
  tablemap instructions save invoices "Dates are DD.MM.YYYY, amounts use comma decimals"
  tablemap instructions delete 42`,
	RunE: runInstructionsList,
}

var instructionsSaveCmd = &cobra.Command{
	Use:   "save <name> <content>",
	Short: "Create or update a named instruction",
	Args:  cobra.ExactArgs(2),
	RunE:  runInstructionsSave,
}

var instructionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a saved instruction",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstructionsDelete,
}

func init() {
	instructionsCmd.AddCommand(instructionsSaveCmd)
	instructionsCmd.AddCommand(instructionsDeleteCmd)
}

func runInstructionsList(cmd *cobra.Command, args []string) error {
	store := importer.NewInstructionStore(apiClient)
	instructions, err := store.List(context.Background())
	if err != nil {
		return fmt.Errorf("list instructions: %w", err)
	}

	if len(instructions) == 0 {
		fmt.Println("No saved instructions")
		return nil
	}

	fmt.Printf("%-6s %-20s %s\n", "ID", "NAME", "CONTENT")
	for _, in := range instructions {
		content := in.Content
		if len(content) > 60 {
			content = content[:57] + "..."
		}
		fmt.Printf("%-6s %-20s %s\n", in.ID, in.Name, content)
	}
	return nil
}

func runInstructionsSave(cmd *cobra.Command, args []string) error {
	store := importer.NewInstructionStore(apiClient)
	saved, err := store.Save(context.Background(), args[0], args[1])
	if err != nil {
		return fmt.Errorf("save instruction: %w", err)
	}
	fmt.Printf("Saved instruction %s (%s)\n", saved.Name, saved.ID)
	return nil
}

func runInstructionsDelete(cmd *cobra.Command, args []string) error {
	store := importer.NewInstructionStore(apiClient)
	if err := store.Delete(context.Background(), args[0]); err != nil {
		return fmt.Errorf("delete instruction: %w", err)
	}
	fmt.Printf("Deleted instruction %s\n", args[0])
	return nil
}
