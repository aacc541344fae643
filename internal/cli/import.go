package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/importer"
	"github.com/spf13/cobra"
)

var (
	importMode         string
	importConflict     string
	importIterations   int
	importTableMode    string
	importTableName    string
	importSkipDupCheck bool
	importInstruction  string
	importSheet        string
	importNoRecovery   bool
)

var importCmd = &cobra.Command{
	Use:   "import <file-id>",
	Short: "Run automatic mapping for an uploaded file",
	Long: `Run one automatic mapping attempt for an uploaded file.

On failure the attempt is escalated to the assistant once: the failure is
fed into an interactive analysis and, if a repaired plan comes back, it
is executed without further input. Use --no-recovery to disable that.

Pin the import into one table with --table and --table-mode, reuse a
saved instruction by name with --instruction.

Examples:
  tablemap import 7f3a91
  tablemap import 7f3a91 --table customer_orders --table-mode existing
  tablemap import 7f3a91 --skip-duplicate-check --no-recovery`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importMode, "mode", "standard", "analysis mode passed to the backend")
	importCmd.Flags().StringVar(&importConflict, "conflict", "", "conflict resolution strategy")
	importCmd.Flags().IntVar(&importIterations, "max-iterations", 0, "cap on mapping iterations")
	importCmd.Flags().StringVar(&importTableMode, "table-mode", "", "shared table mode: new or existing")
	importCmd.Flags().StringVar(&importTableName, "table", "", "map into this specific table")
	importCmd.Flags().BoolVar(&importSkipDupCheck, "skip-duplicate-check", false, "do not record duplicate rows")
	importCmd.Flags().StringVar(&importInstruction, "instruction", "", "saved instruction name to apply")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "workbook sheet to map")
	importCmd.Flags().BoolVar(&importNoRecovery, "no-recovery", false, "skip AI recovery on failure")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ctrl := newController()
	defer ctrl.Close()

	file, err := ctrl.LoadFile(ctx, args[0])
	if err != nil {
		return fmt.Errorf("load file: %w", err)
	}
	if file.IsArchive() {
		return fmt.Errorf("%s is an archive; use 'tablemap archive %s'", file.Name, file.ID)
	}

	instruction, err := resolveInstruction(ctx, importInstruction)
	if err != nil {
		return err
	}

	outcome, err := ctrl.RunAuto(ctx, importer.AutoOptions{
		AnalysisMode:       importMode,
		ConflictResolution: importConflict,
		MaxIterations:      importIterations,
		Target:             sharedTableTarget(importTableMode, importTableName),
		SkipDuplicateCheck: importSkipDupCheck,
		Instruction:        instruction,
		SheetName:          importSheet,
		DisableRecovery:    importNoRecovery,
	})

	if errors.Is(err, importer.ErrJobActive) {
		return fmt.Errorf("a mapping job is already running for %s; watch it or wait", file.Name)
	}

	if outcome != nil && outcome.Recovery != nil {
		fmt.Printf("Automatic attempt failed; assistant escalation: %s\n", outcome.Recovery.Message())
		if outcome.Recovery.Recovered {
			fmt.Printf("Imported %d rows into %s\n", outcome.Recovery.RowsImported, outcome.Recovery.TableName)
			return nil
		}
		if outcome.Recovery.Detail != "" {
			fmt.Printf("  %s\n", outcome.Recovery.Detail)
		}
	}
	if err != nil {
		return err
	}

	result := outcome.Result
	fmt.Printf("Imported %d rows into %s (%.1fs)\n", result.RowsImported, result.TableName, result.ProcessingTime)
	printPostImport(ctrl.State())
	return nil
}

// sharedTableTarget builds the target from the two flags; nil when unset.
func sharedTableTarget(mode, table string) *client.SharedTableTarget {
	if mode == "" && table == "" {
		return nil
	}
	if mode == "" {
		mode = importer.TargetModeExisting
	}
	return &client.SharedTableTarget{Mode: mode, TableName: table}
}

// resolveInstruction looks a saved instruction up by name.
func resolveInstruction(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	store := importer.NewInstructionStore(apiClient)
	instr, err := store.Find(ctx, name)
	if err != nil {
		return "", fmt.Errorf("look up instruction: %w", err)
	}
	if instr == nil {
		return "", fmt.Errorf("no saved instruction named %q", name)
	}
	return instr.Content, nil
}

// printPostImport shows duplicate/validation previews after a success.
func printPostImport(state importer.State) {
	importID := "<import-id>"
	if len(state.History) > 0 {
		importID = state.History[0].ID
	}
	if n := len(state.DuplicatePreview); n > 0 {
		fmt.Printf("%d duplicate rows were skipped; review with 'tablemap duplicates %s'\n", n, importID)
	}
	if n := len(state.ValidationPreview); n > 0 {
		fmt.Printf("%d rows failed validation; review with 'tablemap validation %s'\n", n, importID)
	}
}
