package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/raphaelgruber/tablemap-go/internal/models"
	"github.com/raphaelgruber/tablemap-go/internal/reconcile"
	"github.com/spf13/cobra"
)

var (
	mergeColumns []string
	mergeAll     bool
	mergeNote    string
)

var duplicatesCmd = &cobra.Command{
	Use:     "duplicates <import-id>",
	Aliases: []string{"dups"},
	Short:   "List rows skipped as duplicates during an import",
	Long: `List rows that were skipped during an import because they matched an
existing row on the table's uniqueness columns. Resolved rows are
excluded.

Examples:
  tablemap duplicates i-7b20
  tablemap duplicates merge i-7b20 d-03 --column amount --column status
  tablemap duplicates merge i-7b20 --all`,
	Args: cobra.ExactArgs(1),
	RunE: runDuplicates,
}

var duplicatesMergeCmd = &cobra.Command{
	Use:   "merge <import-id> [duplicate-id]",
	Short: "Merge duplicate rows into their existing counterparts",
	Long: `Merge one duplicate row into its existing counterpart, or with --all
merge every unresolved duplicate sequentially.

For a single row, --column picks which incoming values overwrite the
existing row; without --column the default selection is used (every
column whose values differ). A bulk merge applies all incoming values
and stops at the first row that fails.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDuplicatesMerge,
}

func init() {
	duplicatesMergeCmd.Flags().StringArrayVar(&mergeColumns, "column", nil, "take the incoming value for this column")
	duplicatesMergeCmd.Flags().BoolVar(&mergeAll, "all", false, "merge every unresolved duplicate")
	duplicatesMergeCmd.Flags().StringVar(&mergeNote, "note", "", "note recorded with the resolution")
	duplicatesCmd.AddCommand(duplicatesMergeCmd)
}

func runDuplicates(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	dups := reconcile.NewDuplicates(apiClient, slog.Default())

	rows, err := dups.Selectable(ctx, args[0])
	if err != nil {
		return fmt.Errorf("list duplicates: %w", err)
	}
	if len(rows) == 0 {
		fmt.Println("No unresolved duplicates")
		return nil
	}

	fmt.Printf("%-12s %-6s %s\n", "ID", "ROW", "VALUES")
	for _, row := range rows {
		fmt.Printf("%-12s %-6d %s\n", row.ID, row.RowNumber, previewValues(row.Values, 3))
	}
	fmt.Printf("\n%d unresolved. Merge one with 'tablemap duplicates merge %s <id>'.\n", len(rows), args[0])
	return nil
}

func runDuplicatesMerge(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	importID := args[0]
	dups := reconcile.NewDuplicates(apiClient, slog.Default())

	if mergeAll {
		rows, err := dups.Selectable(ctx, importID)
		if err != nil {
			return fmt.Errorf("list duplicates: %w", err)
		}
		ids := make([]string, len(rows))
		for i, row := range rows {
			ids[i] = row.ID
		}

		result := dups.BulkMerge(ctx, importID, ids)
		fmt.Printf("Merged %d of %d duplicates\n", result.Merged, len(ids))
		if result.Err != nil {
			return fmt.Errorf("merge stopped at %s: %w", result.FailedID, result.Err)
		}
		return nil
	}

	if len(args) < 2 {
		return fmt.Errorf("pass a duplicate id, or --all to merge everything")
	}
	dupID := args[1]

	sel, err := mergeSelection(ctx, dups, importID, dupID)
	if err != nil {
		return err
	}

	if err := dups.MergeOne(ctx, importID, dupID, sel); err != nil {
		return fmt.Errorf("merge duplicate: %w", err)
	}
	fmt.Printf("Merged %s\n", dupID)
	return nil
}

// mergeSelection builds the column selection from --column flags, falling
// back to the differing-columns default when none are given.
func mergeSelection(ctx context.Context, dups *reconcile.Duplicates, importID, dupID string) (models.MergeSelection, error) {
	if len(mergeColumns) == 0 {
		sel, err := dups.DefaultSelection(ctx, importID, dupID)
		if err != nil {
			return models.MergeSelection{}, fmt.Errorf("compute default selection: %w", err)
		}
		sel.Note = mergeNote
		return sel, nil
	}

	cols := make(map[string]bool, len(mergeColumns))
	for _, name := range mergeColumns {
		cols[strings.TrimSpace(name)] = true
	}
	return models.MergeSelection{Columns: cols, Note: mergeNote}, nil
}

// previewValues renders up to n key=value pairs in stable order.
func previewValues(values map[string]string, n int) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for i, k := range keys {
		if i == n {
			parts = append(parts, "…")
			break
		}
		parts = append(parts, k+"="+values[k])
	}
	return strings.Join(parts, " ")
}
