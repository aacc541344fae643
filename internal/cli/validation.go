package cli

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/raphaelgruber/tablemap-go/internal/models"
	"github.com/raphaelgruber/tablemap-go/internal/reconcile"
	"github.com/spf13/cobra"
)

var (
	validationRefresh bool
	resolveValues     []string
	resolveNote       string
)

var validationCmd = &cobra.Command{
	Use:   "validation <import-id>",
	Short: "List rows rejected by validation during an import",
	Long: `List rows rejected by column-level validation rules during an import.
Resolved rows are excluded. With --refresh the backend re-checks
outstanding rows against the current rules first, which matters after
the rules have been relaxed.

Each pending row takes exactly one resolution:
  tablemap validation discard i-7b20 v-11
  tablemap validation insert i-7b20 v-11
  tablemap validation insert i-7b20 v-11 --set amount=12.50 --set status=open`,
	Args: cobra.ExactArgs(1),
	RunE: runValidation,
}

var validationDiscardCmd = &cobra.Command{
	Use:   "discard <import-id> <row-id>",
	Short: "Drop a rejected row without inserting it",
	Args:  cobra.ExactArgs(2),
	RunE:  runValidationDiscard,
}

var validationInsertCmd = &cobra.Command{
	Use:   "insert <import-id> <row-id>",
	Short: "Insert a rejected row, as-is or with corrected values",
	Long: `Insert a rejected row into its table. Without --set the row is
force-inserted exactly as uploaded, bypassing the rule that rejected
it. With --set key=value pairs, the given columns are replaced first.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidationInsert,
}

func init() {
	validationCmd.Flags().BoolVar(&validationRefresh, "refresh", false, "re-check rows against current rules first")
	validationDiscardCmd.Flags().StringVar(&resolveNote, "note", "", "note recorded with the resolution")
	validationInsertCmd.Flags().StringArrayVar(&resolveValues, "set", nil, "replacement value as column=value")
	validationInsertCmd.Flags().StringVar(&resolveNote, "note", "", "note recorded with the resolution")
	validationCmd.AddCommand(validationDiscardCmd)
	validationCmd.AddCommand(validationInsertCmd)
}

func runValidation(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	v := reconcile.NewValidation(apiClient, slog.Default())

	pending, err := listValidation(ctx, v, args[0])
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		fmt.Println("No pending validation failures")
		return nil
	}

	fmt.Printf("%-12s %-6s %-30s %s\n", "ID", "ROW", "ERRORS", "VALUES")
	for _, row := range pending {
		fmt.Printf("%-12s %-6d %-30s %s\n", row.ID, row.RowNumber,
			previewErrors(row.Errors, 2), previewValues(row.Values, 3))
	}
	fmt.Printf("\n%d pending. Resolve with 'tablemap validation discard|insert %s <id>'.\n",
		len(pending), args[0])
	return nil
}

func listValidation(ctx context.Context, v *reconcile.Validation, importID string) ([]models.ValidationFailureRow, error) {
	if validationRefresh {
		rows, err := v.Refresh(ctx, importID)
		if err != nil {
			return nil, fmt.Errorf("refresh validation failures: %w", err)
		}
		return rows, nil
	}
	rows, err := v.Pending(ctx, importID)
	if err != nil {
		return nil, fmt.Errorf("list validation failures: %w", err)
	}
	return rows, nil
}

func runValidationDiscard(cmd *cobra.Command, args []string) error {
	v := reconcile.NewValidation(apiClient, slog.Default())
	if err := v.Discard(context.Background(), args[0], args[1], resolveNote); err != nil {
		return fmt.Errorf("discard row: %w", err)
	}
	fmt.Printf("Discarded %s\n", args[1])
	return nil
}

func runValidationInsert(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	v := reconcile.NewValidation(apiClient, slog.Default())

	if len(resolveValues) == 0 {
		if err := v.InsertAsIs(ctx, args[0], args[1], resolveNote); err != nil {
			return fmt.Errorf("insert row: %w", err)
		}
		fmt.Printf("Inserted %s as-is\n", args[1])
		return nil
	}

	values, err := parseSetFlags(resolveValues)
	if err != nil {
		return err
	}
	if err := v.InsertCorrected(ctx, args[0], args[1], values, resolveNote); err != nil {
		return fmt.Errorf("insert corrected row: %w", err)
	}
	fmt.Printf("Inserted %s with %d corrected column(s)\n", args[1], len(values))
	return nil
}

func parseSetFlags(pairs []string) (map[string]string, error) {
	values := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --set %q, expected column=value", pair)
		}
		values[strings.TrimSpace(name)] = value
	}
	return values, nil
}

func previewErrors(errs map[string]string, n int) string {
	if len(errs) == 0 {
		return ""
	}
	return previewValues(errs, n)
}
