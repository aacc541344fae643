package reconcile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

// ValidationBackend is the validation-failure slice of the REST client.
type ValidationBackend interface {
	ListValidationFailures(ctx context.Context, importID string) ([]models.ValidationFailureRow, error)
	RefreshValidationFailures(ctx context.Context, importID string) ([]models.ValidationFailureRow, error)
	ResolveValidationFailure(ctx context.Context, importID, rowID string, req client.ResolveValidationRequest) error
}

// Validation resolves rows rejected during import by column-level
// validation rules. Each row accepts exactly one resolution; resolution
// is one-shot and resolved rows are excluded from further selection.
type Validation struct {
	backend ValidationBackend
	log     *slog.Logger
}

// NewValidation creates a validation failure resolver.
func NewValidation(backend ValidationBackend, log *slog.Logger) *Validation {
	if log == nil {
		log = slog.Default()
	}
	return &Validation{backend: backend, log: log}
}

// Pending returns the rows still awaiting a resolution.
func (v *Validation) Pending(ctx context.Context, importID string) ([]models.ValidationFailureRow, error) {
	rows, err := v.backend.ListValidationFailures(ctx, importID)
	if err != nil {
		return nil, err
	}
	pending := rows[:0:0]
	for _, row := range rows {
		if !row.Resolved() {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

// Refresh asks the backend to re-check outstanding rows against the
// current validation rules and returns the rows still pending.
func (v *Validation) Refresh(ctx context.Context, importID string) ([]models.ValidationFailureRow, error) {
	rows, err := v.backend.RefreshValidationFailures(ctx, importID)
	if err != nil {
		return nil, err
	}
	pending := rows[:0:0]
	for _, row := range rows {
		if !row.Resolved() {
			pending = append(pending, row)
		}
	}
	return pending, nil
}

// Discard drops the row; it is never inserted.
func (v *Validation) Discard(ctx context.Context, importID, rowID, note string) error {
	return v.resolve(ctx, importID, rowID, client.ResolveValidationRequest{
		Action: models.ResolutionDiscarded,
		Note:   note,
	})
}

// InsertAsIs force-inserts the row, bypassing the rule that rejected it.
func (v *Validation) InsertAsIs(ctx context.Context, importID, rowID, note string) error {
	return v.resolve(ctx, importID, rowID, client.ResolveValidationRequest{
		Action: models.ResolutionInsertedAsIs,
		Note:   note,
	})
}

// InsertCorrected inserts the row with client-supplied replacement values.
func (v *Validation) InsertCorrected(ctx context.Context, importID, rowID string, values map[string]string, note string) error {
	if len(values) == 0 {
		return fmt.Errorf("corrected insertion requires replacement values")
	}
	return v.resolve(ctx, importID, rowID, client.ResolveValidationRequest{
		Action: models.ResolutionInsertedCorrected,
		Values: values,
		Note:   note,
	})
}

func (v *Validation) resolve(ctx context.Context, importID, rowID string, req client.ResolveValidationRequest) error {
	if err := v.backend.ResolveValidationFailure(ctx, importID, rowID, req); err != nil {
		return err
	}
	v.log.Info("validation failure resolved", "import_id", importID, "row_id", rowID, "action", req.Action)
	return nil
}
