package core

// reconcile.go turns validated rows into create-or-update operations and
// applies them to storage in bounded-size batches. Failure granularity is
// the batch: when a batch fails it is rolled back as a whole and recorded
// as a single error, and the remaining batches still run.

import "context"

// ReconcileOptions tunes a commit pass.
type ReconcileOptions struct {
	// Upsert enables update-in-place for rows whose identifier exists.
	// When disabled, a row carrying an explicit identifier is an error.
	Upsert bool

	// BatchSize caps rows per atomic storage batch; <=0 selects
	// DefaultBatchSize.
	BatchSize int
}

// Reconcile decides create-vs-update per row against the caller-supplied
// existing-identifier set and applies the operations batch by batch.
// existing reflects a snapshot: an identifier that vanishes before write
// time is recovered as a create by the store, not reported as an error.
func Reconcile(ctx context.Context, st Store, rows []ValidRow, existing map[int64]struct{}, opts ReconcileOptions) (created, updated int, rowErrs []RowError, batchErrs []BatchError) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ops := make([]StockOp, 0, len(rows))
	for _, vr := range rows {
		hasID := vr.Clean.ID != nil
		if !opts.Upsert && hasID {
			rowErrs = append(rowErrs, RowError{vr.Num, FieldID, CodeIDWithoutUpsert,
				"id is only allowed when upsert is enabled"})
			continue
		}
		kind := OpCreate
		if opts.Upsert && hasID {
			if _, ok := existing[*vr.Clean.ID]; ok {
				kind = OpUpdate
			}
		}
		ops = append(ops, StockOp{Kind: kind, Row: vr.Clean})
	}

	for i := 0; i < len(ops); i += batchSize {
		end := min(i+batchSize, len(ops))
		batch := ops[i:end]

		c, u, err := st.ApplyBatch(ctx, batch)
		if err != nil {
			batchErrs = append(batchErrs, BatchError{
				Batch:   i/batchSize + 1,
				Rows:    len(batch),
				Message: err.Error(),
			})
			continue
		}
		created += c
		updated += u
	}

	return created, updated, rowErrs, batchErrs
}
