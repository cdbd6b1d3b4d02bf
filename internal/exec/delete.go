package exec

import (
	"icydb/internal/commit"
	"icydb/internal/errs"
	"icydb/internal/metrics"
	"icydb/internal/plan"
)

// DeleteResult reports how many rows a Delete removed.
type DeleteResult struct {
	Deleted int
}

// RelationValidator is the external collaborator Delete consults before
// committing a batch, e.g. to reject deletes that would orphan a
// dependent entity (spec §4.10 Delete step 2: "strong-relation validators,
// per-entity-type hooks"). The default Engine runs none.
type RelationValidator interface {
	ValidateDelete(entityPath string, keys [][]byte, rows [][]byte) error
}

// Delete runs lp (which must have Mode == plan.ModeDelete) against
// entityPath: materialize the target key set, validate, then commit one
// row-delete op per target key in a single commit window (spec §4.10
// Delete).
func (e *Engine) Delete(entityPath string, lp plan.LogicalPlan) (*DeleteResult, error) {
	b, err := e.binding(entityPath)
	if err != nil {
		return nil, err
	}
	if e.commit == nil {
		return nil, errs.New(errs.InvariantViolation, errs.Executor, "exec: Delete requires a commit engine")
	}

	// "Without order + limit, delete forbids pagination": an offset window
	// with no order spec has no defined meaning to delete against.
	if lp.Page != nil && lp.Page.Offset > 0 && len(lp.Order) == 0 {
		return nil, errs.New(errs.Unsupported, errs.Executor, "exec: delete pagination requires an order spec")
	}

	span := e.metrics.StartSpan(metrics.ExecDelete, entityPath)

	ep, err := e.buildExecutablePlan(b, lp, "")
	if err != nil {
		return nil, err
	}

	keys, rows, err := e.materializeOrderedRows(ep)
	if err != nil {
		return nil, err
	}

	if lp.DeleteLimit != nil && uint64(len(keys)) > *lp.DeleteLimit {
		keys = keys[:*lp.DeleteLimit]
		rows = rows[:*lp.DeleteLimit]
	}

	if e.relation != nil {
		if err := e.relation.ValidateDelete(entityPath, keys, rows); err != nil {
			return nil, err
		}
	}

	batch := commit.PreparedBatch{}
	for i, k := range keys {
		rowOp, indexOps, dataOp, err := e.commit.PrepareRowCommit(entityPath, k, rows[i], nil, b.Model.Fingerprint())
		if err != nil {
			return nil, err
		}
		batch.RowOps = append(batch.RowOps, rowOp)
		batch.IndexOps = append(batch.IndexOps, indexOps)
		batch.DataOps = append(batch.DataOps, dataOp)
	}

	if len(batch.RowOps) > 0 {
		if err := e.commit.CommitBatch(batch); err != nil {
			return nil, err
		}
	}

	span.End(metrics.ExecDelete, entityPath, len(keys))
	return &DeleteResult{Deleted: len(keys)}, nil
}
