package commit

import (
	"icydb/internal/errs"

	"go.uber.org/zap"
)

// EnsureRecovered is invoked on mutation entrypoints only (spec §4.2: "read
// paths must not have recovery side effects"). If a marker is present it
// decodes it, re-derives index/data ops for each row op via the entity's
// RuntimeHooks, applies index ops then data ops, and clears the marker.
// A second call observing an already-cleared marker is a no-op.
func (e *Engine) EnsureRecovered() error {
	cell := e.registry.CommitCell(e.commitCellID)
	raw, present, err := cell.Get()
	if err != nil {
		return err
	}
	if !present {
		return nil
	}

	marker, err := DecodeMarker(raw)
	if err != nil {
		e.log.Warn("recovery: marker decode failed, leaving marker intact", zap.Error(err))
		return err
	}
	e.log.Warn("recovery: marker present at startup, replaying", zap.Int("row_ops", len(marker.RowOps)))

	var indexOps [][]IndexOp
	var dataOps []DataOp
	for _, rowOp := range marker.RowOps {
		hooks, err := e.hooks.Lookup(rowOp.EntityPath)
		if err != nil {
			e.log.Warn("recovery: no runtime hooks for marker row op", zap.String("entity", rowOp.EntityPath), zap.Error(err))
			return errs.Wrap(errs.Corruption, errs.Store, "recovery: no runtime hooks for marker row op", err)
		}
		ops, dataOp, err := hooks.DeriveOps(rowOp.BeforeRow, rowOp.AfterRow)
		if err != nil {
			e.log.Warn("recovery: failed to re-derive ops from marker row op", zap.String("entity", rowOp.EntityPath), zap.Error(err))
			return errs.Wrap(errs.Corruption, errs.Store, "recovery: failed to re-derive ops from marker row op", err)
		}
		indexOps = append(indexOps, ops)
		dataOps = append(dataOps, dataOp)
	}

	e.applyIndexOps(indexOps)
	e.applyDataOps(dataOps)

	return e.FinishCommit()
}
