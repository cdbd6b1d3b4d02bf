package commit

import (
	"icydb/internal/errs"
	"icydb/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine coordinates the commit protocol over a memory registry and a
// hook registry assembled at Db construction time.
type Engine struct {
	registry     store.MemoryRegistry
	hooks        *HookRegistry
	commitCellID store.MemoryID
	log          *zap.Logger
}

func NewEngine(registry store.MemoryRegistry, hooks *HookRegistry, commitCellID store.MemoryID) *Engine {
	return &Engine{registry: registry, hooks: hooks, commitCellID: commitCellID, log: zap.NewNop()}
}

// SetLogger installs the logger the commit protocol reports its
// begin_commit/clear_commit/recovery transitions to. A DbSession with no
// opt-in leaves the engine logging to zap.NewNop().
func (e *Engine) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	e.log = log
}

// Hooks returns the engine's HookRegistry, so callers that register
// entities after construction (exec.Engine.RegisterEntity) can register
// each entity's RuntimeHooks alongside its binding.
func (e *Engine) Hooks() *HookRegistry {
	return e.hooks
}

// PrepareRowCommit derives the index/data ops for one row mutation via the
// entity's registered RuntimeHooks and packages the CommitRowOp that will
// ride inside the marker (spec §4.2 step 1). Callers supply schemaFingerprint
// from schema.EntityModel.Fingerprint() so this package stays independent
// of the schema model.
func (e *Engine) PrepareRowCommit(entityPath string, dataKey, before, after []byte, schemaFingerprint [16]byte) (CommitRowOp, []IndexOp, DataOp, error) {
	hooks, err := e.hooks.Lookup(entityPath)
	if err != nil {
		return CommitRowOp{}, nil, DataOp{}, err
	}
	indexOps, dataOp, err := hooks.DeriveOps(before, after)
	if err != nil {
		return CommitRowOp{}, nil, DataOp{}, err
	}
	rowOp := CommitRowOp{
		EntityPath:        entityPath,
		DataKey:           dataKey,
		BeforeRow:         before,
		AfterRow:          after,
		SchemaFingerprint: schemaFingerprint,
	}
	return rowOp, indexOps, dataOp, nil
}

// PreparedBatch is the output of preflight: everything CommitBatch needs
// to persist a marker and apply it.
type PreparedBatch struct {
	RowOps   []CommitRowOp
	IndexOps [][]IndexOp
	DataOps  []DataOp
}

// CommitBatch runs steps 2 through 7 of the commit protocol: snapshot
// generations, persist the marker, verify no interleaved mutation, apply
// index ops then data ops, clear the marker (spec §4.2).
func (e *Engine) CommitBatch(batch PreparedBatch) error {
	touched := e.touchedIndexStores(batch.IndexOps)
	snapshot := make(map[store.MemoryID]uint64, len(touched))
	for _, id := range touched {
		snapshot[id] = e.registry.IndexStore(id).Generation()
	}

	marker := CommitMarker{ID: [16]byte(uuid.New()), RowOps: batch.RowOps}
	if err := e.BeginCommit(marker); err != nil {
		return err
	}

	for _, id := range touched {
		if e.registry.IndexStore(id).Generation() != snapshot[id] {
			e.log.Error("index store mutated between preflight and apply", zap.String("store_id", string(id)))
			return errs.Newf(errs.InvariantViolation, errs.Executor,
				"index store %q mutated between preflight and apply", id)
		}
	}

	e.applyIndexOps(batch.IndexOps)
	e.applyDataOps(batch.DataOps)

	e.log.Debug("apply", zap.Int("row_ops", len(batch.RowOps)), zap.Int("touched_index_stores", len(touched)))
	return e.FinishCommit()
}

func (e *Engine) touchedIndexStores(indexOps [][]IndexOp) []store.MemoryID {
	seen := make(map[store.MemoryID]bool)
	var ids []store.MemoryID
	for _, ops := range indexOps {
		for _, op := range ops {
			if op.Kind == IndexOpNone {
				continue
			}
			if !seen[op.StoreID] {
				seen[op.StoreID] = true
				ids = append(ids, op.StoreID)
			}
		}
	}
	return ids
}

// BeginCommit persists marker into the commit cell. A pre-existing marker
// is an invariant violation (spec §3.4, §4.2).
func (e *Engine) BeginCommit(marker CommitMarker) error {
	cell := e.registry.CommitCell(e.commitCellID)
	if _, present, err := cell.Get(); err != nil {
		return err
	} else if present {
		e.log.Error("commit marker already present at begin_commit")
		return errs.New(errs.InvariantViolation, errs.Store, "commit marker already present at begin_commit")
	}
	encoded, err := marker.Encode()
	if err != nil {
		return err
	}
	if len(encoded) > MaxCommitBytes {
		return errs.Newf(errs.Unsupported, errs.Store, "commit marker of %d bytes exceeds MAX_COMMIT_BYTES %d", len(encoded), MaxCommitBytes)
	}
	cell.Set(encoded)
	e.log.Debug("begin_commit", zap.Int("marker_bytes", len(encoded)), zap.Int("row_ops", len(marker.RowOps)))
	return nil
}

// FinishCommit clears the commit cell, ending the apply window.
func (e *Engine) FinishCommit() error {
	e.registry.CommitCell(e.commitCellID).Clear()
	e.log.Debug("clear_commit")
	return nil
}

func (e *Engine) applyIndexOps(indexOps [][]IndexOp) {
	for _, ops := range indexOps {
		for _, op := range ops {
			idxStore := e.registry.IndexStore(op.StoreID)
			switch op.Kind {
			case IndexInsert, ReverseIndexInsert:
				idxStore.Insert(op.RawKey)
			case IndexRemove, ReverseIndexRemove:
				idxStore.Remove(op.RawKey)
			case IndexOpNone:
			}
		}
	}
}

func (e *Engine) applyDataOps(dataOps []DataOp) {
	for _, op := range dataOps {
		data := e.registry.DataStore(op.StoreID)
		if op.Remove {
			data.Remove(op.RawKey)
		} else {
			data.Insert(op.RawKey, op.Row)
		}
	}
}

// MaxRowBytes bounds a single serialized row (spec §3.3).
const MaxRowBytes = 4 * 1024 * 1024

// MaxIndexEntryBytes bounds a single encoded index entry (spec §3.3).
const MaxIndexEntryBytes = 64 * 1024

// MaxIndexFieldsBudget duplicates key.MaxIndexFields (8) for the
// MaxCommitBytes computation below; the two values are kept equal by hand.
const MaxIndexFieldsBudget = 8

// MaxCommitBytes bounds one encoded commit marker (spec §3.4): a row plus
// every index entry it can touch, with padding for framing overhead.
const MaxCommitBytes = MaxRowBytes + MaxIndexEntryBytes*MaxIndexFieldsBudget + 4096
