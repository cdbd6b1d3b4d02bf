package exec

import (
	"icydb/internal/commit"
	"icydb/internal/errs"
	"icydb/internal/metrics"
	"icydb/internal/value"
)

// SaveMode tags which of the three write semantics (spec §4.10 Save) one
// SaveEntry requests.
type SaveMode byte

const (
	SaveInsert SaveMode = iota
	SaveUpdate
	SaveReplace
)

func (m SaveMode) String() string {
	switch m {
	case SaveInsert:
		return "Insert"
	case SaveUpdate:
		return "Update"
	case SaveReplace:
		return "Replace"
	default:
		return "Unknown"
	}
}

// SaveEntry is one entity's proposed after-state: Row is the caller's
// already-encoded row bytes (sanitize/validate is an application-level
// concern upstream of exec, per RowCodec's narrow field-projection-only
// contract).
type SaveEntry struct {
	Row  []byte
	Mode SaveMode
}

// SaveResult reports how many rows committed.
type SaveResult struct {
	Committed int
}

// resolvedEntry carries one entry's pre-computed key/baseline state
// between validation and commit-op construction.
type resolvedEntry struct {
	entry  SaveEntry
	rawKey []byte
	pkRaw  []byte
	before []byte
}

// resolveEntry derives entry's data key, encoded PK component, and
// baseline row, and checks the mode's presence/absence requirement (spec
// §4.10 Save step 2: "Insert requires absence ..., Update requires
// presence, Replace allows either").
func (e *Engine) resolveEntry(b *EntityBinding, entry SaveEntry, overlay map[string][]byte) (resolvedEntry, error) {
	pk, present, err := b.Codec.Field(entry.Row, b.Model.PrimaryKey)
	if err != nil {
		return resolvedEntry{}, err
	}
	if !present {
		return resolvedEntry{}, errs.Newf(errs.Validation, errs.Executor, "entity %q: row missing primary key field %q", b.Model.Path, b.Model.PrimaryKey)
	}
	pkRaw, err := value.EncodeComponent(pk, value.CoercionStrict)
	if err != nil {
		return resolvedEntry{}, err
	}
	rawKey, err := b.encodeDataKeyRaw(pk)
	if err != nil {
		return resolvedEntry{}, err
	}

	var before []byte
	var existed bool
	if staged, ok := overlay[string(rawKey)]; ok {
		before, existed = staged, staged != nil
	} else {
		before, existed = e.registry.DataStore(b.DataStoreID).Map.Get(rawKey)
	}

	switch entry.Mode {
	case SaveInsert:
		if existed {
			return resolvedEntry{}, errs.Newf(errs.Validation, errs.Executor, "entity %q: Insert requires absence, a row already exists for this key", b.Model.Path)
		}
	case SaveUpdate:
		if !existed {
			return resolvedEntry{}, errs.Newf(errs.NotFound, errs.Executor, "entity %q: Update requires presence, no row exists for this key", b.Model.Path)
		}
	case SaveReplace:
		// either baseline is acceptable
	default:
		return resolvedEntry{}, errs.Newf(errs.Validation, errs.Executor, "entity %q: unknown save mode %d", b.Model.Path, entry.Mode)
	}

	if err := e.checkUniqueConstraints(b, entry.Row, pkRaw); err != nil {
		return resolvedEntry{}, err
	}

	return resolvedEntry{entry: entry, rawKey: rawKey, pkRaw: pkRaw, before: before}, nil
}

// SaveAtomic validates and prepares every entry against a sequential
// staging overlay, rejects duplicate raw keys within the batch, then
// commits all of them through a single commit window (spec §4.10 Save
// step 3: "atomic batches: validate all entities, prepare all row ops
// against the sequential staging overlay, reject duplicate raw keys
// within the batch, then open a single commit window").
func (e *Engine) SaveAtomic(entityPath string, entries []SaveEntry) (*SaveResult, error) {
	b, err := e.binding(entityPath)
	if err != nil {
		return nil, err
	}
	if e.commit == nil {
		return nil, errs.New(errs.InvariantViolation, errs.Executor, "exec: Save requires a commit engine")
	}

	span := e.metrics.StartSpan(metrics.ExecSave, entityPath)

	overlay := make(map[string][]byte, len(entries))
	batch := commit.PreparedBatch{}
	for _, entry := range entries {
		resolved, err := e.resolveEntry(b, entry, overlay)
		if err != nil {
			return nil, err
		}
		if _, dup := overlay[string(resolved.rawKey)]; dup {
			return nil, errs.Newf(errs.Validation, errs.Executor, "entity %q: duplicate raw key within one atomic batch", b.Model.Path)
		}
		overlay[string(resolved.rawKey)] = resolved.entry.Row

		rowOp, indexOps, dataOp, err := e.commit.PrepareRowCommit(entityPath, resolved.rawKey, resolved.before, resolved.entry.Row, b.Model.Fingerprint())
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

	span.End(metrics.ExecSave, entityPath, len(entries))
	return &SaveResult{Committed: len(entries)}, nil
}

// SaveSequential commits each entry through its own commit window,
// stopping at the first failure. When a later entry fails after earlier
// ones already committed, it emits a NonAtomicPartialCommit diagnostic
// (spec §4.10 Save step 4: "non-atomic batches fail fast and expose a
// NonAtomicPartialCommit diagnostic when earlier entities are already
// committed").
func (e *Engine) SaveSequential(entityPath string, entries []SaveEntry) (*SaveResult, error) {
	b, err := e.binding(entityPath)
	if err != nil {
		return nil, err
	}
	if e.commit == nil {
		return nil, errs.New(errs.InvariantViolation, errs.Executor, "exec: Save requires a commit engine")
	}

	span := e.metrics.StartSpan(metrics.ExecSave, entityPath)

	committed := 0
	for _, entry := range entries {
		resolved, err := e.resolveEntry(b, entry, nil)
		if err != nil {
			if committed > 0 {
				e.metrics.Emit(metrics.NonAtomicPartialCommit(entityPath, committed))
			}
			return nil, err
		}

		rowOp, indexOps, dataOp, err := e.commit.PrepareRowCommit(entityPath, resolved.rawKey, resolved.before, resolved.entry.Row, b.Model.Fingerprint())
		if err != nil {
			if committed > 0 {
				e.metrics.Emit(metrics.NonAtomicPartialCommit(entityPath, committed))
			}
			return nil, err
		}
		batch := commit.PreparedBatch{
			RowOps:   []commit.CommitRowOp{rowOp},
			IndexOps: [][]commit.IndexOp{indexOps},
			DataOps:  []commit.DataOp{dataOp},
		}
		if err := e.commit.CommitBatch(batch); err != nil {
			if committed > 0 {
				e.metrics.Emit(metrics.NonAtomicPartialCommit(entityPath, committed))
			}
			return nil, err
		}
		committed++
	}

	span.End(metrics.ExecSave, entityPath, committed)
	return &SaveResult{Committed: committed}, nil
}
