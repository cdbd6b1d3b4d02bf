package exec

import (
	"sync"

	"go.uber.org/zap"

	"icydb/internal/commit"
	"icydb/internal/errs"
	"icydb/internal/metrics"
	"icydb/internal/store"
	"icydb/internal/value"
)

// RowCodec decodes an entity's opaque row bytes: Field projects one
// declared field out of a row for predicate evaluation, order-field
// comparison, and continuation-boundary projection (spec §4.10 Load step
// 3/4). It never interprets commit op derivation itself, that stays owned
// by commit.RuntimeHooks — Load/Delete/Save only ever need field-level
// reads, never a full decode.
type RowCodec interface {
	Field(row []byte, field string) (v value.Value, present bool, err error)
}

// Engine wires the commit protocol, the memory registry, and the
// per-entity bindings together for the four top-level operations.
type Engine struct {
	registry store.MemoryRegistry
	commit   *commit.Engine
	metrics  metrics.Sink

	mu       sync.RWMutex
	bindings map[string]*EntityBinding

	relation RelationValidator
	log      *zap.Logger
}

// SetRelationValidator installs the external collaborator Delete consults
// before committing a batch. Passing nil (the default) skips the check.
func (e *Engine) SetRelationValidator(v RelationValidator) {
	e.relation = v
}

// SetLogger installs the logger route decisions and rejected fast paths
// are reported to. A DbSession with no opt-in leaves the engine logging to
// zap.NewNop().
func (e *Engine) SetLogger(log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	e.log = log
}

// SetMetrics installs the sink Load/Save/Delete spans and MetricsEvent
// values report to. A DbSession with no opt-in leaves the engine reporting
// to metrics.NopSink.
func (e *Engine) SetMetrics(sink metrics.Sink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	e.metrics = sink
}

func NewEngine(registry store.MemoryRegistry, commitEngine *commit.Engine, sink metrics.Sink) *Engine {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{
		registry: registry,
		commit:   commitEngine,
		metrics:  sink,
		bindings: make(map[string]*EntityBinding),
		log:      zap.NewNop(),
	}
}

// RegisterEntity wires one entity's binding into the engine. Called once
// per entity at Db construction time.
func (e *Engine) RegisterEntity(b *EntityBinding) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bindings[b.Model.Path] = b
	if e.commit != nil && e.commit.Hooks() != nil {
		e.commit.Hooks().Register(b.Model.Path, b)
	}
}

func (e *Engine) binding(entityPath string) (*EntityBinding, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.bindings[entityPath]
	if !ok {
		return nil, errs.Newf(errs.InvariantViolation, errs.Executor, "no binding registered for entity %q", entityPath)
	}
	return b, nil
}
