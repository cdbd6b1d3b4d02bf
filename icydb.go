// Package icydb is the embedded, single-node, typed/indexed/queryable
// document store's public surface: register a Go struct type as an
// entity, then Load/Insert/Delete it through a DbSession. Everything
// underneath (planning, routing, the commit protocol, index maintenance)
// lives in internal/; this file is the only layer application code is
// meant to import.
package icydb

import (
	"encoding/binary"
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"icydb/internal/commit"
	"icydb/internal/config"
	"icydb/internal/cursor"
	"icydb/internal/errs"
	"icydb/internal/exec"
	"icydb/internal/key"
	"icydb/internal/metrics"
	"icydb/internal/plan"
	"icydb/internal/predicate"
	"icydb/internal/rowcodec"
	"icydb/internal/schema"
	"icydb/internal/store"
	"icydb/internal/value"
)

// Db is one engine instance: a memory registry, the commit and exec
// engines built over it, and the entity registrations accumulated by
// Register. Build exactly one per process; DbSession is the cheap,
// per-caller handle on top of it (spec §4.14, §6.1).
type Db struct {
	registry store.MemoryRegistry
	commit   *commit.Engine
	exec     *exec.Engine
	cfg      config.EngineConfig

	mu       sync.RWMutex
	entities map[reflect.Type]*entityInfo
	byPath   map[string]*entityInfo
}

type entityInfo struct {
	path  string
	model *schema.EntityModel
	codec *rowcodec.JSONCodec
}

// NewDb wires a fresh commit engine and exec engine over registry and
// keeps cfg on the Db. It does not validate cfg, and neither engine reads
// its budgets. Entities are registered afterward via Register.
func NewDb(cfg config.EngineConfig, registry store.MemoryRegistry) *Db {
	hooks := commit.NewHookRegistry()
	commitEngine := commit.NewEngine(registry, hooks, store.MemoryID("icydb:commit_marker"))
	execEngine := exec.NewEngine(registry, commitEngine, metrics.NopSink{})
	return &Db{
		registry: registry,
		commit:   commitEngine,
		exec:     execEngine,
		cfg:      cfg,
		entities: make(map[reflect.Type]*entityInfo),
		byPath:   make(map[string]*entityInfo),
	}
}

// IndexSpec declares one secondary index over a registered entity.
type IndexSpec struct {
	Name   string
	Fields []string
	Unique bool
}

// EntitySpec declares the schema metadata Register needs that reflection
// over the Go struct cannot recover on its own: the entity's storage
// path, which field is the primary key, and its secondary indexes.
type EntitySpec struct {
	Path       string
	PrimaryKey string
	Indexes    []IndexSpec
}

// Register derives E's schema.EntityModel via reflection (field names and
// kinds come from E's JSON tags, see internal/rowcodec.DeriveFields),
// builds its backing stores, and wires it into db so Load[E]/Insert/
// Delete can operate on E. Call once per entity type at startup.
func Register[E any](db *Db, spec EntitySpec) error {
	var zero E
	t := reflect.TypeOf(zero)
	if t == nil {
		return errs.New(errs.Validation, errs.Executor, "icydb: Register requires a concrete struct type")
	}

	fields, err := rowcodec.DeriveFields(t)
	if err != nil {
		return err
	}
	model := &schema.EntityModel{
		Path:       spec.Path,
		PrimaryKey: spec.PrimaryKey,
		Fields:     fields,
	}
	for _, is := range spec.Indexes {
		model.Indexes = append(model.Indexes, schema.IndexModel{Name: is.Name, Fields: is.Fields, Unique: is.Unique})
	}

	pkField := model.FindField(spec.PrimaryKey)
	if pkField == nil {
		return errs.Newf(errs.Validation, errs.Executor, "icydb: entity %q: primary key field %q not found", spec.Path, spec.PrimaryKey)
	}
	width, ok := rowcodec.FieldWidths[pkField.Type]
	if !ok {
		return errs.Newf(errs.Validation, errs.Executor, "icydb: entity %q: primary key kind %s has no fixed storage width", spec.Path, pkField.Type)
	}

	indexes := make(map[string]exec.IndexBinding, len(spec.Indexes))
	for _, is := range spec.Indexes {
		indexes[is.Name] = exec.IndexBinding{
			ID:      indexIDFor(spec.Path, is.Name),
			StoreID: store.MemoryID(spec.Path + ":idx:" + is.Name),
		}
	}

	codec := rowcodec.NewJSONCodec(fields)
	binding := &exec.EntityBinding{
		Model:        model,
		DataStoreID:  store.MemoryID(spec.Path + ":data"),
		CommitCellID: store.MemoryID(spec.Path + ":commit"),
		Indexes:      indexes,
		StorageWidth: width,
		Codec:        codec,
	}

	db.mu.Lock()
	defer db.mu.Unlock()
	info := &entityInfo{path: spec.Path, model: model, codec: codec}
	db.entities[t] = info
	db.byPath[spec.Path] = info
	db.exec.RegisterEntity(binding)
	return nil
}

// indexIDFor derives a stable 16-byte IndexID from an entity path and
// index name via two unseeded XXH64 digests: one over the path and name
// joined by a NUL byte, and one over the same input with a "\x00salt"
// suffix.
func indexIDFor(entityPath, indexName string) key.IndexID {
	input := entityPath + "\x00" + indexName
	lo := xxhash.Sum64String(input)
	hi := xxhash.Sum64String(input + "\x00salt")

	var id key.IndexID
	binary.BigEndian.PutUint64(id[0:8], lo)
	binary.BigEndian.PutUint64(id[8:16], hi)
	return id
}

// DbSession is a short-lived handle on a Db: it holds only the Db and
// shares its underlying engines and storage. Sessions are cheap; the
// logger/sink installed through Debug and Metrics apply to the whole Db,
// since there is only one commit/exec engine pair underneath.
type DbSession struct {
	db *Db
}

// Session opens a new DbSession over d.
func (d *Db) Session() *DbSession {
	return &DbSession{db: d}
}

// Debug installs l as the commit and exec engines' logger (spec §4.14).
// Passing nil reverts to a no-op logger.
func (s *DbSession) Debug(l *zap.Logger) *DbSession {
	s.db.commit.SetLogger(l)
	s.db.exec.SetLogger(l)
	return s
}

// Metrics installs sink as the exec engine's metrics sink (spec §4.14).
func (s *DbSession) Metrics(sink metrics.Sink) *DbSession {
	s.db.exec.SetMetrics(sink)
	return s
}

// entityFor resolves E's registration, failing if Register[E] was never
// called.
func entityFor[E any](db *Db) (*entityInfo, error) {
	var zero E
	t := reflect.TypeOf(zero)
	db.mu.RLock()
	defer db.mu.RUnlock()
	info, ok := db.entities[t]
	if !ok {
		return nil, errs.Newf(errs.Validation, errs.Executor, "icydb: type %s was never registered via Register", t)
	}
	return info, nil
}

// QueryBuilder accumulates one query's predicate, order, pagination, and
// consistency before it is compiled into a plan.LogicalPlan and run (spec
// §4.14, §3.5).
type QueryBuilder[E any] struct {
	session *DbSession
	info    *entityInfo
	err     error

	mode        plan.Mode
	predicate   predicate.Predicate
	order       []plan.OrderField
	distinct    bool
	page        *plan.Page
	deleteLimit *uint64
	consistency plan.Consistency
}

// Load starts a QueryBuilder for entity type E against s's Db.
func Load[E any](s *DbSession) *QueryBuilder[E] {
	info, err := entityFor[E](s.db)
	q := &QueryBuilder[E]{session: s, info: info, mode: plan.ModeLoad, predicate: predicate.True()}
	if err != nil {
		q.err = err
	}
	return q
}

// ForDelete starts a QueryBuilder in delete mode: the same accumulation
// methods apply, but Delete (not ExecuteQuery) is the only terminal that
// accepts it.
func ForDelete[E any](s *DbSession) *QueryBuilder[E] {
	q := Load[E](s)
	q.mode = plan.ModeDelete
	return q
}

// Where AND-conjoins one comparison onto the query's predicate. val is
// converted to the field's declared value.Kind; a mismatched Go type
// surfaces as an error from the terminal call.
func (q *QueryBuilder[E]) Where(field string, op predicate.Op, val any) *QueryBuilder[E] {
	if q.err != nil {
		return q
	}
	fm := q.info.model.FindField(field)
	if fm == nil {
		q.err = errs.Newf(errs.Validation, errs.Executor, "icydb: entity %q has no field %q", q.info.path, field)
		return q
	}
	lit, err := rowcodec.ToValue(val, fm.Type)
	if err != nil {
		q.err = err
		return q
	}
	cmp := predicate.Compare(field, op, value.CoercionStrict, lit)
	q.predicate = conjoin(q.predicate, cmp)
	return q
}

// WhereIn AND-conjoins a field-in-literal-set comparison.
func (q *QueryBuilder[E]) WhereIn(field string, vals []any) *QueryBuilder[E] {
	if q.err != nil {
		return q
	}
	fm := q.info.model.FindField(field)
	if fm == nil {
		q.err = errs.Newf(errs.Validation, errs.Executor, "icydb: entity %q has no field %q", q.info.path, field)
		return q
	}
	lits := make([]value.Value, 0, len(vals))
	for _, v := range vals {
		lit, err := rowcodec.ToValue(v, fm.Type)
		if err != nil {
			q.err = err
			return q
		}
		lits = append(lits, lit)
	}
	q.predicate = conjoin(q.predicate, predicate.CompareIn(field, predicate.In, value.CoercionStrict, lits))
	return q
}

func conjoin(base, next predicate.Predicate) predicate.Predicate {
	if base.Kind == predicate.KindTrue {
		return next
	}
	return predicate.And(base, next)
}

// OrderBy appends one field to the query's canonical order spec.
func (q *QueryBuilder[E]) OrderBy(field string, descending bool) *QueryBuilder[E] {
	dir := plan.Ascending
	if descending {
		dir = plan.Descending
	}
	q.order = append(q.order, plan.OrderField{Field: field, Direction: dir})
	return q
}

// Distinct requests duplicate-row suppression.
func (q *QueryBuilder[E]) Distinct() *QueryBuilder[E] {
	q.distinct = true
	return q
}

// MissingOk downgrades read consistency so a resolved key with no row is
// silently skipped instead of surfacing NotFound.
func (q *QueryBuilder[E]) MissingOk() *QueryBuilder[E] {
	q.consistency = plan.ConsistencyMissingOk
	return q
}

// Limit sets the page's row cap.
func (q *QueryBuilder[E]) Limit(n uint64) *QueryBuilder[E] {
	if q.page == nil {
		q.page = &plan.Page{}
	}
	q.page.Limit = &n
	return q
}

// Offset sets the page's starting offset.
func (q *QueryBuilder[E]) Offset(n uint64) *QueryBuilder[E] {
	if q.page == nil {
		q.page = &plan.Page{}
	}
	q.page.Offset = n
	return q
}

// WithDeleteLimit caps how many matched rows a ForDelete query removes.
func (q *QueryBuilder[E]) WithDeleteLimit(n uint64) *QueryBuilder[E] {
	q.deleteLimit = &n
	return q
}

// build compiles the accumulated query state into a validated
// plan.LogicalPlan (spec §4.5/§4.6: plan, normalize, validate).
func (q *QueryBuilder[E]) build() (plan.LogicalPlan, error) {
	if q.err != nil {
		return plan.LogicalPlan{}, q.err
	}
	access := plan.NormalizeAccessPlan(plan.PlanAccess(q.info.model, q.predicate))
	if err := plan.CheckAccessPlanInvariants(q.info.model, access); err != nil {
		return plan.LogicalPlan{}, err
	}
	lp := plan.LogicalPlan{
		Mode:        q.mode,
		Access:      access,
		Predicate:   q.predicate,
		Order:       q.order,
		Distinct:    q.distinct,
		Page:        q.page,
		DeleteLimit: q.deleteLimit,
		Consistency: q.consistency,
	}
	if err := plan.ValidateLogicalPlan(q.info.model, &lp); err != nil {
		return plan.LogicalPlan{}, err
	}
	return lp, nil
}

// Response is the decoded result of one ExecuteQuery/ExecuteLoadQueryPaged
// call: every matched row already unmarshaled into E.
type Response[E any] struct {
	Rows         []E
	Continuation []byte
	HasMore      bool
}

// ExecuteQuery runs q (which must have been built via Load[E]) to
// completion and decodes every matched row into E (spec §4.14).
func ExecuteQuery[E any](s *DbSession, q *QueryBuilder[E]) (*Response[E], error) {
	return executeLoad(s, q, nil)
}

// ExecuteLoadQueryPaged resumes q from an opaque continuation token
// previously returned in a Response, or starts fresh when token is nil
// (spec §4.14, §4.11).
func ExecuteLoadQueryPaged[E any](s *DbSession, q *QueryBuilder[E], token []byte) (*Response[E], []byte, error) {
	var tok *cursor.ContinuationToken
	if token != nil {
		decoded, err := cursor.DecodeToken(token)
		if err != nil {
			return nil, nil, err
		}
		tok = &decoded
	}
	resp, err := executeLoad(s, q, tok)
	if err != nil {
		return nil, nil, err
	}
	var next []byte
	if resp.Continuation != nil {
		next = resp.Continuation
	}
	return resp, next, nil
}

func executeLoad[E any](s *DbSession, q *QueryBuilder[E], tok *cursor.ContinuationToken) (*Response[E], error) {
	lp, err := q.build()
	if err != nil {
		return nil, err
	}
	res, err := s.db.exec.Load(q.info.path, lp, tok)
	if err != nil {
		return nil, err
	}
	rows := make([]E, len(res.Rows))
	for i, raw := range res.Rows {
		if err := rowcodec.Decode(raw, &rows[i]); err != nil {
			return nil, err
		}
	}
	var contBytes []byte
	if res.Continuation != nil {
		contBytes, err = res.Continuation.Encode()
		if err != nil {
			return nil, err
		}
	}
	return &Response[E]{Rows: rows, Continuation: contBytes, HasMore: res.HasMore}, nil
}

// Delete runs q (built via ForDelete[E]) and reports how many rows were
// removed (spec §4.14, §4.10 Delete).
func Delete[E any](s *DbSession, q *QueryBuilder[E]) (int, error) {
	lp, err := q.build()
	if err != nil {
		return 0, err
	}
	if err := s.db.commit.EnsureRecovered(); err != nil {
		return 0, err
	}
	res, err := s.db.exec.Delete(q.info.path, lp)
	if err != nil {
		return 0, err
	}
	return res.Deleted, nil
}

// Insert encodes entity and inserts it under Insert semantics (absence
// required), failing if a row already exists for its primary key (spec
// §4.14, §4.10 Save).
func (s *DbSession) Insert(entity any) error {
	info, row, err := s.encodeForInsert(entity)
	if err != nil {
		return err
	}
	if err := s.db.commit.EnsureRecovered(); err != nil {
		return err
	}
	_, err = s.db.exec.SaveAtomic(info.path, []exec.SaveEntry{{Row: row, Mode: exec.SaveInsert}})
	return err
}

// InsertManyAtomic inserts every entity in entities through one commit
// window: either all rows land, or none do (spec §4.14, §4.10 Save
// step 3). Every element must be the same registered entity type.
func (s *DbSession) InsertManyAtomic(entities []any) error {
	if len(entities) == 0 {
		return nil
	}
	var path string
	entries := make([]exec.SaveEntry, 0, len(entities))
	for i, entity := range entities {
		info, row, err := s.encodeForInsert(entity)
		if err != nil {
			return err
		}
		if i == 0 {
			path = info.path
		} else if info.path != path {
			return errs.New(errs.Validation, errs.Executor, "icydb: InsertManyAtomic requires every entity to be the same registered type")
		}
		entries = append(entries, exec.SaveEntry{Row: row, Mode: exec.SaveInsert})
	}
	if err := s.db.commit.EnsureRecovered(); err != nil {
		return err
	}
	_, err := s.db.exec.SaveAtomic(path, entries)
	return err
}

func (s *DbSession) encodeForInsert(entity any) (*entityInfo, []byte, error) {
	t := reflect.TypeOf(entity)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	s.db.mu.RLock()
	info, ok := s.db.entities[t]
	s.db.mu.RUnlock()
	if !ok {
		return nil, nil, errs.Newf(errs.Validation, errs.Executor, "icydb: type %s was never registered via Register", t)
	}
	row, err := rowcodec.Encode(entity)
	if err != nil {
		return nil, nil, err
	}
	return info, row, nil
}
