package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink registers and updates the engine's counters/histograms
// against a caller-supplied registerer, following the package-level
// CounterVec/HistogramVec registration style used throughout the corpus's
// own metrics modules.
type PrometheusSink struct {
	indexDelta      *prometheus.CounterVec
	commitDuration  *prometheus.HistogramVec
	queryExecTotal  *prometheus.CounterVec
	partialCommits  *prometheus.CounterVec
}

func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		indexDelta: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "icydb_index_delta_total",
			Help: "Index entries inserted or removed, by entity and operation.",
		}, []string{"entity", "op"}),
		commitDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "icydb_commit_duration_seconds",
			Help: "Commit window duration by entity.",
		}, []string{"entity"}),
		queryExecTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "icydb_query_exec_total",
			Help: "Executed operations by kind.",
		}, []string{"kind"}),
		partialCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "icydb_non_atomic_partial_commit_total",
			Help: "Non-atomic batches that partially committed before failing.",
		}, []string{"entity"}),
	}
	reg.MustRegister(s.indexDelta, s.commitDuration, s.queryExecTotal, s.partialCommits)
	return s
}

func (s *PrometheusSink) Emit(event MetricsEvent) {
	switch event.Kind {
	case EventIndexDelta, EventReverseIndexDelta:
		if event.Inserts > 0 {
			s.indexDelta.WithLabelValues(event.Entity, "insert").Add(float64(event.Inserts))
		}
		if event.Removes > 0 {
			s.indexDelta.WithLabelValues(event.Entity, "remove").Add(float64(event.Removes))
		}
	case EventNonAtomicPartialCommit:
		s.partialCommits.WithLabelValues(event.Entity).Inc()
	}
}

func (s *PrometheusSink) StartSpan(kind ExecKind, entity string) Span {
	s.queryExecTotal.WithLabelValues(kind.String()).Inc()
	return &prometheusSpan{sink: s, kind: kind, entity: entity, start: time.Now()}
}

type prometheusSpan struct {
	sink   *PrometheusSink
	kind   ExecKind
	entity string
	start  time.Time
}

func (p *prometheusSpan) End(kind ExecKind, entity string, rows int) {
	p.sink.commitDuration.WithLabelValues(entity).Observe(time.Since(p.start).Seconds())
}
