package rowverify

import (
	"github.com/cockroachdb/indexverify/dataset"
	"github.com/cockroachdb/indexverify/verify/inconsistency"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RowEventListener interface {
	OnMissingRow(row inconsistency.MissingRow)
	OnMismatchingField(field inconsistency.MismatchingField)
	// OnRowPair is called for every key present on both sides, before the
	// rows are compared.
	OnRowPair(key dataset.Key, left, right dataset.Row)
	OnMatch()
	OnRowScan()
}

var (
	rowStatusMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "indexverify",
		Subsystem: "verify",
		Name:      "row_verification_status",
		Help:      "Status of rows that have been verified.",
	}, []string{"status"})
	rowsReadMetric = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "indexverify",
		Subsystem: "verify",
		Name:      "rows_read",
		Help:      "Rate of rows that are being read from both sides.",
	})
)

func init() {
	// Initialise each metric by default.
	for _, s := range []string{"missing", "mismatching", "success"} {
		rowStatusMetric.WithLabelValues(s)
	}
}

// ReportingListener forwards findings to a reporter, tagging each with
// Parent when set.
type ReportingListener struct {
	Reporter inconsistency.Reporter
	Parent   *inconsistency.ParentKey
	// OnPair, if set, is called for every key present on both sides.
	OnPair func(key dataset.Key, left, right dataset.Row)
}

var _ RowEventListener = (*ReportingListener)(nil)

func (n *ReportingListener) OnMissingRow(row inconsistency.MissingRow) {
	row.Parent = n.Parent
	n.Reporter.Report(row)
	rowStatusMetric.WithLabelValues("missing").Inc()
}

func (n *ReportingListener) OnMismatchingField(field inconsistency.MismatchingField) {
	field.Parent = n.Parent
	n.Reporter.Report(field)
	rowStatusMetric.WithLabelValues("mismatching").Inc()
}

func (n *ReportingListener) OnRowPair(key dataset.Key, left, right dataset.Row) {
	if n.OnPair != nil {
		n.OnPair(key, left, right)
	}
}

func (n *ReportingListener) OnMatch() {
	rowStatusMetric.WithLabelValues("success").Inc()
}

func (n *ReportingListener) OnRowScan() {
	rowsReadMetric.Inc()
}
