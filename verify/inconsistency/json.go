package inconsistency

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/cockroachdb/indexverify/reportstore"
	"github.com/rs/zerolog"
)

// Record is the JSON lines form of a reported object.
type Record struct {
	Kind          string   `json:"kind"`
	Table         string   `json:"table,omitempty"`
	KeyColumns    []string `json:"key_columns,omitempty"`
	KeyValues     []string `json:"key_values,omitempty"`
	AbsentOn      string   `json:"absent_on,omitempty"`
	Column        string   `json:"column,omitempty"`
	LeftValue     *string  `json:"left_value,omitempty"`
	RightValue    *string  `json:"right_value,omitempty"`
	ParentTable   string   `json:"parent_table,omitempty"`
	ParentKey     []string `json:"parent_key,omitempty"`
	Error         string   `json:"error,omitempty"`
	Findings      *int     `json:"findings,omitempty"`
	TablesChecked *int     `json:"tables_checked,omitempty"`
	FailedTables  []string `json:"failed_tables,omitempty"`
}

const (
	KindMissingRow       = "missing_row"
	KindMismatchingField = "mismatching_field"
	KindTableFailure     = "table_failure"
	KindSummary          = "summary"
)

// MakeRecord converts obj into a Record. Status reports have no record.
func MakeRecord(obj ReportableObject) (Record, bool) {
	switch obj := obj.(type) {
	case MissingRow:
		r := Record{
			Kind:       KindMissingRow,
			Table:      obj.SafeString(),
			KeyColumns: obj.KeyColumns,
			KeyValues:  datum.FormatAll(obj.KeyValues),
			AbsentOn:   obj.AbsentOn.String(),
		}
		r.setParent(obj.Parent)
		return r, true
	case MismatchingField:
		left, right := datum.Format(obj.LeftValue), datum.Format(obj.RightValue)
		r := Record{
			Kind:       KindMismatchingField,
			Table:      obj.SafeString(),
			KeyColumns: obj.KeyColumns,
			KeyValues:  datum.FormatAll(obj.KeyValues),
			Column:     obj.Column,
			LeftValue:  &left,
			RightValue: &right,
		}
		r.setParent(obj.Parent)
		return r, true
	case TableFailure:
		r := Record{
			Kind:  KindTableFailure,
			Table: obj.SafeString(),
		}
		if obj.Err != nil {
			r.Error = obj.Err.Error()
		}
		return r, true
	case Summary:
		findings, tables := obj.Findings, obj.TablesChecked
		return Record{
			Kind:          KindSummary,
			Findings:      &findings,
			TablesChecked: &tables,
			FailedTables:  TableNames(obj.FailedTables),
		}, true
	}
	return Record{}, false
}

func (r *Record) setParent(parent *ParentKey) {
	if parent == nil {
		return
	}
	r.ParentTable = parent.Name.SafeString()
	r.ParentKey = datum.FormatAll(parent.KeyValues)
}

// JSONReporter writes one JSON object per line for every finding, table
// failure and summary.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
	err error
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

func (j *JSONReporter) Report(obj ReportableObject) {
	r, ok := MakeRecord(obj)
	if !ok {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	j.err = j.enc.Encode(r)
}

func (j *JSONReporter) Close() {
}

// Err returns the first error encountered while writing.
func (j *JSONReporter) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// StoreReporter collects JSON lines in memory and uploads them to a
// reportstore.Store when closed.
type StoreReporter struct {
	*JSONReporter

	logger  zerolog.Logger
	store   reportstore.Store
	key     string
	timeout time.Duration
	buf     *bytes.Buffer

	url string
	err error
}

func NewStoreReporter(
	logger zerolog.Logger, store reportstore.Store, key string, timeout time.Duration,
) *StoreReporter {
	buf := &bytes.Buffer{}
	return &StoreReporter{
		JSONReporter: NewJSONReporter(buf),
		logger:       logger,
		store:        store,
		key:          key,
		timeout:      timeout,
		buf:          buf,
	}
}

func (s *StoreReporter) Close() {
	if err := s.JSONReporter.Err(); err != nil {
		s.err = errors.Wrap(err, "error encoding report")
		s.logger.Err(s.err).Msgf("report not uploaded")
		return
	}
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	s.url, s.err = s.store.Put(ctx, s.key, bytes.NewReader(s.buf.Bytes()))
	if s.err != nil {
		s.logger.Err(s.err).Str("key", s.key).Msgf("error uploading report")
		return
	}
	s.logger.Info().Str("url", s.url).Msgf("report uploaded")
}

// URL returns where the report was uploaded, once closed.
func (s *StoreReporter) URL() string {
	return s.url
}

func (s *StoreReporter) Err() error {
	return s.err
}

// TableNames renders a list of tables for reporting.
func TableNames(names []dbtable.Name) []string {
	ret := make([]string, len(names))
	for i, n := range names {
		ret[i] = n.SafeString()
	}
	return ret
}
