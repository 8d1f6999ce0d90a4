package inconsistency

import (
	"fmt"

	"github.com/cockroachdb/indexverify/datum"
	"github.com/rs/zerolog"
)

type Reporter interface {
	Report(obj ReportableObject)
	Close()
}

type CombinedReporter struct {
	Reporters []Reporter
}

func (c CombinedReporter) Report(obj ReportableObject) {
	for _, r := range c.Reporters {
		r.Report(obj)
	}
}

func (c CombinedReporter) Close() {
	for _, r := range c.Reporters {
		r.Close()
	}
}

// LogReporter reports to `zerolog`.
type LogReporter struct {
	zerolog.Logger
}

func (l LogReporter) Report(obj ReportableObject) {
	switch obj := obj.(type) {
	case StatusReport:
		l.Info().Msg(obj.Info)
	case MismatchingField:
		withParent(l.Warn(), obj.Parent).
			Str("table_schema", obj.Schema).
			Str("table_name", obj.Table).
			Strs("primary_key", datum.FormatAll(obj.KeyValues)).
			Str("column", obj.Column).
			Str("left_value", datum.Format(obj.LeftValue)).
			Str("right_value", datum.Format(obj.RightValue)).
			Msgf("mismatching field")
	case MissingRow:
		withParent(l.Warn(), obj.Parent).
			Str("table_schema", obj.Schema).
			Str("table_name", obj.Table).
			Strs("primary_key", datum.FormatAll(obj.KeyValues)).
			Str("absent_on", obj.AbsentOn.String()).
			Msgf("missing row")
	case TableFailure:
		l.Error().
			Str("table_schema", obj.Schema).
			Str("table_name", obj.Table).
			Err(obj.Err).
			Msgf("table could not be verified")
	case Summary:
		l.Info().
			Int("findings", obj.Findings).
			Int("tables_checked", obj.TablesChecked).
			Int("tables_failed", len(obj.FailedTables)).
			Dur("duration", obj.Duration).
			Msgf("verification complete")
	default:
		l.Error().
			Str("type", fmt.Sprintf("%T", obj)).
			Msgf("unknown object type")
	}
}

func withParent(e *zerolog.Event, parent *ParentKey) *zerolog.Event {
	if parent == nil {
		return e
	}
	return e.
		Str("parent_table", parent.Name.Table).
		Strs("parent_key", datum.FormatAll(parent.KeyValues))
}

func (l LogReporter) Close() {
}
