package inconsistency

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var (
	blocks = dbtable.MakeName("block_metadata")
	msgs   = dbtable.MakeName("msg_fact_table")
)

func TestSide(t *testing.T) {
	require.Equal(t, "left", Left.String())
	require.Equal(t, "right", Right.String())
	require.Equal(t, Right, Left.Other())
	require.Equal(t, Left, Right.Other())
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	r := LogReporter{Logger: zerolog.New(&buf)}
	r.Report(MissingRow{
		Name:       msgs,
		KeyColumns: []string{"tx_hash", "msg_index"},
		KeyValues:  []any{"AA", int64(0)},
		AbsentOn:   Right,
		Parent: &ParentKey{
			Name:       dbtable.MakeName("txn_fact_table"),
			KeyColumns: []string{"height", "tx_index"},
			KeyValues:  []any{int64(5), int64(0)},
		},
	})
	r.Report(MismatchingField{
		Name:       blocks,
		KeyColumns: []string{"height"},
		KeyValues:  []any{int64(2)},
		Column:     "proposer",
		LeftValue:  "val1",
		RightValue: datum.Absent,
	})
	r.Report(StatusReport{Info: "hello"})
	r.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)

	var missing map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &missing))
	require.Equal(t, "missing row", missing["message"])
	require.Equal(t, "msg_fact_table", missing["table_name"])
	require.Equal(t, "right", missing["absent_on"])
	require.Equal(t, []any{"AA", "0"}, missing["primary_key"])
	require.Equal(t, "txn_fact_table", missing["parent_table"])
	require.Equal(t, []any{"5", "0"}, missing["parent_key"])

	var mismatch map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &mismatch))
	require.Equal(t, "mismatching field", mismatch["message"])
	require.Equal(t, "proposer", mismatch["column"])
	require.Equal(t, "val1", mismatch["left_value"])
	require.Equal(t, "<absent>", mismatch["right_value"])
}

func TestCombinedAndCollectingReporter(t *testing.T) {
	a, b := &CollectingReporter{}, &CollectingReporter{}
	r := CombinedReporter{Reporters: []Reporter{a, b}}
	f := MissingRow{Name: blocks, KeyColumns: []string{"height"}, KeyValues: []any{int64(1)}, AbsentOn: Left}
	r.Report(f)
	r.Report(StatusReport{Info: "status"})
	r.Close()
	for _, c := range []*CollectingReporter{a, b} {
		require.Len(t, c.Objects(), 2)
		require.Equal(t, []Finding{f}, c.Findings())
		require.True(t, c.Closed())
	}
}

func TestSortingReporter(t *testing.T) {
	collector := &CollectingReporter{}
	r := &SortingReporter{Reporter: collector}
	mk := func(table dbtable.Name, key ...any) MissingRow {
		return MissingRow{Name: table, KeyValues: key, AbsentOn: Right}
	}
	r.Report(mk(msgs, "BB", int64(0)))
	r.Report(mk(msgs, "AA", int64(1)))
	r.Report(StatusReport{Info: "passes through"})
	r.Report(mk(blocks, int64(10)))
	r.Report(mk(msgs, "AA", int64(0)))
	r.Report(mk(blocks, int64(9)))

	require.Len(t, collector.Objects(), 1)
	r.Close()
	require.True(t, collector.Closed())
	require.Equal(t, []Finding{
		mk(blocks, int64(9)),
		mk(blocks, int64(10)),
		mk(msgs, "AA", int64(0)),
		mk(msgs, "AA", int64(1)),
		mk(msgs, "BB", int64(0)),
	}, collector.Findings())
}

func TestSortFindingsByParent(t *testing.T) {
	txns := dbtable.MakeName("txn_fact_table")
	mk := func(height int64, msgIndex int64) MissingRow {
		return MissingRow{
			Name:      msgs,
			KeyValues: []any{msgIndex},
			AbsentOn:  Left,
			Parent:    &ParentKey{Name: txns, KeyValues: []any{height, int64(0)}},
		}
	}
	findings := []Finding{mk(6, 0), mk(5, 1), mk(6, 1), mk(5, 0)}
	SortFindings(findings)
	require.Equal(t, []Finding{mk(5, 0), mk(5, 1), mk(6, 0), mk(6, 1)}, findings)
}

func TestJSONReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONReporter(&buf)
	r.Report(MismatchingField{
		Name:       blocks,
		KeyColumns: []string{"height"},
		KeyValues:  []any{int64(3)},
		Column:     "hash",
		LeftValue:  []byte{0xab},
		RightValue: nil,
	})
	r.Report(StatusReport{Info: "not written"})
	r.Report(TableFailure{Name: dbtable.MakeName("msgsend"), Err: errors.New("relation does not exist")})
	r.Report(Summary{Findings: 1, TablesChecked: 3, FailedTables: []dbtable.Name{dbtable.MakeName("msgsend")}})
	r.Close()
	require.NoError(t, r.Err())

	require.Equal(
		t,
		`{"kind":"mismatching_field","table":"public.block_metadata","key_columns":["height"],"key_values":["3"],"column":"hash","left_value":"\\xab","right_value":"NULL"}
{"kind":"table_failure","table":"public.msgsend","error":"relation does not exist"}
{"kind":"summary","findings":1,"tables_checked":3,"failed_tables":["public.msgsend"]}
`,
		buf.String(),
	)
}

type memStore struct {
	key  string
	body string
	err  error
}

func (m *memStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.key, m.body = key, string(b)
	return "mem://" + key, nil
}

func TestStoreReporter(t *testing.T) {
	t.Run("uploads on close", func(t *testing.T) {
		store := &memStore{}
		r := NewStoreReporter(zerolog.Nop(), store, "run/findings.jsonl", 0)
		r.Report(MissingRow{Name: blocks, KeyColumns: []string{"height"}, KeyValues: []any{int64(1)}, AbsentOn: Left})
		require.Empty(t, store.body)
		r.Close()
		require.NoError(t, r.Err())
		require.Equal(t, "mem://run/findings.jsonl", r.URL())
		require.Equal(
			t,
			`{"kind":"missing_row","table":"public.block_metadata","key_columns":["height"],"key_values":["1"],"absent_on":"left"}`+"\n",
			store.body,
		)
	})

	t.Run("upload failure", func(t *testing.T) {
		store := &memStore{err: errors.New("bucket not found")}
		r := NewStoreReporter(zerolog.Nop(), store, "run/findings.jsonl", 0)
		r.Close()
		require.EqualError(t, r.Err(), "bucket not found")
		require.Empty(t, r.URL())
	})
}
