package dataset

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/stretchr/testify/require"
)

func TestMemReader(t *testing.T) {
	ctx := context.Background()
	msgs := dbtable.MakeName("msg_fact_table")
	spec := dbtable.Spec{
		Name:        msgs,
		Columns:     []string{"tx_hash", "msg_index", "msg_type"},
		KeyColumns:  []string{"tx_hash", "msg_index"},
		ScopeColumn: "tx_hash",
	}
	r := NewMemReader().Load(
		msgs,
		[]string{"rowid", "msg_type", "msg_index", "tx_hash"},
		[]any{int64(3), "msgsend", int64(1), "BB"},
		[]any{int64(1), "msgsend", int64(0), "BB"},
		[]any{int64(2), "msgdelegate", int64(0), "AA"},
	)

	t.Run("projects and sorts", func(t *testing.T) {
		ds, err := r.Read(ctx, spec, Filter{})
		require.NoError(t, err)
		require.Equal(t, []string{"tx_hash", "msg_index", "msg_type"}, ds.Columns)
		require.Equal(t, []Row{
			{Values: []any{"AA", int64(0), "msgdelegate"}},
			{Values: []any{"BB", int64(0), "msgsend"}},
			{Values: []any{"BB", int64(1), "msgsend"}},
		}, ds.Rows)
		require.NoError(t, CheckOrdered(ds))
	})

	t.Run("every column", func(t *testing.T) {
		all := spec
		all.Columns = nil
		ds, err := r.Read(ctx, all, Filter{})
		require.NoError(t, err)
		require.Equal(t, []string{"rowid", "msg_type", "msg_index", "tx_hash"}, ds.Columns)
		require.Equal(t, 3, ds.Len())
	})

	t.Run("scoped", func(t *testing.T) {
		ds, err := r.Read(ctx, spec, Filter{Scope: &Scope{Column: "tx_hash", Value: "BB"}})
		require.NoError(t, err)
		require.Equal(t, 2, ds.Len())
	})

	t.Run("missing table", func(t *testing.T) {
		_, err := r.Read(ctx, dbtable.Spec{Name: dbtable.MakeName("msgsend"), KeyColumns: []string{"height"}}, Filter{})
		require.True(t, IsQueryError(err))
	})

	t.Run("missing column", func(t *testing.T) {
		bad := spec
		bad.Columns = []string{"tx_hash", "msg_index", "nope"}
		_, err := r.Read(ctx, bad, Filter{})
		require.True(t, IsQueryError(err))
		require.ErrorContains(t, err, `column "nope" does not exist`)
	})

	t.Run("preserve order", func(t *testing.T) {
		unsorted := NewMemReader().Load(
			msgs,
			[]string{"tx_hash", "msg_index", "msg_type"},
			[]any{"BB", int64(0), "msgsend"},
			[]any{"AA", int64(0), "msgsend"},
		).PreserveOrder(msgs)
		ds, err := unsorted.Read(ctx, spec, Filter{})
		require.NoError(t, err)
		require.True(t, IsPrecomparisonError(CheckOrdered(ds)))
	})

	t.Run("injected failure", func(t *testing.T) {
		boom := errors.New("boom")
		failing := NewMemReader().FailWith(msgs, boom)
		_, err := failing.Read(ctx, spec, Filter{})
		require.ErrorIs(t, err, boom)
		require.Equal(t, 1, failing.Reads())
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Read(cctx, spec, Filter{})
		require.ErrorIs(t, err, context.Canceled)
	})
}
