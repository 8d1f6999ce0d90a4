package verify

import (
	"testing"

	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/stretchr/testify/require"
)

func TestMsgTypes(t *testing.T) {
	types := AllMsgTypes()
	require.Len(t, types, 22)
	require.Equal(t, "msggrant", types[0].TableName())
	require.Equal(t, "msgcancelunbondingdelegation", types[len(types)-1].TableName())

	seen := make(map[string]struct{})
	for _, typ := range types {
		name := typ.TableName()
		require.NotEmpty(t, name)
		_, dup := seen[name]
		require.False(t, dup, "duplicate table %s", name)
		seen[name] = struct{}{}

		parsed, err := ParseMsgType(name)
		require.NoError(t, err)
		require.Equal(t, typ, parsed)
	}

	parsed, err := ParseMsgType(" MsgDelegate ")
	require.NoError(t, err)
	require.Equal(t, MsgDelegate, parsed)

	_, err = ParseMsgType("msgtransfer")
	require.ErrorContains(t, err, `unknown message type "msgtransfer"`)

	require.Equal(t, "", MsgType(-1).TableName())

	list, err := ParseMsgTypes([]string{"msgsend", "msgunjail"})
	require.NoError(t, err)
	require.Equal(t, []MsgType{MsgSend, MsgUnjail}, list)

	_, err = ParseMsgTypes([]string{"msgsend", "MSGSEND"})
	require.ErrorContains(t, err, "given more than once")
}

func TestDefaultSchema(t *testing.T) {
	s := DefaultSchema()
	require.NoError(t, s.Validate())
	require.Len(t, s.Tables(), 3+22)

	require.Equal(t, []string{"height"}, s.Blocks.KeyColumns)
	require.Equal(t, []string{"height", "tx_index"}, s.Transactions.KeyColumns)
	require.Equal(t, []string{"tx_hash", "msg_index"}, s.Messages.KeyColumns)
	require.Equal(t, []string{"msg_index"}, scopedKeyColumns(s.Messages))
	for _, spec := range s.Tables() {
		require.True(t, spec.Ignore.Contains("rowid"), "table %s", spec.SafeString())
	}
	detail := s.Details[MsgSend]
	require.Nil(t, detail.Columns)
	require.Equal(t, []string{"height", "hash", "index"}, detail.KeyColumns)
	require.Equal(t, "height", detail.RangeColumn)
}

func TestSchemaWithIgnore(t *testing.T) {
	s := DefaultSchema()
	updated, err := s.WithIgnore("msgsend", []string{"rowid", "Amount"})
	require.NoError(t, err)
	require.Equal(t, dbtable.MakeIgnoreSet("rowid", "amount"), updated.Details[MsgSend].Ignore)
	require.Equal(t, dbtable.MakeIgnoreSet("rowid"), updated.Details[MsgDelegate].Ignore)
	// The original schema is unchanged.
	require.Equal(t, dbtable.MakeIgnoreSet("rowid"), s.Details[MsgSend].Ignore)

	updated, err = s.WithIgnore(BlocksTable, []string{"metadata"})
	require.NoError(t, err)
	require.True(t, updated.Blocks.Ignore.Contains("metadata"))
	require.False(t, updated.Blocks.Ignore.Contains("rowid"))

	_, err = s.WithIgnore("nope", []string{"a"})
	require.ErrorContains(t, err, `unknown table "nope"`)

	bad, err := s.WithIgnore(TransactionsTable, []string{"tx_index"})
	require.NoError(t, err)
	require.ErrorContains(t, bad.Validate(), "cannot ignore key column tx_index")
}
