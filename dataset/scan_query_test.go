package dataset

import (
	"testing"

	"github.com/cockroachdb/indexverify/dbtable"
	"github.com/stretchr/testify/require"
)

func TestScanQuery(t *testing.T) {
	blocks := dbtable.Spec{
		Name:        dbtable.MakeName("block_metadata"),
		Columns:     []string{"height", "proposer", "hash"},
		KeyColumns:  []string{"height"},
		RangeColumn: "height",
	}
	msgs := dbtable.Spec{
		Name:        dbtable.MakeName("msg_fact_table"),
		Columns:     []string{"tx_hash", "msg_index", "msg_type"},
		KeyColumns:  []string{"tx_hash", "msg_index"},
		ScopeColumn: "tx_hash",
	}
	detail := dbtable.Spec{
		Name:        dbtable.MakeName("msgsend"),
		KeyColumns:  []string{"height", "hash"},
		RangeColumn: "height",
	}

	for _, tc := range []struct {
		desc          string
		spec          dbtable.Spec
		filter        Filter
		byteOrderKeys []bool
		expectedPG    []string
		expectedMy    []string
		notExpected   []string
	}{
		{
			desc:        "full table",
			spec:        blocks,
			expectedPG:  []string{"SELECT height, proposer, hash FROM public.block_metadata ORDER BY height"},
			expectedMy:  []string{"`height`,`proposer`,`hash` FROM `block_metadata` ORDER BY `height`"},
			notExpected: []string{"WHERE"},
		},
		{
			desc:       "bounded range",
			spec:       blocks,
			filter:     Filter{Bounds: dbtable.MakeBounds(10, 20)},
			expectedPG: []string{"height >= 10", "height <= 20", "ORDER BY height"},
			expectedMy: []string{"`height`>=10", "`height`<=20", " AND ", "ORDER BY `height`"},
		},
		{
			desc:       "scoped",
			spec:       msgs,
			filter:     Filter{Scope: &Scope{Column: "tx_hash", Value: "ABCD"}},
			expectedPG: []string{"WHERE tx_hash = 'ABCD'", "ORDER BY tx_hash, msg_index"},
			expectedMy: []string{"WHERE `tx_hash`='ABCD'", "ORDER BY `tx_hash`,`msg_index`"},
		},
		{
			desc:          "text keys in byte order",
			spec:          msgs,
			filter:        Filter{Scope: &Scope{Column: "tx_hash", Value: "ABCD"}},
			byteOrderKeys: []bool{true, false},
			expectedPG:    []string{"ORDER BY convert_to(tx_hash, 'UTF8'), msg_index"},
			expectedMy:    []string{"ORDER BY BINARY `tx_hash`,`msg_index`"},
		},
		{
			desc:       "every column",
			spec:       detail,
			filter:     Filter{Bounds: dbtable.MakeBounds(5, 5)},
			expectedPG: []string{"SELECT * FROM public.msgsend WHERE"},
			expectedMy: []string{"* FROM `msgsend` WHERE"},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			pg, err := newPGScanQuery(tc.spec, tc.filter, tc.byteOrderKeys)
			require.NoError(t, err)
			for _, frag := range tc.expectedPG {
				require.Contains(t, pg, frag)
			}
			my, err := newMySQLScanQuery(tc.spec, tc.filter, tc.byteOrderKeys)
			require.NoError(t, err)
			for _, frag := range tc.expectedMy {
				require.Contains(t, my, frag)
			}
			for _, frag := range tc.notExpected {
				require.NotContains(t, pg, frag)
				require.NotContains(t, my, frag)
			}
		})
	}

	t.Run("bounds without range column", func(t *testing.T) {
		_, err := newPGScanQuery(msgs, Filter{Bounds: dbtable.MakeBounds(1, 2)}, nil)
		require.Error(t, err)
		_, err = newMySQLScanQuery(msgs, Filter{Bounds: dbtable.MakeBounds(1, 2)}, nil)
		require.Error(t, err)
	})

	t.Run("key types", func(t *testing.T) {
		require.Equal(t, "SELECT tx_hash, msg_index FROM public.msg_fact_table LIMIT 0", newPGKeyTypesQuery(msgs))
		my, err := newMySQLKeyTypesQuery(msgs)
		require.NoError(t, err)
		require.Contains(t, my, "`tx_hash`,`msg_index` FROM `msg_fact_table` LIMIT 0")
	})
}
