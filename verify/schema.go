package verify

import (
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/dbtable"
)

const (
	BlocksTable       = "block_metadata"
	TransactionsTable = "txn_fact_table"
	MessagesTable     = "msg_fact_table"
)

// DefaultIgnoreColumns are storage-internal columns expected to differ
// between two independently built indexes.
var DefaultIgnoreColumns = []string{"rowid"}

// Schema describes the tables making up an index, one per hierarchy level.
type Schema struct {
	Blocks       dbtable.Spec
	Transactions dbtable.Spec
	Messages     dbtable.Spec
	// Details has the spec of each message type's detail table.
	Details map[MsgType]dbtable.Spec
}

// DefaultSchema returns the layout written by the indexer.
func DefaultSchema() Schema {
	ignore := dbtable.MakeIgnoreSet(DefaultIgnoreColumns...)
	s := Schema{
		Blocks: dbtable.Spec{
			Name: dbtable.MakeName(BlocksTable),
			Columns: []string{
				"height",
				"proposer",
				"hash",
				"block_time",
				"txcount",
				"chain_id",
				"total_gas_wanted",
				"total_gas_used",
				"metadata",
			},
			KeyColumns:  []string{"height"},
			RangeColumn: "height",
			Ignore:      ignore,
		},
		Transactions: dbtable.Spec{
			Name: dbtable.MakeName(TransactionsTable),
			Columns: []string{
				"height",
				"tx_hash",
				"tx_index",
				"tx_time",
				"code",
				"log",
				"info",
				"gas_wanted",
				"gas_used",
				"fees",
				"codespace",
			},
			KeyColumns:  []string{"height", "tx_index"},
			RangeColumn: "height",
			Ignore:      ignore,
		},
		Messages: dbtable.Spec{
			Name:        dbtable.MakeName(MessagesTable),
			Columns:     []string{"tx_hash", "msg_index", "msg_type"},
			KeyColumns:  []string{"tx_hash", "msg_index"},
			ScopeColumn: "tx_hash",
			Ignore:      ignore,
		},
		Details: make(map[MsgType]dbtable.Spec, numMsgTypes),
	}
	for _, t := range AllMsgTypes() {
		// Detail tables differ per type, so every column is compared.
		s.Details[t] = dbtable.Spec{
			Name:        dbtable.MakeName(t.TableName()),
			KeyColumns:  []string{"height", "hash", "index"},
			RangeColumn: "height",
			Ignore:      ignore,
		}
	}
	return s
}

// Tables returns every table spec of the schema, in the order they are
// verified.
func (s Schema) Tables() []dbtable.Spec {
	ret := []dbtable.Spec{s.Blocks, s.Transactions, s.Messages}
	for _, t := range AllMsgTypes() {
		if spec, ok := s.Details[t]; ok {
			ret = append(ret, spec)
		}
	}
	return ret
}

// WithIgnore returns a copy of the schema where table ignores cols instead
// of its current ignore set.
func (s Schema) WithIgnore(table string, cols []string) (Schema, error) {
	ignore := dbtable.MakeIgnoreSet(cols...)
	found := false
	apply := func(spec *dbtable.Spec) {
		if spec.Name.Compare(dbtable.MakeName(table)) == 0 || spec.Table == table {
			*spec = spec.WithIgnore(ignore)
			found = true
		}
	}
	apply(&s.Blocks)
	apply(&s.Transactions)
	apply(&s.Messages)
	details := make(map[MsgType]dbtable.Spec, len(s.Details))
	for t, spec := range s.Details {
		apply(&spec)
		details[t] = spec
	}
	s.Details = details
	if !found {
		return s, errors.Newf("unknown table %q", table)
	}
	return s, nil
}

// Validate checks every table spec, and that the messages table can be
// scoped to a single transaction.
func (s Schema) Validate() error {
	for _, spec := range s.Tables() {
		if err := spec.Validate(); err != nil {
			return err
		}
	}
	if s.Messages.ScopeColumn == "" {
		return errors.Newf("table %s must have a scope column", s.Messages.SafeString())
	}
	for _, t := range AllMsgTypes() {
		if _, ok := s.Details[t]; !ok {
			return errors.Newf("no table for message type %s", t)
		}
	}
	return nil
}
