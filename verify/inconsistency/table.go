package inconsistency

import (
	"fmt"
	"time"

	"github.com/cockroachdb/indexverify/dbtable"
)

type StatusReport struct {
	Info string
}

// TableFailure is reported when a table could not be compared. Other
// tables are still compared.
type TableFailure struct {
	dbtable.Name
	Err error
}

// Summary is reported once a run completes.
type Summary struct {
	Findings      int
	TablesChecked int
	FailedTables  []dbtable.Name
	Duration      time.Duration
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"findings: %d, tables checked: %d, tables failed: %d, duration: %s",
		s.Findings,
		s.TablesChecked,
		len(s.FailedTables),
		s.Duration.Round(time.Millisecond),
	)
}
