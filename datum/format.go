package datum

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Format renders a value for reporting.
func Format(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case absent:
		return v.String()
	case int64:
		return strconv.FormatInt(v, 10)
	case *apd.Decimal:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	case JSON:
		return string(v)
	case []byte:
		return `\x` + hex.EncodeToString(v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	}
	return fmt.Sprintf("%v", v)
}

// FormatAll renders each value with Format.
func FormatAll(vals []any) []string {
	ret := make([]string, len(vals))
	for i, v := range vals {
		ret[i] = Format(v)
	}
	return ret
}
