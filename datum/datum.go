// Package datum defines the scalar values held in a row and how two of them
// are ordered, compared for equality and rendered for reporting.
//
// Values are normalized Go types:
//
//	nil          NULL
//	int64        integers of any width
//	*apd.Decimal exact numerics
//	float64      floating point (compared exactly)
//	string       text
//	bool         booleans
//	time.Time    timestamps and dates
//	[]byte       blobs and binary hashes
//	JSON         canonical JSON text
//	Absent       a field missing from one of the two rows
package datum

import (
	"math"
	"math/big"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// JSON is canonical JSON text, with object keys sorted.
type JSON string

type absent struct{}

func (absent) String() string {
	return "<absent>"
}

// Absent marks a field which exists in one row but not in the other.
var Absent any = absent{}

// IsAbsent returns whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// Normalize converts a value as returned by a database driver into one of the
// normalized value types.
func Normalize(v any) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case absent:
		return v, nil
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return normalizeUint(uint64(v)), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return normalizeUint(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case *apd.Decimal:
		return v, nil
	case apd.Decimal:
		return &v, nil
	case string:
		return v, nil
	case bool:
		return v, nil
	case []byte:
		if v == nil {
			return nil, nil
		}
		return append([]byte(nil), v...), nil
	case time.Time:
		return v, nil
	case JSON:
		return v, nil
	case [16]byte:
		return uuid.UUID(v).String(), nil
	case uuid.UUID:
		return v.String(), nil
	case map[string]any, []any:
		return MakeJSON(v)
	}
	return nil, errors.Newf("unsupported value %v of type %T", v, v)
}

func normalizeUint(v uint64) any {
	if v <= math.MaxInt64 {
		return int64(v)
	}
	return apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(new(big.Int).SetUint64(v)), 0)
}
