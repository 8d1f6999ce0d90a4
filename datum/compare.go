package datum

import (
	"bytes"
	"math"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

// Compare orders two key values. Integers and decimals compare numerically
// with each other, text compares byte-wise and blobs with bytes.Compare.
// NULL, Absent, NaN and values of incomparable types cannot be ordered and
// return an error.
func Compare(a, b any) (int, error) {
	if a == nil || b == nil {
		return 0, errors.Newf("cannot order NULL values")
	}
	if IsAbsent(a) || IsAbsent(b) {
		return 0, errors.Newf("cannot order absent values")
	}
	switch a := a.(type) {
	case int64:
		switch b := b.(type) {
		case int64:
			return compareInt64(a, b), nil
		case *apd.Decimal:
			return compareDecimal(apd.New(a, 0), b)
		}
	case *apd.Decimal:
		switch b := b.(type) {
		case int64:
			return compareDecimal(a, apd.New(b, 0))
		case *apd.Decimal:
			return compareDecimal(a, b)
		}
	case float64:
		if b, ok := b.(float64); ok && !math.IsNaN(a) && !math.IsNaN(b) {
			switch {
			case a < b:
				return -1, nil
			case a > b:
				return 1, nil
			}
			return 0, nil
		}
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(a, b), nil
		}
	case JSON:
		if b, ok := b.(JSON); ok {
			return strings.Compare(string(a), string(b)), nil
		}
	case []byte:
		if b, ok := b.([]byte); ok {
			return bytes.Compare(a, b), nil
		}
	case bool:
		if b, ok := b.(bool); ok {
			switch {
			case a == b:
				return 0, nil
			case !a:
				return -1, nil
			}
			return 1, nil
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			switch {
			case a.Before(b):
				return -1, nil
			case a.After(b):
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, errors.Newf("cannot compare %s (%T) with %s (%T)", Format(a), a, Format(b), b)
}

// Equal reports whether two field values are equal. Equality is exact: there
// is no tolerance for floating point values and blobs must match byte for
// byte. Values of different semantic types are never equal, except integers
// and decimals which compare numerically.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsAbsent(a) || IsAbsent(b) {
		return IsAbsent(a) && IsAbsent(b)
	}
	switch a := a.(type) {
	case int64:
		switch b := b.(type) {
		case int64:
			return a == b
		case *apd.Decimal:
			return decimalEqual(apd.New(a, 0), b)
		}
	case *apd.Decimal:
		switch b := b.(type) {
		case int64:
			return decimalEqual(a, apd.New(b, 0))
		case *apd.Decimal:
			return decimalEqual(a, b)
		}
	case float64:
		if b, ok := b.(float64); ok {
			return a == b || (math.IsNaN(a) && math.IsNaN(b))
		}
	case string:
		if b, ok := b.(string); ok {
			return a == b
		}
	case JSON:
		if b, ok := b.(JSON); ok {
			return a == b
		}
	case []byte:
		if b, ok := b.([]byte); ok {
			return bytes.Equal(a, b)
		}
	case bool:
		if b, ok := b.(bool); ok {
			return a == b
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Equal(b)
		}
	}
	return false
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func compareDecimal(a, b *apd.Decimal) (int, error) {
	if a.Form == apd.NaN || a.Form == apd.NaNSignaling || b.Form == apd.NaN || b.Form == apd.NaNSignaling {
		return 0, errors.Newf("cannot order NaN decimals")
	}
	return a.Cmp(b), nil
}

func decimalEqual(a, b *apd.Decimal) bool {
	aNaN := a.Form == apd.NaN || a.Form == apd.NaNSignaling
	bNaN := b.Form == apd.NaN || b.Form == apd.NaNSignaling
	if aNaN || bNaN {
		return aNaN && bNaN
	}
	return a.Cmp(b) == 0
}
