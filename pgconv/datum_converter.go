// Package pgconv converts values decoded by pgx into datum values.
package pgconv

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
)

func ConvertRowValue(val any, typOID oid.Oid) (any, error) {
	if val == nil {
		return nil, nil
	}
	switch typOID {
	case pgtype.QCharOID:
		if v, ok := val.(int32); ok {
			return fmt.Sprintf("%c", v), nil
		}
	case pgtype.JSONOID, pgtype.JSONBOID:
		switch v := val.(type) {
		case string:
			return datum.ParseJSON(v)
		case []byte:
			return datum.ParseJSON(string(v))
		}
	case pgtype.UUIDOID:
		if v, ok := val.([16]uint8); ok {
			return datum.Normalize(v)
		}
	case pgtype.TimestampOID, pgtype.TimestamptzOID, pgtype.DateOID:
		switch v := val.(type) {
		case time.Time:
			return v.UTC(), nil
		case pgtype.InfinityModifier:
			return v.String(), nil
		case string:
			return v, nil
		}
	case pgtype.TimeOID:
		if v, ok := val.(pgtype.Time); ok {
			return formatTimeOfDay(v.Microseconds), nil
		}
	case oid.T_timetz: // does not exist in pgtype.
		if v, ok := val.(string); ok {
			return v, nil
		}
	case pgtype.NumericOID:
		if v, ok := val.(pgtype.Numeric); ok {
			return convertNumeric(v)
		}
	case pgtype.BitOID, pgtype.VarbitOID:
		if v, ok := val.(pgtype.Bits); ok {
			return formatBits(v), nil
		}
	case pgtype.OIDOID:
		if v, ok := val.(uint32); ok {
			return int64(v), nil
		}
	default:
		return datum.Normalize(val)
	}
	return nil, errors.AssertionFailedf("value %v (%T) of type OID %d not yet translatable", val, val, typOID)
}

// ConvertRowValues converts one row as returned by pgx.Rows.Values. JSON
// columns are instead decoded from raw, the undecoded wire values of the row,
// since pgx decodes JSON numbers into float64.
func ConvertRowValues(fields []pgconn.FieldDescription, vals []any, raw [][]byte) ([]any, error) {
	if len(vals) != len(fields) {
		return nil, errors.AssertionFailedf("val length != field length: %d vs %d", len(vals), len(fields))
	}
	ret := make([]any, len(vals))
	for i := range vals {
		val := vals[i]
		typOID := oid.Oid(fields[i].DataTypeOID)
		if typOID == pgtype.JSONOID || typOID == pgtype.JSONBOID {
			if len(raw) != len(fields) {
				return nil, errors.AssertionFailedf("raw length != field length: %d vs %d", len(raw), len(fields))
			}
			var err error
			if val, err = jsonText(raw[i], fields[i]); err != nil {
				return nil, errors.Wrapf(err, "error converting column %s", fields[i].Name)
			}
		}
		var err error
		if ret[i], err = ConvertRowValue(val, typOID); err != nil {
			return nil, errors.Wrapf(err, "error converting column %s", fields[i].Name)
		}
	}
	return ret, nil
}

// jsonText returns the JSON text of a raw json or jsonb value. The binary
// jsonb format is the text prefixed by a version byte.
func jsonText(raw []byte, fd pgconn.FieldDescription) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if fd.DataTypeOID == pgtype.JSONBOID && fd.Format == pgtype.BinaryFormatCode {
		if len(raw) == 0 || raw[0] != 1 {
			return nil, errors.Newf("unknown jsonb format version")
		}
		raw = raw[1:]
	}
	return string(raw), nil
}

func convertNumeric(val pgtype.Numeric) (any, error) {
	if !val.Valid {
		return nil, nil
	}
	switch {
	case val.NaN:
		return &apd.Decimal{Form: apd.NaN}, nil
	case val.InfinityModifier == pgtype.Infinity:
		return &apd.Decimal{Form: apd.Infinite}, nil
	case val.InfinityModifier == pgtype.NegativeInfinity:
		return &apd.Decimal{Form: apd.Infinite, Negative: true}, nil
	case val.Int == nil:
		return nil, errors.AssertionFailedf("numeric %v has no coefficient", val)
	}
	d := apd.NewWithBigInt(new(apd.BigInt).SetMathBigInt(val.Int), val.Exp)
	// A scale of zero folds into the integer kind so NUMERIC and BIGINT
	// columns holding the same value compare equal without conversion.
	if val.Exp >= 0 {
		if i, err := d.Int64(); err == nil {
			return i, nil
		}
	}
	return d, nil
}

func formatTimeOfDay(micros int64) string {
	d := time.Duration(micros) * time.Microsecond
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	d -= s * time.Second
	ret := fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	if d > 0 {
		ret += strings.TrimRight(fmt.Sprintf(".%06d", d/time.Microsecond), "0")
	}
	return ret
}

func formatBits(val pgtype.Bits) string {
	var sb strings.Builder
	for i := int32(0); i < val.Len; i++ {
		byteIdx := i / 8
		bitMask := byte(128 >> byte(i%8))
		if val.Bytes[byteIdx]&bitMask > 0 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
