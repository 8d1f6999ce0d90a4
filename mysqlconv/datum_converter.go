package mysqlconv

import (
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/indexverify/datum"
	"github.com/lib/pq/oid"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04:05.999999999"
)

// ConvertRowValue decodes the text protocol representation of a MySQL value.
// DATETIME and TIMESTAMP values are interpreted as UTC.
func ConvertRowValue(val []byte, typOID oid.Oid) (any, error) {
	if val == nil {
		return nil, nil
	}
	switch typOID {
	case oid.T_text, oid.T_varchar, oid.T_time:
		return string(val), nil
	case oid.T_float4:
		f, err := strconv.ParseFloat(string(val), 32)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding float %q", val)
		}
		return float64(float32(f)), nil
	case oid.T_float8:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding float %q", val)
		}
		return f, nil
	case oid.T_int2, oid.T_int4, oid.T_int8:
		i, err := strconv.ParseInt(string(val), 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding integer %q", val)
		}
		return i, nil
	case oid.T_numeric:
		d, _, err := apd.NewFromString(string(val))
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding decimal %q", val)
		}
		if d.Exponent >= 0 {
			if i, err := d.Int64(); err == nil {
				return i, nil
			}
		}
		return d, nil
	case oid.T_json, oid.T_jsonb:
		return datum.ParseJSON(string(val))
	case oid.T_timestamp, oid.T_timestamptz:
		v := string(val)
		// Zero dates cannot be represented and are treated as NULL.
		if strings.HasPrefix(v, "0000-") {
			return nil, nil
		}
		t, err := time.ParseInLocation(datetimeLayout, v, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding timestamp %q", v)
		}
		return t, nil
	case oid.T_date:
		v := string(val)
		if strings.HasPrefix(v, "0000-") {
			return nil, nil
		}
		t, err := time.ParseInLocation(dateLayout, v, time.UTC)
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding date %q", v)
		}
		return t, nil
	case oid.T_bytea, oid.T_varbit:
		return append([]byte(nil), val...), nil
	}
	return nil, errors.AssertionFailedf("value type OID %d not yet translatable", typOID)
}

func ConvertRowValues(vals [][]byte, typOIDs []oid.Oid) ([]any, error) {
	ret := make([]any, len(vals))
	if len(vals) != len(typOIDs) {
		return nil, errors.AssertionFailedf("val length != oid length: %d vs %d", len(vals), len(typOIDs))
	}
	for i := range vals {
		var err error
		if ret[i], err = ConvertRowValue(vals[i], typOIDs[i]); err != nil {
			return nil, err
		}
	}
	return ret, nil
}
