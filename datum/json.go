package datum

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/cockroachdb/apd/v3"
	"github.com/cockroachdb/errors"
)

// MakeJSON marshals v into canonical JSON text. Numbers held as json.Number
// are rewritten in their shortest exact decimal form.
func MakeJSON(v any) (JSON, error) {
	v, err := canonicalJSONNumbers(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Wrapf(err, "error encoding json for %v", v)
	}
	return JSON(b), nil
}

// ParseJSON canonicalizes JSON text, so that whitespace, key order and the
// spelling of numbers do not affect equality. Numbers are kept exact: they
// are never rounded through float64.
func ParseJSON(s string) (JSON, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", errors.Wrapf(err, "error decoding json %q", s)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", errors.Newf("error decoding json %q: trailing data", s)
	}
	return MakeJSON(v)
}

func canonicalJSONNumbers(v any) (any, error) {
	switch v := v.(type) {
	case json.Number:
		d, _, err := apd.NewFromString(string(v))
		if err != nil {
			return nil, errors.Wrapf(err, "error decoding json number %s", v)
		}
		d.Reduce(d)
		if d.IsZero() {
			d.Negative = false
		}
		return json.Number(d.Text('f')), nil
	case map[string]any:
		ret := make(map[string]any, len(v))
		for k, elem := range v {
			c, err := canonicalJSONNumbers(elem)
			if err != nil {
				return nil, err
			}
			ret[k] = c
		}
		return ret, nil
	case []any:
		ret := make([]any, len(v))
		for i, elem := range v {
			c, err := canonicalJSONNumbers(elem)
			if err != nil {
				return nil, err
			}
			ret[i] = c
		}
		return ret, nil
	}
	return v, nil
}
