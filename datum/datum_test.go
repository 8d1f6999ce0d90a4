package datum

import (
	"math"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/require"
)

func mustDecimal(t *testing.T, s string) *apd.Decimal {
	d, _, err := apd.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestNormalize(t *testing.T) {
	ts := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	for _, tc := range []struct {
		desc     string
		in       any
		expected any
	}{
		{desc: "nil", in: nil, expected: nil},
		{desc: "int32", in: int32(5), expected: int64(5)},
		{desc: "int16", in: int16(-3), expected: int64(-3)},
		{desc: "uint32", in: uint32(7), expected: int64(7)},
		{desc: "float32", in: float32(1.5), expected: float64(1.5)},
		{desc: "string", in: "abc", expected: "abc"},
		{desc: "bytes", in: []byte{1, 2}, expected: []byte{1, 2}},
		{desc: "nil bytes", in: []byte(nil), expected: nil},
		{desc: "time", in: ts, expected: ts},
		{
			desc:     "uuid",
			in:       [16]byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00},
			expected: "123e4567-e89b-12d3-a456-426614174000",
		},
		{desc: "json map", in: map[string]any{"b": 1.0, "a": "x"}, expected: JSON(`{"a":"x","b":1}`)},
		{desc: "json array", in: []any{"a", 1.0}, expected: JSON(`["a",1]`)},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ret, err := Normalize(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expected, ret)
		})
	}

	t.Run("large uint64", func(t *testing.T) {
		ret, err := Normalize(uint64(math.MaxUint64))
		require.NoError(t, err)
		require.Equal(t, "18446744073709551615", Format(ret))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := Normalize(struct{}{})
		require.Error(t, err)
	})
}

func TestCompare(t *testing.T) {
	ts := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	for _, tc := range []struct {
		desc     string
		a, b     any
		expected int
		err      bool
	}{
		{desc: "ints lt", a: int64(1), b: int64(2), expected: -1},
		{desc: "ints eq", a: int64(2), b: int64(2), expected: 0},
		{desc: "ints gt", a: int64(3), b: int64(2), expected: 1},
		{desc: "int vs decimal", a: int64(3), b: mustDecimal(t, "2.5"), expected: 1},
		{desc: "decimal vs int", a: mustDecimal(t, "3.00"), b: int64(3), expected: 0},
		{desc: "strings", a: "A", b: "a", expected: -1},
		{desc: "bytes", a: []byte{0x01}, b: []byte{0x01, 0x00}, expected: -1},
		{desc: "times", a: ts, b: ts.Add(time.Second), expected: -1},
		{desc: "bools", a: false, b: true, expected: -1},
		{desc: "null", a: nil, b: int64(1), err: true},
		{desc: "absent", a: Absent, b: int64(1), err: true},
		{desc: "mixed kinds", a: "1", b: int64(1), err: true},
		{desc: "nan float", a: math.NaN(), b: 1.0, err: true},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			ret, err := Compare(tc.a, tc.b)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, ret)
		})
	}
}

func TestEqual(t *testing.T) {
	ts := time.Date(2023, 4, 5, 6, 7, 8, 0, time.UTC)
	for _, tc := range []struct {
		desc     string
		a, b     any
		expected bool
	}{
		{desc: "null null", a: nil, b: nil, expected: true},
		{desc: "null value", a: nil, b: int64(0), expected: false},
		{desc: "absent absent", a: Absent, b: Absent, expected: true},
		{desc: "absent null", a: Absent, b: nil, expected: false},
		{desc: "int int", a: int64(10), b: int64(10), expected: true},
		{desc: "decimal scale", a: mustDecimal(t, "1.50"), b: mustDecimal(t, "1.5"), expected: true},
		{desc: "decimal int", a: mustDecimal(t, "10"), b: int64(10), expected: true},
		{desc: "decimal differs", a: mustDecimal(t, "0.1"), b: mustDecimal(t, "0.10000001"), expected: false},
		{desc: "float exact only", a: 0.1 + 0.2, b: 0.3, expected: false},
		{desc: "float nan", a: math.NaN(), b: math.NaN(), expected: true},
		{desc: "string vs bytes", a: "a", b: []byte("a"), expected: false},
		{desc: "bytes", a: []byte{0xde, 0xad}, b: []byte{0xde, 0xad}, expected: true},
		{desc: "bytes differ", a: []byte{0xde, 0xad}, b: []byte{0xde, 0xae}, expected: false},
		{desc: "time zones", a: ts, b: ts.In(time.FixedZone("x", 3600)), expected: true},
		{desc: "json", a: JSON(`{"a":1}`), b: JSON(`{"a":1}`), expected: true},
		{desc: "int string", a: int64(1), b: "1", expected: false},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			require.Equal(t, tc.expected, Equal(tc.a, tc.b))
			require.Equal(t, tc.expected, Equal(tc.b, tc.a))
		})
	}
}

func TestParseJSON(t *testing.T) {
	a, err := ParseJSON(`{ "b": [1, 2], "a": null }`)
	require.NoError(t, err)
	b, err := ParseJSON(`{"a":null,"b":[1,2]}`)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, JSON(`{"a":null,"b":[1,2]}`), a)

	_, err = ParseJSON(`{`)
	require.Error(t, err)
	_, err = ParseJSON(`{} {}`)
	require.Error(t, err)

	t.Run("integers beyond float64 precision", func(t *testing.T) {
		a, err := ParseJSON(`{"total_gas":12345678901234567891}`)
		require.NoError(t, err)
		b, err := ParseJSON(`{"total_gas":12345678901234567890}`)
		require.NoError(t, err)
		require.False(t, Equal(a, b))
		require.Equal(t, `{"total_gas":12345678901234567891}`, Format(a))

		a, err = ParseJSON(`[9007199254740993]`)
		require.NoError(t, err)
		b, err = ParseJSON(`[9007199254740992]`)
		require.NoError(t, err)
		require.False(t, Equal(a, b))
	})

	t.Run("numbers in canonical form", func(t *testing.T) {
		for _, tc := range []struct {
			in       string
			expected JSON
		}{
			{in: `{"fee":1.50}`, expected: `{"fee":1.5}`},
			{in: `[1.0, 1e2, -0, 0.000]`, expected: `[1,100,0,0]`},
			{in: `{"amount":"1.50"}`, expected: `{"amount":"1.50"}`},
		} {
			ret, err := ParseJSON(tc.in)
			require.NoError(t, err)
			require.Equal(t, tc.expected, ret)
		}
	})
}

func TestFormat(t *testing.T) {
	require.Equal(t, "NULL", Format(nil))
	require.Equal(t, "<absent>", Format(Absent))
	require.Equal(t, "42", Format(int64(42)))
	require.Equal(t, `\xdead`, Format([]byte{0xde, 0xad}))
	require.Equal(t, "2023-04-05T06:07:08Z", Format(time.Date(2023, 4, 5, 7, 7, 8, 0, time.FixedZone("x", 3600))))
	require.Equal(t, "1.50", Format(mustDecimal(t, "1.50")))
	require.Equal(t, []string{"1", "a"}, FormatAll([]any{int64(1), "a"}))
}
