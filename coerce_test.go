package sqlm

import (
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Status string

func TestCoerce(t *testing.T) {
	now := time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	intPtr := func(n int) *int { return &n }
	strPtr := func(s string) *string { return &s }

	tests := []struct {
		raw  interface{}
		typ  interface{}
		want interface{}
	}{
		{raw: int64(42), typ: int(0), want: 42},
		{raw: int64(42), typ: int8(0), want: int8(42)},
		{raw: []byte("17"), typ: int32(0), want: int32(17)},
		{raw: int64(7), typ: uint16(0), want: uint16(7)},
		{raw: float64(1.5), typ: float32(0), want: float32(1.5)},
		{raw: int64(3), typ: float64(0), want: float64(3)},
		{raw: int64(1), typ: false, want: true},
		{raw: "true", typ: false, want: true},
		{raw: "padded   ", typ: "", want: "padded"},
		{raw: []byte("bytes\t\n"), typ: "", want: "bytes"},
		{raw: "  leading", typ: "", want: "  leading"},
		{raw: "active ", typ: Status(""), want: Status("active")},
		{raw: int64(5), typ: "", want: "5"},
		{raw: now, typ: time.Time{}, want: now},
		{raw: []byte("raw"), typ: []byte(nil), want: []byte("raw")},
		{raw: "str", typ: []byte(nil), want: []byte("str")},
		{raw: nil, typ: 0, want: 0},
		{raw: nil, typ: "", want: ""},
		{raw: nil, typ: time.Time{}, want: time.Time{}},
		{raw: nil, typ: (*int)(nil), want: (*int)(nil)},
		{raw: int64(9), typ: (*int)(nil), want: intPtr(9)},
		{raw: "x  ", typ: (*string)(nil), want: strPtr("x")},
		{raw: id.String(), typ: uuid.UUID{}, want: id},
		{raw: id[:], typ: uuid.UUID{}, want: id},
		{raw: nil, typ: uuid.NullUUID{}, want: uuid.NullUUID{}},
		{raw: id.String(), typ: uuid.NullUUID{}, want: uuid.NullUUID{UUID: id, Valid: true}},
		{raw: nil, typ: uuid.UUID{}, want: uuid.UUID{}},
		{raw: "12.50", typ: decimal.Decimal{}, want: decimal.RequireFromString("12.50")},
		{raw: []byte("-0.001"), typ: decimal.Decimal{}, want: decimal.RequireFromString("-0.001")},
		{raw: int64(3), typ: decimal.Decimal{}, want: decimal.NewFromInt(3)},
		{raw: nil, typ: decimal.NullDecimal{}, want: decimal.NullDecimal{}},
		{raw: "anything", typ: (*interface{})(nil), want: func() *interface{} { var v interface{} = "anything"; return &v }()},
	}

	for i, tt := range tests {
		typ := reflect.TypeOf(tt.typ)
		got, err := coerce("col", tt.raw, typ)
		if !assert.NoError(t, err, "test %d", i) {
			continue
		}
		assert.Equal(t, tt.want, got.Interface(), "test %d", i)
	}
}

func TestCoerceErrors(t *testing.T) {
	tests := []struct {
		raw interface{}
		typ interface{}
	}{
		{raw: "abc", typ: 0},
		{raw: int64(300), typ: int8(0)},
		{raw: int64(-1), typ: uint(0)},
		{raw: "not a time", typ: time.Time{}},
		{raw: int64(1), typ: []byte(nil)},
		{raw: "not a uuid", typ: uuid.UUID{}},
		{raw: "1.2.3", typ: decimal.Decimal{}},
		{raw: "x", typ: struct{ A int }{}},
	}
	for i, tt := range tests {
		_, err := coerce("col", tt.raw, reflect.TypeOf(tt.typ))
		require.Error(t, err, "test %d", i)
		assert.Contains(t, err.Error(), "cannot convert column value", "test %d", i)
	}
}
