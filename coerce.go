package sqlm

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/jjeffery/kv"
)

var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
)

// coerce converts a raw column value into a value of type t.
//
// A nil raw value gives the zero value of t, which is a nil pointer for
// pointer types. Pointer types are nullable wrappers: a non-nil raw value
// is converted to the pointer's element type. Types that implement
// sql.Scanner convert the value themselves. Strings have trailing
// white space removed, which is the padding of fixed-width text columns.
func coerce(colname string, raw interface{}, t reflect.Type) (v reflect.Value, err error) {
	defer func() {
		// handle panic if a conversion fails
		if r := recover(); r != nil {
			err = errCannotConvert(colname, raw, t, fmt.Errorf("%v", r))
		}
	}()

	if reflect.PtrTo(t).Implements(scannerType) {
		ptr := reflect.New(t)
		// attempt to scan, because the Scan implementation may handle
		// nil values correctly
		if err := ptr.Interface().(sql.Scanner).Scan(raw); err != nil {
			if raw == nil {
				return reflect.Zero(t), nil
			}
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		return ptr.Elem(), nil
	}

	if t.Kind() == reflect.Ptr {
		if raw == nil {
			return reflect.Zero(t), nil
		}
		elem, err := coerce(colname, raw, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		ptr := reflect.New(t.Elem())
		ptr.Elem().Set(elem)
		return ptr, nil
	}

	if raw == nil {
		return reflect.Zero(t), nil
	}

	v = reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var nullable sql.NullInt64
		if err := nullable.Scan(raw); err != nil {
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		if v.OverflowInt(nullable.Int64) {
			return reflect.Value{}, errCannotConvert(colname, raw, t, fmt.Errorf("value %d overflows %v", nullable.Int64, t))
		}
		v.SetInt(nullable.Int64)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		var nullable sql.NullInt64
		if err := nullable.Scan(raw); err != nil {
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		if nullable.Int64 < 0 || v.OverflowUint(uint64(nullable.Int64)) {
			return reflect.Value{}, errCannotConvert(colname, raw, t, fmt.Errorf("value %d overflows %v", nullable.Int64, t))
		}
		v.SetUint(uint64(nullable.Int64))
	case reflect.Float32, reflect.Float64:
		var nullable sql.NullFloat64
		if err := nullable.Scan(raw); err != nil {
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		v.SetFloat(nullable.Float64)
	case reflect.Bool:
		var nullable sql.NullBool
		if err := nullable.Scan(raw); err != nil {
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		v.SetBool(nullable.Bool)
	case reflect.String:
		var nullable sql.NullString
		if err := nullable.Scan(raw); err != nil {
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		v.SetString(strings.TrimRightFunc(nullable.String, unicode.IsSpace))
	case reflect.Struct:
		if !timeType.ConvertibleTo(t) {
			return convertValue(colname, raw, t)
		}
		var nullable sql.NullTime
		if err := nullable.Scan(raw); err != nil {
			return reflect.Value{}, errCannotConvert(colname, raw, t, err)
		}
		v.Set(reflect.ValueOf(nullable.Time).Convert(t))
	case reflect.Slice:
		if t.Elem().Kind() != reflect.Uint8 {
			return convertValue(colname, raw, t)
		}
		var b []byte
		switch raw := raw.(type) {
		case []byte:
			// drivers may reuse the buffer
			b = append([]byte(nil), raw...)
		case string:
			b = []byte(raw)
		default:
			return reflect.Value{}, errCannotConvert(colname, raw, t, nil)
		}
		v.SetBytes(b)
	default:
		return convertValue(colname, raw, t)
	}
	return v, nil
}

// convertValue handles target types that have no specific conversion,
// such as interface fields.
func convertValue(colname string, raw interface{}, t reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(raw)
	if rv.Type().AssignableTo(t) {
		v := reflect.New(t).Elem()
		v.Set(rv)
		return v, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, errCannotConvert(colname, raw, t, nil)
}

func errCannotConvert(colname string, raw interface{}, t reflect.Type, err error) error {
	if err == nil {
		err = fmt.Errorf("type %T is not compatible with %v", raw, t)
	}
	return kv.Wrap(err, "cannot convert column value").With(
		"column", colname,
		"type", t.String(),
	)
}
