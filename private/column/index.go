package column

import (
	"reflect"
)

// Index is used to efficiently find the value for a database column
// in the associated field within a structure.
// In most cases an index is a single integer, which
// represents the index of the relevant field in the structure. In the
// case of fields in embedded structs, a field index consists of more than
// one integer.
type Index []int

// NewIndex returns an index with the specified values.
func NewIndex(vals ...int) Index {
	return Index(vals)
}

// Append a number to an existing index to create
// a new index. The original index ix is unchanged.
func (ix Index) Append(index int) Index {
	clone := make(Index, len(ix), len(ix)+1)
	copy(clone, ix)
	return append(clone, index)
}

// Equal returns true if ix is equal to v.
func (ix Index) Equal(v Index) bool {
	if len(ix) != len(v) {
		return false
	}
	for i := range ix {
		if ix[i] != v[i] {
			return false
		}
	}
	return true
}

// Settable returns the field of the struct v, which must be addressable.
// Nil pointers to enclosing structs are allocated on the way
// to the field. The field itself is returned as-is, so a nil
// pointer field stays nil.
func (ix Index) Settable(v reflect.Value) reflect.Value {
	v = reflect.Indirect(v)
	for n, i := range ix {
		v = v.Field(i)
		if n == len(ix)-1 {
			break
		}
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				v.Set(reflect.New(v.Type().Elem()))
			}
			v = v.Elem()
		}
	}
	return v
}

// Value returns the field of the struct v. It returns false
// if a nil pointer to an enclosing struct is encountered, in which
// case the field has no value.
func (ix Index) Value(v reflect.Value) (reflect.Value, bool) {
	v = reflect.Indirect(v)
	for n, i := range ix {
		v = v.Field(i)
		if n == len(ix)-1 {
			break
		}
		if v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			v = v.Elem()
		}
	}
	return v, true
}
