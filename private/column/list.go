package column

import (
	"database/sql"
	"database/sql/driver"
	"reflect"
	"time"
)

// Standard types.
var (
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
	valuerType  = reflect.TypeOf((*driver.Valuer)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
)

// newList returns a list of column information for the row type.
func newList(rowType reflect.Type) []*Info {
	var list columnList
	list.addFields(rowType, nil, nil)
	return list
}

type columnList []*Info

func (list *columnList) addFields(rowType reflect.Type, index Index, path Path) {
	for i := 0; i < rowType.NumField(); i++ {
		list.addField(rowType.Field(i), index.Append(i), path)
	}
}

func (list *columnList) addField(field reflect.StructField, index Index, path Path) {
	if len(field.PkgPath) != 0 && !field.Anonymous {
		// ignore unexported field
		return
	}

	fieldType := field.Type
	for fieldType.Kind() == reflect.Ptr {
		fieldType = fieldType.Elem()
	}

	if !isScalar(fieldType) {
		if fieldType.Kind() != reflect.Struct {
			// arrays, channels, functions, interfaces, maps, slices
			return
		}
		if field.Anonymous {
			// fields of an embedded struct are promoted
			list.addFields(fieldType, index, path)
			return
		}
		columnName, _ := parseTag(field.Tag)
		list.addFields(fieldType, index, path.Append(field.Name, columnName))
		return
	}

	columnName, tag := parseTag(field.Tag)
	*list = append(*list, &Info{
		Field: field,
		Index: index,
		Path:  path.Append(field.Name, columnName),
		Tag:   tag,
	})
}

// isScalar reports whether values of type t are stored in a
// single column.
func isScalar(t reflect.Type) bool {
	if t == timeType || t == bytesType {
		return true
	}
	if t.Implements(scannerType) || reflect.PtrTo(t).Implements(scannerType) || t.Implements(valuerType) {
		return true
	}
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64, reflect.String:
		return true
	case reflect.Slice:
		return t.Elem().Kind() == reflect.Uint8
	}
	return false
}
