package column

import "strings"

// Field contains the name of a StructField, and the associated
// column name specified in its StructTag, if any.
type Field struct {
	// FieldName is the name of the associated StructField.
	FieldName string

	// ColumnName is the associated column name, extracted
	// from the StructTag. Empty if not specified.
	ColumnName string
}

// A Path contains information about all the StructFields traversed
// to obtain the value for a column.
//
// The path is used to construct the column name, either by the
// column name(s) specified in the struct tags, or by applying a
// naming convention to the field name(s).
type Path []Field

// NewPath returns a new path with a single field.
func NewPath(fieldName, columnName string) Path {
	var path Path
	return path.Append(fieldName, columnName)
}

// Append details of a field to an existing path to create
// a new path. The original path is unchanged.
func (path Path) Append(fieldName, columnName string) Path {
	clone := make(Path, len(path), len(path)+1)
	copy(clone, path)
	return append(clone, Field{
		FieldName:  fieldName,
		ColumnName: columnName,
	})
}

// String returns the field names joined by periods, eg "Address.Street".
// This is the property name used to identify a field.
func (path Path) String() string {
	names := make([]string, len(path))
	for i, f := range path {
		names[i] = f.FieldName
	}
	return strings.Join(names, ".")
}

// Convention converts field names into column names.
type Convention interface {
	ColumnName(fieldName string) string
	Join(names []string) string
}

// ColumnName returns the column name for the path. Column names
// given in struct tags are used as-is, otherwise the convention
// derives the name from the field name.
func (path Path) ColumnName(conv Convention) string {
	if len(path) == 1 && path[0].ColumnName != "" {
		return path[0].ColumnName
	}
	names := make([]string, len(path))
	for i, f := range path {
		if f.ColumnName != "" {
			names[i] = f.ColumnName
		} else {
			names[i] = conv.ColumnName(f.FieldName)
		}
	}
	return conv.Join(names)
}
