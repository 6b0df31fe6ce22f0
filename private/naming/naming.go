// Package naming provides naming conventions used to infer
// database table and column names from Go type and field names.
package naming

import (
	"strings"
	"unicode"
)

// Convention infers database names from Go names.
type Convention interface {
	// ColumnName returns the column name for a struct field name.
	ColumnName(fieldName string) string

	// TableName returns the table name for a struct type name.
	TableName(typeName string) string

	// Join joins the column names of a field inside an embedded
	// struct field with the column name of the enclosing field.
	Join(names []string) string
}

// Instances of the different naming conventions
var (
	SameCase  SameCaseConvention
	SnakeCase SnakeCaseConvention
	LowerCase LowerCaseConvention
)

// SameCaseConvention does not alter names, so the column for
// field "UserName" is "UserName". This is the default convention.
type SameCaseConvention struct{}

// ColumnName returns fieldName unchanged.
func (SameCaseConvention) ColumnName(fieldName string) string {
	return fieldName
}

// TableName returns typeName unchanged.
func (SameCaseConvention) TableName(typeName string) string {
	return typeName
}

// Join joins together the names with no separating characters between them.
func (SameCaseConvention) Join(names []string) string {
	return strings.Join(names, "")
}

// SnakeCaseConvention converts Go names into "snake_case".
// So the field name "UserID" would be converted to "user_id".
type SnakeCaseConvention struct{}

// ColumnName converts fieldName into snake_case.
func (SnakeCaseConvention) ColumnName(fieldName string) string {
	return toSnake(fieldName)
}

// TableName converts typeName into snake_case.
func (SnakeCaseConvention) TableName(typeName string) string {
	return toSnake(typeName)
}

// Join joins together the names with underscores.
func (SnakeCaseConvention) Join(names []string) string {
	return strings.Join(names, "_")
}

// LowerCaseConvention converts Go names to lower case, which
// suits PostgreSQL unquoted identifiers.
type LowerCaseConvention struct{}

// ColumnName converts fieldName to lower case.
func (LowerCaseConvention) ColumnName(fieldName string) string {
	return strings.ToLower(fieldName)
}

// TableName converts typeName to lower case.
func (LowerCaseConvention) TableName(typeName string) string {
	return strings.ToLower(typeName)
}

// Join joins together the names with no separating characters between them.
func (LowerCaseConvention) Join(names []string) string {
	return strings.Join(names, "")
}

func toSnake(name string) string {
	runes := []rune(name)
	n := len(runes)
	var sb strings.Builder

	for i := 0; i < n; i++ {
		if i > 0 && unicode.IsUpper(runes[i]) && ((i+1 < n && unicode.IsLower(runes[i+1])) || unicode.IsLower(runes[i-1])) {
			sb.WriteRune('_')
		}
		sb.WriteRune(unicode.ToLower(runes[i]))
	}

	return sb.String()
}
