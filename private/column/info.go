package column

import (
	"reflect"
	"regexp"
	"strings"
)

// used for parsing tag names
var (
	tagNames = []string{"sql", "db"}
	splitRE  = regexp.MustCompile("[ ,]+")
)

// Info contains information about a database
// column that has been extracted from a struct field
// using reflection.
type Info struct {
	Field reflect.StructField
	Index Index
	Path  Path
	Tag   Tag
}

// FieldPath returns the dotted field names used to reach the field.
func (info *Info) FieldPath() string {
	return info.Path.String()
}

// Tag contains the mapping options declared in a field's struct tag.
//
//  ID     int    `sql:"id,primary key autoincrement"`
//  RoleID int    `sql:"role_id,references Role.ID"`
//  Notes  string `sql:"-"`
type Tag struct {
	PrimaryKey bool
	Generated  bool
	Ignore     bool

	// References is the referenced "Table.Column" for
	// a foreign key column, or empty.
	References string
}

func parseTag(tags reflect.StructTag) (name string, tag Tag) {
	for _, key := range tagNames {
		str, ok := tags.Lookup(key)
		if !ok {
			continue
		}
		parts := strings.SplitN(str, ",", 2)
		name = strings.TrimSpace(parts[0])
		if name == "-" {
			name = ""
			tag.Ignore = true
		}
		if len(parts) > 1 {
			tag.parseOptions(parts[1])
		}
		return name, tag
	}
	return "", tag
}

func (tag *Tag) parseOptions(text string) {
	words := splitRE.Split(strings.TrimSpace(text), -1)
	next := func(i int) string {
		if i+1 < len(words) {
			return strings.ToLower(words[i+1])
		}
		return ""
	}
	for i, word := range words {
		switch strings.ToLower(word) {
		case "pk", "primary_key":
			tag.PrimaryKey = true
		case "primary":
			if next(i) == "key" {
				tag.PrimaryKey = true
			}
		case "autoincr", "autoincrement", "auto_increment", "identity", "generated":
			tag.Generated = true
		case "auto":
			if next(i) == "increment" {
				tag.Generated = true
			}
		case "ignore":
			tag.Ignore = true
		case "references", "fk":
			if i+1 < len(words) {
				tag.References = words[i+1]
			}
		}
	}
}

// TableName returns the table name declared by a "table" struct tag
// on any field of the row type.
func TableName(rowType reflect.Type) (string, bool) {
	for _, info := range ListForType(rowType) {
		if name, ok := info.Field.Tag.Lookup("table"); ok {
			return name, true
		}
	}
	return "", false
}
