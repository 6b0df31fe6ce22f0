package sqlm

import (
	"context"
)

// Record provides access to the column values of the current row.
type Record interface {
	// FieldCount returns the number of columns.
	FieldCount() int

	// Name returns the name of column i.
	Name(i int) string

	// Value returns the value of column i.
	Value(i int) interface{}

	// IsNull reports whether the value of column i is NULL.
	IsNull(i int) bool
}

// Rows is a cursor over the rows returned by a command.
type Rows interface {
	Record

	// Next advances to the next row, returning false when there are no
	// more rows or an error occurred.
	Next() bool

	// Err returns the error, if any, encountered during iteration.
	Err() error

	// Close releases the cursor.
	Close() error
}

// Command is an executable, parameterized statement.
type Command interface {
	// Text returns the statement text.
	Text() string

	// AddParameter appends a parameter. The name includes the leading '@'.
	AddParameter(name string, value interface{})

	// Parameters returns the parameters in the order they were added.
	Parameters() []Param

	// ExecNonQuery executes the command and returns the number of rows affected.
	ExecNonQuery(ctx context.Context) (int64, error)

	// ExecScalar executes the command and returns the first column of the
	// first row, or nil if there are no rows.
	ExecScalar(ctx context.Context) (interface{}, error)

	// ExecReader executes the command and returns the rows.
	ExecReader(ctx context.Context) (Rows, error)
}

// Connection creates commands for a database.
type Connection interface {
	// Dialect returns the SQL dialect of the database.
	Dialect() Dialect

	// CreateCommand returns a command for the statement text.
	CreateCommand(text string) Command
}

// NewRecord returns a record with the given column names and values.
// It is useful for populating a model from values that did not come
// from a database.
func NewRecord(names []string, values []interface{}) Record {
	return &record{names: names, values: values}
}

type record struct {
	names  []string
	values []interface{}
}

func (r *record) FieldCount() int {
	return len(r.names)
}

func (r *record) Name(i int) string {
	return r.names[i]
}

func (r *record) Value(i int) interface{} {
	if i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

func (r *record) IsNull(i int) bool {
	return r.Value(i) == nil
}
