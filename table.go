package sqlm

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
)

// ForeignKeyRef identifies the column of another table that a
// foreign key column refers to.
type ForeignKeyRef struct {
	Table  string
	Column string
}

// ColumnMapping binds a database column to a field of the model type.
type ColumnMapping struct {
	ColumnName          string
	PropertyName        string // dotted field path, eg "Address.Street"
	ModelType           reflect.Type
	TableName           string
	IsPrimaryKey        bool
	IsDatabaseGenerated bool

	// ForeignKey is non-nil for a column that refers to the
	// primary key of another table.
	ForeignKey *ForeignKeyRef

	ignored  atomic.Bool
	accessor PropertyAccessor
}

// IsIgnored reports whether the column is skipped when reading
// and writing models.
func (col *ColumnMapping) IsIgnored() bool {
	return col.ignored.Load()
}

// SetIgnored sets whether the column is skipped when reading and
// writing models. It can be toggled between calls.
func (col *ColumnMapping) SetIgnored(ignored bool) {
	col.ignored.Store(ignored)
}

// Accessor returns the accessor for the field bound to the column.
func (col *ColumnMapping) Accessor() PropertyAccessor {
	return col.accessor
}

func (col *ColumnMapping) String() string {
	return col.TableName + "." + col.ColumnName
}

// TableMapping holds the column mappings for a model type. Columns
// are kept in the order they were declared.
type TableMapping struct {
	TableName string
	ModelType reflect.Type

	mu         sync.RWMutex
	ignoreCase bool
	columns    []*ColumnMapping
	revision   uint64
}

func newTableMapping(modelType reflect.Type, tableName string) *TableMapping {
	return &TableMapping{
		TableName: tableName,
		ModelType: modelType,
	}
}

// Policy returns the policy used to match column names against
// the mapping, and against the fields of the model type.
func (tm *TableMapping) Policy() ResolutionPolicy {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	if tm.ignoreCase {
		return IgnoreCase
	}
	return ExactCase
}

// Columns returns the column mappings in declaration order.
func (tm *TableMapping) Columns() []*ColumnMapping {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return append([]*ColumnMapping(nil), tm.columns...)
}

// Column returns the mapping for the named column.
func (tm *TableMapping) Column(name string) (*ColumnMapping, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	for _, col := range tm.columns {
		if col.ColumnName == name {
			return col, true
		}
	}
	if tm.ignoreCase {
		for _, col := range tm.columns {
			if strings.EqualFold(col.ColumnName, name) {
				return col, true
			}
		}
	}
	return nil, false
}

// PrimaryKeys returns the primary key columns.
func (tm *TableMapping) PrimaryKeys() []*ColumnMapping {
	return tm.filter(func(col *ColumnMapping) bool {
		return col.IsPrimaryKey
	})
}

// ForeignKeys returns the foreign key columns that refer to targetTable.
func (tm *TableMapping) ForeignKeys(targetTable string) []*ColumnMapping {
	return tm.filter(func(col *ColumnMapping) bool {
		return col.ForeignKey != nil && strings.EqualFold(col.ForeignKey.Table, targetTable)
	})
}

// SelectColumns returns the names of the columns to select. If no
// columns are declared, or if only key columns are declared, it
// returns nil, which means select all columns.
func (tm *TableMapping) SelectColumns() []string {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var names []string
	var regular bool
	for _, col := range tm.columns {
		if col.IsIgnored() {
			continue
		}
		if !col.IsPrimaryKey && col.ForeignKey == nil {
			regular = true
		}
		names = append(names, col.ColumnName)
	}
	if !regular {
		return nil
	}
	return names
}

// GeneratedKey returns the database-generated primary key column, or
// nil if there is none. It fails with UnsupportedMapping if the
// generated key is part of a composite primary key, because the
// generated value cannot identify the row on its own.
func (tm *TableMapping) GeneratedKey() (*ColumnMapping, error) {
	pks := tm.PrimaryKeys()
	var generated *ColumnMapping
	for _, col := range pks {
		if col.IsDatabaseGenerated {
			generated = col
		}
	}
	if generated == nil {
		return nil, nil
	}
	if len(pks) > 1 {
		return nil, newError(UnsupportedMapping, "generated key in composite primary key",
			"table", tm.TableName,
			"keys", len(pks),
		)
	}
	return generated, nil
}

func (tm *TableMapping) String() string {
	return fmt.Sprintf("%s(%v)", tm.TableName, tm.ModelType)
}

func (tm *TableMapping) filter(f func(*ColumnMapping) bool) []*ColumnMapping {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	var cols []*ColumnMapping
	for _, col := range tm.columns {
		if f(col) {
			cols = append(cols, col)
		}
	}
	return cols
}

// setColumn adds col, or replaces the column with the same name
// in its original position.
func (tm *TableMapping) setColumn(col *ColumnMapping) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	tm.revision++
	for i, existing := range tm.columns {
		if existing.ColumnName == col.ColumnName {
			tm.columns[i] = col
			return
		}
	}
	tm.columns = append(tm.columns, col)
}

func (tm *TableMapping) setIgnoreCase(ignoreCase bool) {
	tm.mu.Lock()
	tm.ignoreCase = ignoreCase
	tm.revision++
	tm.mu.Unlock()
}

func (tm *TableMapping) currentRevision() uint64 {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.revision
}

// getModelType converts a model instance into a model type. The model
// can be a struct, a pointer to a struct, a slice of structs or a
// reflect.Type.
func getModelType(model interface{}) (reflect.Type, error) {
	if model == nil {
		return nil, newError(InvalidArgument, "model is nil")
	}
	var modelType reflect.Type
	if t, ok := model.(reflect.Type); ok {
		modelType = t
	} else {
		modelType = reflect.TypeOf(model)
	}
	for modelType.Kind() != reflect.Struct {
		switch modelType.Kind() {
		case reflect.Ptr, reflect.Slice, reflect.Array:
			modelType = modelType.Elem()
		default:
			return nil, newError(NoDefaultConstructor, "model type is not a struct",
				"type", modelType.String(),
			)
		}
	}
	return modelType, nil
}
