package sqlm

import (
	"database/sql/driver"
	"reflect"
	"strings"
	"sync"

	"github.com/jjeffery/sqlm/private/column"
	"github.com/jjeffery/sqlm/private/scanner"
	"github.com/zeebo/xxh3"
)

// ColumnValue is a column and the value to be written to it.
type ColumnValue struct {
	Column string
	Value  interface{}
}

// ModelFactory creates models from records, and extracts column values
// from models. The zero value is ready to use, and a ModelFactory is
// safe for concurrent use.
type ModelFactory struct {
	plans sync.Map // planKey -> *plan
}

// planKey identifies the plan for reading records with one set of
// columns into a model type. The table revision changes whenever the
// table mapping is changed, so plans built before the change are not used.
type planKey struct {
	modelType reflect.Type
	table     *TableMapping
	revision  uint64
	hash      uint64 // xxh3 of the column names
	ncols     int
}

// plan contains one step per record column.
type plan struct {
	names []string
	steps []planStep
}

// planStep sets one field from a record column. A step with a nil
// accessor skips the column.
type planStep struct {
	accessor PropertyAccessor
	mapping  *ColumnMapping
}

// CreateModel returns a pointer to a new instance of modelType populated
// from the current record. Each record column is resolved against the
// table mapping, if any; columns not in the mapping are matched with
// fields by name, honoring the table's resolution policy. Columns that
// are ignored, or that match no field, are skipped.
func (f *ModelFactory) CreateModel(modelType reflect.Type, rec Record, tm *TableMapping) (interface{}, error) {
	v, err := f.createModel(modelType, rec, tm)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

func (f *ModelFactory) createModel(modelType reflect.Type, rec Record, tm *TableMapping) (reflect.Value, error) {
	if modelType == nil || modelType.Kind() != reflect.Struct {
		return reflect.Value{}, newError(NoDefaultConstructor, "cannot create model", "type", typeString(modelType))
	}
	p := f.planFor(modelType, rec, tm)
	ptr := reflect.New(modelType)
	for i, step := range p.steps {
		if step.accessor == nil {
			continue
		}
		if step.mapping != nil && step.mapping.IsIgnored() {
			continue
		}
		var raw interface{}
		if !rec.IsNull(i) {
			raw = rec.Value(i)
		}
		value, err := coerce(p.names[i], raw, step.accessor.Type())
		if err != nil {
			return reflect.Value{}, err
		}
		step.accessor.Set(ptr, value)
	}
	return ptr, nil
}

func (f *ModelFactory) planFor(modelType reflect.Type, rec Record, tm *TableMapping) *plan {
	n := rec.FieldCount()
	names := make([]string, n)
	var buf []byte
	for i := 0; i < n; i++ {
		names[i] = rec.Name(i)
		buf = append(buf, names[i]...)
		buf = append(buf, 0)
	}
	key := planKey{
		modelType: modelType,
		table:     tm,
		hash:      xxh3.Hash(buf),
		ncols:     n,
	}
	if tm != nil {
		key.revision = tm.currentRevision()
	}
	if v, ok := f.plans.Load(key); ok {
		p := v.(*plan)
		if equalNames(p.names, names) {
			return p
		}
		// hash collision: build a plan without caching it
		return newPlan(modelType, names, tm)
	}
	if tm != nil {
		f.evictStale(key)
	}
	p := newPlan(modelType, names, tm)
	v, _ := f.plans.LoadOrStore(key, p)
	return v.(*plan)
}

// evictStale removes the plans for key's model type that were built for
// an earlier revision of its table mapping, or for a mapping it replaced.
func (f *ModelFactory) evictStale(key planKey) {
	f.plans.Range(func(k, _ interface{}) bool {
		pk := k.(planKey)
		if pk.modelType == key.modelType && pk.table != nil &&
			(pk.table != key.table || pk.revision != key.revision) {
			f.plans.Delete(k)
		}
		return true
	})
}

// planCount returns the number of cached plans.
func (f *ModelFactory) planCount() int {
	var n int
	f.plans.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

func newPlan(modelType reflect.Type, names []string, tm *TableMapping) *plan {
	policy := ExactCase
	if tm != nil {
		policy = tm.Policy()
	}
	p := &plan{
		names: names,
		steps: make([]planStep, len(names)),
	}
	for i, name := range names {
		if tm != nil {
			if col, ok := tm.Column(name); ok {
				p.steps[i] = planStep{accessor: col.accessor, mapping: col}
				continue
			}
		}
		if acc, ok := lookupAccessor(modelType, name, policy); ok {
			p.steps[i] = planStep{accessor: acc}
		}
	}
	return p
}

func equalNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ExtractColumnValues returns the values of the model's columns for
// writing to the database: the mapped columns in table mapping order,
// followed by the model's unmapped fields, each written to the column
// with the same name as the field. With a nil table mapping every field
// is written this way. Columns generated by the database and ignored
// columns are excluded, as are the columns of equality terms in where,
// which identify the rows to update and so are not also set. It fails
// with NoColumnsToWrite if no column remains.
func (f *ModelFactory) ExtractColumnValues(model interface{}, tm *TableMapping, where *BoundCondition) ([]ColumnValue, error) {
	rv := reflect.ValueOf(model)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, newError(InvalidArgument, "model is nil", "type", typeString(rv.Type()))
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, newError(InvalidArgument, "model is not a struct", "type", typeString(reflect.TypeOf(model)))
	}

	policy := ExactCase
	var columns []*ColumnMapping
	if tm != nil {
		policy = tm.Policy()
		columns = tm.Columns()
	}
	excluded := make(map[string]bool)
	for _, col := range where.EqualityColumns() {
		excluded[normalizeColumn(col, policy)] = true
	}

	var values []ColumnValue
	mapped := make(map[string]bool)
	for _, col := range columns {
		mapped[col.accessor.Name()] = true
		mapped[normalizeColumn(col.ColumnName, policy)] = true
		if col.IsDatabaseGenerated || col.IsIgnored() {
			continue
		}
		if excluded[normalizeColumn(col.ColumnName, policy)] {
			continue
		}
		value, ok := col.accessor.Get(rv)
		if !ok {
			// field is inside a nil embedded pointer
			value = nil
		}
		values = append(values, ColumnValue{Column: col.ColumnName, Value: nullValue(value)})
	}

	for _, info := range column.ListForType(rv.Type()) {
		if len(info.Path) != 1 || info.Tag.Ignore || info.Tag.Generated {
			// nested struct fields have no conventional column
			continue
		}
		name := info.Field.Name
		if mapped[name] || mapped[normalizeColumn(name, policy)] || excluded[normalizeColumn(name, policy)] {
			continue
		}
		value, ok := info.Index.Value(rv)
		var v interface{}
		if ok {
			v = value.Interface()
		}
		values = append(values, ColumnValue{Column: name, Value: nullValue(v)})
	}

	if len(values) == 0 {
		var table interface{} = typeString(rv.Type())
		if tm != nil {
			table = tm.TableName
		}
		return nil, newError(NoColumnsToWrite, "no columns to write", "table", table)
	}
	return values, nil
}

// KeyCondition returns a condition that matches the model's row by
// its primary key columns. It fails with MissingKeyMapping if the
// table mapping has no primary key.
func (f *ModelFactory) KeyCondition(model interface{}, tm *TableMapping) (*Condition, error) {
	pks := tm.PrimaryKeys()
	if len(pks) == 0 {
		return nil, newError(MissingKeyMapping, "no primary key", "table", tm.TableName)
	}
	rv := reflect.Indirect(reflect.ValueOf(model))
	var cond *Condition
	for _, pk := range pks {
		value, _ := pk.accessor.Get(rv)
		term := Op(pk.ColumnName, nullValue(value))
		if cond == nil {
			cond = term
		} else {
			cond.And(term)
		}
	}
	return cond, nil
}

// normalizeColumn returns the unquoted last segment of a column name, so
// that a where clause on "User.Id" excludes the "Id" column.
func normalizeColumn(name string, policy ResolutionPolicy) string {
	name = scanner.LastSegment(strings.TrimSpace(name))
	if policy == IgnoreCase {
		name = strings.ToLower(name)
	}
	return name
}

// nullValue converts nil pointers into untyped nil, and dereferences
// other pointers, so that drivers see NULL or the value.
func nullValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Ptr {
		return value
	}
	if rv.IsNil() {
		return nil
	}
	if _, ok := value.(driver.Valuer); ok {
		// pointer types that implement driver.Valuer handle themselves
		return value
	}
	return rv.Elem().Interface()
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
