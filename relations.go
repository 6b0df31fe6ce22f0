package sqlm

import (
	"reflect"
)

// FetchOne returns the row of the table mapped to T that is referenced by
// the foreign key columns of model. It returns nil if there is no such row.
// It fails with MissingKeyMapping if the model's table has no foreign key
// referring to the table for T.
func FetchOne[T any](sess *Session, model interface{}) (*T, error) {
	owner, target, err := relationTables[T](sess, model)
	if err != nil {
		return nil, err
	}
	fks := owner.ForeignKeys(target.TableName)
	if len(fks) == 0 {
		return nil, errNoRelation(owner, target)
	}
	rv := reflect.Indirect(reflect.ValueOf(model))
	var cond *Condition
	for _, fk := range fks {
		refColumn, err := referencedColumn(fk, target)
		if err != nil {
			return nil, err
		}
		value, _ := fk.accessor.Get(rv)
		cond = and(cond, Op(refColumn, nullValue(value)))
	}
	return SelectOne[T](sess, cond)
}

// FetchMany returns the rows of the table mapped to T whose foreign key
// columns refer to model. It fails with MissingKeyMapping if the table
// for T has no foreign key referring to the model's table.
func FetchMany[T any](sess *Session, model interface{}, sorts ...string) ([]*T, error) {
	owner, target, err := relationTables[T](sess, model)
	if err != nil {
		return nil, err
	}
	fks := target.ForeignKeys(owner.TableName)
	if len(fks) == 0 {
		return nil, errNoRelation(target, owner)
	}
	rv := reflect.Indirect(reflect.ValueOf(model))
	var cond *Condition
	for _, fk := range fks {
		refColumn, err := referencedColumn(fk, owner)
		if err != nil {
			return nil, err
		}
		value, err := columnValue(owner, rv, refColumn)
		if err != nil {
			return nil, err
		}
		cond = and(cond, Op(fk.ColumnName, value))
	}
	return SelectAll[T](sess, cond, sorts...)
}

// FetchManyToMany returns the rows of the table mapped to T that are
// related to model through an intermediate table. If through is empty,
// the intermediate table is any that references both tables. It fails
// with MissingKeyMapping if the intermediate table does not reference
// both tables.
func FetchManyToMany[T any](sess *Session, model interface{}, through string) ([]*T, error) {
	owner, target, err := relationTables[T](sess, model)
	if err != nil {
		return nil, err
	}
	var it *IntermediateTable
	var ok bool
	if through == "" {
		it, ok = sess.registry.IntermediateBetween(owner.TableName, target.TableName)
	} else {
		it, ok = sess.registry.IntermediateTable(through)
	}
	if !ok {
		return nil, newError(MissingKeyMapping, "no intermediate table",
			"table", owner.TableName,
			"target", target.TableName,
			"through", through,
		)
	}
	ownerKeys := it.KeysFor(owner.TableName)
	join := it.JoinPairs(target.TableName)
	if len(ownerKeys) == 0 || len(join) == 0 {
		return nil, newError(MissingKeyMapping, "intermediate table does not reference both tables",
			"through", it.Name,
			"table", owner.TableName,
			"target", target.TableName,
		)
	}

	rv := reflect.Indirect(reflect.ValueOf(model))
	var cond *Condition
	for _, k := range ownerKeys {
		value, err := columnValue(owner, rv, k.ReferencedColumn)
		if err != nil {
			return nil, err
		}
		cond = and(cond, Op(it.Name+"."+k.LocalColumn, value))
	}
	var namer ParamNamer
	where, err := namer.Bind(cond, sess.patterns)
	if err != nil {
		return nil, err
	}

	var columns []string
	for _, col := range target.SelectColumns() {
		columns = append(columns, target.TableName+"."+col)
	}
	text, err := NewQueryService(sess.conn.Dialect()).SelectThrough(columns, target.TableName, it.Name, join, where)
	if err != nil {
		return nil, err
	}
	values, err := sess.queryModels(newCommand(sess.conn, text, nil, where), target)
	if err != nil {
		return nil, err
	}
	return modelsOf[T](values), nil
}

func relationTables[T any](sess *Session, model interface{}) (owner *TableMapping, target *TableMapping, err error) {
	rv := reflect.ValueOf(model)
	if !rv.IsValid() || (rv.Kind() == reflect.Ptr && rv.IsNil()) {
		return nil, nil, newError(InvalidArgument, "model is nil")
	}
	if owner, err = sess.registry.TableFor(model); err != nil {
		return nil, nil, err
	}
	if target, err = sess.tableFor(reflect.TypeOf((*T)(nil)).Elem()); err != nil {
		return nil, nil, err
	}
	return owner, target, nil
}

// referencedColumn returns the column of table that fk refers to. If the
// foreign key does not name the column, it refers to the primary key.
func referencedColumn(fk *ColumnMapping, table *TableMapping) (string, error) {
	if fk.ForeignKey.Column != "" {
		return fk.ForeignKey.Column, nil
	}
	pks := table.PrimaryKeys()
	if len(pks) != 1 {
		return "", newError(MissingKeyMapping, "cannot determine referenced column",
			"column", fk.String(),
			"table", table.TableName,
			"keys", len(pks),
		)
	}
	return pks[0].ColumnName, nil
}

// columnValue returns the value of the named column of the model.
func columnValue(tm *TableMapping, rv reflect.Value, name string) (interface{}, error) {
	col, ok := tm.Column(name)
	if !ok {
		return nil, newError(MissingKeyMapping, "key column not mapped",
			"table", tm.TableName,
			"column", name,
		)
	}
	value, _ := col.accessor.Get(rv)
	return nullValue(value), nil
}

func and(cond *Condition, term *Condition) *Condition {
	if cond == nil {
		return term
	}
	return cond.And(term)
}

func errNoRelation(from *TableMapping, to *TableMapping) error {
	return newError(MissingKeyMapping, "no foreign key",
		"table", from.TableName,
		"references", to.TableName,
	)
}
