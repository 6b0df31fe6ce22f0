package sqlm

import (
	"reflect"
	"strings"
)

// SelectQuery is a fluent query for the rows of the table mapped to T.
// Each clause can be set once: setting a clause a second time is
// reported as a DuplicateClause error when the query is executed.
type SelectQuery[T any] struct {
	sess    *Session
	where   *Condition
	sorts   []string
	limit   int
	clauses clauseSet
}

// Select returns a query for the rows of the table mapped to T.
func Select[T any](sess *Session) *SelectQuery[T] {
	return &SelectQuery[T]{sess: sess}
}

// Where sets the condition that rows must match. A nil condition
// matches every row.
func (q *SelectQuery[T]) Where(cond *Condition) *SelectQuery[T] {
	if q.clauses.set("where") {
		q.where = cond
	}
	return q
}

// OrderBy sets the sort order. Each sort is a column name, optionally
// followed by ASC or DESC.
func (q *SelectQuery[T]) OrderBy(sorts ...string) *SelectQuery[T] {
	if q.clauses.set("order by") {
		q.sorts = sorts
	}
	return q
}

// Top limits the number of rows selected.
func (q *SelectQuery[T]) Top(n int) *SelectQuery[T] {
	if q.clauses.set("top") {
		if n <= 0 {
			q.clauses.fail(newError(InvalidArgument, "row limit must be positive", "top", n))
		}
		q.limit = n
	}
	return q
}

// SQL returns the text of the select statement.
func (q *SelectQuery[T]) SQL() (string, error) {
	cmd, _, err := q.command(SelectAllStatement)
	if err != nil {
		return "", err
	}
	return cmd.Text(), nil
}

// All returns the matching rows.
func (q *SelectQuery[T]) All() ([]*T, error) {
	cmd, tm, err := q.command(SelectAllStatement)
	if err != nil {
		return nil, err
	}
	values, err := q.sess.queryModels(cmd, tm)
	if err != nil {
		return nil, err
	}
	return modelsOf[T](values), nil
}

// One returns the first matching row, or nil if no row matches.
func (q *SelectQuery[T]) One() (*T, error) {
	cmd, tm, err := q.command(SelectOneStatement)
	if err != nil {
		return nil, err
	}
	values, err := q.sess.queryModels(cmd, tm)
	if err != nil || len(values) == 0 {
		return nil, err
	}
	return values[0].Interface().(*T), nil
}

// Count returns the number of matching rows. The sort order
// and row limit do not apply.
func (q *SelectQuery[T]) Count() (int64, error) {
	cmd, _, err := q.command(CountStatement)
	if err != nil {
		return 0, err
	}
	return q.sess.execCount(cmd)
}

func (q *SelectQuery[T]) command(stmt Statement) (Command, *TableMapping, error) {
	if err := q.clauses.err; err != nil {
		return nil, nil, err
	}
	modelType := reflect.TypeOf((*T)(nil)).Elem()
	tm, err := q.sess.tableFor(modelType)
	if err != nil {
		return nil, nil, err
	}
	req := q.sess.newRequest(tm)
	req.Where = q.where
	req.Sorts = q.sorts
	req.Limit = q.limit
	cmd, err := q.sess.factories.For(tm.ModelType, stmt).CreateCommand(q.sess.conn, req)
	if err != nil {
		return nil, nil, err
	}
	return cmd, tm, nil
}

// InsertQuery is a fluent insert statement for a table.
type InsertQuery struct {
	sess    *Session
	table   string
	columns []string
	values  []interface{}
	clauses clauseSet
}

// InsertInto returns an insert statement for the table.
func (sess *Session) InsertInto(table string) *InsertQuery {
	return &InsertQuery{sess: sess, table: table}
}

// Columns sets the columns to insert.
func (q *InsertQuery) Columns(columns ...string) *InsertQuery {
	if q.clauses.set("columns") {
		q.columns = columns
	}
	return q
}

// Values sets the values to insert, one for each column.
func (q *InsertQuery) Values(values ...interface{}) *InsertQuery {
	if q.clauses.set("values") {
		q.values = values
	}
	return q
}

// SQL returns the text of the insert statement.
func (q *InsertQuery) SQL() (string, error) {
	cmd, err := q.command()
	if err != nil {
		return "", err
	}
	return cmd.Text(), nil
}

// Exec executes the insert statement and returns the number of rows inserted.
func (q *InsertQuery) Exec() (int64, error) {
	cmd, err := q.command()
	if err != nil {
		return 0, err
	}
	return cmd.ExecNonQuery(q.sess.context)
}

func (q *InsertQuery) command() (Command, error) {
	if err := q.clauses.err; err != nil {
		return nil, err
	}
	if len(q.columns) != len(q.values) {
		return nil, newError(InvalidArgument, "number of values does not match number of columns",
			"table", q.table,
			"columns", len(q.columns),
			"values", len(q.values),
		)
	}
	values := make([]ColumnValue, len(q.columns))
	for i, col := range q.columns {
		values[i] = ColumnValue{Column: col, Value: q.values[i]}
	}
	var namer ParamNamer
	params := namer.Values(values)
	text, err := NewQueryService(q.sess.conn.Dialect()).InsertInto(q.table, params, "")
	if err != nil {
		return nil, err
	}
	return newCommand(q.sess.conn, text, params, nil), nil
}

// UpdateQuery is a fluent update statement for a table.
type UpdateQuery struct {
	sess    *Session
	table   string
	values  []ColumnValue
	where   *Condition
	clauses clauseSet
}

// Update returns an update statement for the table.
func (sess *Session) Update(table string) *UpdateQuery {
	return &UpdateQuery{sess: sess, table: table}
}

// Set adds a column and the value to set it to. Setting the
// same column twice is a DuplicateClause error.
func (q *UpdateQuery) Set(column string, value interface{}) *UpdateQuery {
	if q.clauses.set("set " + strings.ToLower(column)) {
		q.values = append(q.values, ColumnValue{Column: column, Value: value})
	}
	return q
}

// Where sets the condition that rows must match to be updated.
func (q *UpdateQuery) Where(cond *Condition) *UpdateQuery {
	if q.clauses.set("where") {
		q.where = cond
	}
	return q
}

// SQL returns the text of the update statement.
func (q *UpdateQuery) SQL() (string, error) {
	cmd, err := q.command()
	if err != nil {
		return "", err
	}
	return cmd.Text(), nil
}

// Exec executes the update statement and returns the number of rows updated.
func (q *UpdateQuery) Exec() (int64, error) {
	cmd, err := q.command()
	if err != nil {
		return 0, err
	}
	return cmd.ExecNonQuery(q.sess.context)
}

func (q *UpdateQuery) command() (Command, error) {
	if err := q.clauses.err; err != nil {
		return nil, err
	}
	var namer ParamNamer
	params := namer.Values(q.values)
	where, err := namer.Bind(q.where, q.sess.patterns)
	if err != nil {
		return nil, err
	}
	text, err := NewQueryService(q.sess.conn.Dialect()).Update(q.table, params, where)
	if err != nil {
		return nil, err
	}
	return newCommand(q.sess.conn, text, params, where), nil
}

// DeleteQuery is a fluent delete statement for a table.
type DeleteQuery struct {
	sess    *Session
	table   string
	where   *Condition
	clauses clauseSet
}

// DeleteFrom returns a delete statement for the table. A condition
// must be set with Where: deleting every row is refused.
func (sess *Session) DeleteFrom(table string) *DeleteQuery {
	return &DeleteQuery{sess: sess, table: table}
}

// Where sets the condition that rows must match to be deleted.
func (q *DeleteQuery) Where(cond *Condition) *DeleteQuery {
	if q.clauses.set("where") {
		q.where = cond
	}
	return q
}

// SQL returns the text of the delete statement.
func (q *DeleteQuery) SQL() (string, error) {
	cmd, err := q.command()
	if err != nil {
		return "", err
	}
	return cmd.Text(), nil
}

// Exec executes the delete statement and returns the number of rows deleted.
func (q *DeleteQuery) Exec() (int64, error) {
	cmd, err := q.command()
	if err != nil {
		return 0, err
	}
	return cmd.ExecNonQuery(q.sess.context)
}

func (q *DeleteQuery) command() (Command, error) {
	if err := q.clauses.err; err != nil {
		return nil, err
	}
	var namer ParamNamer
	where, err := namer.Bind(q.where, q.sess.patterns)
	if err != nil {
		return nil, err
	}
	text, err := NewQueryService(q.sess.conn.Dialect()).Delete(q.table, where)
	if err != nil {
		return nil, err
	}
	return newCommand(q.sess.conn, text, nil, where), nil
}

// clauseSet records which clauses of a fluent query have been set,
// and the first error encountered.
type clauseSet struct {
	names []string
	err   error
}

// set records the clause and reports whether it can be set. A clause
// that has already been set records a DuplicateClause error.
func (cs *clauseSet) set(name string) bool {
	if cs.err != nil {
		return false
	}
	for _, n := range cs.names {
		if n == name {
			cs.err = newError(DuplicateClause, "clause already set", "clause", name)
			return false
		}
	}
	cs.names = append(cs.names, name)
	return true
}

func (cs *clauseSet) fail(err error) {
	if cs.err == nil {
		cs.err = err
	}
}
