package sqlm

import (
	"context"
	"reflect"

	"github.com/jjeffery/kv"
)

// A Session is a request-scoped database session. It resolves table
// mappings, creates commands using its factories and executes them
// on its connection.
type Session struct {
	context   context.Context
	cancel    func()
	conn      Connection
	registry  *Registry
	factories *Factories
	models    *ModelFactory
	patterns  PatternMode
}

// NewSession returns a new, request-scoped session.
//
// Although it is not mandatory, it is a good practice to
// call a session's Close method at the end of a request.
func NewSession(ctx context.Context, conn Connection, opts ...Option) *Session {
	return newSession(ctx, conn, newOptions(opts))
}

func newSession(ctx context.Context, conn Connection, o *options) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	if conn == nil {
		panic("conn cannot be nil")
	}
	ctx, cancel := context.WithCancel(ctx)
	return &Session{
		context:   ctx,
		cancel:    cancel,
		conn:      conn,
		registry:  o.registry,
		factories: o.factories,
		models:    &ModelFactory{},
		patterns:  o.patterns,
	}
}

// Close releases resources associated with the session. Any attempt to
// query using the session will fail after Close has been called.
//
// Close implements the io.Closer interface. It always returns nil.
func (sess *Session) Close() error {
	sess.cancel()
	return nil
}

// Context returns the session context.
func (sess *Session) Context() context.Context {
	return sess.context
}

// Connection returns the connection used to execute commands.
func (sess *Session) Connection() Connection {
	return sess.conn
}

// Registry returns the registry of table mappings.
func (sess *Session) Registry() *Registry {
	return sess.registry
}

// Factories returns the command factories.
func (sess *Session) Factories() *Factories {
	return sess.factories
}

// InsertRow inserts one row into the database.
//
// If the table has a generated key, the key value returned by the
// database is assigned to the key field, so model must be a pointer.
func (sess *Session) InsertRow(model interface{}) error {
	tm, err := sess.registry.TableFor(model)
	if err != nil {
		return err
	}
	key, err := tm.GeneratedKey()
	if err != nil {
		return err
	}
	factory := sess.factories.For(tm.ModelType, InsertStatement)
	assigner, ok := factory.(GeneratedKeyAssigner)
	if key != nil && ok {
		if rv := reflect.ValueOf(model); rv.Kind() != reflect.Ptr || rv.IsNil() {
			return newError(InvalidArgument, "model must be a non-nil pointer to assign generated key",
				"table", tm.TableName,
				"type", typeString(rv.Type()),
			)
		}
	}
	req := sess.newRequest(tm)
	req.Model = model
	cmd, err := factory.CreateCommand(sess.conn, req)
	if err != nil {
		return err
	}

	if key == nil || !ok {
		if _, err := cmd.ExecNonQuery(sess.context); err != nil {
			return wrapModelError(err, tm, model, "cannot insert row")
		}
		return nil
	}

	result, err := cmd.ExecScalar(sess.context)
	if err != nil {
		return wrapModelError(err, tm, model, "cannot insert row")
	}
	if err := assigner.AssignGeneratedKey(tm, model, result); err != nil {
		return wrapModelError(err, tm, model, "cannot assign generated key")
	}
	return nil
}

// UpdateRow updates the row identified by the primary key of the model.
// It returns the number of rows updated, which should be zero or one.
func (sess *Session) UpdateRow(model interface{}) (int, error) {
	return sess.UpdateRowWhere(model, nil)
}

// UpdateRowWhere updates the rows matching where with the values of the
// model. Columns compared for equality in where are not updated.
//
// A where condition that includes a version column can be used for
// optimistic locking: if no rows are updated, the row has been changed
// or deleted since it was read.
func (sess *Session) UpdateRowWhere(model interface{}, where *Condition) (int, error) {
	return sess.execModel(model, UpdateStatement, where, "cannot update row")
}

// DeleteRow deletes the row identified by the primary key of the model.
// It returns the number of rows deleted.
func (sess *Session) DeleteRow(model interface{}) (int, error) {
	return sess.execModel(model, DeleteStatement, nil, "cannot delete row")
}

func (sess *Session) execModel(model interface{}, stmt Statement, where *Condition, msg string) (int, error) {
	tm, err := sess.registry.TableFor(model)
	if err != nil {
		return 0, err
	}
	req := sess.newRequest(tm)
	req.Model = model
	req.Where = where
	cmd, err := sess.factories.For(tm.ModelType, stmt).CreateCommand(sess.conn, req)
	if err != nil {
		return 0, err
	}
	n, err := cmd.ExecNonQuery(sess.context)
	if err != nil {
		return 0, wrapModelError(err, tm, model, msg)
	}
	return int(n), nil
}

func (sess *Session) newRequest(tm *TableMapping) *CommandRequest {
	return &CommandRequest{
		Table:    tm,
		Patterns: sess.patterns,
		Models:   sess.models,
	}
}

// tableFor returns the table mapping for the model type.
func (sess *Session) tableFor(modelType reflect.Type) (*TableMapping, error) {
	return sess.registry.TableFor(modelType)
}

// queryModels executes cmd and creates a model for each row returned.
func (sess *Session) queryModels(cmd Command, tm *TableMapping) ([]reflect.Value, error) {
	rows, err := cmd.ExecReader(sess.context)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var models []reflect.Value
	for rows.Next() {
		v, err := sess.models.createModel(tm.ModelType, rows, tm)
		if err != nil {
			return nil, err
		}
		models = append(models, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// execCount executes cmd and converts the result to an integer.
func (sess *Session) execCount(cmd Command) (int64, error) {
	result, err := cmd.ExecScalar(sess.context)
	if err != nil {
		return 0, err
	}
	v, err := coerce("count", result, reflect.TypeOf(int64(0)))
	if err != nil {
		return 0, err
	}
	return v.Int(), nil
}

// SelectAll returns the rows of the table for T that match where, in
// the order given by sorts. A nil where matches every row.
func SelectAll[T any](sess *Session, where *Condition, sorts ...string) ([]*T, error) {
	return Select[T](sess).Where(where).OrderBy(sorts...).All()
}

// SelectOne returns the first row of the table for T that matches
// where, or nil if no row matches.
func SelectOne[T any](sess *Session, where *Condition) (*T, error) {
	return Select[T](sess).Where(where).One()
}

// Count returns the number of rows of the table for T that match where.
func Count[T any](sess *Session, where *Condition) (int64, error) {
	return Select[T](sess).Where(where).Count()
}

func modelsOf[T any](values []reflect.Value) []*T {
	models := make([]*T, 0, len(values))
	for _, v := range values {
		models = append(models, v.Interface().(*T))
	}
	return models
}

// wrapModelError wraps err with the table name and the primary key
// values of the model.
func wrapModelError(err error, tm *TableMapping, model interface{}, msg string) error {
	keyvals := []interface{}{"table", tm.TableName}
	rv := reflect.ValueOf(model)
	if rv.Kind() == reflect.Ptr && rv.IsNil() {
		return kv.Wrap(err, msg).With(keyvals...)
	}
	rv = reflect.Indirect(rv)
	if rv.Kind() == reflect.Struct {
		for _, pk := range tm.PrimaryKeys() {
			if value, ok := pk.accessor.Get(rv); ok {
				keyvals = append(keyvals, pk.ColumnName, nullValue(value))
			}
		}
	}
	return kv.Wrap(err, msg).With(keyvals...)
}
