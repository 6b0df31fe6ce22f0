package sqlm

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jjeffery/kv"
	"github.com/jjeffery/sqlm/private/scanner"
	"github.com/jmoiron/sqlx"
)

// The Querier interface defines the SQL database access methods used by this package.
//
// The *DB, *Tx and *Conn types in the standard library package "database/sql" all implement this interface.
type Querier interface {
	// ExecContext executes a query without returning any rows.
	// The args are for any placeholder parameters in the query.
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

	// QueryContext executes a query that returns rows, typically a SELECT.
	// The args are for any placeholder parameters in the query.
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

var (
	_ Querier = &sql.DB{}
	_ Querier = &sql.Tx{}
	_ Querier = &sql.Conn{}
)

// Logger wraps a single method, Println, which prints a message
// for diagnostic purposes. Any implementation of this interface must
// support concurrent access by multiple goroutines.
//
// The Logger type in the standard library package "log" implements
// this interface.
type Logger interface {
	Println(v ...interface{})
}

// DB is a Connection that executes commands using a Querier.
//
// Commands refer to parameters as @name. For dialects that bind
// parameters by name, each parameter is passed to the driver as an
// sql.NamedArg. For other dialects the statement text is rewritten to
// use positional placeholders in the order the names appear, so a name
// can be referred to more than once.
type DB struct {
	querier  Querier
	dialect  Dialect
	bindType int
	logger   Logger
}

var _ Connection = (*DB)(nil)

// NewDB returns a connection that executes commands using querier. The
// provider name selects the dialect, and fails with UnsupportedProvider
// if no dialect is registered for it.
func NewDB(querier Querier, provider string, opts ...Option) (*DB, error) {
	o := newOptions(opts)
	d, err := o.dialects.Lookup(provider)
	if err != nil {
		return nil, err
	}
	return newDB(querier, d, o), nil
}

// Open returns a session for db, using ctx as the session context.
// The dialect is chosen by the type of the database driver, which must
// have been registered by importing package drivers, or by calling
// RegisterDriverDialect.
func Open(ctx context.Context, db *sql.DB, opts ...Option) (*Session, error) {
	if db == nil {
		return nil, newError(InvalidArgument, "db is nil")
	}
	o := newOptions(opts)
	d, err := o.dialects.ForDriver(db.Driver())
	if err != nil {
		return nil, err
	}
	return newSession(ctx, newDB(db, d, o), o), nil
}

func newDB(querier Querier, d Dialect, o *options) *DB {
	return &DB{
		querier:  querier,
		dialect:  d,
		bindType: sqlx.BindType(d.Name()),
		logger:   o.logger,
	}
}

// Dialect returns the SQL dialect of the database.
func (db *DB) Dialect() Dialect {
	return db.dialect
}

// CreateCommand returns a command for the statement text.
func (db *DB) CreateCommand(text string) Command {
	return &dbCommand{db: db, text: text}
}

type dbCommand struct {
	db     *DB
	text   string
	params []Param
}

func (cmd *dbCommand) Text() string {
	return cmd.text
}

func (cmd *dbCommand) AddParameter(name string, value interface{}) {
	if !strings.HasPrefix(name, "@") {
		name = "@" + name
	}
	cmd.params = append(cmd.params, Param{Name: name, Value: value})
}

func (cmd *dbCommand) Parameters() []Param {
	return cmd.params
}

func (cmd *dbCommand) ExecNonQuery(ctx context.Context) (int64, error) {
	query, args, err := cmd.prepare(cmd.text)
	if err != nil {
		return 0, err
	}
	cmd.log(query, args)
	result, err := cmd.db.querier.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, cmd.wrapError(err, "cannot execute command")
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, cmd.wrapError(err, "cannot get rows affected")
	}
	return n, nil
}

func (cmd *dbCommand) ExecScalar(ctx context.Context) (interface{}, error) {
	if text, ok := cmd.trimLastInsertID(); ok {
		return cmd.execLastInsertID(ctx, text)
	}
	rows, err := cmd.ExecReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if rows.FieldCount() == 0 {
		return nil, nil
	}
	value := rows.Value(0)
	if err := rows.Close(); err != nil {
		return nil, cmd.wrapError(err, "cannot close rows")
	}
	return value, nil
}

func (cmd *dbCommand) ExecReader(ctx context.Context) (Rows, error) {
	query, args, err := cmd.prepare(cmd.text)
	if err != nil {
		return nil, err
	}
	cmd.log(query, args)
	rows, err := cmd.db.querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cmd.wrapError(err, "cannot query")
	}
	names, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, cmd.wrapError(err, "cannot get columns")
	}
	return &dbRows{rows: rows, names: names, cmd: cmd}, nil
}

// trimLastInsertID removes the trailing statement that selects the
// last generated key. The key is obtained from the result of the
// insert instead, as drivers do not permit multiple statements.
func (cmd *dbCommand) trimLastInsertID() (string, bool) {
	q := cmd.db.dialect.LastInsertIDQuery()
	if q == "" {
		return "", false
	}
	text := strings.TrimRight(cmd.text, "; \t\r\n")
	if !strings.HasSuffix(text, q) {
		return "", false
	}
	text = strings.TrimSpace(strings.TrimSuffix(text, q))
	text = strings.TrimSpace(strings.TrimSuffix(text, ";"))
	return text, true
}

func (cmd *dbCommand) execLastInsertID(ctx context.Context, text string) (interface{}, error) {
	query, args, err := cmd.prepare(text)
	if err != nil {
		return nil, err
	}
	cmd.log(query, args)
	result, err := cmd.db.querier.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, cmd.wrapError(err, "cannot execute command")
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, cmd.wrapError(err, "cannot retrieve last insert id")
	}
	return id, nil
}

// prepare returns the query text and arguments to pass to the driver.
func (cmd *dbCommand) prepare(text string) (string, []interface{}, error) {
	if cmd.db.dialect.NamedParameters() {
		args := make([]interface{}, 0, len(cmd.params))
		for _, p := range cmd.params {
			args = append(args, sql.Named(strings.TrimPrefix(p.Name, "@"), p.Value))
		}
		return text, args, nil
	}

	query, names, err := scanner.Positional(text)
	if err != nil {
		return "", nil, cmd.wrapError(err, "cannot parse command")
	}
	values := make(map[string]interface{}, len(cmd.params))
	for _, p := range cmd.params {
		values[strings.ToLower(strings.TrimPrefix(p.Name, "@"))] = p.Value
	}
	args := make([]interface{}, 0, len(names))
	referenced := make(map[string]bool, len(names))
	for _, name := range names {
		name = strings.ToLower(name)
		value, ok := values[name]
		if !ok {
			return "", nil, newError(InvalidArgument, "missing parameter",
				"name", "@"+name,
				"sql", text,
			)
		}
		referenced[name] = true
		args = append(args, value)
	}
	for _, p := range cmd.params {
		if name := strings.ToLower(strings.TrimPrefix(p.Name, "@")); !referenced[name] {
			return "", nil, newError(InvalidArgument, "parameter not referenced",
				"name", "@"+name,
				"sql", text,
			)
		}
	}
	return sqlx.Rebind(cmd.db.bindType, query), args, nil
}

func (cmd *dbCommand) log(query string, args []interface{}) {
	if cmd.db.logger == nil {
		return
	}
	cmd.db.logger.Println(kv.List{"sql", query, "params", len(args)})
}

func (cmd *dbCommand) wrapError(err error, msg string) error {
	return kv.Wrap(err, msg).With(
		"dialect", cmd.db.dialect.Name(),
		"sql", cmd.text,
	)
}

type dbRows struct {
	rows   *sql.Rows
	names  []string
	values []interface{}
	cmd    *dbCommand
	err    error
}

func (r *dbRows) Next() bool {
	if r.err != nil || !r.rows.Next() {
		return false
	}
	r.values = make([]interface{}, len(r.names))
	dest := make([]interface{}, len(r.names))
	for i := range r.values {
		dest[i] = &r.values[i]
	}
	if err := r.rows.Scan(dest...); err != nil {
		r.err = r.cmd.wrapError(err, "cannot scan row")
		return false
	}
	return true
}

func (r *dbRows) Err() error {
	if r.err != nil {
		return r.err
	}
	if err := r.rows.Err(); err != nil {
		return r.cmd.wrapError(err, "cannot get rows")
	}
	return nil
}

func (r *dbRows) Close() error {
	return r.rows.Close()
}

func (r *dbRows) FieldCount() int {
	return len(r.names)
}

func (r *dbRows) Name(i int) string {
	return r.names[i]
}

func (r *dbRows) Value(i int) interface{} {
	return r.values[i]
}

func (r *dbRows) IsNull(i int) bool {
	return r.values[i] == nil
}
