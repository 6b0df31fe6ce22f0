// Package dialect handles differences in the SQL dialects
// used when rendering statements.
package dialect

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Dialect is an interface used to handle differences
// in SQL dialects.
type Dialect interface {
	// Name of the dialect.
	Name() string

	// Quote a table name or column name so that it does
	// not clash with any reserved words. Each dot-separated
	// segment is quoted individually, so "dbo.users" becomes
	// [dbo].[users] for SQL Server.
	Quote(name string) string

	// Top returns the row-limiting clause that follows the
	// select keyword (eg "top 10"), or the empty string if the
	// dialect limits rows with a trailing clause.
	Top(n int) string

	// Limit returns the row-limiting clause that is appended
	// to a select statement (eg "limit 10"), or the empty string
	// if the dialect limits rows with a leading clause.
	Limit(n int) string

	// Output returns the clause inserted between the column list
	// and the values list of an insert statement that returns the
	// generated key (eg "output inserted.[id]"). Returns the empty
	// string if the dialect does not use an output clause.
	Output(keyColumn string) string

	// Returning returns the text appended to an insert statement
	// that returns the generated key. Returns the empty string if
	// the dialect uses an output clause instead.
	Returning(keyColumn string) string

	// LastInsertIDQuery returns the follow-up statement used to
	// obtain the key generated by the previous insert, or the empty
	// string if the generated key is returned by the insert itself.
	LastInsertIDQuery() string

	// NamedParameters reports whether placeholders of the form @name
	// are bound by name. If false, placeholders are bound by position.
	NamedParameters() bool
}

// dialectT implements the Dialect interface.
type dialectT struct {
	name         string
	altnames     []string
	quoteFunc    func(name string) string
	top          string
	limit        string
	output       string
	returning    string
	lastInsertID string
	namedParams  bool
}

func (d *dialectT) Name() string {
	return d.name
}

func (d *dialectT) Quote(name string) string {
	if d.quoteFunc == nil {
		return name
	}
	return d.quoteFunc(name)
}

func (d *dialectT) Top(n int) string {
	if d.top == "" {
		return ""
	}
	return fmt.Sprintf(d.top, n)
}

func (d *dialectT) Limit(n int) string {
	if d.limit == "" {
		return ""
	}
	return fmt.Sprintf(d.limit, n)
}

func (d *dialectT) Output(keyColumn string) string {
	if d.output == "" {
		return ""
	}
	return fmt.Sprintf(d.output, d.Quote(keyColumn))
}

func (d *dialectT) Returning(keyColumn string) string {
	if d.lastInsertID != "" {
		return ";" + d.lastInsertID
	}
	if d.returning == "" {
		return ""
	}
	return fmt.Sprintf(d.returning, d.Quote(keyColumn))
}

func (d *dialectT) LastInsertIDQuery() string {
	return d.lastInsertID
}

func (d *dialectT) NamedParameters() bool {
	return d.namedParams
}

func (d *dialectT) String() string {
	return d.name
}

// Dialects for supported database servers.
var (
	MSSQL = &dialectT{
		name:        "mssql",
		altnames:    []string{"sqlserver", "azuresql"},
		quoteFunc:   quoteFunc("[", "]"),
		top:         "top %d",
		output:      "output inserted.%s",
		namedParams: true,
	}
	MySQL = &dialectT{
		name:         "mysql",
		quoteFunc:    quoteFunc("`", "`"),
		limit:        "limit %d",
		lastInsertID: "select last_insert_id()",
	}
	SQLite = &dialectT{
		name:         "sqlite",
		altnames:     []string{"sqlite3"},
		quoteFunc:    quoteFunc("`", "`"),
		limit:        "limit %d",
		lastInsertID: "select last_insert_rowid()",
		namedParams:  true,
	}
	Postgres = &dialectT{
		name:      "postgres",
		altnames:  []string{"pq", "postgresql", "pgx"},
		quoteFunc: quoteFunc(`"`, `"`),
		limit:     "limit %d",
		returning: " returning %s",
	}
)

// Registry maps provider names, and database driver types,
// to dialects. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byName   map[string]Dialect
	byDriver map[reflect.Type]Dialect
}

// NewRegistry returns a registry that knows about the
// built-in dialects.
func NewRegistry() *Registry {
	r := &Registry{
		byName:   make(map[string]Dialect),
		byDriver: make(map[reflect.Type]Dialect),
	}
	for _, d := range []*dialectT{MSSQL, MySQL, SQLite, Postgres} {
		r.byName[d.name] = d
		for _, altname := range d.altnames {
			r.byName[altname] = d
		}
	}
	return r
}

// Register associates a provider name with a dialect, replacing
// any dialect previously registered with that name.
func (r *Registry) Register(name string, d Dialect) {
	r.mu.Lock()
	r.byName[normalize(name)] = d
	r.mu.Unlock()
}

// Lookup returns the dialect registered for the provider name.
func (r *Registry) Lookup(name string) (Dialect, bool) {
	r.mu.RLock()
	d, ok := r.byName[normalize(name)]
	r.mu.RUnlock()
	return d, ok
}

// RegisterDriver associates the concrete type of drv with a dialect.
func (r *Registry) RegisterDriver(drv driver.Driver, d Dialect) {
	r.mu.Lock()
	r.byDriver[reflect.TypeOf(drv)] = d
	r.mu.Unlock()
}

// ForDriver returns the dialect registered for the type of drv.
func (r *Registry) ForDriver(drv driver.Driver) (Dialect, bool) {
	if drv == nil {
		return nil, false
	}
	r.mu.RLock()
	d, ok := r.byDriver[reflect.TypeOf(drv)]
	r.mu.RUnlock()
	return d, ok
}

// Default is the registry used when no other registry is supplied.
var Default = NewRegistry()

func normalize(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}

func quoteFunc(begin string, end string) func(name string) string {
	return func(name string) string {
		var names []string
		for _, n := range strings.Split(name, ".") {
			n = strings.TrimLeft(n, "\"`[ \t"+begin)
			n = strings.TrimRight(n, "\"`] \t"+end)
			names = append(names, begin+n+end)
		}
		return strings.Join(names, ".")
	}
}
