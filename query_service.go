package sqlm

import (
	"bytes"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/jjeffery/sqlm/private/dialect"
)

// Dialect is an interface used to handle differences in SQL dialects.
type Dialect = dialect.Dialect

// Pre-defined dialects.
var (
	MSSQL    Dialect = dialect.MSSQL    // Quote: [column], Limit: top n, Key: output inserted.[key]
	MySQL    Dialect = dialect.MySQL    // Quote: `column`, Limit: limit n, Key: ;select last_insert_id()
	SQLite   Dialect = dialect.SQLite   // Quote: `column`, Limit: limit n, Key: ;select last_insert_rowid()
	Postgres Dialect = dialect.Postgres // Quote: "column", Limit: limit n, Key: returning "key"
)

// Dialects maps provider names, and the types of database drivers,
// to SQL dialects. It is safe for concurrent use.
//
// The package-level functions RegisterDialect, LookupDialect and
// RegisterDriverDialect use the default dialects. Use WithDialects to
// supply a different set to NewDB and Open.
type Dialects struct {
	r *dialect.Registry
}

var defaultDialects = &Dialects{r: dialect.Default}

// NewDialects returns a set of dialects that knows the provider names of
// the pre-defined dialects, and no driver types.
func NewDialects() *Dialects {
	return &Dialects{r: dialect.NewRegistry()}
}

// DefaultDialects returns the dialects used when no others are supplied.
func DefaultDialects() *Dialects {
	return defaultDialects
}

// Register associates a provider name with a dialect, replacing
// any dialect already registered under that name.
func (ds *Dialects) Register(provider string, d Dialect) {
	ds.r.Register(provider, d)
}

// Lookup returns the dialect registered for the provider name.
func (ds *Dialects) Lookup(provider string) (Dialect, error) {
	d, ok := ds.r.Lookup(provider)
	if !ok {
		return nil, newError(UnsupportedProvider, "no dialect for provider", "provider", provider)
	}
	return d, nil
}

// RegisterDriver associates the concrete type of drv with a dialect.
func (ds *Dialects) RegisterDriver(drv driver.Driver, d Dialect) {
	ds.r.RegisterDriver(drv, d)
}

// ForDriver returns the dialect registered for the type of drv.
func (ds *Dialects) ForDriver(drv driver.Driver) (Dialect, error) {
	d, ok := ds.r.ForDriver(drv)
	if !ok {
		return nil, newError(UnsupportedProvider, "no dialect for driver", "driver", fmt.Sprintf("%T", drv))
	}
	return d, nil
}

// RegisterDialect associates a provider name with a dialect in the
// default dialects.
func RegisterDialect(provider string, d Dialect) {
	defaultDialects.Register(provider, d)
}

// LookupDialect returns the dialect registered for the provider name
// in the default dialects.
func LookupDialect(provider string) (Dialect, error) {
	return defaultDialects.Lookup(provider)
}

// RegisterDriverDialect associates the concrete type of drv with a
// dialect in the default dialects, so that Open can choose the dialect
// for a *sql.DB.
func RegisterDriverDialect(drv driver.Driver, d Dialect) {
	defaultDialects.RegisterDriver(drv, d)
}

// ColumnPair is a pair of columns that are compared for equality
// when joining two tables.
type ColumnPair struct {
	Left  string
	Right string
}

// QueryService renders statement text for a dialect. It only
// assembles text from resolved pieces: the column lists, bound
// conditions and sort specifications are supplied by the caller.
type QueryService struct {
	dialect Dialect
}

// NewQueryService returns a query service for the dialect.
func NewQueryService(d Dialect) *QueryService {
	return &QueryService{dialect: d}
}

// Dialect returns the dialect used to render statements.
func (qs *QueryService) Dialect() Dialect {
	return qs.dialect
}

// Select renders a select statement. If limit is greater than zero, at
// most limit rows are selected. If columns is empty, all columns are
// selected. Each sort is a column name, optionally followed by ASC or DESC.
func (qs *QueryService) Select(limit int, columns []string, table string, where *BoundCondition, sorts []string) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", errNoTable("select")
	}
	orderBy, err := qs.orderBy(sorts)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	buf.WriteString("select ")
	if limit > 0 {
		if top := qs.dialect.Top(limit); top != "" {
			buf.WriteString(top)
			buf.WriteRune(' ')
		}
	}
	qs.writeColumns(&buf, columns, "*")
	buf.WriteString(" from ")
	buf.WriteString(qs.dialect.Quote(table))
	qs.writeWhere(&buf, where)
	buf.WriteString(orderBy)
	if limit > 0 {
		if lim := qs.dialect.Limit(limit); lim != "" {
			buf.WriteRune(' ')
			buf.WriteString(lim)
		}
	}
	return buf.String(), nil
}

// SelectCount renders a statement that counts the matching rows.
func (qs *QueryService) SelectCount(table string, where *BoundCondition) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", errNoTable("count")
	}
	var buf bytes.Buffer
	buf.WriteString("select count(*) from ")
	buf.WriteString(qs.dialect.Quote(table))
	qs.writeWhere(&buf, where)
	return buf.String(), nil
}

// SelectThrough renders a select statement for the rows of table that
// are related to another table via the intermediate table through. The
// join pairs compare columns of the two tables. If columns is empty,
// all columns of table are selected.
func (qs *QueryService) SelectThrough(columns []string, table string, through string, join []ColumnPair, where *BoundCondition) (string, error) {
	if strings.TrimSpace(table) == "" || strings.TrimSpace(through) == "" {
		return "", errNoTable("select")
	}
	if len(join) == 0 {
		return "", newError(InvalidArgument, "no join columns provided", "table", table, "through", through)
	}
	var buf bytes.Buffer
	buf.WriteString("select ")
	qs.writeColumns(&buf, columns, qs.dialect.Quote(table)+".*")
	buf.WriteString(" from ")
	buf.WriteString(qs.dialect.Quote(table))
	buf.WriteRune(',')
	buf.WriteString(qs.dialect.Quote(through))
	buf.WriteString(" where ")
	for i, pair := range join {
		if i > 0 {
			buf.WriteString(" and ")
		}
		buf.WriteString(qs.dialect.Quote(pair.Left))
		buf.WriteRune('=')
		buf.WriteString(qs.dialect.Quote(pair.Right))
	}
	if where != nil {
		buf.WriteString(" and ")
		qs.writeCondition(&buf, where)
	}
	return buf.String(), nil
}

// InsertInto renders an insert statement for the values. If generatedKey
// is not empty, the statement returns the value that the database
// generates for that column, in the manner of the dialect.
func (qs *QueryService) InsertInto(table string, values []BoundParameter, generatedKey string) (string, error) {
	if strings.TrimSpace(table) == "" || len(values) == 0 {
		return "", errNoTable("insert")
	}
	var buf bytes.Buffer
	buf.WriteString("insert into ")
	buf.WriteString(qs.dialect.Quote(table))
	buf.WriteString(" (")
	for i, v := range values {
		if i > 0 {
			buf.WriteRune(',')
		}
		buf.WriteString(qs.dialect.Quote(v.Column))
	}
	buf.WriteRune(')')
	if generatedKey != "" {
		if output := qs.dialect.Output(generatedKey); output != "" {
			buf.WriteRune(' ')
			buf.WriteString(output)
		}
	}
	buf.WriteString(" values (")
	for i, v := range values {
		if i > 0 {
			buf.WriteRune(',')
		}
		buf.WriteString(v.Name)
	}
	buf.WriteRune(')')
	if generatedKey != "" {
		buf.WriteString(qs.dialect.Returning(generatedKey))
	}
	return buf.String(), nil
}

// Update renders an update statement that sets the values for the rows
// matching where. A nil where updates every row.
func (qs *QueryService) Update(table string, values []BoundParameter, where *BoundCondition) (string, error) {
	if strings.TrimSpace(table) == "" || len(values) == 0 {
		return "", errNoTable("update")
	}
	var buf bytes.Buffer
	buf.WriteString("update ")
	buf.WriteString(qs.dialect.Quote(table))
	buf.WriteString(" set ")
	for i, v := range values {
		if i > 0 {
			buf.WriteRune(',')
		}
		buf.WriteString(qs.dialect.Quote(v.Column))
		buf.WriteString(v.Fragment)
	}
	qs.writeWhere(&buf, where)
	return buf.String(), nil
}

// Delete renders a delete statement for the rows matching where.
// A condition is required: deleting every row in a table is refused.
func (qs *QueryService) Delete(table string, where *BoundCondition) (string, error) {
	if strings.TrimSpace(table) == "" {
		return "", errNoTable("delete")
	}
	if where == nil {
		return "", newError(InvalidArgument, "will not delete all rows", "table", table)
	}
	var buf bytes.Buffer
	buf.WriteString("delete from ")
	buf.WriteString(qs.dialect.Quote(table))
	qs.writeWhere(&buf, where)
	return buf.String(), nil
}

func (qs *QueryService) writeColumns(buf *bytes.Buffer, columns []string, all string) {
	if len(columns) == 0 {
		buf.WriteString(all)
		return
	}
	for i, col := range columns {
		if i > 0 {
			buf.WriteRune(',')
		}
		buf.WriteString(qs.dialect.Quote(col))
	}
}

func (qs *QueryService) writeWhere(buf *bytes.Buffer, where *BoundCondition) {
	if where == nil {
		return
	}
	buf.WriteString(" where ")
	qs.writeCondition(buf, where)
}

func (qs *QueryService) writeCondition(buf *bytes.Buffer, where *BoundCondition) {
	buf.WriteString(qs.dialect.Quote(where.Main.Column))
	buf.WriteString(where.Main.Fragment)
	for _, sub := range where.Subs {
		buf.WriteRune(' ')
		buf.WriteString(string(sub.Op))
		buf.WriteRune(' ')
		buf.WriteString(qs.dialect.Quote(sub.Column))
		buf.WriteString(sub.Fragment)
	}
}

func (qs *QueryService) orderBy(sorts []string) (string, error) {
	if len(sorts) == 0 {
		return "", nil
	}
	var buf bytes.Buffer
	buf.WriteString(" order by ")
	for i, sort := range sorts {
		fields := strings.Fields(sort)
		if len(fields) == 0 || len(fields) > 2 {
			return "", errInvalidSort(sort)
		}
		if i > 0 {
			buf.WriteRune(',')
		}
		buf.WriteString(qs.dialect.Quote(fields[0]))
		if len(fields) == 2 {
			dir := strings.ToUpper(fields[1])
			if dir != "ASC" && dir != "DESC" {
				return "", errInvalidSort(sort)
			}
			buf.WriteRune(' ')
			buf.WriteString(dir)
		}
	}
	return buf.String(), nil
}

func errNoTable(stmt string) error {
	return newError(InvalidArgument, "no table/column provided", "stmt", stmt)
}

func errInvalidSort(sort string) error {
	return newError(InvalidArgument, "invalid sort", "sort", sort)
}
