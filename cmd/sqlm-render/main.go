// sqlm-render prints the SQL statement that sqlm would send to a
// database, along with its parameters. It is useful for checking how a
// statement is rendered for each dialect.
//
//	sqlm-render -d postgres -t users --where 'id=10' --where 'name~j%' select
//	sqlm-render -d mssql -t users --set name=jane --key id insert
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/jjeffery/sqlm"
	"github.com/spf13/pflag"
)

type options struct {
	dialect  string
	table    string
	columns  []string
	where    []string
	set      []string
	orderBy  []string
	limit    int
	key      string
	patterns bool
}

var command options

func main() {
	log.SetFlags(0)
	pflag.StringVarP(&command.dialect, "dialect", "d", "mssql", "dialect: mssql, mysql, sqlite or postgres")
	pflag.StringVarP(&command.table, "table", "t", "", "table name")
	pflag.StringSliceVarP(&command.columns, "columns", "c", nil, "columns to select")
	pflag.StringArrayVarP(&command.where, "where", "w", nil, "condition, eg 'id=1', 'name~j%' or 'deleted_at' for is null")
	pflag.StringArrayVarP(&command.set, "set", "s", nil, "column value for insert or update, eg 'name=jane'")
	pflag.StringArrayVarP(&command.orderBy, "order", "o", nil, "sort, eg 'name desc'")
	pflag.IntVarP(&command.limit, "limit", "n", 0, "maximum number of rows to select")
	pflag.StringVarP(&command.key, "key", "k", "", "generated key column for insert")
	pflag.BoolVar(&command.patterns, "bound-patterns", false, "bind like and between values as parameters")
	pflag.Parse()
	if len(pflag.Args()) != 1 {
		log.Fatalln("usage: sqlm-render [flags] select|count|insert|update|delete")
	}
	if err := render(os.Stdout, pflag.Arg(0)); err != nil {
		log.Fatalln(err)
	}
}

func render(w io.Writer, stmt string) error {
	d, err := sqlm.LookupDialect(command.dialect)
	if err != nil {
		return err
	}
	qs := sqlm.NewQueryService(d)

	cond, err := parseWhere(command.where)
	if err != nil {
		return err
	}
	values, err := parseValues(command.set)
	if err != nil {
		return err
	}
	mode := sqlm.InlinePatterns
	if command.patterns {
		mode = sqlm.BoundPatterns
	}

	// value parameters are named before the condition parameters
	var namer sqlm.ParamNamer
	params := namer.Values(values)
	where, err := namer.Bind(cond, mode)
	if err != nil {
		return err
	}

	var text string
	switch strings.ToLower(stmt) {
	case "select":
		text, err = qs.Select(command.limit, command.columns, command.table, where, command.orderBy)
	case "count":
		text, err = qs.SelectCount(command.table, where)
	case "insert":
		text, err = qs.InsertInto(command.table, params, command.key)
	case "update":
		text, err = qs.Update(command.table, params, where)
	case "delete":
		text, err = qs.Delete(command.table, where)
	default:
		return fmt.Errorf("unknown statement %q", stmt)
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(w, text)
	for _, v := range params {
		for _, p := range v.Params {
			fmt.Fprintf(w, "%s = %v\n", p.Name, p.Value)
		}
	}
	for _, p := range where.Params() {
		fmt.Fprintf(w, "%s = %v\n", p.Name, p.Value)
	}
	return nil
}

// operators are checked in order, so that "<=" is found before "<".
var operators = []string{"<>", "!=", "<=", ">=", "=", "<", ">", "~"}

func parseWhere(exprs []string) (*sqlm.Condition, error) {
	var cond *sqlm.Condition
	for _, expr := range exprs {
		term, err := parseTerm(expr)
		if err != nil {
			return nil, err
		}
		if cond == nil {
			cond = term
		} else {
			cond.And(term)
		}
	}
	return cond, nil
}

func parseTerm(expr string) (*sqlm.Condition, error) {
	for _, op := range operators {
		i := strings.Index(expr, op)
		if i < 0 {
			continue
		}
		column := strings.TrimSpace(expr[:i])
		value := strings.TrimSpace(expr[i+len(op):])
		if column == "" {
			return nil, fmt.Errorf("missing column in %q", expr)
		}
		if op == "~" {
			return sqlm.Like(column, value), nil
		}
		return sqlm.OpWith(column, op, value), nil
	}
	if column := strings.TrimSpace(expr); column != "" {
		return sqlm.IsNull(column), nil
	}
	return nil, fmt.Errorf("invalid condition %q", expr)
}

func parseValues(exprs []string) ([]sqlm.ColumnValue, error) {
	var values []sqlm.ColumnValue
	for _, expr := range exprs {
		column, value, ok := strings.Cut(expr, "=")
		if !ok || strings.TrimSpace(column) == "" {
			return nil, fmt.Errorf("invalid value %q, want column=value", expr)
		}
		values = append(values, sqlm.ColumnValue{Column: strings.TrimSpace(column), Value: value})
	}
	return values, nil
}
