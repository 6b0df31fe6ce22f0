// Package drivers registers the database drivers that sqlm knows how
// to talk to, so that sqlm.Open can choose the SQL dialect from the
// type of a *sql.DB's driver. Import it for its side effects:
//
//	import _ "github.com/jjeffery/sqlm/drivers"
//
// Importing this package also registers each driver with
// database/sql under its usual names: "mysql", "postgres", "pgx",
// "sqlserver", "mssql", "sqlite3" and "sqlite".
package drivers

import (
	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jjeffery/sqlm"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"modernc.org/sqlite"
)

func init() {
	Register(sqlm.DefaultDialects())
}

// Register associates the driver types of this package with their
// dialects in ds. It is called for the default dialects when the
// package is imported.
func Register(ds *sqlm.Dialects) {
	ds.RegisterDriver(&mysql.MySQLDriver{}, sqlm.MySQL)
	ds.RegisterDriver(&pq.Driver{}, sqlm.Postgres)
	ds.RegisterDriver(stdlib.GetDefaultDriver(), sqlm.Postgres)
	ds.RegisterDriver(&mssql.Driver{}, sqlm.MSSQL)
	ds.RegisterDriver(&sqlite3.SQLiteDriver{}, sqlm.SQLite)
	ds.RegisterDriver(&sqlite.Driver{}, sqlm.SQLite)
}
