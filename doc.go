/*
Package sqlm maps Go structs to database tables, and builds and
executes the SQL for common, row-based operations. It is intended for
programmers who are comfortable with SQL, but would like assistance
with the tedious process of preparing insert, update, delete and
select statements for tables with many columns.

Table Mappings

A registry holds a table mapping for each model type. A mapping can be
declared explicitly with a fluent builder:

 registry := sqlm.NewRegistry()
 registry.SetTable(User{}, "users").
     SetPrimaryKeyColumn("id", "ID").
     SetColumn("given_name", "GivenName").
     SetForeignKeyColumn("role_id", "RoleID", "roles", "id")

Types that have not been registered are discovered the first time they
are used. The table name comes from a "table" struct tag, or from the
type name, and each exported field becomes a column named by the
registry's naming convention. Struct tags refine the discovered mapping:

 type User struct {
     ID        int64  `sql:"id,pk autoincr" table:"users"`
     GivenName string
     RoleID    int    `sql:"role_id,references roles.id"`
     Notes     string `sql:"-"`
 }

A primary key column is generated by the database unless declared
otherwise. Generated and ignored columns are never written.

Sessions

A session executes commands on a connection. The connection for a
*sql.DB is chosen by the provider name, or by the type of its driver:

 import _ "github.com/jjeffery/sqlm/drivers"

 sess, err := sqlm.Open(ctx, db, sqlm.WithRegistry(registry))
 if err != nil {
     return err
 }
 defer sess.Close()

 // assigns the generated key to user.ID
 err = sess.InsertRow(&user)

 // updates the row with the same primary key
 n, err := sess.UpdateRow(&user)

 users, err := sqlm.SelectAll[User](sess, sqlm.Like("given_name", "J%"), "given_name desc")

Conditions

Conditions are built from terms joined with And and Or, in the order
written and without parentheses. Values are passed as parameters named
after their columns, so that

 sqlm.Op("id", 10).And(sqlm.IsNull("deleted_at")).Or(sqlm.OpWith("version", ">", 3))

is rendered for SQL Server as

 [id]=@id and [deleted_at] is null or [version]>@version

The patterns of Like and Between terms are written into the statement
text unless the WithBoundPatterns option is used. Drivers that do not
bind parameters by name receive positional placeholders instead.

Errors

Errors detected before a statement is sent to the database are of type
*Error, and can be tested with errors.Is against the sentinel errors,
eg ErrNoColumnsToWrite, or with IsKind. Errors returned by the database
are wrapped with the statement text and, for row operations, the table
name and primary key values.
*/
package sqlm
