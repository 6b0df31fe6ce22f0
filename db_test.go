package sqlm

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jjeffery/kv"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T, provider string, opts ...Option) (*Session, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	conn, err := NewDB(db, provider, opts...)
	require.NoError(t, err)
	opts = append(opts, WithRegistry(newTestRegistry(t)))
	return NewSession(context.Background(), conn, opts...), mock
}

func TestNewDBUnsupportedProvider(t *testing.T) {
	_, err := NewDB(&sql.DB{}, "oracle")
	assert.True(t, errors.Is(err, ErrUnsupportedProvider))

	conn, err := NewDB(&sql.DB{}, "SQLServer")
	require.NoError(t, err)
	assert.Equal(t, MSSQL, conn.Dialect())
}

func TestDBPositionalParameters(t *testing.T) {
	sess, mock := newMock(t, "mysql")

	mock.ExpectExec("insert into `User` (`username`,`roleid`) values (?,?)").
		WithArgs("jane", 2).
		WillReturnResult(sqlmock.NewResult(42, 1))
	user := &User{UserName: "jane", RoleId: 2}
	require.NoError(t, sess.InsertRow(user))
	assert.Equal(t, 42, user.Id)

	mock.ExpectExec("update `User` set `username`=? where `id`=? and `roleid`=?").
		WithArgs("jane", 42, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := sess.UpdateRowWhere(user, Op("id", 42).And(Op("roleid", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	mock.ExpectQuery("select `id`,`username`,`roleid` from `User` where `roleid`=? order by `username` limit 2").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "roleid"}).
			AddRow(42, "jane", 2).
			AddRow(43, []byte("john"), 2))
	users, err := Select[User](sess).Where(Op("roleid", 2)).OrderBy("username").Top(2).All()
	require.NoError(t, err)
	assert.Equal(t, []*User{
		{Id: 42, UserName: "jane", RoleId: 2},
		{Id: 43, UserName: "john", RoleId: 2},
	}, users)

	mock.ExpectQuery("select count(*) from `User` where `username` like 'j%'").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))
	count, err := Count[User](sess, Like("username", "j%"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	mock.ExpectExec("delete from `User` where `id`=?").
		WithArgs(42).
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err = sess.DeleteRow(user)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestDBRepeatedParameter(t *testing.T) {
	sess, mock := newMock(t, "postgres")
	conn := sess.Connection()

	mock.ExpectQuery(`select * from "User" where "id"=$1 or "roleid"=$2 or "id"=$3`).
		WithArgs(5, 6, 5).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	cmd := conn.CreateCommand(`select * from "User" where "id"=@id or "roleid"=@roleid or "id"=@id`)
	cmd.AddParameter("@id", 5)
	cmd.AddParameter("roleid", 6)
	rows, err := cmd.ExecReader(context.Background())
	require.NoError(t, err)
	assert.False(t, rows.Next())
	assert.NoError(t, rows.Err())
	assert.NoError(t, rows.Close())

	// a placeholder with no parameter is not sent to the database
	cmd = conn.CreateCommand(`select * from "User" where "id"=@missing`)
	_, err = cmd.ExecReader(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// nor is a parameter with no placeholder
	cmd = conn.CreateCommand(`select * from "User" where "id"=@id`)
	cmd.AddParameter("@id", 5)
	cmd.AddParameter("@unused", 6)
	_, err = cmd.ExecNonQuery(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestDBDigitColumn(t *testing.T) {
	sess, mock := newMock(t, "mysql")

	mock.ExpectExec("delete from `t` where `2fa`=?").
		WithArgs(1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	n, err := sess.DeleteFrom("t").Where(Op("2fa", 1)).Exec()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDBReturningKey(t *testing.T) {
	sess, mock := newMock(t, "postgres")

	mock.ExpectQuery(`insert into "User" ("username","roleid") values ($1,$2) returning "id"`).
		WithArgs("jane", 2).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(77)))
	user := &User{UserName: "jane", RoleId: 2}
	require.NoError(t, sess.InsertRow(user))
	assert.Equal(t, 77, user.Id)
}

func TestDBNamedParameters(t *testing.T) {
	sess, mock := newMock(t, "mssql")

	mock.ExpectQuery("insert into [User] ([username],[roleid]) output inserted.[id] values (@username,@roleid)").
		WithArgs(sql.Named("username", "jane"), sql.Named("roleid", 2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(12)))
	user := &User{UserName: "jane", RoleId: 2}
	require.NoError(t, sess.InsertRow(user))
	assert.Equal(t, 12, user.Id)

	mock.ExpectQuery("select top 1 [id],[username],[roleid] from [User] where [id]=@id").
		WithArgs(sql.Named("id", 12)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "roleid"}))
	found, err := SelectOne[User](sess, Op("id", 12))
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestDBExecError(t *testing.T) {
	sess, mock := newMock(t, "mysql")

	mock.ExpectExec("delete from `User` where `id`=?").
		WithArgs(3).
		WillReturnError(errors.New("deadlock detected"))
	_, err := sess.DeleteRow(&User{Id: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot delete row")
	assert.Contains(t, err.Error(), "deadlock detected")

	mock.ExpectQuery("select `id`,`username`,`roleid` from `User`").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "roleid"}).AddRow("x", "jane", 1))
	_, err = SelectAll[User](sess, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot convert column value")
}

type testLogger struct {
	mu       sync.Mutex
	messages [][]interface{}
}

func (l *testLogger) Println(v ...interface{}) {
	l.mu.Lock()
	l.messages = append(l.messages, v)
	l.mu.Unlock()
}

func TestDBLogger(t *testing.T) {
	logger := &testLogger{}
	sess, mock := newMock(t, "mysql", WithLogger(logger))

	mock.ExpectExec("delete from `User` where `id`=?").
		WithArgs(3).
		WillReturnResult(sqlmock.NewResult(0, 0))
	n, err := sess.DeleteRow(&User{Id: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.Len(t, logger.messages, 1)
	assert.Equal(t, []interface{}{kv.List{"sql", "delete from `User` where `id`=?", "params", 1}}, logger.messages[0])
}

func TestSQLite(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		create table User(id integer primary key autoincrement, username text, roleid integer);
		create table Role(id integer primary key autoincrement, name text);
		create table UserRole(UserId integer, RoleId integer, primary key(UserId, RoleId));
	`)
	require.NoError(t, err)

	conn, err := NewDB(db, "sqlite3")
	require.NoError(t, err)
	ctx := context.Background()
	sess := NewSession(ctx, conn, WithRegistry(newTestRegistry(t)))
	defer sess.Close()

	admin := &Role{Name: "admin"}
	audit := &Role{Name: "audit"}
	require.NoError(t, sess.InsertRow(admin))
	require.NoError(t, sess.InsertRow(audit))
	assert.Equal(t, 1, admin.Id)
	assert.Equal(t, 2, audit.Id)

	jane := &User{UserName: "jane", RoleId: admin.Id}
	john := &User{UserName: "john", RoleId: admin.Id}
	require.NoError(t, sess.InsertRow(jane))
	require.NoError(t, sess.InsertRow(john))
	assert.Equal(t, 2, john.Id)

	for _, roleID := range []int{admin.Id, audit.Id} {
		_, err = sess.InsertInto("UserRole").Columns("UserId", "RoleId").Values(jane.Id, roleID).Exec()
		require.NoError(t, err)
	}

	users, err := SelectAll[User](sess, nil, "username desc")
	require.NoError(t, err)
	assert.Equal(t, []*User{john, jane}, users)

	count, err := Count[User](sess, Op("roleid", admin.Id))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	john.UserName = "johnny"
	john.RoleId = audit.Id
	n, err := sess.UpdateRow(john)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	found, err := SelectOne[User](sess, Op("id", john.Id))
	require.NoError(t, err)
	assert.Equal(t, john, found)

	role, err := FetchOne[Role](sess, john)
	require.NoError(t, err)
	assert.Equal(t, audit, role)

	members, err := FetchMany[User](sess, admin)
	require.NoError(t, err)
	assert.Equal(t, []*User{jane}, members)

	roles, err := FetchManyToMany[Role](sess, jane, "")
	require.NoError(t, err)
	assert.ElementsMatch(t, []*Role{admin, audit}, roles)

	updated, err := sess.Update("User").Set("roleid", admin.Id).Where(Like("username", "j%")).Exec()
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	n, err = sess.DeleteRow(john)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	count, err = Count[User](sess, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := sess.DeleteFrom("UserRole").Where(Op("UserId", jane.Id)).Exec()
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}
