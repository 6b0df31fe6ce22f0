package sqlm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestRegistry maps User, Role and the UserRole intermediate table.
func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	b := r.SetTable(User{}, "User").
		SetPrimaryKeyColumn("id", "Id").
		SetColumn("username", "UserName").
		SetForeignKeyColumn("roleid", "RoleId", "Role", "id")
	require.NoError(t, b.Err())
	b = r.SetTable(Role{}, "Role").
		SetPrimaryKeyColumn("id", "Id").
		SetColumn("name", "Name")
	require.NoError(t, b.Err())
	r.SetIntermediateTable("UserRole").
		Reference("UserId", "User", "id").
		Reference("RoleId", "Role", "id")
	return r
}

func newTestSession(t *testing.T, d Dialect) (*Session, *fakeConn) {
	t.Helper()
	conn := &fakeConn{dialect: d}
	sess := NewSession(context.Background(), conn, WithRegistry(newTestRegistry(t)))
	t.Cleanup(func() { sess.Close() })
	return sess, conn
}

func TestSessionInsertRow(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.scalar = int64(42)

	user := &User{UserName: "jane", RoleId: 2}
	require.NoError(t, sess.InsertRow(user))
	assert.Equal(t, 42, user.Id)
	cmd := conn.last()
	assert.Equal(t, "insert into [User] ([username],[roleid]) output inserted.[id] values (@username,@roleid)", cmd.text)
	assert.Equal(t, []Param{{Name: "@username", Value: "jane"}, {Name: "@roleid", Value: 2}}, cmd.params)

	// a value cannot receive the generated key
	err := sess.InsertRow(User{UserName: "john"})
	assert.True(t, IsKind(err, InvalidArgument), "%v", err)
	assert.Len(t, conn.commands, 1)
}

func TestSessionInsertRowNoGeneratedKey(t *testing.T) {
	sess, conn := newTestSession(t, SQLite)
	sess.Registry().SetTable(UserRole{}, "UserRole").
		SetPrimaryKeyColumn("UserId", "UserId", Generated(false)).
		SetPrimaryKeyColumn("RoleId", "RoleId", Generated(false))
	conn.affected = 1

	require.NoError(t, sess.InsertRow(UserRole{UserId: 1, RoleId: 2}))
	assert.Equal(t, "insert into `UserRole` (`UserId`,`RoleId`) values (@userid,@roleid)", conn.last().text)
}

func TestSessionInsertRowError(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.err = errors.New("connection reset")

	err := sess.InsertRow(&User{Id: 9, UserName: "jane"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot insert row")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestSessionUpdateAndDeleteRow(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.affected = 1

	n, err := sess.UpdateRow(&User{Id: 3, UserName: "jane", RoleId: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "update [User] set [username]=@username,[roleid]=@roleid where [id]=@id", conn.last().text)

	n, err = sess.UpdateRowWhere(&User{Id: 3, UserName: "jane", RoleId: 2}, Op("id", 3).And(Op("roleid", 1)))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	cmd := conn.last()
	assert.Equal(t, "update [User] set [username]=@username where [id]=@id and [roleid]=@roleid", cmd.text)
	assert.Equal(t, []Param{{Name: "@username", Value: "jane"}, {Name: "@id", Value: 3}, {Name: "@roleid", Value: 1}}, cmd.params)

	n, err = sess.DeleteRow(User{Id: 3})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "delete from [User] where [id]=@id", conn.last().text)
}

func TestSessionNothingExecutedOnError(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)

	_, err := sess.UpdateRowWhere(&User{Id: 3}, Op("username", "x").And(Op("roleid", 1)))
	assert.True(t, errors.Is(err, ErrNoColumnsToWrite))
	assert.Empty(t, conn.commands)

	_, err = SelectAll[User](sess, nil, "id up")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Empty(t, conn.commands)

	_, err = SelectAll[User](sess, Op("", 1))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Empty(t, conn.commands)
}

func TestSessionSelect(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.names = []string{"id", "username", "roleid"}
	conn.rows = [][]interface{}{
		{int64(1), "jane", int64(2)},
		{int64(2), "john  ", nil},
	}

	users, err := SelectAll[User](sess, Like("username", "j%"), "username")
	require.NoError(t, err)
	assert.Equal(t, []*User{
		{Id: 1, UserName: "jane", RoleId: 2},
		{Id: 2, UserName: "john"},
	}, users)
	assert.Equal(t, "select [id],[username],[roleid] from [User] where [username] like 'j%' order by [username]", conn.last().text)

	user, err := SelectOne[User](sess, Op("id", 1))
	require.NoError(t, err)
	assert.Equal(t, &User{Id: 1, UserName: "jane", RoleId: 2}, user)
	assert.Equal(t, "select top 1 [id],[username],[roleid] from [User] where [id]=@id", conn.last().text)

	conn.rows = nil
	user, err = SelectOne[User](sess, Op("id", 99))
	require.NoError(t, err)
	assert.Nil(t, user)
	users, err = SelectAll[User](sess, nil)
	require.NoError(t, err)
	assert.Empty(t, users)

	conn.scalar = int64(7)
	count, err := Count[User](sess, IsNotNull("roleid"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
	assert.Equal(t, "select count(*) from [User] where [roleid] is not null", conn.last().text)
}

func TestSessionDiscoversUnregisteredType(t *testing.T) {
	type Widget struct {
		Id   int
		Name string
	}
	sess, conn := newTestSession(t, Postgres)
	conn.names = []string{"Id", "Name"}
	conn.rows = [][]interface{}{{int64(5), "sprocket"}}

	widgets, err := SelectAll[Widget](sess, nil, "Name desc")
	require.NoError(t, err)
	assert.Equal(t, []*Widget{{Id: 5, Name: "sprocket"}}, widgets)
	assert.Equal(t, `select "Id","Name" from "Widget" order by "Name" DESC`, conn.last().text)
	assert.True(t, sess.Registry().IsTableRegistered(Widget{}))
}

func TestSelectQuery(t *testing.T) {
	sess, conn := newTestSession(t, MySQL)

	text, err := Select[User](sess).Where(Op("roleid", 2)).OrderBy("id desc").Top(10).SQL()
	require.NoError(t, err)
	assert.Equal(t, "select `id`,`username`,`roleid` from `User` where `roleid`=@roleid order by `id` DESC limit 10", text)
	created := len(conn.commands)

	_, err = Select[User](sess).Where(Op("id", 1)).Where(Op("id", 2)).All()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
	_, err = Select[User](sess).OrderBy("id").OrderBy("username").One()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
	_, err = Select[User](sess).Top(1).Top(2).Count()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
	_, err = Select[User](sess).Top(0).SQL()
	assert.True(t, errors.Is(err, ErrInvalidArgument))

	// no command is created for a query with a clause error, and SQL
	// does not execute the command it creates
	assert.Len(t, conn.commands, created)
	for _, cmd := range conn.commands {
		assert.False(t, cmd.executed, cmd.text)
	}
}

func TestInsertQuery(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.affected = 1

	n, err := sess.InsertInto("Role").Columns("name", "id").Values("admin", 1).Exec()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	cmd := conn.last()
	assert.Equal(t, "insert into [Role] ([name],[id]) values (@name,@id)", cmd.text)
	assert.Equal(t, []Param{{Name: "@name", Value: "admin"}, {Name: "@id", Value: 1}}, cmd.params)

	_, err = sess.InsertInto("Role").Columns("name").Values("a", "b").SQL()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = sess.InsertInto("Role").Columns("name").Columns("id").SQL()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
	_, err = sess.InsertInto("Role").SQL()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestUpdateQuery(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.affected = 3

	n, err := sess.Update("User").Set("roleid", 4).Where(Op("roleid", 2)).Exec()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	cmd := conn.last()
	assert.Equal(t, "update [User] set [roleid]=@roleid where [roleid]=@roleid2", cmd.text)
	assert.Equal(t, []Param{{Name: "@roleid", Value: 4}, {Name: "@roleid2", Value: 2}}, cmd.params)

	text, err := sess.Update("User").Set("username", nil).SQL()
	require.NoError(t, err)
	assert.Equal(t, "update [User] set [username]=@username", text)

	_, err = sess.Update("User").Set("roleid", 1).Set("RoleId", 2).SQL()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
	_, err = sess.Update("User").Set("roleid", 1).Where(nil).Where(nil).SQL()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
}

func TestDeleteQuery(t *testing.T) {
	sess, conn := newTestSession(t, Postgres)
	conn.affected = 2

	n, err := sess.DeleteFrom("User").Where(Between("id", 1, 10)).Exec()
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, `delete from "User" where "id" between 1 and 10`, conn.last().text)

	_, err = sess.DeleteFrom("User").Exec()
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	_, err = sess.DeleteFrom("User").Where(IsNull("roleid")).Where(nil).Exec()
	assert.True(t, errors.Is(err, ErrDuplicateClause))
}

func TestFetchOne(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.names = []string{"id", "name"}
	conn.rows = [][]interface{}{{int64(2), "admin"}}

	role, err := FetchOne[Role](sess, &User{Id: 1, RoleId: 2})
	require.NoError(t, err)
	assert.Equal(t, &Role{Id: 2, Name: "admin"}, role)
	cmd := conn.last()
	assert.Equal(t, "select top 1 [id],[name] from [Role] where [id]=@id", cmd.text)
	assert.Equal(t, []Param{{Name: "@id", Value: 2}}, cmd.params)

	_, err = FetchOne[User](sess, &Role{Id: 2})
	assert.True(t, errors.Is(err, ErrMissingKeyMapping))
	_, err = FetchOne[Role](sess, (*User)(nil))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestFetchMany(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.names = []string{"id", "username", "roleid"}
	conn.rows = [][]interface{}{{int64(1), "jane", int64(2)}, {int64(3), "john", int64(2)}}

	users, err := FetchMany[User](sess, &Role{Id: 2}, "username")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	cmd := conn.last()
	assert.Equal(t, "select [id],[username],[roleid] from [User] where [roleid]=@roleid order by [username]", cmd.text)
	assert.Equal(t, []Param{{Name: "@roleid", Value: 2}}, cmd.params)

	_, err = FetchMany[Role](sess, &User{Id: 1})
	assert.True(t, errors.Is(err, ErrMissingKeyMapping))
}

func TestFetchManyToMany(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	conn.names = []string{"id", "name"}
	conn.rows = [][]interface{}{{int64(2), "admin"}, {int64(4), "audit"}}

	roles, err := FetchManyToMany[Role](sess, &User{Id: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, []*Role{{Id: 2, Name: "admin"}, {Id: 4, Name: "audit"}}, roles)
	cmd := conn.last()
	assert.Equal(t, "select [Role].[id],[Role].[name] from [Role],[UserRole] where [UserRole].[RoleId]=[Role].[id] and [UserRole].[UserId]=@userid", cmd.text)
	assert.Equal(t, []Param{{Name: "@userid", Value: 1}}, cmd.params)

	_, err = FetchManyToMany[Role](sess, &User{Id: 1}, "UserGroup")
	assert.True(t, errors.Is(err, ErrMissingKeyMapping))

	// the intermediate table must reference both tables
	sess.Registry().SetIntermediateTable("RoleAudit").Reference("RoleId", "Role", "id")
	_, err = FetchManyToMany[Role](sess, &User{Id: 1}, "RoleAudit")
	assert.True(t, errors.Is(err, ErrMissingKeyMapping))
}

func TestSessionFactoryOverride(t *testing.T) {
	sess, conn := newTestSession(t, MSSQL)
	err := sess.Factories().Override(User{}, DeleteStatement, CommandFactoryFunc(func(conn Connection, req *CommandRequest) (Command, error) {
		user := req.Model.(*User)
		cmd := conn.CreateCommand("update [User] set [deleted]=1 where [id]=@id")
		cmd.AddParameter("@id", user.Id)
		return cmd, nil
	}))
	require.NoError(t, err)
	conn.affected = 1

	n, err := sess.DeleteRow(&User{Id: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "update [User] set [deleted]=1 where [id]=@id", conn.last().text)
	assert.True(t, conn.last().executed)
}

func TestSessionClose(t *testing.T) {
	sess, _ := newTestSession(t, MSSQL)
	assert.NoError(t, sess.Context().Err())
	assert.NoError(t, sess.Close())
	assert.Equal(t, context.Canceled, sess.Context().Err())
	assert.Panics(t, func() { NewSession(context.Background(), nil) })
}
