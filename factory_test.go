package sqlm

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records the commands it creates. Executing a command
// returns the canned results.
type fakeConn struct {
	dialect  Dialect
	commands []*fakeCommand
	affected int64
	scalar   interface{}
	names    []string
	rows     [][]interface{}
	err      error
}

func (c *fakeConn) Dialect() Dialect {
	return c.dialect
}

func (c *fakeConn) CreateCommand(text string) Command {
	cmd := &fakeCommand{conn: c, text: text}
	c.commands = append(c.commands, cmd)
	return cmd
}

func (c *fakeConn) last() *fakeCommand {
	if len(c.commands) == 0 {
		return nil
	}
	return c.commands[len(c.commands)-1]
}

type fakeCommand struct {
	conn     *fakeConn
	text     string
	params   []Param
	executed bool
}

func (cmd *fakeCommand) Text() string { return cmd.text }

func (cmd *fakeCommand) AddParameter(name string, value interface{}) {
	cmd.params = append(cmd.params, Param{Name: name, Value: value})
}

func (cmd *fakeCommand) Parameters() []Param { return cmd.params }

func (cmd *fakeCommand) ExecNonQuery(ctx context.Context) (int64, error) {
	cmd.executed = true
	return cmd.conn.affected, cmd.conn.err
}

func (cmd *fakeCommand) ExecScalar(ctx context.Context) (interface{}, error) {
	cmd.executed = true
	return cmd.conn.scalar, cmd.conn.err
}

func (cmd *fakeCommand) ExecReader(ctx context.Context) (Rows, error) {
	cmd.executed = true
	if cmd.conn.err != nil {
		return nil, cmd.conn.err
	}
	return &fakeRows{names: cmd.conn.names, rows: cmd.conn.rows, pos: -1}, nil
}

type fakeRows struct {
	names []string
	rows  [][]interface{}
	pos   int
}

func (r *fakeRows) FieldCount() int { return len(r.names) }

func (r *fakeRows) Name(i int) string { return r.names[i] }

func (r *fakeRows) Value(i int) interface{} { return r.rows[r.pos][i] }

func (r *fakeRows) IsNull(i int) bool { return r.Value(i) == nil }

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() error { return nil }

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func newRequest(tm *TableMapping) *CommandRequest {
	return &CommandRequest{Table: tm}
}

func TestSelectFactories(t *testing.T) {
	conn := &fakeConn{dialect: MSSQL}
	tm := newUserTable(NewRegistry())
	req := newRequest(tm)
	req.Where = Op("username", "jane").And(Like("username", "j%"))
	req.Sorts = []string{"username desc", "id"}
	req.Limit = 5

	cmd, err := SelectAllFactory{}.CreateCommand(conn, req)
	require.NoError(t, err)
	assert.Equal(t, "select top 5 [id],[username],[roleid] from [User] where [username]=@username and [username] like 'j%' order by [username] DESC,[id]", cmd.Text())
	assert.Equal(t, []Param{{Name: "@username", Value: "jane"}}, cmd.Parameters())

	cmd, err = SelectOneFactory{}.CreateCommand(&fakeConn{dialect: Postgres}, req)
	require.NoError(t, err)
	assert.Equal(t, `select "id","username","roleid" from "User" where "username"=@username and "username" like 'j%' order by "username" DESC,"id" limit 1`, cmd.Text())

	req.Patterns = BoundPatterns
	cmd, err = CountFactory{}.CreateCommand(conn, req)
	require.NoError(t, err)
	assert.Equal(t, "select count(*) from [User] where [username]=@username and [username] like @username2", cmd.Text())
	assert.Equal(t, []Param{{Name: "@username", Value: "jane"}, {Name: "@username2", Value: "j%"}}, cmd.Parameters())

	req.Sorts = []string{"id sideways"}
	_, err = SelectAllFactory{}.CreateCommand(conn, req)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestInsertFactory(t *testing.T) {
	tm := newUserTable(NewRegistry())
	req := newRequest(tm)
	req.Model = &User{UserName: "jane", RoleId: 2}

	tests := []struct {
		dialect Dialect
		text    string
	}{
		{MSSQL, "insert into [User] ([username],[roleid]) output inserted.[id] values (@username,@roleid)"},
		{MySQL, "insert into `User` (`username`,`roleid`) values (@username,@roleid);select last_insert_id()"},
		{SQLite, "insert into `User` (`username`,`roleid`) values (@username,@roleid);select last_insert_rowid()"},
		{Postgres, `insert into "User" ("username","roleid") values (@username,@roleid) returning "id"`},
	}
	for _, tt := range tests {
		cmd, err := InsertFactory{}.CreateCommand(&fakeConn{dialect: tt.dialect}, req)
		require.NoError(t, err, tt.dialect.Name())
		assert.Equal(t, tt.text, cmd.Text(), tt.dialect.Name())
		assert.Equal(t, []Param{{Name: "@username", Value: "jane"}, {Name: "@roleid", Value: 2}}, cmd.Parameters())
	}

	// no generated key
	tm = NewRegistry().SetTable(UserRole{}, "UserRole").
		SetPrimaryKeyColumn("UserId", "UserId", Generated(false)).
		SetPrimaryKeyColumn("RoleId", "RoleId", Generated(false)).
		Table()
	req = newRequest(tm)
	req.Model = UserRole{UserId: 1, RoleId: 2}
	cmd, err := InsertFactory{}.CreateCommand(&fakeConn{dialect: MSSQL}, req)
	require.NoError(t, err)
	assert.Equal(t, "insert into [UserRole] ([UserId],[RoleId]) values (@userid,@roleid)", cmd.Text())
}

func TestAssignGeneratedKey(t *testing.T) {
	tm := newUserTable(NewRegistry())
	var f InsertFactory

	user := &User{UserName: "jane"}
	require.NoError(t, f.AssignGeneratedKey(tm, user, int64(42)))
	assert.Equal(t, 42, user.Id)
	require.NoError(t, f.AssignGeneratedKey(tm, user, []byte("43")))
	assert.Equal(t, 43, user.Id)

	// nil result leaves the key unchanged
	require.NoError(t, f.AssignGeneratedKey(tm, user, nil))
	assert.Equal(t, 43, user.Id)

	err := f.AssignGeneratedKey(tm, User{}, int64(1))
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	err = f.AssignGeneratedKey(tm, user, "not a number")
	assert.Error(t, err)
}

func TestUpdateFactory(t *testing.T) {
	conn := &fakeConn{dialect: MSSQL}
	tm := newUserTable(NewRegistry())
	req := newRequest(tm)
	req.Model = &User{Id: 7, UserName: "jane", RoleId: 2}

	// identified by primary key
	cmd, err := UpdateFactory{}.CreateCommand(conn, req)
	require.NoError(t, err)
	assert.Equal(t, "update [User] set [username]=@username,[roleid]=@roleid where [id]=@id", cmd.Text())
	assert.Equal(t, []Param{
		{Name: "@username", Value: "jane"},
		{Name: "@roleid", Value: 2},
		{Name: "@id", Value: 7},
	}, cmd.Parameters())

	// columns compared for equality are not set
	req.Where = Op("roleid", 1).And(Op("username", "old"))
	_, err = UpdateFactory{}.CreateCommand(conn, req)
	assert.True(t, errors.Is(err, ErrNoColumnsToWrite))

	// a non-generated key is set unless it is in the condition
	tm = NewRegistry().SetTable(User{}, "User").
		SetPrimaryKeyColumn("id", "Id", Generated(false)).
		SetColumn("username", "UserName").
		Table()
	req = newRequest(tm)
	req.Model = &User{Id: 7, UserName: "jane"}
	req.Where = Op("username", "old")
	cmd, err = UpdateFactory{}.CreateCommand(conn, req)
	require.NoError(t, err)
	assert.Equal(t, "update [User] set [id]=@id,[RoleId]=@roleid where [username]=@username", cmd.Text())
	assert.Equal(t, []Param{
		{Name: "@id", Value: 7},
		{Name: "@roleid", Value: 0},
		{Name: "@username", Value: "old"},
	}, cmd.Parameters())

	// no key to identify the row
	req = newRequest(NewRegistry().SetTable(Role{}, "Role").SetColumn("Name", "Name").Table())
	req.Model = &Role{Name: "admin"}
	_, err = UpdateFactory{}.CreateCommand(conn, req)
	assert.True(t, errors.Is(err, ErrMissingKeyMapping))
}

func TestDeleteFactory(t *testing.T) {
	conn := &fakeConn{dialect: MySQL}
	tm := newUserTable(NewRegistry())
	req := newRequest(tm)
	req.Model = User{Id: 3}

	cmd, err := DeleteFactory{}.CreateCommand(conn, req)
	require.NoError(t, err)
	assert.Equal(t, "delete from `User` where `id`=@id", cmd.Text())
	assert.Equal(t, []Param{{Name: "@id", Value: 3}}, cmd.Parameters())
}

func TestFactoriesOverride(t *testing.T) {
	f := NewFactories()
	userType := reflect.TypeOf(User{})
	assert.Equal(t, InsertFactory{}, f.For(userType, InsertStatement))

	var called bool
	custom := CommandFactoryFunc(func(conn Connection, req *CommandRequest) (Command, error) {
		called = true
		return conn.CreateCommand("exec insert_user"), nil
	})
	require.NoError(t, f.Override(&User{}, InsertStatement, custom))
	cmd, err := f.For(userType, InsertStatement).CreateCommand(&fakeConn{dialect: MSSQL}, nil)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "exec insert_user", cmd.Text())

	// other types and statements are unaffected
	assert.Equal(t, InsertFactory{}, f.For(reflect.TypeOf(Role{}), InsertStatement))
	assert.Equal(t, UpdateFactory{}, f.For(userType, UpdateStatement))

	f.SetDefault(CountStatement, custom)
	_, isFunc := f.For(userType, CountStatement).(CommandFactoryFunc)
	assert.True(t, isFunc)

	assert.True(t, errors.Is(f.Override(42, InsertStatement, custom), ErrNoDefaultConstructor))
}

func TestStatementString(t *testing.T) {
	assert.Equal(t, "select all", SelectAllStatement.String())
	assert.Equal(t, "delete", DeleteStatement.String())
	assert.Equal(t, "unknown", Statement(99).String())
}
