package sqlm

import (
	"reflect"
	"sync"
)

// Statement identifies the kind of command created by a CommandFactory.
type Statement int

// Kinds of statement.
const (
	SelectAllStatement Statement = iota
	SelectOneStatement
	CountStatement
	InsertStatement
	UpdateStatement
	DeleteStatement
)

var statementText = map[Statement]string{
	SelectAllStatement: "select all",
	SelectOneStatement: "select one",
	CountStatement:     "count",
	InsertStatement:    "insert",
	UpdateStatement:    "update",
	DeleteStatement:    "delete",
}

func (s Statement) String() string {
	if text, ok := statementText[s]; ok {
		return text
	}
	return "unknown"
}

// CommandRequest contains everything a CommandFactory needs
// to create a command.
type CommandRequest struct {
	Table    *TableMapping
	Model    interface{} // the model to insert, update or delete
	Where    *Condition
	Sorts    []string
	Limit    int
	Patterns PatternMode
	Models   *ModelFactory
}

func (req *CommandRequest) models() *ModelFactory {
	if req.Models == nil {
		req.Models = &ModelFactory{}
	}
	return req.Models
}

// CommandFactory creates the command for one kind of statement.
type CommandFactory interface {
	CreateCommand(conn Connection, req *CommandRequest) (Command, error)
}

// The CommandFactoryFunc type is an adapter to allow the use of
// ordinary functions as command factories.
type CommandFactoryFunc func(conn Connection, req *CommandRequest) (Command, error)

// CreateCommand calls f(conn, req).
func (f CommandFactoryFunc) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	return f(conn, req)
}

// GeneratedKeyAssigner is implemented by insert factories that can
// assign the key generated by the database to the inserted model.
type GeneratedKeyAssigner interface {
	AssignGeneratedKey(tm *TableMapping, model interface{}, result interface{}) error
}

// SelectAllFactory creates commands that select the rows matching
// the request condition.
type SelectAllFactory struct{}

// CreateCommand implements CommandFactory.
func (SelectAllFactory) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	return selectCommand(conn, req, req.Limit)
}

// SelectOneFactory creates commands that select the first row
// matching the request condition.
type SelectOneFactory struct{}

// CreateCommand implements CommandFactory.
func (SelectOneFactory) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	return selectCommand(conn, req, 1)
}

func selectCommand(conn Connection, req *CommandRequest, limit int) (Command, error) {
	var namer ParamNamer
	where, err := namer.Bind(req.Where, req.Patterns)
	if err != nil {
		return nil, err
	}
	text, err := NewQueryService(conn.Dialect()).Select(limit, req.Table.SelectColumns(), req.Table.TableName, where, req.Sorts)
	if err != nil {
		return nil, err
	}
	return newCommand(conn, text, nil, where), nil
}

// CountFactory creates commands that count the rows matching
// the request condition.
type CountFactory struct{}

// CreateCommand implements CommandFactory.
func (CountFactory) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	var namer ParamNamer
	where, err := namer.Bind(req.Where, req.Patterns)
	if err != nil {
		return nil, err
	}
	text, err := NewQueryService(conn.Dialect()).SelectCount(req.Table.TableName, where)
	if err != nil {
		return nil, err
	}
	return newCommand(conn, text, nil, where), nil
}

// InsertFactory creates commands that insert the request model.
// If the table has a generated key, the command returns its value.
type InsertFactory struct{}

// CreateCommand implements CommandFactory.
func (InsertFactory) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	values, err := req.models().ExtractColumnValues(req.Model, req.Table, nil)
	if err != nil {
		return nil, err
	}
	key, err := req.Table.GeneratedKey()
	if err != nil {
		return nil, err
	}
	var keyName string
	if key != nil {
		keyName = key.ColumnName
	}
	var namer ParamNamer
	params := namer.Values(values)
	text, err := NewQueryService(conn.Dialect()).InsertInto(req.Table.TableName, params, keyName)
	if err != nil {
		return nil, err
	}
	return newCommand(conn, text, params, nil), nil
}

// AssignGeneratedKey converts result, the value returned by executing an
// insert command, to the type of the generated key field and assigns
// it to model. It does nothing if the table has no generated key or
// result is nil.
func (InsertFactory) AssignGeneratedKey(tm *TableMapping, model interface{}, result interface{}) error {
	key, err := tm.GeneratedKey()
	if err != nil || key == nil || result == nil {
		return err
	}
	rv := reflect.ValueOf(model)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return newError(InvalidArgument, "model must be a non-nil pointer to assign generated key",
			"table", tm.TableName,
			"type", typeString(rv.Type()),
		)
	}
	value, err := coerce(key.ColumnName, result, key.accessor.Type())
	if err != nil {
		return err
	}
	key.accessor.Set(rv, value)
	return nil
}

// UpdateFactory creates commands that update the request model. If the
// request has no condition, the row is identified by its primary key.
type UpdateFactory struct{}

// CreateCommand implements CommandFactory.
func (UpdateFactory) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	cond, err := keyCondition(req)
	if err != nil {
		return nil, err
	}
	// the columns of the condition are needed before the values are
	// named, because value parameters come first
	pinned, err := Bind(cond)
	if err != nil {
		return nil, err
	}
	values, err := req.models().ExtractColumnValues(req.Model, req.Table, pinned)
	if err != nil {
		return nil, err
	}
	var namer ParamNamer
	params := namer.Values(values)
	where, err := namer.Bind(cond, req.Patterns)
	if err != nil {
		return nil, err
	}
	text, err := NewQueryService(conn.Dialect()).Update(req.Table.TableName, params, where)
	if err != nil {
		return nil, err
	}
	return newCommand(conn, text, params, where), nil
}

// DeleteFactory creates commands that delete the request model. If the
// request has no condition, the row is identified by its primary key.
type DeleteFactory struct{}

// CreateCommand implements CommandFactory.
func (DeleteFactory) CreateCommand(conn Connection, req *CommandRequest) (Command, error) {
	cond, err := keyCondition(req)
	if err != nil {
		return nil, err
	}
	var namer ParamNamer
	where, err := namer.Bind(cond, req.Patterns)
	if err != nil {
		return nil, err
	}
	text, err := NewQueryService(conn.Dialect()).Delete(req.Table.TableName, where)
	if err != nil {
		return nil, err
	}
	return newCommand(conn, text, nil, where), nil
}

func keyCondition(req *CommandRequest) (*Condition, error) {
	if req.Where != nil {
		return req.Where, nil
	}
	return req.models().KeyCondition(req.Model, req.Table)
}

// newCommand creates the command and adds the value parameters,
// followed by the condition parameters.
func newCommand(conn Connection, text string, values []BoundParameter, where *BoundCondition) Command {
	cmd := conn.CreateCommand(text)
	for _, v := range values {
		for _, p := range v.Params {
			cmd.AddParameter(p.Name, p.Value)
		}
	}
	for _, p := range where.Params() {
		cmd.AddParameter(p.Name, p.Value)
	}
	return cmd
}

// Factories holds the command factories used by a session. Default
// factories can be overridden for individual model types.
type Factories struct {
	mu        sync.RWMutex
	defaults  map[Statement]CommandFactory
	overrides map[reflect.Type]map[Statement]CommandFactory
}

// NewFactories returns the default command factories.
func NewFactories() *Factories {
	return &Factories{
		defaults: map[Statement]CommandFactory{
			SelectAllStatement: SelectAllFactory{},
			SelectOneStatement: SelectOneFactory{},
			CountStatement:     CountFactory{},
			InsertStatement:    InsertFactory{},
			UpdateStatement:    UpdateFactory{},
			DeleteStatement:    DeleteFactory{},
		},
		overrides: make(map[reflect.Type]map[Statement]CommandFactory),
	}
}

// SetDefault replaces the default factory for a kind of statement.
func (f *Factories) SetDefault(stmt Statement, factory CommandFactory) {
	f.mu.Lock()
	f.defaults[stmt] = factory
	f.mu.Unlock()
}

// Override sets the factory for a kind of statement for one model type.
// The model can be a struct, a pointer to a struct or a reflect.Type.
func (f *Factories) Override(model interface{}, stmt Statement, factory CommandFactory) error {
	modelType, err := getModelType(model)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.overrides[modelType]
	if !ok {
		m = make(map[Statement]CommandFactory)
		f.overrides[modelType] = m
	}
	m[stmt] = factory
	return nil
}

// For returns the factory for a kind of statement for the model type.
func (f *Factories) For(modelType reflect.Type, stmt Statement) CommandFactory {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if factory, ok := f.overrides[modelType][stmt]; ok {
		return factory
	}
	return f.defaults[stmt]
}
