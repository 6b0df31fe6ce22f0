package sqlm

import (
	"reflect"
	"strings"
	"sync"

	"github.com/jjeffery/sqlm/private/column"
	"github.com/jjeffery/sqlm/private/naming"
)

// NamingConvention infers database names from Go names.
type NamingConvention = naming.Convention

// Naming conventions.
var (
	SameCase  NamingConvention = naming.SameCase  // UserName -> UserName
	SnakeCase NamingConvention = naming.SnakeCase // UserName -> user_name
	LowerCase NamingConvention = naming.LowerCase // UserName -> username
)

// DefaultPrimaryKeyName is the field name that is treated as a generated
// primary key when no field is tagged as a primary key.
const DefaultPrimaryKeyName = "Id"

// A RegistryOption provides optional configuration and is supplied
// when creating a new Registry.
type RegistryOption func(r *Registry)

// WithNamingConvention creates an option that sets the convention used
// to infer table and column names during discovery.
func WithNamingConvention(convention NamingConvention) RegistryOption {
	return func(r *Registry) {
		if convention != nil {
			r.convention = convention
		}
	}
}

// WithPrimaryKeyName creates an option that sets the field name treated
// as a generated primary key when no field is tagged as a primary key.
func WithPrimaryKeyName(name string) RegistryOption {
	return func(r *Registry) {
		r.pkName = name
	}
}

// Registry holds the table mappings for model types, and the
// intermediate tables used for many-to-many relations.
//
// A Registry is safe for concurrent use, but mappings should be
// declared before queries are executed: a query that is rendered while
// its mapping is being changed may see the mapping before or after the change.
type Registry struct {
	mu            sync.RWMutex
	tables        map[reflect.Type]*TableMapping
	intermediates map[string]*IntermediateTable
	convention    NamingConvention
	pkName        string
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tables:        make(map[reflect.Type]*TableMapping),
		intermediates: make(map[string]*IntermediateTable),
		convention:    SameCase,
		pkName:        DefaultPrimaryKeyName,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetTable declares the table for a model type, replacing any mapping
// already registered or discovered for it. The model can be a struct,
// a pointer to a struct or a reflect.Type. Columns are declared with
// the returned builder.
func (r *Registry) SetTable(model interface{}, tableName string) *TableBuilder {
	modelType, err := getModelType(model)
	if err != nil {
		return &TableBuilder{table: newTableMapping(nil, tableName), err: err}
	}
	tm := newTableMapping(modelType, tableName)
	b := &TableBuilder{table: tm}
	if strings.TrimSpace(tableName) == "" {
		b.err = newError(InvalidArgument, "table name is required", "type", modelType.String())
		return b
	}
	r.mu.Lock()
	r.tables[modelType] = tm
	r.mu.Unlock()
	return b
}

// TryGetTable returns the table mapping for the model type, or nil if
// none has been declared or discovered.
func (r *Registry) TryGetTable(model interface{}) *TableMapping {
	modelType, err := getModelType(model)
	if err != nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[modelType]
}

// IsTableRegistered reports whether a table mapping exists for the model type.
func (r *Registry) IsTableRegistered(model interface{}) bool {
	return r.TryGetTable(model) != nil
}

// TableFor returns the table mapping for the model type, discovering
// it if it has not been declared.
func (r *Registry) TableFor(model interface{}) (*TableMapping, error) {
	if tm := r.TryGetTable(model); tm != nil {
		return tm, nil
	}
	return r.DiscoverMappingFor(model)
}

// DiscoverMappingFor builds the table mapping for the model type from its
// struct fields and registers it. Struct tags declare the column name and
// options:
//
//	ID     int    `sql:"id,pk autoincrement"`
//	RoleID int    `sql:"role_id,references Role.id"`
//	Notes  string `sql:"-"`
//
// A field tagged "-" or "ignore" is mapped but ignored. If no field is
// tagged as a primary key, a top-level field named by the registry's primary
// key name (default "Id", any case) is the generated primary key. The table
// name comes from a "table" tag on any field, or from the type name.
//
// If another goroutine registers a mapping for the type first,
// that mapping is returned.
func (r *Registry) DiscoverMappingFor(model interface{}) (*TableMapping, error) {
	modelType, err := getModelType(model)
	if err != nil {
		return nil, err
	}
	tm, err := r.discover(modelType)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tables[modelType]; ok {
		return existing, nil
	}
	r.tables[modelType] = tm
	return tm, nil
}

func (r *Registry) discover(modelType reflect.Type) (*TableMapping, error) {
	tableName, ok := column.TableName(modelType)
	if !ok {
		if modelType.Name() == "" {
			return nil, newError(InvalidArgument, "cannot determine table name for anonymous type",
				"type", modelType.String(),
			)
		}
		tableName = r.convention.TableName(modelType.Name())
	}
	tm := newTableMapping(modelType, tableName)

	infos := column.ListForType(modelType)
	var taggedPK bool
	for _, info := range infos {
		if info.Tag.PrimaryKey {
			taggedPK = true
			break
		}
	}

	var conventionPK bool
	for _, info := range infos {
		col := &ColumnMapping{
			ColumnName:          info.Path.ColumnName(r.convention),
			PropertyName:        info.FieldPath(),
			ModelType:           modelType,
			TableName:           tableName,
			IsPrimaryKey:        info.Tag.PrimaryKey,
			IsDatabaseGenerated: info.Tag.Generated,
			accessor:            &fieldAccessor{info: info},
		}
		col.SetIgnored(info.Tag.Ignore)
		if ref := info.Tag.References; ref != "" {
			col.ForeignKey = parseReference(ref)
		}
		if !taggedPK && !conventionPK && !info.Tag.Ignore && len(info.Path) == 1 && strings.EqualFold(info.Field.Name, r.pkName) {
			col.IsPrimaryKey = true
			col.IsDatabaseGenerated = true
			conventionPK = true
		}
		tm.setColumn(col)
	}
	return tm, nil
}

// parseReference parses a "Table.Column" reference. The table can
// itself contain dots, as in "dbo.Role.Id".
func parseReference(ref string) *ForeignKeyRef {
	i := strings.LastIndex(ref, ".")
	if i < 0 {
		return &ForeignKeyRef{Table: ref}
	}
	return &ForeignKeyRef{Table: ref[:i], Column: ref[i+1:]}
}

// SetIntermediateTable declares the intermediate table for a many-to-many
// relation, or returns the table already declared with that name. The join
// keys are declared with the Reference method of the returned table.
func (r *Registry) SetIntermediateTable(name string) *IntermediateTable {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(name)
	if it, ok := r.intermediates[key]; ok {
		return it
	}
	it := &IntermediateTable{Name: name}
	r.intermediates[key] = it
	return it
}

// IntermediateTable returns the intermediate table with the given name.
func (r *Registry) IntermediateTable(name string) (*IntermediateTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.intermediates[strings.ToLower(name)]
	return it, ok
}

// IntermediateBetween returns an intermediate table that references
// both tables. If more than one qualifies, the one with the lowest
// name is returned so that the choice is stable.
func (r *Registry) IntermediateBetween(table1, table2 string) (*IntermediateTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *IntermediateTable
	for _, it := range r.intermediates {
		if it.References(table1) && it.References(table2) {
			if found == nil || it.Name < found.Name {
				found = it
			}
		}
	}
	return found, found != nil
}
