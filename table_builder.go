package sqlm

import (
	"strings"
)

// ColumnOption configures a column declared with a TableBuilder.
type ColumnOption func(col *ColumnMapping)

// Generated returns an option that sets whether the column value
// is generated by the database.
func Generated(generated bool) ColumnOption {
	return func(col *ColumnMapping) {
		col.IsDatabaseGenerated = generated
	}
}

// Ignored returns an option that sets whether the column is
// skipped when reading and writing models.
func Ignored(ignored bool) ColumnOption {
	return func(col *ColumnMapping) {
		col.SetIgnored(ignored)
	}
}

// TableBuilder declares the columns of a table mapping. Each method
// returns the builder so that calls can be chained. The first error
// encountered is kept and returned by Err, and later calls do nothing.
//
//	err := registry.SetTable(User{}, "User").
//	    SetPrimaryKeyColumn("Id", "ID").
//	    SetColumn("UserName", "Name").
//	    SetForeignKeyColumn("RoleId", "RoleID", "Role", "Id").
//	    Err()
type TableBuilder struct {
	table *TableMapping
	err   error
}

// SetPrimaryKeyColumn declares a primary key column bound to the
// field. Primary key columns are generated by the database unless
// the Generated(false) option is given.
func (b *TableBuilder) SetPrimaryKeyColumn(name string, field string, opts ...ColumnOption) *TableBuilder {
	opts = append([]ColumnOption{Generated(true)}, opts...)
	return b.set(name, field, func(col *ColumnMapping) {
		col.IsPrimaryKey = true
	}, opts)
}

// SetColumn declares a column bound to the field.
func (b *TableBuilder) SetColumn(name string, field string, opts ...ColumnOption) *TableBuilder {
	return b.set(name, field, nil, opts)
}

// SetForeignKeyColumn declares a column bound to the field that
// refers to refColumn in refTable.
func (b *TableBuilder) SetForeignKeyColumn(name string, field string, refTable string, refColumn string, opts ...ColumnOption) *TableBuilder {
	if b.err == nil && (strings.TrimSpace(refTable) == "" || strings.TrimSpace(refColumn) == "") {
		b.err = newError(InvalidArgument, "foreign key reference is required",
			"table", b.table.TableName,
			"column", name,
		)
	}
	return b.set(name, field, func(col *ColumnMapping) {
		col.ForeignKey = &ForeignKeyRef{Table: refTable, Column: refColumn}
	}, opts)
}

// IgnoreCase matches column names against the mapping, and against
// field names, without regard to case.
func (b *TableBuilder) IgnoreCase() *TableBuilder {
	if b.err == nil {
		b.table.setIgnoreCase(true)
	}
	return b
}

// Table returns the table mapping being built.
func (b *TableBuilder) Table() *TableMapping {
	return b.table
}

// Err returns the first error encountered while building the table mapping.
func (b *TableBuilder) Err() error {
	return b.err
}

func (b *TableBuilder) set(name string, field string, init func(*ColumnMapping), opts []ColumnOption) *TableBuilder {
	if b.err != nil {
		return b
	}
	if strings.TrimSpace(name) == "" {
		b.err = newError(InvalidArgument, "column name is required",
			"table", b.table.TableName,
			"field", field,
		)
		return b
	}
	acc, ok := lookupAccessor(b.table.ModelType, field, ExactCase)
	if !ok {
		b.err = newError(InvalidArgument, "field not found",
			"table", b.table.TableName,
			"column", name,
			"field", field,
			"type", b.table.ModelType.String(),
		)
		return b
	}
	col := &ColumnMapping{
		ColumnName:   name,
		PropertyName: acc.Name(),
		ModelType:    b.table.ModelType,
		TableName:    b.table.TableName,
		accessor:     acc,
	}
	if init != nil {
		init(col)
	}
	for _, opt := range opts {
		opt(col)
	}
	b.table.setColumn(col)
	return b
}
