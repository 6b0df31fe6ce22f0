package sqlm

import (
	"strings"
	"sync"
)

// JoinKey pairs a column of an intermediate table with the
// key column of a table that it references.
type JoinKey struct {
	LocalColumn      string
	ReferencedTable  string
	ReferencedColumn string
}

// IntermediateTable is the join table behind a many-to-many relation.
//
//	registry.SetIntermediateTable("UserRole").
//	    Reference("UserId", "User", "Id").
//	    Reference("RoleId", "Role", "Id")
type IntermediateTable struct {
	Name string

	mu   sync.RWMutex
	keys []JoinKey
}

// Reference declares that localColumn of the intermediate table refers
// to refColumn of refTable. A composite key is declared by calling
// Reference once for each of its columns.
func (it *IntermediateTable) Reference(localColumn string, refTable string, refColumn string) *IntermediateTable {
	it.mu.Lock()
	defer it.mu.Unlock()
	key := JoinKey{
		LocalColumn:      localColumn,
		ReferencedTable:  refTable,
		ReferencedColumn: refColumn,
	}
	for i, k := range it.keys {
		if k.LocalColumn == localColumn {
			it.keys[i] = key
			return it
		}
	}
	it.keys = append(it.keys, key)
	return it
}

// KeysFor returns the join keys that refer to refTable.
func (it *IntermediateTable) KeysFor(refTable string) []JoinKey {
	it.mu.RLock()
	defer it.mu.RUnlock()
	var keys []JoinKey
	for _, k := range it.keys {
		if strings.EqualFold(k.ReferencedTable, refTable) {
			keys = append(keys, k)
		}
	}
	return keys
}

// References reports whether any join key refers to refTable.
func (it *IntermediateTable) References(refTable string) bool {
	return len(it.KeysFor(refTable)) > 0
}

// JoinPairs returns the column pairs that join the intermediate
// table to refTable, qualified by table name.
func (it *IntermediateTable) JoinPairs(refTable string) []ColumnPair {
	var pairs []ColumnPair
	for _, k := range it.KeysFor(refTable) {
		pairs = append(pairs, ColumnPair{
			Left:  it.Name + "." + k.LocalColumn,
			Right: refTable + "." + k.ReferencedColumn,
		})
	}
	return pairs
}
