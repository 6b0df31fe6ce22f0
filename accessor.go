package sqlm

import (
	"reflect"
	"strings"
	"sync"

	"github.com/jjeffery/sqlm/private/column"
)

// ResolutionPolicy determines how names are matched when
// resolving columns and fields.
type ResolutionPolicy int

// Resolution policies.
const (
	ExactCase ResolutionPolicy = iota
	IgnoreCase
)

func (p ResolutionPolicy) String() string {
	if p == IgnoreCase {
		return "ignore case"
	}
	return "exact case"
}

// PropertyAccessor gets and sets one field of a model.
type PropertyAccessor interface {
	// Name is the dotted field path, eg "Address.Street".
	Name() string

	// Type is the type of the field.
	Type() reflect.Type

	// Get returns the value of the field in model, which must be
	// a struct value or a pointer to one. It returns false if the
	// field is inside a nil embedded pointer.
	Get(model reflect.Value) (interface{}, bool)

	// Set assigns value, which must be assignable to Type, to the
	// field in model, which must be addressable. Nil embedded pointers
	// are allocated as required.
	Set(model reflect.Value, value reflect.Value)
}

type fieldAccessor struct {
	info *column.Info
}

func (fa *fieldAccessor) Name() string {
	return fa.info.FieldPath()
}

func (fa *fieldAccessor) Type() reflect.Type {
	return fa.info.Field.Type
}

func (fa *fieldAccessor) Get(model reflect.Value) (interface{}, bool) {
	v, ok := fa.info.Index.Value(model)
	if !ok {
		return nil, false
	}
	return v.Interface(), true
}

func (fa *fieldAccessor) Set(model reflect.Value, value reflect.Value) {
	fa.info.Index.Settable(model).Set(value)
}

// accessorKey identifies the accessors of a model type for a
// resolution policy. Accessors for ignore-case lookups are keyed
// by the lower-case field path.
type accessorKey struct {
	modelType reflect.Type
	policy    ResolutionPolicy
}

// accessorCache is a cache of field accessors per model type.
type accessorCache struct {
	mu sync.RWMutex
	m  map[accessorKey]map[string]PropertyAccessor
}

var accessors accessorCache

// lookupAccessor returns the accessor for the named field of modelType.
// The name is a field name, or a dotted path for a field in a nested struct.
func lookupAccessor(modelType reflect.Type, name string, policy ResolutionPolicy) (PropertyAccessor, bool) {
	m := accessors.forType(modelType, policy)
	if policy == IgnoreCase {
		name = strings.ToLower(name)
	}
	acc, ok := m[name]
	return acc, ok
}

func (c *accessorCache) forType(modelType reflect.Type, policy ResolutionPolicy) map[string]PropertyAccessor {
	key := accessorKey{modelType: modelType, policy: policy}
	c.mu.RLock()
	m, ok := c.m[key]
	c.mu.RUnlock()
	if ok {
		return m
	}

	m = make(map[string]PropertyAccessor)
	for _, info := range column.ListForType(modelType) {
		name := info.FieldPath()
		if policy == IgnoreCase {
			name = strings.ToLower(name)
		}
		if _, exists := m[name]; exists {
			// first field wins, as it does for promoted fields
			continue
		}
		m[name] = &fieldAccessor{info: info}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.m == nil {
		c.m = make(map[accessorKey]map[string]PropertyAccessor)
	}
	if existing, ok := c.m[key]; ok {
		// another goroutine beat us to it, use its value
		return existing
	}
	c.m[key] = m
	return m
}
