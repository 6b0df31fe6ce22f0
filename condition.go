package sqlm

import "strings"

// ConditionKind identifies the type of test performed by a condition.
type ConditionKind int

// Kinds of condition.
const (
	KindOp      ConditionKind = iota // column <operator> @param
	KindLike                         // column like 'pattern'
	KindBetween                      // column between v1 and v2
	KindIsNull                       // column is [not] null
)

// BoolOp joins a chained condition to the terms before it.
type BoolOp string

// Boolean operators.
const (
	And BoolOp = "and"
	Or  BoolOp = "or"
)

// Condition is a filter term that can be chained with other
// filter terms using And and Or.
//
// The chain is flat and left-associative, and is rendered without
// parentheses: a.And(b).Or(c) renders as "a and b or c". Grouping
// such as "a and (b or c)" cannot be expressed.
type Condition struct {
	column   string
	kind     ConditionKind
	operator string
	value    interface{}
	value2   interface{}
	isNull   bool
	chain    []chained
	err      error
}

type chained struct {
	op   BoolOp
	cond *Condition
}

// Op returns a condition that tests the column for equality with value.
// The value is bound as a command parameter.
func Op(column string, value interface{}) *Condition {
	return OpWith(column, "=", value)
}

// OpWith returns a condition that compares the column with value
// using operator, eg OpWith("Age", ">=", 18). The value is bound as
// a command parameter.
func OpWith(column string, operator string, value interface{}) *Condition {
	operator = strings.TrimSpace(operator)
	if operator == "" {
		operator = "="
	}
	return newCondition(column, KindOp, func(c *Condition) {
		c.operator = operator
		c.value = value
	})
}

// Like returns a condition that matches the column against pattern.
func Like(column string, pattern interface{}) *Condition {
	return newCondition(column, KindLike, func(c *Condition) {
		c.value = pattern
	})
}

// Between returns a condition that tests whether the column lies between
// v1 and v2 inclusive.
func Between(column string, v1, v2 interface{}) *Condition {
	return newCondition(column, KindBetween, func(c *Condition) {
		c.value = v1
		c.value2 = v2
	})
}

// IsNull returns a condition that tests whether the column is null.
func IsNull(column string) *Condition {
	return newCondition(column, KindIsNull, func(c *Condition) {
		c.isNull = true
	})
}

// IsNotNull returns a condition that tests whether the column is not null.
func IsNotNull(column string) *Condition {
	return newCondition(column, KindIsNull, nil)
}

// newCondition records an InvalidArgument error for a blank column. The
// error is reported when the condition is bound, before any SQL is rendered.
func newCondition(column string, kind ConditionKind, init func(*Condition)) *Condition {
	c := &Condition{
		column: column,
		kind:   kind,
	}
	if strings.TrimSpace(column) == "" {
		c.err = newError(InvalidArgument, "column name is required", "kind", kind.String())
	}
	if init != nil {
		init(c)
	}
	return c
}

// And appends other to the chain and returns c.
func (c *Condition) And(other *Condition) *Condition {
	return c.append(And, other)
}

// Or appends other to the chain and returns c.
func (c *Condition) Or(other *Condition) *Condition {
	return c.append(Or, other)
}

func (c *Condition) append(op BoolOp, other *Condition) *Condition {
	if other == nil || other == c {
		if c.err == nil {
			msg := "nil condition"
			if other == c {
				msg = "condition chained to itself"
			}
			c.err = newError(InvalidArgument, msg, "op", string(op), "column", c.column)
		}
		return c
	}
	c.chain = append(c.chain, chained{op: op, cond: other})
	return c
}

// Column returns the column tested by the condition.
func (c *Condition) Column() string {
	return c.column
}

// Kind returns the kind of test performed by the condition.
func (c *Condition) Kind() ConditionKind {
	return c.kind
}

// Err returns the error, if any, recorded while the condition
// or any condition chained to it was constructed. A chain that
// leads back to a condition already in the chain is an error.
func (c *Condition) Err() error {
	return c.check(make(map[*Condition]bool))
}

func (c *Condition) check(path map[*Condition]bool) error {
	if path[c] {
		return newError(InvalidArgument, "condition chain contains a cycle", "column", c.column)
	}
	if c.err != nil {
		return c.err
	}
	path[c] = true
	defer delete(path, c)
	for _, ch := range c.chain {
		if err := ch.cond.check(path); err != nil {
			return err
		}
	}
	return nil
}

// terms returns the condition followed by its chained conditions,
// flattened in chain order. A chained condition that has its own chain
// contributes its terms in place. The chain must have been checked
// with Err first.
func (c *Condition) terms(op BoolOp, list []term) []term {
	list = append(list, term{op: op, cond: c})
	for _, ch := range c.chain {
		list = ch.cond.terms(ch.op, list)
	}
	return list
}

type term struct {
	op   BoolOp
	cond *Condition
}

func (k ConditionKind) String() string {
	switch k {
	case KindOp:
		return "op"
	case KindLike:
		return "like"
	case KindBetween:
		return "between"
	case KindIsNull:
		return "isnull"
	}
	return "unknown"
}
