package sqlm

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jjeffery/sqlm/private/scanner"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Param is a named value attached to a command.
type Param struct {
	Name  string // includes the leading '@'
	Value interface{}
}

// BoundParameter is a condition term that has been assigned a
// parameter name, and rendered into the text that follows the
// column in a where clause.
type BoundParameter struct {
	Column   string
	Name     string // eg "@id"
	Fragment string // eg "=@id"
	Value    interface{}

	// IsEquality is true for Op terms, which compare the column with
	// a bound parameter. Columns of these terms are excluded from the
	// set clause of an update.
	IsEquality bool

	// Params contains the parameters that the fragment refers to,
	// in the order they appear. Inline terms have none.
	Params []Param
}

// OrderedBoundParameter is a bound parameter that is joined to the
// preceding terms with a boolean operator.
type OrderedBoundParameter struct {
	BoundParameter
	Op BoolOp
}

// BoundCondition is the result of binding a condition chain.
type BoundCondition struct {
	Main BoundParameter
	Subs []OrderedBoundParameter
}

// Params returns the parameters for the main term followed by
// the parameters for the sub-terms in chain order.
func (bc *BoundCondition) Params() []Param {
	if bc == nil {
		return nil
	}
	params := append([]Param(nil), bc.Main.Params...)
	for _, sub := range bc.Subs {
		params = append(params, sub.Params...)
	}
	return params
}

// EqualityColumns returns the columns of all Op terms.
func (bc *BoundCondition) EqualityColumns() []string {
	if bc == nil {
		return nil
	}
	var columns []string
	if bc.Main.IsEquality {
		columns = append(columns, bc.Main.Column)
	}
	for _, sub := range bc.Subs {
		if sub.IsEquality {
			columns = append(columns, sub.Column)
		}
	}
	return columns
}

// PatternMode determines how the values of Like and Between
// conditions are rendered.
type PatternMode int

const (
	// InlinePatterns renders Like and Between values as SQL literals.
	// Strings are single-quoted with embedded quotes doubled, but the
	// values are still part of the statement text, so they must never
	// come from untrusted input.
	InlinePatterns PatternMode = iota

	// BoundPatterns binds Like and Between values as parameters.
	BoundPatterns
)

// ParamNamer assigns parameter names that are unique within one command.
// The zero value is ready to use. A ParamNamer is not safe for
// concurrent use, and is intended to be used for a single command.
type ParamNamer struct {
	counts map[string]int
	used   map[string]bool
}

// Next returns the parameter name for column. The name is derived from
// the last segment of the column name, lower-cased and prefixed with '@'.
// If the name has already been assigned, a numeric suffix is appended,
// so the same column bound three times gives @id, @id2 and @id3.
func (n *ParamNamer) Next(column string) string {
	if n.counts == nil {
		n.counts = make(map[string]int)
		n.used = make(map[string]bool)
	}
	base := paramBase(column)
	n.counts[base]++
	name := base
	if count := n.counts[base]; count > 1 {
		name = base + strconv.Itoa(count)
	}
	for n.used[name] {
		n.counts[base]++
		name = base + strconv.Itoa(n.counts[base])
	}
	n.used[name] = true
	return "@" + name
}

// Values assigns parameter names to column values. The returned
// parameters have fragments of the form "=@name".
func (n *ParamNamer) Values(values []ColumnValue) []BoundParameter {
	params := make([]BoundParameter, 0, len(values))
	for _, cv := range values {
		name := n.Next(cv.Column)
		params = append(params, BoundParameter{
			Column:     cv.Column,
			Name:       name,
			Fragment:   "=" + name,
			Value:      cv.Value,
			IsEquality: true,
			Params:     []Param{{Name: name, Value: cv.Value}},
		})
	}
	return params
}

// Bind assigns parameter names to the terms of cond in chain order.
// A nil condition binds to nil.
func (n *ParamNamer) Bind(cond *Condition, mode PatternMode) (*BoundCondition, error) {
	if cond == nil {
		return nil, nil
	}
	if err := cond.Err(); err != nil {
		return nil, err
	}
	terms := cond.terms("", nil)
	bc := &BoundCondition{
		Main: n.bindTerm(terms[0].cond, mode),
	}
	for _, t := range terms[1:] {
		bc.Subs = append(bc.Subs, OrderedBoundParameter{
			BoundParameter: n.bindTerm(t.cond, mode),
			Op:             t.op,
		})
	}
	return bc, nil
}

// Bind binds the condition using a fresh ParamNamer, with
// Like and Between values rendered inline.
func Bind(cond *Condition) (*BoundCondition, error) {
	var n ParamNamer
	return n.Bind(cond, InlinePatterns)
}

func (n *ParamNamer) bindTerm(c *Condition, mode PatternMode) BoundParameter {
	bp := BoundParameter{
		Column: c.column,
		Value:  c.value,
	}
	switch c.kind {
	case KindOp:
		bp.Name = n.Next(c.column)
		bp.Fragment = c.operator + bp.Name
		bp.IsEquality = true
		bp.Params = []Param{{Name: bp.Name, Value: c.value}}
	case KindLike:
		if mode == BoundPatterns {
			bp.Name = n.Next(c.column)
			bp.Fragment = " like " + bp.Name
			bp.Params = []Param{{Name: bp.Name, Value: c.value}}
		} else {
			bp.Fragment = " like " + quoteString(fmt.Sprint(literalValue(c.value)))
		}
	case KindBetween:
		if mode == BoundPatterns {
			bp.Name = n.Next(c.column)
			name2 := n.Next(c.column)
			bp.Fragment = " between " + bp.Name + " and " + name2
			bp.Params = []Param{
				{Name: bp.Name, Value: c.value},
				{Name: name2, Value: c.value2},
			}
		} else {
			bp.Fragment = " between " + literal(c.value) + " and " + literal(c.value2)
		}
	case KindIsNull:
		bp.Value = nil
		if c.isNull {
			bp.Fragment = " is null"
		} else {
			bp.Fragment = " is not null"
		}
	}
	return bp
}

// paramBase returns the parameter name for a column without the
// leading '@' or any suffix. Accented letters lose their accents, and
// any other character that is not an ASCII letter or digit becomes '_',
// as not every driver accepts non-ASCII parameter names. A name that
// would start with a digit is prefixed with '_'.
func paramBase(column string) string {
	name := strings.ToLower(scanner.LastSegment(strings.TrimSpace(column)))
	if !isASCII(name) {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if folded, _, err := transform.String(t, name); err == nil {
			name = folded
		}
	}
	name = strings.Map(func(r rune) rune {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
	if name == "" || (name[0] >= '0' && name[0] <= '9') {
		// placeholder names cannot start with a digit
		name = "_" + name
	}
	return name
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// literalValue unwraps driver.Valuer values.
func literalValue(v interface{}) interface{} {
	if valuer, ok := v.(driver.Valuer); ok {
		if val, err := valuer.Value(); err == nil {
			return val
		}
	}
	return v
}

// literal renders v as an SQL literal.
func literal(v interface{}) string {
	switch val := literalValue(v).(type) {
	case nil:
		return "null"
	case string:
		return quoteString(val)
	case []byte:
		return quoteString(string(val))
	case time.Time:
		return quoteString(val.Format("2006-01-02 15:04:05.999999999"))
	case bool:
		if val {
			return "1"
		}
		return "0"
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(val)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return quoteString(fmt.Sprint(val))
	}
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
