package scanner

import (
	"strings"
)

type quotePair struct {
	start      string
	end        string
	escapedEnd string
}

func newQuotePair(start, end string) quotePair {
	return quotePair{
		start:      start,
		end:        end,
		escapedEnd: end + end,
	}
}

func (qp quotePair) isQuoted(ident string) bool {
	return len(ident) >= len(qp.start)+len(qp.end) &&
		strings.HasPrefix(ident, qp.start) &&
		strings.HasSuffix(ident, qp.end)
}

func (qp quotePair) unquote(ident string) string {
	ident = ident[len(qp.start) : len(ident)-len(qp.end)]
	return strings.Replace(ident, qp.escapedEnd, qp.end, -1)
}

// identifier quotes used by the supported dialects
var quotePairs = []quotePair{
	newQuotePair("\"", "\""),
	newQuotePair("`", "`"),
	newQuotePair("[", "]"),
}

// IsQuoted returns true if the identifier is a quoted identifier.
func IsQuoted(ident string) bool {
	for _, qp := range quotePairs {
		if qp.isQuoted(ident) {
			return true
		}
	}
	return false
}

// Unquote will unquote an identifier, if it is quoted.
func Unquote(ident string) string {
	for _, qp := range quotePairs {
		if qp.isQuoted(ident) {
			return qp.unquote(ident)
		}
	}
	return ident
}

// LastSegment returns the unquoted last segment of a dot-separated
// identifier, so "[dbo].[User].[Id]" returns "Id". Dots inside
// quoted segments do not separate.
func LastSegment(ident string) string {
	var segment strings.Builder
	var closing rune
	for _, ch := range ident {
		switch {
		case closing != 0:
			if ch == closing {
				closing = 0
			}
			segment.WriteRune(ch)
		case ch == '.':
			segment.Reset()
		default:
			switch ch {
			case '[':
				closing = ']'
			case '`', '"':
				closing = ch
			}
			segment.WriteRune(ch)
		}
	}
	return Unquote(strings.TrimSpace(segment.String()))
}
