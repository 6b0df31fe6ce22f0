package scanner

import (
	"bytes"
	"strings"
)

// Positional replaces each named placeholder (@name) in query with a
// positional placeholder (?). It returns the rewritten query and the
// placeholder names, without the leading '@', in the order that they
// appear. Placeholders inside string literals, quoted identifiers and
// comments are left untouched.
func Positional(query string) (string, []string, error) {
	var buf bytes.Buffer
	var names []string
	scan := New(strings.NewReader(query))
	for scan.Scan() {
		text := scan.Text()
		if scan.Token() == PLACEHOLDER && strings.HasPrefix(text, "@") {
			names = append(names, text[1:])
			buf.WriteRune('?')
			continue
		}
		buf.WriteString(text)
	}
	if err := scan.Err(); err != nil {
		return "", nil, err
	}
	return buf.String(), names, nil
}
