package jscc

import (
	"strings"

	"github.com/jwtly10/jscc/internal/expr"
)

// paste replaces every $identifier in line with the current value of the
// variable. $name.prop.sub walks into object values for as long as each key
// exists; the rest of the text is left alone.
func paste(line string, store *Store) string {
	if !strings.Contains(line, "$") {
		return line
	}

	var b strings.Builder
	b.Grow(len(line))
	for i := 0; i < len(line); {
		if line[i] != '$' {
			b.WriteByte(line[i])
			i++
			continue
		}
		n := identifierAt(line[i+1:])
		if n == 0 {
			b.WriteByte('$')
			i++
			continue
		}
		i++
		v := store.Get(line[i : i+n])
		i += n
		for i < len(line) && line[i] == '.' {
			obj, ok := v.(*expr.Object)
			if !ok {
				break
			}
			m := identifierAt(line[i+1:])
			if m == 0 {
				break
			}
			next, ok := obj.Get(line[i+1 : i+1+m])
			if !ok {
				break
			}
			v = next
			i += 1 + m
		}
		b.WriteString(pasteString(v))
	}
	return b.String()
}

// pasteString is the text a value pastes as: strings raw, arrays and objects
// as JSON, anything else as JavaScript converts it to a string.
func pasteString(v any) string {
	switch v.(type) {
	case []any, *expr.Object:
		if s, ok := expr.Stringify(v); ok {
			return s
		}
	}
	return expr.ToString(v)
}
