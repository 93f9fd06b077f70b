package expr

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"
)

// global resolves the host globals that expressions may reference without
// them being defined as variables.
func global(name string) (any, bool) {
	switch name {
	case "undefined":
		return Undefined, true
	case "NaN":
		return math.NaN(), true
	case "Infinity":
		return math.Inf(1), true
	case "Math":
		return mathObject, true
	case "JSON":
		return jsonObject, true
	case "Date":
		return dateClass, true
	case "String":
		return Func(func(_ any, args []any) (any, error) {
			if len(args) == 0 {
				return "", nil
			}
			return ToString(args[0]), nil
		}), true
	case "Number":
		return Func(func(_ any, args []any) (any, error) {
			if len(args) == 0 {
				return 0.0, nil
			}
			return ToNumber(args[0]), nil
		}), true
	case "Boolean":
		return Func(func(_ any, args []any) (any, error) {
			return ToBoolean(arg(args, 0)), nil
		}), true
	case "parseInt":
		return Func(func(_ any, args []any) (any, error) {
			return parseInt(ToString(arg(args, 0)), arg(args, 1)), nil
		}), true
	case "parseFloat":
		return Func(func(_ any, args []any) (any, error) {
			return parseFloat(ToString(arg(args, 0))), nil
		}), true
	case "isNaN":
		return Func(func(_ any, args []any) (any, error) {
			return math.IsNaN(ToNumber(arg(args, 0))), nil
		}), true
	case "isFinite":
		return Func(func(_ any, args []any) (any, error) {
			f := ToNumber(arg(args, 0))
			return !math.IsNaN(f) && !math.IsInf(f, 0), nil
		}), true
	case "process":
		return objectOf("env", objectFromMap(environ())), true
	}
	return nil, false
}

func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func environ() map[string]any {
	env := make(map[string]any)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

func mathFunc(f func(float64) float64) Func {
	return func(_ any, args []any) (any, error) {
		return f(ToNumber(arg(args, 0))), nil
	}
}

var mathObject = objectFromMap(map[string]any{
	"PI":    math.Pi,
	"E":     math.E,
	"abs":   mathFunc(math.Abs),
	"ceil":  mathFunc(math.Ceil),
	"floor": mathFunc(math.Floor),
	"sqrt":  mathFunc(math.Sqrt),
	"trunc": mathFunc(math.Trunc),
	"log":   mathFunc(math.Log),
	"round": mathFunc(func(f float64) float64 {
		return math.Floor(f + 0.5)
	}),
	"sign": mathFunc(func(f float64) float64 {
		switch {
		case math.IsNaN(f) || f == 0:
			return f
		case f > 0:
			return 1
		}
		return -1
	}),
	"pow": Func(func(_ any, args []any) (any, error) {
		return applyBinary("**", arg(args, 0), arg(args, 1))
	}),
	"max": Func(func(_ any, args []any) (any, error) {
		out := math.Inf(-1)
		for _, a := range args {
			f := ToNumber(a)
			if math.IsNaN(f) {
				return math.NaN(), nil
			}
			out = math.Max(out, f)
		}
		return out, nil
	}),
	"min": Func(func(_ any, args []any) (any, error) {
		out := math.Inf(1)
		for _, a := range args {
			f := ToNumber(a)
			if math.IsNaN(f) {
				return math.NaN(), nil
			}
			out = math.Min(out, f)
		}
		return out, nil
	}),
})

var jsonObject = objectFromMap(map[string]any{
	"stringify": Func(func(_ any, args []any) (any, error) {
		s, ok := Stringify(arg(args, 0))
		if !ok {
			return Undefined, nil
		}
		return s, nil
	}),
	"parse": Func(func(_ any, args []any) (any, error) {
		v, err := parseJSON(ToString(arg(args, 0)))
		if err != nil {
			return nil, runtimeErrorf("JSON.parse: %v", err)
		}
		return v, nil
	}),
})

// parseJSON decodes s keeping object keys in document order.
func parseJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	v, err := decodeJSON(dec)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		if err != nil {
			return nil, err
		}
		return nil, errors.New("unexpected data after top-level value")
	}
	return v, nil
}

func decodeJSON(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err == io.EOF {
		return nil, errors.New("unexpected end of JSON input")
	}
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			obj := NewObject()
			for dec.More() {
				key, err := dec.Token()
				if err != nil {
					return nil, err
				}
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				obj.Set(key.(string), v)
			}
			if err := closeJSON(dec); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				v, err := decodeJSON(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, v)
			}
			if err := closeJSON(dec); err != nil {
				return nil, err
			}
			return arr, nil
		}
	case json.Number:
		return Normalize(t), nil
	}
	return tok, nil
}

func closeJSON(dec *json.Decoder) error {
	_, err := dec.Token()
	if err == io.EOF {
		return errors.New("unexpected end of JSON input")
	}
	return err
}

var floatPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)`)

func parseFloat(s string) float64 {
	m := floatPrefix.FindString(strings.TrimSpace(s))
	if m == "" {
		return math.NaN()
	}
	return stringToNumber(m)
}

func parseInt(s string, radixArg any) float64 {
	s = strings.TrimSpace(s)
	sign := 1.0
	if s != "" && (s[0] == '-' || s[0] == '+') {
		if s[0] == '-' {
			sign = -1
		}
		s = s[1:]
	}
	radix := int(toInt32(radixArg))
	if radix == 0 {
		radix = 10
		if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
			radix, s = 16, s[2:]
		}
	} else if radix == 16 && len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if radix < 2 || radix > 36 {
		return math.NaN()
	}
	end := 0
	for end < len(s) && digitValue(s[end]) < radix {
		end++
	}
	if end == 0 {
		return math.NaN()
	}
	n, err := strconv.ParseInt(s[:end], radix, 64)
	if err != nil {
		// Too large for int64; accumulate as float.
		f := 0.0
		for i := 0; i < end; i++ {
			f = f*float64(radix) + float64(digitValue(s[i]))
		}
		return sign * f
	}
	return sign * float64(n)
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

func utf16Units(s string) []uint16 { return utf16.Encode([]rune(s)) }

func fromUTF16(u []uint16) string { return string(utf16.Decode(u)) }

// relativeIndex resolves slice-style indexes where negatives count from the
// end, clamped into [0, n].
func relativeIndex(v any, n int, def int) int {
	if IsUndefined(v) {
		return def
	}
	f := math.Trunc(ToNumber(v))
	if math.IsNaN(f) {
		return 0
	}
	if f < 0 {
		f += float64(n)
		if f < 0 {
			return 0
		}
	}
	if f > float64(n) {
		return n
	}
	return int(f)
}

func stringMethod(s string, name string) any {
	var fn func(args []any) (any, error)
	switch name {
	case "slice":
		fn = func(args []any) (any, error) {
			u := utf16Units(s)
			start := relativeIndex(arg(args, 0), len(u), 0)
			end := relativeIndex(arg(args, 1), len(u), len(u))
			if start >= end {
				return "", nil
			}
			return fromUTF16(u[start:end]), nil
		}
	case "substring":
		fn = func(args []any) (any, error) {
			u := utf16Units(s)
			clamp := func(v any, def int) int {
				if IsUndefined(v) {
					return def
				}
				f := ToNumber(v)
				if math.IsNaN(f) || f < 0 {
					return 0
				}
				if f > float64(len(u)) {
					return len(u)
				}
				return int(f)
			}
			start, end := clamp(arg(args, 0), 0), clamp(arg(args, 1), len(u))
			if start > end {
				start, end = end, start
			}
			return fromUTF16(u[start:end]), nil
		}
	case "charAt":
		fn = func(args []any) (any, error) {
			u := utf16Units(s)
			i := int(ToNumber(arg(args, 0)))
			if IsUndefined(arg(args, 0)) {
				i = 0
			}
			if i < 0 || i >= len(u) {
				return "", nil
			}
			return fromUTF16(u[i : i+1]), nil
		}
	case "indexOf":
		fn = func(args []any) (any, error) {
			i := strings.Index(s, ToString(arg(args, 0)))
			if i < 0 {
				return -1.0, nil
			}
			return float64(len(utf16Units(s[:i]))), nil
		}
	case "includes":
		fn = func(args []any) (any, error) {
			return strings.Contains(s, ToString(arg(args, 0))), nil
		}
	case "startsWith":
		fn = func(args []any) (any, error) {
			return strings.HasPrefix(s, ToString(arg(args, 0))), nil
		}
	case "endsWith":
		fn = func(args []any) (any, error) {
			return strings.HasSuffix(s, ToString(arg(args, 0))), nil
		}
	case "toUpperCase":
		fn = func([]any) (any, error) { return strings.ToUpper(s), nil }
	case "toLowerCase":
		fn = func([]any) (any, error) { return strings.ToLower(s), nil }
	case "trim":
		fn = func([]any) (any, error) { return strings.TrimSpace(s), nil }
	case "toString", "valueOf":
		fn = func([]any) (any, error) { return s, nil }
	case "split":
		fn = func(args []any) (any, error) {
			sep := arg(args, 0)
			if IsUndefined(sep) {
				return []any{s}, nil
			}
			var parts []string
			if sepStr := ToString(sep); sepStr == "" {
				for _, u := range utf16Units(s) {
					parts = append(parts, fromUTF16([]uint16{u}))
				}
			} else {
				parts = strings.Split(s, sepStr)
			}
			out := make([]any, len(parts))
			for i, p := range parts {
				out[i] = p
			}
			return out, nil
		}
	case "replace":
		fn = func(args []any) (any, error) {
			return strings.Replace(s, ToString(arg(args, 0)), ToString(arg(args, 1)), 1), nil
		}
	case "repeat":
		fn = func(args []any) (any, error) {
			n := ToNumber(arg(args, 0))
			if n < 0 || math.IsInf(n, 0) {
				return nil, runtimeErrorf("Invalid count value: %s", FormatNumber(n))
			}
			if math.IsNaN(n) {
				n = 0
			}
			return strings.Repeat(s, int(n)), nil
		}
	case "padStart", "padEnd":
		fn = func(args []any) (any, error) {
			target := int(ToNumber(arg(args, 0)))
			fill := " "
			if f := arg(args, 1); !IsUndefined(f) {
				fill = ToString(f)
			}
			have := len(utf16Units(s))
			if target <= have || fill == "" {
				return s, nil
			}
			pad := []uint16{}
			fillUnits := utf16Units(fill)
			for len(pad) < target-have {
				pad = append(pad, fillUnits...)
			}
			padding := fromUTF16(pad[:target-have])
			if name == "padStart" {
				return padding + s, nil
			}
			return s + padding, nil
		}
	default:
		return Undefined
	}
	return Func(func(_ any, args []any) (any, error) { return fn(args) })
}

func arrayMethod(a []any, name string) any {
	var fn func(args []any) (any, error)
	switch name {
	case "join":
		fn = func(args []any) (any, error) {
			sep := ","
			if v := arg(args, 0); !IsUndefined(v) {
				sep = ToString(v)
			}
			parts := make([]string, len(a))
			for i, e := range a {
				if !isNullish(e) {
					parts[i] = ToString(e)
				}
			}
			return strings.Join(parts, sep), nil
		}
	case "includes":
		fn = func(args []any) (any, error) {
			needle := arg(args, 0)
			for _, e := range a {
				if sameValueZero(e, needle) {
					return true, nil
				}
			}
			return false, nil
		}
	case "indexOf":
		fn = func(args []any) (any, error) {
			needle := arg(args, 0)
			for i, e := range a {
				if StrictEquals(e, needle) {
					return float64(i), nil
				}
			}
			return -1.0, nil
		}
	case "slice":
		fn = func(args []any) (any, error) {
			start := relativeIndex(arg(args, 0), len(a), 0)
			end := relativeIndex(arg(args, 1), len(a), len(a))
			if start >= end {
				return []any{}, nil
			}
			return append([]any(nil), a[start:end]...), nil
		}
	case "concat":
		fn = func(args []any) (any, error) {
			out := append([]any(nil), a...)
			for _, v := range args {
				if more, ok := v.([]any); ok {
					out = append(out, more...)
				} else {
					out = append(out, v)
				}
			}
			return out, nil
		}
	case "toString":
		fn = func([]any) (any, error) { return ToString(a), nil }
	default:
		return Undefined
	}
	return Func(func(_ any, args []any) (any, error) { return fn(args) })
}

func numberMethod(f float64, name string) any {
	switch name {
	case "toFixed":
		return Func(func(_ any, args []any) (any, error) {
			digits := int(ToNumber(arg(args, 0)))
			if IsUndefined(arg(args, 0)) {
				digits = 0
			}
			if digits < 0 || digits > 100 {
				return nil, runtimeErrorf("toFixed() digits argument must be between 0 and 100")
			}
			if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e21 {
				return FormatNumber(f), nil
			}
			return strconv.FormatFloat(f, 'f', digits, 64), nil
		})
	case "toString":
		return Func(func(_ any, args []any) (any, error) {
			radix := arg(args, 0)
			if IsUndefined(radix) || ToNumber(radix) == 10 {
				return FormatNumber(f), nil
			}
			r := int(ToNumber(radix))
			if r < 2 || r > 36 {
				return nil, runtimeErrorf("toString() radix must be between 2 and 36")
			}
			if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
				return FormatNumber(f), nil
			}
			return strconv.FormatInt(int64(f), r), nil
		})
	case "valueOf":
		return Func(func(_ any, _ []any) (any, error) { return f, nil })
	}
	return Undefined
}

func sameValueZero(a, b any) bool {
	x, xok := a.(float64)
	y, yok := b.(float64)
	if xok && yok && math.IsNaN(x) && math.IsNaN(y) {
		return true
	}
	return StrictEquals(a, b)
}
