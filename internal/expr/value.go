package expr

import (
	"encoding/json"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// UndefinedType is the type of the Undefined value.
type UndefinedType struct{}

func (UndefinedType) String() string { return "undefined" }

// Undefined is the value of unknown identifiers, missing properties and
// empty #set expressions. It is distinct from nil, which is null.
var Undefined = UndefinedType{}

// Func is a callable value. this is the receiver for method calls and
// Undefined for plain calls.
type Func func(this any, args []any) (any, error)

// IsUndefined reports whether v is the Undefined value.
func IsUndefined(v any) bool {
	_, ok := v.(UndefinedType)
	return ok
}

func isNullish(v any) bool {
	return v == nil || IsUndefined(v)
}

// Normalize converts host values into the evaluator's value model:
// float64 numbers, []any arrays and *Object objects. Host maps become
// objects with sorted keys.
func Normalize(v any) any {
	switch x := v.(type) {
	case nil, UndefinedType, bool, string, float64, Func, *Object, *Date, *Class:
		return v
	case time.Time:
		return NewDate(x)
	case float32:
		return float64(x)
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return math.NaN()
		}
		return f
	case func(args ...any) any:
		return Func(func(_ any, args []any) (any, error) {
			return Normalize(x(args...)), nil
		})
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		return objectFromMap(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = Normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			out := make(map[string]any, rv.Len())
			iter := rv.MapRange()
			for iter.Next() {
				out[iter.Key().String()] = iter.Value().Interface()
			}
			return objectFromMap(out)
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
	}

	// Structs and anything else fall back to their JSON shape.
	data, err := json.Marshal(v)
	if err != nil {
		return Undefined
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return Undefined
	}
	return Normalize(decoded)
}

// TypeOf returns the typeof name of v.
func TypeOf(v any) string {
	switch v.(type) {
	case UndefinedType:
		return "undefined"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case Func, *Class:
		return "function"
	default:
		return "object"
	}
}

// ToBoolean applies JavaScript truthiness.
func ToBoolean(v any) bool {
	switch x := v.(type) {
	case nil, UndefinedType:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

var numericLiteral = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*(?:[eE][+-]?\d+)?|\.\d+(?:[eE][+-]?\d+)?)$`)

// ToNumber applies JavaScript numeric conversion.
func ToNumber(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case UndefinedType:
		return math.NaN()
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case string:
		return stringToNumber(x)
	case *Date:
		return x.ms()
	case []any, *Object:
		return stringToNumber(ToString(x))
	default:
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			n, err := strconv.ParseUint(s[2:], base, 64)
			if err != nil {
				return math.NaN()
			}
			return float64(n)
		}
	}
	if !numericLiteral.MatchString(s) {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		// Out of range values still carry a usable ±Inf.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f
		}
		return math.NaN()
	}
	return f
}

// FormatNumber renders a number the way JavaScript's String(n) does.
func FormatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		mant, exp, _ := strings.Cut(s, "e")
		sign, digits := exp[:1], strings.TrimLeft(exp[1:], "0")
		return mant + "e" + sign + digits
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// ToString applies JavaScript string conversion.
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case UndefinedType:
		return "undefined"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return FormatNumber(x)
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, e := range x {
			if !isNullish(e) {
				parts[i] = ToString(e)
			}
		}
		return strings.Join(parts, ",")
	case Func:
		return "function () { [native code] }"
	case *Class:
		return x.String()
	case *Date:
		return x.String()
	default:
		return "[object Object]"
	}
}

// Stringify renders v as JSON.stringify would. The second result is false
// when JSON.stringify would return undefined.
func Stringify(v any) (string, bool) {
	var b strings.Builder
	if !writeJSON(&b, v) {
		return "", false
	}
	return b.String(), true
}

func writeJSON(b *strings.Builder, v any) bool {
	switch x := v.(type) {
	case UndefinedType, Func, *Class:
		return false
	case nil:
		b.WriteString("null")
	case bool:
		b.WriteString(ToString(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			b.WriteString("null")
		} else {
			b.WriteString(FormatNumber(x))
		}
	case string:
		writeJSONString(b, x)
	case []any:
		b.WriteByte('[')
		for i, e := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if !writeJSON(b, e) {
				b.WriteString("null")
			}
		}
		b.WriteByte(']')
	case *Date:
		iso, err := x.isoString()
		if err != nil {
			b.WriteString("null")
		} else {
			writeJSONString(b, iso)
		}
	case *Object:
		b.WriteByte('{')
		first := true
		for _, k := range x.keys {
			e := x.props[k]
			switch e.(type) {
			case UndefinedType, Func, *Class:
				continue
			}
			if !first {
				b.WriteByte(',')
			}
			first = false
			writeJSONString(b, k)
			b.WriteByte(':')
			writeJSON(b, e)
		}
		b.WriteByte('}')
	default:
		return false
	}
	return true
}

func writeJSONString(b *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if r < 0x20 {
				b.WriteString(`\u00`)
				b.WriteByte(hex[r>>4])
				b.WriteByte(hex[r&0xf])
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
}

// toPrimitive reduces arrays and objects to their string form; other values
// are already primitive.
func toPrimitive(v any) any {
	switch v.(type) {
	case []any, *Object, Func, *Class, *Date:
		return ToString(v)
	}
	return v
}

// StrictEquals implements ===.
func StrictEquals(a, b any) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case UndefinedType:
		return IsUndefined(b)
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	default:
		return sameReference(a, b)
	}
}

func sameReference(a, b any) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if ra.Kind() != rb.Kind() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Func, reflect.Pointer:
		return ra.Pointer() == rb.Pointer()
	case reflect.Slice:
		return ra.Pointer() == rb.Pointer() && ra.Len() == rb.Len()
	}
	return false
}

// LooseEquals implements ==.
func LooseEquals(a, b any) bool {
	if TypeOf(a) == TypeOf(b) && (a == nil) == (b == nil) {
		return StrictEquals(a, b)
	}
	if isNullish(a) || isNullish(b) {
		return isNullish(a) && isNullish(b)
	}
	if _, ok := a.(bool); ok {
		return LooseEquals(ToNumber(a), b)
	}
	if _, ok := b.(bool); ok {
		return LooseEquals(a, ToNumber(b))
	}
	_, an := a.(float64)
	_, bn := b.(float64)
	_, as := a.(string)
	_, bs := b.(string)
	switch {
	case an && bs:
		return a.(float64) == ToNumber(b)
	case as && bn:
		return ToNumber(a) == b.(float64)
	case (an || as) && !(bn || bs):
		return LooseEquals(a, toPrimitive(b))
	case (bn || bs) && !(an || as):
		return LooseEquals(toPrimitive(a), b)
	}
	return false
}

// compare returns -1, 0 or 1, or ok=false when the comparison is undefined
// (a NaN operand).
func compare(a, b any) (int, bool) {
	// Dates compare by time value.
	if d, ok := a.(*Date); ok {
		a = d.ms()
	}
	if d, ok := b.(*Date); ok {
		b = d.ms()
	}
	a, b = toPrimitive(a), toPrimitive(b)
	sa, aok := a.(string)
	sb, bok := b.(string)
	if aok && bok {
		return compareUTF16(sa, sb), true
	}
	x, y := ToNumber(a), ToNumber(b)
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, false
	}
	switch {
	case x < y:
		return -1, true
	case x > y:
		return 1, true
	}
	return 0, true
}

// compareUTF16 orders strings by UTF-16 code units like JavaScript does.
func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < len(a16) && i < len(b16); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

func toInt32(v any) int32 {
	return int32(toUint32(v))
}

func toUint32(v any) uint32 {
	f := ToNumber(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}

// propertyKey converts a computed member key to its string form.
func propertyKey(v any) string {
	return ToString(v)
}
