package expr

import (
	"math"
	"strings"
)

// Env resolves identifiers. Names it does not know evaluate to a global of
// the same name, or to Undefined.
type Env interface {
	Lookup(name string) (any, bool)
}

// MapEnv is an Env over a plain map of host values. Values are normalized
// on every lookup, so host maps and slices read from it are fresh copies.
type MapEnv map[string]any

func (m MapEnv) Lookup(name string) (any, bool) {
	v, ok := m[name]
	if !ok {
		return nil, false
	}
	return Normalize(v), true
}

// Eval parses and evaluates src in env.
func Eval(src string, env Env) (any, error) {
	prog, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return prog.Eval(env)
}

// Eval evaluates the program in env.
func (p *Program) Eval(env Env) (any, error) {
	if env == nil {
		env = MapEnv(nil)
	}
	e := &evaluator{env: env}
	return e.eval(p.root)
}

type evaluator struct {
	env Env
}

func (e *evaluator) lookup(name string) any {
	if v, ok := e.env.Lookup(name); ok {
		return v
	}
	if v, ok := global(name); ok {
		return v
	}
	return Undefined
}

func (e *evaluator) eval(n Node) (any, error) {
	switch x := n.(type) {
	case literalNode:
		return x.value, nil
	case identNode:
		return e.lookup(x.name), nil
	case templateNode:
		var b strings.Builder
		for i, q := range x.quasis {
			b.WriteString(q)
			if i < len(x.exprs) {
				v, err := e.eval(x.exprs[i])
				if err != nil {
					return nil, err
				}
				b.WriteString(ToString(v))
			}
		}
		return b.String(), nil
	case arrayNode:
		out := make([]any, 0, len(x.elems))
		for _, el := range x.elems {
			v, err := e.eval(el)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case objectNode:
		out := NewObject()
		for _, prop := range x.props {
			key := prop.key
			if prop.computed != nil {
				k, err := e.eval(prop.computed)
				if err != nil {
					return nil, err
				}
				key = propertyKey(k)
			}
			v, err := e.eval(prop.value)
			if err != nil {
				return nil, err
			}
			out.Set(key, v)
		}
		return out, nil
	case memberNode, callNode:
		v, _, err := e.chain(n)
		return v, err
	case newNode:
		return e.construct(x)
	case unaryNode:
		return e.unary(x)
	case binaryNode:
		return e.binary(x)
	case conditionalNode:
		test, err := e.eval(x.test)
		if err != nil {
			return nil, err
		}
		if ToBoolean(test) {
			return e.eval(x.consequent)
		}
		return e.eval(x.alternate)
	case sequenceNode:
		var last any = Undefined
		for _, item := range x.list {
			v, err := e.eval(item)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil
	}
	return nil, runtimeErrorf("unsupported expression node %T", n)
}

func (e *evaluator) memberKey(m memberNode) (string, error) {
	if m.computed == nil {
		return m.name, nil
	}
	k, err := e.eval(m.computed)
	if err != nil {
		return "", err
	}
	return propertyKey(k), nil
}

// chain evaluates a member or call chain. short reports that an optional
// link met undefined or null, which ends the whole chain with Undefined.
func (e *evaluator) chain(n Node) (v any, short bool, err error) {
	switch x := n.(type) {
	case memberNode:
		obj, short, err := e.chain(x.object)
		if err != nil || short {
			return Undefined, short, err
		}
		if x.optional && isNullish(obj) {
			return Undefined, true, nil
		}
		key, err := e.memberKey(x)
		if err != nil {
			return nil, false, err
		}
		v, err := getMember(obj, key)
		return v, false, err
	case callNode:
		return e.call(x)
	}
	v, err = e.eval(n)
	return v, false, err
}

func (e *evaluator) call(c callNode) (any, bool, error) {
	var this any = Undefined
	var callee any
	if m, ok := c.callee.(memberNode); ok {
		obj, short, err := e.chain(m.object)
		if err != nil || short {
			return Undefined, short, err
		}
		if m.optional && isNullish(obj) {
			return Undefined, true, nil
		}
		key, err := e.memberKey(m)
		if err != nil {
			return nil, false, err
		}
		if callee, err = getMember(obj, key); err != nil {
			return nil, false, err
		}
		this = obj
	} else {
		v, short, err := e.chain(c.callee)
		if err != nil || short {
			return Undefined, short, err
		}
		callee = v
	}

	if c.optional && isNullish(callee) {
		return Undefined, true, nil
	}
	var fn Func
	switch f := callee.(type) {
	case Func:
		fn = f
	case *Class:
		fn = f.call
	default:
		return nil, false, runtimeErrorf("%s is not a function", describe(c.callee))
	}
	args, err := e.arguments(c.args)
	if err != nil {
		return nil, false, err
	}
	v, err := fn(this, args)
	return v, false, err
}

func (e *evaluator) arguments(nodes []Node) ([]any, error) {
	args := make([]any, 0, len(nodes))
	for _, a := range nodes {
		v, err := e.eval(a)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (e *evaluator) construct(n newNode) (any, error) {
	callee, err := e.eval(n.callee)
	if err != nil {
		return nil, err
	}
	class, ok := callee.(*Class)
	if !ok || class.construct == nil {
		return nil, runtimeErrorf("%s is not a constructor", describe(n.callee))
	}
	args, err := e.arguments(n.args)
	if err != nil {
		return nil, err
	}
	return class.construct(args)
}

func (e *evaluator) unary(u unaryNode) (any, error) {
	if u.op == "typeof" {
		// typeof tolerates unresolvable names.
		if id, ok := u.operand.(identNode); ok {
			return TypeOf(e.lookup(id.name)), nil
		}
	}
	v, err := e.eval(u.operand)
	if err != nil {
		return nil, err
	}
	switch u.op {
	case "!":
		return !ToBoolean(v), nil
	case "-":
		return -ToNumber(v), nil
	case "+":
		return ToNumber(v), nil
	case "~":
		return float64(^toInt32(v)), nil
	case "typeof":
		return TypeOf(v), nil
	case "void":
		return Undefined, nil
	}
	return nil, runtimeErrorf("unsupported unary operator %s", u.op)
}

func (e *evaluator) binary(b binaryNode) (any, error) {
	left, err := e.eval(b.left)
	if err != nil {
		return nil, err
	}

	// Short-circuit operators return one of their operands.
	switch b.op {
	case "&&":
		if !ToBoolean(left) {
			return left, nil
		}
		return e.eval(b.right)
	case "||":
		if ToBoolean(left) {
			return left, nil
		}
		return e.eval(b.right)
	case "??":
		if !isNullish(left) {
			return left, nil
		}
		return e.eval(b.right)
	}

	right, err := e.eval(b.right)
	if err != nil {
		return nil, err
	}
	return applyBinary(b.op, left, right)
}

func applyBinary(op string, left, right any) (any, error) {
	switch op {
	case "+":
		l, r := toPrimitive(left), toPrimitive(right)
		_, ls := l.(string)
		_, rs := r.(string)
		if ls || rs {
			return ToString(l) + ToString(r), nil
		}
		return ToNumber(l) + ToNumber(r), nil
	case "-":
		return ToNumber(left) - ToNumber(right), nil
	case "*":
		return ToNumber(left) * ToNumber(right), nil
	case "/":
		return ToNumber(left) / ToNumber(right), nil
	case "%":
		return math.Mod(ToNumber(left), ToNumber(right)), nil
	case "**":
		exp := ToNumber(right)
		if math.IsNaN(exp) {
			return math.NaN(), nil
		}
		return math.Pow(ToNumber(left), exp), nil
	case "==":
		return LooseEquals(left, right), nil
	case "!=":
		return !LooseEquals(left, right), nil
	case "===":
		return StrictEquals(left, right), nil
	case "!==":
		return !StrictEquals(left, right), nil
	case "<":
		c, ok := compare(left, right)
		return ok && c < 0, nil
	case ">":
		c, ok := compare(left, right)
		return ok && c > 0, nil
	case "<=":
		c, ok := compare(left, right)
		return ok && c <= 0, nil
	case ">=":
		c, ok := compare(left, right)
		return ok && c >= 0, nil
	case "&":
		return float64(toInt32(left) & toInt32(right)), nil
	case "|":
		return float64(toInt32(left) | toInt32(right)), nil
	case "^":
		return float64(toInt32(left) ^ toInt32(right)), nil
	case "<<":
		return float64(toInt32(left) << (toUint32(right) & 31)), nil
	case ">>":
		return float64(toInt32(left) >> (toUint32(right) & 31)), nil
	case ">>>":
		return float64(toUint32(left) >> (toUint32(right) & 31)), nil
	case "in":
		return hasProperty(left, right)
	}
	return nil, runtimeErrorf("unsupported operator %s", op)
}

func hasProperty(key, obj any) (bool, error) {
	k := propertyKey(key)
	switch x := obj.(type) {
	case *Object:
		return x.Has(k), nil
	case *Class:
		return x.statics.Has(k), nil
	case []any:
		if k == "length" {
			return true, nil
		}
		i, ok := arrayIndex(k)
		return ok && i < len(x), nil
	case Func, *Date:
		return false, nil
	}
	return false, runtimeErrorf("Cannot use 'in' operator to search for '%s' in %s", k, ToString(obj))
}

// getMember reads obj[key], failing on undefined and null receivers.
func getMember(obj any, key string) (any, error) {
	switch x := obj.(type) {
	case nil:
		return nil, runtimeErrorf("Cannot read properties of null (reading '%s')", key)
	case UndefinedType:
		return nil, runtimeErrorf("Cannot read properties of undefined (reading '%s')", key)
	case *Object:
		if v, ok := x.Get(key); ok {
			return v, nil
		}
		return Undefined, nil
	case *Class:
		if v, ok := x.statics.Get(key); ok {
			return v, nil
		}
		return Undefined, nil
	case *Date:
		return dateMethod(x, key), nil
	case []any:
		if key == "length" {
			return float64(len(x)), nil
		}
		if i, ok := arrayIndex(key); ok {
			if i < len(x) {
				return x[i], nil
			}
			return Undefined, nil
		}
		return arrayMethod(x, key), nil
	case string:
		if key == "length" {
			return float64(len(utf16Units(x))), nil
		}
		if i, ok := arrayIndex(key); ok {
			units := utf16Units(x)
			if i < len(units) {
				return fromUTF16(units[i : i+1]), nil
			}
			return Undefined, nil
		}
		return stringMethod(x, key), nil
	case float64:
		return numberMethod(x, key), nil
	}
	return Undefined, nil
}

func arrayIndex(key string) (int, bool) {
	if key == "" || len(key) > 1 && key[0] == '0' {
		return 0, false
	}
	n := 0
	for i := 0; i < len(key); i++ {
		if key[i] < '0' || key[i] > '9' {
			return 0, false
		}
		n = n*10 + int(key[i]-'0')
		if n > math.MaxInt32 {
			return 0, false
		}
	}
	return n, true
}
