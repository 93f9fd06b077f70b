package expr

import "sort"

// Object is an expression object. It keeps keys in insertion order, the
// order JSON.stringify and pastes render them in.
type Object struct {
	keys  []string
	props map[string]any
}

func NewObject() *Object {
	return &Object{props: make(map[string]any)}
}

// objectOf builds an object from alternating key and value arguments.
func objectOf(kv ...any) *Object {
	o := NewObject()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i].(string), kv[i+1])
	}
	return o
}

// objectFromMap converts a host map. Host maps carry no order, so keys are
// sorted.
func objectFromMap(m map[string]any) *Object {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	o := NewObject()
	for _, k := range keys {
		o.Set(k, Normalize(m[k]))
	}
	return o
}

// Get returns the value under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.props[key]
	return v, ok
}

// Set adds or replaces key. A replaced key keeps its position.
func (o *Object) Set(key string, v any) {
	if _, ok := o.props[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.props[key] = v
}

func (o *Object) Has(key string) bool {
	_, ok := o.props[key]
	return ok
}

// Keys returns the keys in insertion order.
func (o *Object) Keys() []string {
	return append([]string(nil), o.keys...)
}

func (o *Object) Len() int { return len(o.keys) }

// Map returns a plain map of the object, converting nested objects too.
func (o *Object) Map() map[string]any {
	out := make(map[string]any, len(o.keys))
	for _, k := range o.keys {
		out[k] = Export(o.props[k])
	}
	return out
}

// Export turns objects back into plain host maps, recursively.
func Export(v any) any {
	switch x := v.(type) {
	case *Object:
		return x.Map()
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = Export(e)
		}
		return out
	}
	return v
}
