package expr

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEval(t *testing.T) {
	env := MapEnv{
		"_TRUE": true,
		"_ZERO": 0,
		"_NUM":  42,
		"_STR":  "foo",
		"_NULL": nil,
		"_ARR":  []int{1, 2, 3},
		"_OBJ":  map[string]any{"a": map[string]any{"b": "deep"}, "n": 1},
		"_UND":  Undefined,
		"_FN": func(args ...any) any {
			return len(args)
		},
	}

	tests := []struct {
		src  string
		want any
	}{
		// literals
		{"1", 1.0},
		{"0x10", 16.0},
		{"0b101", 5.0},
		{"1e3", 1000.0},
		{"'a\\tb'", "a\tb"},
		{`"A"`, "A"},
		{"true", true},
		{"null", nil},
		{"undefined", Undefined},
		{"`x${_NUM + 1}y`", "x43y"},

		// names
		{"_TRUE", true},
		{"_MISSING", Undefined},
		{"typeof _MISSING", "undefined"},
		{"typeof _STR", "string"},
		{"typeof _NULL", "object"},
		{"typeof _FN", "function"},

		// arithmetic and coercion
		{"1 + 2 * 3", 7.0},
		{"(1 + 2) * 3", 9.0},
		{"2 ** 3 ** 2", 512.0},
		{"7 % 3", 1.0},
		{"'1' + 2", "12"},
		{"'3' * '4'", 12.0},
		{"1 + true", 2.0},
		{"[1, 2] + ''", "1,2"},
		{"-'5'", -5.0},
		{"+''", 0.0},
		{"+null", 0.0},
		{"~5", -6.0},
		{"5 & 3 | 8", 9.0},
		{"1 << 4", 16.0},
		{"-16 >> 2", -4.0},
		{"-1 >>> 28", 15.0},

		// comparison
		{"_NUM > 40", true},
		{"'b' > 'a'", true},
		{"'10' < '9'", true},
		{"'10' < 9", false},
		{"_UND < 1", false},
		{"_UND >= 0", false},
		{"null >= 0", true},
		{"1 == '1'", true},
		{"1 === '1'", false},
		{"null == undefined", true},
		{"null === undefined", false},
		{"NaN == NaN", false},

		// logical
		{"_ZERO || 'x'", "x"},
		{"_STR && _NUM", 42.0},
		{"_NULL ?? 'def'", "def"},
		{"_ZERO ?? 'def'", 0.0},
		{"!_ZERO", true},
		{"_TRUE ? 'y' : 'n'", "y"},
		{"1, 2, 3", 3.0},

		// members
		{"_OBJ.a.b", "deep"},
		{"_OBJ['a']['b']", "deep"},
		{"_OBJ.zzz", Undefined},
		{"_MISSING?.x.y", Undefined},
		{"_MISSING?.x.y()", Undefined},
		{"_OBJ?.a.b", "deep"},
		{"_ARR[1]", 2.0},
		{"_ARR.length", 3.0},
		{"_STR.length", 3.0},
		{"'n' in _OBJ", true},
		{"'q' in _OBJ", false},
		{"({ x: 1, 'y': 2, [`z`]: 3 }).z", 3.0},
		{"[1, , 3].length", 3.0},

		// calls
		{"_FN(1, 2)", 2.0},
		{"_MISSING?.()", Undefined},
		{"Math.max(1, _NUM, 3)", 42.0},
		{"Math.floor(2.7)", 2.0},
		{"Math.round(-2.5)", -2.0},
		{"JSON.stringify(_OBJ)", `{"a":{"b":"deep"},"n":1}`},
		{"JSON.stringify(_ARR)", "[1,2,3]"},
		{"JSON.parse('{\"k\": [1]}').k[0]", 1.0},
		{"String(_NUM)", "42"},
		{"Number('0x1f')", 31.0},
		{"parseInt('12px')", 12.0},
		{"parseInt('ff', 16)", 255.0},
		{"parseFloat('3.5kg')", 3.5},
		{"isNaN('x')", true},
		{"isFinite('12')", true},
		{"Boolean('')", false},

		// methods
		{"_STR.toUpperCase()", "FOO"},
		{"' pad '.trim()", "pad"},
		{"'a,b,c'.split(',').length", 3.0},
		{"'abc'.slice(-2)", "bc"},
		{"'abc'.substring(2, 0)", "ab"},
		{"'abc'.indexOf('c')", 2.0},
		{"'abc'.includes('bc')", true},
		{"'abc'.startsWith('ab')", true},
		{"'5'.padStart(3, '0')", "005"},
		{"'ab'.repeat(2)", "abab"},
		{"'aXa'.replace('a', 'b')", "bXa"},
		{"'abc'.charAt(1)", "b"},
		{"_ARR.join('-')", "1-2-3"},
		{"_ARR.includes(2)", true},
		{"_ARR.indexOf(5)", -1.0},
		{"_ARR.slice(1).concat([4], 5).join()", "2,3,4,5"},
		{"(1.005).toFixed(1)", "1.0"},
		{"(255).toString(16)", "ff"},
		{"_NUM.toString()", "42"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalNumbers(t *testing.T) {
	tests := []struct {
		src   string
		check func(float64) bool
	}{
		{"_MISSING + 1", math.IsNaN},
		{"1 / 0", func(f float64) bool { return math.IsInf(f, 1) }},
		{"Infinity", func(f float64) bool { return math.IsInf(f, 1) }},
		{"1 ** NaN", math.IsNaN},
		{"Math.min()", func(f float64) bool { return math.IsInf(f, 1) }},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, nil)
			require.NoError(t, err)
			f, ok := got.(float64)
			require.True(t, ok, "got %T", got)
			assert.True(t, tt.check(f), "got %v", f)
		})
	}
}

func TestEvalProcessEnv(t *testing.T) {
	t.Setenv("JSCC_EXPR_TEST", "yes")

	got, err := Eval("process.env.JSCC_EXPR_TEST === 'yes'", nil)
	require.NoError(t, err)
	assert.Equal(t, true, got)

	got, err = Eval("process.env.JSCC_EXPR_UNSET", nil)
	require.NoError(t, err)
	assert.Equal(t, Undefined, got)
}

func TestEvalEnvShadowsGlobals(t *testing.T) {
	got, err := Eval("Math", MapEnv{"Math": "mine"})
	require.NoError(t, err)
	assert.Equal(t, "mine", got)
}

func TestEvalSyntaxErrors(t *testing.T) {
	tests := []struct {
		src string
		msg string
	}{
		{"", "Unexpected end of input"},
		{"1 +", "Unexpected end of input"},
		{"(1", "Unexpected end of input"},
		{"1 2", "Unexpected number"},
		{"a b", "Unexpected identifier 'b'"},
		{"1 + * 2", "Unexpected token '*'"},
		{"'a' 'b'", "Unexpected string"},
		{"if", "Unexpected token 'if'"},
		{"a #", "Invalid or unexpected token"},
		{"{a: }", "Unexpected token '}'"},
		{"a ? b", "Unexpected end of input"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Eval(tt.src, nil)
			require.Error(t, err)
			var syn *SyntaxError
			require.ErrorAs(t, err, &syn)
			assert.Equal(t, tt.msg, syn.Msg)
		})
	}
}

func TestEvalRuntimeErrors(t *testing.T) {
	env := MapEnv{"_NULL": nil, "_STR": "s"}
	tests := []struct {
		src string
		msg string
	}{
		{"_UNDEF.foo", "Cannot read properties of undefined (reading 'foo')"},
		{"_NULL.foo", "Cannot read properties of null (reading 'foo')"},
		{"_UNDEF['x' + 1]", "Cannot read properties of undefined (reading 'x1')"},
		{"_UNDEF()", "_UNDEF is not a function"},
		{"_STR.nope()", "_STR.nope is not a function"},
		{"'a' in _STR", "Cannot use 'in' operator to search for 'a' in s"},
		{"'x'.repeat(-1)", "Invalid count value: -1"},
		{"JSON.parse('{')", "JSON.parse: unexpected end of JSON input"},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, err := Eval(tt.src, env)
			require.Error(t, err)
			var rt *RuntimeError
			require.ErrorAs(t, err, &rt)
			assert.Equal(t, tt.msg, rt.Msg)
		})
	}
}

func TestProgramReuse(t *testing.T) {
	prog, err := Parse("_X * 2")
	require.NoError(t, err)
	assert.Equal(t, "_X * 2", prog.Source())

	for _, x := range []float64{1, 2, 3} {
		got, err := prog.Eval(MapEnv{"_X": x})
		require.NoError(t, err)
		assert.Equal(t, x*2, got)
	}
}

func TestEvalDates(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	orig := now
	now = func() time.Time { return fixed }
	t.Cleanup(func() { now = orig })

	local := fixed.In(time.Local)
	tests := []struct {
		src  string
		want any
	}{
		{"new Date().toISOString()", "2024-01-02T03:04:05.006Z"},
		{"new Date().toISOString().slice(0, 10)", "2024-01-02"},
		{"new Date().getTime()", float64(fixed.UnixMilli())},
		{"new Date().getFullYear()", float64(local.Year())},
		{"new Date().getMonth()", float64(local.Month() - 1)},
		{"new Date().getDate()", float64(local.Day())},
		{"new Date().getUTCHours()", 3.0},
		{"new Date(0).toISOString()", "1970-01-01T00:00:00.000Z"},
		{"new Date('2020-05-06').getUTCDate()", 6.0},
		{"new Date('nope').getTime() !== new Date('nope').getTime()", true},
		{"new Date(2020, 0, 31).getMonth()", 0.0},
		{"new Date(1000) < new Date(2000)", true},
		{"new Date === new Date", false},
		{"typeof new Date()", "object"},
		{"typeof Date", "function"},
		{"Date.now()", float64(fixed.UnixMilli())},
		{"JSON.stringify({d: new Date(0)})", `{"d":"1970-01-01T00:00:00.000Z"}`},
		{"'now' in Date", true},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvalNewErrors(t *testing.T) {
	_, err := Eval("new Math()", nil)
	var rt *RuntimeError
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, "Math is not a constructor", rt.Msg)

	_, err = Eval("new Date('x').toISOString()", nil)
	require.ErrorAs(t, err, &rt)
	assert.Equal(t, "Invalid time value", rt.Msg)

	_, err = Eval("new", nil)
	var syn *SyntaxError
	require.ErrorAs(t, err, &syn)
	assert.Equal(t, "Unexpected end of input", syn.Msg)
}

func TestEvalObjectsKeepInsertionOrder(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"JSON.stringify({b: 1, a: 2, c: {z: 1, y: 2}})", `{"b":1,"a":2,"c":{"z":1,"y":2}}`},
		{"JSON.stringify({b: 1, a: 2, b: 3})", `{"b":3,"a":2}`},
		{`JSON.stringify(JSON.parse('{"z": 1, "a": [{"y": 1, "x": 2}]}'))`, `{"z":1,"a":[{"y":1,"x":2}]}`},
		{"JSON.stringify(_HOST)", `{"a":1,"b":2}`},
	}
	env := MapEnv{"_HOST": map[string]int{"b": 2, "a": 1}}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			got, err := Eval(tt.src, env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
