package jscc

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/golden"
)

func process(t *testing.T, src string, opts Options) string {
	t.Helper()
	if opts.Version == "" {
		opts.Version = "1.2.3"
	}
	res, err := Process([]byte(src), "test.js", opts)
	require.NoError(t, err)
	return res.Code
}

func processErr(t *testing.T, src string, opts Options) *Error {
	t.Helper()
	opts.Version = "1.2.3"
	res, err := Process([]byte(src), "test.js", opts)
	require.Error(t, err)
	require.Nil(t, res)
	e, ok := AsError(err)
	require.True(t, ok, "expected *Error, got %T", err)
	return e
}

func TestProcessFixtures(t *testing.T) {
	tests := []struct {
		file string
		opts Options
	}{
		{file: "defaults.js"},
		{file: "custom-vars.js", opts: Options{Values: map[string]any{
			"_ZERO":     0,
			"_MYBOOL":   false,
			"_MYSTRING": "foo",
			"_INFINITY": math.Inf(1),
			"_NAN":      math.NaN(),
			"_NULL":     nil,
			"_UNDEF":    Undefined,
		}}},
		{file: "cc-hide-ml-cmts.js"},
		{file: "cc-hide-content.js", opts: Options{Values: map[string]any{"_SHOW": true}}},
		{file: "html-vars.html", opts: Options{
			Prefixes: []string{"<!--"},
			Values:   map[string]any{"_TITLE": "My App"},
		}},
		{file: "ex-object-properties.js"},
		{file: "keep-lines.js", opts: Options{KeepLines: true}},
		{file: "var-macros.js"},
		{file: "def-file-var.js"},
		{file: "cc-nested.js"},
		{file: "directive-ending.js"},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			path := filepath.Join("testdata", "fixtures", tt.file)
			src, err := os.ReadFile(path)
			require.NoError(t, err)

			tt.opts.Version = "1.2.3"
			res, err := Process(src, path, tt.opts)
			require.NoError(t, err)

			ext := filepath.Ext(tt.file)
			golden.Assert(t, res.Code, fmt.Sprintf("expected/%s.golden%s", strings.TrimSuffix(tt.file, ext), ext))
		})
	}
}

func TestProcessConditionals(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		values map[string]any
		want   string
	}{
		{
			name: "no directives is verbatim",
			src:  "const a = 1\n\n  b = '$'\n",
			want: "const a = 1\n\n  b = '$'\n",
		},
		{
			name: "no trailing newline is kept",
			src:  "a\nb",
			want: "a\nb",
		},
		{
			name: "live lines keep their newline when the last line is dropped",
			src:  "a\n//#if 1\nb\n//#endif",
			want: "a\nb\n",
		},
		{
			name: "dead line before a final directive without newline",
			src:  "a\n//#if 0\nb\n//#endif",
			want: "a\n",
		},
		{
			name:   "if true",
			src:    "//#if _TRUE\ntrue\n//#endif\n",
			values: map[string]any{"_TRUE": true},
			want:   "true\n",
		},
		{
			name: "if undefined is false",
			src:  "//#if _NOPE\nfalse\n//#endif\nafter\n",
			want: "after\n",
		},
		{
			name: "else",
			src:  "//#if 0\nfalse\n//#else\ntrue\n//#endif\n",
			want: "true\n",
		},
		{
			name: "elif chain takes the first match only",
			src:  "//#if _N === 1\none\n//#elif _N > 1\ngt\n//#elif _N === 2\ntwo\n//#else\nother\n//#endif\n",
			values: map[string]any{"_N": 2},
			want: "gt\n",
		},
		{
			name: "ifset is true for undefined values",
			src:  "//#set _U\n//#ifset _U\ntrue\n//#endif\n",
			want: "true\n",
		},
		{
			name: "ifnset",
			src:  "//#ifnset _U\ntrue\n//#else\nfalse\n//#endif\n",
			want: "true\n",
		},
		{
			name: "set inside dead branch has no effect",
			src:  "//#if 0\n//#set _X = 1\n//#endif\n//#ifset _X\nfalse\n//#endif\n",
			want: "",
		},
		{
			name: "set with and without equals sign",
			src:  "//#set _A = 1\n//#set _B 2\n$_A$_B\n",
			want: "12\n",
		},
		{
			name: "variables change along the file",
			src:  "//#set _V = true\n$_V\n//#set _V = !_V\n$_V\n",
			want: "true\nfalse\n",
		},
		{
			name:   "unset",
			src:    "//#unset _TRUE\n//#if _TRUE === undefined\ntrue\n//#endif\n",
			values: map[string]any{"_TRUE": true},
			want:   "true\n",
		},
		{
			name:   "paste",
			src:    "$_TRUE$_TRUE\n",
			values: map[string]any{"_TRUE": true},
			want:   "truetrue\n",
		},
		{
			name: "paste of unknown name",
			src:  "x = $_NOPE;\n",
			want: "x = undefined;\n",
		},
		{
			name: "paste of expression values",
			src:  "//#set _S = 'foo'\n//#set _Q = JSON.stringify(_S)\n$_S $_Q\n",
			want: "foo \"foo\"\n",
		},
		{
			name: "object paste keeps insertion order",
			src:  "//#set _O = {b: 1, a: 2}\n$_O\n",
			want: "{\"b\":1,\"a\":2}\n",
		},
		{
			name: "dollar without identifier is kept",
			src:  "$ $1 $(el)\n",
			want: "$ $1 $(el)\n",
		},
		{
			name: "unknown keyword passes through",
			src:  "//#ifdef _X\n//#pragma once\n",
			want: "//#ifdef _X\n//#pragma once\n",
		},
		{
			name: "indented directives",
			src:  "  \t//#if 1\nin\n    //#endif\n",
			want: "in\n",
		},
		{
			name: "condition without space",
			src:  "//#if(1)\nin\n//#endif\n",
			want: "in\n",
		},
		{
			name: "errors in dead branches are never evaluated",
			src:  "//#if 0\n//#if _X.y.z\n//#elif (\n//#error nope\n//#endif\n//#endif\nok\n",
			want: "ok\n",
		},
		{
			name: "error not reached",
			src:  "//#if 0\n//#error \"boom!\"\n//#endif\n",
			want: "",
		},
		{
			name: "closer on a content line ends the hidden comment",
			src:  "/*#if 1\na() */\nb() */\n//#endif\n",
			want: "a() \nb() */\n",
		},
		{
			name: "crlf input",
			src:  "//#if 1\r\nyes\r\n//#endif\r\n",
			want: "yes\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := process(t, tt.src, Options{Values: tt.values})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProcessHiddenBlocksWithEnv(t *testing.T) {
	src := "/*#if process.env.JSCC_TEST_MODE === 'production'\n" +
		"console.log('prod')\n" +
		"//#else */\n" +
		"console.log('dev')\n" +
		"//#endif\n"

	t.Setenv("JSCC_TEST_MODE", "production")
	assert.Equal(t, "console.log('prod')\n", process(t, src, Options{}))

	t.Setenv("JSCC_TEST_MODE", "development")
	assert.Equal(t, "console.log('dev')\n", process(t, src, Options{}))
}

func TestProcessFileAndDate(t *testing.T) {
	path := filepath.Join("testdata", "fixtures", "ex-file-and-date.js")
	src, err := os.ReadFile(path)
	require.NoError(t, err)

	res, err := Process(src, path, Options{Version: "1.2.3"})
	require.NoError(t, err)
	assert.Regexp(t, `ex-file-and-date\.js\s+Date: \d{4}-\d{2}-\d{2}\n`, res.Code)
}

func TestProcessKeepLines(t *testing.T) {
	srcs := []string{
		"//#if 0\na\nb\n//#endif\nc\n",
		"//#set _A = 1\n//#if _A\n//#if !_A\nx\n//#else\ny\n//#endif\n//#endif\n",
		"no directives\n",
		"a\n//#if 1\nb\n//#endif",
		"//#if 1\r\nyes\r\n//#else\r\nno\r\n//#endif\r\n",
	}
	for i, src := range srcs {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			got := process(t, src, Options{KeepLines: true})
			assert.Equal(t, strings.Count(src, "\n"), strings.Count(got, "\n"))
		})
	}
}

func TestProcessLineMap(t *testing.T) {
	res, err := Process([]byte("//#if 1\na\n//#else\nb\n//#endif\nc\n"), "x.js", Options{Mapping: true, Version: "1"})
	require.NoError(t, err)
	assert.Equal(t, "a\nc\n", res.Code)
	assert.Equal(t, []int{2, 6}, res.LineMap)

	res, err = Process([]byte("a\n"), "x.js", Options{Version: "1"})
	require.NoError(t, err)
	assert.Nil(t, res.LineMap)
}

func TestProcessIsIdempotentOnResolvedOutput(t *testing.T) {
	src := "//#set _X = 2\n//#if _X > 1\nconst x = $_X\n//#endif\n"
	once := process(t, src, Options{})
	twice := process(t, once, Options{})
	assert.Equal(t, "const x = 2\n", once)
	assert.Equal(t, once, twice)
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		kind    ErrorKind
		line    int
		message string
	}{
		{
			name:    "syntax error",
			src:     "//#if _A +* 2\n//#endif\n",
			kind:    ExpressionSyntaxError,
			line:    1,
			message: "Unexpected token",
		},
		{
			name:    "empty condition",
			src:     "//#if\n//#endif\n",
			kind:    ExpressionSyntaxError,
			line:    1,
			message: "Unexpected end of input",
		},
		{
			name:    "property of undefined",
			src:     "\n//#if _UNDEF.foo\n//#endif\n",
			kind:    ExpressionRuntimeError,
			line:    2,
			message: "Cannot read properties of undefined (reading 'foo')",
		},
		{
			name:    "calling a non function",
			src:     "//#set _X = _Y()\n",
			kind:    ExpressionRuntimeError,
			line:    1,
			message: "_Y is not a function",
		},
		{
			name:    "user error",
			src:     "//#if 1\n//#error \"boom!\"\n//#endif\n",
			kind:    UserError,
			line:    2,
			message: "boom!",
		},
		{
			name:    "user error with raw text",
			src:     "//#error this is not valid js!\n",
			kind:    UserError,
			line:    1,
			message: "this is not valid js!",
		},
		{
			name:    "user error with computed message",
			src:     "//#set _N = 3\n//#error 'got ' + _N\n",
			kind:    UserError,
			line:    2,
			message: "got 3",
		},
		{
			name:    "unclosed",
			src:     "a\n//#if 1\n//#if 0\n//#endif\n",
			kind:    UnclosedBlockError,
			line:    2,
			message: "Unexpected end of file",
		},
		{
			name:    "stray endif",
			src:     "a\n//#endif\n",
			kind:    UnbalancedBlockError,
			line:    2,
			message: "Unexpected #endif",
		},
		{
			name:    "stray else",
			src:     "//#else\n",
			kind:    UnbalancedBlockError,
			line:    1,
			message: "Unexpected #else",
		},
		{
			name:    "stray elif",
			src:     "//#elif 1\n",
			kind:    UnbalancedBlockError,
			line:    1,
			message: "Unexpected #elif",
		},
		{
			name:    "elif after else",
			src:     "//#if 0\n//#else\n//#elif 1\n//#endif\n",
			kind:    UnbalancedBlockError,
			line:    3,
			message: "Unexpected #elif",
		},
		{
			name:    "bad set name",
			src:     "//#set 1 = 2\n",
			kind:    ScanError,
			line:    1,
			message: "Invalid variable name",
		},
		{
			name:    "bad ifset name",
			src:     "//#ifset _A.b\n//#endif\n",
			kind:    ScanError,
			line:    1,
			message: "Invalid variable name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := processErr(t, tt.src, Options{})
			assert.Equal(t, tt.kind, e.Kind)
			assert.Equal(t, tt.line, e.Line)
			assert.Contains(t, e.Msg, tt.message)
			assert.Equal(t, "test.js", e.File)
			assert.True(t, IsKind(e, tt.kind))
			assert.Contains(t, e.Error(), fmt.Sprintf("test.js:%d: ", tt.line))
		})
	}
}

func TestProcessRuntimeErrorUnwraps(t *testing.T) {
	_, err := Process([]byte("//#if _U.x\n//#endif\n"), "a.js", Options{Version: "1"})
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	require.Error(t, e.Unwrap())
	assert.Contains(t, err.Error(), "undefined")
}

func TestProcessBuiltins(t *testing.T) {
	got := process(t, "$_FILE@$_VERSION\n", Options{Version: "9.9.9"})
	assert.Equal(t, "test.js@9.9.9\n", got)

	// Values override built-ins.
	got = process(t, "$_FILE\n", Options{Values: map[string]any{"_FILE": "custom"}})
	assert.Equal(t, "custom\n", got)
}

func TestProcessSharedStore(t *testing.T) {
	store := NewStore()
	opts := Options{Store: store, Version: "1"}

	_, err := Process([]byte("//#set _SEEN = 'first'\n"), "a.js", opts)
	require.NoError(t, err)

	res, err := Process([]byte("$_SEEN\n"), "b.js", opts)
	require.NoError(t, err)
	assert.Equal(t, "first\n", res.Code)
	assert.Equal(t, "b.js", store.Get("_FILE"))

	// Without a shared store each run starts clean.
	res, err = Process([]byte("$_SEEN\n"), "b.js", Options{Version: "1"})
	require.NoError(t, err)
	assert.Equal(t, "undefined\n", res.Code)
}

func TestProcessRejectsEmptyPrefix(t *testing.T) {
	for _, prefixes := range [][]string{{""}, {"//", "  "}} {
		_, err := Process([]byte("#if 0\nx\n#endif\n"), "a.js", Options{Prefixes: prefixes, Version: "1"})
		require.Error(t, err)
		assert.True(t, IsKind(err, OptionsError))
		assert.Contains(t, err.Error(), "empty directive prefix")
	}

	_, err := ProcessDocument(&Document{}, Options{Prefixes: []string{""}})
	assert.True(t, IsKind(err, OptionsError))
}

func TestProcessNoPartialOutputOnError(t *testing.T) {
	res, err := Process([]byte("a\nb\n//#error stop\nc\n"), "a.js", Options{Version: "1"})
	require.Error(t, err)
	assert.Nil(t, res)
}
