package jscc

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestScan(t *testing.T) {
	tests := []struct {
		name     string
		prefixes []string
		line     string
		want     Directive
		ok       bool
	}{
		{
			name: "line comment",
			line: "//#if _A && _B",
			want: Directive{Kind: KindIf, Arg: "_A && _B", Line: 1, Prefix: "//"},
			ok:   true,
		},
		{
			name: "indented with trailing comment",
			line: "\t  //#elif _A // note",
			want: Directive{Kind: KindElif, Arg: "_A", Line: 1, Prefix: "//"},
			ok:   true,
		},
		{
			name: "slashes inside a string",
			line: "//#set _URL = 'http://x' // keep",
			want: Directive{Kind: KindSet, Arg: "_URL = 'http://x'", Line: 1, Prefix: "//"},
			ok:   true,
		},
		{
			name: "closed block comment",
			line: "/*#endif */",
			want: Directive{Kind: KindEndif, Line: 1, Prefix: "/*", Closer: "*/"},
			ok:   true,
		},
		{
			name: "open block comment",
			line: "/*#if _HIDE",
			want: Directive{Kind: KindIf, Arg: "_HIDE", Line: 1, Prefix: "/*", Closer: "*/", Open: true},
			ok:   true,
		},
		{
			name: "closer in trailing comment",
			line: "/*#else // */",
			want: Directive{Kind: KindElse, Line: 1, Prefix: "/*", Closer: "*/"},
			ok:   true,
		},
		{
			name:     "html prefix",
			prefixes: []string{"<!--"},
			line:     "<!--#ifset _A -->",
			want:     Directive{Kind: KindIfset, Arg: "_A", Line: 1, Prefix: "<!--", Closer: "-->"},
			ok:       true,
		},
		{
			name: "unknown keyword",
			line: "//#region x",
		},
		{
			name: "space before hash",
			line: "// #if _A",
		},
		{
			name: "keyword prefix of identifier",
			line: "//#iffy",
		},
		{
			name: "code before comment",
			line: "x = 1 //#if _A",
		},
		{
			name:     "custom prefixes replace defaults",
			prefixes: []string{"#"},
			line:     "//#if _A",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := newScanner(tt.prefixes).scan(tt.line, 1)
			if ok != tt.ok {
				t.Fatalf("scan(%q) ok = %v, want %v", tt.line, ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("scan(%q) mismatch (-want +got):\n%s", tt.line, diff)
			}
		})
	}
}

func TestSplitArgument(t *testing.T) {
	tests := []struct {
		in, arg, tail string
	}{
		{"_A // c", "_A ", "// c"},
		{"'//' + _A", "'//' + _A", ""},
		{`"a\"//" // c`, `"a\"//" `, "// c"},
		{"`//${x}`", "`//${x}`", ""},
		{"_A /* // */ + 1", "_A /* // */ + 1", ""},
		{"_A/2", "_A/2", ""},
	}
	for _, tt := range tests {
		arg, tail := splitArgument(tt.in)
		if arg != tt.arg || tail != tt.tail {
			t.Errorf("splitArgument(%q) = %q, %q; want %q, %q", tt.in, arg, tail, tt.arg, tt.tail)
		}
	}
}

func TestKindString(t *testing.T) {
	for kw, kind := range keywords {
		if kind.String() != kw {
			t.Errorf("Kind(%d).String() = %q, want %q", kind, kind.String(), kw)
		}
	}
	if got := Kind(0).String(); got != "unknown" {
		t.Errorf("Kind(0).String() = %q", got)
	}
}
