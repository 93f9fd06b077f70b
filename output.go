package jscc

import "strings"

// output collects the emitted lines of a run. Each line keeps the
// terminator it had in the input, so only the last input line can end
// without a newline.
type output struct {
	keepLines bool
	mapping   bool
	code      strings.Builder
	lineMap   []int
}

func (o *output) emit(lineNo int, text string, eol bool) {
	o.code.WriteString(text)
	if eol {
		o.code.WriteByte('\n')
	}
	if o.mapping {
		o.lineMap = append(o.lineMap, lineNo)
	}
}

// drop handles an excluded or directive line. With keepLines it leaves an
// empty line in its place, keeping a carriage return so CRLF input stays
// CRLF.
func (o *output) drop(lineNo int, text string, eol bool) {
	if !o.keepLines {
		return
	}
	empty := ""
	if strings.HasSuffix(text, "\r") {
		empty = "\r"
	}
	o.emit(lineNo, empty, eol)
}

func (o *output) result() *Result {
	return &Result{Code: o.code.String(), LineMap: o.lineMap}
}
