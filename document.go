package jscc

// Document is a literate markdown source: the pragmas at the top of the file
// and the fenced code blocks the preprocessor runs on.
type Document struct {
	Metadata MetaData
	// Document-level pragmas controlling tangling
	Pragmas Pragma
	Blocks  []CodeBlock
}

type MetaData struct {
	// The absolute path of the markdown file
	AbsSource string
}

type PragmaKey string

const (
	PragmaOutput    PragmaKey = "output"
	PragmaKeepLines PragmaKey = "keepLines"
)

type Pragma struct {
	// Output file, relative to the markdown file
	Output string
	// KeepLines places tangled code at its markdown line numbers
	KeepLines bool
}

// Position is the 1-based, inclusive line range of a code block's body in
// the markdown file.
type Position struct {
	StartLine int
	EndLine   int
}

type CodeBlock struct {
	// Code is the block body. After ProcessDocument it holds the
	// preprocessed code.
	Code string
	// Lang is the fence info language, e.g. "js"
	Lang     string
	Position Position
	// LineMap maps each line of the processed Code to its markdown line.
	LineMap []int
}
