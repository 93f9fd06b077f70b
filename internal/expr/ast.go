package expr

// Node is an expression tree node.
type Node interface {
	node()
}

type (
	literalNode struct {
		value any
	}

	identNode struct {
		name string
	}

	templateNode struct {
		quasis []string
		exprs  []Node
	}

	arrayNode struct {
		elems []Node
	}

	property struct {
		key      string
		computed Node
		value    Node
	}

	objectNode struct {
		props []property
	}

	memberNode struct {
		object   Node
		name     string
		computed Node
		optional bool
	}

	callNode struct {
		callee   Node
		args     []Node
		optional bool
	}

	// newNode is new callee(args); args is nil for new callee.
	newNode struct {
		callee Node
		args   []Node
	}

	unaryNode struct {
		op      string
		operand Node
	}

	binaryNode struct {
		op          string
		left, right Node
	}

	conditionalNode struct {
		test, consequent, alternate Node
	}

	sequenceNode struct {
		list []Node
	}
)

func (literalNode) node()     {}
func (identNode) node()       {}
func (templateNode) node()    {}
func (arrayNode) node()       {}
func (objectNode) node()      {}
func (memberNode) node()      {}
func (callNode) node()        {}
func (newNode) node()         {}
func (unaryNode) node()       {}
func (binaryNode) node()      {}
func (conditionalNode) node() {}
func (sequenceNode) node()    {}

// describe renders a callee for "is not a function" messages.
func describe(n Node) string {
	switch x := n.(type) {
	case identNode:
		return x.name
	case memberNode:
		if x.computed != nil {
			return describe(x.object) + "[...]"
		}
		return describe(x.object) + "." + x.name
	case callNode:
		return describe(x.callee) + "(...)"
	case newNode:
		return "new " + describe(x.callee)
	case literalNode:
		return ToString(x.value)
	}
	return "expression"
}
