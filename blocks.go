package jscc

type branchState int

const (
	// awaiting: no branch of the block has matched yet.
	awaiting branchState = iota
	// active: the current branch is live.
	active
	// skipping: an earlier branch matched, or the parent is not live.
	skipping
)

type block struct {
	state   branchState
	sawElse bool
	kind    Kind
	line    int
}

// blockStack tracks the open #if/#ifset/#ifnset blocks. A line is live only
// when every open block is active.
type blockStack struct {
	blocks []block
}

func (b *blockStack) depth() int { return len(b.blocks) }

func (b *blockStack) live() bool {
	for _, blk := range b.blocks {
		if blk.state != active {
			return false
		}
	}
	return true
}

// parentLive reports whether the blocks below the top one are all active.
func (b *blockStack) parentLive() bool {
	for _, blk := range b.blocks[:len(b.blocks)-1] {
		if blk.state != active {
			return false
		}
	}
	return true
}

// push opens a block. cond is consulted only when the enclosing blocks are
// live, so conditions in dead code are never evaluated.
func (b *blockStack) push(kind Kind, line int, cond func() (bool, error)) error {
	blk := block{kind: kind, line: line, state: skipping}
	if b.live() {
		ok, err := cond()
		if err != nil {
			return err
		}
		blk.state = awaiting
		if ok {
			blk.state = active
		}
	}
	b.blocks = append(b.blocks, blk)
	return nil
}

// elif moves the top block to its next branch. For #else cond always holds.
func (b *blockStack) elif(kind Kind, line int, cond func() (bool, error)) error {
	if len(b.blocks) == 0 {
		return newError(UnbalancedBlockError, line, "Unexpected #%s", kind)
	}
	top := &b.blocks[len(b.blocks)-1]
	if top.sawElse {
		return newError(UnbalancedBlockError, line, "Unexpected #%s after #else", kind)
	}
	if kind == KindElse {
		top.sawElse = true
	}

	switch top.state {
	case active:
		top.state = skipping
		return nil
	case skipping:
		return nil
	}
	if !b.parentLive() {
		return nil
	}
	ok, err := cond()
	if err != nil {
		return err
	}
	if ok {
		top.state = active
	}
	return nil
}

func (b *blockStack) pop(line int) error {
	if len(b.blocks) == 0 {
		return newError(UnbalancedBlockError, line, "Unexpected #endif")
	}
	b.blocks = b.blocks[:len(b.blocks)-1]
	return nil
}

// unclosed returns the innermost block still open, if any.
func (b *blockStack) unclosed() (block, bool) {
	if len(b.blocks) == 0 {
		return block{}, false
	}
	return b.blocks[len(b.blocks)-1], true
}
