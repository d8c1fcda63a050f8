package glr

// ResolvePosition returns the innermost tagged node of root containing
// pos, descending through whichever representation (unpacked children
// or a packed TreeBuffer) actually holds that span — Tree.Children
// already hides that split, so resolution only ever walks *Tree values.
// Untagged container nodes are transparent to the result: the walk
// keeps descending through them but only remembers a node as the
// answer once it is tagged (spec.md section 4.8).
func ResolvePosition(root *Tree, pos int) *Tree {
	var result *Tree
	cur := root
	for cur != nil {
		if cur.Tag.Tagged() {
			result = cur
		}
		cur = childContaining(cur, pos)
	}
	return result
}

func childContaining(t *Tree, pos int) *Tree {
	for _, c := range t.Children() {
		if pos >= c.Start && pos < c.End {
			return c
		}
	}
	return nil
}

// Cursor walks a Tree in document order, yielding only tagged nodes.
// Untagged container nodes are never yielded themselves, but their
// children are still visited in their place (spec.md section 4.8:
// "cursors iterate tagged nodes in document order, skipping untagged
// container nodes").
type Cursor struct {
	stack []*Tree
}

// Cursor starts a document-order walk rooted at t.
func (t *Tree) Cursor() *Cursor {
	c := &Cursor{}
	if t != nil {
		c.stack = append(c.stack, t)
	}
	return c
}

// Next advances to the next tagged node in document order, returning
// false once the walk is exhausted.
func (c *Cursor) Next() (*Tree, bool) {
	for len(c.stack) > 0 {
		last := len(c.stack) - 1
		n := c.stack[last]
		c.stack = c.stack[:last]

		kids := n.Children()
		for i := len(kids) - 1; i >= 0; i-- {
			c.stack = append(c.stack, kids[i])
		}
		if n.Tag.Tagged() {
			return n, true
		}
	}
	return nil, false
}

// Recoverable reports what a parse's error recovery actually did, for
// callers that want to know how much of the tree came from soft
// recovery rather than a clean parse.
type Recoverable struct {
	// Resynced counts direct jumps via a state's recover table.
	Resynced int
	// Skipped counts synthetic-reduce insertions and single-token
	// skip-and-retry recoveries together.
	Skipped int
}

func (r *Recoverable) Clean() bool { return r == nil || (r.Resynced == 0 && r.Skipped == 0) }
