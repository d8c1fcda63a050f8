package glr

// ChangedRange names a span of the old tree's coordinate space that no
// longer matches the new input, as produced by a caller's diff between
// the previous and current source text. FromB/ToB record where that
// span maps to in the new text, for callers that already have the diff
// in hand; reuse itself only needs FromA/ToA.
type ChangedRange struct {
	FromA, ToA int
	FromB, ToB int
}

// reusable reports whether t can be spliced unchanged into a reparse
// against edits. A node is reusable only if no edit touches the span it
// actually depends on — which runs to max(End, LookAhead), not just
// End, since a token belonging to this subtree may have peeked past its
// own end while deciding where it stopped (spec.md section 4.7's fix
// for the off-by-one this produces if only End is checked). An error
// node is never reused, since its presence already means something
// about its span did not parse cleanly.
func (t *Tree) reusable(edits []ChangedRange) bool {
	if t == nil || t.IsError {
		return false
	}
	boundary := t.End
	if t.LookAhead > boundary {
		boundary = t.LookAhead
	}
	for _, e := range edits {
		if e.FromA < boundary && t.Start < e.ToA {
			return false
		}
	}
	return true
}

// reuseFrame is one entry of a reuseIndex's explicit walk stack.
type reuseFrame struct {
	node       *Tree
	underDirty bool
}

// reuseIndex walks an old Tree in pre-order, offering up the largest
// reusable subtrees starting exactly at a queried position. Adapted from
// the teacher's reuseCursor: a dirty (edit-touching) node is never
// offered itself, but its children still are, since an edit inside a
// node does not necessarily invalidate every sibling subtree beneath
// it.
//
// Positions are used exactly as they appear in the old tree; a caller
// whose edits change the overall text length must pre-translate the
// cached tree's positions or accept that reuse stops once the position
// spaces diverge. Full position remapping across edits is not
// implemented here (see DESIGN.md).
type reuseIndex struct {
	edits []ChangedRange

	stack []reuseFrame
	next  *Tree
	has   bool

	cachedStart      int
	cachedStartValid bool
	cached           []*Tree
}

// newReuseIndex builds a reuseIndex over old, to be consulted while
// reparsing against edits. A nil old tree yields an index that never
// offers a candidate.
func newReuseIndex(old *Tree, edits []ChangedRange) *reuseIndex {
	idx := &reuseIndex{edits: edits}
	if old != nil {
		idx.stack = append(idx.stack, reuseFrame{node: old})
	}
	return idx
}

// candidates returns every maximal reusable subtree starting exactly at
// start, in the old tree's pre-order. Queries must be non-decreasing in
// start, mirroring the position order a parse actually visits input.
func (idx *reuseIndex) candidates(start int) []*Tree {
	if idx == nil {
		return nil
	}
	if idx.cachedStartValid {
		if start == idx.cachedStart {
			return idx.cached
		}
		if start < idx.cachedStart {
			return nil
		}
	}

	idx.cached = idx.cached[:0]
	idx.cachedStart = start
	idx.cachedStartValid = true

	for {
		n := idx.peek()
		if n == nil {
			return idx.cached
		}
		if n.Start < start {
			idx.pop()
			continue
		}
		if n.Start > start {
			return idx.cached
		}
		for {
			n = idx.peek()
			if n == nil || n.Start != start {
				return idx.cached
			}
			idx.cached = append(idx.cached, idx.pop())
		}
	}
}

func (idx *reuseIndex) peek() *Tree {
	if idx.has {
		return idx.next
	}
	idx.next = idx.advance()
	idx.has = true
	return idx.next
}

func (idx *reuseIndex) pop() *Tree {
	n := idx.peek()
	idx.has = false
	idx.next = nil
	return n
}

// advance pops the walk stack until it finds a node worth offering: one
// that is itself reusable, descending into a dirty node's children
// instead of offering the node itself.
func (idx *reuseIndex) advance() *Tree {
	for len(idx.stack) > 0 {
		last := len(idx.stack) - 1
		frame := idx.stack[last]
		idx.stack = idx.stack[:last]

		cur := frame.node
		if cur == nil {
			continue
		}

		dirty := !cur.reusable(idx.edits)
		if !dirty {
			return cur
		}

		children := cur.Children()
		for i := len(children) - 1; i >= 0; i-- {
			idx.stack = append(idx.stack, reuseFrame{node: children[i], underDirty: true})
		}
	}
	return nil
}

// tryReuse consults idx for a subtree starting exactly at h.Pos() that
// the table would also reach from h's current state, and if found,
// splices it into h via Stack.reuseNode. Grounded in the teacher's
// tryReuseSubtree/reuseTargetState, generalized from the single-Node
// shape to Tree and from a single TokenSource position to Stack.Pos.
func (p *Parser) tryReuse(h *Stack, idx *reuseIndex) bool {
	if idx == nil {
		return false
	}
	candidates := idx.candidates(h.Pos())
	if len(candidates) == 0 {
		return false
	}

	state, err := p.Tables.StateAt(h.State())
	if err != nil {
		return false
	}

	for _, t := range candidates {
		if t.End <= t.Start {
			continue
		}
		target, ok := reuseTargetState(state, t)
		if !ok {
			continue
		}
		h.reuseNode(target, t)
		return true
	}
	return false
}

// reuseTargetState reports the state the parser would be in had it just
// shifted or reduced t fresh from state, without actually doing so. A
// leaf subtree must match one of the state's shift actions for its own
// tag; an interior subtree must match the state's goto for its tag.
func reuseTargetState(state *ParseState, t *Tree) (StateID, bool) {
	if t.ChildCount() == 0 {
		for _, act := range state.ActionsFor(t.Tag) {
			if act.IsShift() {
				return act.ShiftTarget(), true
			}
		}
		return 0, false
	}
	return state.GetGoto(t.Tag)
}
