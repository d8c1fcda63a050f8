package glr

import "fmt"

// stackBufferStride is the width of one tree-building quad: tag, start,
// end, childCount, lookAhead. lookAhead rides along so the tree built
// from this buffer can tell, per node, how far a token touching it
// peeked past its own end — the bound incremental reuse needs to decide
// whether an edit outside a node's span still invalidates it (spec.md
// section 4.7).
const stackBufferStride = 5

// Stack is one head of the graph-structured parse stack (GSS) of
// spec.md sections 4.3/4.4: a parser state, an input position, a
// dynamic score used to break ties when heads converge, and a flat
// buffer of tree-building records (tag, start, end, childCount,
// lookAhead) in postfix order. Forking clones only the head — the state stack's
// parent chain below it is shared structurally through the arena, and
// only the head's own in-progress buffer is deep-copied, since the two
// forks build independent output from that point forward.
type Stack struct {
	arena *gssArena
	node  int32

	pos   int
	score int

	buffer []uint32

	// reused holds whole previously-built subtrees spliced directly into
	// buffer via reuseNode, indexed by the reusedMarker quad's start
	// field (spec.md section 4.7).
	reused []*Tree

	dead     bool
	accepted bool

	// recoverAttempts bounds consecutive synthetic-reduce and skip-a-token
	// recoveries (a shift or a resync resets it) so a head that can never
	// resync gets dropped instead of looping for the
	// rest of the input (spec.md section 4.5's soft-recovery guarantee).
	recoverAttempts int

	// recovery accumulates counts for the Recoverable report eventually
	// attached to this head's tree, if it survives to acceptance.
	recovery Recoverable
}

func newStack(arena *gssArena, initial StateID) *Stack {
	return &Stack{arena: arena, node: arena.root(initial)}
}

// State returns the parser state at the top of this head's state stack.
func (s *Stack) State() StateID { return s.arena.get(s.node).state }

// Pos returns the input position this head has reached.
func (s *Stack) Pos() int { return s.pos }

// Score returns the head's accumulated dynamic precedence.
func (s *Stack) Score() int { return s.score }

// Buffer returns the head's tree-building quads, in postfix order.
func (s *Stack) Buffer() []uint32 { return s.buffer }

func (s *Stack) Dead() bool         { return s.dead }
func (s *Stack) SetDead(dead bool)  { s.dead = dead }
func (s *Stack) Accepted() bool     { return s.accepted }
func (s *Stack) SetAccepted(v bool) { s.accepted = v }

// clone forks this head: the state stack is shared via the arena; the
// buffer is independently owned from this point on.
func (s *Stack) clone() *Stack {
	buf := make([]uint32, len(s.buffer))
	copy(buf, s.buffer)
	var reused []*Tree
	if len(s.reused) > 0 {
		reused = make([]*Tree, len(s.reused))
		copy(reused, s.reused)
	}
	return &Stack{
		arena:           s.arena,
		node:            s.node,
		pos:             s.pos,
		score:           s.score,
		buffer:          buf,
		reused:          reused,
		dead:            s.dead,
		accepted:        s.accepted,
		recoverAttempts: s.recoverAttempts,
		recovery:        s.recovery,
	}
}

// shift pushes `state`, advances pos to end, and appends a leaf quad for
// the shifted token, recording lookAhead (the furthest position the
// tokenizer peeked at while producing it). Shifting bumps score, so a
// head that matched directly outranks one that only got here via
// reduce/recovery ties (spec.md section 4.4's dynamic-precedence rule).
func (s *Stack) shift(state StateID, term Symbol, start, end, lookAhead int) {
	s.node = s.arena.alloc(state, s.node)
	if lookAhead < end {
		lookAhead = end
	}
	s.buffer = append(s.buffer, uint32(term), uint32(start), uint32(end), 0, uint32(lookAhead))
	s.pos = end
	s.score++
	s.recoverAttempts = 0
}

// reduce pops `depth` frames by reparenting to the ancestor `depth`
// links up the chain, then pushes `gotoState`. The buffer is append-
// only: a reduction's children are exactly the `depth` top-level sibling
// quads already sitting immediately before the new quad, so nothing
// needs to be removed — only a new (term, start, end, depth, pos) record
// is appended on top. Reduces never consume input, so the new quad's span
// runs from the earliest popped sibling's start (read back out of the
// buffer itself) to the head's current position.
//
// Finding that earliest sibling's quad is not a flat `depth`-quad
// subtraction: a popped sibling that is itself a previously reduced
// nonterminal owns every one of its descendants' quads too, so the
// siblings are not the last `depth` consecutive buffer entries in
// general — quadFirstIndex must be walked once per sibling, exactly as
// decodePostfixNode walks children, to skip each one's whole subtree.
func (s *Stack) reduce(depth int, gotoState StateID, term Symbol) error {
	if depth*stackBufferStride > len(s.buffer) {
		return fmt.Errorf("%w: reduce depth %d exceeds stack", ErrTableInconsistent, depth)
	}
	ancestor := s.node
	if depth > 0 {
		ancestor = s.arena.ancestor(s.node, depth)
		if ancestor < 0 {
			return fmt.Errorf("%w: reduce depth %d exceeds stack", ErrTableInconsistent, depth)
		}
	}

	start := s.pos
	if depth > 0 {
		cur := len(s.buffer)/stackBufferStride - 1
		for i := 0; i < depth; i++ {
			cur = quadFirstIndex(s.buffer, cur) - 1
		}
		startQuad := cur + 1
		start = int(s.buffer[startQuad*stackBufferStride+1])
	}

	s.node = s.arena.alloc(gotoState, ancestor)
	s.buffer = append(s.buffer, uint32(term), uint32(start), uint32(s.pos), uint32(depth), uint32(s.pos))
	s.score--
	return nil
}

// reuseNode splices a whole previously-built subtree t directly into the
// buffer in place of re-parsing it: it pushes targetState (the state
// the grammar would be in had it just shifted/reduced this subtree
// fresh), advances pos to t.End, and appends a reusedMarker quad whose
// start field indexes into s.reused rather than holding a literal
// position. Adapted from the teacher's tryReuseSubtree, generalized
// from the single-Node model to the Tree/TreeBuffer split (spec.md
// section 4.7).
func (s *Stack) reuseNode(targetState StateID, t *Tree) {
	idx := len(s.reused)
	s.reused = append(s.reused, t)
	s.node = s.arena.alloc(targetState, s.node)
	s.buffer = append(s.buffer, uint32(t.Tag), uint32(idx), uint32(t.End), reusedMarker, uint32(t.LookAhead))
	s.pos = t.End
	s.score++
}

// recover appends a synthetic, childless error quad spanning
// [start, end), pushes `state`, advances pos to end, and penalizes score
// so a head that needed recovery loses merge ties against one that
// parsed cleanly.
func (s *Stack) recover(state StateID, start, end int) {
	s.node = s.arena.alloc(state, s.node)
	s.buffer = append(s.buffer, uint32(SymErr), uint32(start), uint32(end), 0, uint32(end))
	s.pos = end
	s.score--
}

// mergeStacks drops dead heads and merges heads that converge on the
// same (state, pos), keeping the higher-scoring survivor. Adapted from
// the teacher's mergeStacks, which keyed merges on top state alone;
// here the key also includes pos, since two heads of a true GLR parser
// can land in the same state at different input offsets when rival
// tokenizers disagreed on token length.
func mergeStacks(stacks []*Stack) []*Stack {
	alive := stacks[:0]
	for _, s := range stacks {
		if !s.dead {
			alive = append(alive, s)
		}
	}
	if len(alive) <= 1 {
		return alive
	}

	type key struct {
		state StateID
		pos   int
	}
	best := make(map[key]int, len(alive))
	result := alive[:0]
	for _, s := range alive {
		k := key{state: s.State(), pos: s.pos}
		if idx, ok := best[k]; ok {
			if s.score > result[idx].score {
				result[idx] = s
			}
			continue
		}
		best[k] = len(result)
		result = append(result, s)
	}
	return result
}
