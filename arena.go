package glr

import "sync"

// gssArena is a slab-backed allocator for GSS stack-frame nodes,
// addressed by index rather than pointer, adapted from the teacher's
// nodeArena slab allocator. Stack forking shares the parent chain
// structurally (design note 2): rather than reference-counting each
// frame as forks come and go, a whole parse's generation of frames is
// carved out of one arena and the whole arena is reset in one shot when
// the parse ends, instead of per-node refcounting.
type gssArena struct {
	nodes []gssNode
}

// gssNode is one frame of a shared GSS parent chain: a parser state plus
// a link to the frame beneath it. parent is -1 at the bottom of the
// stack.
type gssNode struct {
	state  StateID
	parent int32
}

const (
	defaultGSSArenaCap = 4 * 1024
	maxRetainedGSSCap  = 256 * 1024
)

var gssArenaPool = sync.Pool{
	New: func() any { return newGSSArena() },
}

func newGSSArena() *gssArena {
	return &gssArena{nodes: make([]gssNode, 0, defaultGSSArenaCap)}
}

func acquireGSSArena() *gssArena {
	return gssArenaPool.Get().(*gssArena)
}

func releaseGSSArena(a *gssArena) {
	if a == nil {
		return
	}
	a.reset()
	gssArenaPool.Put(a)
}

// root allocates a parentless frame for an initial parser state.
func (a *gssArena) root(state StateID) int32 {
	return a.alloc(state, -1)
}

func (a *gssArena) alloc(state StateID, parent int32) int32 {
	a.nodes = append(a.nodes, gssNode{state: state, parent: parent})
	return int32(len(a.nodes) - 1)
}

func (a *gssArena) get(ref int32) gssNode {
	return a.nodes[ref]
}

// ancestor walks `depth` parent links up from ref, returning -1 if the
// chain runs out first — a reduce whose depth exceeds the stack beneath
// it, which is a table inconsistency rather than a parse-time condition.
func (a *gssArena) ancestor(ref int32, depth int) int32 {
	for i := 0; i < depth; i++ {
		if ref < 0 {
			return -1
		}
		ref = a.nodes[ref].parent
	}
	return ref
}

// reset frees the whole generation of frames at once, matching the
// teacher's arena release discipline.
func (a *gssArena) reset() {
	if cap(a.nodes) > maxRetainedGSSCap {
		a.nodes = make([]gssNode, 0, defaultGSSArenaCap)
		return
	}
	a.nodes = a.nodes[:0]
}
