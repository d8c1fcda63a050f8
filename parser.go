package glr

import (
	"context"
	"fmt"
)

// DefaultGroupMask is used for ParseOptions.GroupMask when the caller
// leaves it at its zero value: every tokenizer group is eligible.
const DefaultGroupMask uint16 = 0xFFFF

// maxRecoverAttempts bounds consecutive synthetic-reduce and skip-token
// recoveries (with no shift in between) on one head before it is
// dropped, guaranteeing the parser always makes
// forward progress on the input even against pathological tables.
const maxRecoverAttempts = 64

// defaultMaxHeads bounds the live GSS head count; a grammar genuinely
// this ambiguous is almost certainly broken, so pruning the lowest-
// scoring excess heads is preferable to unbounded fork growth.
const defaultMaxHeads = 256

// ParseOptions configures one Parse/Advance call.
type ParseOptions struct {
	// AdvanceBudget caps how many head-steps this call performs before
	// returning a Resumable instead of running to completion. <= 0 means
	// run until the parse finishes (spec.md section 5).
	AdvanceBudget int

	// GroupMask selects which tokenizer groups are eligible. Zero means
	// DefaultGroupMask.
	GroupMask uint16

	// MaxHeads caps live GSS heads. Zero means defaultMaxHeads.
	MaxHeads int

	// OldTree and Edits enable incremental reuse (spec.md section 4.7):
	// when OldTree is non-nil, every head first asks whether a subtree
	// of OldTree starting at its current position survives Edits before
	// falling back to ordinary tokenize-and-act.
	OldTree *Tree
	Edits   []ChangedRange
}

func (o ParseOptions) withDefaults() ParseOptions {
	if o.GroupMask == 0 {
		o.GroupMask = DefaultGroupMask
	}
	if o.MaxHeads <= 0 {
		o.MaxHeads = defaultMaxHeads
	}
	return o
}

// Parser runs a GLR parse against a fixed set of Tables and an optional
// Dialect gating which terminals are reachable.
type Parser struct {
	Tables  *Tables
	Dialect *Dialect
}

// NewParser constructs a Parser. A nil dialect allows every terminal.
func NewParser(tables *Tables, dialect *Dialect) *Parser {
	if dialect == nil {
		dialect = NewDialect(nil)
	}
	return &Parser{Tables: tables, Dialect: dialect}
}

// Resumable is a paused parse: the set of live heads and the stream
// position they reached when their advance budget ran out. Advance
// picks up exactly where the previous call left off.
type Resumable struct {
	p       *Parser
	is      *InputStream
	heads   []*Stack
	opts    ParseOptions
	reuseIx *reuseIndex
}

// Advance resumes a paused parse, running for up to opts.AdvanceBudget
// more head-steps.
func (r *Resumable) Advance(ctx context.Context) (*Tree, *Resumable, error) {
	return r.p.run(ctx, r.is, r.heads, r.opts, r.reuseIx)
}

// Parse runs a full parse over input, returning the resulting Tree, or
// a Resumable if opts.AdvanceBudget was exhausted before the parse
// finished. If opts.OldTree is set, heads consult it for reusable
// subtrees before tokenizing.
func (p *Parser) Parse(ctx context.Context, input Input, gaps []InputGap, opts ParseOptions) (*Tree, *Resumable, error) {
	opts = opts.withDefaults()
	is := NewInputStream(input, gaps)
	arena := acquireGSSArena()
	head := newStack(arena, p.Tables.InitialState)
	var reuseIx *reuseIndex
	if opts.OldTree != nil {
		reuseIx = newReuseIndex(opts.OldTree, opts.Edits)
	}
	return p.run(ctx, is, []*Stack{head}, opts, reuseIx)
}

// run drives every live head forward, one head-step at a time, merging
// converged heads after each step, until one head accepts, all heads
// die, the advance budget runs out, or ctx is cancelled.
func (p *Parser) run(ctx context.Context, is *InputStream, heads []*Stack, opts ParseOptions, reuseIx *reuseIndex) (*Tree, *Resumable, error) {
	var arena *gssArena
	if len(heads) > 0 {
		arena = heads[0].arena
	}

	steps := 0
	for {
		if err := ctx.Err(); err != nil {
			releaseGSSArena(arena)
			return partialTree(heads), nil, err
		}

		preMerge := heads
		heads = mergeStacks(heads)
		if len(heads) == 0 {
			releaseGSSArena(arena)
			// Every head exhausted recovery (spec.md section 4.5): the
			// parser must still produce a tree, never an error, for
			// malformed input (spec.md section 7). Wrap whatever the
			// furthest-progressed head built in a single ERR node
			// spanning the rest of the input and call it accepted.
			return errorTree(preMerge, is.Len()), nil, nil
		}
		for _, h := range heads {
			if h.Accepted() {
				tree := buildTree(h.Buffer(), h.reused)
				if tree != nil && !h.recovery.Clean() {
					rec := h.recovery
					tree.Recovery = &rec
				}
				releaseGSSArena(arena)
				return tree, nil, nil
			}
		}

		if opts.AdvanceBudget > 0 && steps >= opts.AdvanceBudget {
			return nil, &Resumable{p: p, is: is, heads: heads, opts: opts, reuseIx: reuseIx}, nil
		}

		idx := minPosHeadIndex(heads)
		produced, err := p.step(is, heads[idx], opts, reuseIx)
		if err != nil {
			return nil, nil, err
		}
		heads = spliceHeads(heads, idx, produced)

		if len(heads) > opts.MaxHeads {
			heads = prunePoorestHeads(heads, opts.MaxHeads)
		}
		steps++
	}
}

func minPosHeadIndex(heads []*Stack) int {
	best := 0
	for i := 1; i < len(heads); i++ {
		if heads[i].Pos() < heads[best].Pos() {
			best = i
		}
	}
	return best
}

func spliceHeads(heads []*Stack, idx int, produced []*Stack) []*Stack {
	out := make([]*Stack, 0, len(heads)-1+len(produced))
	out = append(out, heads[:idx]...)
	out = append(out, produced...)
	out = append(out, heads[idx+1:]...)
	return out
}

// prunePoorestHeads drops the lowest-scoring heads once the live count
// exceeds the configured cap, so a pathologically ambiguous grammar
// cannot fork without bound.
func prunePoorestHeads(heads []*Stack, max int) []*Stack {
	if len(heads) <= max {
		return heads
	}
	kept := make([]*Stack, len(heads))
	copy(kept, heads)
	for i := 0; i < len(kept); i++ {
		for j := i + 1; j < len(kept); j++ {
			if kept[j].Score() > kept[i].Score() {
				kept[i], kept[j] = kept[j], kept[i]
			}
		}
	}
	return kept[:max]
}

// partialTree builds a best-effort tree from whichever live head has
// made the most progress, for callers that cancel mid-parse (spec.md
// section 5: cancellation still yields a usable, ERR-wrapped tree).
func partialTree(heads []*Stack) *Tree {
	var best *Stack
	for _, h := range heads {
		if h.Dead() {
			continue
		}
		if best == nil || h.Pos() > best.Pos() {
			best = h
		}
	}
	if best == nil {
		return nil
	}
	return wrapAsError(best, best.Pos())
}

// errorTree builds the tree spec.md section 4.4 step 6 calls for when
// every head has been pruned without acceptance: whatever the
// furthest-progressed head (dead or not — all of them are, here) had
// built gets wrapped in a single ERR node that runs out to the end of
// input, so the parser always surfaces a tree instead of an error for
// malformed input (spec.md section 7).
func errorTree(heads []*Stack, inputLen int) *Tree {
	var best *Stack
	for _, h := range heads {
		if best == nil || h.Pos() > best.Pos() {
			best = h
		}
	}
	if best == nil {
		return &Tree{Tag: SymErr, Start: 0, End: inputLen, IsError: true}
	}
	return wrapAsError(best, inputLen)
}

// wrapAsError wraps whatever h has built so far (every top-level subtree
// still in its buffer, in order) in a single ERR node running from the
// first subtree's start (0 if nothing was built yet) out to end.
func wrapAsError(h *Stack, end int) *Tree {
	buf := h.Buffer()
	var kids []*Tree
	for idx := len(buf)/stackBufferStride - 1; idx >= 0; {
		t, first := decodePostfixNode(buf, idx, h.reused)
		kids = append([]*Tree{t}, kids...)
		idx = first - 1
	}
	if len(kids) == 0 {
		return &Tree{Tag: SymErr, Start: 0, End: end, IsError: true}
	}
	return &Tree{Tag: SymErr, Start: kids[0].Start, End: end, IsError: true, kids: kids}
}

// step advances a single head by exactly one unit of progress: a
// skip-token consumption, a fork across one or more table actions, or
// an error-recovery transition.
func (p *Parser) step(is *InputStream, h *Stack, opts ParseOptions, reuseIx *reuseIndex) ([]*Stack, error) {
	if reuseIx != nil && p.tryReuse(h, reuseIx) {
		return []*Stack{h}, nil
	}

	state, err := p.Tables.StateAt(h.State())
	if err != nil {
		return nil, err
	}

	is.Reset(h.Pos(), &Token{})
	tok, isSkip := runTokenizers(is, state, opts.GroupMask, p.Dialect, h)
	if isSkip {
		h.pos = tok.End
		return []*Stack{h}, nil
	}

	actions := state.ActionsFor(tok.Value)
	if tok.Value == SymEOF && tok.Start < is.Len() {
		// No tokenizer recognized anything, but this isn't genuine
		// end-of-input (SymEOF doubles as the "no token produced"
		// sentinel — see runTokenizers). Treating this position as if
		// it actually matched the EOF terminal would let a state with
		// an EOF-keyed accept/reduce action swallow an unrecognized
		// character instead of recovering from it, silently truncating
		// the parse. Force the no-action path so it goes to recovery.
		actions = nil
	}
	if len(actions) == 0 {
		// No table entry names the token directly (spec.md section 4.4
		// step 3): fall back to the state's defaultReduce first (the
		// token-independent "apply this reduce if nothing else
		// matched" entry), then to alwaysReduce (the Open Question #2
		// precedence: a real action for this specific token already
		// won above, so alwaysReduce only ever applies here, never
		// ahead of a matching shift). Only if neither is present does
		// this become a genuine parse error.
		if state.HasDefaultReduce() {
			return p.applyActions(h, []Action{state.DefaultReduce}, tok)
		}
		if state.HasAlwaysReduce() {
			return p.applyActions(h, []Action{state.AlwaysReduce}, tok)
		}
		return p.recover(h, state, tok, is.Len())
	}
	return p.applyActions(h, actions, tok)
}

// applyActions forks h once per action beyond the first (spec.md
// section 4.4: a (state, term) pair with more than one table action is
// exactly where the parse forks) and applies each action to its head.
func (p *Parser) applyActions(h *Stack, actions []Action, tok Token) ([]*Stack, error) {
	// Every fork is cloned before any action mutates h, so each
	// alternative starts from the same pre-action stack.
	result := make([]*Stack, len(actions))
	for i := range actions {
		if i == 0 {
			result[i] = h
		} else {
			result[i] = h.clone()
		}
	}
	for i, act := range actions {
		target := result[i]
		if err := p.applyOne(target, act, tok); err != nil {
			if target.recovery.Clean() {
				return nil, err
			}
			// Recovery has pushed synthetic frames onto this head, so its
			// stack is no longer a table-valid LR stack: a failed reduce
			// ends this head, not the parse.
			target.SetDead(true)
		}
	}
	return result, nil
}

func (p *Parser) applyOne(h *Stack, act Action, tok Token) error {
	switch {
	case act.IsAccept():
		h.SetAccepted(true)
		return nil
	case act.IsShift():
		h.shift(act.ShiftTarget(), tok.Value, tok.Start, tok.End, tok.LookAhead)
		return nil
	case act.IsReduce():
		depth := act.ReduceDepth()
		term := act.ReduceTerm()
		ancestor, err := p.ancestorState(h, depth)
		if err != nil {
			return err
		}
		gotoState, ok := ancestor.GetGoto(term)
		if !ok {
			return fmt.Errorf("%w: no goto for term %d from state %d", ErrTableInconsistent, term, ancestor.ID)
		}
		return h.reduce(depth, gotoState, term)
	default:
		return fmt.Errorf("%w: zero action at state %d", ErrTableInconsistent, h.State())
	}
}

// ancestorState returns the ParseState that will be on top of h's stack
// after popping `depth` frames, without mutating h.
func (p *Parser) ancestorState(h *Stack, depth int) (*ParseState, error) {
	ref := h.node
	if depth > 0 {
		ref = h.arena.ancestor(h.node, depth)
		if ref < 0 {
			return nil, fmt.Errorf("%w: reduce depth %d exceeds stack", ErrTableInconsistent, depth)
		}
	}
	return p.Tables.StateAt(h.arena.get(ref).state)
}

// recover implements spec.md section 4.5's soft-recovery guarantee. Three
// strategies are tried in order, each penalizing score so a head that
// needed recovery loses merge ties against one that parsed cleanly:
//
//  1. If the current state's recover table names a resync state for the
//     offending term, jump straight there.
//  2. Otherwise, if the state has any reduce available at all, try
//     inserting that synthetic reduce — it consumes no input, so the
//     head re-enters step() at the same position under a new state,
//     which may now have a real action for the token.
//  3. Otherwise, skip the single offending token as a synthetic ERR
//     leaf and retry in the same state. At end of input there is nothing
//     left to skip, so the head is abandoned instead.
//
// Strategies 2 and 3 are bounded by maxRecoverAttempts; once exhausted
// the head is abandoned rather than looping for the rest of the input
// (Parser.run still surfaces a tree if every head is abandoned this
// way — see errorTree).
func (p *Parser) recover(h *Stack, state *ParseState, tok Token, inputLen int) ([]*Stack, error) {
	end := tok.End
	if end <= h.Pos() {
		end = h.Pos() + 1 // force forward progress past a zero-width or EOF token
	}

	if target, ok := state.GetRecover(tok.Value); ok {
		h.recover(target, tok.Start, end)
		h.recoverAttempts = 0
		h.recovery.Resynced++
		return []*Stack{h}, nil
	}

	if h.recoverAttempts >= maxRecoverAttempts {
		h.SetDead(true)
		return []*Stack{h}, nil
	}

	if ar, ok := state.AnyReduce(); ok {
		if err := p.applyOne(h, ar, tok); err == nil {
			h.recoverAttempts++
			h.recovery.Skipped++
			return []*Stack{h}, nil
		}
		// The synthetic reduce didn't actually apply here (e.g. no goto
		// for the term it produces from the popped-to state) — not a
		// real table inconsistency, just this strategy not fitting;
		// fall through to skipping the token instead.
	}

	if tok.Start >= inputLen {
		h.SetDead(true)
		return []*Stack{h}, nil
	}

	h.recover(h.State(), tok.Start, end)
	h.recoverAttempts++
	h.recovery.Skipped++
	return []*Stack{h}, nil
}
