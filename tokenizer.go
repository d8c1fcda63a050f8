package glr

// TokenizerKind distinguishes the two tokenizer variants of spec.md
// section 3. Modeled as a tagged union rather than subtyping, per design
// note 1: a narrow capability abstraction with the three flags stored
// inline.
type TokenizerKind uint8

const (
	TokenizerGroup TokenizerKind = iota
	TokenizerExternal
)

// Tokenizer is either a packed group-DFA or a host-provided external
// callback, carrying the three priority flags that govern how multiple
// tokenizers interact at a single state (spec.md section 4.2).
type Tokenizer struct {
	Kind TokenizerKind

	// Contextual: result depends on parse state; never cached across
	// stacks at the same position.
	Contextual bool
	// Fallback: only runs when a higher-priority tokenizer produced a
	// token the state doesn't accept.
	Fallback bool
	// Extend: other, lower-priority tokenizers may still run after this
	// one even though it produced a token.
	Extend bool

	Group    *GroupTokenizer
	External ExternalTokenizer
}

// ExternalTokenizer is a host-provided callback over the character
// stream (spec.md section 6). It may call stream.AcceptToken.
type ExternalTokenizer interface {
	Token(stream *InputStream, stack *Stack)
}

// Run executes this tokenizer against is, under groupMask and dialect,
// writing into is.Token() via AcceptToken if a term matches.
func (t *Tokenizer) Run(is *InputStream, groupMask uint16, dialect *Dialect, stack *Stack) {
	switch t.Kind {
	case TokenizerGroup:
		t.Group.run(is, groupMask, dialect)
	case TokenizerExternal:
		if t.External != nil {
			t.External.Token(is, stack)
		}
	}
}

// GroupTokenizer is a packed u16[] DFA table, per state carrying a group
// mask, an accepting-token list, and sorted outgoing character-range
// edges (spec.md section 3). The table layout, per state starting at
// index `state`:
//
//	Data[state+0] = group mask
//	Data[state+1] = accEnd   (absolute index; [state+3, accEnd) are
//	                           (term, mask) accepting pairs)
//	Data[state+2] = edgeEnd  (absolute index; [accEnd, edgeEnd) are
//	                           (from, toExclusive, nextState) edge triples,
//	                           sorted by `from`)
//
// The next state's header begins at edgeEnd.
type GroupTokenizer struct {
	Data []uint16
}

// run is the group-DFA execution algorithm of spec.md section 4.2.
func (g *GroupTokenizer) run(is *InputStream, groupMask uint16, dialect *Dialect) {
	if g == nil || len(g.Data) == 0 {
		return
	}
	state := 0
	for {
		if state+2 >= len(g.Data) {
			return
		}
		mask := g.Data[state]
		if mask&groupMask == 0 {
			return
		}
		accEnd := int(g.Data[state+1])
		edgeEnd := int(g.Data[state+2])

		for i := state + 3; i+1 < accEnd && i+1 <= len(g.Data)-1; i += 2 {
			term := Symbol(g.Data[i])
			m := g.Data[i+1]
			if m&groupMask != 0 && dialect.Allows(term) {
				is.AcceptToken(term, 0)
			}
		}

		ch := is.Next()
		if ch < 0 {
			return
		}
		next, ok := g.findEdge(accEnd, edgeEnd, uint16(ch))
		if !ok {
			return
		}
		is.Advance(1)
		state = next
	}
}

// findEdge binary-searches the sorted edge triples in [accEnd, edgeEnd)
// for the one whose [from, to) range contains ch.
func (g *GroupTokenizer) findEdge(accEnd, edgeEnd int, ch uint16) (int, bool) {
	numEdges := (edgeEnd - accEnd) / 3
	lo, hi := 0, numEdges
	for lo < hi {
		mid := (lo + hi) / 2
		from := g.Data[accEnd+mid*3]
		if ch < from {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	idx := lo - 1
	if idx < 0 {
		return 0, false
	}
	base := accEnd + idx*3
	from, to, next := g.Data[base], g.Data[base+1], g.Data[base+2]
	if ch >= from && ch < to {
		return int(next), true
	}
	return 0, false
}

// runTokenizers executes state's skip tokenizer then its main tokenizers
// in priority order, per the policy of spec.md section 4.2: the first
// tokenizer that returns a token normally wins and suppresses the rest of
// the (non-fallback, non-extend) search; a fallback tokenizer only runs
// when the current winner is absent from state.Actions (or there is no
// winner yet), and when it does run it replaces that winner (spec.md
// section 8 invariant 4: the higher-priority token is chosen unless it is
// absent from state.actions and the lower-priority one carries
// fallback=true); an extend tokenizer never suppresses lower-priority
// ones, whether or not it wins.
//
// It returns the winning token snapshot and whether it was produced by
// the skip tokenizer (the caller should consume it by advancing and
// re-entering the step, per spec.md section 4.4 step 2).
func runTokenizers(is *InputStream, s *ParseState, groupMask uint16, dialect *Dialect, stack *Stack) (Token, bool) {
	start := is.Pos()

	if s.Skip != nil {
		tok := tryTokenizer(is, s.Skip, start, groupMask, dialect, stack)
		if tok.Value != SymEOF {
			return tok, true
		}
	}

	var won *Token
	suppressed := false
	for _, t := range s.Tokenizers {
		if t.Fallback {
			if won != nil && s.HasAction(won.Value) {
				continue
			}
		} else if suppressed {
			continue
		}

		tok := tryTokenizer(is, t, start, groupMask, dialect, stack)
		if tok.Value == SymEOF {
			continue
		}
		if won == nil || (t.Fallback && !s.HasAction(won.Value)) {
			snap := tok
			won = &snap
		}
		if !t.Fallback && !t.Extend {
			suppressed = true
		}
	}

	if won == nil {
		is.Reset(start, is.Token())
		return Token{Value: SymEOF, Start: start, End: start}, false
	}
	is.Reset(won.End, is.Token())
	return *won, false
}

func tryTokenizer(is *InputStream, t *Tokenizer, start int, groupMask uint16, dialect *Dialect, stack *Stack) Token {
	tok := &Token{LookAhead: is.Token().LookAhead}
	is.Reset(start, tok)
	t.Run(is, groupMask, dialect, stack)
	tok.Start = start
	return *tok
}
