package glr

import "sort"

// ActionPair associates a terminal with the action to take on it.
type ActionPair struct {
	Term   Symbol
	Action Action
}

// GotoPair associates a non-terminal with the state to enter after
// reducing to it.
type GotoPair struct {
	NonTerm Symbol
	State   StateID
}

// RecoverPair associates a terminal with the state panic-mode recovery
// should resume in once that terminal is matched.
type RecoverPair struct {
	Term  Symbol
	State StateID
}

// ParseState is one immutable, ID-referenced row of the parse table
// (spec.md section 3). Generated once by the external table compiler and
// never mutated at runtime.
type ParseState struct {
	ID StateID

	// Actions is sorted by Term for binary-search lookup.
	Actions []ActionPair
	// Goto is sorted by NonTerm for binary-search lookup.
	Goto []GotoPair
	// Recover is sorted by Term for binary-search lookup.
	Recover []RecoverPair

	// AlwaysReduce is taken when the current token has no action in this
	// state and no DefaultReduce is set. Whether one is present is
	// recorded by SetAlwaysReduce and reported by HasAlwaysReduce, not by
	// the field's value.
	AlwaysReduce      Action
	hasAlwaysReduce   bool
	DefaultReduce     Action
	hasDefaultReduce  bool

	// Skip is the tokenizer used for whitespace/comments: it produces
	// tokens that advance input but never enter the tree.
	Skip *Tokenizer
	// Tokenizers are tried in priority order for this state.
	Tokenizers []*Tokenizer
}

// SetAlwaysReduce records an unconditional reduce for this state.
func (s *ParseState) SetAlwaysReduce(a Action) {
	s.AlwaysReduce = a
	s.hasAlwaysReduce = true
}

// HasAlwaysReduce reports whether the state has an unconditional reduce.
func (s *ParseState) HasAlwaysReduce() bool { return s.hasAlwaysReduce }

// SetDefaultReduce records the reduce applied when the lookahead matches
// no action but the state permits falling back to a default.
func (s *ParseState) SetDefaultReduce(a Action) {
	s.DefaultReduce = a
	s.hasDefaultReduce = true
}

// HasDefaultReduce reports whether the state has a default reduce.
func (s *ParseState) HasDefaultReduce() bool { return s.hasDefaultReduce }

// Finalize sorts the lookup tables. Call once after populating a
// ParseState built by hand (loaders that decode an already-sorted binary
// blob may skip this).
func (s *ParseState) Finalize() {
	sort.Slice(s.Actions, func(i, j int) bool { return s.Actions[i].Term < s.Actions[j].Term })
	sort.Slice(s.Goto, func(i, j int) bool { return s.Goto[i].NonTerm < s.Goto[j].NonTerm })
	sort.Slice(s.Recover, func(i, j int) bool { return s.Recover[i].Term < s.Recover[j].Term })
}

// ActionsFor returns every action registered for term: normally one, but
// more than one signals a shift/reduce or reduce/reduce conflict that the
// GLR core must fork on.
func (s *ParseState) ActionsFor(term Symbol) []Action {
	lo := sort.Search(len(s.Actions), func(i int) bool { return s.Actions[i].Term >= term })
	hi := lo
	for hi < len(s.Actions) && s.Actions[hi].Term == term {
		hi++
	}
	if lo == hi {
		return nil
	}
	out := make([]Action, hi-lo)
	for i := lo; i < hi; i++ {
		out[i-lo] = s.Actions[i].Action
	}
	return out
}

// HasAction reports whether any action is registered for term.
func (s *ParseState) HasAction(term Symbol) bool {
	i := sort.Search(len(s.Actions), func(i int) bool { return s.Actions[i].Term >= term })
	return i < len(s.Actions) && s.Actions[i].Term == term
}

// GetGoto returns the target state for a non-terminal, and whether one
// was found.
func (s *ParseState) GetGoto(nonTerm Symbol) (StateID, bool) {
	i := sort.Search(len(s.Goto), func(i int) bool { return s.Goto[i].NonTerm >= nonTerm })
	if i < len(s.Goto) && s.Goto[i].NonTerm == nonTerm {
		return s.Goto[i].State, true
	}
	return 0, false
}

// GetRecover returns the recovery target state for a terminal, and
// whether one was found.
func (s *ParseState) GetRecover(term Symbol) (StateID, bool) {
	i := sort.Search(len(s.Recover), func(i int) bool { return s.Recover[i].Term >= term })
	if i < len(s.Recover) && s.Recover[i].Term == term {
		return s.Recover[i].State, true
	}
	return 0, false
}

// AnyReduce returns any reduce action available in this state, used
// during panic-mode recovery when a synthetic insertion is attempted:
// AlwaysReduce if set, else the first positive (reduce) action value.
func (s *ParseState) AnyReduce() (Action, bool) {
	if s.hasAlwaysReduce {
		return s.AlwaysReduce, true
	}
	for _, p := range s.Actions {
		if p.Action.IsReduce() {
			return p.Action, true
		}
	}
	return ActionZero, false
}
