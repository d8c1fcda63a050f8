package glr

import (
	"fmt"

	"github.com/dekarrin/rezi"
)

// Tables is the decoded form of the binary blob described in spec.md
// section 6: a generator-produced bundle of states, actions, gotos,
// recoveries, tokenizer DFAs, term-to-tag names, and dialect masks. It is
// loadable without mutation — nothing here writes back into a *Tables
// after LoadTables returns.
type Tables struct {
	Name string

	States []ParseState

	// TagNames maps a Symbol to its display name; dense and indexed by
	// term ID, per design note 5 (replacing the source's string-keyed
	// TagMap with an array indexed by term ID, since tags are dense).
	TagNames []string

	// InitialState is the state the parser starts in.
	InitialState StateID

	// Dialects names the optional-feature bits a grammar declares, so a
	// host can look a dialect up by name instead of hand-building a
	// []bool. Index into the slice is the bit position passed to
	// NewDialect's flags.
	Dialects []string
}

// encodedTables is the flat, reflection-friendly shape rezi actually
// walks: ParseState holds unexported bookkeeping fields (hasAlwaysReduce,
// hasDefaultReduce) that a reflection-based codec should not need to know
// about, so the wire format separates "reduce present" from "reduce
// value" explicitly instead.
type encodedTables struct {
	Name         string
	InitialState StateID
	TagNames     []string
	Dialects     []string
	States       []encodedState
}

type encodedState struct {
	ID                StateID
	Actions           []ActionPair
	Goto              []GotoPair
	Recover           []RecoverPair
	HasAlwaysReduce   bool
	AlwaysReduce      Action
	HasDefaultReduce  bool
	DefaultReduce     Action
	SkipTokenizer     encodedTokenizer
	HasSkip           bool
	Tokenizers        []encodedTokenizer
}

type encodedTokenizer struct {
	Kind       TokenizerKind
	Contextual bool
	Fallback   bool
	Extend     bool
	GroupData  []uint16
}

// LoadTables decodes a binary table blob produced by the (external)
// grammar generator. It never mutates the blob and never mutates any
// previously loaded Tables; each call produces an independent value.
//
// External tokenizers cannot be serialized generically, so a blob that
// declares one is decoded with a nil External hook; callers that use
// external tokenizers pass a *Tables built directly in Go instead of
// round-tripping through LoadTables.
func LoadTables(blob []byte) (*Tables, error) {
	var enc encodedTables
	if _, err := rezi.DecBinary(blob, &enc); err != nil {
		return nil, fmt.Errorf("%w: decode table blob: %v", ErrTableInconsistent, err)
	}
	return enc.decode()
}

// Encode serializes t into the binary blob format LoadTables reads back.
func (t *Tables) Encode() []byte {
	return rezi.EncBinary(t.encode())
}

func (t *Tables) encode() encodedTables {
	enc := encodedTables{
		Name:         t.Name,
		InitialState: t.InitialState,
		TagNames:     t.TagNames,
		Dialects:     t.Dialects,
		States:       make([]encodedState, len(t.States)),
	}
	for i, s := range t.States {
		es := encodedState{
			ID:               s.ID,
			Actions:          s.Actions,
			Goto:             s.Goto,
			Recover:          s.Recover,
			HasAlwaysReduce:  s.HasAlwaysReduce(),
			AlwaysReduce:     s.AlwaysReduce,
			HasDefaultReduce: s.HasDefaultReduce(),
			DefaultReduce:    s.DefaultReduce,
		}
		if s.Skip != nil && s.Skip.Kind == TokenizerGroup {
			es.HasSkip = true
			es.SkipTokenizer = encodeTokenizer(s.Skip)
		}
		for _, tk := range s.Tokenizers {
			if tk.Kind != TokenizerGroup {
				continue // external tokenizers are host-wired, not serialized
			}
			es.Tokenizers = append(es.Tokenizers, encodeTokenizer(tk))
		}
		enc.States[i] = es
	}
	return enc
}

func encodeTokenizer(t *Tokenizer) encodedTokenizer {
	return encodedTokenizer{
		Kind:       t.Kind,
		Contextual: t.Contextual,
		Fallback:   t.Fallback,
		Extend:     t.Extend,
		GroupData:  t.Group.Data,
	}
}

func (enc *encodedTables) decode() (*Tables, error) {
	t := &Tables{
		Name:         enc.Name,
		InitialState: enc.InitialState,
		TagNames:     enc.TagNames,
		Dialects:     enc.Dialects,
		States:       make([]ParseState, len(enc.States)),
	}
	for i, es := range enc.States {
		s := ParseState{
			ID:      es.ID,
			Actions: es.Actions,
			Goto:    es.Goto,
			Recover: es.Recover,
		}
		if es.HasAlwaysReduce {
			s.SetAlwaysReduce(es.AlwaysReduce)
		}
		if es.HasDefaultReduce {
			s.SetDefaultReduce(es.DefaultReduce)
		}
		if es.HasSkip {
			s.Skip = decodeTokenizer(es.SkipTokenizer)
		}
		for _, et := range es.Tokenizers {
			s.Tokenizers = append(s.Tokenizers, decodeTokenizer(et))
		}
		if int(s.ID) != i {
			return nil, fmt.Errorf("%w: state %d stored at index %d", ErrTableInconsistent, s.ID, i)
		}
		t.States[i] = s
	}
	return t, nil
}

func decodeTokenizer(et encodedTokenizer) *Tokenizer {
	return &Tokenizer{
		Kind:       et.Kind,
		Contextual: et.Contextual,
		Fallback:   et.Fallback,
		Extend:     et.Extend,
		Group:      &GroupTokenizer{Data: et.GroupData},
	}
}

// StateAt returns the ParseState for id, or an error if id is out of
// range: a table inconsistency per spec.md section 7, since it indicates
// a malformed or mismatched table rather than malformed input.
func (t *Tables) StateAt(id StateID) (*ParseState, error) {
	if int(id) >= len(t.States) {
		return nil, fmt.Errorf("%w: unknown state %d", ErrTableInconsistent, id)
	}
	return &t.States[id], nil
}

// TagName returns the display name for a term, or "" if unknown.
func (t *Tables) TagName(sym Symbol) string {
	if int(sym) < len(t.TagNames) {
		return t.TagNames[sym]
	}
	return ""
}
