// Package glr implements the runtime core of a generalized LR (GLR) parser:
// packed binary parse tables, a tokenizer interpreter, a graph-structured
// parse stack with fork/merge semantics, and a two-representation syntax
// tree (Tree / TreeBuffer) that supports incremental reuse across edits.
//
// The grammar generator that produces the binary tables, language bindings,
// and editor integration are treated as external collaborators; this
// package only consumes compiled tables.
package glr
