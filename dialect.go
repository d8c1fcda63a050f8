package glr

// Dialect is a runtime-selected subset of terms allowed to match,
// supporting optional grammar features (spec.md Glossary: "Dialect").
// A nil *Dialect allows every term.
type Dialect struct {
	enabled []bool
}

// NewDialect builds a Dialect from per-term flags: flags[term] reports
// whether term is allowed. Terms not present in the flags slice default
// to allowed, matching the "dialect-less" (full-language) parse.
func NewDialect(flags []bool) *Dialect {
	return &Dialect{enabled: flags}
}

// Allows reports whether term may match under this dialect.
func (d *Dialect) Allows(term Symbol) bool {
	if d == nil || int(term) >= len(d.enabled) {
		return true
	}
	return d.enabled[term]
}

// With returns a copy of the dialect with term's enablement overridden.
// Useful for composing a dialect from a base plus a handful of toggles
// without mutating a shared Dialect.
func (d *Dialect) With(term Symbol, allow bool) *Dialect {
	n := int(term) + 1
	if d != nil && len(d.enabled) > n {
		n = len(d.enabled)
	}
	flags := make([]bool, n)
	for i := range flags {
		flags[i] = d.Allows(Symbol(i))
	}
	flags[term] = allow
	return &Dialect{enabled: flags}
}
