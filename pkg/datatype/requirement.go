package datatype

import "strings"

// Requirement is what a module input demands of the datatype connected to
// it. It holds one or more alternative capability sets; a datatype satisfies
// the requirement if it provides all capabilities of any alternative.
type Requirement struct {
	alternatives []Set
}

// Require builds a requirement demanding all of caps. With no capabilities
// any datatype satisfies it.
func Require(caps ...Capability) Requirement {
	return Requirement{alternatives: []Set{NewSet(caps...)}}
}

// Or returns a requirement also satisfied by any datatype providing all of
// caps.
func (r Requirement) Or(caps ...Capability) Requirement {
	alts := append([]Set(nil), r.alternatives...)
	return Requirement{alternatives: append(alts, NewSet(caps...))}
}

// Alternatives returns the capability sets any one of which is sufficient.
func (r Requirement) Alternatives() []Set {
	if len(r.alternatives) == 0 {
		return []Set{NewSet()}
	}
	return append([]Set(nil), r.alternatives...)
}

func (r Requirement) SatisfiedBy(d Datatype) bool {
	for _, alt := range r.Alternatives() {
		if alt.SubsetOf(d.Capabilities) {
			return true
		}
	}
	return false
}

// Missing returns the capabilities d lacks for the alternative it comes
// closest to satisfying.
func (r Requirement) Missing(d Datatype) Set {
	var best Set
	for i, alt := range r.Alternatives() {
		missing := alt.Minus(d.Capabilities)
		if i == 0 || missing.Len() < best.Len() {
			best = missing
		}
	}
	return best
}

func (r Requirement) String() string {
	alts := r.Alternatives()
	parts := make([]string, len(alts))
	for i, alt := range alts {
		parts[i] = alt.String()
	}
	return strings.Join(parts, " or ")
}

// Satisfies reports whether provided satisfies required.
func Satisfies(provided Datatype, required Requirement) bool {
	return required.SatisfiedBy(provided)
}
