// Package datatype describes what a dataset provides as a set of capabilities
// and decides whether a dataset satisfies what a module input requires.
package datatype

import (
	"strings"

	"github.com/emirpasic/gods/sets/treeset"
)

// Capability is a single property a dataset offers to its readers.
type Capability string

const (
	Grouped    Capability = "grouped"
	Text       Capability = "text"
	Tokenized  Capability = "tokenized"
	Raw        Capability = "raw"
	JSON       Capability = "json"
	Vocabulary Capability = "vocabulary"
)

// Set is an immutable, sorted set of capabilities.
type Set struct {
	s *treeset.Set
}

func NewSet(caps ...Capability) Set {
	s := treeset.NewWithStringComparator()
	for _, c := range caps {
		s.Add(string(c))
	}
	return Set{s: s}
}

func (s Set) set() *treeset.Set {
	if s.s == nil {
		return treeset.NewWithStringComparator()
	}
	return s.s
}

func (s Set) Len() int {
	return s.set().Size()
}

func (s Set) Contains(c Capability) bool {
	return s.set().Contains(string(c))
}

// Values returns the capabilities in sorted order.
func (s Set) Values() []Capability {
	values := s.set().Values()
	caps := make([]Capability, len(values))
	for i, v := range values {
		caps[i] = Capability(v.(string))
	}
	return caps
}

// SubsetOf reports whether every capability in s is also in other.
func (s Set) SubsetOf(other Set) bool {
	for _, c := range s.Values() {
		if !other.Contains(c) {
			return false
		}
	}
	return true
}

// Minus returns the capabilities of s missing from other.
func (s Set) Minus(other Set) Set {
	var missing []Capability
	for _, c := range s.Values() {
		if !other.Contains(c) {
			missing = append(missing, c)
		}
	}
	return NewSet(missing...)
}

// Union returns a set holding the capabilities of both sets.
func (s Set) Union(other Set) Set {
	return NewSet(append(s.Values(), other.Values()...)...)
}

func (s Set) String() string {
	values := s.Values()
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = string(v)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Datatype is a named bundle of capabilities together with the codec used to
// store its documents.
type Datatype struct {
	Name         string
	Capabilities Set
	// Codec names the document codec, matching document.Codec.Name.
	Codec string
}

func New(name, codec string, caps ...Capability) Datatype {
	return Datatype{Name: name, Capabilities: NewSet(caps...), Codec: codec}
}

// Satisfies reports whether d provides every capability r demands.
func (d Datatype) Satisfies(r Requirement) bool {
	return r.SatisfiedBy(d)
}

// With returns a copy of d named name with extra capabilities added.
func (d Datatype) With(name string, caps ...Capability) Datatype {
	return Datatype{Name: name, Capabilities: d.Capabilities.Union(NewSet(caps...)), Codec: d.Codec}
}

func (d Datatype) String() string {
	return d.Name + d.Capabilities.String()
}
