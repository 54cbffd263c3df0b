package datatype

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSatisfies(t *testing.T) {
	tests := map[string]struct {
		provided Datatype
		required Requirement
		ok       bool
		missing  []Capability
	}{
		`superset`: {
			provided: New("d", "raw", Tokenized, Grouped),
			required: Require(Tokenized),
			ok:       true,
		},
		`exact`: {
			provided: TokenizedCorpus,
			required: Require(Grouped, Text, Tokenized),
			ok:       true,
		},
		`missing_capability`: {
			provided: New("d", "raw", Tokenized, Grouped),
			required: Require(Text, Tokenized),
			ok:       false,
			missing:  []Capability{Text},
		},
		`unrelated`: {
			provided: New("parsed", "json", "parsed"),
			required: Require(Tokenized),
			ok:       false,
			missing:  []Capability{Tokenized},
		},
		`empty_requirement`: {
			provided: New("anything", "raw"),
			required: Require(),
			ok:       true,
		},
		`zero_requirement`: {
			provided: RawCorpus,
			required: Requirement{},
			ok:       true,
		},
		`second_alternative`: {
			provided: TextCorpus,
			required: Require(Tokenized).Or(Text),
			ok:       true,
		},
		`closest_alternative`: {
			provided: RawCorpus,
			required: Require(Tokenized, Text).Or(Grouped, JSON),
			ok:       false,
			missing:  []Capability{JSON},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, test.ok, Satisfies(test.provided, test.required))
			require.Equal(t, test.ok, test.provided.Satisfies(test.required))
			if !test.ok {
				require.Equal(t, test.missing, test.required.Missing(test.provided).Values())
			}
		})
	}
}

func TestSet(t *testing.T) {
	s := NewSet(Tokenized, Grouped, Tokenized)
	require.Equal(t, 2, s.Len())
	require.Equal(t, []Capability{Grouped, Tokenized}, s.Values())
	require.Equal(t, "{grouped, tokenized}", s.String())
	require.True(t, NewSet(Grouped).SubsetOf(s))
	require.False(t, s.SubsetOf(NewSet(Grouped)))

	var zero Set
	require.Equal(t, 0, zero.Len())
	require.True(t, zero.SubsetOf(s))
}

func TestLookup(t *testing.T) {
	d, ok := Lookup("tokenized_corpus")
	require.True(t, ok)
	require.True(t, d.Capabilities.Contains(Tokenized))

	_, ok = Lookup("nope")
	require.False(t, ok)

	Register(TextCorpus.With("lower_text_corpus", "lowercase"))
	d, ok = Lookup("lower_text_corpus")
	require.True(t, ok)
	require.Equal(t, "{grouped, lowercase, text}", d.Capabilities.String())
	require.Contains(t, Names(), "lower_text_corpus")
}

func TestRequirementString(t *testing.T) {
	require.Equal(t, "{tokenized} or {text}", Require(Tokenized).Or(Text).String())
}
