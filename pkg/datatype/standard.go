package datatype

import (
	"maps"
	"slices"
	"sync"

	"github.com/docpipe/docpipe/pkg/document"
)

var (
	GroupedCorpus   = New("grouped_corpus", document.RawCodecName, Grouped)
	RawCorpus       = New("raw_corpus", document.RawCodecName, Grouped, Raw)
	TextCorpus      = New("text_corpus", document.TextCodecName, Grouped, Text)
	TokenizedCorpus = New("tokenized_corpus", document.TokensCodecName, Grouped, Text, Tokenized)
	JSONCorpus      = New("json_corpus", document.JSONCodecName, Grouped, JSON)
	VocabCounts     = New("vocab_counts", document.JSONCodecName, Vocabulary, JSON)
)

var (
	mu       sync.RWMutex
	registry = map[string]Datatype{}
)

func init() {
	for _, d := range []Datatype{GroupedCorpus, RawCorpus, TextCorpus, TokenizedCorpus, JSONCorpus, VocabCounts} {
		registry[d.Name] = d
	}
}

// Register makes d available to Lookup. A later registration with the same
// name replaces an earlier one.
func Register(d Datatype) {
	mu.Lock()
	defer mu.Unlock()
	registry[d.Name] = d
}

// Lookup returns the registered datatype with the given name.
func Lookup(name string) (Datatype, bool) {
	mu.RLock()
	defer mu.RUnlock()
	d, ok := registry[name]
	return d, ok
}

// Names returns the registered datatype names in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	return slices.Sorted(maps.Keys(registry))
}
