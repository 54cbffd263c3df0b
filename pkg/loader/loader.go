// Package loader builds pipelines from YAML definitions.
//
// A definition names its modules in declaration order. Each module gives its
// type, its options and, per input slot, one or more references of the form
// "module.output" or "module" for the module's default output:
//
//	name: example
//	modules:
//	  - name: input
//	    type: input_text
//	    options:
//	      files: data/*.txt
//	  - name: tokens
//	    type: tokenize
//	    inputs:
//	      text: input
//	variants:
//	  lower:
//	    tokens:
//	      lowercase: true
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docpipe/docpipe/pkg/pipeline"
)

var (
	ErrInvalidDefinition = errors.New("invalid pipeline definition")
	ErrUnknownVariant    = errors.New("unknown variant")
)

// Definition is a parsed pipeline definition.
type Definition struct {
	Name     string                       `yaml:"name"`
	Modules  []ModuleDef                  `yaml:"modules"`
	Variants map[string]map[string]Values `yaml:"variants"`
}

type ModuleDef struct {
	Name    string             `yaml:"name"`
	Type    string             `yaml:"type"`
	Options Values             `yaml:"options"`
	Inputs  map[string]RefList `yaml:"inputs"`
}

// Values is a set of option values. Any YAML scalar is accepted and kept as
// written.
type Values map[string]string

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: options must be a mapping", node.Line)
	}
	values := make(Values, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if value.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: option '%s' must be a scalar", value.Line, key.Value)
		}
		values[key.Value] = value.Value
	}
	*v = values
	return nil
}

// RefList is one input reference or a list of them.
type RefList []string

func (r *RefList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*r = RefList{node.Value}
		return nil
	case yaml.SequenceNode:
		var refs []string
		if err := node.Decode(&refs); err != nil {
			return err
		}
		*r = refs
		return nil
	default:
		return fmt.Errorf("line %d: input must be a reference or a list of references", node.Line)
	}
}

// Parse decodes a definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("%w: missing pipeline name", ErrInvalidDefinition)
	}
	for i, m := range def.Modules {
		if m.Name == "" || m.Type == "" {
			return nil, fmt.Errorf("%w: module %d needs a name and a type", ErrInvalidDefinition, i)
		}
		if strings.Contains(m.Name, ".") {
			return nil, fmt.Errorf("%w: module name '%s' contains '.'", ErrInvalidDefinition, m.Name)
		}
	}
	return &def, nil
}

func ParseFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Build creates the pipeline, resolving module types through reg, and
// applies the named variant. An empty variant or pipeline.DefaultVariant
// means no overrides. The result is checked for cycles.
func (d *Definition) Build(reg *pipeline.Registry, variant string) (*pipeline.Pipeline, error) {
	p := pipeline.New(d.Name)
	for _, def := range d.Modules {
		m, err := reg.NewModule(def.Name, def.Type, def.Options)
		if err != nil {
			return nil, err
		}
		if err := p.AddModule(m); err != nil {
			return nil, err
		}
	}

	for _, def := range d.Modules {
		for _, slot := range slices.Sorted(maps.Keys(def.Inputs)) {
			for _, ref := range def.Inputs[slot] {
				producer, output, _ := strings.Cut(ref, ".")
				if err := p.Connect(producer, output, def.Name, slot); err != nil {
					return nil, err
				}
			}
		}
	}

	if variant != "" && variant != pipeline.DefaultVariant {
		overrides, ok := d.Variants[variant]
		if !ok {
			return nil, fmt.Errorf("%w '%s' in pipeline '%s'", ErrUnknownVariant, variant, d.Name)
		}
		resolved := make(map[string]map[string]string, len(overrides))
		for module, values := range overrides {
			resolved[module] = values
		}
		if err := p.ApplyVariant(variant, resolved); err != nil {
			return nil, err
		}
	}

	if err := p.CheckForCycles(); err != nil {
		return nil, err
	}
	return p, nil
}

// VariantNames returns the variants the definition declares, including the
// default variant, in sorted order.
func (d *Definition) VariantNames() []string {
	names := slices.Collect(maps.Keys(d.Variants))
	if !slices.Contains(names, pipeline.DefaultVariant) {
		names = append(names, pipeline.DefaultVariant)
	}
	slices.Sort(names)
	return names
}

// Load parses the definition at path and builds the named variant.
func Load(path string, reg *pipeline.Registry, variant string) (*pipeline.Pipeline, error) {
	def, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return def.Build(reg, variant)
}
