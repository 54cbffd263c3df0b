// Package pipeline holds the module graph of a pipeline: module declarations,
// the connections between their inputs and outputs, and the checks and
// orderings computed over them.
package pipeline

import (
	"fmt"
	"maps"
)

const DefaultVariant = "main"

// OutputRef names one output of one module.
type OutputRef struct {
	Module string
	Output string
}

func (r OutputRef) String() string {
	return r.Module + "." + r.Output
}

// Connection feeds a producer's output into a consumer's input.
type Connection struct {
	Producer OutputRef
	Consumer string
	Input    string
}

// Pipeline is a set of modules in declaration order and the connections
// between them. It is not safe for concurrent mutation.
type Pipeline struct {
	Name    string
	Variant string

	modules     []*Module
	index       map[string]int
	connections []Connection
}

func New(name string) *Pipeline {
	return &Pipeline{
		Name:    name,
		Variant: DefaultVariant,
		index:   map[string]int{},
	}
}

func (p *Pipeline) AddModule(m *Module) error {
	if _, ok := p.index[m.Name]; ok {
		return &DuplicateModuleError{Module: m.Name}
	}
	p.index[m.Name] = len(p.modules)
	p.modules = append(p.modules, m)
	return nil
}

func (p *Pipeline) Module(name string) (*Module, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.modules[i], true
}

// Modules returns the modules in declaration order.
func (p *Pipeline) Modules() []*Module {
	return append([]*Module(nil), p.modules...)
}

func (p *Pipeline) ModuleNames() []string {
	names := make([]string, len(p.modules))
	for i, m := range p.modules {
		names[i] = m.Name
	}
	return names
}

// Connect feeds the producer's output into the consumer's input. An empty
// output name selects the producer's default output.
func (p *Pipeline) Connect(producer, output, consumer, input string) error {
	cm, ok := p.Module(consumer)
	if !ok {
		return &UnknownSlotError{Module: consumer, Slot: input, Kind: InputSlotKind}
	}
	slot, ok := cm.Input(input)
	if !ok {
		return &UnknownSlotError{Module: consumer, Slot: input, Kind: InputSlotKind}
	}

	pm, ok := p.Module(producer)
	if !ok {
		return &UnknownSlotError{Module: producer, Slot: output, Kind: OutputSlotKind}
	}
	out, ok := pm.Output(output)
	if !ok {
		return &UnknownSlotError{Module: producer, Slot: output, Kind: OutputSlotKind}
	}

	if !slot.Multiple && len(p.InputConnections(consumer, input)) > 0 {
		return &PipelineStructureError{
			Modules: []string{consumer},
			Reason:  fmt.Sprintf("input '%s' does not accept multiple connections", input),
		}
	}

	p.connections = append(p.connections, Connection{
		Producer: OutputRef{Module: producer, Output: out.Name},
		Consumer: consumer,
		Input:    input,
	})
	return nil
}

// Connections returns every connection in the order they were made.
func (p *Pipeline) Connections() []Connection {
	return append([]Connection(nil), p.connections...)
}

// InputConnections returns the connections feeding one input slot, in the
// order they were made.
func (p *Pipeline) InputConnections(module, input string) []Connection {
	var conns []Connection
	for _, c := range p.connections {
		if c.Consumer == module && c.Input == input {
			conns = append(conns, c)
		}
	}
	return conns
}

// ProducerOutput returns the output slot a connection reads from.
func (p *Pipeline) ProducerOutput(c Connection) (OutputSlot, bool) {
	pm, ok := p.Module(c.Producer.Module)
	if !ok {
		return OutputSlot{}, false
	}
	return pm.Output(c.Producer.Output)
}

// ApplyVariant selects a named variant, overriding module options. Only
// options change; the graph is left as it is.
func (p *Pipeline) ApplyVariant(name string, overrides map[string]map[string]string) error {
	resolved := make(map[string]map[string]string, len(overrides))
	for module, opts := range overrides {
		m, ok := p.Module(module)
		if !ok {
			return fmt.Errorf("%w '%s' in variant '%s'", ErrUnknownModule, module, name)
		}
		merged := maps.Clone(m.Options)
		if merged == nil {
			merged = map[string]string{}
		}
		maps.Copy(merged, opts)

		var err error
		if resolved[module], err = resolveOptions(module, m.Impl.Options(), merged); err != nil {
			return err
		}
	}

	for module, opts := range resolved {
		m, _ := p.Module(module)
		m.Options = opts
	}
	p.Variant = name
	return nil
}
