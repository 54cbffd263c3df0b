package pipeline

import "fmt"

// TypecheckInputs verifies every input of the module is connected as
// declared and that each producer's datatype satisfies the input's
// requirement.
func (p *Pipeline) TypecheckInputs(module string) error {
	m, ok := p.Module(module)
	if !ok {
		return fmt.Errorf("%w '%s'", ErrUnknownModule, module)
	}

	for _, slot := range m.Impl.Inputs() {
		conns := p.InputConnections(module, slot.Name)
		switch {
		case len(conns) == 0 && !slot.Optional:
			return &PipelineStructureError{
				Modules: []string{module},
				Reason:  fmt.Sprintf("required input '%s' is not connected", slot.Name),
			}
		case len(conns) > 1 && !slot.Multiple:
			return &PipelineStructureError{
				Modules: []string{module},
				Reason:  fmt.Sprintf("input '%s' does not accept multiple connections", slot.Name),
			}
		}

		for _, c := range conns {
			out, ok := p.ProducerOutput(c)
			if !ok {
				return &UnknownSlotError{Module: c.Producer.Module, Slot: c.Producer.Output, Kind: OutputSlotKind}
			}
			if !slot.Requirement.SatisfiedBy(out.Datatype) {
				return &TypeCheckError{
					Module:   module,
					Slot:     slot.Name,
					Producer: c.Producer.String(),
					Required: slot.Requirement,
					Provided: out.Datatype,
				}
			}
		}
	}
	return nil
}

// TypecheckAll checks the graph is acyclic and typechecks every module in
// declaration order, stopping at the first error.
func (p *Pipeline) TypecheckAll() error {
	if err := p.CheckForCycles(); err != nil {
		return err
	}
	for _, m := range p.modules {
		if err := p.TypecheckInputs(m.Name); err != nil {
			return err
		}
	}
	return nil
}
