package status

import (
	"fmt"
	"slices"

	"github.com/docpipe/docpipe/pkg/corpus"
	"github.com/docpipe/docpipe/pkg/pipeline"
)

// MissingData lists the inputs of a module whose data is not ready, as
// "module.output" references. Producers named in assumeExecuted count as
// ready. A non-executable producer is ready when its own inputs are.
func (t *Tracker) MissingData(module string, assumeExecuted []string) ([]string, error) {
	return t.missingData(module, assumeExecuted, map[string]bool{})
}

func (t *Tracker) missingData(module string, assumeExecuted []string, seen map[string]bool) ([]string, error) {
	m, ok := t.pipeline.Module(module)
	if !ok {
		return nil, fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, module)
	}
	if seen[module] {
		return nil, nil
	}
	seen[module] = true

	var missing []string
	for _, slot := range m.Impl.Inputs() {
		for _, c := range t.pipeline.InputConnections(module, slot.Name) {
			producer := c.Producer.Module
			if slices.Contains(assumeExecuted, producer) {
				continue
			}

			pm, ok := t.pipeline.Module(producer)
			if !ok {
				return nil, fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, producer)
			}
			if !pm.Executable() {
				upstream, err := t.missingData(producer, assumeExecuted, seen)
				if err != nil {
					return nil, err
				}
				missing = append(missing, upstream...)
				continue
			}

			st, err := t.Status(producer)
			if err != nil {
				return nil, err
			}
			if st != Complete || !corpus.Exists(t.OutputDir(producer, c.Producer.Output)) {
				missing = append(missing, c.Producer.String())
			}
		}
	}
	return missing, nil
}

// Ready reports whether every input of the module has its data available.
func (t *Tracker) Ready(module string) (bool, error) {
	missing, err := t.MissingData(module, nil)
	if err != nil {
		return false, err
	}
	return len(missing) == 0, nil
}

// CollectUnexecutedDependencies returns the executable modules upstream of
// any of the given modules that are not COMPLETE, in schedule order. The
// given modules themselves are not included.
func (t *Tracker) CollectUnexecutedDependencies(modules []string) ([]string, error) {
	upstream := map[string]bool{}
	for _, m := range modules {
		deps, err := t.pipeline.TransitiveDependencies(m)
		if err != nil {
			return nil, err
		}
		for _, d := range deps {
			upstream[d] = true
		}
	}

	schedule, err := t.pipeline.ExecutableSchedule()
	if err != nil {
		return nil, err
	}

	var unexecuted []string
	for _, name := range schedule {
		if !upstream[name] || slices.Contains(modules, name) {
			continue
		}
		st, err := t.Status(name)
		if err != nil {
			return nil, err
		}
		if st != Complete {
			unexecuted = append(unexecuted, name)
		}
	}
	return unexecuted, nil
}

// CollectRunnable returns, in schedule order, the executable modules that
// are not COMPLETE and could be run now, counting on earlier modules in the
// result being run first.
func (t *Tracker) CollectRunnable() ([]string, error) {
	schedule, err := t.pipeline.ExecutableSchedule()
	if err != nil {
		return nil, err
	}

	var runnable []string
	for _, name := range schedule {
		st, err := t.Status(name)
		if err != nil {
			return nil, err
		}
		if st == Complete {
			continue
		}
		missing, err := t.MissingData(name, runnable)
		if err != nil {
			return nil, err
		}
		if len(missing) == 0 {
			runnable = append(runnable, name)
		}
	}
	return runnable, nil
}
