package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/docpipe/docpipe/pkg/datatype"
)

var (
	ErrStructure     = errors.New("invalid pipeline structure")
	ErrTypeCheck     = errors.New("datatype mismatch")
	ErrExecution     = errors.New("module execution failed")
	ErrUnknownModule = errors.New("unknown module")
	ErrUnknownType   = errors.New("unknown module type")
	ErrInvalidOption = errors.New("invalid module option")
	ErrDuplicateType = errors.New("module type already registered")
)

type DuplicateModuleError struct {
	Module string
}

func (e *DuplicateModuleError) Error() string {
	return fmt.Sprintf("duplicate module name '%s'", e.Module)
}

func (e *DuplicateModuleError) Unwrap() error {
	return ErrStructure
}

// SlotKind distinguishes module inputs from outputs in errors.
type SlotKind string

const (
	InputSlotKind  SlotKind = "input"
	OutputSlotKind SlotKind = "output"
)

type UnknownSlotError struct {
	Module string
	Slot   string
	Kind   SlotKind
}

func (e *UnknownSlotError) Error() string {
	if e.Slot == "" {
		return fmt.Sprintf("module '%s' has no default %s", e.Module, e.Kind)
	}
	return fmt.Sprintf("module '%s' has no %s named '%s'", e.Module, e.Kind, e.Slot)
}

func (e *UnknownSlotError) Unwrap() error {
	return ErrStructure
}

// PipelineStructureError reports a structural problem such as a cycle or a
// wrongly connected input.
type PipelineStructureError struct {
	// Modules lists the modules involved, e.g. the members of a cycle.
	Modules []string
	Reason  string
}

func (e *PipelineStructureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, strings.Join(e.Modules, ", "))
}

func (e *PipelineStructureError) Unwrap() error {
	return ErrStructure
}

type TypeCheckError struct {
	Module   string
	Slot     string
	Producer string
	Required datatype.Requirement
	Provided datatype.Datatype
}

func (e *TypeCheckError) Error() string {
	return fmt.Sprintf("input '%s' of module '%s' requires %s but '%s' provides %s (missing %s)",
		e.Slot, e.Module, e.Required, e.Producer, e.Provided, e.Required.Missing(e.Provided))
}

func (e *TypeCheckError) Unwrap() error {
	return ErrTypeCheck
}

// ModuleExecutionError is the single error reported for a failed module
// run. Archive and Doc are set when the failure concerns a document.
type ModuleExecutionError struct {
	Module  string
	Archive string
	Doc     string
	Err     error
}

func (e *ModuleExecutionError) Error() string {
	if e.Doc != "" {
		return fmt.Sprintf("module '%s' failed on document %s/%s: %s", e.Module, e.Archive, e.Doc, e.Err)
	}
	return fmt.Sprintf("module '%s' failed: %s", e.Module, e.Err)
}

func (e *ModuleExecutionError) Unwrap() []error {
	return []error{ErrExecution, e.Err}
}
