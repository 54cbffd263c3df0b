package cmd

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/docpipe/docpipe/cmd/util"
	"github.com/docpipe/docpipe/pkg/pipeline"
	"github.com/docpipe/docpipe/pkg/status"
)

// NewScheduleCommand returns the command that prints the execution order.
func NewScheduleCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Print the order modules run in",
		Args:  cobra.NoArgs,
		RunE:  schedule,
	}
}

// NewStatusCommand returns the command that reports module execution states.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status [module]",
		Short: "Show the execution status of modules",
		Long: `Show the execution status of every module, or the details and history of one
module.`,
		Args: cobra.MaximumNArgs(1),
		RunE: showStatus,
	}
}

func schedule(cmd *cobra.Command, _ []string) error {
	ws, err := util.OpenWorkspace(cmd.Context())
	if err != nil {
		return err
	}
	return errors.Join(writeSchedule(cmd.OutOrStdout(), ws.Pipeline, ws.Tracker), ws.Close())
}

func writeSchedule(out io.Writer, p *pipeline.Pipeline, tracker *status.Tracker) error {
	order, err := p.Schedule()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"#", "Module", "Type", "Executable", "Depends on", "Status"})
	for i, name := range order {
		m, _ := p.Module(name)
		deps, err := p.Dependencies(name)
		if err != nil {
			return err
		}
		state := "-"
		if m.Executable() {
			st, err := tracker.Status(name)
			if err != nil {
				return err
			}
			state = string(st)
		}
		tw.AppendRow(table.Row{i + 1, name, m.Type, m.Executable(), strings.Join(deps, ", "), state})
	}
	tw.Render()
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ws, err := util.OpenWorkspace(cmd.Context())
	if err != nil {
		return err
	}

	if len(args) == 1 {
		err = writeModuleStatus(cmd.OutOrStdout(), ws.Pipeline, ws.Tracker, args[0])
	} else {
		err = writeStatus(cmd.OutOrStdout(), ws.Pipeline, ws.Tracker)
	}
	return errors.Join(err, ws.Close())
}

func writeStatus(out io.Writer, p *pipeline.Pipeline, tracker *status.Tracker) error {
	runnable, err := tracker.CollectRunnable()
	if err != nil {
		return err
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Module", "Status", "Documents", "Ready", "Finished"})
	for _, m := range p.Modules() {
		if !m.Executable() {
			continue
		}
		meta, err := tracker.Metadata(m.Name)
		if err != nil {
			return err
		}

		state := string(meta.Status)
		if tracker.Running(m.Name) {
			state += " (running)"
		}
		docs := 0
		for _, info := range meta.Outputs {
			docs = max(docs, info.Length)
		}
		if meta.Status == status.Started {
			docs = meta.DocsCompleted
		}
		tw.AppendRow(table.Row{m.Name, state, docs, runnableMark(runnable, m.Name, meta.Status), formatTime(meta.EndTime)})
	}
	tw.Render()
	return nil
}

func runnableMark(runnable []string, module string, st status.Status) string {
	if st == status.Complete {
		return ""
	}
	if slices.Contains(runnable, module) {
		return "yes"
	}
	return "no"
}

func writeModuleStatus(out io.Writer, p *pipeline.Pipeline, tracker *status.Tracker, module string) error {
	m, ok := p.Module(module)
	if !ok {
		return fmt.Errorf("%w '%s'", pipeline.ErrUnknownModule, module)
	}
	meta, err := tracker.Metadata(module)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Module:   %s (%s)\n", m.Name, m.Type)
	fmt.Fprintf(out, "Status:   %s\n", meta.Status)
	if meta.RunID != "" {
		fmt.Fprintf(out, "Run:      %s\n", meta.RunID)
	}
	if meta.StartTime != nil {
		fmt.Fprintf(out, "Started:  %s\n", formatTime(meta.StartTime))
	}
	if meta.EndTime != nil {
		fmt.Fprintf(out, "Finished: %s\n", formatTime(meta.EndTime))
	}
	if meta.Error != "" {
		fmt.Fprintf(out, "Error:    %s\n", meta.Error)
	}
	if meta.LastDocCompleted != nil {
		fmt.Fprintf(out, "Progress: %d documents, last %s/%s\n", meta.DocsCompleted, meta.LastDocCompleted.Archive, meta.LastDocCompleted.Name)
	}

	missing, err := tracker.MissingData(module, nil)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		fmt.Fprintf(out, "Waiting for: %s\n", strings.Join(missing, ", "))
	}

	if len(meta.Outputs) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Output", "Datatype", "Documents", "Archives"})
		for _, slot := range m.Impl.Outputs() {
			if info, ok := meta.Outputs[slot.Name]; ok {
				tw.AppendRow(table.Row{slot.Name, info.Datatype, info.Length, info.Archives})
			}
		}
		tw.Render()
	}

	history, err := tracker.History(module)
	if err != nil {
		return err
	}
	if len(history) > 0 {
		tw := table.NewWriter()
		tw.SetOutputMirror(out)
		tw.SetStyle(table.StyleLight)
		tw.AppendHeader(table.Row{"Time", "Event", "Detail"})
		for _, h := range history {
			tw.AppendRow(table.Row{formatTime(&h.Time), h.Event, h.Detail})
		}
		tw.Render()
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format(time.DateTime)
}
