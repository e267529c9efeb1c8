package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/preflight"
	"clipforge/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show system and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, ctx)
		},
	}
}

func runStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	colorize := shouldColorize(stdout)
	client := ctx.daemonClient(cmd.Context())

	var status api.StatusResponse
	if client != nil {
		status, err = client.Status(cmd.Context())
		if err != nil {
			return err
		}
	}

	for _, line := range renderSectionHeader("System Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	if client == nil {
		fmt.Fprintln(stdout, renderStatusLine("Daemon", statusWarn, "not running", colorize))
	} else {
		workflowState := "idle"
		if status.Running {
			workflowState = "running"
		}
		fmt.Fprintln(stdout, renderStatusLine("Daemon", statusOK, "running on "+cfg.API.Bind, colorize))
		fmt.Fprintln(stdout, renderStatusLine("Workflow", statusOK, workflowState, colorize))
		if status.LastError != "" {
			fmt.Fprintln(stdout, renderStatusLine("Last error", statusError, status.LastError, colorize))
		}
		if status.ActiveItem != nil {
			detail := fmt.Sprintf("item %d (%s)", status.ActiveItem.ID, status.ActiveItem.Status)
			fmt.Fprintln(stdout, renderStatusLine("Active item", statusInfo, detail, colorize))
		}
		for _, stg := range status.Stages {
			kind := statusOK
			message := "ready"
			if !stg.Ready {
				kind = statusError
				message = stg.Detail
			}
			fmt.Fprintln(stdout, renderStatusLine("Stage "+stg.Name, kind, message, colorize))
		}
	}
	fmt.Fprintln(stdout)

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(stdout, line)
	}
	for _, result := range preflight.RunAll(cmd.Context(), cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(stdout, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	fmt.Fprintln(stdout)

	if client != nil && len(status.ScheduledAt) > 0 {
		for _, line := range renderSectionHeader("Schedules", colorize) {
			fmt.Fprintln(stdout, line)
		}
		rows := make([][]string, 0, len(status.ScheduledAt))
		for _, schedule := range status.ScheduledAt {
			rows = append(rows, []string{schedule.Name, schedule.Cron, schedule.Next})
		}
		table := renderTable([]string{"Name", "Cron", "Next Run"}, rows, []columnAlignment{alignLeft, alignLeft, alignLeft})
		fmt.Fprintln(stdout, table)
		fmt.Fprintln(stdout)
	}

	for _, line := range renderSectionHeader("Queue Status", colorize) {
		fmt.Fprintln(stdout, line)
	}
	stats := status.Queue
	if client == nil {
		stats, err = fetchQueueStats(cmd, ctx)
		if err != nil {
			return err
		}
	}
	rows := buildQueueStatusRows(stats)
	if len(rows) == 0 {
		fmt.Fprintln(stdout, "Queue is empty")
		return nil
	}
	table := renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight})
	fmt.Fprintln(stdout, table)
	return nil
}

func fetchQueueStats(cmd *cobra.Command, ctx *commandContext) (map[string]int, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	stats, err := store.Stats(cmd.Context())
	if err != nil {
		return nil, err
	}
	converted := make(map[string]int, len(stats))
	for status, count := range stats {
		converted[string(status)] = count
	}
	return converted, nil
}
