package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client := ctx.daemonClient(cmd.Context())
			if client == nil {
				logPath := filepath.Join(cfg.Paths.LogDir, "clipforged.log")
				return fmt.Errorf("daemon is not running; recent logs are in %s", logPath)
			}

			resp, err := client.Logs(cmd.Context(), limitFlag)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(resp.Entries) == 0 {
				fmt.Fprintln(out, "No log entries")
				return nil
			}
			for _, entry := range resp.Entries {
				line := fmt.Sprintf("%s %-5s", entry.Time.Format("15:04:05"), entry.Level)
				if entry.Component != "" {
					line += " [" + entry.Component + "]"
				}
				line += " " + entry.Message
				if entry.Attrs != "" {
					line += " " + entry.Attrs
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 100, "Maximum number of entries to show")
	return cmd
}
