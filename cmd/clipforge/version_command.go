package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "clipforge %s (%s/%s)\n", api.Version, runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}
}
