package main

import (
	"encoding/json"
	"errors"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/breadcrumb/health"
)

var errUnhealthy = errors.New("unhealthy")

func newHealthCmd(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Probe the ancestor store and print a JSON health report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			report := health.NewReport(state.app.health.CheckAll(cmd.Context()))

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
			if report.Status == health.StatusUnhealthy {
				return errUnhealthy
			}
			return nil
		},
	}
}
