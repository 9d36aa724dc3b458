package main

import (
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Fetch recent hours for every station, update the cache and publish",
	Long: `Fetch the last HOURS_PER_RUN hours for every station in the roster, merge
them into the stored series and publish each station's window plus the index.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "fetch and export in memory without saving or publishing")
	runCmd.Flags().Bool("fail-fast", false, "stop at the first failing station")
	runCmd.Flags().StringSlice("station", nil, "only process these station ids")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if failFast, _ := cmd.Flags().GetBool("fail-fast"); failFast {
		a.cfg.FailFast = true
	}
	only, _ := cmd.Flags().GetStringSlice("station")

	stations, err := a.stations(only)
	if err != nil {
		return err
	}
	provider, err := a.provider()
	if err != nil {
		return err
	}

	_, err = a.service(provider, dryRun).Run(cmd.Context(), stations)
	return err
}
