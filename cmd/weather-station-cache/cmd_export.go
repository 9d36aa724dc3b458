package main

import (
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Republish station windows and the index from the cache without fetching",
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringSlice("station", nil, "only export these station ids")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	only, _ := cmd.Flags().GetStringSlice("station")
	stations, err := a.stations(only)
	if err != nil {
		return err
	}

	// Export never fetches, so no token or provider is needed.
	_, err = a.service(nil, false).ExportAll(cmd.Context(), stations)
	return err
}
