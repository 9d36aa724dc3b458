package main

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var stationsCmd = &cobra.Command{
	Use:   "stations",
	Short: "List stations reporting to the hourly dataset",
	Long: `List the stations currently reporting to the CWA automatic station dataset,
optionally filtered by county and town. The output is a roster CSV that can be
pasted into STATIONS_FILE.`,
	RunE: runStations,
}

func init() {
	stationsCmd.Flags().String("county", "", "county name, e.g. 新北市")
	stationsCmd.Flags().String("town", "", "town name, e.g. 板橋區")
	rootCmd.AddCommand(stationsCmd)
}

func runStations(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	county, _ := cmd.Flags().GetString("county")
	town, _ := cmd.Flags().GetString("town")

	provider, err := a.provider()
	if err != nil {
		return err
	}
	list, err := provider.ListStations(cmd.Context(), county, town)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		return fmt.Errorf("no stations match county %q town %q", county, town)
	}

	w := csv.NewWriter(os.Stdout)
	_ = w.Write([]string{"sid", "city", "town", "name"})
	for _, st := range list {
		_ = w.Write([]string{st.ID, st.County, st.Town, st.Name})
	}
	w.Flush()
	return w.Error()
}
