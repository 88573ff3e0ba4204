package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crash-cli/internal/analysis"
	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/corridor"
)

var corridorCmd = &cobra.Command{
	Use:   "corridor",
	Short: "Inspect road corridors",
}

var corridorResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve a corridor from OpenStreetMap and list its road segments",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		filter, _ := cmd.Flags().GetString("filter")
		name, _ := cmd.Flags().GetString("name")

		opts, err := analysis.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		spec, err := analysis.Corridor(opts, config.CorridorConfig{Name: name, Filter: filter})
		if err != nil {
			return err
		}

		c, err := corridor.Load(ctx, newCorridorResolver(), spec.Name, spec.Region, spec.Filter)
		if err != nil {
			return err
		}
		formatSegments(os.Stdout, c)
		return nil
	},
}

func init() {
	corridorResolveCmd.Flags().String("filter", "", "road name to match, case-insensitive substring")
	corridorResolveCmd.Flags().String("name", "", "corridor name (default the filter)")
	_ = corridorResolveCmd.MarkFlagRequired("filter")

	corridorCmd.AddCommand(corridorResolveCmd)
	rootCmd.AddCommand(corridorCmd)
}

// formatSegments lists the matched ways followed by the corridor length.
func formatSegments(out io.Writer, c *corridor.Corridor) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WAY\tSTREET\tLENGTH_M")
	_, _ = fmt.Fprintln(w, "---\t------\t--------")

	for _, s := range c.Segments {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%.1f\n", s.WayID, s.StreetName, s.LengthMeters())
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%s: %d segments, %.1f m, frame %s\n", c.Name, len(c.Segments), c.LengthMeters(), c.Frame)
}
