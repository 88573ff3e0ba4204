package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/crash-cli/internal/analysis"
	"github.com/sells-group/crash-cli/internal/boundary"
	"github.com/sells-group/crash-cli/internal/export"
	"github.com/sells-group/crash-cli/internal/model"
)

var boundaryCmd = &cobra.Command{
	Use:   "boundary",
	Short: "Inspect district boundary layers",
}

var boundaryInspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Load a district layer and list its districts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		kindFlag, _ := cmd.Flags().GetString("kind")
		geojsonPath, _ := cmd.Flags().GetString("geojson")

		kind, err := model.ParseDistrictKind(kindFlag)
		if err != nil {
			return err
		}
		opts, err := analysis.OptionsFromConfig(cfg)
		if err != nil {
			return err
		}
		src := opts.Senate
		if kind == model.KindHouse {
			src = opts.House
		}

		set, err := newBoundaryResolver().Resolve(ctx, src)
		if err != nil {
			return err
		}
		formatDistricts(os.Stdout, set)

		if geojsonPath != "" {
			return export.WriteDistricts(geojsonPath, set)
		}
		return nil
	},
}

func init() {
	boundaryInspectCmd.Flags().String("kind", "senate", "district kind: senate or house")
	boundaryInspectCmd.Flags().String("geojson", "", "also write the districts as GeoJSON to this path")

	boundaryCmd.AddCommand(boundaryInspectCmd)
	rootCmd.AddCommand(boundaryCmd)
}

// formatDistricts lists each district id with its polygon count and area.
func formatDistricts(out io.Writer, set *boundary.Set) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DISTRICT\tPOLYGONS\tAREA_KM2")
	_, _ = fmt.Fprintln(w, "--------\t--------\t--------")

	for _, d := range set.Districts {
		polygons := 0
		if d.Geom != nil {
			polygons = d.Geom.NumPolygons()
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.2f\n", d.ID, polygons, d.AreaSqKm())
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\n%d %s districts\n", len(set.IDs()), set.Kind)
}
