package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/crash-cli/internal/analysis"
	"github.com/sells-group/crash-cli/internal/config"
	"github.com/sells-group/crash-cli/internal/corridor"
	"github.com/sells-group/crash-cli/internal/export"
	"github.com/sells-group/crash-cli/internal/model"
	"github.com/sells-group/crash-cli/internal/summary"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run district, corridor and zone analyses",
	Long: "Loads the crash and fatality inputs, joins them to senate and house districts, " +
		"computes estimated damages and writes per-district summaries for each analysis.",
}

// -- analyze districts --

var analyzeDistrictsCmd = &cobra.Command{
	Use:   "districts",
	Short: "Summarize every record by district",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runAnalyses(cmd, func(opts analysis.Options) ([]analysis.Spec, error) {
			return []analysis.Spec{analysis.Districts(opts)}, nil
		})
	},
}

// -- analyze corridor --

var analyzeCorridorCmd = &cobra.Command{
	Use:   "corridor",
	Short: "Summarize records within a buffer of a named road",
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, _ := cmd.Flags().GetString("filter")
		name, _ := cmd.Flags().GetString("name")
		bufferFt, _ := cmd.Flags().GetFloat64("buffer-ft")

		return runAnalyses(cmd, func(opts analysis.Options) ([]analysis.Spec, error) {
			s, err := analysis.Corridor(opts, config.CorridorConfig{
				Name: name, Filter: filter, BufferFeet: bufferFt,
			})
			if err != nil {
				return nil, err
			}
			return []analysis.Spec{s}, nil
		})
	},
}

// -- analyze zone --

var analyzeZoneCmd = &cobra.Command{
	Use:   "zone",
	Short: "Summarize records within a radius of a point",
	RunE: func(cmd *cobra.Command, _ []string) error {
		lon, _ := cmd.Flags().GetFloat64("lon")
		lat, _ := cmd.Flags().GetFloat64("lat")
		radiusFt, _ := cmd.Flags().GetFloat64("radius-ft")
		name, _ := cmd.Flags().GetString("name")

		return runAnalyses(cmd, func(opts analysis.Options) ([]analysis.Spec, error) {
			s, err := analysis.Zone(opts, config.ZoneConfig{
				Name: name, Longitude: lon, Latitude: lat, RadiusFeet: radiusFt,
			})
			if err != nil {
				return nil, err
			}
			return []analysis.Spec{s}, nil
		})
	},
}

// -- analyze batch --

var analyzeBatchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Run the district analysis plus every configured corridor and zone",
	Long: "Runs the district analysis and every corridor and zone from the config file " +
		"and the optional --catalog file in parallel. A failing corridor is reported and skipped.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		catalogPath, _ := cmd.Flags().GetString("catalog")

		return runAnalyses(cmd, func(opts analysis.Options) ([]analysis.Spec, error) {
			return batchSpecs(opts, cfg, catalogPath)
		})
	},
}

func init() {
	analyzeCmd.PersistentFlags().String("out-dir", "", "directory for exported files (default analysis.out_dir)")
	analyzeCmd.PersistentFlags().String("group-by", "", "summary key: senate, house or none (default analysis.group_by)")

	analyzeCorridorCmd.Flags().String("filter", "", "road name to match, case-insensitive substring")
	analyzeCorridorCmd.Flags().String("name", "", "analysis name (default the filter)")
	analyzeCorridorCmd.Flags().Float64("buffer-ft", 0, "buffer distance in feet (default analysis.buffer_feet)")
	_ = analyzeCorridorCmd.MarkFlagRequired("filter")

	analyzeZoneCmd.Flags().Float64("lon", 0, "zone center longitude")
	analyzeZoneCmd.Flags().Float64("lat", 0, "zone center latitude")
	analyzeZoneCmd.Flags().Float64("radius-ft", 0, "zone radius in feet (default analysis.zone_radius_feet)")
	analyzeZoneCmd.Flags().String("name", "zone", "analysis name")
	_ = analyzeZoneCmd.MarkFlagRequired("lon")
	_ = analyzeZoneCmd.MarkFlagRequired("lat")

	analyzeBatchCmd.Flags().String("catalog", "", "YAML file with additional corridors and zones")

	analyzeCmd.AddCommand(analyzeDistrictsCmd)
	analyzeCmd.AddCommand(analyzeCorridorCmd)
	analyzeCmd.AddCommand(analyzeZoneCmd)
	analyzeCmd.AddCommand(analyzeBatchCmd)
	rootCmd.AddCommand(analyzeCmd)
}

// batchSpecs returns the district analysis followed by the configured and
// catalogued corridors and zones.
func batchSpecs(opts analysis.Options, c *config.Config, catalogPath string) ([]analysis.Spec, error) {
	corridors := append([]config.CorridorConfig(nil), c.Corridors...)
	zones := append([]config.ZoneConfig(nil), c.Zones...)
	if catalogPath != "" {
		cat, err := analysis.LoadCatalog(catalogPath)
		if err != nil {
			return nil, err
		}
		corridors = append(corridors, cat.Corridors...)
		zones = append(zones, cat.Zones...)
	}
	specs, err := analysis.Specs(opts, corridors, zones)
	if err != nil {
		return nil, err
	}
	return append([]analysis.Spec{analysis.Districts(opts)}, specs...), nil
}

// runAnalyses prepares the dataset once, runs the specs built from the
// resolved options and exports each successful result.
func runAnalyses(cmd *cobra.Command, build func(analysis.Options) ([]analysis.Spec, error)) error {
	ctx := cmd.Context()

	opts, err := analysis.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	if g, _ := cmd.Flags().GetString("group-by"); g != "" {
		if opts.GroupBy, err = summary.ParseGroupBy(g); err != nil {
			return err
		}
	}
	outDir, _ := cmd.Flags().GetString("out-dir")
	if outDir == "" {
		outDir = cfg.Analysis.OutDir
	}

	specs, err := build(opts)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	data, err := analysis.Prepare(ctx, opts, newBoundaryResolver())
	if err != nil {
		return err
	}

	var resolver corridor.Resolver
	if needsCorridors(specs) {
		resolver = newCorridorResolver()
	}
	results := analysis.NewRunner(data, resolver, st, opts).RunAll(ctx, specs)

	var failed int
	for _, res := range results {
		if res.Err != nil {
			failed++
			continue
		}
		if _, err := export.WriteResult(outDir, res); err != nil {
			zap.L().Error("analyze: export failed", zap.String("analysis", res.Spec.Name), zap.Error(err))
			res.Err = err
			failed++
		}
	}

	formatResults(os.Stdout, results)

	switch {
	case failed == 0:
		return nil
	case len(results) == 1:
		return results[0].Err
	case failed == len(results):
		return eris.New("analyze: every analysis failed")
	}
	return nil
}

func needsCorridors(specs []analysis.Spec) bool {
	for _, s := range specs {
		if s.Kind == model.AnalysisCorridor {
			return true
		}
	}
	return false
}

// formatResults writes one line per analysis with its ALL totals.
func formatResults(out io.Writer, results []*analysis.Result) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ANALYSIS\tKIND\tRUN\tMEMBERS\tCRASHES\tINJURIES\tFATALITIES\tDAMAGES\tSTATUS")
	_, _ = fmt.Fprintln(w, "--------\t----\t---\t-------\t-------\t--------\t----------\t-------\t------")

	for _, r := range results {
		if r.Err != nil {
			_, _ = fmt.Fprintf(w, "%s\t%s\t\t\t\t\t\t\tfailed: %s\n", r.Spec.Name, r.Spec.Kind, r.Err)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\t%.0f\tok\n",
			r.Spec.Name,
			r.Spec.Kind,
			truncateID(r.RunID),
			len(r.Members),
			r.Total.TotalCrashes,
			r.Total.SumInjuries,
			r.Total.TotalFatalities,
			r.Total.EstimatedEconomicDamages,
		)
	}
	_ = w.Flush()
}
