package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func subcommandNames(c *cobra.Command) map[string]bool {
	names := make(map[string]bool)
	for _, sub := range c.Commands() {
		names[sub.Name()] = true
	}
	return names
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(rootCmd)
	for _, name := range []string{"analyze", "corridor", "boundary", "runs", "store", "serve"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "crash-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config"))
}

func TestAnalyzeCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(analyzeCmd)
	for _, name := range []string{"districts", "corridor", "zone", "batch"} {
		assert.True(t, names[name], "expected analyze subcommand %q not found", name)
	}

	for _, flag := range []string{"out-dir", "group-by"} {
		assert.NotNil(t, analyzeCmd.PersistentFlags().Lookup(flag), "analyze should have --%s", flag)
	}
}

func TestAnalyzeCorridorCommand_Flags(t *testing.T) {
	filter := analyzeCorridorCmd.Flags().Lookup("filter")
	require.NotNil(t, filter)
	assert.Equal(t, []string{"true"}, filter.Annotations[cobra.BashCompOneRequiredFlag])

	buffer := analyzeCorridorCmd.Flags().Lookup("buffer-ft")
	require.NotNil(t, buffer)
	assert.Equal(t, "0", buffer.DefValue)
}

func TestAnalyzeZoneCommand_Flags(t *testing.T) {
	for _, name := range []string{"lon", "lat"} {
		f := analyzeZoneCmd.Flags().Lookup(name)
		require.NotNil(t, f, "zone should have --%s", name)
		assert.Equal(t, []string{"true"}, f.Annotations[cobra.BashCompOneRequiredFlag])
	}
	name := analyzeZoneCmd.Flags().Lookup("name")
	require.NotNil(t, name)
	assert.Equal(t, "zone", name.DefValue)
	assert.NotNil(t, analyzeZoneCmd.Flags().Lookup("radius-ft"))
}

func TestAnalyzeBatchCommand_Flags(t *testing.T) {
	assert.NotNil(t, analyzeBatchCmd.Flags().Lookup("catalog"))
}

func TestBoundaryInspectCommand_Flags(t *testing.T) {
	kind := boundaryInspectCmd.Flags().Lookup("kind")
	require.NotNil(t, kind)
	assert.Equal(t, "senate", kind.DefValue)
	assert.NotNil(t, boundaryInspectCmd.Flags().Lookup("geojson"))
}

func TestCorridorResolveCommand_Flags(t *testing.T) {
	assert.NotNil(t, corridorResolveCmd.Flags().Lookup("filter"))
	assert.NotNil(t, corridorResolveCmd.Flags().Lookup("name"))
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := subcommandNames(runsCmd)
	assert.True(t, names["list"])
	assert.True(t, names["show"])

	limit := runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, limit)
	assert.Equal(t, "20", limit.DefValue)
}

func TestStoreCommand_HasMigrate(t *testing.T) {
	assert.True(t, subcommandNames(storeCmd)["migrate"])
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
