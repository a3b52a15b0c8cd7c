package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"search", "enrich", "export", "upload", "pipeline", "serve", "migrate"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "leadgen-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestSearchCommand_Args(t *testing.T) {
	assert.Error(t, searchCmd.Args(searchCmd, []string{"a", "b"}))
	assert.NoError(t, searchCmd.Args(searchCmd, []string{"a", "b", "c"}))
	assert.NoError(t, searchCmd.Args(searchCmd, []string{"a", "b", "c", "2"}))
	assert.Error(t, searchCmd.Args(searchCmd, []string{"a", "b", "c", "2", "x"}))

	for _, name := range []string{"campaign-id", "user-id"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), "search should have --%s", name)
	}
}

func TestEnrichCommand_Flags(t *testing.T) {
	batch := enrichCmd.Flags().Lookup("batch")
	require.NotNil(t, batch)
	assert.Equal(t, "0", batch.DefValue)

	noDetails := enrichCmd.Flags().Lookup("no-details")
	require.NotNil(t, noDetails)
	assert.Equal(t, "false", noDetails.DefValue)

	assert.Error(t, enrichCmd.Args(enrichCmd, []string{"c", "u", "extra"}))
}

func TestExportCommand_Flags(t *testing.T) {
	format := exportCmd.Flags().Lookup("format")
	require.NotNil(t, format)
	assert.Equal(t, "csv", format.DefValue)
	assert.NotNil(t, exportCmd.Flags().Lookup("out"))
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}
