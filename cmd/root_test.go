//go:build !integration

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

	expected := []string{"serve", "migrate", "value", "score-offer", "market", "listings", "offers", "sweep", "export", "rules"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "fsbo", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)

	require.NotNil(t, serveCmd.Flags().Lookup("no-sweep"))
}

func TestScoreOfferCommand_Flags(t *testing.T) {
	for _, name := range []string{"price", "list-price", "earnest", "financing", "waive-inspection", "waive-financing", "waive-appraisal"} {
		assert.NotNil(t, scoreOfferCmd.Flags().Lookup(name), "score-offer should have --%s flag", name)
	}
	assert.Equal(t, "conventional", scoreOfferCmd.Flags().Lookup("financing").DefValue)
}

func TestSubcommandTrees(t *testing.T) {
	tests := []struct {
		parent   string
		children []string
	}{
		{"market", []string{"classify"}},
		{"listings", []string{"list", "show"}},
		{"offers", []string{"list"}},
		{"export", []string{"offers"}},
		{"rules", []string{"show"}},
	}
	for _, tt := range tests {
		t.Run(tt.parent, func(t *testing.T) {
			parent, _, err := rootCmd.Find([]string{tt.parent})
			require.NoError(t, err)
			names := make(map[string]bool)
			for _, c := range parent.Commands() {
				names[c.Name()] = true
			}
			for _, child := range tt.children {
				assert.True(t, names[child], "%s should have subcommand %q", tt.parent, child)
			}
		})
	}
}

func TestExportOffersCommand_Flags(t *testing.T) {
	flag := exportOffersCmd.Flags().Lookup("out")
	require.NotNil(t, flag)
	assert.Equal(t, "offers.xlsx", flag.DefValue)
}
