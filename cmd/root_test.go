package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()

	// Collect subcommand names.
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	// Verify expected subcommands are registered.
	expected := []string{"run", "sweep", "ledger"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "premo", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRunCommand_Flags(t *testing.T) {
	for name, def := range map[string]string{
		"combination":         "",
		"buffer":              "50",
		"weighting":           "w1",
		"statistic-threshold": "100",
		"corr-threshold":      "1",
		"statistic-type":      "iqr_norm",
		"cross-validation":    "false",
	} {
		flag := runCmd.Flags().Lookup(name)
		require.NotNil(t, flag, "run command should have --%s flag", name)
		assert.Equal(t, def, flag.DefValue, name)
	}
}

func TestSweepCommand_Flags(t *testing.T) {
	for _, name := range []string{"file", "concurrency", "dry-run"} {
		assert.NotNil(t, sweepCmd.Flags().Lookup(name), name)
	}
}

func TestLedgerCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range ledgerCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"list", "show", "stats", "import"}
	for _, name := range expected {
		assert.True(t, names[name], "expected ledger subcommand %q not found", name)
	}
}
