package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "budgetsync", cmd.Use)
	assert.Contains(t, cmd.Long, "change log")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"months", "month", "export", "import", "call"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	budgetFlag := cmd.PersistentFlags().Lookup("budget")
	require.NotNil(t, budgetFlag)
	assert.Equal(t, "b", budgetFlag.Shorthand)

	for _, name := range []string{"config", "data-dir"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), name)
	}

	metricsFlag := cmd.PersistentFlags().Lookup("metrics")
	require.NotNil(t, metricsFlag)
	assert.Equal(t, "false", metricsFlag.DefValue)
}

func TestExportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	exportCmd, _, err := cmd.Find([]string{"export"})
	require.NoError(t, err)

	for _, name := range []string{"account", "start", "end"} {
		flag := exportCmd.Flags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "", flag.DefValue)
	}
}

func TestImportCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	importCmd, _, err := cmd.Find([]string{"import"})
	require.NoError(t, err)

	nameFlag := importCmd.Flags().Lookup("name")
	require.NotNil(t, nameFlag)
	assert.Equal(t, "", nameFlag.DefValue)
}

func TestCallCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	callCmd, _, err := cmd.Find([]string{"call"})
	require.NoError(t, err)

	argsFlag := callCmd.Flags().Lookup("args")
	require.NotNil(t, argsFlag)
	assert.Equal(t, "", argsFlag.DefValue)

	listFlag := callCmd.Flags().Lookup("list")
	require.NotNil(t, listFlag)
	assert.Equal(t, "false", listFlag.DefValue)
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SilenceErrors = true
	cmd.SetArgs([]string{"--format", "invalid", "months", "--data-dir", t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
