package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "loopsched", cmd.Use)
	assert.Contains(t, cmd.Long, "worksharing")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"plan", "dist", "team", "test", "stats"}

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

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "", configFlag.DefValue)
}

func TestLoopCommandFlags(t *testing.T) {
	tests := []struct {
		command string
		flags   []string
		absent  []string
	}{
		{"plan", []string{"domain", "kind", "chunk", "lower", "upper", "incr", "executors", "serialized", "loc", "db", "execute"}, []string{"dist", "teams", "threads"}},
		{"dist", []string{"domain", "kind", "dist", "chunk", "lower", "upper", "incr", "teams", "threads", "loc", "db", "execute"}, []string{"executors", "serialized"}},
		{"team", []string{"domain", "chunk", "lower", "upper", "incr", "teams", "loc", "db", "execute"}, []string{"kind", "dist", "threads", "executors"}},
	}

	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			sub, _, err := NewRootCommand().Find([]string{tt.command})
			require.NoError(t, err)
			for _, name := range tt.flags {
				assert.NotNil(t, sub.Flags().Lookup(name), "--%s", name)
			}
			for _, name := range tt.absent {
				assert.Nil(t, sub.Flags().Lookup(name), "--%s", name)
			}
		})
	}

	plan, _, err := NewRootCommand().Find([]string{"plan"})
	require.NoError(t, err)
	assert.Equal(t, "int32", plan.Flags().Lookup("domain").DefValue)
	assert.Equal(t, "static", plan.Flags().Lookup("kind").DefValue)
	assert.Equal(t, "1", plan.Flags().Lookup("incr").DefValue)
	assert.Equal(t, "1", plan.Flags().Lookup("chunk").DefValue)
}

func TestTestCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	testCmd, _, err := cmd.Find([]string{"test"})
	require.NoError(t, err)

	updateFlag := testCmd.Flags().Lookup("update")
	require.NotNil(t, updateFlag)
	assert.Equal(t, "false", updateFlag.DefValue)

	filterFlag := testCmd.Flags().Lookup("filter")
	require.NotNil(t, filterFlag)
}

func TestStatsCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	statsCmd, _, err := cmd.Find([]string{"stats"})
	require.NoError(t, err)

	dbFlag := statsCmd.Flags().Lookup("db")
	require.NotNil(t, dbFlag)
	// --db falls back to the configured database, so default is empty
	assert.Equal(t, "", dbFlag.DefValue)

	runFlag := statsCmd.Flags().Lookup("run")
	require.NotNil(t, runFlag)
}

func TestFormatValidation(t *testing.T) {
	// Test valid formats
	assert.True(t, isValidFormat("text"))
	assert.True(t, isValidFormat("json"))

	// Test invalid formats
	assert.False(t, isValidFormat("xml"))
	assert.False(t, isValidFormat(""))
	assert.False(t, isValidFormat("TEXT"))
}

func TestFormatValidationIntegration(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "invalid", "plan", "--lower", "0", "--upper", "9", "--executors", "2"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRootCommand_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopsched.cue")
	require.NoError(t, os.WriteFile(path, []byte(`static: "balanced"`+"\n"), 0644))

	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "plan", "--lower", "0", "--upper", "9", "--executors", "3"})

	require.NoError(t, cmd.Execute())
	// balanced gives the first executor the extra iteration
	assert.Contains(t, buf.String(), "kind=balanced")
	assert.Contains(t, buf.String(), "executor 1: [4, 6]")
}

func TestRootCommand_BadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loopsched.cue")
	require.NoError(t, os.WriteFile(path, []byte(`static: "chunked"`+"\n"), 0644))

	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "plan", "--lower", "0", "--upper", "9", "--executors", "3"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load config")
}
