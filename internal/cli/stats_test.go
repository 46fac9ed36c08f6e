package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/loopsched/internal/config"
	"github.com/roach88/loopsched/internal/store"
	"github.com/roach88/loopsched/internal/testutil"
)

// seedDatabase records two calls of one located loop and one team loop.
func seedDatabase(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "loops.db")
	opts := &RootOptions{Format: "text", RunIDs: testutil.NewFixedRunIDGenerator()}

	for i := 0; i < 2; i++ {
		_, err := execute(t, opts, NewPlanCommand,
			"--lower", "0", "--upper", "9", "--executors", "3",
			"--loc", ";kernel.c;compute;12;5;;", "--db", dbPath)
		require.NoError(t, err)
	}
	_, err := execute(t, opts, NewTeamCommand,
		"--chunk", "3", "--lower", "0", "--upper", "99", "--teams", "4", "--db", dbPath)
	require.NoError(t, err)

	return dbPath
}

func TestStatsCommand_AllRuns(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := execute(t, textOpts(), NewStatsCommand, "--db", dbPath)
	require.NoError(t, err)

	assert.Equal(t, `3 runs recorded
(unknown location) team_static: 1 call, 100 iterations total, max trip 100, max chunk 3
kernel.c:12:5 compute for_static: 2 calls, 20 iterations total, max trip 10, max chunk 4
`, out)
}

func TestStatsCommand_OneRun(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := execute(t, textOpts(), NewStatsCommand, "--db", dbPath, "--run", "run-0001")
	require.NoError(t, err)

	assert.Equal(t, `run run-0001 (plan): for int32 [0, 9] step 1 kind=greedy executors=3
kernel.c:12:5 compute for_static: 1 call, 10 iterations total, max trip 10, max chunk 4
`, out)
}

func TestStatsCommand_JSON(t *testing.T) {
	dbPath := seedDatabase(t)

	out, err := execute(t, &RootOptions{Format: "json"}, NewStatsCommand, "--db", dbPath, "--run", "run-0003")
	require.NoError(t, err)

	var response struct {
		Status string      `json:"status"`
		Data   StatsResult `json:"data"`
		RunID  string      `json:"run_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "run-0003", response.RunID)
	require.NotNil(t, response.Data.Run)
	assert.Equal(t, "team", response.Data.Run.Command)
	assert.Equal(t, 1, response.Data.Runs)
	require.Len(t, response.Data.Loops, 1)
	assert.Equal(t, LoopRow{
		Op:        "team_static",
		Calls:     1,
		TotalTrip: 100,
		MaxTrip:   100,
		MaxChunk:  3,
	}, response.Data.Loops[0])
}

func TestStatsCommand_EmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, textOpts(), NewStatsCommand, "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "0 runs recorded\nNo loop metadata found.\n", out)
}

func TestStatsCommand_RunNotFound(t *testing.T) {
	dbPath := seedDatabase(t)

	_, err := execute(t, textOpts(), NewStatsCommand, "--db", dbPath, "--run", "missing")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "run not found: missing")
}

func TestStatsCommand_NoDatabase(t *testing.T) {
	cfg, err := config.Default()
	require.NoError(t, err)
	cfg.Database = ""

	_, err = execute(t, &RootOptions{Format: "text", Config: cfg}, NewStatsCommand)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database")
}

func TestStatsCommand_DatabaseFromConfig(t *testing.T) {
	dbPath := seedDatabase(t)
	configPath := filepath.Join(t.TempDir(), "loopsched.cue")
	require.NoError(t, os.WriteFile(configPath, []byte("database: \""+dbPath+"\"\n"), 0o644))

	out, err := execute(t, &RootOptions{Format: "text", ConfigPath: configPath}, NewStatsCommand)
	require.NoError(t, err)
	assert.Contains(t, out, "3 runs recorded\n")
}

func TestLocLabel(t *testing.T) {
	assert.Equal(t, "(unknown location)", locLabel(""))
	assert.Equal(t, "kernel.c:12:5 compute", locLabel(";kernel.c;compute;12;5;;"))
	assert.Equal(t, "kernel.c:12:5", locLabel(";kernel.c;;12;5;;"))
	assert.Equal(t, "kernel.c:12 compute", locLabel(";kernel.c;compute;12;;;"))
}
