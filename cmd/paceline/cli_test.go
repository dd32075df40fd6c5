package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/paceline/internal/config"
)

// chdir is a stand-in for testing.T.Chdir, which needs Go 1.24+.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

func TestNewCLIApp_CommandsRegistered(t *testing.T) {
	app := newCLIApp()

	assert.Equal(t, "paceline", app.Name)

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.ElementsMatch(t, []string{"ingest", "ask", "reset"}, names)
}

func TestIngestCmd_Flags(t *testing.T) {
	cmd := ingestCmd()

	var flags []string
	for _, f := range cmd.Flags {
		flags = append(flags, f.Names()[0])
	}
	assert.ElementsMatch(t, []string{"data-dir", "preview", "preview-limit"}, flags)
}

// TestIngestPreview_RunsWithoutCredentials exercises the preview path end to
// end through the CLI: no API key in the environment, no store on disk.
func TestIngestPreview_RunsWithoutCredentials(t *testing.T) {
	t.Setenv("PACELINE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PACELINE_OPENAI_API_KEY", "")
	chdir(t, t.TempDir())

	dataDir := t.TempDir()
	csv := "activityId,activityType.typeKey,activityName,startTimeLocal,duration,distance\n" +
		"1001,running,Morning Run,2024-01-05 08:00:00,3000,10000\n"
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "activities.csv"), []byte(csv), 0o644))

	app := newCLIApp()
	err := app.Run([]string{"paceline", "ingest", "--preview", "--data-dir", dataDir})
	assert.NoError(t, err)
}

func TestOpenStore_SQLiteCreatesDataDir(t *testing.T) {
	t.Setenv("PACELINE_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
	chdir(t, t.TempDir())

	cfg := &config.Config{}
	cfg.Storage.Engine = "sqlite"
	cfg.Storage.DataPath = filepath.Join(t.TempDir(), "nested", "data")

	store, err := openStore(cfg)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	_, err = os.Stat(cfg.Storage.DataPath)
	assert.NoError(t, err)
}
