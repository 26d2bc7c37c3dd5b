package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("AURAVOX_ENV_FILE", filepath.Join(home, "missing.env"))
	t.Setenv("AURAVOX_DB_DRIVER", "sqlite")
	t.Setenv("AURAVOX_DB_DSN", filepath.Join(home, "data", "auravox.db"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("AURAVOX_UPLOAD_DIR", filepath.Join(home, "uploads"))
	t.Setenv("AURAVOX_FFMPEG_COMMAND", "auravox-test-no-such-recorder")
	t.Setenv("DEEPGRAM_API_KEY", "")
	return home
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	root := NewRootCommand("1.2.3")
	assert.Equal(t, "auravoxd", root.Use)
	assert.Equal(t, "1.2.3", root.Version)

	for _, name := range []string{"serve", "migrate", "stats", "sweep", "voice-check"} {
		sub, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
		assert.NotNil(t, sub.RunE, name)
	}
}

func TestMigrateAndStats(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema is up to date (sqlite)")

	out, err = execute(t, "stats")
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Contains(t, report, "user_stats")
	assert.Contains(t, report, "activity")
}

func TestSweepRemovesStaleUploads(t *testing.T) {
	home := setupEnv(t)
	t.Setenv("AURAVOX_UPLOAD_RETENTION", "1h")

	dir := filepath.Join(home, "uploads")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	stale := filepath.Join(dir, "audio-old.webm")
	fresh := filepath.Join(dir, "audio-new.webm")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0o600))
	old := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))

	out, err := execute(t, "sweep")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 file(s)")
	assert.NoFileExists(t, stale)
	assert.FileExists(t, fresh)

	out, err = execute(t, "sweep", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 1 file(s)")
	assert.NoFileExists(t, fresh)
}

func TestVoiceCheckAppliesRules(t *testing.T) {
	home := setupEnv(t)
	rulesPath := filepath.Join(home, "voice.rules")
	require.NoError(t, os.WriteFile(rulesPath, []byte("pull request => PR\n"), 0o600))
	t.Setenv("AURAVOX_RULES_FILE", rulesPath)

	out, err := execute(t, "voice-check", "--apply", "open a pull request")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "manual", report["method"])
	assert.Equal(t, "open a PR", report["transformed"])
	assert.EqualValues(t, 1, report["rules"])
}

func TestEnvFileFlag(t *testing.T) {
	home := setupEnv(t)
	envFile := filepath.Join(home, "custom.env")
	require.NoError(t, os.WriteFile(envFile, []byte("AURAVOX_RESTRICTED_ENV=true\n"), 0o600))
	t.Setenv("AURAVOX_RESTRICTED_ENV", "")
	os.Unsetenv("AURAVOX_RESTRICTED_ENV")

	out, err := execute(t, "--env-file", envFile, "voice-check")
	require.NoError(t, err)

	var report map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	// Restricted runtimes prefer record-and-upload even without a native engine.
	assert.Equal(t, "mediaRecorder", report["method"])
}
