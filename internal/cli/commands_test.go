package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogstore/internal/backup"
	"github.com/roach88/blogstore/internal/model"
)

func TestBootstrap_JSON(t *testing.T) {
	env := newEnv(t, "sqlite3")
	out := env.mustRun(t, "--format", "json", "bootstrap")
	newGoldie(t).Assert(t, "bootstrap", []byte(out))
}

func TestBootstrap_Text(t *testing.T) {
	env := newEnv(t, "bolt")
	env.mustRun(t, "next-id", "posts")

	out := env.mustRun(t, "bootstrap")
	assert.Contains(t, out, "Bootstrapped bolt store")
	assert.Contains(t, out, "posts: 0 records, next id 2")
}

func TestNextID(t *testing.T) {
	for _, driver := range []string{"sqlite3", "sqlite", "bolt"} {
		t.Run(driver, func(t *testing.T) {
			env := newEnv(t, driver)
			assert.Equal(t, "1\n", env.mustRun(t, "next-id", "posts"))
			assert.Equal(t, "2\n", env.mustRun(t, "next-id", "posts"))
			assert.Equal(t, "1\n", env.mustRun(t, "next-id", "users"))

			var result NextIDResult
			decodeData(t, env.mustRun(t, "--format", "json", "next-id", "posts"), &result)
			assert.Equal(t, NextIDResult{Kind: "posts", ID: 3}, result)
		})
	}
}

func TestNextID_UnknownKind(t *testing.T) {
	env := newEnv(t, "sqlite3")
	_, err := env.run(t, "next-id", "comments")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown kind")
}

func TestRecord(t *testing.T) {
	env := newEnv(t, "sqlite3")

	out := env.mustRun(t, "record", "visit")
	assert.Equal(t, "Recorded visit evt-000001 at 2024-01-14T12:00:00Z {}\n", out)

	var ev model.Event
	decodeData(t, env.mustRun(t, "--format", "json", "record", "--meta", "username=alice", "--at", "2024-01-14T09:30:00+01:00"), &ev)
	assert.Equal(t, "evt-000002", ev.ID)
	assert.Equal(t, model.DefaultEventType, ev.Type)
	assert.Equal(t, "2024-01-14T08:30:00Z", ev.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
	assert.Equal(t, map[string]any{"username": "alice"}, ev.Metadata)

	var events []model.Event
	decodeData(t, env.mustRun(t, "--format", "json", "stats", "events", "--from", "2024-01-14", "--to", "2024-01-14"), &events)
	require.Len(t, events, 2)
	assert.Equal(t, "evt-000002", events[0].ID, "events are listed by timestamp")
}

func TestRecord_InvalidTime(t *testing.T) {
	env := newEnv(t, "sqlite3")
	_, err := env.run(t, "record", "visit", "--at", "yesterday")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

// seedEvents records a small fixed history.
func seedEvents(t *testing.T, env *cliEnv) {
	t.Helper()
	for _, at := range []string{
		"2024-01-01T10:15:00Z", "2024-01-01T11:00:00Z", "2024-01-03T09:00:00Z",
		"2024-01-08T08:00:00Z", "2024-01-08T09:00:00Z", "2024-01-08T10:00:00Z",
		"2024-01-08T11:00:00Z", "2024-01-14T07:00:00Z",
	} {
		env.mustRun(t, "record", "visit", "--at", at)
	}
	env.mustRun(t, "record", "login", "--at", "2024-01-01T10:45:00Z")
}

func TestStatsHourly(t *testing.T) {
	env := newEnv(t, "sqlite3")
	seedEvents(t, env)

	var result HourlyResult
	decodeData(t, env.mustRun(t, "--format", "json", "stats", "hourly", "--date", "2024-01-01"), &result)
	assert.Equal(t, "visit", result.Type)
	require.Len(t, result.Hours, 24)
	assert.Equal(t, int64(1), result.Hours[10])
	assert.Equal(t, int64(1), result.Hours[11])

	decodeData(t, env.mustRun(t, "--format", "json", "stats", "hourly", "--date", "2024-01-01", "--type", ""), &result)
	assert.Equal(t, int64(2), result.Hours[10])

	// Defaults to today on the injected clock.
	decodeData(t, env.mustRun(t, "--format", "json", "stats", "hourly"), &result)
	assert.Equal(t, "2024-01-14", result.Date)
	assert.Equal(t, int64(1), result.Hours[7])
}

func TestStatsDaily_Text(t *testing.T) {
	env := newEnv(t, "bolt")
	seedEvents(t, env)

	out := env.mustRun(t, "stats", "daily", "--from", "2024-01-01", "--to", "2024-01-03")
	newGoldie(t).Assert(t, "stats_daily", []byte(out))
}

func TestStatsDaily_InvalidRangeJSON(t *testing.T) {
	env := newEnv(t, "sqlite3")
	out, err := env.run(t, "--format", "json", "stats", "daily", "--from", "2024-02-01", "--to", "2024-01-01")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, `"status":"error"`)
	assert.Contains(t, out, `"code":"E001"`)
}

func TestStatsDaily_RequiresRange(t *testing.T) {
	env := newEnv(t, "sqlite3")
	_, err := env.run(t, "stats", "daily", "--from", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}

func TestStatsWeekly_Text(t *testing.T) {
	env := newEnv(t, "sqlite3")
	seedEvents(t, env)

	out := env.mustRun(t, "stats", "weekly", "--days", "14")
	newGoldie(t).Assert(t, "stats_weekly", []byte(out))
}

func TestStatsWeekly_DefaultWindow(t *testing.T) {
	env := newEnv(t, "sqlite3")
	var result WeeklyResult
	decodeData(t, env.mustRun(t, "--format", "json", "stats", "weekly"), &result)
	assert.Equal(t, 28, result.Days)
	assert.Equal(t, []float64{0, 0, 0, 0, 0, 0, 0}, result.Averages)
}

func TestStatsMarkers(t *testing.T) {
	env := newEnv(t, "sqlite3")

	out := env.mustRun(t, "stats", "markers")
	assert.Equal(t, "No version markers\n", out)

	require.NoError(t, os.WriteFile(filepath.Join(env.dir, "version_releases.json"), []byte(`[
		{"version": "1.0.0", "ts": "2024-01-01T10:00:00Z"},
		{"version": "broken"}
	]`), 0o644))

	var markers []model.VersionMarker
	decodeData(t, env.mustRun(t, "--format", "json", "stats", "markers"), &markers)
	require.Len(t, markers, 1)
	assert.Equal(t, "1.0.0", markers[0].Version)
}

func TestBackupExportImport(t *testing.T) {
	src := newEnv(t, "sqlite3")
	src.mustRun(t, "next-id", "users")

	backupDir := t.TempDir()
	var sum backup.Summary
	decodeData(t, src.mustRun(t, "--format", "json", "backup", "export", backupDir), &sum)
	assert.Equal(t, filepath.Join(backupDir, "backup-2024-01-14T12-00-00-000Z"), sum.Dir)

	require.NoError(t, os.WriteFile(filepath.Join(sum.Dir, backup.UsersFile),
		[]byte(`[{"id": 4, "username": "alice", "password": "x"}]`), 0o644))
	require.NoError(t, os.Remove(filepath.Join(sum.Dir, backup.ChatsFile)))

	dst := newEnv(t, "bolt")
	out := dst.mustRun(t, "backup", "import", sum.Dir)
	assert.Contains(t, out, "users: 1")
	assert.Contains(t, out, "posts: 0")
	assert.Contains(t, out, "chats: skipped (no file)")

	// Counters are created after the import, above the imported ids.
	var boot BootstrapResult
	decodeData(t, dst.mustRun(t, "--format", "json", "bootstrap"), &boot)
	assert.Equal(t, KindStatus{Kind: "users", Records: 1, NextID: 5}, boot.Collections[0])
	assert.Equal(t, "5\n", dst.mustRun(t, "next-id", "users"))
}

func TestBackupImport_InvalidFile(t *testing.T) {
	env := newEnv(t, "sqlite3")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, backup.PostsFile), []byte(`[{"id": -1}]`), 0o644))

	_, err := env.run(t, "backup", "import", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "backup import failed")
}

func TestConfigShow(t *testing.T) {
	env := newEnv(t, "bolt")

	out := env.mustRun(t, "config", "show")
	assert.Contains(t, out, "[store]")
	assert.Contains(t, out, "bolt")
	assert.Contains(t, out, "[analytics]")
	assert.Contains(t, out, "5s")

	var result ConfigResult
	decodeData(t, env.mustRun(t, "--format", "json", "config", "show"), &result)
	assert.Equal(t, env.cfgPath, result.File)
	assert.Equal(t, out, result.TOML)
}
