package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blogstore/internal/testutil"
)

var now = time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC)

// cliEnv is a config file plus an empty store in a temp directory.
type cliEnv struct {
	dir     string
	cfgPath string
	clock   *quartz.Mock
	ids     *testutil.SequentialIDs
}

func newEnv(t *testing.T, driver string) *cliEnv {
	t.Helper()
	dir := t.TempDir()

	dsn := filepath.Join(dir, "blog.db")
	if driver == "bolt" {
		dsn = filepath.Join(dir, "blog.bolt")
	}
	cfg := fmt.Sprintf(`[store]
driver = %q
dsn = %q

[analytics]
markers_path = %q

[log]
level = "error"
`, driver, dsn, filepath.Join(dir, "version_releases.json"))

	cfgPath := filepath.Join(dir, "blogstore.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	return &cliEnv{
		dir:     dir,
		cfgPath: cfgPath,
		clock:   testutil.MockClockAt(t, now),
		ids:     testutil.NewSequentialIDs(""),
	}
}

// run executes the root command with args and returns stdout.
func (e *cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}

	cmd := NewRootCommandWithOptions(&RootOptions{Clock: e.clock, NewID: e.ids.Next})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append([]string{"--config", e.cfgPath}, args...))

	err := cmd.Execute()
	return out.String(), err
}

// mustRun is run that fails the test on error.
func (e *cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, "blogstore %v", args)
	return out
}

// decodeData unwraps a JSON success envelope into v.
func decodeData(t *testing.T, out string, v any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	require.Equal(t, "ok", resp.Status, out)
	require.NoError(t, json.Unmarshal(resp.Data, v))
}

func newGoldie(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}
