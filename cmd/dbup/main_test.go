package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cliFixture struct {
	dir        string
	scriptsDir string
	configPath string
}

func newCLIFixture(t *testing.T) *cliFixture {
	t.Helper()

	dir := t.TempDir()
	f := &cliFixture{
		dir:        dir,
		scriptsDir: filepath.Join(dir, "sql"),
		configPath: filepath.Join(dir, "dbup.yaml"),
	}
	require.NoError(t, os.MkdirAll(f.scriptsDir, 0o755))

	config := fmt.Sprintf(`
driver: sqlite
dsn: %s
transaction: per_script
log:
  format: text
  level: error
scripts:
  - path: %s
`, filepath.Join(dir, "target.db"), f.scriptsDir)
	require.NoError(t, os.WriteFile(f.configPath, []byte(config), 0o644))
	return f
}

func (f *cliFixture) addScript(t *testing.T, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.scriptsDir, name), []byte(body), 0o644))
}

func (f *cliFixture) run(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	argv := append([]string{"dbup", "--config", f.configPath}, args...)
	code := runMain(context.Background(), argv, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestCLI_UpgradeLifecycle(t *testing.T) {
	f := newCLIFixture(t)
	f.addScript(t, "001_users.sql", "CREATE TABLE users (id INTEGER PRIMARY KEY);")
	f.addScript(t, "002_roles.sql", "CREATE TABLE roles (id INTEGER PRIMARY KEY);")

	code, out, _ := f.run("check")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "upgrade required")

	code, out, _ = f.run("plan")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 pending")
	assert.Contains(t, out, "001_users.sql")

	code, out, errOut := f.run("upgrade")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "2 executed")

	code, out, _ = f.run("check")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "database is up to date")

	code, out, _ = f.run("executed")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "2 executed")
	assert.Contains(t, out, "002_roles.sql")
}

func TestCLI_UpgradeFailureExitsNonZero(t *testing.T) {
	f := newCLIFixture(t)
	f.addScript(t, "001_ok.sql", "CREATE TABLE ok (id INTEGER);")
	f.addScript(t, "002_broken.sql", "INSERT INTO missing VALUES (1);")

	code, out, errOut := f.run("upgrade")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "1 executed")
	assert.Contains(t, errOut, "002_broken.sql")
}

func TestCLI_MarkExecutedUpTo(t *testing.T) {
	f := newCLIFixture(t)
	f.addScript(t, "001.sql", "CREATE TABLE a (id INTEGER);")
	f.addScript(t, "002.sql", "CREATE TABLE b (id INTEGER);")
	f.addScript(t, "003.sql", "CREATE TABLE c (id INTEGER);")

	code, out, errOut := f.run("mark-executed", "--up-to", "002.sql")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "2 marked")

	code, out, _ = f.run("plan")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "1 pending")
	assert.Contains(t, out, "003.sql")
}

func TestCLI_ConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("driver: oracle\n"), 0o644))

	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"dbup", "--config", path, "plan"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "required configuration is missing")
}

func TestCLI_Help(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := runMain(context.Background(), []string{"dbup", "--help"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	for _, sub := range []string{"upgrade", "plan", "mark-executed", "executed", "check"} {
		assert.Contains(t, stdout.String(), sub)
	}
}
