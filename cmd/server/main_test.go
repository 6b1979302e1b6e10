package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := NewRootCmd()

	names := make([]string, 0, len(cmd.Commands()))
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
	assert.Contains(t, names, "sessions")
}

func TestMigrateAndPrune_SQLite(t *testing.T) {
	t.Chdir(t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "nested", "nestbook.db")

	cmd := NewRootCmd()
	cmd.SetArgs([]string{"migrate", "--database.driver=sqlite", "--database.path=" + dbPath, "--log.level=error"})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, dbPath)

	var out bytes.Buffer
	cmd = NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"sessions", "prune", "--database.path=" + dbPath, "--log.level=error"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "removed 0 expired sessions")
}

func TestServe_RequiresSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NESTBOOK_SESSION_SECRET", "")

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--database.path=" + filepath.Join(t.TempDir(), "x.db")})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session.secret")
}

func TestMigrate_UnknownDriver(t *testing.T) {
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"migrate", "--database.driver=mongo"})
	require.Error(t, cmd.Execute())
}
