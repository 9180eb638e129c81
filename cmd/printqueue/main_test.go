package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, spool string) string {
	t.Helper()
	content := "server:\n  port: 9000\nprinters:\n  devices:\n    - name: office\n      path: " + spool + "\n    - name: offline\n      path: " + filepath.Join(spool, "missing") + "\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_FlagsOverrideFileAndEnv(t *testing.T) {
	path := writeConfig(t, t.TempDir())
	t.Setenv("PRINTQUEUE_PORT", "9500")

	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "--log-level", "debug"}))
	opts := &rootOptions{}
	opts.configPath, _ = cmd.Flags().GetString("config")
	opts.logLevel, _ = cmd.Flags().GetString("log-level")

	cfg, err := loadConfig(cmd.Flags(), opts)
	require.NoError(t, err)
	assert.Equal(t, 9500, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Len(t, cfg.Printers.Devices, 2)
}

func TestLoadConfig_Invalid(t *testing.T) {
	cmd := newRootCommand()
	require.NoError(t, cmd.ParseFlags([]string{"--log-level", "loud"}))
	opts := &rootOptions{configPath: filepath.Join(t.TempDir(), "none.yaml"), logLevel: "loud"}

	_, err := loadConfig(cmd.Flags(), opts)
	assert.ErrorContains(t, err, "invalid log level")
}

func TestPrintersCommand(t *testing.T) {
	path := writeConfig(t, t.TempDir())

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"printers", "--config", path})
	require.NoError(t, cmd.Execute())

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	require.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "NAME")
	assert.Contains(t, string(lines[1]), "office")
	assert.Contains(t, string(lines[1]), "Online")
	assert.Contains(t, string(lines[2]), "Offline")
}
