package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mpimeasure/pkg/log"
	"mpimeasure/pkg/measure"
)

func newFlagSet(c *Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	c.BindFlags(fs)
	c.BindNetworkFlags(fs)
	return fs
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestBindFlags(t *testing.T) {
	c := Default()
	fs := newFlagSet(c)
	require.NoError(t, fs.Parse([]string{"--mode", "syncskew", "--schema", "a,b,c", "--work", "5ms", "--rank", "3"}))

	assert.Equal(t, "syncskew", c.Mode)
	assert.Equal(t, []string{"a", "b", "c"}, c.Schema)
	assert.Equal(t, 5*time.Millisecond, c.Work)
	assert.Equal(t, 3, c.Network.Rank)
	assert.Equal(t, 10, c.Iterations)
}

func TestLoad(t *testing.T) {
	path := writeFile(t, `
mode: syncskew,total
schema: [x, y]
iterations: 3
work: 1ms
network:
  size: 8
  dial_timeout: 2s
`)

	c := Default()
	fs := newFlagSet(c)
	require.NoError(t, fs.Parse([]string{"--iterations", "7", "--schema", "p"}))
	require.NoError(t, c.Load(path, fs))

	assert.Equal(t, "syncskew,total", c.Mode)
	assert.Equal(t, time.Millisecond, c.Work)
	assert.Equal(t, 8, c.Network.Size)
	assert.Equal(t, 2*time.Second, c.Network.DialTimeout)
	// Explicit flags win over the file.
	assert.Equal(t, 7, c.Iterations)
	assert.Equal(t, []string{"p"}, c.Schema)

	mode, err := c.MeasureMode()
	require.NoError(t, err)
	assert.Equal(t, measure.SyncSkew|measure.GroupStats|measure.TotalStats, mode)
}

func TestLoad_Errors(t *testing.T) {
	c := Default()
	fs := newFlagSet(c)
	assert.Error(t, c.Load(filepath.Join(t.TempDir(), "missing.yaml"), fs))
	assert.Error(t, c.Load(writeFile(t, "iterations: [1, 2"), fs))
}

func TestPrepare(t *testing.T) {
	defer log.SetLevel(log.Level())

	c := Default()
	c.OutputDir = filepath.Join(t.TempDir(), "a", "..", "logs") + "/"
	c.LogLevel = "debug"
	require.NoError(t, c.Prepare())
	assert.DirExists(t, c.OutputDir)
	assert.Equal(t, filepath.Clean(c.OutputDir), c.OutputDir)
	assert.Equal(t, log.LevelDebug, log.Level())
	assert.Equal(t, filepath.Join(c.OutputDir, "run"), c.LogBase())

	for name, mutate := range map[string]func(*Config){
		"log level":  func(c *Config) { c.LogLevel = "loud" },
		"mode":       func(c *Config) { c.Mode = "runtime,syncskew" },
		"iterations": func(c *Config) { c.Iterations = -1 },
	} {
		t.Run(name, func(t *testing.T) {
			c := Default()
			c.OutputDir = t.TempDir()
			mutate(c)
			assert.Error(t, c.Prepare())
		})
	}
}
