package root

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	Init()
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "cfdi-sentinel", Cmd.Use)
	assert.Contains(t, Cmd.Short, "CFDI")
	assert.NotNil(t, Cmd.PersistentPreRunE)
	assert.NotNil(t, Cmd.PersistentPostRunE)
}

func TestRootCommand_Flags(t *testing.T) {
	tests := []struct {
		name      string
		shorthand string
	}{
		{name: "input", shorthand: "i"},
		{name: "output", shorthand: "o"},
		{name: "config"},
		{name: "log-level"},
		{name: "log-format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := Cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag)
			assert.Equal(t, tt.shorthand, flag.Shorthand)
		})
	}
}

func TestBootstrap_BuildsAndClosesContainer(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("batch:\n  size: 3\nhistory:\n  backend: none\n"), 0o600))
	SharedFlags = CommonFlags{Config: configFile, LogLevel: "warn", LogFormat: "json"}
	t.Cleanup(func() { SharedFlags = CommonFlags{} })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	require.NoError(t, bootstrap(cmd, nil))
	c := GetContainer()
	require.NotNil(t, c)
	assert.Equal(t, 3, c.GetConfig().Batch.Size)
	assert.Equal(t, "warn", c.GetConfig().Log.Level)
	assert.Equal(t, "json", c.GetConfig().Log.Format)
	assert.Equal(t, c.GetLogger(), GetLogger())

	require.NoError(t, shutdown(cmd, nil))
	assert.Nil(t, GetContainer())
	assert.NotNil(t, GetLogger())
}

func TestBootstrap_InvalidConfig(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("batch:\n  size: 0\n"), 0o600))
	SharedFlags = CommonFlags{Config: configFile}
	t.Cleanup(func() { SharedFlags = CommonFlags{} })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := bootstrap(cmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch.size")
	assert.Nil(t, GetContainer())
}

func TestShutdown_WithoutContainer(t *testing.T) {
	SetContainer(nil)
	assert.NoError(t, shutdown(&cobra.Command{}, nil))
}

func TestBootstrap_InvalidLogLevelFlag(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("batch:\n  size: 3\n"), 0o600))
	SharedFlags = CommonFlags{Config: configFile, LogLevel: "loud"}
	t.Cleanup(func() { SharedFlags = CommonFlags{} })

	cmd := &cobra.Command{}
	cmd.SetContext(context.Background())

	err := bootstrap(cmd, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}
