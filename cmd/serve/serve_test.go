package serve

import (
	"context"
	"testing"
	"time"

	"fjacquet/cfdi-sentinel/cmd/root"
	"fjacquet/cfdi-sentinel/internal/config"
	"fjacquet/cfdi-sentinel/internal/container"
	"fjacquet/cfdi-sentinel/internal/logging"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeCommand_Metadata(t *testing.T) {
	assert.Equal(t, "serve", Cmd.Use)
	assert.Contains(t, Cmd.Long, "/v1/validate")
	assert.NotNil(t, Cmd.Flags().Lookup("addr"))
}

func TestServeCommand_NoContainer(t *testing.T) {
	root.SetContainer(nil)

	err := serveFunc(&cobra.Command{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "container not initialized")
}

func TestServeCommand_StopsOnCancel(t *testing.T) {
	logger := logging.NewMockLogger()
	c, err := container.NewContainerWithLogger(context.Background(), &config.Config{
		Log:      config.LogConfig{Level: "info", Format: "text"},
		Batch:    config.BatchConfig{Size: 1, TimeoutSeconds: 1},
		Cache:    config.CacheConfig{Backend: config.BackendMemory},
		Denylist: config.DenylistConfig{Backend: config.BackendNone},
		History:  config.HistoryConfig{Backend: config.BackendNone},
		Server:   config.ServerConfig{Addr: "127.0.0.1:0", MaxBodyBytes: 1024},
	}, logger)
	require.NoError(t, err)
	root.SetContainer(c)
	t.Cleanup(func() {
		_ = c.Close()
		root.SetContainer(nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	done := make(chan error, 1)
	go func() { done <- serveFunc(cmd, nil) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}
	got, ok := logger.FieldValue("Starting API server", "addr")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1:0", got)
}
