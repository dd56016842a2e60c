package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load(New())
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, 10*time.Second, c.Server.Timeout)
	require.Equal(t, []string{"schema"}, c.Schema.Paths)
	require.Equal(t, 4, c.Remote.MaxConnsPerEndpoint)
	require.True(t, c.Introspection)
	require.Equal(t, "/metrics", c.Metrics.Path)
}

func TestFileEnvAndFlagPrecedence(t *testing.T) {
	file := filepath.Join(t.TempDir(), "graphrt.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
server:
  addr: ":7000"
  timeout: 3s
  cors_origins: ["https://a.example"]
remote:
  manifest: remote.yaml
log:
  level: debug
executor:
  concurrency: 8
`), 0o644))
	t.Setenv("GRAPHRT_LOG_LEVEL", "warn")
	t.Setenv("GRAPHRT_REMOTE_RPC_TIMEOUT", "250ms")

	v := New()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	require.NoError(t, BindFlags(v, fs))
	require.NoError(t, fs.Parse([]string{"--config", file, "--addr", ":9000", "--schema", "a.graphql,b"}))

	c, err := Load(v)
	require.NoError(t, err)
	require.Equal(t, ":9000", c.Server.Addr, "flag beats file")
	require.Equal(t, 3*time.Second, c.Server.Timeout, "file beats default")
	require.Equal(t, []string{"https://a.example"}, c.Server.CORSOrigins)
	require.Equal(t, "warn", c.Log.Level, "env beats file")
	require.Equal(t, 250*time.Millisecond, c.Remote.RPCTimeout)
	require.Equal(t, "remote.yaml", c.Remote.Manifest)
	require.Equal(t, 8, c.Executor.Concurrency)
	require.Equal(t, []string{"a.graphql", "b"}, c.Schema.Paths)
}

func TestValidate(t *testing.T) {
	v := New()
	v.Set("log.level", "loud")
	v.Set("server.path", "graphql")
	v.Set("remote.max_conns_per_endpoint", 0)
	_, err := Load(v)
	require.Error(t, err)
	require.Contains(t, err.Error(), "log.level")
	require.Contains(t, err.Error(), "server.path")
	require.Contains(t, err.Error(), "max_conns_per_endpoint")
}

func TestMissingConfigFile(t *testing.T) {
	v := New()
	v.Set("config", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err := Load(v)
	require.Error(t, err)
}
