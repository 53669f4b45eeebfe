package node_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/pkg/activity"
	"github.com/goliatone/go-sysoptions/pkg/bootconfig"
	"github.com/goliatone/go-sysoptions/pkg/catalog"
	"github.com/goliatone/go-sysoptions/pkg/node"
	"github.com/goliatone/go-sysoptions/pkg/state"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("SYSOPTS_STORE", "memory")
	t.Setenv("SYSOPTS_BOOT_FILES", "a.toml,b.yaml")
	t.Setenv("SYSOPTS_LOG_LEVEL", "debug")
	t.Setenv("SYSOPTS_METRICS_ENABLED", "false")

	cfg, err := node.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, node.BackendMemory, cfg.StoreBackend)
	assert.Equal(t, []string{"a.toml", "b.yaml"}, cfg.BootFiles)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.MetricsEnabled)
	assert.Equal(t, opts.DefaultBootPrefix, cfg.BootPrefix)
	assert.Equal(t, "options", cfg.ActivityChannel)
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	t.Setenv("SYSOPTS_STORE", "etcd")

	_, err := node.LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd")
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*node.Config)
		wantErr bool
	}{
		{"defaults", func(*node.Config) {}, false},
		{"memory", func(c *node.Config) { c.StoreBackend = "MEMORY" }, false},
		{"sqlite without path", func(c *node.Config) { c.SQLitePath = " " }, true},
		{"redis without address", func(c *node.Config) {
			c.StoreBackend = node.BackendRedis
			c.RedisAddr = ""
		}, true},
		{"cassandra without hosts", func(c *node.Config) { c.StoreBackend = node.BackendCassandra }, true},
		{"cassandra with hosts", func(c *node.Config) {
			c.StoreBackend = node.BackendCassandra
			c.CassandraHosts = []string{"127.0.0.1"}
		}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := node.DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := node.DefaultConfig()
	cfg.LogLevel = "warn"
	logger, err := node.NewLogger(cfg)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1))

	cfg.LogLevel = "loud"
	_, err = node.NewLogger(cfg)
	assert.Error(t, err)
}

func TestStartAppliesBootDefaultsAndStoredOverrides(t *testing.T) {
	ctx := context.Background()
	cfg := memoryConfig()
	hook := &activity.CaptureHook{}

	n, err := node.Start(ctx, cfg, catalog.Descriptors(),
		node.WithLogger(zaptest.NewLogger(t)),
		node.WithBootConfig(bootconfig.FromMap(map[string]any{
			"node": map[string]any{
				"options": map[string]any{
					"planner.slice_target": 30,
					"exec.queue.enable":    true,
				},
			},
		})),
		node.WithActivityHooks(hook),
	)
	require.NoError(t, err)
	defer n.Close()

	target, err := opts.GetInt(ctx, n.System, catalog.SliceTarget)
	require.NoError(t, err)
	assert.Equal(t, int64(30), target)

	queue, err := opts.GetBool(ctx, n.System, catalog.QueueEnable)
	require.NoError(t, err)
	assert.True(t, queue)

	require.NoError(t, n.System.SetOption(ctx, catalog.SliceTarget.Value(opts.ScopeSystem, 20)))
	target, err = opts.GetInt(ctx, n.System, catalog.SliceTarget)
	require.NoError(t, err)
	assert.Equal(t, int64(20), target)

	require.Len(t, hook.Events, 1)
	assert.Equal(t, activity.VerbOptionUpdated, hook.Events[0].Verb)
	assert.Equal(t, "options", hook.Events[0].Channel)
	assert.Equal(t, int64(30), hook.Events[0].Metadata["old_value"])

	require.NotNil(t, n.Gatherer)
	count, err := testutil.GatherAndCount(n.Gatherer, "sysopts_operations_total")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestStartRejectsWrongBootType(t *testing.T) {
	store := state.NewMemoryStore()
	_, err := node.Start(context.Background(), memoryConfig(), catalog.Descriptors(),
		node.WithLogger(zaptest.NewLogger(t)),
		node.WithStore(store),
		node.WithBootConfig(bootconfig.FromMap(map[string]any{
			"node.options.planner.slice_target": "many",
		})),
	)
	require.Error(t, err)
	var bootErr *opts.BootConfigError
	assert.True(t, errors.As(err, &bootErr))

	_, _, err = store.Get(context.Background(), "planner.slice_target")
	assert.ErrorIs(t, err, state.ErrClosed, "a failed start releases the store")
}

func TestStartRejectsDuplicateDescriptors(t *testing.T) {
	descriptors := append(catalog.Descriptors(), opts.NewIntOption("Planner.Slice_Target", 1).Descriptor)
	_, err := node.Start(context.Background(), memoryConfig(), descriptors,
		node.WithLogger(zaptest.NewLogger(t)),
		node.WithBootConfig(bootconfig.FromMap()),
	)
	assert.ErrorIs(t, err, opts.ErrDuplicateOption)
}

func TestStartLoadsBootFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[node.options]
"store.format" = "json"
`), 0o644))

	cfg := memoryConfig()
	cfg.BootFiles = []string{path}
	n, err := node.Start(context.Background(), cfg, catalog.Descriptors(), node.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	defer n.Close()

	format, err := opts.GetString(context.Background(), n.System, catalog.OutputFormat)
	require.NoError(t, err)
	assert.Equal(t, "json", format)
}

func TestSQLiteBackendPersistsAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	cfg := node.DefaultConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "options.db")
	cfg.MetricsEnabled = false

	start := func() *node.Node {
		n, err := node.Start(ctx, cfg, catalog.Descriptors(),
			node.WithLogger(zaptest.NewLogger(t)),
			node.WithBootConfig(bootconfig.FromMap()),
		)
		require.NoError(t, err)
		return n
	}

	first := start()
	assert.Nil(t, first.Gatherer)
	require.NoError(t, first.System.SetOption(ctx, catalog.ParquetCompression.Value(opts.ScopeSystem, "gzip")))
	require.NoError(t, first.Close())
	require.NoError(t, first.Close(), "close is idempotent")

	second := start()
	defer second.Close()
	compression, err := opts.GetString(ctx, second.System, catalog.ParquetCompression)
	require.NoError(t, err)
	assert.Equal(t, "gzip", compression)
}

func TestSessionFallsBackToSystem(t *testing.T) {
	ctx := context.Background()
	n, err := node.Start(ctx, memoryConfig(), catalog.Descriptors(),
		node.WithLogger(zaptest.NewLogger(t)),
		node.WithBootConfig(bootconfig.FromMap()),
	)
	require.NoError(t, err)
	defer n.Close()

	require.NoError(t, n.System.SetOption(ctx, catalog.MaxWidthPerNode.Value(opts.ScopeSystem, 16)))

	session, reader, err := n.NewSession(ctx)
	require.NoError(t, err)
	defer session.Close()
	assert.Equal(t, opts.ScopeSession, session.Scope())

	width, err := opts.GetInt(ctx, reader, catalog.MaxWidthPerNode)
	require.NoError(t, err)
	assert.Equal(t, int64(16), width)

	require.NoError(t, session.SetOption(ctx, catalog.MaxWidthPerNode.Value(opts.ScopeSession, 2)))
	width, err = opts.GetInt(ctx, reader, catalog.MaxWidthPerNode)
	require.NoError(t, err)
	assert.Equal(t, int64(2), width)

	systemWidth, err := opts.GetInt(ctx, n.System, catalog.MaxWidthPerNode)
	require.NoError(t, err)
	assert.Equal(t, int64(16), systemWidth)

	all, err := reader.Iterate(ctx)
	require.NoError(t, err)
	value, ok := all.Lookup("planner.width.max_per_node")
	require.True(t, ok)
	assert.Equal(t, int64(2), value.AsInt())
	assert.Len(t, all, len(catalog.Descriptors()))
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	cfg := node.DefaultConfig()
	cfg.StoreBackend = "etcd"
	_, err := node.OpenStore(context.Background(), cfg)
	assert.Error(t, err)
}

func memoryConfig() node.Config {
	cfg := node.DefaultConfig()
	cfg.StoreBackend = node.BackendMemory
	return cfg
}
