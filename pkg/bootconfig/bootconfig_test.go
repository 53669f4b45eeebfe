package bootconfig_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/pkg/bootconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLookupTOMLQuotedKeys(t *testing.T) {
	path := writeFile(t, "node.toml", `
[node.options]
"planner.slice_target" = 30
"planner.affinity_factor" = 2
"exec.queue.enable" = "on"
"store.format" = "json"
`)
	cfg, err := bootconfig.Load(path)
	require.NoError(t, err)

	got, err := cfg.Lookup("node.options.planner.slice_target", opts.KindInt)
	require.NoError(t, err)
	assert.Equal(t, opts.Int(30), got)

	got, err = cfg.Lookup("node.options.planner.affinity_factor", opts.KindFloat)
	require.NoError(t, err)
	assert.Equal(t, opts.Float(2), got)

	got, err = cfg.Lookup("node.options.exec.queue.enable", opts.KindBool)
	require.NoError(t, err)
	assert.Equal(t, opts.Bool(true), got)

	got, err = cfg.Lookup("node.options.store.format", opts.KindString)
	require.NoError(t, err)
	assert.Equal(t, opts.String("json"), got)
}

func TestLookupYAMLNestedTables(t *testing.T) {
	path := writeFile(t, "node.yaml", `
node:
  options:
    planner:
      slice_target: 40
      enable_hashjoin: false
`)
	cfg, err := bootconfig.Load(path)
	require.NoError(t, err)

	got, err := cfg.Lookup("node.options.planner.slice_target", opts.KindInt)
	require.NoError(t, err)
	assert.Equal(t, opts.Int(40), got)

	got, err = cfg.Lookup("node.options.planner.enable_hashjoin", opts.KindBool)
	require.NoError(t, err)
	assert.Equal(t, opts.Bool(false), got)
	assert.True(t, cfg.Has("node.options.planner"))
}

func TestLaterFilesOverrideEarlier(t *testing.T) {
	base := writeFile(t, "base.toml", `
[node.options]
"planner.slice_target" = 30
"store.format" = "parquet"
`)
	override := writeFile(t, "override.yaml", `
node:
  options:
    planner.slice_target: 50
`)
	cfg, err := bootconfig.Load(base, override)
	require.NoError(t, err)
	assert.Equal(t, []string{base, override}, cfg.Sources())

	got, err := cfg.Lookup("node.options.planner.slice_target", opts.KindInt)
	require.NoError(t, err)
	assert.Equal(t, opts.Int(50), got)

	got, err = cfg.Lookup("node.options.store.format", opts.KindString)
	require.NoError(t, err)
	assert.Equal(t, opts.String("parquet"), got)
}

func TestLookupMissingIsRecoverable(t *testing.T) {
	cfg := bootconfig.FromMap(map[string]any{"node": map[string]any{}})

	_, err := cfg.Lookup("node.options.planner.slice_target", opts.KindInt)
	require.ErrorIs(t, err, opts.ErrBootKeyMissing)

	var nilCfg *bootconfig.Config
	_, err = nilCfg.Lookup("anything", opts.KindInt)
	require.ErrorIs(t, err, opts.ErrBootKeyMissing)
}

func TestLookupWrongTypeIsFatal(t *testing.T) {
	cfg := bootconfig.FromMap(map[string]any{
		"node": map[string]any{"options": map[string]any{
			"planner.slice_target":    "thirty",
			"planner.affinity_factor": []any{1, 2},
			"planner.width":           1.5,
			"planner.memory_limit":    9.223372036854775807e18,
		}},
	})

	cases := []struct {
		path string
		kind opts.Kind
	}{
		{"node.options.planner.slice_target", opts.KindInt},
		{"node.options.planner.affinity_factor", opts.KindFloat},
		{"node.options.planner.width", opts.KindInt},
		{"node.options.planner.memory_limit", opts.KindInt},
		{"node.options.planner.slice_target", opts.KindBool},
	}
	for _, tc := range cases {
		t.Run(tc.path+"/"+tc.kind.String(), func(t *testing.T) {
			_, err := cfg.Lookup(tc.path, tc.kind)
			require.Error(t, err)
			assert.False(t, errors.Is(err, opts.ErrBootKeyMissing))
			var bootErr *opts.BootConfigError
			require.ErrorAs(t, err, &bootErr)
			assert.Equal(t, tc.path, bootErr.Path)
		})
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeFile(t, "node.ini", "a=b")
	_, err := bootconfig.Load(path)
	require.ErrorIs(t, err, bootconfig.ErrUnsupportedFormat)

	_, err = bootconfig.Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
