// Package storetest is the behavioural contract shared by every opts.Store
// adapter.
package storetest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) opts.Store

type valuesFixture struct {
	Description string       `json:"description"`
	Cases       []opts.Value `json:"cases"`
}

// Run exercises the store contract against stores produced by open.
func Run(t *testing.T, open Factory) {
	t.Helper()

	t.Run("get missing", func(t *testing.T) {
		store := open(t)
		defer store.Close()

		_, ok, err := store.Get(context.Background(), "planner.slice_target")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("round trip", func(t *testing.T) {
		fx := loadFixture[valuesFixture](t, "values.json")
		store := open(t)
		defer store.Close()
		ctx := context.Background()

		for _, want := range fx.Cases {
			require.NoError(t, store.Put(ctx, want.Name(), want), want.Name())
		}
		for _, want := range fx.Cases {
			got, ok, err := store.Get(ctx, want.Name())
			require.NoError(t, err)
			require.True(t, ok, "missing %s", want.Name())
			assert.True(t, want.Equal(got), "want %s got %s", want, got)
			assert.Equal(t, want.Scope(), got.Scope())
		}
	})

	t.Run("put overwrites", func(t *testing.T) {
		store := open(t)
		defer store.Close()
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, "planner.slice_target", opts.IntValue("planner.slice_target", opts.ScopeSystem, 20)))
		require.NoError(t, store.Put(ctx, "planner.slice_target", opts.IntValue("planner.slice_target", opts.ScopeSystem, 30)))

		got, ok, err := store.Get(ctx, "planner.slice_target")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, int64(30), got.AsInt())

		entries, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("delete", func(t *testing.T) {
		store := open(t)
		defer store.Close()
		ctx := context.Background()

		require.NoError(t, store.Put(ctx, "exec.queue.enable", opts.BoolValue("exec.queue.enable", opts.ScopeSystem, true)))
		require.NoError(t, store.Delete(ctx, "exec.queue.enable"))
		require.NoError(t, store.Delete(ctx, "exec.queue.enable"), "deleting a missing key must succeed")

		_, ok, err := store.Get(ctx, "exec.queue.enable")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("all reports raw keys", func(t *testing.T) {
		store := open(t)
		defer store.Close()
		ctx := context.Background()

		legacy := opts.Name("Planner.Width.MAX_PER_NODE")
		require.NoError(t, store.Put(ctx, legacy, opts.IntValue(string(legacy), opts.ScopeSystem, 4)))
		require.NoError(t, store.Put(ctx, "store.format", opts.StringValue("store.format", opts.ScopeSystem, "csv")))

		entries, err := store.All(ctx)
		require.NoError(t, err)
		keys := make([]string, 0, len(entries))
		for _, entry := range entries {
			keys = append(keys, entry.Key)
		}
		assert.ElementsMatch(t, []string{"Planner.Width.MAX_PER_NODE", "store.format"}, keys)

		require.NoError(t, store.Delete(ctx, "Planner.Width.MAX_PER_NODE"))
		entries, err = store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	t.Run("concurrent writers", func(t *testing.T) {
		store := open(t)
		defer store.Close()
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				name := fmt.Sprintf("exec.worker_%d", i%4)
				errs <- store.Put(ctx, opts.Name(name), opts.IntValue(name, opts.ScopeSystem, int64(i)))
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		entries, err := store.All(ctx)
		require.NoError(t, err)
		assert.Len(t, entries, 4)
	})

	t.Run("closed store fails", func(t *testing.T) {
		store := open(t)
		require.NoError(t, store.Close())

		_, _, err := store.Get(context.Background(), "planner.slice_target")
		assert.Error(t, err)
	})
}

func loadFixture[T any](t *testing.T, name string) T {
	t.Helper()
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("failed to locate fixture directory")
	}
	fixturePath := filepath.Join(filepath.Dir(filename), "testdata", name)
	raw, err := os.ReadFile(fixturePath)
	if err != nil {
		t.Fatalf("failed to read fixture %q: %v", fixturePath, err)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("failed to unmarshal fixture %q: %v", fixturePath, err)
	}
	return out
}
