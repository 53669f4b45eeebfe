// Package node wires a node's option stack at startup: logger, boot
// configuration, registry, durable store and the system option manager.
package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	opts "github.com/goliatone/go-sysoptions"
	"github.com/goliatone/go-sysoptions/pkg/activity"
	"github.com/goliatone/go-sysoptions/pkg/bootconfig"
	"github.com/goliatone/go-sysoptions/pkg/state"
	"github.com/goliatone/go-sysoptions/pkg/state/cqlstore"
	"github.com/goliatone/go-sysoptions/pkg/state/redisstore"
	"github.com/goliatone/go-sysoptions/pkg/state/sqlitestore"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option customises Start.
type Option func(*startConfig)

type startConfig struct {
	logger     *zap.Logger
	registerer prometheus.Registerer
	hooks      activity.Hooks
	store      opts.Store
	boot       opts.BootConfig
}

// WithLogger replaces the logger built from Config.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *startConfig) {
		cfg.logger = logger
	}
}

// WithRegisterer registers metrics with reg instead of a node-private
// registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *startConfig) {
		cfg.registerer = reg
	}
}

// WithActivityHooks forwards option lifecycle events to hooks.
func WithActivityHooks(hooks ...activity.ActivityHook) Option {
	return func(cfg *startConfig) {
		cfg.hooks = append(cfg.hooks, hooks...)
	}
}

// WithStore uses store instead of opening the configured backend. The node
// takes ownership and closes it.
func WithStore(store opts.Store) Option {
	return func(cfg *startConfig) {
		cfg.store = store
	}
}

// WithBootConfig uses boot instead of loading Config.BootFiles.
func WithBootConfig(boot opts.BootConfig) Option {
	return func(cfg *startConfig) {
		cfg.boot = boot
	}
}

// Node holds the started option stack.
type Node struct {
	Config   Config
	Logger   *zap.Logger
	Registry *opts.Registry
	System   *opts.Manager
	Metrics  *opts.Metrics
	// Gatherer exposes the node-private metrics registry. It is nil when
	// metrics are disabled or WithRegisterer was used.
	Gatherer prometheus.Gatherer

	emitter   *activity.Emitter
	closeOnce sync.Once
	closeErr  error
}

// Start builds the stack in order: logger, boot configuration, registry, boot
// folding, store, system manager, Init. Any failure releases what was
// already opened.
func Start(ctx context.Context, cfg Config, descriptors []*opts.Descriptor, options ...Option) (*Node, error) {
	sc := startConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&sc)
		}
	}
	n, err := start(ctx, cfg, descriptors, sc)
	if err != nil && sc.store != nil {
		_ = sc.store.Close()
	}
	return n, err
}

func start(ctx context.Context, cfg Config, descriptors []*opts.Descriptor, sc startConfig) (*Node, error) {
	logger := sc.logger
	if logger == nil {
		built, err := NewLogger(cfg)
		if err != nil {
			return nil, fmt.Errorf("node: build logger: %w", err)
		}
		logger = built
	}

	boot := sc.boot
	if boot == nil {
		loaded, err := bootconfig.Load(cfg.BootFiles...)
		if err != nil {
			return nil, err
		}
		logger.Info("boot configuration loaded", zap.Strings("files", loaded.Sources()))
		boot = loaded
	}

	registry, err := opts.NewRegistry(descriptors...)
	if err != nil {
		return nil, err
	}
	prefix := cfg.BootPrefix
	if prefix == "" {
		prefix = opts.DefaultBootPrefix
	}
	registry, err = opts.FoldBootConfig(registry, boot, prefix, opts.FoldWithLogger(logger))
	if err != nil {
		return nil, err
	}

	n := &Node{Config: cfg, Logger: logger, Registry: registry}
	if cfg.MetricsEnabled {
		reg := sc.registerer
		if reg == nil {
			private := prometheus.NewRegistry()
			n.Gatherer = private
			reg = private
		}
		n.Metrics = opts.NewMetrics(reg)
	}
	n.emitter = activity.NewEmitter(sc.hooks, activity.Config{
		Enabled: len(sc.hooks) > 0,
		Channel: cfg.ActivityChannel,
	})

	store := sc.store
	if store == nil {
		store, err = OpenStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	n.System = opts.NewSystemManager(registry, store, n.managerOptions()...)
	if err := n.System.Init(ctx); err != nil {
		return nil, fmt.Errorf("node: init system options: %w", err)
	}
	logger.Info("system options ready",
		zap.String("store", cfg.StoreBackend),
		zap.Int("options", registry.Len()),
	)
	return n, nil
}

func (n *Node) managerOptions() []opts.ManagerOption {
	return []opts.ManagerOption{
		opts.WithLogger(n.Logger),
		opts.WithMetrics(n.Metrics),
		opts.WithActivityEmitter(n.emitter),
	}
}

// NewSession returns an initialised session manager backed by memory, and a
// reader resolving session overrides over the system manager.
func (n *Node) NewSession(ctx context.Context) (*opts.Manager, *opts.FallbackReader, error) {
	session := opts.NewSessionManager(n.Registry, state.NewMemoryStore(), n.managerOptions()...)
	if err := session.Init(ctx); err != nil {
		return nil, nil, err
	}
	return session, opts.NewFallbackReader(session, n.System), nil
}

// Close releases the system manager and flushes the logger once.
func (n *Node) Close() error {
	n.closeOnce.Do(func() {
		var errs []error
		if n.System != nil {
			errs = append(errs, n.System.Close())
		}
		if n.Logger != nil {
			_ = n.Logger.Sync()
		}
		n.closeErr = errors.Join(errs...)
	})
	return n.closeErr
}

// OpenStore opens the backend named by cfg.StoreBackend.
func OpenStore(ctx context.Context, cfg Config) (opts.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.StoreBackend) {
	case BackendMemory:
		return state.NewMemoryStore(), nil
	case BackendSQLite:
		return sqlitestore.Open(ctx, cfg.SQLitePath)
	case BackendRedis:
		return redisstore.Open(ctx, redisstore.Options{
			Address:  cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	case BackendCassandra:
		return cqlstore.Open(ctx, cqlstore.Config{
			ClusterHosts: cfg.CassandraHosts,
			Keyspace:     cfg.CassandraKeyspace,
			Table:        cfg.CassandraTable,
		})
	default:
		return nil, fmt.Errorf("node: unknown store backend %q", cfg.StoreBackend)
	}
}
