package opts

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-sysoptions/pkg/activity"
	"go.uber.org/zap"
)

const lockStripes = 64

type managerState int

const (
	stateNew managerState = iota
	stateReady
	stateClosed
)

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	logger  *zap.Logger
	metrics *Metrics
	emitter *activity.Emitter
}

// WithLogger sets the structured logger. The default discards everything.
func WithLogger(logger *zap.Logger) ManagerOption {
	return func(cfg *managerConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMetrics records operation counts and latency.
func WithMetrics(metrics *Metrics) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.metrics = metrics
	}
}

// Manager resolves, validates and persists option values for one scope. Reads
// return the stored override when present and the descriptor default
// otherwise. Writes equal to the default are dropped while no override
// exists, so the store only holds deviations.
//
// Init must complete before any other call; operations issued earlier fail
// with ErrNotInitialized.
type Manager struct {
	registry *Registry
	store    Store
	scope    Scope
	cfg      managerConfig

	mu      sync.RWMutex
	state   managerState
	stripes [lockStripes]sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

// NewSystemManager builds the node-wide manager over a durable store.
func NewSystemManager(registry *Registry, store Store, opts ...ManagerOption) *Manager {
	return newManager(registry, store, ScopeSystem, opts...)
}

// NewSessionManager builds a manager for one connection, typically over
// state.NewMemoryStore.
func NewSessionManager(registry *Registry, store Store, opts ...ManagerOption) *Manager {
	return newManager(registry, store, ScopeSession, opts...)
}

func newManager(registry *Registry, store Store, scope Scope, opts ...ManagerOption) *Manager {
	cfg := managerConfig{logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = cfg.logger.With(zap.Stringer("scope", scope))
	return &Manager{
		registry: registry,
		store:    store,
		scope:    scope,
		cfg:      cfg,
	}
}

// Scope reports the scope this manager owns.
func (m *Manager) Scope() Scope { return m.scope }

// Registry returns the descriptors this manager validates against.
func (m *Manager) Registry() *Registry { return m.registry }

// Init reconciles the store with the registry. Entries naming no option are
// deleted. Entries stored under a non-canonical spelling are rewritten under
// the canonical name; when the canonical entry already exists it wins and
// the legacy entry is only deleted. On failure the store is closed and the
// manager is unusable.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch m.state {
	case stateReady:
		return nil
	case stateClosed:
		return ErrClosed
	}

	start := time.Now()
	err := m.reconcile(ctx)
	m.cfg.metrics.observe(m.scope, "init", start, err)
	if err != nil {
		m.state = stateClosed
		m.closeStore()
		return err
	}
	m.state = stateReady
	m.cfg.logger.Debug("option manager initialized", zap.Int("options", m.registry.Len()))
	return nil
}

func (m *Manager) reconcile(ctx context.Context) error {
	if m.registry == nil || m.store == nil {
		return errors.New("opts: manager requires a registry and a store")
	}
	entries, err := m.store.All(ctx)
	if err != nil {
		return fmt.Errorf("opts: list stored options: %w", err)
	}
	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Key] = true
	}

	for _, entry := range entries {
		d, ok := m.registry.Lookup(entry.Key)
		if !ok || entry.Value.Kind() != d.Kind() {
			if err := m.store.Delete(ctx, entry.Key); err != nil {
				return fmt.Errorf("opts: delete deprecated option %q: %w", entry.Key, err)
			}
			m.cfg.logger.Warn("deleted deprecated stored option",
				zap.String("key", entry.Key),
				zap.Stringer("kind", entry.Value.Kind()),
			)
			m.cfg.metrics.cleanup(m.scope, "deprecated")
			m.emit(ctx, activity.BuildOptionDeprecatedEvent, activity.OptionEventInput{
				Key:      entry.Key,
				OldValue: rawOrNil(entry.Value),
			})
			continue
		}

		canonical := string(d.Name())
		if entry.Key == canonical {
			continue
		}
		if !present[canonical] {
			value := entry.Value.WithName(canonical).WithScope(m.scope)
			if err := m.store.Put(ctx, d.Name(), value); err != nil {
				return fmt.Errorf("opts: migrate option %q: %w", entry.Key, err)
			}
			present[canonical] = true
		}
		if err := m.store.Delete(ctx, entry.Key); err != nil {
			return fmt.Errorf("opts: delete legacy option key %q: %w", entry.Key, err)
		}
		m.cfg.logger.Warn("renamed stored option to canonical name",
			zap.String("key", entry.Key),
			zap.String("option", canonical),
		)
		m.cfg.metrics.cleanup(m.scope, "migrated")
		m.emit(ctx, activity.BuildOptionMigratedEvent, activity.OptionEventInput{
			Option:   canonical,
			Key:      entry.Key,
			NewValue: rawOrNil(entry.Value),
		})
	}
	return nil
}

// enter holds the read side of the lifecycle lock for one operation so Close
// cannot release the store underneath it.
func (m *Manager) enter() (func(), error) {
	m.mu.RLock()
	switch m.state {
	case stateNew:
		m.mu.RUnlock()
		return nil, ErrNotInitialized
	case stateClosed:
		m.mu.RUnlock()
		return nil, ErrClosed
	}
	return m.mu.RUnlock, nil
}

func (m *Manager) lockName(name Name) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	mu := &m.stripes[h.Sum32()%lockStripes]
	mu.Lock()
	return mu.Unlock
}

// Descriptor returns the descriptor for name or *UnknownOptionError.
func (m *Manager) Descriptor(name string) (*Descriptor, error) {
	return m.registry.Descriptor(name)
}

// GetOption returns the effective value of name: the stored override when one
// exists, the descriptor default otherwise.
func (m *Manager) GetOption(ctx context.Context, name string) (Value, error) {
	start := time.Now()
	release, err := m.enter()
	if err != nil {
		return Value{}, err
	}
	defer release()

	value, _, err := m.resolve(ctx, name)
	m.cfg.metrics.observe(m.scope, "get", start, err)
	return value, err
}

// Override returns only the stored override for name. ok is false when the
// option resolves to its default.
func (m *Manager) Override(ctx context.Context, name string) (Value, bool, error) {
	release, err := m.enter()
	if err != nil {
		return Value{}, false, err
	}
	defer release()

	d, err := m.registry.Descriptor(name)
	if err != nil {
		return Value{}, false, err
	}
	return m.read(ctx, d)
}

func (m *Manager) resolve(ctx context.Context, name string) (Value, *Descriptor, error) {
	d, err := m.registry.Descriptor(name)
	if err != nil {
		return Value{}, nil, err
	}
	value, ok, err := m.read(ctx, d)
	if err != nil {
		return Value{}, nil, err
	}
	if ok {
		return value, d, nil
	}
	return d.Default(), d, nil
}

func (m *Manager) read(ctx context.Context, d *Descriptor) (Value, bool, error) {
	value, ok, err := m.store.Get(ctx, d.Name())
	if err != nil {
		return Value{}, false, fmt.Errorf("opts: read option %q: %w", d.Name(), err)
	}
	if !ok {
		return Value{}, false, nil
	}
	if value.Kind() != d.Kind() {
		m.cfg.logger.Warn("ignoring stored option of the wrong kind",
			zap.String("option", string(d.Name())),
			zap.Stringer("stored", value.Kind()),
			zap.Stringer("want", d.Kind()),
		)
		return Value{}, false, nil
	}
	return value.WithName(string(d.Name())), true, nil
}

// SetOption validates value and stores it under the canonical name. A value
// equal to the default is not written while no override exists.
func (m *Manager) SetOption(ctx context.Context, value Value) error {
	start := time.Now()
	release, err := m.enter()
	if err != nil {
		return err
	}
	defer release()

	err = m.set(ctx, value)
	m.cfg.metrics.observe(m.scope, "set", start, err)
	return err
}

func (m *Manager) set(ctx context.Context, value Value) error {
	if value.Scope() != m.scope {
		return scopeMismatch(m.scope, value.Scope())
	}
	d, err := m.registry.Descriptor(string(value.Name()))
	if err != nil {
		return err
	}
	if err := d.Validate(value); err != nil {
		return err
	}

	unlock := m.lockName(d.Name())
	defer unlock()

	previous, exists, err := m.read(ctx, d)
	if err != nil {
		return err
	}
	if !exists && value.Equal(d.Default()) {
		m.cfg.metrics.compacted(m.scope)
		m.cfg.logger.Debug("option write equals default, skipped",
			zap.String("option", string(d.Name())),
		)
		return nil
	}
	if err := m.store.Put(ctx, d.Name(), value); err != nil {
		return fmt.Errorf("opts: write option %q: %w", d.Name(), err)
	}
	if !exists {
		previous = d.Default()
	}
	m.emit(ctx, activity.BuildOptionUpdatedEvent, activity.OptionEventInput{
		Option:   string(d.Name()),
		OldValue: rawOrNil(previous),
		NewValue: value.Raw(),
	})
	return nil
}

// DeleteOption removes the override for name so it reverts to its default.
// Deleting an option with no override succeeds.
func (m *Manager) DeleteOption(ctx context.Context, name string, scope Scope) error {
	start := time.Now()
	release, err := m.enter()
	if err != nil {
		return err
	}
	defer release()

	err = m.delete(ctx, name, scope)
	m.cfg.metrics.observe(m.scope, "delete", start, err)
	return err
}

func (m *Manager) delete(ctx context.Context, name string, scope Scope) error {
	if scope != m.scope {
		return scopeMismatch(m.scope, scope)
	}
	d, err := m.registry.Descriptor(name)
	if err != nil {
		return err
	}

	unlock := m.lockName(d.Name())
	defer unlock()

	previous, exists, err := m.read(ctx, d)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	if err := m.store.Delete(ctx, string(d.Name())); err != nil {
		return fmt.Errorf("opts: delete option %q: %w", d.Name(), err)
	}
	m.emit(ctx, activity.BuildOptionDeletedEvent, activity.OptionEventInput{
		Option:   string(d.Name()),
		OldValue: rawOrNil(previous),
		NewValue: rawOrNil(d.Default()),
	})
	return nil
}

// DeleteAllOptions removes every override held by the store.
func (m *Manager) DeleteAllOptions(ctx context.Context, scope Scope) error {
	start := time.Now()
	release, err := m.enter()
	if err != nil {
		return err
	}
	defer release()

	err = m.deleteAll(ctx, scope)
	m.cfg.metrics.observe(m.scope, "delete_all", start, err)
	return err
}

func (m *Manager) deleteAll(ctx context.Context, scope Scope) error {
	if scope != m.scope {
		return scopeMismatch(m.scope, scope)
	}
	entries, err := m.store.All(ctx)
	if err != nil {
		return fmt.Errorf("opts: list stored options: %w", err)
	}
	for _, entry := range entries {
		if err := m.store.Delete(ctx, entry.Key); err != nil {
			return fmt.Errorf("opts: delete option %q: %w", entry.Key, err)
		}
	}
	m.emit(ctx, activity.BuildOptionsResetEvent, activity.OptionEventInput{
		Metadata: map[string]any{"deleted": len(entries)},
	})
	return nil
}

// Iterate returns the effective value of every registered option sorted by
// name.
func (m *Manager) Iterate(ctx context.Context) (OptionList, error) {
	return m.list(ctx, "iterate", nil)
}

// InternalOptionList returns the effective values of internal options.
func (m *Manager) InternalOptionList(ctx context.Context) (OptionList, error) {
	return m.list(ctx, "list_internal", func(d *Descriptor) bool { return d.Internal() })
}

// ExternalOptionList returns the effective values of user-facing options.
func (m *Manager) ExternalOptionList(ctx context.Context) (OptionList, error) {
	return m.list(ctx, "list_external", func(d *Descriptor) bool { return !d.Internal() })
}

func (m *Manager) list(ctx context.Context, op string, keep func(*Descriptor) bool) (OptionList, error) {
	start := time.Now()
	release, err := m.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	overrides, err := m.overrides(ctx)
	m.cfg.metrics.observe(m.scope, op, start, err)
	if err != nil {
		return nil, err
	}
	out := make(OptionList, 0, m.registry.Len())
	for _, d := range m.registry.Descriptors() {
		if keep != nil && !keep(d) {
			continue
		}
		if value, ok := overrides[d.Name()]; ok {
			out = append(out, value)
			continue
		}
		out = append(out, d.Default())
	}
	return out, nil
}

// Overrides returns only the stored overrides sorted by name.
func (m *Manager) Overrides(ctx context.Context) (OptionList, error) {
	release, err := m.enter()
	if err != nil {
		return nil, err
	}
	defer release()

	overrides, err := m.overrides(ctx)
	if err != nil {
		return nil, err
	}
	out := make(OptionList, 0, len(overrides))
	for _, value := range overrides {
		out = append(out, value)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// overrides reads the store keyed by canonical name. Entries written behind
// the manager after Init that name no option, or use a non-canonical key, are
// skipped.
func (m *Manager) overrides(ctx context.Context) (map[Name]Value, error) {
	entries, err := m.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("opts: list stored options: %w", err)
	}
	out := make(map[Name]Value, len(entries))
	for _, entry := range entries {
		d, ok := m.registry.Lookup(entry.Key)
		if !ok || entry.Key != string(d.Name()) || entry.Value.Kind() != d.Kind() {
			m.cfg.logger.Warn("skipping stored option with no matching descriptor",
				zap.String("key", entry.Key),
			)
			continue
		}
		out[d.Name()] = entry.Value.WithName(entry.Key)
	}
	return out, nil
}

// Explain reports which layer produced the effective value of name.
func (m *Manager) Explain(ctx context.Context, name string) (Trace, error) {
	release, err := m.enter()
	if err != nil {
		return Trace{}, err
	}
	defer release()

	d, err := m.registry.Descriptor(name)
	if err != nil {
		return Trace{}, err
	}
	stored, ok, err := m.read(ctx, d)
	if err != nil {
		return Trace{}, err
	}

	trace := Trace{Option: d.Name(), Scope: m.scope}
	trace.Layers = append(trace.Layers, provenance(SourceStore, stored, ok))
	trace.Layers = append(trace.Layers, provenance(SourceBoot, d.Default(), d.FromBoot()))
	trace.Layers = append(trace.Layers, provenance(SourceCompiled, d.CompiledDefault(), true))
	for _, layer := range trace.Layers {
		if layer.Found {
			trace.Value = *layer.Value
			trace.Source = layer.Source
			break
		}
	}
	return trace, nil
}

// Close releases the store. It is safe to call more than once.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateClosed
	return m.closeStore()
}

func (m *Manager) closeStore() error {
	m.closeOnce.Do(func() {
		if m.store != nil {
			m.closeErr = m.store.Close()
		}
	})
	return m.closeErr
}
