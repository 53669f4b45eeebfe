package opts

import (
	"context"

	"github.com/goliatone/go-sysoptions/pkg/activity"
	"go.uber.org/zap"
)

// WithActivityHooks forwards option lifecycle events to hooks. Nil hooks are
// dropped; an empty set disables emission.
func WithActivityHooks(hooks activity.Hooks) ManagerOption {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *managerConfig) {
		cfg.emitter = activity.NewEmitter(normalized, activity.Config{Enabled: true})
	}
}

// WithActivityEmitter uses a preconfigured emitter, for example one shared by
// the system and session managers of a node.
func WithActivityEmitter(emitter *activity.Emitter) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.emitter = emitter
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

type eventBuilder func(activity.OptionEventInput) activity.Event

// emit publishes an option event. Hook failures are logged and never reach the
// caller.
func (m *Manager) emit(ctx context.Context, build eventBuilder, input activity.OptionEventInput) {
	if !m.cfg.emitter.Enabled() {
		return
	}
	if actor, ok := activity.ActorFromContext(ctx); ok {
		input.ActorID = actor.ActorID
		input.UserID = actor.UserID
		input.TenantID = actor.TenantID
	}
	if input.Scope == "" {
		input.Scope = m.scope.String()
	}
	event := build(input)
	if err := m.cfg.emitter.Emit(ctx, event); err != nil {
		m.cfg.logger.Warn("option activity hook failed",
			zap.String("verb", event.Verb),
			zap.String("option", event.ObjectID),
			zap.Error(err),
		)
	}
}

func rawOrNil(v Value) any {
	if v.IsZero() {
		return nil
	}
	return v.Raw()
}
