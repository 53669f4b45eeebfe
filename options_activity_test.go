package opts

import (
	"context"
	"testing"

	"github.com/goliatone/go-sysoptions/pkg/activity"
)

func TestWithActivityHooksFiltersNil(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })

	cfg := managerConfig{}
	WithActivityHooks(activity.Hooks{nil, hook})(&cfg)
	if !cfg.emitter.Enabled() {
		t.Fatalf("expected emitter enabled with one hook")
	}

	cfg = managerConfig{}
	WithActivityHooks(activity.Hooks{nil})(&cfg)
	if cfg.emitter.Enabled() {
		t.Fatalf("expected emitter disabled when every hook is nil")
	}
}

func TestActivityHooksDefaultDisabled(t *testing.T) {
	m := newManager(nil, nil, ScopeSystem)
	if m.cfg.emitter.Enabled() {
		t.Fatalf("expected no emitter by default")
	}
	// emit is a no-op without an emitter.
	m.emit(context.Background(), activity.BuildOptionUpdatedEvent, activity.OptionEventInput{Option: "a"})
}

func TestCloneActivityHooksIsolatesInput(t *testing.T) {
	hook := activity.HookFunc(func(context.Context, activity.Event) error { return nil })
	input := activity.Hooks{hook}
	cloned := cloneActivityHooks(input)
	input[0] = nil
	if len(cloned) != 1 || cloned[0] == nil {
		t.Fatalf("expected clone unaffected by mutation, got %+v", cloned)
	}
	if cloneActivityHooks(nil) != nil {
		t.Fatalf("expected nil for empty hooks")
	}
}
