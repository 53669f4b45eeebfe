package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel tags events whose producer did not pick a channel.
const DefaultChannel = "options"

// Config controls emission for one node.
type Config struct {
	Enabled bool
	Channel string
	// Now stamps OccurredAt on events that carry none. Defaults to time.Now.
	Now func() time.Time
}

// Emitter fans option events out to hooks, filling the channel and timestamp
// left empty by the builder.
type Emitter struct {
	hooks   Hooks
	enabled bool
	channel string
	now     func() time.Time
}

// NewEmitter drops nil hooks. An emitter with no hooks is disabled whatever
// cfg.Enabled says.
func NewEmitter(hooks Hooks, cfg Config) *Emitter {
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	normalized := cloneHooks(hooks)
	return &Emitter{
		hooks:   normalized,
		enabled: cfg.Enabled && len(normalized) > 0,
		channel: channel,
		now:     now,
	}
}

// Enabled reports whether Emit reaches any hook. A nil emitter is disabled.
func (e *Emitter) Enabled() bool {
	return e != nil && e.enabled
}

// Channel returns the default channel.
func (e *Emitter) Channel() string {
	if e == nil {
		return DefaultChannel
	}
	return e.channel
}

// Hooks returns a copy of the configured hooks.
func (e *Emitter) Hooks() Hooks {
	if e == nil {
		return nil
	}
	return cloneHooks(e.hooks)
}

// Emit forwards event to every hook and joins their errors.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now().UTC()
	}
	return e.hooks.Notify(ctx, event)
}

func cloneHooks(hooks Hooks) Hooks {
	var normalized Hooks
	for _, hook := range hooks {
		if hook != nil {
			normalized = append(normalized, hook)
		}
	}
	return normalized
}
