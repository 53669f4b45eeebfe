package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Option lifecycle verbs emitted by option managers.
const (
	VerbOptionUpdated    = "options.updated"
	VerbOptionDeleted    = "options.deleted"
	VerbOptionsReset     = "options.reset"
	VerbOptionMigrated   = "options.migrated"
	VerbOptionDeprecated = "options.deprecated"
)

const (
	objectTypeOption  = "option"
	objectTypeOptions = "options"
)

// OptionEventInput describes the common fields for option lifecycle events.
type OptionEventInput struct {
	ActorID    string
	UserID     string
	TenantID   string
	Channel    string
	Option     string
	Scope      string
	Key        string
	OldValue   any
	NewValue   any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildOptionUpdatedEvent records an override written to the store.
func BuildOptionUpdatedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionUpdated, objectTypeOption, input)
}

// BuildOptionDeletedEvent records an override removed from the store.
func BuildOptionDeletedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionDeleted, objectTypeOption, input)
}

// BuildOptionsResetEvent records every override of a scope being removed. The
// object is the scope itself.
func BuildOptionsResetEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionsReset, objectTypeOptions, input)
}

// BuildOptionMigratedEvent records a legacy key rewritten under its canonical
// name during Init.
func BuildOptionMigratedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionMigrated, objectTypeOption, input)
}

// BuildOptionDeprecatedEvent records a stored entry dropped because no option
// with that name exists any more.
func BuildOptionDeprecatedEvent(input OptionEventInput) Event {
	return buildOptionEvent(VerbOptionDeprecated, objectTypeOption, input)
}

func buildOptionEvent(verb, objectType string, input OptionEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["event_id"] = uuid.NewString()
	if scope := strings.TrimSpace(input.Scope); scope != "" {
		metadata["scope"] = scope
	}
	if key := strings.TrimSpace(input.Key); key != "" {
		metadata["key"] = key
	}
	if input.OldValue != nil {
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata["new_value"] = input.NewValue
	}

	objectID := strings.TrimSpace(input.Option)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Key)
	}
	if objectID == "" {
		objectID = strings.TrimSpace(input.Scope)
	}
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
