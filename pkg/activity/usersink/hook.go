// Package usersink records option changes in a go-users activity feed so
// they land in the same audit trail as user activity.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-sysoptions/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook forwards option lifecycle events to Sink.
type Hook struct {
	Sink usertypes.ActivitySink
	// Verbs limits forwarding to the listed verbs. Empty forwards all.
	Verbs []string
	// Channel is used for events that carry none.
	Channel string
}

// Notify maps event into an ActivityRecord. Events that are invalid or
// filtered out are dropped without error.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}
	event = activity.NormalizeEvent(event)
	if !event.Valid() || !h.accepts(event.Verb) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return h.Sink.Log(ctx, h.record(event))
}

func (h Hook) record(event activity.Event) usertypes.ActivityRecord {
	channel := event.Channel
	if channel == "" {
		channel = h.Channel
	}
	actor := parseUUID(event.ActorID)
	user := parseUUID(event.UserID)
	if actor == uuid.Nil {
		// Changes made on behalf of a user are attributed to them.
		actor = user
	}
	return usertypes.ActivityRecord{
		ActorID:    actor,
		UserID:     user,
		TenantID:   parseUUID(event.TenantID),
		Verb:       event.Verb,
		ObjectType: event.ObjectType,
		ObjectID:   event.ObjectID,
		Channel:    channel,
		Data:       event.Metadata,
		OccurredAt: event.OccurredAt,
	}
}

func (h Hook) accepts(verb string) bool {
	if len(h.Verbs) == 0 {
		return true
	}
	for _, allowed := range h.Verbs {
		if strings.EqualFold(strings.TrimSpace(allowed), verb) {
			return true
		}
	}
	return false
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(input)
	if err != nil {
		return uuid.Nil
	}
	return id
}
