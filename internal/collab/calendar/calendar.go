// Package calendar defines the calendar collaborator (spec §6.5): the
// OS calendar query used by the Meeting Trigger to suggest starting a
// meeting around scheduled events.
package calendar

import (
	"context"
	"time"
)

// Event is one calendar entry, reduced from the platform calendar API
// to the fields the trigger and catch-up briefing need.
type Event struct {
	ID         string
	Title      string
	Start      time.Time
	End        time.Time
	Location   string
	Attendees  []string
	IsAllDay   bool
	MeetingURL string
}

// Provider lists today's calendar events. No OS-level implementation
// ships here; platform adapters live outside this repo's scope.
type Provider interface {
	FetchEvents(ctx context.Context) ([]Event, error)
}

// UnsupportedProvider is the default adapter where no calendar backend
// is configured: it always reports zero events rather than erroring, so
// callers that merely fold calendar events into a larger suggestion set
// don't need a special case for "no calendar available".
type UnsupportedProvider struct{}

func (UnsupportedProvider) FetchEvents(context.Context) ([]Event, error) {
	return nil, nil
}
