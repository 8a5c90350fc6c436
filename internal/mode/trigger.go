package mode

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DismissalPersister optionally survives dismissals across a process
// restart (spec §10: a dismissal is valid "for the rest of the day",
// including across a restart within that day). nil means dismissals
// are kept in memory only, which is sufficient for tests and for
// configurations with no relational store.
type DismissalPersister interface {
	SaveDismissal(ctx context.Context, suggestionID string, day time.Time) error
}

// dismissedCacheSize bounds how many distinct suggestion ids the trigger
// remembers dismissals for; old entries age out via LRU eviction rather
// than growing the set forever across long-running sessions.
const dismissedCacheSize = 256

// CalendarEvent is the narrow shape the trigger needs from a calendar
// collaborator's event listing.
type CalendarEvent struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Suggestion is a candidate "you might be in a meeting" prompt shown to
// the user. The user's confirmation is what actually calls
// Controller.StartMeeting; the trigger itself never starts a meeting.
type Suggestion struct {
	ID     string
	Reason string // "app" or "calendar"
}

const calendarMatchWindow = 5 * time.Minute

// Trigger evaluates meeting-detection signals and tracks per-day
// dismissals. Safe for concurrent use.
type Trigger struct {
	mu        sync.Mutex
	dismissed *lru.Cache[string, time.Time] // id -> day it was dismissed
	persist   DismissalPersister
}

// NewTrigger constructs an empty trigger.
func NewTrigger() *Trigger {
	cache, err := lru.New[string, time.Time](dismissedCacheSize)
	if err != nil {
		panic(err) // only fails for a non-positive size, which dismissedCacheSize never is
	}
	return &Trigger{dismissed: cache}
}

// Evaluate returns the set of currently-active suggestions given the
// frontmost app, microphone state, and upcoming/ongoing calendar events,
// excluding any the user already dismissed today.
func (t *Trigger) Evaluate(frontmostApp *string, knownMeetingApps []string, micActive bool, events []CalendarEvent, now time.Time) []Suggestion {
	var suggestions []Suggestion

	if frontmostApp != nil {
		for _, app := range knownMeetingApps {
			if app == *frontmostApp {
				suggestions = append(suggestions, Suggestion{ID: "app-" + slugify(app), Reason: "app"})
				break
			}
		}
	}

	if micActive {
		for _, ev := range events {
			if calendarMatches(ev, now) {
				suggestions = append(suggestions, Suggestion{ID: "cal-" + ev.ID, Reason: "calendar"})
			}
		}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	filtered := suggestions[:0]
	for _, s := range suggestions {
		if dismissedDay, ok := t.dismissed.Get(s.ID); ok && sameDay(dismissedDay, now) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered
}

// Dismiss marks a suggestion id as dismissed for the rest of the current
// day. If a persister is wired, the dismissal is also saved so it
// survives a process restart; a persistence failure doesn't block the
// in-memory dismissal, which already governs the current process.
func (t *Trigger) Dismiss(id string, now time.Time) {
	t.mu.Lock()
	t.dismissed.Add(id, now)
	persist := t.persist
	t.mu.Unlock()

	if persist != nil {
		_ = persist.SaveDismissal(context.Background(), id, now)
	}
}

// SetPersister wires a relational store for cross-restart dismissal
// survival. Call once at startup before the first Dismiss.
func (t *Trigger) SetPersister(p DismissalPersister) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.persist = p
}

// LoadDismissed seeds the in-memory cache from previously persisted
// dismissals, e.g. at process startup after a restart within the same
// day.
func (t *Trigger) LoadDismissed(ids []string, day time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.dismissed.Add(id, day)
	}
}

func calendarMatches(ev CalendarEvent, now time.Time) bool {
	windowStart := ev.Start.Add(-calendarMatchWindow)
	windowEnd := ev.End.Add(calendarMatchWindow)
	return !now.Before(windowStart) && !now.After(windowEnd)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func slugify(app string) string {
	out := make([]rune, 0, len(app))
	for _, r := range app {
		if r == ' ' {
			out = append(out, '-')
			continue
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			out = append(out, r)
		}
	}
	return string(out)
}
