package mode

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCallbacks struct {
	paused  int
	ambient []int
	meeting []int
}

func (r *recordingCallbacks) OnPaused()          { r.paused++ }
func (r *recordingCallbacks) OnAmbient(secs int) { r.ambient = append(r.ambient, secs) }
func (r *recordingCallbacks) OnMeeting(ms int)   { r.meeting = append(r.meeting, ms) }

func TestController_StartsPaused(t *testing.T) {
	cb := &recordingCallbacks{}
	c := New(DefaultConfig(), cb)
	assert.Equal(t, ModePaused, c.Mode())
}

func TestController_StartAmbient(t *testing.T) {
	cb := &recordingCallbacks{}
	c := New(DefaultConfig(), cb)
	c.StartAmbient()

	assert.Equal(t, ModeAmbient, c.Mode())
	require.Len(t, cb.ambient, 1)
	assert.Equal(t, 30, cb.ambient[0])
}

func TestController_StartMeeting(t *testing.T) {
	cb := &recordingCallbacks{}
	c := New(DefaultConfig(), cb)
	c.StartMeeting()

	assert.Equal(t, ModeMeeting, c.Mode())
	require.Len(t, cb.meeting, 1)
}

func TestController_PowerIdlePauses(t *testing.T) {
	cb := &recordingCallbacks{}
	c := New(DefaultConfig(), cb)
	c.StartMeeting()

	c.OnPowerState(PowerIdle)
	assert.Equal(t, ModePaused, c.Mode())
	assert.Equal(t, 1, cb.paused)
}

func TestController_PowerWakeResumesToAmbientNotMeeting(t *testing.T) {
	cb := &recordingCallbacks{}
	c := New(DefaultConfig(), cb)
	c.StartMeeting()
	c.OnPowerState(PowerIdle)

	c.OnPowerState(PowerWaking)
	assert.Equal(t, ModeAmbient, c.Mode())
}

func TestPowerManager_CrossesIdleThreshold(t *testing.T) {
	var states []PowerState
	idle := 0.0
	pm := NewPowerManager(PowerConfig{IdleTimeoutSecs: 300, PollInterval: time.Second}, func() float64 { return idle }, nil, func(s PowerState) {
		states = append(states, s)
	})

	pm.Poll()
	assert.Empty(t, states)

	idle = 301
	pm.Poll()
	require.Len(t, states, 1)
	assert.Equal(t, PowerIdle, states[0])

	idle = 0
	pm.Poll()
	require.Len(t, states, 2)
	assert.Equal(t, PowerActive, states[1])
}

type stubAssertion struct {
	acquired bool
	released bool
}

func (s *stubAssertion) Acquire() (string, error) { s.acquired = true; return "tok", nil }
func (s *stubAssertion) Release(token string) error {
	s.released = true
	return nil
}

func TestPowerManager_SleepAssertionLifecycle(t *testing.T) {
	assertion := &stubAssertion{}
	pm := NewPowerManager(DefaultPowerConfig(), nil, assertion, nil)

	require.NoError(t, pm.AcquireSleepAssertion())
	assert.True(t, assertion.acquired)

	require.NoError(t, pm.ReleaseSleepAssertion())
	assert.True(t, assertion.released)
}

func TestTrigger_AppDetection(t *testing.T) {
	trig := NewTrigger()
	app := "zoom.us"
	suggestions := trig.Evaluate(&app, []string{"zoom.us", "Microsoft Teams"}, false, nil, time.Now())

	require.Len(t, suggestions, 1)
	assert.Equal(t, "app", suggestions[0].Reason)
}

func TestTrigger_CalendarMatchRequiresMicActive(t *testing.T) {
	trig := NewTrigger()
	now := time.Now()
	events := []CalendarEvent{{ID: "evt-1", Start: now, End: now.Add(30 * time.Minute)}}

	noMic := trig.Evaluate(nil, nil, false, events, now)
	assert.Empty(t, noMic)

	withMic := trig.Evaluate(nil, nil, true, events, now)
	require.Len(t, withMic, 1)
	assert.Equal(t, "cal-evt-1", withMic[0].ID)
}

func TestTrigger_DismissalLastsForTheDay(t *testing.T) {
	trig := NewTrigger()
	app := "zoom.us"
	now := time.Now()

	first := trig.Evaluate(&app, []string{"zoom.us"}, false, nil, now)
	require.Len(t, first, 1)

	trig.Dismiss(first[0].ID, now)
	again := trig.Evaluate(&app, []string{"zoom.us"}, false, nil, now.Add(time.Hour))
	assert.Empty(t, again)

	tomorrow := trig.Evaluate(&app, []string{"zoom.us"}, false, nil, now.AddDate(0, 0, 1))
	assert.Len(t, tomorrow, 1)
}
