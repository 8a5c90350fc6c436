// Package mode implements the Mode Controller, Meeting Trigger, and Power
// Manager (spec §4.9): the top-level {Ambient, Meeting, Paused} state
// machine and the signals that suggest or force its transitions.
package mode

import "sync"

// Mode is the top-level capture state.
type Mode int

const (
	ModePaused Mode = iota
	ModeAmbient
	ModeMeeting
)

func (m Mode) String() string {
	switch m {
	case ModeAmbient:
		return "ambient"
	case ModeMeeting:
		return "meeting"
	default:
		return "paused"
	}
}

// Config tunes capture cadence per mode.
type Config struct {
	AmbientIntervalSecs int
	MeetingIntervalMs   int
}

// DefaultConfig matches spec §4.9's production defaults.
func DefaultConfig() Config {
	return Config{AmbientIntervalSecs: 30, MeetingIntervalMs: 1500}
}

// Callbacks receives mode-transition effects. The pipeline implements
// this to start/stop capture and the transcript connection.
type Callbacks interface {
	OnPaused()
	OnAmbient(intervalSecs int)
	OnMeeting(intervalMs int)
}

// Controller owns the current mode and applies transition rules. Safe
// for concurrent use.
type Controller struct {
	config    Config
	callbacks Callbacks

	mu   sync.Mutex
	mode Mode
}

// New constructs a controller in the Paused state, matching spec §4.9's
// "Start -> Paused" transition.
func New(config Config, callbacks Callbacks) *Controller {
	return &Controller{config: config, callbacks: callbacks, mode: ModePaused}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// StartAmbient transitions to Ambient mode.
func (c *Controller) StartAmbient() {
	c.mu.Lock()
	c.mode = ModeAmbient
	c.mu.Unlock()

	c.callbacks.OnAmbient(c.config.AmbientIntervalSecs)
}

// StartMeeting transitions to Meeting mode. The caller is responsible
// for having obtained a trigger (manual, calendar-confirmed, or
// app-detection-confirmed) before calling this.
func (c *Controller) StartMeeting() {
	c.mu.Lock()
	c.mode = ModeMeeting
	c.mu.Unlock()

	c.callbacks.OnMeeting(c.config.MeetingIntervalMs)
}

// Pause transitions to Paused mode, halting all capture.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.mode = ModePaused
	c.mu.Unlock()

	c.callbacks.OnPaused()
}

// OnPowerState applies the power-manager transition rule: Idle/Sleeping
// always pauses; Active/Waking resumes to Ambient, never back into
// Meeting, since a meeting that was interrupted by sleep should not
// silently resume recording.
func (c *Controller) OnPowerState(state PowerState) {
	switch state {
	case PowerIdle, PowerSleeping:
		c.Pause()
	case PowerActive, PowerWaking:
		c.StartAmbient()
	}
}
