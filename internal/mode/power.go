package mode

import (
	"sync"
	"time"
)

// PowerState is the OS-level power state the Power Manager tracks.
type PowerState int

const (
	PowerActive PowerState = iota
	PowerIdle
	PowerSleeping
	PowerWaking
)

func (s PowerState) String() string {
	switch s {
	case PowerIdle:
		return "idle"
	case PowerSleeping:
		return "sleeping"
	case PowerWaking:
		return "waking"
	default:
		return "active"
	}
}

// IdleProbe reports how many seconds have elapsed since the last user
// input. Implemented per-platform by the power collaborator adapter.
type IdleProbe func() float64

// SleepAssertion acquires and releases an OS-level "prevent idle sleep"
// assertion while a meeting is recording.
type SleepAssertion interface {
	Acquire() (token string, err error)
	Release(token string) error
}

// PowerConfig tunes idle detection.
type PowerConfig struct {
	IdleTimeoutSecs float64
	PollInterval    time.Duration
}

// DefaultPowerConfig matches spec §4.9's defaults.
func DefaultPowerConfig() PowerConfig {
	return PowerConfig{IdleTimeoutSecs: 300, PollInterval: 5 * time.Second}
}

// PowerManager polls an idle-seconds probe and fires a callback whenever
// the Active/Idle boundary is crossed.
type PowerManager struct {
	config    PowerConfig
	probe     IdleProbe
	assertion SleepAssertion
	onChange  func(PowerState)

	mu             sync.Mutex
	state          PowerState
	assertionToken string
	assertionHeld  bool
}

// NewPowerManager constructs a manager in the Active state.
func NewPowerManager(config PowerConfig, probe IdleProbe, assertion SleepAssertion, onChange func(PowerState)) *PowerManager {
	return &PowerManager{config: config, probe: probe, assertion: assertion, onChange: onChange, state: PowerActive}
}

// Poll checks the idle probe once and fires onChange if the Active/Idle
// boundary was just crossed. Callers run this on a PollInterval ticker.
func (p *PowerManager) Poll() {
	if p.probe == nil {
		return
	}
	idleSecs := p.probe()

	p.mu.Lock()
	var next PowerState
	var changed bool
	switch {
	case idleSecs >= p.config.IdleTimeoutSecs && p.state == PowerActive:
		p.state, next, changed = PowerIdle, PowerIdle, true
	case idleSecs < p.config.IdleTimeoutSecs && p.state == PowerIdle:
		p.state, next, changed = PowerActive, PowerActive, true
	}
	p.mu.Unlock()

	if changed {
		p.fire(next)
	}
}

// NotifySleeping records an OS sleep notification, bypassing the idle
// poll (the OS, not the idle timer, is the source of truth here).
func (p *PowerManager) NotifySleeping() {
	p.mu.Lock()
	p.state = PowerSleeping
	p.mu.Unlock()
	p.fire(PowerSleeping)
}

// NotifyWaking records an OS wake notification.
func (p *PowerManager) NotifyWaking() {
	p.mu.Lock()
	p.state = PowerWaking
	p.mu.Unlock()
	p.fire(PowerWaking)
}

func (p *PowerManager) fire(state PowerState) {
	if p.onChange != nil {
		p.onChange(state)
	}
}

// State returns the current power state.
func (p *PowerManager) State() PowerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// AcquireSleepAssertion is called on entering Meeting mode.
func (p *PowerManager) AcquireSleepAssertion() error {
	if p.assertion == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.assertionHeld {
		return nil
	}

	token, err := p.assertion.Acquire()
	if err != nil {
		return err
	}
	p.assertionToken = token
	p.assertionHeld = true
	return nil
}

// ReleaseSleepAssertion is called on leaving Meeting mode.
func (p *PowerManager) ReleaseSleepAssertion() error {
	if p.assertion == nil {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.assertionHeld {
		return nil
	}

	err := p.assertion.Release(p.assertionToken)
	p.assertionHeld = false
	p.assertionToken = ""
	return err
}
