package audio

import (
	"fmt"
	"strings"
	"sync"
)

// ActiveDeviceState tracks the current output/input device singletons,
// the dual-tone state, and the ringer mode. It is a passive record: the
// core service decides when these change, this type only stores them
// consistently for UI and volume consumers.
type ActiveDeviceState struct {
	mu sync.RWMutex

	currentOutput *AudioDeviceDescriptor
	currentInput  *AudioDeviceDescriptor

	dualToneActive  bool
	dualToneSession uint32

	ringerMode RingerMode
}

// NewActiveDeviceState creates the record seeded with the given defaults.
func NewActiveDeviceState(output, input *AudioDeviceDescriptor) *ActiveDeviceState {
	return &ActiveDeviceState{
		currentOutput: output,
		currentInput:  input,
		ringerMode:    RingerModeNormal,
	}
}

// CurrentOutputDevice returns a snapshot of the active output device.
func (a *ActiveDeviceState) CurrentOutputDevice() *AudioDeviceDescriptor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.currentOutput == nil {
		return nil
	}
	return a.currentOutput.Clone()
}

// SetCurrentOutputDevice records the new active output device and reports
// whether it actually changed.
func (a *ActiveDeviceState) SetCurrentOutputDevice(d *AudioDeviceDescriptor) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d != nil && d.IsSameRouteAs(a.currentOutput) {
		return false
	}
	a.currentOutput = d
	return true
}

// CurrentInputDevice returns a snapshot of the active input device.
func (a *ActiveDeviceState) CurrentInputDevice() *AudioDeviceDescriptor {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.currentInput == nil {
		return nil
	}
	return a.currentInput.Clone()
}

// SetCurrentInputDevice records the new active input device and reports
// whether it actually changed.
func (a *ActiveDeviceState) SetCurrentInputDevice(d *AudioDeviceDescriptor) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if d != nil && d.IsSameRouteAs(a.currentInput) {
		return false
	}
	a.currentInput = d
	return true
}

// UpdateDualToneState flags or clears parallel ringer/alarm output for the
// owning session.
func (a *ActiveDeviceState) UpdateDualToneState(enable bool, sessionID uint32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if enable {
		a.dualToneActive = true
		a.dualToneSession = sessionID
		return
	}
	if a.dualToneSession == sessionID || sessionID == 0 {
		a.dualToneActive = false
		a.dualToneSession = 0
	}
}

// DualToneState returns the dual-tone flag and the owning session.
func (a *ActiveDeviceState) DualToneState() (bool, uint32) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.dualToneActive, a.dualToneSession
}

// SetRingerMode records the platform ringer switch.
func (a *ActiveDeviceState) SetRingerMode(mode RingerMode) {
	a.mu.Lock()
	a.ringerMode = mode
	a.mu.Unlock()
}

// RingerMode returns the recorded ringer switch.
func (a *ActiveDeviceState) RingerMode() RingerMode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ringerMode
}

// Dump writes a human-readable view of the active-device state.
func (a *ActiveDeviceState) Dump(sb *strings.Builder) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out, in := "none", "none"
	if a.currentOutput != nil {
		out = a.currentOutput.DeviceType.String()
	}
	if a.currentInput != nil {
		in = a.currentInput.DeviceType.String()
	}
	fmt.Fprintf(sb, "active output: %s\nactive input: %s\n", out, in)
	fmt.Fprintf(sb, "dual tone: %v (session %d)\n", a.dualToneActive, a.dualToneSession)
	fmt.Fprintf(sb, "ringer mode: %d\n", a.ringerMode)
}
