package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActiveDeviceChangeDetection(t *testing.T) {
	speaker := newDefaultDevice(DeviceTypeSpeaker, DeviceRoleOutput)
	mic := newDefaultDevice(DeviceTypeMic, DeviceRoleInput)
	state := NewActiveDeviceState(speaker, mic)

	assert.False(t, state.SetCurrentOutputDevice(speaker.Clone()),
		"re-recording the same route is not a change")
	assert.True(t, state.SetCurrentOutputDevice(wiredHeadset()))

	out := state.CurrentOutputDevice()
	require.NotNil(t, out)
	assert.Equal(t, DeviceTypeWiredHeadset, out.DeviceType)

	assert.False(t, state.SetCurrentInputDevice(mic.Clone()))
	assert.True(t, state.SetCurrentInputDevice(scoDevice("00:11:22:33:44:55", DeviceRoleInput)))
}

func TestDualToneOwnership(t *testing.T) {
	state := NewActiveDeviceState(nil, nil)

	state.UpdateDualToneState(true, 42)
	dual, owner := state.DualToneState()
	assert.True(t, dual)
	assert.Equal(t, uint32(42), owner)

	// Only the owner (or a forced clear) may disengage.
	state.UpdateDualToneState(false, 7)
	dual, owner = state.DualToneState()
	assert.True(t, dual)
	assert.Equal(t, uint32(42), owner)

	state.UpdateDualToneState(false, 42)
	dual, _ = state.DualToneState()
	assert.False(t, dual)

	state.UpdateDualToneState(true, 42)
	state.UpdateDualToneState(false, 0)
	dual, _ = state.DualToneState()
	assert.False(t, dual, "session 0 is the forced clear")
}

func TestRingerModeRecord(t *testing.T) {
	state := NewActiveDeviceState(nil, nil)
	assert.Equal(t, RingerModeNormal, state.RingerMode())
	state.SetRingerMode(RingerModeVibrate)
	assert.Equal(t, RingerModeVibrate, state.RingerMode())
}
