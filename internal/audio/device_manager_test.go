package audio

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wiredHeadset() *AudioDeviceDescriptor {
	return &AudioDeviceDescriptor{
		DeviceType:   DeviceTypeWiredHeadset,
		DeviceRole:   DeviceRoleOutput,
		NetworkID:    LocalNetworkID,
		DeviceName:   "wired headset",
		ConnectState: ConnectStateConnected,
		Enabled:      true,
		StreamInfo:   AudioStreamInfo{SamplingRate: 48000, Channels: 2, BitDepth: 16},
	}
}

func a2dpDevice(mac string) *AudioDeviceDescriptor {
	return &AudioDeviceDescriptor{
		DeviceType:   DeviceTypeBluetoothA2dp,
		DeviceRole:   DeviceRoleOutput,
		NetworkID:    LocalNetworkID,
		MacAddress:   mac,
		DeviceName:   "bt headphones",
		ConnectState: ConnectStateConnected,
		Enabled:      true,
		Category:     CategoryHeadphone,
		StreamInfo:   AudioStreamInfo{SamplingRate: 44100, Channels: 2, BitDepth: 16},
	}
}

func scoDevice(mac string, role DeviceRole) *AudioDeviceDescriptor {
	return &AudioDeviceDescriptor{
		DeviceType:   DeviceTypeBluetoothSco,
		DeviceRole:   role,
		NetworkID:    LocalNetworkID,
		MacAddress:   mac,
		DeviceName:   "bt headset",
		ConnectState: ConnectStateDeactiveConnected,
		Enabled:      true,
		Category:     CategoryHeadphone,
	}
}

func TestAddNewDeviceIsIdempotent(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())

	require.NoError(t, m.AddNewDevice(wiredHeadset()))
	first := m.GetDevice(wiredHeadset())
	require.NotNil(t, first)

	refreshed := wiredHeadset()
	refreshed.DeviceName = "renamed headset"
	require.NoError(t, m.AddNewDevice(refreshed))

	assert.Len(t, m.GetConnectedDevices(), 1, "re-adding the same device must not duplicate it")
	second := m.GetDevice(wiredHeadset())
	require.NotNil(t, second)
	assert.Equal(t, first.DeviceID, second.DeviceID, "identity survives a refresh")
	assert.Equal(t, "renamed headset", second.DeviceName)
}

func TestRemoveDevice(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())

	require.NoError(t, m.AddNewDevice(wiredHeadset()))
	require.NoError(t, m.RemoveDevice(wiredHeadset()))
	assert.Empty(t, m.GetConnectedDevices())
	assert.ErrorIs(t, m.RemoveDevice(wiredHeadset()), ErrDeviceNotFound)
}

func TestScoConnectSuspendsPairedA2dp(t *testing.T) {
	const mac = "00:11:22:33:44:55"
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	require.NoError(t, m.AddNewDevice(a2dpDevice(mac)))
	require.NoError(t, m.AddNewDevice(scoDevice(mac, DeviceRoleOutput)))

	sco := scoDevice(mac, DeviceRoleOutput)
	sco.ConnectState = ConnectStateConnected
	require.NoError(t, m.UpdateDeviceInfo(sco, UpdateConnectState))

	a2dp := m.GetDeviceByTypeAndMac(DeviceTypeBluetoothA2dp, mac)
	require.NotNil(t, a2dp)
	assert.Equal(t, ConnectStateSuspendConnected, a2dp.ConnectState,
		"a2dp on the same mac must suspend while sco is live")

	sco.ConnectState = ConnectStateDeactiveConnected
	require.NoError(t, m.UpdateDeviceInfo(sco, UpdateConnectState))

	a2dp = m.GetDeviceByTypeAndMac(DeviceTypeBluetoothA2dp, mac)
	require.NotNil(t, a2dp)
	assert.Equal(t, ConnectStateConnected, a2dp.ConnectState,
		"a2dp must be restored when sco deactivates")
}

func TestScoSyncIgnoresOtherMacs(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	require.NoError(t, m.AddNewDevice(a2dpDevice("aa:aa:aa:aa:aa:aa")))
	require.NoError(t, m.AddNewDevice(scoDevice("bb:bb:bb:bb:bb:bb", DeviceRoleOutput)))

	sco := scoDevice("bb:bb:bb:bb:bb:bb", DeviceRoleOutput)
	sco.ConnectState = ConnectStateConnected
	require.NoError(t, m.UpdateDeviceInfo(sco, UpdateConnectState))

	a2dp := m.GetDeviceByTypeAndMac(DeviceTypeBluetoothA2dp, "aa:aa:aa:aa:aa:aa")
	require.NotNil(t, a2dp)
	assert.Equal(t, ConnectStateConnected, a2dp.ConnectState)
}

func TestSetDeviceExceptionFlag(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	require.NoError(t, m.AddNewDevice(wiredHeadset()))

	require.NoError(t, m.SetDeviceExceptionFlag(wiredHeadset(), true))
	d := m.GetDevice(wiredHeadset())
	require.NotNil(t, d)
	assert.True(t, d.ExceptionFlag)

	require.NoError(t, m.SetDeviceExceptionFlag(wiredHeadset(), false))
	d = m.GetDevice(wiredHeadset())
	require.NotNil(t, d)
	assert.False(t, d.ExceptionFlag)
}

func TestBucketClassification(t *testing.T) {
	tests := []struct {
		name      string
		device    *AudioDeviceDescriptor
		inBucket  func(*AudioDeviceManager) []*AudioDeviceDescriptor
		outBucket func(*AudioDeviceManager) []*AudioDeviceDescriptor
	}{
		{
			name:      "wired headset is a privacy media render device",
			device:    wiredHeadset(),
			inBucket:  (*AudioDeviceManager).GetMediaRenderPrivacyDevices,
			outBucket: (*AudioDeviceManager).GetMediaRenderPublicDevices,
		},
		{
			name:      "wired headset is a privacy comm render device",
			device:    wiredHeadset(),
			inBucket:  (*AudioDeviceManager).GetCommRenderPrivacyDevices,
			outBucket: (*AudioDeviceManager).GetCommRenderPublicDevices,
		},
		{
			name:      "a2dp renders media but not calls",
			device:    a2dpDevice("00:11:22:33:44:55"),
			inBucket:  (*AudioDeviceManager).GetMediaRenderPrivacyDevices,
			outBucket: (*AudioDeviceManager).GetCommRenderPrivacyDevices,
		},
		{
			name:      "sco input captures calls",
			device:    scoDevice("00:11:22:33:44:55", DeviceRoleInput),
			inBucket:  (*AudioDeviceManager).GetCommCapturePrivacyDevices,
			outBucket: (*AudioDeviceManager).GetMediaCapturePrivacyDevices,
		},
		{
			name: "remote device lands in the remote bucket",
			device: &AudioDeviceDescriptor{
				DeviceType:   DeviceTypeSpeaker,
				DeviceRole:   DeviceRoleOutput,
				NetworkID:    "remote-network-1",
				ConnectState: ConnectStateConnected,
				Enabled:      true,
			},
			inBucket:  (*AudioDeviceManager).GetRemoteRenderDevices,
			outBucket: (*AudioDeviceManager).GetMediaRenderPublicDevices,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewAudioDeviceManager(clockwork.NewRealClock())
			require.NoError(t, m.AddNewDevice(tt.device))

			contains := func(list []*AudioDeviceDescriptor) bool {
				for _, d := range list {
					if d.IsSameDeviceAs(tt.device) {
						return true
					}
				}
				return false
			}
			assert.True(t, contains(tt.inBucket(m)))
			assert.False(t, contains(tt.outBucket(m)))
		})
	}
}

func TestGetAvailableDevicesByUsageIncludesDefaults(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	require.NoError(t, m.AddNewDevice(wiredHeadset()))

	out := m.GetAvailableDevicesByUsage(MediaOutputDevices)
	types := make([]DeviceType, 0, len(out))
	for _, d := range out {
		types = append(types, d.DeviceType)
	}
	assert.Contains(t, types, DeviceTypeSpeaker, "the built-in speaker is always available")
	assert.Contains(t, types, DeviceTypeWiredHeadset)

	in := m.GetAvailableDevicesByUsage(CallInputDevices)
	require.NotEmpty(t, in)
	assert.Equal(t, DeviceTypeMic, in[0].DeviceType)
}

func TestDevicePairing(t *testing.T) {
	const mac = "00:11:22:33:44:55"
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	require.NoError(t, m.AddNewDevice(scoDevice(mac, DeviceRoleOutput)))
	require.NoError(t, m.AddNewDevice(scoDevice(mac, DeviceRoleInput)))

	output := m.GetDeviceByTypeAndMac(DeviceTypeBluetoothSco, mac)
	require.NotNil(t, output)
	// Both records share the mac, so either may come back first; resolve
	// from whichever role we got.
	paired := m.ResolvePairedDevice(output)
	require.NotNil(t, paired, "output and input legs of one headset must pair")
	assert.Equal(t, mac, paired.MacAddress)
	assert.NotEqual(t, output.DeviceRole, paired.DeviceRole)

	require.NoError(t, m.RemoveDevice(scoDevice(mac, DeviceRoleInput)))
	output = m.GetDeviceByTypeAndMac(DeviceTypeBluetoothSco, mac)
	require.NotNil(t, output)
	assert.Nil(t, m.ResolvePairedDevice(output), "pairing clears when the counterpart disconnects")
}

func TestRouterPrefersMostRecentEnabledDevice(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	router := NewPriorityRouter(m)

	old := wiredHeadset()
	old.ConnectTimeStamp = time.Now().Add(-time.Hour)
	require.NoError(t, m.AddNewDevice(old))

	recent := a2dpDevice("00:11:22:33:44:55")
	recent.ConnectTimeStamp = time.Now()
	require.NoError(t, m.AddNewDevice(recent))

	out := router.FetchOutputDevices(UsageMusic, -1)
	require.Len(t, out, 1)
	assert.Equal(t, DeviceTypeBluetoothA2dp, out[0].DeviceType)

	// An exception flag removes the device from routing entirely.
	require.NoError(t, m.SetDeviceExceptionFlag(recent, true))
	out = router.FetchOutputDevices(UsageMusic, -1)
	require.Len(t, out, 1)
	assert.Equal(t, DeviceTypeWiredHeadset, out[0].DeviceType)

	// A disabled device is skipped the same way.
	update := wiredHeadset()
	update.Enabled = false
	require.NoError(t, m.UpdateDeviceInfo(update, UpdateEnable))
	out = router.FetchOutputDevices(UsageMusic, -1)
	require.Len(t, out, 1)
	assert.Equal(t, DeviceTypeSpeaker, out[0].DeviceType, "routing falls back to the speaker")
}

func TestConnectTimestampsFollowInjectedClock(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewAudioDeviceManager(clock)
	router := NewPriorityRouter(m)

	require.NoError(t, m.AddNewDevice(wiredHeadset()))
	clock.Advance(time.Hour)
	require.NoError(t, m.AddNewDevice(a2dpDevice("00:11:22:33:44:55")))

	wired := m.GetDevice(wiredHeadset())
	require.NotNil(t, wired)
	bt := m.GetDevice(a2dpDevice("00:11:22:33:44:55"))
	require.NotNil(t, bt)
	assert.Equal(t, time.Hour, bt.ConnectTimeStamp.Sub(wired.ConnectTimeStamp))

	out := router.FetchOutputDevices(UsageMusic, -1)
	require.Len(t, out, 1)
	assert.Equal(t, DeviceTypeBluetoothA2dp, out[0].DeviceType, "recency follows the clock, not wall time")
}

func TestRouterDualDeviceForRingAndAlarm(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	router := NewPriorityRouter(m)
	require.NoError(t, m.AddNewDevice(wiredHeadset()))

	out := router.FetchOutputDevices(UsageRingtone, -1)
	require.Len(t, out, 2, "ringtone renders on speaker and headset in parallel")
	assert.Equal(t, DeviceTypeSpeaker, out[0].DeviceType)
	assert.Equal(t, DeviceTypeWiredHeadset, out[1].DeviceType)

	out = router.FetchOutputDevices(UsageAlarm, -1)
	require.Len(t, out, 2)

	// With only the speaker there is nothing to double up.
	require.NoError(t, m.RemoveDevice(wiredHeadset()))
	out = router.FetchOutputDevices(UsageRingtone, -1)
	require.Len(t, out, 1)
	assert.Equal(t, DeviceTypeSpeaker, out[0].DeviceType)
}

func TestRouterInputFallsBackToMic(t *testing.T) {
	m := NewAudioDeviceManager(clockwork.NewRealClock())
	router := NewPriorityRouter(m)

	d := router.FetchInputDevice(SourceMic, -1, 0)
	require.NotNil(t, d)
	assert.Equal(t, DeviceTypeMic, d.DeviceType)

	sco := scoDevice("00:11:22:33:44:55", DeviceRoleInput)
	sco.ConnectState = ConnectStateConnected
	require.NoError(t, m.AddNewDevice(sco))
	d = router.FetchInputDevice(SourceVoiceCommunication, -1, 0)
	require.NotNil(t, d)
	assert.Equal(t, DeviceTypeBluetoothSco, d.DeviceType)
}
