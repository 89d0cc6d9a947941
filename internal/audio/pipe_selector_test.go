package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func speakerDesc() *AudioDeviceDescriptor {
	return newDefaultDevice(DeviceTypeSpeaker, DeviceRoleOutput)
}

func outputStream(sessionID uint32, flag AudioFlag, device *AudioDeviceDescriptor) *AudioStreamDescriptor {
	return &AudioStreamDescriptor{
		SessionID:      sessionID,
		RendererInfo:   &RendererInfo{Usage: UsageMusic, StreamType: StreamMusic},
		AudioFlag:      flag,
		NewDeviceDescs: []*AudioDeviceDescriptor{device},
	}
}

func TestSelectorGroupsByAdapterAndFlag(t *testing.T) {
	pipes := NewAudioPipeManager()
	selector := NewDefaultPipeSelector(pipes)

	usb := &AudioDeviceDescriptor{DeviceType: DeviceTypeUsbHeadset, DeviceRole: DeviceRoleOutput, NetworkID: LocalNetworkID}
	streams := []*AudioStreamDescriptor{
		outputStream(1, FlagNormal, speakerDesc()),
		outputStream(2, FlagNormal, speakerDesc()),
		outputStream(3, FlagLowPower, speakerDesc()),
		outputStream(4, FlagNormal, usb),
	}

	diff := selector.FetchPipesAndExecute(streams, PipeRoleOutput)
	require.Len(t, diff, 3)
	for _, pipe := range diff {
		assert.Equal(t, PipeActionNew, pipe.PipeAction)
	}
	assert.Equal(t, "primary", diff[0].AdapterName)
	assert.Equal(t, FlagNormal, diff[0].RouteFlag)
	assert.Len(t, diff[0].StreamDescriptors, 2, "compatible streams share one pipe")
	assert.Equal(t, FlagLowPower, diff[1].RouteFlag)
	assert.Equal(t, "usb", diff[2].AdapterName)
}

func TestSelectorReusesOpenPipe(t *testing.T) {
	pipes := NewAudioPipeManager()
	selector := NewDefaultPipeSelector(pipes)

	first := outputStream(1, FlagNormal, speakerDesc())
	diff := selector.FetchPipesAndExecute([]*AudioStreamDescriptor{first}, PipeRoleOutput)
	require.Len(t, diff, 1)
	diff[0].ID = 7
	pipes.AddPipe(diff[0])

	second := outputStream(2, FlagNormal, speakerDesc())
	diff = selector.FetchPipesAndExecute([]*AudioStreamDescriptor{first, second}, PipeRoleOutput)
	require.Len(t, diff, 1)
	assert.Equal(t, PipeActionUpdate, diff[0].PipeAction)
	assert.Equal(t, AudioIOHandle(7), diff[0].ID, "reuse keeps the open handle")
	assert.Len(t, diff[0].StreamDescriptors, 2)
}

func TestSelectorDetachesMovedStream(t *testing.T) {
	pipes := NewAudioPipeManager()
	selector := NewDefaultPipeSelector(pipes)

	stream := outputStream(1, FlagNormal, speakerDesc())
	diff := selector.FetchPipesAndExecute([]*AudioStreamDescriptor{stream}, PipeRoleOutput)
	require.Len(t, diff, 1)
	diff[0].ID = 7
	pipes.AddPipe(diff[0])

	// The stream's target moves to usb; the primary pipe must drain.
	stream.NewDeviceDescs = []*AudioDeviceDescriptor{{
		DeviceType: DeviceTypeUsbHeadset, DeviceRole: DeviceRoleOutput, NetworkID: LocalNetworkID,
	}}
	diff = selector.FetchPipesAndExecute([]*AudioStreamDescriptor{stream}, PipeRoleOutput)
	require.Len(t, diff, 1)
	assert.Equal(t, "usb", diff[0].AdapterName)

	primary := pipes.GetPipeByKey("primary", FlagNormal, PipeRoleOutput)
	require.NotNil(t, primary)
	assert.Empty(t, primary.StreamDescriptors)
	unused := pipes.GetUnusedPipes()
	require.Len(t, unused, 1)
	assert.Equal(t, "primary", unused[0].AdapterName)
}

func TestSelectorVoipVariantsShareOnePipe(t *testing.T) {
	pipes := NewAudioPipeManager()
	selector := NewDefaultPipeSelector(pipes)

	streams := []*AudioStreamDescriptor{
		outputStream(1, FlagVoip, speakerDesc()),
		outputStream(2, FlagVoipFast, speakerDesc()),
		outputStream(3, FlagVoipDirect, speakerDesc()),
	}
	diff := selector.FetchPipesAndExecute(streams, PipeRoleOutput)
	require.Len(t, diff, 1)
	assert.Equal(t, FlagVoip, diff[0].RouteFlag)
	assert.Len(t, diff[0].StreamDescriptors, 3)
}

func TestPipeManagerRolesDoNotCollide(t *testing.T) {
	pipes := NewAudioPipeManager()
	out := &AudioPipeInfo{ID: 1, AdapterName: "primary", RouteFlag: FlagNormal, PipeRole: PipeRoleOutput}
	in := &AudioPipeInfo{ID: 2, AdapterName: "primary", RouteFlag: FlagNormal, PipeRole: PipeRoleInput}
	pipes.AddPipe(out)
	pipes.AddPipe(in)

	assert.Same(t, out, pipes.GetPipeByKey("primary", FlagNormal, PipeRoleOutput))
	assert.Same(t, in, pipes.GetPipeByKey("primary", FlagNormal, PipeRoleInput))
}

func TestPipeManagerClientLifecycle(t *testing.T) {
	pipes := NewAudioPipeManager()
	stream := outputStream(10, FlagNormal, speakerDesc())
	stream.StreamStatus = StreamStatusNew
	pipe := &AudioPipeInfo{
		ID: 1, AdapterName: "primary", RouteFlag: FlagNormal, PipeRole: PipeRoleOutput,
		StreamDescriptors: []*AudioStreamDescriptor{stream},
	}
	pipes.AddPipe(pipe)

	pipes.StartClient(10)
	assert.Equal(t, StreamStatusStarted, stream.StreamStatus)
	pipes.PauseClient(10)
	assert.Equal(t, StreamStatusPaused, stream.StreamStatus)
	pipes.StopClient(10)
	assert.Equal(t, StreamStatusStopped, stream.StreamStatus)

	assert.Equal(t, "primary", pipes.GetAdapterNameBySessionID(10))
	assert.Same(t, stream, pipes.GetStreamDescByID(10))
	assert.Equal(t, 1, pipes.GetStreamCount("primary", FlagNormal))

	pipes.RemoveClient(10)
	assert.Nil(t, pipes.GetStreamDescByID(10))
	assert.Len(t, pipes.GetUnusedPipes(), 1)

	pipes.RemovePipe(pipe)
	assert.Nil(t, pipes.GetPipeByKey("primary", FlagNormal, PipeRoleOutput))
}
