package audio

// AudioIOHandle is an opaque HAL port handle.
type AudioIOHandle int32

// InvalidIOHandle is returned by failed opens and used for unopened pipes.
const InvalidIOHandle AudioIOHandle = -1

// AudioModuleInfo describes the port a pipe wants opened.
type AudioModuleInfo struct {
	AdapterName    string          `json:"adapter_name"`
	ModuleName     string          `json:"module_name"`
	DeviceType     DeviceType      `json:"device_type"`
	NetworkID      string          `json:"network_id"`
	Role           PipeRole        `json:"role"`
	Flag           AudioFlag       `json:"flag"`
	StreamInfo     AudioStreamInfo `json:"stream_info"`
	OffloadCapable bool            `json:"offload_capable"`
}

// HalPortController is the abstract contract onto the hardware adaptation
// layer. Implementations for each hardware class (primary, USB, Bluetooth,
// remote) live outside the core. Every call is synchronous on the caller's
// thread and assumed to complete in bounded time.
type HalPortController interface {
	LoadAdapter(adapterName string) error
	UnloadAdapter(adapterName string) error

	OpenAudioPort(info AudioModuleInfo) (handle AudioIOHandle, paIndex uint32, err error)
	CloseAudioPort(handle AudioIOHandle, paIndex uint32) error

	CreateRender(handle AudioIOHandle, sessionID uint32) error
	CreateCapture(handle AudioIOHandle, sessionID uint32) error

	SetSinkMute(sinkName string, mute bool) error
	SetSinkVolume(sinkName string, volume float64) error
	SetVoiceVolume(volume float64) error
	SelectScene(scene AudioScene) error

	MoveStreamSink(sessionID uint32, sinkName string) error
	MoveStreamSource(sessionID uint32, sourceName string) error

	UpdateAudioRoute(deviceTypes []DeviceType, role DeviceRole) error
}

// Well-known sink names used by the muting choreography.
const (
	PrimarySinkName  = "primary"
	OffloadSinkName  = "offload"
	UsbSinkName      = "usb"
	A2dpSinkName     = "a2dp"
	DualToneSinkName = "dual_tone"
)

// SinkNameForDevice maps a device assignment to the HAL sink it mixes on.
func SinkNameForDevice(d *AudioDeviceDescriptor, flag AudioFlag) string {
	if d == nil {
		return PrimarySinkName
	}
	if flag == FlagLowPower {
		return OffloadSinkName
	}
	switch d.DeviceType {
	case DeviceTypeBluetoothA2dp:
		return A2dpSinkName
	case DeviceTypeUsbHeadset, DeviceTypeUsbArmHeadset:
		return UsbSinkName
	default:
		return PrimarySinkName
	}
}

// AdapterNameForDevice maps a device to the HAL adapter hosting its ports.
func AdapterNameForDevice(d *AudioDeviceDescriptor) string {
	if d == nil {
		return "primary"
	}
	if d.IsRemote() {
		return "remote"
	}
	switch d.DeviceType {
	case DeviceTypeBluetoothA2dp:
		return "a2dp"
	case DeviceTypeUsbHeadset, DeviceTypeUsbArmHeadset:
		return "usb"
	case DeviceTypeRemoteCast:
		return "remote_cast"
	default:
		return "primary"
	}
}

// NoopHalPortController satisfies HalPortController without hardware.
// Useful for development hosts and tests; handles are allocated
// sequentially so pipe bookkeeping still behaves.
type NoopHalPortController struct {
	nextHandle AudioIOHandle
}

func (h *NoopHalPortController) LoadAdapter(string) error   { return nil }
func (h *NoopHalPortController) UnloadAdapter(string) error { return nil }

func (h *NoopHalPortController) OpenAudioPort(AudioModuleInfo) (AudioIOHandle, uint32, error) {
	h.nextHandle++
	return h.nextHandle, uint32(h.nextHandle), nil
}

func (h *NoopHalPortController) CloseAudioPort(AudioIOHandle, uint32) error { return nil }

func (h *NoopHalPortController) CreateRender(AudioIOHandle, uint32) error  { return nil }
func (h *NoopHalPortController) CreateCapture(AudioIOHandle, uint32) error { return nil }

func (h *NoopHalPortController) SetSinkMute(string, bool) error      { return nil }
func (h *NoopHalPortController) SetSinkVolume(string, float64) error { return nil }
func (h *NoopHalPortController) SetVoiceVolume(float64) error        { return nil }
func (h *NoopHalPortController) SelectScene(AudioScene) error        { return nil }

func (h *NoopHalPortController) MoveStreamSink(uint32, string) error   { return nil }
func (h *NoopHalPortController) MoveStreamSource(uint32, string) error { return nil }

func (h *NoopHalPortController) UpdateAudioRoute([]DeviceType, DeviceRole) error { return nil }
