package audio

// BluetoothAdapter is the abstract contract onto the platform Bluetooth
// stack. The core only drives active-device selection and module reloads;
// profile management lives outside.
type BluetoothAdapter interface {
	SetActiveA2dpDevice(mac string) error
	SetActiveHfpDevice(mac string) error
	GetA2dpDeviceStreamInfo(mac string) (AudioStreamInfo, error)
	UpdateAudioScene(scene AudioScene) error
	// IsA2dpOffloadSupported reports whether the controller decodes A2DP
	// in hardware, which changes flag eligibility.
	IsA2dpOffloadSupported() bool
}

// NoopBluetoothAdapter satisfies BluetoothAdapter when the platform has no
// Bluetooth stack. Every activation succeeds without effect.
type NoopBluetoothAdapter struct{}

func (NoopBluetoothAdapter) SetActiveA2dpDevice(string) error { return nil }
func (NoopBluetoothAdapter) SetActiveHfpDevice(string) error  { return nil }
func (NoopBluetoothAdapter) GetA2dpDeviceStreamInfo(string) (AudioStreamInfo, error) {
	return AudioStreamInfo{SamplingRate: 48000, Channels: 2, BitDepth: 16}, nil
}
func (NoopBluetoothAdapter) UpdateAudioScene(AudioScene) error { return nil }
func (NoopBluetoothAdapter) IsA2dpOffloadSupported() bool      { return false }
