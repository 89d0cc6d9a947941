package audio

import "time"

// DevicePairKey identifies a descriptor's paired counterpart. Pairing is a
// lookup key resolved against the registry, never an owning reference.
type DevicePairKey struct {
	NetworkID  string `json:"network_id"`
	MacAddress string `json:"mac_address"`
}

// IsZero reports whether no pairing is recorded.
func (k DevicePairKey) IsZero() bool {
	return k.NetworkID == "" && k.MacAddress == ""
}

// AudioDeviceDescriptor is one connected (or built-in) audio device.
// The registry is the sole owner; everything else holds snapshots.
type AudioDeviceDescriptor struct {
	DeviceID         uint32          `json:"device_id"`
	DeviceType       DeviceType      `json:"device_type"`
	DeviceRole       DeviceRole      `json:"device_role"`
	NetworkID        string          `json:"network_id"`
	MacAddress       string          `json:"mac_address"`
	DeviceName       string          `json:"device_name"`
	ConnectState     ConnectState    `json:"connect_state"`
	Enabled          bool            `json:"enabled"`
	ExceptionFlag    bool            `json:"exception_flag"`
	Category         DeviceCategory  `json:"category"`
	ConnectTimeStamp time.Time       `json:"connect_time_stamp"`
	StreamInfo       AudioStreamInfo `json:"stream_info"`
	PairKey          DevicePairKey   `json:"pair_key"`
}

// IsSameDeviceAs matches on the connection identity used for idempotent
// add/remove: type, network, role, and mac for Bluetooth devices.
func (d *AudioDeviceDescriptor) IsSameDeviceAs(other *AudioDeviceDescriptor) bool {
	if d.DeviceType != other.DeviceType || d.NetworkID != other.NetworkID || d.DeviceRole != other.DeviceRole {
		return false
	}
	if d.DeviceType.IsBluetooth() {
		return d.MacAddress == other.MacAddress
	}
	return true
}

// IsSameRouteAs matches the fields the idempotence guard compares when
// deciding whether a fetched device equals the current one.
func (d *AudioDeviceDescriptor) IsSameRouteAs(other *AudioDeviceDescriptor) bool {
	if other == nil {
		return false
	}
	return d.DeviceType == other.DeviceType &&
		d.NetworkID == other.NetworkID &&
		d.MacAddress == other.MacAddress &&
		d.ConnectState == other.ConnectState
}

// IsLocal reports whether the device is attached to this node.
func (d *AudioDeviceDescriptor) IsLocal() bool {
	return d.NetworkID == "" || d.NetworkID == LocalNetworkID
}

// IsRemote reports whether the device lives on another node.
func (d *AudioDeviceDescriptor) IsRemote() bool {
	return !d.IsLocal()
}

// Clone returns an independent copy. A nil receiver clones to nil.
func (d *AudioDeviceDescriptor) Clone() *AudioDeviceDescriptor {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func newDefaultDevice(deviceType DeviceType, role DeviceRole) *AudioDeviceDescriptor {
	return &AudioDeviceDescriptor{
		DeviceType:   deviceType,
		DeviceRole:   role,
		NetworkID:    LocalNetworkID,
		ConnectState: ConnectStateConnected,
		Enabled:      true,
		StreamInfo:   AudioStreamInfo{SamplingRate: 48000, Channels: 2, BitDepth: 16},
	}
}
