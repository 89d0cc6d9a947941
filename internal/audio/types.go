package audio

// DeviceType identifies the physical or virtual class of an audio device.
type DeviceType int

const (
	DeviceTypeNone DeviceType = iota
	DeviceTypeInvalid
	DeviceTypeEarpiece
	DeviceTypeSpeaker
	DeviceTypeWiredHeadset
	DeviceTypeWiredHeadphones
	DeviceTypeBluetoothSco
	DeviceTypeBluetoothA2dp
	DeviceTypeMic
	DeviceTypeWakeup
	DeviceTypeUsbHeadset
	DeviceTypeUsbArmHeadset
	DeviceTypeDP
	DeviceTypeRemoteCast
	DeviceTypeFileSink
	DeviceTypeFileSource
	DeviceTypeDefault
)

func (t DeviceType) String() string {
	switch t {
	case DeviceTypeEarpiece:
		return "earpiece"
	case DeviceTypeSpeaker:
		return "speaker"
	case DeviceTypeWiredHeadset:
		return "wired-headset"
	case DeviceTypeWiredHeadphones:
		return "wired-headphones"
	case DeviceTypeBluetoothSco:
		return "bluetooth-sco"
	case DeviceTypeBluetoothA2dp:
		return "bluetooth-a2dp"
	case DeviceTypeMic:
		return "mic"
	case DeviceTypeWakeup:
		return "wakeup"
	case DeviceTypeUsbHeadset:
		return "usb-headset"
	case DeviceTypeUsbArmHeadset:
		return "usb-arm-headset"
	case DeviceTypeDP:
		return "dp"
	case DeviceTypeRemoteCast:
		return "remote-cast"
	case DeviceTypeDefault:
		return "default"
	default:
		return "none"
	}
}

// IsBluetooth reports whether the device uses a Bluetooth profile.
func (t DeviceType) IsBluetooth() bool {
	return t == DeviceTypeBluetoothSco || t == DeviceTypeBluetoothA2dp
}

// DeviceRole distinguishes render and capture endpoints.
type DeviceRole int

const (
	DeviceRoleNone DeviceRole = iota
	DeviceRoleInput
	DeviceRoleOutput
)

func (r DeviceRole) String() string {
	switch r {
	case DeviceRoleInput:
		return "input"
	case DeviceRoleOutput:
		return "output"
	default:
		return "none"
	}
}

// ConnectState tracks a device's connection lifecycle, including the
// suspended state a paired A2DP profile enters while SCO is active.
type ConnectState int

const (
	ConnectStateConnected ConnectState = iota
	ConnectStateSuspendConnected
	ConnectStateDeactiveConnected
	ConnectStateDisconnected
)

func (s ConnectState) String() string {
	switch s {
	case ConnectStateConnected:
		return "connected"
	case ConnectStateSuspendConnected:
		return "suspend-connected"
	case ConnectStateDeactiveConnected:
		return "deactive-connected"
	default:
		return "disconnected"
	}
}

// DeviceCategory is the user-facing bucket a Bluetooth device reports.
type DeviceCategory int

const (
	CategoryDefault DeviceCategory = iota
	CategoryHeadphone
	CategoryGlasses
	CategorySoundbox
	CategoryCar
	CategoryHearingAid
	CategoryWatch
)

// DeviceUsage is a bitmask selecting media and/or voice capable devices.
type DeviceUsage uint32

const (
	MediaOutputDevices DeviceUsage = 1 << iota
	MediaInputDevices
	CallOutputDevices
	CallInputDevices
	AllMediaDevices = MediaOutputDevices | MediaInputDevices
	AllCallDevices  = CallOutputDevices | CallInputDevices
)

// AudioStreamType is the playback stream class used for focus arbitration.
type AudioStreamType int

const (
	StreamDefault AudioStreamType = iota
	StreamMusic
	StreamRing
	StreamAlarm
	StreamVoiceCall
	StreamVoiceCommunication
	StreamVoiceAssistant
	StreamSystem
	StreamNotification
	StreamMovie
	StreamGame
	StreamSpeech
	StreamNavigation
	StreamAccessibility
	StreamUltrasonic
	StreamInternalForceStop
)

func (t AudioStreamType) String() string {
	switch t {
	case StreamMusic:
		return "music"
	case StreamRing:
		return "ring"
	case StreamAlarm:
		return "alarm"
	case StreamVoiceCall:
		return "voice-call"
	case StreamVoiceCommunication:
		return "voice-communication"
	case StreamVoiceAssistant:
		return "voice-assistant"
	case StreamSystem:
		return "system"
	case StreamNotification:
		return "notification"
	case StreamMovie:
		return "movie"
	case StreamGame:
		return "game"
	case StreamSpeech:
		return "speech"
	case StreamNavigation:
		return "navigation"
	case StreamAccessibility:
		return "accessibility"
	case StreamUltrasonic:
		return "ultrasonic"
	default:
		return "default"
	}
}

// SourceType is the capture source class used for focus arbitration.
type SourceType int

const (
	SourceInvalid SourceType = iota - 1
	SourceMic
	SourceVoiceRecognition
	SourcePlaybackCapture
	SourceWakeup
	SourceVoiceCall
	SourceVoiceCommunication
	SourceUltrasonic
	SourceVoiceMessage
	SourceCamcorder
	SourceUnprocessed
	SourceLiveStream
)

func (s SourceType) String() string {
	switch s {
	case SourceMic:
		return "mic"
	case SourceVoiceRecognition:
		return "voice-recognition"
	case SourcePlaybackCapture:
		return "playback-capture"
	case SourceWakeup:
		return "wakeup"
	case SourceVoiceCall:
		return "voice-call"
	case SourceVoiceCommunication:
		return "voice-communication"
	case SourceUltrasonic:
		return "ultrasonic"
	case SourceVoiceMessage:
		return "voice-message"
	case SourceCamcorder:
		return "camcorder"
	case SourceUnprocessed:
		return "unprocessed"
	case SourceLiveStream:
		return "live-stream"
	default:
		return "invalid"
	}
}

// StreamUsage is the renderer-declared purpose used by the device router.
type StreamUsage int

const (
	UsageUnknown StreamUsage = iota
	UsageMedia
	UsageMusic
	UsageVoiceCommunication
	UsageVoiceAssistant
	UsageAlarm
	UsageVoiceMessage
	UsageRingtone
	UsageNotification
	UsageAccessibility
	UsageSystem
	UsageMovie
	UsageGame
	UsageAudiobook
	UsageNavigation
	UsageVideoCommunication
	UsageVoiceModemCommunication
	UsageVoiceRingtone
)

// IsRingOrAlarm reports whether the usage allows dual-device rendering.
func (u StreamUsage) IsRingOrAlarm() bool {
	switch u {
	case UsageRingtone, UsageVoiceRingtone, UsageAlarm:
		return true
	default:
		return false
	}
}

// AudioScene is the system-wide audio mode derived from the focus list.
type AudioScene int

const (
	SceneInvalid AudioScene = iota - 1
	SceneDefault
	SceneRinging
	ScenePhoneCall
	ScenePhoneChat
	SceneVoiceRinging
)

func (s AudioScene) String() string {
	switch s {
	case SceneDefault:
		return "default"
	case SceneRinging:
		return "ringing"
	case ScenePhoneCall:
		return "phone-call"
	case ScenePhoneChat:
		return "phone-chat"
	case SceneVoiceRinging:
		return "voice-ringing"
	default:
		return "invalid"
	}
}

// AudioFlag is the transport class assigned to a stream. It determines
// which pipe the stream can share.
type AudioFlag uint32

const (
	FlagNone         AudioFlag = 0
	FlagNormal       AudioFlag = 1 << 0
	FlagMmap         AudioFlag = 1 << 1
	FlagVoip         AudioFlag = 1 << 2
	FlagVoipFast     AudioFlag = 1 << 3
	FlagVoipDirect   AudioFlag = 1 << 4
	FlagDirect       AudioFlag = 1 << 5
	FlagLowPower     AudioFlag = 1 << 6
	FlagMultichannel AudioFlag = 1 << 7
	FlagForcedNormal AudioFlag = 1 << 8
)

func (f AudioFlag) String() string {
	switch f {
	case FlagMmap:
		return "fast"
	case FlagVoip:
		return "voip"
	case FlagVoipFast:
		return "voip-fast"
	case FlagVoipDirect:
		return "voip-direct"
	case FlagDirect:
		return "direct"
	case FlagLowPower:
		return "lowpower"
	case FlagMultichannel:
		return "multichannel"
	case FlagForcedNormal:
		return "forced-normal"
	default:
		return "normal"
	}
}

// StreamStatus is the lifecycle state of a stream descriptor.
type StreamStatus int

const (
	StreamStatusNew StreamStatus = iota
	StreamStatusStarted
	StreamStatusPaused
	StreamStatusStopped
	StreamStatusReleased
)

func (s StreamStatus) String() string {
	switch s {
	case StreamStatusStarted:
		return "started"
	case StreamStatusPaused:
		return "paused"
	case StreamStatusStopped:
		return "stopped"
	case StreamStatusReleased:
		return "released"
	default:
		return "new"
	}
}

// StreamAction is what a reconciliation pass decided to do with a stream.
type StreamAction int

const (
	StreamActionDefault StreamAction = iota
	StreamActionNew
	StreamActionMove
	StreamActionRecreate
)

func (a StreamAction) String() string {
	switch a {
	case StreamActionNew:
		return "new"
	case StreamActionMove:
		return "move"
	case StreamActionRecreate:
		return "recreate"
	default:
		return "default"
	}
}

// PipeAction is what a reconciliation pass decided to do with a pipe.
type PipeAction int

const (
	PipeActionDefault PipeAction = iota
	PipeActionNew
	PipeActionUpdate
)

func (a PipeAction) String() string {
	switch a {
	case PipeActionNew:
		return "new"
	case PipeActionUpdate:
		return "update"
	default:
		return "default"
	}
}

// PipeRole distinguishes render and capture pipes.
type PipeRole int

const (
	PipeRoleOutput PipeRole = iota
	PipeRoleInput
)

func (r PipeRole) String() string {
	if r == PipeRoleInput {
		return "input"
	}
	return "output"
}

// SwitchReason explains why a started stream is being moved to a new
// device; it selects the muting window for the move.
type SwitchReason int

const (
	SwitchReasonUnknown SwitchReason = iota
	SwitchReasonNewDeviceAvailable
	SwitchReasonOldDeviceUnavailable
	SwitchReasonOldDeviceUnavailableExt
	SwitchReasonOverride
	SwitchReasonDistributedDevice
	SwitchReasonRemoteCastToLocal
	SwitchReasonSessionRecover
)

func (r SwitchReason) String() string {
	switch r {
	case SwitchReasonNewDeviceAvailable:
		return "new-device-available"
	case SwitchReasonOldDeviceUnavailable:
		return "old-device-unavailable"
	case SwitchReasonOldDeviceUnavailableExt:
		return "old-device-unavailable-ext"
	case SwitchReasonOverride:
		return "override"
	case SwitchReasonDistributedDevice:
		return "distributed-device"
	case SwitchReasonRemoteCastToLocal:
		return "remote-cast-to-local"
	case SwitchReasonSessionRecover:
		return "session-recover"
	default:
		return "unknown"
	}
}

// RingerMode mirrors the platform ringer switch; it gates dual-tone output.
type RingerMode int

const (
	RingerModeNormal RingerMode = iota
	RingerModeSilent
	RingerModeVibrate
)

// AudioStreamInfo carries the sample format a device or stream operates at.
type AudioStreamInfo struct {
	SamplingRate int `json:"sampling_rate"`
	Channels     int `json:"channels"`
	BitDepth     int `json:"bit_depth"`
	Encoding     int `json:"encoding"`
}

// LocalNetworkID marks locally attached devices in descriptor network ids.
const LocalNetworkID = "LocalDevice"
