package audio

// AudioFocusState is the arbitration state of one focus-list entry.
// It is always computed relative to the other entries in the same zone.
type AudioFocusState int

const (
	FocusActive AudioFocusState = iota
	FocusDuck
	FocusPause
	FocusStop
	FocusPlaceholder
)

func (s AudioFocusState) String() string {
	switch s {
	case FocusActive:
		return "active"
	case FocusDuck:
		return "duck"
	case FocusPause:
		return "pause"
	case FocusStop:
		return "stop"
	case FocusPlaceholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// InterruptHint tells the affected stream what the arbitration decided.
type InterruptHint int

const (
	HintNone InterruptHint = iota
	HintResume
	HintPause
	HintStop
	HintDuck
	HintUnduck
	HintMute
	HintUnmute
)

func (h InterruptHint) String() string {
	switch h {
	case HintResume:
		return "resume"
	case HintPause:
		return "pause"
	case HintStop:
		return "stop"
	case HintDuck:
		return "duck"
	case HintUnduck:
		return "unduck"
	case HintMute:
		return "mute"
	case HintUnmute:
		return "unmute"
	default:
		return "none"
	}
}

// InterruptForceType says whether the system already applied the hint or
// the app is expected to act on it.
type InterruptForceType int

const (
	InterruptForce InterruptForceType = iota
	InterruptShare
)

// ActionTarget selects which side of a focus-table entry is affected.
type ActionTarget int

const (
	ActionOnCurrent ActionTarget = iota
	ActionOnIncoming
	ActionOnBoth
)

// ConcurrencyMode is the audio-session strategy a process declared.
type ConcurrencyMode int

const (
	ConcurrencyDefault ConcurrencyMode = iota
	ConcurrencyMixWithOthers
	ConcurrencyDuckOthers
	ConcurrencyPauseOthers
	ConcurrencySilent
)

func (m ConcurrencyMode) String() string {
	switch m {
	case ConcurrencyMixWithOthers:
		return "mix-with-others"
	case ConcurrencyDuckOthers:
		return "duck-others"
	case ConcurrencyPauseOthers:
		return "pause-others"
	case ConcurrencySilent:
		return "silent"
	default:
		return "default"
	}
}

// SessionStrategy is the per-process audio session configuration.
type SessionStrategy struct {
	ConcurrencyMode ConcurrencyMode `json:"concurrency_mode"`
}

// AudioFocusType keys the focus configuration table. Exactly one of
// StreamType/SourceType is meaningful depending on IsPlay.
type AudioFocusType struct {
	StreamType AudioStreamType `json:"stream_type"`
	SourceType SourceType      `json:"source_type"`
	IsPlay     bool            `json:"is_play"`
}

// AudioInterrupt identifies one logical want-to-play-or-record request.
type AudioInterrupt struct {
	StreamID          uint32          `json:"stream_id"`
	PID               int32           `json:"pid"`
	UID               int32           `json:"uid"`
	SessionID         uint32          `json:"session_id"`
	AudioFocusType    AudioFocusType  `json:"audio_focus_type"`
	StreamUsage       StreamUsage     `json:"stream_usage"`
	SessionStrategy   SessionStrategy `json:"session_strategy"`
	ParallelPlayFlag  bool            `json:"parallel_play_flag"`
	DeviceTag         string          `json:"device_tag"`
	ConcurrentSources []SourceType    `json:"concurrent_sources,omitempty"`
	CurrentVolumeZero bool            `json:"current_volume_zero"`
	IsGameApp         bool            `json:"is_game_app"`
}

// Matches reports whether two interrupts identify the same request.
// Matching is by stream/session id, never by struct identity.
func (a *AudioInterrupt) Matches(other *AudioInterrupt) bool {
	return a.StreamID == other.StreamID && a.SessionID == other.SessionID
}

// AudioFocusEntry is the resolved effect of one interrupt on another,
// produced from the static focus table plus dynamic overrides.
type AudioFocusEntry struct {
	ActionOn        ActionTarget
	HintType        InterruptHint
	ForceType       InterruptForceType
	IsReject        bool
	ForceDuck       bool
	AllowConcurrent bool
}

// InterruptEvent is the one-shot notification delivered to a stream when
// arbitration changes its state.
type InterruptEvent struct {
	EventType  int                `json:"event_type"`
	ForceType  InterruptForceType `json:"force_type"`
	HintType   InterruptHint      `json:"hint_type"`
	DuckVolume float64            `json:"duck_volume,omitempty"`
	StreamID   uint32             `json:"stream_id"`
	Callback   bool               `json:"callback_to_app"`
}

// Interrupt event types.
const (
	InterruptTypeBegin = 1
	InterruptTypeEnd   = 2
)

// DuckFactor is the volume multiplier applied to ducked streams.
const DuckFactor = 0.2

// FocusEntryPair is one (interrupt, state) element of a zone's focus list.
type FocusEntryPair struct {
	Interrupt AudioInterrupt  `json:"interrupt"`
	State     AudioFocusState `json:"state"`
}
