package audio

import (
	"sync/atomic"
	"time"
)

// AudioPolicyConstants centralizes the tunable values used across the
// policy core. Values are read frequently and updated rarely, so the
// struct is swapped atomically as a whole.
type AudioPolicyConstants struct {
	// SessionTimeout is the grace period an audio session survives with
	// only a placeholder interrupt before it is forcibly deactivated.
	SessionTimeout time.Duration

	// OffloadPipeReleaseDelay bounds the deferred close of an empty
	// low-power pipe. The close is aborted if a stream rebinds first.
	OffloadPipeReleaseDelay time.Duration

	// Muting windows for live device switches, keyed by switch reason.
	MuteWindowOverride      time.Duration
	MuteWindowNewDevice     time.Duration
	MuteWindowOldDeviceGone time.Duration
	MuteWindowOldDeviceExt  time.Duration
	MuteWindowDistributed   time.Duration
	MuteWindowRemoteCast    time.Duration
	MuteWindowOffloadExtra  time.Duration

	// DualToneSettleDelay lets the primary buffer drain before unmuting
	// the second device of a dual ringer/alarm route.
	DualToneSettleDelay time.Duration

	// VoiceVolumeZeroDelay is the settle time after zeroing HAL voice
	// volume on the modem path, which bypasses normal sink mixing.
	VoiceVolumeZeroDelay time.Duration

	// Flag-decision thresholds for the special-stream resolution.
	DirectPlaybackMinRate  int
	DirectPlaybackMaxRate  int
	DirectPlaybackMinDepth int

	// MaxConcurrentStreams bounds focus list growth per zone.
	MaxConcurrentStreams int
}

func defaultPolicyConstants() *AudioPolicyConstants {
	return &AudioPolicyConstants{
		SessionTimeout:          10 * time.Second,
		OffloadPipeReleaseDelay: 10 * time.Second,
		MuteWindowOverride:      200 * time.Millisecond,
		MuteWindowNewDevice:     300 * time.Millisecond,
		MuteWindowOldDeviceGone: 120 * time.Millisecond,
		MuteWindowOldDeviceExt:  500 * time.Millisecond,
		MuteWindowDistributed:   400 * time.Millisecond,
		MuteWindowRemoteCast:    300 * time.Millisecond,
		MuteWindowOffloadExtra:  500 * time.Millisecond,
		DualToneSettleDelay:     100 * time.Millisecond,
		VoiceVolumeZeroDelay:    120 * time.Millisecond,
		DirectPlaybackMinRate:   48000,
		DirectPlaybackMaxRate:   192000,
		DirectPlaybackMinDepth:  24,
		MaxConcurrentStreams:    128,
	}
}

var policyConfig atomic.Pointer[AudioPolicyConstants]

func init() {
	policyConfig.Store(defaultPolicyConstants())
}

// GetConfig returns the current policy constants.
func GetConfig() *AudioPolicyConstants {
	return policyConfig.Load()
}

// UpdateConfig replaces the policy constants.
func UpdateConfig(c *AudioPolicyConstants) {
	if c != nil {
		policyConfig.Store(c)
	}
}
