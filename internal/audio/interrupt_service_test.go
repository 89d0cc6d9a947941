package audio

import (
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInterruptFixture(t *testing.T, clock clockwork.Clock, sessionTimeout time.Duration) (*AudioInterruptService, *AudioEventDispatcher) {
	t.Helper()
	dispatcher := NewAudioEventDispatcher()
	t.Cleanup(dispatcher.Close)
	sessions := NewAudioSessionService(clock, sessionTimeout)
	return NewAudioInterruptService(DefaultFocusTable(), sessions, dispatcher), dispatcher
}

func playInterrupt(streamID uint32, pid int32, streamType AudioStreamType, usage StreamUsage) *AudioInterrupt {
	return &AudioInterrupt{
		StreamID:       streamID,
		PID:            pid,
		UID:            pid,
		SessionID:      streamID,
		AudioFocusType: AudioFocusType{StreamType: streamType, SourceType: SourceInvalid, IsPlay: true},
		StreamUsage:    usage,
	}
}

func captureInterrupt(streamID uint32, pid int32, source SourceType) *AudioInterrupt {
	return &AudioInterrupt{
		StreamID:       streamID,
		PID:            pid,
		UID:            pid,
		SessionID:      streamID,
		AudioFocusType: AudioFocusType{StreamType: StreamDefault, SourceType: source, IsPlay: false},
	}
}

func focusStateOf(t *testing.T, svc *AudioInterruptService, streamID uint32) AudioFocusState {
	t.Helper()
	list, err := svc.GetAudioFocusInfoList(DefaultZoneID)
	require.NoError(t, err)
	for _, e := range list {
		if e.Interrupt.StreamID == streamID {
			return e.State
		}
	}
	t.Fatalf("stream %d not in focus list", streamID)
	return FocusActive
}

// recordingInterruptCallback captures every interrupt event a stream
// receives. Delivery runs on the dispatcher goroutine, so readers poll.
type recordingInterruptCallback struct {
	mu     sync.Mutex
	events []InterruptEvent
}

func (c *recordingInterruptCallback) OnInterrupt(event InterruptEvent) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *recordingInterruptCallback) hasHint(hint InterruptHint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.events {
		if e.HintType == hint {
			return true
		}
	}
	return false
}

func TestActivateAudioInterruptTablePolicies(t *testing.T) {
	tests := []struct {
		name              string
		existing          *AudioInterrupt
		incoming          *AudioInterrupt
		wantExistingState AudioFocusState
		wantIncomingState AudioFocusState
	}{
		{
			name:              "voice call pauses music",
			existing:          playInterrupt(1, 100, StreamMusic, UsageMusic),
			incoming:          playInterrupt(2, 200, StreamVoiceCall, UsageVoiceCommunication),
			wantExistingState: FocusPause,
			wantIncomingState: FocusActive,
		},
		{
			name:              "ring ducks music",
			existing:          playInterrupt(1, 100, StreamMusic, UsageMusic),
			incoming:          playInterrupt(2, 200, StreamRing, UsageRingtone),
			wantExistingState: FocusDuck,
			wantIncomingState: FocusActive,
		},
		{
			name:              "alarm ducks music",
			existing:          playInterrupt(1, 100, StreamMusic, UsageMusic),
			incoming:          playInterrupt(2, 200, StreamAlarm, UsageAlarm),
			wantExistingState: FocusDuck,
			wantIncomingState: FocusActive,
		},
		{
			name:              "music arriving during call starts ducked",
			existing:          playInterrupt(1, 100, StreamVoiceCall, UsageVoiceCommunication),
			incoming:          playInterrupt(2, 200, StreamMusic, UsageMusic),
			wantExistingState: FocusActive,
			wantIncomingState: FocusDuck,
		},
		{
			name:              "second media stream stops the first",
			existing:          playInterrupt(1, 100, StreamMusic, UsageMusic),
			incoming:          playInterrupt(2, 200, StreamMovie, UsageMovie),
			wantExistingState: FocusStop,
			wantIncomingState: FocusActive,
		},
		{
			name:              "voice assistant pauses media",
			existing:          playInterrupt(1, 100, StreamNavigation, UsageNavigation),
			incoming:          playInterrupt(2, 200, StreamVoiceAssistant, UsageVoiceAssistant),
			wantExistingState: FocusPause,
			wantIncomingState: FocusActive,
		},
		{
			name:              "unrelated streams coexist",
			existing:          playInterrupt(1, 100, StreamUltrasonic, UsageSystem),
			incoming:          playInterrupt(2, 200, StreamMusic, UsageMusic),
			wantExistingState: FocusActive,
			wantIncomingState: FocusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

			require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, tt.existing, false))
			require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, tt.incoming, false))

			assert.Equal(t, tt.wantExistingState, focusStateOf(t, svc, tt.existing.StreamID))
			assert.Equal(t, tt.wantIncomingState, focusStateOf(t, svc, tt.incoming.StreamID))
		})
	}
}

func TestActivateAudioInterruptRejectLeavesZoneUntouched(t *testing.T) {
	tests := []struct {
		name     string
		incoming *AudioInterrupt
	}{
		{"second voice call", playInterrupt(9, 900, StreamVoiceCall, UsageVoiceCommunication)},
		{"ring during call", playInterrupt(9, 900, StreamRing, UsageRingtone)},
		{"notification during call", playInterrupt(9, 900, StreamNotification, UsageNotification)},
		{"capture during call playback", captureInterrupt(9, 900, SourceMic)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

			require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(1, 100, StreamMusic, UsageMusic), false))
			require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamVoiceCall, UsageVoiceCommunication), false))

			before, err := svc.GetAudioFocusInfoList(DefaultZoneID)
			require.NoError(t, err)

			err = svc.ActivateAudioInterrupt(DefaultZoneID, tt.incoming, false)
			assert.ErrorIs(t, err, ErrFocusDenied)

			after, err := svc.GetAudioFocusInfoList(DefaultZoneID)
			require.NoError(t, err)
			assert.Equal(t, before, after, "a rejected activation must not change the focus list")
		})
	}
}

func TestCaptureConcurrency(t *testing.T) {
	tests := []struct {
		name     string
		existing *AudioInterrupt
		incoming *AudioInterrupt
		wantErr  error
	}{
		{
			name:     "two mic captures contend",
			existing: captureInterrupt(1, 100, SourceMic),
			incoming: captureInterrupt(2, 200, SourceMic),
			wantErr:  ErrFocusDenied,
		},
		{
			name:     "wakeup capture never contends",
			existing: captureInterrupt(1, 100, SourceMic),
			incoming: captureInterrupt(2, 200, SourceWakeup),
		},
		{
			name: "whitelisted source pair coexists",
			existing: func() *AudioInterrupt {
				i := captureInterrupt(1, 100, SourceMic)
				i.ConcurrentSources = []SourceType{SourceVoiceRecognition}
				return i
			}(),
			incoming: captureInterrupt(2, 200, SourceVoiceRecognition),
		},
		{
			name:     "mic denied while call capture holds focus",
			existing: captureInterrupt(1, 100, SourceVoiceCall),
			incoming: captureInterrupt(2, 200, SourceMic),
			wantErr:  ErrFocusDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

			require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, tt.existing, false))
			err := svc.ActivateAudioInterrupt(DefaultZoneID, tt.incoming, false)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, FocusActive, focusStateOf(t, svc, tt.existing.StreamID))
			assert.Equal(t, FocusActive, focusStateOf(t, svc, tt.incoming.StreamID))
		})
	}
}

func TestCallCapturePreemptsOrdinaryCapture(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, captureInterrupt(1, 100, SourceMic), false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, captureInterrupt(2, 200, SourceVoiceCall), false))

	assert.Equal(t, FocusStop, focusStateOf(t, svc, 1))
	assert.Equal(t, FocusActive, focusStateOf(t, svc, 2))
}

func TestDeactivateResumesPausedMusic(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	music := playInterrupt(1, 100, StreamMusic, UsageMusic)
	call := playInterrupt(2, 200, StreamVoiceCall, UsageVoiceCommunication)
	cb := &recordingInterruptCallback{}
	require.NoError(t, svc.SetAudioInterruptCallback(DefaultZoneID, music.StreamID, cb))

	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, music, false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, call, false))
	require.Equal(t, FocusPause, focusStateOf(t, svc, music.StreamID))

	require.NoError(t, svc.DeactivateAudioInterrupt(DefaultZoneID, call))

	assert.Equal(t, FocusActive, focusStateOf(t, svc, music.StreamID))
	require.Eventually(t, func() bool { return cb.hasHint(HintResume) },
		time.Second, 5*time.Millisecond, "music stream never got the resume hint")
	assert.True(t, cb.hasHint(HintPause), "music stream should have been told to pause first")
}

// Releasing one interrupt must leave the survivors in exactly the states
// they would have if they had been activated fresh in arrival order.
func TestResumeReplayMatchesFreshActivation(t *testing.T) {
	tests := []struct {
		name     string
		sequence []*AudioInterrupt
		release  int
	}{
		{
			name: "call release with music and alarm behind it",
			sequence: []*AudioInterrupt{
				playInterrupt(1, 100, StreamMusic, UsageMusic),
				playInterrupt(2, 200, StreamVoiceCall, UsageVoiceCommunication),
				playInterrupt(3, 300, StreamAlarm, UsageAlarm),
			},
			release: 1,
		},
		{
			name: "assistant release restores ducked navigation",
			sequence: []*AudioInterrupt{
				playInterrupt(1, 100, StreamNavigation, UsageNavigation),
				playInterrupt(2, 200, StreamVoiceAssistant, UsageVoiceAssistant),
			},
			release: 1,
		},
		{
			name: "mid-list release with capture in play",
			sequence: []*AudioInterrupt{
				captureInterrupt(1, 100, SourceWakeup),
				playInterrupt(2, 200, StreamMusic, UsageMusic),
				playInterrupt(3, 300, StreamRing, UsageRingtone),
			},
			release: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replayed, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)
			for _, in := range tt.sequence {
				require.NoError(t, replayed.ActivateAudioInterrupt(DefaultZoneID, in, false))
			}
			require.NoError(t, replayed.DeactivateAudioInterrupt(DefaultZoneID, tt.sequence[tt.release]))

			fresh, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)
			for i, in := range tt.sequence {
				if i == tt.release {
					continue
				}
				require.NoError(t, fresh.ActivateAudioInterrupt(DefaultZoneID, in, false))
			}

			for i, in := range tt.sequence {
				if i == tt.release {
					continue
				}
				assert.Equal(t, focusStateOf(t, fresh, in.StreamID), focusStateOf(t, replayed, in.StreamID),
					"stream %d state diverged from fresh activation", in.StreamID)
			}
		})
	}
}

func TestGameAppDuckCarveOut(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	game := playInterrupt(1, 100, StreamMusic, UsageGame)
	game.IsGameApp = true
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, game, false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamRing, UsageRingtone), false))

	assert.Equal(t, FocusActive, focusStateOf(t, svc, 1), "game audio must not be ducked")
	assert.Equal(t, FocusActive, focusStateOf(t, svc, 2))
}

func TestZeroVolumeStreamSkipsDuck(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	muted := playInterrupt(1, 100, StreamMusic, UsageMusic)
	muted.CurrentVolumeZero = true
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, muted, false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamAlarm, UsageAlarm), false))

	assert.Equal(t, FocusActive, focusStateOf(t, svc, 1), "ducking a silent stream is a no-op")
}

func TestMixWithOthersSessionsCoexist(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	mix := SessionStrategy{ConcurrencyMode: ConcurrencyMixWithOthers}
	require.NoError(t, svc.ActivateAudioSession(100, mix))
	require.NoError(t, svc.ActivateAudioSession(200, mix))

	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(1, 100, StreamMusic, UsageMusic), false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamMusic, UsageMusic), false))

	assert.Equal(t, FocusActive, focusStateOf(t, svc, 1))
	assert.Equal(t, FocusActive, focusStateOf(t, svc, 2))
}

func TestPreemptMode(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	require.NoError(t, svc.ActivatePreemptMode())

	err := svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(1, 100, StreamMusic, UsageMusic), false)
	assert.ErrorIs(t, err, ErrFocusDenied)

	exempt := playInterrupt(2, 200, StreamMusic, UsageMusic)
	exempt.ParallelPlayFlag = true
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, exempt, false))
	assert.Equal(t, FocusActive, focusStateOf(t, svc, 2))

	require.NoError(t, svc.DeactivatePreemptMode())
	assert.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(3, 300, StreamMusic, UsageMusic), false))
}

func TestParallelPlaySkipsArbitration(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(1, 100, StreamVoiceCall, UsageVoiceCommunication), false))

	exempt := playInterrupt(2, 200, StreamMusic, UsageMusic)
	exempt.ParallelPlayFlag = true
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, exempt, false))

	assert.Equal(t, FocusActive, focusStateOf(t, svc, 1), "exempt streams leave existing holders alone")
	assert.Equal(t, FocusActive, focusStateOf(t, svc, 2))
}

func TestSessionPlaceholderTimeout(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, _ := newInterruptFixture(t, clock, 10*time.Second)

	require.NoError(t, svc.ActivateAudioSession(100, SessionStrategy{ConcurrencyMode: ConcurrencyMixWithOthers}))
	music := playInterrupt(1, 100, StreamMusic, UsageMusic)
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, music, false))

	// The last stream of a session-owning pid leaves a placeholder behind.
	require.NoError(t, svc.DeactivateAudioInterrupt(DefaultZoneID, music))
	list, err := svc.GetAudioFocusInfoList(DefaultZoneID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, FocusPlaceholder, list[0].State)
	assert.True(t, svc.IsAudioSessionActivated(100))

	clock.Advance(11 * time.Second)

	require.Eventually(t, func() bool {
		list, err := svc.GetAudioFocusInfoList(DefaultZoneID)
		return err == nil && len(list) == 0 && !svc.IsAudioSessionActivated(100)
	}, time.Second, 5*time.Millisecond, "placeholder should expire with the session")
}

func TestActivationReclaimsPlaceholder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, _ := newInterruptFixture(t, clock, 10*time.Second)

	require.NoError(t, svc.ActivateAudioSession(100, SessionStrategy{ConcurrencyMode: ConcurrencyDefault}))
	music := playInterrupt(1, 100, StreamMusic, UsageMusic)
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, music, false))
	require.NoError(t, svc.DeactivateAudioInterrupt(DefaultZoneID, music))

	// A new stream from the same pid reclaims the slot and disarms the
	// timeout.
	next := playInterrupt(2, 100, StreamMusic, UsageMusic)
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, next, false))

	list, err := svc.GetAudioFocusInfoList(DefaultZoneID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint32(2), list[0].Interrupt.StreamID)
	assert.Equal(t, FocusActive, list[0].State)

	clock.Advance(time.Minute)
	assert.True(t, svc.IsAudioSessionActivated(100), "session must survive while a stream is live")
}

func TestDeactivateAudioSessionRemovesPlaceholder(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc, _ := newInterruptFixture(t, clock, 10*time.Second)

	require.NoError(t, svc.ActivateAudioSession(100, SessionStrategy{ConcurrencyMode: ConcurrencyDefault}))
	music := playInterrupt(1, 100, StreamMusic, UsageMusic)
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, music, false))
	require.NoError(t, svc.DeactivateAudioInterrupt(DefaultZoneID, music))

	require.NoError(t, svc.DeactivateAudioSession(100))

	list, err := svc.GetAudioFocusInfoList(DefaultZoneID)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, svc.IsAudioSessionActivated(100))
}

func TestSceneDerivation(t *testing.T) {
	tests := []struct {
		name      string
		sequence  []*AudioInterrupt
		wantScene AudioScene
	}{
		{
			name:      "no holders",
			wantScene: SceneDefault,
		},
		{
			name:      "voice call wins outright",
			sequence:  []*AudioInterrupt{playInterrupt(1, 100, StreamRing, UsageRingtone), playInterrupt(2, 200, StreamVoiceCall, UsageVoiceCommunication)},
			wantScene: ScenePhoneCall,
		},
		{
			name:      "voice communication maps to phone chat",
			sequence:  []*AudioInterrupt{playInterrupt(1, 100, StreamVoiceCommunication, UsageVoiceCommunication)},
			wantScene: ScenePhoneChat,
		},
		{
			name:      "ring maps to ringing",
			sequence:  []*AudioInterrupt{playInterrupt(1, 100, StreamRing, UsageRingtone)},
			wantScene: SceneRinging,
		},
		{
			name:      "call capture maps to phone call",
			sequence:  []*AudioInterrupt{captureInterrupt(1, 100, SourceVoiceCall)},
			wantScene: ScenePhoneCall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)
			for _, in := range tt.sequence {
				require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, in, false))
			}
			assert.Equal(t, tt.wantScene, svc.GetHighestPriorityAudioScene(DefaultZoneID))
		})
	}
}

func TestGetStreamInFocusByUid(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(1, 100, StreamMusic, UsageMusic), false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamAlarm, UsageAlarm), false))

	assert.Equal(t, StreamAlarm, svc.GetStreamInFocus(DefaultZoneID), "most recent active holder wins")
	assert.Equal(t, StreamAlarm, svc.GetStreamInFocusByUid(DefaultZoneID, 200))
	assert.Equal(t, StreamDefault, svc.GetStreamInFocusByUid(DefaultZoneID, 100), "ducked music is not in focus")
	assert.Equal(t, StreamDefault, svc.GetStreamInFocusByUid(DefaultZoneID, 999))
}

func TestClearAudioFocusInfoList(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	cb := &recordingInterruptCallback{}
	require.NoError(t, svc.SetAudioInterruptCallback(DefaultZoneID, 1, cb))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(1, 100, StreamMusic, UsageMusic), false))
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamAlarm, UsageAlarm), false))

	require.NoError(t, svc.ClearAudioFocusInfoList())

	list, err := svc.GetAudioFocusInfoList(DefaultZoneID)
	require.NoError(t, err)
	assert.Empty(t, list)
	require.Eventually(t, func() bool { return cb.hasHint(HintStop) },
		time.Second, 5*time.Millisecond, "holders must be told to stop on clear")
}

func TestInterruptZoneLifecycle(t *testing.T) {
	svc, _ := newInterruptFixture(t, clockwork.NewRealClock(), time.Minute)

	require.NoError(t, svc.CreateAudioInterruptZone(1, LocalFocusStrategy))
	require.NoError(t, svc.ActivateAudioInterrupt(1, playInterrupt(1, 100, StreamVoiceCall, UsageVoiceCommunication), false))

	// Zones arbitrate independently.
	require.NoError(t, svc.ActivateAudioInterrupt(DefaultZoneID, playInterrupt(2, 200, StreamVoiceCall, UsageVoiceCommunication), false))

	require.NoError(t, svc.ReleaseAudioInterruptZone(1))
	_, err := svc.GetAudioFocusInfoList(1)
	assert.ErrorIs(t, err, ErrInvalidParam)

	assert.ErrorIs(t, svc.ReleaseAudioInterruptZone(DefaultZoneID), ErrInvalidParam)
	assert.ErrorIs(t, svc.ActivateAudioInterrupt(42, playInterrupt(3, 300, StreamMusic, UsageMusic), false), ErrInvalidParam)
}
