package audio

import (
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// CoreServiceDeps bundles the collaborators injected into the core
// service. All fields are required except Bluetooth, which defaults to
// the no-op adapter.
type CoreServiceDeps struct {
	Devices    *AudioDeviceManager
	Router     DeviceRouter
	Pipes      *AudioPipeManager
	Selector   PipeSelector
	Hal        HalPortController
	Bluetooth  BluetoothAdapter
	Interrupts *AudioInterruptService
	Dispatcher *AudioEventDispatcher
	Active     *ActiveDeviceState
	Clock      clockwork.Clock
}

// AudioCoreService owns device fetch and pipe reconciliation: for every
// stream lifecycle event or external device change it re-derives target
// devices via the router, diffs the pipe layout via the selector, drives
// the HAL, and keeps the active-device record current.
//
// The whole fetch-and-reconcile pass runs under one mutex. Redundant
// concurrent triggers are cheap because the idempotence guard turns them
// into no-ops before any HAL call.
type AudioCoreService struct {
	mu sync.Mutex

	devices    *AudioDeviceManager
	router     DeviceRouter
	pipes      *AudioPipeManager
	selector   PipeSelector
	hal        HalPortController
	bluetooth  BluetoothAdapter
	interrupts *AudioInterruptService
	dispatcher *AudioEventDispatcher
	active     *ActiveDeviceState
	clock      clockwork.Clock
	logger     zerolog.Logger

	nextSessionID uint32

	audioScene   AudioScene
	routedScene  AudioScene
	dualTonePend bool

	fastBlockedUids       map[int32]struct{}
	multichannelSupported bool

	a2dpModuleLoaded bool
	a2dpStreamInfo   AudioStreamInfo

	offloadTimers map[string]clockwork.Timer
}

// NewAudioCoreService wires the core service and registers it as the
// interrupt service's scene sink.
func NewAudioCoreService(deps CoreServiceDeps) *AudioCoreService {
	bt := deps.Bluetooth
	if bt == nil {
		bt = NoopBluetoothAdapter{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	s := &AudioCoreService{
		devices:         deps.Devices,
		router:          deps.Router,
		pipes:           deps.Pipes,
		selector:        deps.Selector,
		hal:             deps.Hal,
		bluetooth:       bt,
		interrupts:      deps.Interrupts,
		dispatcher:      deps.Dispatcher,
		active:          deps.Active,
		clock:           clock,
		logger:          logging.GetDefaultLogger().With().Str("component", "audio-core").Logger(),
		nextSessionID:   100000,
		audioScene:      SceneDefault,
		routedScene:     SceneDefault,
		fastBlockedUids: make(map[int32]struct{}),
		offloadTimers:   make(map[string]clockwork.Timer),
	}
	if deps.Interrupts != nil {
		deps.Interrupts.SetSceneChangeSink(s)
	}
	return s
}

// CreateRendererClient resolves the target devices and transport flag for
// a new playback stream, binds it into a pipe, and returns the assigned
// flag and session id.
func (s *AudioCoreService) CreateRendererClient(desc *AudioStreamDescriptor) (AudioFlag, uint32, error) {
	if desc == nil || desc.RendererInfo == nil {
		return FlagNone, 0, ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if desc.SessionID == 0 {
		desc.SessionID = s.allocateSessionIDLocked()
	}
	desc.StreamStatus = StreamStatusNew
	desc.StreamAction = StreamActionNew

	if isModemCommunication(desc) {
		// Modem voice rides the baseband directly; no HAL pipe is
		// opened and the stream is tracked on a virtual pipe.
		desc.AudioFlag = FlagNormal
		desc.NewDeviceDescs = s.router.FetchOutputDevices(desc.Usage(), desc.UID)
		s.bindVirtualStreamLocked(desc, PipeRoleOutput)
		return desc.AudioFlag, desc.SessionID, nil
	}

	devices, err := s.fetchDevicesForRendererLocked(desc)
	if err != nil {
		return FlagNone, 0, err
	}
	desc.NewDeviceDescs = devices
	desc.AudioFlag = s.updatePlaybackStreamFlagLocked(desc)

	if err := s.fetchRendererPipesAndExecuteLocked(SwitchReasonUnknown, desc); err != nil {
		return FlagNone, 0, err
	}
	s.logger.Info().
		Uint32("session", desc.SessionID).
		Str("flag", desc.AudioFlag.String()).
		Str("device", deviceTypeOf(desc.PrimaryNewDevice())).
		Msg("renderer client created")
	return desc.AudioFlag, desc.SessionID, nil
}

// CreateCapturerClient resolves the input device and transport flag for a
// new capture stream and binds it into a pipe.
func (s *AudioCoreService) CreateCapturerClient(desc *AudioStreamDescriptor) (AudioFlag, uint32, error) {
	if desc == nil || desc.CapturerInfo == nil {
		return FlagNone, 0, ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if desc.SessionID == 0 {
		desc.SessionID = s.allocateSessionIDLocked()
	}
	desc.StreamStatus = StreamStatusNew
	desc.StreamAction = StreamActionNew

	device := s.router.FetchInputDevice(desc.CapturerInfo.SourceType, desc.UID, desc.SessionID)
	if device != nil && device.DeviceType == DeviceTypeBluetoothSco {
		if err := s.activateScoDeviceLocked(device); err != nil {
			device = s.router.FetchInputDevice(desc.CapturerInfo.SourceType, desc.UID, desc.SessionID)
		}
	}
	desc.NewDeviceDescs = nil
	if device != nil {
		desc.NewDeviceDescs = []*AudioDeviceDescriptor{device}
	}
	desc.AudioFlag = s.updateCaptureStreamFlagLocked(desc)

	if err := s.fetchCapturerPipesAndExecuteLocked(SwitchReasonUnknown, desc); err != nil {
		return FlagNone, 0, err
	}
	s.logger.Info().
		Uint32("session", desc.SessionID).
		Str("flag", desc.AudioFlag.String()).
		Str("device", deviceTypeOf(device)).
		Msg("capturer client created")
	return desc.AudioFlag, desc.SessionID, nil
}

// StartClient marks the stream running and re-runs the fetch so routing
// decisions that depend on the running state (dual tone, live moves) take
// effect.
func (s *AudioCoreService) StartClient(sessionID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := s.pipes.GetStreamDescByID(sessionID)
	if desc == nil {
		return ErrInvalidParam
	}
	s.pipes.StartClient(sessionID)
	if desc.CapturerInfo != nil {
		s.postEvent(AudioEvent{Type: AudioEventCapturerState, Data: CapturerStateData{SessionID: sessionID, Running: true}})
	}
	if err := s.fetchAndRouteLocked(SwitchReasonUnknown); err != nil && err != ErrNeedNotSwitchDevice {
		return err
	}
	return nil
}

// PauseClient marks the stream paused.
func (s *AudioCoreService) PauseClient(sessionID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pipes.GetStreamDescByID(sessionID) == nil {
		return ErrInvalidParam
	}
	s.pipes.PauseClient(sessionID)
	return nil
}

// StopClient marks the stream stopped and refreshes the active-device
// record if nothing is left running.
func (s *AudioCoreService) StopClient(sessionID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := s.pipes.GetStreamDescByID(sessionID)
	if desc == nil {
		return ErrInvalidParam
	}
	s.pipes.StopClient(sessionID)
	if desc.CapturerInfo != nil {
		s.postEvent(AudioEvent{Type: AudioEventCapturerState, Data: CapturerStateData{SessionID: sessionID, Running: false}})
	}
	if dual, owner := s.active.DualToneState(); dual && owner == sessionID {
		s.active.UpdateDualToneState(false, sessionID)
	}
	s.handleNoRunningStreamLocked()
	return nil
}

// ReleaseClient unbinds the stream from its pipe and closes pipes left
// empty, with the deferred close for offload pipes.
func (s *AudioCoreService) ReleaseClient(sessionID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	desc := s.pipes.GetStreamDescByID(sessionID)
	if desc == nil {
		return ErrInvalidParam
	}
	desc.StreamStatus = StreamStatusReleased
	s.pipes.RemoveClient(sessionID)
	if dual, owner := s.active.DualToneState(); dual && owner == sessionID {
		s.active.UpdateDualToneState(false, sessionID)
	}
	s.removeUnusedPipesLocked()
	s.logger.Info().Uint32("session", sessionID).Msg("client released")
	return nil
}

// SetAudioScene switches the system audio scene and retriggers the fetch
// so scene-dependent routing is re-evaluated.
func (s *AudioCoreService) SetAudioScene(scene AudioScene, uid, pid int32) error {
	if scene < SceneDefault || scene > SceneVoiceRinging {
		return ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.audioScene == scene {
		return nil
	}
	s.audioScene = scene
	if err := s.hal.SelectScene(scene); err != nil {
		s.logger.Warn().Err(err).Str("scene", scene.String()).Msg("hal scene select failed")
	}
	if err := s.bluetooth.UpdateAudioScene(scene); err != nil {
		s.logger.Warn().Err(err).Msg("bluetooth scene update failed")
	}
	s.postEvent(AudioEvent{Type: AudioEventSceneChanged, Data: SceneChangedData{Scene: scene}})
	if err := s.fetchAndRouteLocked(SwitchReasonUnknown); err != nil && err != ErrNeedNotSwitchDevice {
		return err
	}
	return nil
}

// GetAudioScene returns the current system audio scene.
func (s *AudioCoreService) GetAudioScene() AudioScene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.audioScene
}

// SetDeviceActive forces a device type to be preferred (or stop being
// preferred) for routing, the way a user toggling speakerphone does.
func (s *AudioCoreService) SetDeviceActive(deviceType DeviceType, active bool, uid int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var target *AudioDeviceDescriptor
	for _, d := range s.devices.GetConnectedDevices() {
		if d.DeviceType == deviceType && d.DeviceRole == DeviceRoleOutput {
			target = d
			break
		}
	}
	if target == nil {
		return ErrDeviceNotFound
	}
	update := target.Clone()
	update.Enabled = active
	if err := s.devices.UpdateDeviceInfo(update, UpdateEnable); err != nil {
		return err
	}
	if active {
		// Re-adding refreshes the connect timestamp so recency-based
		// routing picks the device up.
		refreshed := target.Clone()
		refreshed.Enabled = true
		refreshed.ConnectTimeStamp = s.clock.Now()
		if err := s.devices.AddNewDevice(refreshed); err != nil {
			return err
		}
	}
	if err := s.fetchAndRouteLocked(SwitchReasonOverride); err != nil && err != ErrNeedNotSwitchDevice {
		return err
	}
	return nil
}

// SetRingerMode records the platform ringer switch and flags a pending
// dual-tone re-evaluation.
func (s *AudioCoreService) SetRingerMode(mode RingerMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active.SetRingerMode(mode)
	s.dualTonePend = true
}

// TriggerFetchDevice re-runs the full fetch for outputs then inputs.
// Output goes first so capture routing can observe the settled render
// device, matching the paired-device classification.
func (s *AudioCoreService) TriggerFetchDevice(reason SwitchReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fetchAndRouteLocked(reason); err != nil && err != ErrNeedNotSwitchDevice {
		return err
	}
	return nil
}

// OnDeviceStatusUpdated feeds a device connect/disconnect into the
// registry and retriggers routing.
func (s *AudioCoreService) OnDeviceStatusUpdated(desc *AudioDeviceDescriptor, connected bool) error {
	if desc == nil {
		return ErrNullPointer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var err error
	var reason SwitchReason
	if connected {
		err = s.devices.AddNewDevice(desc)
		reason = SwitchReasonNewDeviceAvailable
	} else {
		err = s.devices.RemoveDevice(desc)
		reason = SwitchReasonOldDeviceUnavailable
	}
	if err != nil {
		return err
	}
	s.postEvent(AudioEvent{Type: AudioEventDeviceChanged, Data: DeviceChangedData{
		Device:    *desc,
		Connected: connected,
		Reason:    reason.String(),
	}})
	if ferr := s.fetchAndRouteLocked(reason); ferr != nil && ferr != ErrNeedNotSwitchDevice {
		return ferr
	}
	return nil
}

// OnAudioSceneChanged implements SceneChangeSink: the interrupt service
// derived a new highest-priority scene from its focus list.
func (s *AudioCoreService) OnAudioSceneChanged(zoneID int32, scene AudioScene) {
	if err := s.SetAudioScene(scene, 0, 0); err != nil {
		s.logger.Warn().Err(err).Int32("zone", zoneID).Str("scene", scene.String()).Msg("scene change rejected")
	}
}

// SetFastAllowed adds or removes a uid from the fast/voip transport
// block list. Uids are allowed by default.
func (s *AudioCoreService) SetFastAllowed(uid int32, allowed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if allowed {
		delete(s.fastBlockedUids, uid)
	} else {
		s.fastBlockedUids[uid] = struct{}{}
	}
}

// SetMultichannelSupported records whether the DSP offers a multichannel
// effect chain.
func (s *AudioCoreService) SetMultichannelSupported(supported bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.multichannelSupported = supported
}

// Dump writes a human-readable view of the core service state.
func (s *AudioCoreService) Dump(sb *strings.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sb.WriteString("audio scene: " + s.audioScene.String() + "\n")
	s.active.Dump(sb)
	s.pipes.Dump(sb)
}
