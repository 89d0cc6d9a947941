package audio

import (
	"time"
)

func (s *AudioCoreService) allocateSessionIDLocked() uint32 {
	s.nextSessionID++
	return s.nextSessionID
}

func isModemCommunication(desc *AudioStreamDescriptor) bool {
	return desc.RendererInfo != nil && desc.RendererInfo.Usage == UsageVoiceModemCommunication
}

func deviceTypeOf(d *AudioDeviceDescriptor) string {
	if d == nil {
		return "none"
	}
	return d.DeviceType.String()
}

func (s *AudioCoreService) postEvent(event AudioEvent) {
	if s.dispatcher != nil {
		s.dispatcher.Post(event)
	}
}

// bindVirtualStreamLocked tracks a stream on a pipe that never opens a
// HAL port. Used for the modem path, where audio bypasses the HAL.
func (s *AudioCoreService) bindVirtualStreamLocked(desc *AudioStreamDescriptor, role PipeRole) {
	pipe := s.pipes.GetPipeByNameAndFlag(modemAdapterName, FlagNormal)
	if pipe == nil {
		pipe = &AudioPipeInfo{
			ID:          InvalidIOHandle,
			AdapterName: modemAdapterName,
			RouteFlag:   FlagNormal,
			PipeRole:    role,
			ModuleInfo:  AudioModuleInfo{AdapterName: modemAdapterName, ModuleName: modemAdapterName, Role: role, Flag: FlagNormal},
		}
		s.pipes.AddPipe(pipe)
	}
	pipe.StreamDescriptors = append(pipe.StreamDescriptors, desc)
}

const modemAdapterName = "modem_communication"

// ---------------------------------------------------------------------------
// Device fetch and Bluetooth handshake

// fetchDevicesForRendererLocked asks the router for the stream's targets
// and performs the Bluetooth activation handshake on the primary. An
// activation failure flags the device exceptional and retriggers the
// whole fetch exactly once, so routing recovers onto the next-best
// device instead of failing the caller.
func (s *AudioCoreService) fetchDevicesForRendererLocked(desc *AudioStreamDescriptor) ([]*AudioDeviceDescriptor, error) {
	devices := s.router.FetchOutputDevices(desc.Usage(), desc.UID)
	if len(devices) == 0 {
		return nil, ErrDeviceNotFound
	}
	if err := s.activateBluetoothOutputLocked(devices[0]); err != nil {
		s.logger.Warn().Err(err).
			Str("device", deviceTypeOf(devices[0])).
			Msg("bluetooth activation failed, retriggering fetch")
		if uerr := s.devices.SetDeviceExceptionFlag(devices[0], true); uerr != nil {
			s.logger.Warn().Err(uerr).Msg("exception flag update failed")
		}
		bluetoothRetriggersTotal.Inc()
		devices = s.router.FetchOutputDevices(desc.Usage(), desc.UID)
		if len(devices) == 0 {
			return nil, ErrDeviceNotFound
		}
		if err := s.activateBluetoothOutputLocked(devices[0]); err != nil {
			// Second consecutive failure propagates.
			return nil, ErrBluetoothActivation
		}
	}
	return devices, nil
}

func (s *AudioCoreService) activateBluetoothOutputLocked(device *AudioDeviceDescriptor) error {
	if device == nil {
		return nil
	}
	switch device.DeviceType {
	case DeviceTypeBluetoothA2dp:
		return s.activateA2dpDeviceWhenDescEnabledLocked(device)
	case DeviceTypeBluetoothSco:
		return s.activateScoDeviceLocked(device)
	default:
		return nil
	}
}

// activateA2dpDeviceWhenDescEnabledLocked performs the A2DP half of the
// handshake. A disabled descriptor is a successful no-op: no adapter
// call is made.
func (s *AudioCoreService) activateA2dpDeviceWhenDescEnabledLocked(device *AudioDeviceDescriptor) error {
	if !device.Enabled {
		return nil
	}
	if err := s.bluetooth.SetActiveA2dpDevice(device.MacAddress); err != nil {
		return err
	}
	if !s.a2dpModuleLoaded {
		return s.loadA2dpModuleLocked(device)
	}
	return s.reloadA2dpAudioPortLocked(device)
}

func (s *AudioCoreService) loadA2dpModuleLocked(device *AudioDeviceDescriptor) error {
	if err := s.hal.LoadAdapter(a2dpAdapterName); err != nil {
		halPortOpsTotal.WithLabelValues("load_adapter", "error").Inc()
		return err
	}
	halPortOpsTotal.WithLabelValues("load_adapter", "ok").Inc()
	s.a2dpModuleLoaded = true
	if info, err := s.bluetooth.GetA2dpDeviceStreamInfo(device.MacAddress); err == nil {
		s.a2dpStreamInfo = info
	} else {
		s.a2dpStreamInfo = device.StreamInfo
	}
	s.logger.Info().Str("mac", device.MacAddress).Msg("a2dp module loaded")
	return nil
}

// reloadA2dpAudioPortLocked closes and reopens the A2DP pipe when the
// active device's stream format changed, re-binding every stream that
// was on it.
func (s *AudioCoreService) reloadA2dpAudioPortLocked(device *AudioDeviceDescriptor) error {
	info, err := s.bluetooth.GetA2dpDeviceStreamInfo(device.MacAddress)
	if err != nil {
		info = device.StreamInfo
	}
	if info == s.a2dpStreamInfo {
		return nil
	}
	for _, pipe := range s.pipes.GetPipes() {
		if pipe.AdapterName != a2dpAdapterName || !pipe.IsOpen() {
			continue
		}
		if err := s.hal.CloseAudioPort(pipe.ID, pipe.PaIndex); err != nil {
			halPortOpsTotal.WithLabelValues("close", "error").Inc()
			return err
		}
		halPortOpsTotal.WithLabelValues("close", "ok").Inc()
		pipe.ModuleInfo.StreamInfo = info
		pipe.ID = InvalidIOHandle
		if err := s.openPipeLocked(pipe); err != nil {
			return err
		}
		for _, stream := range pipe.StreamDescriptors {
			if pipe.PipeRole == PipeRoleOutput {
				if err := s.hal.MoveStreamSink(stream.SessionID, A2dpSinkName); err != nil {
					s.logger.Warn().Err(err).Uint32("session", stream.SessionID).Msg("a2dp rebind failed")
				}
			} else if err := s.hal.MoveStreamSource(stream.SessionID, a2dpAdapterName); err != nil {
				s.logger.Warn().Err(err).Uint32("session", stream.SessionID).Msg("a2dp rebind failed")
			}
		}
	}
	s.a2dpStreamInfo = info
	s.logger.Info().Str("mac", device.MacAddress).Msg("a2dp audio port reloaded")
	return nil
}

const a2dpAdapterName = "a2dp"

// activateScoDeviceLocked sets the active HFP device and records the SCO
// connect-state transition, which suspends the mac-paired A2DP record.
func (s *AudioCoreService) activateScoDeviceLocked(device *AudioDeviceDescriptor) error {
	if err := s.bluetooth.SetActiveHfpDevice(device.MacAddress); err != nil {
		if uerr := s.devices.SetDeviceExceptionFlag(device, true); uerr != nil {
			s.logger.Warn().Err(uerr).Msg("exception flag update failed")
		}
		bluetoothRetriggersTotal.Inc()
		return ErrBluetoothActivation
	}
	update := device.Clone()
	update.ConnectState = ConnectStateConnected
	return s.devices.UpdateDeviceInfo(update, UpdateConnectState)
}

// ---------------------------------------------------------------------------
// Transport flag decision

// updatePlaybackStreamFlagLocked evaluates the transport flag rules in
// strict order; the first match wins.
func (s *AudioCoreService) updatePlaybackStreamFlagLocked(desc *AudioStreamDescriptor) AudioFlag {
	info := desc.RendererInfo
	device := desc.PrimaryNewDevice()

	if info.OriginalFlag&FlagForcedNormal != 0 {
		return FlagNormal
	}
	if info.Usage == UsageVideoCommunication && info.SampleRate != 48000 {
		return FlagNormal
	}
	if device != nil && (device.IsRemote() || device.DeviceType == DeviceTypeRemoteCast) {
		return FlagNormal
	}
	if info.Usage == UsageVoiceCommunication || info.Usage == UsageVideoCommunication {
		return FlagVoip
	}
	if info.OriginalFlag&FlagMmap != 0 {
		if s.isFastAllowedLocked(desc.UID) {
			return FlagMmap
		}
		return FlagNormal
	}
	if info.OriginalFlag&(FlagVoipFast|FlagVoipDirect) != 0 {
		if s.isFastAllowedLocked(desc.UID) {
			return FlagVoip
		}
		return FlagNormal
	}
	if s.directPlaybackEligibleLocked(info, device) {
		return FlagDirect
	}
	if s.offloadEligibleLocked(info, device) {
		return FlagLowPower
	}
	if s.multichannelEligibleLocked(info, device) {
		return FlagMultichannel
	}
	return FlagNormal
}

func (s *AudioCoreService) updateCaptureStreamFlagLocked(desc *AudioStreamDescriptor) AudioFlag {
	info := desc.CapturerInfo
	if info.SourceType == SourceVoiceCommunication {
		return FlagVoip
	}
	if info.OriginalFlag&FlagMmap != 0 && s.isFastAllowedLocked(desc.UID) {
		return FlagMmap
	}
	return FlagNormal
}

func (s *AudioCoreService) isFastAllowedLocked(uid int32) bool {
	_, blocked := s.fastBlockedUids[uid]
	return !blocked
}

func (s *AudioCoreService) directPlaybackEligibleLocked(info *RendererInfo, device *AudioDeviceDescriptor) bool {
	if device == nil {
		return false
	}
	switch device.DeviceType {
	case DeviceTypeWiredHeadset, DeviceTypeWiredHeadphones, DeviceTypeUsbHeadset:
	default:
		return false
	}
	if info.StreamType != StreamMusic {
		return false
	}
	cfg := GetConfig()
	return info.SampleRate >= cfg.DirectPlaybackMinRate &&
		info.SampleRate <= cfg.DirectPlaybackMaxRate &&
		info.BitDepth >= cfg.DirectPlaybackMinDepth
}

func (s *AudioCoreService) offloadEligibleLocked(info *RendererInfo, device *AudioDeviceDescriptor) bool {
	if device == nil || !info.OffloadAllowed {
		return false
	}
	switch device.DeviceType {
	case DeviceTypeSpeaker, DeviceTypeUsbHeadset, DeviceTypeUsbArmHeadset:
	case DeviceTypeBluetoothA2dp:
		if !s.bluetooth.IsA2dpOffloadSupported() {
			return false
		}
	default:
		return false
	}
	moviePcm := info.Usage == UsageMovie && info.PcmOffload
	if info.Channels > 2 && !moviePcm {
		return false
	}
	switch {
	case info.Usage == UsageMusic, info.Usage == UsageAudiobook, moviePcm:
	default:
		return false
	}
	if info.Spatialized && !info.PcmOffload {
		return false
	}
	// One offload pipe at a time; a second eligible stream rides normal.
	return s.pipes.GetStreamCount(AdapterNameForDevice(device), FlagLowPower) == 0
}

func (s *AudioCoreService) multichannelEligibleLocked(info *RendererInfo, device *AudioDeviceDescriptor) bool {
	if device == nil || !s.multichannelSupported {
		return false
	}
	switch device.DeviceType {
	case DeviceTypeSpeaker:
	case DeviceTypeBluetoothA2dp:
		if !s.bluetooth.IsA2dpOffloadSupported() {
			return false
		}
	default:
		return false
	}
	if info.Channels <= 2 {
		return false
	}
	return !(info.Usage == UsageMovie && info.PcmOffload)
}

// ---------------------------------------------------------------------------
// Fetch and reconcile

func (s *AudioCoreService) fetchAndRouteLocked(reason SwitchReason) error {
	outErr := s.fetchRendererPipesAndExecuteLocked(reason, nil)
	if outErr != nil && outErr != ErrNeedNotSwitchDevice {
		return outErr
	}
	inErr := s.fetchCapturerPipesAndExecuteLocked(reason, nil)
	if inErr != nil && inErr != ErrNeedNotSwitchDevice {
		return inErr
	}
	if outErr == ErrNeedNotSwitchDevice && inErr == ErrNeedNotSwitchDevice {
		return ErrNeedNotSwitchDevice
	}
	return nil
}

// fetchRendererPipesAndExecuteLocked is one full output reconciliation
// pass: refresh every playback stream's target devices and flag, diff
// the pipe layout, and execute the per-stream actions. A per-stream or
// per-pipe failure aborts only that stream or pipe.
func (s *AudioCoreService) fetchRendererPipesAndExecuteLocked(reason SwitchReason, fresh *AudioStreamDescriptor) error {
	streams := s.pipes.GetAllOutputStreamDescs()
	if fresh != nil {
		streams = append(streams, fresh)
	}

	var batch []*AudioStreamDescriptor
	changed := false
	for _, stream := range streams {
		if isModemCommunication(stream) || stream.StreamStatus == StreamStatusReleased {
			continue
		}
		if stream == fresh {
			batch = append(batch, stream)
			changed = true
			continue
		}

		stream.SnapshotDevices()
		devices, err := s.fetchDevicesForRendererLocked(stream)
		if err != nil {
			s.logger.Warn().Err(err).Uint32("session", stream.SessionID).Msg("device fetch failed for stream")
			stream.NewDeviceDescs = stream.OldDeviceDescs
			continue
		}
		stream.NewDeviceDescs = devices
		oldFlag := stream.AudioFlag
		newFlag := s.updatePlaybackStreamFlagLocked(stream)

		needsDualTone := s.dualTonePendingForLocked(stream)
		if !needsDualTone {
			if err := s.handleDeviceChangeForFetchOutputDeviceLocked(stream, oldFlag, newFlag); err == ErrNeedNotSwitchDevice {
				stream.StreamAction = StreamActionDefault
				batch = append(batch, stream)
				continue
			}
		}
		stream.StreamAction = decideStreamAction(stream, oldFlag, newFlag)
		stream.AudioFlag = newFlag
		batch = append(batch, stream)
		if stream.StreamAction != StreamActionDefault || needsDualTone {
			changed = true
		}
	}

	if len(batch) == 0 {
		s.handleNoRunningOutputLocked()
		return nil
	}
	if !changed {
		fetchNoopTotal.Inc()
		return ErrNeedNotSwitchDevice
	}

	for _, stream := range batch {
		s.engageDualToneLocked(stream)
	}

	diff := s.selector.FetchPipesAndExecute(batch, PipeRoleOutput)
	s.executePipeDiffLocked(diff, PipeRoleOutput, reason)
	s.removeUnusedPipesLocked()
	s.updateActiveOutputLocked(batch)
	s.routedScene = s.audioScene
	s.dualTonePend = false
	return nil
}

// fetchCapturerPipesAndExecuteLocked is the input analog of the output
// reconciliation pass.
func (s *AudioCoreService) fetchCapturerPipesAndExecuteLocked(reason SwitchReason, fresh *AudioStreamDescriptor) error {
	streams := s.pipes.GetAllInputStreamDescs()
	if fresh != nil {
		streams = append(streams, fresh)
	}

	var batch []*AudioStreamDescriptor
	changed := false
	for _, stream := range streams {
		if stream.StreamStatus == StreamStatusReleased {
			continue
		}
		if stream == fresh {
			batch = append(batch, stream)
			changed = true
			continue
		}

		stream.SnapshotDevices()
		device := s.router.FetchInputDevice(stream.CapturerInfo.SourceType, stream.UID, stream.SessionID)
		if device != nil && device.DeviceType == DeviceTypeBluetoothSco {
			if err := s.activateScoDeviceLocked(device); err != nil {
				device = s.router.FetchInputDevice(stream.CapturerInfo.SourceType, stream.UID, stream.SessionID)
			}
		}
		stream.NewDeviceDescs = nil
		if device != nil {
			stream.NewDeviceDescs = []*AudioDeviceDescriptor{device}
		}
		oldFlag := stream.AudioFlag
		newFlag := s.updateCaptureStreamFlagLocked(stream)

		if stream.IsRunning() &&
			device != nil && device.IsSameRouteAs(stream.PrimaryOldDevice()) &&
			oldFlag == newFlag &&
			s.audioScene == s.routedScene {
			stream.StreamAction = StreamActionDefault
			batch = append(batch, stream)
			continue
		}
		stream.StreamAction = decideStreamAction(stream, oldFlag, newFlag)
		stream.AudioFlag = newFlag
		batch = append(batch, stream)
		if stream.StreamAction != StreamActionDefault {
			changed = true
		}
	}

	if len(batch) == 0 {
		s.handleNoRunningInputLocked()
		return nil
	}
	if !changed {
		fetchNoopTotal.Inc()
		return ErrNeedNotSwitchDevice
	}

	diff := s.selector.FetchPipesAndExecute(batch, PipeRoleInput)
	s.executePipeDiffLocked(diff, PipeRoleInput, reason)
	s.removeUnusedPipesLocked()
	if best := s.firstPrimaryDevice(batch); best != nil {
		s.active.SetCurrentInputDevice(best)
	}
	return nil
}

// handleDeviceChangeForFetchOutputDeviceLocked is the idempotence guard:
// a started stream whose fetched route, flag, scene, and dual-tone state
// are all unchanged skips the move entirely.
func (s *AudioCoreService) handleDeviceChangeForFetchOutputDeviceLocked(stream *AudioStreamDescriptor, oldFlag, newFlag AudioFlag) error {
	if !stream.IsRunning() {
		if routeUnchanged(stream) && oldFlag == newFlag {
			return ErrNeedNotSwitchDevice
		}
		return nil
	}
	if !routeUnchanged(stream) || oldFlag != newFlag {
		return nil
	}
	if s.audioScene != s.routedScene {
		return nil
	}
	if s.dualTonePend {
		return nil
	}
	if primary := stream.PrimaryNewDevice(); primary != nil && primary.DeviceType == DeviceTypeBluetoothA2dp {
		if info, err := s.bluetooth.GetA2dpDeviceStreamInfo(primary.MacAddress); err == nil && info != s.a2dpStreamInfo {
			return nil
		}
	}
	return ErrNeedNotSwitchDevice
}

func routeUnchanged(stream *AudioStreamDescriptor) bool {
	if len(stream.NewDeviceDescs) != len(stream.OldDeviceDescs) {
		return false
	}
	for i, d := range stream.NewDeviceDescs {
		if d == nil || !d.IsSameRouteAs(stream.OldDeviceDescs[i]) {
			return false
		}
	}
	return len(stream.NewDeviceDescs) > 0
}

// decideStreamAction classifies what the reconcile pass must do with one
// stream: a transport class change forces a full recreate, a device
// change is a move, everything else is left alone.
func decideStreamAction(stream *AudioStreamDescriptor, oldFlag, newFlag AudioFlag) StreamAction {
	if stream.StreamStatus == StreamStatusNew {
		return StreamActionNew
	}
	oldClass := pipeFlagForStream(&AudioStreamDescriptor{AudioFlag: oldFlag})
	newClass := pipeFlagForStream(&AudioStreamDescriptor{AudioFlag: newFlag})
	if oldClass != newClass {
		return StreamActionRecreate
	}
	if !routeUnchanged(stream) {
		return StreamActionMove
	}
	return StreamActionDefault
}

// dualTonePendingForLocked reports whether a running dual-target ring or
// alarm stream still needs its parallel route engaged. Such a stream must
// not short-circuit through the idempotence guard even when its route is
// unchanged.
func (s *AudioCoreService) dualTonePendingForLocked(stream *AudioStreamDescriptor) bool {
	if !stream.IsRunning() || !stream.Usage().IsRingOrAlarm() || !stream.IsDualTarget() {
		return false
	}
	if s.active.RingerMode() == RingerModeNormal {
		return false
	}
	dual, owner := s.active.DualToneState()
	return !dual || owner != stream.SessionID
}

// engageDualToneLocked turns on parallel ringer/alarm output when the
// router delivered a dual target for a running ring or alarm stream and
// the ringer switch is not in its normal position.
func (s *AudioCoreService) engageDualToneLocked(stream *AudioStreamDescriptor) {
	if !stream.IsRunning() || !stream.Usage().IsRingOrAlarm() || !stream.IsDualTarget() {
		return
	}
	if s.active.RingerMode() == RingerModeNormal {
		return
	}
	s.active.UpdateDualToneState(true, stream.SessionID)
	if err := s.hal.UpdateAudioRoute(deviceTypesOf(stream.NewDeviceDescs), DeviceRoleOutput); err != nil {
		s.logger.Warn().Err(err).Uint32("session", stream.SessionID).Msg("dual tone route update failed")
	}
}

func deviceTypesOf(devices []*AudioDeviceDescriptor) []DeviceType {
	out := make([]DeviceType, 0, len(devices))
	for _, d := range devices {
		if d != nil {
			out = append(out, d.DeviceType)
		}
	}
	return out
}

func (s *AudioCoreService) firstPrimaryDevice(streams []*AudioStreamDescriptor) *AudioDeviceDescriptor {
	var fallback *AudioDeviceDescriptor
	for _, stream := range streams {
		primary := stream.PrimaryNewDevice()
		if primary == nil {
			continue
		}
		if stream.IsRunning() {
			return primary
		}
		if fallback == nil {
			fallback = primary
		}
	}
	return fallback
}

func (s *AudioCoreService) updateActiveOutputLocked(streams []*AudioStreamDescriptor) {
	best := s.firstPrimaryDevice(streams)
	if best == nil {
		return
	}
	if s.active.SetCurrentOutputDevice(best.Clone()) {
		s.postEvent(AudioEvent{Type: AudioEventPreferredOutput, Data: PreferredOutputData{
			Usage:   UsageMedia,
			Devices: []AudioDeviceDescriptor{*best},
		}})
	}
}

// ---------------------------------------------------------------------------
// Pipe diff execution

func (s *AudioCoreService) executePipeDiffLocked(diff []*AudioPipeInfo, role PipeRole, reason SwitchReason) {
	for _, pipe := range diff {
		switch pipe.PipeAction {
		case PipeActionNew:
			if !isVirtualAdapter(pipe.AdapterName) {
				if err := s.openPipeLocked(pipe); err != nil {
					s.logger.Error().Err(err).
						Str("adapter", pipe.AdapterName).
						Str("flag", pipe.RouteFlag.String()).
						Msg("pipe open failed, skipping its streams")
					continue
				}
			}
			s.pipes.AddPipe(pipe)
		case PipeActionUpdate:
			s.cancelOffloadCloseLocked(pipe)
			s.pipes.UpdatePipe(pipe)
		}

		for _, stream := range pipe.StreamDescriptors {
			s.dispatchStreamActionLocked(pipe, stream, role, reason)
		}
		pipe.PipeAction = PipeActionDefault
	}
}

func isVirtualAdapter(name string) bool {
	return name == "remote_cast" || name == modemAdapterName
}

func (s *AudioCoreService) openPipeLocked(pipe *AudioPipeInfo) error {
	handle, paIndex, err := s.hal.OpenAudioPort(pipe.ModuleInfo)
	if err != nil {
		halPortOpsTotal.WithLabelValues("open", "error").Inc()
		return err
	}
	halPortOpsTotal.WithLabelValues("open", "ok").Inc()
	pipe.ID = handle
	pipe.PaIndex = paIndex
	return nil
}

func (s *AudioCoreService) dispatchStreamActionLocked(pipe *AudioPipeInfo, stream *AudioStreamDescriptor, role PipeRole, reason SwitchReason) {
	switch stream.StreamAction {
	case StreamActionNew:
		if pipe.IsOpen() {
			var err error
			if role == PipeRoleOutput {
				err = s.hal.CreateRender(pipe.ID, stream.SessionID)
			} else {
				err = s.hal.CreateCapture(pipe.ID, stream.SessionID)
			}
			if err != nil {
				s.logger.Error().Err(err).Uint32("session", stream.SessionID).Msg("stream create failed")
			}
		}
	case StreamActionMove:
		if stream.IsRunning() && role == PipeRoleOutput {
			s.moveToNewOutputDeviceLocked(stream, reason)
		} else {
			s.moveStreamSilentLocked(stream, role)
		}
		deviceSwitchesTotal.WithLabelValues(reason.String()).Inc()
	case StreamActionRecreate:
		eventType := AudioEventRecreateRenderer
		if role == PipeRoleInput {
			eventType = AudioEventRecreateCapturer
		}
		s.postEvent(AudioEvent{Type: eventType, Data: RecreateStreamData{
			SessionID:  stream.SessionID,
			TargetFlag: stream.AudioFlag,
			Reason:     reason.String(),
		}})
	}
	stream.StreamAction = StreamActionDefault
}

// moveStreamSilentLocked relocates a stream that is not audible; no
// muting window is needed.
func (s *AudioCoreService) moveStreamSilentLocked(stream *AudioStreamDescriptor, role PipeRole) {
	if role == PipeRoleOutput {
		sink := SinkNameForDevice(stream.PrimaryNewDevice(), stream.AudioFlag)
		if err := s.hal.MoveStreamSink(stream.SessionID, sink); err != nil {
			s.logger.Warn().Err(err).Uint32("session", stream.SessionID).Msg("silent sink move failed")
		}
		return
	}
	source := AdapterNameForDevice(stream.PrimaryNewDevice())
	if err := s.hal.MoveStreamSource(stream.SessionID, source); err != nil {
		s.logger.Warn().Err(err).Uint32("session", stream.SessionID).Msg("silent source move failed")
	}
	if err := s.hal.UpdateAudioRoute(deviceTypesOf(stream.NewDeviceDescs), DeviceRoleInput); err != nil {
		s.logger.Warn().Err(err).Msg("input route update failed")
	}
}

// moveToNewOutputDeviceLocked relocates an audible stream with the live
// muting choreography. Phone-call audio mutes through the HAL voice
// volume because the modem path bypasses sink mixing; everything else
// mutes the old and new sinks for a window keyed by the switch reason.
func (s *AudioCoreService) moveToNewOutputDeviceLocked(stream *AudioStreamDescriptor, reason SwitchReason) {
	cfg := GetConfig()
	oldSink := SinkNameForDevice(stream.PrimaryOldDevice(), stream.AudioFlag)
	newSink := SinkNameForDevice(stream.PrimaryNewDevice(), stream.AudioFlag)
	offload := oldSink == OffloadSinkName || newSink == OffloadSinkName
	usage := stream.Usage()
	voicePath := usage == UsageVoiceCommunication || usage == UsageVoiceModemCommunication

	dual, owner := s.active.DualToneState()
	arrivingDualTone := dual && owner == stream.SessionID

	switch {
	case arrivingDualTone:
		// The arriving dual tone is new content; nothing audible leaks
		// from it, so no muting is engaged.
	case voicePath:
		if err := s.hal.SetVoiceVolume(0); err != nil {
			s.logger.Warn().Err(err).Msg("voice volume zero failed")
		}
		s.clock.Sleep(cfg.VoiceVolumeZeroDelay)
	default:
		s.muteSinkPortForSwitchDeviceLocked(oldSink, newSink, true)
	}

	if err := s.hal.MoveStreamSink(stream.SessionID, newSink); err != nil {
		s.logger.Error().Err(err).Uint32("session", stream.SessionID).Msg("live sink move failed")
	}
	if err := s.hal.UpdateAudioRoute(deviceTypesOf(stream.NewDeviceDescs), DeviceRoleOutput); err != nil {
		s.logger.Warn().Err(err).Msg("output route update failed")
	}

	if stream.IsDualTarget() && usage.IsRingOrAlarm() {
		// Let the primary buffer drain before the second device unmutes
		// so no residual frame of the previous content leaks.
		s.clock.Sleep(cfg.DualToneSettleDelay)
	}

	switch {
	case arrivingDualTone:
	case voicePath:
		if err := s.hal.SetVoiceVolume(1); err != nil {
			s.logger.Warn().Err(err).Msg("voice volume restore failed")
		}
	default:
		s.clock.Sleep(muteWindowForSwitch(reason, offload))
		s.muteSinkPortForSwitchDeviceLocked(oldSink, newSink, false)
	}
}

func (s *AudioCoreService) muteSinkPortForSwitchDeviceLocked(oldSink, newSink string, mute bool) {
	if err := s.hal.SetSinkMute(newSink, mute); err != nil {
		s.logger.Warn().Err(err).Str("sink", newSink).Bool("mute", mute).Msg("sink mute failed")
	}
	if oldSink != newSink {
		if err := s.hal.SetSinkMute(oldSink, mute); err != nil {
			s.logger.Warn().Err(err).Str("sink", oldSink).Bool("mute", mute).Msg("sink mute failed")
		}
	}
}

func muteWindowForSwitch(reason SwitchReason, offload bool) time.Duration {
	cfg := GetConfig()
	var window time.Duration
	switch reason {
	case SwitchReasonOverride:
		window = cfg.MuteWindowOverride
	case SwitchReasonOldDeviceUnavailable:
		window = cfg.MuteWindowOldDeviceGone
	case SwitchReasonOldDeviceUnavailableExt:
		window = cfg.MuteWindowOldDeviceExt
	case SwitchReasonDistributedDevice:
		window = cfg.MuteWindowDistributed
	case SwitchReasonRemoteCastToLocal:
		window = cfg.MuteWindowRemoteCast
	default:
		window = cfg.MuteWindowNewDevice
	}
	if offload {
		window += cfg.MuteWindowOffloadExtra
	}
	return window
}

// ---------------------------------------------------------------------------
// Housekeeping

func (s *AudioCoreService) handleNoRunningStreamLocked() {
	for _, stream := range s.pipes.GetAllOutputStreamDescs() {
		if stream.IsRunning() {
			return
		}
	}
	s.handleNoRunningOutputLocked()
	s.handleNoRunningInputLocked()
}

// handleNoRunningOutputLocked keeps the active output device current for
// UI and volume consumers even with nothing playing, using a synthetic
// media probe.
func (s *AudioCoreService) handleNoRunningOutputLocked() {
	devices := s.router.FetchOutputDevices(UsageMedia, -1)
	if len(devices) == 0 {
		return
	}
	if s.active.SetCurrentOutputDevice(devices[0]) {
		s.postEvent(AudioEvent{Type: AudioEventPreferredOutput, Data: PreferredOutputData{
			Usage:   UsageMedia,
			Devices: []AudioDeviceDescriptor{*devices[0]},
		}})
	}
}

func (s *AudioCoreService) handleNoRunningInputLocked() {
	device := s.router.FetchInputDevice(SourceMic, -1, 0)
	if device != nil {
		s.active.SetCurrentInputDevice(device)
	}
}

// ---------------------------------------------------------------------------
// Pipe release

// removeUnusedPipesLocked closes every pipe left with no bound streams.
// Offload pipes get a deferred close instead: rapid start/stop cycles on
// the low-power path would otherwise thrash the HAL port.
func (s *AudioCoreService) removeUnusedPipesLocked() {
	for _, pipe := range s.pipes.GetUnusedPipes() {
		if pipe.AdapterName == modemAdapterName {
			continue
		}
		if pipe.IsOffload() {
			s.delayReleaseOffloadPipeLocked(pipe)
			continue
		}
		s.closePipeNowLocked(pipe)
	}
}

func (s *AudioCoreService) delayReleaseOffloadPipeLocked(pipe *AudioPipeInfo) {
	key := pipeKey(pipe)
	if _, pending := s.offloadTimers[key]; pending {
		return
	}
	s.offloadTimers[key] = s.clock.AfterFunc(GetConfig().OffloadPipeReleaseDelay, func() {
		s.releaseOffloadPipe(key, pipe)
	})
	s.logger.Debug().Str("pipe", key).Msg("offload pipe release deferred")
}

// releaseOffloadPipe fires on the deferred-close timer. The close is
// abandoned if a stream rebound to the pipe in the meantime.
func (s *AudioCoreService) releaseOffloadPipe(key string, pipe *AudioPipeInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, pending := s.offloadTimers[key]; !pending {
		return
	}
	delete(s.offloadTimers, key)
	if len(pipe.StreamDescriptors) > 0 {
		offloadCloseAbortsTotal.Inc()
		return
	}
	s.closePipeNowLocked(pipe)
	s.logger.Info().Str("pipe", key).Msg("offload pipe released")
}

func (s *AudioCoreService) cancelOffloadCloseLocked(pipe *AudioPipeInfo) {
	key := pipeKey(pipe)
	timer, pending := s.offloadTimers[key]
	if !pending {
		return
	}
	timer.Stop()
	delete(s.offloadTimers, key)
	offloadCloseAbortsTotal.Inc()
	s.logger.Debug().Str("pipe", key).Msg("deferred offload close aborted by reuse")
}

func (s *AudioCoreService) closePipeNowLocked(pipe *AudioPipeInfo) {
	if pipe.IsOpen() {
		if err := s.hal.CloseAudioPort(pipe.ID, pipe.PaIndex); err != nil {
			halPortOpsTotal.WithLabelValues("close", "error").Inc()
			s.logger.Error().Err(err).Str("adapter", pipe.AdapterName).Msg("pipe close failed")
		} else {
			halPortOpsTotal.WithLabelValues("close", "ok").Inc()
		}
	}
	s.pipes.RemovePipe(pipe)
}

func pipeKey(pipe *AudioPipeInfo) string {
	return pipe.AdapterName + "/" + pipe.RouteFlag.String() + "/" + pipe.PipeRole.String()
}
