package audio

// DeviceRouter converts stream attributes into device candidates. The
// first element of a multi-element output result is the primary target;
// for ringer and alarm streams a two-element result requests parallel
// (dual) rendering, not an ordered fallback.
type DeviceRouter interface {
	FetchOutputDevices(usage StreamUsage, uid int32) []*AudioDeviceDescriptor
	FetchInputDevice(sourceType SourceType, uid int32, sessionID uint32) *AudioDeviceDescriptor
}

// PriorityRouter is the built-in routing strategy: most recently connected
// eligible device wins, skipping disabled and exception-flagged devices,
// with the built-in defaults as the floor.
type PriorityRouter struct {
	devices *AudioDeviceManager
}

// NewPriorityRouter creates the default router over the registry.
func NewPriorityRouter(devices *AudioDeviceManager) *PriorityRouter {
	return &PriorityRouter{devices: devices}
}

// FetchOutputDevices implements DeviceRouter.
func (r *PriorityRouter) FetchOutputDevices(usage StreamUsage, uid int32) []*AudioDeviceDescriptor {
	var candidates []*AudioDeviceDescriptor
	switch usage {
	case UsageVoiceCommunication, UsageVideoCommunication, UsageVoiceModemCommunication:
		candidates = append(r.devices.GetCommRenderPrivacyDevices(), r.devices.GetCommRenderPublicDevices()...)
	default:
		candidates = append(r.devices.GetMediaRenderPrivacyDevices(), r.devices.GetMediaRenderPublicDevices()...)
	}

	best := pickMostRecent(candidates)
	if best == nil {
		if usage == UsageVoiceCommunication || usage == UsageVoiceModemCommunication {
			return []*AudioDeviceDescriptor{r.devices.GetCommRenderDefaultDevice()}
		}
		return []*AudioDeviceDescriptor{r.devices.GetRenderDefaultDevice()}
	}

	// Ring and alarm render on the speaker in parallel with a personal
	// device so they are never missed.
	if usage.IsRingOrAlarm() && best.DeviceType != DeviceTypeSpeaker {
		return []*AudioDeviceDescriptor{r.devices.GetRenderDefaultDevice(), best}
	}
	return []*AudioDeviceDescriptor{best}
}

// FetchInputDevice implements DeviceRouter.
func (r *PriorityRouter) FetchInputDevice(sourceType SourceType, uid int32, sessionID uint32) *AudioDeviceDescriptor {
	var candidates []*AudioDeviceDescriptor
	switch sourceType {
	case SourceVoiceCall, SourceVoiceCommunication:
		candidates = append(r.devices.GetCommCapturePrivacyDevices(), r.devices.GetCommCapturePublicDevices()...)
	default:
		candidates = append(r.devices.GetCapturePrivacyDevices(), r.devices.GetCapturePublicDevices()...)
	}
	if best := pickMostRecent(candidates); best != nil {
		return best
	}
	return r.devices.GetCaptureDefaultDevice()
}

func pickMostRecent(candidates []*AudioDeviceDescriptor) *AudioDeviceDescriptor {
	var best *AudioDeviceDescriptor
	for _, d := range candidates {
		if !d.Enabled || d.ExceptionFlag {
			continue
		}
		if d.ConnectState != ConnectStateConnected {
			continue
		}
		if best == nil || d.ConnectTimeStamp.After(best.ConnectTimeStamp) {
			best = d
		}
	}
	return best
}
