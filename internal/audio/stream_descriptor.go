package audio

// RendererInfo is the playback half of a stream's creation attributes.
type RendererInfo struct {
	Usage          StreamUsage     `json:"usage"`
	StreamType     AudioStreamType `json:"stream_type"`
	OriginalFlag   AudioFlag       `json:"original_flag"`
	SampleRate     int             `json:"sample_rate"`
	Channels       int             `json:"channels"`
	BitDepth       int             `json:"bit_depth"`
	PcmOffload     bool            `json:"pcm_offload"`
	Spatialized    bool            `json:"spatialized"`
	OffloadAllowed bool            `json:"offload_allowed"`
}

// CapturerInfo is the capture half of a stream's creation attributes.
type CapturerInfo struct {
	SourceType   SourceType `json:"source_type"`
	OriginalFlag AudioFlag  `json:"original_flag"`
	SampleRate   int        `json:"sample_rate"`
	Channels     int        `json:"channels"`
}

// AudioStreamDescriptor carries one stream's full routing state across a
// reconciliation pass. OldDeviceDescs and NewDeviceDescs are before/after
// snapshots of one fetch cycle, never aliased.
type AudioStreamDescriptor struct {
	SessionID    uint32        `json:"session_id"`
	UID          int32         `json:"uid"`
	PID          int32         `json:"pid"`
	RendererInfo *RendererInfo `json:"renderer_info,omitempty"`
	CapturerInfo *CapturerInfo `json:"capturer_info,omitempty"`

	OldDeviceDescs []*AudioDeviceDescriptor `json:"old_device_descs"`
	NewDeviceDescs []*AudioDeviceDescriptor `json:"new_device_descs"`

	AudioFlag    AudioFlag    `json:"audio_flag"`
	StreamStatus StreamStatus `json:"stream_status"`
	StreamAction StreamAction `json:"stream_action"`
}

// IsPlayback reports whether the stream renders audio.
func (d *AudioStreamDescriptor) IsPlayback() bool {
	return d.RendererInfo != nil
}

// IsRunning reports whether the stream is audible right now.
func (d *AudioStreamDescriptor) IsRunning() bool {
	return d.StreamStatus == StreamStatusStarted
}

// PrimaryNewDevice returns the first (primary) target of the last fetch.
func (d *AudioStreamDescriptor) PrimaryNewDevice() *AudioDeviceDescriptor {
	if len(d.NewDeviceDescs) == 0 {
		return nil
	}
	return d.NewDeviceDescs[0]
}

// PrimaryOldDevice returns the first device of the previous assignment.
func (d *AudioStreamDescriptor) PrimaryOldDevice() *AudioDeviceDescriptor {
	if len(d.OldDeviceDescs) == 0 {
		return nil
	}
	return d.OldDeviceDescs[0]
}

// SnapshotDevices rolls the current assignment into the old snapshot
// before a fresh fetch.
func (d *AudioStreamDescriptor) SnapshotDevices() {
	d.OldDeviceDescs = make([]*AudioDeviceDescriptor, 0, len(d.NewDeviceDescs))
	for _, dev := range d.NewDeviceDescs {
		d.OldDeviceDescs = append(d.OldDeviceDescs, dev.Clone())
	}
}

// IsDualTarget reports whether the last fetch requested parallel output.
func (d *AudioStreamDescriptor) IsDualTarget() bool {
	return len(d.NewDeviceDescs) > 1
}

// Usage returns the renderer usage, or UsageUnknown for capturers.
func (d *AudioStreamDescriptor) Usage() StreamUsage {
	if d.RendererInfo != nil {
		return d.RendererInfo.Usage
	}
	return UsageUnknown
}
