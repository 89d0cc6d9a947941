package audio

// AudioPipeInfo is one opened HAL port serving one or more streams with
// compatible routing flags. The pipe manager is the sole owner; stream
// descriptor references inside are shared, non-owning, and valid for the
// duration of one reconciliation pass.
type AudioPipeInfo struct {
	ID          AudioIOHandle   `json:"id"`
	PaIndex     uint32          `json:"pa_index"`
	AdapterName string          `json:"adapter_name"`
	RouteFlag   AudioFlag       `json:"route_flag"`
	PipeRole    PipeRole        `json:"pipe_role"`
	ModuleInfo  AudioModuleInfo `json:"module_info"`

	StreamDescriptors []*AudioStreamDescriptor `json:"stream_descriptors"`

	PipeAction PipeAction `json:"pipe_action"`
}

// IsSamePipeAs matches pipes on the compatibility key used for sharing.
func (p *AudioPipeInfo) IsSamePipeAs(other *AudioPipeInfo) bool {
	return p.AdapterName == other.AdapterName && p.RouteFlag == other.RouteFlag && p.PipeRole == other.PipeRole
}

// IsOffload reports whether the pipe uses the low-power path, which gets
// a deferred close instead of an immediate one.
func (p *AudioPipeInfo) IsOffload() bool {
	return p.RouteFlag == FlagLowPower
}

// IsOpen reports whether the HAL port behind the pipe is open.
func (p *AudioPipeInfo) IsOpen() bool {
	return p.ID != InvalidIOHandle
}

// findStream returns the index of the stream with the session id, or -1.
func (p *AudioPipeInfo) findStream(sessionID uint32) int {
	for i, s := range p.StreamDescriptors {
		if s.SessionID == sessionID {
			return i
		}
	}
	return -1
}
