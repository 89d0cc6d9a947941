package audio

// PipeSelector groups streams into pipes by (adapterName, routeFlag)
// compatibility and produces the pipe diff a reconciliation pass executes.
// It is an external collaborator abstraction; the default implementation
// below covers the standard grouping.
type PipeSelector interface {
	// FetchPipesAndExecute returns the pipe list the given streams should
	// run on, each tagged with a PipeAction, reusing open pipes from the
	// manager where the compatibility key matches.
	FetchPipesAndExecute(streams []*AudioStreamDescriptor, role PipeRole) []*AudioPipeInfo
}

// DefaultPipeSelector groups by the primary target device's adapter and
// the stream's transport flag.
type DefaultPipeSelector struct {
	pipes *AudioPipeManager
}

// NewDefaultPipeSelector creates the standard selector over the manager.
func NewDefaultPipeSelector(pipes *AudioPipeManager) *DefaultPipeSelector {
	return &DefaultPipeSelector{pipes: pipes}
}

// FetchPipesAndExecute implements PipeSelector.
func (s *DefaultPipeSelector) FetchPipesAndExecute(streams []*AudioStreamDescriptor, role PipeRole) []*AudioPipeInfo {
	type key struct {
		adapter string
		flag    AudioFlag
	}
	grouped := make(map[key][]*AudioStreamDescriptor)
	var order []key
	batched := make(map[uint32]struct{}, len(streams))
	for _, stream := range streams {
		k := key{adapter: AdapterNameForDevice(stream.PrimaryNewDevice()), flag: pipeFlagForStream(stream)}
		if _, seen := grouped[k]; !seen {
			order = append(order, k)
		}
		grouped[k] = append(grouped[k], stream)
		batched[stream.SessionID] = struct{}{}
		// A stream changing pipes must not stay bound to the old one.
		s.pipes.DetachStreamIfMoved(stream.SessionID, k.adapter, k.flag)
	}

	var out []*AudioPipeInfo
	for _, k := range order {
		members := grouped[k]
		existing := s.pipes.GetPipeByKey(k.adapter, k.flag, role)
		if existing != nil {
			existing.PipeAction = PipeActionUpdate
			// Only batched streams are reassigned; a stream outside this
			// pass keeps its previous binding.
			merged := make([]*AudioStreamDescriptor, 0, len(existing.StreamDescriptors)+len(members))
			for _, desc := range existing.StreamDescriptors {
				if _, ok := batched[desc.SessionID]; !ok {
					merged = append(merged, desc)
				}
			}
			existing.StreamDescriptors = append(merged, members...)
			out = append(out, existing)
			continue
		}
		primary := members[0].PrimaryNewDevice()
		pipe := &AudioPipeInfo{
			ID:          InvalidIOHandle,
			AdapterName: k.adapter,
			RouteFlag:   k.flag,
			PipeRole:    role,
			PipeAction:  PipeActionNew,
			ModuleInfo: AudioModuleInfo{
				AdapterName: k.adapter,
				ModuleName:  k.adapter,
				Role:        role,
				Flag:        k.flag,
			},
			StreamDescriptors: members,
		}
		if primary != nil {
			pipe.ModuleInfo.DeviceType = primary.DeviceType
			pipe.ModuleInfo.NetworkID = primary.NetworkID
			pipe.ModuleInfo.StreamInfo = primary.StreamInfo
		}
		out = append(out, pipe)
	}
	return out
}

// pipeFlagForStream collapses per-stream transport flags into the pipe
// compatibility flag: voip variants share the voip pipe, everything
// unclassified rides the normal pipe.
func pipeFlagForStream(stream *AudioStreamDescriptor) AudioFlag {
	switch stream.AudioFlag {
	case FlagVoip, FlagVoipFast, FlagVoipDirect:
		return FlagVoip
	case FlagLowPower, FlagDirect, FlagMultichannel, FlagMmap:
		return stream.AudioFlag
	default:
		return FlagNormal
	}
}
