package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// AudioPipeManager is the in-memory registry of open HAL pipes and the
// streams bound to each. It is a leaf data structure: all policy lives in
// the core service.
type AudioPipeManager struct {
	mu     sync.Mutex
	pipes  []*AudioPipeInfo
	logger zerolog.Logger
}

// NewAudioPipeManager creates an empty pipe registry.
func NewAudioPipeManager() *AudioPipeManager {
	return &AudioPipeManager{
		logger: logging.GetDefaultLogger().With().Str("component", "audio-pipe-manager").Logger(),
	}
}

// AddPipe registers a pipe.
func (m *AudioPipeManager) AddPipe(info *AudioPipeInfo) {
	if info == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipes = append(m.pipes, info)
	pipesOpenGauge.Set(float64(len(m.pipes)))
	m.logger.Debug().
		Str("adapter", info.AdapterName).
		Str("flag", info.RouteFlag.String()).
		Str("role", info.PipeRole.String()).
		Msg("pipe added")
}

// RemovePipe unregisters a pipe matched by compatibility key.
func (m *AudioPipeManager) RemovePipe(info *AudioPipeInfo) {
	if info == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pipes {
		if p.IsSamePipeAs(info) {
			m.pipes = append(m.pipes[:i], m.pipes[i+1:]...)
			pipesOpenGauge.Set(float64(len(m.pipes)))
			m.logger.Debug().Str("adapter", p.AdapterName).Str("flag", p.RouteFlag.String()).Msg("pipe removed")
			return
		}
	}
}

// RemovePipeByHandle unregisters the pipe holding the HAL handle.
func (m *AudioPipeManager) RemovePipeByHandle(id AudioIOHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pipes {
		if p.ID == id {
			m.pipes = append(m.pipes[:i], m.pipes[i+1:]...)
			pipesOpenGauge.Set(float64(len(m.pipes)))
			return
		}
	}
}

// UpdatePipe replaces the stored pipe matching the new pipe's key,
// preserving the open handle when the update carries none.
func (m *AudioPipeManager) UpdatePipe(newPipe *AudioPipeInfo) {
	if newPipe == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pipes {
		if p.IsSamePipeAs(newPipe) {
			if newPipe.ID == InvalidIOHandle {
				newPipe.ID = p.ID
				newPipe.PaIndex = p.PaIndex
			}
			m.pipes[i] = newPipe
			return
		}
	}
	m.pipes = append(m.pipes, newPipe)
	pipesOpenGauge.Set(float64(len(m.pipes)))
}

// GetPipes returns the live pipe list. Callers must not mutate entries
// outside a reconciliation pass.
func (m *AudioPipeManager) GetPipes() []*AudioPipeInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*AudioPipeInfo, len(m.pipes))
	copy(out, m.pipes)
	return out
}

// GetPipeByNameAndFlag finds the pipe with the compatibility key.
func (m *AudioPipeManager) GetPipeByNameAndFlag(adapterName string, flag AudioFlag) *AudioPipeInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if p.AdapterName == adapterName && p.RouteFlag == flag {
			return p
		}
	}
	return nil
}

// GetPipeByKey finds the pipe with the full compatibility key, including
// the role. Input and output pipes may share an adapter and flag.
func (m *AudioPipeManager) GetPipeByKey(adapterName string, flag AudioFlag, role PipeRole) *AudioPipeInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if p.AdapterName == adapterName && p.RouteFlag == flag && p.PipeRole == role {
			return p
		}
	}
	return nil
}

// DetachStreamIfMoved unbinds the session from any pipe whose key does
// not match the stream's new target. Same-key membership is left alone;
// the selector replaces it wholesale.
func (m *AudioPipeManager) DetachStreamIfMoved(sessionID uint32, adapterName string, flag AudioFlag) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if p.AdapterName == adapterName && p.RouteFlag == flag {
			continue
		}
		if idx := p.findStream(sessionID); idx >= 0 {
			p.StreamDescriptors = append(p.StreamDescriptors[:idx], p.StreamDescriptors[idx+1:]...)
		}
	}
}

// GetUnusedPipes returns pipes with no bound streams.
func (m *AudioPipeManager) GetUnusedPipes() []*AudioPipeInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AudioPipeInfo
	for _, p := range m.pipes {
		if len(p.StreamDescriptors) == 0 {
			out = append(out, p)
		}
	}
	return out
}

// StartClient marks the stream started in whichever pipe holds it.
func (m *AudioPipeManager) StartClient(sessionID uint32) {
	m.setStreamStatus(sessionID, StreamStatusStarted)
}

// PauseClient marks the stream paused.
func (m *AudioPipeManager) PauseClient(sessionID uint32) {
	m.setStreamStatus(sessionID, StreamStatusPaused)
}

// StopClient marks the stream stopped.
func (m *AudioPipeManager) StopClient(sessionID uint32) {
	m.setStreamStatus(sessionID, StreamStatusStopped)
}

// RemoveClient unbinds the stream from its pipe.
func (m *AudioPipeManager) RemoveClient(sessionID uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if idx := p.findStream(sessionID); idx >= 0 {
			p.StreamDescriptors = append(p.StreamDescriptors[:idx], p.StreamDescriptors[idx+1:]...)
			return
		}
	}
}

func (m *AudioPipeManager) setStreamStatus(sessionID uint32, status StreamStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if idx := p.findStream(sessionID); idx >= 0 {
			p.StreamDescriptors[idx].StreamStatus = status
			return
		}
	}
}

// GetStreamDescByID finds the stream descriptor bound under the session.
func (m *AudioPipeManager) GetStreamDescByID(sessionID uint32) *AudioStreamDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if idx := p.findStream(sessionID); idx >= 0 {
			return p.StreamDescriptors[idx]
		}
	}
	return nil
}

// GetAdapterNameBySessionID returns the adapter of the pipe holding the
// session, or "".
func (m *AudioPipeManager) GetAdapterNameBySessionID(sessionID uint32) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if p.findStream(sessionID) >= 0 {
			return p.AdapterName
		}
	}
	return ""
}

// GetAllOutputStreamDescs returns every playback stream across pipes.
func (m *AudioPipeManager) GetAllOutputStreamDescs() []*AudioStreamDescriptor {
	return m.streamsByRole(PipeRoleOutput)
}

// GetAllInputStreamDescs returns every capture stream across pipes.
func (m *AudioPipeManager) GetAllInputStreamDescs() []*AudioStreamDescriptor {
	return m.streamsByRole(PipeRoleInput)
}

func (m *AudioPipeManager) streamsByRole(role PipeRole) []*AudioStreamDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*AudioStreamDescriptor
	for _, p := range m.pipes {
		if p.PipeRole != role {
			continue
		}
		out = append(out, p.StreamDescriptors...)
	}
	return out
}

// GetStreamCount counts streams bound to the (adapter, flag) pipe.
func (m *AudioPipeManager) GetStreamCount(adapterName string, flag AudioFlag) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.pipes {
		if p.AdapterName == adapterName && p.RouteFlag == flag {
			return len(p.StreamDescriptors)
		}
	}
	return 0
}

// PcmOffloadSessionCount counts streams currently on low-power pipes.
func (m *AudioPipeManager) PcmOffloadSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, p := range m.pipes {
		if p.RouteFlag == FlagLowPower {
			count += len(p.StreamDescriptors)
		}
	}
	return count
}

// Dump writes a human-readable view of the pipe registry.
func (m *AudioPipeManager) Dump(sb *strings.Builder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(sb, "open pipes: %d\n", len(m.pipes))
	for _, p := range m.pipes {
		fmt.Fprintf(sb, "  adapter=%s flag=%s role=%s handle=%d streams=%d\n",
			p.AdapterName, p.RouteFlag, p.PipeRole, p.ID, len(p.StreamDescriptors))
		for _, s := range p.StreamDescriptors {
			fmt.Fprintf(sb, "    session=%d status=%s flag=%s\n", s.SessionID, s.StreamStatus, s.AudioFlag)
		}
	}
}
