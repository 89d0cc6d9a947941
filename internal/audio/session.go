package audio

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// SessionTimeoutCallback is invoked on the timer goroutine when a session's
// grace period elapses with no real stream reclaiming the slot.
type SessionTimeoutCallback interface {
	OnSessionTimeout(pid int32)
}

// AudioSession is the per-process grouping with a concurrency strategy. It
// outlives any single stream and dies on explicit deactivation or timeout.
type AudioSession struct {
	Pid         int32           `json:"pid"`
	Strategy    SessionStrategy `json:"strategy"`
	ActivatedAt time.Time       `json:"activated_at"`

	timer clockwork.Timer
}

// AudioSessionService tracks active audio sessions per pid and arms the
// single-shot timeout timer that eventually evicts placeholder interrupts.
type AudioSessionService struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	sessions map[int32]*AudioSession
	timeout  time.Duration
	callback SessionTimeoutCallback
	logger   zerolog.Logger
}

// NewAudioSessionService creates a session service. The clock is injected
// so tests can drive timeouts deterministically.
func NewAudioSessionService(clock clockwork.Clock, timeout time.Duration) *AudioSessionService {
	return &AudioSessionService{
		clock:    clock,
		sessions: make(map[int32]*AudioSession),
		timeout:  timeout,
		logger:   logging.GetDefaultLogger().With().Str("component", "audio-session").Logger(),
	}
}

// SetTimeoutCallback registers the interrupt service as the timeout sink.
func (s *AudioSessionService) SetTimeoutCallback(cb SessionTimeoutCallback) {
	s.mu.Lock()
	s.callback = cb
	s.mu.Unlock()
}

// Activate creates or refreshes the session for the pid.
func (s *AudioSessionService) Activate(pid int32, strategy SessionStrategy) error {
	if pid < 0 {
		return ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.sessions[pid]; ok {
		existing.Strategy = strategy
		s.stopTimerLocked(existing)
		s.logger.Debug().Int32("pid", pid).Str("strategy", strategy.ConcurrencyMode.String()).Msg("session strategy updated")
		return nil
	}
	s.sessions[pid] = &AudioSession{
		Pid:         pid,
		Strategy:    strategy,
		ActivatedAt: s.clock.Now(),
	}
	s.logger.Info().Int32("pid", pid).Str("strategy", strategy.ConcurrencyMode.String()).Msg("session activated")
	return nil
}

// Deactivate removes the session for the pid.
func (s *AudioSessionService) Deactivate(pid int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[pid]
	if !ok {
		return ErrInvalidParam
	}
	s.stopTimerLocked(session)
	delete(s.sessions, pid)
	s.logger.Info().Int32("pid", pid).Msg("session deactivated")
	return nil
}

// IsActivated reports whether the pid has an active session.
func (s *AudioSessionService) IsActivated(pid int32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[pid]
	return ok
}

// Strategy returns the session strategy for the pid, if any.
func (s *AudioSessionService) Strategy(pid int32) (SessionStrategy, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[pid]
	if !ok {
		return SessionStrategy{}, false
	}
	return session.Strategy, true
}

// ScheduleTimeout arms the session's single-shot timer. Arming again
// replaces the previous timer. This is the only path that later removes a
// placeholder interrupt automatically.
func (s *AudioSessionService) ScheduleTimeout(pid int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[pid]
	if !ok {
		return
	}
	s.stopTimerLocked(session)
	session.timer = s.clock.AfterFunc(s.timeout, func() {
		s.fireTimeout(pid)
	})
	s.logger.Debug().Int32("pid", pid).Dur("timeout", s.timeout).Msg("session timeout armed")
}

// CancelTimeout disarms the timer when a real stream reclaims the slot.
func (s *AudioSessionService) CancelTimeout(pid int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[pid]; ok {
		s.stopTimerLocked(session)
	}
}

// Sessions returns a snapshot of active sessions for dump output.
func (s *AudioSessionService) Sessions() []AudioSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AudioSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, *session)
	}
	return out
}

func (s *AudioSessionService) fireTimeout(pid int32) {
	s.mu.Lock()
	session, ok := s.sessions[pid]
	if ok {
		session.timer = nil
	}
	cb := s.callback
	s.mu.Unlock()
	if !ok || cb == nil {
		return
	}
	s.logger.Info().Int32("pid", pid).Msg("session timed out")
	cb.OnSessionTimeout(pid)
}

func (s *AudioSessionService) stopTimerLocked(session *AudioSession) {
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
}
