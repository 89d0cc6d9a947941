package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// SceneChangeSink is notified when the highest-priority audio scene of a
// zone changes. The core service uses this to retrigger device fetch.
// Invoked outside the focus lock.
type SceneChangeSink interface {
	OnAudioSceneChanged(zoneID int32, scene AudioScene)
}

// AudioInterruptService owns the focus zones and computes every focus
// transition. All focus-list read-modify-write sequences run under one
// service-wide mutex held for the whole operation.
type AudioInterruptService struct {
	mu         sync.Mutex
	zones      map[int32]*AudioInterruptZone
	focusTable *FocusTable
	sessions   *AudioSessionService
	dispatcher *AudioEventDispatcher
	sceneSink  SceneChangeSink

	preemptMode  bool
	currentScene AudioScene

	logger zerolog.Logger
}

// NewAudioInterruptService creates the service with the default zone
// already present.
func NewAudioInterruptService(table *FocusTable, sessions *AudioSessionService, dispatcher *AudioEventDispatcher) *AudioInterruptService {
	s := &AudioInterruptService{
		zones:        make(map[int32]*AudioInterruptZone),
		focusTable:   table,
		sessions:     sessions,
		dispatcher:   dispatcher,
		currentScene: SceneDefault,
		logger:       logging.GetDefaultLogger().With().Str("component", "audio-interrupt").Logger(),
	}
	s.zones[DefaultZoneID] = newAudioInterruptZone(DefaultZoneID, LocalFocusStrategy)
	if sessions != nil {
		sessions.SetTimeoutCallback(s)
	}
	return s
}

// SetSceneChangeSink wires the core service in after construction.
func (s *AudioInterruptService) SetSceneChangeSink(sink SceneChangeSink) {
	s.mu.Lock()
	s.sceneSink = sink
	s.mu.Unlock()
}

// CreateAudioInterruptZone creates a new focus domain.
func (s *AudioInterruptService) CreateAudioInterruptZone(zoneID int32, strategy ZoneFocusStrategy) error {
	if zoneID < 0 {
		return ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zoneID]; ok {
		return nil
	}
	s.zones[zoneID] = newAudioInterruptZone(zoneID, strategy)
	s.logger.Info().Int32("zone", zoneID).Msg("interrupt zone created")
	return nil
}

// ReleaseAudioInterruptZone destroys a zone. The default zone cannot be
// released.
func (s *AudioInterruptService) ReleaseAudioInterruptZone(zoneID int32) error {
	if zoneID == DefaultZoneID {
		return ErrInvalidParam
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.zones[zoneID]; !ok {
		return ErrInvalidParam
	}
	delete(s.zones, zoneID)
	s.logger.Info().Int32("zone", zoneID).Msg("interrupt zone released")
	return nil
}

// SetAudioInterruptCallback registers the interrupt callback for a stream.
func (s *AudioInterruptService) SetAudioInterruptCallback(zoneID int32, streamID uint32, cb InterruptCallback) error {
	if cb == nil {
		return ErrNullPointer
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return ErrInvalidParam
	}
	zone.interruptCbs[streamID] = cb
	return nil
}

// UnsetAudioInterruptCallback removes a stream's interrupt callback.
func (s *AudioInterruptService) UnsetAudioInterruptCallback(zoneID int32, streamID uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return ErrInvalidParam
	}
	delete(zone.interruptCbs, streamID)
	return nil
}

// ActivatePreemptMode rejects every subsequent non-exempt activation until
// DeactivatePreemptMode is called.
func (s *AudioInterruptService) ActivatePreemptMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preemptMode = true
	s.logger.Info().Msg("preempt mode activated")
	return nil
}

// DeactivatePreemptMode ends preempt mode.
func (s *AudioInterruptService) DeactivatePreemptMode() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.preemptMode = false
	s.logger.Info().Msg("preempt mode deactivated")
	return nil
}

// pendingEvent is an interrupt notification resolved under the lock and
// delivered after it is released.
type pendingEvent struct {
	streamID uint32
	event    InterruptEvent
	callback InterruptCallback
}

// ActivateAudioInterrupt admits an interrupt into the zone's focus list,
// arbitrating against every existing holder. Admission is all-or-nothing:
// a rejection leaves the zone untouched.
func (s *AudioInterruptService) ActivateAudioInterrupt(zoneID int32, interrupt *AudioInterrupt, isUpdatedAudioStrategy bool) error {
	if interrupt == nil {
		return ErrNullPointer
	}
	s.mu.Lock()
	zone, ok := s.zones[zoneID]
	if !ok {
		s.mu.Unlock()
		return ErrInvalidParam
	}

	if s.preemptMode && !interrupt.ParallelPlayFlag {
		s.mu.Unlock()
		focusDeniedTotal.Inc()
		return ErrFocusDenied
	}

	var pending []pendingEvent
	var err error
	if interrupt.ParallelPlayFlag {
		// Exempt streams skip arbitration entirely.
		s.insertEntryLocked(zone, interrupt, FocusActive, isUpdatedAudioStrategy)
	} else {
		pending, err = s.processFocusEntryLocked(zone, interrupt, isUpdatedAudioStrategy)
		if err != nil {
			s.mu.Unlock()
			focusDeniedTotal.Inc()
			return err
		}
	}

	if s.sessions != nil && s.sessions.IsActivated(interrupt.PID) {
		// A real stream reclaims the session slot: drop the placeholder
		// and disarm the timeout.
		s.removePlaceholderLocked(zone, interrupt.PID)
		s.sessions.CancelTimeout(interrupt.PID)
	}

	sceneChanged, newScene := s.refreshSceneLocked(zone)
	focusSnapshot := zone.snapshot()
	s.mu.Unlock()

	focusActivationsTotal.Inc()
	s.logger.Info().
		Int32("zone", zoneID).
		Uint32("stream", interrupt.StreamID).
		Str("type", s.focusTypeString(interrupt.AudioFocusType)).
		Msg("interrupt activated")

	s.deliver(pending)
	s.dispatcher.Post(AudioEvent{Type: AudioEventFocusChanged, Data: FocusChangedData{ZoneID: zoneID, FocusList: focusSnapshot}})
	if sceneChanged {
		s.notifySceneChanged(zoneID, newScene)
	}
	return nil
}

// DeactivateAudioInterrupt abandons focus for an interrupt and resumes the
// entries that had been downgraded because of it.
func (s *AudioInterruptService) DeactivateAudioInterrupt(zoneID int32, interrupt *AudioInterrupt) error {
	return s.deactivateInternal(zoneID, interrupt, false)
}

func (s *AudioInterruptService) deactivateInternal(zoneID int32, interrupt *AudioInterrupt, isSessionTimeout bool) error {
	if interrupt == nil {
		return ErrNullPointer
	}
	s.mu.Lock()
	zone, ok := s.zones[zoneID]
	if !ok {
		s.mu.Unlock()
		return ErrInvalidParam
	}

	idx := zone.findEntry(interrupt)
	if idx < 0 {
		s.mu.Unlock()
		return ErrInvalidParam
	}
	departing := zone.FocusList[idx]
	zone.FocusList = append(zone.FocusList[:idx], zone.FocusList[idx+1:]...)

	// Keep the session alive briefly through a placeholder when the last
	// real stream of a session-owning pid leaves.
	if !isSessionTimeout && s.sessions != nil && s.sessions.IsActivated(departing.Interrupt.PID) &&
		!zone.hasEntryForPid(departing.Interrupt.PID) {
		placeholder := departing.Interrupt
		placeholder.ParallelPlayFlag = false
		zone.FocusList = append(zone.FocusList, FocusEntryPair{Interrupt: placeholder, State: FocusPlaceholder})
		s.sessions.ScheduleTimeout(departing.Interrupt.PID)
	}

	pending := s.resumeAudioFocusListLocked(zone)
	sceneChanged, newScene := s.refreshSceneLocked(zone)
	focusSnapshot := zone.snapshot()
	s.mu.Unlock()

	focusDeactivationsTotal.Inc()
	s.logger.Info().
		Int32("zone", zoneID).
		Uint32("stream", interrupt.StreamID).
		Bool("session_timeout", isSessionTimeout).
		Msg("interrupt deactivated")

	s.deliver(pending)
	s.dispatcher.Post(AudioEvent{Type: AudioEventFocusChanged, Data: FocusChangedData{ZoneID: zoneID, FocusList: focusSnapshot}})
	if sceneChanged {
		s.notifySceneChanged(zoneID, newScene)
	}
	return nil
}

// processFocusEntryLocked arbitrates the incoming interrupt against every
// existing focus holder. It either returns the events to deliver after the
// lock is released, or an error with the zone untouched.
func (s *AudioInterruptService) processFocusEntryLocked(zone *AudioInterruptZone, incoming *AudioInterrupt, isUpdatedAudioStrategy bool) ([]pendingEvent, error) {
	type effect struct {
		index int
		entry AudioFocusEntry
	}
	var effects []effect
	incomingState := FocusActive

	for i := range zone.FocusList {
		existing := &zone.FocusList[i]
		if existing.State == FocusPlaceholder {
			continue
		}
		if existing.Interrupt.Matches(incoming) {
			continue
		}
		entry, found := s.focusTable.Lookup(existing.Interrupt.AudioFocusType, incoming.AudioFocusType)
		if !found {
			continue
		}
		if s.overrideFocusEntryLocked(&existing.Interrupt, incoming, &entry) {
			continue
		}
		if entry.IsReject {
			s.logger.Info().
				Uint32("incoming", incoming.StreamID).
				Uint32("existing", existing.Interrupt.StreamID).
				Msg("focus denied by existing holder")
			return nil, ErrFocusDenied
		}
		effects = append(effects, effect{index: i, entry: entry})
	}

	// No rejection: apply every derived state change.
	var pending []pendingEvent
	for _, e := range effects {
		existing := &zone.FocusList[e.index]
		switch e.entry.ActionOn {
		case ActionOnCurrent:
			pending = append(pending, s.applyToExistingLocked(zone, existing, e.entry.HintType)...)
		case ActionOnIncoming:
			incomingState = strongerState(incomingState, stateForHint(e.entry.HintType))
		case ActionOnBoth:
			pending = append(pending, s.applyToExistingLocked(zone, existing, e.entry.HintType)...)
			incomingState = strongerState(incomingState, stateForHint(e.entry.HintType))
		}
	}

	s.insertEntryLocked(zone, incoming, incomingState, isUpdatedAudioStrategy)

	// Tell the incoming stream when it is not starting fully active.
	if incomingState != FocusActive {
		hint := hintForDowngrade(incomingState)
		pending = append(pending, pendingEvent{
			streamID: incoming.StreamID,
			event: InterruptEvent{
				EventType: InterruptTypeBegin,
				ForceType: InterruptForce,
				HintType:  hint,
				StreamID:  incoming.StreamID,
			},
			callback: zone.interruptCbs[incoming.StreamID],
		})
	}
	return pending, nil
}

// overrideFocusEntryLocked applies the dynamic overrides, in order. A true
// return means the pair coexists and the table entry is discarded.
func (s *AudioInterruptService) overrideFocusEntryLocked(existing, incoming *AudioInterrupt, entry *AudioFocusEntry) bool {
	// Some recording sources may coexist per the concurrency whitelist.
	if sourceConcurrencyAllowed(existing, incoming) {
		return true
	}
	// Active audio sessions with compatible concurrency modes mix instead
	// of following the table.
	if s.canMixForSessionLocked(existing, incoming) {
		return true
	}
	// Foreground game apps get a carve-out from ducking.
	if existing.IsGameApp && entry.HintType == HintDuck &&
		(entry.ActionOn == ActionOnCurrent || entry.ActionOn == ActionOnBoth) {
		return true
	}
	// Ducking a stream already at zero volume is a no-op.
	if existing.CurrentVolumeZero && entry.HintType == HintDuck &&
		(entry.ActionOn == ActionOnCurrent || entry.ActionOn == ActionOnBoth) {
		return true
	}
	return false
}

func (s *AudioInterruptService) canMixForSessionLocked(existing, incoming *AudioInterrupt) bool {
	if s.sessions == nil {
		return false
	}
	existingStrategy, ok := s.sessions.Strategy(existing.PID)
	if !ok {
		return false
	}
	incomingStrategy, ok := s.sessions.Strategy(incoming.PID)
	if !ok {
		return false
	}
	return existingStrategy.ConcurrencyMode == ConcurrencyMixWithOthers &&
		incomingStrategy.ConcurrencyMode == ConcurrencyMixWithOthers
}

// applyToExistingLocked downgrades an existing entry per the hint and
// stages the interrupt event for that stream.
func (s *AudioInterruptService) applyToExistingLocked(zone *AudioInterruptZone, existing *FocusEntryPair, hint InterruptHint) []pendingEvent {
	newState := strongerState(existing.State, stateForHint(hint))
	if newState == existing.State {
		return nil
	}
	existing.State = newState
	interruptEventsTotal.WithLabelValues(hint.String()).Inc()
	return []pendingEvent{{
		streamID: existing.Interrupt.StreamID,
		event: InterruptEvent{
			EventType:  InterruptTypeBegin,
			ForceType:  InterruptForce,
			HintType:   hintForDowngrade(newState),
			DuckVolume: duckVolumeForState(newState),
			StreamID:   existing.Interrupt.StreamID,
		},
		callback: zone.interruptCbs[existing.Interrupt.StreamID],
	}}
}

func (s *AudioInterruptService) insertEntryLocked(zone *AudioInterruptZone, interrupt *AudioInterrupt, state AudioFocusState, isUpdatedAudioStrategy bool) {
	if idx := zone.findEntry(interrupt); idx >= 0 {
		zone.FocusList[idx].Interrupt = *interrupt
		if !isUpdatedAudioStrategy {
			zone.FocusList[idx].State = state
		}
		return
	}
	zone.FocusList = append(zone.FocusList, FocusEntryPair{Interrupt: *interrupt, State: state})
}

// resumeAudioFocusListLocked recomputes every remaining entry's state by
// replaying activation for the whole list in recorded order. This is
// intentionally a full replay rather than an incremental undo: per-pair
// focus-table lookups are not associative across three or more interrupts.
func (s *AudioInterruptService) resumeAudioFocusListLocked(zone *AudioInterruptZone) []pendingEvent {
	simulated := s.simulateFocusEntryLocked(zone)
	var pending []pendingEvent
	for i := range zone.FocusList {
		oldState := zone.FocusList[i].State
		newState := simulated[i]
		if oldState == newState || oldState == FocusPlaceholder {
			continue
		}
		zone.FocusList[i].State = newState
		hint := hintForTransition(oldState, newState)
		if hint == HintNone {
			continue
		}
		interruptEventsTotal.WithLabelValues(hint.String()).Inc()
		eventType := InterruptTypeEnd
		if stateRank(newState) > stateRank(oldState) {
			eventType = InterruptTypeBegin
		}
		pending = append(pending, pendingEvent{
			streamID: zone.FocusList[i].Interrupt.StreamID,
			event: InterruptEvent{
				EventType:  eventType,
				ForceType:  InterruptForce,
				HintType:   hint,
				DuckVolume: duckVolumeForState(newState),
				StreamID:   zone.FocusList[i].Interrupt.StreamID,
			},
			callback: zone.interruptCbs[zone.FocusList[i].Interrupt.StreamID],
		})
	}
	return pending
}

// simulateFocusEntryLocked computes the state every entry would have if
// the current list were activated from scratch in its recorded order.
func (s *AudioInterruptService) simulateFocusEntryLocked(zone *AudioInterruptZone) []AudioFocusState {
	states := make([]AudioFocusState, len(zone.FocusList))
	for i := range zone.FocusList {
		incoming := &zone.FocusList[i].Interrupt
		if zone.FocusList[i].State == FocusPlaceholder {
			states[i] = FocusPlaceholder
			continue
		}
		if incoming.ParallelPlayFlag {
			states[i] = FocusActive
			continue
		}
		states[i] = FocusActive
		for j := 0; j < i; j++ {
			existing := &zone.FocusList[j].Interrupt
			if states[j] == FocusPlaceholder {
				continue
			}
			entry, found := s.focusTable.Lookup(existing.AudioFocusType, incoming.AudioFocusType)
			if !found {
				continue
			}
			if s.overrideFocusEntryLocked(existing, incoming, &entry) {
				continue
			}
			if entry.IsReject {
				// Survivors cannot reject each other under normal flow;
				// treat a residual reject as pausing the later arrival.
				states[i] = strongerState(states[i], FocusPause)
				continue
			}
			switch entry.ActionOn {
			case ActionOnCurrent:
				states[j] = strongerState(states[j], stateForHint(entry.HintType))
			case ActionOnIncoming:
				states[i] = strongerState(states[i], stateForHint(entry.HintType))
			case ActionOnBoth:
				states[j] = strongerState(states[j], stateForHint(entry.HintType))
				states[i] = strongerState(states[i], stateForHint(entry.HintType))
			}
		}
	}
	return states
}

// OnSessionTimeout implements SessionTimeoutCallback. It removes any
// remaining placeholder for the pid and deactivates the session.
func (s *AudioInterruptService) OnSessionTimeout(pid int32) {
	s.mu.Lock()
	type removal struct {
		zoneID    int32
		interrupt AudioInterrupt
	}
	var removals []removal
	for zoneID, zone := range s.zones {
		if idx := zone.placeholderIndexForPid(pid); idx >= 0 {
			removals = append(removals, removal{zoneID: zoneID, interrupt: zone.FocusList[idx].Interrupt})
		}
	}
	s.mu.Unlock()

	for _, r := range removals {
		if err := s.deactivateInternal(r.zoneID, &r.interrupt, true); err != nil {
			s.logger.Warn().Err(err).Int32("pid", pid).Msg("placeholder removal on timeout failed")
		}
	}
	if s.sessions != nil {
		if err := s.sessions.Deactivate(pid); err != nil {
			s.logger.Debug().Err(err).Int32("pid", pid).Msg("session already gone on timeout")
		}
	}
	s.dispatcher.Post(AudioEvent{Type: AudioEventSessionDeactivate, Data: map[string]int32{"pid": pid}})
}

// ActivateAudioSession activates a session for the pid.
func (s *AudioInterruptService) ActivateAudioSession(pid int32, strategy SessionStrategy) error {
	if s.sessions == nil {
		return ErrNullPointer
	}
	if err := s.sessions.Activate(pid, strategy); err != nil {
		return err
	}
	// If the pid has no current stream, the session starts on borrowed
	// time until a real stream arrives.
	s.mu.Lock()
	hasStream := false
	for _, zone := range s.zones {
		if zone.hasEntryForPid(pid) {
			hasStream = true
			break
		}
	}
	s.mu.Unlock()
	if !hasStream {
		s.sessions.ScheduleTimeout(pid)
	}
	return nil
}

// DeactivateAudioSession deactivates the pid's session and removes its
// placeholder, if any.
func (s *AudioInterruptService) DeactivateAudioSession(pid int32) error {
	if s.sessions == nil {
		return ErrNullPointer
	}
	s.mu.Lock()
	type removal struct {
		zoneID    int32
		interrupt AudioInterrupt
	}
	var removals []removal
	for zoneID, zone := range s.zones {
		if idx := zone.placeholderIndexForPid(pid); idx >= 0 {
			removals = append(removals, removal{zoneID: zoneID, interrupt: zone.FocusList[idx].Interrupt})
		}
	}
	s.mu.Unlock()
	for _, r := range removals {
		if err := s.deactivateInternal(r.zoneID, &r.interrupt, true); err != nil {
			s.logger.Warn().Err(err).Int32("pid", pid).Msg("placeholder removal failed")
		}
	}
	return s.sessions.Deactivate(pid)
}

// IsAudioSessionActivated reports whether the pid has an active session.
func (s *AudioInterruptService) IsAudioSessionActivated(pid int32) bool {
	return s.sessions != nil && s.sessions.IsActivated(pid)
}

// GetAudioFocusInfoList returns a snapshot of a zone's focus list.
func (s *AudioInterruptService) GetAudioFocusInfoList(zoneID int32) ([]FocusEntryPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return nil, ErrInvalidParam
	}
	return zone.snapshot(), nil
}

// AudioInterruptIsActiveInFocusList reports whether the stream currently
// holds active focus in the zone.
func (s *AudioInterruptService) AudioInterruptIsActiveInFocusList(zoneID int32, streamID uint32) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return false
	}
	for i := range zone.FocusList {
		if zone.FocusList[i].Interrupt.StreamID == streamID && zone.FocusList[i].State == FocusActive {
			return true
		}
	}
	return false
}

// GetStreamInFocus returns the stream type of the most recent active
// playback entry in the zone.
func (s *AudioInterruptService) GetStreamInFocus(zoneID int32) AudioStreamType {
	return s.GetStreamInFocusByUid(zoneID, -1)
}

// GetStreamInFocusByUid is GetStreamInFocus restricted to one uid.
// A uid of -1 matches every entry.
func (s *AudioInterruptService) GetStreamInFocusByUid(zoneID int32, uid int32) AudioStreamType {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return StreamDefault
	}
	for i := len(zone.FocusList) - 1; i >= 0; i-- {
		e := &zone.FocusList[i]
		if e.State != FocusActive || !e.Interrupt.AudioFocusType.IsPlay {
			continue
		}
		if uid >= 0 && e.Interrupt.UID != uid {
			continue
		}
		return e.Interrupt.AudioFocusType.StreamType
	}
	return StreamDefault
}

// GetSessionInfoInFocus returns the most recent active interrupt in the
// zone, playback or capture.
func (s *AudioInterruptService) GetSessionInfoInFocus(zoneID int32) (*AudioInterrupt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return nil, ErrInvalidParam
	}
	for i := len(zone.FocusList) - 1; i >= 0; i-- {
		if zone.FocusList[i].State == FocusActive {
			interrupt := zone.FocusList[i].Interrupt
			return &interrupt, nil
		}
	}
	return nil, ErrNotStarted
}

// ClearAudioFocusInfoList clears every zone, notifying stop to each
// holder. Used on account switch.
func (s *AudioInterruptService) ClearAudioFocusInfoList() error {
	s.mu.Lock()
	var pending []pendingEvent
	for _, zone := range s.zones {
		for i := range zone.FocusList {
			if zone.FocusList[i].State == FocusPlaceholder {
				continue
			}
			pending = append(pending, pendingEvent{
				streamID: zone.FocusList[i].Interrupt.StreamID,
				event: InterruptEvent{
					EventType: InterruptTypeBegin,
					ForceType: InterruptForce,
					HintType:  HintStop,
					StreamID:  zone.FocusList[i].Interrupt.StreamID,
				},
				callback: zone.interruptCbs[zone.FocusList[i].Interrupt.StreamID],
			})
		}
		zone.FocusList = nil
	}
	s.mu.Unlock()
	s.deliver(pending)
	return nil
}

// GetHighestPriorityAudioScene derives the zone's scene from its active
// entries.
func (s *AudioInterruptService) GetHighestPriorityAudioScene(zoneID int32) AudioScene {
	s.mu.Lock()
	defer s.mu.Unlock()
	zone, ok := s.zones[zoneID]
	if !ok {
		return SceneDefault
	}
	return sceneForFocusList(zone.FocusList)
}

func (s *AudioInterruptService) refreshSceneLocked(zone *AudioInterruptZone) (bool, AudioScene) {
	if zone.ZoneID != DefaultZoneID {
		return false, s.currentScene
	}
	scene := sceneForFocusList(zone.FocusList)
	if scene == s.currentScene {
		return false, scene
	}
	s.currentScene = scene
	return true, scene
}

func sceneForFocusList(list []FocusEntryPair) AudioScene {
	scene := SceneDefault
	for i := range list {
		e := &list[i]
		if e.State != FocusActive && e.State != FocusDuck {
			continue
		}
		ft := e.Interrupt.AudioFocusType
		switch {
		case ft.IsPlay && ft.StreamType == StreamVoiceCall,
			!ft.IsPlay && ft.SourceType == SourceVoiceCall:
			return ScenePhoneCall
		case ft.IsPlay && ft.StreamType == StreamVoiceCommunication,
			!ft.IsPlay && ft.SourceType == SourceVoiceCommunication:
			scene = ScenePhoneChat
		case ft.IsPlay && ft.StreamType == StreamRing && scene == SceneDefault:
			scene = SceneRinging
		}
	}
	return scene
}

func (s *AudioInterruptService) notifySceneChanged(zoneID int32, scene AudioScene) {
	s.mu.Lock()
	sink := s.sceneSink
	s.mu.Unlock()
	s.dispatcher.Post(AudioEvent{Type: AudioEventSceneChanged, Data: SceneChangedData{Scene: scene}})
	if sink != nil {
		sink.OnAudioSceneChanged(zoneID, scene)
	}
}

func (s *AudioInterruptService) deliver(pending []pendingEvent) {
	for _, p := range pending {
		p := p
		s.dispatcher.PostCallback(
			AudioEvent{Type: AudioEventInterrupt, Data: p.event},
			func() {
				if p.callback != nil {
					p.callback.OnInterrupt(p.event)
				}
			},
		)
	}
}

func (s *AudioInterruptService) removePlaceholderLocked(zone *AudioInterruptZone, pid int32) {
	if idx := zone.placeholderIndexForPid(pid); idx >= 0 {
		zone.FocusList = append(zone.FocusList[:idx], zone.FocusList[idx+1:]...)
	}
}

func (s *AudioInterruptService) focusTypeString(t AudioFocusType) string {
	if t.IsPlay {
		return t.StreamType.String()
	}
	return "source:" + t.SourceType.String()
}

// Dump writes a human-readable view of every zone for the debug surface.
func (s *AudioInterruptService) Dump(sb *strings.Builder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(sb, "interrupt zones: %d (scene=%s, preempt=%v)\n", len(s.zones), s.currentScene, s.preemptMode)
	for zoneID, zone := range s.zones {
		fmt.Fprintf(sb, "  zone %d (%d entries)\n", zoneID, len(zone.FocusList))
		for i := range zone.FocusList {
			e := &zone.FocusList[i]
			fmt.Fprintf(sb, "    stream=%d pid=%d type=%s state=%s\n",
				e.Interrupt.StreamID, e.Interrupt.PID,
				s.focusTypeString(e.Interrupt.AudioFocusType), e.State)
		}
	}
}

// stateRank orders focus states by severity; larger is more restrictive.
func stateRank(s AudioFocusState) int {
	switch s {
	case FocusActive:
		return 0
	case FocusDuck:
		return 1
	case FocusPause:
		return 2
	case FocusStop:
		return 3
	default:
		return 4
	}
}

func strongerState(a, b AudioFocusState) AudioFocusState {
	if stateRank(b) > stateRank(a) {
		return b
	}
	return a
}

func stateForHint(hint InterruptHint) AudioFocusState {
	switch hint {
	case HintDuck:
		return FocusDuck
	case HintPause:
		return FocusPause
	case HintStop, HintMute:
		return FocusStop
	default:
		return FocusActive
	}
}

// hintForDowngrade translates a state downgrade into the hint delivered to
// the affected stream.
func hintForDowngrade(newState AudioFocusState) InterruptHint {
	switch newState {
	case FocusDuck:
		return HintDuck
	case FocusPause:
		return HintPause
	case FocusStop:
		return HintStop
	default:
		return HintNone
	}
}

// hintForTransition covers both directions for the resume replay.
func hintForTransition(oldState, newState AudioFocusState) InterruptHint {
	if stateRank(newState) > stateRank(oldState) {
		return hintForDowngrade(newState)
	}
	switch {
	case oldState == FocusDuck && newState == FocusActive:
		return HintUnduck
	case oldState == FocusPause && newState == FocusActive:
		return HintResume
	case oldState == FocusStop && newState == FocusActive:
		return HintResume
	case oldState == FocusPause && newState == FocusDuck:
		return HintResume
	case oldState == FocusStop && newState == FocusDuck:
		return HintResume
	case oldState == FocusStop && newState == FocusPause:
		return HintNone
	default:
		return HintNone
	}
}

func duckVolumeForState(s AudioFocusState) float64 {
	if s == FocusDuck {
		return DuckFactor
	}
	return 0
}
