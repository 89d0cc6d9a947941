package audio

// focusPair keys the focus configuration table by (existing, incoming)
// focus types.
type focusPair struct {
	existing AudioFocusType
	incoming AudioFocusType
}

// FocusTable resolves the effect an incoming interrupt has on an existing
// focus holder. Pairs absent from the table coexist without effect.
type FocusTable struct {
	entries map[focusPair]AudioFocusEntry
}

func playType(t AudioStreamType) AudioFocusType {
	return AudioFocusType{StreamType: t, SourceType: SourceInvalid, IsPlay: true}
}

func recordType(s SourceType) AudioFocusType {
	return AudioFocusType{StreamType: StreamDefault, SourceType: s, IsPlay: false}
}

// normalizeFocusType zeroes the field that is not meaningful for the
// direction, so lookups are insensitive to stray values.
func normalizeFocusType(t AudioFocusType) AudioFocusType {
	if t.IsPlay {
		t.SourceType = SourceInvalid
		return t
	}
	t.StreamType = StreamDefault
	return t
}

func (ft *FocusTable) put(existing, incoming AudioFocusType, entry AudioFocusEntry) {
	ft.entries[focusPair{existing: existing, incoming: incoming}] = entry
}

// Lookup returns the configured entry for (existing, incoming) and whether
// one exists. A missing entry means the pair coexists untouched.
func (ft *FocusTable) Lookup(existing, incoming AudioFocusType) (AudioFocusEntry, bool) {
	e, ok := ft.entries[focusPair{
		existing: normalizeFocusType(existing),
		incoming: normalizeFocusType(incoming),
	}]
	return e, ok
}

func pauseCurrent() AudioFocusEntry {
	return AudioFocusEntry{ActionOn: ActionOnCurrent, HintType: HintPause, ForceType: InterruptForce}
}

func duckCurrent() AudioFocusEntry {
	return AudioFocusEntry{ActionOn: ActionOnCurrent, HintType: HintDuck, ForceType: InterruptForce, ForceDuck: true}
}

func stopCurrent() AudioFocusEntry {
	return AudioFocusEntry{ActionOn: ActionOnCurrent, HintType: HintStop, ForceType: InterruptForce}
}

func duckIncoming() AudioFocusEntry {
	return AudioFocusEntry{ActionOn: ActionOnIncoming, HintType: HintDuck, ForceType: InterruptForce, ForceDuck: true}
}

func pauseIncoming() AudioFocusEntry {
	return AudioFocusEntry{ActionOn: ActionOnIncoming, HintType: HintPause, ForceType: InterruptForce}
}

func rejectIncoming() AudioFocusEntry {
	return AudioFocusEntry{ActionOn: ActionOnIncoming, HintType: HintNone, ForceType: InterruptForce, IsReject: true}
}

// DefaultFocusTable builds the built-in focus policy. The shape mirrors the
// platform focus configuration: calls preempt media, rings duck media,
// alarms coexist with calls at reduced volume, concurrent default capture
// is rejected.
func DefaultFocusTable() *FocusTable {
	ft := &FocusTable{entries: make(map[focusPair]AudioFocusEntry)}

	media := []AudioStreamType{StreamMusic, StreamMovie, StreamGame, StreamSpeech, StreamNavigation}

	for _, m := range media {
		// Calls pause media; media arriving during a call starts ducked.
		ft.put(playType(m), playType(StreamVoiceCall), pauseCurrent())
		ft.put(playType(StreamVoiceCall), playType(m), duckIncoming())
		ft.put(playType(m), playType(StreamVoiceCommunication), pauseCurrent())
		ft.put(playType(StreamVoiceCommunication), playType(m), duckIncoming())

		// Rings duck media both ways depending on arrival order.
		ft.put(playType(m), playType(StreamRing), duckCurrent())
		ft.put(playType(StreamRing), playType(m), pauseIncoming())

		// Alarms duck media.
		ft.put(playType(m), playType(StreamAlarm), duckCurrent())
		ft.put(playType(StreamAlarm), playType(m), duckIncoming())

		// Voice assistant pauses media and resumes it afterwards.
		ft.put(playType(m), playType(StreamVoiceAssistant), pauseCurrent())
		ft.put(playType(StreamVoiceAssistant), playType(m), pauseIncoming())
	}

	// A second media stream stops the first one.
	for _, existing := range media {
		for _, incoming := range media {
			ft.put(playType(existing), playType(incoming), stopCurrent())
		}
	}

	// Ring yields to the call it announces.
	ft.put(playType(StreamRing), playType(StreamVoiceCall), stopCurrent())
	// A second call is rejected while one is active.
	ft.put(playType(StreamVoiceCall), playType(StreamVoiceCall), rejectIncoming())
	ft.put(playType(StreamVoiceCall), playType(StreamRing), rejectIncoming())
	// Alarm during a call is ducked rather than silenced.
	ft.put(playType(StreamVoiceCall), playType(StreamAlarm), duckIncoming())
	ft.put(playType(StreamAlarm), playType(StreamVoiceCall), stopCurrent())
	// Notifications duck whatever they land on.
	for _, m := range media {
		ft.put(playType(m), playType(StreamNotification), duckCurrent())
	}
	ft.put(playType(StreamVoiceCall), playType(StreamNotification), rejectIncoming())

	// Capture arbitration: default sources are exclusive unless a
	// concurrency whitelist allows the pair (checked dynamically).
	exclusiveSources := []SourceType{SourceMic, SourceVoiceRecognition, SourceCamcorder, SourceUnprocessed, SourceLiveStream}
	for _, existing := range exclusiveSources {
		for _, incoming := range exclusiveSources {
			ft.put(recordType(existing), recordType(incoming), rejectIncoming())
		}
	}
	// Voice-call capture preempts ordinary capture and rejects newcomers.
	for _, s := range exclusiveSources {
		ft.put(recordType(s), recordType(SourceVoiceCall), stopCurrent())
		ft.put(recordType(SourceVoiceCall), recordType(s), rejectIncoming())
		ft.put(recordType(s), recordType(SourceVoiceCommunication), stopCurrent())
		ft.put(recordType(SourceVoiceCommunication), recordType(s), rejectIncoming())
	}

	// A call playback rejects plain capture starting mid-call, except the
	// call's own capture leg.
	for _, s := range exclusiveSources {
		ft.put(playType(StreamVoiceCall), recordType(s), rejectIncoming())
	}

	return ft
}

// sourceConcurrencyAllowed reports whether two capture sources may coexist
// per the declared concurrency whitelists of either side.
func sourceConcurrencyAllowed(existing, incoming *AudioInterrupt) bool {
	if existing.AudioFocusType.IsPlay || incoming.AudioFocusType.IsPlay {
		return false
	}
	exist := existing.AudioFocusType.SourceType
	in := incoming.AudioFocusType.SourceType
	for _, s := range existing.ConcurrentSources {
		if s == in {
			return true
		}
	}
	for _, s := range incoming.ConcurrentSources {
		if s == exist {
			return true
		}
	}
	// Wakeup and ultrasonic capture never contend with anything.
	if exist == SourceWakeup || in == SourceWakeup ||
		exist == SourceUltrasonic || in == SourceUltrasonic {
		return true
	}
	return false
}
