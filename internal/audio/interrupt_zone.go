package audio

// ZoneFocusStrategy selects how a zone arbitrates focus.
type ZoneFocusStrategy int

const (
	LocalFocusStrategy ZoneFocusStrategy = iota
	DistributedFocusStrategy
)

// DefaultZoneID is the always-present focus domain.
const DefaultZoneID int32 = 0

// InterruptCallback receives interrupt events for a registered stream.
// Callbacks are invoked from the event dispatcher goroutine, never from
// inside the focus lock.
type InterruptCallback interface {
	OnInterrupt(event InterruptEvent)
}

// AudioInterruptZone is one isolated focus domain. All mutation happens
// under the owning service's lock; the zone itself carries no locking.
type AudioInterruptZone struct {
	ZoneID        int32
	FocusStrategy ZoneFocusStrategy

	// FocusList order encodes recency; new entries are placed per
	// arbitration outcome, not always at the tail.
	FocusList []FocusEntryPair

	interruptCbs map[uint32]InterruptCallback
}

func newAudioInterruptZone(zoneID int32, strategy ZoneFocusStrategy) *AudioInterruptZone {
	return &AudioInterruptZone{
		ZoneID:        zoneID,
		FocusStrategy: strategy,
		interruptCbs:  make(map[uint32]InterruptCallback),
	}
}

// findEntry returns the index of the entry matching the interrupt by
// stream/session id, or -1.
func (z *AudioInterruptZone) findEntry(interrupt *AudioInterrupt) int {
	for i := range z.FocusList {
		if z.FocusList[i].Interrupt.Matches(interrupt) {
			return i
		}
	}
	return -1
}

// hasEntryForPid reports whether any entry belongs to the pid.
func (z *AudioInterruptZone) hasEntryForPid(pid int32) bool {
	for i := range z.FocusList {
		if z.FocusList[i].Interrupt.PID == pid {
			return true
		}
	}
	return false
}

// placeholderIndexForPid returns the index of the pid's placeholder entry,
// or -1.
func (z *AudioInterruptZone) placeholderIndexForPid(pid int32) int {
	for i := range z.FocusList {
		if z.FocusList[i].Interrupt.PID == pid && z.FocusList[i].State == FocusPlaceholder {
			return i
		}
	}
	return -1
}

// snapshot returns a copy of the focus list for lock-free consumption.
func (z *AudioInterruptZone) snapshot() []FocusEntryPair {
	out := make([]FocusEntryPair, len(z.FocusList))
	copy(out, z.FocusList)
	return out
}
