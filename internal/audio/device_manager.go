package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// deviceBucket names one classification vector in the registry.
type deviceBucket int

const (
	bucketRemoteRender deviceBucket = iota
	bucketRemoteCapture
	bucketCommRenderPrivacy
	bucketCommRenderPublic
	bucketCommCapturePrivacy
	bucketCommCapturePublic
	bucketMediaRenderPrivacy
	bucketMediaRenderPublic
	bucketMediaCapturePrivacy
	bucketMediaCapturePublic
	bucketCapturePrivacy
	bucketCapturePublic
	bucketCount
)

// DeviceInfoUpdateCommand selects which descriptor field an update event
// carries.
type DeviceInfoUpdateCommand int

const (
	UpdateCategory DeviceInfoUpdateCommand = iota
	UpdateEnable
	UpdateExceptionFlag
	UpdateConnectState
)

// AudioDeviceManager owns the connected-device set, classifies each
// device against the privacy table, and maintains the default device
// singletons and paired-device cross references.
type AudioDeviceManager struct {
	mu           sync.Mutex
	connected    []*AudioDeviceDescriptor
	buckets      [bucketCount][]*AudioDeviceDescriptor
	privacyTable map[DeviceType]DevicePrivacyInfo

	earpiece   *AudioDeviceDescriptor
	speaker    *AudioDeviceDescriptor
	defaultMic *AudioDeviceDescriptor

	nextDeviceID uint32
	clock        clockwork.Clock
	logger       zerolog.Logger
}

// NewAudioDeviceManager creates a registry seeded with the built-in
// default devices. Connect timestamps come from the given clock.
func NewAudioDeviceManager(clock clockwork.Clock) *AudioDeviceManager {
	m := &AudioDeviceManager{
		clock:        clock,
		privacyTable: defaultDevicePrivacyTable(),
		earpiece:     newDefaultDevice(DeviceTypeEarpiece, DeviceRoleOutput),
		speaker:      newDefaultDevice(DeviceTypeSpeaker, DeviceRoleOutput),
		defaultMic:   newDefaultDevice(DeviceTypeMic, DeviceRoleInput),
		nextDeviceID: 1,
		logger:       logging.GetDefaultLogger().With().Str("component", "audio-device-manager").Logger(),
	}
	m.earpiece.DeviceID = m.allocateIDLocked()
	m.speaker.DeviceID = m.allocateIDLocked()
	m.defaultMic.DeviceID = m.allocateIDLocked()
	return m
}

func (m *AudioDeviceManager) allocateIDLocked() uint32 {
	id := m.nextDeviceID
	m.nextDeviceID++
	return id
}

// AddNewDevice inserts a device or updates the existing record when the
// same device (by type/network/role/mac) is already connected.
func (m *AudioDeviceManager) AddNewDevice(desc *AudioDeviceDescriptor) error {
	if desc == nil {
		return ErrNullPointer
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing := m.findLocked(desc); existing != nil {
		// Already connected: refresh in place, keep identity.
		id := existing.DeviceID
		*existing = *desc
		existing.DeviceID = id
		if existing.ConnectTimeStamp.IsZero() {
			existing.ConnectTimeStamp = m.clock.Now()
		}
		m.rebuildBucketsLocked()
		m.logger.Debug().Str("type", desc.DeviceType.String()).Msg("device already connected, refreshed")
		return nil
	}

	d := desc.Clone()
	d.DeviceID = m.allocateIDLocked()
	if d.ConnectTimeStamp.IsZero() {
		d.ConnectTimeStamp = m.clock.Now()
	}
	m.connected = append(m.connected, d)
	m.makePairedDescriptorLocked(d)
	m.rebuildBucketsLocked()
	deviceConnectsTotal.Inc()
	connectedDevicesGauge.Set(float64(len(m.connected)))
	m.logger.Info().
		Str("type", d.DeviceType.String()).
		Str("role", d.DeviceRole.String()).
		Str("mac", d.MacAddress).
		Msg("device connected")
	return nil
}

// RemoveDevice removes a device matched by connection identity.
func (m *AudioDeviceManager) RemoveDevice(desc *AudioDeviceDescriptor) error {
	if desc == nil {
		return ErrNullPointer
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.connected {
		if d.IsSameDeviceAs(desc) {
			m.clearPairingLocked(d)
			m.connected = append(m.connected[:i], m.connected[i+1:]...)
			m.rebuildBucketsLocked()
			deviceDisconnectsTotal.Inc()
			connectedDevicesGauge.Set(float64(len(m.connected)))
			m.logger.Info().Str("type", d.DeviceType.String()).Str("mac", d.MacAddress).Msg("device disconnected")
			return nil
		}
	}
	return ErrDeviceNotFound
}

// UpdateDeviceInfo applies one field update in place. Connect-state
// updates of a SCO device transition the mac-paired A2DP device at the
// same time; the two records are never updated independently.
func (m *AudioDeviceManager) UpdateDeviceInfo(desc *AudioDeviceDescriptor, command DeviceInfoUpdateCommand) error {
	if desc == nil {
		return ErrNullPointer
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	target := m.findLocked(desc)
	if target == nil {
		return ErrDeviceNotFound
	}
	switch command {
	case UpdateCategory:
		target.Category = desc.Category
	case UpdateEnable:
		target.Enabled = desc.Enabled
	case UpdateExceptionFlag:
		target.ExceptionFlag = desc.ExceptionFlag
	case UpdateConnectState:
		target.ConnectState = desc.ConnectState
		if target.DeviceType == DeviceTypeBluetoothSco {
			m.syncPairedA2dpStateLocked(target)
		}
	default:
		return ErrInvalidParam
	}
	m.rebuildBucketsLocked()
	return nil
}

// SetDeviceExceptionFlag marks a device exceptional after an activation
// failure so the next fetch skips it.
func (m *AudioDeviceManager) SetDeviceExceptionFlag(desc *AudioDeviceDescriptor, exceptional bool) error {
	update := desc.Clone()
	update.ExceptionFlag = exceptional
	return m.UpdateDeviceInfo(update, UpdateExceptionFlag)
}

// syncPairedA2dpStateLocked enforces the SCO/A2DP invariant: SCO
// connecting suspends A2DP on the same mac, SCO deactivating restores it.
func (m *AudioDeviceManager) syncPairedA2dpStateLocked(sco *AudioDeviceDescriptor) {
	for _, d := range m.connected {
		if d.DeviceType != DeviceTypeBluetoothA2dp || d.MacAddress != sco.MacAddress {
			continue
		}
		switch sco.ConnectState {
		case ConnectStateConnected:
			d.ConnectState = ConnectStateSuspendConnected
		case ConnectStateDeactiveConnected:
			d.ConnectState = ConnectStateConnected
		}
		m.logger.Debug().
			Str("mac", d.MacAddress).
			Str("a2dp_state", d.ConnectState.String()).
			Str("sco_state", sco.ConnectState.String()).
			Msg("paired a2dp state synced with sco")
	}
}

// makePairedDescriptorLocked records pair keys between an output and an
// input descriptor sharing a network and mac (or category for defaults).
func (m *AudioDeviceManager) makePairedDescriptorLocked(d *AudioDeviceDescriptor) {
	for _, other := range m.connected {
		if other == d || other.DeviceRole == d.DeviceRole {
			continue
		}
		if other.NetworkID != d.NetworkID {
			continue
		}
		if d.DeviceType.IsBluetooth() && other.MacAddress != d.MacAddress {
			continue
		}
		if !d.DeviceType.IsBluetooth() && other.Category != d.Category {
			continue
		}
		d.PairKey = DevicePairKey{NetworkID: other.NetworkID, MacAddress: other.MacAddress}
		other.PairKey = DevicePairKey{NetworkID: d.NetworkID, MacAddress: d.MacAddress}
	}
}

func (m *AudioDeviceManager) clearPairingLocked(removed *AudioDeviceDescriptor) {
	key := DevicePairKey{NetworkID: removed.NetworkID, MacAddress: removed.MacAddress}
	for _, d := range m.connected {
		if d.PairKey == key {
			d.PairKey = DevicePairKey{}
		}
	}
}

// ResolvePairedDevice looks up the paired counterpart of a descriptor on
// demand.
func (m *AudioDeviceManager) ResolvePairedDevice(desc *AudioDeviceDescriptor) *AudioDeviceDescriptor {
	if desc == nil || desc.PairKey.IsZero() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.connected {
		if d.DeviceRole == desc.DeviceRole {
			continue
		}
		if d.NetworkID == desc.PairKey.NetworkID && d.MacAddress == desc.PairKey.MacAddress {
			return d.Clone()
		}
	}
	return nil
}

// rebuildBucketsLocked reclassifies every connected device. Buckets are
// rebuilt under the same lock as membership changes so a device's bucket
// membership is always consistent with the connected list.
func (m *AudioDeviceManager) rebuildBucketsLocked() {
	for i := range m.buckets {
		m.buckets[i] = nil
	}
	for _, d := range m.connected {
		if d.IsRemote() {
			if d.DeviceRole == DeviceRoleOutput {
				m.buckets[bucketRemoteRender] = append(m.buckets[bucketRemoteRender], d)
			} else {
				m.buckets[bucketRemoteCapture] = append(m.buckets[bucketRemoteCapture], d)
			}
			continue
		}
		info, ok := m.privacyTable[d.DeviceType]
		if !ok {
			continue
		}
		private := info.PrivacyType == PrivacyTypePrivacy
		if d.DeviceRole == DeviceRoleOutput {
			if info.Usage&usageVoice != 0 {
				m.addToBucketLocked(d, private, bucketCommRenderPrivacy, bucketCommRenderPublic)
			}
			if info.Usage&usageMedia != 0 {
				m.addToBucketLocked(d, private, bucketMediaRenderPrivacy, bucketMediaRenderPublic)
			}
		} else {
			if info.Usage&usageVoice != 0 {
				m.addToBucketLocked(d, private, bucketCommCapturePrivacy, bucketCommCapturePublic)
			}
			if info.Usage&usageMedia != 0 {
				m.addToBucketLocked(d, private, bucketMediaCapturePrivacy, bucketMediaCapturePublic)
			}
			if info.Usage&(usageCapture|usageRecognition) != 0 {
				m.addToBucketLocked(d, private, bucketCapturePrivacy, bucketCapturePublic)
			}
		}
	}
}

func (m *AudioDeviceManager) addToBucketLocked(d *AudioDeviceDescriptor, private bool, privacyBucket, publicBucket deviceBucket) {
	if private {
		m.buckets[privacyBucket] = append(m.buckets[privacyBucket], d)
	} else {
		m.buckets[publicBucket] = append(m.buckets[publicBucket], d)
	}
}

func (m *AudioDeviceManager) findLocked(desc *AudioDeviceDescriptor) *AudioDeviceDescriptor {
	for _, d := range m.connected {
		if d.IsSameDeviceAs(desc) {
			return d
		}
	}
	return nil
}

// GetConnectedDevices returns a snapshot of all connected devices.
func (m *AudioDeviceManager) GetConnectedDevices() []*AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDevices(m.connected)
}

// GetDevice returns a snapshot of the device matching the connection
// identity, or nil.
func (m *AudioDeviceManager) GetDevice(desc *AudioDeviceDescriptor) *AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d := m.findLocked(desc); d != nil {
		return d.Clone()
	}
	return nil
}

// GetDeviceByTypeAndMac looks up a connected device by type and mac.
func (m *AudioDeviceManager) GetDeviceByTypeAndMac(deviceType DeviceType, mac string) *AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.connected {
		if d.DeviceType == deviceType && d.MacAddress == mac {
			return d.Clone()
		}
	}
	return nil
}

// Bucket accessors; each returns a snapshot.

func (m *AudioDeviceManager) GetRemoteRenderDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketRemoteRender)
}

func (m *AudioDeviceManager) GetRemoteCaptureDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketRemoteCapture)
}

func (m *AudioDeviceManager) GetCommRenderPrivacyDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketCommRenderPrivacy)
}

func (m *AudioDeviceManager) GetCommRenderPublicDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketCommRenderPublic)
}

func (m *AudioDeviceManager) GetCommCapturePrivacyDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketCommCapturePrivacy)
}

func (m *AudioDeviceManager) GetCommCapturePublicDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketCommCapturePublic)
}

func (m *AudioDeviceManager) GetMediaRenderPrivacyDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketMediaRenderPrivacy)
}

func (m *AudioDeviceManager) GetMediaRenderPublicDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketMediaRenderPublic)
}

func (m *AudioDeviceManager) GetMediaCapturePrivacyDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketMediaCapturePrivacy)
}

func (m *AudioDeviceManager) GetMediaCapturePublicDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketMediaCapturePublic)
}

func (m *AudioDeviceManager) GetCapturePrivacyDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketCapturePrivacy)
}

func (m *AudioDeviceManager) GetCapturePublicDevices() []*AudioDeviceDescriptor {
	return m.bucketSnapshot(bucketCapturePublic)
}

func (m *AudioDeviceManager) bucketSnapshot(b deviceBucket) []*AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneDevices(m.buckets[b])
}

// Default device singletons.

func (m *AudioDeviceManager) GetRenderDefaultDevice() *AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaker.Clone()
}

func (m *AudioDeviceManager) GetCommRenderDefaultDevice() *AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.earpiece.Clone()
}

func (m *AudioDeviceManager) GetCaptureDefaultDevice() *AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultMic.Clone()
}

// GetAvailableDevicesByUsage merges the always-available defaults with the
// classified connected devices matching the usage bitmask, de-duplicated
// by connection identity.
func (m *AudioDeviceManager) GetAvailableDevicesByUsage(usage DeviceUsage) []*AudioDeviceDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*AudioDeviceDescriptor
	appendUnique := func(devices ...*AudioDeviceDescriptor) {
		for _, d := range devices {
			dup := false
			for _, existing := range out {
				if existing.IsSameDeviceAs(d) {
					dup = true
					break
				}
			}
			if !dup {
				out = append(out, d.Clone())
			}
		}
	}

	if usage&MediaOutputDevices != 0 {
		appendUnique(m.speaker)
		appendUnique(m.buckets[bucketMediaRenderPrivacy]...)
		appendUnique(m.buckets[bucketMediaRenderPublic]...)
		appendUnique(m.buckets[bucketRemoteRender]...)
	}
	if usage&MediaInputDevices != 0 {
		appendUnique(m.defaultMic)
		appendUnique(m.buckets[bucketMediaCapturePrivacy]...)
		appendUnique(m.buckets[bucketMediaCapturePublic]...)
		appendUnique(m.buckets[bucketCapturePrivacy]...)
		appendUnique(m.buckets[bucketCapturePublic]...)
		appendUnique(m.buckets[bucketRemoteCapture]...)
	}
	if usage&CallOutputDevices != 0 {
		appendUnique(m.earpiece, m.speaker)
		appendUnique(m.buckets[bucketCommRenderPrivacy]...)
		appendUnique(m.buckets[bucketCommRenderPublic]...)
	}
	if usage&CallInputDevices != 0 {
		appendUnique(m.defaultMic)
		appendUnique(m.buckets[bucketCommCapturePrivacy]...)
		appendUnique(m.buckets[bucketCommCapturePublic]...)
	}
	return out
}

// Dump writes a human-readable view of the registry.
func (m *AudioDeviceManager) Dump(sb *strings.Builder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fmt.Fprintf(sb, "connected devices: %d\n", len(m.connected))
	for _, d := range m.connected {
		fmt.Fprintf(sb, "  id=%d type=%s role=%s state=%s mac=%q enabled=%v exception=%v\n",
			d.DeviceID, d.DeviceType, d.DeviceRole, d.ConnectState, d.MacAddress, d.Enabled, d.ExceptionFlag)
	}
}

func cloneDevices(in []*AudioDeviceDescriptor) []*AudioDeviceDescriptor {
	out := make([]*AudioDeviceDescriptor, 0, len(in))
	for _, d := range in {
		out = append(out, d.Clone())
	}
	return out
}
