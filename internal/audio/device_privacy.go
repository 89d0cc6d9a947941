package audio

// DevicePrivacyType buckets devices by whether they may carry private
// audio (personal earpieces vs. shared speakers).
type DevicePrivacyType int

const (
	PrivacyTypePrivacy DevicePrivacyType = iota
	PrivacyTypePublic
	PrivacyTypeNegative
)

func (t DevicePrivacyType) String() string {
	switch t {
	case PrivacyTypePrivacy:
		return "privacy"
	case PrivacyTypePublic:
		return "public"
	default:
		return "negative"
	}
}

// Usage bits for the privacy table.
const (
	usageMedia uint32 = 1 << iota
	usageVoice
	usageCapture
	usageRecognition
	usageAll = usageMedia | usageVoice | usageCapture | usageRecognition
)

// DevicePrivacyInfo classifies one device type. The table is the read-only
// product of the platform's privacy configuration; the XML loader feeding
// it is an external collaborator, so the defaults live here.
type DevicePrivacyInfo struct {
	DeviceType  DeviceType
	PrivacyType DevicePrivacyType
	Usage       uint32
}

// defaultDevicePrivacyTable mirrors the platform defaults: wired and
// Bluetooth personal devices are privacy devices; speakers and remote
// sinks are public.
func defaultDevicePrivacyTable() map[DeviceType]DevicePrivacyInfo {
	table := map[DeviceType]DevicePrivacyInfo{
		DeviceTypeEarpiece:        {DeviceTypeEarpiece, PrivacyTypePrivacy, usageVoice},
		DeviceTypeWiredHeadset:    {DeviceTypeWiredHeadset, PrivacyTypePrivacy, usageAll},
		DeviceTypeWiredHeadphones: {DeviceTypeWiredHeadphones, PrivacyTypePrivacy, usageMedia | usageVoice},
		DeviceTypeBluetoothSco:    {DeviceTypeBluetoothSco, PrivacyTypePrivacy, usageVoice | usageCapture},
		DeviceTypeBluetoothA2dp:   {DeviceTypeBluetoothA2dp, PrivacyTypePrivacy, usageMedia},
		DeviceTypeUsbHeadset:      {DeviceTypeUsbHeadset, PrivacyTypePrivacy, usageAll},
		DeviceTypeUsbArmHeadset:   {DeviceTypeUsbArmHeadset, PrivacyTypePrivacy, usageAll},
		DeviceTypeSpeaker:         {DeviceTypeSpeaker, PrivacyTypePublic, usageMedia | usageVoice},
		DeviceTypeMic:             {DeviceTypeMic, PrivacyTypePublic, usageCapture | usageRecognition},
		DeviceTypeDP:              {DeviceTypeDP, PrivacyTypePublic, usageMedia},
		DeviceTypeRemoteCast:      {DeviceTypeRemoteCast, PrivacyTypePublic, usageMedia},
	}
	return table
}
