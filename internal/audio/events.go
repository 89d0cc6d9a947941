package audio

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/eclipse-oniro-mirrors/multimedia-audio-framework-sub000/internal/logging"
)

// AudioEventType represents different types of audio policy events.
type AudioEventType string

const (
	AudioEventInterrupt         AudioEventType = "audio-interrupt"
	AudioEventFocusChanged      AudioEventType = "audio-focus-changed"
	AudioEventDeviceChanged     AudioEventType = "audio-device-changed"
	AudioEventSceneChanged      AudioEventType = "audio-scene-changed"
	AudioEventPreferredOutput   AudioEventType = "preferred-output-device-updated"
	AudioEventRecreateRenderer  AudioEventType = "recreate-renderer-stream"
	AudioEventRecreateCapturer  AudioEventType = "recreate-capturer-stream"
	AudioEventCapturerState     AudioEventType = "capturer-state-changed"
	AudioEventActiveVolumeType  AudioEventType = "active-volume-type-changed"
	AudioEventSessionDeactivate AudioEventType = "audio-session-deactivated"
)

// AudioEvent is one fan-out notification.
type AudioEvent struct {
	Type AudioEventType `json:"type"`
	Data interface{}    `json:"data"`
}

// DeviceChangedData describes a device connect/disconnect/update.
type DeviceChangedData struct {
	Device    AudioDeviceDescriptor `json:"device"`
	Connected bool                  `json:"connected"`
	Reason    string                `json:"reason"`
}

// SceneChangedData describes an audio scene transition.
type SceneChangedData struct {
	Scene AudioScene `json:"scene"`
}

// PreferredOutputData carries the new preferred output device per usage.
type PreferredOutputData struct {
	Usage   StreamUsage             `json:"usage"`
	Devices []AudioDeviceDescriptor `json:"devices"`
}

// RecreateStreamData tells a client to tear down and recreate its stream
// because the assigned transport flag changed.
type RecreateStreamData struct {
	SessionID  uint32    `json:"session_id"`
	TargetFlag AudioFlag `json:"target_flag"`
	Reason     string    `json:"reason"`
}

// FocusChangedData carries a focus list change for registered observers.
type FocusChangedData struct {
	ZoneID    int32            `json:"zone_id"`
	FocusList []FocusEntryPair `json:"focus_list"`
}

// CapturerStateData reports a capturer starting or stopping.
type CapturerStateData struct {
	SessionID uint32 `json:"session_id"`
	Running   bool   `json:"running"`
}

// AudioEventSubscriber is one websocket connection subscribed to events.
type AudioEventSubscriber struct {
	conn   *websocket.Conn
	ctx    context.Context
	logger *zerolog.Logger
}

// AudioEventDispatcher serializes event delivery on a dedicated handler
// goroutine and broadcasts every event to websocket subscribers. Events are
// at-most-once per logical transition and never delivered from inside a
// lock-held critical section.
type AudioEventDispatcher struct {
	queue       chan dispatchItem
	subscribers map[string]*AudioEventSubscriber
	mutex       sync.RWMutex
	logger      zerolog.Logger
	wg          sync.WaitGroup
	closeOnce   sync.Once
}

type dispatchItem struct {
	event    AudioEvent
	callback func()
}

const dispatcherQueueDepth = 256

// NewAudioEventDispatcher creates and starts the dispatcher goroutine.
func NewAudioEventDispatcher() *AudioEventDispatcher {
	d := &AudioEventDispatcher{
		queue:       make(chan dispatchItem, dispatcherQueueDepth),
		subscribers: make(map[string]*AudioEventSubscriber),
		logger:      logging.GetDefaultLogger().With().Str("component", "audio-events").Logger(),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *AudioEventDispatcher) run() {
	defer d.wg.Done()
	for item := range d.queue {
		if item.callback != nil {
			item.callback()
		}
		if item.event.Type != "" {
			d.broadcast(item.event)
		}
	}
}

// Post enqueues an event for broadcast.
func (d *AudioEventDispatcher) Post(event AudioEvent) {
	d.post(dispatchItem{event: event})
}

// PostCallback enqueues a client callback paired with the event that
// triggered it, keeping callback order identical to event order.
func (d *AudioEventDispatcher) PostCallback(event AudioEvent, callback func()) {
	d.post(dispatchItem{event: event, callback: callback})
}

func (d *AudioEventDispatcher) post(item dispatchItem) {
	select {
	case d.queue <- item:
	default:
		d.logger.Warn().Str("type", string(item.event.Type)).Msg("event queue full, dropping event")
	}
}

// Close drains and stops the dispatcher.
func (d *AudioEventDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
}

// Subscribe adds a websocket connection to receive audio events and
// returns the subscription id.
func (d *AudioEventDispatcher) Subscribe(ctx context.Context, conn *websocket.Conn, logger *zerolog.Logger) string {
	id := uuid.NewString()
	d.mutex.Lock()
	d.subscribers[id] = &AudioEventSubscriber{conn: conn, ctx: ctx, logger: logger}
	d.mutex.Unlock()
	d.logger.Debug().Str("subscription", id).Msg("audio events subscription added")
	return id
}

// Unsubscribe removes a websocket connection from audio events.
func (d *AudioEventDispatcher) Unsubscribe(id string) {
	d.mutex.Lock()
	delete(d.subscribers, id)
	d.mutex.Unlock()
	d.logger.Debug().Str("subscription", id).Msg("audio events subscription removed")
}

func (d *AudioEventDispatcher) broadcast(event AudioEvent) {
	d.mutex.RLock()
	subs := make(map[string]*AudioEventSubscriber, len(d.subscribers))
	for id, sub := range d.subscribers {
		subs[id] = sub
	}
	d.mutex.RUnlock()

	for id, sub := range subs {
		if !d.sendToSubscriber(sub, event) {
			d.Unsubscribe(id)
		}
	}
}

func (d *AudioEventDispatcher) sendToSubscriber(sub *AudioEventSubscriber, event AudioEvent) bool {
	ctx, cancel := context.WithTimeout(sub.ctx, 5*time.Second)
	defer cancel()

	if err := wsjson.Write(ctx, sub.conn, event); err != nil {
		sub.logger.Warn().Err(err).Str("type", string(event.Type)).Msg("failed to send audio event")
		return false
	}
	return true
}

// SubscriberCount returns the number of active websocket subscribers.
func (d *AudioEventDispatcher) SubscriberCount() int {
	d.mutex.RLock()
	defer d.mutex.RUnlock()
	return len(d.subscribers)
}
