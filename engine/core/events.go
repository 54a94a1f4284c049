package core

import "sync"

// EventContext carries a small payload with each fired event.
type EventContext struct {
	Data struct {
		I64 [2]int64
		U64 [2]uint64
		F64 [2]float64

		I32 [4]int32
		U32 [4]uint32
		F32 [4]float32

		C [4]string
	}
}

// SystemEventCode identifies an event. Application codes should start beyond 255.
type SystemEventCode int

const (
	// An animator reached the end of a non-looping clip and stopped.
	/* Context usage:
	 * string animator_id = data.C[0];
	 * u32 animation_index = data.U32[0];
	 */
	EventCodeAnimationFinished SystemEventCode = 0x01

	// A watched asset file was created or modified.
	/* Context usage:
	 * string path = data.C[0];
	 * string name = data.C[1];
	 * u32 resource_type = data.U32[0];
	 */
	EventCodeAssetChanged SystemEventCode = 0x02

	// A shader config was reloaded and its permutations dropped.
	/* Context usage:
	 * string shader_name = data.C[0];
	 */
	EventCodeShaderReloaded SystemEventCode = 0x03

	MaxEventCode SystemEventCode = 0xFF
)

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listener interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to registered listeners. Listeners for a code run in
// registration order until one reports the event as handled.
type EventBus struct {
	mutex      sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]*registeredEvent),
	}
}

// Register listens for events with the given code. A listener can only be registered
// once per code; duplicates return false.
func (eb *EventBus) Register(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	for _, e := range eb.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	eb.registered[code] = append(eb.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

// Unregister stops the listener from receiving events with the given code.
func (eb *EventBus) Unregister(code SystemEventCode, listener interface{}) bool {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()

	events := eb.registered[code]
	for i, e := range events {
		if e.listener == listener {
			eb.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// Fire sends an event to the listeners of code. Returns true if one of them handled it.
func (eb *EventBus) Fire(code SystemEventCode, sender interface{}, context EventContext) bool {
	eb.mutex.RLock()
	events := make([]*registeredEvent, len(eb.registered[code]))
	copy(events, eb.registered[code])
	eb.mutex.RUnlock()

	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			// Message has been handled, do not send to other listeners.
			return true
		}
	}
	return false
}
