package core

// System internal event codes. Application should use codes beyond 255.
type SystemEventCode int

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT SystemEventCode = 0x01

	// Resized/resolution changed from the OS.
	EVENT_CODE_RESIZED SystemEventCode = 0x02

	// The graphics context was lost and the backend dropped to uninitialized.
	EVENT_CODE_CONTEXT_LOST SystemEventCode = 0x03

	MAX_EVENT_CODE SystemEventCode = 0xFF
)

type EventContext struct {
	Type SystemEventCode
	// Window dimensions for EVENT_CODE_RESIZED.
	WindowWidth  uint32
	WindowHeight uint32
	Data         interface{}
}

// Should return true if the event was fully handled and propagation stops.
type FnOnEvent func(context EventContext) bool

// EventBus is a minimal synchronous dispatcher. Listeners run on the caller's
// goroutine, in registration order, matching the single threaded render loop.
type EventBus struct {
	registered map[SystemEventCode][]FnOnEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[SystemEventCode][]FnOnEvent),
	}
}

func (b *EventBus) Register(code SystemEventCode, callback FnOnEvent) {
	b.registered[code] = append(b.registered[code], callback)
}

func (b *EventBus) Fire(context EventContext) {
	for _, cb := range b.registered[context.Type] {
		if cb(context) {
			return
		}
	}
}
