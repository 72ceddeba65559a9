package core

import "sync"

// System internal event codes. Application should use codes beyond 255.
type EventCode uint16

const (
	// Shuts the application down on the next frame.
	EVENT_CODE_APPLICATION_QUIT EventCode = 0x01
	// Keyboard key pressed. Data is *KeyEvent.
	EVENT_CODE_KEY_PRESSED EventCode = 0x02
	// Keyboard key released. Data is *KeyEvent.
	EVENT_CODE_KEY_RELEASED EventCode = 0x03
	// Mouse button pressed. Data is *MouseEvent.
	EVENT_CODE_BUTTON_PRESSED EventCode = 0x04
	// Mouse button released. Data is *MouseEvent.
	EVENT_CODE_BUTTON_RELEASED EventCode = 0x05
	// Mouse moved. Data is *MouseEvent.
	EVENT_CODE_MOUSE_MOVED EventCode = 0x06
	// Mouse wheel. Data is *MouseEvent.
	EVENT_CODE_MOUSE_WHEEL EventCode = 0x07
	// Resized/resolution changed from the OS. Data is *SystemEvent.
	EVENT_CODE_RESIZED EventCode = 0x08
	// The window is about to close. Data is *SystemEvent with the last geometry.
	EVENT_CODE_WINDOW_CLOSE EventCode = 0x09
	// The presentation device reported VK_ERROR_DEVICE_LOST.
	EVENT_CODE_DEVICE_LOST EventCode = 0x0A
	// A compiled shader changed on disk. Data is *AssetEvent.
	EVENT_CODE_SHADERS_CHANGED EventCode = 0x0B

	MAX_EVENT_CODE EventCode = 0xFF
)

type EventContext struct {
	Type EventCode
	Data interface{}
}

type KeyEvent struct {
	KeyCode KeyCode
}

type MouseEvent struct {
	Button Button
	PosX   uint16
	PosY   uint16
	Scroll int8
}

type SystemEvent struct {
	WindowX      int32
	WindowY      int32
	WindowWidth  uint32
	WindowHeight uint32
}

type AssetEvent struct {
	Path string
}

// FnOnEvent handles an event. Returning true marks it as handled and stops
// propagation to listeners registered after this one.
type FnOnEvent func(context EventContext) bool

type registeredEvent struct {
	id       uint64
	callback FnOnEvent
}

type eventSystemState struct {
	mu         sync.Mutex
	nextID     uint64
	registered map[EventCode][]registeredEvent
	pending    []EventContext
}

var eventState *eventSystemState

func EventSystemInitialize() bool {
	if eventState != nil {
		return false
	}
	eventState = &eventSystemState{
		registered: make(map[EventCode][]registeredEvent),
	}
	return true
}

func EventSystemShutdown() error {
	if eventState == nil {
		return nil
	}
	eventState.mu.Lock()
	eventState.registered = nil
	eventState.pending = nil
	eventState.mu.Unlock()
	eventState = nil
	return nil
}

// EventRegister adds a listener for code and returns a token for EventUnregister.
// It returns 0 if the event system is not running.
func EventRegister(code EventCode, onEvent FnOnEvent) uint64 {
	if eventState == nil {
		return 0
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	eventState.nextID++
	eventState.registered[code] = append(eventState.registered[code], registeredEvent{
		id:       eventState.nextID,
		callback: onEvent,
	})
	return eventState.nextID
}

func EventUnregister(code EventCode, id uint64) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	defer eventState.mu.Unlock()

	events := eventState.registered[code]
	for i := range events {
		if events[i].id == id {
			eventState.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire delivers the event synchronously on the calling goroutine and
// reports whether a listener handled it.
func EventFire(context EventContext) bool {
	if eventState == nil {
		return false
	}
	eventState.mu.Lock()
	events := append([]registeredEvent(nil), eventState.registered[context.Type]...)
	eventState.mu.Unlock()

	for _, e := range events {
		if e.callback(context) {
			return true
		}
	}
	return false
}

// EventPost queues an event from any goroutine. Queued events are delivered by
// EventDispatch on the main loop.
func EventPost(context EventContext) {
	if eventState == nil {
		return
	}
	eventState.mu.Lock()
	eventState.pending = append(eventState.pending, context)
	eventState.mu.Unlock()
}

// EventDispatch fires every queued event in posting order.
func EventDispatch() {
	if eventState == nil {
		return
	}
	eventState.mu.Lock()
	pending := eventState.pending
	eventState.pending = nil
	eventState.mu.Unlock()

	for _, e := range pending {
		EventFire(e)
	}
}
