package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withEventSystem(t *testing.T) {
	t.Helper()
	require.True(t, EventSystemInitialize())
	t.Cleanup(func() { EventSystemShutdown() })
}

func TestEventSystemInitializeTwice(t *testing.T) {
	withEventSystem(t)
	assert.False(t, EventSystemInitialize())
}

func TestEventFireStopsAtFirstHandler(t *testing.T) {
	withEventSystem(t)

	var calls []string
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		calls = append(calls, "first")
		return false
	})
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		calls = append(calls, "second")
		return true
	})
	EventRegister(EVENT_CODE_RESIZED, func(ctx EventContext) bool {
		calls = append(calls, "third")
		return true
	})

	handled := EventFire(EventContext{Type: EVENT_CODE_RESIZED, Data: &SystemEvent{WindowWidth: 10}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first", "second"}, calls)

	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_WINDOW_CLOSE}))
}

func TestEventUnregister(t *testing.T) {
	withEventSystem(t)

	count := 0
	id := EventRegister(EVENT_CODE_DEVICE_LOST, func(ctx EventContext) bool {
		count++
		return true
	})
	require.NotZero(t, id)

	EventFire(EventContext{Type: EVENT_CODE_DEVICE_LOST})
	assert.True(t, EventUnregister(EVENT_CODE_DEVICE_LOST, id))
	assert.False(t, EventUnregister(EVENT_CODE_DEVICE_LOST, id))
	EventFire(EventContext{Type: EVENT_CODE_DEVICE_LOST})
	assert.Equal(t, 1, count)
}

func TestEventPostIsDeliveredOnDispatch(t *testing.T) {
	withEventSystem(t)

	var paths []string
	EventRegister(EVENT_CODE_SHADERS_CHANGED, func(ctx EventContext) bool {
		paths = append(paths, ctx.Data.(*AssetEvent).Path)
		return true
	})

	var wg sync.WaitGroup
	for _, p := range []string{"a.spv", "b.spv"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			EventPost(EventContext{Type: EVENT_CODE_SHADERS_CHANGED, Data: &AssetEvent{Path: p}})
		}(p)
	}
	wg.Wait()
	assert.Empty(t, paths)

	EventDispatch()
	assert.ElementsMatch(t, []string{"a.spv", "b.spv"}, paths)

	EventDispatch()
	assert.Len(t, paths, 2)
}

func TestEventsWithoutSystem(t *testing.T) {
	assert.Zero(t, EventRegister(EVENT_CODE_RESIZED, func(EventContext) bool { return true }))
	assert.False(t, EventFire(EventContext{Type: EVENT_CODE_RESIZED}))
	EventPost(EventContext{Type: EVENT_CODE_RESIZED})
	EventDispatch()
}
