package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInputKeyEvents(t *testing.T) {
	withEventSystem(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { InputShutdown() })

	var pressed []KeyCode
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		pressed = append(pressed, ctx.Data.(*KeyEvent).KeyCode)
		return true
	})

	InputProcessKey(KEY_F11, true)
	InputProcessKey(KEY_F11, true)
	assert.Equal(t, []KeyCode{KEY_F11}, pressed)
	assert.True(t, InputIsKeyDown(KEY_F11))
	assert.False(t, InputWasKeyDown(KEY_F11))

	InputUpdate()
	assert.True(t, InputWasKeyDown(KEY_F11))

	InputProcessKey(KEY_F11, false)
	assert.False(t, InputIsKeyDown(KEY_F11))
}

func TestInputMouse(t *testing.T) {
	withEventSystem(t)
	require.NoError(t, InputInitialize())
	t.Cleanup(func() { InputShutdown() })

	moves := 0
	EventRegister(EVENT_CODE_MOUSE_MOVED, func(ctx EventContext) bool {
		moves++
		return true
	})

	InputProcessMouseMove(10, 20)
	InputProcessMouseMove(10, 20)
	x, y := InputGetMousePosition()
	assert.Equal(t, int32(10), x)
	assert.Equal(t, int32(20), y)
	assert.Equal(t, 1, moves)

	InputProcessButton(BUTTON_RIGHT, true)
	assert.True(t, InputIsButtonDown(BUTTON_RIGHT))
	InputProcessButton(BUTTON_MAX_BUTTONS, true)
}
