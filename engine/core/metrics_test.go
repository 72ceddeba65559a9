package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	reported := 0
	for i := 0; i < 120; i++ {
		if m.Update(10 * time.Millisecond) {
			reported++
		}
	}
	// 120 frames of 10ms cross the one second mark once, after frame 101.
	assert.Equal(t, 1, reported)
	assert.Equal(t, float64(101), m.FPS())
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)

	fps, frameTime := m.Frame()
	assert.Equal(t, m.FPS(), fps)
	assert.Equal(t, m.FrameTime(), frameTime)
}

func TestMetricsAveragesLastWindow(t *testing.T) {
	m := NewMetrics()
	for i := 0; i < AVG_COUNT; i++ {
		m.Update(40 * time.Millisecond)
	}
	assert.InDelta(t, 40.0, m.FrameTime(), 1e-9)

	for i := 0; i < AVG_COUNT-1; i++ {
		m.Update(10 * time.Millisecond)
	}
	// Not refreshed until the window is complete again.
	assert.InDelta(t, 40.0, m.FrameTime(), 1e-9)
	m.Update(10 * time.Millisecond)
	assert.InDelta(t, 10.0, m.FrameTime(), 1e-9)
}
