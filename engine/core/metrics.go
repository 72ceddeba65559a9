package core

import (
	"time"

	"github.com/spaghettifunk/viking/engine/containers"
)

const AVG_COUNT = 30

// Metrics keeps a rolling frame time average and a frames-per-second counter.
type Metrics struct {
	msTimes            *containers.RingQueue[float64]
	frameAVGCounter    int
	msAVG              float64
	frames             int
	accumulatedFrameMS float64
	fps                float64
}

func NewMetrics() *Metrics {
	return &Metrics{
		msTimes: containers.NewRingQueue[float64](AVG_COUNT),
	}
}

// Update records the duration of one frame. It reports true once per second,
// when a new FPS value becomes available.
func (m *Metrics) Update(frameElapsed time.Duration) bool {
	frameMS := float64(frameElapsed) / float64(time.Millisecond)
	m.msTimes.Push(frameMS)

	// The average is refreshed every AVG_COUNT frames.
	m.frameAVGCounter = (m.frameAVGCounter + 1) % AVG_COUNT
	if m.frameAVGCounter == 0 {
		sum := 0.0
		for _, ms := range m.msTimes.Values() {
			sum += ms
		}
		m.msAVG = sum / float64(m.msTimes.Len())
	}

	// Count all frames.
	m.frames++

	m.accumulatedFrameMS += frameMS
	if m.accumulatedFrameMS > 1000 {
		m.fps = float64(m.frames)
		m.accumulatedFrameMS -= 1000
		m.frames = 0
		return true
	}
	return false
}

func (m *Metrics) FPS() float64 {
	return m.fps
}

func (m *Metrics) FrameTime() float64 {
	return m.msAVG
}

func (m *Metrics) Frame() (float64, float64) {
	return m.fps, m.msAVG
}
