package vulkan_test

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan/vulkantest"
	"github.com/stretchr/testify/require"
)

// newTestContext returns a context over a fake device and surface. The
// cleanup asserts the fake saw no misuse.
func newTestContext(t *testing.T) (*vulkan.Context, *vulkantest.Device) {
	t.Helper()
	dev := vulkantest.NewDevice()
	surface := vulkantest.NewSurface(dev)
	ctx := vulkan.NewContext(surface, core.NewLogger(io.Discard, log.DebugLevel, "test"))
	t.Cleanup(func() {
		require.Empty(t, dev.Errors)
	})
	return ctx, dev
}
