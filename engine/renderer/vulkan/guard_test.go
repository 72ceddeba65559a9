package vulkan_test

import (
	"testing"

	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/stretchr/testify/assert"
)

func TestGuardRunsInReverseOrder(t *testing.T) {
	var order []int
	var g vulkan.Guard
	for i := 1; i <= 3; i++ {
		i := i
		g.Add(func() { order = append(order, i) })
	}
	g.Run()
	g.Run()
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestGuardDismiss(t *testing.T) {
	called := false
	var g vulkan.Guard
	g.Add(func() { called = true })
	g.Dismiss()
	g.Run()
	assert.False(t, called)
}
