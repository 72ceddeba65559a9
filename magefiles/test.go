//go:build mage

package main

import "fmt"

// Runs the unit tests. None of them need a GPU or a window.
func Test() error {
	fmt.Println("Run tests...")
	packages := []string{
		"./engine/assets/...",
		"./engine/config/...",
		"./engine/containers/...",
		"./engine/core/...",
		"./engine/renderer/...",
		"./engine/settings/...",
	}
	// glfw and the race detector both need cgo.
	_, err := executeCmd("go", withArgs(append([]string{"test", "-race"}, packages...)...), withEnv("CGO_ENABLED=1"), withStream())
	return err
}
