/*
viking opens a window and renders a textured model next to a light cube,
keeping every GPU resource alive across swapchain recreation and device loss.
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/viking/engine"
	"github.com/spaghettifunk/viking/engine/config"
	"github.com/spaghettifunk/viking/engine/core"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the TOML configuration")
	flag.Parse()

	if err := run(*configPath); err != nil {
		core.LogFatal("%s", err)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	e, err := engine.New(cfg)
	if err != nil {
		return err
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer signal.Stop(sigCh)

	go func() {
		if _, ok := <-sigCh; ok {
			engine.Quit()
		}
	}()

	if err := e.Initialize(); err != nil {
		_ = e.Shutdown()
		return err
	}
	runErr := e.Run()
	if err := e.Shutdown(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
