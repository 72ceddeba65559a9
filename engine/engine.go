package engine

import (
	"os"
	"time"

	"github.com/charmbracelet/log"
	vk "github.com/goki/vulkan"
	"github.com/pkg/errors"
	"github.com/spaghettifunk/viking/engine/assets"
	"github.com/spaghettifunk/viking/engine/config"
	"github.com/spaghettifunk/viking/engine/core"
	"github.com/spaghettifunk/viking/engine/platform"
	"github.com/spaghettifunk/viking/engine/renderer"
	"github.com/spaghettifunk/viking/engine/renderer/vulkan"
	"github.com/spaghettifunk/viking/engine/settings"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
)

type listener struct {
	code core.EventCode
	id   uint64
}

type Engine struct {
	currentStage Stage
	config       *config.Config
	isRunning    bool
	isSuspended  bool
	platform     *platform.Platform
	assetManager *assets.AssetManager
	settings     *settings.Store
	host         *vulkan.Host
	renderer     *renderer.Renderer
	metrics      *core.Metrics
	logLevel     log.Level
	listeners    []listener
	width        uint32
	height       uint32
}

func New(cfg *config.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := core.SetLogLevel(cfg.Application.LogLevel); err != nil {
		return nil, err
	}
	level, _ := log.ParseLevel(cfg.Application.LogLevel)

	p, err := platform.New()
	if err != nil {
		return nil, err
	}

	am, err := assets.NewAssetManager()
	if err != nil {
		core.LogError(err.Error())
		return nil, err
	}

	store := settings.New(cfg.Settings.Path)
	store.DefaultWindow = settings.Window{
		X:      cfg.Window.X,
		Y:      cfg.Window.Y,
		Width:  cfg.Window.Width,
		Height: cfg.Window.Height,
	}

	return &Engine{
		currentStage: EngineStageUninitialized,
		config:       cfg,
		platform:     p,
		assetManager: am,
		settings:     store,
		metrics:      core.NewMetrics(),
		logLevel:     level,
	}, nil
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing

	// initialize input
	if err := core.InputInitialize(); err != nil {
		return err
	}

	// initialize events
	if !core.EventSystemInitialize() {
		return errors.New("failed to initialize the event system")
	}
	e.register(core.EVENT_CODE_APPLICATION_QUIT, e.onEvent)
	e.register(core.EVENT_CODE_WINDOW_CLOSE, e.onEvent)
	e.register(core.EVENT_CODE_KEY_PRESSED, e.onKey)
	e.register(core.EVENT_CODE_RESIZED, e.onResized)
	e.register(core.EVENT_CODE_SHADERS_CHANGED, e.onShadersChanged)

	window, err := e.settings.LoadWindow()
	if err != nil {
		core.LogWarn("failed to load window settings: %s", err)
	}
	if err := e.platform.Startup(e.config.Application.Name, platform.WindowGeometry{
		X:         window.X,
		Y:         window.Y,
		Width:     window.Width,
		Height:    window.Height,
		Maximized: window.Maximized,
		Minimized: window.Minimized,
	}); err != nil {
		return err
	}

	if err := e.assetManager.Initialize(e.config.Assets.Dir, e.config.Assets.HotReload); err != nil {
		return err
	}

	e.host = vulkan.NewHost(e.platform, vulkan.HostConfig{
		ApplicationName:  e.config.Application.Name,
		EnableValidation: e.config.Renderer.Validation,
		MaxSamples:       vk.SampleCountFlagBits(e.config.Renderer.MaxSamples),
	}, core.NewLogger(os.Stderr, e.logLevel, "vulkan"))

	e.renderer = renderer.New(e.host, e.settings, core.NewLogger(os.Stderr, e.logLevel, "renderer"))
	for _, d := range newScene(e.config, e.renderer.Context(), e.assetManager) {
		if err := e.renderer.Register(d); err != nil {
			return err
		}
	}

	e.width, e.height = e.platform.FramebufferSize()
	e.isSuspended = e.width == 0 || e.height == 0
	if err := e.host.Initialize(e.renderer, e.width, e.height); err != nil {
		return err
	}

	e.currentStage = EngineStageInitialized
	return nil
}

func (e *Engine) register(code core.EventCode, fn core.FnOnEvent) {
	e.listeners = append(e.listeners, listener{code: code, id: core.EventRegister(code, fn)})
}

// Run drives the frame loop until the window closes or the application quit
// event fires. A lost device is recovered in place.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning = true
	lastFrame := time.Now()

	for e.isRunning {
		e.platform.PumpMessages()
		core.EventDispatch()
		if !e.isRunning {
			break
		}
		if e.isSuspended {
			time.Sleep(10 * time.Millisecond)
			continue
		}

		if err := e.host.Frame(); err != nil {
			if !errors.Is(err, core.ErrDeviceLost) {
				return err
			}
			core.LogWarn("%s", err)
			if err := e.host.RecoverDeviceLost(); err != nil {
				return err
			}
		}

		// NOTE: input state is copied after everything that reads it this frame.
		core.InputUpdate()

		now := time.Now()
		if e.metrics.Update(now.Sub(lastFrame)) {
			fps, frameTime := e.metrics.Frame()
			core.LogDebug("FPS: %.0f, frame time: %.3fms", fps, frameTime)
		}
		lastFrame = now
	}
	return nil
}

// Shutdown releases everything in reverse order of Initialize. It must run
// on the goroutine that called Run.
func (e *Engine) Shutdown() error {
	e.currentStage = EngineStageShuttingDown

	if e.host != nil {
		if err := e.host.Shutdown(); err != nil {
			return err
		}
	}
	if err := e.assetManager.Close(); err != nil {
		return err
	}
	for _, l := range e.listeners {
		core.EventUnregister(l.code, l.id)
	}
	e.listeners = nil
	if err := core.EventSystemShutdown(); err != nil {
		return err
	}
	if err := core.InputShutdown(); err != nil {
		return err
	}
	if err := e.platform.Shutdown(); err != nil {
		return err
	}
	e.currentStage = EngineStageUninitialized
	return nil
}

// Quit asks a running engine to stop. Safe to call from any goroutine.
func Quit() {
	core.EventPost(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
}

func (e *Engine) onEvent(context core.EventContext) bool {
	switch context.Type {
	case core.EVENT_CODE_WINDOW_CLOSE:
		e.saveWindow()
		e.isRunning = false
		return true
	case core.EVENT_CODE_APPLICATION_QUIT:
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.saveWindow()
		e.isRunning = false
		return true
	}
	return false
}

func (e *Engine) saveWindow() {
	if e.platform.Window == nil {
		return
	}
	g := e.platform.Geometry()
	if err := e.settings.SaveWindow(settings.Window{
		X:         g.X,
		Y:         g.Y,
		Width:     g.Width,
		Height:    g.Height,
		Maximized: g.Maximized,
		Minimized: g.Minimized,
	}); err != nil {
		core.LogError("failed to save window settings: %s", err)
	}
}

func (e *Engine) onKey(context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		// NOTE: Technically firing an event to itself, but there may be other listeners.
		core.EventFire(core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (e *Engine) onResized(context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return false
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)
	if e.host != nil {
		e.host.Resized(width, height)
	}

	// Handle minimization
	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return false
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	return false
}

func (e *Engine) onShadersChanged(context core.EventContext) bool {
	if ae, ok := context.Data.(*core.AssetEvent); ok {
		core.LogInfo("Shader %s changed, reloading pipelines.", ae.Path)
	}
	e.host.RequestResourceReload()
	return true
}
