/*
Post-process demo built on the prisma renderer: a rotating triangle
rendered off-screen, tinted by a full-screen pass and blitted to the
swapchain.
*/
package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/spaghettifunk/prisma/engine/config"
	"github.com/spaghettifunk/prisma/engine/core"
	"github.com/spaghettifunk/prisma/engine/platform"
	"github.com/spaghettifunk/prisma/engine/renderer"
	"github.com/spaghettifunk/prisma/engine/renderer/shaders"
	"github.com/spaghettifunk/prisma/engine/renderer/vulkan"
	"github.com/spaghettifunk/prisma/testbed"
)

func main() {
	configPath := flag.String("config", "prisma.toml", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		core.LogFatal("load config: %v", err)
	}

	if err := core.MetricsInitialize(); err != nil {
		core.LogFatal("initialize metrics: %v", err)
	}

	p, err := platform.New()
	if err != nil {
		core.LogFatal("create platform: %v", err)
	}
	if err := p.Startup(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height, cfg.Window.Fullscreen); err != nil {
		core.LogFatal("platform startup: %v", err)
	}

	backend := vulkan.New(p, uint8(cfg.Renderer.FramesInFlight), cfg.Window.Vsync, cfg.Renderer.Debug)
	if err := backend.Initialize(cfg.Window.Title, cfg.Window.Width, cfg.Window.Height); err != nil {
		core.LogFatal("backend initialize: %v", err)
	}
	p.SetResizeHandler(backend.Resized)

	system, err := shaders.NewSystem(cfg.Shaders,
		&testbed.GlslCompiler{IncludeDir: cfg.Shaders.SourceDir},
		&testbed.SpirvOptimizer{},
		testbed.SpirvReflector{},
	)
	if err != nil {
		core.LogFatal("shader system: %v", err)
	}

	r, err := renderer.New(cfg.Renderer, backend, system)
	if err != nil {
		core.LogFatal("create renderer: %v", err)
	}

	demo := testbed.NewDemo(r)
	width, height := p.FramebufferSize()
	if err := demo.Setup(width, height); err != nil {
		core.LogFatal("demo setup: %v", err)
	}

	// Capture termination signals so the window loop winds down cleanly.
	var quit atomic.Bool
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	go func() {
		<-sigCh
		quit.Store(true)
	}()

	clock := core.NewClock()
	clock.Start()

	for p.PumpMessages() && !quit.Load() {
		clock.Update()

		if err := demo.Frame(); err != nil {
			if errors.Is(err, core.ErrSwapchainBooting) {
				continue
			}
			core.LogError("frame failed: %v", err)
			break
		}

		core.MetricsUpdate(clock.Elapsed() / float64(time.Second))
		clock.Start()
	}

	stats := r.GetMemStats()
	core.LogInfo("exiting after %0.f fps avg, %d buffer bytes, %d texture bytes, %d live allocations",
		core.MetricsFPS(), stats.BufferBytes, stats.TextureBytes, stats.Allocations)

	if err := r.Shutdown(); err != nil {
		core.LogError("renderer shutdown: %v", err)
	}
	if err := p.Shutdown(); err != nil {
		core.LogError("platform shutdown: %v", err)
	}
}
