package platform

import (
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/prisma/engine/core"
)

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

// Platform owns the OS window and input event pump. The renderer reads the
// framebuffer size from here and creates its surface against Window.
type Platform struct {
	Window *glfw.Window

	resizeHandler func(width, height uint32)
	keyHandler    func(key glfw.Key, action glfw.Action)
}

func New() (*Platform, error) {
	return &Platform{}, nil
}

func (p *Platform) Startup(applicationName string, width, height uint32, fullscreen bool) error {
	if err := glfw.Init(); err != nil {
		core.LogFatal("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	var monitor *glfw.Monitor
	if fullscreen {
		monitor = glfw.GetPrimaryMonitor()
	}

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, monitor, nil)
	if err != nil {
		core.LogFatal("failed to create window: %s", err)
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.Show()

	return nil
}

func (p *Platform) Shutdown() error {
	glfw.Terminate()
	return nil
}

// PumpMessages processes pending window events. Returns false once the window
// has been asked to close.
func (p *Platform) PumpMessages() bool {
	glfw.PollEvents()
	return !p.Window.ShouldClose()
}

// FramebufferSize is the window's drawable area in pixels, which on high-DPI
// displays differs from the window size.
func (p *Platform) FramebufferSize() (uint32, uint32) {
	w, h := p.Window.GetFramebufferSize()
	return uint32(w), uint32(h)
}

func (p *Platform) GetRequiredExtensionNames() []string {
	return p.Window.GetRequiredInstanceExtensions()
}

// SetResizeHandler registers the callback invoked with the new framebuffer
// pixel size whenever the window is resized.
func (p *Platform) SetResizeHandler(fn func(width, height uint32)) {
	p.resizeHandler = fn
}

// SetKeyHandler registers the callback invoked on every key event.
func (p *Platform) SetKeyHandler(fn func(key glfw.Key, action glfw.Action)) {
	p.keyHandler = fn
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	if p.resizeHandler != nil {
		p.resizeHandler(uint32(width), uint32(height))
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if p.keyHandler != nil {
		p.keyHandler(key, action)
	}
}
