package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-core/engine/core"
)

type RendererType uint8

const (
	Headless RendererType = iota
	Vulkan
	DirectX
	Metal
	OpenGL
)

func (rt RendererType) String() string {
	switch rt {
	case Headless:
		return "headless"
	case Vulkan:
		return "vulkan"
	case DirectX:
		return "directx"
	case Metal:
		return "metal"
	case OpenGL:
		return "opengl"
	}
	return fmt.Sprintf("RendererType(%d)", rt)
}

// Renderer is the frontend over an injected RenderDevice. It owns the frame
// bookkeeping, the device does the work.
type Renderer struct {
	device    RenderDevice
	lifecycle FrameLifecycle
	frame     uint64
	inFrame   bool
}

func NewRenderer(device RenderDevice) (*Renderer, error) {
	if device == nil {
		return nil, fmt.Errorf("renderer requires a device")
	}
	r := &Renderer{device: device}
	// resolved once here instead of type checking every frame
	if lc, ok := device.(FrameLifecycle); ok {
		r.lifecycle = lc
	}
	return r, nil
}

func (r *Renderer) Device() RenderDevice {
	return r.device
}

// FrameNumber returns the number of frames that have ended.
func (r *Renderer) FrameNumber() uint64 {
	return r.frame
}

func (r *Renderer) BeginFrame(deltaTime float64) error {
	if r.inFrame {
		return fmt.Errorf("frame %d already begun", r.frame)
	}
	if r.lifecycle != nil {
		if err := r.lifecycle.BeginFrame(deltaTime); err != nil {
			core.LogError("failed to begin frame %d: %s", r.frame, err.Error())
			return err
		}
	}
	r.inFrame = true
	return nil
}

func (r *Renderer) EndFrame(deltaTime float64) error {
	if !r.inFrame {
		return fmt.Errorf("frame %d was not begun", r.frame)
	}
	r.inFrame = false
	r.frame++
	if r.lifecycle != nil {
		if err := r.lifecycle.EndFrame(deltaTime); err != nil {
			core.LogError("failed to end frame %d: %s", r.frame-1, err.Error())
			return err
		}
	}
	return nil
}
