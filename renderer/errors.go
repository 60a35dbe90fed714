package renderer

import (
	"errors"
	"fmt"

	"xeogl/gpu"
)

var (
	// ErrContextLost is returned by Render and Pick between ContextLost and
	// ContextRestored.
	ErrContextLost = errors.New("renderer: GPU context lost")
	// ErrNoCamera is returned when no view and projection have been set.
	ErrNoCamera = errors.New("renderer: no camera")
)

// FramebufferIncompleteError is returned when a render target cannot be
// allocated at the requested size.
type FramebufferIncompleteError struct {
	Width, Height int
	Status        gpu.FramebufferStatus
}

func (e *FramebufferIncompleteError) Error() string {
	return fmt.Sprintf("framebuffer %dx%d incomplete: %s", e.Width, e.Height, e.Status)
}

// StaleResourceError is raised as a panic when an object reaches the draw
// loop holding a destroyed state or released program, or a pass targets a
// RenderTarget whose state was destroyed. It means the owner was destroyed
// without removing the object or target from the renderer. Object is -1 for
// render targets.
type StaleResourceError struct {
	Object   int
	Resource string
}

func (e *StaleResourceError) Error() string {
	if e.Object < 0 {
		return "pass uses destroyed " + e.Resource
	}
	return fmt.Sprintf("object %d references destroyed %s", e.Object, e.Resource)
}
