package framebridge

import (
	"errors"
	"fmt"
	"sync"
)

// bridgeState is the lifecycle state of a RenderBridge. Transitions are
// Uninitialized -> Initialized -> Released; Released is terminal.
type bridgeState int

const (
	stateUninitialized bridgeState = iota
	stateInitialized
	stateReleased
)

// Errors.
var (
	// ErrBridgeReleased is returned by Initialize after Release. A
	// released bridge never resurrects; create a new one instead.
	ErrBridgeReleased = errors.New("framebridge: bridge already released")

	// ErrBridgeNotInitialized is returned by UpdateOutputTarget outside
	// the Initialized state.
	ErrBridgeNotInitialized = errors.New("framebridge: bridge not initialized")
)

// RenderBridge owns the GPU resources bound to one camera source: a
// drawing surface on an encoder-facing output target, one externally-fed
// texture, and the fixed textured-quad shader program. It consumes frames
// from a FrameSource and either draws them to the target with a
// presentation timestamp (DrawFrame) or discards them while still marking
// them consumed (ConsumeFrame) so the producer never stalls.
//
// The bridge takes ownership of its GraphicsBackend: Release destroys it.
// One backend per bridge mirrors one GPU context per camera; backends
// built on a shared device (see gpu.NewBackendFromProvider) leave the
// device itself alive.
//
// All methods are safe for concurrent use. A single mutex serializes
// every operation, so Release is safe concurrently with an in-flight
// DrawFrame and UpdateOutputTarget can never interleave with a draw.
type RenderBridge struct {
	mu sync.Mutex

	backend  GraphicsBackend
	cameraID string

	// Texture size, fixed at construction to the camera frame size.
	width, height int

	state   bridgeState
	surface SurfaceID
	program ProgramID
	texture TextureID
	source  FrameSource
}

// NewRenderBridge creates a bridge for one camera source. width and
// height are the camera frame size in pixels and fix the size of the
// texture Initialize allocates. The bridge takes ownership of backend.
func NewRenderBridge(backend GraphicsBackend, cameraID string, width, height int) *RenderBridge {
	return &RenderBridge{
		backend:  backend,
		cameraID: cameraID,
		width:    width,
		height:   height,
	}
}

// Initialize acquires the bridge's GPU resources: a drawing surface bound
// to target, the blit shader program, and the camera-fed texture. It
// returns the texture handle so the caller can bind a frame-producing
// object to it before the first frame notification arrives.
//
// Calling Initialize while already initialized is a no-op that returns
// the existing texture handle. Calling it after Release fails with
// ErrBridgeReleased. On any acquisition failure every partially-acquired
// resource is released before the error is returned.
func (b *RenderBridge) Initialize(target OutputTarget) (TextureID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateReleased:
		return 0, ErrBridgeReleased
	case stateInitialized:
		Logger().Debug("bridge already initialized", "camera", b.cameraID)
		return b.texture, nil
	}

	surface, err := b.backend.CreateSurface(target)
	if err != nil {
		return 0, fmt.Errorf("framebridge: create surface: %w", err)
	}
	if err := b.backend.MakeCurrent(surface); err != nil {
		b.backend.DestroySurface(surface)
		return 0, fmt.Errorf("framebridge: make current: %w", err)
	}
	program, err := b.backend.CompileBlitProgram()
	if err != nil {
		b.backend.DestroySurface(surface)
		return 0, fmt.Errorf("framebridge: compile blit program: %w", err)
	}
	texture, err := b.backend.CreateTexture(b.width, b.height)
	if err != nil {
		b.backend.DeleteProgram(program)
		b.backend.DestroySurface(surface)
		return 0, fmt.Errorf("framebridge: create texture: %w", err)
	}

	b.surface = surface
	b.program = program
	b.texture = texture
	b.state = stateInitialized

	Logger().Info("bridge initialized",
		"camera", b.cameraID, "width", b.width, "height", b.height)
	return texture, nil
}

// SetSource associates the frame-producing object whose frames the bridge
// consumes, replacing any prior association. Safe to call at any time;
// DrawFrame and ConsumeFrame are no-ops until a source is set.
func (b *RenderBridge) SetSource(src FrameSource) {
	b.mu.Lock()
	b.source = src
	b.mu.Unlock()
}

// DrawFrame pulls the latest frame from the source and draws it to the
// output target, stamping the buffer with ptsNanos before presenting.
//
// DrawFrame runs on the frame-notification path, so it never fails
// loudly: outside the Initialized state, or with no source set, it is a
// silent no-op, and any GPU error is logged and swallowed. One bad frame
// must not take down the pipeline.
func (b *RenderBridge) DrawFrame(ptsNanos int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateInitialized || b.source == nil {
		return
	}

	// Another bridge may have changed the current surface since the
	// last call; currency never persists between calls.
	if err := b.backend.MakeCurrent(b.surface); err != nil {
		Logger().Warn("draw: make current failed", "camera", b.cameraID, "error", err)
		return
	}
	texTransform, err := b.source.Latch()
	if err != nil {
		Logger().Warn("draw: latch frame failed", "camera", b.cameraID, "error", err)
		return
	}
	if err := b.backend.DrawTexturedQuad(b.program, b.texture, texTransform); err != nil {
		Logger().Warn("draw failed", "camera", b.cameraID, "error", err)
		return
	}
	if err := b.backend.Present(b.surface, ptsNanos); err != nil {
		Logger().Warn("present failed", "camera", b.cameraID, "error", err)
	}
}

// ConsumeFrame pulls the latest frame from the source without drawing or
// presenting. Call it for every frame notification while not recording:
// the producer blocks further notifications until each pending frame is
// consumed. Errors are silently dropped; this path has no downstream
// consequence.
func (b *RenderBridge) ConsumeFrame() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateInitialized || b.source == nil {
		return
	}
	if err := b.backend.MakeCurrent(b.surface); err != nil {
		return
	}
	_, _ = b.source.Latch()
}

// UpdateOutputTarget swaps the drawing surface to a new output target
// mid-session, for example when segmented recording rotates the encoder.
// The old surface is destroyed, a new one created and made current.
//
// A failure here is fatal to the bridge: the old surface is already gone,
// so the caller must Release and re-create the bridge.
func (b *RenderBridge) UpdateOutputTarget(target OutputTarget) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != stateInitialized {
		return ErrBridgeNotInitialized
	}

	b.backend.DestroySurface(b.surface)
	b.surface = 0

	surface, err := b.backend.CreateSurface(target)
	if err != nil {
		return fmt.Errorf("framebridge: recreate surface: %w", err)
	}
	if err := b.backend.MakeCurrent(surface); err != nil {
		b.backend.DestroySurface(surface)
		return fmt.Errorf("framebridge: make current on new surface: %w", err)
	}

	b.surface = surface
	Logger().Info("output target updated", "camera", b.cameraID)
	return nil
}

// Release tears down the bridge: shader program, texture, surface, then
// the backend itself, in that order, and detaches the frame source.
// Idempotent and callable from any state; each step tolerates its
// resource being already gone.
func (b *RenderBridge) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == stateReleased {
		return
	}

	if b.program != 0 {
		b.backend.DeleteProgram(b.program)
		b.program = 0
	}
	if b.texture != 0 {
		b.backend.DeleteTexture(b.texture)
		b.texture = 0
	}
	if b.surface != 0 {
		b.backend.DestroySurface(b.surface)
		b.surface = 0
	}
	b.backend.Destroy()
	b.source = nil
	b.state = stateReleased

	Logger().Info("bridge released", "camera", b.cameraID)
}

// TextureHandle returns the texture handle allocated by Initialize, or
// zero before initialization and after release.
func (b *RenderBridge) TextureHandle() TextureID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.texture
}

// IsInitialized reports whether the bridge is in the Initialized state.
func (b *RenderBridge) IsInitialized() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == stateInitialized
}
