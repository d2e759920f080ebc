package framebridge

import (
	"errors"
	"fmt"
	"sync"
)

// Errors.
var (
	// ErrFrameBacklog is returned by Push while a previous frame is
	// still waiting to be latched. The producer retries after the next
	// Latch.
	ErrFrameBacklog = errors.New("framebridge: previous frame not yet latched")
)

// FeedOption configures a TextureFeed during creation.
type FeedOption func(*feedOptions)

type feedOptions struct {
	flipY bool
}

// WithFlippedY makes the feed report a vertically flipped
// texture-coordinate transform from Latch. Use it when the frame
// producer delivers rows bottom-up.
func WithFlippedY() FeedOption {
	return func(o *feedOptions) {
		o.flipY = true
	}
}

// TextureFeed adapts a pixel-pushing frame producer to the texture
// handle a bridge allocated. It buffers at most one frame: Push parks a
// frame and fires the frame-available callback, Latch uploads it to the
// texture and frees the slot. Until the pending frame is latched,
// further pushes are rejected with ErrFrameBacklog, which is how the
// producer-side backpressure of a one-deep frame queue surfaces.
//
// TextureFeed implements FrameSource. It is safe for concurrent use.
type TextureFeed struct {
	backend GraphicsBackend
	texture TextureID
	width   int
	height  int
	flipY   bool

	mu      sync.Mutex
	pending *Frame
	onFrame func()
}

// NewTextureFeed creates a feed writing into the given texture. width
// and height must match the texture size passed to CreateTexture.
func NewTextureFeed(backend GraphicsBackend, texture TextureID, width, height int, opts ...FeedOption) *TextureFeed {
	var o feedOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &TextureFeed{
		backend: backend,
		texture: texture,
		width:   width,
		height:  height,
		flipY:   o.flipY,
	}
}

// OnFrameAvailable sets the callback fired after each successful Push.
// The callback runs on the pushing goroutine; it is where the owner
// typically calls DrawFrame or ConsumeFrame.
func (f *TextureFeed) OnFrameAvailable(fn func()) {
	f.mu.Lock()
	f.onFrame = fn
	f.mu.Unlock()
}

// Push parks a frame for the next Latch and fires the frame-available
// callback. Returns ErrFrameBacklog while a previous frame is pending,
// or an error when the frame size does not match the texture.
func (f *TextureFeed) Push(frame *Frame) error {
	if frame.Width != f.width || frame.Height != f.height {
		return fmt.Errorf("framebridge: frame size %dx%d does not match texture %dx%d",
			frame.Width, frame.Height, f.width, f.height)
	}

	f.mu.Lock()
	if f.pending != nil {
		f.mu.Unlock()
		return ErrFrameBacklog
	}
	f.pending = frame
	fn := f.onFrame
	f.mu.Unlock()

	if fn != nil {
		fn()
	}
	return nil
}

// Latch uploads the pending frame into the texture and returns the
// texture-coordinate transform for it. With no frame pending the texture
// keeps its previous contents and the transform is still returned. The
// pending slot is freed even when the upload fails, so the producer is
// never wedged by a bad frame.
func (f *TextureFeed) Latch() (Matrix, error) {
	f.mu.Lock()
	frame := f.pending
	f.pending = nil
	f.mu.Unlock()

	if frame != nil {
		if err := f.backend.WriteTexture(f.texture, frame); err != nil {
			return Matrix{}, fmt.Errorf("framebridge: write texture: %w", err)
		}
	}
	return f.texTransform(), nil
}

// Texture returns the texture handle this feed writes into.
func (f *TextureFeed) Texture() TextureID {
	return f.texture
}

func (f *TextureFeed) texTransform() Matrix {
	if f.flipY {
		// Mirror v across the center of unit texture space.
		return Matrix{A: 1, B: 0, C: 0, D: 0, E: -1, F: 1}
	}
	return Identity()
}
