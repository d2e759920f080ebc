package framebridge

// Frame is one camera frame in RGBA order, 4 bytes per pixel.
// Stride is the byte distance between rows and must be at least
// Width*4. Timestamp is the capture time in nanoseconds.
type Frame struct {
	Pix       []byte
	Stride    int
	Width     int
	Height    int
	Timestamp int64
}

// FrameSource is the frame-producing object a bridge pulls from.
// Latch uploads the most recent pending frame into the texture the
// source is bound to and returns the texture-coordinate transform that
// accompanies it. The bridge calls Latch exactly once per
// frame-available notification; the source may block or reject new
// frames until the pending one is latched.
//
// The bridge holds a non-owning reference: releasing the bridge does
// not release the source.
type FrameSource interface {
	Latch() (Matrix, error)
}

// OutputTarget is the encoder-facing drawable a bridge presents to.
// SubmitFrame receives the rendered pixels (tightly packed RGBA at the
// target's size) together with the presentation timestamp, stamped
// before handoff so downstream muxing preserves playback timing.
type OutputTarget interface {
	Size() (width, height int)
	SubmitFrame(pix []byte, ptsNanos int64) error
}
