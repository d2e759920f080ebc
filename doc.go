// Package framebridge connects a live camera frame producer to an
// encoder-facing output surface, correcting for camera mounting error
// and device rotation along the way.
//
// The package has two independent parts that share one geometric model:
//
//   - The transform calculator ([ComputePreviewTransform]) is a pure
//     function producing a 2D affine [Matrix] that maps a raw camera
//     frame onto a preview viewport: center-crop fill, device base
//     rotation, an arbitrary-angle correction rotation with bounding-box
//     fill compensation, plus clamped scale and translate offsets.
//
//   - The render bridge ([RenderBridge]) owns GPU resources bound to one
//     camera: a drawing surface, an externally-fed texture, and a fixed
//     textured-quad shader program. Each frame notification either draws
//     the frame to the output target with a caller-supplied presentation
//     timestamp, or consumes it without rendering so the producer never
//     stalls.
//
// GPU work goes through the [GraphicsBackend] capability interface.
// Importing the gpu sub-package registers the wgpu-based backend;
// backend/software provides a pure-Go fallback that is always available.
//
// Basic usage:
//
//	import (
//	    "github.com/gogpu/framebridge"
//	    _ "github.com/gogpu/framebridge/gpu" // register wgpu backend
//	)
//
//	backend, err := framebridge.NewBackend()
//	bridge := framebridge.NewRenderBridge(backend, "front", 1920, 1080)
//	tex, err := bridge.Initialize(encoderTarget)
//	feed := framebridge.NewTextureFeed(backend, tex, 1920, 1080)
//	bridge.SetSource(feed)
//	feed.OnFrameAvailable(func() { bridge.DrawFrame(clock.Now()) })
//
// The package produces no log output by default; see [SetLogger].
package framebridge
