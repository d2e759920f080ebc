package framebridge

import (
	"errors"
	"testing"
)

func testFrame(w, h int, ts int64) *Frame {
	return &Frame{
		Pix:       make([]byte, w*h*4),
		Stride:    w * 4,
		Width:     w,
		Height:    h,
		Timestamp: ts,
	}
}

func TestFeedPushLatch(t *testing.T) {
	mb := newMockBackend()
	tex, err := mb.CreateTexture(4, 4)
	if err != nil {
		t.Fatalf("CreateTexture: %v", err)
	}
	feed := NewTextureFeed(mb, tex, 4, 4)

	if err := feed.Push(testFrame(4, 4, 100)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	m, err := feed.Latch()
	if err != nil {
		t.Fatalf("Latch: %v", err)
	}
	if !m.IsIdentity() {
		t.Errorf("Latch transform = %+v, want identity", m)
	}
	if mb.writes != 1 {
		t.Errorf("texture writes = %d, want 1", mb.writes)
	}
}

func TestFeedBacklog(t *testing.T) {
	mb := newMockBackend()
	tex, _ := mb.CreateTexture(4, 4)
	feed := NewTextureFeed(mb, tex, 4, 4)

	if err := feed.Push(testFrame(4, 4, 1)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	// Second push before a latch must be rejected; the producer stalls.
	if err := feed.Push(testFrame(4, 4, 2)); !errors.Is(err, ErrFrameBacklog) {
		t.Fatalf("second Push: err = %v, want ErrFrameBacklog", err)
	}
	if _, err := feed.Latch(); err != nil {
		t.Fatalf("Latch: %v", err)
	}
	// Latch frees the slot.
	if err := feed.Push(testFrame(4, 4, 3)); err != nil {
		t.Errorf("Push after Latch: %v", err)
	}
}

func TestFeedSizeMismatchRejected(t *testing.T) {
	mb := newMockBackend()
	tex, _ := mb.CreateTexture(4, 4)
	feed := NewTextureFeed(mb, tex, 4, 4)

	if err := feed.Push(testFrame(8, 8, 1)); err == nil {
		t.Error("Push accepted a mismatched frame size")
	}
}

func TestFeedLatchWithoutFrameKeepsTexture(t *testing.T) {
	mb := newMockBackend()
	tex, _ := mb.CreateTexture(4, 4)
	feed := NewTextureFeed(mb, tex, 4, 4)

	m, err := feed.Latch()
	if err != nil {
		t.Fatalf("Latch with no pending frame: %v", err)
	}
	if !m.IsIdentity() {
		t.Errorf("transform = %+v, want identity", m)
	}
	if mb.writes != 0 {
		t.Errorf("texture writes = %d with no pending frame, want 0", mb.writes)
	}
}

func TestFeedLatchFreesSlotOnWriteFailure(t *testing.T) {
	mb := newMockBackend()
	tex, _ := mb.CreateTexture(4, 4)
	mb.failWrite = errors.New("device lost")
	feed := NewTextureFeed(mb, tex, 4, 4)

	if err := feed.Push(testFrame(4, 4, 1)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := feed.Latch(); err == nil {
		t.Fatal("Latch succeeded, want error")
	}
	// A bad frame must not wedge the producer.
	mb.failWrite = nil
	if err := feed.Push(testFrame(4, 4, 2)); err != nil {
		t.Errorf("Push after failed Latch: %v", err)
	}
}

func TestFeedOnFrameAvailable(t *testing.T) {
	mb := newMockBackend()
	tex, _ := mb.CreateTexture(4, 4)
	feed := NewTextureFeed(mb, tex, 4, 4)

	fired := 0
	feed.OnFrameAvailable(func() { fired++ })

	if err := feed.Push(testFrame(4, 4, 1)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if fired != 1 {
		t.Errorf("callback fired %d times, want 1", fired)
	}
	// A rejected push must not notify.
	_ = feed.Push(testFrame(4, 4, 2))
	if fired != 1 {
		t.Errorf("callback fired %d times after rejected push, want 1", fired)
	}
}

func TestFeedFlippedY(t *testing.T) {
	mb := newMockBackend()
	tex, _ := mb.CreateTexture(4, 4)
	feed := NewTextureFeed(mb, tex, 4, 4, WithFlippedY())

	if err := feed.Push(testFrame(4, 4, 1)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	m, err := feed.Latch()
	if err != nil {
		t.Fatalf("Latch: %v", err)
	}
	// The transform mirrors unit texture space vertically.
	if got := m.TransformPoint(Point{0, 0}); !pointsClose(got, Point{0, 1}) {
		t.Errorf("(0,0) mapped to %+v, want (0,1)", got)
	}
	if got := m.TransformPoint(Point{1, 1}); !pointsClose(got, Point{1, 0}) {
		t.Errorf("(1,1) mapped to %+v, want (1,0)", got)
	}
	if got := m.TransformPoint(Point{0.5, 0.5}); !pointsClose(got, Point{0.5, 0.5}) {
		t.Errorf("(0.5,0.5) mapped to %+v, want (0.5,0.5)", got)
	}
}

func TestFeedDrivesBridge(t *testing.T) {
	// End-to-end over the mock backend: push a frame, draw it from the
	// notification callback, check the presentation timestamp lands.
	mb := newMockBackend()
	b := newTestBridge(mb)
	tex, err := b.Initialize(&mockTarget{w: 1920, h: 1080})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	feed := NewTextureFeed(mb, tex, 1920, 1080)
	b.SetSource(feed)

	frame := testFrame(1920, 1080, 5_000_000)
	feed.OnFrameAvailable(func() { b.DrawFrame(frame.Timestamp) })
	if err := feed.Push(frame); err != nil {
		t.Fatalf("Push: %v", err)
	}

	if mb.writes != 1 {
		t.Errorf("texture writes = %d, want 1", mb.writes)
	}
	if mb.drawCount() != 1 {
		t.Errorf("draws = %d, want 1", mb.drawCount())
	}
	if len(mb.presents) != 1 || mb.presents[0] != 5_000_000 {
		t.Errorf("presents = %v, want [5000000]", mb.presents)
	}
}
