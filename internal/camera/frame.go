package camera

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured video frame. It satisfies the engine's read-only
// frame contract and additionally exposes the underlying Mat for plugins
// that run OpenCV operations.
type Frame struct {
	mat    *gocv.Mat
	pixels []byte
	width  int
	height int
	seq    uint64
	ts     time.Time
}

// NewFrame builds a frame from raw pixel data. Used by the mock camera and
// by tests; live captures come from the camera as Mat-backed frames.
func NewFrame(width, height int, pixels []byte, seq uint64, ts time.Time) *Frame {
	return &Frame{
		pixels: pixels,
		width:  width,
		height: height,
		seq:    seq,
		ts:     ts,
	}
}

func newMatFrame(mat *gocv.Mat, seq uint64) *Frame {
	return &Frame{
		mat:    mat,
		width:  mat.Cols(),
		height: mat.Rows(),
		seq:    seq,
		ts:     time.Now(),
	}
}

// Width returns the frame width in pixels.
func (f *Frame) Width() int { return f.width }

// Height returns the frame height in pixels.
func (f *Frame) Height() int { return f.height }

// Sequence returns the monotonically increasing capture sequence number.
func (f *Frame) Sequence() uint64 { return f.seq }

// Timestamp returns the capture time.
func (f *Frame) Timestamp() time.Time { return f.ts }

// Pixels returns the raw BGR pixel buffer. The buffer is shared read-only
// across all observers of one dispatch pass and must not be mutated.
func (f *Frame) Pixels() []byte {
	if f.pixels == nil && f.mat != nil && !f.mat.Empty() {
		f.pixels = f.mat.ToBytes()
	}
	return f.pixels
}

// Mat returns the underlying OpenCV matrix, or nil for raw-pixel frames.
func (f *Frame) Mat() *gocv.Mat { return f.mat }

// Close releases the underlying Mat, if any. The frame source calls this
// after a dispatch pass completes.
func (f *Frame) Close() {
	if f.mat != nil {
		f.mat.Close()
		f.mat = nil
	}
}
