package io

// Capture records published frames without displaying them.
type Capture struct {
	Frame  Frame // Last frame published.
	Frames int   // Count of frames published.
}

var _ Renderer = (*Capture)(nil)

// Publish records the frame.
func (cc *Capture) Publish(frame Frame) {
	cc.Frame = frame
	cc.Frames++
}
