package display

import (
	"sync"

	"github.com/sweeney/grinder/internal/logic"
)

// Frame is one recorded Render call.
type Frame struct {
	Text string
	Font logic.Font
}

// Recorder is a Renderer that keeps every frame it is given.
type Recorder struct {
	mu     sync.Mutex
	frames []Frame

	// Err, if set, is returned by Render.
	Err    error
	Closed bool
}

// Render records the frame.
func (r *Recorder) Render(text string, font logic.Font) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.frames = append(r.frames, Frame{Text: text, Font: font})
	return nil
}

// Frames returns a copy of the recorded frames.
func (r *Recorder) Frames() []Frame {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Frame, len(r.frames))
	copy(out, r.frames)
	return out
}

// Last returns the most recent frame and whether there was one.
func (r *Recorder) Last() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return Frame{}, false
	}
	return r.frames[len(r.frames)-1], true
}

// Close marks the recorder closed.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Closed = true
	return nil
}
