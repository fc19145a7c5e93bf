package audio

import "sync"

// fakeStream replays prepared frames.
type fakeStream struct {
	frames chan []byte
	err    error
	once   sync.Once
}

// newFakeStream returns a stream that ends after the given frames.
func newFakeStream(frames ...[]byte) *fakeStream {
	s := &fakeStream{frames: make(chan []byte, len(frames))}
	for _, f := range frames {
		s.frames <- f
	}
	close(s.frames)
	return s
}

func (s *fakeStream) Frames() <-chan []byte { return s.frames }
func (s *fakeStream) Err() error            { return s.err }
func (s *fakeStream) Close() error          { return nil }

func repeatFrames(frame []byte, n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = frame
	}
	return out
}

func concatFrames(groups ...[][]byte) [][]byte {
	var out [][]byte
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}
