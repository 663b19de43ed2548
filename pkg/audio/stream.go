package audio

import (
	"sync"
)

// Stream carries synthesized audio chunks from a TTS collaborator to the
// caller's playback path. At most one stream is active per call; the owner
// cancels the previous stream before starting a new one.
type Stream struct {
	mu         sync.Mutex
	ch         chan []byte
	done       chan struct{}
	closed     bool
	cancelled  bool
	sampleRate int
	channels   int
}

func NewStream(buffer, sampleRate, channels int) *Stream {
	if buffer <= 0 {
		buffer = 64
	}
	if sampleRate <= 0 {
		sampleRate = 8000
	}
	if channels <= 0 {
		channels = 1
	}
	return &Stream{
		ch:         make(chan []byte, buffer),
		done:       make(chan struct{}),
		sampleRate: sampleRate,
		channels:   channels,
	}
}

func (s *Stream) SampleRate() int { return s.sampleRate }
func (s *Stream) Channels() int   { return s.channels }

// Push delivers a chunk to the consumer. It reports false once the stream is
// cancelled or the buffer is full so producers can stop synthesizing.
func (s *Stream) Push(chunk []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- chunk:
		return true
	default:
		return false
	}
}

// Chunks returns the consumer side of the stream. The channel is closed when
// the stream is cancelled or completed.
func (s *Stream) Chunks() <-chan []byte { return s.ch }

// Close ends the stream normally once the producer has pushed its last
// chunk. Consumers see the channel close after draining.
func (s *Stream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finish()
}

// Cancel stops the stream immediately, marking it interrupted. Safe to
// call more than once and from a different goroutine than the producer.
func (s *Stream) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.cancelled = true
	}
	s.finish()
}

func (s *Stream) finish() {
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
	close(s.ch)
}

// Cancelled reports whether the stream was cut short rather than closed.
func (s *Stream) Cancelled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

// Done is closed when the stream has been cancelled.
func (s *Stream) Done() <-chan struct{} { return s.done }

var chunkPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

func AcquireChunk(size int) []byte {
	b := chunkPool.Get().([]byte)
	if cap(b) < size {
		return make([]byte, size)
	}
	return b[:size]
}

func ReleaseChunk(b []byte) {
	chunkPool.Put(b[:0])
}
