package frames

import (
	"context"
	"io"
	"sync"

	"github.com/nikmy/sqlrelay/pkg/errors"
	"github.com/nikmy/sqlrelay/pkg/wire"
)

// Source is a server-streamed frame sequence. Recv returns io.EOF once the
// transport stream ends. Close releases the stream and may be called at any
// point, also concurrently with a blocked Recv.
type Source interface {
	Recv(ctx context.Context) (wire.Frame, error)
	Close() error
}

var ErrClosed = errors.Error("frame source is closed")

// Replay returns a Source yielding the given frames in order.
func Replay(frames ...wire.Frame) *ReplaySource {
	return &ReplaySource{frames: frames}
}

type ReplaySource struct {
	mu     sync.Mutex
	frames []wire.Frame
	tail   error
	closed bool
	recvd  int
}

// FailWith makes the source return err instead of io.EOF after the last frame.
func (r *ReplaySource) FailWith(err error) *ReplaySource {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tail = err
	return r
}

func (r *ReplaySource) Recv(ctx context.Context) (wire.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}
	if len(r.frames) == 0 {
		if r.tail != nil {
			return nil, r.tail
		}
		return nil, io.EOF
	}

	f := r.frames[0]
	r.frames = r.frames[1:]
	r.recvd++
	return f, nil
}

func (r *ReplaySource) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *ReplaySource) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// Received is the number of frames handed out so far.
func (r *ReplaySource) Received() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recvd
}

// FromReader returns a Source decoding a BSON frame stream from rc.
func FromReader(rc io.ReadCloser) Source {
	return &readerSource{rc: rc}
}

type readerSource struct {
	rc   io.ReadCloser
	once sync.Once
	err  error
}

func (s *readerSource) Recv(ctx context.Context) (wire.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wire.ReadFrame(s.rc)
}

func (s *readerSource) Close() error {
	s.once.Do(func() {
		s.err = s.rc.Close()
	})
	return s.err
}
