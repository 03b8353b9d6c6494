package provider

import (
	"context"
	"io"
	"sync"
)

// Stream is a finite, non-restartable sequence of text fragments.
type Stream interface {
	// Recv returns the next fragment, or io.EOF once the sequence is exhausted.
	Recv() (string, error)
	// Close releases the upstream connection. It is safe to call more than once.
	Close() error
}

type item struct {
	text string
	err  error
}

type channelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	items  <-chan item
	// endErr is set before items is closed when the producer failed but
	// could not hand the error over.
	endErr error

	closeOnce sync.Once
	closeFn   func() error
	closeErr  error
}

// NewStream runs produce in its own goroutine and exposes the fragments it
// emits as a Stream. emit blocks until the consumer receives the fragment, so
// a slow reader slows the upstream read instead of buffering without bound.
// closeFn, when set, runs once on Close after the producer context is cancelled.
func NewStream(ctx context.Context, produce func(ctx context.Context, emit func(string) error) error, closeFn func() error) Stream {
	streamCtx, cancel := context.WithCancel(ctx)
	ch := make(chan item)
	s := &channelStream{ctx: streamCtx, cancel: cancel, items: ch, closeFn: closeFn}
	go func() {
		defer close(ch)
		emit := func(text string) error {
			select {
			case ch <- item{text: text}:
				return nil
			case <-streamCtx.Done():
				return streamCtx.Err()
			}
		}
		if err := produce(streamCtx, emit); err != nil {
			select {
			case ch <- item{err: err}:
			case <-streamCtx.Done():
				s.endErr = err
			}
		} else if ctxErr := streamCtx.Err(); ctxErr != nil {
			s.endErr = ctxErr
		}
	}()
	return s
}

func (s *channelStream) Recv() (string, error) {
	// Drain anything already produced before looking at ctx.Done().
	select {
	case it, ok := <-s.items:
		return s.unpack(it, ok)
	default:
	}

	select {
	case <-s.ctx.Done():
		return "", s.ctx.Err()
	case it, ok := <-s.items:
		return s.unpack(it, ok)
	}
}

func (s *channelStream) unpack(it item, ok bool) (string, error) {
	if !ok {
		if s.endErr != nil {
			return "", s.endErr
		}
		return "", io.EOF
	}
	if it.err != nil {
		return "", it.err
	}
	return it.text, nil
}

func (s *channelStream) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		if s.closeFn != nil {
			s.closeErr = s.closeFn()
		}
	})
	return s.closeErr
}

// Collect drains s and returns the concatenation of its fragments.
func Collect(s Stream) (string, error) {
	defer s.Close()
	var out []byte
	for {
		frag, err := s.Recv()
		if err == io.EOF {
			return string(out), nil
		}
		if err != nil {
			return string(out), err
		}
		out = append(out, frag...)
	}
}
