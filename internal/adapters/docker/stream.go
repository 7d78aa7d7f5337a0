package docker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/docker/docker/pkg/jsonmessage"

	"github.com/melih/lighthouse/internal/core/domain"
	"github.com/melih/lighthouse/internal/logging"
)

var (
	errStreamConsumed = errors.New("progress stream can only be iterated once")
	errStreamClosed   = errors.New("progress stream is closed")
)

// ProgressStream decodes the newline-delimited JSON frames the runtime sends
// for pulls and builds. It owns the response body and closes it when
// iteration ends, when Close is called or when its context is cancelled,
// whichever comes first.
type ProgressStream struct {
	ctx    context.Context
	op     string
	target string
	body   io.ReadCloser
	logger *log.Logger

	mu       sync.Mutex
	started  bool
	closed   bool
	stop     func() bool
	cleanups []func()

	closeOnce sync.Once
	closeErr  error
}

// NewProgressStream wraps body. cleanups run once, after the body is closed.
func NewProgressStream(ctx context.Context, op, target string, body io.ReadCloser, logger *log.Logger, cleanups ...func()) *ProgressStream {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &ProgressStream{
		ctx:      ctx,
		op:       op,
		target:   target,
		body:     body,
		logger:   logger.With("op", op, "target", target),
		cleanups: cleanups,
	}

	// A read blocked on a stalled runtime only returns once the body is closed.
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	s.mu.Lock()
	s.stop = stop
	s.mu.Unlock()

	return s
}

// Events returns a single-pass sequence of decoded frames, in arrival order.
// The sequence ends after the last frame, or with exactly one error: a
// runtime error frame, an undecodable frame, a transport failure or
// cancellation. Breaking out of the loop early closes the stream.
func (s *ProgressStream) Events() iter.Seq2[domain.PullProgressEvent, error] {
	return func(yield func(domain.PullProgressEvent, error) bool) {
		s.mu.Lock()
		started, closed := s.started, s.closed
		s.started = true
		s.mu.Unlock()

		switch {
		case started:
			yield(domain.PullProgressEvent{}, domain.NewOperationError(s.op, s.target, domain.ErrRuntime, errStreamConsumed))
			return
		case closed:
			yield(domain.PullProgressEvent{}, domain.NewOperationError(s.op, s.target, domain.ErrRuntime, s.closedCause()))
			return
		}

		defer s.Close()

		dec := json.NewDecoder(s.body)
		count := 0
		for {
			var msg jsonmessage.JSONMessage
			if err := dec.Decode(&msg); err != nil {
				if errors.Is(err, io.EOF) {
					s.logger.Debug("stream finished", "events", count)
					return
				}
				yield(domain.PullProgressEvent{}, s.readError(err))
				return
			}

			if frameErr := errorFromFrame(msg); frameErr != nil {
				s.logger.Debug("runtime reported stream error", "events", count, "err", frameErr)
				yield(domain.PullProgressEvent{}, classify(s.op, s.target, frameErr))
				return
			}

			count++
			if !yield(progressEventFrom(msg), nil) {
				s.logger.Debug("stream abandoned by caller", "events", count)
				return
			}
		}
	}
}

// Close releases the underlying stream. It is idempotent.
func (s *ProgressStream) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		stop := s.stop
		s.mu.Unlock()

		if stop != nil {
			stop()
		}
		s.closeErr = s.body.Close()
		for _, fn := range s.cleanups {
			fn()
		}
	})
	return s.closeErr
}

func (s *ProgressStream) closedCause() error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	return errStreamClosed
}

// readError explains why decoding stopped before a clean end of stream.
func (s *ProgressStream) readError(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return domain.NewOperationError(s.op, s.target, domain.ErrRuntime, ctxErr)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.NewOperationError(s.op, s.target, domain.ErrRuntime, fmt.Errorf("undecodable progress frame: %w", err))
	}

	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return domain.NewOperationError(s.op, s.target, domain.ErrRuntime, errStreamClosed)
	}

	return domain.NewOperationError(s.op, s.target, domain.ErrRuntime, fmt.Errorf("failed to read progress stream: %w", err))
}

func errorFromFrame(msg jsonmessage.JSONMessage) error {
	if msg.Error != nil {
		return msg.Error
	}
	if msg.ErrorMessage != "" { //nolint:staticcheck // older daemons only fill the flat field
		return errors.New(msg.ErrorMessage) //nolint:staticcheck
	}
	return nil
}
