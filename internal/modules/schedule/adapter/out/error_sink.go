package out

import (
	"sync/atomic"

	"confsched/internal/modules/schedule/domain"
	scheduleout "confsched/internal/modules/schedule/port/out"
)

// ChannelErrorSink buffers reported failures for a consumer. Reports never
// block; when the buffer is full the failure is counted and dropped.
type ChannelErrorSink struct {
	ch      chan domain.ErrorKind
	dropped atomic.Int64
}

var _ scheduleout.ErrorSink = (*ChannelErrorSink)(nil)

func NewChannelErrorSink(size int) *ChannelErrorSink {
	if size <= 0 {
		size = 1
	}
	return &ChannelErrorSink{ch: make(chan domain.ErrorKind, size)}
}

func (s *ChannelErrorSink) Report(kind domain.ErrorKind) {
	select {
	case s.ch <- kind:
	default:
		s.dropped.Add(1)
	}
}

func (s *ChannelErrorSink) Errors() <-chan domain.ErrorKind {
	return s.ch
}

// Drain returns everything buffered so far without waiting.
func (s *ChannelErrorSink) Drain() []domain.ErrorKind {
	out := []domain.ErrorKind{}
	for {
		select {
		case kind := <-s.ch:
			out = append(out, kind)
		default:
			return out
		}
	}
}

func (s *ChannelErrorSink) Dropped() int64 {
	return s.dropped.Load()
}
