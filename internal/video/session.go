package video

import (
	"context"
	"sync"
)

// Session resolves the reference of one player. A newer Resolve supersedes
// and cancels the lookup of an older one, so results of stale references are never applied.
type Session struct {
	resolver SourceResolver

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	closed bool
}

func NewSession(resolver SourceResolver) *Session {
	return &Session{resolver: resolver}
}

// Resolve resolves ref and hands the result to apply while holding the session lock,
// provided ref is still the current reference. It reports whether the result was applied.
func (s *Session) Resolve(ctx context.Context, ref string, opts Options, apply func(Resolution)) (Resolution, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Resolution{}, false
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	res := s.resolver.Resolve(ctx, ref, opts)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer cancel()
	if gen != s.gen || s.closed {
		return res, false
	}
	s.cancel = nil
	if apply != nil {
		apply(res)
	}
	return res, true
}

// Generation of the latest Resolve call
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// Close cancels any in-flight lookup, later results are discarded
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.closed = true
}
