// internal/monitor/session.go
package monitor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/moonbag/internal/position"
)

// Session is one position's monitor loop running in its own goroutine.
type Session struct {
	mint   string
	logger *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}

	mu       sync.RWMutex
	snapshot position.Position
	err      error
}

// startSession launches the loop. onExit runs after the loop returns, before Done is closed.
func startSession(parent context.Context, m *Monitor, pos position.Position, logger *zap.Logger, onExit func(*Session)) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		mint:     pos.AssetID,
		logger:   logger,
		cancel:   cancel,
		done:     make(chan struct{}),
		snapshot: pos,
	}

	observed := m.withObserver(s.update)
	go func() {
		defer close(s.done)
		defer cancel()

		final, err := observed.Run(ctx, pos)

		s.mu.Lock()
		s.snapshot = final
		s.err = err
		s.mu.Unlock()

		if onExit != nil {
			onExit(s)
		}
	}()

	return s
}

func (s *Session) update(p position.Position) {
	s.mu.Lock()
	s.snapshot = p
	s.mu.Unlock()
}

// TokenMint returns the token mint being monitored
func (s *Session) TokenMint() string { return s.mint }

// Snapshot returns the latest position state (thread-safe).
func (s *Session) Snapshot() position.Position {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Stop asks the loop to end after the current cycle. It does not wait.
func (s *Session) Stop() {
	s.logger.Debug("Stopping monitoring session", zap.String("token", s.mint))
	s.cancel()
}

// Done is closed once the loop has returned.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the loop ends and returns the final snapshot and error.
func (s *Session) Wait() (position.Position, error) {
	<-s.done
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.err
}
