// internal/monitor/service.go
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/moonbag/internal/position"
)

// Service runs one independent Session per open position.
// Sessions share only the Monitor's collaborators.
type Service struct {
	monitor *Monitor
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	finished []position.Position
	wg       sync.WaitGroup
}

// NewService creates a new monitor service
func NewService(m *Monitor, logger *zap.Logger) *Service {
	return &Service{
		monitor:  m,
		logger:   logger.Named("monitor_service"),
		sessions: make(map[string]*Session),
	}
}

// Rules returns the exit thresholds every session uses.
func (s *Service) Rules() position.Rules { return s.monitor.Rules() }

// Start begins monitoring pos. Only one session per token mint may run at a time.
func (s *Service) Start(ctx context.Context, pos position.Position) (*Session, error) {
	if err := pos.Validate(); err != nil {
		return nil, fmt.Errorf("invalid position: %w", err)
	}
	if pos.Status != position.StatusOpen {
		return nil, fmt.Errorf("%w: %s", ErrPositionNotOpen, pos.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[pos.AssetID]; exists {
		return nil, fmt.Errorf("%w for token %s", ErrSessionExists, pos.AssetID)
	}

	s.logger.Info("📊 Creating monitoring session",
		zap.String("token", pos.AssetID),
		zap.String("label", pos.Label),
		zap.String("entry_price", pos.EntryPrice.String()),
		zap.String("quantity", pos.InitialQuantity.String()))

	s.wg.Add(1)
	session := startSession(ctx, s.monitor, pos, s.logger.Named("session"), s.onExit)
	s.sessions[pos.AssetID] = session
	return session, nil
}

// onExit drops a finished session from management.
func (s *Service) onExit(session *Session) {
	defer s.wg.Done()

	final, err := session.snapshot, session.err
	s.mu.Lock()
	if current, ok := s.sessions[session.mint]; ok && current == session {
		delete(s.sessions, session.mint)
	}
	s.finished = append(s.finished, final)
	s.mu.Unlock()

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Monitoring session ended with error",
			zap.String("token", session.mint), zap.Error(err))
		return
	}
	s.logger.Info("Monitoring session finished",
		zap.String("token", session.mint),
		zap.String("status", string(final.Status)))
}

// Stop stops one session and waits for its current cycle to finish.
func (s *Service) Stop(tokenMint string) (position.Position, error) {
	session, ok := s.Get(tokenMint)
	if !ok {
		return position.Position{}, fmt.Errorf("%w for token %s", ErrSessionNotFound, tokenMint)
	}

	s.logger.Info("🛑 Stopping monitoring session", zap.String("token", tokenMint))
	session.Stop()
	final, _ := session.Wait()
	return final, nil
}

// Get retrieves a running session
func (s *Service) Get(tokenMint string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[tokenMint]
	return session, ok
}

// Active returns the number of running sessions.
func (s *Service) Active() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Snapshots returns the state of running sessions followed by finished ones, each sorted by mint.
func (s *Service) Snapshots() []position.Position {
	s.mu.RLock()
	running := make([]position.Position, 0, len(s.sessions))
	for _, session := range s.sessions {
		running = append(running, session.Snapshot())
	}
	finished := append([]position.Position(nil), s.finished...)
	s.mu.RUnlock()

	sort.Slice(running, func(i, j int) bool { return running[i].AssetID < running[j].AssetID })
	sort.Slice(finished, func(i, j int) bool { return finished[i].AssetID < finished[j].AssetID })
	return append(running, finished...)
}

// Wait blocks until every session has ended.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown stops all sessions and waits for them, bounded by ctx.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.RUnlock()

	s.logger.Info("Shutting down monitor service", zap.Int("active_sessions", len(sessions)))

	g, gctx := errgroup.WithContext(ctx)
	for _, session := range sessions {
		session := session
		session.Stop()
		g.Go(func() error {
			select {
			case <-session.Done():
				return nil
			case <-gctx.Done():
				return fmt.Errorf("session %s: %w", session.mint, gctx.Err())
			}
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Warn("Monitor service shutdown incomplete", zap.Error(err))
		return err
	}

	s.logger.Info("Monitor service shutdown completed")
	return nil
}
