package ui

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// RecoveryHandler restarts the dashboard after a panic. Monitoring keeps running
// underneath, so a UI crash never stops an exit.
type RecoveryHandler struct {
	logger       *zap.Logger
	restartDelay time.Duration
	maxRestarts  int
	restartCount int
	mu           sync.Mutex
	program      *tea.Program
	createUI     func() (tea.Model, []tea.ProgramOption)
	stopped      bool

	pending []tea.Msg // sent while no program was running
	sticky  []tea.Msg // replayed to every program, including restarts
}

// NewRecoveryHandler creates a new recovery handler
func NewRecoveryHandler(logger *zap.Logger, createUI func() (tea.Model, []tea.ProgramOption)) *RecoveryHandler {
	return &RecoveryHandler{
		logger:       logger,
		restartDelay: 2 * time.Second,
		maxRestarts:  5,
		createUI:     createUI,
	}
}

// RunWithRecovery runs the UI until it exits normally or crashes too often.
func (rh *RecoveryHandler) RunWithRecovery() error {
	for {
		rh.mu.Lock()
		stopped := rh.stopped
		rh.mu.Unlock()
		if stopped {
			return nil
		}

		err := rh.runUI()

		rh.mu.Lock()
		if err == nil {
			rh.mu.Unlock()
			return nil
		}

		rh.restartCount++
		if rh.restartCount > rh.maxRestarts {
			rh.mu.Unlock()
			return fmt.Errorf("UI crashed too many times (%d), giving up", rh.maxRestarts)
		}

		rh.logger.Error("UI crashed, will restart",
			zap.Error(err),
			zap.Int("restart_count", rh.restartCount),
			zap.Duration("delay", rh.restartDelay))
		rh.mu.Unlock()

		time.Sleep(rh.restartDelay)
	}
}

// runUI runs the UI with panic recovery
func (rh *RecoveryHandler) runUI() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("UI panic: %v", r)
			rh.logger.Error("UI panic recovered",
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())))
		}
	}()

	model, opts := rh.createUI()
	program := tea.NewProgram(model, opts...)

	rh.mu.Lock()
	if rh.stopped {
		rh.mu.Unlock()
		return nil
	}
	rh.program = program
	replay := append(append([]tea.Msg(nil), rh.sticky...), rh.pending...)
	rh.pending = nil
	rh.mu.Unlock()

	defer func() {
		rh.mu.Lock()
		if rh.program == program {
			rh.program = nil
		}
		rh.mu.Unlock()
	}()

	// Send blocks until the event loop reads, so replay once Run has started it.
	if len(replay) > 0 {
		go func() {
			for _, msg := range replay {
				program.Send(msg)
			}
		}()
	}

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("UI error: %w", err)
	}
	return nil
}

// Send delivers msg to the running program. Without one, msg waits for the next program.
func (rh *RecoveryHandler) Send(msg tea.Msg) {
	rh.mu.Lock()
	p := rh.program
	if p == nil {
		rh.pending = append(rh.pending, msg)
	}
	rh.mu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

// SendSticky delivers msg now and again to every program started after a crash.
func (rh *RecoveryHandler) SendSticky(msg tea.Msg) {
	rh.mu.Lock()
	rh.sticky = append(rh.sticky, msg)
	p := rh.program
	rh.mu.Unlock()

	if p != nil {
		p.Send(msg)
	}
}

// Stop quits the UI and prevents further restarts.
func (rh *RecoveryHandler) Stop() {
	rh.mu.Lock()
	rh.stopped = true
	p := rh.program
	rh.program = nil
	rh.mu.Unlock()

	if p != nil {
		p.Quit()
	}
}

// GetRestartCount returns the number of restarts
func (rh *RecoveryHandler) GetRestartCount() int {
	rh.mu.Lock()
	defer rh.mu.Unlock()
	return rh.restartCount
}
