package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/execute"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/reconcile"
)

// Watch runs req through inv while rendering live progress, applying
// every reconciled update to target as it arrives. It blocks until the
// execution ends or the user cancels, and returns what Invoke would.
func Watch(ctx context.Context, inv *execute.Invoker, req protocol.ExecutionRequest, target reconcile.DisplayTarget) (*execute.Result, error) {
	pub := newPublishTarget(target)
	session, done := inv.Start(ctx, req, pub)

	// The model and Watch both need the outcome: the model to render the
	// terminal state before quitting, Watch to return it.
	uiOutcome := make(chan execute.Outcome, 1)
	result := make(chan execute.Outcome, 1)
	go func() {
		outcome := <-done
		result <- outcome
		uiOutcome <- outcome
	}()

	p := tea.NewProgram(newModel(req, uiOutcome, session.Cancel))
	pub.setSender(p.Send)

	if _, err := p.Run(); err != nil {
		// The terminal fell over, not the execution. Abandon tracking
		// so the outcome arrives promptly.
		session.Cancel()
		<-result
		return nil, fmt.Errorf("watch ui: %w", err)
	}

	session.Cancel() // no-op when the execution already ended
	outcome := <-result
	return outcome.Result, outcome.Err
}
