// Package tui renders live execution progress for watch mode: a spinner
// while the cell runs, the reconciled outputs as they arrive, and the
// terminal execution count or failure once tracking ends.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/matthewwiese/jupyter-kernel-executor/internal/execute"
	"github.com/matthewwiese/jupyter-kernel-executor/internal/protocol"
)

// snapshotMsg mirrors the display target after a reconciliation step.
type snapshotMsg struct {
	prompt  string
	outputs []string
	count   *int
}

// doneMsg carries the invocation outcome.
type doneMsg struct {
	outcome execute.Outcome
}

type theme struct {
	header  lipgloss.Style
	running lipgloss.Style
	ok      lipgloss.Style
	fail    lipgloss.Style
	output  lipgloss.Style
	help    lipgloss.Style
}

func newTheme() theme {
	return theme{
		header:  lipgloss.NewStyle().Bold(true),
		running: lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		ok:      lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		fail:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		output:  lipgloss.NewStyle().PaddingLeft(2),
		help:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

type model struct {
	req     protocol.ExecutionRequest
	spinner spinner.Model
	theme   theme
	started time.Time

	done    <-chan execute.Outcome
	cancel  func()
	prompt  string
	outputs []string
	count   *int

	finished bool
	result   *execute.Result
	err      error
}

func newModel(req protocol.ExecutionRequest, done <-chan execute.Outcome, cancel func()) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return model{
		req:     req,
		spinner: sp,
		theme:   newTheme(),
		started: time.Now(),
		done:    done,
		cancel:  cancel,
		prompt:  " ",
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitOutcome(m.done))
}

// waitOutcome blocks on the invocation and delivers its outcome as a
// message, so a fast backend cannot finish before the program listens.
func waitOutcome(done <-chan execute.Outcome) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{outcome: <-done}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.finished {
				return m, tea.Quit
			}
			// Abandon tracking; the outcome message quits for us.
			m.cancel()
			return m, nil
		case "enter":
			if m.finished {
				return m, tea.Quit
			}
		}
		return m, nil

	case snapshotMsg:
		m.prompt = msg.prompt
		m.outputs = msg.outputs
		m.count = msg.count
		return m, nil

	case doneMsg:
		m.finished = true
		m.result = msg.outcome.Result
		m.err = msg.outcome.Err
		if m.result != nil {
			m.outputs = m.result.Outputs
			m.count = &m.result.ExecutionCount
		}
		return m, tea.Quit

	case spinner.TickMsg:
		if m.finished {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.header.Render(fmt.Sprintf("cell %s on kernel %s", m.req.CellID, m.req.KernelID)))
	b.WriteString("\n")

	switch {
	case !m.finished:
		b.WriteString(m.spinner.View())
		b.WriteString(m.theme.running.Render(fmt.Sprintf("running [%s]", m.prompt)))
	case m.err != nil:
		b.WriteString(m.theme.fail.Render(fmt.Sprintf("failed: %v", m.err)))
	default:
		count := 0
		if m.count != nil {
			count = *m.count
		}
		b.WriteString(m.theme.ok.Render(fmt.Sprintf("completed (execution_count=%d) in %s",
			count, time.Since(m.started).Round(time.Millisecond))))
	}
	b.WriteString("\n")

	for _, out := range m.outputs {
		b.WriteString(m.theme.output.Render(strings.TrimRight(out, "\n")))
		b.WriteString("\n")
	}

	if m.finished {
		b.WriteString(m.theme.help.Render("press enter to close"))
	} else {
		b.WriteString(m.theme.help.Render("ctrl+c to cancel"))
	}
	b.WriteString("\n")
	return b.String()
}
