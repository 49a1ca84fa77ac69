package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

// errInterrupted is returned when the user cancels a running task
var errInterrupted = errors.New("interrupted")

type taskDoneMsg struct{ err error }

// spinnerModel animates a label until the task reports on done
type spinnerModel struct {
	spinner  spinner.Model
	label    string
	done     <-chan error
	cancel   context.CancelFunc
	err      error
	finished bool
}

func (m spinnerModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitFor(m.done))
}

func waitFor(done <-chan error) tea.Cmd {
	return func() tea.Msg {
		return taskDoneMsg{err: <-done}
	}
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskDoneMsg:
		m.err = msg.err
		m.finished = true
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.cancel()
			m.err = errInterrupted
			m.finished = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.finished {
		return ""
	}
	return m.spinner.View() + " " + m.label + "\n"
}

// withSpinner runs task while animating label on stderr.
// Without a terminal the task simply runs.
func withSpinner(ctx context.Context, label string, task func(context.Context) error) error {
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return task(ctx)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- task(ctx) }()

	model := spinnerModel{
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(accentStyle)),
		label:   label,
		done:    done,
		cancel:  cancel,
	}

	final, err := tea.NewProgram(model, tea.WithOutput(os.Stderr)).Run()
	if err != nil {
		// No animation, but the task still finishes
		return <-done
	}
	return final.(spinnerModel).err
}
