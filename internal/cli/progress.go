package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/vecsync-go/internal/models"
	vsync "github.com/raphaelgruber/vecsync-go/internal/sync"
)

const pollInterval = 250 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the job status
type tickMsg time.Time

// jobUpdateMsg carries the updated job data
type jobUpdateMsg struct {
	job *models.SyncJob
	err error
}

// runDoneMsg signals that the batch loop finished.
type runDoneMsg struct {
	job *models.SyncJob
	err error
}

// progressModel is the bubbletea model for sync job progress.
type progressModel struct {
	orch     *vsync.Orchestrator
	job      *models.SyncJob
	progress progress.Model
	theme    Theme
	done     chan runDoneMsg
	finished bool
	canceled bool
	err      error
}

// newProgressModel creates a new progress model. The done channel receives
// the batch loop's result.
func newProgressModel(orch *vsync.Orchestrator, done chan runDoneMsg) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		orch:     orch,
		progress: prog,
		theme:    defaultTheme,
		done:     done,
	}
}

// Init returns the initial commands (poll + wait for the run to finish).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.waitForRun(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.canceled = true
			// cooperative: the loop stops at the next item boundary
			_ = m.orch.CancelAll(context.Background())
			return m, nil
		}

	case tickMsg:
		return m, m.fetchJob()

	case jobUpdateMsg:
		if msg.err == nil && msg.job != nil {
			m.job = msg.job
		}
		if m.finished {
			return m, nil
		}
		return m, tickCmd()

	case runDoneMsg:
		m.finished = true
		m.job = msg.job
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.finished {
		return m.finalView()
	}

	if m.job == nil {
		return "Starting sync...\n"
	}

	var pct float64
	if m.job.Total > 0 {
		pct = float64(m.job.Processed) / float64(m.job.Total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d items", m.job.Processed, m.job.Total)
	if m.job.Errors > 0 {
		counts += m.theme.errorStyle().Render(fmt.Sprintf(" (%d errors)", m.job.Errors))
	}

	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")
	if m.canceled {
		hint = m.theme.hintStyle().Render("Canceling after the current item...")
	}

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Sync failed: %s\n", m.err))
	}
	if m.job == nil {
		return ""
	}

	switch m.job.Status {
	case models.JobCanceled:
		return m.theme.hintStyle().Render(
			fmt.Sprintf("\nCanceled after %d/%d items.\n", m.job.Processed, m.job.Total))
	case models.JobFailed:
		msg := "unknown error"
		if m.job.ErrorMessage != nil {
			msg = *m.job.ErrorMessage
		}
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Sync failed: %s\n", msg))
	}

	out := m.theme.completedStyle().Render("✓ Completed") +
		fmt.Sprintf(" %d/%d items synced\n", m.job.Processed, m.job.Total)
	if m.job.Errors > 0 {
		out += m.theme.errorStyle().Render(
			fmt.Sprintf("  %d items failed", m.job.Errors)) +
			m.theme.hintStyle().Render("  (re-run with --retry)\n")
	}
	return out
}

// fetchJob polls the current job state.
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.orch.Status(ctx)
		return jobUpdateMsg{job: job, err: err}
	}
}

// waitForRun blocks on the batch loop result.
func (m progressModel) waitForRun() tea.Cmd {
	return func() tea.Msg {
		return <-m.done
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runSyncProgress drives the batch loop in the background and renders the
// interactive progress UI until the job reaches a terminal state.
func runSyncProgress(orch *vsync.Orchestrator) error {
	done := make(chan runDoneMsg, 1)
	go func() {
		job, err := orch.Run(context.Background(), nil)
		done <- runDoneMsg{job: job, err: err}
	}()

	model := newProgressModel(orch, done)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		if m.err != nil {
			return m.err
		}
		if m.job != nil {
			return reportJobStatus(m.job)
		}
	}
	return nil
}

// reportJobStatus maps a terminal job to the process exit semantics.
func reportJobStatus(job *models.SyncJob) error {
	if job.Status == models.JobFailed {
		msg := "unknown error"
		if job.ErrorMessage != nil {
			msg = *job.ErrorMessage
		}
		return fmt.Errorf("sync failed: %s", msg)
	}
	return nil
}
