package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/raphaelgruber/tablemap-go/internal/client"
	"github.com/raphaelgruber/tablemap-go/internal/models"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status     lipgloss.Color
	Success    lipgloss.Color
	Error      lipgloss.Color
	Hint       lipgloss.Color
	ProgressBg lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:     lipgloss.Color("#5FAFD7"), // light blue
	Success:    lipgloss.Color("#00D787"), // green
	Error:      lipgloss.Color("#FF005F"), // red
	Hint:       lipgloss.Color("#6C6C6C"), // dim gray
	ProgressBg: lipgloss.Color("#3A3A3A"), // dark gray
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

// jobUpdateMsg carries an updated job snapshot, from either the event
// stream or a poll.
type jobUpdateMsg struct {
	job *models.ImportJob
	err error
}

// streamStateMsg reports whether the websocket event stream is feeding
// snapshots. While it is, the model stops scheduling poll ticks.
type streamStateMsg struct {
	live bool
}

// progressModel is the bubbletea model for job progress.
type progressModel struct {
	client    *client.Client
	jobID     string
	job       *models.ImportJob
	progress  progress.Model
	theme     Theme
	streaming bool
	done      bool
	quitting  bool
	err       error
}

// newProgressModel creates a new progress model.
func newProgressModel(c *client.Client, job *models.ImportJob) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		client:   c,
		jobID:    job.ID,
		job:      job,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m progressModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		if m.streaming {
			// The event stream delivers snapshots, no poll needed.
			return m, nil
		}
		return m, m.fetchJob()

	case streamStateMsg:
		m.streaming = msg.live
		if !msg.live && !m.done {
			// Stream dropped, resume polling.
			return m, tickCmd()
		}
		return m, nil

	case jobUpdateMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch job status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}

		m.job = msg.job

		if m.job.Status.Terminal() {
			m.done = true
			if m.job.Status != models.JobStatusSucceeded {
				if m.job.ErrorMessage != nil && *m.job.ErrorMessage != "" {
					m.err = errors.New(*m.job.ErrorMessage)
				} else {
					m.err = fmt.Errorf("job ended %s", m.job.Status)
				}
			}
			return m, tea.Quit
		}

		if m.streaming {
			return m, nil
		}
		return m, tickCmd()

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

// renderContent builds the display string.
func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.job == nil {
		return "Loading job status...\n"
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.job.Status))

	var pct float64
	detail := ""
	if m.job.Progress != nil {
		pct = float64(*m.job.Progress) / 100
		detail = fmt.Sprintf("%d%%", *m.job.Progress)
	}
	if m.job.Stage != "" {
		detail = m.job.Stage + " " + detail
	}
	if cur := progressMetaString(m.job, "current_file"); cur != "" {
		detail += "  " + cur
	}

	progressBar := m.progress.ViewAs(pct)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, detail, hint)
}

// finalView renders the completion message.
func (m progressModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nJob %s continues in background.\nUse 'tablemap jobs %s' to check status.\n",
			m.jobID, m.jobID)
		return m.theme.hintStyle().Render(msg)
	}

	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Job failed: %s\n", m.err))
	}

	var output string
	output += m.theme.completedStyle().Render("✓ Completed") + "\n"
	if m.job != nil {
		if table := resultMetaString(m.job, "table_name"); table != "" {
			output += fmt.Sprintf("  Table: %s\n", table)
		}
		if rows, ok := resultMetaNumber(m.job, "rows_imported"); ok {
			output += fmt.Sprintf("  Rows imported: %d\n", rows)
		}
	}
	return output
}

// fetchJob fetches the current job status from the server.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m progressModel) fetchJob() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		job, err := m.client.GetJob(ctx, m.jobID)
		return jobUpdateMsg{job: job, err: err}
	}
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func progressMetaString(job *models.ImportJob, key string) string {
	if job.ProgressMeta == nil {
		return ""
	}
	s, _ := job.ProgressMeta[key].(string)
	return s
}

func resultMetaString(job *models.ImportJob, key string) string {
	if job.ResultMeta == nil {
		return ""
	}
	s, _ := job.ResultMeta[key].(string)
	return s
}

func resultMetaNumber(job *models.ImportJob, key string) (int, bool) {
	if job.ResultMeta == nil {
		return 0, false
	}
	// JSON numbers decode as float64 in the free-form metadata bag.
	f, ok := job.ResultMeta[key].(float64)
	return int(f), ok
}

// RunJobProgress runs the interactive progress UI for a job. Snapshots
// arrive over the websocket event stream when the backend supports it,
// with one-second polling as the fallback.
// Returns nil on success or Ctrl+C (background), error on job failure.
func RunJobProgress(c *client.Client, job *models.ImportJob) error {
	model := newProgressModel(c, job)
	p := tea.NewProgram(model)

	streamCtx, stopStream := context.WithCancel(context.Background())
	defer stopStream()
	go func() {
		err := c.JobEvents(streamCtx, job.ID, func(snapshot *models.ImportJob) error {
			p.Send(streamStateMsg{live: true})
			p.Send(jobUpdateMsg{job: snapshot})
			return nil
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			p.Send(streamStateMsg{live: false})
		}
	}()

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(progressModel); ok {
		// If user quit with Ctrl+C, job continues in background - not an error
		if m.quitting {
			return nil
		}
		if m.err != nil {
			return m.err
		}
	}

	return nil
}
