package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
)

// downloadState is shared by the copy goroutine and the UI
type downloadState struct {
	mu        sync.RWMutex
	current   int64
	total     int64
	startTime time.Time
	done      bool
}

func (s *downloadState) add(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current += int64(n)
}

func (s *downloadState) finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.done = true
}

func (s *downloadState) get() (current, total int64, speed float64, done bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if elapsed := time.Since(s.startTime).Seconds(); elapsed > 0 {
		speed = float64(s.current) / elapsed
	}
	return s.current, s.total, speed, s.done
}

// tickMsg triggers UI updates
type tickMsg time.Time

// downloadModel is the Bubble Tea model for download progress
type downloadModel struct {
	progress progress.Model
	spinner  spinner.Model

	label  string
	state  *downloadState
	cancel context.CancelFunc
}

func newDownloadModel(label string, state *downloadState, cancel context.CancelFunc) downloadModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return downloadModel{
		progress: p,
		spinner:  s,
		label:    label,
		state:    state,
		cancel:   cancel,
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m downloadModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.cancel()
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tickMsg:
		current, total, _, done := m.state.get()
		if done {
			return m, tea.Quit
		}

		cmds := []tea.Cmd{tickCmd()}
		if total > 0 {
			cmds = append(cmds, m.progress.SetPercent(min(1, float64(current)/float64(total))))
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m downloadModel) View() string {
	current, total, speed, done := m.state.get()
	if done {
		return ""
	}

	s := fmt.Sprintf("\n  %s Downloading: %s\n\n", m.spinner.View(), infoStyle.Render(m.label))

	// Sizes reported by yt-dlp are often estimates
	if total > 0 {
		s += fmt.Sprintf("  %s\n\n", m.progress.View())
		s += fmt.Sprintf("  %s/~%s  |  Speed: %s/s  |  ETA: %s\n",
			formatBytes(current),
			formatBytes(total),
			formatBytes(int64(speed)),
			calculateETA(total-current, speed),
		)
	} else {
		s += fmt.Sprintf("  %s  |  Speed: %s/s\n", formatBytes(current), formatBytes(int64(speed)))
	}

	s += "\n" + helpStyle.Render("  Press q to cancel") + "\n"
	return s
}

func calculateETA(remaining int64, speed float64) string {
	if speed <= 0 || remaining <= 0 {
		return "--:--"
	}
	eta := time.Duration(float64(remaining)/speed) * time.Second
	return formatDuration(eta)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

// copyWithProgress runs copyFn while a spinner on stderr reports the bytes
// written. Cancelling from the UI cancels the download context.
func copyWithProgress(label string, total int64, cancel context.CancelFunc, copyFn func(onWrite func(int)) (int64, error)) (int64, error) {
	state := &downloadState{total: total, startTime: time.Now()}

	var (
		written int64
		copyErr error
		done    = make(chan struct{})
	)
	go func() {
		defer close(done)
		written, copyErr = copyFn(state.add)
		state.finish()
	}()

	p := tea.NewProgram(newDownloadModel(label, state, cancel), tea.WithOutput(os.Stderr))
	if _, err := p.Run(); err != nil {
		cancel()
	}

	<-done
	return written, copyErr
}

// progressWriter reports every successful write
type progressWriter struct {
	w       io.Writer
	onWrite func(int)
}

func (p progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	if n > 0 && p.onWrite != nil {
		p.onWrite(n)
	}
	return n, err
}
