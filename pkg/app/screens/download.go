package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/pocketepub/pkg/app/components"
	"github.com/kerbaras/pocketepub/pkg/app/styles"
	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/services"
)

const (
	sourceField = iota
	destinationField
)

// DownloadScreen is the chapter form: a source URL, a destination and the
// process-only and convert-only switches.
type DownloadScreen struct {
	ctx     context.Context
	service ChapterService

	inputs      []textinput.Model
	focus       int
	processOnly bool
	convertOnly bool

	running         bool
	result          *services.Result
	progressTracker *components.ProgressTracker

	width  int
	height int
	err    error
}

func NewDownloadScreen(ctx context.Context, service ChapterService, destination string) *DownloadScreen {
	source := textinput.New()
	source.Placeholder = "https://pocket.shonenmagazine.com/episode/..."
	source.Prompt = ""
	source.CharLimit = 512
	source.Width = 60
	source.Focus()

	dest := textinput.New()
	dest.Placeholder = "destination directory"
	dest.Prompt = ""
	dest.CharLimit = 512
	dest.Width = 60
	dest.SetValue(destination)

	return &DownloadScreen{
		ctx:             ctx,
		service:         service,
		inputs:          []textinput.Model{source, dest},
		progressTracker: components.NewProgressTracker(80),
	}
}

func (s *DownloadScreen) Init() tea.Cmd {
	return textinput.Blink
}

// Prefill loads a previous run into the form.
func (s *DownloadScreen) Prefill(opts services.Options) {
	s.inputs[sourceField].SetValue(opts.Source)
	if opts.Destination != "" {
		s.inputs[destinationField].SetValue(opts.Destination)
	}
	s.processOnly = opts.ProcessOnly
	s.convertOnly = opts.ConvertOnly
	s.setFocus(sourceField)
}

func (s *DownloadScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.progressTracker.SetWidth(msg.Width - 4)
		return s, nil

	case tea.KeyMsg:
		if s.running {
			return s, nil
		}

		switch msg.String() {
		case "enter":
			opts := s.options()
			if opts.Source == "" {
				s.err = fmt.Errorf("enter a chapter URL")
				return s, nil
			}
			s.running = true
			s.err = nil
			s.result = nil
			s.progressTracker.Clear()
			return s, s.startDownload(opts)

		case "up", "shift+tab":
			s.setFocus((s.focus + len(s.inputs) - 1) % len(s.inputs))
			return s, textinput.Blink

		case "down":
			s.setFocus((s.focus + 1) % len(s.inputs))
			return s, textinput.Blink

		case "ctrl+p":
			s.processOnly = !s.processOnly
			return s, nil

		case "ctrl+o":
			s.convertOnly = !s.convertOnly
			return s, nil
		}

	case services.Progress:
		s.progressTracker.Update(msg)
		return s, nil

	case chapterFinishedMsg:
		s.running = false
		s.result = msg.result
		s.err = msg.err
		return s, nil
	}

	var cmd tea.Cmd
	s.inputs[s.focus], cmd = s.inputs[s.focus].Update(msg)
	return s, cmd
}

func (s *DownloadScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("📥 Download Chapter"))
	b.WriteString("\n\n")

	labels := []string{"Chapter URL", "Destination"}
	for i, input := range s.inputs {
		inputStyle := styles.InputStyle
		if i == s.focus {
			inputStyle = styles.FocusedInputStyle
		}
		b.WriteString(styles.LabelStyle.Render(labels[i]))
		b.WriteString("\n")
		b.WriteString(inputStyle.Render(input.View()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.Toggle("process only (ctrl+p)", s.processOnly))
	b.WriteString("  ")
	b.WriteString(styles.Toggle("convert only (ctrl+o)", s.convertOnly))
	b.WriteString("\n\n")

	switch {
	case s.running:
		b.WriteString(styles.StatusDownloading.Render("Working..."))
		b.WriteString("\n\n")
	case s.err != nil:
		b.WriteString(styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err)))
		b.WriteString("\n\n")
	case s.result != nil:
		b.WriteString(styles.StatusCompleted.Render(resultSummary(s.result)))
		b.WriteString("\n\n")
	}

	b.WriteString(s.progressTracker.View())

	b.WriteString(styles.HelpStyle.Render(
		"enter: start • ↑/↓: switch field • ctrl+p/ctrl+o: toggle modes • tab: history • ctrl+c: quit",
	))

	return b.String()
}

func (s *DownloadScreen) setFocus(field int) {
	s.inputs[s.focus].Blur()
	s.focus = field
	s.inputs[s.focus].Focus()
}

func (s *DownloadScreen) options() services.Options {
	dest := strings.TrimSpace(s.inputs[destinationField].Value())
	if expanded, err := config.ExpandPath(dest); err == nil {
		dest = expanded
	}
	return services.Options{
		Source:      strings.TrimSpace(s.inputs[sourceField].Value()),
		Destination: dest,
		ProcessOnly: s.processOnly,
		ConvertOnly: s.convertOnly,
	}
}

func resultSummary(result *services.Result) string {
	if result.ArchivePath != "" {
		return fmt.Sprintf("EPUB created: %s (%d pages)", result.ArchivePath, result.Pages)
	}
	return fmt.Sprintf("Descrambled %d pages in %s", result.Pages, result.Dir)
}

type chapterFinishedMsg struct {
	result *services.Result
	err    error
}

func (s *DownloadScreen) startDownload(opts services.Options) tea.Cmd {
	return func() tea.Msg {
		result, err := s.service.Download(s.ctx, opts)
		return chapterFinishedMsg{result: result, err: err}
	}
}
