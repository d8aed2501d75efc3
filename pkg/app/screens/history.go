package screens

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/pocketepub/pkg/app/components"
	"github.com/kerbaras/pocketepub/pkg/app/styles"
	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/services"
)

type HistoryScreen struct {
	service     ChapterService
	historyList *components.HistoryList
	width       int
	height      int
	err         error
}

func NewHistoryScreen(service ChapterService) *HistoryScreen {
	return &HistoryScreen{
		service:     service,
		historyList: components.NewHistoryList(),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	return s.loadHistory
}

func (s *HistoryScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		s.width = msg.Width
		s.height = msg.Height
		s.historyList.Width = msg.Width - 4
		s.historyList.Height = msg.Height - 10

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			s.historyList.Prev()
		case "down", "j":
			s.historyList.Next()
		case "r":
			return s, s.loadHistory
		case "enter", "e":
			selected := s.historyList.Selected()
			if selected == nil {
				return s, nil
			}
			opts := rerunOptions(selected, msg.String() == "e")
			return s, func() tea.Msg {
				return SwitchScreenMsg{Screen: "download", Data: opts}
			}
		}

	case historyLoadedMsg:
		s.historyList.SetItems(msg.chapters)
		s.err = msg.err
	}

	return s, nil
}

func (s *HistoryScreen) View() string {
	if s.width == 0 {
		return "Loading..."
	}

	header := styles.TitleStyle.Render("📚 History")

	var errorMsg string
	if s.err != nil {
		errorMsg = styles.StatusError.Render(fmt.Sprintf("Error: %s", s.err))
		errorMsg += "\n\n"
	}

	help := styles.HelpStyle.Render(
		"↑/k: up • ↓/j: down • enter: run again • e: rebuild EPUB • r: refresh • tab: download • q: quit",
	)

	return fmt.Sprintf("%s\n\n%s%s\n%s", header, errorMsg, s.historyList.View(), help)
}

// rerunOptions prepares the form for a recorded chapter. The destination is
// the parent of the chapter directory.
func rerunOptions(chapter *data.Chapter, convertOnly bool) services.Options {
	opts := services.Options{Source: chapter.Source, ConvertOnly: convertOnly}
	if chapter.Directory != "" {
		opts.Destination = filepath.Dir(chapter.Directory)
	}
	return opts
}

type historyLoadedMsg struct {
	chapters []*data.Chapter
	err      error
}

func (s *HistoryScreen) loadHistory() tea.Msg {
	chapters, err := s.service.History()
	return historyLoadedMsg{chapters: chapters, err: err}
}
