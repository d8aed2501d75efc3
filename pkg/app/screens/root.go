package screens

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/kerbaras/pocketepub/pkg/app/styles"
	"github.com/kerbaras/pocketepub/pkg/data"
	"github.com/kerbaras/pocketepub/pkg/services"
)

// ChapterService is the part of the chapter controller the screens use.
type ChapterService interface {
	Download(ctx context.Context, opts services.Options) (*services.Result, error)
	History() ([]*data.Chapter, error)
	GetProgressChannel() <-chan services.Progress
}

type screenType int

const (
	downloadView screenType = iota
	historyView
)

type RootScreen struct {
	service ChapterService

	currentView screenType
	download    *DownloadScreen
	history     *HistoryScreen

	width  int
	height int
}

func NewRootScreen(ctx context.Context, service ChapterService, destination string) *RootScreen {
	return &RootScreen{
		service:     service,
		currentView: downloadView,
		download:    NewDownloadScreen(ctx, service, destination),
		history:     NewHistoryScreen(service),
	}
}

func (r *RootScreen) Init() tea.Cmd {
	return tea.Batch(r.download.Init(), r.listenForProgress)
}

func (r *RootScreen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.width = msg.Width
		r.height = msg.Height
		// Both screens need the size, not only the visible one.
		newModel, _ := r.history.Update(msg)
		r.history = newModel.(*HistoryScreen)
		newModel, cmd = r.download.Update(msg)
		r.download = newModel.(*DownloadScreen)
		return r, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return r, tea.Quit
		case "q":
			if r.currentView == historyView {
				return r, tea.Quit
			}
		case "tab":
			r.currentView = (r.currentView + 1) % 2
			if r.currentView == historyView {
				cmd = r.history.Init()
			} else {
				cmd = r.download.Init()
			}
			return r, cmd
		}

	case services.Progress:
		newModel, cmd := r.download.Update(msg)
		r.download = newModel.(*DownloadScreen)
		return r, tea.Batch(cmd, r.listenForProgress)

	case progressClosedMsg:
		return r, nil

	case chapterFinishedMsg:
		newModel, cmd := r.download.Update(msg)
		r.download = newModel.(*DownloadScreen)
		return r, tea.Batch(cmd, r.history.Init())

	case SwitchScreenMsg:
		switch msg.Screen {
		case "download":
			r.currentView = downloadView
			if opts, ok := msg.Data.(services.Options); ok {
				r.download.Prefill(opts)
			}
			cmd = r.download.Init()
		case "history":
			r.currentView = historyView
			cmd = r.history.Init()
		}
		return r, cmd
	}

	switch r.currentView {
	case downloadView:
		newModel, newCmd := r.download.Update(msg)
		r.download = newModel.(*DownloadScreen)
		return r, newCmd
	case historyView:
		newModel, newCmd := r.history.Update(msg)
		r.history = newModel.(*HistoryScreen)
		return r, newCmd
	}

	return r, cmd
}

func (r *RootScreen) View() string {
	var content string
	switch r.currentView {
	case downloadView:
		content = r.download.View()
	case historyView:
		content = r.history.View()
	}

	return fmt.Sprintf("%s\n\n%s", r.renderTabs(), content)
}

func (r *RootScreen) renderTabs() string {
	downloadTab := "Download"
	historyTab := "History"

	if r.currentView == downloadView {
		downloadTab = styles.ActiveTabStyle.Render(downloadTab)
		historyTab = styles.InactiveTabStyle.Render(historyTab)
	} else {
		downloadTab = styles.InactiveTabStyle.Render(downloadTab)
		historyTab = styles.ActiveTabStyle.Render(historyTab)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, downloadTab, historyTab)
}

func (r *RootScreen) listenForProgress() tea.Msg {
	progress, ok := <-r.service.GetProgressChannel()
	if !ok {
		return progressClosedMsg{}
	}
	return progress
}

// SwitchScreenMsg asks the root screen to show another screen.
type SwitchScreenMsg struct {
	Screen string
	Data   any
}

type progressClosedMsg struct{}
