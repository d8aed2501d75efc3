package app

import (
	"context"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/kerbaras/pocketepub/pkg/app/screens"
	"github.com/kerbaras/pocketepub/pkg/config"
	"github.com/kerbaras/pocketepub/pkg/services"
)

type App struct {
	cfg    *config.Config
	logger *slog.Logger
}

func NewApp(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Run starts the interactive interface and blocks until it exits. Quitting
// cancels any chapter still in flight.
func (a *App) Run() error {
	controller, err := services.NewChapterController(a.cfg, a.logger)
	if err != nil {
		return err
	}
	defer controller.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := screens.NewRootScreen(ctx, controller, a.cfg.Paths.Destination)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
